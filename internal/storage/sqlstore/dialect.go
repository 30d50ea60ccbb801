package sqlstore

import (
	"database/sql"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4/database"

	_ "modernc.org/sqlite"
)

// Dialect captures what differs between the supported databases. The query
// set itself is shared.
type Dialect struct {
	Name       string
	DriverName string

	// insertIgnore starts an INSERT that skips rows violating a unique key.
	insertIgnore string

	dsn           func(string) string
	configure     func(*sql.DB)
	migrateDriver func(*sql.DB) (database.Driver, error)
}

var (
	// SQLite stores everything in one file. The pool is limited to a single
	// connection so units of work never contend for the write lock.
	SQLite = Dialect{
		Name:         "sqlite",
		DriverName:   "sqlite",
		insertIgnore: "INSERT OR IGNORE",
		dsn: func(path string) string {
			if strings.Contains(path, "?") {
				return path
			}
			return path + "?_pragma=busy_timeout(5000)"
		},
		configure: func(db *sql.DB) {
			db.SetMaxOpenConns(1)
		},
		migrateDriver: sqliteMigrateDriver,
	}

	MySQL = Dialect{
		Name:         "mysql",
		DriverName:   "mysql",
		insertIgnore: "INSERT IGNORE",
		dsn:          mysqlDSN,
		configure: func(db *sql.DB) {
			db.SetMaxOpenConns(25)
			db.SetMaxIdleConns(5)
		},
		migrateDriver: mysqlMigrateDriver,
	}
)

// mysqlDSN makes UPDATE report matched rows instead of changed rows, so
// rewriting a row with identical values is not mistaken for a missing one.
func mysqlDSN(dsn string) string {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return dsn
	}
	cfg.ClientFoundRows = true
	return cfg.FormatDSN()
}
