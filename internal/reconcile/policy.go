package reconcile

import (
	"fmt"
	"strings"

	"spendwise/internal/core"
)

// Policy decides which budget periods take part in matching.
type Policy struct {
	Periods map[core.Period]bool
}

// DefaultPolicy lets every period match.
func DefaultPolicy() Policy {
	return NewPolicy(core.Daily, core.Weekly, core.Monthly)
}

// MonthlyOnly restricts matching to monthly budgets.
func MonthlyOnly() Policy {
	return NewPolicy(core.Monthly)
}

func NewPolicy(periods ...core.Period) Policy {
	p := Policy{Periods: make(map[core.Period]bool, len(periods))}
	for _, period := range periods {
		p.Periods[period] = true
	}
	return p
}

// ParsePolicy builds a policy from configuration values such as
// ["monthly", "weekly"]. An empty list or "all" yields DefaultPolicy.
func ParsePolicy(values []string) (Policy, error) {
	var periods []core.Period
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		switch v {
		case "":
			continue
		case "all", "*":
			return DefaultPolicy(), nil
		}
		period := core.Period(v)
		if err := period.Validate(); err != nil {
			return Policy{}, fmt.Errorf("budget match period %q: %w", v, err)
		}
		periods = append(periods, period)
	}
	if len(periods) == 0 {
		return DefaultPolicy(), nil
	}
	return NewPolicy(periods...), nil
}

func (p Policy) Allows(period core.Period) bool {
	return p.Periods[period]
}

func (p Policy) String() string {
	var out []string
	for _, period := range []core.Period{core.Daily, core.Weekly, core.Monthly} {
		if p.Allows(period) {
			out = append(out, string(period))
		}
	}
	return strings.Join(out, ",")
}
