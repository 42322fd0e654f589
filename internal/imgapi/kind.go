package imgapi

import "time"

// Kind classifies a request by the time budget it runs under.
type Kind int

const (
	KindDefault Kind = iota
	KindUpload
	KindSearch
	KindProcessing
	KindPreload
	KindHealth
)

// WarningRatio is the fraction of a budget after which an operation is
// considered slow.
const WarningRatio = 0.75

// String returns the lower-case name used in config files and messages.
func (k Kind) String() string {
	switch k {
	case KindDefault:
		return "default"
	case KindUpload:
		return "upload"
	case KindSearch:
		return "search"
	case KindProcessing:
		return "processing"
	case KindPreload:
		return "preload"
	case KindHealth:
		return "health"
	default:
		return "unknown"
	}
}

// Kinds lists every known kind in declaration order.
func Kinds() []Kind {
	return []Kind{KindDefault, KindUpload, KindSearch, KindProcessing, KindPreload, KindHealth}
}

// Budgets maps each kind to its hard upper bound.
type Budgets map[Kind]time.Duration

// DefaultBudgets returns the stock budget table.
func DefaultBudgets() Budgets {
	return Budgets{
		KindDefault:    30 * time.Second,
		KindUpload:     120 * time.Second,
		KindSearch:     60 * time.Second,
		KindProcessing: 300 * time.Second,
		KindPreload:    180 * time.Second,
		KindHealth:     10 * time.Second,
	}
}

// Lookup returns the budget for kind. ok is false when the kind has no
// positive budget configured.
func (b Budgets) Lookup(kind Kind) (time.Duration, bool) {
	d, ok := b[kind]
	if !ok || d <= 0 {
		return 0, false
	}
	return d, true
}

// WarnAt returns the elapsed time at which an operation running under budget
// should raise a warning.
func WarnAt(budget time.Duration) time.Duration {
	return time.Duration(float64(budget) * WarningRatio)
}
