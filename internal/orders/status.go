package orders

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusCancelled Status = "CANCELLED"
)

// Self edges let a transition repair an order whose subscription flag
// drifted from its status.
var validNext = map[Status]map[Status]bool{
	StatusActive:    {StatusCancelled: true, StatusActive: true},
	StatusCancelled: {StatusActive: true, StatusCancelled: true},
}

func CanTransition(from, to Status) bool {
	return validNext[from][to]
}

// Interval is the cadence of a subscription.
type Interval string

const (
	IntervalMonth Interval = "month"
	IntervalYear  Interval = "year"
)

var frequencies = map[string]Interval{
	"MONTHLY": IntervalMonth,
	"YEARLY":  IntervalYear,
}

// ParseFrequency maps MONTHLY/YEARLY onto a subscription interval.
func ParseFrequency(f string) (Interval, bool) {
	i, ok := frequencies[f]
	return i, ok
}
