package registrar

import (
	"fmt"
	"io"
	"time"
)

// Outcome is the result of wiring one service.
type Outcome string

const (
	OutcomeRegistered Outcome = "registered"
	OutcomeSkipped    Outcome = "skipped"
	OutcomeFailed     Outcome = "failed"
)

// Skip reasons.
const (
	ReasonNoContract       = "no_contract"
	ReasonNoImplementation = "no_implementation"
	ReasonNoFactory        = "no_factory"
	ReasonNoValue          = "no_value"
	ReasonNotAssignable    = "not_assignable"
)

// Entry records the wiring of one service.
type Entry struct {
	Service        string
	Contract       string
	Key            any
	Strategy       string
	Outcome        Outcome
	Implementation string
	Reason         string
}

// Summary tracks what a wiring run registered and skipped.
type Summary struct {
	entries  []Entry
	duration time.Duration
}

// NewSummary creates an empty summary.
func NewSummary() *Summary {
	return &Summary{entries: make([]Entry, 0)}
}

// Track appends an entry.
func (s *Summary) Track(e Entry) {
	s.entries = append(s.entries, e)
}

// SetDuration records how long wiring took.
func (s *Summary) SetDuration(d time.Duration) { s.duration = d }

// Entries returns all entries in wiring order.
func (s *Summary) Entries() []Entry {
	return append([]Entry(nil), s.entries...)
}

// Count returns the number of entries with the given outcome.
func (s *Summary) Count(o Outcome) int {
	n := 0
	for _, e := range s.entries {
		if e.Outcome == o {
			n++
		}
	}
	return n
}

// Display writes a tree of the wiring run to w.
func (s *Summary) Display(w io.Writer) {
	fmt.Fprintf(w, "\n🔌 Wired %d services in %.2fs\n", len(s.entries), s.duration.Seconds())

	if len(s.entries) == 0 {
		fmt.Fprintf(w, "   └── No services configured\n\n")
		return
	}

	for i, e := range s.entries {
		prefix := "├──"
		if i == len(s.entries)-1 {
			prefix = "└──"
		}
		name := e.Service
		if e.Key != nil {
			name = fmt.Sprintf("%s[%v]", name, e.Key)
		}
		detail := e.Implementation
		if e.Outcome != OutcomeRegistered {
			detail = e.Reason
		}
		fmt.Fprintf(w, "   %s %s %s (%s) → %s\n", prefix, outcomeIcon(e.Outcome), name, e.Strategy, detail)
	}

	registered := s.Count(OutcomeRegistered)
	fmt.Fprintf(w, "\n")
	if registered == len(s.entries) {
		fmt.Fprintf(w, "✅ All services registered (%d/%d)\n\n", registered, len(s.entries))
	} else {
		fmt.Fprintf(w, "⚠️  Some services were not registered (%d/%d)\n\n", registered, len(s.entries))
	}
}

func outcomeIcon(o Outcome) string {
	switch o {
	case OutcomeRegistered:
		return "✅"
	case OutcomeSkipped:
		return "⏸️"
	default:
		return "❌"
	}
}
