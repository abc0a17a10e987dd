package di

import "fmt"

// Lifetime controls how long a resolved instance is reused.
type Lifetime int

const (
	Singleton Lifetime = iota // One instance per root provider
	Scoped                    // One instance per scope
	Transient                 // A new instance per resolution
)

// String returns the lowercase lifetime name.
func (l Lifetime) String() string {
	switch l {
	case Singleton:
		return "singleton"
	case Scoped:
		return "scoped"
	case Transient:
		return "transient"
	default:
		return fmt.Sprintf("lifetime(%d)", int(l))
	}
}

// ParseLifetime parses a lifetime name as produced by String.
func ParseLifetime(s string) (Lifetime, error) {
	switch s {
	case "singleton", "":
		return Singleton, nil
	case "scoped":
		return Scoped, nil
	case "transient":
		return Transient, nil
	default:
		return Singleton, fmt.Errorf("unknown lifetime %q", s)
	}
}
