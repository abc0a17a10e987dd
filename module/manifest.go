package module

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/kbukum/plugwire/di"
)

// Kind classifies an exported type.
type Kind int

const (
	// KindContract marks an exported interface other units implement.
	KindContract Kind = iota
	// KindImplementation marks a concrete type with a constructor.
	KindImplementation
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindContract:
		return "contract"
	case KindImplementation:
		return "implementation"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Export is one entry of a unit's type table.
type Export struct {
	Name        string
	Type        reflect.Type
	Kind        Kind
	Constructor *di.Activator
}

// IsConcrete reports whether the export can be instantiated.
func (e *Export) IsConcrete() bool {
	return e.Kind == KindImplementation && e.Constructor != nil && e.Type.Kind() != reflect.Interface
}

// Implements reports whether the export is a concrete implementer of contract.
func (e *Export) Implements(contract reflect.Type) bool {
	if contract == nil || !e.IsConcrete() {
		return false
	}
	if contract.Kind() == reflect.Interface {
		return e.Type.Implements(contract)
	}
	return e.Type.AssignableTo(contract)
}

// ImplementsByPointer reports whether a pointer to the export's value type
// implements contract while the type itself does not.
func (e *Export) ImplementsByPointer(contract reflect.Type) bool {
	if contract == nil || !e.IsConcrete() || e.Type.Kind() == reflect.Pointer || e.Implements(contract) {
		return false
	}
	return reflect.PointerTo(e.Type).AssignableTo(contract)
}

// NameContains reports whether the export name contains fragment.
func (e *Export) NameContains(fragment string) bool {
	return strings.Contains(e.Name, fragment)
}

// Manifest is the declarative type table of a unit. Export order is the
// unit's type ordering.
type Manifest struct {
	Name    string
	Exports []*Export
}

// NewManifest creates a manifest with the given exports.
func NewManifest(name string, exports ...*Export) *Manifest {
	return &Manifest{Name: name, Exports: exports}
}

// Contract declares the interface I as an export of the unit.
func Contract[I any]() *Export {
	t := reflect.TypeOf((*I)(nil)).Elem()
	if t.Kind() != reflect.Interface {
		panic(fmt.Sprintf("module: contract %s is not an interface", t))
	}
	return &Export{Name: t.Name(), Type: t, Kind: KindContract}
}

// Implementation declares a concrete type produced by constructor. The
// constructor follows the di.Activator rules. Implementation panics on an
// invalid constructor since manifests are package-level declarations.
func Implementation(name string, constructor any) *Export {
	act := di.MustActivator(constructor)
	if name == "" {
		name = baseName(act.Type())
	}
	return &Export{Name: name, Type: act.Type(), Kind: KindImplementation, Constructor: act}
}

func baseName(t reflect.Type) string {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
