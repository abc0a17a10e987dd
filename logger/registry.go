package logger

import (
	"slices"
	"sync"
)

// Components are the names the wiring packages log under.
var Components = []string{"component", "di", "intercept", "module", "registrar", "resolver"}

var components = struct {
	sync.RWMutex
	byName map[string]*Logger
}{byName: make(map[string]*Logger)}

// Register sets the logger used by component name.
func Register(name string, l *Logger) {
	components.Lock()
	defer components.Unlock()
	components.byName[name] = l
}

// Get returns the logger of component name. Unregistered components get
// the global logger tagged with name; the fallback is not stored, so a
// later Init still reaches them.
func Get(name string) *Logger {
	components.RLock()
	l, ok := components.byName[name]
	components.RUnlock()
	if ok {
		return l
	}
	return GetGlobalLogger().WithComponent(name)
}

// RegisterDefaults derives a tagged logger from base for each name, or for
// Components when no name is given. A nil base means the global logger.
func RegisterDefaults(base *Logger, names ...string) {
	if base == nil {
		base = GetGlobalLogger()
	}
	if len(names) == 0 {
		names = Components
	}
	for _, name := range names {
		Register(name, base.WithComponent(name))
	}
}

// Registered returns the registered component names in order.
func Registered() []string {
	components.RLock()
	defer components.RUnlock()
	names := make([]string, 0, len(components.byName))
	for name := range components.byName {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
