package bootstrap

import (
	"context"
	"fmt"
	"io"

	"github.com/kbukum/plugwire/component"
)

// DisplaySummary writes the startup summary to w: component health, the
// registration table and the wiring decisions.
func (a *App) DisplaySummary(w io.Writer) {
	fmt.Fprintf(w, "\n🚀 %s v%s started in %.2fs\n", a.Name, a.Version, a.startupDuration.Seconds())

	a.displayComponents(w)
	a.displayRegistrations(w)

	if a.Registrar != nil {
		a.Registrar.Summary().Display(w)
	}
}

func (a *App) displayComponents(w io.Writer) {
	statuses := a.Components.Statuses(context.Background())
	if len(statuses) == 0 {
		return
	}

	fmt.Fprintf(w, "\n📊 Components\n")
	for i, st := range statuses {
		prefix := "├──"
		if i == len(statuses)-1 {
			prefix = "└──"
		}
		line := st.Description.Name
		if st.Description.Details != "" {
			line += ": " + st.Description.Details
		}
		fmt.Fprintf(w, "   %s %s %s\n", prefix, healthIcon(st.Health.Status), line)
	}
}

func (a *App) displayRegistrations(w io.Writer) {
	if a.Provider == nil {
		return
	}
	regs := a.Provider.Registrations()

	fmt.Fprintf(w, "\n📦 Registrations (%d)\n", len(regs))
	for i, r := range regs {
		prefix := "├──"
		if i == len(regs)-1 {
			prefix = "└──"
		}
		name := r.Contract
		if r.Key != nil {
			name = fmt.Sprintf("%s[%v]", name, r.Key)
		}
		impl := r.Implementation
		if impl == "" {
			impl = string(r.Strategy)
		}
		fmt.Fprintf(w, "   %s %s (%s) → %s\n", prefix, name, r.Lifetime, impl)
	}
}

func healthIcon(s component.HealthStatus) string {
	switch s {
	case component.StatusHealthy:
		return "✅"
	case component.StatusDegraded:
		return "⚠️"
	default:
		return "❌"
	}
}
