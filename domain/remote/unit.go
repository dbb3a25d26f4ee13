package remote

import (
	"fmt"
	"html/template"
	"strings"
	"unicode"
)

// Strategy identifies which loading stage produced a unit.
type Strategy string

// Loading stages, in the order they are attempted.
const (
	StrategyFederated      Strategy = "federated"
	StrategyGlobalAccessor Strategy = "globalAccessor"
	StrategyStaticFallback Strategy = "staticFallback"
)

// Unit is a mountable piece of UI.
type Unit interface {
	// Render returns the content inserted into a slot.
	Render() template.HTML
}

// Fragment is a unit backed by markup produced by a remote.
type Fragment struct {
	Source string // Where the markup came from (URL or accessor name)
	HTML   template.HTML
}

// Render implements Unit.
func (f Fragment) Render() template.HTML {
	return f.HTML
}

// Placeholder is the inert unit used when no remote could be loaded.
type Placeholder struct {
	Remote string
	Notice string
}

// Render implements Unit.
func (p Placeholder) Render() template.HTML {
	return template.HTML(fmt.Sprintf(
		`<div class="mfe-fallback" data-remote="%s"><p>%s</p></div>`,
		template.HTMLEscapeString(p.Remote),
		template.HTMLEscapeString(p.Notice),
	))
}

// LoadError records the failure of a single loading stage.
type LoadError struct {
	Stage Strategy
	Cause error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("%s load failed: %v", e.Stage, e.Cause)
}

func (e *LoadError) Unwrap() error {
	return e.Cause
}

// Loaded is the outcome of loading a remote.
// Attempts holds every failed stage that preceded the successful one.
type Loaded struct {
	Remote   string
	Unit     Unit
	Strategy Strategy
	Attempts []*LoadError
}

// Degraded reports whether a preferred stage failed before this result.
func (l Loaded) Degraded() bool {
	return len(l.Attempts) > 0
}

// AccessorName derives the well-known accessor key for a logical name.
// "mfe-transfers" becomes "getMfeTransfersComponent".
func AccessorName(name string) string {
	var b strings.Builder
	b.WriteString("get")
	upper := true
	for _, r := range name {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			upper = true
			continue
		}
		if upper {
			r = unicode.ToUpper(r)
			upper = false
		}
		b.WriteRune(r)
	}
	b.WriteString("Component")
	return b.String()
}
