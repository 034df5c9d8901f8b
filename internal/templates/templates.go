// Package templates renders scaffold bodies for newly created artifacts.
// The engine core never depends on this package; it is an external
// collaborator consumed by the create tool. Templates are compiled once
// at startup so a syntax error fails fast at wiring time.
package templates

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/loom-mcp/loom/internal/metadata"
)

// Renderer renders artifact scaffold bodies. Abstracted as an interface
// where consumed (tools) so tests can substitute a canned renderer.
type Renderer struct {
	templates map[metadata.Kind]*template.Template
}

// ScaffoldData feeds a scaffold template.
type ScaffoldData struct {
	Name        string
	Title       string
	Description string
}

var sources = map[metadata.Kind]string{
	metadata.KindSpec: `# {{or .Title .Name}}

{{with .Description}}{{.}}

{{end}}## Overview

_What this specifies and why._

## Requirements

_Anchor testable requirements as` + " `namespace.name:verb` " + `tags._

## Open Questions

_Unresolved decisions._
`,
	metadata.KindImplementation: `# {{or .Title .Name}}

{{with .Description}}{{.}}

{{end}}## Approach

_How the linked specification is realized._

## Notes

_Deviations from the specification, with reasons._
`,
	metadata.KindScratch: `# {{or .Title .Name}}

{{with .Description}}{{.}}

{{end}}_Working notes. Promote anything durable into a spec._
`,
}

// NewRenderer compiles all scaffold templates.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{templates: make(map[metadata.Kind]*template.Template)}
	for kind, src := range sources {
		t, err := template.New(string(kind)).Parse(src)
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", kind, err)
		}
		r.templates[kind] = t
	}
	return r, nil
}

// Render produces the scaffold body for one artifact kind.
func (r *Renderer) Render(kind metadata.Kind, data ScaffoldData) (string, error) {
	t, ok := r.templates[kind]
	if !ok {
		return "", fmt.Errorf("no template for artifact kind %q", kind)
	}
	var b strings.Builder
	if err := t.Execute(&b, data); err != nil {
		return "", fmt.Errorf("rendering %s template: %w", kind, err)
	}
	return b.String(), nil
}
