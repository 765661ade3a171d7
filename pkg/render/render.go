// Package render produces the exact bytes pushed into managed
// workloads. The reconciliation core never mutates rendered output;
// it only compares and pushes it.
package render

import (
	"bytes"
	"fmt"
	"io/fs"
	"text/template"
)

// Renderer turns a template name and a context into bytes.
type Renderer interface {
	Render(name string, context any) ([]byte, error)
}

// TemplateRenderer renders Go text templates from a filesystem. When
// a variant tag is set, "<name>.<variant>" is preferred and falls back
// to the plain "<name>" so one tree can serve several releases of the
// managed software.
type TemplateRenderer struct {
	fsys    fs.FS
	variant string
}

func NewTemplateRenderer(fsys fs.FS, variant string) *TemplateRenderer {
	return &TemplateRenderer{fsys: fsys, variant: variant}
}

func (r *TemplateRenderer) Render(name string, context any) ([]byte, error) {
	tmpl, err := r.lookup(name)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, context); err != nil {
		return nil, fmt.Errorf("failed to render template %q: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (r *TemplateRenderer) lookup(name string) (*template.Template, error) {
	candidates := []string{name}
	if r.variant != "" {
		candidates = []string{name + "." + r.variant, name}
	}
	var lastErr error
	for _, candidate := range candidates {
		tmpl, err := template.New(candidate).Option("missingkey=zero").ParseFS(r.fsys, candidate)
		if err == nil {
			return tmpl, nil
		}
		lastErr = err
	}
	return nil, fmt.Errorf("no template for %q: %w", name, lastErr)
}

// Static returns a Renderer that ignores context and always yields the
// given bytes per name. Handy for tests and fixed config files.
func Static(files map[string][]byte) Renderer {
	return staticRenderer(files)
}

type staticRenderer map[string][]byte

func (s staticRenderer) Render(name string, _ any) ([]byte, error) {
	data, ok := s[name]
	if !ok {
		return nil, fmt.Errorf("no template for %q", name)
	}
	return data, nil
}
