package perception

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// templateFuncs leaves out the functions that read the process environment.
var templateFuncs = sprig.HermeticTxtFuncMap()

type renderData struct {
	Actor    string
	Text     string
	Exit     string
	Bearing  string
	Observer string
	Distance float64
}

const maxCachedTemplates = 512

// renderer caches parsed templates by source.
type renderer struct {
	cache map[string]*template.Template
}

func newRenderer() *renderer {
	return &renderer{cache: map[string]*template.Template{}}
}

func (r *renderer) render(src string, data renderData) (string, error) {
	if !strings.Contains(src, "{{") {
		return src, nil
	}

	tmpl, ok := r.cache[src]
	if !ok {
		var err error
		tmpl, err = template.New("").Funcs(templateFuncs).Parse(src)
		if err != nil {
			return "", fmt.Errorf("parsing template: %w", err)
		}
		if len(r.cache) >= maxCachedTemplates {
			r.cache = map[string]*template.Template{}
		}
		r.cache[src] = tmpl
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing template: %w", err)
	}
	return buf.String(), nil
}
