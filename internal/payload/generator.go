// Package payload generates the request bodies sent to the Todo Manager API.
//
// Field values come from text/template strings evaluated with the sprig
// function map, so a configuration can describe random filler data without
// code changes:
//
//	title:       {{ randAlphaNum 10 }}
//	description: Updated_{{ randAlpha 10 }}
//	doneStatus:  {{ randBool }}          (type: bool)
package payload

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"text/template"

	"todoperf/internal/config"

	"github.com/Masterminds/sprig/v3"
)

// Generator renders field templates into Fields.
type Generator struct {
	create []compiledField
	update []compiledField
}

type compiledField struct {
	name string
	kind config.FieldType
	tmpl *template.Template
}

// FuncMap returns the functions available to field templates.
func FuncMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["randBool"] = func() bool { return rand.IntN(2) == 1 }
	return funcs
}

// NewGenerator compiles the create and update templates of an entity kind.
func NewGenerator(entity config.EntityConfig) (*Generator, error) {
	create, err := compile(entity.Create)
	if err != nil {
		return nil, fmt.Errorf("create fields: %w", err)
	}
	update, err := compile(entity.Update)
	if err != nil {
		return nil, fmt.Errorf("update fields: %w", err)
	}
	return &Generator{create: create, update: update}, nil
}

func compile(fields []config.FieldTemplate) ([]compiledField, error) {
	funcs := FuncMap()
	compiled := make([]compiledField, 0, len(fields))
	for _, f := range fields {
		tmpl, err := template.New(f.Name).Funcs(funcs).Option("missingkey=error").Parse(f.Template)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		kind := f.Type
		if kind == "" {
			kind = config.FieldString
		}
		compiled = append(compiled, compiledField{name: f.Name, kind: kind, tmpl: tmpl})
	}
	return compiled, nil
}

// Create renders a new create body.
func (g *Generator) Create() (Fields, error) {
	return render(g.create)
}

// Update renders a new update body.
func (g *Generator) Update() (Fields, error) {
	return render(g.update)
}

func render(fields []compiledField) (Fields, error) {
	out := make(Fields, 0, len(fields))
	for _, f := range fields {
		var buf bytes.Buffer
		if err := f.tmpl.Execute(&buf, nil); err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		value, err := convert(strings.TrimSpace(buf.String()), f.kind)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.name, err)
		}
		out = append(out, Field{Name: f.name, Value: value})
	}
	return out, nil
}

func convert(text string, kind config.FieldType) (interface{}, error) {
	switch kind {
	case config.FieldBool:
		return strconv.ParseBool(text)
	case config.FieldInt:
		return strconv.Atoi(text)
	default:
		return text, nil
	}
}
