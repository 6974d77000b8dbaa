package config

import (
	"fmt"
	"slices"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"
)

// Model is the unified, format-agnostic representation of all targets
// declared in a workspace.
type Model struct {
	// Targets are in declaration order: files in path order, blocks in file order.
	Targets []*Target
}

// Target is the structured description of one declared target.
type Target struct {
	Kind    string
	Name    string
	Package string
	// File and Line locate the declaration for error messages.
	File       string
	Line       int
	Attributes map[string]cty.Value
}

// AttributeNames returns the names of all set attributes, sorted.
func (t *Target) AttributeNames() []string {
	names := make([]string, 0, len(t.Attributes))
	for name := range t.Attributes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Has reports whether the attribute is set to a non-null value.
func (t *Target) Has(name string) bool {
	v, ok := t.Attributes[name]
	return ok && !v.IsNull()
}

// Scalar decodes a string attribute. Numbers and bools are converted to
// their string form. The bool result reports whether the attribute was set.
func (t *Target) Scalar(name string) (string, bool, error) {
	if !t.Has(name) {
		return "", false, nil
	}
	var out string
	if err := decode(t.Attributes[name], cty.String, &out); err != nil {
		return "", true, err
	}
	return out, true, nil
}

// Bool decodes a bool attribute.
func (t *Target) Bool(name string) (bool, bool, error) {
	if !t.Has(name) {
		return false, false, nil
	}
	var out bool
	if err := decode(t.Attributes[name], cty.Bool, &out); err != nil {
		return false, true, err
	}
	return out, true, nil
}

// StringList decodes a list of strings. A single string is accepted as a
// one-element list. An unset attribute yields nil.
func (t *Target) StringList(name string) ([]string, error) {
	if !t.Has(name) {
		return nil, nil
	}
	v := t.Attributes[name]
	if v.Type() == cty.String {
		v = cty.TupleVal([]cty.Value{v})
	}
	var out []string
	if err := decode(v, cty.List(cty.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StringMap decodes an object or map of strings.
func (t *Target) StringMap(name string) (map[string]string, error) {
	if !t.Has(name) {
		return nil, nil
	}
	var out map[string]string
	if err := decode(t.Attributes[name], cty.Map(cty.String), &out); err != nil {
		return nil, err
	}
	return out, nil
}

// decode converts v to ty and stores the result in the Go value target points to.
func decode(v cty.Value, ty cty.Type, target any) error {
	if !v.IsWhollyKnown() {
		return fmt.Errorf("value is not known")
	}
	converted, err := convert.Convert(v, ty)
	if err != nil {
		return fmt.Errorf("expected %s: %w", ty.FriendlyName(), err)
	}
	if err := gocty.FromCtyValue(converted, target); err != nil {
		return err
	}
	return nil
}
