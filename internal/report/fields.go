package report

import (
	"github.com/leapstack-labs/pbilens/internal/jsonv"
)

// FieldRef renders an Entity[Property] reference.
func FieldRef(entity, property string) string {
	return entity + "[" + property + "]"
}

// FindVisualConfig locates the object carrying "visualType" inside a visual
// container config. Top-level members are scanned first in document order;
// when none matches, the remaining tree is searched depth-first.
func FindVisualConfig(config *jsonv.Value) *jsonv.Value {
	hasVisualType := func(v *jsonv.Value) bool {
		return v.IsObject() && v.Has("visualType")
	}

	for _, m := range config.Members() {
		if hasVisualType(m.Value) {
			return m.Value
		}
	}
	return config.FindFirst(hasVisualType)
}

// EntityAliases maps each prototypeQuery.From alias to its entity name.
func EntityAliases(query *jsonv.Value) map[string]string {
	aliases := make(map[string]string)
	for _, from := range query.Get("From").Items() {
		name := from.Get("Name").Str()
		if name == "" {
			continue
		}
		aliases[name] = from.Get("Entity").Str()
	}
	return aliases
}

// SelectFields resolves prototypeQuery.Select entries to field references.
// An entry's descriptor may sit under Column, Aggregation.Expression.Column
// or Measure. Entries whose alias or property cannot be resolved are skipped.
func SelectFields(selects *jsonv.Value, aliases map[string]string) []string {
	var fields []string
	for _, sel := range selects.Items() {
		var details *jsonv.Value
		switch {
		case sel.Has("Column"):
			details = sel.Get("Column")
		case sel.Has("Aggregation"):
			details = sel.Path("Aggregation", "Expression", "Column")
		case sel.Has("Measure"):
			details = sel.Get("Measure")
		}
		if details.Empty() {
			continue
		}

		alias := details.Path("Expression", "SourceRef", "Source").Str()
		entity := aliases[alias]
		property := details.Get("Property").Str()
		if entity != "" && property != "" {
			fields = append(fields, FieldRef(entity, property))
		}
	}
	return fields
}

// FilterFields extracts field references from a list of filter descriptors,
// resolving each descriptor's "expression" tree with ExpressionFields.
func FilterFields(filters *jsonv.Value) []string {
	var fields []string
	for _, f := range filters.Items() {
		fields = append(fields, ExpressionFields(f.Get("expression"))...)
	}
	return fields
}

// ExpressionFields resolves an expression tree. The first object on each
// branch that has both Expression and Property keys yields a reference from
// Expression.SourceRef.Entity and Property; any other object is searched
// through its nested objects and arrays.
func ExpressionFields(expr *jsonv.Value) []string {
	if !expr.IsObject() {
		return nil
	}

	if expr.Has("Expression") && expr.Has("Property") {
		entity := expr.Path("Expression", "SourceRef", "Entity").Str()
		property := expr.Get("Property").Str()
		if entity != "" && property != "" {
			return []string{FieldRef(entity, property)}
		}
		return nil
	}

	var fields []string
	for _, m := range expr.Members() {
		switch m.Value.Kind() {
		case jsonv.KindObject:
			fields = append(fields, ExpressionFields(m.Value)...)
		case jsonv.KindArray:
			for _, item := range m.Value.Items() {
				fields = append(fields, ExpressionFields(item)...)
			}
		}
	}
	return fields
}

// ObjectFields extracts field references from an "objects" or "vcObjects"
// style tree. Every "expr" key mapping to an object is resolved with
// ExpressionFields; everything else is searched recursively.
func ObjectFields(tree *jsonv.Value) []string {
	var fields []string
	switch tree.Kind() {
	case jsonv.KindObject:
		for _, m := range tree.Members() {
			if m.Key == "expr" && m.Value.IsObject() {
				fields = append(fields, ExpressionFields(m.Value)...)
				continue
			}
			fields = append(fields, ObjectFields(m.Value)...)
		}
	case jsonv.KindArray:
		for _, item := range tree.Items() {
			fields = append(fields, ObjectFields(item)...)
		}
	}
	return fields
}
