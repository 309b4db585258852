package lineage

import (
	"errors"
	"fmt"
	"strings"
)

// IdentityScheme names how a graph identifies measures.
type IdentityScheme int

const (
	// SchemeBare identifies a measure by its name alone (TSV exports).
	SchemeBare IdentityScheme = iota
	// SchemeQualified identifies a measure as Table[Measure] (model documents).
	SchemeQualified
)

func (s IdentityScheme) String() string {
	if s == SchemeQualified {
		return "qualified"
	}
	return "bare"
}

// Identity conversion errors.
var (
	ErrUnknownIdentity   = errors.New("measure not found in model")
	ErrAmbiguousIdentity = errors.New("measure name is defined in more than one table")
)

// MeasureIdentity is a measure reference tagged with its scheme.
//
// Conversion rules:
//   - qualified -> bare drops the table and always succeeds. Two measures of
//     different tables with the same name become indistinguishable.
//   - bare -> qualified looks the name up in a TableIndex built from the
//     model and fails when the name is unknown or defined in several tables.
type MeasureIdentity struct {
	Scheme IdentityScheme
	Table  string
	Name   string
}

// Bare returns the bare identity for name.
func Bare(name string) MeasureIdentity {
	return MeasureIdentity{Scheme: SchemeBare, Name: name}
}

// Qualified returns the Table[Measure] identity.
func Qualified(table, name string) MeasureIdentity {
	return MeasureIdentity{Scheme: SchemeQualified, Table: table, Name: name}
}

// ParseIdentity reads s as Table[Measure] when it ends with a bracketed
// name, and as a bare name otherwise.
func ParseIdentity(s string) MeasureIdentity {
	if strings.HasSuffix(s, "]") {
		if open := strings.LastIndex(s, "["); open >= 0 {
			table := strings.Trim(s[:open], "'")
			return Qualified(table, s[open+1:len(s)-1])
		}
	}
	return Bare(s)
}

// String renders the identity in its scheme's node ID form.
func (id MeasureIdentity) String() string {
	if id.Scheme == SchemeQualified {
		return id.Table + "[" + id.Name + "]"
	}
	return id.Name
}

// ToBare converts the identity to the bare scheme.
func (id MeasureIdentity) ToBare() MeasureIdentity {
	return Bare(id.Name)
}

// ToQualified converts the identity to the qualified scheme using index.
func (id MeasureIdentity) ToQualified(index TableIndex) (MeasureIdentity, error) {
	if id.Scheme == SchemeQualified {
		return id, nil
	}
	tables := index[id.Name]
	switch len(tables) {
	case 0:
		return MeasureIdentity{}, fmt.Errorf("%w: %s", ErrUnknownIdentity, id.Name)
	case 1:
		return Qualified(tables[0], id.Name), nil
	default:
		return MeasureIdentity{}, fmt.Errorf("%w: %s (%s)", ErrAmbiguousIdentity, id.Name, strings.Join(tables, ", "))
	}
}

// In converts the identity to the given scheme.
func (id MeasureIdentity) In(scheme IdentityScheme, index TableIndex) (MeasureIdentity, error) {
	if scheme == SchemeBare {
		return id.ToBare(), nil
	}
	return id.ToQualified(index)
}

// TableIndex maps a bare measure name to the tables defining it.
type TableIndex map[string][]string

// Add records that table defines a measure called name.
func (ix TableIndex) Add(table, name string) {
	for _, t := range ix[name] {
		if t == table {
			return
		}
	}
	ix[name] = append(ix[name], table)
}
