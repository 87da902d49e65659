// Package widget defines the analytical-framework schema model: the closed set
// of widget types, the typed configuration each type carries, and the
// Section/Framework documents that own widgets.
//
// Design principles (same as the rest of the module):
// - SRP: types, properties, conditionals, documents and drafts in separate files
// - closed enums: every switch over Type is exhaustive, unknown values are errors
// - no ambient state: documents are plain values passed to the aggregator
package widget

import (
	"fmt"
	"strings"
)

// --- Widget type enum ---

// Type is the closed enumeration of widget kinds. It is immutable after a
// widget has been created.
type Type string

const (
	TypeText         Type = "TEXT"
	TypeNumber       Type = "NUMBER"
	TypeDate         Type = "DATE"
	TypeDateRange    Type = "DATE_RANGE"
	TypeTime         Type = "TIME"
	TypeTimeRange    Type = "TIME_RANGE"
	TypeScale        Type = "SCALE"
	TypeSingleSelect Type = "SINGLE_SELECT"
	TypeMultiSelect  Type = "MULTI_SELECT"
	TypeMatrix1D     Type = "MATRIX_1D"
	TypeMatrix2D     Type = "MATRIX_2D"
	TypeOrganigram   Type = "ORGANIGRAM"
	TypeGeo          Type = "GEO"
	TypeConditional  Type = "CONDITIONAL"
)

// Types lists every widget type in canonical order. Registries and schema
// tables are checked against this list.
var Types = []Type{
	TypeText,
	TypeNumber,
	TypeDate,
	TypeDateRange,
	TypeTime,
	TypeTimeRange,
	TypeScale,
	TypeSingleSelect,
	TypeMultiSelect,
	TypeMatrix1D,
	TypeMatrix2D,
	TypeOrganigram,
	TypeGeo,
	TypeConditional,
}

// validTypes is the set of allowed widget types.
var validTypes = func() map[Type]bool {
	m := make(map[Type]bool, len(Types))
	for _, t := range Types {
		m[t] = true
	}
	return m
}()

// ValidateType returns an error if the type is not recognized.
func ValidateType(t Type) error {
	if !validTypes[t] {
		return fmt.Errorf("invalid widget type %q: must be one of: %s", t, typeList())
	}
	return nil
}

// TypeValues returns the string form of every widget type, for enum
// declarations in tool schemas.
func TypeValues() []string {
	out := make([]string, len(Types))
	for i, t := range Types {
		out[i] = string(t)
	}
	return out
}

func typeList() string {
	return strings.Join(TypeValues(), ", ")
}

// --- Width enum ---

// Width is a presentation-only layout hint.
type Width string

const (
	WidthHalf Width = "HALF"
	WidthFull Width = "FULL"
)

// ValidateWidth returns an error if the width is not recognized. The empty
// width is accepted and normalised to FULL by drafts.
func ValidateWidth(w Width) error {
	switch w {
	case WidthHalf, WidthFull:
		return nil
	}
	return fmt.Errorf("invalid widget width %q: must be one of: HALF, FULL", w)
}
