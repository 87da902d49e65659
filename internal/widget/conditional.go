package widget

import (
	"encoding/json"
	"fmt"
)

// --- Condition operator enum ---

// Operator names the comparison a condition leaf performs against the
// attribute of the widget it references.
type Operator string

const (
	OpEmpty Operator = "empty"

	OpNumberGreaterThan Operator = "number-greater-than"
	OpNumberLessThan    Operator = "number-less-than"
	OpNumberEqualTo     Operator = "number-equal-to"

	OpTextStartsWith Operator = "text-starts-with"
	OpTextEndsWith   Operator = "text-ends-with"
	OpTextContains   Operator = "text-contains"

	OpDateAfter   Operator = "date-after"
	OpDateBefore  Operator = "date-before"
	OpDateEqualTo Operator = "date-equal-to"

	OpTimeAfter   Operator = "time-after"
	OpTimeBefore  Operator = "time-before"
	OpTimeEqualTo Operator = "time-equal-to"

	OpDateRangeAfter    Operator = "date-range-after"
	OpDateRangeBefore   Operator = "date-range-before"
	OpDateRangeIncludes Operator = "date-range-includes"

	OpTimeRangeAfter    Operator = "time-range-after"
	OpTimeRangeBefore   Operator = "time-range-before"
	OpTimeRangeIncludes Operator = "time-range-includes"

	OpSingleSelectSelected Operator = "single-selection-selected"
	OpMultiSelectMatches   Operator = "multi-select-matches"

	OpScaleSelected Operator = "scale-selected"
	OpScaleMoreThan Operator = "scale-more-than"
	OpScaleLessThan Operator = "scale-less-than"

	OpOrganigramSelected           Operator = "organigram-selected"
	OpOrganigramDescendentSelected Operator = "organigram-descendent-selected"

	OpMatrix1DRowsSelected  Operator = "matrix1d-rows-selected"
	OpMatrix1DCellsSelected Operator = "matrix1d-cells-selected"

	OpMatrix2DRowsSelected       Operator = "matrix2d-rows-selected"
	OpMatrix2DColumnsSelected    Operator = "matrix2d-columns-selected"
	OpMatrix2DSubRowsSelected    Operator = "matrix2d-sub-rows-selected"
	OpMatrix2DSubColumnsSelected Operator = "matrix2d-sub-columns-selected"

	OpGeoSelected Operator = "geo-selected"
)

// operatorAliases maps legacy operator names onto their canonical form.
var operatorAliases = map[Operator]Operator{
	"multi-selection-selected": OpMultiSelectMatches,
}

// UnmarshalJSON decodes an operator, normalising legacy aliases.
func (o *Operator) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	op := Operator(s)
	if canonical, ok := operatorAliases[op]; ok {
		op = canonical
	}
	*o = op
	return nil
}

// operatorsByType lists the operators valid against an attribute of each
// widget type. CONDITIONAL widgets can only be tested for emptiness.
var operatorsByType = map[Type][]Operator{
	TypeText:         {OpEmpty, OpTextStartsWith, OpTextEndsWith, OpTextContains},
	TypeNumber:       {OpEmpty, OpNumberGreaterThan, OpNumberLessThan, OpNumberEqualTo},
	TypeDate:         {OpEmpty, OpDateAfter, OpDateBefore, OpDateEqualTo},
	TypeDateRange:    {OpEmpty, OpDateRangeAfter, OpDateRangeBefore, OpDateRangeIncludes},
	TypeTime:         {OpEmpty, OpTimeAfter, OpTimeBefore, OpTimeEqualTo},
	TypeTimeRange:    {OpEmpty, OpTimeRangeAfter, OpTimeRangeBefore, OpTimeRangeIncludes},
	TypeScale:        {OpEmpty, OpScaleSelected, OpScaleMoreThan, OpScaleLessThan},
	TypeSingleSelect: {OpEmpty, OpSingleSelectSelected},
	TypeMultiSelect:  {OpEmpty, OpMultiSelectMatches},
	TypeMatrix1D:     {OpEmpty, OpMatrix1DRowsSelected, OpMatrix1DCellsSelected},
	TypeMatrix2D: {
		OpEmpty, OpMatrix2DRowsSelected, OpMatrix2DColumnsSelected,
		OpMatrix2DSubRowsSelected, OpMatrix2DSubColumnsSelected,
	},
	TypeOrganigram:  {OpEmpty, OpOrganigramSelected, OpOrganigramDescendentSelected},
	TypeGeo:         {OpEmpty, OpGeoSelected},
	TypeConditional: {OpEmpty},
}

// setOperators compare the attribute's value set against a key operand
// and honour the operator modifier.
var setOperators = map[Operator]bool{
	OpSingleSelectSelected:         true,
	OpMultiSelectMatches:           true,
	OpScaleSelected:                true,
	OpOrganigramSelected:           true,
	OpOrganigramDescendentSelected: true,
	OpMatrix1DRowsSelected:         true,
	OpMatrix1DCellsSelected:        true,
	OpMatrix2DRowsSelected:         true,
	OpMatrix2DColumnsSelected:      true,
	OpMatrix2DSubRowsSelected:      true,
	OpMatrix2DSubColumnsSelected:   true,
	OpGeoSelected:                  true,
}

// OperatorsFor returns the operators valid for conditions on a widget of type t.
func OperatorsFor(t Type) []Operator {
	ops := operatorsByType[t]
	out := make([]Operator, len(ops))
	copy(out, ops)
	return out
}

// ValidateOperator returns an error if op cannot be applied to widgets of type t.
func ValidateOperator(t Type, op Operator) error {
	for _, candidate := range operatorsByType[t] {
		if candidate == op {
			return nil
		}
	}
	return fmt.Errorf("operator %q is not valid for %s widgets", op, t)
}

// IsSetOperator reports whether op compares key sets (and so uses a modifier).
func IsSetOperator(op Operator) bool {
	return setOperators[op]
}

// --- Modifier and conjunction enums ---

// Modifier quantifies how a set-valued attribute is compared with a
// condition's operand.
type Modifier string

const (
	ModifierEvery Modifier = "EVERY"
	ModifierSome  Modifier = "SOME"
)

// DefaultModifier applies when a set condition leaves the modifier unset.
const DefaultModifier = ModifierEvery

// ValidateModifier returns an error for anything but EVERY, SOME or unset.
func ValidateModifier(m Modifier) error {
	switch m {
	case "", ModifierEvery, ModifierSome:
		return nil
	}
	return fmt.Errorf("invalid operator modifier %q: must be one of: EVERY, SOME", m)
}

// Conjunction combines the children of an inner node.
type Conjunction string

const (
	ConjunctionAnd Conjunction = "AND"
	ConjunctionOr  Conjunction = "OR"
	ConjunctionXor Conjunction = "XOR"
)

// ValidateConjunction returns an error if c is not a known conjunction.
func ValidateConjunction(c Conjunction) error {
	switch c {
	case ConjunctionAnd, ConjunctionOr, ConjunctionXor:
		return nil
	}
	return fmt.Errorf("invalid conjunction %q: must be one of: AND, OR, XOR", c)
}

// --- Condition tree ---

// Condition is a leaf test against the attribute of the widget whose
// clientId is Key. Set operators read Operand; scalar operators read Value.
type Condition struct {
	Key      string   `json:"key"`
	Operator Operator `json:"operator"`
	Modifier Modifier `json:"operatorModifier,omitempty"`
	Operand  []string `json:"operand,omitempty"`
	Value    string   `json:"value,omitempty"`
}

// EffectiveModifier returns the modifier, defaulting to EVERY when unset.
func (c Condition) EffectiveModifier() Modifier {
	if c.Modifier == "" {
		return DefaultModifier
	}
	return c.Modifier
}

// Node is either a leaf (Condition set) or a conjunction over Children.
// Invert negates the node's result.
type Node struct {
	Conjunction Conjunction `json:"conjunction,omitempty"`
	Children    []Node      `json:"children,omitempty"`
	Condition   *Condition  `json:"condition,omitempty"`
	Invert      bool        `json:"invert,omitempty"`
}

// IsLeaf reports whether n carries a condition rather than children.
func (n Node) IsLeaf() bool {
	return n.Condition != nil
}

// Leaf builds a leaf node.
func Leaf(c Condition) Node {
	return Node{Condition: &c}
}

// And builds an AND conjunction.
func And(children ...Node) Node {
	return Node{Conjunction: ConjunctionAnd, Children: children}
}

// Or builds an OR conjunction.
func Or(children ...Node) Node {
	return Node{Conjunction: ConjunctionOr, Children: children}
}

// Conditional attaches a condition tree to a widget. Parents lists the
// clientIds the tree depends on; the aggregator keeps it in sync with the
// tree's leaves.
type Conditional struct {
	Parents []string `json:"parentWidgets"`
	Tree    Node     `json:"conditions"`
}
