// Package condition evaluates widget condition trees against the
// attributes collected on an entry, and provides the tree utilities the
// aggregator needs (reference listing, pruning, structural validation).
//
// Evaluation is pure: leaves have no side effects, so conjunctions
// short-circuit freely.
package condition

import (
	"strconv"
	"strings"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/widget"
	"go.uber.org/zap"
)

// Lookup returns the attribute collected for the widget with the given
// clientId, or false when the entry has none.
type Lookup func(widgetID string) (attribute.Attribute, bool)

// WidgetLookup resolves a clientId to its widget definition. Operators that
// depend on option layout (organigram descendants, scale ordering) need it.
type WidgetLookup func(widgetID string) (*widget.Widget, bool)

// Evaluator evaluates condition trees. The zero value is not usable; build
// one with NewEvaluator.
type Evaluator struct {
	log     *zap.Logger
	widgets WidgetLookup
}

// Option configures an Evaluator.
type Option func(*Evaluator)

// WithWidgets supplies widget definitions for layout-aware operators.
func WithWidgets(fn WidgetLookup) Option {
	return func(e *Evaluator) { e.widgets = fn }
}

// WithLogger sets the logger used for missing-attribute diagnostics.
func WithLogger(log *zap.Logger) Option {
	return func(e *Evaluator) {
		if log != nil {
			e.log = log
		}
	}
}

// NewEvaluator creates an Evaluator.
func NewEvaluator(opts ...Option) *Evaluator {
	e := &Evaluator{log: zap.NewNop()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Evaluate reports whether tree is satisfied by the attributes lookup
// returns. It is a convenience for an Evaluator without widget definitions.
func Evaluate(tree widget.Node, lookup Lookup) bool {
	return NewEvaluator().Evaluate(tree, lookup)
}

// ForFramework builds a WidgetLookup over every widget in f.
func ForFramework(f *widget.Framework) WidgetLookup {
	index := make(map[string]*widget.Widget)
	for _, p := range f.DocumentOrder() {
		index[p.Widget.ClientID] = p.Widget
	}
	return func(id string) (*widget.Widget, bool) {
		w, ok := index[id]
		return w, ok
	}
}

// Evaluate reports whether tree is satisfied by the attributes lookup returns.
func (e *Evaluator) Evaluate(tree widget.Node, lookup Lookup) bool {
	result := e.node(tree, lookup)
	if tree.Invert {
		return !result
	}
	return result
}

func (e *Evaluator) node(n widget.Node, lookup Lookup) bool {
	if n.IsLeaf() {
		return e.leaf(*n.Condition, lookup)
	}
	switch n.Conjunction {
	case widget.ConjunctionOr:
		for _, child := range n.Children {
			if e.Evaluate(child, lookup) {
				return true
			}
		}
		return false
	case widget.ConjunctionXor:
		odd := false
		for _, child := range n.Children {
			if e.Evaluate(child, lookup) {
				odd = !odd
			}
		}
		return odd
	default:
		// AND, and the unset conjunction of a bare node.
		for _, child := range n.Children {
			if !e.Evaluate(child, lookup) {
				return false
			}
		}
		return true
	}
}

func (e *Evaluator) leaf(c widget.Condition, lookup Lookup) bool {
	attr, ok := lookup(c.Key)
	if !ok || attr.Data == nil {
		e.log.Debug("condition references widget without attribute",
			zap.String("widget", c.Key),
			zap.String("operator", string(c.Operator)),
			zap.Error(widget.ErrMissingAttribute))
		return false
	}
	if c.Operator == widget.OpEmpty {
		return attr.Data.Empty()
	}
	if widget.IsSetOperator(c.Operator) {
		values, ok := e.valueSet(c, attr.Data)
		if !ok {
			return false
		}
		return matchSet(values, c.Operand, c.EffectiveModifier())
	}
	return e.scalar(c, attr.Data)
}

// valueSet extracts the key set an operator compares against. The bool is
// false when the data shape does not fit the operator.
func (e *Evaluator) valueSet(c widget.Condition, data attribute.Data) ([]string, bool) {
	switch d := data.(type) {
	case attribute.SingleSelectData:
		return d.Selected(), c.Operator == widget.OpSingleSelectSelected
	case attribute.MultiSelectData:
		return d.Value, c.Operator == widget.OpMultiSelectMatches
	case attribute.ScaleData:
		return d.Selected(), c.Operator == widget.OpScaleSelected
	case attribute.GeoData:
		return d.Value, c.Operator == widget.OpGeoSelected
	case attribute.OrganigramData:
		switch c.Operator {
		case widget.OpOrganigramSelected:
			return d.Value, true
		case widget.OpOrganigramDescendentSelected:
			return e.withAncestors(c.Key, d.Value), true
		}
	case attribute.Matrix1DData:
		switch c.Operator {
		case widget.OpMatrix1DRowsSelected:
			return d.SelectedRows(), true
		case widget.OpMatrix1DCellsSelected:
			return d.SelectedCells(), true
		}
	case attribute.Matrix2DData:
		switch c.Operator {
		case widget.OpMatrix2DRowsSelected:
			return d.SelectedRows(), true
		case widget.OpMatrix2DSubRowsSelected:
			return d.SelectedSubRows(), true
		case widget.OpMatrix2DColumnsSelected:
			return d.SelectedColumns(), true
		case widget.OpMatrix2DSubColumnsSelected:
			return d.SelectedSubColumns(), true
		}
	}
	return nil, false
}

// withAncestors extends an organigram selection with every ancestor of each
// selected node, so an operand node counts as matched when it or any of its
// descendants is selected.
func (e *Evaluator) withAncestors(widgetID string, selected []string) []string {
	if e.widgets == nil {
		return selected
	}
	w, ok := e.widgets(widgetID)
	if !ok {
		return selected
	}
	p, _ := w.Properties.(*widget.OrganigramProperties)
	if p == nil || p.Options == nil {
		return selected
	}
	picked := make(map[string]bool, len(selected))
	for _, k := range selected {
		picked[k] = true
	}
	out := append([]string(nil), selected...)
	var walk func(n *widget.OrganigramNode) bool
	walk = func(n *widget.OrganigramNode) bool {
		hit := picked[n.Key]
		for i := range n.Children {
			if walk(&n.Children[i]) {
				hit = true
			}
		}
		if hit && !picked[n.Key] {
			out = append(out, n.Key)
		}
		return hit
	}
	walk(p.Options)
	return out
}

// matchSet compares an attribute's value set against the operand by key
// equality. EVERY needs all operand keys present, SOME at least one.
// An empty operand never matches.
func matchSet(values, operand []string, modifier widget.Modifier) bool {
	if len(operand) == 0 {
		return false
	}
	have := make(map[string]bool, len(values))
	for _, v := range values {
		have[v] = true
	}
	if modifier == widget.ModifierSome {
		for _, k := range operand {
			if have[k] {
				return true
			}
		}
		return false
	}
	for _, k := range operand {
		if !have[k] {
			return false
		}
	}
	return true
}

func (e *Evaluator) scalar(c widget.Condition, data attribute.Data) bool {
	switch d := data.(type) {
	case attribute.NumberData:
		want, err := strconv.ParseFloat(c.Value, 64)
		if err != nil {
			return false
		}
		switch c.Operator {
		case widget.OpNumberGreaterThan:
			return d.Value > want
		case widget.OpNumberLessThan:
			return d.Value < want
		case widget.OpNumberEqualTo:
			return d.Value == want
		}
	case attribute.TextData:
		have, want := strings.ToLower(d.Value), strings.ToLower(c.Value)
		switch c.Operator {
		case widget.OpTextStartsWith:
			return strings.HasPrefix(have, want)
		case widget.OpTextEndsWith:
			return strings.HasSuffix(have, want)
		case widget.OpTextContains:
			return strings.Contains(have, want)
		}
	case attribute.DateData:
		return compareInstant(c.Operator, d.Value, c.Value, widget.ParseDate,
			widget.OpDateAfter, widget.OpDateBefore, widget.OpDateEqualTo)
	case attribute.TimeData:
		return compareInstant(c.Operator, d.Value, c.Value, widget.ParseTime,
			widget.OpTimeAfter, widget.OpTimeBefore, widget.OpTimeEqualTo)
	case attribute.DateRangeData:
		return compareRange(c.Operator, d.Value.StartDate, d.Value.EndDate, c.Value, widget.ParseDate,
			widget.OpDateRangeAfter, widget.OpDateRangeBefore, widget.OpDateRangeIncludes)
	case attribute.TimeRangeData:
		return compareRange(c.Operator, d.Value.StartTime, d.Value.EndTime, c.Value, widget.ParseTime,
			widget.OpTimeRangeAfter, widget.OpTimeRangeBefore, widget.OpTimeRangeIncludes)
	case attribute.ScaleData:
		return e.compareScale(c, d)
	}
	return false
}
