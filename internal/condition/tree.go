package condition

import (
	"fmt"
	"sort"

	"github.com/HendryAvila/deepframe/internal/widget"
)

// DefaultMaxConditions caps the leaves of one widget's condition tree.
const DefaultMaxConditions = 10

// Invert returns n with its invert flag toggled.
func Invert(n widget.Node) widget.Node {
	n.Invert = !n.Invert
	return n
}

// References returns the distinct widget clientIds referenced by the leaves
// of n, sorted.
func References(n widget.Node) []string {
	seen := make(map[string]bool)
	walk(n, func(c *widget.Condition) {
		seen[c.Key] = true
	})
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// CountLeaves returns the number of condition leaves in n.
func CountLeaves(n widget.Node) int {
	count := 0
	walk(n, func(*widget.Condition) { count++ })
	return count
}

func walk(n widget.Node, visit func(*widget.Condition)) {
	if n.IsLeaf() {
		visit(n.Condition)
		return
	}
	for _, child := range n.Children {
		walk(child, visit)
	}
}

// Prune removes every leaf that references key. A root leaf referencing key
// becomes an empty AND; inner conjunctions emptied by pruning are kept and
// fall back to their identity element. The bool reports whether anything
// was removed.
func Prune(n widget.Node, key string) (widget.Node, bool) {
	if n.IsLeaf() {
		if n.Condition.Key == key {
			return widget.Node{Conjunction: widget.ConjunctionAnd}, true
		}
		return n, false
	}
	return pruneChildren(n, key)
}

func pruneChildren(n widget.Node, key string) (widget.Node, bool) {
	changed := false
	kept := make([]widget.Node, 0, len(n.Children))
	for _, child := range n.Children {
		if child.IsLeaf() {
			if child.Condition.Key == key {
				changed = true
				continue
			}
			kept = append(kept, child)
			continue
		}
		next, c := pruneChildren(child, key)
		changed = changed || c
		kept = append(kept, next)
	}
	if !changed {
		return n, false
	}
	n.Children = kept
	return n, true
}

// Validate checks the structure of one widget's conditional: conjunctions,
// operators valid for the referenced widget's type, operands present and at
// most maxConditions leaves. Whether references exist and precede the widget
// is a document-level check made by the aggregator; leaves whose widget
// cannot be resolved are skipped here.
func Validate(widgetID string, c *widget.Conditional, resolve WidgetLookup, maxConditions int) []error {
	if c == nil {
		return nil
	}
	if maxConditions <= 0 {
		maxConditions = DefaultMaxConditions
	}
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, &widget.SchemaViolation{
			WidgetID: widgetID,
			Field:    "conditional",
			Reason:   fmt.Sprintf(format, args...),
		})
	}
	if n := CountLeaves(c.Tree); n > maxConditions {
		bad("%d conditions exceed the limit of %d", n, maxConditions)
	}
	var check func(n widget.Node)
	check = func(n widget.Node) {
		if !n.IsLeaf() {
			if n.Conjunction != "" {
				if err := widget.ValidateConjunction(n.Conjunction); err != nil {
					bad("%v", err)
				}
			}
			for _, child := range n.Children {
				check(child)
			}
			return
		}
		if len(n.Children) > 0 {
			bad("leaf condition on %q has children", n.Condition.Key)
		}
		validateLeaf(*n.Condition, resolve, bad)
	}
	check(c.Tree)
	return errs
}

func validateLeaf(c widget.Condition, resolve WidgetLookup, bad func(string, ...any)) {
	if c.Key == "" {
		bad("condition key is required")
		return
	}
	if err := widget.ValidateModifier(c.Modifier); err != nil {
		bad("%v", err)
	}
	if c.Operator == "" {
		bad("condition on %q has no operator", c.Key)
		return
	}
	if resolve != nil {
		if ref, ok := resolve(c.Key); ok {
			if err := widget.ValidateOperator(ref.Type, c.Operator); err != nil {
				bad("%v", err)
				return
			}
		}
	}
	switch {
	case c.Operator == widget.OpEmpty:
	case widget.IsSetOperator(c.Operator):
		if len(c.Operand) == 0 {
			bad("operator %q on %q needs an operand", c.Operator, c.Key)
		}
	default:
		if c.Value == "" {
			bad("operator %q on %q needs a value", c.Operator, c.Key)
		}
	}
}
