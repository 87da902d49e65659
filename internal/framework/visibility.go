package framework

import (
	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/condition"
	"github.com/HendryAvila/deepframe/internal/widget"
)

// EntryLookup resolves condition keys against one entry's attributes.
// Top-level widgets read from set; nested widgets read from the
// ConditionalData of their CONDITIONAL parent, at any depth.
func EntryLookup(f *widget.Framework, set attribute.Set) condition.Lookup {
	parents := make(map[string]string)
	for _, p := range f.DocumentOrder() {
		if p.Location.ParentID != "" {
			parents[p.Widget.ClientID] = p.Location.ParentID
		}
	}
	var lookup condition.Lookup
	lookup = func(id string) (attribute.Attribute, bool) {
		parentID, nested := parents[id]
		if !nested {
			return set.Lookup(id)
		}
		parent, ok := lookup(parentID)
		if !ok {
			return attribute.Attribute{}, false
		}
		data, ok := parent.Data.(attribute.ConditionalData)
		if !ok {
			return attribute.Attribute{}, false
		}
		a, ok := data.Value[id]
		return a, ok && a.Data != nil
	}
	return lookup
}

// Visible evaluates every widget's conditional against an entry and
// returns the visibility of each clientId. Widgets without a conditional
// are visible; nested widgets are hidden whenever their parent is.
func Visible(f *widget.Framework, set attribute.Set, e *condition.Evaluator) map[string]bool {
	if e == nil {
		e = condition.NewEvaluator(condition.WithWidgets(condition.ForFramework(f)))
	}
	lookup := EntryLookup(f, set)
	out := make(map[string]bool)
	for _, p := range f.DocumentOrder() {
		w := p.Widget
		visible := true
		if p.Location.ParentID != "" && !out[p.Location.ParentID] {
			visible = false
		} else if w.Conditional != nil {
			visible = e.Evaluate(w.Conditional.Tree, lookup)
		}
		out[w.ClientID] = visible
	}
	return out
}
