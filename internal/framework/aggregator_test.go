package framework

import (
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/condition"
	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- helpers ---

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	n := 0
	return New(&widget.Framework{ID: "fw-test", Title: "Test"}, WithIDs(func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}))
}

func ptr[T any](v T) *T { return &v }

func textDraft(id, title string) widget.Draft {
	return widget.Draft{ClientID: id, Type: widget.TypeText, Title: ptr(title)}
}

func multiDraft(id string) widget.Draft {
	return widget.Draft{
		ClientID: id,
		Type:     widget.TypeMultiSelect,
		Title:    ptr("Sectors " + id),
		Properties: &widget.MultiSelectProperties{Options: []widget.Option{
			{Key: "a", Label: "A"}, {Key: "b", Label: "B"}, {Key: "c", Label: "C"},
		}},
	}
}

func matchesLeaf(key string, mod widget.Modifier, operand ...string) widget.Node {
	return widget.Leaf(widget.Condition{Key: key, Operator: widget.OpMultiSelectMatches, Modifier: mod, Operand: operand})
}

func withCondition(d widget.Draft, tree widget.Node) widget.Draft {
	d.Conditional = &widget.Conditional{Tree: tree}
	return d
}

func snapshot(t *testing.T, a *Aggregator) *widget.Framework {
	t.Helper()
	f, err := a.Snapshot()
	require.NoError(t, err)
	return f
}

func ordersOf(ws []widget.Widget) map[string]int {
	out := make(map[string]int, len(ws))
	for _, w := range ws {
		out[w.ClientID] = w.Order
	}
	return out
}

func assertStrictOrders(t *testing.T, f *widget.Framework) {
	t.Helper()
	_, ok := distinctOrders(f.Sections, sectionOrder)
	assert.True(t, ok, "section orders clash")
	for _, s := range f.Sections {
		_, ok := distinctOrders(s.Widgets, widgetOrder)
		assert.True(t, ok, "orders clash in section %s", s.ClientID)
	}
	_, ok = distinctOrders(f.Widgets, widgetOrder)
	assert.True(t, ok, "orders clash in secondary widgets")
	for _, p := range f.DocumentOrder() {
		if kids := p.Widget.Children(); kids != nil {
			_, ok := distinctOrders(kids, widgetOrder)
			assert.True(t, ok, "orders clash under %s", p.Widget.ClientID)
		}
	}
}

// --- Sections ---

func TestAddSection(t *testing.T) {
	a := newTestAggregator(t)

	s1, err := a.AddSection(widget.SectionDraft{Title: ptr("Context")})
	require.NoError(t, err)
	s2, err := a.AddSection(widget.SectionDraft{ClientID: "needs", Title: ptr("Needs")})
	require.NoError(t, err)

	assert.Equal(t, "gen-1", s1.ClientID)
	assert.Equal(t, 0, s1.Order)
	assert.Equal(t, "needs", s2.ClientID)
	assert.Equal(t, 1, s2.Order)

	_, err = a.AddSection(widget.SectionDraft{ClientID: "needs", Title: ptr("Again")})
	var dup *widget.DuplicateKeyError
	assert.True(t, errors.As(err, &dup))

	_, err = a.AddSection(widget.SectionDraft{})
	assert.Error(t, err, "title is required")
}

func TestReorderSection(t *testing.T) {
	a := newTestAggregator(t)
	for _, id := range []string{"s1", "s2", "s3"} {
		_, err := a.AddSection(widget.SectionDraft{ClientID: id, Title: ptr(id)})
		require.NoError(t, err)
	}
	require.NoError(t, a.ReorderSection("s3", 0))

	f := snapshot(t, a)
	got := map[string]int{}
	for _, s := range f.Sections {
		got[s.ClientID] = s.Order
	}
	assert.Equal(t, map[string]int{"s3": 0, "s1": 1, "s2": 2}, got)

	assert.ErrorIs(t, a.ReorderSection("nope", 0), ErrNotFound)
	assert.Error(t, a.ReorderSection("s1", -1))
}

func TestDeleteSection_CascadesAndPrunes(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddSection(widget.SectionDraft{ClientID: "s1", Title: ptr("One")})
	require.NoError(t, err)
	_, err = a.AddWidget("s1", multiDraft("w1"))
	require.NoError(t, err)
	_, err = a.AddWidget("", withCondition(textDraft("w2", "Follow-up"), matchesLeaf("w1", "", "a")))
	require.NoError(t, err)

	pruned, err := a.DeleteSection("s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"w2"}, pruned)

	f := snapshot(t, a)
	assert.Empty(t, f.Sections)
	_, found := f.Find("w1")
	assert.False(t, found)
	w2, _ := f.Find("w2")
	assert.Empty(t, condition.References(w2.Widget.Conditional.Tree))
	assert.Empty(t, w2.Widget.Conditional.Parents)

	_, err = a.DeleteSection("s1")
	assert.ErrorIs(t, err, ErrNotFound)
}

// --- Adding and updating widgets ---

func TestAddWidget_AssignsIDAndOrder(t *testing.T) {
	a := newTestAggregator(t)

	w1, err := a.AddWidget("", widget.Draft{Type: widget.TypeNumber, Title: ptr("Count")})
	require.NoError(t, err)
	assert.Equal(t, "gen-1", w1.ClientID)
	assert.Equal(t, 0, w1.Order)
	assert.Equal(t, widget.WidthFull, w1.Width)

	require.NoError(t, a.ReorderWidget(w1.ClientID, 7))
	w2, err := a.AddWidget("", textDraft("", "Notes"))
	require.NoError(t, err)
	assert.Equal(t, 8, w2.Order)
}

func TestAddWidget_Rejections(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", textDraft("w1", "One"))
	require.NoError(t, err)
	before := snapshot(t, a)

	_, err = a.AddWidget("", textDraft("w1", "Dup"))
	var dup *widget.DuplicateKeyError
	assert.True(t, errors.As(err, &dup), "duplicate clientId: %v", err)

	_, err = a.AddWidget("missing", textDraft("w9", "Orphan"))
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = a.AddWidget("", widget.Draft{Title: ptr("No type")})
	var sv *widget.SchemaViolation
	assert.True(t, errors.As(err, &sv))

	_, err = a.AddWidget("", withCondition(textDraft("w3", "Self"), matchesLeaf("w3", "", "a")))
	var ref *widget.ReferentialIntegrityError
	assert.True(t, errors.As(err, &ref), "self reference: %v", err)

	if diff := cmp.Diff(before, snapshot(t, a)); diff != "" {
		t.Errorf("rejected edits changed the document (-before +after):\n%s", diff)
	}
}

func TestAddWidget_RejectsDuplicateKey(t *testing.T) {
	a := newTestAggregator(t)
	d1 := textDraft("w1", "One")
	d1.Key = ptr("shared")
	_, err := a.AddWidget("", d1)
	require.NoError(t, err)
	_, err = a.AddWidget("", multiDraft("cond-parent"))
	require.NoError(t, err)
	before := snapshot(t, a)

	d2 := textDraft("w2", "Two")
	d2.Key = ptr("shared")
	_, err = a.AddWidget("", d2)
	var dup *widget.DuplicateKeyError
	require.True(t, errors.As(err, &dup), "duplicate key: %v", err)
	assert.Equal(t, "shared", dup.Key)

	_, err = a.UpdateWidget("cond-parent", widget.Draft{Key: ptr("shared")})
	assert.True(t, errors.As(err, &dup), "update onto a taken key: %v", err)

	if diff := cmp.Diff(before, snapshot(t, a)); diff != "" {
		t.Errorf("rejected edits changed the document (-before +after):\n%s", diff)
	}
	assert.True(t, a.Validate().OK())

	d3 := textDraft("w3", "Three")
	d3.Key = ptr("other")
	_, err = a.AddWidget("", d3)
	assert.NoError(t, err, "distinct keys are accepted")
}

func TestValidate_DuplicateKeyInDocument(t *testing.T) {
	f := &widget.Framework{ID: "f", Title: "F", Widgets: []widget.Widget{
		{ClientID: "a", Key: "k", Type: widget.TypeText, Title: "A", Order: 0, Properties: &widget.TextProperties{}},
		{ClientID: "b", Key: "k", Type: widget.TypeText, Title: "B", Order: 1, Properties: &widget.TextProperties{}},
		{ClientID: "c", Type: widget.TypeText, Title: "C", Order: 2, Properties: &widget.TextProperties{}},
		{ClientID: "d", Type: widget.TypeText, Title: "D", Order: 3, Properties: &widget.TextProperties{}},
	}}
	report := Validate(f, 0)
	require.Len(t, report.FrameworkErrors, 1, "empty keys never clash")
	var dup *widget.DuplicateKeyError
	require.True(t, errors.As(report.FrameworkErrors[0], &dup))
	assert.Equal(t, "k", dup.Key)
}

func TestUpdateWidget(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", multiDraft("w1"))
	require.NoError(t, err)
	_, err = a.AddWidget("", textDraft("w2", "Old"))
	require.NoError(t, err)

	w, err := a.UpdateWidget("w2", withCondition(widget.Draft{Title: ptr("New"), Width: ptr(widget.WidthHalf)},
		matchesLeaf("w1", widget.ModifierSome, "a")))
	require.NoError(t, err)
	assert.Equal(t, "New", w.Title)
	assert.Equal(t, widget.WidthHalf, w.Width)

	f := snapshot(t, a)
	got, _ := f.Find("w2")
	assert.Equal(t, []string{"w1"}, got.Widget.Conditional.Parents)

	_, err = a.UpdateWidget("w2", widget.Draft{Type: widget.TypeNumber})
	var sv *widget.SchemaViolation
	assert.True(t, errors.As(err, &sv), "type change: %v", err)

	_, err = a.UpdateWidget("w2", widget.Draft{DropConditional: true})
	require.NoError(t, err)
	f = snapshot(t, a)
	got, _ = f.Find("w2")
	assert.Nil(t, got.Widget.Conditional)

	_, err = a.UpdateWidget("ghost", widget.Draft{Title: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateWidget_RejectsForwardReference(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", textDraft("w1", "First"))
	require.NoError(t, err)
	_, err = a.AddWidget("", multiDraft("w2"))
	require.NoError(t, err)
	before := snapshot(t, a)

	_, err = a.UpdateWidget("w1", withCondition(widget.Draft{}, matchesLeaf("w2", "", "a")))
	var ref *widget.ReferentialIntegrityError
	require.True(t, errors.As(err, &ref), "got %v", err)
	assert.Equal(t, "w1", ref.WidgetID)
	assert.Equal(t, "w2", ref.Key)

	_, err = a.UpdateWidget("w1", withCondition(widget.Draft{}, matchesLeaf("ghost", "", "a")))
	require.True(t, errors.As(err, &ref), "got %v", err)

	if diff := cmp.Diff(before, snapshot(t, a)); diff != "" {
		t.Errorf("rejected edit changed the document (-before +after):\n%s", diff)
	}
}

func TestUpdateWidget_ConditionLimit(t *testing.T) {
	a := New(&widget.Framework{ID: "fw"}, WithMaxConditions(2))
	_, err := a.AddWidget("", multiDraft("w1"))
	require.NoError(t, err)

	tree := widget.And(matchesLeaf("w1", "", "a"), matchesLeaf("w1", "", "b"), matchesLeaf("w1", "", "c"))
	_, err = a.AddWidget("", withCondition(textDraft("w2", "Too many"), tree))
	assert.Error(t, err)
}

func TestNestedWidgets(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", multiDraft("w1"))
	require.NoError(t, err)
	_, err = a.AddWidget("", widget.Draft{ClientID: "c", Type: widget.TypeConditional, Title: ptr("Details")})
	require.NoError(t, err)

	n1, err := a.AddNestedWidget("c", withCondition(textDraft("n1", "Why"), matchesLeaf("w1", "", "a")))
	require.NoError(t, err)
	assert.Equal(t, 0, n1.Order)
	n2, err := a.AddNestedWidget("c", textDraft("n2", "How"))
	require.NoError(t, err)
	assert.Equal(t, 1, n2.Order)

	_, err = a.AddNestedWidget("w1", textDraft("n3", "Wrong parent"))
	assert.Error(t, err)

	_, err = a.AddNestedWidget("c", widget.Draft{ClientID: "cc", Type: widget.TypeConditional, Title: ptr("Deeper")})
	assert.Error(t, err, "conditionals do not nest")

	require.NoError(t, a.ReorderWidget("n2", 0))
	f := snapshot(t, a)
	parent, _ := f.Find("c")
	assert.Equal(t, map[string]int{"n2": 0, "n1": 1}, ordersOf(parent.Widget.Children()))

	pruned, err := a.DeleteWidget("c")
	require.NoError(t, err)
	assert.Empty(t, pruned)
	f = snapshot(t, a)
	_, found := f.Find("n1")
	assert.False(t, found)
}

// --- Deleting widgets ---

func TestDeleteWidget_PrunesReferences(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", multiDraft("w1"))
	require.NoError(t, err)
	_, err = a.AddWidget("", multiDraft("w2"))
	require.NoError(t, err)
	tree := widget.Or(matchesLeaf("w1", "", "a"), widget.And(matchesLeaf("w1", "", "b"), matchesLeaf("w2", "", "c")))
	_, err = a.AddWidget("", withCondition(textDraft("w3", "Dependent"), tree))
	require.NoError(t, err)

	pruned, err := a.DeleteWidget("w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"w3"}, pruned)

	f := snapshot(t, a)
	for _, p := range f.DocumentOrder() {
		if c := p.Widget.Conditional; c != nil {
			assert.NotContains(t, condition.References(c.Tree), "w1")
			assert.NotContains(t, c.Parents, "w1")
		}
	}
	assert.True(t, Validate(f, 0).OK())

	_, err = a.DeleteWidget("w1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteWidget_SoleLeafCollapsesToEmptyAnd(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", multiDraft("w1"))
	require.NoError(t, err)
	_, err = a.AddWidget("", withCondition(textDraft("w2", "Dependent"), matchesLeaf("w1", widget.ModifierEvery, "a", "b")))
	require.NoError(t, err)

	_, err = a.DeleteWidget("w1")
	require.NoError(t, err)

	f := snapshot(t, a)
	w2, ok := f.Find("w2")
	require.True(t, ok)
	assert.Equal(t, widget.Node{Conjunction: widget.ConjunctionAnd}, w2.Widget.Conditional.Tree)
	assert.True(t, condition.Evaluate(w2.Widget.Conditional.Tree, attribute.Set{}.Lookup))
}

func TestDeleteWidget_ForgetsErrors(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", textDraft("w1", "One"))
	require.NoError(t, err)
	a.SetWidgetError("w1", errors.New("bad"))
	a.SetWidgetError("other", errors.New("kept"))

	_, err = a.DeleteWidget("w1")
	require.NoError(t, err)
	errs := a.WidgetErrors()
	assert.NotContains(t, errs, "w1")
	assert.Contains(t, errs, "other")
}

// --- Reordering ---

func TestReorderWidget_MovesToFront(t *testing.T) {
	a := newTestAggregator(t)
	for _, id := range []string{"w1", "w2", "w3"} {
		_, err := a.AddWidget("", textDraft(id, id))
		require.NoError(t, err)
	}
	require.NoError(t, a.ReorderWidget("w3", 0))

	f := snapshot(t, a)
	assert.Equal(t, map[string]int{"w3": 0, "w1": 1, "w2": 2}, ordersOf(f.Widgets))
}

func TestReorderWidget_KeepsGaps(t *testing.T) {
	a := newTestAggregator(t)
	for _, id := range []string{"w1", "w2", "w3"} {
		_, err := a.AddWidget("", textDraft(id, id))
		require.NoError(t, err)
	}
	require.NoError(t, a.ReorderWidget("w1", 10))
	require.NoError(t, a.ReorderWidget("w3", 1))

	f := snapshot(t, a)
	got := ordersOf(f.Widgets)
	assert.Equal(t, 1, got["w3"])
	assert.Equal(t, 2, got["w2"])
	assert.Equal(t, 10, got["w1"])
}

func TestReorderWidget_InvalidatesForwardReference(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", multiDraft("w1"))
	require.NoError(t, err)
	_, err = a.AddWidget("", withCondition(textDraft("w2", "Dependent"), matchesLeaf("w1", "", "a")))
	require.NoError(t, err)

	err = a.ReorderWidget("w2", 0)
	var ref *widget.ReferentialIntegrityError
	assert.True(t, errors.As(err, &ref), "got %v", err)
	assert.Equal(t, map[string]int{"w1": 0, "w2": 1}, ordersOf(snapshot(t, a).Widgets))
}

func TestOrdersStayStrict(t *testing.T) {
	a := newTestAggregator(t)
	rng := rand.New(rand.NewSource(42))
	sections := []string{"", "s1", "s2"}
	for _, id := range sections[1:] {
		_, err := a.AddSection(widget.SectionDraft{ClientID: id, Title: ptr(id)})
		require.NoError(t, err)
	}
	_, err := a.AddWidget("s1", widget.Draft{ClientID: "cond", Type: widget.TypeConditional, Title: ptr("Nested")})
	require.NoError(t, err)

	var ids []string
	for step := 0; step < 300; step++ {
		switch op := rng.Intn(4); {
		case op == 0 || len(ids) == 0:
			w, err := a.AddWidget(sections[rng.Intn(len(sections))], textDraft("", "w"))
			require.NoError(t, err)
			ids = append(ids, w.ClientID)
		case op == 1:
			w, err := a.AddNestedWidget("cond", textDraft("", "n"))
			require.NoError(t, err)
			ids = append(ids, w.ClientID)
		case op == 2:
			i := rng.Intn(len(ids))
			_, err := a.DeleteWidget(ids[i])
			require.NoError(t, err)
			ids = append(ids[:i], ids[i+1:]...)
		default:
			require.NoError(t, a.ReorderWidget(ids[rng.Intn(len(ids))], rng.Intn(6)))
		}
		assertStrictOrders(t, snapshot(t, a))
	}
}

// --- Widget errors ---

func TestWidgetErrors(t *testing.T) {
	a := newTestAggregator(t)
	_, err := a.AddWidget("", textDraft("w1", "One"))
	require.NoError(t, err)
	before := snapshot(t, a)

	a.SetWidgetError("w1", errors.New("too short"))
	a.SetWidgetError("w1", nil)
	errs := a.WidgetErrors()
	require.Len(t, errs["w1"], 1)
	assert.EqualError(t, errs["w1"][0], "too short")

	errs["w1"] = nil
	assert.Len(t, a.WidgetErrors()["w1"], 1, "returned map is a copy")

	a.ClearErrors()
	assert.Empty(t, a.WidgetErrors())
	if diff := cmp.Diff(before, snapshot(t, a)); diff != "" {
		t.Errorf("widget errors changed the document:\n%s", diff)
	}
}
