package condition

import (
	"testing"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func lookupOf(attrs ...attribute.Attribute) Lookup {
	set := attribute.Set{}
	for _, a := range attrs {
		set.Put(a)
	}
	return set.Lookup
}

func multi(id string, keys ...string) attribute.Attribute {
	return attribute.Attribute{WidgetID: id, Type: widget.TypeMultiSelect, Data: attribute.MultiSelectData{Value: keys}}
}

func matches(id string, mod widget.Modifier, operand ...string) widget.Node {
	return widget.Leaf(widget.Condition{
		Key:      id,
		Operator: widget.OpMultiSelectMatches,
		Modifier: mod,
		Operand:  operand,
	})
}

// --- Identity elements ---

func TestEvaluate_EmptyConjunctions(t *testing.T) {
	none := lookupOf()
	full := lookupOf(multi("w1", "a"))

	for name, lookup := range map[string]Lookup{"no attributes": none, "with attributes": full} {
		t.Run(name, func(t *testing.T) {
			assert.True(t, Evaluate(widget.And(), lookup), "empty AND")
			assert.False(t, Evaluate(widget.Or(), lookup), "empty OR")
			assert.False(t, Evaluate(widget.Node{Conjunction: widget.ConjunctionXor}, lookup), "empty XOR")
			assert.True(t, Evaluate(widget.Node{}, lookup), "bare node folds as AND")
		})
	}
}

// --- Inversion ---

func TestEvaluate_DoubleInvertIsIdentity(t *testing.T) {
	trees := []widget.Node{
		matches("w1", widget.ModifierEvery, "a", "b"),
		matches("missing", widget.ModifierSome, "a"),
		widget.And(),
		widget.Or(matches("w1", widget.ModifierSome, "c"), Invert(matches("w1", "", "a"))),
		{Conjunction: widget.ConjunctionXor, Children: []widget.Node{
			matches("w1", "", "a"), matches("w1", "", "b"),
		}},
	}
	lookups := []Lookup{lookupOf(), lookupOf(multi("w1", "a", "b")), lookupOf(multi("w1", "c"))}

	for i, tree := range trees {
		for j, lookup := range lookups {
			want := Evaluate(tree, lookup)
			assert.Equal(t, want, Evaluate(Invert(Invert(tree)), lookup), "tree %d lookup %d", i, j)
			assert.Equal(t, !want, Evaluate(Invert(tree), lookup), "tree %d lookup %d", i, j)
		}
	}
}

// --- Missing attributes ---

func TestEvaluate_MissingAttributeIsFalse(t *testing.T) {
	leaves := []widget.Condition{
		{Key: "k", Operator: widget.OpEmpty},
		{Key: "k", Operator: widget.OpMultiSelectMatches, Operand: []string{"a"}},
		{Key: "k", Operator: widget.OpNumberGreaterThan, Value: "1"},
		{Key: "k", Operator: widget.OpTextContains, Value: "x"},
		{Key: "k", Operator: widget.OpMatrix1DRowsSelected, Operand: []string{"r"}, Modifier: widget.ModifierSome},
	}
	for _, c := range leaves {
		leaf := widget.Leaf(c)
		assert.False(t, Evaluate(leaf, lookupOf()), "operator %s", c.Operator)
		assert.True(t, Evaluate(Invert(leaf), lookupOf()), "inverted %s", c.Operator)
	}
}

func TestEvaluate_MissingAttributeIsLogged(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := NewEvaluator(WithLogger(zap.New(core)))

	assert.False(t, e.Evaluate(matches("ghost", "", "a"), lookupOf()))
	require.Equal(t, 1, logs.Len())
	entry := logs.All()[0]
	assert.Equal(t, "ghost", entry.ContextMap()["widget"])
}

// --- Set operators ---

func TestEvaluate_MultiSelectEvery(t *testing.T) {
	lookup := lookupOf(multi("w1", "a", "b"))
	assert.True(t, Evaluate(matches("w1", widget.ModifierEvery, "a", "b"), lookup))
	assert.False(t, Evaluate(matches("w1", widget.ModifierEvery, "a", "c"), lookup))
}

func TestEvaluate_MultiSelectSome(t *testing.T) {
	cond := matches("w1", widget.ModifierSome, "a", "b")
	assert.True(t, Evaluate(cond, lookupOf(multi("w1", "a"))))
	assert.False(t, Evaluate(cond, lookupOf(multi("w1", "c"))))
}

func TestEvaluate_UnsetModifierDefaultsToEvery(t *testing.T) {
	lookup := lookupOf(multi("w1", "a"))
	assert.False(t, Evaluate(matches("w1", "", "a", "b"), lookup))
	assert.True(t, Evaluate(matches("w1", "", "a"), lookup))
}

func TestEvaluate_EmptyOperandNeverMatches(t *testing.T) {
	assert.False(t, Evaluate(matches("w1", widget.ModifierEvery), lookupOf(multi("w1", "a"))))
}

func TestEvaluate_Matrix1D(t *testing.T) {
	attr := attribute.Attribute{WidgetID: "m", Type: widget.TypeMatrix1D, Data: attribute.Matrix1DData{
		Value: map[string]map[string]bool{
			"r1": {"c1": true, "c2": false},
			"r2": {"c3": false},
		},
	}}
	lookup := lookupOf(attr)

	rows := widget.Leaf(widget.Condition{Key: "m", Operator: widget.OpMatrix1DRowsSelected, Operand: []string{"r1"}})
	assert.True(t, Evaluate(rows, lookup))

	rows.Condition.Operand = []string{"r1", "r2"}
	assert.False(t, Evaluate(rows, lookup), "r2 has no selected cell")

	cells := widget.Leaf(widget.Condition{
		Key: "m", Operator: widget.OpMatrix1DCellsSelected,
		Modifier: widget.ModifierSome, Operand: []string{"c2", "c1"},
	})
	assert.True(t, Evaluate(cells, lookup))
}

func TestEvaluate_Matrix2D(t *testing.T) {
	attr := attribute.Attribute{WidgetID: "m2", Type: widget.TypeMatrix2D, Data: attribute.Matrix2DData{
		Value: map[string]map[string]map[string][]string{
			"sector": {"sub": {"need": {"water", "food"}}},
		},
	}}
	lookup := lookupOf(attr)

	cases := []struct {
		op      widget.Operator
		operand []string
		want    bool
	}{
		{widget.OpMatrix2DRowsSelected, []string{"sector"}, true},
		{widget.OpMatrix2DSubRowsSelected, []string{"sub"}, true},
		{widget.OpMatrix2DColumnsSelected, []string{"need"}, true},
		{widget.OpMatrix2DSubColumnsSelected, []string{"water", "food"}, true},
		{widget.OpMatrix2DSubColumnsSelected, []string{"shelter"}, false},
	}
	for _, tc := range cases {
		leaf := widget.Leaf(widget.Condition{Key: "m2", Operator: tc.op, Operand: tc.operand})
		assert.Equal(t, tc.want, Evaluate(leaf, lookup), "%s %v", tc.op, tc.operand)
	}
}

func TestEvaluate_OrganigramDescendent(t *testing.T) {
	org := &widget.Widget{ClientID: "org", Type: widget.TypeOrganigram, Properties: &widget.OrganigramProperties{
		Options: &widget.OrganigramNode{Option: widget.Option{Key: "root"}, Children: []widget.OrganigramNode{
			{Option: widget.Option{Key: "health"}, Children: []widget.OrganigramNode{
				{Option: widget.Option{Key: "clinics"}},
			}},
			{Option: widget.Option{Key: "education"}},
		}},
	}}
	e := NewEvaluator(WithWidgets(func(id string) (*widget.Widget, bool) {
		return org, id == "org"
	}))
	lookup := lookupOf(attribute.Attribute{WidgetID: "org", Type: widget.TypeOrganigram,
		Data: attribute.OrganigramData{Value: []string{"clinics"}}})

	desc := widget.Leaf(widget.Condition{Key: "org", Operator: widget.OpOrganigramDescendentSelected, Operand: []string{"health"}})
	assert.True(t, e.Evaluate(desc, lookup))

	direct := widget.Leaf(widget.Condition{Key: "org", Operator: widget.OpOrganigramSelected, Operand: []string{"health"}})
	assert.False(t, e.Evaluate(direct, lookup))

	desc.Condition.Operand = []string{"education"}
	assert.False(t, e.Evaluate(desc, lookup))
}

func TestEvaluate_OperatorDataMismatchIsFalse(t *testing.T) {
	leaf := widget.Leaf(widget.Condition{Key: "w1", Operator: widget.OpGeoSelected, Operand: []string{"a"}})
	assert.False(t, Evaluate(leaf, lookupOf(multi("w1", "a"))))
}

// --- Scalar operators ---

func TestEvaluate_Scalars(t *testing.T) {
	lookup := lookupOf(
		attribute.Attribute{WidgetID: "n", Type: widget.TypeNumber, Data: attribute.NumberData{Value: 5}},
		attribute.Attribute{WidgetID: "t", Type: widget.TypeText, Data: attribute.TextData{Value: "Flood Response"}},
		attribute.Attribute{WidgetID: "d", Type: widget.TypeDate, Data: attribute.DateData{Value: "2024-03-10"}},
		attribute.Attribute{WidgetID: "tm", Type: widget.TypeTime, Data: attribute.TimeData{Value: "09:30"}},
		attribute.Attribute{WidgetID: "dr", Type: widget.TypeDateRange, Data: attribute.DateRangeData{
			Value: widget.DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"},
		}},
		attribute.Attribute{WidgetID: "tr", Type: widget.TypeTimeRange, Data: attribute.TimeRangeData{
			Value: widget.TimeRange{StartTime: "08:00", EndTime: "17:00"},
		}},
	)

	cases := []struct {
		key   string
		op    widget.Operator
		value string
		want  bool
	}{
		{"n", widget.OpNumberGreaterThan, "4", true},
		{"n", widget.OpNumberLessThan, "4", false},
		{"n", widget.OpNumberEqualTo, "5", true},
		{"n", widget.OpNumberEqualTo, "five", false},
		{"t", widget.OpTextStartsWith, "flood", true},
		{"t", widget.OpTextEndsWith, "RESPONSE", true},
		{"t", widget.OpTextContains, "drought", false},
		{"d", widget.OpDateAfter, "2024-03-01", true},
		{"d", widget.OpDateBefore, "2024-03-01", false},
		{"d", widget.OpDateEqualTo, "2024-03-10", true},
		{"tm", widget.OpTimeAfter, "09:00", true},
		{"tm", widget.OpTimeEqualTo, "09:30:00", true},
		{"dr", widget.OpDateRangeIncludes, "2024-01-15", true},
		{"dr", widget.OpDateRangeIncludes, "2024-02-01", false},
		{"dr", widget.OpDateRangeAfter, "2023-12-31", true},
		{"dr", widget.OpDateRangeBefore, "2024-02-01", true},
		{"tr", widget.OpTimeRangeIncludes, "12:00", true},
		{"tr", widget.OpTimeRangeBefore, "16:00", false},
	}
	for _, tc := range cases {
		leaf := widget.Leaf(widget.Condition{Key: tc.key, Operator: tc.op, Value: tc.value})
		assert.Equal(t, tc.want, Evaluate(leaf, lookup), "%s %s %q", tc.key, tc.op, tc.value)
	}
}

func TestEvaluate_ScaleOrdering(t *testing.T) {
	scale := &widget.Widget{ClientID: "s", Type: widget.TypeScale, Properties: &widget.ScaleProperties{
		Options: []widget.ScaleOption{
			{Option: widget.Option{Key: "high", Order: 2}, Color: "#ff0000"},
			{Option: widget.Option{Key: "low", Order: 0}, Color: "#00ff00"},
			{Option: widget.Option{Key: "mid", Order: 1}, Color: "#ffff00"},
		},
	}}
	f := &widget.Framework{Widgets: []widget.Widget{*scale}}
	e := NewEvaluator(WithWidgets(ForFramework(f)))
	lookup := lookupOf(attribute.Attribute{WidgetID: "s", Type: widget.TypeScale, Data: attribute.ScaleData{Value: "mid"}})

	more := widget.Leaf(widget.Condition{Key: "s", Operator: widget.OpScaleMoreThan, Value: "low"})
	less := widget.Leaf(widget.Condition{Key: "s", Operator: widget.OpScaleLessThan, Value: "low"})
	assert.True(t, e.Evaluate(more, lookup))
	assert.False(t, e.Evaluate(less, lookup))
	assert.False(t, Evaluate(more, lookup), "no widget definitions")

	sel := widget.Leaf(widget.Condition{Key: "s", Operator: widget.OpScaleSelected, Operand: []string{"mid"}})
	assert.True(t, Evaluate(sel, lookup))
}

func TestEvaluate_EmptyOperator(t *testing.T) {
	leaf := widget.Leaf(widget.Condition{Key: "w1", Operator: widget.OpEmpty})
	assert.True(t, Evaluate(leaf, lookupOf(multi("w1"))))
	assert.False(t, Evaluate(leaf, lookupOf(multi("w1", "a"))))
}

// --- Conjunctions ---

func TestEvaluate_Conjunctions(t *testing.T) {
	lookup := lookupOf(multi("w1", "a"))
	yes := matches("w1", "", "a")
	no := matches("w1", "", "z")

	assert.True(t, Evaluate(widget.And(yes, yes), lookup))
	assert.False(t, Evaluate(widget.And(yes, no), lookup))
	assert.True(t, Evaluate(widget.Or(no, yes), lookup))
	assert.False(t, Evaluate(widget.Or(no, no), lookup))

	xor := func(children ...widget.Node) widget.Node {
		return widget.Node{Conjunction: widget.ConjunctionXor, Children: children}
	}
	assert.True(t, Evaluate(xor(yes, no), lookup))
	assert.False(t, Evaluate(xor(yes, yes), lookup))
	assert.True(t, Evaluate(xor(yes, yes, yes), lookup))

	nested := widget.And(Invert(no), widget.Or(no, yes))
	assert.True(t, Evaluate(nested, lookup))
}
