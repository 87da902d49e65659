package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func seq() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("gen-%d", n)
	}
}

// --- Enums ---

func TestValidateType(t *testing.T) {
	for _, typ := range Types {
		assert.NoError(t, ValidateType(typ), typ)
		_, err := NewProperties(typ)
		assert.NoError(t, err, "every type has a properties shape: %s", typ)
	}
	err := ValidateType("SLIDER")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SINGLE_SELECT")
}

func TestOperatorAlias(t *testing.T) {
	var c Condition
	require.NoError(t, json.Unmarshal([]byte(`{"key":"a","operator":"multi-selection-selected"}`), &c))
	assert.Equal(t, OpMultiSelectMatches, c.Operator)
}

func TestValidateOperator(t *testing.T) {
	assert.NoError(t, ValidateOperator(TypeText, OpTextContains))
	assert.NoError(t, ValidateOperator(TypeConditional, OpEmpty))
	assert.Error(t, ValidateOperator(TypeText, OpNumberGreaterThan))
	assert.Error(t, ValidateOperator(TypeConditional, OpGeoSelected))

	ops := OperatorsFor(TypeScale)
	ops[0] = "mutated"
	assert.Equal(t, OpEmpty, OperatorsFor(TypeScale)[0], "OperatorsFor returns a copy")
}

func TestEffectiveModifier(t *testing.T) {
	assert.Equal(t, ModifierEvery, Condition{}.EffectiveModifier())
	assert.Equal(t, ModifierSome, Condition{Modifier: ModifierSome}.EffectiveModifier())
	assert.Error(t, ValidateModifier("ANY"))
	assert.Error(t, ValidateConjunction("NAND"))
}

// --- Drafts ---

func TestDraftBuild(t *testing.T) {
	w, err := Draft{Type: TypeText, Title: ptr("Notes")}.Build(seq())
	require.NoError(t, err)
	assert.Equal(t, "gen-1", w.ClientID)
	assert.Equal(t, WidthFull, w.Width)
	assert.IsType(t, &TextProperties{}, w.Properties)

	_, err = Draft{Title: ptr("No type")}.Build(seq())
	var sv *SchemaViolation
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "type", sv.Field)

	_, err = Draft{Type: TypeText}.Build(seq())
	require.ErrorAs(t, err, &sv)
	assert.Equal(t, "title", sv.Field)
}

func TestDraftApply(t *testing.T) {
	w, err := Draft{ClientID: "n", Type: TypeText, Title: ptr("Notes")}.Build(seq())
	require.NoError(t, err)

	cond := &Conditional{Tree: Leaf(Condition{Key: "a", Operator: OpEmpty})}
	w, err = Draft{Title: ptr("Comments"), Width: ptr(WidthHalf), Conditional: cond}.Apply(w)
	require.NoError(t, err)
	assert.Equal(t, "Comments", w.Title)
	assert.Equal(t, WidthHalf, w.Width)
	require.NotNil(t, w.Conditional)

	w, err = Draft{DropConditional: true}.Apply(w)
	require.NoError(t, err)
	assert.Nil(t, w.Conditional)

	_, err = Draft{Type: TypeNumber}.Apply(w)
	assert.ErrorContains(t, err, "immutable")
	_, err = Draft{ClientID: "other"}.Apply(w)
	assert.ErrorContains(t, err, "immutable")
}

func TestDraftBuild_CollectsPropertyErrors(t *testing.T) {
	_, err := Draft{
		Type:  TypeScale,
		Title: ptr("Severity"),
		Properties: &ScaleProperties{
			Options: []ScaleOption{
				{Option: Option{Key: "low", Label: "Low"}, Color: "red"},
				{Option: Option{Key: "low", Label: "Again"}, Color: "#00ff00"},
			},
			DefaultValue: "high",
		},
	}.Build(seq())
	require.Error(t, err)

	var dup *DuplicateKeyError
	assert.ErrorAs(t, err, &dup)
	assert.ErrorContains(t, err, "invalid color")
	assert.ErrorContains(t, err, `default "high" is not an option key`)
}

func TestConditionalProperties_NoNestedConditional(t *testing.T) {
	_, err := Draft{
		Type:  TypeConditional,
		Title: ptr("Outer"),
		Properties: &ConditionalProperties{Widgets: []Widget{
			{ClientID: "inner", Type: TypeConditional, Title: "Inner"},
		}},
	}.Build(seq())
	assert.ErrorContains(t, err, "cannot nest")
}

func TestParseConditional(t *testing.T) {
	full, err := ParseConditional(json.RawMessage(`{"parentWidgets":["a"],"conditions":{"condition":{"key":"a","operator":"empty"}}}`))
	require.NoError(t, err)
	bare, err := ParseConditional(json.RawMessage(`{"condition":{"key":"a","operator":"empty"}}`))
	require.NoError(t, err)

	if diff := cmp.Diff(full.Tree, bare.Tree); diff != "" {
		t.Errorf("tree mismatch (-full +bare):\n%s", diff)
	}
	assert.Equal(t, []string{"a"}, full.Parents)

	_, err = ParseConditional(json.RawMessage(`[1,2]`))
	assert.Error(t, err)
}

func TestParseProperties(t *testing.T) {
	p, err := ParseProperties(TypeMultiSelect, json.RawMessage(`{"options":[{"key":"a","label":"A","order":0}]}`))
	require.NoError(t, err)
	ms, ok := p.(*MultiSelectProperties)
	require.True(t, ok)
	assert.Len(t, ms.Options, 1)

	_, err = ParseProperties("NOPE", nil)
	assert.Error(t, err)
}

func TestSectionDraftBuild(t *testing.T) {
	s, err := SectionDraft{Title: ptr("Context")}.Build(seq())
	require.NoError(t, err)
	assert.Equal(t, "gen-1", s.ClientID)
	assert.NotNil(t, s.Widgets)

	_, err = SectionDraft{ClientID: "s"}.Build(seq())
	assert.Error(t, err)
}

// --- Documents ---

func TestWidgetJSON_PropertiesFollowType(t *testing.T) {
	in := Widget{
		ClientID: "org",
		Type:     TypeOrganigram,
		Title:    "Who",
		Order:    2,
		Properties: &OrganigramProperties{Options: &OrganigramNode{
			Option:   Option{Key: "root", Label: "Root"},
			Children: []OrganigramNode{{Option: Option{Key: "child", Label: "Child"}}},
		}},
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Widget
	require.NoError(t, json.Unmarshal(data, &out))
	if diff := cmp.Diff(in, out); diff != "" {
		t.Errorf("widget mismatch (-want +got):\n%s", diff)
	}

	err = json.Unmarshal([]byte(`{"clientId":"x","type":"SLIDER","title":"X"}`), &out)
	assert.Error(t, err)
}

func TestWidgetJSON_MissingPropertiesGetEmptyShape(t *testing.T) {
	var w Widget
	require.NoError(t, json.Unmarshal([]byte(`{"clientId":"x","type":"GEO","title":"Where"}`), &w))
	assert.IsType(t, &GeoProperties{}, w.Properties)
}

func testFramework() *Framework {
	return &Framework{
		ID:    "f",
		Title: "F",
		Sections: []Section{
			{ClientID: "s2", Title: "Second", Order: 1, Widgets: []Widget{
				{ClientID: "c", Type: TypeText, Title: "C", Order: 0},
			}},
			{ClientID: "s1", Title: "First", Order: 0, Widgets: []Widget{
				{ClientID: "b", Type: TypeText, Title: "B", Order: 1},
				{ClientID: "a", Type: TypeText, Title: "A", Order: 0},
			}},
		},
		Widgets: []Widget{
			{ClientID: "cond", Type: TypeConditional, Title: "Cond", Order: 0, Properties: &ConditionalProperties{
				Widgets: []Widget{
					{ClientID: "n2", Type: TypeText, Title: "N2", Order: 1},
					{ClientID: "n1", Type: TypeText, Title: "N1", Order: 0},
				},
			}},
			{ClientID: "z", Type: TypeText, Title: "Z", Order: 1},
		},
	}
}

func TestDocumentOrder(t *testing.T) {
	f := testFramework()
	var ids []string
	for i, p := range f.DocumentOrder() {
		ids = append(ids, p.Widget.ClientID)
		assert.Equal(t, i, p.Location.Position)
	}
	assert.Equal(t, []string{"a", "b", "c", "cond", "n1", "n2", "z"}, ids)

	p, ok := f.Find("n1")
	require.True(t, ok)
	assert.Equal(t, "cond", p.Location.ParentID)
	assert.Equal(t, "", p.Location.SectionID)

	p, ok = f.Find("c")
	require.True(t, ok)
	assert.Equal(t, "s2", p.Location.SectionID)

	_, ok = f.Find("ghost")
	assert.False(t, ok)
}

func TestSiblings(t *testing.T) {
	f := testFramework()

	sib, err := f.Siblings(Location{ParentID: "cond"})
	require.NoError(t, err)
	assert.Len(t, *sib, 2)

	sib, err = f.Siblings(Location{SectionID: "s1"})
	require.NoError(t, err)
	*sib = append(*sib, Widget{ClientID: "new", Type: TypeText, Title: "New", Order: 2})
	_, ok := f.Find("new")
	assert.True(t, ok, "siblings slice is shared with the framework")

	_, err = f.Siblings(Location{ParentID: "a"})
	assert.Error(t, err)
	_, err = f.Siblings(Location{SectionID: "ghost"})
	assert.Error(t, err)
}

func TestClone_IsDeep(t *testing.T) {
	f := testFramework()
	c, err := f.Clone()
	require.NoError(t, err)
	c.Sections[0].Widgets[0].Title = "changed"
	assert.Equal(t, "C", f.Sections[0].Widgets[0].Title)
}

// --- Errors ---

func TestReport(t *testing.T) {
	r := NewReport()
	assert.True(t, r.OK())
	assert.NoError(t, r.Err())
	assert.Equal(t, "framework is valid", r.Summary())

	r.AddField("a", &SchemaViolation{WidgetID: "a", Field: "title", Reason: "title is required"})
	r.AddFramework(&DuplicateKeyError{Scope: "framework", Key: "a"})
	assert.False(t, r.OK())
	assert.Equal(t, "1 framework error(s), 1 widget(s) with field errors", r.Summary())

	var sv *SchemaViolation
	assert.True(t, errors.As(r.Err(), &sv))
}

func TestOrganigramNode(t *testing.T) {
	root := &OrganigramNode{
		Option: Option{Key: "r", Label: "R"},
		Children: []OrganigramNode{
			{Option: Option{Key: "a", Label: "A"}, Children: []OrganigramNode{{Option: Option{Key: "a1", Label: "A1"}}}},
			{Option: Option{Key: "b", Label: "B"}},
		},
	}
	n, ok := root.Find("a1")
	require.True(t, ok)
	assert.Equal(t, "A1", n.Label)
	assert.Equal(t, []string{"a", "a1", "b"}, root.Descendants())
}

func TestDateAndTimeRanges(t *testing.T) {
	assert.NoError(t, CheckDateRange(DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"}))
	assert.Error(t, CheckDateRange(DateRange{StartDate: "2024-02-01", EndDate: "2024-01-31"}))
	assert.Error(t, CheckDateRange(DateRange{StartDate: "yesterday", EndDate: "2024-01-31"}))

	assert.NoError(t, CheckTimeRange(TimeRange{StartTime: "08:00", EndTime: "17:30:00"}))
	assert.Error(t, CheckTimeRange(TimeRange{StartTime: "18:00", EndTime: "08:00"}))

	assert.True(t, ValidColor("#A1b2C3"))
	assert.False(t, ValidColor("#abc"))
}
