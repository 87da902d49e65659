package framework

import (
	"testing"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func visibilityFixture(t *testing.T) *widget.Framework {
	t.Helper()
	a := newTestAggregator(t)
	_, err := a.AddWidget("", multiDraft("w1"))
	require.NoError(t, err)
	_, err = a.AddWidget("", withCondition(textDraft("w2", "Shown for A"), matchesLeaf("w1", widget.ModifierSome, "a")))
	require.NoError(t, err)
	_, err = a.AddWidget("", withCondition(
		widget.Draft{ClientID: "c", Type: widget.TypeConditional, Title: ptr("Details")},
		matchesLeaf("w1", "", "b")))
	require.NoError(t, err)
	_, err = a.AddNestedWidget("c", textDraft("n1", "Describe"))
	require.NoError(t, err)
	_, err = a.AddNestedWidget("c", withCondition(textDraft("n2", "Flood details"),
		widget.Leaf(widget.Condition{Key: "n1", Operator: widget.OpTextContains, Value: "flood"})))
	require.NoError(t, err)
	return snapshot(t, a)
}

func TestVisible(t *testing.T) {
	f := visibilityFixture(t)

	t.Run("nothing answered", func(t *testing.T) {
		got := Visible(f, attribute.Set{}, nil)
		assert.Equal(t, map[string]bool{"w1": true, "w2": false, "c": false, "n1": false, "n2": false}, got)
	})

	t.Run("nested answers", func(t *testing.T) {
		set := attribute.Set{}
		set.Put(attribute.Attribute{WidgetID: "w1", Type: widget.TypeMultiSelect,
			Data: attribute.MultiSelectData{Value: []string{"a", "b"}}})
		set.Put(attribute.Attribute{WidgetID: "c", Type: widget.TypeConditional,
			Data: attribute.ConditionalData{Value: map[string]attribute.Attribute{
				"n1": {WidgetID: "n1", Type: widget.TypeText, Data: attribute.TextData{Value: "Flooding in the north"}},
			}}})

		got := Visible(f, set, nil)
		assert.Equal(t, map[string]bool{"w1": true, "w2": true, "c": true, "n1": true, "n2": true}, got)
	})

	t.Run("hidden parent hides children", func(t *testing.T) {
		set := attribute.Set{}
		set.Put(attribute.Attribute{WidgetID: "w1", Type: widget.TypeMultiSelect,
			Data: attribute.MultiSelectData{Value: []string{"a"}}})
		got := Visible(f, set, nil)
		assert.True(t, got["w2"])
		assert.False(t, got["c"])
		assert.False(t, got["n1"])
	})
}

func TestEntryLookup_Nested(t *testing.T) {
	f := visibilityFixture(t)
	set := attribute.Set{}
	lookup := EntryLookup(f, set)

	_, ok := lookup("n1")
	assert.False(t, ok)

	set.Put(attribute.Attribute{WidgetID: "c", Type: widget.TypeConditional,
		Data: attribute.ConditionalData{Value: map[string]attribute.Attribute{
			"n1": {WidgetID: "n1", Type: widget.TypeText, Data: attribute.TextData{Value: "x"}},
		}}})
	a, ok := lookup("n1")
	require.True(t, ok)
	assert.Equal(t, attribute.TextData{Value: "x"}, a.Data)
}
