package document

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixture() *widget.Framework {
	minV, maxV := 0.0, 100.0
	return &widget.Framework{
		ID:    "fw-1",
		Title: "Flood assessment",
		Sections: []widget.Section{{
			ClientID: "s1",
			Title:    "Context",
			Tooltip:  "Where and when",
			Order:    0,
			Widgets: []widget.Widget{
				{
					ClientID: "when",
					Type:     widget.TypeDateRange,
					Title:    "Period",
					Order:    0,
					Width:    widget.WidthHalf,
					Properties: &widget.DateRangeProperties{
						DefaultValue: &widget.DateRange{StartDate: "2024-01-01", EndDate: "2024-01-31"},
					},
				},
				{
					ClientID:   "people",
					Type:       widget.TypeNumber,
					Title:      "Affected people",
					Order:      1,
					Properties: &widget.NumberProperties{MinValue: &minV, MaxValue: &maxV},
				},
			},
		}},
		Widgets: []widget.Widget{
			{
				ClientID: "sector",
				Type:     widget.TypeMultiSelect,
				Title:    "Sector",
				Order:    0,
				Properties: &widget.MultiSelectProperties{Options: []widget.Option{
					{Key: "health", Label: "Health", Order: 0},
					{Key: "wash", Label: "WASH", Order: 1},
				}},
			},
			{
				ClientID: "details",
				Type:     widget.TypeConditional,
				Title:    "Details",
				Order:    1,
				Properties: &widget.ConditionalProperties{Widgets: []widget.Widget{{
					ClientID:   "notes",
					Type:       widget.TypeText,
					Title:      "Notes",
					Properties: &widget.TextProperties{DefaultValue: "none"},
				}}},
				Conditional: &widget.Conditional{
					Parents: []string{"sector"},
					Tree: widget.Or(
						widget.Leaf(widget.Condition{
							Key: "sector", Operator: widget.OpMultiSelectMatches,
							Modifier: widget.ModifierSome, Operand: []string{"wash"},
						}),
						widget.Node{Invert: true, Condition: &widget.Condition{Key: "people", Operator: widget.OpEmpty}},
					),
				},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	for in, want := range map[string]Format{"json": FormatJSON, "YAML": FormatYAML, " yml ": FormatYAML} {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}
	_, err := ParseFormat("toml")
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatFromPath("a/b.yaml"))
	assert.Equal(t, FormatYAML, FormatFromPath("b.YML"))
	assert.Equal(t, FormatJSON, FormatFromPath("b.json"))
	assert.Equal(t, FormatJSON, FormatFromPath("noext"))
}

func TestRoundTrip(t *testing.T) {
	for _, format := range []Format{FormatJSON, FormatYAML} {
		t.Run(string(format), func(t *testing.T) {
			want := fixture()
			data, err := Encode(want, format)
			require.NoError(t, err)
			got, err := Decode(data, format)
			require.NoError(t, err)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestDecodeYAML_HandWritten(t *testing.T) {
	src := `
id: fw-yaml
title: Hand written
sections:
  - clientId: s1
    title: Main
    order: 0
    widgets:
      - clientId: q1
        type: SINGLE_SELECT
        title: Severity
        order: 0
        properties:
          options:
            - {key: low, label: Low, order: 0}
            - {key: high, label: High, order: 1}
widgets:
  - clientId: q2
    type: TEXT
    title: Why high?
    order: 0
    conditional:
      parentWidgets: [q1]
      conditions:
        conjunction: AND
        children:
          - condition:
              key: q1
              operator: single-selection-selected
              operand: [high]
`
	f, err := Decode([]byte(src), FormatYAML)
	require.NoError(t, err)
	require.Len(t, f.Sections, 1)
	props, ok := f.Sections[0].Widgets[0].Properties.(*widget.SingleSelectProperties)
	require.True(t, ok)
	assert.Len(t, props.Options, 2)

	c := f.Widgets[0].Conditional
	require.NotNil(t, c)
	assert.Equal(t, []string{"q1"}, c.Parents)
	require.Len(t, c.Tree.Children, 1)
	assert.Equal(t, widget.OpSingleSelectSelected, c.Tree.Children[0].Condition.Operator)
}

func TestDecode_Errors(t *testing.T) {
	_, err := Decode([]byte("{"), FormatJSON)
	assert.Error(t, err)
	_, err = Decode([]byte(""), FormatYAML)
	assert.Error(t, err)
	_, err = Decode([]byte(`{"widgets":[{"clientId":"x","type":"SLIDER","title":"t"}]}`), FormatJSON)
	assert.Error(t, err, "unknown widget types are rejected")
}

func TestLoadWrite(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"out/fw.json", "out/fw.yaml"} {
		path := filepath.Join(dir, name)
		require.NoError(t, Write(path, fixture()))

		got, err := Load(path)
		require.NoError(t, err)
		if diff := cmp.Diff(fixture(), got); diff != "" {
			t.Errorf("%s mismatch (-want +got):\n%s", name, diff)
		}
		_, err = os.Stat(path + ".tmp")
		assert.True(t, os.IsNotExist(err))
	}

	_, err := Load(filepath.Join(dir, "missing.json"))
	assert.Error(t, err)
}
