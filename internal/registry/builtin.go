package registry

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/widget"
)

// compactWidth is the rune budget of a compact rendering.
const compactWidth = 48

// builtin is a text implementation assembled from per-type functions. It
// satisfies Editor, Viewer and CompactViewer at once.
type builtin struct {
	view     func(w *widget.Widget, d attribute.Data) string
	compact  func(w *widget.Widget, d attribute.Data) string
	defaults func(w *widget.Widget) attribute.Data
}

func (b builtin) Parse(w *widget.Widget, raw json.RawMessage) (attribute.Data, error) {
	data, err := attribute.DecodeData(w.Type, raw)
	if err != nil {
		return nil, &widget.SchemaViolation{WidgetID: w.ClientID, Field: "data", Reason: err.Error()}
	}
	if err := attribute.Validate(w, attribute.New(w, data)); err != nil {
		return nil, err
	}
	return data, nil
}

func (b builtin) Default(w *widget.Widget) attribute.Data {
	if b.defaults == nil {
		return nil
	}
	return b.defaults(w)
}

func (b builtin) View(w *widget.Widget, d attribute.Data) string {
	return b.view(w, d)
}

func (b builtin) Compact(w *widget.Widget, d attribute.Data) string {
	if b.compact != nil {
		return b.compact(w, d)
	}
	return truncate(b.view(w, d))
}

var (
	defaultOnce sync.Once
	defaultReg  *Registry
)

// Default returns the registry of built-in text implementations.
func Default() *Registry {
	defaultOnce.Do(func() {
		defaultReg = MustNew(Builtins())
	})
	return defaultReg
}

// Builtins returns a fresh copy of the built-in implementation table, for
// callers that want to override individual types before calling New.
func Builtins() map[widget.Type]Implementation {
	impls := make(map[widget.Type]Implementation, len(widget.Types))
	add := func(t widget.Type, b builtin) {
		impls[t] = Implementation{Editor: b, Viewer: b, CompactViewer: b}
	}

	add(widget.TypeText, builtin{
		view: func(_ *widget.Widget, d attribute.Data) string { return d.(attribute.TextData).Value },
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.TextProperties); p != nil && p.DefaultValue != "" {
				return attribute.TextData{Value: p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeNumber, builtin{
		view: func(_ *widget.Widget, d attribute.Data) string {
			return strconv.FormatFloat(d.(attribute.NumberData).Value, 'f', -1, 64)
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.NumberProperties); p != nil && p.DefaultValue != nil {
				return attribute.NumberData{Value: *p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeDate, builtin{
		view: func(_ *widget.Widget, d attribute.Data) string { return d.(attribute.DateData).Value },
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.DateProperties); p != nil && p.DefaultValue != "" {
				return attribute.DateData{Value: p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeDateRange, builtin{
		view: func(_ *widget.Widget, d attribute.Data) string {
			r := d.(attribute.DateRangeData).Value
			return span(r.StartDate, r.EndDate)
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.DateRangeProperties); p != nil && p.DefaultValue != nil {
				return attribute.DateRangeData{Value: *p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeTime, builtin{
		view: func(_ *widget.Widget, d attribute.Data) string { return d.(attribute.TimeData).Value },
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.TimeProperties); p != nil && p.DefaultValue != "" {
				return attribute.TimeData{Value: p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeTimeRange, builtin{
		view: func(_ *widget.Widget, d attribute.Data) string {
			r := d.(attribute.TimeRangeData).Value
			return span(r.StartTime, r.EndTime)
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.TimeRangeProperties); p != nil && p.DefaultValue != nil {
				return attribute.TimeRangeData{Value: *p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeScale, builtin{
		view: func(w *widget.Widget, d attribute.Data) string {
			key := d.(attribute.ScaleData).Value
			if p, _ := w.Properties.(*widget.ScaleProperties); p != nil {
				for _, o := range p.Options {
					if o.Key == key {
						return o.Label
					}
				}
			}
			return key
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.ScaleProperties); p != nil && p.DefaultValue != "" {
				return attribute.ScaleData{Value: p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeSingleSelect, builtin{
		view: func(w *widget.Widget, d attribute.Data) string {
			p, _ := w.Properties.(*widget.SingleSelectProperties)
			return labels(optionsOf(p), []string{d.(attribute.SingleSelectData).Value})
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.SingleSelectProperties); p != nil && p.DefaultValue != "" {
				return attribute.SingleSelectData{Value: p.DefaultValue}
			}
			return nil
		},
	})
	add(widget.TypeMultiSelect, builtin{
		view: func(w *widget.Widget, d attribute.Data) string {
			var opts []widget.Option
			if p, _ := w.Properties.(*widget.MultiSelectProperties); p != nil {
				opts = p.Options
			}
			return labels(opts, d.(attribute.MultiSelectData).Value)
		},
		compact: func(w *widget.Widget, d attribute.Data) string {
			return fmt.Sprintf("%d selected", len(d.(attribute.MultiSelectData).Value))
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.MultiSelectProperties); p != nil && len(p.DefaultValue) > 0 {
				return attribute.MultiSelectData{Value: append([]string(nil), p.DefaultValue...)}
			}
			return nil
		},
	})
	add(widget.TypeMatrix1D, builtin{
		view: viewMatrix1D,
		compact: func(w *widget.Widget, d attribute.Data) string {
			return counted(len(d.(attribute.Matrix1DData).SelectedCells()), "cell")
		},
	})
	add(widget.TypeMatrix2D, builtin{
		view: viewMatrix2D,
		compact: func(w *widget.Widget, d attribute.Data) string {
			return counted(len(d.(attribute.Matrix2DData).SelectedSubColumns()), "tag")
		},
	})
	add(widget.TypeOrganigram, builtin{
		view: func(w *widget.Widget, d attribute.Data) string {
			names := make(map[string]string)
			if p, _ := w.Properties.(*widget.OrganigramProperties); p != nil && p.Options != nil {
				var walk func(n *widget.OrganigramNode)
				walk = func(n *widget.OrganigramNode) {
					names[n.Key] = n.Label
					for i := range n.Children {
						walk(&n.Children[i])
					}
				}
				walk(p.Options)
			}
			var out []string
			for _, k := range d.(attribute.OrganigramData).Value {
				out = append(out, labelOr(names[k], k))
			}
			return strings.Join(out, ", ")
		},
		compact: func(w *widget.Widget, d attribute.Data) string {
			return counted(len(d.(attribute.OrganigramData).Value), "node")
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.OrganigramProperties); p != nil && len(p.DefaultValue) > 0 {
				return attribute.OrganigramData{Value: append([]string(nil), p.DefaultValue...)}
			}
			return nil
		},
	})
	add(widget.TypeGeo, builtin{
		view: func(_ *widget.Widget, d attribute.Data) string {
			return strings.Join(d.(attribute.GeoData).Value, ", ")
		},
		compact: func(w *widget.Widget, d attribute.Data) string {
			return counted(len(d.(attribute.GeoData).Value), "region")
		},
		defaults: func(w *widget.Widget) attribute.Data {
			if p, _ := w.Properties.(*widget.GeoProperties); p != nil && len(p.DefaultValue) > 0 {
				return attribute.GeoData{Value: append([]string(nil), p.DefaultValue...)}
			}
			return nil
		},
	})

	// Nested widgets render through the table being built, so a CONDITIONAL
	// shows its children with their own viewers.
	add(widget.TypeConditional, builtin{
		view: func(w *widget.Widget, d attribute.Data) string {
			values := d.(attribute.ConditionalData).Value
			var lines []string
			kids := w.Children()
			for i := range kids {
				child := &kids[i]
				a, ok := values[child.ClientID]
				if !ok || a.Data == nil {
					continue
				}
				impl, ok := impls[child.Type]
				if !ok {
					continue
				}
				lines = append(lines, fmt.Sprintf("%s: %s", child.Title, impl.Viewer.View(child, a.Data)))
			}
			return strings.Join(lines, "\n")
		},
		compact: func(w *widget.Widget, d attribute.Data) string {
			return counted(len(d.(attribute.ConditionalData).Value), "answer")
		},
	})
	return impls
}

func span(start, end string) string {
	return fmt.Sprintf("%s to %s", start, end)
}

func counted(n int, noun string) string {
	if n == 1 {
		return "1 " + noun
	}
	return fmt.Sprintf("%d %ss", n, noun)
}

func truncate(s string) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= compactWidth {
		return s
	}
	return string(r[:compactWidth-3]) + "..."
}

func optionsOf(p *widget.SingleSelectProperties) []widget.Option {
	if p == nil {
		return nil
	}
	return p.Options
}

func labelOr(label, key string) string {
	if label == "" {
		return key
	}
	return label
}

func labels(opts []widget.Option, keys []string) string {
	names := make(map[string]string, len(opts))
	for _, o := range opts {
		names[o.Key] = o.Label
	}
	out := make([]string, 0, len(keys))
	for _, k := range keys {
		if k == "" {
			continue
		}
		out = append(out, labelOr(names[k], k))
	}
	return strings.Join(out, ", ")
}

func viewMatrix1D(w *widget.Widget, d attribute.Data) string {
	value := d.(attribute.Matrix1DData).Value
	p, _ := w.Properties.(*widget.Matrix1DProperties)
	rows := map[string]widget.Row{}
	if p != nil {
		for _, r := range p.Rows {
			rows[r.Key] = r
		}
	}
	var lines []string
	for _, rowKey := range sortedKeys(value) {
		var picked []string
		for cell, on := range value[rowKey] {
			if on {
				picked = append(picked, cell)
			}
		}
		if len(picked) == 0 {
			continue
		}
		sort.Strings(picked)
		row := rows[rowKey]
		lines = append(lines, fmt.Sprintf("%s: %s", labelOr(row.Label, rowKey), labels(row.Cells, picked)))
	}
	return strings.Join(lines, "\n")
}

func viewMatrix2D(w *widget.Widget, d attribute.Data) string {
	value := d.(attribute.Matrix2DData).Value
	p, _ := w.Properties.(*widget.Matrix2DProperties)
	rows := map[string]widget.Matrix2DRow{}
	cols := map[string]widget.Matrix2DColumn{}
	if p != nil {
		for _, r := range p.Rows {
			rows[r.Key] = r
		}
		for _, c := range p.Columns {
			cols[c.Key] = c
		}
	}
	var lines []string
	for _, rowKey := range sortedKeys(value) {
		row := rows[rowKey]
		subRows := value[rowKey]
		for _, subRowKey := range sortedKeys(subRows) {
			columns := subRows[subRowKey]
			for _, colKey := range sortedKeys(columns) {
				subCols := columns[colKey]
				if subCols == nil {
					continue
				}
				col := cols[colKey]
				lines = append(lines, fmt.Sprintf("%s / %s / %s: %s",
					labelOr(row.Label, rowKey),
					labels(row.SubRows, []string{subRowKey}),
					labelOr(col.Label, colKey),
					labels(col.SubColumns, subCols)))
			}
		}
	}
	return strings.Join(lines, "\n")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
