package attribute

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/deepframe/internal/widget"
)

// Validate checks that a answers w and that its data matches the widget's
// value contract. Problems come back as *widget.SchemaViolation values
// joined into one error.
func Validate(w *widget.Widget, a Attribute) error {
	if a.WidgetID != w.ClientID {
		return violation(w, "widgetId", "attribute belongs to widget %q", a.WidgetID)
	}
	if a.Type != w.Type {
		return violation(w, "widgetType", "attribute type %s does not match widget type %s", a.Type, w.Type)
	}
	if a.Data == nil {
		return violation(w, "data", "data is required")
	}
	if a.Data.WidgetType() != w.Type {
		return violation(w, "data", "%s data supplied for a %s widget", a.Data.WidgetType(), w.Type)
	}
	return errors.Join(validateData(w, a.Data)...)
}

func violation(w *widget.Widget, field, format string, args ...any) error {
	return &widget.SchemaViolation{WidgetID: w.ClientID, Field: field, Reason: fmt.Sprintf(format, args...)}
}

func validateData(w *widget.Widget, data Data) []error {
	switch d := data.(type) {
	case TextData:
		return nil
	case NumberData:
		p, _ := w.Properties.(*widget.NumberProperties)
		if p == nil {
			return nil
		}
		if p.MinValue != nil && d.Value < *p.MinValue {
			return []error{violation(w, "value", "%v is below minimum %v", d.Value, *p.MinValue)}
		}
		if p.MaxValue != nil && d.Value > *p.MaxValue {
			return []error{violation(w, "value", "%v is above maximum %v", d.Value, *p.MaxValue)}
		}
		return nil
	case DateData:
		if _, err := widget.ParseDate(d.Value); err != nil {
			return []error{violation(w, "value", "invalid date %q", d.Value)}
		}
		return nil
	case TimeData:
		if _, err := widget.ParseTime(d.Value); err != nil {
			return []error{violation(w, "value", "invalid time %q", d.Value)}
		}
		return nil
	case DateRangeData:
		if err := widget.CheckDateRange(d.Value); err != nil {
			return []error{violation(w, "value", "%v", err)}
		}
		return nil
	case TimeRangeData:
		if err := widget.CheckTimeRange(d.Value); err != nil {
			return []error{violation(w, "value", "%v", err)}
		}
		return nil
	case ScaleData:
		p, _ := w.Properties.(*widget.ScaleProperties)
		keys := map[string]bool{}
		if p != nil {
			for _, o := range p.Options {
				keys[o.Key] = true
			}
		}
		if !keys[d.Value] {
			return []error{violation(w, "value", "%q is not a scale option", d.Value)}
		}
		return nil
	case SingleSelectData:
		p, _ := w.Properties.(*widget.SingleSelectProperties)
		if p == nil || !hasOption(p.Options, d.Value) {
			return []error{violation(w, "value", "%q is not an option", d.Value)}
		}
		return nil
	case MultiSelectData:
		p, _ := w.Properties.(*widget.MultiSelectProperties)
		var errs []error
		seen := map[string]bool{}
		for _, k := range d.Value {
			if p == nil || !hasOption(p.Options, k) {
				errs = append(errs, violation(w, "value", "%q is not an option", k))
			}
			if seen[k] {
				errs = append(errs, violation(w, "value", "%q selected twice", k))
			}
			seen[k] = true
		}
		return errs
	case Matrix1DData:
		return validateMatrix1D(w, d)
	case Matrix2DData:
		return validateMatrix2D(w, d)
	case OrganigramData:
		p, _ := w.Properties.(*widget.OrganigramProperties)
		var errs []error
		for _, k := range d.Value {
			if p == nil || p.Options == nil {
				errs = append(errs, violation(w, "value", "%q is not an organigram node", k))
				continue
			}
			if _, ok := p.Options.Find(k); !ok {
				errs = append(errs, violation(w, "value", "%q is not an organigram node", k))
			}
		}
		return errs
	case GeoData:
		var errs []error
		for i, k := range d.Value {
			if k == "" {
				errs = append(errs, violation(w, fmt.Sprintf("value[%d]", i), "empty region key"))
			}
		}
		return errs
	case ConditionalData:
		return validateConditional(w, d)
	}
	return []error{violation(w, "data", "unsupported data %T", data)}
}

func hasOption(opts []widget.Option, key string) bool {
	for _, o := range opts {
		if o.Key == key {
			return true
		}
	}
	return false
}

func validateMatrix1D(w *widget.Widget, d Matrix1DData) []error {
	p, _ := w.Properties.(*widget.Matrix1DProperties)
	rows := map[string]widget.Row{}
	if p != nil {
		for _, r := range p.Rows {
			rows[r.Key] = r
		}
	}
	var errs []error
	for rowKey, cells := range d.Value {
		row, ok := rows[rowKey]
		if !ok {
			errs = append(errs, violation(w, "value", "%q is not a row", rowKey))
			continue
		}
		for cellKey := range cells {
			if !hasOption(row.Cells, cellKey) {
				errs = append(errs, violation(w, "value", "%q is not a cell of row %q", cellKey, rowKey))
			}
		}
	}
	return errs
}

func validateMatrix2D(w *widget.Widget, d Matrix2DData) []error {
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
	var errs []error
	for rowKey, subRows := range d.Value {
		row, ok := rows[rowKey]
		if !ok {
			errs = append(errs, violation(w, "value", "%q is not a row", rowKey))
			continue
		}
		for subRowKey, columns := range subRows {
			if !hasOption(row.SubRows, subRowKey) {
				errs = append(errs, violation(w, "value", "%q is not a sub-row of %q", subRowKey, rowKey))
				continue
			}
			for colKey, subCols := range columns {
				col, ok := cols[colKey]
				if !ok {
					errs = append(errs, violation(w, "value", "%q is not a column", colKey))
					continue
				}
				for _, sc := range subCols {
					if !hasOption(col.SubColumns, sc) {
						errs = append(errs, violation(w, "value", "%q is not a sub-column of %q", sc, colKey))
					}
				}
			}
		}
	}
	return errs
}

func validateConditional(w *widget.Widget, d ConditionalData) []error {
	kids := w.Children()
	children := make(map[string]*widget.Widget, len(kids))
	for i := range kids {
		children[kids[i].ClientID] = &kids[i]
	}
	var errs []error
	for id, a := range d.Value {
		child, ok := children[id]
		if !ok {
			errs = append(errs, violation(w, "value", "%q is not a nested widget", id))
			continue
		}
		if err := Validate(child, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}
