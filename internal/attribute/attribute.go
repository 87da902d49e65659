// Package attribute models the values users supply for widgets on an entry.
//
// Every widget type has exactly one Data shape (see NewData). An Attribute
// pairs that data with the clientId of the widget it answers; a Set holds
// the attributes of one entry. A cleared attribute is absent from its Set,
// never present with a zero value.
package attribute

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/HendryAvila/deepframe/internal/widget"
)

// --- Data sum type ---

// Data is the stored answer for one widget, shaped by the widget's type.
type Data interface {
	WidgetType() widget.Type
	// Empty reports whether the value holds no selection or content.
	Empty() bool
}

type TextData struct {
	Value string `json:"value"`
}

type NumberData struct {
	Value float64 `json:"value"`
}

type DateData struct {
	Value string `json:"value"`
}

type DateRangeData struct {
	Value widget.DateRange `json:"value"`
}

type TimeData struct {
	Value string `json:"value"`
}

type TimeRangeData struct {
	Value widget.TimeRange `json:"value"`
}

type ScaleData struct {
	Value string `json:"value"`
}

type SingleSelectData struct {
	Value string `json:"value"`
}

type MultiSelectData struct {
	Value []string `json:"value"`
}

// Matrix1DData maps row key -> cell key -> selected.
type Matrix1DData struct {
	Value map[string]map[string]bool `json:"value"`
}

// Matrix2DData maps row key -> sub-row key -> column key -> sub-column keys.
type Matrix2DData struct {
	Value map[string]map[string]map[string][]string `json:"value"`
}

type OrganigramData struct {
	Value []string `json:"value"`
}

type GeoData struct {
	Value []string `json:"value"`
}

// ConditionalData holds the attributes of a CONDITIONAL widget's nested
// widgets, keyed by their clientId.
type ConditionalData struct {
	Value map[string]Attribute `json:"value"`
}

func (TextData) WidgetType() widget.Type         { return widget.TypeText }
func (NumberData) WidgetType() widget.Type       { return widget.TypeNumber }
func (DateData) WidgetType() widget.Type         { return widget.TypeDate }
func (DateRangeData) WidgetType() widget.Type    { return widget.TypeDateRange }
func (TimeData) WidgetType() widget.Type         { return widget.TypeTime }
func (TimeRangeData) WidgetType() widget.Type    { return widget.TypeTimeRange }
func (ScaleData) WidgetType() widget.Type        { return widget.TypeScale }
func (SingleSelectData) WidgetType() widget.Type { return widget.TypeSingleSelect }
func (MultiSelectData) WidgetType() widget.Type  { return widget.TypeMultiSelect }
func (Matrix1DData) WidgetType() widget.Type     { return widget.TypeMatrix1D }
func (Matrix2DData) WidgetType() widget.Type     { return widget.TypeMatrix2D }
func (OrganigramData) WidgetType() widget.Type   { return widget.TypeOrganigram }
func (GeoData) WidgetType() widget.Type          { return widget.TypeGeo }
func (ConditionalData) WidgetType() widget.Type  { return widget.TypeConditional }

func (d TextData) Empty() bool         { return d.Value == "" }
func (d NumberData) Empty() bool       { return false }
func (d DateData) Empty() bool         { return d.Value == "" }
func (d DateRangeData) Empty() bool    { return d.Value.StartDate == "" && d.Value.EndDate == "" }
func (d TimeData) Empty() bool         { return d.Value == "" }
func (d TimeRangeData) Empty() bool    { return d.Value.StartTime == "" && d.Value.EndTime == "" }
func (d ScaleData) Empty() bool        { return d.Value == "" }
func (d SingleSelectData) Empty() bool { return d.Value == "" }
func (d MultiSelectData) Empty() bool  { return len(d.Value) == 0 }
func (d Matrix1DData) Empty() bool     { return len(d.SelectedCells()) == 0 }
func (d Matrix2DData) Empty() bool     { return len(d.SelectedColumns()) == 0 }
func (d OrganigramData) Empty() bool   { return len(d.Value) == 0 }
func (d GeoData) Empty() bool          { return len(d.Value) == 0 }
func (d ConditionalData) Empty() bool  { return len(d.Value) == 0 }

// dataFactories maps every widget type to a decoder target for its data.
// Like the properties table there is no fallback entry.
var dataFactories = map[widget.Type]func() Data{
	widget.TypeText:         func() Data { return &TextData{} },
	widget.TypeNumber:       func() Data { return &NumberData{} },
	widget.TypeDate:         func() Data { return &DateData{} },
	widget.TypeDateRange:    func() Data { return &DateRangeData{} },
	widget.TypeTime:         func() Data { return &TimeData{} },
	widget.TypeTimeRange:    func() Data { return &TimeRangeData{} },
	widget.TypeScale:        func() Data { return &ScaleData{} },
	widget.TypeSingleSelect: func() Data { return &SingleSelectData{} },
	widget.TypeMultiSelect:  func() Data { return &MultiSelectData{} },
	widget.TypeMatrix1D:     func() Data { return &Matrix1DData{} },
	widget.TypeMatrix2D:     func() Data { return &Matrix2DData{} },
	widget.TypeOrganigram:   func() Data { return &OrganigramData{} },
	widget.TypeGeo:          func() Data { return &GeoData{} },
	widget.TypeConditional:  func() Data { return &ConditionalData{} },
}

// HasSchema reports whether t has a data shape registered.
func HasSchema(t widget.Type) bool {
	_, ok := dataFactories[t]
	return ok
}

// DecodeData decodes raw JSON ({"value": ...}) into the data shape for t.
// The returned Data is a value, never a pointer.
func DecodeData(t widget.Type, raw json.RawMessage) (Data, error) {
	factory, ok := dataFactories[t]
	if !ok {
		return nil, fmt.Errorf("no attribute schema for widget type %q", t)
	}
	target := factory()
	if err := json.Unmarshal(raw, target); err != nil {
		return nil, fmt.Errorf("parsing %s attribute: %w", t, err)
	}
	return deref(target), nil
}

// deref turns the pointer produced by a factory back into a value.
func deref(d Data) Data {
	switch v := d.(type) {
	case *TextData:
		return *v
	case *NumberData:
		return *v
	case *DateData:
		return *v
	case *DateRangeData:
		return *v
	case *TimeData:
		return *v
	case *TimeRangeData:
		return *v
	case *ScaleData:
		return *v
	case *SingleSelectData:
		return *v
	case *MultiSelectData:
		return *v
	case *Matrix1DData:
		return *v
	case *Matrix2DData:
		return *v
	case *OrganigramData:
		return *v
	case *GeoData:
		return *v
	case *ConditionalData:
		return *v
	}
	return d
}

// --- Attribute ---

// Attribute is the value supplied for one widget on one entry.
type Attribute struct {
	WidgetID string
	Type     widget.Type
	Data     Data
}

type attributeJSON struct {
	WidgetID string          `json:"widgetId"`
	Type     widget.Type     `json:"widgetType"`
	Data     json.RawMessage `json:"data"`
}

// MarshalJSON encodes the attribute with its widget type so it can be
// decoded without the framework at hand.
func (a Attribute) MarshalJSON() ([]byte, error) {
	raw, err := json.Marshal(a.Data)
	if err != nil {
		return nil, fmt.Errorf("marshaling attribute for widget %q: %w", a.WidgetID, err)
	}
	return json.Marshal(attributeJSON{WidgetID: a.WidgetID, Type: a.Type, Data: raw})
}

// UnmarshalJSON decodes an attribute, choosing the data shape by widgetType.
func (a *Attribute) UnmarshalJSON(b []byte) error {
	var in attributeJSON
	if err := json.Unmarshal(b, &in); err != nil {
		return err
	}
	if len(in.Data) == 0 || bytes.Equal(in.Data, []byte("null")) {
		return fmt.Errorf("attribute for widget %q has no data", in.WidgetID)
	}
	data, err := DecodeData(in.Type, in.Data)
	if err != nil {
		return fmt.Errorf("attribute for widget %q: %w", in.WidgetID, err)
	}
	*a = Attribute{WidgetID: in.WidgetID, Type: in.Type, Data: data}
	return nil
}

// New builds an attribute for w from already-decoded data.
func New(w *widget.Widget, data Data) Attribute {
	return Attribute{WidgetID: w.ClientID, Type: w.Type, Data: data}
}

// --- Set ---

// Set holds the attributes of one entry keyed by widget clientId.
type Set map[string]Attribute

// Put stores a. Nil data clears the attribute instead.
func (s Set) Put(a Attribute) {
	if a.Data == nil {
		delete(s, a.WidgetID)
		return
	}
	s[a.WidgetID] = a
}

// Clear removes the attribute for widgetID. Clearing an absent attribute is
// a no-op.
func (s Set) Clear(widgetID string) {
	delete(s, widgetID)
}

// Lookup returns the attribute for widgetID, if present.
func (s Set) Lookup(widgetID string) (Attribute, bool) {
	a, ok := s[widgetID]
	return a, ok
}
