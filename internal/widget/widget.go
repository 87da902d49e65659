package widget

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// --- Core documents ---

// Widget is a named, typed, ordered field definition.
type Widget struct {
	ClientID    string
	Key         string
	Type        Type
	Title       string
	Order       int
	Width       Width
	Properties  Properties
	Conditional *Conditional
}

// widgetJSON is the persisted shape of a widget. Properties are decoded in a
// second pass once the type is known.
type widgetJSON struct {
	ClientID    string          `json:"clientId"`
	Key         string          `json:"key,omitempty"`
	Type        Type            `json:"type"`
	Title       string          `json:"title"`
	Order       int             `json:"order"`
	Width       Width           `json:"width,omitempty"`
	Properties  json.RawMessage `json:"properties,omitempty"`
	Conditional *Conditional    `json:"conditional,omitempty"`
}

// MarshalJSON encodes the widget in its persisted shape.
func (w Widget) MarshalJSON() ([]byte, error) {
	out := widgetJSON{
		ClientID:    w.ClientID,
		Key:         w.Key,
		Type:        w.Type,
		Title:       w.Title,
		Order:       w.Order,
		Width:       w.Width,
		Conditional: w.Conditional,
	}
	if w.Properties != nil {
		raw, err := json.Marshal(w.Properties)
		if err != nil {
			return nil, fmt.Errorf("marshaling properties of widget %q: %w", w.ClientID, err)
		}
		out.Properties = raw
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes a widget, choosing the properties shape from its
// type. An unrecognized type is an error.
func (w *Widget) UnmarshalJSON(data []byte) error {
	var in widgetJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	props, err := NewProperties(in.Type)
	if err != nil {
		return fmt.Errorf("widget %q: %w", in.ClientID, err)
	}
	if len(in.Properties) > 0 && !bytes.Equal(in.Properties, []byte("null")) {
		if err := json.Unmarshal(in.Properties, props); err != nil {
			return fmt.Errorf("widget %q: parsing %s properties: %w", in.ClientID, in.Type, err)
		}
	}
	*w = Widget{
		ClientID:    in.ClientID,
		Key:         in.Key,
		Type:        in.Type,
		Title:       in.Title,
		Order:       in.Order,
		Width:       in.Width,
		Properties:  props,
		Conditional: in.Conditional,
	}
	return nil
}

// Validate checks the widget's own shape: identity, type, layout and
// properties. Condition references are checked by the aggregator, which
// sees the whole document.
func (w *Widget) Validate() []error {
	var errs []error
	if w.ClientID == "" {
		errs = append(errs, violation(w.ClientID, "clientId", "clientId is required"))
	}
	if err := ValidateType(w.Type); err != nil {
		return append(errs, violation(w.ClientID, "type", "%v", err))
	}
	if w.Title == "" {
		errs = append(errs, violation(w.ClientID, "title", "title is required"))
	}
	if w.Width != "" {
		if err := ValidateWidth(w.Width); err != nil {
			errs = append(errs, violation(w.ClientID, "width", "%v", err))
		}
	}
	props := w.Properties
	if props == nil {
		props, _ = NewProperties(w.Type)
	}
	if props.WidgetType() != w.Type {
		return append(errs, violation(w.ClientID, "properties", "%s properties supplied for a %s widget", props.WidgetType(), w.Type))
	}
	return append(errs, props.validate(w.ClientID)...)
}

// Children returns the nested widgets of a CONDITIONAL widget, or nil.
func (w *Widget) Children() []Widget {
	if p, ok := w.Properties.(*ConditionalProperties); ok {
		return p.Widgets
	}
	return nil
}

// Section is an ordered container of widgets (primary tagging).
type Section struct {
	ClientID string   `json:"clientId"`
	Title    string   `json:"title"`
	Tooltip  string   `json:"tooltip,omitempty"`
	Order    int      `json:"order"`
	Widgets  []Widget `json:"widgets"`
}

// Framework is the aggregate root: sections for primary tagging plus a flat
// widget list for secondary tagging.
type Framework struct {
	ID       string    `json:"id"`
	Title    string    `json:"title"`
	Sections []Section `json:"sections"`
	Widgets  []Widget  `json:"widgets"`
}

// Clone returns a deep copy of the framework.
func (f *Framework) Clone() (*Framework, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("cloning framework %q: %w", f.ID, err)
	}
	var out Framework
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("cloning framework %q: %w", f.ID, err)
	}
	return &out, nil
}

// --- Document order ---

// Location describes where a widget lives in a framework.
type Location struct {
	// SectionID is the owning section, empty for secondary-tagging widgets
	// and their nested children.
	SectionID string
	// ParentID is the clientId of the CONDITIONAL widget a nested widget
	// belongs to; empty at the top level.
	ParentID string
	// Position is the widget's index in framework document order.
	Position int
}

// Placed is a widget together with its location.
type Placed struct {
	Widget   *Widget
	Location Location
}

// DocumentOrder lists every widget in framework document order: sections by
// order, each section's widgets by order, then the secondary widgets by
// order. A CONDITIONAL's nested widgets follow it immediately. Pointers
// refer into f and may be used for in-place edits.
func (f *Framework) DocumentOrder() []Placed {
	var out []Placed
	var visit func(ws []Widget, sectionID, parentID string)
	visit = func(ws []Widget, sectionID, parentID string) {
		for _, i := range sortedWidgets(ws) {
			w := &ws[i]
			out = append(out, Placed{Widget: w, Location: Location{
				SectionID: sectionID,
				ParentID:  parentID,
				Position:  len(out),
			}})
			if p, ok := w.Properties.(*ConditionalProperties); ok {
				visit(p.Widgets, sectionID, w.ClientID)
			}
		}
	}
	for _, si := range sortedSections(f.Sections) {
		visit(f.Sections[si].Widgets, f.Sections[si].ClientID, "")
	}
	visit(f.Widgets, "", "")
	return out
}

// Find returns the widget with the given clientId.
func (f *Framework) Find(clientID string) (Placed, bool) {
	for _, p := range f.DocumentOrder() {
		if p.Widget.ClientID == clientID {
			return p, true
		}
	}
	return Placed{}, false
}

// Section returns the section with the given clientId.
func (f *Framework) Section(clientID string) (*Section, bool) {
	for i := range f.Sections {
		if f.Sections[i].ClientID == clientID {
			return &f.Sections[i], true
		}
	}
	return nil, false
}

// Siblings returns a pointer to the slice that holds the widgets sharing
// loc's nesting level, so callers can append or remove in place.
func (f *Framework) Siblings(loc Location) (*[]Widget, error) {
	if loc.ParentID != "" {
		parent, ok := f.Find(loc.ParentID)
		if !ok {
			return nil, fmt.Errorf("parent widget %q not found", loc.ParentID)
		}
		props, ok := parent.Widget.Properties.(*ConditionalProperties)
		if !ok {
			return nil, fmt.Errorf("widget %q is not a %s widget", loc.ParentID, TypeConditional)
		}
		return &props.Widgets, nil
	}
	if loc.SectionID != "" {
		s, ok := f.Section(loc.SectionID)
		if !ok {
			return nil, fmt.Errorf("section %q not found", loc.SectionID)
		}
		return &s.Widgets, nil
	}
	return &f.Widgets, nil
}

func sortedWidgets(ws []Widget) []int {
	idx := make([]int, len(ws))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ws[idx[a]].Order < ws[idx[b]].Order })
	return idx
}

func sortedSections(ss []Section) []int {
	idx := make([]int, len(ss))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return ss[idx[a]].Order < ss[idx[b]].Order })
	return idx
}
