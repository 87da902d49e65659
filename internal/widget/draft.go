package widget

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Draft is a partially filled widget. Every field is optional until Build or
// Apply turns it into a validated Widget; consumers never see half-built
// widgets.
type Draft struct {
	ClientID    string
	Key         *string
	Type        Type
	Title       *string
	Width       *Width
	Properties  Properties
	Conditional *Conditional
	// DropConditional removes an existing conditional on Apply.
	DropConditional bool
}

// Build creates a new widget from the draft. newID supplies a clientId when
// the draft has none. Order is left for the aggregator to assign.
func (d Draft) Build(newID func() string) (Widget, error) {
	if d.Type == "" {
		return Widget{}, &SchemaViolation{WidgetID: d.ClientID, Field: "type", Reason: "type is required"}
	}
	if err := ValidateType(d.Type); err != nil {
		return Widget{}, &SchemaViolation{WidgetID: d.ClientID, Field: "type", Reason: err.Error()}
	}
	w := Widget{
		ClientID: d.ClientID,
		Type:     d.Type,
		Width:    WidthFull,
	}
	if w.ClientID == "" {
		w.ClientID = newID()
	}
	props, _ := NewProperties(d.Type)
	w.Properties = props
	return d.apply(w)
}

// Apply overlays the draft on an existing widget. The widget type is
// immutable: a draft naming a different type is rejected.
func (d Draft) Apply(w Widget) (Widget, error) {
	if d.Type != "" && d.Type != w.Type {
		return Widget{}, &SchemaViolation{
			WidgetID: w.ClientID,
			Field:    "type",
			Reason:   fmt.Sprintf("type is immutable (%s -> %s)", w.Type, d.Type),
		}
	}
	if d.ClientID != "" && d.ClientID != w.ClientID {
		return Widget{}, &SchemaViolation{WidgetID: w.ClientID, Field: "clientId", Reason: "clientId is immutable"}
	}
	return d.apply(w)
}

func (d Draft) apply(w Widget) (Widget, error) {
	if d.Key != nil {
		w.Key = *d.Key
	}
	if d.Title != nil {
		w.Title = *d.Title
	}
	if d.Width != nil {
		w.Width = *d.Width
	}
	if d.Properties != nil {
		w.Properties = d.Properties
	}
	switch {
	case d.DropConditional:
		w.Conditional = nil
	case d.Conditional != nil:
		c := *d.Conditional
		w.Conditional = &c
	}
	if errs := w.Validate(); len(errs) > 0 {
		return Widget{}, errors.Join(errs...)
	}
	return w, nil
}

// ParseProperties decodes raw JSON into the properties shape for t.
func ParseProperties(t Type, raw json.RawMessage) (Properties, error) {
	props, err := NewProperties(t)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return props, nil
	}
	if err := json.Unmarshal(raw, props); err != nil {
		return nil, fmt.Errorf("parsing %s properties: %w", t, err)
	}
	return props, nil
}

// ParseConditional decodes raw JSON into a Conditional. It accepts either
// the full {"parentWidgets", "conditions"} shape or a bare condition tree.
func ParseConditional(raw json.RawMessage) (*Conditional, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, fmt.Errorf("parsing conditional: %w", err)
	}
	if _, ok := probe["conditions"]; ok {
		var c Conditional
		if err := json.Unmarshal(raw, &c); err != nil {
			return nil, fmt.Errorf("parsing conditional: %w", err)
		}
		return &c, nil
	}
	var tree Node
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("parsing condition tree: %w", err)
	}
	return &Conditional{Tree: tree}, nil
}

// SectionDraft is a partially filled section.
type SectionDraft struct {
	ClientID string
	Title    *string
	Tooltip  *string
}

// Build creates a section from the draft.
func (d SectionDraft) Build(newID func() string) (Section, error) {
	s := Section{ClientID: d.ClientID, Widgets: []Widget{}}
	if s.ClientID == "" {
		s.ClientID = newID()
	}
	if d.Title != nil {
		s.Title = *d.Title
	}
	if d.Tooltip != nil {
		s.Tooltip = *d.Tooltip
	}
	if s.Title == "" {
		return Section{}, &SchemaViolation{WidgetID: s.ClientID, Field: "title", Reason: "section title is required"}
	}
	return s, nil
}
