// Package registry maps each widget type to the implementations that edit and
// render its attributes. It is the only place that dispatches on a widget's
// type for presentation; callers go through Resolve.
//
// A Registry is immutable once built and safe for concurrent use.
package registry

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/widget"
)

// Editor turns user input into attribute data for a widget.
type Editor interface {
	// Parse decodes raw ({"value": ...}) into validated data for w.
	Parse(w *widget.Widget, raw json.RawMessage) (attribute.Data, error)
	// Default returns the data implied by w's configured default, or nil.
	Default(w *widget.Widget) attribute.Data
}

// Viewer renders an attribute in full.
type Viewer interface {
	View(w *widget.Widget, data attribute.Data) string
}

// CompactViewer renders an attribute on a single short line.
type CompactViewer interface {
	Compact(w *widget.Widget, data attribute.Data) string
}

// Implementation is the capability set registered for one widget type.
type Implementation struct {
	Editor        Editor
	Viewer        Viewer
	CompactViewer CompactViewer
}

// Registry resolves widget types to implementations.
type Registry struct {
	impls map[widget.Type]Implementation
}

// New builds a registry. Construction fails unless every widget type has a
// properties schema, an attribute schema and all three capabilities.
func New(impls map[widget.Type]Implementation) (*Registry, error) {
	var errs []error
	for _, t := range widget.Types {
		if _, err := widget.NewProperties(t); err != nil {
			errs = append(errs, err)
		}
		if !attribute.HasSchema(t) {
			errs = append(errs, fmt.Errorf("no attribute schema for widget type %q", t))
		}
		impl, ok := impls[t]
		if !ok {
			errs = append(errs, fmt.Errorf("no implementation registered for widget type %q", t))
			continue
		}
		if impl.Editor == nil {
			errs = append(errs, fmt.Errorf("widget type %q has no editor", t))
		}
		if impl.Viewer == nil {
			errs = append(errs, fmt.Errorf("widget type %q has no viewer", t))
		}
		if impl.CompactViewer == nil {
			errs = append(errs, fmt.Errorf("widget type %q has no compact viewer", t))
		}
	}
	for t := range impls {
		if err := widget.ValidateType(t); err != nil {
			errs = append(errs, fmt.Errorf("registering implementation: %w", err))
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("building widget registry: %w", errors.Join(errs...))
	}
	copied := make(map[widget.Type]Implementation, len(impls))
	for t, impl := range impls {
		copied[t] = impl
	}
	return &Registry{impls: copied}, nil
}

// MustNew is like New but panics on an incomplete registry. It is meant for
// program start-up.
func MustNew(impls map[widget.Type]Implementation) *Registry {
	r, err := New(impls)
	if err != nil {
		panic(err)
	}
	return r
}

// Resolve returns the implementation for t. Every valid type resolves; the
// error is only for values outside the closed enumeration.
func (r *Registry) Resolve(t widget.Type) (Implementation, error) {
	impl, ok := r.impls[t]
	if !ok {
		return Implementation{}, fmt.Errorf("resolving widget type: %w", widget.ValidateType(t))
	}
	return impl, nil
}

// Parse resolves w's editor and parses raw with it.
func (r *Registry) Parse(w *widget.Widget, raw json.RawMessage) (attribute.Attribute, error) {
	impl, err := r.Resolve(w.Type)
	if err != nil {
		return attribute.Attribute{}, err
	}
	data, err := impl.Editor.Parse(w, raw)
	if err != nil {
		return attribute.Attribute{}, err
	}
	return attribute.New(w, data), nil
}

// View renders a through w's viewer.
func (r *Registry) View(w *widget.Widget, a attribute.Attribute) string {
	impl, err := r.Resolve(w.Type)
	if err != nil || !fits(w, a) {
		return ""
	}
	return impl.Viewer.View(w, a.Data)
}

// Compact renders a through w's compact viewer.
func (r *Registry) Compact(w *widget.Widget, a attribute.Attribute) string {
	impl, err := r.Resolve(w.Type)
	if err != nil || !fits(w, a) {
		return ""
	}
	return impl.CompactViewer.Compact(w, a.Data)
}

func fits(w *widget.Widget, a attribute.Attribute) bool {
	return a.Data != nil && a.Data.WidgetType() == w.Type
}
