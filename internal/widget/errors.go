package widget

import (
	"errors"
	"fmt"
)

// ErrMissingAttribute marks a condition leaf whose referenced widget has no
// attribute on the entry being evaluated. It is never returned to callers as
// a failure; evaluation degrades to "not satisfied" and the event is logged.
var ErrMissingAttribute = errors.New("missing attribute")

// SchemaViolation reports that a widget's properties, or an attribute's data,
// do not match the shape required by the widget type.
type SchemaViolation struct {
	WidgetID string
	Field    string
	Reason   string
}

func (e *SchemaViolation) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("widget %q: %s", e.WidgetID, e.Reason)
	}
	return fmt.Sprintf("widget %q: %s: %s", e.WidgetID, e.Field, e.Reason)
}

// ReferentialIntegrityError reports a condition leaf that references a widget
// that does not exist or that does not come strictly earlier in document
// order than the conditional widget itself.
type ReferentialIntegrityError struct {
	WidgetID string
	Key      string
	Reason   string
}

func (e *ReferentialIntegrityError) Error() string {
	return fmt.Sprintf("widget %q: condition references %q: %s", e.WidgetID, e.Key, e.Reason)
}

// DuplicateKeyError reports two siblings sharing a key or clientId.
type DuplicateKeyError struct {
	Scope string
	Key   string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("duplicate key %q in %s", e.Key, e.Scope)
}

// Report collects every problem found while validating a framework. Field
// errors belong to one widget and render inline; framework errors block
// save/publish as a whole.
type Report struct {
	FieldErrors     map[string][]error
	FrameworkErrors []error
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{FieldErrors: make(map[string][]error)}
}

// AddField attaches err to the widget with the given clientId.
func (r *Report) AddField(widgetID string, err error) {
	r.FieldErrors[widgetID] = append(r.FieldErrors[widgetID], err)
}

// AddFramework records a framework-level error.
func (r *Report) AddFramework(err error) {
	r.FrameworkErrors = append(r.FrameworkErrors, err)
}

// OK reports whether no errors were recorded.
func (r *Report) OK() bool {
	return len(r.FieldErrors) == 0 && len(r.FrameworkErrors) == 0
}

// Err folds the report into a single error, or nil when the report is clean.
func (r *Report) Err() error {
	if r.OK() {
		return nil
	}
	var all []error
	all = append(all, r.FrameworkErrors...)
	for _, errs := range r.FieldErrors {
		all = append(all, errs...)
	}
	return errors.Join(all...)
}

// Summary renders a short human-readable description of the report.
func (r *Report) Summary() string {
	if r.OK() {
		return "framework is valid"
	}
	return fmt.Sprintf("%d framework error(s), %d widget(s) with field errors",
		len(r.FrameworkErrors), len(r.FieldErrors))
}
