// Package framework is the section/framework aggregator: the only way a
// framework document is mutated. Every edit runs against a private copy of
// the document and is committed only if it leaves orders strict and
// introduces no new validation errors, so a rejected edit changes nothing.
//
// An Aggregator serializes its operations with a mutex and may be shared
// between goroutines.
package framework

import (
	"errors"
	"fmt"
	"sync"

	"github.com/HendryAvila/deepframe/internal/condition"
	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound is returned when a section or widget id does not exist.
var ErrNotFound = errors.New("not found")

// Aggregator owns one framework document and applies edits to it.
type Aggregator struct {
	mu            sync.Mutex
	doc           *widget.Framework
	widgetErrors  map[string][]error
	log           *zap.Logger
	newID         func() string
	maxConditions int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithLogger sets the aggregator's logger.
func WithLogger(log *zap.Logger) Option {
	return func(a *Aggregator) {
		if log != nil {
			a.log = log
		}
	}
}

// WithIDs replaces the clientId generator (uuid by default).
func WithIDs(fn func() string) Option {
	return func(a *Aggregator) { a.newID = fn }
}

// WithMaxConditions caps the condition leaves of a single widget.
func WithMaxConditions(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.maxConditions = n
		}
	}
}

// New wraps doc. The aggregator takes ownership; callers must not modify
// doc afterwards and should read through Snapshot instead.
func New(doc *widget.Framework, opts ...Option) *Aggregator {
	if doc == nil {
		doc = &widget.Framework{}
	}
	if doc.Sections == nil {
		doc.Sections = []widget.Section{}
	}
	if doc.Widgets == nil {
		doc.Widgets = []widget.Widget{}
	}
	a := &Aggregator{
		doc:           doc,
		widgetErrors:  make(map[string][]error),
		log:           zap.NewNop(),
		newID:         uuid.NewString,
		maxConditions: condition.DefaultMaxConditions,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Snapshot returns a deep copy of the current document.
func (a *Aggregator) Snapshot() (*widget.Framework, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.doc.Clone()
}

// Validate reports every problem in the current document.
func (a *Aggregator) Validate() *widget.Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Validate(a.doc, a.maxConditions)
}

// edit applies fn to a copy of the document and commits the copy when it
// introduces no new errors. Must be called with a.mu held.
func (a *Aggregator) edit(op string, fn func(doc *widget.Framework) error) error {
	before := errorSet(Validate(a.doc, a.maxConditions))
	draft, err := a.doc.Clone()
	if err != nil {
		return err
	}
	if err := fn(draft); err != nil {
		a.log.Debug("edit rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	syncParents(draft)

	var introduced []error
	for _, err := range reportErrors(Validate(draft, a.maxConditions)) {
		if !before[err.Error()] {
			introduced = append(introduced, err)
		}
	}
	if len(introduced) > 0 {
		err := fmt.Errorf("%s rejected: %w", op, errors.Join(introduced...))
		a.log.Debug("edit rejected", zap.String("op", op), zap.Error(err))
		return err
	}
	a.doc = draft
	return nil
}

// syncParents rewrites every conditional's parent list from its leaves.
func syncParents(f *widget.Framework) {
	for _, p := range f.DocumentOrder() {
		if c := p.Widget.Conditional; c != nil {
			c.Parents = condition.References(c.Tree)
		}
	}
}

func reportErrors(r *widget.Report) []error {
	all := append([]error(nil), r.FrameworkErrors...)
	for _, errs := range r.FieldErrors {
		all = append(all, errs...)
	}
	return all
}

func errorSet(r *widget.Report) map[string]bool {
	set := make(map[string]bool)
	for _, err := range reportErrors(r) {
		set[err.Error()] = true
	}
	return set
}

// --- Sections ---

// AddSection appends a section after the existing ones.
func (a *Aggregator) AddSection(d widget.SectionDraft) (widget.Section, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out widget.Section
	err := a.edit("add section", func(doc *widget.Framework) error {
		s, err := d.Build(a.newID)
		if err != nil {
			return err
		}
		if _, exists := doc.Section(s.ClientID); exists {
			return &widget.DuplicateKeyError{Scope: fmt.Sprintf("framework %q sections", doc.ID), Key: s.ClientID}
		}
		s.Order = nextOrder(doc.Sections, sectionOrder)
		doc.Sections = append(doc.Sections, s)
		out = s
		return nil
	})
	return out, err
}

// DeleteSection removes a section with all its widgets, pruning every
// condition leaf that referenced one of them. It returns the clientIds of
// widgets whose conditions were pruned.
func (a *Aggregator) DeleteSection(sectionID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var pruned []string
	var removed []string
	err := a.edit("delete section", func(doc *widget.Framework) error {
		idx := -1
		for i := range doc.Sections {
			if doc.Sections[i].ClientID == sectionID {
				idx = i
				break
			}
		}
		if idx < 0 {
			return fmt.Errorf("section %q: %w", sectionID, ErrNotFound)
		}
		for i := range doc.Sections[idx].Widgets {
			removed = append(removed, subtreeIDs(&doc.Sections[idx].Widgets[i])...)
		}
		doc.Sections = append(doc.Sections[:idx], doc.Sections[idx+1:]...)
		pruned = pruneReferences(doc, removed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.forgetErrors(removed)
	return pruned, nil
}

// ReorderSection moves a section to newOrder, renumbering later sections.
func (a *Aggregator) ReorderSection(sectionID string, newOrder int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.edit("reorder section", func(doc *widget.Framework) error {
		for i := range doc.Sections {
			if doc.Sections[i].ClientID == sectionID {
				return reorder(doc.Sections, i, newOrder, sectionOrder)
			}
		}
		return fmt.Errorf("section %q: %w", sectionID, ErrNotFound)
	})
}

// --- Widgets ---

// AddWidget builds d and appends it to a section, or to the secondary
// widget list when sectionID is empty. The widget gets a fresh clientId
// when the draft has none and order max(siblings)+1.
func (a *Aggregator) AddWidget(sectionID string, d widget.Draft) (widget.Widget, error) {
	return a.add("add widget", widget.Location{SectionID: sectionID}, d)
}

// AddNestedWidget appends d to the nested widgets of the CONDITIONAL widget
// parentID.
func (a *Aggregator) AddNestedWidget(parentID string, d widget.Draft) (widget.Widget, error) {
	return a.add("add nested widget", widget.Location{ParentID: parentID}, d)
}

func (a *Aggregator) add(op string, loc widget.Location, d widget.Draft) (widget.Widget, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out widget.Widget
	err := a.edit(op, func(doc *widget.Framework) error {
		w, err := d.Build(a.newID)
		if err != nil {
			return err
		}
		if _, exists := doc.Find(w.ClientID); exists {
			return &widget.DuplicateKeyError{Scope: fmt.Sprintf("framework %q widgets", doc.ID), Key: w.ClientID}
		}
		if loc.ParentID != "" {
			if _, ok := doc.Find(loc.ParentID); !ok {
				return fmt.Errorf("parent widget %q: %w", loc.ParentID, ErrNotFound)
			}
		}
		if loc.SectionID != "" {
			if _, ok := doc.Section(loc.SectionID); !ok {
				return fmt.Errorf("section %q: %w", loc.SectionID, ErrNotFound)
			}
		}
		siblings, err := doc.Siblings(loc)
		if err != nil {
			return err
		}
		w.Order = nextOrder(*siblings, widgetOrder)
		*siblings = append(*siblings, w)
		out = w
		return nil
	})
	return out, err
}

// UpdateWidget overlays d on the widget. The type and clientId cannot
// change; a draft that would break the document is rejected whole.
func (a *Aggregator) UpdateWidget(clientID string, d widget.Draft) (widget.Widget, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var out widget.Widget
	err := a.edit("update widget", func(doc *widget.Framework) error {
		p, ok := doc.Find(clientID)
		if !ok {
			return fmt.Errorf("widget %q: %w", clientID, ErrNotFound)
		}
		w, err := d.Apply(*p.Widget)
		if err != nil {
			return err
		}
		*p.Widget = w
		out = w
		return nil
	})
	return out, err
}

// DeleteWidget removes a widget (and a CONDITIONAL's nested widgets) and
// prunes every condition leaf that referenced any of them. It returns the
// clientIds of widgets whose conditions were pruned.
func (a *Aggregator) DeleteWidget(clientID string) ([]string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	var pruned []string
	var removed []string
	err := a.edit("delete widget", func(doc *widget.Framework) error {
		p, ok := doc.Find(clientID)
		if !ok {
			return fmt.Errorf("widget %q: %w", clientID, ErrNotFound)
		}
		removed = subtreeIDs(p.Widget)
		siblings, err := doc.Siblings(p.Location)
		if err != nil {
			return err
		}
		kept := (*siblings)[:0]
		for _, w := range *siblings {
			if w.ClientID != clientID {
				kept = append(kept, w)
			}
		}
		*siblings = kept
		pruned = pruneReferences(doc, removed)
		return nil
	})
	if err != nil {
		return nil, err
	}
	a.forgetErrors(removed)
	return pruned, nil
}

// ReorderWidget moves a widget to newOrder among its siblings, renumbering
// later siblings so no two share an order.
func (a *Aggregator) ReorderWidget(clientID string, newOrder int) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.edit("reorder widget", func(doc *widget.Framework) error {
		p, ok := doc.Find(clientID)
		if !ok {
			return fmt.Errorf("widget %q: %w", clientID, ErrNotFound)
		}
		siblings, err := doc.Siblings(p.Location)
		if err != nil {
			return err
		}
		for i := range *siblings {
			if (*siblings)[i].ClientID == clientID {
				return reorder(*siblings, i, newOrder, widgetOrder)
			}
		}
		return fmt.Errorf("widget %q: %w", clientID, ErrNotFound)
	})
}

// subtreeIDs returns w's clientId followed by those of its nested widgets.
func subtreeIDs(w *widget.Widget) []string {
	ids := []string{w.ClientID}
	kids := w.Children()
	for i := range kids {
		ids = append(ids, subtreeIDs(&kids[i])...)
	}
	return ids
}

// pruneReferences removes condition leaves referencing any of ids from every
// widget in doc and returns the clientIds of the widgets it changed.
func pruneReferences(doc *widget.Framework, ids []string) []string {
	var changed []string
	for _, p := range doc.DocumentOrder() {
		c := p.Widget.Conditional
		if c == nil {
			continue
		}
		touched := false
		for _, id := range ids {
			tree, ok := condition.Prune(c.Tree, id)
			if ok {
				c.Tree = tree
				touched = true
			}
		}
		if touched {
			changed = append(changed, p.Widget.ClientID)
		}
	}
	return changed
}

// --- Widget errors ---

// SetWidgetError attaches err to a widget for display. It does not touch
// the document.
func (a *Aggregator) SetWidgetError(clientID string, err error) {
	if err == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.widgetErrors[clientID] = append(a.widgetErrors[clientID], err)
}

// ClearErrors detaches every widget error.
func (a *Aggregator) ClearErrors() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.widgetErrors = make(map[string][]error)
}

// WidgetErrors returns a copy of the attached widget errors.
func (a *Aggregator) WidgetErrors() map[string][]error {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make(map[string][]error, len(a.widgetErrors))
	for id, errs := range a.widgetErrors {
		out[id] = append([]error(nil), errs...)
	}
	return out
}

// forgetErrors drops errors attached to deleted widgets. Must be called
// with a.mu held.
func (a *Aggregator) forgetErrors(ids []string) {
	for _, id := range ids {
		delete(a.widgetErrors, id)
	}
}
