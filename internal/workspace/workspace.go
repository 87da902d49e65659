// Package workspace ties the framework aggregator, the widget registry and
// the store together for the transports. Edits to one framework are
// serialized: load, apply through an Aggregator, persist.
package workspace

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/condition"
	"github.com/HendryAvila/deepframe/internal/document"
	"github.com/HendryAvila/deepframe/internal/framework"
	"github.com/HendryAvila/deepframe/internal/registry"
	"github.com/HendryAvila/deepframe/internal/store"
	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrNotFound matches both store and aggregator lookups that failed.
var ErrNotFound = errors.New("not found")

// Workspace is the application service behind the MCP tools and the CLI.
type Workspace struct {
	store         *store.Store
	reg           *registry.Registry
	log           *zap.Logger
	maxConditions int
	newID         func() string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// Option configures a Workspace.
type Option func(*Workspace)

// WithLogger sets the workspace logger. It is also handed to aggregators
// and evaluators.
func WithLogger(log *zap.Logger) Option {
	return func(w *Workspace) {
		if log != nil {
			w.log = log
		}
	}
}

// WithMaxConditions caps the condition leaves of a single widget.
func WithMaxConditions(n int) Option {
	return func(w *Workspace) {
		if n > 0 {
			w.maxConditions = n
		}
	}
}

// WithIDs replaces the id generator used for frameworks and widgets.
func WithIDs(fn func() string) Option {
	return func(w *Workspace) { w.newID = fn }
}

// New creates a Workspace. A nil registry selects the built-in widget
// implementations.
func New(s *store.Store, reg *registry.Registry, opts ...Option) *Workspace {
	if reg == nil {
		reg = registry.Default()
	}
	w := &Workspace{
		store:         s,
		reg:           reg,
		log:           zap.NewNop(),
		maxConditions: condition.DefaultMaxConditions,
		newID:         uuid.NewString,
		locks:         make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Registry returns the widget registry used to parse and render attributes.
func (w *Workspace) Registry() *registry.Registry { return w.reg }

// lock serializes edits to one framework.
func (w *Workspace) lock(frameworkID string) func() {
	w.mu.Lock()
	m, ok := w.locks[frameworkID]
	if !ok {
		m = &sync.Mutex{}
		w.locks[frameworkID] = m
	}
	w.mu.Unlock()
	m.Lock()
	return m.Unlock
}

// notFound folds the layer-specific not-found sentinels into ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, framework.ErrNotFound) {
		return fmt.Errorf("%w: %w", ErrNotFound, err)
	}
	return err
}

// ─── Frameworks ──────────────────────────────────────────────────────────────

// CreateFramework stores a new, empty framework.
func (w *Workspace) CreateFramework(title string) (*widget.Framework, error) {
	if title == "" {
		return nil, &widget.SchemaViolation{Field: "title", Reason: "title is required"}
	}
	f := &widget.Framework{ID: w.newID(), Title: title, Sections: []widget.Section{}, Widgets: []widget.Widget{}}
	if err := w.store.SaveFramework(f); err != nil {
		return nil, err
	}
	w.log.Info("framework created", zap.String("framework", f.ID))
	return f, nil
}

// Frameworks lists stored frameworks.
func (w *Workspace) Frameworks() ([]store.FrameworkSummary, error) {
	return w.store.ListFrameworks()
}

// Framework loads one framework document.
func (w *Workspace) Framework(id string) (*widget.Framework, error) {
	f, err := w.store.GetFramework(id)
	return f, notFound(err)
}

// Validate reports every problem in a stored framework.
func (w *Workspace) Validate(id string) (*widget.Report, error) {
	f, err := w.Framework(id)
	if err != nil {
		return nil, err
	}
	return framework.Validate(f, w.maxConditions), nil
}

// DeleteFramework removes a framework with its entries.
func (w *Workspace) DeleteFramework(id string) error {
	unlock := w.lock(id)
	defer unlock()
	if err := w.store.DeleteFramework(id); err != nil {
		return notFound(err)
	}
	w.log.Info("framework deleted", zap.String("framework", id))
	return nil
}

// Import stores a complete framework document. The document must validate
// cleanly; it gets a fresh id when it has none. An existing framework with
// the same id is replaced.
func (w *Workspace) Import(f *widget.Framework) (*widget.Framework, error) {
	if f.ID == "" {
		f.ID = w.newID()
	}
	if f.Sections == nil {
		f.Sections = []widget.Section{}
	}
	if f.Widgets == nil {
		f.Widgets = []widget.Widget{}
	}
	if report := framework.Validate(f, w.maxConditions); !report.OK() {
		w.log.Warn("import rejected", zap.String("framework", f.ID), zap.Error(report.Err()))
		return nil, report.Err()
	}
	unlock := w.lock(f.ID)
	defer unlock()
	if err := w.store.SaveFramework(f); err != nil {
		return nil, err
	}
	w.log.Info("framework imported", zap.String("framework", f.ID), zap.Int("widgets", len(f.DocumentOrder())))
	return f, nil
}

// Export encodes a stored framework.
func (w *Workspace) Export(id string, format document.Format) ([]byte, error) {
	f, err := w.Framework(id)
	if err != nil {
		return nil, err
	}
	return document.Encode(f, format)
}

// edit runs fn against an aggregator over the stored document and persists
// the result when fn succeeds.
func (w *Workspace) edit(frameworkID, op string, fn func(a *framework.Aggregator) error) error {
	unlock := w.lock(frameworkID)
	defer unlock()
	return w.apply(frameworkID, op, fn)
}

// apply is edit without taking the framework lock.
func (w *Workspace) apply(frameworkID, op string, fn func(a *framework.Aggregator) error) error {
	doc, err := w.store.GetFramework(frameworkID)
	if err != nil {
		return notFound(err)
	}
	agg := framework.New(doc,
		framework.WithLogger(w.log),
		framework.WithIDs(w.newID),
		framework.WithMaxConditions(w.maxConditions),
	)
	if err := fn(agg); err != nil {
		w.log.Warn("edit rejected", zap.String("framework", frameworkID), zap.String("op", op), zap.Error(err))
		return notFound(err)
	}
	out, err := agg.Snapshot()
	if err != nil {
		return err
	}
	if err := w.store.SaveFramework(out); err != nil {
		return err
	}
	w.log.Info("edit applied", zap.String("framework", frameworkID), zap.String("op", op))
	return nil
}

// ─── Sections ────────────────────────────────────────────────────────────────

// AddSection appends a section.
func (w *Workspace) AddSection(frameworkID string, d widget.SectionDraft) (widget.Section, error) {
	var out widget.Section
	err := w.edit(frameworkID, "add section", func(a *framework.Aggregator) error {
		var err error
		out, err = a.AddSection(d)
		return err
	})
	return out, err
}

// Removal describes the fallout of deleting a section or widget.
type Removal struct {
	// Removed lists every widget that no longer exists.
	Removed []string `json:"removed"`
	// Pruned lists widgets whose conditions lost a leaf.
	Pruned []string `json:"pruned"`
	// Attributes counts the stored attributes that were discarded.
	Attributes int `json:"attributes"`
}

// DeleteSection removes a section and its widgets, then discards the
// attributes that answered them.
func (w *Workspace) DeleteSection(frameworkID, sectionID string) (*Removal, error) {
	return w.remove(frameworkID, "delete section", func(a *framework.Aggregator) ([]string, error) {
		return a.DeleteSection(sectionID)
	})
}

// ReorderSection moves a section to newOrder.
func (w *Workspace) ReorderSection(frameworkID, sectionID string, newOrder int) error {
	return w.edit(frameworkID, "reorder section", func(a *framework.Aggregator) error {
		return a.ReorderSection(sectionID, newOrder)
	})
}

// ─── Widgets ─────────────────────────────────────────────────────────────────

// AddWidget creates a widget from d in sectionID, under the CONDITIONAL
// parentID, or in the secondary list when both are empty.
func (w *Workspace) AddWidget(frameworkID, sectionID, parentID string, d widget.Draft) (widget.Widget, error) {
	if sectionID != "" && parentID != "" {
		return widget.Widget{}, errors.New("a widget belongs to a section or a parent widget, not both")
	}
	s := &framework.Session{SectionID: sectionID, ParentID: parentID, State: framework.StatePristine}
	return w.commit(frameworkID, "add widget", s, d)
}

// UpdateWidget overlays d on an existing widget.
func (w *Workspace) UpdateWidget(frameworkID, widgetID string, d widget.Draft) (widget.Widget, error) {
	return w.commit(frameworkID, "update widget", framework.NewSession(widgetID), d)
}

func (w *Workspace) commit(frameworkID, op string, s *framework.Session, d widget.Draft) (widget.Widget, error) {
	if err := s.Change(func(draft *widget.Draft) { *draft = d }); err != nil {
		return widget.Widget{}, err
	}
	var out widget.Widget
	err := w.edit(frameworkID, op, func(a *framework.Aggregator) error {
		var err error
		out, err = a.Commit(s)
		return err
	})
	return out, err
}

// DeleteWidget removes a widget with its nested widgets, prunes the
// conditions that referenced them and discards their attributes.
func (w *Workspace) DeleteWidget(frameworkID, widgetID string) (*Removal, error) {
	return w.remove(frameworkID, "delete widget", func(a *framework.Aggregator) ([]string, error) {
		return a.DeleteWidget(widgetID)
	})
}

// ReorderWidget moves a widget to newOrder among its siblings.
func (w *Workspace) ReorderWidget(frameworkID, widgetID string, newOrder int) error {
	return w.edit(frameworkID, "reorder widget", func(a *framework.Aggregator) error {
		return a.ReorderWidget(widgetID, newOrder)
	})
}

// remove applies a deleting edit and discards the orphaned attributes under
// one hold of the framework lock, so no attribute write lands in between.
func (w *Workspace) remove(frameworkID, op string, fn func(a *framework.Aggregator) ([]string, error)) (*Removal, error) {
	unlock := w.lock(frameworkID)
	defer unlock()

	var (
		before  *widget.Framework
		removal Removal
	)
	err := w.apply(frameworkID, op, func(a *framework.Aggregator) error {
		var err error
		if before, err = a.Snapshot(); err != nil {
			return err
		}
		if removal.Pruned, err = fn(a); err != nil {
			return err
		}
		after, err := a.Snapshot()
		if err != nil {
			return err
		}
		removal.Removed = missing(before, after)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if removal.Attributes, err = w.discardAttributes(frameworkID, before, removal.Removed); err != nil {
		return nil, err
	}
	return &removal, nil
}

// missing returns the clientIds present in before but not in after.
func missing(before, after *widget.Framework) []string {
	kept := make(map[string]bool)
	for _, p := range after.DocumentOrder() {
		kept[p.Widget.ClientID] = true
	}
	var out []string
	for _, p := range before.DocumentOrder() {
		if !kept[p.Widget.ClientID] {
			out = append(out, p.Widget.ClientID)
		}
	}
	return out
}

// discardAttributes deletes stored answers to removed widgets. Top-level
// answers are rows of their own; nested answers live inside their parent's
// CONDITIONAL attribute and are stripped from it.
func (w *Workspace) discardAttributes(frameworkID string, before *widget.Framework, removed []string) (int, error) {
	if len(removed) == 0 {
		return 0, nil
	}
	gone := make(map[string]bool, len(removed))
	for _, id := range removed {
		gone[id] = true
	}
	var topLevel []string
	nestedParents := make(map[string]bool)
	for _, p := range before.DocumentOrder() {
		id := p.Widget.ClientID
		if !gone[id] {
			continue
		}
		if p.Location.ParentID == "" {
			topLevel = append(topLevel, id)
		} else if !gone[p.Location.ParentID] {
			nestedParents[p.Location.ParentID] = true
		}
	}

	n, err := w.store.DeleteWidgetAttributes(frameworkID, topLevel)
	if err != nil {
		return 0, err
	}
	if len(nestedParents) == 0 {
		return n, nil
	}

	entries, err := w.store.ListEntries(frameworkID)
	if err != nil {
		return n, err
	}
	for _, e := range entries {
		full, err := w.store.GetEntry(e.ID)
		if err != nil {
			return n, err
		}
		for id, a := range full.Attributes {
			stripped, count := strip(a, gone)
			if count == 0 {
				continue
			}
			n += count
			if stripped.Data == nil {
				err = w.store.ClearAttribute(e.ID, id)
			} else {
				err = w.store.PutAttribute(e.ID, stripped)
			}
			if err != nil {
				return n, err
			}
		}
	}
	return n, nil
}

// strip removes answers to gone widgets from a CONDITIONAL attribute at any
// depth. An emptied attribute comes back with nil data.
func strip(a attribute.Attribute, gone map[string]bool) (attribute.Attribute, int) {
	data, ok := a.Data.(attribute.ConditionalData)
	if !ok {
		return a, 0
	}
	count := 0
	value := make(map[string]attribute.Attribute, len(data.Value))
	for id, child := range data.Value {
		if gone[id] {
			count++
			continue
		}
		child, c := strip(child, gone)
		count += c
		if child.Data != nil {
			value[id] = child
		}
	}
	if count == 0 {
		return a, 0
	}
	if len(value) == 0 {
		return attribute.Attribute{WidgetID: a.WidgetID, Type: a.Type}, count
	}
	return attribute.Attribute{WidgetID: a.WidgetID, Type: a.Type, Data: attribute.ConditionalData{Value: value}}, count
}

// ─── Entries ─────────────────────────────────────────────────────────────────

// CreateEntry starts an empty entry for a framework.
func (w *Workspace) CreateEntry(frameworkID, title string) (*store.Entry, error) {
	e, err := w.store.CreateEntry(frameworkID, title)
	if err != nil {
		return nil, notFound(err)
	}
	w.log.Info("entry created", zap.String("framework", frameworkID), zap.String("entry", e.ID))
	return e, nil
}

// Entries lists the entries of a framework.
func (w *Workspace) Entries(frameworkID string) ([]store.Entry, error) {
	return w.store.ListEntries(frameworkID)
}

// AnswerView is one rendered attribute of an entry.
type AnswerView struct {
	WidgetID string      `json:"widget_id"`
	Title    string      `json:"title"`
	Type     widget.Type `json:"type"`
	Visible  bool        `json:"visible"`
	Answered bool        `json:"answered"`
	View     string      `json:"view,omitempty"`
	Compact  string      `json:"compact,omitempty"`
}

// EntryView is an entry rendered against its framework in document order.
type EntryView struct {
	Entry   *store.Entry `json:"entry"`
	Answers []AnswerView `json:"answers"`
}

// ShowEntry renders every widget of the entry's framework with its answer
// and visibility.
func (w *Workspace) ShowEntry(entryID string) (*EntryView, error) {
	e, f, err := w.entryWithFramework(entryID)
	if err != nil {
		return nil, err
	}
	visible := framework.Visible(f, e.Attributes, w.evaluator(f))
	lookup := framework.EntryLookup(f, e.Attributes)

	view := &EntryView{Entry: e}
	for _, p := range f.DocumentOrder() {
		wd := p.Widget
		av := AnswerView{WidgetID: wd.ClientID, Title: wd.Title, Type: wd.Type, Visible: visible[wd.ClientID]}
		if a, ok := lookup(wd.ClientID); ok {
			av.Answered = true
			av.View = w.reg.View(wd, a)
			av.Compact = w.reg.Compact(wd, a)
		}
		view.Answers = append(view.Answers, av)
	}
	return view, nil
}

func (w *Workspace) entryWithFramework(entryID string) (*store.Entry, *widget.Framework, error) {
	e, err := w.store.GetEntry(entryID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	f, err := w.store.GetFramework(e.FrameworkID)
	if err != nil {
		return nil, nil, notFound(err)
	}
	return e, f, nil
}

// lockEntry takes the lock of the entry's framework and then loads the
// entry and framework, so a read-modify-write of its attributes cannot
// interleave with another writer or with a widget removal.
func (w *Workspace) lockEntry(entryID string) (func(), *store.Entry, *widget.Framework, error) {
	e, err := w.store.GetEntry(entryID)
	if err != nil {
		return nil, nil, nil, notFound(err)
	}
	unlock := w.lock(e.FrameworkID)
	e, f, err := w.entryWithFramework(entryID)
	if err != nil {
		unlock()
		return nil, nil, nil, err
	}
	return unlock, e, f, nil
}

func (w *Workspace) evaluator(f *widget.Framework) *condition.Evaluator {
	return condition.NewEvaluator(
		condition.WithWidgets(condition.ForFramework(f)),
		condition.WithLogger(w.log),
	)
}

// ─── Attributes ──────────────────────────────────────────────────────────────

// SetAttribute parses raw ({"value": ...}) with the widget's editor and
// stores it on the entry. Answers to nested widgets are folded into their
// CONDITIONAL parent's attribute.
func (w *Workspace) SetAttribute(entryID, widgetID string, raw json.RawMessage) (attribute.Attribute, error) {
	unlock, e, f, err := w.lockEntry(entryID)
	if err != nil {
		return attribute.Attribute{}, err
	}
	defer unlock()
	p, ok := f.Find(widgetID)
	if !ok {
		return attribute.Attribute{}, fmt.Errorf("%w: widget %q in framework %s", ErrNotFound, widgetID, f.ID)
	}
	a, err := w.reg.Parse(p.Widget, raw)
	if err != nil {
		return attribute.Attribute{}, err
	}
	top, err := w.nest(f, e.Attributes, p, a)
	if err != nil {
		return attribute.Attribute{}, err
	}
	if err := w.store.PutAttribute(entryID, top); err != nil {
		return attribute.Attribute{}, notFound(err)
	}
	w.log.Info("attribute set", zap.String("entry", entryID), zap.String("widget", widgetID))
	return a, nil
}

// ClearAttribute removes the answer to a widget. Clearing an unanswered
// widget is not an error.
func (w *Workspace) ClearAttribute(entryID, widgetID string) error {
	unlock, e, f, err := w.lockEntry(entryID)
	if err != nil {
		return err
	}
	defer unlock()
	p, ok := f.Find(widgetID)
	if !ok {
		return fmt.Errorf("%w: widget %q in framework %s", ErrNotFound, widgetID, f.ID)
	}
	if p.Location.ParentID == "" {
		return notFound(w.store.ClearAttribute(entryID, widgetID))
	}
	top, err := w.nest(f, e.Attributes, p, attribute.Attribute{WidgetID: widgetID, Type: p.Widget.Type})
	if err != nil {
		return err
	}
	if top.Data == nil {
		return notFound(w.store.ClearAttribute(entryID, top.WidgetID))
	}
	return notFound(w.store.PutAttribute(entryID, top))
}

// nest wraps a (nil data meaning "clear") into the attributes of p's
// ancestors and returns the top-level attribute to store. Parents emptied
// by a clear come back with nil data.
func (w *Workspace) nest(f *widget.Framework, set attribute.Set, p widget.Placed, a attribute.Attribute) (attribute.Attribute, error) {
	lookup := framework.EntryLookup(f, set)
	for p.Location.ParentID != "" {
		parent, ok := f.Find(p.Location.ParentID)
		if !ok {
			return attribute.Attribute{}, fmt.Errorf("%w: parent widget %q", ErrNotFound, p.Location.ParentID)
		}
		value := make(map[string]attribute.Attribute)
		if existing, ok := lookup(parent.Widget.ClientID); ok {
			if d, ok := existing.Data.(attribute.ConditionalData); ok {
				for k, v := range d.Value {
					value[k] = v
				}
			}
		}
		if a.Data == nil {
			delete(value, a.WidgetID)
		} else {
			value[a.WidgetID] = a
		}
		next := attribute.Attribute{WidgetID: parent.Widget.ClientID, Type: widget.TypeConditional}
		if len(value) > 0 {
			next.Data = attribute.ConditionalData{Value: value}
			if err := attribute.Validate(parent.Widget, next); err != nil {
				return attribute.Attribute{}, err
			}
		}
		a, p = next, parent
	}
	return a, nil
}

// ─── Evaluation ──────────────────────────────────────────────────────────────

// Evaluation is the outcome of evaluating conditions against an entry.
type Evaluation struct {
	EntryID string `json:"entry_id"`
	// Visible maps widget clientId to visibility. It is set when every
	// widget was evaluated.
	Visible map[string]bool `json:"visible,omitempty"`
	// Hidden lists invisible widgets in document order.
	Hidden []string `json:"hidden,omitempty"`
	// Result is set when a single tree was evaluated.
	Result *bool `json:"result,omitempty"`
}

// Visibility evaluates every widget's conditional against an entry.
func (w *Workspace) Visibility(entryID string) (*Evaluation, error) {
	e, f, err := w.entryWithFramework(entryID)
	if err != nil {
		return nil, err
	}
	visible := framework.Visible(f, e.Attributes, w.evaluator(f))
	out := &Evaluation{EntryID: entryID, Visible: visible}
	for _, p := range f.DocumentOrder() {
		if !visible[p.Widget.ClientID] {
			out.Hidden = append(out.Hidden, p.Widget.ClientID)
		}
	}
	return out, nil
}

// EvaluateTree evaluates an ad-hoc condition tree against an entry. The
// tree is checked structurally first; it may reference any widget of the
// entry's framework.
func (w *Workspace) EvaluateTree(entryID string, tree widget.Node) (*Evaluation, error) {
	e, f, err := w.entryWithFramework(entryID)
	if err != nil {
		return nil, err
	}
	resolve := condition.ForFramework(f)
	c := &widget.Conditional{Parents: condition.References(tree), Tree: tree}
	errs := condition.Validate("", c, resolve, w.maxConditions)
	for _, key := range c.Parents {
		if _, ok := resolve(key); !ok {
			errs = append(errs, &widget.ReferentialIntegrityError{Key: key, Reason: "widget does not exist"})
		}
	}
	if len(errs) > 0 {
		return nil, errors.Join(errs...)
	}
	result := w.evaluator(f).Evaluate(tree, framework.EntryLookup(f, e.Attributes))
	return &Evaluation{EntryID: entryID, Result: &result}, nil
}
