package framework

import (
	"fmt"

	"github.com/HendryAvila/deepframe/internal/condition"
	"github.com/HendryAvila/deepframe/internal/widget"
)

func widgetOrder(w *widget.Widget) *int   { return &w.Order }
func sectionOrder(s *widget.Section) *int { return &s.Order }

// Validate checks a whole framework document and collects every problem.
// Widget shape and condition structure are field errors; duplicate ids or
// keys, clashing orders and dangling or forward condition references are
// framework errors.
func Validate(f *widget.Framework, maxConditions int) *widget.Report {
	report := widget.NewReport()
	placed := f.DocumentOrder()

	position := make(map[string]int, len(placed))
	index := make(map[string]*widget.Widget, len(placed))
	keys := make(map[string]bool, len(placed))
	for _, p := range placed {
		if k := p.Widget.Key; k != "" {
			if keys[k] {
				report.AddFramework(&widget.DuplicateKeyError{Scope: fmt.Sprintf("framework %q widget keys", f.ID), Key: k})
			}
			keys[k] = true
		}
		id := p.Widget.ClientID
		if _, dup := position[id]; dup && id != "" {
			report.AddFramework(&widget.DuplicateKeyError{Scope: fmt.Sprintf("framework %q widgets", f.ID), Key: id})
			continue
		}
		position[id] = p.Location.Position
		index[id] = p.Widget
	}

	sectionIDs := make(map[string]bool, len(f.Sections))
	for i := range f.Sections {
		s := &f.Sections[i]
		if sectionIDs[s.ClientID] {
			report.AddFramework(&widget.DuplicateKeyError{Scope: fmt.Sprintf("framework %q sections", f.ID), Key: s.ClientID})
		}
		sectionIDs[s.ClientID] = true
		if s.ClientID == "" {
			report.AddFramework(&widget.SchemaViolation{Field: "section.clientId", Reason: "clientId is required"})
		}
		if s.Title == "" {
			report.AddFramework(&widget.SchemaViolation{WidgetID: s.ClientID, Field: "section.title", Reason: "title is required"})
		}
		checkOrders(report, fmt.Sprintf("section %q", s.ClientID), s.Widgets)
	}
	if o, ok := distinctOrders(f.Sections, sectionOrder); !ok {
		report.AddFramework(fmt.Errorf("order %d is shared by two sections", o))
	}
	checkOrders(report, "secondary widgets", f.Widgets)

	widgets := func(id string) (*widget.Widget, bool) {
		w, ok := index[id]
		return w, ok
	}

	for _, p := range placed {
		w := p.Widget
		// Nested widgets are validated as part of their CONDITIONAL parent.
		if p.Location.ParentID == "" {
			for _, err := range w.Validate() {
				report.AddField(w.ClientID, err)
			}
		}
		if kids := w.Children(); kids != nil {
			checkOrders(report, fmt.Sprintf("widget %q", w.ClientID), kids)
		}
		if w.Conditional == nil {
			continue
		}
		for _, err := range condition.Validate(w.ClientID, w.Conditional, widgets, maxConditions) {
			report.AddField(w.ClientID, err)
		}
		for _, key := range condition.References(w.Conditional.Tree) {
			refPos, ok := position[key]
			switch {
			case !ok:
				report.AddFramework(&widget.ReferentialIntegrityError{WidgetID: w.ClientID, Key: key, Reason: "widget does not exist"})
			case refPos >= p.Location.Position:
				report.AddFramework(&widget.ReferentialIntegrityError{WidgetID: w.ClientID, Key: key, Reason: "widget does not come earlier in the document"})
			}
		}
	}
	return report
}

func checkOrders(report *widget.Report, scope string, ws []widget.Widget) {
	if o, ok := distinctOrders(ws, widgetOrder); !ok {
		report.AddFramework(fmt.Errorf("order %d is shared by two widgets in %s", o, scope))
	}
}
