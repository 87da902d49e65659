package framework

import (
	"errors"
	"fmt"

	"github.com/HendryAvila/deepframe/internal/widget"
)

// --- Widget editing session ---

// SessionState is the lifecycle position of one widget editing session.
type SessionState string

const (
	StatePristine   SessionState = "pristine"
	StateDirty      SessionState = "dirty"
	StateValidating SessionState = "validating"
	StateValid      SessionState = "valid"
	StateInvalid    SessionState = "invalid"
)

// transitions lists the states reachable from each state.
var transitions = map[SessionState][]SessionState{
	StatePristine:   {StateDirty},
	StateDirty:      {StateDirty, StateValidating},
	StateValidating: {StateValid, StateInvalid},
	StateValid:      {StateDirty},
	StateInvalid:    {StateDirty},
}

// CanTransition reports whether a session may move from one state to another.
func CanTransition(from, to SessionState) error {
	for _, next := range transitions[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("invalid session transition %s -> %s", from, to)
}

// Session tracks edits to one widget until they are committed. A session
// with an empty WidgetID creates a new widget in SectionID (or under
// ParentID) on commit.
type Session struct {
	WidgetID  string
	SectionID string
	ParentID  string
	State     SessionState
	Draft     widget.Draft
	Errors    []error
	UpdatedAt string
}

// NewSession starts a pristine session for an existing widget.
func NewSession(widgetID string) *Session {
	return &Session{WidgetID: widgetID, State: StatePristine, UpdatedAt: now()}
}

func (s *Session) moveTo(next SessionState) error {
	if err := CanTransition(s.State, next); err != nil {
		return err
	}
	s.State = next
	s.UpdatedAt = now()
	return nil
}

// Change records an edit. Any edit outside validation marks the session dirty.
func (s *Session) Change(edit func(d *widget.Draft)) error {
	if err := s.moveTo(StateDirty); err != nil {
		return err
	}
	edit(&s.Draft)
	s.Errors = nil
	return nil
}

// Submit starts validation of a dirty session.
func (s *Session) Submit() error {
	return s.moveTo(StateValidating)
}

// Complete ends validation: valid when errs is empty, invalid otherwise.
func (s *Session) Complete(errs []error) error {
	next := StateValid
	if len(errs) > 0 {
		next = StateInvalid
	}
	if err := s.moveTo(next); err != nil {
		return err
	}
	s.Errors = errs
	return nil
}

// Commit submits the session's draft to the aggregator. A rejected draft
// leaves the session invalid with the errors attached to the widget; the
// document is unchanged.
func (a *Aggregator) Commit(s *Session) (widget.Widget, error) {
	if err := s.Submit(); err != nil {
		return widget.Widget{}, err
	}

	var (
		w   widget.Widget
		err error
	)
	switch {
	case s.WidgetID != "":
		w, err = a.UpdateWidget(s.WidgetID, s.Draft)
	case s.ParentID != "":
		w, err = a.AddNestedWidget(s.ParentID, s.Draft)
	default:
		w, err = a.AddWidget(s.SectionID, s.Draft)
	}

	if err != nil {
		errs := unwrapJoined(err)
		if s.WidgetID != "" {
			for _, e := range errs {
				a.SetWidgetError(s.WidgetID, e)
			}
		}
		if cerr := s.Complete(errs); cerr != nil {
			return widget.Widget{}, cerr
		}
		return widget.Widget{}, err
	}
	s.WidgetID = w.ClientID
	s.Draft = widget.Draft{}
	if cerr := s.Complete(nil); cerr != nil {
		return widget.Widget{}, cerr
	}
	return w, nil
}

// unwrapJoined flattens errors.Join trees into their leaves.
func unwrapJoined(err error) []error {
	var multi interface{ Unwrap() []error }
	if !errors.As(err, &multi) {
		return []error{err}
	}
	var out []error
	for _, e := range multi.Unwrap() {
		out = append(out, unwrapJoined(e)...)
	}
	return out
}
