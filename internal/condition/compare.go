package condition

import (
	"sort"
	"time"

	"github.com/HendryAvila/deepframe/internal/attribute"
	"github.com/HendryAvila/deepframe/internal/widget"
)

func compareInstant(op widget.Operator, have, want string, parse func(string) (time.Time, error),
	after, before, equal widget.Operator) bool {
	h, err := parse(have)
	if err != nil {
		return false
	}
	w, err := parse(want)
	if err != nil {
		return false
	}
	switch op {
	case after:
		return h.After(w)
	case before:
		return h.Before(w)
	case equal:
		return h.Equal(w)
	}
	return false
}

// compareRange tests a closed range: "after" means the range starts after
// want, "before" that it ends before want.
func compareRange(op widget.Operator, start, end, want string, parse func(string) (time.Time, error),
	after, before, includes widget.Operator) bool {
	w, err := parse(want)
	if err != nil {
		return false
	}
	s, errStart := parse(start)
	e, errEnd := parse(end)
	switch op {
	case after:
		return errStart == nil && s.After(w)
	case before:
		return errEnd == nil && e.Before(w)
	case includes:
		return errStart == nil && errEnd == nil && !w.Before(s) && !w.After(e)
	}
	return false
}

// compareScale orders scale options by their declared order. It needs the
// widget definition; without one the leaf is not satisfied.
func (e *Evaluator) compareScale(c widget.Condition, d attribute.ScaleData) bool {
	if e.widgets == nil {
		return false
	}
	w, ok := e.widgets(c.Key)
	if !ok {
		return false
	}
	p, _ := w.Properties.(*widget.ScaleProperties)
	if p == nil {
		return false
	}
	opts := make([]widget.ScaleOption, len(p.Options))
	copy(opts, p.Options)
	sort.SliceStable(opts, func(i, j int) bool { return opts[i].Order < opts[j].Order })
	rank := make(map[string]int, len(opts))
	for i, o := range opts {
		rank[o.Key] = i
	}
	have, okHave := rank[d.Value]
	want, okWant := rank[c.Value]
	if !okHave || !okWant {
		return false
	}
	switch c.Operator {
	case widget.OpScaleMoreThan:
		return have > want
	case widget.OpScaleLessThan:
		return have < want
	}
	return false
}
