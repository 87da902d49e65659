package widget

import (
	"fmt"
	"regexp"
	"time"
)

// --- Nested choice entities ---

// Option is a keyed, labelled choice. Keys are unique within their immediate
// option list.
type Option struct {
	Key     string `json:"key"`
	Label   string `json:"label"`
	Tooltip string `json:"tooltip,omitempty"`
	Order   int    `json:"order"`
}

// ScaleOption is a scale step with a display color.
type ScaleOption struct {
	Option
	Color string `json:"color"`
}

// Row is a MATRIX_1D row. It owns its cells exclusively.
type Row struct {
	Option
	Color string   `json:"color,omitempty"`
	Cells []Option `json:"cells"`
}

// Matrix2DRow is a MATRIX_2D row owning its sub-rows.
type Matrix2DRow struct {
	Option
	Color   string   `json:"color,omitempty"`
	SubRows []Option `json:"subRows"`
}

// Matrix2DColumn is a MATRIX_2D column owning its sub-columns.
type Matrix2DColumn struct {
	Option
	SubColumns []Option `json:"subColumns"`
}

// OrganigramNode is one node of an organigram tree.
type OrganigramNode struct {
	Option
	Children []OrganigramNode `json:"children,omitempty"`
}

// Find returns the node with the given key in the subtree rooted at n.
func (n *OrganigramNode) Find(key string) (*OrganigramNode, bool) {
	if n.Key == key {
		return n, true
	}
	for i := range n.Children {
		if found, ok := n.Children[i].Find(key); ok {
			return found, true
		}
	}
	return nil, false
}

// Descendants returns the keys of every node below n, depth-first.
func (n *OrganigramNode) Descendants() []string {
	var out []string
	for i := range n.Children {
		out = append(out, n.Children[i].Key)
		out = append(out, n.Children[i].Descendants()...)
	}
	return out
}

// DateRange is a closed interval of calendar dates (YYYY-MM-DD).
type DateRange struct {
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

// TimeRange is a closed interval of wall-clock times (HH:MM[:SS]).
type TimeRange struct {
	StartTime string `json:"startTime"`
	EndTime   string `json:"endTime"`
}

// --- Properties sum type ---

// Properties is the type-specific configuration of a widget. The concrete
// type is determined by the widget's Type; see NewProperties.
type Properties interface {
	WidgetType() Type
	validate(widgetID string) []error
}

type TextProperties struct {
	DefaultValue string `json:"defaultValue,omitempty"`
}

type NumberProperties struct {
	MinValue     *float64 `json:"minValue,omitempty"`
	MaxValue     *float64 `json:"maxValue,omitempty"`
	DefaultValue *float64 `json:"defaultValue,omitempty"`
}

type DateProperties struct {
	DefaultValue string `json:"defaultValue,omitempty"`
}

type DateRangeProperties struct {
	DefaultValue *DateRange `json:"defaultValue,omitempty"`
}

type TimeProperties struct {
	DefaultValue string `json:"defaultValue,omitempty"`
}

type TimeRangeProperties struct {
	DefaultValue *TimeRange `json:"defaultValue,omitempty"`
}

type ScaleProperties struct {
	Options      []ScaleOption `json:"options"`
	DefaultValue string        `json:"defaultValue,omitempty"`
}

type SingleSelectProperties struct {
	Options      []Option `json:"options"`
	DefaultValue string   `json:"defaultValue,omitempty"`
}

type MultiSelectProperties struct {
	Options      []Option `json:"options"`
	DefaultValue []string `json:"defaultValue,omitempty"`
}

type Matrix1DProperties struct {
	Rows []Row `json:"rows"`
}

type Matrix2DProperties struct {
	Rows    []Matrix2DRow    `json:"rows"`
	Columns []Matrix2DColumn `json:"columns"`
}

type OrganigramProperties struct {
	Options      *OrganigramNode `json:"options,omitempty"`
	DefaultValue []string        `json:"defaultValue,omitempty"`
}

type GeoProperties struct {
	DefaultValue []string `json:"defaultValue,omitempty"`
}

// ConditionalProperties holds the nested widgets of a CONDITIONAL widget.
// Each child is a full widget, usually carrying its own conditional.
type ConditionalProperties struct {
	Widgets []Widget `json:"widgets"`
}

func (*TextProperties) WidgetType() Type         { return TypeText }
func (*NumberProperties) WidgetType() Type       { return TypeNumber }
func (*DateProperties) WidgetType() Type         { return TypeDate }
func (*DateRangeProperties) WidgetType() Type    { return TypeDateRange }
func (*TimeProperties) WidgetType() Type         { return TypeTime }
func (*TimeRangeProperties) WidgetType() Type    { return TypeTimeRange }
func (*ScaleProperties) WidgetType() Type        { return TypeScale }
func (*SingleSelectProperties) WidgetType() Type { return TypeSingleSelect }
func (*MultiSelectProperties) WidgetType() Type  { return TypeMultiSelect }
func (*Matrix1DProperties) WidgetType() Type     { return TypeMatrix1D }
func (*Matrix2DProperties) WidgetType() Type     { return TypeMatrix2D }
func (*OrganigramProperties) WidgetType() Type   { return TypeOrganigram }
func (*GeoProperties) WidgetType() Type          { return TypeGeo }
func (*ConditionalProperties) WidgetType() Type  { return TypeConditional }

// propertyFactories maps every widget type to a constructor for its empty
// properties. There is no fallback: a type missing here fails validation.
var propertyFactories = map[Type]func() Properties{
	TypeText:         func() Properties { return &TextProperties{} },
	TypeNumber:       func() Properties { return &NumberProperties{} },
	TypeDate:         func() Properties { return &DateProperties{} },
	TypeDateRange:    func() Properties { return &DateRangeProperties{} },
	TypeTime:         func() Properties { return &TimeProperties{} },
	TypeTimeRange:    func() Properties { return &TimeRangeProperties{} },
	TypeScale:        func() Properties { return &ScaleProperties{} },
	TypeSingleSelect: func() Properties { return &SingleSelectProperties{} },
	TypeMultiSelect:  func() Properties { return &MultiSelectProperties{} },
	TypeMatrix1D:     func() Properties { return &Matrix1DProperties{} },
	TypeMatrix2D:     func() Properties { return &Matrix2DProperties{} },
	TypeOrganigram:   func() Properties { return &OrganigramProperties{} },
	TypeGeo:          func() Properties { return &GeoProperties{} },
	TypeConditional:  func() Properties { return &ConditionalProperties{} },
}

// NewProperties returns empty properties of the shape required by t.
func NewProperties(t Type) (Properties, error) {
	factory, ok := propertyFactories[t]
	if !ok {
		return nil, fmt.Errorf("no properties schema for widget type %q", t)
	}
	return factory(), nil
}

// --- Validation ---

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// ValidColor reports whether c is a 6-digit hex color such as #1a2b3c.
func ValidColor(c string) bool {
	return hexColor.MatchString(c)
}

const (
	dateLayout     = "2006-01-02"
	timeLayout     = "15:04"
	timeLayoutSecs = "15:04:05"
)

// ParseDate parses a calendar date in YYYY-MM-DD form.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// ParseTime parses a wall-clock time in HH:MM or HH:MM:SS form.
func ParseTime(s string) (time.Time, error) {
	if t, err := time.Parse(timeLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(timeLayoutSecs, s)
}

func violation(widgetID, field, format string, args ...any) error {
	return &SchemaViolation{WidgetID: widgetID, Field: field, Reason: fmt.Sprintf(format, args...)}
}

// validateOptions checks an option list: keys and labels present, keys
// unique within the list.
func validateOptions(widgetID, field string, opts []Option) []error {
	var errs []error
	seen := make(map[string]bool, len(opts))
	for i, o := range opts {
		path := fmt.Sprintf("%s[%d]", field, i)
		if o.Key == "" {
			errs = append(errs, violation(widgetID, path+".key", "key is required"))
			continue
		}
		if o.Label == "" {
			errs = append(errs, violation(widgetID, path+".label", "label is required"))
		}
		if seen[o.Key] {
			errs = append(errs, &DuplicateKeyError{Scope: fmt.Sprintf("widget %q %s", widgetID, field), Key: o.Key})
		}
		seen[o.Key] = true
	}
	return errs
}

func optionSet(opts []Option) map[string]bool {
	m := make(map[string]bool, len(opts))
	for _, o := range opts {
		m[o.Key] = true
	}
	return m
}

func (p *TextProperties) validate(string) []error { return nil }

func (p *NumberProperties) validate(id string) []error {
	var errs []error
	if p.MinValue != nil && p.MaxValue != nil && *p.MinValue > *p.MaxValue {
		errs = append(errs, violation(id, "minValue", "minValue %v is greater than maxValue %v", *p.MinValue, *p.MaxValue))
	}
	if p.DefaultValue != nil {
		if p.MinValue != nil && *p.DefaultValue < *p.MinValue {
			errs = append(errs, violation(id, "defaultValue", "default %v is below minValue %v", *p.DefaultValue, *p.MinValue))
		}
		if p.MaxValue != nil && *p.DefaultValue > *p.MaxValue {
			errs = append(errs, violation(id, "defaultValue", "default %v is above maxValue %v", *p.DefaultValue, *p.MaxValue))
		}
	}
	return errs
}

func (p *DateProperties) validate(id string) []error {
	if p.DefaultValue == "" {
		return nil
	}
	if _, err := ParseDate(p.DefaultValue); err != nil {
		return []error{violation(id, "defaultValue", "invalid date %q", p.DefaultValue)}
	}
	return nil
}

func (p *DateRangeProperties) validate(id string) []error {
	if p.DefaultValue == nil {
		return nil
	}
	if err := CheckDateRange(*p.DefaultValue); err != nil {
		return []error{violation(id, "defaultValue", "%v", err)}
	}
	return nil
}

func (p *TimeProperties) validate(id string) []error {
	if p.DefaultValue == "" {
		return nil
	}
	if _, err := ParseTime(p.DefaultValue); err != nil {
		return []error{violation(id, "defaultValue", "invalid time %q", p.DefaultValue)}
	}
	return nil
}

func (p *TimeRangeProperties) validate(id string) []error {
	if p.DefaultValue == nil {
		return nil
	}
	if err := CheckTimeRange(*p.DefaultValue); err != nil {
		return []error{violation(id, "defaultValue", "%v", err)}
	}
	return nil
}

func (p *ScaleProperties) validate(id string) []error {
	if len(p.Options) == 0 {
		return []error{violation(id, "options", "scale requires at least one option")}
	}
	opts := make([]Option, len(p.Options))
	for i, o := range p.Options {
		opts[i] = o.Option
	}
	errs := validateOptions(id, "options", opts)
	for i, o := range p.Options {
		if !ValidColor(o.Color) {
			errs = append(errs, violation(id, fmt.Sprintf("options[%d].color", i), "invalid color %q: want 6-digit hex such as #a1b2c3", o.Color))
		}
	}
	switch {
	case p.DefaultValue == "":
		errs = append(errs, violation(id, "defaultValue", "scale requires a default option"))
	case !optionSet(opts)[p.DefaultValue]:
		errs = append(errs, violation(id, "defaultValue", "default %q is not an option key", p.DefaultValue))
	}
	return errs
}

func (p *SingleSelectProperties) validate(id string) []error {
	errs := validateOptions(id, "options", p.Options)
	if p.DefaultValue != "" && !optionSet(p.Options)[p.DefaultValue] {
		errs = append(errs, violation(id, "defaultValue", "default %q is not an option key", p.DefaultValue))
	}
	return errs
}

func (p *MultiSelectProperties) validate(id string) []error {
	errs := validateOptions(id, "options", p.Options)
	keys := optionSet(p.Options)
	for _, k := range p.DefaultValue {
		if !keys[k] {
			errs = append(errs, violation(id, "defaultValue", "default %q is not an option key", k))
		}
	}
	return errs
}

func (p *Matrix1DProperties) validate(id string) []error {
	rows := make([]Option, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = r.Option
	}
	errs := validateOptions(id, "rows", rows)
	for i, r := range p.Rows {
		if r.Color != "" && !ValidColor(r.Color) {
			errs = append(errs, violation(id, fmt.Sprintf("rows[%d].color", i), "invalid color %q", r.Color))
		}
		errs = append(errs, validateOptions(id, fmt.Sprintf("rows[%d].cells", i), r.Cells)...)
	}
	return errs
}

func (p *Matrix2DProperties) validate(id string) []error {
	rows := make([]Option, len(p.Rows))
	for i, r := range p.Rows {
		rows[i] = r.Option
	}
	cols := make([]Option, len(p.Columns))
	for i, c := range p.Columns {
		cols[i] = c.Option
	}
	errs := validateOptions(id, "rows", rows)
	errs = append(errs, validateOptions(id, "columns", cols)...)
	for i, r := range p.Rows {
		if r.Color != "" && !ValidColor(r.Color) {
			errs = append(errs, violation(id, fmt.Sprintf("rows[%d].color", i), "invalid color %q", r.Color))
		}
		errs = append(errs, validateOptions(id, fmt.Sprintf("rows[%d].subRows", i), r.SubRows)...)
	}
	for i, c := range p.Columns {
		errs = append(errs, validateOptions(id, fmt.Sprintf("columns[%d].subColumns", i), c.SubColumns)...)
	}
	return errs
}

func (p *OrganigramProperties) validate(id string) []error {
	if p.Options == nil {
		if len(p.DefaultValue) > 0 {
			return []error{violation(id, "defaultValue", "organigram has no nodes")}
		}
		return nil
	}
	errs := validateOrganigram(id, "options", p.Options)
	for _, k := range p.DefaultValue {
		if _, ok := p.Options.Find(k); !ok {
			errs = append(errs, violation(id, "defaultValue", "default %q is not an organigram node", k))
		}
	}
	return errs
}

func validateOrganigram(id, path string, n *OrganigramNode) []error {
	var errs []error
	if n.Key == "" {
		errs = append(errs, violation(id, path+".key", "key is required"))
	}
	if n.Label == "" {
		errs = append(errs, violation(id, path+".label", "label is required"))
	}
	seen := make(map[string]bool, len(n.Children))
	for i := range n.Children {
		child := &n.Children[i]
		if child.Key != "" && seen[child.Key] {
			errs = append(errs, &DuplicateKeyError{Scope: fmt.Sprintf("widget %q %s.children", id, path), Key: child.Key})
		}
		seen[child.Key] = true
		errs = append(errs, validateOrganigram(id, fmt.Sprintf("%s.children[%d]", path, i), child)...)
	}
	return errs
}

func (p *GeoProperties) validate(string) []error { return nil }

func (p *ConditionalProperties) validate(id string) []error {
	var errs []error
	for i := range p.Widgets {
		child := &p.Widgets[i]
		if child.Type == TypeConditional {
			errs = append(errs, violation(id, fmt.Sprintf("widgets[%d]", i), "conditional widgets cannot nest another conditional"))
			continue
		}
		errs = append(errs, child.Validate()...)
	}
	return errs
}

// CheckDateRange verifies both ends parse and start is not after end.
func CheckDateRange(r DateRange) error {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return fmt.Errorf("invalid start date %q", r.StartDate)
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return fmt.Errorf("invalid end date %q", r.EndDate)
	}
	if start.After(end) {
		return fmt.Errorf("start date %s is after end date %s", r.StartDate, r.EndDate)
	}
	return nil
}

// CheckTimeRange verifies both ends parse and start is not after end.
func CheckTimeRange(r TimeRange) error {
	start, err := ParseTime(r.StartTime)
	if err != nil {
		return fmt.Errorf("invalid start time %q", r.StartTime)
	}
	end, err := ParseTime(r.EndTime)
	if err != nil {
		return fmt.Errorf("invalid end time %q", r.EndTime)
	}
	if start.After(end) {
		return fmt.Errorf("start time %s is after end time %s", r.StartTime, r.EndTime)
	}
	return nil
}
