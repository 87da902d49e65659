package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// ─── FrameworkCreateTool ────────────────────────────────────────────────────

// FrameworkCreateTool handles the deepframe_framework_create MCP tool.
type FrameworkCreateTool struct {
	ws *workspace.Workspace
}

// NewFrameworkCreateTool creates a FrameworkCreateTool.
func NewFrameworkCreateTool(ws *workspace.Workspace) *FrameworkCreateTool {
	return &FrameworkCreateTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_framework_create.
func (t *FrameworkCreateTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_framework_create",
		mcp.WithDescription(
			"Create an empty analysis framework. Add sections with deepframe_section_add "+
				"and widgets with deepframe_widget_add afterwards.",
		),
		mcp.WithString("title",
			mcp.Required(),
			mcp.Description("Framework title"),
		),
	)
}

// Handle processes the deepframe_framework_create tool call.
func (t *FrameworkCreateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "title"); res != nil {
		return res, nil
	}
	f, err := t.ws.CreateFramework(req.GetString("title", ""))
	if err != nil {
		return domainError("creating framework", err), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Created framework %q (id: %s)", f.Title, f.ID)), nil
}

// ─── FrameworkListTool ──────────────────────────────────────────────────────

// FrameworkListTool handles the deepframe_framework_list MCP tool.
type FrameworkListTool struct {
	ws *workspace.Workspace
}

// NewFrameworkListTool creates a FrameworkListTool.
func NewFrameworkListTool(ws *workspace.Workspace) *FrameworkListTool {
	return &FrameworkListTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_framework_list.
func (t *FrameworkListTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_framework_list",
		mcp.WithDescription("List stored frameworks with their section, widget and entry counts."),
	)
}

// Handle processes the deepframe_framework_list tool call.
func (t *FrameworkListTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	list, err := t.ws.Frameworks()
	if err != nil {
		return nil, fmt.Errorf("listing frameworks: %w", err)
	}
	if len(list) == 0 {
		return mcp.NewToolResultText("No frameworks yet. Create one with `deepframe_framework_create`."), nil
	}
	var b strings.Builder
	b.WriteString("| ID | Title | Sections | Widgets | Entries | Updated |\n")
	b.WriteString("|----|-------|----------|---------|---------|---------|\n")
	for _, f := range list {
		fmt.Fprintf(&b, "| %s | %s | %d | %d | %d | %s |\n",
			f.ID, f.Title, f.Sections, f.Widgets, f.Entries, f.UpdatedAt)
	}
	return mcp.NewToolResultText(b.String()), nil
}

// ─── FrameworkShowTool ──────────────────────────────────────────────────────

// FrameworkShowTool handles the deepframe_framework_show MCP tool.
type FrameworkShowTool struct {
	ws *workspace.Workspace
}

// NewFrameworkShowTool creates a FrameworkShowTool.
func NewFrameworkShowTool(ws *workspace.Workspace) *FrameworkShowTool {
	return &FrameworkShowTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_framework_show.
func (t *FrameworkShowTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_framework_show",
		mcp.WithDescription(
			"Show a framework. The default outline lists widgets in document order with "+
				"their conditions; format=json returns the full document.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
		mcp.WithString("format",
			mcp.Description("outline (default) or json"),
		),
	)
}

// Handle processes the deepframe_framework_show tool call.
func (t *FrameworkShowTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id"); res != nil {
		return res, nil
	}
	f, err := t.ws.Framework(req.GetString("framework_id", ""))
	if err != nil {
		return domainError("loading framework", err), nil
	}
	if req.GetString("format", "outline") == "json" {
		return jsonResult(f)
	}
	return mcp.NewToolResultText(outline(f)), nil
}

// outline renders f as a markdown outline in document order.
func outline(f *widget.Framework) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\nid: %s\n", f.Title, f.ID)
	current := "-"
	for _, p := range f.DocumentOrder() {
		if p.Location.SectionID != current {
			current = p.Location.SectionID
			if current == "" {
				b.WriteString("\n## Secondary tagging\n\n")
			} else if s, ok := f.Section(current); ok {
				fmt.Fprintf(&b, "\n## %s (%s, order %d)\n\n", s.Title, s.ClientID, s.Order)
			}
		}
		indent := ""
		if p.Location.ParentID != "" {
			indent = strings.Repeat("  ", depth(f, p))
		}
		w := p.Widget
		fmt.Fprintf(&b, "%s- **%s** `%s` %s (order %d)\n", indent, w.Title, w.ClientID, w.Type, w.Order)
		if w.Conditional != nil {
			fmt.Fprintf(&b, "%s  - visible when: %s\n", indent, describe(w.Conditional.Tree))
		}
	}
	for _, s := range f.Sections {
		if len(s.Widgets) == 0 {
			fmt.Fprintf(&b, "\n## %s (%s, order %d)\n\n_empty_\n", s.Title, s.ClientID, s.Order)
		}
	}
	return b.String()
}

func depth(f *widget.Framework, p widget.Placed) int {
	d := 0
	for p.Location.ParentID != "" {
		d++
		parent, ok := f.Find(p.Location.ParentID)
		if !ok {
			break
		}
		p = parent
	}
	return d
}

// describe renders a condition tree as a one-line expression.
func describe(n widget.Node) string {
	var s string
	if n.IsLeaf() {
		c := n.Condition
		switch {
		case c.Operator == widget.OpEmpty:
			s = fmt.Sprintf("%s is empty", c.Key)
		case widget.IsSetOperator(c.Operator):
			s = fmt.Sprintf("%s %s %s[%s]", c.Key, c.Operator, c.EffectiveModifier(), strings.Join(c.Operand, ","))
		default:
			s = fmt.Sprintf("%s %s %q", c.Key, c.Operator, c.Value)
		}
	} else {
		conj := n.Conjunction
		if conj == "" {
			conj = widget.ConjunctionAnd
		}
		if len(n.Children) == 0 {
			s = fmt.Sprintf("%s()", conj)
		} else {
			parts := make([]string, len(n.Children))
			for i, child := range n.Children {
				parts[i] = describe(child)
			}
			s = "(" + strings.Join(parts, " "+string(conj)+" ") + ")"
		}
	}
	if n.Invert {
		return "NOT " + s
	}
	return s
}

// ─── FrameworkValidateTool ──────────────────────────────────────────────────

// FrameworkValidateTool handles the deepframe_framework_validate MCP tool.
type FrameworkValidateTool struct {
	ws *workspace.Workspace
}

// NewFrameworkValidateTool creates a FrameworkValidateTool.
func NewFrameworkValidateTool(ws *workspace.Workspace) *FrameworkValidateTool {
	return &FrameworkValidateTool{ws: ws}
}

// Definition returns the MCP tool definition for deepframe_framework_validate.
func (t *FrameworkValidateTool) Definition() mcp.Tool {
	return mcp.NewTool("deepframe_framework_validate",
		mcp.WithDescription(
			"Validate a framework: widget shapes, option keys, order uniqueness, condition "+
				"operators and that every condition references an earlier widget.",
		),
		mcp.WithString("framework_id",
			mcp.Required(),
			mcp.Description("Framework ID"),
		),
	)
}

// Handle processes the deepframe_framework_validate tool call.
func (t *FrameworkValidateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if res := required(req, "framework_id"); res != nil {
		return res, nil
	}
	report, err := t.ws.Validate(req.GetString("framework_id", ""))
	if err != nil {
		return domainError("validating framework", err), nil
	}
	return mcp.NewToolResultText(renderReport(report)), nil
}

// renderReport lists every problem, framework-level first, then per widget
// in clientId order.
func renderReport(r *widget.Report) string {
	if r.OK() {
		return "✅ " + r.Summary()
	}
	var b strings.Builder
	fmt.Fprintf(&b, "❌ %s\n", r.Summary())
	if len(r.FrameworkErrors) > 0 {
		b.WriteString("\n## Framework\n\n")
		for _, err := range r.FrameworkErrors {
			fmt.Fprintf(&b, "- %v\n", err)
		}
	}
	ids := make([]string, 0, len(r.FieldErrors))
	for id := range r.FieldErrors {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		fmt.Fprintf(&b, "\n## Widget %s\n\n", id)
		for _, err := range r.FieldErrors[id] {
			fmt.Fprintf(&b, "- %v\n", err)
		}
	}
	return b.String()
}
