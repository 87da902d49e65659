// Package tools implements the MCP tool handlers for framework design,
// entry tagging and condition evaluation.
//
// Each tool follows the same pattern:
// - A struct holding the workspace, injected via constructor
// - Definition() returns the mcp.Tool schema
// - Handle() validates arguments and returns a result
//
// Domain problems (bad drafts, unknown ids, rejected edits) come back as
// tool errors the caller can read; only infrastructure failures are
// returned as Go errors.
package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

// intArg extracts an integer argument from a tool request, returning
// defaultVal if the key is missing. JSON numbers arrive as float64, so a
// value with a fractional part is rejected rather than truncated.
func intArg(req mcp.CallToolRequest, key string, defaultVal int) (int, error) {
	raw, present := req.GetArguments()[key]
	if !present {
		return defaultVal, nil
	}
	v, ok := raw.(float64)
	if !ok {
		return 0, fmt.Errorf("'%s' must be a number", key)
	}
	if v != math.Trunc(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("'%s' must be a whole number, got %v", key, v)
	}
	return int(v), nil
}

// boolArg extracts a boolean argument from a tool request.
func boolArg(req mcp.CallToolRequest, key string, defaultVal bool) bool {
	v, ok := req.GetArguments()[key].(bool)
	if !ok {
		return defaultVal
	}
	return v
}

// hasArg reports whether the request carries key at all.
func hasArg(req mcp.CallToolRequest, key string) bool {
	_, ok := req.GetArguments()[key]
	return ok
}

// optString returns a pointer to a string argument, or nil when absent.
func optString(req mcp.CallToolRequest, key string) *string {
	v, ok := req.GetArguments()[key].(string)
	if !ok {
		return nil
	}
	return &v
}

// jsonArg returns a JSON-valued argument. Clients may send either an
// object or a string holding JSON; both come back as raw JSON. Missing
// arguments return nil.
func jsonArg(req mcp.CallToolRequest, key string) (json.RawMessage, error) {
	v, ok := req.GetArguments()[key]
	if !ok || v == nil {
		return nil, nil
	}
	if s, ok := v.(string); ok {
		s = strings.TrimSpace(s)
		if s == "" {
			return nil, nil
		}
		if !json.Valid([]byte(s)) {
			return nil, fmt.Errorf("'%s' is not valid JSON", key)
		}
		return json.RawMessage(s), nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("'%s': %w", key, err)
	}
	return raw, nil
}

// draftArgs builds a widget draft from the shared widget arguments. typ
// selects the properties shape.
func draftArgs(req mcp.CallToolRequest, typ widget.Type) (widget.Draft, error) {
	d := widget.Draft{
		ClientID:        req.GetString("client_id", ""),
		Key:             optString(req, "key"),
		Title:           optString(req, "title"),
		DropConditional: boolArg(req, "drop_conditional", false),
	}
	if w := optString(req, "width"); w != nil {
		width := widget.Width(strings.ToUpper(*w))
		d.Width = &width
	}

	props, err := jsonArg(req, "properties")
	if err != nil {
		return d, err
	}
	if props != nil {
		if d.Properties, err = widget.ParseProperties(typ, props); err != nil {
			return d, err
		}
	}

	cond, err := jsonArg(req, "conditional")
	if err != nil {
		return d, err
	}
	if cond != nil {
		if d.Conditional, err = widget.ParseConditional(cond); err != nil {
			return d, err
		}
	}
	return d, nil
}

// widgetParams are the tool parameters shared by widget_add and
// widget_update.
func widgetParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("title",
			mcp.Description("Widget title shown to taggers"),
		),
		mcp.WithString("key",
			mcp.Description("Optional stable key, unique within the framework"),
		),
		mcp.WithString("width",
			mcp.Description("Layout hint: HALF or FULL (default FULL)"),
		),
		mcp.WithString("properties",
			mcp.Description("Type-specific properties as JSON, e.g. {\"options\":[{\"key\":\"a\",\"label\":\"A\",\"order\":0}]}"),
		),
		mcp.WithString("conditional",
			mcp.Description("Visibility rule as JSON: a condition tree "+
				"{\"conjunction\":\"AND|OR|XOR\",\"children\":[{\"condition\":{\"key\":\"<clientId>\",\"operator\":\"...\",\"operand\":[...]}}]} "+
				"or {\"conditions\": <tree>}. Leaves may only reference widgets earlier in the framework."),
		),
	}
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// domainError turns a workspace error into a tool error the caller can act
// on.
func domainError(action string, err error) *mcp.CallToolResult {
	if errors.Is(err, workspace.ErrNotFound) {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
	}
	var lines []string
	for _, e := range flatten(err) {
		lines = append(lines, "- "+e.Error())
	}
	if len(lines) == 1 {
		return mcp.NewToolResultError(fmt.Sprintf("%s: %v", action, err))
	}
	return mcp.NewToolResultError(fmt.Sprintf("%s:\n%s", action, strings.Join(lines, "\n")))
}

// flatten unwraps errors.Join trees into their leaves.
func flatten(err error) []error {
	var multi interface{ Unwrap() []error }
	if !errors.As(err, &multi) {
		return []error{err}
	}
	var out []error
	for _, e := range multi.Unwrap() {
		out = append(out, flatten(e)...)
	}
	return out
}

// required returns a tool error naming the first missing string argument.
func required(req mcp.CallToolRequest, keys ...string) *mcp.CallToolResult {
	for _, k := range keys {
		if req.GetString(k, "") == "" {
			return mcp.NewToolResultError(fmt.Sprintf("'%s' is required", k))
		}
	}
	return nil
}
