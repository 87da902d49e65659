// Package resources implements MCP resource handlers for stored frameworks.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (deepframe://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/HendryAvila/deepframe/internal/widget"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	frameworksURI = "deepframe://frameworks"
	frameworkURI  = "deepframe://frameworks/{id}"
	catalogURI    = "deepframe://widget-types"
)

// Handler manages deepframe resource endpoints.
type Handler struct {
	ws *workspace.Workspace
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(ws *workspace.Workspace) *Handler {
	return &Handler{ws: ws}
}

// FrameworksResource returns the MCP resource definition for the framework list.
func (h *Handler) FrameworksResource() mcp.Resource {
	return mcp.NewResource(
		frameworksURI,
		"Frameworks",
		mcp.WithResourceDescription("Stored analysis frameworks with section, widget and entry counts"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleFrameworks returns the framework list as JSON.
func (h *Handler) HandleFrameworks(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	list, err := h.ws.Frameworks()
	if err != nil {
		return nil, fmt.Errorf("listing frameworks: %w", err)
	}
	return jsonContents(req.Params.URI, list)
}

// FrameworkTemplate returns the MCP resource template for one framework document.
func (h *Handler) FrameworkTemplate() mcp.ResourceTemplate {
	return mcp.NewResourceTemplate(
		frameworkURI,
		"Framework document",
		mcp.WithTemplateDescription("A complete framework document: sections, widgets and their conditions"),
		mcp.WithTemplateMIMEType("application/json"),
	)
}

// HandleFramework returns one framework document as JSON.
func (h *Handler) HandleFramework(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	id := strings.TrimPrefix(req.Params.URI, frameworksURI+"/")
	if id == "" || id == req.Params.URI {
		return errorResource(req.Params.URI, "framework id missing from URI"), nil
	}
	f, err := h.ws.Framework(id)
	if errors.Is(err, workspace.ErrNotFound) {
		return errorResource(req.Params.URI, err.Error()), nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading framework %s: %w", id, err)
	}
	return jsonContents(req.Params.URI, f)
}

// TypeInfo describes one widget type in the catalog.
type TypeInfo struct {
	Type      widget.Type       `json:"type"`
	Operators []widget.Operator `json:"operators"`
	// SetOperators take an operand of keys and an operatorModifier.
	SetOperators []widget.Operator `json:"set_operators,omitempty"`
}

// CatalogResource returns the MCP resource definition for the widget catalog.
func (h *Handler) CatalogResource() mcp.Resource {
	return mcp.NewResource(
		catalogURI,
		"Widget types",
		mcp.WithResourceDescription("Every widget type with the condition operators it supports"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleCatalog returns the widget catalog as JSON.
func (h *Handler) HandleCatalog(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return jsonContents(req.Params.URI, Catalog())
}

// Catalog lists every widget type in canonical order.
func Catalog() []TypeInfo {
	out := make([]TypeInfo, 0, len(widget.Types))
	for _, t := range widget.Types {
		info := TypeInfo{Type: t, Operators: widget.OperatorsFor(t)}
		for _, op := range info.Operators {
			if widget.IsSetOperator(op) {
				info.SetOperators = append(info.SetOperators, op)
			}
		}
		out = append(out, info)
	}
	return out
}

func jsonContents(uri string, v any) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource returns a resource with an error message.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     fmt.Sprintf("Error: %s", message),
		},
	}
}
