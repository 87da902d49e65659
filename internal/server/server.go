// Package server wires all MCP components and creates the server instance.
//
// This is the composition root: it opens the store, builds the workspace
// and injects it into the tools, prompts and resources. No business logic
// lives here, only wiring.
package server

import (
	"context"
	"fmt"

	"github.com/HendryAvila/deepframe/internal/config"
	"github.com/HendryAvila/deepframe/internal/logging"
	"github.com/HendryAvila/deepframe/internal/prompts"
	"github.com/HendryAvila/deepframe/internal/resources"
	"github.com/HendryAvila/deepframe/internal/store"
	"github.com/HendryAvila/deepframe/internal/tools"
	"github.com/HendryAvila/deepframe/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Tool is the shape every MCP tool handler shares.
type Tool interface {
	Definition() mcp.Tool
	Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// New creates and configures the MCP server with all tools, prompts and
// resources registered.
//
// The returned cleanup function closes the store and must be called on
// shutdown (typically via defer). It is always non-nil.
func New(cfg *config.Config, log *zap.Logger) (*server.MCPServer, func(), error) {
	log = logging.OrNop(log)

	// --- Create shared dependencies ---

	st, err := store.New(store.Config{DataDir: cfg.DataDir, CacheSize: cfg.CacheSize})
	if err != nil {
		return nil, noop, fmt.Errorf("opening store: %w", err)
	}
	cleanup := func() {
		if err := st.Close(); err != nil {
			log.Warn("store close", zap.Error(err))
		}
	}

	ws := workspace.New(st, nil,
		workspace.WithLogger(log.Named("workspace")),
		workspace.WithMaxConditions(cfg.MaxConditions),
	)

	// --- Create the MCP server ---

	s := server.NewMCPServer(
		"deepframe",
		Version,
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithPromptCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(serverInstructions()),
	)

	registered := registerTools(s, ws)

	// --- Register prompts ---

	designPrompt := prompts.NewDesignPrompt()
	s.AddPrompt(designPrompt.Definition(), designPrompt.Handle)

	tagPrompt := prompts.NewTagPrompt()
	s.AddPrompt(tagPrompt.Definition(), tagPrompt.Handle)

	// --- Register resources ---

	resourceHandler := resources.NewHandler(ws)
	s.AddResource(resourceHandler.FrameworksResource(), resourceHandler.HandleFrameworks)
	s.AddResource(resourceHandler.CatalogResource(), resourceHandler.HandleCatalog)
	s.AddResourceTemplate(resourceHandler.FrameworkTemplate(), resourceHandler.HandleFramework)

	log.Info("server ready",
		zap.String("version", Version),
		zap.String("data_dir", cfg.DataDir),
		zap.Int("tools", registered),
	)
	return s, cleanup, nil
}

// noop is the cleanup returned when nothing was opened.
func noop() {}

// Tools returns every tool handler bound to ws, in registration order.
func Tools(ws *workspace.Workspace) []Tool {
	return []Tool{
		// --- Framework lifecycle ---
		tools.NewFrameworkCreateTool(ws),
		tools.NewFrameworkListTool(ws),
		tools.NewFrameworkShowTool(ws),
		tools.NewFrameworkValidateTool(ws),
		tools.NewFrameworkImportTool(ws),
		tools.NewFrameworkExportTool(ws),
		tools.NewFrameworkDeleteTool(ws),

		// --- Sections ---
		tools.NewSectionAddTool(ws),
		tools.NewSectionDeleteTool(ws),
		tools.NewSectionReorderTool(ws),

		// --- Widgets ---
		tools.NewWidgetAddTool(ws),
		tools.NewWidgetUpdateTool(ws),
		tools.NewWidgetDeleteTool(ws),
		tools.NewWidgetReorderTool(ws),

		// --- Entries and attributes ---
		tools.NewEntryCreateTool(ws),
		tools.NewEntryListTool(ws),
		tools.NewEntryShowTool(ws),
		tools.NewAttributeSetTool(ws),
		tools.NewAttributeClearTool(ws),

		// --- Conditions ---
		tools.NewEvaluateTool(ws),
	}
}

func registerTools(s *server.MCPServer, ws *workspace.Workspace) int {
	all := Tools(ws)
	for _, t := range all {
		s.AddTool(t.Definition(), t.Handle)
	}
	return len(all)
}

// serverInstructions returns the system instructions that tell the AI
// how to use deepframe.
func serverInstructions() string {
	return `You have access to deepframe, an analysis-framework MCP server.

## What it does
A framework is a tagging form: sections of widgets (TEXT, NUMBER, DATE,
SCALE, SINGLE_SELECT, MULTI_SELECT, MATRIX_1D, MATRIX_2D, ORGANIGRAM, GEO,
CONDITIONAL and more) plus secondary-tagging widgets outside any section.
Analysts create entries against a framework and answer its widgets.

## Conditions
Any widget may carry a conditional: a tree of AND/OR/XOR groups whose
leaves test the answer of an EARLIER widget (operator + operand). The
widget is shown only when the tree is true. Rules:
- Leaves may only reference widgets that come before the widget in
  document order: sections by order, then secondary widgets.
- Unanswered widgets make their leaves false (except "empty").
- Deleting a widget prunes the leaves that referenced it.
Read deepframe://widget-types for the operators each type supports.

## Workflow
1. deepframe_framework_create, then deepframe_section_add
2. deepframe_widget_add for each widget; attach conditions as you go
3. deepframe_framework_validate before handing the framework over
4. deepframe_entry_create + deepframe_attribute_set to tag
5. deepframe_condition_evaluate to see which widgets are visible

Every edit is validated as a whole. A rejected edit changes nothing;
read the error list and fix the draft.`
}
