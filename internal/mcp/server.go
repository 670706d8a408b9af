package mcp

import (
	"context"
	"sort"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/shadowscript/internal/app"
)

// KnownTypes lists all valid tool groups.
var KnownTypes = []string{"fs", "haunt", "message", "ghost", "mail", "paint", "snapshot"}

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"fs_read": {
		def:     fsReadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRead },
	},
	"fs_write": {
		def:     fsWriteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleWrite },
	},
	"fs_mkdir": {
		def:     fsMkdirToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMkdir },
	},
	"fs_delete": {
		def:     fsDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleDelete },
	},
	"fs_list": {
		def:     fsListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleList },
	},
	"fs_stat": {
		def:     fsStatToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleStat },
	},
	"fs_glob": {
		def:     fsGlobToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGlob },
	},
	"fs_flush": {
		def:     fsFlushToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleFlush },
	},
	"haunt_register": {
		def:     hauntRegisterToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHauntRegister },
	},
	"haunt_unregister": {
		def:     hauntUnregisterToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHauntUnregister },
	},
	"haunt_trigger": {
		def:     hauntTriggerToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHauntTrigger },
	},
	"haunt_log": {
		def:     hauntLogToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleHauntLog },
	},
	"message_rewrite": {
		def:     messageRewriteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleRewrite },
	},
	"ghost_speak": {
		def:     ghostSpeakToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGhostSpeak },
	},
	"ghost_command": {
		def:     ghostCommandToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGhostCommand },
	},
	"ghost_history": {
		def:     ghostHistoryToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleGhostHistory },
	},
	"mail_send": {
		def:     mailSendToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMailSend },
	},
	"mail_inbox": {
		def:     mailInboxToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMailInbox },
	},
	"mail_open": {
		def:     mailOpenToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMailOpen },
	},
	"mail_delete": {
		def:     mailDeleteToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMailDelete },
	},
	"paint_save": {
		def:     paintSaveToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePaintSave },
	},
	"paint_latest": {
		def:     paintLatestToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandlePaintLatest },
	},
	"snapshot_export": {
		def:     snapshotExportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshotExport },
	},
	"snapshot_import": {
		def:     snapshotImportToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleSnapshotImport },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// ValidateDisabledTypes returns a list of unknown type names from the given list.
func ValidateDisabledTypes(names []string) []string {
	known := make(map[string]bool, len(KnownTypes))
	for _, t := range KnownTypes {
		known[t] = true
	}

	unknown := make([]string, 0)
	for _, name := range names {
		if !known[name] {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// GetTypeForTool extracts the group from a tool name.
// Tool names follow the pattern "type_action" (e.g., "fs_read" → "fs").
func GetTypeForTool(toolName string) string {
	if idx := strings.Index(toolName, "_"); idx > 0 {
		return toolName[:idx]
	}
	return ""
}

// ExpandTypesToTools returns all tool names belonging to the given types.
func ExpandTypesToTools(types []string) []string {
	if len(types) == 0 {
		return nil
	}
	typeSet := make(map[string]bool, len(types))
	for _, t := range types {
		typeSet[t] = true
	}

	tools := make([]string, 0)
	for name := range toolRegistry {
		if typeSet[GetTypeForTool(name)] {
			tools = append(tools, name)
		}
	}
	return tools
}

// NewServer creates an MCP server exposing the application's tools.
// Tools listed in cfg.DisabledTools or belonging to cfg.DisabledTypes
// are excluded from registration.
func NewServer(a *app.App, version string) *server.MCPServer {
	s := server.NewMCPServer(
		"shadowscript",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(a)

	disabled := make(map[string]bool)
	for _, tool := range ExpandTypesToTools(a.Config.DisabledTypes) {
		disabled[tool] = true
	}
	for _, name := range a.Config.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run starts the MCP server using stdio transport.
func Run(a *app.App, version string) error {
	return server.ServeStdio(NewServer(a, version))
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
