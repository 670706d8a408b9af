package mcp

import (
	"context"
	stderrors "errors"

	"github.com/bytedance/sonic"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/shadowscript/internal/app"
	"github.com/hpungsan/shadowscript/internal/deadmail"
	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/ghost"
	"github.com/hpungsan/shadowscript/internal/ghostpaint"
	"github.com/hpungsan/shadowscript/internal/haunt"
	"github.com/hpungsan/shadowscript/internal/snapshot"
	"github.com/hpungsan/shadowscript/internal/vfs"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	app *app.App
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(a *app.App) *Handlers {
	return &Handlers{app: a}
}

// Request types for each tool

// PathRequest is shared by tools that take a single path.
type PathRequest struct {
	Path string `json:"path"`
}

// WriteRequest represents the arguments for fs_write.
type WriteRequest struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// GlobRequest represents the arguments for fs_glob.
type GlobRequest struct {
	Pattern string `json:"pattern"`
}

// RewriteRequest represents the arguments for message_rewrite.
type RewriteRequest struct {
	Message   string   `json:"message"`
	Intensity *float64 `json:"intensity,omitempty"`
}

// SpeakRequest represents the arguments for ghost_speak.
type SpeakRequest struct {
	Message     string `json:"message,omitempty"`
	Personality string `json:"personality,omitempty"`
}

// CommandRequest represents the arguments for ghost_command.
type CommandRequest struct {
	Command string `json:"command"`
}

// MailSendRequest represents the arguments for mail_send.
type MailSendRequest struct {
	From    string `json:"from,omitempty"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body,omitempty"`
}

// IDRequest is shared by tools that take a message ID.
type IDRequest struct {
	ID string `json:"id"`
}

// PaintSaveRequest represents the arguments for paint_save.
type PaintSaveRequest struct {
	Width  int        `json:"width"`
	Height int        `json:"height"`
	Pixels [][]string `json:"pixels,omitempty"`
}

// SnapshotExportRequest represents the arguments for snapshot_export.
type SnapshotExportRequest struct {
	Path string `json:"path,omitempty"`
	Name string `json:"name,omitempty"`
}

// Filesystem

// HandleRead handles the fs_read tool call.
func (h *Handlers) HandleRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	content, err := h.app.FS.ReadFile(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"path": vfs.Clean(input.Path), "content": content})
}

// HandleWrite handles the fs_write tool call.
func (h *Handlers) HandleWrite(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[WriteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	exists, err := h.app.FS.Exists(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	if exists {
		err = h.app.FS.UpdateFile(ctx, input.Path, input.Content)
	} else {
		err = h.app.FS.CreateFile(ctx, input.Path, input.Content)
	}
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"path": vfs.Clean(input.Path), "created": !exists})
}

// HandleMkdir handles the fs_mkdir tool call.
func (h *Handlers) HandleMkdir(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.app.FS.CreateDirectory(ctx, input.Path); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"path": vfs.Clean(input.Path)})
}

// HandleDelete handles the fs_delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.app.FS.DeleteFile(ctx, input.Path); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"path": vfs.Clean(input.Path), "deleted": true})
}

// HandleList handles the fs_list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	entries, err := h.app.FS.ListDirectory(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	if entries == nil {
		entries = []vfs.Entry{}
	}
	return successResult(map[string]any{"path": vfs.Clean(input.Path), "entries": entries})
}

// HandleStat handles the fs_stat tool call.
func (h *Handlers) HandleStat(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	entry, err := h.app.FS.Stat(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(entry)
}

// HandleGlob handles the fs_glob tool call.
func (h *Handlers) HandleGlob(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GlobRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	paths, err := h.app.FS.Glob(ctx, input.Pattern)
	if err != nil {
		return errorResult(err), nil
	}
	if paths == nil {
		paths = []string{}
	}
	return successResult(map[string]any{"pattern": input.Pattern, "paths": paths})
}

// HandleFlush handles the fs_flush tool call.
func (h *Handlers) HandleFlush(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if err := h.app.FS.Flush(ctx); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{
		"usage_bytes": h.app.FS.Usage(),
		"quota_bytes": h.app.FS.Quota(),
	})
}

// Haunting

// HandleHauntRegister handles the haunt_register tool call.
func (h *Handlers) HandleHauntRegister(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Path == "" {
		return errorResult(errors.NewInvalidRequest("path is required")), nil
	}
	h.app.Haunt.RegisterFile(input.Path)
	return successResult(map[string]any{"path": vfs.Clean(input.Path), "registered": true})
}

// HandleHauntUnregister handles the haunt_unregister tool call.
func (h *Handlers) HandleHauntUnregister(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	h.app.Haunt.UnregisterFile(input.Path)
	return successResult(map[string]any{"path": vfs.Clean(input.Path), "registered": false})
}

// HandleHauntTrigger handles the haunt_trigger tool call.
func (h *Handlers) HandleHauntTrigger(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	kind, err := h.app.Haunt.TriggerMutation(ctx, input.Path)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"path": vfs.Clean(input.Path), "type": kind})
}

// HandleHauntLog handles the haunt_log tool call.
func (h *Handlers) HandleHauntLog(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	log := h.app.Haunt.MutationLog()
	if log == nil {
		log = []haunt.LogEntry{}
	}
	files := h.app.Haunt.RegisteredFiles()
	if files == nil {
		files = []string{}
	}
	return successResult(map[string]any{"registered": files, "log": log})
}

// Messages and ghost

// HandleRewrite handles the message_rewrite tool call.
func (h *Handlers) HandleRewrite(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[RewriteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	var out string
	if input.Intensity == nil {
		out = h.app.Rewriter.Rewrite(input.Message)
	} else {
		out = h.app.Rewriter.RewriteAt(input.Message, *input.Intensity)
	}
	return successResult(map[string]any{"original": input.Message, "rewritten": out})
}

// HandleGhostSpeak handles the ghost_speak tool call.
func (h *Handlers) HandleGhostSpeak(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SpeakRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Personality != "" {
		p, err := ghost.ParsePersonality(input.Personality)
		if err != nil {
			return errorResult(errors.NewInvalidRequest(err.Error())), nil
		}
		h.app.Ghost.SetPersonality(p)
	}
	var msg ghost.Message
	if input.Message == "" {
		msg = h.app.Ghost.SpeakRandom(ctx)
	} else {
		msg = h.app.Ghost.Speak(ctx, input.Message)
	}
	return successResult(msg)
}

// HandleGhostCommand handles the ghost_command tool call.
func (h *Handlers) HandleGhostCommand(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CommandRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Command == "" {
		return errorResult(errors.NewInvalidRequest("command is required")), nil
	}
	return successResult(h.app.Ghost.RespondToCommand(ctx, input.Command))
}

// HandleGhostHistory handles the ghost_history tool call.
func (h *Handlers) HandleGhostHistory(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	history := h.app.Ghost.History()
	if history == nil {
		history = []ghost.Message{}
	}
	return successResult(map[string]any{
		"personality": h.app.Ghost.Personality(),
		"messages":    history,
	})
}

// DeadMail

// HandleMailSend handles the mail_send tool call.
func (h *Handlers) HandleMailSend(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[MailSendRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	email, err := h.app.Mail.Send(ctx, deadmail.SendInput{
		From:    input.From,
		To:      input.To,
		Subject: input.Subject,
		Body:    input.Body,
	})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(email)
}

// HandleMailInbox handles the mail_inbox tool call.
func (h *Handlers) HandleMailInbox(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	emails, err := h.app.Mail.Inbox(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	unread := deadmail.Unread(emails)
	if emails == nil {
		emails = []deadmail.Email{}
	}
	return successResult(map[string]any{"emails": emails, "unread": unread})
}

// HandleMailOpen handles the mail_open tool call.
func (h *Handlers) HandleMailOpen(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	email, err := h.app.Mail.Open(ctx, input.ID)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(email)
}

// HandleMailDelete handles the mail_delete tool call.
func (h *Handlers) HandleMailDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[IDRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if err := h.app.Mail.Delete(ctx, input.ID); err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"id": input.ID, "deleted": true})
}

// GhostPaint

// HandlePaintSave handles the paint_save tool call.
func (h *Handlers) HandlePaintSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PaintSaveRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	canvas, err := ghostpaint.NewCanvas(input.Width, input.Height)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Pixels != nil {
		canvas.Pixels = input.Pixels
	}
	path, err := h.app.Paint.Save(ctx, canvas)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(map[string]any{"path": path})
}

// HandlePaintLatest handles the paint_latest tool call.
func (h *Handlers) HandlePaintLatest(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	art, err := h.app.Paint.LoadLatest(ctx)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(art)
}

// Snapshots

// HandleSnapshotExport handles the snapshot_export tool call.
func (h *Handlers) HandleSnapshotExport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SnapshotExportRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	out, err := snapshot.Export(ctx, h.app.FS, h.app.Config, snapshot.ExportInput{Path: input.Path, Name: input.Name})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// HandleSnapshotImport handles the snapshot_import tool call.
func (h *Handlers) HandleSnapshotImport(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PathRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	out, err := snapshot.Import(ctx, h.app.FS, h.app.Config, snapshot.ImportInput{Path: input.Path})
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(out)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Details of internal errors are not exposed.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var sErr *errors.ShadowError
	if stderrors.As(err, &sErr) {
		msg := sErr.Message
		if err != error(sErr) {
			msg = err.Error() // keep wrapper context
		}
		errorObj := map[string]any{
			"code":    sErr.Code,
			"message": msg,
			"status":  sErr.Status,
		}
		if sErr.Code != errors.ErrInternal && sErr.Details != nil {
			errorObj["details"] = sErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    "INTERNAL",
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := sonic.ConfigStd.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
