package web

import (
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/hpungsan/shadowscript/internal/app"
	"github.com/hpungsan/shadowscript/internal/deadmail"
	"github.com/hpungsan/shadowscript/internal/errors"
	"github.com/hpungsan/shadowscript/internal/ghost"
	"github.com/hpungsan/shadowscript/internal/haunt"
	"github.com/hpungsan/shadowscript/internal/vfs"
)

// Handlers contains HTTP route handlers for the web viewer and JSON API.
type Handlers struct {
	app      *app.App
	renderer *Renderer
}

// Pages

// HandleBrowse handles GET /fs/{path...}: a listing for directories, a viewer for files.
func (h *Handlers) HandleBrowse(w http.ResponseWriter, r *http.Request) {
	p := vfs.Clean(r.PathValue("path"))
	entry, err := h.app.FS.Stat(r.Context(), p)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if entry.Type == vfs.TypeDirectory {
		entries, err := h.app.FS.ListDirectory(r.Context(), p)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		h.renderer.renderPage(w, r, "browse", BrowsePageData{
			PageData: h.renderer.page(p, "fs"),
			Path:     p,
			Parent:   parentOf(p),
			Entries:  entries,
			Usage:    h.app.FS.Usage(),
			Quota:    h.app.FS.Quota(),
		})
		return
	}

	content, err := h.app.FS.ReadFile(r.Context(), p)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	data := FilePageData{
		PageData: h.renderer.page(entry.Name, "fs"),
		Entry:    entry,
		Parent:   parentOf(p),
		Content:  content,
		Markdown: isMarkdown(p),
		Haunted:  h.app.Haunt.IsRegistered(p),
	}
	if data.Markdown {
		data.Rendered = renderMarkdown(content)
	}
	h.renderer.renderPage(w, r, "file", data)
}

// HandleHaunt handles GET /haunt.
func (h *Handlers) HandleHaunt(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "haunt", h.hauntData(r))
}

// HandleHauntTrigger handles POST /haunt/trigger.
func (h *Handlers) HandleHauntTrigger(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	p := r.FormValue("path")
	if p == "" {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("path is required"))
		return
	}
	kind, err := h.app.Haunt.TriggerMutation(r.Context(), p)
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}

	if r.Header.Get("HX-Request") == "true" {
		h.renderer.renderBlock(w, http.StatusOK, "haunt", "haunt-log", h.hauntData(r))
		return
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, map[string]any{"path": vfs.Clean(p), "type": kind})
		return
	}
	http.Redirect(w, r, "/haunt", http.StatusFound)
}

func (h *Handlers) hauntData(r *http.Request) HauntPageData {
	return HauntPageData{
		PageData:   h.renderer.page("Haunting", "haunt"),
		Registered: h.app.Haunt.RegisteredFiles(),
		Log:        reverseLog(h.app.Haunt.MutationLog(), parseIntParam(r, "limit", 100)),
	}
}

// HandleGhost handles GET /ghost.
func (h *Handlers) HandleGhost(w http.ResponseWriter, r *http.Request) {
	h.renderer.renderPage(w, r, "ghost", GhostPageData{
		PageData:    h.renderer.page("Ghost", "ghost"),
		Personality: h.app.Ghost.Personality(),
		Messages:    h.app.Ghost.History(),
	})
}

// HandleGhostSpeak handles POST /ghost/speak. An empty message lets the ghost pick one.
func (h *Handlers) HandleGhostSpeak(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		h.renderer.renderError(w, r, errors.NewInvalidRequest("invalid form data"))
		return
	}
	var msg ghost.Message
	if m := strings.TrimSpace(r.FormValue("message")); m != "" {
		msg = h.app.Ghost.Speak(r.Context(), m)
	} else {
		msg = h.app.Ghost.SpeakRandom(r.Context())
	}
	if wantsJSON(r) {
		renderJSON(w, http.StatusOK, msg)
		return
	}
	http.Redirect(w, r, "/ghost", http.StatusFound)
}

// HandleMail handles GET /mail and GET /mail/{id}. Opening a message marks it read.
func (h *Handlers) HandleMail(w http.ResponseWriter, r *http.Request) {
	var selected *deadmail.Email
	if id := r.PathValue("id"); id != "" {
		email, err := h.app.Mail.Open(r.Context(), id)
		if err != nil {
			h.renderer.renderError(w, r, err)
			return
		}
		selected = email
	}

	emails, err := h.app.Mail.Inbox(r.Context())
	if err != nil {
		h.renderer.renderError(w, r, err)
		return
	}
	unread := deadmail.Unread(emails)
	h.renderer.renderPage(w, r, "mail", MailPageData{
		PageData: h.renderer.page("DeadMail", "mail"),
		Emails:   emails,
		Unread:   unread,
		Selected: selected,
	})
}

// JSON API

// HandleAPIGet handles GET /api/fs/{path...}.
func (h *Handlers) HandleAPIGet(w http.ResponseWriter, r *http.Request) {
	p := vfs.Clean(r.PathValue("path"))
	entry, err := h.app.FS.Stat(r.Context(), p)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	if entry.Type == vfs.TypeDirectory {
		entries, err := h.app.FS.ListDirectory(r.Context(), p)
		if err != nil {
			h.apiError(w, r, err)
			return
		}
		renderJSON(w, http.StatusOK, map[string]any{"entry": entry, "entries": entries})
		return
	}
	content, err := h.app.FS.ReadFile(r.Context(), p)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"entry": entry, "content": content})
}

// HandleAPIPut handles PUT /api/fs/{path...}: the body becomes the file content.
// With ?type=directory a directory is created instead.
func (h *Handlers) HandleAPIPut(w http.ResponseWriter, r *http.Request) {
	p := vfs.Clean(r.PathValue("path"))
	if r.URL.Query().Get("type") == string(vfs.TypeDirectory) {
		if err := h.app.FS.CreateDirectory(r.Context(), p); err != nil {
			h.apiError(w, r, err)
			return
		}
		renderJSON(w, http.StatusCreated, map[string]any{"path": p, "created": true})
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.app.FS.Quota()))
	if err != nil {
		h.apiError(w, r, errors.NewInvalidRequest("request body too large or unreadable"))
		return
	}
	exists, err := h.app.FS.Exists(r.Context(), p)
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	status := http.StatusOK
	if exists {
		err = h.app.FS.UpdateFile(r.Context(), p, string(body))
	} else {
		err = h.app.FS.CreateFile(r.Context(), p, string(body))
		status = http.StatusCreated
	}
	if err != nil {
		h.apiError(w, r, err)
		return
	}
	renderJSON(w, status, map[string]any{"path": p, "created": !exists})
}

// HandleAPIDelete handles DELETE /api/fs/{path...}.
func (h *Handlers) HandleAPIDelete(w http.ResponseWriter, r *http.Request) {
	p := vfs.Clean(r.PathValue("path"))
	if err := h.app.FS.DeleteFile(r.Context(), p); err != nil {
		h.apiError(w, r, err)
		return
	}
	renderJSON(w, http.StatusOK, map[string]any{"path": p, "deleted": true})
}

// RewriteBody is the request body of POST /api/rewrite.
type RewriteBody struct {
	Message   string   `json:"message"`
	Intensity *float64 `json:"intensity,omitempty"`
}

// HandleAPIRewrite handles POST /api/rewrite.
func (h *Handlers) HandleAPIRewrite(w http.ResponseWriter, r *http.Request) {
	var body RewriteBody
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, 1<<20))
	if err == nil {
		err = sonic.ConfigStd.Unmarshal(data, &body)
	}
	if err != nil {
		h.apiError(w, r, errors.NewInvalidRequest("body must be JSON with a message field"))
		return
	}
	var out string
	if body.Intensity == nil {
		out = h.app.Rewriter.Rewrite(body.Message)
	} else {
		out = h.app.Rewriter.RewriteAt(body.Message, *body.Intensity)
	}
	renderJSON(w, http.StatusOK, map[string]any{"original": body.Message, "rewritten": out})
}

// HandleAPIHauntLog handles GET /api/haunt/log.
func (h *Handlers) HandleAPIHauntLog(w http.ResponseWriter, r *http.Request) {
	log := h.app.Haunt.MutationLog()
	if log == nil {
		log = []haunt.LogEntry{}
	}
	files := h.app.Haunt.RegisteredFiles()
	if files == nil {
		files = []string{}
	}
	renderJSON(w, http.StatusOK, map[string]any{"registered": files, "log": log})
}

// apiError always answers in JSON regardless of Accept.
func (h *Handlers) apiError(w http.ResponseWriter, r *http.Request, err error) {
	r.Header.Set("Accept", "application/json")
	h.renderer.renderError(w, r, err)
}

// parseIntParam parses an integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	s := r.URL.Query().Get(name)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return v
}

func parentOf(p string) string {
	if p == "/" {
		return "/"
	}
	return path.Dir(p)
}

func isMarkdown(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	return ext == ".md" || ext == ".markdown"
}

// reverseLog returns the newest entries first, capped by limit.
func reverseLog(entries []haunt.LogEntry, limit int) []haunt.LogEntry {
	if limit <= 0 || limit > len(entries) {
		limit = len(entries)
	}
	out := make([]haunt.LogEntry, 0, limit)
	for i := len(entries) - 1; i >= len(entries)-limit; i-- {
		out = append(out, entries[i])
	}
	return out
}
