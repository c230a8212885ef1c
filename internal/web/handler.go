// Package web implements the JSON API handlers for drafts, presets and tasks.
package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/article"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/middleware"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/preset"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/reframe"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/session"
	"github.com/birdy-nyquiste/AI-Driven-News-Reframer/internal/task"
)

type Deps struct {
	Sessions       *session.Manager
	Articles       *article.Manager
	Fetcher        *article.Fetcher
	Presets        *preset.Registry
	Tasks          task.Store
	Reframe        *reframe.Service
	Logger         *slog.Logger
	MaxUploadBytes int64
}

type Handler struct {
	sessions  *session.Manager
	articles  *article.Manager
	fetcher   *article.Fetcher
	presets   *preset.Registry
	tasks     task.Store
	reframe   *reframe.Service
	logger    *slog.Logger
	maxUpload int64
}

func NewHandler(deps Deps) *Handler {
	return &Handler{
		sessions:  deps.Sessions,
		articles:  deps.Articles,
		fetcher:   deps.Fetcher,
		presets:   deps.Presets,
		tasks:     deps.Tasks,
		reframe:   deps.Reframe,
		logger:    deps.Logger,
		maxUpload: deps.MaxUploadBytes,
	}
}

type draftResponse struct {
	Draft session.Draft `json:"draft"`
	Ready bool          `json:"ready"`
}

// GetDraft returns the session's current draft and whether it can become a
// task.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.sessions.Draft(r.Context(), sessionID(r))
	if err != nil {
		h.serverError(w, "load draft", err)
		return
	}
	WriteJSON(w, http.StatusOK, draftResponse{Draft: draft, Ready: draft.Ready()})
}

// SetTitle stores the draft title.
func (h *Handler) SetTitle(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "bad_request", "cannot parse request body")
		return
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		WriteJSONError(w, http.StatusBadRequest, "validation", "title must not be empty")
		return
	}

	if err := h.sessions.SetTitle(r.Context(), sessionID(r), title); err != nil {
		h.serverError(w, "set title", err)
		return
	}
	h.writeDraft(w, r)
}

// AddArticle attaches a source article to the draft. Pasted text and URLs
// arrive as JSON; PDFs as a multipart upload under the pdf_file field.
func (h *Handler) AddArticle(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload+1<<20)

	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		h.addPDFArticle(w, r)
		return
	}

	var req struct {
		Kind string `json:"kind"`
		Text string `json:"text"`
		URL  string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "bad_request", "cannot parse request body")
		return
	}

	ctx := r.Context()
	sid := sessionID(r)

	var art article.Article
	var err error
	switch req.Kind {
	case article.KindText:
		art, err = h.articles.SaveText(sid, req.Text)
	case article.KindURL:
		var text string
		text, err = h.fetcher.Fetch(ctx, req.URL)
		if err == nil {
			art, err = h.articles.SaveFetched(sid, strings.TrimSpace(req.URL), text)
		}
	default:
		WriteJSONError(w, http.StatusBadRequest, "validation", "kind must be text or url")
		return
	}
	if err != nil {
		h.articleError(w, err)
		return
	}

	if err := h.sessions.AddArticle(ctx, sid, art); err != nil {
		h.serverError(w, "add article", err)
		return
	}
	h.writeDraft(w, r)
}

func (h *Handler) addPDFArticle(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("pdf_file")
	if err != nil {
		WriteJSONError(w, http.StatusBadRequest, "validation", "pdf_file upload is missing")
		return
	}
	defer file.Close()

	sid := sessionID(r)
	art, err := h.articles.SavePDF(sid, file)
	if err != nil {
		h.articleError(w, err)
		return
	}

	if err := h.sessions.AddArticle(r.Context(), sid, art); err != nil {
		h.serverError(w, "add article", err)
		return
	}
	h.writeDraft(w, r)
}

// RemoveArticle detaches an article from the draft and deletes its file.
func (h *Handler) RemoveArticle(w http.ResponseWriter, r *http.Request) {
	articleID := chi.URLParam(r, "articleID")
	sid := sessionID(r)

	removed, err := h.sessions.RemoveArticle(r.Context(), sid, articleID)
	if err != nil {
		if errors.Is(err, session.ErrArticleNotFound) {
			WriteJSONError(w, http.StatusNotFound, "not_found", "article not found")
			return
		}
		h.serverError(w, "remove article", err)
		return
	}

	if err := h.articles.Remove(sid, removed); err != nil {
		h.logger.Warn("remove article file", slog.String("error", err.Error()))
	}
	h.writeDraft(w, r)
}

// SetInstruction stores a custom instruction or selects a preset; sending
// neither clears the instruction. Sending both is a validation error.
func (h *Handler) SetInstruction(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Instruction string `json:"instruction"`
		Preset      string `json:"preset"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteJSONError(w, http.StatusBadRequest, "bad_request", "cannot parse request body")
		return
	}

	instruction := strings.TrimSpace(req.Instruction)
	presetName := strings.TrimSpace(req.Preset)
	ctx := r.Context()
	sid := sessionID(r)

	switch {
	case instruction != "" && presetName != "":
		WriteJSONError(w, http.StatusBadRequest, "validation", "set either instruction or preset, not both")
		return
	case presetName != "":
		if !h.presets.Has(presetName) {
			WriteJSONError(w, http.StatusBadRequest, "validation", "unknown preset: "+presetName)
			return
		}
		if err := h.articles.DeleteInstruction(sid); err != nil {
			h.serverError(w, "delete instruction file", err)
			return
		}
		if err := h.sessions.SetPreset(ctx, sid, presetName); err != nil {
			h.serverError(w, "set preset", err)
			return
		}
	case instruction != "":
		if err := h.articles.SaveInstruction(sid, instruction); err != nil {
			h.serverError(w, "save instruction file", err)
			return
		}
		if err := h.sessions.SetInstruction(ctx, sid, instruction); err != nil {
			h.serverError(w, "set instruction", err)
			return
		}
	default:
		if err := h.articles.DeleteInstruction(sid); err != nil {
			h.serverError(w, "delete instruction file", err)
			return
		}
		if err := h.sessions.ClearInstruction(ctx, sid); err != nil {
			h.serverError(w, "clear instruction", err)
			return
		}
	}
	h.writeDraft(w, r)
}

// ClearDraft discards the draft and every file in the session folder.
func (h *Handler) ClearDraft(w http.ResponseWriter, r *http.Request) {
	sid := sessionID(r)
	if err := h.sessions.ClearDraft(r.Context(), sid); err != nil {
		h.serverError(w, "clear draft", err)
		return
	}
	if err := h.articles.RemoveSession(sid); err != nil {
		h.logger.Warn("remove session folder", slog.String("error", err.Error()))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListPresets returns the available rewriting presets.
func (h *Handler) ListPresets(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, map[string]any{"presets": h.presets.List()})
}

// CreateTask snapshots a ready draft into a task and clears the draft. The
// uploaded files stay in place; processing reads them from the session
// folder.
func (h *Handler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req struct {
		GenerateImage bool `json:"generate_image"`
	}
	// An empty body means defaults.
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteJSONError(w, http.StatusBadRequest, "bad_request", "cannot parse request body")
		return
	}

	ctx := r.Context()
	sid := sessionID(r)

	draft, err := h.sessions.Draft(ctx, sid)
	if err != nil {
		h.serverError(w, "load draft", err)
		return
	}
	if !draft.Ready() {
		WriteJSONError(w, http.StatusBadRequest, "validation", "draft needs a title and at least one article")
		return
	}

	now := time.Now()
	t := task.Task{
		ID:            uuid.NewString(),
		SessionID:     sid,
		Title:         draft.Title,
		Articles:      draft.Articles,
		Instruction:   draft.Instruction,
		Preset:        draft.Preset,
		GenerateImage: req.GenerateImage,
		Status:        task.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := h.tasks.Create(ctx, t); err != nil {
		h.serverError(w, "create task", err)
		return
	}
	if err := h.sessions.ClearDraft(ctx, sid); err != nil {
		h.logger.Warn("clear draft after create", slog.String("error", err.Error()))
	}

	WriteJSON(w, http.StatusCreated, t)
}

// ListTasks returns the session's tasks, oldest first.
func (h *Handler) ListTasks(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.tasks.ListBySession(r.Context(), sessionID(r))
	if err != nil {
		h.serverError(w, "list tasks", err)
		return
	}
	if tasks == nil {
		tasks = []task.Task{}
	}
	WriteJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// GetTask returns one task. Tasks are private to their session; other
// sessions see 404.
func (h *Handler) GetTask(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, t)
}

// ProcessTask runs the reframing pipeline and returns the task in its final
// state; a failed pipeline shows up as status "failed" on the task.
func (h *Handler) ProcessTask(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	processed, err := h.reframe.Process(r.Context(), t)
	if err != nil {
		switch {
		case errors.Is(err, task.ErrProcessing):
			WriteJSONError(w, http.StatusConflict, "conflict", "task is already being processed")
		case processed.Status == task.StatusFailed:
			// The failure is recorded on the task; report it alongside.
			WriteJSON(w, http.StatusOK, processed)
		default:
			// The store write itself failed; the task state is unknown.
			h.serverError(w, "process task", err)
		}
		return
	}
	WriteJSON(w, http.StatusOK, processed)
}

// GetImage serves a generated illustration belonging to the task.
func (h *Handler) GetImage(w http.ResponseWriter, r *http.Request) {
	t, ok := h.ownedTask(w, r)
	if !ok {
		return
	}

	name := chi.URLParam(r, "name")
	if !containsString(t.Images, name) {
		WriteJSONError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}

	path, err := h.articles.ImagePath(t.SessionID, name)
	if err != nil {
		WriteJSONError(w, http.StatusNotFound, "not_found", "image not found")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	http.ServeFile(w, r, path)
}

func (h *Handler) ownedTask(w http.ResponseWriter, r *http.Request) (task.Task, bool) {
	taskID := chi.URLParam(r, "taskID")
	t, err := h.tasks.Get(r.Context(), taskID)
	if err != nil {
		if errors.Is(err, task.ErrNotFound) {
			WriteJSONError(w, http.StatusNotFound, "not_found", "task not found")
			return task.Task{}, false
		}
		h.serverError(w, "load task", err)
		return task.Task{}, false
	}
	if t.SessionID != sessionID(r) {
		// Do not reveal that the task exists at all.
		WriteJSONError(w, http.StatusNotFound, "not_found", "task not found")
		return task.Task{}, false
	}
	return t, true
}

func (h *Handler) writeDraft(w http.ResponseWriter, r *http.Request) {
	draft, err := h.sessions.Draft(r.Context(), sessionID(r))
	if err != nil {
		h.serverError(w, "load draft", err)
		return
	}
	WriteJSON(w, http.StatusOK, draftResponse{Draft: draft, Ready: draft.Ready()})
}

// articleError maps intake failures to client-facing responses.
func (h *Handler) articleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, article.ErrEmptyText):
		WriteJSONError(w, http.StatusBadRequest, "validation", "article text must not be empty")
	case errors.Is(err, article.ErrInvalidPDF):
		WriteJSONError(w, http.StatusBadRequest, "validation", "upload is not a valid PDF file")
	case errors.Is(err, article.ErrTooLarge):
		WriteJSONError(w, http.StatusRequestEntityTooLarge, "too_large", "upload exceeds the size limit")
	case errors.Is(err, article.ErrUnsupportedScheme),
		errors.Is(err, article.ErrUnsupportedType),
		errors.Is(err, article.ErrNoReadableText):
		WriteJSONError(w, http.StatusBadRequest, "validation", err.Error())
	default:
		h.logger.Error("article intake failed", slog.String("error", err.Error()))
		WriteJSONError(w, http.StatusBadGateway, "fetch_failed", "could not load the article")
	}
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.String("error", err.Error()))
	WriteJSONError(w, http.StatusInternalServerError, "internal", "internal error")
}

func sessionID(r *http.Request) string {
	return middleware.SessionID(r.Context())
}

func containsString(items []string, want string) bool {
	for _, item := range items {
		if item == want {
			return true
		}
	}
	return false
}
