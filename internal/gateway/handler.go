package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"

	"prism/internal/analysis"
	"prism/internal/artifact"
	"prism/internal/export"
	"prism/internal/history"
	"prism/internal/layout"
	"prism/internal/llmclient"
	"prism/internal/orchestrator"
	"prism/internal/parser"
)

// Handler exposes the analysis session over JSON endpoints, an SSE event
// stream, and a websocket chat.
type Handler struct {
	session   *orchestrator.Session
	store     history.Store
	artifacts artifact.Store

	layoutMu     sync.Mutex
	engine       *layout.Engine
	layoutCancel context.CancelFunc
}

func NewHandler(session *orchestrator.Session, store history.Store, artifacts artifact.Store) *Handler {
	return &Handler{session: session, store: store, artifacts: artifacts}
}

// Routes registers every endpoint on a fresh mux.
func (h *Handler) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", h.handleAnalyze)
	mux.HandleFunc("GET /api/state", h.handleState)
	mux.HandleFunc("GET /api/events", h.handleEvents)
	mux.HandleFunc("POST /api/confirm", h.handleConfirm)
	mux.HandleFunc("POST /api/quiz", h.handleQuiz)
	mux.HandleFunc("POST /api/quiz/skip", h.handleQuizSkip)
	mux.HandleFunc("POST /api/reset", h.handleReset)
	mux.HandleFunc("POST /api/summary", h.handleSummary)
	mux.HandleFunc("POST /api/figure", h.handleFigure)
	mux.HandleFunc("POST /api/presentation", h.handlePresentation)
	mux.HandleFunc("GET /api/export", h.handleExport)
	mux.HandleFunc("GET /api/history", h.handleHistoryList)
	mux.HandleFunc("DELETE /api/history", h.handleHistoryClear)
	mux.HandleFunc("DELETE /api/history/{id}", h.handleHistoryDelete)
	mux.HandleFunc("POST /api/history/{id}/restore", h.handleHistoryRestore)
	mux.HandleFunc("POST /api/layout/start", h.handleLayoutStart)
	mux.HandleFunc("GET /api/layout", h.handleLayoutSnapshot)
	mux.HandleFunc("POST /api/layout/drag", h.handleLayoutDrag)
	mux.HandleFunc("POST /api/layout/release", h.handleLayoutRelease)
	mux.HandleFunc("POST /api/layout/stop", h.handleLayoutStop)
	mux.HandleFunc("GET /api/chat", h.handleChatWS)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func readJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

func statusFor(err error) int {
	if errors.Is(err, orchestrator.ErrBusy) {
		return http.StatusConflict
	}
	return http.StatusBadRequest
}

type uploadFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
	// Base64 marks Content as base64 bytes (used for image uploads).
	Base64 bool `json:"base64,omitempty"`
}

type analyzeRequest struct {
	Files []uploadFile `json:"files"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req analyzeRequest
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	docs := make([]analysis.Document, 0, len(req.Files))
	for _, f := range req.Files {
		data := []byte(f.Content)
		if f.Base64 {
			decoded, err := base64.StdEncoding.DecodeString(f.Content)
			if err != nil {
				writeError(w, http.StatusBadRequest, fmt.Errorf("%s: %w", f.Name, err))
				return
			}
			data = decoded
		}
		doc, err := parser.Parse(f.Name, data)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		docs = append(docs, doc)
	}
	docs = parser.Merge(docs)
	if len(docs) == 0 {
		writeError(w, http.StatusBadRequest, parser.ErrNoText)
		return
	}
	if err := h.session.Submit(r.Context(), docs); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{"state": h.session.State()})
}

func (h *Handler) handleState(w http.ResponseWriter, r *http.Request) {
	result := h.session.Result()
	resp := map[string]any{
		"state":    h.session.State(),
		"result":   result,
		"warnings": h.session.Warnings(),
		"persona":  h.session.Persona(),
	}
	if quiz := h.session.Quiz(); len(quiz) > 0 {
		resp["quiz"] = quiz
	}
	if syn := h.session.Synthesis(); syn != nil {
		resp["synthesis"] = syn
	}
	if err := h.session.Err(); err != nil {
		resp["error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleConfirm(w http.ResponseWriter, r *http.Request) {
	if err := h.session.Confirm(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": h.session.State()})
}

func (h *Handler) handleQuiz(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Answers []string `json:"answers"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	persona, err := h.session.SubmitQuizAnswers(req.Answers)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"persona": persona})
}

func (h *Handler) handleQuizSkip(w http.ResponseWriter, r *http.Request) {
	if err := h.session.SkipQuiz(); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"persona": orchestrator.DefaultPersona})
}

func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	h.stopLayout()
	h.session.Reset()
	writeJSON(w, http.StatusOK, map[string]any{"state": h.session.State()})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Length analysis.SummaryLength  `json:"length"`
		Depth  analysis.TechnicalDepth `json:"depth"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	summary, err := h.session.RegenerateSummary(r.Context(), req.Length, req.Depth)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"summary": summary})
}

func (h *Handler) handleFigure(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Index int `json:"index"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	explanation, err := h.session.ExplainFigure(r.Context(), req.Index)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"explanation": explanation})
}

func (h *Handler) handlePresentation(w http.ResponseWriter, r *http.Request) {
	pres, err := h.session.Presentation(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, pres)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	result := h.session.Result()
	if result.Title == "" && result.OverallSummary == "" {
		writeError(w, http.StatusConflict, errors.New("no analysis to export"))
		return
	}
	md := export.Markdown(result)
	if h.artifacts != nil {
		name := "report.md"
		if err := h.artifacts.Put(r.Context(), exportID(result), name, []byte(md)); err != nil {
			log.Printf("artifact save failed: %v", err)
		}
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="analysis.md"`)
	_, _ = w.Write([]byte(md))
}

func exportID(r analysis.Result) string {
	if r.Title != "" {
		return r.Title
	}
	return "untitled"
}

func (h *Handler) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusOK, []analysis.HistoryEntry{})
		return
	}
	entries, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.store.Clear(r.Context()); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err := h.store.Delete(r.Context(), r.PathValue("id")); err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleHistoryRestore(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusNotFound, errors.New("history disabled"))
		return
	}
	id := r.PathValue("id")
	entries, err := h.store.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	for _, e := range entries {
		if e.ID == id {
			if err := h.session.Restore(e); err != nil {
				writeError(w, statusFor(err), err)
				return
			}
			writeJSON(w, http.StatusOK, map[string]any{"state": h.session.State()})
			return
		}
	}
	writeError(w, http.StatusNotFound, fmt.Errorf("history entry %q not found", id))
}

// -------- layout --------

func (h *Handler) handleLayoutStart(w http.ResponseWriter, r *http.Request) {
	result := h.session.Result()
	if result.ConceptMap == nil || len(result.ConceptMap.Nodes) == 0 {
		writeError(w, http.StatusConflict, errors.New("no concept map available"))
		return
	}
	width := floatQuery(r, "width", 800)
	height := floatQuery(r, "height", 600)

	h.layoutMu.Lock()
	if h.layoutCancel != nil {
		h.layoutCancel()
	}
	engine := layout.New(layout.DefaultConfig(width, height))
	engine.SetGraph(result.ConceptMap)
	ctx, cancel := context.WithCancel(context.Background())
	h.engine = engine
	h.layoutCancel = cancel
	h.layoutMu.Unlock()

	go engine.Run(ctx, 0)
	writeJSON(w, http.StatusOK, map[string]any{"nodes": engine.Positions(), "links": engine.Edges()})
}

func (h *Handler) currentEngine() *layout.Engine {
	h.layoutMu.Lock()
	defer h.layoutMu.Unlock()
	return h.engine
}

func (h *Handler) stopLayout() {
	h.layoutMu.Lock()
	if h.layoutCancel != nil {
		h.layoutCancel()
		h.layoutCancel = nil
	}
	h.engine = nil
	h.layoutMu.Unlock()
}

func (h *Handler) handleLayoutSnapshot(w http.ResponseWriter, r *http.Request) {
	engine := h.currentEngine()
	if engine == nil {
		writeError(w, http.StatusConflict, errors.New("layout not running"))
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"nodes": engine.Positions(), "links": engine.Edges()})
}

func (h *Handler) handleLayoutDrag(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string  `json:"id"`
		X  float64 `json:"x"`
		Y  float64 `json:"y"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	engine := h.currentEngine()
	if engine == nil {
		writeError(w, http.StatusConflict, errors.New("layout not running"))
		return
	}
	engine.Drag(req.ID, req.X, req.Y)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLayoutRelease(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID string `json:"id"`
	}
	if err := readJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	engine := h.currentEngine()
	if engine == nil {
		writeError(w, http.StatusConflict, errors.New("layout not running"))
		return
	}
	engine.Release(req.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleLayoutStop(w http.ResponseWriter, r *http.Request) {
	h.stopLayout()
	w.WriteHeader(http.StatusNoContent)
}

func floatQuery(r *http.Request, key string, def float64) float64 {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return def
	}
	return v
}

// decodeAttachments converts inline base64 images to LLM attachments.
func decodeAttachments(images []uploadFile) ([]llmclient.Attachment, error) {
	out := make([]llmclient.Attachment, 0, len(images))
	for _, img := range images {
		data, err := base64.StdEncoding.DecodeString(img.Content)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", img.Name, err)
		}
		doc, err := parser.Parse(img.Name, data)
		if err != nil {
			return nil, err
		}
		if len(doc.Images) == 0 {
			return nil, fmt.Errorf("%s: not a supported image type", img.Name)
		}
		out = append(out, doc.Images...)
	}
	return out, nil
}
