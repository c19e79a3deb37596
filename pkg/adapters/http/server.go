package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/api"
	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/dnd"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/history"
	"github.com/aretw0/folio/pkg/outline"
	"github.com/aretw0/folio/pkg/session"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/routers"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
)

// MaxBodySize caps request bodies.
const MaxBodySize = 4 << 20

// Server exposes a session.Manager over HTTP.
type Server struct {
	Manager *session.Manager
	Streams *StreamManager

	router      http.Handler
	spec        *openapi3.T
	logger      *slog.Logger
	unsubscribe func()
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates the HTTP API over manager. Requests are validated against the
// embedded OpenAPI spec. Every change the manager reports is broadcast to the event
// streams of its document; Close stops that.
func NewServer(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		Manager: manager,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Streams = NewStreamManager(s.logger)
	s.unsubscribe = manager.Subscribe(s.broadcast)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = io.WriteString(w, swaggerHTML)
	})
	r.Route("/documents", func(r chi.Router) {
		r.Get("/", s.ListDocuments)
		r.Post("/", s.CreateDocument)
		r.Route("/{id}", func(r chi.Router) {
			r.Use(bindDocumentID)
			r.Get("/", s.GetDocument)
			r.Put("/", s.PutDocument)
			r.Delete("/", s.DeleteDocument)
			r.Post("/commands", s.Dispatch)
			r.Post("/undo", s.Undo)
			r.Post("/redo", s.Redo)
			r.Get("/history", s.GetHistory)
			r.Get("/outline", s.GetOutline)
			r.Get("/graph", s.GetGraph)
			r.Get("/dropzones", s.GetDropZones)
			r.Post("/drop", s.Drop)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	var handler http.Handler = r
	spec, err := LoadSpec()
	if err == nil {
		var specRouter routers.Router
		if specRouter, err = newSpecRouter(spec); err == nil {
			s.spec = spec
			handler = validateRequests(specRouter, s.logger, r)
		}
	}
	if err != nil {
		s.logger.Error("OpenAPI spec unavailable, requests are not validated", "error", err)
	}
	s.router = enableCORS(handler)
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// Close detaches the server from the manager's change feed.
func (s *Server) Close() {
	s.unsubscribe()
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	apiVersion := "unknown"
	if s.spec != nil && s.spec.Info != nil {
		apiVersion = s.spec.Info.Version
	}
	s.writeJSON(w, http.StatusOK, map[string]any{
		"app":         "folio-http",
		"version":     strings.TrimSpace(folio.Version),
		"api_version": apiVersion,
		"components":  s.Manager.Registry().Types(),
	})
}

// ListDocuments handles GET /documents.
func (s *Server) ListDocuments(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Manager.List(r.Context())
	if err != nil {
		s.fail(w, "List", err)
		return
	}
	if ids == nil {
		ids = []string{}
	}
	s.writeJSON(w, http.StatusOK, ids)
}

type createRequest struct {
	ID string `json:"id"`
}

type documentResponse struct {
	ID       string           `json:"id"`
	Document *domain.Document `json:"document"`
}

// CreateDocument handles POST /documents. Without an ID in the body a random one is used.
func (s *Server) CreateDocument(w http.ResponseWriter, r *http.Request) {
	var body createRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize)).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			s.logger.Warn("CreateDocument: Invalid request body", "error", err)
			return
		}
	}
	if body.ID == "" {
		body.ID = uuid.NewString()
	}

	doc, err := s.Manager.Create(r.Context(), body.ID)
	if err != nil {
		s.fail(w, "Create", err)
		return
	}
	w.Header().Set("Location", "/documents/"+body.ID)
	s.writeJSON(w, http.StatusCreated, documentResponse{ID: body.ID, Document: doc})
}

// GetDocument handles GET /documents/{id}. ?format=yaml returns YAML.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	var param string
	if err := queryParam(r, "format", &param); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter format: %v", err), http.StatusBadRequest)
		return
	}
	doc, err := s.Manager.Load(r.Context(), id)
	if err != nil {
		s.fail(w, "Load", err)
		return
	}

	format := codec.FormatJSON
	contentType := "application/json"
	if strings.EqualFold(param, "yaml") {
		format, contentType = codec.FormatYAML, "application/yaml"
	}
	data, err := codec.Marshal(doc, format)
	if err != nil {
		s.fail(w, "Marshal", err)
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(data)
}

// PutDocument handles PUT /documents/{id}, replacing the document and its history.
// YAML bodies are accepted when the Content-Type says so.
func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	format := codec.FormatJSON
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = codec.FormatYAML
	}
	doc, err := codec.Unmarshal(data, format)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid document: %v", err), http.StatusBadRequest)
		s.logger.Warn("PutDocument: Invalid document", "document_id", id, "error", err)
		return
	}
	if err := s.Manager.Save(r.Context(), id, doc); err != nil {
		s.fail(w, "Save", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// DeleteDocument handles DELETE /documents/{id}.
func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	if err := s.Manager.Delete(r.Context(), id); err != nil {
		s.fail(w, "Delete", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type editResponse struct {
	Document         *domain.Document     `json:"document"`
	StructureChanged bool                 `json:"structure_changed"`
	History          history.Availability `json:"history"`
}

// Dispatch handles POST /documents/{id}/commands. The body is one command envelope or
// an array of them; an array is applied as a single batch.
func (s *Server) Dispatch(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	data, err := io.ReadAll(io.LimitReader(r.Body, MaxBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	cmds, err := codec.DecodeCommands(s.Manager.Registry(), data, codec.FormatJSON)
	if err != nil {
		http.Error(w, fmt.Sprintf("Invalid commands: %v", err), http.StatusBadRequest)
		s.logger.Warn("Dispatch: Invalid commands", "document_id", id, "error", err)
		return
	}
	var cmd domain.Command
	switch len(cmds) {
	case 0:
		http.Error(w, "No commands", http.StatusBadRequest)
		return
	case 1:
		cmd = cmds[0]
	default:
		cmd = domain.Batch{Commands: cmds}
	}

	res, err := s.Manager.Dispatch(r.Context(), id, cmd)
	if err != nil {
		s.fail(w, "Dispatch", err)
		return
	}
	s.respondEdit(w, r, id, res.Document, res.StructureChanged)
}

// Undo handles POST /documents/{id}/undo. 409 when there is nothing to undo.
func (s *Server) Undo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, "undo", s.Manager.Undo)
}

// Redo handles POST /documents/{id}/redo. 409 when there is nothing to redo.
func (s *Server) Redo(w http.ResponseWriter, r *http.Request) {
	s.step(w, r, "redo", s.Manager.Redo)
}

func (s *Server) step(w http.ResponseWriter, r *http.Request, name string, move func(context.Context, string) (domain.Result, bool, error)) {
	id := documentID(r)
	res, ok, err := move(r.Context(), id)
	if err != nil {
		s.fail(w, name, err)
		return
	}
	if !ok {
		http.Error(w, fmt.Sprintf("Nothing to %s", name), http.StatusConflict)
		return
	}
	s.respondEdit(w, r, id, res.Document, res.StructureChanged)
}

// GetHistory handles GET /documents/{id}/history.
func (s *Server) GetHistory(w http.ResponseWriter, r *http.Request) {
	av, err := s.Manager.History(r.Context(), documentID(r))
	if err != nil {
		s.fail(w, "History", err)
		return
	}
	s.writeJSON(w, http.StatusOK, av)
}

// GetOutline handles GET /documents/{id}/outline as a Markdown list.
func (s *Server) GetOutline(w http.ResponseWriter, r *http.Request) {
	doc, err := s.Manager.Load(r.Context(), documentID(r))
	if err != nil {
		s.fail(w, "Load", err)
		return
	}
	md, err := outline.Markdown(doc)
	if err != nil {
		s.fail(w, "Outline", err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = io.WriteString(w, md)
}

// GetGraph handles GET /documents/{id}/graph as a Mermaid flowchart. ?selected=id and
// ?changed=a,b highlight nodes.
func (s *Server) GetGraph(w http.ResponseWriter, r *http.Request) {
	var (
		selected string
		changed  []string
	)
	if err := queryParam(r, "selected", &selected); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter selected: %v", err), http.StatusBadRequest)
		return
	}
	if err := queryParam(r, "changed", &changed); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter changed: %v", err), http.StatusBadRequest)
		return
	}
	doc, err := s.Manager.Load(r.Context(), documentID(r))
	if err != nil {
		s.fail(w, "Load", err)
		return
	}
	var overlay *outline.Overlay
	if selected != "" || len(changed) > 0 {
		overlay = &outline.Overlay{Selected: domain.NodeID(selected)}
		for _, id := range changed {
			overlay.Changed = append(overlay.Changed, domain.NodeID(strings.TrimSpace(id)))
		}
	}
	graph, err := outline.Mermaid(doc, overlay)
	if err != nil {
		s.fail(w, "Graph", err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, graph)
}

// GetDropZones handles GET /documents/{id}/dropzones?node=X.
func (s *Server) GetDropZones(w http.ResponseWriter, r *http.Request) {
	var node string
	if err := runtime.BindQueryParameter("form", true, true, "node", r.URL.Query(), &node); err != nil || node == "" {
		http.Error(w, "Missing node parameter", http.StatusBadRequest)
		return
	}
	doc, err := s.Manager.Load(r.Context(), documentID(r))
	if err != nil {
		s.fail(w, "Load", err)
		return
	}
	zones, err := dnd.New(s.Manager.Registry(), nil).DropZones(doc, domain.NodeID(node))
	if err != nil {
		s.fail(w, "DropZones", err)
		return
	}
	if zones == nil {
		zones = []dnd.Zone{}
	}
	s.writeJSON(w, http.StatusOK, zones)
}

type dropRequest struct {
	Node     domain.NodeID `json:"node"`
	Target   domain.NodeID `json:"target"`
	Position dnd.Position  `json:"position"`
	Index    *int          `json:"index,omitempty"`
}

// Drop handles POST /documents/{id}/drop, moving a node next to or into a target.
func (s *Server) Drop(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	var body dropRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, MaxBodySize)).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Drop: Invalid request body", "error", err)
		return
	}
	switch body.Position {
	case dnd.Before, dnd.After, dnd.Inside:
	default:
		http.Error(w, fmt.Sprintf("Invalid position %q", body.Position), http.StatusBadRequest)
		return
	}
	index := -1
	if body.Index != nil {
		index = *body.Index
	}

	doc, err := s.Manager.Load(r.Context(), id)
	if err != nil {
		s.fail(w, "Load", err)
		return
	}
	dd := dnd.New(s.Manager.Registry(), &sessionDispatcher{ctx: r.Context(), manager: s.Manager, id: id})
	_, res, err := dd.Drop(doc, body.Node, body.Target, index, body.Position)
	if err != nil {
		s.fail(w, "Drop", err)
		return
	}
	s.respondEdit(w, r, id, res.Document, res.StructureChanged)
}

// SubscribeEvents handles GET /documents/{id}/events (SSE). Each change of the document
// is sent as a JSON changeEvent. ?watch=dispatch,undo limits the change kinds sent.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	id := documentID(r)
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}
	if _, err := s.Manager.Load(r.Context(), id); err != nil {
		s.fail(w, "Load", err)
		return
	}

	var kinds []string
	if err := queryParam(r, "watch", &kinds); err != nil {
		http.Error(w, fmt.Sprintf("Invalid format for parameter watch: %v", err), http.StatusBadRequest)
		return
	}
	var watch map[folio.ChangeKind]bool
	if len(kinds) > 0 {
		watch = make(map[folio.ChangeKind]bool)
		for _, kind := range kinds {
			watch[folio.ChangeKind(strings.TrimSpace(kind))] = true
		}
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	s.logger.Info("SSE: Subscribing to document updates", "document_id", id)
	ch, cancel := s.Streams.Subscribe(id)
	defer cancel()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE Client Disconnected", "document_id", id)
			return
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if watch != nil && !watch[ev.Kind] {
				continue
			}
			data, err := json.Marshal(ev)
			if err != nil {
				s.logger.Error("SSE: encode failed", "error", err)
				continue
			}
			fmt.Fprintf(w, "event: change\ndata: %s\n\n", data)
			flusher.Flush()
		}
	}
}

func (s *Server) broadcast(id string, c folio.Change) {
	ev := ChangeEvent{
		Kind:             c.Kind,
		Diff:             c.Diff,
		StructureChanged: c.StructureChanged,
	}
	if c.Command != nil {
		ev.Command = c.Command.CommandType()
	}
	s.Streams.Broadcast(id, ev)
}

func (s *Server) respondEdit(w http.ResponseWriter, r *http.Request, id string, doc *domain.Document, structureChanged bool) {
	av, err := s.Manager.History(r.Context(), id)
	if err != nil {
		s.fail(w, "History", err)
		return
	}
	s.writeJSON(w, http.StatusOK, editResponse{Document: doc, StructureChanged: structureChanged, History: av})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

// fail maps err to a status code and writes it.
func (s *Server) fail(w http.ResponseWriter, op string, err error) {
	status := StatusOf(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error(op+" failed", "error", err)
	} else {
		s.logger.Debug(op+" rejected", "error", err, "status", status)
	}
	http.Error(w, fmt.Sprintf("%s error: %v", op, err), status)
}

// StatusOf maps domain and session errors to HTTP status codes.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, domain.ErrDocumentNotFound):
		return http.StatusNotFound
	case errors.Is(err, session.ErrDocumentExists):
		return http.StatusConflict
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrUnknownCommand),
		errors.Is(err, domain.ErrUnknownNodeType),
		errors.Is(err, codec.ErrUnsupportedVersion):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}
