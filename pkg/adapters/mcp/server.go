package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/dnd"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/outline"
	"github.com/aretw0/folio/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"golang.org/x/sync/errgroup"
)

const documentURIPrefix = "folio://documents/"

// EditResponse is the result of every tool that changes a document.
type EditResponse struct {
	DocumentID       string               `json:"document_id" jsonschema_description:"The edited document"`
	Applied          bool                 `json:"applied" jsonschema_description:"False when undo or redo had nothing to do"`
	StructureChanged bool                 `json:"structure_changed" jsonschema_description:"False for property-only edits"`
	CanUndo          bool                 `json:"can_undo" jsonschema_description:"Whether undo is available"`
	CanRedo          bool                 `json:"can_redo" jsonschema_description:"Whether redo is available"`
	Diff             *domain.DocumentDiff `json:"diff,omitempty" jsonschema_description:"Nodes and slots added, removed or changed"`
}

// ListResponse lists stored documents.
type ListResponse struct {
	Documents []string `json:"documents" jsonschema_description:"Stored document IDs"`
}

// ZonesResponse lists the places a node can be dropped.
type ZonesResponse struct {
	Zones []dnd.Zone `json:"zones" jsonschema_description:"Valid drop zones in document order"`
}

// Server exposes a session.Manager as an MCP Server.
type Server struct {
	manager   *session.Manager
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger configures a logger for the Server.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new MCP Server instance.
func NewServer(manager *session.Manager, opts ...Option) *Server {
	s := &Server{
		manager:   manager,
		mcpServer: server.NewMCPServer("folio-mcp", strings.TrimSpace(folio.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// MCPServer returns the underlying server, for embedding in other transports.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcpServer
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE and stops when ctx is done.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	})
	return g.Wait()
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	documentID := mcp.WithString("document_id", mcp.Required(), mcp.Description("Document ID"))

	s.mcpServer.AddTool(mcp.NewTool("list_documents",
		mcp.WithDescription("List the IDs of stored documents."),
		mcp.WithOutputSchema[ListResponse](),
	), mcp.NewStructuredToolHandler(s.handleList))

	s.mcpServer.AddTool(mcp.NewTool("create_document",
		mcp.WithDescription("Create an empty document."),
		documentID,
		mcp.WithOutputSchema[EditResponse](),
	), mcp.NewStructuredToolHandler(s.handleCreate))

	s.mcpServer.AddTool(mcp.NewTool("dispatch",
		mcp.WithDescription("Apply commands to a document. Several commands are applied as one undoable batch."),
		documentID,
		mcp.WithString("commands", mcp.Required(), mcp.Description(`One command envelope {"type":..., "payload":{...}} or a JSON array of them`)),
		mcp.WithOutputSchema[EditResponse](),
	), mcp.NewStructuredToolHandler(s.handleDispatch))

	s.mcpServer.AddTool(mcp.NewTool("undo",
		mcp.WithDescription("Revert the last edit of a document."),
		documentID,
		mcp.WithOutputSchema[EditResponse](),
	), mcp.NewStructuredToolHandler(s.handleUndo))

	s.mcpServer.AddTool(mcp.NewTool("redo",
		mcp.WithDescription("Re-apply the last undone edit of a document."),
		documentID,
		mcp.WithOutputSchema[EditResponse](),
	), mcp.NewStructuredToolHandler(s.handleRedo))

	s.mcpServer.AddTool(mcp.NewTool("drop_zones",
		mcp.WithDescription("List where a node can be moved."),
		documentID,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The node to move")),
		mcp.WithOutputSchema[ZonesResponse](),
	), mcp.NewStructuredToolHandler(s.handleDropZones))

	s.mcpServer.AddTool(mcp.NewTool("drop",
		mcp.WithDescription("Move a node before, after or inside a target node."),
		documentID,
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The node to move")),
		mcp.WithString("target_id", mcp.Required(), mcp.Description("The node to drop on")),
		mcp.WithString("position", mcp.Required(), mcp.Enum(string(dnd.Before), string(dnd.After), string(dnd.Inside))),
		mcp.WithNumber("index", mcp.Description("Position inside the target slot; appends when omitted")),
		mcp.WithOutputSchema[EditResponse](),
	), mcp.NewStructuredToolHandler(s.handleDrop))

	s.mcpServer.AddTool(mcp.NewTool("get_document",
		mcp.WithDescription("Get a document as JSON or YAML."),
		documentID,
		mcp.WithString("format", mcp.Enum(string(codec.FormatJSON), string(codec.FormatYAML))),
	), s.handleGet)

	s.mcpServer.AddTool(mcp.NewTool("outline",
		mcp.WithDescription("Get a document's tree as a Markdown list."),
		documentID,
	), s.handleOutline)

	s.mcpServer.AddTool(mcp.NewTool("preview",
		mcp.WithDescription("Render the visible text of a document for a data scope."),
		documentID,
		mcp.WithString("scope", mcp.Description("JSON object bound to expressions and placeholders")),
	), s.handlePreview)
}

// Handler methods for structured tools

func (s *Server) handleList(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ListResponse, error) {
	ids, err := s.manager.List(ctx)
	if err != nil {
		return ListResponse{}, err
	}
	if ids == nil {
		ids = []string{}
	}
	return ListResponse{Documents: ids}, nil
}

func (s *Server) handleCreate(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EditResponse, error) {
	id, err := requireString(args, "document_id")
	if err != nil {
		return EditResponse{}, err
	}
	doc, err := s.manager.Create(ctx, id)
	if err != nil {
		return EditResponse{}, err
	}
	return s.edited(ctx, id, true, true, domain.Diff(nil, doc))
}

func (s *Server) handleDispatch(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EditResponse, error) {
	id, err := requireString(args, "document_id")
	if err != nil {
		return EditResponse{}, err
	}
	raw, err := requireString(args, "commands")
	if err != nil {
		return EditResponse{}, err
	}
	cmds, err := codec.DecodeCommands(s.manager.Registry(), []byte(raw), codec.FormatJSON)
	if err != nil {
		return EditResponse{}, err
	}

	var cmd domain.Command
	switch len(cmds) {
	case 0:
		return EditResponse{}, errors.New("no commands")
	case 1:
		cmd = cmds[0]
	default:
		cmd = domain.Batch{Commands: cmds}
	}

	before, err := s.manager.Load(ctx, id)
	if err != nil {
		return EditResponse{}, err
	}
	res, err := s.manager.Dispatch(ctx, id, cmd)
	if err != nil {
		s.logger.Debug("MCP Dispatch: command rejected", "document_id", id, "error", err)
		return EditResponse{}, err
	}
	return s.edited(ctx, id, true, res.StructureChanged, domain.Diff(before, res.Document))
}

func (s *Server) handleUndo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EditResponse, error) {
	return s.step(ctx, args, s.manager.Undo)
}

func (s *Server) handleRedo(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EditResponse, error) {
	return s.step(ctx, args, s.manager.Redo)
}

func (s *Server) step(ctx context.Context, args map[string]interface{}, move func(context.Context, string) (domain.Result, bool, error)) (EditResponse, error) {
	id, err := requireString(args, "document_id")
	if err != nil {
		return EditResponse{}, err
	}
	before, err := s.manager.Load(ctx, id)
	if err != nil {
		return EditResponse{}, err
	}
	res, ok, err := move(ctx, id)
	if err != nil {
		return EditResponse{}, err
	}
	return s.edited(ctx, id, ok, ok && res.StructureChanged, domain.Diff(before, res.Document))
}

func (s *Server) handleDropZones(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (ZonesResponse, error) {
	id, err := requireString(args, "document_id")
	if err != nil {
		return ZonesResponse{}, err
	}
	node, err := requireString(args, "node_id")
	if err != nil {
		return ZonesResponse{}, err
	}
	doc, err := s.manager.Load(ctx, id)
	if err != nil {
		return ZonesResponse{}, err
	}
	zones, err := dnd.New(s.manager.Registry(), nil).DropZones(doc, domain.NodeID(node))
	if err != nil {
		return ZonesResponse{}, err
	}
	if zones == nil {
		zones = []dnd.Zone{}
	}
	return ZonesResponse{Zones: zones}, nil
}

func (s *Server) handleDrop(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (EditResponse, error) {
	var fields [4]string
	for i, key := range []string{"document_id", "node_id", "target_id", "position"} {
		v, err := requireString(args, key)
		if err != nil {
			return EditResponse{}, err
		}
		fields[i] = v
	}
	id, pos := fields[0], dnd.Position(fields[3])
	index := -1
	if v, ok := args["index"].(float64); ok {
		index = int(v)
	}

	doc, err := s.manager.Load(ctx, id)
	if err != nil {
		return EditResponse{}, err
	}
	dd := dnd.New(s.manager.Registry(), dispatcherFunc(func(_ *domain.Document, cmd domain.Command) (domain.Result, error) {
		return s.manager.Dispatch(ctx, id, cmd)
	}))
	_, res, err := dd.Drop(doc, domain.NodeID(fields[1]), domain.NodeID(fields[2]), index, pos)
	if err != nil {
		return EditResponse{}, err
	}
	return s.edited(ctx, id, true, res.StructureChanged, domain.Diff(doc, res.Document))
}

func (s *Server) edited(ctx context.Context, id string, applied, structureChanged bool, diff *domain.DocumentDiff) (EditResponse, error) {
	av, err := s.manager.History(ctx, id)
	if err != nil {
		return EditResponse{}, err
	}
	return EditResponse{
		DocumentID:       id,
		Applied:          applied,
		StructureChanged: structureChanged,
		CanUndo:          av.CanUndo,
		CanRedo:          av.CanRedo,
		Diff:             diff,
	}, nil
}

// Handler methods for text tools

func (s *Server) handleGet(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id := request.GetString("document_id", "")
	format := codec.Format(request.GetString("format", string(codec.FormatJSON)))
	doc, err := s.manager.Load(ctx, id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	data, err := codec.Marshal(doc, format)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode failed: %v", err)), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) handleOutline(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	doc, err := s.manager.Load(ctx, request.GetString("document_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	md, err := outline.Markdown(doc)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("outline failed: %v", err)), nil
	}
	return mcp.NewToolResultText(md), nil
}

func (s *Server) handlePreview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	scope := map[string]any{}
	if raw := request.GetString("scope", ""); raw != "" {
		if err := json.Unmarshal([]byte(raw), &scope); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("invalid scope: %v", err)), nil
		}
	}
	doc, err := s.manager.Load(ctx, request.GetString("document_id", ""))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("load failed: %v", err)), nil
	}
	text, err := outline.Preview(ctx, doc, outline.PathEvaluator{}, scope)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("preview failed: %v", err)), nil
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) registerResources() {
	s.mcpServer.AddResourceTemplate(mcp.NewResourceTemplate(documentURIPrefix+"{id}", "Folio Document",
		mcp.WithTemplateDescription("A stored document as JSON"),
		mcp.WithTemplateMIMEType("application/json"),
	), s.readDocument)
}

func (s *Server) readDocument(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	uri := request.Params.URI
	id := strings.TrimPrefix(uri, documentURIPrefix)
	doc, err := s.manager.Load(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	data, err := codec.MarshalJSON(doc)
	if err != nil {
		return nil, err
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func requireString(args map[string]interface{}, key string) (string, error) {
	v, _ := args[key].(string)
	if v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

type dispatcherFunc func(doc *domain.Document, cmd domain.Command) (domain.Result, error)

func (f dispatcherFunc) Dispatch(doc *domain.Document, cmd domain.Command) (domain.Result, error) {
	return f(doc, cmd)
}
