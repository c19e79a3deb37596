package http

import (
	"context"
	"log/slog"
	"sync"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/logging"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/session"
)

// ChangeEvent is the payload of an SSE change message.
type ChangeEvent struct {
	Kind             folio.ChangeKind     `json:"kind"`
	Command          string               `json:"command,omitempty"`
	Diff             *domain.DocumentDiff `json:"diff,omitempty"`
	StructureChanged bool                 `json:"structure_changed"`
}

// StreamManager handles active SSE connections
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- ChangeEvent]struct{} // DocumentID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- ChangeEvent]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(documentID string) (chan ChangeEvent, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan ChangeEvent, 10)
	if _, ok := sm.subscribers[documentID]; !ok {
		sm.subscribers[documentID] = make(map[chan<- ChangeEvent]struct{})
	}
	sm.subscribers[documentID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[documentID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, documentID)
			}
		}
	}
}

// Subscribers returns the number of open streams of a document.
func (sm *StreamManager) Subscribers(documentID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[documentID])
}

func (sm *StreamManager) Broadcast(documentID string, ev ChangeEvent) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[documentID]
	if !ok {
		return
	}
	sm.logger.Debug("StreamManager: Broadcasting", "document_id", documentID, "kind", ev.Kind, "subscribers", len(subs))
	for ch := range subs {
		select {
		case ch <- ev:
		default:
			// Drop message if channel is full (slow client)
			sm.logger.Warn("SSE: Client buffer full, dropping message", "document_id", documentID)
		}
	}
}

// sessionDispatcher routes commands built against a loaded document through the
// manager, so they are persisted and recorded for undo.
type sessionDispatcher struct {
	ctx     context.Context
	manager *session.Manager
	id      string
}

func (d *sessionDispatcher) Dispatch(_ *domain.Document, cmd domain.Command) (domain.Result, error) {
	return d.manager.Dispatch(d.ctx, d.id, cmd)
}
