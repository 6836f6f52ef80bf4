package handler

import (
	"context"
	"log/slog"
	"net/http"
	"sort"
	"time"

	"github.com/gorilla/websocket"

	"github.com/karthickst/agenticosv2.0/internal/live"
	"github.com/karthickst/agenticosv2.0/internal/observability/metrics"
)

// LiveSource loads one collection of a project for a live query.
type LiveSource func(ctx context.Context, projectID int64) (any, error)

// LiveFrame is one websocket message: the latest accepted result of the
// connection's query.
type LiveFrame struct {
	Collection string `json:"collection"`
	Data       any    `json:"data"`
	Error      string `json:"error,omitempty"`
	Generation uint64 `json:"generation"`
}

const (
	livePingInterval = 15 * time.Second
	liveWriteTimeout = 10 * time.Second
)

// LiveHandler streams a project collection over a websocket, re-sending it
// after every change event.
type LiveHandler struct {
	scope
	bus            live.Subscriber
	sources        map[string]LiveSource
	allowedOrigins []string
}

func NewLiveHandler(bus live.Subscriber, sources map[string]LiveSource, access Authorizer, allowedOrigins []string, logger *slog.Logger) *LiveHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &LiveHandler{
		scope:          scope{access: access, logger: logger},
		bus:            bus,
		sources:        sources,
		allowedOrigins: allowedOrigins,
	}
}

func (h *LiveHandler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" {
				return true
			}
			for _, allowed := range h.allowedOrigins {
				if allowed == "*" || origin == allowed {
					return true
				}
			}
			h.logger.Warn("websocket origin rejected", slog.String("origin", origin))
			return false
		},
	}
}

func (h *LiveHandler) collections() []string {
	names := make([]string, 0, len(h.sources))
	for name := range h.sources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ServeHTTP handles GET /ws/projects/{id}/live?collection=
func (h *LiveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p, ok := h.project(w, r)
	if !ok {
		return
	}
	collection := r.URL.Query().Get("collection")
	source, ok := h.sources[collection]
	if !ok {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":       "unknown collection",
			"collections": h.collections(),
		})
		return
	}

	upgrader := h.upgrader()
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", slog.String("error", err.Error()))
		return
	}
	defer ws.Close()
	metrics.LiveConnectionOpened()
	defer metrics.LiveConnectionClosed()

	// A hijacked connection's request context does not notice the client
	// leaving; the read loop below does.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()
	go func() {
		defer cancel()
		ws.SetReadLimit(1024)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	projectID := p.ID
	q := live.New[any](ctx, h.bus, func(ctx context.Context) (any, error) {
		return source(ctx, projectID)
	}, live.WithName("ws:"+collection), live.WithDeps(projectID, collection), live.WithLogger(h.logger))
	defer q.Close()

	// Only the newest snapshot matters to a slow client.
	updates := make(chan live.Snapshot[any], 1)
	remove := q.OnUpdate(func(s live.Snapshot[any]) {
		select {
		case updates <- s:
		default:
			select {
			case <-updates:
			default:
			}
			updates <- s
		}
	})
	defer remove()
	q.Refresh()

	h.logger.Debug("live query opened", slog.Int64("project_id", projectID), slog.String("collection", collection))

	ticker := time.NewTicker(livePingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := ws.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(5*time.Second)); err != nil {
				return
			}
		case s := <-updates:
			frame := LiveFrame{Collection: collection, Data: s.Value, Generation: s.Generation}
			if s.Err != nil {
				_, frame.Error = statusFor(s.Err)
			}
			ws.SetWriteDeadline(time.Now().Add(liveWriteTimeout))
			if err := ws.WriteJSON(frame); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					h.logger.Debug("websocket closed", slog.String("reason", err.Error()))
				}
				return
			}
		}
	}
}
