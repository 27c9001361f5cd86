package httpapi

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deepscout-ai/deepscout/internal/streaming"
)

// StreamingHandler serves SSE and WebSocket endpoints for task lifecycle
// events.
type StreamingHandler struct {
	mgr    *streaming.Manager
	logger *zap.Logger
}

func NewStreamingHandler(mgr *streaming.Manager, logger *zap.Logger) *StreamingHandler {
	return &StreamingHandler{mgr: mgr, logger: logger}
}

// RegisterRoutes registers streaming routes on the provided mux.
func (h *StreamingHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/stream/sse", h.handleSSE)
	h.RegisterWebSocket(mux)
}

// handleSSE streams events for a workflow via Server-Sent Events.
// GET /stream/sse?workflow_id=<id>
func (h *StreamingHandler) handleSSE(w http.ResponseWriter, r *http.Request) {
	wf := r.URL.Query().Get("workflow_id")
	if wf == "" {
		http.Error(w, `{"error":"workflow_id required"}`, http.StatusBadRequest)
		return
	}
	typeFilter := parseTypeFilter(r.URL.Query().Get("types"))

	// Last-Event-ID header or query param to replay from
	var lastID uint64
	if lei := r.Header.Get("Last-Event-ID"); lei != "" {
		if n, err := strconv.ParseUint(lei, 10, 64); err == nil {
			lastID = n
		}
	}
	if q := r.URL.Query().Get("last_event_id"); q != "" && lastID == 0 {
		if n, err := strconv.ParseUint(q, 10, 64); err == nil {
			lastID = n
		}
	}

	// CORS (dev-friendly)
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	ch := h.mgr.Subscribe(wf, 256)
	defer h.mgr.Unsubscribe(wf, ch)

	// Initial comment establishes the stream
	fmt.Fprintf(w, ": connected to workflow %s\n\n", wf)
	flusher.Flush()

	// Replay backlog since lastID (best-effort)
	if lastID > 0 {
		for _, ev := range h.mgr.ReplaySince(wf, lastID) {
			if skipEvent(typeFilter, ev.Type) {
				continue
			}
			writeSSE(w, ev)
		}
		flusher.Flush()
	}

	hb := time.NewTicker(15 * time.Second)
	defer hb.Stop()

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			h.logger.Info("SSE client disconnected", zap.String("workflow_id", wf))
			return
		case evt := <-ch:
			if skipEvent(typeFilter, evt.Type) {
				continue
			}
			writeSSE(w, evt)
			flusher.Flush()
		case <-hb.C:
			// Heartbeat to keep connections alive through proxies
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev streaming.Event) {
	if ev.Seq > 0 {
		fmt.Fprintf(w, "id: %d\n", ev.Seq)
	}
	if ev.Type != "" {
		fmt.Fprintf(w, "event: %s\n", ev.Type)
	}
	fmt.Fprintf(w, "data: %s\n\n", string(ev.Marshal()))
}

func parseTypeFilter(s string) map[string]struct{} {
	filter := map[string]struct{}{}
	for _, t := range strings.Split(s, ",") {
		t = strings.TrimSpace(t)
		if t != "" {
			filter[t] = struct{}{}
		}
	}
	return filter
}

func skipEvent(filter map[string]struct{}, eventType string) bool {
	if len(filter) == 0 {
		return false
	}
	_, ok := filter[eventType]
	return !ok
}
