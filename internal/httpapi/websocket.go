package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Secured via proxy in prod.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// RegisterWebSocket registers the /stream/ws endpoint.
func (h *StreamingHandler) RegisterWebSocket(mux *http.ServeMux) {
	mux.HandleFunc("/stream/ws", h.handleWS)
}

func (h *StreamingHandler) handleWS(w http.ResponseWriter, r *http.Request) {
	wf := r.URL.Query().Get("workflow_id")
	if wf == "" {
		http.Error(w, "workflow_id required", http.StatusBadRequest)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	typeFilter := parseTypeFilter(r.URL.Query().Get("types"))
	var lastID uint64
	if q := r.URL.Query().Get("last_event_id"); q != "" {
		if n, err := strconv.ParseUint(q, 10, 64); err == nil {
			lastID = n
		}
	}

	ch := h.mgr.Subscribe(wf, 256)
	defer h.mgr.Unsubscribe(wf, ch)

	// Replay backlog
	if lastID > 0 {
		for _, ev := range h.mgr.ReplaySince(wf, lastID) {
			if skipEvent(typeFilter, ev.Type) {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		}
	}

	conn.SetReadLimit(512)
	conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(60 * time.Second))
		return nil
	})

	ticker := time.NewTicker(20 * time.Second)
	defer ticker.Stop()

	// Reader pump (discard client messages)
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			if skipEvent(typeFilter, ev.Type) {
				continue
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), time.Now().Add(10*time.Second)); err != nil {
				return
			}
		}
	}
}
