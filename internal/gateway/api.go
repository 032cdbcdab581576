package gateway

import (
	"log/slog"
	"net/http"
)

// defaultDeliveryLimit is used when GET /api/deliveries has no limit.
const defaultDeliveryLimit = 50

func buildHandler(gw *Gateway) http.Handler {
	mux := http.NewServeMux()

	// Webhook intake
	mux.HandleFunc("POST /push/{secret}", gw.handlePush)

	// Health / status
	mux.HandleFunc("GET /health", gw.handleHealth)
	mux.HandleFunc("GET /api/status", gw.handleStatus)
	mux.HandleFunc("GET /api/deliveries", gw.handleDeliveries)

	// SSE
	mux.HandleFunc("GET /events", gw.handleEvents)

	return mux
}

func (gw *Gateway) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (gw *Gateway) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, gw.currentStatus())
}

func (gw *Gateway) handleDeliveries(w http.ResponseWriter, r *http.Request) {
	if gw.opts.Store == nil {
		writeError(w, http.StatusNotFound, "delivery log is disabled")
		return
	}
	rows, err := gw.opts.Store.Recent(r.Context(), queryInt(r, "limit", defaultDeliveryLimit))
	if err != nil {
		slog.Error("Listing deliveries failed", "error", err)
		writeError(w, http.StatusInternalServerError, "listing deliveries failed")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": rows, "count": len(rows)})
}

// handleEvents streams SSE frames until the client goes away. ?pr=N limits
// delivery notices to one pull request.
func (gw *Gateway) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	sub := gw.broadcaster.subscribe(queryInt(r, "pr", 0))
	defer gw.broadcaster.unsubscribe(sub)

	if connected, err := gw.broadcaster.encode(SSEEvent{Type: "connected", Payload: gw.currentStatus()}); err == nil {
		_, _ = w.Write(connected)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case frame, ok := <-sub.frames:
			if !ok {
				return
			}
			_, _ = w.Write(frame)
			flusher.Flush()
		}
	}
}
