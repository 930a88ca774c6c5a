package httpapi

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"

	"fitd/pkg/types"
)

// EventSource streams lifecycle events until ctx is done.
type EventSource interface {
	Subscribe(ctx context.Context) (<-chan types.Event, error)
}

var eventSource EventSource

// SetEventSource enables GET /events. A nil source disables it.
func SetEventSource(src EventSource) { eventSource = src }

const (
	eventsWriteWait  = 10 * time.Second
	eventsPongWait   = 60 * time.Second
	eventsPingPeriod = eventsPongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     checkOrigin,
}

// checkOrigin accepts same-host origins, and the configured CORS origins when
// CORS is enabled.
func checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if corsEnabled {
		for _, o := range corsAllowedOrigins {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// eventsHandler godoc
// @Summary      Stream lifecycle events
// @Description  Upgrades to a websocket and sends one JSON event per text message.
// @Tags         events
// @Success      101
// @Failure      404  {object}  types.ErrorResponse
// @Router       /events [get]
func eventsHandler(w http.ResponseWriter, r *http.Request) {
	src := eventSource
	if src == nil {
		writeJSONError(w, http.StatusNotFound, "event stream not enabled", "not_found")
		return
	}
	// Join server base context with request context so shutdown closes streams too.
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	events, err := src.Subscribe(ctx)
	if err != nil {
		writeJSONError(w, http.StatusServiceUnavailable, err.Error(), "unavailable")
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response
		return
	}
	defer conn.Close()

	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(eventsPongWait))
	})
	// The reader only drains control frames; any read error ends the stream.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(eventsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server closing"),
				time.Now().Add(eventsWriteWait))
			return
		case e, ok := <-events:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
					time.Now().Add(eventsWriteWait))
				return
			}
			b, err := json.Marshal(e)
			if err != nil {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(eventsWriteWait))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(eventsWriteWait)); err != nil {
				return
			}
		}
	}
}
