package httpapi

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	v1 "github.com/and161185/clipsync/api/clipsync/v1"
	"github.com/and161185/clipsync/internal/convert"
)

const writeWait = 10 * time.Second

// events upgrades to a websocket and streams the session's events as JSON
// text frames, starting with a ready marker. Inbound frames are ignored.
func (g *gateway) events(w http.ResponseWriter, r *http.Request) {
	code, err := g.Sessions.Join(r.Context(), mux.Vars(r)["code"], r.RemoteAddr)
	if err != nil {
		writeError(w, err)
		return
	}
	sub, err := g.Hub.Subscribe(code)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Unsubscribe()

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.Logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	// The read loop only exists to notice the peer going away.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(ev *v1.Event) error {
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		return conn.WriteJSON(ev)
	}
	if err := send(&v1.Event{Kind: v1.EventReady, SessionCode: code}); err != nil {
		return
	}

	ping := time.NewTicker(g.opts.PingInterval)
	defer ping.Stop()
	for {
		select {
		case <-gone:
			return
		case <-sub.Done():
			if err := sub.Err(); err != nil {
				g.Logger.Warn("subscription ended", zap.String("session", code), zap.Error(err))
				_ = conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "fell behind"),
					time.Now().Add(writeWait))
			}
			return
		case ev := <-sub.C():
			if err := send(convert.ToWireEvent(ev)); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
