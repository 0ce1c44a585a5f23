package fleet

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/fleetguard/fleetguard/core/events"
	"github.com/fleetguard/fleetguard/core/model"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The stream is read-only fleet state; dashboards connect cross-origin.
	CheckOrigin: func(*http.Request) bool { return true },
}

// Live handles GET /api/fleet/live: upgrades to a websocket and pushes the
// current snapshot followed by every refresh until the client disconnects.
func (h *Handler) Live(w http.ResponseWriter, r *http.Request) {
	if h.bus == nil {
		http.Error(w, "live feed disabled", http.StatusServiceUnavailable)
		return
	}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warnf("websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	sub := h.bus.SubscribeBuffered(16)
	defer h.bus.Unsubscribe(sub)

	snap, _ := h.holder.Get()
	if err := h.writeSnapshot(conn, snap); err != nil {
		return
	}

	// the read pump only detects disconnects; clients send nothing
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			se, ok := ev.(events.SnapshotEvent)
			if !ok {
				continue
			}
			if err := h.writeSnapshot(conn, se.Snapshot); err != nil {
				return
			}
		}
	}
}

func (h *Handler) writeSnapshot(conn *websocket.Conn, snap model.FleetSnapshot) error {
	if err := conn.SetWriteDeadline(time.Now().Add(writeTimeout)); err != nil {
		return err
	}
	if err := conn.WriteJSON(snap); err != nil {
		h.log.Debugf("websocket write failed: %v", err)
		return err
	}
	return nil
}
