package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/avvvet/buffet-bingo/internal/comm"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
)

const writeWait = 10 * time.Second

// Ws tracks open scoreboard sockets and the table each one watches.
type Ws struct {
	connMap  sync.Map // socketId -> *websocket.Conn
	tableMap sync.Map // socketId -> tableId
}

func NewWs() *Ws {
	return &Ws{}
}

func (s *Ws) StoreConnection(socketId, tableId string, conn *websocket.Conn) {
	s.connMap.Store(socketId, conn)
	s.tableMap.Store(socketId, tableId)
}

func (s *Ws) GetTableSockets(tableId string) []string {
	var sockets []string
	s.tableMap.Range(func(key, value interface{}) bool {
		if value.(string) == tableId {
			sockets = append(sockets, key.(string))
		}
		return true
	})
	return sockets
}

func (s *Ws) HandleDisconnect(socketId string) {
	s.connMap.Delete(socketId)
	s.tableMap.Delete(socketId)
}

func (s *Ws) Count() int {
	n := 0
	s.connMap.Range(func(_, _ interface{}) bool {
		n++
		return true
	})
	return n
}

type playerJoined struct {
	scoreboard.Notification
	ExpiresAt time.Time `json:"expires_at"`
}

// HandleWebSocket streams the live scoreboard of ?table={id} to the caller.
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	p, err := principal(r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	tableId := r.URL.Query().Get("table")
	if _, _, err := h.svc.Table(r.Context(), tableId); err != nil {
		h.fail(w, r, err)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Errorf("Failed to upgrade to WebSocket: %v", err)
		return
	}

	socketId := uuid.New().String()
	h.ws.StoreConnection(socketId, tableId, conn)
	log.Infof("New WebSocket connection established: %s (table %s, principal %s, %d watching)",
		socketId, tableId, p.ID, len(h.ws.GetTableSockets(tableId)))

	ctx, cancel := context.WithCancel(context.Background())
	events := scoreboard.Watch(ctx, h.source, tableId, p.ID, scoreboard.Options{ToastDuration: h.toast})

	go h.writeEvents(conn, socketId, events)
	go h.handleConnection(conn, socketId, cancel)
}

// handleConnection reads until the client goes away. Clients only receive
// on this socket; anything they send is ignored.
func (h *Handler) handleConnection(conn *websocket.Conn, socketId string, cancel context.CancelFunc) {
	defer func() {
		cancel()
		log.Infof("Closing WebSocket connection: %s", socketId)
		conn.Close()
		h.ws.HandleDisconnect(socketId)
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Errorf("WebSocket unexpected close error for socket %s: %v", socketId, err)
			} else {
				log.Infof("WebSocket connection closed normally for socket: %s", socketId)
			}
			return
		}
	}
}

func (h *Handler) writeEvents(conn *websocket.Conn, socketId string, events <-chan scoreboard.Event) {
	for ev := range events {
		for _, msg := range h.messagesFor(ev, socketId) {
			if err := h.send(conn, msg); err != nil {
				log.Warnf("[Handler.writeEvents] socket %s: %s", socketId, err)
				conn.Close()
				return
			}
		}
	}
}

func (h *Handler) messagesFor(ev scoreboard.Event, socketId string) []*comm.WSMessage {
	var out []*comm.WSMessage
	add := func(msgType string, data interface{}) {
		msg, err := comm.NewMessage(msgType, data, socketId)
		if err != nil {
			log.Errorf("[Handler.messagesFor] marshal %s: %s", msgType, err)
			return
		}
		out = append(out, msg)
	}

	if ev.View != nil {
		add(comm.TypeScoreboard, ev.View)
		if ev.View.Deleted {
			add(comm.TypeError, comm.ErrorData{Message: "table was deleted"})
		}
	}
	for _, n := range ev.Joined {
		add(comm.TypePlayerJoined, playerJoined{Notification: n, ExpiresAt: n.At.Add(h.toastDuration())})
	}
	if ev.Dismissed != "" {
		add(comm.TypeToastDismiss, comm.ToastDismiss{ID: ev.Dismissed})
	}
	return out
}

func (h *Handler) toastDuration() time.Duration {
	if h.toast <= 0 {
		return scoreboard.DefaultToastDuration
	}
	return h.toast
}

func (h *Handler) send(conn *websocket.Conn, msg *comm.WSMessage) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}
