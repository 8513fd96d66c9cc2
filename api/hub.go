package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/mining-pool/pow-ledger/types"
	"github.com/pkg/errors"
)

const (
	writeWait  = 10 * time.Second
	sendBuffer = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(*http.Request) bool { return true },
}

type subscriber struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans sealed blocks out to websocket subscribers. A subscriber that
// cannot keep up is dropped instead of stalling the chain.
type Hub struct {
	mu          sync.Mutex
	subscribers map[*subscriber]struct{}
	closed      bool
}

func NewHub() *Hub {
	return &Hub{
		subscribers: make(map[*subscriber]struct{}),
	}
}

// PutBlock implements ledger.BlockSink.
func (h *Hub) PutBlock(_ context.Context, block *types.Block) error {
	raw, err := block.MarshalJSON()
	if err != nil {
		return errors.Wrap(err, "failed to encode block for subscribers")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	for sub := range h.subscribers {
		select {
		case sub.send <- raw:
		default:
			log.Warn("websocket subscriber too slow, dropping ", sub.conn.RemoteAddr())
			h.removeLocked(sub)
		}
	}

	return nil
}

func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subscribers)
}

func (h *Hub) ServeWS(writer http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(writer, r, nil)
	if err != nil {
		log.Error("websocket upgrade failed: ", err)
		return
	}

	sub := &subscriber{
		conn: conn,
		send: make(chan []byte, sendBuffer),
	}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		_ = conn.Close()
		return
	}
	h.subscribers[sub] = struct{}{}
	h.mu.Unlock()

	log.Info("websocket subscriber connected: ", conn.RemoteAddr())

	go h.writeLoop(sub)
	go h.readLoop(sub)
}

// readLoop only watches for the peer going away.
func (h *Hub) readLoop(sub *subscriber) {
	for {
		if _, _, err := sub.conn.ReadMessage(); err != nil {
			if e := new(websocket.CloseError); errors.As(err, &e) && e.Code == websocket.CloseNormalClosure {
				log.Info("websocket subscriber closed normally")
			}
			h.remove(sub)
			return
		}
	}
}

func (h *Hub) writeLoop(sub *subscriber) {
	defer sub.conn.Close()

	for raw := range sub.send {
		_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := sub.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
			log.Warn("websocket write failed: ", err)
			h.remove(sub)
			return
		}
	}

	_ = sub.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = sub.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

func (h *Hub) remove(sub *subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(sub)
}

func (h *Hub) removeLocked(sub *subscriber) {
	if _, ok := h.subscribers[sub]; ok {
		delete(h.subscribers, sub)
		close(sub.send)
	}
}

// Close disconnects every subscriber and refuses new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.closed = true
	for sub := range h.subscribers {
		h.removeLocked(sub)
	}
}
