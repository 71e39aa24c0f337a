// Package relay is a small websocket fan-out used to forward monitor alerts
// and trade signals to other processes. Every frame a peer sends is copied
// to all other connected peers.
package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	log "pump-wallet-monitor/internal/infra/log"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultAddr = "0.0.0.0:9898"

	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBufferSize = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type peer struct {
	hub  *Hub
	conn *websocket.Conn
	addr string
	send chan frame
}

type frame struct {
	from *peer
	kind int
	data []byte
}

// Hub tracks connected peers and relays frames between them.
type Hub struct {
	peers      map[*peer]bool
	broadcast  chan frame
	register   chan *peer
	unregister chan *peer
	done       chan struct{}
	mu         sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		peers:      make(map[*peer]bool),
		broadcast:  make(chan frame, sendBufferSize),
		register:   make(chan *peer),
		unregister: make(chan *peer),
		done:       make(chan struct{}),
	}
}

// Run owns the peer set until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for p := range h.peers {
				close(p.send)
				delete(h.peers, p)
			}
			h.mu.Unlock()
			return ctx.Err()

		case p := <-h.register:
			h.mu.Lock()
			h.peers[p] = true
			h.mu.Unlock()
			log.LogInfo("Relay peer connected", zap.String("peer", p.addr), zap.Int("peers", h.PeerCount()))

		case p := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.peers[p]; ok {
				delete(h.peers, p)
				close(p.send)
			}
			h.mu.Unlock()
			log.LogInfo("Relay peer disconnected", zap.String("peer", p.addr), zap.Int("peers", h.PeerCount()))

		case f := <-h.broadcast:
			h.mu.RLock()
			for p := range h.peers {
				if p == f.from {
					continue
				}
				select {
				case p.send <- f:
				default:
					log.LogWarn("Relay dropping frame for slow peer", zap.String("peer", p.addr))
				}
			}
			h.mu.RUnlock()
		}
	}
}

func (h *Hub) PeerCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.peers)
}

// ServeHTTP upgrades the request and registers the peer. Any path is accepted.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.LogWarn("Relay upgrade failed", zap.String("remote", r.RemoteAddr), zap.Error(err))
		return
	}
	p := &peer{
		hub:  h,
		conn: conn,
		addr: r.RemoteAddr,
		send: make(chan frame, sendBufferSize),
	}
	select {
	case h.register <- p:
	case <-h.done:
		conn.Close()
		return
	}
	go p.writePump()
	go p.readPump()
}

// ListenAndServe runs the hub and an HTTP server on addr until ctx is done.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := h.Run(gctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		log.LogSuccess("Relay listening", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("relay listen %s: %w", addr, err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

func (p *peer) readPump() {
	defer func() {
		select {
		case p.hub.unregister <- p:
		case <-p.hub.done:
		}
		p.conn.Close()
	}()

	p.conn.SetReadLimit(maxMessageSize)
	p.conn.SetReadDeadline(time.Now().Add(pongWait))
	p.conn.SetPongHandler(func(string) error {
		return p.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		kind, data, err := p.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.LogWarn("Relay peer closed unexpectedly", zap.String("peer", p.addr), zap.Error(err))
			}
			return
		}
		log.LogDebug("Relay frame received", zap.String("peer", p.addr), zap.Int("bytes", len(data)))
		select {
		case p.hub.broadcast <- frame{from: p, kind: kind, data: data}:
		case <-p.hub.done:
			return
		}
	}
}

func (p *peer) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		p.conn.Close()
	}()

	for {
		select {
		case f, ok := <-p.send:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				p.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := p.conn.WriteMessage(f.kind, f.data); err != nil {
				return
			}

		case <-ticker.C:
			p.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := p.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
