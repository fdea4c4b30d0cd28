package ws

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"voxelquarry.ai/internal/protocol"
	"voxelquarry.ai/internal/sim/world/feature/quarry/orchestrator"
)

// StatusFunc builds the STATUS reply for owner. It is called from connection
// goroutines and must hop onto the loop goroutine itself.
type StatusFunc func(ctx context.Context, owner string) (protocol.StatusMsg, error)

// Server pushes session notices to every connection of the session owner.
type Server struct {
	log    *log.Logger
	status StatusFunc

	upgrader websocket.Upgrader

	mu     sync.Mutex
	conns  map[string]map[uint64]chan []byte
	nextID atomic.Uint64

	dropped atomic.Uint64
}

func NewServer(status StatusFunc, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Server{
		log:    logger,
		status: status,
		conns:  map[string]map[uint64]chan []byte{},
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 16 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // dev default
		},
	}
}

// Notify never blocks; a connection whose queue is full misses the notice.
func (s *Server) Notify(ev orchestrator.SessionEvent) {
	b, err := json.Marshal(protocol.NoticeMsg{
		Type:            protocol.TypeNotice,
		ProtocolVersion: protocol.Version,
		Tick:            ev.Tick,
		SessionID:       ev.SessionID,
		World:           ev.World,
		Kind:            string(ev.Kind),
		Reason:          ev.Reason,
	})
	if err != nil {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, out := range s.conns[ev.Owner] {
		select {
		case out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Connections returns how many connections are subscribed for owner.
func (s *Server) Connections(owner string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns[owner])
}

func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func (s *Server) subscribe(owner string, out chan []byte) uint64 {
	id := s.nextID.Add(1)
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.conns[owner]
	if m == nil {
		m = map[uint64]chan []byte{}
		s.conns[owner] = m
	}
	m[id] = out
	return id
}

func (s *Server) unsubscribe(owner string, id uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conns[owner], id)
	if len(s.conns[owner]) == 0 {
		delete(s.conns, owner)
	}
}

func (s *Server) Handler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		owner := s.handshake(conn)
		if owner == "" {
			return
		}

		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()

		out := make(chan []byte, 32)
		id := s.subscribe(owner, out)
		defer s.unsubscribe(owner, id)
		s.log.Printf("ws subscribe owner=%s conn=%d", owner, id)

		if !s.sendStatus(ctx, conn, owner) {
			return
		}

		// Writer goroutine.
		var wg sync.WaitGroup
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						cancel()
						return
					}
				}
			}
		}()

		// Reader loop. A repeated HELLO asks for a fresh STATUS.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			base, err := protocol.DecodeBase(msg)
			if err != nil || base.Type != protocol.TypeHello {
				continue
			}
			b, err := s.statusBytes(ctx, owner)
			if err != nil {
				continue
			}
			select {
			case out <- b:
			default:
			}
		}
		cancel()
		wg.Wait()
	}
}

func (s *Server) handshake(conn *websocket.Conn) string {
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, msg, err := conn.ReadMessage()
	if err != nil {
		return ""
	}

	base, err := protocol.DecodeBase(msg)
	if err != nil || base.Type != protocol.TypeHello {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected HELLO"), time.Now().Add(time.Second))
		return ""
	}

	var hello protocol.HelloMsg
	if err := json.Unmarshal(msg, &hello); err != nil {
		return ""
	}
	if hello.ProtocolVersion != protocol.Version {
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "bad protocol_version"), time.Now().Add(time.Second))
		return ""
	}
	owner := strings.TrimSpace(hello.Owner)
	if owner == "" {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrBadRequest, "missing owner"))
		return ""
	}
	return owner
}

func (s *Server) statusBytes(ctx context.Context, owner string) ([]byte, error) {
	st := protocol.StatusMsg{Type: protocol.TypeStatus, ProtocolVersion: protocol.Version, Owner: owner}
	if s.status != nil {
		var err error
		st, err = s.status(ctx, owner)
		if err != nil {
			return nil, err
		}
	}
	return json.Marshal(st)
}

func (s *Server) sendStatus(ctx context.Context, conn *websocket.Conn, owner string) bool {
	b, err := s.statusBytes(ctx, owner)
	if err != nil {
		_ = writeJSON(conn, protocol.NewError(protocol.ErrInternal, err.Error()))
		return false
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b) == nil
}

func writeJSON(conn *websocket.Conn, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return conn.WriteMessage(websocket.TextMessage, b)
}
