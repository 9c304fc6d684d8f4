// Package observer streams per-tick actor poses to loopback websocket
// clients.
package observer

import (
	"encoding/json"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"actorcraft.ai/internal/observerproto"
	"actorcraft.ai/internal/sim/actor"
)

type Server struct {
	frameMillis int64
	log         *zap.Logger

	upgrader websocket.Upgrader
	nextID   atomic.Uint64
	dropped  atomic.Uint64

	mu   sync.Mutex
	last observerproto.TickMsg
	subs map[uint64]*subscriber
}

type subscriber struct {
	out    chan []byte
	actors map[int32]bool
	every  uint64
}

func NewServer(frameMillis int64, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		frameMillis: frameMillis,
		log:         logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  16 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true }, // loopback only
		},
		last: observerproto.TickMsg{Type: observerproto.TypeTick, ProtocolVersion: observerproto.Version},
		subs: map[uint64]*subscriber{},
	}
}

// Handler serves GET /observer/bootstrap and the /observer/ws stream.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/observer/bootstrap", s.BootstrapHandler())
	mux.HandleFunc("/observer/ws", s.WSHandler())
	return mux
}

// Publish fans one tick out to every subscriber. It never blocks: a
// subscriber whose queue is full misses the tick.
func (s *Server) Publish(tick uint64, poses []actor.Pose) {
	msg := observerproto.TickMsg{
		Type:            observerproto.TypeTick,
		ProtocolVersion: observerproto.Version,
		Tick:            tick,
		Actors:          append([]actor.Pose(nil), poses...),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = msg
	if len(s.subs) == 0 {
		return
	}
	var all []byte
	for _, sub := range s.subs {
		if sub.every > 1 && tick%sub.every != 0 {
			continue
		}
		var b []byte
		if len(sub.actors) == 0 {
			if all == nil {
				all = s.marshal(msg)
			}
			b = all
		} else {
			b = s.marshal(filtered(msg, sub.actors))
		}
		if b == nil {
			continue
		}
		select {
		case sub.out <- b:
		default:
			s.dropped.Add(1)
		}
	}
}

// Subscribers reports the number of connected observers.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

// Dropped reports how many tick messages were skipped for slow observers.
func (s *Server) Dropped() uint64 { return s.dropped.Load() }

func filtered(msg observerproto.TickMsg, ids map[int32]bool) observerproto.TickMsg {
	out := msg
	out.Actors = make([]actor.Pose, 0, len(ids))
	for _, p := range msg.Actors {
		if ids[p.ID] {
			out.Actors = append(out.Actors, p)
		}
	}
	return out
}

func (s *Server) marshal(msg observerproto.TickMsg) []byte {
	b, err := json.Marshal(msg)
	if err != nil {
		s.log.Warn("observer tick encode", zap.Uint64("tick", msg.Tick), zap.Error(err))
		return nil
	}
	return b
}

func (s *Server) BootstrapHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			rw.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		s.mu.Lock()
		resp := observerproto.BootstrapResponse{
			ProtocolVersion: observerproto.Version,
			Tick:            s.last.Tick,
			FrameMillis:     s.frameMillis,
			Actors:          s.last.Actors,
		}
		s.mu.Unlock()
		if resp.Actors == nil {
			resp.Actors = []actor.Pose{}
		}

		rw.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(rw).Encode(resp)
	}
}

func (s *Server) WSHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		if !isLoopbackRemote(r.RemoteAddr) {
			http.Error(rw, "forbidden", http.StatusForbidden)
			return
		}

		conn, err := s.upgrader.Upgrade(rw, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		// Handshake: must send SUBSCRIBE first.
		_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		sub, ok := decodeSubscribe(msg)
		if !ok {
			_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "expected SUBSCRIBE"), time.Now().Add(time.Second))
			return
		}

		id := s.nextID.Add(1)
		out := make(chan []byte, 8)
		s.mu.Lock()
		s.subs[id] = &subscriber{out: out, actors: actorSet(sub.ActorIDs), every: uint64(sub.Every)}
		s.mu.Unlock()
		s.log.Debug("observer joined", zap.Uint64("id", id), zap.String("remote", r.RemoteAddr))
		defer func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			s.log.Debug("observer left", zap.Uint64("id", id))
		}()

		stop := make(chan struct{})
		writerDone := make(chan struct{})
		go func() {
			defer close(writerDone)
			for {
				select {
				case <-stop:
					return
				case b := <-out:
					_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
					if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
						return
					}
				}
			}
		}()

		// Reader loop: allow SUBSCRIBE updates.
		for {
			_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
			_, msg, err := conn.ReadMessage()
			if err != nil {
				break
			}
			sub, ok := decodeSubscribe(msg)
			if !ok {
				continue
			}
			s.mu.Lock()
			if cur := s.subs[id]; cur != nil {
				cur.actors = actorSet(sub.ActorIDs)
				cur.every = uint64(sub.Every)
			}
			s.mu.Unlock()
		}

		close(stop)
		_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye"), time.Now().Add(time.Second))

		select {
		case <-writerDone:
		case <-time.After(500 * time.Millisecond):
		}
	}
}

func decodeSubscribe(msg []byte) (observerproto.SubscribeMsg, bool) {
	var sub observerproto.SubscribeMsg
	if err := json.Unmarshal(msg, &sub); err != nil {
		return sub, false
	}
	if sub.Type != observerproto.TypeSubscribe || sub.ProtocolVersion != observerproto.Version {
		return sub, false
	}
	if sub.Every < 1 {
		sub.Every = 1
	}
	if sub.Every > 600 {
		sub.Every = 600
	}
	return sub, true
}

func actorSet(ids []int32) map[int32]bool {
	if len(ids) == 0 {
		return nil
	}
	m := make(map[int32]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func isLoopbackRemote(remoteAddr string) bool {
	host := remoteAddr
	if h, _, err := net.SplitHostPort(remoteAddr); err == nil {
		host = h
	}
	host = strings.TrimPrefix(host, "[")
	host = strings.TrimSuffix(host, "]")
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}
