// Package devtools streams stash commits to browser inspectors over
// websockets. It is read-only: clients can watch state but never write it.
package devtools

import (
	"encoding/json"
	"net/http"
	"net/url"
	"sort"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/withgalaxy/stash/pkg/stash"
)

type Options struct {
	CheckOrigin  bool
	AllowOrigins []string
	Gatherer     prometheus.Gatherer
	Logger       *zap.Logger
}

// attached is one Attach call; id tells a later attach under the same name
// apart from this one.
type attached struct {
	id  uint64
	get func() map[string]any
}

type Server struct {
	clients   map[*websocket.Conn]bool
	broadcast chan Message
	done      chan struct{}
	stopOnce  sync.Once
	mu        sync.RWMutex
	upgrader  websocket.Upgrader
	stores    map[string]attached
	nextID    uint64
	gatherer  prometheus.Gatherer
	log       *zap.Logger
}

func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}

	s := &Server{
		clients:   make(map[*websocket.Conn]bool),
		broadcast: make(chan Message, 256),
		done:      make(chan struct{}),
		stores:    make(map[string]attached),
		gatherer:  opts.Gatherer,
		log:       log,
	}
	s.upgrader = websocket.Upgrader{
		CheckOrigin: originChecker(opts.CheckOrigin, opts.AllowOrigins),
	}
	return s
}

func originChecker(check bool, allow []string) func(r *http.Request) bool {
	if !check {
		return func(r *http.Request) bool { return true }
	}
	allowed := make(map[string]bool, len(allow))
	for _, o := range allow {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" || allowed[origin] {
			return true
		}
		u, err := url.Parse(origin)
		return err == nil && u.Host == r.Host
	}
}

func (s *Server) Start() {
	go s.handleBroadcasts()
}

// Stop ends broadcasting and closes every client connection.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.done)

		s.mu.Lock()
		defer s.mu.Unlock()
		for client := range s.clients {
			client.Close()
			delete(s.clients, client)
		}
	})
}

// Attach streams every commit of store to connected clients under name.
// A later Attach with the same name takes over its snapshot. The returned
// func detaches it again.
func Attach[T stash.Record](s *Server, name string, store stash.ReadonlyStore[T]) func() {
	s.mu.Lock()
	s.nextID++
	id := s.nextID
	s.stores[name] = attached{
		id: id,
		get: func() map[string]any {
			return map[string]any(store.Get())
		},
	}
	s.mu.Unlock()

	unsub := store.Subscribe(func(next, prev T) {
		msg := newMessage(MsgTypeCommit, name)
		msg.Next = encodable(map[string]any(next))
		msg.Prev = encodable(map[string]any(prev))
		msg.Changed = stash.Changed(prev, next)
		s.publish(msg)
	})

	var once sync.Once
	return func() {
		once.Do(func() {
			unsub()
			s.mu.Lock()
			current, ok := s.stores[name]
			owned := ok && current.id == id
			if owned {
				delete(s.stores, name)
			}
			s.mu.Unlock()
			if owned {
				s.publish(newMessage(MsgTypeDetach, name))
			}
		})
	}
}

func (s *Server) publish(msg Message) {
	select {
	case s.broadcast <- msg:
	case <-s.done:
	default:
		s.log.Warn("devtools broadcast queue full, dropping message",
			zap.String("store", msg.Store), zap.String("type", string(msg.Type)))
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.HandleWebSocket)
	mux.HandleFunc("/state", s.HandleState)
	if s.gatherer != nil {
		mux.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
	return mux
}

func (s *Server) snapshots() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.stores))
	for name := range s.stores {
		names = append(names, name)
	}
	sort.Strings(names)

	msgs := make([]Message, 0, len(names))
	for _, name := range names {
		msg := newMessage(MsgTypeSnapshot, name)
		msg.Next = encodable(s.stores[name].get())
		msgs = append(msgs, msg)
	}
	return msgs
}

func (s *Server) HandleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	state := make(map[string]interface{})
	for _, msg := range s.snapshots() {
		state[msg.Store] = msg.Next
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(state); err != nil {
		s.log.Warn("encode state failed", zap.Error(err))
	}
}

func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	// Initial messages go out before the client joins the broadcast set so
	// the connection never has two writers.
	hello := append([]Message{newMessage(MsgTypeConnect, "")}, s.snapshots()...)
	for _, msg := range hello {
		if err := conn.WriteJSON(msg); err != nil {
			conn.Close()
			return
		}
	}

	s.mu.Lock()
	s.clients[conn] = true
	s.mu.Unlock()
	s.log.Debug("devtools client connected", zap.String("remote", r.RemoteAddr))

	defer func() {
		s.mu.Lock()
		delete(s.clients, conn)
		s.mu.Unlock()
		conn.Close()
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}

func (s *Server) handleBroadcasts() {
	for {
		select {
		case <-s.done:
			return
		case msg := <-s.broadcast:
			s.send(msg)
		}
	}
}

func (s *Server) send(msg Message) {
	var failed []*websocket.Conn

	s.mu.RLock()
	for client := range s.clients {
		if err := client.WriteJSON(msg); err != nil {
			failed = append(failed, client)
		}
	}
	s.mu.RUnlock()

	if len(failed) == 0 {
		return
	}

	s.mu.Lock()
	for _, client := range failed {
		client.Close()
		delete(s.clients, client)
	}
	s.mu.Unlock()
}

func (s *Server) ClientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}
