// internal/handlers/hub.go
package handlers

import (
	"encoding/json"
	"sync"

	"github.com/jason-s-yu/crystal-clear/internal/models"
	"github.com/sirupsen/logrus"
)

// outQueueSize bounds each connection's pending outbound frames.
const outQueueSize = 64

// Conn is one live WebSocket as the hub sees it.
type Conn struct {
	ID      string
	OutChan chan []byte

	// done is closed when the connection fell too far behind and must be
	// dropped.
	done     chan struct{}
	dropOnce sync.Once
}

func newConn(id string) *Conn {
	return &Conn{ID: id, OutChan: make(chan []byte, outQueueSize), done: make(chan struct{})}
}

func (c *Conn) drop() {
	c.dropOnce.Do(func() { close(c.done) })
}

// Hub tracks connections and the groups they subscribe to and fans events out.
// Frames are encoded once per call and queued without blocking; a connection
// whose queue is full is dropped so it can reconnect and resync.
type Hub struct {
	mu     sync.RWMutex
	conns  map[string]*Conn
	groups map[string]map[string]struct{}
	log    *logrus.Logger
}

func NewHub(log *logrus.Logger) *Hub {
	return &Hub{
		conns:  make(map[string]*Conn),
		groups: make(map[string]map[string]struct{}),
		log:    log,
	}
}

// Register makes c reachable by SendTo and Broadcast.
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c.ID] = c
}

// Remove forgets connID and its subscriptions.
func (h *Hub) Remove(connID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, connID)
	for group, members := range h.groups {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

func (h *Hub) Subscribe(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	members, ok := h.groups[group]
	if !ok {
		members = make(map[string]struct{})
		h.groups[group] = members
	}
	members[connID] = struct{}{}
}

func (h *Hub) Unsubscribe(connID, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if members, ok := h.groups[group]; ok {
		delete(members, connID)
		if len(members) == 0 {
			delete(h.groups, group)
		}
	}
}

// SendTo queues event for a single connection.
func (h *Hub) SendTo(connID, event string, data interface{}) {
	raw, ok := h.encode(models.Envelope{Event: event, Data: data})
	if !ok {
		return
	}
	h.mu.RLock()
	c, found := h.conns[connID]
	h.mu.RUnlock()
	if found {
		h.deliver(c, raw)
	}
}

// Broadcast queues event for every connection in group except exceptConnID.
func (h *Hub) Broadcast(group, event string, data interface{}, exceptConnID string) {
	raw, ok := h.encode(models.Envelope{Event: event, Data: data})
	if !ok {
		return
	}
	h.mu.RLock()
	targets := make([]*Conn, 0, len(h.groups[group]))
	for id := range h.groups[group] {
		if id == exceptConnID {
			continue
		}
		if c, found := h.conns[id]; found {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		h.deliver(c, raw)
	}
}

// Members is the number of connections subscribed to group.
func (h *Hub) Members(group string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.groups[group])
}

func (h *Hub) encode(env models.Envelope) ([]byte, bool) {
	raw, err := json.Marshal(env)
	if err != nil {
		h.log.WithError(err).WithField("event", env.Event).Error("failed to encode outbound frame")
		return nil, false
	}
	return raw, true
}

func (h *Hub) deliver(c *Conn, raw []byte) {
	select {
	case c.OutChan <- raw:
	default:
		h.log.WithField("conn", c.ID).Warn("outbound queue full, dropping connection")
		c.drop()
	}
}
