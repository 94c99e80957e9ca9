package realtime

import (
	"context"
	"fmt"
	"labpulse-service/internal/app/contracts"
	"labpulse-service/internal/pkg/constvars"
	"labpulse-service/internal/pkg/lab_dto"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// Hub fans realtime events out to websocket subscribers grouped by topic.
// Delivery is at-most-once: a slow client never blocks the publisher, the
// event is dropped for that client instead.
type Hub struct {
	directoryClient contracts.PatientDirectoryClient
	snapshotStore   contracts.SnapshotStore
	log             *zap.Logger
	upgrader        websocket.Upgrader

	mu     sync.RWMutex
	topics map[string]map[*client]struct{}
}

var (
	hubInstance *Hub
	onceHub     sync.Once
)

func NewHub(directoryClient contracts.PatientDirectoryClient, snapshotStore contracts.SnapshotStore, logger *zap.Logger) *Hub {
	onceHub.Do(func() {
		hubInstance = &Hub{
			directoryClient: directoryClient,
			snapshotStore:   snapshotStore,
			log:             logger,
			upgrader: websocket.Upgrader{
				ReadBufferSize:  1024,
				WriteBufferSize: 1024,
				CheckOrigin:     func(r *http.Request) bool { return true },
			},
			topics: make(map[string]map[*client]struct{}),
		}
	})
	return hubInstance
}

// Publish sends the event to every current subscriber of the topic.
func (h *Hub) Publish(topic string, event lab_dto.Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		h.log.Error("hub.Publish cannot marshal event",
			zap.String(constvars.LoggingTopicKey, topic),
			zap.Error(err),
		)
		return
	}

	h.mu.RLock()
	subscribers := h.topics[topic]
	delivered := len(subscribers)
	dropped := 0
	for c := range subscribers {
		select {
		case c.send <- payload:
		default:
			dropped++
		}
	}
	h.mu.RUnlock()

	h.log.Debug("hub.Publish delivered event",
		zap.String(constvars.LoggingTopicKey, topic),
		zap.String(constvars.LoggingEventTypeKey, event.Type),
		zap.Int("subscribers", delivered),
		zap.Int("dropped", dropped),
	)
}

// ServeWS upgrades the request and runs the connection until the client
// disconnects. Identity comes from the authenticated request context.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(constvars.CONTEXT_USER_ID_KEY).(string)
	role, _ := r.Context().Value(constvars.CONTEXT_USER_ROLE_KEY).(string)

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("hub.ServeWS upgrade failed", zap.Error(err))
		return
	}

	c := &client{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, clientSendBuffer),
		userID: userID,
		role:   role,
		topics: make(map[string]struct{}),
	}

	go c.writePump()
	c.readPump()
}

func (h *Hub) subscribe(c *client, topic string) error {
	if err := h.authorizeTopic(c, topic); err != nil {
		return err
	}

	h.mu.Lock()
	if h.topics[topic] == nil {
		h.topics[topic] = make(map[*client]struct{})
	}
	h.topics[topic][c] = struct{}{}
	h.mu.Unlock()
	c.topics[topic] = struct{}{}

	h.sendSnapshot(c, topic)
	return nil
}

func (h *Hub) unsubscribe(c *client, topic string) {
	h.mu.Lock()
	if subscribers, ok := h.topics[topic]; ok {
		delete(subscribers, c)
		if len(subscribers) == 0 {
			delete(h.topics, topic)
		}
	}
	h.mu.Unlock()
	delete(c.topics, topic)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	for topic := range c.topics {
		if subscribers, ok := h.topics[topic]; ok {
			delete(subscribers, c)
			if len(subscribers) == 0 {
				delete(h.topics, topic)
			}
		}
	}
	h.mu.Unlock()
}

// authorizeTopic re-verifies access on every subscribe attempt so revoked
// relationships take effect immediately.
func (h *Hub) authorizeTopic(c *client, topic string) error {
	prefix, id, ok := splitTopic(topic)
	if !ok {
		return fmt.Errorf("malformed topic %q", topic)
	}

	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()

	switch prefix {
	case constvars.TopicPrefixPatient:
		allowed, err := h.directoryClient.VerifyPatientAccess(ctx, c.userID, id, c.role)
		if err != nil {
			return err
		}
		if !allowed {
			return fmt.Errorf("access denied to %s", topic)
		}
	case constvars.TopicPrefixClinician:
		if c.role != constvars.RoleClinician || c.userID != id {
			return fmt.Errorf("access denied to %s", topic)
		}
	case constvars.TopicPrefixBatch:
		if c.role != constvars.RoleClinician {
			return fmt.Errorf("access denied to %s", topic)
		}
	default:
		return fmt.Errorf("unknown topic prefix %q", prefix)
	}
	return nil
}

// sendSnapshot pushes the cached current state so a new subscriber does not
// start from a gap.
func (h *Hub) sendSnapshot(c *client, topic string) {
	ctx, cancel := context.WithTimeout(context.Background(), authorizeTimeout)
	defer cancel()

	state, err := h.snapshotStore.LoadSnapshot(ctx, topic)
	if err != nil || state == "" {
		return
	}

	event := lab_dto.Event{
		Type:      constvars.EventSnapshot,
		Data:      json.RawMessage(state),
		Timestamp: time.Now().UTC(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return
	}

	select {
	case c.send <- payload:
	default:
	}
}

func splitTopic(topic string) (prefix, id string, ok bool) {
	parts := strings.SplitN(topic, ":", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
