package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"leadqualify-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// AlertMessage is what a connected sales dashboard receives.
type AlertMessage struct {
	Type          string                 `json:"type"` // "sales_alert" | "handoff_completed"
	SessionKey    string                 `json:"session_key"`
	PageURL       string                 `json:"page_url"`
	OptionLabel   string                 `json:"option_label,omitempty"`
	WorkflowClass string                 `json:"workflow_class,omitempty"`
	Fields        map[string]interface{} `json:"fields,omitempty"`
	RaisedAt      time.Time              `json:"raised_at"`
}

type Hub struct {
	// Registered clients map: TenantID -> list of dashboard connections
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client

	mu sync.RWMutex

	// Redis connection for cross-instance fanout
	rdb *redis.Client

	logger logger.ILogger
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		clients:    make(map[uuid.UUID][]*Client),
		rdb:        rdb,
		logger:     log,
	}
}

func (h *Hub) Run() {
	if h.rdb != nil {
		go h.subscribeToRedis()
	}

	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.TenantID] = append(h.clients[client.TenantID], client)
			h.mu.Unlock()
			h.logger.Info("Hub", "Dashboard registered", map[string]interface{}{"tenant_id": client.TenantID})

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.clients[client.TenantID]; ok {
				for i, c := range clients {
					if c == client {
						h.clients[client.TenantID] = append(clients[:i], clients[i+1:]...)
						close(client.Send)
						break
					}
				}
				if len(h.clients[client.TenantID]) == 0 {
					delete(h.clients, client.TenantID)
					h.logger.Info("Hub", "Tenant fully unregistered", map[string]interface{}{"tenant_id": client.TenantID})
				}
			}
			h.mu.Unlock()
		}
	}
}

// SendAlert delivers an alert to every dashboard of one tenant, locally and
// via Redis for other instances.
func (h *Hub) SendAlert(tenantID uuid.UUID, alert AlertMessage) {
	data, _ := json.Marshal(map[string]interface{}{
		"type": "alert",
		"data": alert,
	})

	h.mu.RLock()
	clients, localFound := h.clients[tenantID]
	h.mu.RUnlock()

	if localFound {
		for _, client := range clients {
			select {
			case client.Send <- data:
			default:
				h.logger.Warn("Hub", "Client send buffer full, dropping connection", map[string]interface{}{"tenant_id": tenantID})
				close(client.Send)
				h.unregister <- client
			}
		}
	}

	if h.rdb != nil {
		payload := map[string]interface{}{
			"target_tenant_id": tenantID.String(),
			"message":          data,
		}
		jsonPayload, _ := json.Marshal(payload)
		h.rdb.Publish(context.Background(), "alert_events", jsonPayload)
	}
}

// subscribeToRedis fans in alerts published by other instances. Every
// instance subscribes to the shared channel and delivers only to tenants it
// holds locally.
func (h *Hub) subscribeToRedis() {
	ctx := context.Background()
	pubsub := h.rdb.Subscribe(ctx, "alert_events")
	defer pubsub.Close()

	ch := pubsub.Channel()

	for msg := range ch {
		var payload struct {
			TargetTenantID string          `json:"target_tenant_id"`
			Message        json.RawMessage `json:"message"`
		}
		if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
			log.Printf("Redis msg parse error: %v", err)
			continue
		}

		tid, err := uuid.Parse(payload.TargetTenantID)
		if err != nil {
			continue
		}

		h.mu.RLock()
		clients, ok := h.clients[tid]
		h.mu.RUnlock()

		if ok {
			for _, client := range clients {
				select {
				case client.Send <- payload.Message:
				default:
					close(client.Send)
					h.unregister <- client
				}
			}
		}
	}
}
