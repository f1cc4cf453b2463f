package websocket

import (
	"context"
	"encoding/json"

	"ai-counselor-be/internal/constant"
	"ai-counselor-be/internal/dto"
	"ai-counselor-be/internal/entity"
	"ai-counselor-be/internal/pkg/logger"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const clusterChannel = "cluster_events"

// Frame is the envelope of every message pushed to a client.
type Frame struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type clusterMessage struct {
	Origin       string          `json:"origin"`
	TargetUserID string          `json:"target_user_id"`
	Message      json.RawMessage `json:"message"`
}

type Hub struct {
	// Registered clients map: UserID -> List of Clients (multi-device)
	clients map[uuid.UUID][]*Client

	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	// Redis connection for cross-instance fan-out, nil when running alone
	rdb        *redis.Client
	instanceId string

	logger logger.ILogger
}

type delivery struct {
	userId uuid.UUID
	data   []byte
}

func NewHub(rdb *redis.Client, log logger.ILogger) *Hub {
	return &Hub{
		clients:    make(map[uuid.UUID][]*Client),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		rdb:        rdb,
		instanceId: uuid.NewString(),
		logger:     log,
	}
}

// Run owns the client map. Every mutation and every local delivery happens on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	if h.rdb != nil {
		go h.subscribeToRedis(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			return

		case client := <-h.register:
			h.clients[client.UserID] = append(h.clients[client.UserID], client)
			h.logger.Info("Hub", "Client registered", map[string]interface{}{"user_id": client.UserID.String()})

		case client := <-h.unregister:
			h.remove(client)

		case d := <-h.deliver:
			h.deliverLocal(d)
		}
	}
}

// deliverLocal removes slow clients only after the fan-out, remove rewrites the slice in place.
func (h *Hub) deliverLocal(d delivery) {
	var slow []*Client
	for _, client := range h.clients[d.userId] {
		select {
		case client.Send <- d.data:
		default:
			slow = append(slow, client)
		}
	}
	for _, client := range slow {
		h.logger.Warn("Hub", "Client Send buffer full, dropping client", map[string]interface{}{"user_id": d.userId.String()})
		h.remove(client)
	}
}

func (h *Hub) remove(client *Client) {
	clients, ok := h.clients[client.UserID]
	if !ok {
		return
	}
	for i, c := range clients {
		if c == client {
			h.clients[client.UserID] = append(clients[:i], clients[i+1:]...)
			close(client.Send)
			break
		}
	}
	if len(h.clients[client.UserID]) == 0 {
		delete(h.clients, client.UserID)
		h.logger.Info("Hub", "Client completely unregistered", map[string]interface{}{"user_id": client.UserID.String()})
	}
}

// SendToUser pushes a frame to every device of the user, on this instance and the others.
func (h *Hub) SendToUser(userID uuid.UUID, frame Frame) {
	data, err := json.Marshal(frame)
	if err != nil {
		h.logger.Error("Hub", "Frame not serializable", map[string]interface{}{"error": err.Error()})
		return
	}

	h.enqueue(userID, data)

	if h.rdb != nil {
		payload, _ := json.Marshal(clusterMessage{
			Origin:       h.instanceId,
			TargetUserID: userID.String(),
			Message:      data,
		})
		if err := h.rdb.Publish(context.Background(), clusterChannel, payload).Err(); err != nil {
			h.logger.Warn("Hub", "Cluster publish failed", map[string]interface{}{"error": err.Error()})
		}
	}
}

// RunChanged feeds pipeline transitions to the run owner.
func (h *Hub) RunChanged(run *entity.PipelineRun) {
	h.SendToUser(run.UserId, Frame{
		Type: constant.EventTypeRunStatus,
		Data: dto.RunStatusEvent{
			RunId:     run.Id,
			SessionId: run.ChatSessionId,
			Turn:      run.Turn,
			Status:    run.Status,
			Step:      run.CurrentStep,
		},
	})
}

func (h *Hub) enqueue(userID uuid.UUID, data []byte) {
	select {
	case h.deliver <- delivery{userId: userID, data: data}:
	default:
		h.logger.Warn("Hub", "Delivery queue full, dropping frame", map[string]interface{}{"user_id": userID.String()})
	}
}

// subscribeToRedis relays frames published by other instances to local clients.
func (h *Hub) subscribeToRedis(ctx context.Context) {
	pubsub := h.rdb.Subscribe(ctx, clusterChannel)
	defer pubsub.Close()

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			var payload clusterMessage
			if err := json.Unmarshal([]byte(msg.Payload), &payload); err != nil {
				h.logger.Warn("Hub", "Redis msg parse error", map[string]interface{}{"error": err.Error()})
				continue
			}
			if payload.Origin == h.instanceId {
				continue
			}
			uid, err := uuid.Parse(payload.TargetUserID)
			if err != nil {
				continue
			}
			h.enqueue(uid, payload.Message)
		}
	}
}
