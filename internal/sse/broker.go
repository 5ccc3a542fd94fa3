package sse

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ismail-169/sentinel-finance-sub000/internal/model"
	redisclient "github.com/ismail-169/sentinel-finance-sub000/internal/redis"
)

const (
	HeartbeatInterval = 30 * time.Second
)

// Event is one notification published to a user's event stream. The type
// field carries the NotificationKind (payment_due, schedule_paused, ...).
type Event struct {
	Type model.NotificationKind `json:"type"`
	Data json.RawMessage        `json:"data"`
}

type Client struct {
	UserAddress string
	Events      chan Event
	Done        chan struct{}
}

// Broker fans notification events out to connected SSE clients. Events go
// through redis pub/sub so every server instance sees them regardless of
// which one handled the originating request.
type Broker struct {
	redis   *redisclient.Client
	clients map[string]map[*Client]bool // user address -> set of clients
	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
}

func NewBroker(redisClient *redisclient.Client) *Broker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Broker{
		redis:   redisClient,
		clients: make(map[string]map[*Client]bool),
		ctx:     ctx,
		cancel:  cancel,
	}
}

func (b *Broker) Subscribe(userAddress string) *Client {
	userAddress = model.NormalizeAddress(userAddress)
	client := &Client{
		UserAddress: userAddress,
		Events:      make(chan Event, 100),
		Done:        make(chan struct{}),
	}

	b.mu.Lock()
	if b.clients[userAddress] == nil {
		b.clients[userAddress] = make(map[*Client]bool)
		go b.subscribeToRedis(userAddress)
	}
	b.clients[userAddress][client] = true
	clientCount := len(b.clients[userAddress])
	b.mu.Unlock()

	log.Info().
		Str("user", userAddress).
		Int("clientCount", clientCount).
		Msg("sse client subscribed")

	return client
}

func (b *Broker) Unsubscribe(client *Client) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if clients, ok := b.clients[client.UserAddress]; ok {
		delete(clients, client)
		close(client.Done)

		if len(clients) == 0 {
			delete(b.clients, client.UserAddress)
		}

		log.Info().
			Str("user", client.UserAddress).
			Int("clientCount", len(clients)).
			Msg("sse client unsubscribed")
	}
}

func (b *Broker) Publish(ctx context.Context, userAddress string, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	channel := redisclient.EventChannel(model.NormalizeAddress(userAddress))
	return b.redis.Publish(ctx, channel, data).Err()
}

func (b *Broker) subscribeToRedis(userAddress string) {
	channel := redisclient.EventChannel(userAddress)
	pubsub := b.redis.Subscribe(b.ctx, channel)
	defer pubsub.Close()

	log.Debug().
		Str("user", userAddress).
		Str("channel", channel).
		Msg("redis pubsub subscribed")

	ch := pubsub.Channel()

	for {
		select {
		case <-b.ctx.Done():
			return

		case msg, ok := <-ch:
			if !ok {
				return
			}

			var event Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Error().Err(err).Msg("failed to unmarshal event")
				continue
			}

			b.broadcast(userAddress, event)
		}
	}
}

func (b *Broker) broadcast(userAddress string, event Event) {
	b.mu.RLock()
	clients := b.clients[userAddress]
	b.mu.RUnlock()

	for client := range clients {
		select {
		case client.Events <- event:
		default:
			log.Warn().
				Str("user", userAddress).
				Msg("client event buffer full, dropping event")
		}
	}
}

func (b *Broker) Close() {
	b.cancel()

	b.mu.Lock()
	defer b.mu.Unlock()

	for _, clients := range b.clients {
		for client := range clients {
			close(client.Done)
		}
	}
	b.clients = make(map[string]map[*Client]bool)
}

func (b *Broker) ClientCount(userAddress string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.clients[model.NormalizeAddress(userAddress)])
}
