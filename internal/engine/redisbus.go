package engine

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/divitsinghall/Vortex/internal/model"
)

// publishQueueSize bounds the fire-and-forget publish backlog. Beyond it,
// events are dropped rather than stalling the publishing execution.
const publishQueueSize = 1024

// eosPayload is the control frame marking end-of-stream on a Redis
// channel. It is not valid LogEvent JSON, so event decoding cannot
// confuse the two.
const eosPayload = `{"vortex_eos":true}`

// RedisBus is a Bus backed by Redis pub/sub, for deployments where log
// subscribers connect to a different process than the one executing the
// function. Channel names are topic names. Publishing is fire-and-forget
// through a background drain goroutine so the sandbox's log path never
// waits on broker I/O.
type RedisBus struct {
	client *redis.Client
	logger *slog.Logger

	queue  chan redisFrame
	cancel context.CancelFunc
}

type redisFrame struct {
	topic   string
	payload string
}

// NewRedisBus connects to the broker at addr and starts the publish
// drain. The connection is verified with a ping so misconfiguration
// surfaces at startup rather than on the first execution.
func NewRedisBus(ctx context.Context, addr string, logger *slog.Logger) (*RedisBus, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, model.Errorf(model.KindInternal, "event bus broker unreachable: %v", err)
	}

	drainCtx, cancel := context.WithCancel(context.Background())
	b := &RedisBus{
		client: client,
		logger: logger,
		queue:  make(chan redisFrame, publishQueueSize),
		cancel: cancel,
	}
	go b.drain(drainCtx)
	return b, nil
}

// drain forwards queued frames to the broker until Shutdown.
func (b *RedisBus) drain(ctx context.Context) {
	for {
		select {
		case f := <-b.queue:
			if err := b.client.Publish(ctx, f.topic, f.payload).Err(); err != nil {
				b.logger.Error("publish log event", "topic", f.topic, "error", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Open is a no-op: Redis channels exist implicitly.
func (b *RedisBus) Open(topic string) {}

// Publish enqueues the event for broker delivery and returns immediately.
// Events are dropped if the backlog is full.
func (b *RedisBus) Publish(topic string, ev model.LogEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.logger.Error("encode log event", "topic", topic, "error", err)
		return
	}
	select {
	case b.queue <- redisFrame{topic: topic, payload: string(payload)}:
	default:
		b.logger.Warn("publish backlog full, dropping log event", "topic", topic)
	}
}

// Subscribe attaches to the topic's Redis channel and decodes events
// until end-of-stream or unsubscribe. A subscriber that attaches after the
// topic's end-of-stream frame was published does not receive it; its
// channel stays open until unsubscribe.
func (b *RedisBus) Subscribe(topic string) (<-chan model.LogEvent, func()) {
	ctx, cancel := context.WithCancel(context.Background())
	ps := b.client.Subscribe(ctx, topic)
	out := make(chan model.LogEvent, subscriberBufferSize)

	go func() {
		defer close(out)
		for {
			select {
			case msg, ok := <-ps.Channel():
				if !ok {
					return
				}
				if msg.Payload == eosPayload {
					return
				}
				var ev model.LogEvent
				if err := json.Unmarshal([]byte(msg.Payload), &ev); err != nil {
					b.logger.Error("decode log event", "topic", topic, "error", err)
					continue
				}
				select {
				case out <- ev:
				default:
					// Slow subscriber; drop rather than stall the pump.
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	unsub := func() {
		cancel()
		if err := ps.Close(); err != nil {
			b.logger.Error("close subscription", "topic", topic, "error", err)
		}
	}
	return out, unsub
}

// Close broadcasts end-of-stream so attached subscribers' channels close.
func (b *RedisBus) Close(topic string) {
	select {
	case b.queue <- redisFrame{topic: topic, payload: eosPayload}:
	default:
		b.logger.Warn("publish backlog full, dropping end-of-stream", "topic", topic)
	}
}

// Shutdown stops the publish drain and closes the broker connection.
func (b *RedisBus) Shutdown() error {
	b.cancel()
	return b.client.Close()
}
