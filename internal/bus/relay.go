package bus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"campusrecords/internal/metrics"
	"campusrecords/internal/queue"
)

// Relay forwards bus events to a queue so that consumers outside the
// process can observe them.
type Relay struct {
	bus     *Bus
	q       queue.Queue
	timeout time.Duration
	log     *slog.Logger
}

// NewRelay creates a relay. timeout bounds each enqueue so a full or slow
// queue never stalls the publisher for long.
func NewRelay(b *Bus, q queue.Queue, timeout time.Duration) *Relay {
	if timeout <= 0 {
		timeout = 500 * time.Millisecond
	}
	return &Relay{bus: b, q: q, timeout: timeout, log: slog.Default().With("component", "relay")}
}

// Start subscribes to topics and returns a function that stops forwarding.
func (r *Relay) Start(topics ...string) Unsubscribe {
	unsubs := make([]Unsubscribe, 0, len(topics))
	for _, topic := range topics {
		unsubs = append(unsubs, r.bus.Subscribe(topic, r.forward))
	}
	return func() {
		for _, u := range unsubs {
			u()
		}
	}
}

func (r *Relay) forward(ev Event) {
	body, err := json.Marshal(ev.Payload)
	if err != nil {
		metrics.RelayForwarded.WithLabelValues(ev.Topic, "encode_error").Inc()
		r.log.Warn("relay encode failed", "topic", ev.Topic, "err", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	msg := queue.Message{Topic: ev.Topic, Body: body, At: time.Now().UnixMilli()}
	if err := r.q.Publish(ctx, msg); err != nil {
		metrics.RelayForwarded.WithLabelValues(ev.Topic, "error").Inc()
		r.log.Warn("relay publish failed", "topic", ev.Topic, "err", err)
		return
	}
	metrics.RelayForwarded.WithLabelValues(ev.Topic, "ok").Inc()
}
