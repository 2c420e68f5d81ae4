package store

import (
	"context"
	"time"

	"campusrecords/internal/metrics"
)

type instrumented struct {
	name string
	next Backend
}

// Instrument records Prometheus metrics for every operation on b.
func Instrument(name string, b Backend) Backend {
	return &instrumented{name: name, next: b}
}

func (i *instrumented) Get(ctx context.Context, key string) ([]byte, bool, error) {
	start := time.Now()
	v, ok, err := i.next.Get(ctx, key)
	i.observe("get", start, err)
	return v, ok, err
}

func (i *instrumented) Set(ctx context.Context, key string, value []byte) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.observe("set", start, err)
	return err
}

func (i *instrumented) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Remove(ctx, key)
	i.observe("remove", start, err)
	return err
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	metrics.StoreOps.WithLabelValues(i.name, op, result).Inc()
	metrics.StoreLatency.WithLabelValues(i.name, op).Observe(time.Since(start).Seconds())
}
