package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"

	"campusrecords/internal/bus"
	"campusrecords/internal/config"
	"campusrecords/internal/model"
	"campusrecords/internal/queue"
	"campusrecords/internal/store"
)

// Worker consumes relayed portal events from Redis and logs an audit line
// for each.
func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Printf("warning: %v", err)
	}
	cfg := config.Load()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	if cfg.RelayBackend != "redis" {
		log.Fatalf("worker needs RELAY_BACKEND=redis, got %q", cfg.RelayBackend)
	}
	redisClient := store.NewRedis(cfg.RedisAddr)
	defer redisClient.Close()
	if !redisClient.Healthy(ctx) {
		log.Printf("WARNING: redis at %s not reachable, will keep retrying", cfg.RedisAddr)
	}

	q := queue.NewRedisQueue(redisClient.Client, cfg.RelayKey)

	log.Println("worker started, waiting for messages...")
	err := queue.Drain(ctx, q, func(msg queue.Message) {
		log.Print(describe(msg))
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Printf("worker stopped: %v", err)
		return
	}
	log.Println("worker stopped")
}

// describe renders one audit line for a relayed event.
func describe(msg queue.Message) string {
	ev := bus.Event{Topic: msg.Topic, Payload: json.RawMessage(msg.Body)}
	switch msg.Topic {
	case bus.TopicAccount:
		acc, ok := bus.As[model.Account](ev)
		if !ok {
			return "account: signed out"
		}
		return "account: signed in via " + acc.Method + " as " + acc.Role
	case bus.TopicNavigate:
		nav, _ := bus.As[model.Navigate](ev)
		return "navigate: " + nav.To
	case bus.TopicUpload:
		entry, ok := bus.As[model.UploadEntry](ev)
		if !ok {
			return "upload: unreadable payload"
		}
		return "upload: " + entry.ID + " for roll " + entry.Student.Roll
	case bus.TopicProfileUpdated:
		p, ok := bus.As[model.StudentProfile](ev)
		if !ok {
			return "profile-updated: unreadable payload"
		}
		return "profile-updated: " + p.StudentID
	default:
		return "unknown topic " + msg.Topic
	}
}
