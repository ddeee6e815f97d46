package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ssoriano/roomchat/internal/types"
)

const (
	eventStream = "chat:events"
	// streamMaxLen bounds the shared stream; trimming is approximate so
	// XADD stays O(1).
	streamMaxLen  = 8192
	readBlock     = 5 * time.Second
	readBatchSize = 64
	retryInterval = time.Second
	connectWait   = 10 * time.Second
)

// RedisBroadcaster relays events across processes through a single redis
// stream. Publish only appends to the stream; every process, the publisher
// included, delivers to its local subscribers from the tail loop, so
// per-room delivery order equals stream order on every process.
//
// Delivery is at-least-once: a process that crashes between delivering an
// entry and advancing its cursor re-delivers it on restart.
type RedisBroadcaster struct {
	client *redis.Client
	local  *MemoryBroadcaster
	log    *log.Logger
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRedisBroadcaster(redisURL string, logger *log.Logger) (*RedisBroadcaster, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), connectWait)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	b := &RedisBroadcaster{
		client: client,
		local:  NewMemoryBroadcaster(),
		log:    logger,
		done:   make(chan struct{}),
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	b.cancel = cancelRun
	go b.run(runCtx)

	return b, nil
}

func (b *RedisBroadcaster) Subscribe(roomId string, c *Client) {
	b.local.Subscribe(roomId, c)
}

func (b *RedisBroadcaster) Unsubscribe(roomId string, c *Client) {
	b.local.Unsubscribe(roomId, c)
}

func (b *RedisBroadcaster) Publish(ctx context.Context, ev *Event) error {
	data, err := json.Marshal(ev.Message)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	err = b.client.XAdd(ctx, &redis.XAddArgs{
		Stream: eventStream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]any{
			"room":    ev.RoomId,
			"sender":  ev.Sender,
			"message": string(data),
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("xadd: %w", err)
	}

	return nil
}

func (b *RedisBroadcaster) run(ctx context.Context) {
	defer close(b.done)

	// "$" skips entries published before this process came up
	lastId := "$"
	for {
		res, err := b.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{eventStream, lastId},
			Count:   readBatchSize,
			Block:   readBlock,
		}).Result()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			if err == redis.Nil {
				continue
			}

			b.log.Println("redis broadcaster: xread:", err)
			select {
			case <-time.After(retryInterval):
				continue
			case <-ctx.Done():
				return
			}
		}

		for _, stream := range res {
			for _, entry := range stream.Messages {
				lastId = entry.ID

				ev, err := decodeStreamEvent(entry.Values)
				if err != nil {
					b.log.Printf("redis broadcaster: drop entry %s: %v", entry.ID, err)
					continue
				}

				b.local.Publish(ctx, ev)
			}
		}
	}
}

func decodeStreamEvent(values map[string]any) (*Event, error) {
	roomId, ok := values["room"].(string)
	if !ok || roomId == "" {
		return nil, fmt.Errorf("missing room field")
	}

	raw, ok := values["message"].(string)
	if !ok {
		return nil, fmt.Errorf("missing message field")
	}

	var msg types.Message
	if err := json.Unmarshal([]byte(raw), &msg); err != nil {
		return nil, fmt.Errorf("unmarshal message: %w", err)
	}

	sender, _ := values["sender"].(string)

	return &Event{
		RoomId:  roomId,
		Sender:  sender,
		Message: &msg,
	}, nil
}

func (b *RedisBroadcaster) Close() error {
	b.cancel()
	<-b.done
	return b.client.Close()
}
