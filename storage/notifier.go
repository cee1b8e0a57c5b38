package storage

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azqueue"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

// fallbackQueue buffers change notices that could not be published so
// subscribers are still poked once the bus is reachable again.
type fallbackQueue interface {
	Enqueue(ctx context.Context, payload string) error
	Dequeue(ctx context.Context) (id, receipt, payload string, ok bool, err error)
	Delete(ctx context.Context, id, receipt string) error
}

// Notifier announces committed writes on the redis changes channel. A
// failed publish never fails the caller's write; the notice goes to the
// fallback queue instead and DrainFallback republishes it later.
type Notifier struct {
	rc       *redis.Client
	channel  string
	fallback fallbackQueue
}

func NewNotifier(rc *redis.Client, channel string, fallback *azqueue.QueueClient) *Notifier {
	n := &Notifier{rc: rc, channel: channel}
	if fallback != nil {
		n.fallback = azQueueFallback{q: fallback}
	}
	return n
}

type notice struct {
	Path string `json:"path"`
}

// Notify publishes one notice per changed collection path.
func (n *Notifier) Notify(ctx context.Context, paths []string) {
	for _, p := range paths {
		payload, err := json.Marshal(notice{Path: p})
		if err != nil {
			log.WithError(err).WithField("path", p).Error("unable to encode change notice")
			continue
		}
		if err := n.rc.Publish(ctx, n.channel, payload).Err(); err != nil {
			log.WithError(err).WithField("path", p).Error("unable to publish change notice")
			n.stash(ctx, string(payload))
		}
	}
}

func (n *Notifier) stash(ctx context.Context, payload string) {
	if n.fallback == nil {
		return
	}
	if err := n.fallback.Enqueue(ctx, payload); err != nil {
		log.WithError(err).Error("unable to stash change notice in fallback queue")
	}
}

// DrainFallback republishes stashed notices until the context ends.
func (n *Notifier) DrainFallback(ctx context.Context) {
	if n.fallback == nil {
		return
	}
	for {
		if ctx.Err() != nil {
			return
		}
		id, receipt, payload, ok, err := n.fallback.Dequeue(ctx)
		if err != nil {
			log.WithError(err).Error("fallback dequeue failed")
			sleep(ctx, time.Second)
			continue
		}
		if !ok {
			sleep(ctx, time.Second)
			continue
		}
		if err := n.rc.Publish(ctx, n.channel, payload).Err(); err != nil {
			log.WithError(err).Error("fallback republish failed")
			sleep(ctx, time.Second)
			continue
		}
		if err := n.fallback.Delete(ctx, id, receipt); err != nil {
			log.WithError(err).Error("fallback delete failed")
		}
	}
}

func sleep(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}

type azQueueFallback struct {
	q *azqueue.QueueClient
}

func (f azQueueFallback) Enqueue(ctx context.Context, payload string) error {
	_, err := f.q.EnqueueMessage(ctx, payload, nil)
	return err
}

func (f azQueueFallback) Dequeue(ctx context.Context) (string, string, string, bool, error) {
	resp, err := f.q.DequeueMessage(ctx, nil)
	if err != nil {
		return "", "", "", false, err
	}
	if len(resp.Messages) == 0 {
		return "", "", "", false, nil
	}
	msg := resp.Messages[0]
	if msg.MessageID == nil || msg.PopReceipt == nil || msg.MessageText == nil {
		return "", "", "", false, nil
	}
	return *msg.MessageID, *msg.PopReceipt, *msg.MessageText, true, nil
}

func (f azQueueFallback) Delete(ctx context.Context, id, receipt string) error {
	_, err := f.q.DeleteMessage(ctx, id, receipt, nil)
	return err
}
