// Package stream turns the change-notice bus plus one-shot reads into
// live snapshot streams. Every watch emits the current snapshot on
// subscribe, then re-reads and re-emits whenever a committed write
// touches the watched collection. Streams are infinite and restartable:
// a dropped pub/sub connection is re-established and the watch resumes
// with a fresh snapshot.
package stream

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/FelixRabenholdDev/Join/domain"
)

// Reader provides the one-shot snapshot reads behind each watch.
type Reader interface {
	ListTasks(ctx context.Context) ([]domain.Task, error)
	ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error)
	ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error)
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
}

// Watcher subscribes to the changes channel and serves per-collection
// snapshot streams.
type Watcher struct {
	rc      *redis.Client
	reader  Reader
	channel string

	// retry pause after a dropped pub/sub connection
	reconnectDelay time.Duration
}

func NewWatcher(rc *redis.Client, reader Reader, channel string) *Watcher {
	return &Watcher{rc: rc, reader: reader, channel: channel, reconnectDelay: time.Second}
}

// WatchTasks streams snapshots of the task collection.
func (w *Watcher) WatchTasks(ctx context.Context) <-chan []domain.Task {
	return watch(ctx, w, domain.TasksPath().String(), func(ctx context.Context) ([]domain.Task, error) {
		return w.reader.ListTasks(ctx)
	})
}

// WatchSubtasks streams snapshots of one task's subtask collection.
func (w *Watcher) WatchSubtasks(ctx context.Context, taskID string) <-chan []domain.Subtask {
	return watch(ctx, w, domain.SubtasksPath(taskID).String(), func(ctx context.Context) ([]domain.Subtask, error) {
		return w.reader.ListSubtasks(ctx, taskID)
	})
}

// WatchAssignments streams snapshots of one task's assignment collection.
func (w *Watcher) WatchAssignments(ctx context.Context, taskID string) <-chan []domain.Assignment {
	return watch(ctx, w, domain.AssignsPath(taskID).String(), func(ctx context.Context) ([]domain.Assignment, error) {
		return w.reader.ListAssignments(ctx, taskID)
	})
}

// WatchContact streams snapshots of a single contact document. An absent
// document yields the sentinel contact, indefinitely if need be; that is
// a stable value for callers, never an error.
func (w *Watcher) WatchContact(ctx context.Context, contactID string) <-chan domain.Contact {
	return watch(ctx, w, domain.ContactsPath().String(), func(ctx context.Context) (domain.Contact, error) {
		c, err := w.reader.GetContact(ctx, contactID)
		if err != nil {
			return domain.Contact{}, err
		}
		if c == nil {
			return domain.SentinelContact(contactID), nil
		}
		return *c, nil
	})
}

// watch runs the subscribe/refetch loop for one logical path. The output
// channel has capacity one and keeps only the latest snapshot: a slow
// consumer sees the freshest state, never a backlog of stale ones. The
// channel closes when ctx ends.
func watch[T any](ctx context.Context, w *Watcher, path string, fetch func(context.Context) (T, error)) <-chan T {
	out := make(chan T, 1)
	go func() {
		defer close(out)
		for {
			sub := w.rc.Subscribe(ctx, w.channel)
			ch := sub.Channel()
			refetch(ctx, out, path, fetch)
		inner:
			for {
				select {
				case <-ctx.Done():
					sub.Close()
					return
				case msg, ok := <-ch:
					if !ok {
						break inner
					}
					var n struct {
						Path string `json:"path"`
					}
					if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
						log.WithError(err).Error("unable to parse change notice")
						continue
					}
					if n.Path != path {
						continue
					}
					refetch(ctx, out, path, fetch)
				}
			}
			sub.Close()
			if ctx.Err() != nil {
				return
			}
			log.WithField("path", path).Error("changes channel closed, reconnecting")
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.reconnectDelay):
			}
		}
	}()
	return out
}

func refetch[T any](ctx context.Context, out chan T, path string, fetch func(context.Context) (T, error)) {
	v, err := fetch(ctx)
	if err != nil {
		if ctx.Err() == nil {
			log.WithError(err).WithField("path", path).Error("snapshot read failed")
		}
		return
	}
	sendLatest(out, v)
}

// sendLatest delivers v into a capacity-one channel, displacing an
// unconsumed older snapshot.
func sendLatest[T any](ch chan T, v T) {
	for {
		select {
		case ch <- v:
			return
		default:
			select {
			case <-ch:
			default:
			}
		}
	}
}
