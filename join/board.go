package join

import (
	"context"
	"sync"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"github.com/FelixRabenholdDev/Join/domain"
)

// BoardSource produces the combined board stream.
type BoardSource interface {
	BoardTasks(ctx context.Context) <-chan []domain.BoardTask
}

// Board fans one aggregator stream out to any number of consumers. The
// status-column views are plain filters over the cached list, so ten
// column subscribers still cost exactly one join tree.
type Board struct {
	source BoardSource
	rc     *redis.Client // optional snapshot cache
	cacheK string

	mu     sync.Mutex
	latest []domain.BoardTask
	ready  bool
	subs   map[chan []domain.BoardTask]struct{}
}

func NewBoard(source BoardSource, rc *redis.Client, cacheKey string) *Board {
	return &Board{
		source: source,
		rc:     rc,
		cacheK: cacheKey,
		subs:   map[chan []domain.BoardTask]struct{}{},
	}
}

// Run consumes the aggregator stream until ctx ends, caching the latest
// list and broadcasting it to subscribers.
func (b *Board) Run(ctx context.Context) {
	b.warmStart(ctx)
	in := b.source.BoardTasks(ctx)
	for list := range in {
		b.mu.Lock()
		b.latest = list
		b.ready = true
		for ch := range b.subs {
			sendLatest(ch, list)
		}
		b.mu.Unlock()
		b.cacheSnapshot(ctx, list)
	}
}

// warmStart seeds the latest list from the cached snapshot so reads
// served before the first live emission are not empty after a restart.
func (b *Board) warmStart(ctx context.Context) {
	if b.rc == nil {
		return
	}
	data, err := b.rc.Get(ctx, b.cacheK).Bytes()
	if err != nil {
		if err != redis.Nil && ctx.Err() == nil {
			log.WithError(err).Error("unable to read cached board snapshot")
		}
		return
	}
	var list []domain.BoardTask
	if err := sonic.Unmarshal(data, &list); err != nil {
		log.WithError(err).Error("unable to decode cached board snapshot")
		return
	}
	b.mu.Lock()
	if !b.ready {
		b.latest = list
		b.ready = true
	}
	b.mu.Unlock()
}

func (b *Board) cacheSnapshot(ctx context.Context, list []domain.BoardTask) {
	if b.rc == nil {
		return
	}
	data, err := sonic.Marshal(list)
	if err != nil {
		log.WithError(err).Error("unable to encode board snapshot")
		return
	}
	if err := b.rc.Set(ctx, b.cacheK, data, 0).Err(); err != nil && ctx.Err() == nil {
		log.WithError(err).Error("unable to cache board snapshot")
	}
}

// Subscribe registers a consumer for board snapshots. The channel holds
// the latest list only; the current state is delivered immediately when
// one exists.
func (b *Board) Subscribe() chan []domain.BoardTask {
	ch := make(chan []domain.BoardTask, 1)
	b.mu.Lock()
	b.subs[ch] = struct{}{}
	if b.ready {
		ch <- b.latest
	}
	b.mu.Unlock()
	return ch
}

func (b *Board) Unsubscribe(ch chan []domain.BoardTask) {
	b.mu.Lock()
	delete(b.subs, ch)
	b.mu.Unlock()
}

// Latest returns the most recent board list, if one has been computed.
func (b *Board) Latest() ([]domain.BoardTask, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return nil, false
	}
	return append([]domain.BoardTask(nil), b.latest...), true
}

// ByStatus filters the latest list down to one column.
func (b *Board) ByStatus(status domain.Status) ([]domain.BoardTask, bool) {
	list, ok := b.Latest()
	if !ok {
		return nil, false
	}
	return FilterStatus(list, status), true
}

// FilterStatus keeps the tasks of one board column, preserving order.
func FilterStatus(list []domain.BoardTask, status domain.Status) []domain.BoardTask {
	column := []domain.BoardTask{}
	for _, bt := range list {
		if bt.Status == status {
			column = append(column, bt)
		}
	}
	return column
}
