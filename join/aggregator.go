package join

import (
	"context"

	"github.com/FelixRabenholdDev/Join/domain"
)

// Session is the authenticated-session signal the aggregator gates on.
// Subscribe delivers the current identity (empty string when signed out)
// whenever it changes.
type Session interface {
	CurrentIdentity() (string, bool)
	Subscribe() chan string
	Unsubscribe(ch chan string)
}

// TaskStreams is the slice of the change-stream source the aggregator
// itself consumes; per-task child streams are the enricher's business.
type TaskStreams interface {
	WatchTasks(ctx context.Context) <-chan []domain.Task
}

// Aggregator fans the task stream out into one enrichment join per live
// task id and folds the joins back into one ordered board-task list.
type Aggregator struct {
	streams TaskStreams
	enrich  *Enricher
	session Session
}

func NewAggregator(streams TaskStreams, enrich *Enricher, session Session) *Aggregator {
	return &Aggregator{streams: streams, enrich: enrich, session: session}
}

// joinState is the per-task node of the board's dependency graph.
type joinState struct {
	cancel  context.CancelFunc
	latest  domain.BoardTask
	emitted bool
}

// BoardTasks streams the combined board list, ordered by the task
// stream's emission order. While no session exists the stream emits an
// empty list and holds no task subscription at all; signing out tears the
// whole join tree down again. An empty task set emits an empty list
// immediately rather than waiting for joins.
func (a *Aggregator) BoardTasks(ctx context.Context) <-chan []domain.BoardTask {
	out := make(chan []domain.BoardTask, 1)
	go a.run(ctx, out)
	return out
}

func (a *Aggregator) run(ctx context.Context, out chan []domain.BoardTask) {
	defer close(out)

	sessCh := a.session.Subscribe()
	defer a.session.Unsubscribe(sessCh)

	var (
		wctx        context.Context
		watchCancel context.CancelFunc
		tasksCh     <-chan []domain.Task
		joins       map[string]*joinState
		tasks       map[string]domain.Task
		order       []string
		updates     chan domain.BoardTask
	)

	// cancelling wctx releases the task watch, every join and every
	// join's child subscriptions in one sweep
	teardown := func() {
		if watchCancel != nil {
			watchCancel()
		}
		wctx, watchCancel, tasksCh, joins, tasks, order, updates = nil, nil, nil, nil, nil, nil, nil
	}
	defer teardown()

	startup := func() {
		wctx, watchCancel = context.WithCancel(ctx)
		tasksCh = a.streams.WatchTasks(wctx)
		joins = map[string]*joinState{}
		tasks = map[string]domain.Task{}
		updates = make(chan domain.BoardTask, 16)
	}

	combine := func() []domain.BoardTask {
		list := make([]domain.BoardTask, 0, len(order))
		for _, id := range order {
			task := tasks[id]
			js := joins[id]
			bt := domain.NewBoardTask(task)
			if js != nil && js.emitted {
				bt = js.latest
				// scalar task fields always come from the latest task
				// snapshot; the join owns only the child data
				bt.Task = task
			}
			list = append(list, bt)
		}
		return list
	}

	if _, ok := a.session.CurrentIdentity(); ok {
		startup()
	} else {
		sendLatest(out, []domain.BoardTask{})
	}

	for {
		// nil channels park their select cases while signed out
		select {
		case <-ctx.Done():
			return
		case id := <-sessCh:
			if id == "" {
				if tasksCh != nil {
					teardown()
					sendLatest(out, []domain.BoardTask{})
				}
			} else if tasksCh == nil {
				startup()
			}
		case snap, ok := <-tasksCh:
			if !ok {
				return
			}
			order = order[:0]
			live := map[string]bool{}
			for _, t := range snap {
				order = append(order, t.ID)
				live[t.ID] = true
				tasks[t.ID] = t
				if _, exists := joins[t.ID]; !exists {
					joins[t.ID] = a.startJoin(wctx, t, updates)
				}
			}
			for id, js := range joins {
				if !live[id] {
					js.cancel()
					delete(joins, id)
					delete(tasks, id)
				}
			}
			sendLatest(out, combine())
		case bt := <-updates:
			js, ok := joins[bt.ID]
			if !ok {
				// late emission from a join already torn down
				continue
			}
			js.latest = bt
			js.emitted = true
			sendLatest(out, combine())
		}
	}
}

func (a *Aggregator) startJoin(ctx context.Context, task domain.Task, updates chan domain.BoardTask) *joinState {
	jctx, jcancel := context.WithCancel(ctx)
	js := &joinState{cancel: jcancel}
	in := a.enrich.Enrich(jctx, task)
	go func() {
		for bt := range in {
			select {
			case updates <- bt:
			case <-jctx.Done():
				return
			}
		}
	}()
	return js
}
