package join

import (
	"context"

	"github.com/FelixRabenholdDev/Join/domain"
)

// Projector resolves contact ids to live board projections.
type Projector interface {
	Projections(ctx context.Context, contactID string) <-chan domain.ContactRef
}

// ChildStreams is the slice of the change-stream source one enrichment
// join needs.
type ChildStreams interface {
	WatchSubtasks(ctx context.Context, taskID string) <-chan []domain.Subtask
	WatchAssignments(ctx context.Context, taskID string) <-chan []domain.Assignment
}

// Enricher combines a task's subtask stream, assignment stream and the
// resolved contact projections into one denormalized board-task stream.
type Enricher struct {
	streams ChildStreams
	dir     Projector
}

func NewEnricher(streams ChildStreams, dir Projector) *Enricher {
	return &Enricher{streams: streams, dir: dir}
}

// contactWatch is the per-assignee node of the join's dependency graph:
// its cancel releases the underlying contact subscription, ref caches the
// latest projection.
type contactWatch struct {
	cancel context.CancelFunc
	ref    domain.ContactRef
}

// Enrich streams the board view of one task, re-emitting whenever the
// subtask snapshot, the assignment snapshot or any assigned contact's
// projection changes. A contact rename therefore propagates to every
// task assigning that contact without the caller resubscribing. The
// stream closes when ctx ends; teardown releases every child
// subscription the join holds.
func (e *Enricher) Enrich(ctx context.Context, task domain.Task) <-chan domain.BoardTask {
	out := make(chan domain.BoardTask, 1)
	go e.run(ctx, task, out)
	return out
}

func (e *Enricher) run(ctx context.Context, task domain.Task, out chan domain.BoardTask) {
	defer close(out)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subtasksCh := e.streams.WatchSubtasks(ctx, task.ID)
	assignsCh := e.streams.WatchAssignments(ctx, task.ID)

	// latest-value caches, one per graph input
	var subtasks []domain.Subtask
	var assigns []domain.Assignment
	watches := map[string]*contactWatch{}
	refs := make(chan domain.ContactRef, 16)

	emit := func() {
		bt := domain.NewBoardTask(task)
		bt.Subtasks = append(bt.Subtasks, subtasks...)
		bt.SubtasksDone, bt.SubtasksTotal, bt.Progress = domain.ProgressOf(subtasks)
		for _, a := range assigns {
			if w, ok := watches[a.ContactID]; ok {
				bt.Assigns = append(bt.Assigns, w.ref)
			}
		}
		sendLatest(out, bt)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case snap, ok := <-subtasksCh:
			if !ok {
				return
			}
			subtasks = snap
			emit()
		case snap, ok := <-assignsCh:
			if !ok {
				return
			}
			assigns = snap
			e.reconcileWatches(ctx, assigns, watches, refs)
			emit()
		case ref := <-refs:
			w, ok := watches[ref.ContactID]
			if !ok {
				// projection from a watch cancelled in the meantime
				continue
			}
			w.ref = ref
			emit()
		}
	}
}

// reconcileWatches aligns the set of contact subscriptions with the
// latest assignment snapshot: new contacts get a watch, dropped ones are
// cancelled. An empty assignment list short-circuits to no watches at
// all, so enriching an unassigned task never touches the directory.
func (e *Enricher) reconcileWatches(ctx context.Context, assigns []domain.Assignment, watches map[string]*contactWatch, refs chan domain.ContactRef) {
	wanted := map[string]bool{}
	for _, a := range assigns {
		wanted[a.ContactID] = true
	}
	for id, w := range watches {
		if !wanted[id] {
			w.cancel()
			delete(watches, id)
		}
	}
	for id := range wanted {
		if _, ok := watches[id]; ok {
			continue
		}
		wctx, wcancel := context.WithCancel(ctx)
		// sentinel placeholder until the first projection arrives
		watches[id] = &contactWatch{cancel: wcancel, ref: domain.SentinelContact(id).Ref()}
		in := e.dir.Projections(wctx, id)
		go func() {
			for ref := range in {
				select {
				case refs <- ref:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
}
