// Package join maintains the denormalized board view: it fans the task
// stream out into one enrichment join per task, resolves assignees
// through the contact directory, and folds everything back into a single
// always-current list of board tasks. It only ever reads; all mutations
// go through the cascade coordinator.
package join

import (
	"context"

	"github.com/FelixRabenholdDev/Join/domain"
)

// Streams is the change-stream source the join engine consumes. Each
// method returns a lazy, infinite, restartable snapshot stream that
// closes when the context ends.
type Streams interface {
	WatchTasks(ctx context.Context) <-chan []domain.Task
	WatchSubtasks(ctx context.Context, taskID string) <-chan []domain.Subtask
	WatchAssignments(ctx context.Context, taskID string) <-chan []domain.Assignment
	WatchContact(ctx context.Context, contactID string) <-chan domain.Contact
}

// sendLatest delivers v into a capacity-one channel, displacing an
// unconsumed older value so consumers always see the freshest state.
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
