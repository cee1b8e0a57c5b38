package join

import (
	"context"
	"sync"

	"github.com/FelixRabenholdDev/Join/domain"
)

// fakeStreams is an in-memory change-stream source. Set* methods replace
// a snapshot and push it to every live watch, mimicking the re-read that
// a change notice triggers.
type fakeStreams struct {
	mu       sync.Mutex
	tasks    []domain.Task
	subtasks map[string][]domain.Subtask
	assigns  map[string][]domain.Assignment
	contacts map[string]domain.Contact

	taskSubs    []*fakeSub[[]domain.Task]
	subtaskSubs map[string][]*fakeSub[[]domain.Subtask]
	assignSubs  map[string][]*fakeSub[[]domain.Assignment]
	contactSubs map[string][]*fakeSub[domain.Contact]

	taskWatchCalls    int
	contactWatchCalls int
}

var _ Streams = (*fakeStreams)(nil)

type fakeSub[T any] struct {
	ch     chan T
	closed bool
}

func newFakeStreams() *fakeStreams {
	return &fakeStreams{
		subtasks:    map[string][]domain.Subtask{},
		assigns:     map[string][]domain.Assignment{},
		contacts:    map[string]domain.Contact{},
		subtaskSubs: map[string][]*fakeSub[[]domain.Subtask]{},
		assignSubs:  map[string][]*fakeSub[[]domain.Assignment]{},
		contactSubs: map[string][]*fakeSub[domain.Contact]{},
	}
}

func (f *fakeStreams) WatchTasks(ctx context.Context) <-chan []domain.Task {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.taskWatchCalls++
	sub := &fakeSub[[]domain.Task]{ch: make(chan []domain.Task, 1)}
	f.taskSubs = append(f.taskSubs, sub)
	sub.ch <- append([]domain.Task(nil), f.tasks...)
	go f.reap(ctx, &f.mu, func() { closeSub(sub) })
	return sub.ch
}

func (f *fakeStreams) WatchSubtasks(ctx context.Context, taskID string) <-chan []domain.Subtask {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub[[]domain.Subtask]{ch: make(chan []domain.Subtask, 1)}
	f.subtaskSubs[taskID] = append(f.subtaskSubs[taskID], sub)
	sub.ch <- append([]domain.Subtask(nil), f.subtasks[taskID]...)
	go f.reap(ctx, &f.mu, func() { closeSub(sub) })
	return sub.ch
}

func (f *fakeStreams) WatchAssignments(ctx context.Context, taskID string) <-chan []domain.Assignment {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub := &fakeSub[[]domain.Assignment]{ch: make(chan []domain.Assignment, 1)}
	f.assignSubs[taskID] = append(f.assignSubs[taskID], sub)
	sub.ch <- append([]domain.Assignment(nil), f.assigns[taskID]...)
	go f.reap(ctx, &f.mu, func() { closeSub(sub) })
	return sub.ch
}

func (f *fakeStreams) WatchContact(ctx context.Context, contactID string) <-chan domain.Contact {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contactWatchCalls++
	sub := &fakeSub[domain.Contact]{ch: make(chan domain.Contact, 1)}
	f.contactSubs[contactID] = append(f.contactSubs[contactID], sub)
	sub.ch <- f.contactLocked(contactID)
	go f.reap(ctx, &f.mu, func() { closeSub(sub) })
	return sub.ch
}

func (f *fakeStreams) contactLocked(id string) domain.Contact {
	if c, ok := f.contacts[id]; ok {
		return c
	}
	return domain.SentinelContact(id)
}

func (f *fakeStreams) reap(ctx context.Context, mu *sync.Mutex, close func()) {
	<-ctx.Done()
	mu.Lock()
	defer mu.Unlock()
	close()
}

func closeSub[T any](s *fakeSub[T]) {
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func emitSub[T any](s *fakeSub[T], v T) {
	if s.closed {
		return
	}
	select {
	case s.ch <- v:
	default:
		select {
		case <-s.ch:
		default:
		}
		select {
		case s.ch <- v:
		default:
		}
	}
}

func (f *fakeStreams) SetTasks(tasks []domain.Task) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tasks = tasks
	for _, s := range f.taskSubs {
		emitSub(s, append([]domain.Task(nil), tasks...))
	}
}

func (f *fakeStreams) SetSubtasks(taskID string, subtasks []domain.Subtask) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subtasks[taskID] = subtasks
	for _, s := range f.subtaskSubs[taskID] {
		emitSub(s, append([]domain.Subtask(nil), subtasks...))
	}
}

func (f *fakeStreams) SetAssignments(taskID string, assigns []domain.Assignment) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.assigns[taskID] = assigns
	for _, s := range f.assignSubs[taskID] {
		emitSub(s, append([]domain.Assignment(nil), assigns...))
	}
}

func (f *fakeStreams) SetContact(c domain.Contact) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.contacts[c.ID] = c
	for _, s := range f.contactSubs[c.ID] {
		emitSub(s, c)
	}
}

func (f *fakeStreams) ContactWatchCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.contactWatchCalls
}

func (f *fakeStreams) ActiveContactWatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, subs := range f.contactSubs {
		for _, s := range subs {
			if !s.closed {
				n++
			}
		}
	}
	return n
}

func (f *fakeStreams) ActiveChildWatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, subs := range f.subtaskSubs {
		for _, s := range subs {
			if !s.closed {
				n++
			}
		}
	}
	for _, subs := range f.assignSubs {
		for _, s := range subs {
			if !s.closed {
				n++
			}
		}
	}
	return n
}

func (f *fakeStreams) ActiveTaskWatches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.taskSubs {
		if !s.closed {
			n++
		}
	}
	return n
}
