package cascade

import (
	"context"
	"fmt"

	"github.com/FelixRabenholdDev/Join/domain"
)

// fakeStore keeps the normalized collections in maps and applies batches
// the way the table store would: deletes of absent rows are no-ops, and
// a forced error leaves the batch unapplied.
type fakeStore struct {
	tasks    map[string]domain.Task
	contacts map[string]domain.Contact
	subtasks map[string]map[string]domain.Subtask   // taskID → id → row
	assigns  map[string]map[string]domain.Assignment // taskID → id → row

	batches  [][]domain.WriteOp
	writeErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tasks:    map[string]domain.Task{},
		contacts: map[string]domain.Contact{},
		subtasks: map[string]map[string]domain.Subtask{},
		assigns:  map[string]map[string]domain.Assignment{},
	}
}

func (f *fakeStore) addTask(t domain.Task) {
	f.tasks[t.ID] = t
}

func (f *fakeStore) addContact(c domain.Contact) {
	f.contacts[c.ID] = c
}

func (f *fakeStore) addSubtask(taskID string, s domain.Subtask) {
	if f.subtasks[taskID] == nil {
		f.subtasks[taskID] = map[string]domain.Subtask{}
	}
	f.subtasks[taskID][s.ID] = s
}

func (f *fakeStore) addAssignment(taskID string, a domain.Assignment) {
	if f.assigns[taskID] == nil {
		f.assigns[taskID] = map[string]domain.Assignment{}
	}
	a.TaskID = taskID
	f.assigns[taskID][a.ID] = a
}

func (f *fakeStore) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	return &t, nil
}

func (f *fakeStore) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	c, ok := f.contacts[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (f *fakeStore) ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error) {
	out := []domain.Subtask{}
	for _, s := range f.subtasks[taskID] {
		out = append(out, s)
	}
	return out, nil
}

func (f *fakeStore) ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	out := []domain.Assignment{}
	for _, a := range f.assigns[taskID] {
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeStore) QueryAssignmentsByContact(ctx context.Context, contactID string) ([]domain.Assignment, error) {
	out := []domain.Assignment{}
	for _, byID := range f.assigns {
		for _, a := range byID {
			if a.ContactID == contactID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (f *fakeStore) BatchWrite(ctx context.Context, ops []domain.WriteOp) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.batches = append(f.batches, ops)
	for _, op := range ops {
		if err := f.apply(op); err != nil {
			return err
		}
	}
	return nil
}

func (f *fakeStore) apply(op domain.WriteOp) error {
	p := op.Path
	switch op.Kind {
	case domain.OpDelete:
		switch p.Collection {
		case "tasks":
			delete(f.tasks, p.ID)
		case "contacts":
			delete(f.contacts, p.ID)
		case "subtasks":
			delete(f.subtasks[p.TaskID], p.ID)
		case "assigns":
			delete(f.assigns[p.TaskID], p.ID)
		}
	case domain.OpSet:
		switch data := op.Data.(type) {
		case domain.Subtask:
			data.ID = p.ID
			f.addSubtask(p.TaskID, data)
		case domain.Assignment:
			data.ID = p.ID
			f.addAssignment(p.TaskID, data)
		case domain.Task:
			data.ID = p.ID
			f.addTask(data)
		case domain.Contact:
			data.ID = p.ID
			f.addContact(data)
		default:
			return fmt.Errorf("fake store: set of %T", op.Data)
		}
	case domain.OpUpdate:
		fields, ok := op.Data.(domain.TaskFields)
		if !ok || p.Collection != "tasks" {
			return fmt.Errorf("fake store: update of %T at %s", op.Data, p.String())
		}
		t := f.tasks[p.ID]
		t.ID = p.ID
		t.Type = fields.Type
		t.Date = fields.Date
		t.Title = fields.Title
		t.Description = fields.Description
		t.Priority = fields.Priority
		f.tasks[p.ID] = t
	}
	return nil
}
