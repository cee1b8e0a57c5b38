// Package cascade implements the multi-collection mutations that must
// leave the normalized collections relationally consistent: deleting a
// task or contact together with everything referencing it, and
// reconciling a task's child sets against an edited desired state. These
// are the only mutation entry points the UI may call for these entities.
package cascade

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/FelixRabenholdDev/Join/domain"
)

// Store is the slice of the document store the coordinator needs:
// one-shot snapshot reads, the cross-task assignment query and the
// batched write primitive.
type Store interface {
	GetTask(ctx context.Context, id string) (*domain.Task, error)
	GetContact(ctx context.Context, id string) (*domain.Contact, error)
	ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error)
	ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error)
	QueryAssignmentsByContact(ctx context.Context, contactID string) ([]domain.Assignment, error)
	BatchWrite(ctx context.Context, ops []domain.WriteOp) error
}

// Credentials removes a registered account's stored credential and signs
// the session out when the removed account is the caller's own.
type Credentials interface {
	Remove(ctx context.Context, contactID string) error
}

// Coordinator issues the cascading writes. All coordination with
// concurrent writers is optimistic: snapshots are read, operations are
// staged, and one batched write commits them.
type Coordinator struct {
	store Store
	creds Credentials
	newID func() string
}

func NewCoordinator(store Store, creds Credentials, newID func() string) *Coordinator {
	return &Coordinator{store: store, creds: creds, newID: newID}
}

// DeleteTask removes a task together with every subtask and assignment
// it owns, as one batched write. Deleting an already-absent task is a
// no-op, so a repeated call succeeds.
func (c *Coordinator) DeleteTask(ctx context.Context, taskID string) error {
	if taskID == "" {
		return fmt.Errorf("%w: task id is required", domain.ErrInvalidArgument)
	}
	task, err := c.store.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task == nil {
		log.WithField("task", taskID).Debug("delete of absent task is a no-op")
		return nil
	}
	subtasks, err := c.store.ListSubtasks(ctx, taskID)
	if err != nil {
		return err
	}
	assigns, err := c.store.ListAssignments(ctx, taskID)
	if err != nil {
		return err
	}

	ops := make([]domain.WriteOp, 0, len(subtasks)+len(assigns)+1)
	for _, s := range subtasks {
		ops = append(ops, domain.DeleteOp(domain.SubtaskPath(taskID, s.ID)))
	}
	for _, a := range assigns {
		ops = append(ops, domain.DeleteOp(domain.AssignPath(taskID, a.ID)))
	}
	ops = append(ops, domain.DeleteOp(domain.TaskPath(taskID)))
	return c.store.BatchWrite(ctx, ops)
}

// DeleteContact removes a contact and every assignment referencing it,
// across all tasks. A registered-user contact may only be deleted by its
// owner; plain contacts by anyone. Deleting the caller's own account also
// removes the stored credential and signs the session out.
func (c *Coordinator) DeleteContact(ctx context.Context, callerID, contactID string) error {
	if contactID == "" {
		return fmt.Errorf("%w: contact id is required", domain.ErrInvalidArgument)
	}
	contact, err := c.store.GetContact(ctx, contactID)
	if err != nil {
		return err
	}
	// an absent contact skips the permission check: already gone is not
	// an error, but stale assignments may still need purging
	if contact != nil && contact.IsUser && callerID != contactID {
		return fmt.Errorf("%w: only %s may delete this account", domain.ErrPermissionDenied, contactID)
	}

	assigns, err := c.store.QueryAssignmentsByContact(ctx, contactID)
	if err != nil {
		return err
	}
	// assignments go in the same batch as the contact so no stable state
	// ever holds an assignment pointing at a deleted contact
	ops := make([]domain.WriteOp, 0, len(assigns)+1)
	for _, a := range assigns {
		ops = append(ops, domain.DeleteOp(domain.AssignPath(a.TaskID, a.ID)))
	}
	if contact != nil {
		ops = append(ops, domain.DeleteOp(domain.ContactPath(contactID)))
	}
	if err := c.store.BatchWrite(ctx, ops); err != nil {
		return err
	}

	if contact != nil && contact.IsUser && callerID == contactID {
		if err := c.creds.Remove(ctx, contactID); err != nil {
			return err
		}
	}
	return nil
}
