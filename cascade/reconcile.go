package cascade

import (
	"context"
	"fmt"

	"github.com/FelixRabenholdDev/Join/domain"
)

// SaveTaskEdits reconciles a task against its edited desired state: the
// scalar fields are updated and the assignment and subtask sets are
// diffed so only the minimal create/delete operations run, preserving
// untouched child documents' identity. Every operation is staged first
// and committed as one batched write, so an edit applies completely or
// not at all as far as the store's batch primitive allows.
func (c *Coordinator) SaveTaskEdits(ctx context.Context, taskID string, fields domain.TaskFields, desiredAssigns []string, desiredSubtasks []domain.Subtask) error {
	if taskID == "" {
		return fmt.Errorf("%w: task id is required", domain.ErrInvalidArgument)
	}

	ops := []domain.WriteOp{domain.UpdateOp(domain.TaskPath(taskID), fields)}

	assignOps, err := c.diffAssignments(ctx, taskID, desiredAssigns)
	if err != nil {
		return err
	}
	ops = append(ops, assignOps...)

	subtaskOps, err := c.diffSubtasks(ctx, taskID, desiredSubtasks)
	if err != nil {
		return err
	}
	ops = append(ops, subtaskOps...)

	return c.store.BatchWrite(ctx, ops)
}

// diffAssignments keys on contactId: assignments whose contact stays
// assigned are left untouched, dropped contacts lose their assignment,
// new contacts get a fresh one.
func (c *Coordinator) diffAssignments(ctx context.Context, taskID string, desired []string) ([]domain.WriteOp, error) {
	current, err := c.store.ListAssignments(ctx, taskID)
	if err != nil {
		return nil, err
	}
	wanted := map[string]bool{}
	for _, contactID := range desired {
		wanted[contactID] = true
	}

	var ops []domain.WriteOp
	kept := map[string]bool{}
	for _, a := range current {
		if wanted[a.ContactID] && !kept[a.ContactID] {
			kept[a.ContactID] = true
			continue
		}
		ops = append(ops, domain.DeleteOp(domain.AssignPath(taskID, a.ID)))
	}
	for _, contactID := range desired {
		if kept[contactID] {
			continue
		}
		if !wanted[contactID] {
			continue // duplicate already handled
		}
		wanted[contactID] = false
		ops = append(ops, domain.SetOp(
			domain.AssignPath(taskID, c.newID()),
			domain.Assignment{ContactID: contactID},
		))
	}
	return ops, nil
}

// diffSubtasks keys on title, not id: the edit surface does not track
// document ids for freshly typed rows. A row survives only when its
// title and done flag are both unchanged; flipping done under the same
// title recreates the row with the incoming flag. Duplicate titles
// collapse to their first occurrence on either side.
func (c *Coordinator) diffSubtasks(ctx context.Context, taskID string, desired []domain.Subtask) ([]domain.WriteOp, error) {
	current, err := c.store.ListSubtasks(ctx, taskID)
	if err != nil {
		return nil, err
	}
	currentByTitle := map[string]domain.Subtask{}
	extra := []domain.Subtask{}
	for _, s := range current {
		if _, ok := currentByTitle[s.Title]; ok {
			extra = append(extra, s)
			continue
		}
		currentByTitle[s.Title] = s
	}

	var ops []domain.WriteOp
	seen := map[string]bool{}
	for _, d := range desired {
		if seen[d.Title] {
			continue
		}
		seen[d.Title] = true
		cur, exists := currentByTitle[d.Title]
		if exists && cur.Done == d.Done {
			continue // unchanged row keeps its document identity
		}
		if exists {
			ops = append(ops, domain.DeleteOp(domain.SubtaskPath(taskID, cur.ID)))
		}
		ops = append(ops, domain.SetOp(
			domain.SubtaskPath(taskID, c.newID()),
			domain.Subtask{Title: d.Title, Done: d.Done},
		))
	}
	for title, cur := range currentByTitle {
		if !seen[title] {
			ops = append(ops, domain.DeleteOp(domain.SubtaskPath(taskID, cur.ID)))
		}
	}
	for _, s := range extra {
		ops = append(ops, domain.DeleteOp(domain.SubtaskPath(taskID, s.ID)))
	}
	return ops, nil
}
