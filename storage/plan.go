package storage

import (
	"fmt"

	"github.com/FelixRabenholdDev/Join/domain"
)

// txAction is one row operation inside a planned transaction.
type txAction struct {
	Kind    domain.OpKind
	RowKey  string
	Payload []byte // nil for deletes
}

// txPlan is the unit the store can commit atomically: all actions target
// one table partition.
type txPlan struct {
	Collection string
	Partition  string
	Actions    []txAction
}

func (p txPlan) deleteOnly() bool {
	for _, a := range p.Actions {
		if a.Kind != domain.OpDelete {
			return false
		}
	}
	return true
}

// planBatch turns a logical batch into per-partition transactions,
// preserving the order in which partitions first appear, and collects the
// collection paths the batch touches for change notification.
func planBatch(ops []domain.WriteOp) ([]txPlan, []string, error) {
	var plans []txPlan
	index := map[string]int{}
	var changed []string
	seen := map[string]bool{}

	for _, op := range ops {
		p := op.Path
		if p.ID == "" {
			return nil, nil, fmt.Errorf("%w: write op needs a document path, got %q", domain.ErrInvalidArgument, p.String())
		}
		partition, err := partitionFor(p)
		if err != nil {
			return nil, nil, err
		}
		action := txAction{Kind: op.Kind, RowKey: p.ID}
		if op.Kind != domain.OpDelete {
			action.Payload, err = encodeOpData(op)
			if err != nil {
				return nil, nil, err
			}
		}

		key := p.Collection + "\x00" + partition
		i, ok := index[key]
		if !ok {
			i = len(plans)
			index[key] = i
			plans = append(plans, txPlan{Collection: p.Collection, Partition: partition})
		}
		plans[i].Actions = append(plans[i].Actions, action)

		if cp := p.CollectionPath().String(); !seen[cp] {
			seen[cp] = true
			changed = append(changed, cp)
		}
	}
	return plans, changed, nil
}

func partitionFor(p domain.Path) (string, error) {
	switch p.Collection {
	case "contacts":
		return contactsPartition, nil
	case "tasks":
		return tasksPartition, nil
	case "subtasks", "assigns":
		if p.TaskID == "" {
			return "", fmt.Errorf("%w: %s path without task id", domain.ErrInvalidArgument, p.Collection)
		}
		return p.TaskID, nil
	default:
		return "", fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidArgument, p.Collection)
	}
}

func encodeOpData(op domain.WriteOp) ([]byte, error) {
	p := op.Path
	switch data := op.Data.(type) {
	case domain.Contact:
		if p.Collection == "contacts" {
			return encodeContact(p.ID, data)
		}
	case domain.Task:
		if p.Collection == "tasks" {
			return encodeTask(p.ID, data)
		}
	case domain.TaskFields:
		if p.Collection == "tasks" && op.Kind == domain.OpUpdate {
			return encodeTaskFields(p.ID, data)
		}
	case domain.StatusChange:
		if p.Collection == "tasks" && op.Kind == domain.OpUpdate {
			return encodeStatusChange(p.ID, data)
		}
	case domain.Subtask:
		if p.Collection == "subtasks" {
			return encodeSubtask(p.TaskID, p.ID, data)
		}
	case domain.Assignment:
		if p.Collection == "assigns" {
			return encodeAssignment(p.TaskID, p.ID, data)
		}
	}
	return nil, fmt.Errorf("%w: payload %T does not fit path %q", domain.ErrInvalidArgument, op.Data, p.String())
}
