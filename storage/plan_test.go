package storage

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/FelixRabenholdDev/Join/domain"
)

func TestPlanBatchGroupsByPartition(t *testing.T) {
	ops := []domain.WriteOp{
		domain.DeleteOp(domain.SubtaskPath("t1", "s1")),
		domain.DeleteOp(domain.SubtaskPath("t1", "s2")),
		domain.DeleteOp(domain.AssignPath("t1", "a1")),
		domain.DeleteOp(domain.TaskPath("t1")),
	}
	plans, changed, err := planBatch(ops)
	if err != nil {
		t.Fatalf("planBatch: %v", err)
	}
	if len(plans) != 3 {
		t.Fatalf("expected 3 transactions, got %d: %+v", len(plans), plans)
	}
	if plans[0].Collection != "subtasks" || plans[0].Partition != "t1" || len(plans[0].Actions) != 2 {
		t.Fatalf("unexpected first plan %+v", plans[0])
	}
	if plans[1].Collection != "assigns" || len(plans[1].Actions) != 1 {
		t.Fatalf("unexpected second plan %+v", plans[1])
	}
	if plans[2].Collection != "tasks" || plans[2].Actions[0].RowKey != "t1" {
		t.Fatalf("unexpected third plan %+v", plans[2])
	}
	want := []string{"tasks/t1/subtasks", "tasks/t1/assigns", "tasks"}
	if len(changed) != len(want) {
		t.Fatalf("changed paths %v, want %v", changed, want)
	}
	for i := range want {
		if changed[i] != want[i] {
			t.Fatalf("changed paths %v, want %v", changed, want)
		}
	}
}

func TestPlanBatchEncodesPayloads(t *testing.T) {
	ops := []domain.WriteOp{
		domain.SetOp(domain.AssignPath("t1", "a9"), domain.Assignment{ContactID: "c3"}),
		domain.UpdateOp(domain.TaskPath("t1"), domain.TaskFields{Title: "new title", Priority: "urgent"}),
	}
	plans, _, err := planBatch(ops)
	if err != nil {
		t.Fatalf("planBatch: %v", err)
	}
	var assign map[string]any
	if err := json.Unmarshal(plans[0].Actions[0].Payload, &assign); err != nil {
		t.Fatalf("unmarshal assign payload: %v", err)
	}
	if assign["PartitionKey"] != "t1" || assign["RowKey"] != "a9" || assign["ContactID"] != "c3" {
		t.Fatalf("unexpected assign payload %v", assign)
	}
	var task map[string]any
	if err := json.Unmarshal(plans[1].Actions[0].Payload, &task); err != nil {
		t.Fatalf("unmarshal task payload: %v", err)
	}
	if task["PartitionKey"] != "tasks" || task["RowKey"] != "t1" || task["Title"] != "new title" {
		t.Fatalf("unexpected task payload %v", task)
	}
}

func TestPlanBatchRejectsMismatchedPayload(t *testing.T) {
	ops := []domain.WriteOp{
		domain.SetOp(domain.TaskPath("t1"), domain.Subtask{Title: "oops"}),
	}
	if _, _, err := planBatch(ops); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestPlanBatchRejectsCollectionPath(t *testing.T) {
	ops := []domain.WriteOp{domain.DeleteOp(domain.TasksPath())}
	if _, _, err := planBatch(ops); !errors.Is(err, domain.ErrInvalidArgument) {
		t.Fatalf("err = %v, want ErrInvalidArgument", err)
	}
}

func TestDeleteOnly(t *testing.T) {
	p := txPlan{Actions: []txAction{{Kind: domain.OpDelete}, {Kind: domain.OpDelete}}}
	if !p.deleteOnly() {
		t.Fatal("expected delete-only plan")
	}
	p.Actions = append(p.Actions, txAction{Kind: domain.OpSet})
	if p.deleteOnly() {
		t.Fatal("expected mixed plan")
	}
}

func TestDecodeDefaults(t *testing.T) {
	c, err := decodeContact([]byte(`{"PartitionKey":"contacts","RowKey":"c1"}`))
	if err != nil {
		t.Fatalf("decodeContact: %v", err)
	}
	if c.ID != "c1" || c.Name != "" || c.Email != "" || c.IsUser {
		t.Fatalf("unexpected contact %+v", c)
	}
	task, err := decodeTask([]byte(`{"PartitionKey":"tasks","RowKey":"t1","Status":"bogus"}`))
	if err != nil {
		t.Fatalf("decodeTask: %v", err)
	}
	if task.Status != domain.StatusToDo {
		t.Fatalf("unexpected status %q", task.Status)
	}
}
