package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/FelixRabenholdDev/Join/domain"
)

// Notify receives the collection paths a committed batch touched.
type Notify interface {
	Notify(ctx context.Context, paths []string)
}

// Storage persists the normalized board collections in Azure Table
// Storage: one table per collection, child rows partitioned by their
// owning task. It is the read/write half of the change-stream source.
type Storage struct {
	contacts    *aztables.Client
	tasks       *aztables.Client
	subtasks    *aztables.Client
	assigns     *aztables.Client
	credentials *aztables.Client
	notify      Notify
}

// Tables names the backing tables.
type Tables struct {
	Contacts    string
	Tasks       string
	Subtasks    string
	Assigns     string
	Credentials string
}

// New creates a Storage instance from the given connection string.
func New(connStr string, tables Tables, notify Notify) (*Storage, error) {
	opts := aztables.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	svc, err := aztables.NewServiceClientFromConnectionString(connStr, &opts)
	if err != nil {
		return nil, err
	}
	return &Storage{
		contacts:    svc.NewClient(tables.Contacts),
		tasks:       svc.NewClient(tables.Tasks),
		subtasks:    svc.NewClient(tables.Subtasks),
		assigns:     svc.NewClient(tables.Assigns),
		credentials: svc.NewClient(tables.Credentials),
		notify:      notify,
	}, nil
}

func (s *Storage) client(collection string) *aztables.Client {
	switch collection {
	case "contacts":
		return s.contacts
	case "tasks":
		return s.tasks
	case "subtasks":
		return s.subtasks
	case "assigns":
		return s.assigns
	}
	return nil
}

// GetContact reads a single contact, returning nil when it is absent.
func (s *Storage) GetContact(ctx context.Context, id string) (*domain.Contact, error) {
	resp, err := s.contacts.GetEntity(ctx, contactsPartition, id, nil)
	if err != nil {
		if isStatus(err, 404) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get contact: %v", domain.ErrWriteFailed, err)
	}
	c, err := decodeContact(resp.Value)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// GetTask reads a single task, returning nil when it is absent.
func (s *Storage) GetTask(ctx context.Context, id string) (*domain.Task, error) {
	resp, err := s.tasks.GetEntity(ctx, tasksPartition, id, nil)
	if err != nil {
		if isStatus(err, 404) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: get task: %v", domain.ErrWriteFailed, err)
	}
	t, err := decodeTask(resp.Value)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ListContacts returns every contact in table scan order.
func (s *Storage) ListContacts(ctx context.Context) ([]domain.Contact, error) {
	rows, err := s.listPartition(ctx, s.contacts, contactsPartition)
	if err != nil {
		return nil, err
	}
	contacts := []domain.Contact{}
	for _, row := range rows {
		c, err := decodeContact(row)
		if err != nil {
			return nil, err
		}
		contacts = append(contacts, c)
	}
	return contacts, nil
}

// ListTasks returns every task in table scan order. That order is the
// board's upstream emission order; no further sorting happens downstream.
func (s *Storage) ListTasks(ctx context.Context) ([]domain.Task, error) {
	rows, err := s.listPartition(ctx, s.tasks, tasksPartition)
	if err != nil {
		return nil, err
	}
	tasks := []domain.Task{}
	for _, row := range rows {
		t, err := decodeTask(row)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

// ListSubtasks returns the subtasks owned by one task.
func (s *Storage) ListSubtasks(ctx context.Context, taskID string) ([]domain.Subtask, error) {
	rows, err := s.listPartition(ctx, s.subtasks, taskID)
	if err != nil {
		return nil, err
	}
	subtasks := []domain.Subtask{}
	for _, row := range rows {
		st, err := decodeSubtask(row)
		if err != nil {
			return nil, err
		}
		subtasks = append(subtasks, st)
	}
	return subtasks, nil
}

// ListAssignments returns the assignments owned by one task.
func (s *Storage) ListAssignments(ctx context.Context, taskID string) ([]domain.Assignment, error) {
	rows, err := s.listPartition(ctx, s.assigns, taskID)
	if err != nil {
		return nil, err
	}
	assigns := []domain.Assignment{}
	for _, row := range rows {
		a, err := decodeAssignment(row)
		if err != nil {
			return nil, err
		}
		assigns = append(assigns, a)
	}
	return assigns, nil
}

// QueryAssignmentsByContact finds every assignment referencing the given
// contact across all tasks. This cross-partition filter is the one place
// the schema needs a query that ignores the parent task.
func (s *Storage) QueryAssignmentsByContact(ctx context.Context, contactID string) ([]domain.Assignment, error) {
	filter := "ContactID eq '" + escapeFilter(contactID) + "'"
	pager := s.assigns.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	assigns := []domain.Assignment{}
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: query assignments: %v", domain.ErrWriteFailed, err)
		}
		for _, row := range resp.Entities {
			a, err := decodeAssignment(row)
			if err != nil {
				return nil, err
			}
			assigns = append(assigns, a)
		}
	}
	return assigns, nil
}

// BatchWrite commits a logical batch. Operations are grouped into one
// transaction per table partition; each transaction is atomic, and a
// failing transaction aborts the remainder of the batch. Deleting an
// already-absent row is a no-op, not an error. Changed collection paths
// are announced through the notifier after the commit.
func (s *Storage) BatchWrite(ctx context.Context, ops []domain.WriteOp) error {
	if len(ops) == 0 {
		return nil
	}
	plans, changed, err := planBatch(ops)
	if err != nil {
		return err
	}
	for _, plan := range plans {
		if err := s.commit(ctx, plan); err != nil {
			return err
		}
	}
	if s.notify != nil {
		s.notify.Notify(ctx, changed)
	}
	return nil
}

func (s *Storage) commit(ctx context.Context, plan txPlan) error {
	client := s.client(plan.Collection)
	if client == nil {
		return fmt.Errorf("%w: unknown collection %q", domain.ErrInvalidArgument, plan.Collection)
	}
	actions := make([]aztables.TransactionAction, 0, len(plan.Actions))
	for _, a := range plan.Actions {
		switch a.Kind {
		case domain.OpSet:
			actions = append(actions, aztables.TransactionAction{
				ActionType: aztables.TransactionTypeInsertReplace,
				Entity:     a.Payload,
			})
		case domain.OpUpdate:
			actions = append(actions, aztables.TransactionAction{
				ActionType: aztables.TransactionTypeUpdateMerge,
				Entity:     a.Payload,
			})
		case domain.OpDelete:
			payload, err := deletePayload(plan.Partition, a.RowKey)
			if err != nil {
				return err
			}
			actions = append(actions, aztables.TransactionAction{
				ActionType: aztables.TransactionTypeDelete,
				Entity:     payload,
			})
		}
	}
	_, err := client.SubmitTransaction(ctx, actions, nil)
	if err == nil {
		return nil
	}
	// A delete-only transaction fails wholesale when any row is already
	// gone. Replay those row by row so absent rows stay no-ops.
	if plan.deleteOnly() && isStatus(err, 404) {
		for _, a := range plan.Actions {
			if _, derr := client.DeleteEntity(ctx, plan.Partition, a.RowKey, nil); derr != nil && !isStatus(derr, 404) {
				return fmt.Errorf("%w: delete %s/%s: %v", domain.ErrWriteFailed, plan.Partition, a.RowKey, derr)
			}
		}
		return nil
	}
	return fmt.Errorf("%w: batch on %s/%s: %v", domain.ErrWriteFailed, plan.Collection, plan.Partition, err)
}

// DeleteCredential removes the stored credential of a registered account.
// Absent credentials are already gone, not an error.
func (s *Storage) DeleteCredential(ctx context.Context, contactID string) error {
	if _, err := s.credentials.DeleteEntity(ctx, credsPartition, contactID, nil); err != nil && !isStatus(err, 404) {
		return fmt.Errorf("%w: delete credential: %v", domain.ErrWriteFailed, err)
	}
	return nil
}

func (s *Storage) listPartition(ctx context.Context, client *aztables.Client, partition string) ([][]byte, error) {
	filter := "PartitionKey eq '" + escapeFilter(partition) + "'"
	pager := client.NewListEntitiesPager(&aztables.ListEntitiesOptions{Filter: &filter})
	var rows [][]byte
	for pager.More() {
		resp, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list: %v", domain.ErrWriteFailed, err)
		}
		rows = append(rows, resp.Entities...)
	}
	return rows, nil
}

func deletePayload(partition, rowKey string) ([]byte, error) {
	return json.Marshal(aztables.Entity{PartitionKey: partition, RowKey: rowKey})
}

// OData string literals escape single quotes by doubling them.
func escapeFilter(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}

func isStatus(err error, code int) bool {
	var respErr *azcore.ResponseError
	return errors.As(err, &respErr) && respErr.StatusCode == code
}
