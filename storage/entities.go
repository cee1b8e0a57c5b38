package storage

import (
	"encoding/json"

	"github.com/Azure/azure-sdk-for-go/sdk/data/aztables"

	"github.com/FelixRabenholdDev/Join/domain"
)

// Fixed partitions for the top-level collections. Subtask and assignment
// rows are partitioned by their owning task so a whole child set is one
// transaction target.
const (
	contactsPartition = "contacts"
	tasksPartition    = "tasks"
	credsPartition    = "credentials"
)

type contactEntity struct {
	aztables.Entity
	Name   string `json:"Name"`
	Email  string `json:"Email"`
	Phone  string `json:"Phone"`
	Color  string `json:"Color"`
	IsUser bool   `json:"IsUser"`
}

type taskEntity struct {
	aztables.Entity
	Type        string `json:"Type"`
	Status      string `json:"Status"`
	Date        string `json:"Date"`
	Title       string `json:"Title"`
	Description string `json:"Description"`
	Priority    string `json:"Priority"`
}

type subtaskEntity struct {
	aztables.Entity
	Title string `json:"Title"`
	Done  bool   `json:"Done"`
}

type assignEntity struct {
	aztables.Entity
	ContactID string `json:"ContactID"`
}

func decodeContact(data []byte) (domain.Contact, error) {
	var ent contactEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Contact{}, err
	}
	return domain.Contact{
		ID:     ent.RowKey,
		Name:   ent.Name,
		Email:  ent.Email,
		Phone:  ent.Phone,
		Color:  ent.Color,
		IsUser: ent.IsUser,
	}, nil
}

func decodeTask(data []byte) (domain.Task, error) {
	var ent taskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Task{}, err
	}
	return domain.Task{
		ID:          ent.RowKey,
		Type:        ent.Type,
		Status:      domain.ParseStatus(ent.Status),
		Date:        ent.Date,
		Title:       ent.Title,
		Description: ent.Description,
		Priority:    ent.Priority,
	}, nil
}

func decodeSubtask(data []byte) (domain.Subtask, error) {
	var ent subtaskEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Subtask{}, err
	}
	return domain.Subtask{ID: ent.RowKey, Title: ent.Title, Done: ent.Done}, nil
}

func decodeAssignment(data []byte) (domain.Assignment, error) {
	var ent assignEntity
	if err := json.Unmarshal(data, &ent); err != nil {
		return domain.Assignment{}, err
	}
	return domain.Assignment{ID: ent.RowKey, TaskID: ent.PartitionKey, ContactID: ent.ContactID}, nil
}

func encodeContact(id string, c domain.Contact) ([]byte, error) {
	return json.Marshal(contactEntity{
		Entity: aztables.Entity{PartitionKey: contactsPartition, RowKey: id},
		Name:   c.Name,
		Email:  c.Email,
		Phone:  c.Phone,
		Color:  c.Color,
		IsUser: c.IsUser,
	})
}

func encodeTask(id string, t domain.Task) ([]byte, error) {
	return json.Marshal(taskEntity{
		Entity:      aztables.Entity{PartitionKey: tasksPartition, RowKey: id},
		Type:        t.Type,
		Status:      string(t.Status),
		Date:        t.Date,
		Title:       t.Title,
		Description: t.Description,
		Priority:    t.Priority,
	})
}

func encodeTaskFields(id string, f domain.TaskFields) ([]byte, error) {
	return json.Marshal(map[string]any{
		"PartitionKey": tasksPartition,
		"RowKey":       id,
		"Type":         f.Type,
		"Date":         f.Date,
		"Title":        f.Title,
		"Description":  f.Description,
		"Priority":     f.Priority,
	})
}

func encodeStatusChange(id string, sc domain.StatusChange) ([]byte, error) {
	return json.Marshal(map[string]any{
		"PartitionKey": tasksPartition,
		"RowKey":       id,
		"Status":       string(sc.Status),
	})
}

func encodeSubtask(taskID, id string, s domain.Subtask) ([]byte, error) {
	return json.Marshal(subtaskEntity{
		Entity: aztables.Entity{PartitionKey: taskID, RowKey: id},
		Title:  s.Title,
		Done:   s.Done,
	})
}

func encodeAssignment(taskID, id string, a domain.Assignment) ([]byte, error) {
	return json.Marshal(assignEntity{
		Entity:    aztables.Entity{PartitionKey: taskID, RowKey: id},
		ContactID: a.ContactID,
	})
}
