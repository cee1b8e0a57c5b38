package domain

import (
	"fmt"
	"strings"
)

// Path is a parsed logical document or collection path. The persisted
// layout is:
//
//	contacts/{contactId}
//	tasks/{taskId}
//	tasks/{taskId}/subtasks/{subtaskId}
//	tasks/{taskId}/assigns/{assignId}
//
// A path with an empty ID addresses the collection itself.
type Path struct {
	Collection string // contacts, tasks, subtasks or assigns
	TaskID     string // owning task for subtasks/assigns, empty otherwise
	ID         string // document id, empty for a collection path
}

func ContactsPath() Path              { return Path{Collection: "contacts"} }
func ContactPath(id string) Path      { return Path{Collection: "contacts", ID: id} }
func TasksPath() Path                 { return Path{Collection: "tasks"} }
func TaskPath(id string) Path         { return Path{Collection: "tasks", ID: id} }
func SubtasksPath(taskID string) Path { return Path{Collection: "subtasks", TaskID: taskID} }
func SubtaskPath(taskID, id string) Path {
	return Path{Collection: "subtasks", TaskID: taskID, ID: id}
}
func AssignsPath(taskID string) Path { return Path{Collection: "assigns", TaskID: taskID} }
func AssignPath(taskID, id string) Path {
	return Path{Collection: "assigns", TaskID: taskID, ID: id}
}

// ParsePath parses the string form produced by String.
func ParsePath(s string) (Path, error) {
	parts := strings.Split(strings.Trim(s, "/"), "/")
	switch {
	case len(parts) == 1 && (parts[0] == "contacts" || parts[0] == "tasks"):
		return Path{Collection: parts[0]}, nil
	case len(parts) == 2 && (parts[0] == "contacts" || parts[0] == "tasks") && parts[1] != "":
		return Path{Collection: parts[0], ID: parts[1]}, nil
	case len(parts) == 3 && parts[0] == "tasks" && parts[1] != "" && (parts[2] == "subtasks" || parts[2] == "assigns"):
		return Path{Collection: parts[2], TaskID: parts[1]}, nil
	case len(parts) == 4 && parts[0] == "tasks" && parts[1] != "" && (parts[2] == "subtasks" || parts[2] == "assigns") && parts[3] != "":
		return Path{Collection: parts[2], TaskID: parts[1], ID: parts[3]}, nil
	}
	return Path{}, fmt.Errorf("%w: bad path %q", ErrInvalidArgument, s)
}

func (p Path) String() string {
	switch p.Collection {
	case "subtasks", "assigns":
		if p.ID == "" {
			return "tasks/" + p.TaskID + "/" + p.Collection
		}
		return "tasks/" + p.TaskID + "/" + p.Collection + "/" + p.ID
	default:
		if p.ID == "" {
			return p.Collection
		}
		return p.Collection + "/" + p.ID
	}
}

// CollectionPath strips the document id, addressing the collection the
// document lives in. Change notices are published per collection.
func (p Path) CollectionPath() Path {
	p.ID = ""
	return p
}

// OpKind discriminates batched write operations.
type OpKind int

const (
	OpSet OpKind = iota
	OpUpdate
	OpDelete
)

// WriteOp is one staged operation of a batched write. Data carries the
// typed entity for set and update operations and is nil for deletes.
type WriteOp struct {
	Kind OpKind
	Path Path
	Data any
}

func SetOp(p Path, data any) WriteOp    { return WriteOp{Kind: OpSet, Path: p, Data: data} }
func UpdateOp(p Path, data any) WriteOp { return WriteOp{Kind: OpUpdate, Path: p, Data: data} }
func DeleteOp(p Path) WriteOp           { return WriteOp{Kind: OpDelete, Path: p} }
