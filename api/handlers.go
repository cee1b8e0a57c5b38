// Package api exposes the board over HTTP: a server-sent-events stream
// of the denormalized board, snapshot reads, thin creates and the
// cascade mutations. It is the only write surface the UI gets for tasks
// and contacts.
package api

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/FelixRabenholdDev/Join/domain"
	"github.com/FelixRabenholdDev/Join/join"
)

// BoardView is the shared board fan-out the stream and snapshot
// endpoints read from.
type BoardView interface {
	Subscribe() chan []domain.BoardTask
	Unsubscribe(ch chan []domain.BoardTask)
	Latest() ([]domain.BoardTask, bool)
}

// Mutator is the cascade coordinator surface.
type Mutator interface {
	DeleteTask(ctx context.Context, taskID string) error
	DeleteContact(ctx context.Context, callerID, contactID string) error
	SaveTaskEdits(ctx context.Context, taskID string, fields domain.TaskFields, desiredAssigns []string, desiredSubtasks []domain.Subtask) error
}

// Writer covers the thin single-document writes that need no cascade.
type Writer interface {
	BatchWrite(ctx context.Context, ops []domain.WriteOp) error
	ListContacts(ctx context.Context) ([]domain.Contact, error)
}

type Authenticator interface {
	IdentityFromAuthHeader(header string) (string, error)
}

// SessionSink learns about authenticated stream consumers; the board
// aggregator gates on it.
type SessionSink interface {
	Set(id string)
}

// Register wires all routes on the given Echo instance.
func Register(e *echo.Echo, board BoardView, mut Mutator, store Writer, auth Authenticator, sess SessionSink) {
	e.GET("/api/board", getBoard(board, auth))
	e.GET("/api/board/stream", streamBoard(board, auth, sess))
	e.GET("/api/contacts", getContacts(store, auth))
	e.POST("/api/contacts", postContact(store, auth))
	e.POST("/api/tasks", postTask(store, auth))
	e.PATCH("/api/tasks/:id/status", patchTaskStatus(store, auth))
	e.PUT("/api/tasks/:id", putTask(mut, auth))
	e.DELETE("/api/tasks/:id", deleteTask(mut, auth))
	e.DELETE("/api/contacts/:id", deleteContact(mut, auth))
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
}

func identify(c echo.Context, auth Authenticator) (string, error) {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		if token := c.QueryParam("token"); token != "" {
			header = "Bearer " + token
		}
	}
	return auth.IdentityFromAuthHeader(header)
}

func httpStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func filtered(list []domain.BoardTask, statusParam string) []domain.BoardTask {
	if statusParam == "" {
		return list
	}
	return join.FilterStatus(list, domain.ParseStatus(statusParam))
}

func getBoard(board BoardView, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := identify(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		list, ok := board.Latest()
		if !ok {
			list = []domain.BoardTask{}
		}
		data, err := sonic.Marshal(filtered(list, c.QueryParam("status")))
		if err != nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	}
}

func streamBoard(board BoardView, auth Authenticator, sess SessionSink) echo.HandlerFunc {
	return func(c echo.Context) error {
		userID, err := identify(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		sess.Set(userID)

		c.Response().Header().Set(echo.HeaderContentType, "text/event-stream")
		c.Response().Header().Set(echo.HeaderCacheControl, "no-cache")
		c.Response().Header().Set(echo.HeaderConnection, "keep-alive")
		c.Response().Header().Set("X-Accel-Buffering", "no")
		flusher, ok := c.Response().Writer.(http.Flusher)
		if !ok {
			return c.String(http.StatusInternalServerError, "stream unsupported")
		}

		statusParam := c.QueryParam("status")
		ctx := c.Request().Context()
		ch := board.Subscribe()
		defer board.Unsubscribe(ch)

		writeFrame := func(list []domain.BoardTask) error {
			data, err := sonic.Marshal(filtered(list, statusParam))
			if err != nil {
				return err
			}
			if _, err := c.Response().Write([]byte("data: ")); err != nil {
				return err
			}
			if _, err := c.Response().Write(data); err != nil {
				return err
			}
			if _, err := c.Response().Write([]byte("\n\n")); err != nil {
				return err
			}
			flusher.Flush()
			return nil
		}

		if list, ok := board.Latest(); ok {
			if err := writeFrame(list); err != nil {
				return err
			}
		}
		for {
			select {
			case <-ctx.Done():
				return nil
			case list, ok := <-ch:
				if !ok {
					return nil
				}
				if err := writeFrame(list); err != nil {
					return nil
				}
			}
		}
	}
}

func getContacts(store Writer, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := identify(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		contacts, err := store.ListContacts(c.Request().Context())
		if err != nil {
			return c.NoContent(httpStatus(err))
		}
		data, err := sonic.Marshal(contacts)
		if err != nil {
			return c.NoContent(http.StatusInternalServerError)
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSON, data)
	}
}

func decodeBody(c echo.Context, v any) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, 1<<20))
	if err != nil {
		return err
	}
	return sonic.Unmarshal(body, v)
}

func postContact(store Writer, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := identify(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var contact domain.Contact
		if err := decodeBody(c, &contact); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		if contact.Name == "" {
			return c.String(http.StatusBadRequest, "name is required")
		}
		id := uuid.NewString()
		contact.ID = id
		contact.IsUser = false // accounts are created by signup, not here
		op := domain.SetOp(domain.ContactPath(id), contact)
		if err := store.BatchWrite(c.Request().Context(), []domain.WriteOp{op}); err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusCreated, map[string]string{"id": id})
	}
}

func postTask(store Writer, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := identify(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var task domain.Task
		if err := decodeBody(c, &task); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		if task.Title == "" {
			return c.String(http.StatusBadRequest, "title is required")
		}
		id := uuid.NewString()
		task.ID = id
		task.Status = domain.ParseStatus(string(task.Status))
		op := domain.SetOp(domain.TaskPath(id), task)
		if err := store.BatchWrite(c.Request().Context(), []domain.WriteOp{op}); err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.JSON(http.StatusCreated, map[string]string{"id": id})
	}
}

func patchTaskStatus(store Writer, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := identify(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var change domain.StatusChange
		if err := decodeBody(c, &change); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		change.Status = domain.ParseStatus(string(change.Status))
		op := domain.UpdateOp(domain.TaskPath(c.Param("id")), change)
		if err := store.BatchWrite(c.Request().Context(), []domain.WriteOp{op}); err != nil {
			return c.NoContent(httpStatus(err))
		}
		return c.NoContent(http.StatusNoContent)
	}
}

type taskEditRequest struct {
	domain.TaskFields
	Assigns  []string         `json:"assigns"`
	Subtasks []domain.Subtask `json:"subtasks"`
}

func putTask(mut Mutator, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := identify(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		var req taskEditRequest
		if err := decodeBody(c, &req); err != nil {
			return c.NoContent(http.StatusBadRequest)
		}
		err := mut.SaveTaskEdits(c.Request().Context(), c.Param("id"), req.TaskFields, req.Assigns, req.Subtasks)
		if err != nil {
			return c.String(httpStatus(err), err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteTask(mut Mutator, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		if _, err := identify(c, auth); err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := mut.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
			return c.String(httpStatus(err), err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}

func deleteContact(mut Mutator, auth Authenticator) echo.HandlerFunc {
	return func(c echo.Context) error {
		callerID, err := identify(c, auth)
		if err != nil {
			return c.String(http.StatusUnauthorized, err.Error())
		}
		if err := mut.DeleteContact(c.Request().Context(), callerID, c.Param("id")); err != nil {
			return c.String(httpStatus(err), err.Error())
		}
		return c.NoContent(http.StatusNoContent)
	}
}
