package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/taskflow-go/taskflow/errors"
	"github.com/taskflow-go/taskflow/events"
	"github.com/taskflow-go/taskflow/store"
	"github.com/taskflow-go/taskflow/tasks"
)

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	priority, err := priorityOf(req.Priority)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	t := tasks.New(req.Title, req.Description, priority)
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	created, err := s.store.Create(r.Context(), t)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.log.TaskCreated(created.ID, created.Title, string(created.Priority))
	s.emit(events.Event{Type: events.TypeTaskCreated, TaskID: created.ID, Status: string(created.Status)})
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	filter, err := filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	list, err := s.store.List(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if list == nil {
		list = []*tasks.Task{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (s *Server) handleTaskGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	t, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, id, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleTaskUpdate(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	var req updateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return
	}

	t, err := s.store.Get(r.Context(), id)
	if err != nil {
		s.writeStoreError(w, id, err)
		return
	}

	if req.Title != nil {
		t.Title = *req.Title
	}
	if req.Description != nil {
		t.Description = *req.Description
	}
	if req.Priority != nil {
		priority, err := tasks.ParsePriority(*req.Priority)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		t.Priority = priority
	}
	if err := t.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}

	if req.Status != nil {
		status, err := tasks.ParseStatus(*req.Status)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		if err := applyStatus(t, status, &req); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	updated, err := s.store.Update(r.Context(), t)
	if err != nil {
		s.writeStoreError(w, id, err)
		return
	}

	if updated.Status == tasks.StatusCancelled {
		s.log.TaskCancelled(updated.ID)
		s.emit(events.Event{Type: events.TypeTaskCancelled, TaskID: updated.ID, Status: string(updated.Status)})
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleTaskDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.store.Delete(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %s not found", id))
		return
	}

	s.log.TaskDeleted(id)
	s.emit(events.Event{Type: events.TypeTaskDeleted, TaskID: id})
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.store.Stats(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// applyStatus routes a requested status onto the right transition.
// Claiming is the dispatcher's alone, and the outcome statuses must
// carry their payload so a terminal task always has exactly one of
// result and error_message.
func applyStatus(t *tasks.Task, status tasks.Status, req *updateRequest) error {
	now := time.Now()
	switch {
	case status == t.Status:
		return nil
	case status == tasks.StatusInProgress:
		return fmt.Errorf("status in_progress is assigned by the dispatcher when it claims a task")
	case status == tasks.StatusCompleted:
		if req.Result == nil || *req.Result == "" {
			return fmt.Errorf("completing a task requires a result")
		}
		return t.MarkCompleted(*req.Result, now)
	case status == tasks.StatusFailed:
		if req.ErrorMessage == nil || *req.ErrorMessage == "" {
			return fmt.Errorf("failing a task requires an error_message")
		}
		return t.MarkFailed(*req.ErrorMessage, now)
	default:
		return t.SetStatus(status, now)
	}
}

// writeStoreError maps a store error onto the HTTP surface.
func (s *Server) writeStoreError(w http.ResponseWriter, id string, err error) {
	if errors.IsNotFound(err) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("Task with ID %s not found", id))
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

// filterFromQuery validates skip/limit/status/priority query params.
func filterFromQuery(r *http.Request) (store.Filter, error) {
	var f store.Filter
	q := r.URL.Query()

	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			return f, fmt.Errorf("skip must be a non-negative integer")
		}
		f.Skip = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > store.MaxLimit {
			return f, fmt.Errorf("limit must be an integer between 1 and %d", store.MaxLimit)
		}
		f.Limit = limit
	}
	if raw := q.Get("status"); raw != "" {
		status, err := tasks.ParseStatus(raw)
		if err != nil {
			return f, err
		}
		f.Status = &status
	}
	if raw := q.Get("priority"); raw != "" {
		priority, err := tasks.ParsePriority(raw)
		if err != nil {
			return f, err
		}
		f.Priority = &priority
	}
	return f, nil
}

// emit publishes an event, ignoring emitter errors.
func (s *Server) emit(e events.Event) {
	_ = s.emitter.Emit(e)
}
