package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Joseda-hg/tasktracker/internal/model"
	"github.com/Joseda-hg/tasktracker/internal/store"
)

type Server struct {
	tracker *store.Tracker
}

func NewServer(tracker *store.Tracker) *Server {
	return &Server{tracker: tracker}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks/", s.prioritizedHandler)
	mux.HandleFunc("/tasks/history/", s.historyHandler)
	mux.HandleFunc("/tasks/task/", s.entityHandler(model.KindTask))
	mux.HandleFunc("/tasks/epic/", s.entityHandler(model.KindEpic))
	mux.HandleFunc("/tasks/subtask/", s.entityHandler(model.KindSubtask))
	mux.HandleFunc("/tasks/subtask/epic/", s.epicSubtasksHandler)
	return logRequests(mux)
}

func (s *Server) prioritizedHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/tasks/" {
		writeError(w, http.StatusNotFound, fmt.Errorf("unknown path %s", r.URL.Path))
		return
	}
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.Prioritized())
}

func (s *Server) historyHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, http.StatusOK, s.tracker.History())
}

func (s *Server) epicSubtasksHandler(w http.ResponseWriter, r *http.Request) {
	if !allowMethods(w, r, http.MethodGet) {
		return
	}
	id, ok, err := parseID(r)
	if err != nil || !ok {
		writeError(w, http.StatusBadRequest, errors.Join(errors.New("epic id is required"), err))
		return
	}
	subtasks, found := s.tracker.EpicSubtasks(id)
	if !found {
		writeError(w, http.StatusNotFound, fmt.Errorf("epic %d not found", id))
		return
	}
	writeJSON(w, http.StatusOK, subtasks)
}

func (s *Server) entityHandler(kind model.Kind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !allowMethods(w, r, http.MethodGet, http.MethodPost, http.MethodDelete) {
			return
		}
		id, hasID, err := parseID(r)
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}

		switch r.Method {
		case http.MethodGet:
			if hasID {
				s.getEntity(w, r, kind, id)
				return
			}
			writeJSON(w, http.StatusOK, s.list(kind))
		case http.MethodPost:
			s.saveEntity(w, r, kind)
		case http.MethodDelete:
			if hasID {
				s.removeEntity(w, r, kind, id)
				return
			}
			s.removeAll(w, r, kind)
		}
	}
}

func (s *Server) list(kind model.Kind) any {
	switch kind {
	case model.KindEpic:
		return s.tracker.Epics()
	case model.KindSubtask:
		return s.tracker.Subtasks()
	}
	return s.tracker.Tasks()
}

func (s *Server) getEntity(w http.ResponseWriter, r *http.Request, kind model.Kind, id int64) {
	var (
		entity any
		ok     bool
		err    error
	)
	switch kind {
	case model.KindTask:
		entity, ok, err = s.tracker.Task(r.Context(), id)
	case model.KindEpic:
		entity, ok, err = s.tracker.Epic(r.Context(), id)
	case model.KindSubtask:
		entity, ok, err = s.tracker.Subtask(r.Context(), id)
	}
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Errorf("%s %d not found", strings.ToLower(string(kind)), id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusOK, entity)
}

// saveEntity replaces the entity when its id is already stored and adds it
// otherwise.
func (s *Server) saveEntity(w http.ResponseWriter, r *http.Request, kind model.Kind) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		writeError(w, http.StatusBadRequest, fmt.Errorf("content type must be application/json"))
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		writeError(w, http.StatusBadRequest, fmt.Errorf("request body is empty"))
		return
	}
	entity, err := decodeEntity(kind, body)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode %s: %w", strings.ToLower(string(kind)), err))
		return
	}

	ref := entity.Ref()
	if current, exists := s.tracker.KindOf(ref.ID); exists && ref.ID != model.NoID {
		if current != kind {
			writeError(w, http.StatusBadRequest, fmt.Errorf("id %d belongs to a %s", ref.ID, strings.ToLower(string(current))))
			return
		}
		replaced, err := s.tracker.Replace(r.Context(), entity)
		if !replaced {
			writeError(w, http.StatusBadRequest, fmt.Errorf("%s %d was rejected", strings.ToLower(string(kind)), ref.ID))
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]int64{"id": ref.ID})
		return
	}

	id, err := s.tracker.Add(r.Context(), entity)
	if id == model.NoID {
		writeError(w, http.StatusBadRequest, fmt.Errorf("%s was rejected", strings.ToLower(string(kind))))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

// decodeEntity reads the route's kind. A body that names its own "type" must
// name the same kind.
func decodeEntity(kind model.Kind, body []byte) (model.Entity, error) {
	var header struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(body, &header); err != nil {
		return nil, err
	}
	if header.Type != "" {
		entity, err := model.DecodeEntity(body)
		if err != nil {
			return nil, err
		}
		if got := entity.Ref().Kind; got != kind {
			return nil, fmt.Errorf("body is a %s", strings.ToLower(string(got)))
		}
		return entity, nil
	}

	switch kind {
	case model.KindEpic:
		var epic model.Epic
		err := json.Unmarshal(body, &epic)
		return epic, err
	case model.KindSubtask:
		var subtask model.Subtask
		err := json.Unmarshal(body, &subtask)
		return subtask, err
	}
	var task model.Task
	err := json.Unmarshal(body, &task)
	return task, err
}

func (s *Server) removeEntity(w http.ResponseWriter, r *http.Request, kind model.Kind, id int64) {
	if current, ok := s.tracker.KindOf(id); !ok || current != kind {
		writeError(w, http.StatusNotFound, fmt.Errorf("%s %d not found", strings.ToLower(string(kind)), id))
		return
	}
	removed, err := s.tracker.Remove(r.Context(), id)
	if !removed {
		writeError(w, http.StatusNotFound, fmt.Errorf("%s %d not found", strings.ToLower(string(kind)), id))
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

func (s *Server) removeAll(w http.ResponseWriter, r *http.Request, kind model.Kind) {
	var err error
	switch kind {
	case model.KindTask:
		err = s.tracker.RemoveAllTasks(r.Context())
	case model.KindEpic:
		err = s.tracker.RemoveAllEpics(r.Context())
	case model.KindSubtask:
		err = s.tracker.RemoveAllSubtasks(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.WriteHeader(http.StatusCreated)
}

// parseID reads the optional ?id= parameter.
func parseID(r *http.Request) (int64, bool, error) {
	value := strings.TrimSpace(r.URL.Query().Get("id"))
	if value == "" {
		return 0, false, nil
	}
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("invalid id %q", value)
	}
	return id, true, nil
}

func allowMethods(w http.ResponseWriter, r *http.Request, methods ...string) bool {
	for _, method := range methods {
		if r.Method == method {
			return true
		}
	}
	w.Header().Set("Allow", strings.Join(methods, ", "))
	writeError(w, http.StatusMethodNotAllowed, fmt.Errorf("method %s not allowed", r.Method))
	return false
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.WriteHeader(status)
	_, _ = w.Write([]byte(err.Error()))
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := uuid.NewString()
		w.Header().Set("X-Request-ID", requestID)
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(recorder, r)
		log.Printf("%s %s %s %d %s", requestID, r.Method, r.URL.Path, recorder.status, time.Since(start))
	})
}
