package kv

import (
	"io"
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Server is an in-memory key/value store over HTTP. Clients fetch the API
// token from /register and pass it as the API_TOKEN query parameter.
type Server struct {
	apiToken string

	mu   sync.RWMutex
	data map[string][]byte
}

func NewServer() *Server {
	return &Server{
		apiToken: uuid.NewString(),
		data:     make(map[string][]byte),
	}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/register", s.registerHandler)
	mux.HandleFunc("/save/", s.saveHandler)
	mux.HandleFunc("/load/", s.loadHandler)
	return mux
}

func (s *Server) registerHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	log.Printf("kv: client registered from %s", r.RemoteAddr)
	_, _ = io.WriteString(w, s.apiToken)
}

func (s *Server) saveHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "invalid API_TOKEN", http.StatusForbidden)
		return
	}
	key := keyFromPath(r.URL.Path, "/save/")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if len(body) == 0 {
		http.Error(w, "value is required", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.data[key] = body
	s.mu.Unlock()

	log.Printf("kv: saved %q (%d bytes)", key, len(body))
	w.WriteHeader(http.StatusOK)
}

func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if !s.authorized(r) {
		http.Error(w, "invalid API_TOKEN", http.StatusForbidden)
		return
	}
	key := keyFromPath(r.URL.Path, "/load/")
	if key == "" {
		http.Error(w, "key is required", http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	value, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		http.Error(w, "no value for key "+key, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(value)
}

func (s *Server) authorized(r *http.Request) bool {
	return r.URL.Query().Get("API_TOKEN") == s.apiToken
}

func keyFromPath(path, prefix string) string {
	return strings.Trim(strings.TrimPrefix(path, prefix), "/")
}
