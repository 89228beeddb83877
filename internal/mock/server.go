package mock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"github.com/studiowebux/apiharness/internal/types"
)

// Server is an in-memory Users API used for local runs and tests
type Server struct {
	config     *Config
	httpServer *http.Server
	listener   net.Listener
	router     *mux.Router

	usersMu sync.RWMutex
	users   map[string]types.User
	order   []string

	faultsMu   sync.Mutex
	faultHits  map[int]int
	logs       []RequestLog
	logsMutex  sync.RWMutex
	notifyCh   chan struct{} // Channel to notify when new log arrives
	deletedIDs []string
}

// NewServer creates a new mock server
func NewServer(config *Config) *Server {
	if config.Port == 0 {
		config.Port = 8080
	}
	if config.Host == "" {
		config.Host = "localhost"
	}

	s := &Server{
		config:    config,
		users:     make(map[string]types.User),
		faultHits: make(map[int]int),
		logs:      make([]RequestLog, 0),
		notifyCh:  make(chan struct{}, 100),
	}

	for _, u := range config.Seed {
		s.insert(u)
	}

	r := mux.NewRouter()
	r.HandleFunc("/users", s.handleCreate).Methods(http.MethodPut).Name(RouteCreateUser)
	r.HandleFunc("/users", s.handleList).Methods(http.MethodGet).Name(RouteListUsers)
	r.HandleFunc("/users/{id}", s.handleGet).Methods(http.MethodGet).Name(RouteGetUser)
	r.HandleFunc("/users/{id}", s.handleDelete).Methods(http.MethodDelete).Name(RouteDeleteUser)
	r.Use(s.logMiddleware, s.faultMiddleware)
	s.router = r

	return s
}

// Handler returns the HTTP handler, for use with httptest.NewServer
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start starts the mock server in the background
func (s *Server) Start() error {
	addr := fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)

	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	s.listener = lis

	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := s.httpServer.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Mock server error")
		}
	}()

	return nil
}

// Stop stops the mock server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// GetAddress returns the server base URL
func (s *Server) GetAddress() string {
	if s.listener != nil {
		return "http://" + s.listener.Addr().String()
	}
	return fmt.Sprintf("http://%s:%d", s.config.Host, s.config.Port)
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var nu types.NewUser
	if err := json.NewDecoder(r.Body).Decode(&nu); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}
	if strings.TrimSpace(nu.Name) == "" || strings.TrimSpace(nu.Email) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name and email are required"})
		return
	}

	user := s.insert(nu)
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Users())
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.usersMu.RLock()
	user, ok := s.users[id]
	s.usersMu.RUnlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	s.usersMu.Lock()
	_, ok := s.users[id]
	if ok {
		delete(s.users, id)
		for i, existing := range s.order {
			if existing == id {
				s.order = append(s.order[:i], s.order[i+1:]...)
				break
			}
		}
		s.deletedIDs = append(s.deletedIDs, id)
	}
	s.usersMu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
		return
	}
	if s.config.NoContentOnDelete {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"userid": id})
}

func (s *Server) insert(nu types.NewUser) types.User {
	user := types.User{
		UserID: uuid.NewString(),
		Name:   nu.Name,
		Email:  nu.Email,
	}

	s.usersMu.Lock()
	s.users[user.UserID] = user
	s.order = append(s.order, user.UserID)
	s.usersMu.Unlock()

	return user
}

// Users returns the stored users in creation order
func (s *Server) Users() []types.User {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	users := make([]types.User, 0, len(s.order))
	for _, id := range s.order {
		users = append(users, s.users[id])
	}
	return users
}

// DeletedIDs returns the ids removed through DELETE /users/{id}, in order
func (s *Server) DeletedIDs() []string {
	s.usersMu.RLock()
	defer s.usersMu.RUnlock()

	ids := make([]string, len(s.deletedIDs))
	copy(ids, s.deletedIDs)
	return ids
}

// faultMiddleware applies configured delays and status overrides
func (s *Server) faultMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.config.Delay > 0 {
			time.Sleep(time.Duration(s.config.Delay) * time.Millisecond)
		}

		name := ""
		if route := mux.CurrentRoute(r); route != nil {
			name = route.GetName()
		}

		for i, fault := range s.config.Faults {
			if fault.Route != name || !s.faultApplies(i, fault) {
				continue
			}
			if fault.Delay > 0 {
				time.Sleep(time.Duration(fault.Delay) * time.Millisecond)
			}
			if fault.Status != 0 {
				writeJSON(w, fault.Status, map[string]string{"error": "injected fault"})
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) faultApplies(index int, fault Fault) bool {
	s.faultsMu.Lock()
	defer s.faultsMu.Unlock()

	s.faultHits[index]++
	if fault.Every <= 1 {
		return true
	}
	return s.faultHits[index]%fault.Every == 0
}

// logMiddleware records requests when logging is enabled
func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.config.Logging {
			next.ServeHTTP(w, r)
			return
		}

		start := time.Now()
		bodyBytes, _ := io.ReadAll(r.Body)
		r.Body.Close()
		r.Body = io.NopCloser(strings.NewReader(string(bodyBytes)))

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		matched := "none"
		if route := mux.CurrentRoute(r); route != nil {
			matched = route.GetName()
		}

		s.logRequest(RequestLog{
			Timestamp:   start,
			Method:      r.Method,
			Path:        r.URL.Path,
			Headers:     flattenHeaders(r.Header),
			Body:        string(bodyBytes),
			MatchedRule: matched,
			Status:      rec.status,
			Duration:    time.Since(start),
		})
	})
}

// logRequest adds a request to the log
func (s *Server) logRequest(entry RequestLog) {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = append(s.logs, entry)

	// Keep only last 1000 logs
	if len(s.logs) > 1000 {
		s.logs = s.logs[len(s.logs)-1000:]
	}

	// Notify listeners (non-blocking)
	select {
	case s.notifyCh <- struct{}{}:
	default:
	}
}

// NotifyChannel returns the notification channel
func (s *Server) NotifyChannel() <-chan struct{} {
	return s.notifyCh
}

// GetLogs returns all logged requests
func (s *Server) GetLogs() []RequestLog {
	s.logsMutex.RLock()
	defer s.logsMutex.RUnlock()

	logs := make([]RequestLog, len(s.logs))
	copy(logs, s.logs)
	return logs
}

// ClearLogs clears all logged requests
func (s *Server) ClearLogs() {
	s.logsMutex.Lock()
	defer s.logsMutex.Unlock()

	s.logs = make([]RequestLog, 0)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// flattenHeaders converts http.Header to map[string]string (first value only)
func flattenHeaders(headers http.Header) map[string]string {
	result := make(map[string]string)
	for key, values := range headers {
		if len(values) > 0 {
			result[key] = values[0]
		}
	}
	return result
}
