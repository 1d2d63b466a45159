// Package api provides the HTTP API server (metrics and store endpoints).
// It is the collaborator surface the UI layer calls: it validates
// user-supplied host/port syntax before touching a store; the stores
// themselves do not validate beyond non-emptiness.
package api

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/grayfold/serverbook/internal/serverbook"
	"github.com/grayfold/serverbook/model"
)

// MetricsPath is the path for the Prometheus metrics handler.
const MetricsPath = "/metrics"

// NewServer returns an HTTP server that serves metrics at MetricsPath and
// the store JSON API under /api/v1.
func NewServer(addr string, metricsHandler http.Handler, book *serverbook.Book) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(MetricsPath, metricsHandler)
	mux.HandleFunc("GET /api/v1/stores", listStoresHandler(book))
	mux.HandleFunc("GET /api/v1/stores/{store}", snapshotHandler(book))
	mux.HandleFunc("POST /api/v1/stores/{store}", upsertHandler(book))
	mux.HandleFunc("DELETE /api/v1/stores/{store}", clearHandler(book))
	mux.HandleFunc("DELETE /api/v1/stores/{store}/{hostport}", removeHandler(book))
	mux.HandleFunc("PATCH /api/v1/stores/history/{hostport}", renameHandler(book))
	mux.HandleFunc("POST /api/v1/connections", connectionHandler(book))

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// serverView is one entry in a snapshot response, including the derived
// display text the UI renders.
type serverView struct {
	IP            string    `json:"ip"`
	Port          int       `json:"port"`
	ServerName    string    `json:"serverName,omitempty"`
	LastConnected time.Time `json:"lastConnected"`
	Display       string    `json:"display"`
}

func newServerView(e model.Entry) serverView {
	return serverView{
		IP:            e.Host,
		Port:          e.Port,
		ServerName:    e.DisplayName,
		LastConnected: e.LastContact,
		Display:       e.DisplayText(),
	}
}

// upsertRequest is the body of upsert and connection requests. "host" is
// accepted as an alias for "ip".
type upsertRequest struct {
	IP         string `json:"ip"`
	Host       string `json:"host"`
	Port       int    `json:"port"`
	ServerName string `json:"serverName"`
}

func (r upsertRequest) host() string {
	if r.IP != "" {
		return r.IP
	}
	return r.Host
}

func listStoresHandler(book *serverbook.Book) http.HandlerFunc {
	type storeView struct {
		Name     string `json:"name"`
		Size     int    `json:"size"`
		Capacity int    `json:"capacity"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		views := make([]storeView, 0, 3)
		for _, s := range book.Stores() {
			views = append(views, storeView{Name: s.Name(), Size: s.Len(), Capacity: s.Capacity()})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"stores": views})
	}
}

func snapshotHandler(book *serverbook.Book) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := book.Store(r.PathValue("store"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		entries := s.Snapshot()
		views := make([]serverView, 0, len(entries))
		for _, e := range entries {
			views = append(views, newServerView(e))
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"servers": views})
	}
}

func upsertHandler(book *serverbook.Book) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := book.Store(r.PathValue("store"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		req, ok := decodeUpsert(w, r)
		if !ok {
			return
		}
		s.Upsert(req.host(), req.Port, req.ServerName)
		w.WriteHeader(http.StatusNoContent)
	}
}

func clearHandler(book *serverbook.Book) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := book.Store(r.PathValue("store"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		s.Clear()
		w.WriteHeader(http.StatusNoContent)
	}
}

func removeHandler(book *serverbook.Book) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := book.Store(r.PathValue("store"))
		if !ok {
			http.NotFound(w, r)
			return
		}
		host, port, ok := parseHostPort(w, r)
		if !ok {
			return
		}
		s.Remove(host, port)
		w.WriteHeader(http.StatusNoContent)
	}
}

func renameHandler(book *serverbook.Book) http.HandlerFunc {
	type renameRequest struct {
		ServerName string `json:"serverName"`
	}
	return func(w http.ResponseWriter, r *http.Request) {
		host, port, ok := parseHostPort(w, r)
		if !ok {
			return
		}
		var req renameRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
		book.UpdateHistoryName(host, port, req.ServerName)
		w.WriteHeader(http.StatusNoContent)
	}
}

func connectionHandler(book *serverbook.Book) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		req, ok := decodeUpsert(w, r)
		if !ok {
			return
		}
		book.RecordConnection(req.host(), req.Port, req.ServerName)
		w.WriteHeader(http.StatusNoContent)
	}
}

// decodeUpsert decodes and validates an upsert body, writing a 400 response
// on failure.
func decodeUpsert(w http.ResponseWriter, r *http.Request) (upsertRequest, bool) {
	var req upsertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return req, false
	}
	if req.host() == "" {
		http.Error(w, "host is required", http.StatusBadRequest)
		return req, false
	}
	if req.Port < 1 || req.Port > 65535 {
		http.Error(w, "port must be 1-65535", http.StatusBadRequest)
		return req, false
	}
	return req, true
}

// parseHostPort parses the {hostport} path segment, writing a 400 response
// on failure.
func parseHostPort(w http.ResponseWriter, r *http.Request) (string, int, bool) {
	host, portStr, err := net.SplitHostPort(r.PathValue("hostport"))
	if err != nil || host == "" {
		http.Error(w, "invalid host:port", http.StatusBadRequest)
		return "", 0, false
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port < 1 || port > 65535 {
		http.Error(w, "invalid port", http.StatusBadRequest)
		return "", 0, false
	}
	return host, port, true
}
