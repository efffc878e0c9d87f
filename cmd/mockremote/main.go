// Command mockremote runs an in-memory implementation of the remote
// collection service, so the offline core can be exercised locally without
// the real backend.
package main

import (
	"encoding/json"
	"flag"
	"net/http"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

type server struct {
	mu          sync.RWMutex
	collections map[string]map[string]map[string]any
}

func newServer() *server {
	return &server{
		collections: map[string]map[string]map[string]any{
			"dishes": {},
			"orders": {},
		},
	}
}

func (s *server) list(w http.ResponseWriter, r *http.Request) {
	collection, ok := s.lookup(w, r)
	if !ok {
		return
	}

	s.mu.RLock()
	records := make([]map[string]any, 0, len(collection))
	for _, rec := range collection {
		records = append(records, rec)
	}
	s.mu.RUnlock()

	writeJSON(w, http.StatusOK, records)
}

func (s *server) create(w http.ResponseWriter, r *http.Request) {
	collection, ok := s.lookup(w, r)
	if !ok {
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	id := uuid.New().String()
	payload["id"] = id

	s.mu.Lock()
	collection[id] = payload
	s.mu.Unlock()

	log.WithFields(log.Fields{"collection": mux.Vars(r)["collection"], "id": id}).Info("created record")
	writeJSON(w, http.StatusCreated, payload)
}

func (s *server) update(w http.ResponseWriter, r *http.Request) {
	collection, ok := s.lookup(w, r)
	if !ok {
		return
	}
	id := mux.Vars(r)["id"]

	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
		return
	}

	s.mu.Lock()
	rec, exists := collection[id]
	if exists {
		for k, v := range patch {
			if k == "id" {
				continue
			}
			rec[k] = v
		}
	}
	s.mu.Unlock()

	if !exists {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "record not found"})
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) lookup(w http.ResponseWriter, r *http.Request) (map[string]map[string]any, bool) {
	name := mux.Vars(r)["collection"]
	collection, ok := s.collections[name]
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown collection " + name})
		return nil, false
	}
	return collection, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Error("failed to encode response")
	}
}

func main() {
	addr := flag.String("addr", ":8090", "listen address")
	flag.Parse()

	log.SetFormatter(&log.JSONFormatter{})

	s := newServer()

	r := mux.NewRouter()
	r.HandleFunc("/health", s.health).Methods("GET")
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/{collection}", s.list).Methods("GET")
	api.HandleFunc("/{collection}", s.create).Methods("POST")
	api.HandleFunc("/{collection}/{id}", s.update).Methods("PUT")

	log.WithField("addr", *addr).Info("mock remote listening")
	if err := http.ListenAndServe(*addr, r); err != nil {
		log.WithError(err).Fatal("server failed")
	}
}
