// Package registrytest runs an in-memory embedding registry over HTTP for
// tests.
package registrytest

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/services/registry"
)

// Server is a fake registry. A vector "exists" when its cosine similarity to
// a stored vector is at least Threshold.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	stored    map[string][]float32
	validates int
	adds      int
	addStatus int
	// Threshold is the similarity at which a vector counts as known.
	Threshold float64
}

// NewServer starts a registry and closes it when t finishes.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{stored: make(map[string][]float32), Threshold: 0.99}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/v1/embedding/validate", s.handleValidate)
	mux.HandleFunc("POST /api/v1/embedding", s.handleAdd)
	s.Server = httptest.NewServer(mux)
	t.Cleanup(s.Close)
	return s
}

// BaseURL returns the registry root including the API prefix.
func (s *Server) BaseURL() string {
	return s.URL + "/api/v1/"
}

// NewClient returns a registry client bound to the server.
func (s *Server) NewClient(t testing.TB) *registry.Client {
	t.Helper()
	c, err := registry.NewClient(s.BaseURL(), s.Client())
	if err != nil {
		t.Fatalf("registry.NewClient: %v", err)
	}
	return c
}

// Seed stores vector under name.
func (s *Server) Seed(name string, vector []float32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stored[name] = append([]float32(nil), vector...)
}

// Names returns the stored identifiers.
func (s *Server) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.stored))
	for name := range s.stored {
		names = append(names, name)
	}
	return names
}

// Counts reports how many validate and add requests were served.
func (s *Server) Counts() (validates, adds int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.validates, s.adds
}

// SetAddStatus makes the add endpoint answer with status instead of 201.
func (s *Server) SetAddStatus(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addStatus = status
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Vector []float32 `json:"vector"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.validates++
	for name, known := range s.stored {
		if cosine(known, body.Vector) >= s.Threshold {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("embedding matches " + name))
			return
		}
	}
	w.WriteHeader(http.StatusNotFound)
	_, _ = w.Write([]byte("no matching embedding"))
}

func (s *Server) handleAdd(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name   string    `json:"name"`
		Vector []float32 `json:"vector"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.adds++
	if s.addStatus != 0 && s.addStatus != http.StatusCreated {
		w.WriteHeader(s.addStatus)
		return
	}
	s.stored[body.Name] = body.Vector
	w.WriteHeader(http.StatusCreated)
}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
