package registry_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/access-system/face-recognition-enrollment/internal/services"
	"github.com/access-system/face-recognition-enrollment/internal/services/registry"
)

func unitVector() []float32 {
	v := make([]float32, registry.VectorLength)
	v[0] = 1
	return v
}

func TestValidateReportsExistingOnlyFor200(t *testing.T) {
	cases := []struct {
		status int
		want   bool
	}{
		{http.StatusOK, true},
		{http.StatusNotFound, false},
		{http.StatusNoContent, false},
		{http.StatusInternalServerError, false},
	}
	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				t.Errorf("unexpected method: %s", r.Method)
			}
			if r.URL.Path != "/api/v1/embedding/validate" {
				t.Errorf("unexpected path: %s", r.URL.Path)
			}
			var body struct {
				Vector []float32 `json:"vector"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("decode body: %v", err)
			}
			if len(body.Vector) != registry.VectorLength {
				t.Errorf("unexpected vector length: %d", len(body.Vector))
			}
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(" registry says " + http.StatusText(tc.status) + "\n"))
		}))

		client, err := registry.NewClient(server.URL+"/api/v1", server.Client())
		if err != nil {
			t.Fatalf("NewClient: %v", err)
		}
		exists, message, err := client.Validate(context.Background(), unitVector())
		server.Close()
		if err != nil {
			t.Fatalf("Validate returned error: %v", err)
		}
		if exists != tc.want {
			t.Fatalf("status %d: exists=%v want %v", tc.status, exists, tc.want)
		}
		if want := "registry says " + http.StatusText(tc.status); message != want {
			t.Fatalf("status %d: message=%q want %q", tc.status, message, want)
		}
	}
}

func TestAddSendsNameAndVector(t *testing.T) {
	var got struct {
		Name   string    `json:"name"`
		Vector []float32 `json:"vector"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/embedding" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer server.Close()

	client, err := registry.NewClient(server.URL+"/api/v1/", server.Client())
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	status, err := client.Add(context.Background(), unitVector(), "a1b2c3d4e5f60718")
	if err != nil {
		t.Fatalf("Add returned error: %v", err)
	}
	if status != http.StatusCreated {
		t.Fatalf("unexpected status: %d", status)
	}
	if got.Name != "a1b2c3d4e5f60718" {
		t.Fatalf("unexpected name: %q", got.Name)
	}
	if len(got.Vector) != registry.VectorLength || got.Vector[0] != 1 {
		t.Fatalf("unexpected vector payload")
	}
}

func TestRejectsWrongVectorLength(t *testing.T) {
	client, err := registry.NewClient("http://127.0.0.1:1/api/v1/", nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	if _, _, err := client.Validate(context.Background(), []float32{1, 0}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if _, err := client.Add(context.Background(), []float32{1}, "x"); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestTransportFailureIsRegistryError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := server.URL
	server.Close()

	client, err := registry.NewClient(url, nil)
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	_, _, err = client.Validate(context.Background(), unitVector())
	if !errors.Is(err, services.ErrRegistry) {
		t.Fatalf("expected registry error, got %v", err)
	}
	if err := client.Ping(context.Background()); !errors.Is(err, services.ErrRegistry) {
		t.Fatalf("expected ping failure, got %v", err)
	}
}
