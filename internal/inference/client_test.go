package inference

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kdimtricp/signlang/internal/models"
)

func TestClientClassify(t *testing.T) {
	tests := []struct {
		name           string
		status         int
		body           string
		expectErr      bool
		expectLabel    string
		expectConf     float64
		expectedMarker error
	}{
		{
			name:        "successful prediction",
			status:      http.StatusOK,
			body:        `{"label":"makan","confidence":0.82}`,
			expectLabel: "makan",
			expectConf:  0.82,
		},
		{
			name:        "low confidence is returned raw",
			status:      http.StatusOK,
			body:        `{"label":"lapar","confidence":0.25}`,
			expectLabel: "lapar",
			expectConf:  0.25,
		},
		{
			name:           "server error",
			status:         http.StatusInternalServerError,
			body:           `{"detail":"model crashed"}`,
			expectErr:      true,
			expectedMarker: models.ErrInferenceFailed,
		},
		{
			name:           "client error",
			status:         http.StatusUnprocessableEntity,
			body:           `{"detail":"bad url"}`,
			expectErr:      true,
			expectedMarker: models.ErrInferenceFailed,
		},
		{
			name:           "malformed body",
			status:         http.StatusOK,
			body:           `not json`,
			expectErr:      true,
			expectedMarker: models.ErrInferenceFailed,
		},
		{
			name:           "missing confidence",
			status:         http.StatusOK,
			body:           `{"label":"makan"}`,
			expectErr:      true,
			expectedMarker: models.ErrInferenceFailed,
		},
		{
			name:           "confidence out of range",
			status:         http.StatusOK,
			body:           `{"label":"makan","confidence":1.5}`,
			expectErr:      true,
			expectedMarker: models.ErrInferenceFailed,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var received predictRequest
			var calls int
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls++
				if r.Method != http.MethodPost {
					t.Errorf("expected POST, got %s", r.Method)
				}
				if r.URL.Path != "/predict" {
					t.Errorf("expected /predict, got %s", r.URL.Path)
				}
				if ct := r.Header.Get("Content-Type"); ct != "application/json" {
					t.Errorf("expected JSON content type, got %s", ct)
				}
				if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
					t.Errorf("decoding request: %v", err)
				}
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := NewClient(server.URL+"/", time.Second, nil)
			result, err := client.Classify(context.Background(), "https://blob.example.com/videos/1.webm")

			if calls != 1 {
				t.Errorf("expected exactly one request, got %d", calls)
			}
			if received.URL != "https://blob.example.com/videos/1.webm" {
				t.Errorf("expected request to carry the clip URL, got %q", received.URL)
			}

			if tt.expectErr {
				if !errors.Is(err, tt.expectedMarker) {
					t.Fatalf("expected %v, got %v", tt.expectedMarker, err)
				}
				if result != nil {
					t.Errorf("expected no result on failure")
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Label != tt.expectLabel || result.Confidence != tt.expectConf {
				t.Errorf("expected %s/%f, got %s/%f", tt.expectLabel, tt.expectConf, result.Label, result.Confidence)
			}
		})
	}
}

func TestClientTransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	endpoint := server.URL
	server.Close()

	client := NewClient(endpoint, time.Second, nil)
	_, err := client.Classify(context.Background(), "https://blob.example.com/videos/1.webm")
	if !errors.Is(err, models.ErrInferenceFailed) {
		t.Fatalf("expected ErrInferenceFailed, got %v", err)
	}
}

func TestClientRequiresURL(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second, nil)
	_, err := client.Classify(context.Background(), " ")
	if !errors.Is(err, models.ErrPrecondition) {
		t.Fatalf("expected ErrPrecondition, got %v", err)
	}
}
