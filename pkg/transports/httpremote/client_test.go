package httpremote

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/openlro/openlro/pkg/lro"
	"github.com/openlro/openlro/pkg/transports/sim"
)

func TestNewClient_Validation(t *testing.T) {
	if _, err := NewClient(nil); err == nil {
		t.Error("Expected error for nil config")
	}
	if _, err := NewClient(&ClientConfig{}); err == nil {
		t.Error("Expected error for missing base URL")
	}
	if _, err := NewClient(&ClientConfig{BaseURL: "http://localhost:8080/"}); err != nil {
		t.Errorf("Expected client, got %v", err)
	}
}

func TestClient_RoundTrip(t *testing.T) {
	srv, _ := newTestServer(t, sim.Config{Duration: 0})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client, err := NewClient(&ClientConfig{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	ctx := context.Background()

	handle, err := client.Start(ctx, "SELECT * FROM users")
	if err != nil {
		t.Fatalf("Expected start to succeed, got %v", err)
	}
	if handle == "" {
		t.Fatal("Expected non-empty handle")
	}

	status, err := client.GetStatus(ctx, handle)
	if err != nil {
		t.Fatalf("Expected status check to succeed, got %v", err)
	}
	if status != lro.StatusSucceeded {
		t.Errorf("Expected SUCCEEDED, got %s", status)
	}

	raw, err := client.GetResult(ctx, handle)
	if err != nil {
		t.Fatalf("Expected result fetch to succeed, got %v", err)
	}

	var result sim.Result
	if err := json.Unmarshal(raw, &result); err != nil {
		t.Fatalf("Expected valid result JSON, got %v", err)
	}
	if result.Query != "SELECT * FROM users" {
		t.Errorf("Expected query echoed back, got %q", result.Query)
	}
	if len(result.Rows) != 3 {
		t.Errorf("Expected 3 rows, got %d", len(result.Rows))
	}
}

func TestClient_UnknownHandlePropagatesMessage(t *testing.T) {
	srv, _ := newTestServer(t, sim.Config{})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client, err := NewClient(&ClientConfig{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	_, err = client.GetStatus(context.Background(), "nope")
	if err == nil {
		t.Fatal("Expected status check of unknown handle to fail, got nil")
	}
	if !strings.Contains(err.Error(), "unknown operation") {
		t.Errorf("Expected the server's message to propagate, got %v", err)
	}
}

func TestClient_PrematureResult(t *testing.T) {
	srv, _ := newTestServer(t, sim.Config{Duration: time.Minute})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client, err := NewClient(&ClientConfig{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}
	ctx := context.Background()

	handle, err := client.Start(ctx, "SELECT 1")
	if err != nil {
		t.Fatalf("Expected start to succeed, got %v", err)
	}

	_, err = client.GetResult(ctx, handle)
	if err == nil {
		t.Fatal("Expected premature fetch to fail, got nil")
	}
	if !strings.Contains(err.Error(), "not finished") {
		t.Errorf("Expected the server's message to propagate, got %v", err)
	}
}

func TestClient_RejectedSubmission(t *testing.T) {
	srv, _ := newTestServer(t, sim.Config{RejectSubmissions: true})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client, err := NewClient(&ClientConfig{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	_, err = client.Start(context.Background(), "SELECT 1")
	if err == nil {
		t.Fatal("Expected rejected submission to fail, got nil")
	}
}

// A full run driven over HTTP: runner -> client -> server -> simulated remote.
func TestClient_RunnerEndToEnd(t *testing.T) {
	srv, remote := newTestServer(t, sim.Config{Duration: 50 * time.Millisecond})
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	client, err := NewClient(&ClientConfig{BaseURL: ts.URL})
	if err != nil {
		t.Fatalf("Expected client, got %v", err)
	}

	runner, err := lro.NewRunner(client, lro.Options{
		PollInterval: 10 * time.Millisecond,
		MaxRetries:   200,
	})
	if err != nil {
		t.Fatalf("Expected runner, got %v", err)
	}

	out, err := runner.Execute(context.Background(), lro.OperationRequest{Payload: "SELECT 1"})
	if err != nil {
		t.Fatalf("Expected execute to resolve, got %v", err)
	}
	if out.Kind != lro.OutcomeSuccess {
		t.Fatalf("Expected success outcome, got %s (failure: %v)", out.Kind, out.Failure)
	}
	if len(out.Result) == 0 {
		t.Error("Expected a result payload")
	}

	starts, checks, fetches := remote.Counters()
	if starts != 1 || fetches != 1 {
		t.Errorf("Expected 1 start and 1 fetch, got %d and %d", starts, fetches)
	}
	if checks < 1 {
		t.Errorf("Expected at least one status check, got %d", checks)
	}
}
