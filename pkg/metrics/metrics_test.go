package metrics

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func TestRegistry(t *testing.T) {
	if Registry == nil {
		t.Error("Registry should not be nil")
	}

	if Registry != prometheus.DefaultRegisterer {
		t.Error("Registry should be the default Prometheus registerer")
	}
}

var testCounter = promauto.NewCounter(prometheus.CounterOpts{
	Name: "notion_export_metrics_test_total",
	Help: "Counter registered by the metrics package tests",
})

func TestHandler_ExposesRegisteredMetrics(t *testing.T) {
	testCounter.Inc()

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Result().Body)
	if !strings.Contains(string(body), "notion_export_metrics_test_total 1") {
		t.Errorf("metrics output missing test counter:\n%s", body)
	}
}

func TestServe_EmptyAddr(t *testing.T) {
	if err := Serve(context.Background(), ""); err != nil {
		t.Errorf("Serve(\"\") = %v, want nil", err)
	}
}

func TestServe_StopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0") }()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after shutdown", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not stop after context cancellation")
	}
}
