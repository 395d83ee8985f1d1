package telemetry

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestSetupWithoutEndpointIsNoop(t *testing.T) {
	before := otel.GetTracerProvider()
	shutdown, err := Setup(context.Background(), " ", "svc")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if otel.GetTracerProvider() != before {
		t.Fatal("expected global provider untouched")
	}
}

func TestSetupExportsSpans(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && r.URL.Path == "/v1/traces" {
			atomic.AddInt32(&posts, 1)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	before := otel.GetTracerProvider()
	defer otel.SetTracerProvider(before)

	shutdown, err := Setup(context.Background(), srv.URL+"/v1/traces", "svc")
	if err != nil {
		t.Fatalf("Setup: %v", err)
	}
	_, span := otel.Tracer("test").Start(context.Background(), "op")
	span.End()
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if atomic.LoadInt32(&posts) == 0 {
		t.Fatal("expected spans to be exported on shutdown")
	}
}
