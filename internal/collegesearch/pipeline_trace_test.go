package collegesearch

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func withSpanRecorder(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	before := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec)))
	t.Cleanup(func() { otel.SetTracerProvider(before) })
	return rec
}

func spanNames(spans []sdktrace.ReadOnlySpan) []string {
	out := make([]string, 0, len(spans))
	for _, s := range spans {
		out = append(out, s.Name())
	}
	return out
}

func TestPipelineRecordsStageSpans(t *testing.T) {
	rec := withSpanRecorder(t)
	f := newPipelineFixture(t, InterpreterResult{CandidateNames: []string{"Carleton College"}})
	if _, err := f.pipeline.Run(context.Background(), Request{Query: "Carleton"}); err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []string{"collegesearch.interpret", "collegesearch.resolve", "collegesearch.run"}
	if diff := cmp.Diff(want, spanNames(rec.Ended())); diff != "" {
		t.Fatalf("spans mismatch (-want +got):\n%s", diff)
	}
}

func TestPipelineMarksRejectedSpan(t *testing.T) {
	rec := withSpanRecorder(t)
	f := newPipelineFixture(t, InterpreterResult{})
	_, err := f.pipeline.Run(context.Background(), Request{Query: "gambling degrees"})
	if !errors.Is(err, ErrRejected) {
		t.Fatalf("expected ErrRejected, got %v", err)
	}
	spans := rec.Ended()
	if len(spans) != 1 || spans[0].Status().Code != codes.Error {
		t.Fatalf("expected one error span, got %v", spanNames(spans))
	}
}
