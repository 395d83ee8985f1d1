package collegesearch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/joelkehle/college-assistant/internal/collegesearch"

type StageProgressFn func(stage, message string)

type QueryInterpreter interface {
	Interpret(ctx context.Context, query string) InterpreterResult
	ModelName() string
}

type SearchRunner interface {
	Search(ctx context.Context, lookup KeywordState) ([]InstitutionRecord, error)
}

// Pipeline runs filter -> interpret -> resolve (or live search) -> report for
// one query. It keeps no per-request state between runs.
type Pipeline struct {
	filter      *Filter
	interpreter QueryInterpreter
	resolver    *Resolver
	roster      RosterProvider
	searcher    SearchRunner
	log         *zap.Logger
	tracer      trace.Tracer
}

func NewPipeline(filter *Filter, interpreter QueryInterpreter, resolver *Resolver, roster RosterProvider, searcher SearchRunner, log *zap.Logger) *Pipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &Pipeline{
		filter:      filter,
		interpreter: interpreter,
		resolver:    resolver,
		roster:      roster,
		searcher:    searcher,
		log:         log,
		tracer:      otel.Tracer(tracerName),
	}
}

func (p *Pipeline) ValidateConfig() error {
	if p.filter == nil {
		return fmt.Errorf("filter is required")
	}
	if p.interpreter == nil {
		return fmt.Errorf("interpreter is required")
	}
	if p.resolver == nil {
		return fmt.Errorf("resolver is required")
	}
	if p.roster == nil && p.searcher == nil {
		return fmt.Errorf("a roster or a searcher is required")
	}
	return nil
}

func (p *Pipeline) Run(ctx context.Context, req Request) (PipelineResult, error) {
	return p.runWithProgress(ctx, req, nil)
}

func (p *Pipeline) RunWithProgress(ctx context.Context, req Request, progress StageProgressFn) (PipelineResult, error) {
	return p.runWithProgress(ctx, req, progress)
}

func (p *Pipeline) runWithProgress(ctx context.Context, req Request, progress StageProgressFn) (res PipelineResult, err error) {
	if strings.TrimSpace(req.RequestID) == "" {
		req.RequestID = uuid.NewString()
	}
	res = PipelineResult{
		Request:      req,
		Institutions: []InstitutionRecord{},
		Metadata:     PipelineMetadata{StartedAt: time.Now(), Model: p.modelName()},
	}
	log := p.log.With(zap.String("request_id", req.RequestID))

	ctx, span := p.tracer.Start(ctx, "collegesearch.run", trace.WithAttributes(
		attribute.String("request.id", req.RequestID),
		attribute.Int("query.chars", len(req.Query)),
	))
	defer func() {
		finalizeMetadata(&res)
		span.SetAttributes(
			attribute.Int("result.institutions", len(res.Institutions)),
			attribute.Bool("result.data_unavailable", res.DataUnavailable),
		)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, StageNameFromError(err))
			log.Info("request_error",
				zap.String("stage", StageNameFromError(err)),
				zap.Int64("elapsed_ms", res.Metadata.DurationMS),
				zap.Error(err),
			)
		} else {
			log.Info("request_done",
				zap.String("source", string(res.Source)),
				zap.Int("institutions", len(res.Institutions)),
				zap.Bool("data_unavailable", res.DataUnavailable),
				zap.Int64("elapsed_ms", res.Metadata.DurationMS),
			)
		}
		span.End()
	}()

	query := strings.TrimSpace(req.Query)
	log.Info("request_start", zap.Int("query_chars", len(query)))
	if query == "" {
		res.Notices = append(res.Notices, "Please enter a query.")
		return res, nil
	}

	emit(progress, StageFilter, "Checking query...")
	if !p.filter.Allowed(query) {
		p.stageDone(ctx, &res, StageFilter)
		return res, &StageError{Stage: StageFilter, Err: ErrRejected}
	}
	p.stageDone(ctx, &res, StageFilter)

	emit(progress, StageInterpret, "Interpreting query...")
	res.Interpretation = p.interpret(ctx, query)
	if res.Interpretation.Notice != "" {
		res.Notices = append(res.Notices, res.Interpretation.Notice)
	}
	p.stageDone(ctx, &res, StageInterpret)

	if len(res.Interpretation.CandidateNames) > 0 {
		emit(progress, StageResolve, "Matching institutions against the roster...")
		if err := p.resolve(ctx, &res); err != nil {
			return res, &StageError{Stage: StageResolve, Err: err}
		}
		p.stageDone(ctx, &res, StageResolve)
	} else {
		emit(progress, StageSearch, "Searching College Scorecard...")
		p.search(ctx, &res, query)
		p.stageDone(ctx, &res, StageSearch)
	}
	return res, nil
}

func (p *Pipeline) interpret(ctx context.Context, query string) InterpreterResult {
	ctx, span := p.tracer.Start(ctx, "collegesearch.interpret")
	defer span.End()
	out := p.interpreter.Interpret(ctx, query)
	if out.CandidateNames == nil {
		out.CandidateNames = []string{}
	}
	span.SetAttributes(
		attribute.Int("interpret.chunks", out.Chunks),
		attribute.Int("interpret.candidates", len(out.CandidateNames)),
		attribute.Bool("interpret.fallback", out.Fallback),
	)
	return out
}

func (p *Pipeline) resolve(ctx context.Context, res *PipelineResult) error {
	ctx, span := p.tracer.Start(ctx, "collegesearch.resolve")
	defer span.End()
	res.Source = SourceRoster

	if p.roster == nil {
		markUnavailable(res, "No institution roster is configured.")
		return nil
	}
	roster, err := p.roster.LoadRoster(ctx)
	if err == nil {
		var records []InstitutionRecord
		records, res.Matches, err = p.resolver.Resolve(res.Interpretation.CandidateNames, roster)
		res.Institutions = records
		span.SetAttributes(
			attribute.Int("resolve.roster_rows", len(roster.Records)),
			attribute.Int("resolve.accepted", len(records)),
		)
	}
	var schemaErr *SchemaError
	switch {
	case err == nil:
		return nil
	case errors.As(err, &schemaErr):
		span.RecordError(err)
		span.SetStatus(codes.Error, "roster schema")
		return err
	default:
		// Anything else from the roster side is "no data", not a failed request.
		p.log.Warn("roster_unavailable", zap.String("request_id", res.Request.RequestID), zap.Error(err))
		markUnavailable(res, "Institution data is unavailable right now; no results to show.")
		return nil
	}
}

func (p *Pipeline) search(ctx context.Context, res *PipelineResult, query string) {
	ctx, span := p.tracer.Start(ctx, "collegesearch.search")
	defer span.End()

	lookup := ExtractKeywordAndState(query)
	res.Lookup = &lookup
	res.Source = SourceScorecard
	span.SetAttributes(attribute.String("search.keyword", lookup.Keyword), attribute.String("search.state", lookup.State))

	if p.searcher == nil {
		markUnavailable(res, "Live search is not configured.")
		return
	}
	records, err := p.searcher.Search(ctx, lookup)
	if err != nil {
		span.RecordError(err)
		markUnavailable(res, "The College Scorecard search is unavailable right now; no results to show.")
		return
	}
	res.Institutions = records
	span.SetAttributes(attribute.Int("search.results", len(records)))
}

func (p *Pipeline) stageDone(ctx context.Context, res *PipelineResult, stage string) {
	res.Metadata.StagesExecuted = append(res.Metadata.StagesExecuted, stage)
	p.log.Debug("stage_done",
		zap.String("request_id", res.Request.RequestID),
		zap.String("stage", stage),
		zap.Int64("elapsed_ms", time.Since(res.Metadata.StartedAt).Milliseconds()),
	)
	trace.SpanFromContext(ctx).AddEvent("stage_done", trace.WithAttributes(attribute.String("stage", stage)))
}

func (p *Pipeline) modelName() string {
	if p.interpreter == nil {
		return DefaultLLMModel
	}
	return p.interpreter.ModelName()
}

func markUnavailable(res *PipelineResult, notice string) {
	res.DataUnavailable = true
	res.Institutions = []InstitutionRecord{}
	res.Notices = append(res.Notices, notice)
}

func finalizeMetadata(res *PipelineResult) {
	res.Metadata.CompletedAt = time.Now()
	res.Metadata.DurationMS = res.Metadata.CompletedAt.Sub(res.Metadata.StartedAt).Milliseconds()
}

func emit(progress StageProgressFn, stage, message string) {
	if progress != nil {
		progress(stage, message)
	}
}

// BuildResponse wraps a result for transport, attaching the markdown report.
func BuildResponse(result PipelineResult) ResponseEnvelope {
	return ResponseEnvelope{
		Agent:          AgentName,
		Version:        AgentVersion,
		Result:         result,
		ReportMarkdown: BuildReportMarkdown(result),
	}
}

type ResponseEnvelope struct {
	Agent          string         `json:"agent"`
	Version        string         `json:"version"`
	Result         PipelineResult `json:"result"`
	ReportMarkdown string         `json:"report_markdown"`
}
