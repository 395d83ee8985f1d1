package collegesearch

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"
)

type InterpreterConfig struct {
	ChunkSize    int
	FallbackText string
	Timeout      time.Duration
}

// Interpreter sends a query to the language model and extracts candidate
// institution names from the reply. It never returns an error: failures are
// folded into a fallback text and a notice.
type Interpreter struct {
	caller    LLMCaller
	extractor *NameExtractor
	cfg       InterpreterConfig
	log       *zap.Logger
}

func NewInterpreter(caller LLMCaller, extractor *NameExtractor, cfg InterpreterConfig, log *zap.Logger) *Interpreter {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if strings.TrimSpace(cfg.FallbackText) == "" {
		cfg.FallbackText = DefaultFallbackText
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultLLMTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Interpreter{caller: caller, extractor: extractor, cfg: cfg, log: log}
}

func (i *Interpreter) ModelName() string {
	if i == nil || i.caller == nil {
		return DefaultLLMModel
	}
	return i.caller.ModelName()
}

func (i *Interpreter) Interpret(ctx context.Context, query string) InterpreterResult {
	chunks := ChunkText(query, i.cfg.ChunkSize)
	res := InterpreterResult{Chunks: len(chunks)}
	if len(chunks) == 0 {
		return res
	}

	replies, failure := i.converse(ctx, chunks)
	raw := strings.Join(replies, " ")
	switch {
	case strings.TrimSpace(raw) == "":
		res.RawText = i.cfg.FallbackText
		res.Fallback = true
		if failure == "" {
			failure = "returned no text"
		}
		res.Notice = "Language model " + failure + "; using default topic \"" + i.cfg.FallbackText + "\"."
	case failure != "":
		res.RawText = raw
		res.Notice = "Language model " + failure + " part way through; showing a partial answer."
	default:
		res.RawText = raw
	}
	if i.extractor != nil {
		res.CandidateNames = i.extractor.Extract(res.RawText)
	} else {
		res.CandidateNames = []string{}
	}
	return res
}

func (i *Interpreter) converse(ctx context.Context, chunks []string) ([]string, string) {
	if i.caller == nil {
		return nil, "not configured"
	}
	startCtx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	session, err := i.caller.StartChat(startCtx)
	cancel()
	if err != nil {
		i.log.Warn("llm_session_error", zap.String("model", i.caller.ModelName()), zap.Error(err))
		return nil, describeLLMFailure(err)
	}
	replies := make([]string, 0, len(chunks))
	for n, chunk := range chunks {
		started := time.Now()
		reply, err := i.send(ctx, session, chunk)
		if err != nil {
			i.log.Warn("llm_chunk_error",
				zap.String("model", i.caller.ModelName()),
				zap.Int("chunk", n+1),
				zap.Int("chunks", len(chunks)),
				zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
				zap.Error(err),
			)
			return replies, describeLLMFailure(err)
		}
		i.log.Debug("llm_chunk_done",
			zap.Int("chunk", n+1),
			zap.Int("chunks", len(chunks)),
			zap.Int64("elapsed_ms", time.Since(started).Milliseconds()),
			zap.Int("response_chars", len(reply)),
		)
		replies = append(replies, reply)
	}
	return replies, ""
}

// send bounds one chat turn by the configured timeout.
func (i *Interpreter) send(ctx context.Context, session ChatSession, chunk string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, i.cfg.Timeout)
	defer cancel()
	return session.Send(ctx, chunk)
}

// ChunkText splits s into pieces of at most size runes. Blank input yields no
// chunks.
func ChunkText(s string, size int) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if size <= 0 {
		size = DefaultChunkSize
	}
	runes := []rune(s)
	out := make([]string, 0, len(runes)/size+1)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}
