package collegesearch

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strings"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"
)

const systemPrompt = "You are a college information assistant for prospective students. Answer questions about colleges and universities in the United States. When you mention an institution, use its full official name."

const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"

	DefaultAnthropicModel = "claude-sonnet-4-5"
)

var statusCodeRe = regexp.MustCompile(`(?:status(?:\s+code)?[:=\s]+)(\d{3})`)

// ChatSession keeps one conversation context; each Send sees the earlier
// exchanges of the same session.
type ChatSession interface {
	Send(ctx context.Context, text string) (string, error)
}

type LLMCaller interface {
	StartChat(ctx context.Context) (ChatSession, error)
	ModelName() string
}

type LLMConfig struct {
	Provider string
	Model    string
	APIKey   string
}

func NewLLMCaller(ctx context.Context, cfg LLMConfig) (LLMCaller, error) {
	apiKey := strings.TrimSpace(cfg.APIKey)
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderGemini:
		if apiKey == "" {
			return nil, errors.New("GEMINI_API_KEY not configured")
		}
		models, err := newGeminiModels(ctx, apiKey)
		if err != nil {
			return nil, fmt.Errorf("gemini client: %w", err)
		}
		model := strings.TrimSpace(cfg.Model)
		if model == "" {
			model = DefaultLLMModel
		}
		return NewGeminiCaller(models, model), nil
	case ProviderAnthropic:
		if apiKey == "" {
			return nil, errors.New("ANTHROPIC_API_KEY not configured")
		}
		model := strings.TrimSpace(cfg.Model)
		if model == "" || strings.HasPrefix(model, "gemini") {
			model = DefaultAnthropicModel
		}
		return NewAnthropicCaller(newAnthropicClient(apiKey), model), nil
	default:
		return nil, &ConfigError{Field: "llm.provider", Err: fmt.Errorf("unknown provider %q", cfg.Provider)}
	}
}

// --- Gemini ---

type GeminiModels interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type GeminiClientCreator func(ctx context.Context, apiKey string) (GeminiModels, error)

func defaultGeminiCreator(ctx context.Context, apiKey string) (GeminiModels, error) {
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return c.Models, nil
}

var newGeminiModels GeminiClientCreator = defaultGeminiCreator

type GeminiCaller struct {
	models GeminiModels
	model  string
}

func NewGeminiCaller(models GeminiModels, model string) *GeminiCaller {
	return &GeminiCaller{models: models, model: model}
}

func (g *GeminiCaller) ModelName() string { return g.model }

func (g *GeminiCaller) StartChat(context.Context) (ChatSession, error) {
	if g.models == nil {
		return nil, errors.New("gemini client not configured")
	}
	return &geminiChat{
		models: g.models,
		model:  g.model,
		config: &genai.GenerateContentConfig{SystemInstruction: genai.NewContentFromText(systemPrompt, genai.RoleUser)},
	}, nil
}

type geminiChat struct {
	models  GeminiModels
	model   string
	config  *genai.GenerateContentConfig
	history []*genai.Content
}

func (c *geminiChat) Send(ctx context.Context, text string) (string, error) {
	contents := make([]*genai.Content, 0, len(c.history)+1)
	contents = append(contents, c.history...)
	contents = append(contents, genai.NewContentFromText(text, genai.RoleUser))
	resp, err := c.models.GenerateContent(ctx, c.model, contents, c.config)
	if err != nil {
		return "", err
	}
	reply, err := geminiText(resp)
	if err != nil {
		return "", err
	}
	c.history = append(contents, genai.NewContentFromText(reply, genai.RoleModel))
	return reply, nil
}

func geminiText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", errors.New("no response candidates from gemini")
	}
	cand := resp.Candidates[0]
	var sb strings.Builder
	if cand.Content != nil {
		for _, part := range cand.Content.Parts {
			if part != nil && part.Text != "" {
				sb.WriteString(part.Text)
			}
		}
	}
	if strings.TrimSpace(sb.String()) == "" {
		return "", fmt.Errorf("empty gemini response finish_reason=%s", cand.FinishReason)
	}
	return sb.String(), nil
}

// --- Anthropic ---

type AnthropicMessager interface {
	New(ctx context.Context, params anthropic.MessageNewParams, opts ...option.RequestOption) (*anthropic.Message, error)
}

type AnthropicClientCreator func(apiKey string) AnthropicMessager

func defaultAnthropicCreator(apiKey string) AnthropicMessager {
	c := anthropic.NewClient(option.WithAPIKey(apiKey))
	return &c.Messages
}

var newAnthropicClient AnthropicClientCreator = defaultAnthropicCreator

type AnthropicCaller struct {
	messages AnthropicMessager
	model    string
}

func NewAnthropicCaller(messages AnthropicMessager, model string) *AnthropicCaller {
	return &AnthropicCaller{messages: messages, model: model}
}

func (a *AnthropicCaller) ModelName() string { return a.model }

func (a *AnthropicCaller) StartChat(context.Context) (ChatSession, error) {
	if a.messages == nil {
		return nil, errors.New("anthropic client not configured")
	}
	return &anthropicChat{messages: a.messages, model: a.model}, nil
}

type anthropicChat struct {
	messages AnthropicMessager
	model    string
	history  []anthropic.MessageParam
}

func (c *anthropicChat) Send(ctx context.Context, text string) (string, error) {
	msgs := make([]anthropic.MessageParam, 0, len(c.history)+1)
	msgs = append(msgs, c.history...)
	msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))
	resp, err := c.messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: 2048,
		System:    []anthropic.TextBlockParam{{Text: systemPrompt}},
		Messages:  msgs,
	})
	if err != nil {
		return "", err
	}
	var sb strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" {
			sb.WriteString(b.Text)
		}
	}
	reply := sb.String()
	if strings.TrimSpace(reply) == "" {
		return "", fmt.Errorf("empty anthropic response stop_reason=%s", resp.StopReason)
	}
	c.history = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(reply)))
	return reply, nil
}

// describeLLMFailure turns a backend error into a short, user-safe notice.
func describeLLMFailure(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "timed out"
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return "timed out"
	}
	msg := strings.ToLower(err.Error())
	if m := statusCodeRe.FindStringSubmatch(msg); len(m) == 2 {
		switch {
		case m[1] == "429":
			return "rate limited"
		case strings.HasPrefix(m[1], "5"):
			return "server error"
		case m[1] == "401" || m[1] == "403":
			return "not authorized"
		case strings.HasPrefix(m[1], "4"):
			return "request rejected"
		}
	}
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "quota"), strings.Contains(msg, "resource_exhausted"):
		return "rate limited"
	case strings.Contains(msg, "finish_reason=safety"), strings.Contains(msg, "blocked"):
		return "blocked by content safety"
	case strings.Contains(msg, "empty"):
		return "returned no text"
	default:
		return "unavailable"
	}
}
