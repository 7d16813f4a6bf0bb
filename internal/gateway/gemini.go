package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"
)

const instructionTemplate = `You are a helpful assistant that returns expert-level, production-grade PostgreSQL SQL queries or DDL statements in response to descriptive user requests. Only output the SQL in a code block. User request: "%s"`

const (
	DefaultModel           = "gemini-1.5-flash-latest"
	defaultTemperature     = 0.2
	defaultMaxOutputTokens = 512
)

var (
	// ErrBlocked indicates the prompt was rejected by the model's content
	// safety filters.
	ErrBlocked = errors.New("request blocked by model")

	// ErrNoContent indicates the model returned a response with no usable
	// text in it.
	ErrNoContent = errors.New("no usable content in model response")
)

// GatewayError wraps any failure of the outbound generation call so callers
// can distinguish upstream failures from local ones.
type GatewayError struct {
	err error
}

func (e *GatewayError) Error() string {
	return e.err.Error()
}

func (e *GatewayError) Unwrap() error {
	return e.err
}

// Errorf wraps a formatted error as a GatewayError.
func Errorf(format string, args ...any) error {
	return &GatewayError{err: fmt.Errorf(format, args...)}
}

// Result is the transient outcome of one generation call. It is never
// persisted directly; only the derived history record is.
type Result struct {
	SQL          string
	Model        string
	FinishReason string
}

// SQLGenerator is the boundary around the third-party text-generation call.
type SQLGenerator interface {
	GenerateSQL(ctx context.Context, description string) (Result, error)
}

type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
}

// GeminiGateway generates SQL via the Gemini API. It has no side effects
// beyond the outbound call and persists nothing itself.
type GeminiGateway struct {
	client          *genai.Client
	model           string
	temperature     float32
	maxOutputTokens int32
}

func NewGeminiGateway(ctx context.Context, cfg GeminiConfig) (*GeminiGateway, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini api key is required")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create gemini client: %w", err)
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = defaultTemperature
	}
	maxOutputTokens := cfg.MaxOutputTokens
	if maxOutputTokens == 0 {
		maxOutputTokens = defaultMaxOutputTokens
	}

	return &GeminiGateway{
		client:          client,
		model:           model,
		temperature:     temperature,
		maxOutputTokens: maxOutputTokens,
	}, nil
}

func (g *GeminiGateway) GenerateSQL(ctx context.Context, description string) (Result, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return Result{}, errors.New("description must not be blank")
	}

	prompt := fmt.Sprintf(instructionTemplate, description)

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr(g.temperature),
		MaxOutputTokens: g.maxOutputTokens,
	})
	if err != nil {
		return Result{}, Errorf("gemini request failed: %w", err)
	}

	if len(resp.Candidates) == 0 {
		if fb := resp.PromptFeedback; fb != nil && fb.BlockReason != "" && fb.BlockReason != genai.BlockedReasonUnspecified {
			return Result{}, Errorf("%w: %s", ErrBlocked, fb.BlockReason)
		}
		slog.Error("invalid gemini response: no candidates")
		return Result{}, Errorf("%w: response contained no candidates", ErrNoContent)
	}

	candidate := resp.Candidates[0]

	var text strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil {
				text.WriteString(part.Text)
			}
		}
	}

	if text.Len() == 0 {
		if candidate.FinishReason != "" && candidate.FinishReason != genai.FinishReasonUnspecified {
			return Result{}, Errorf("%w: generation finished with reason %s", ErrNoContent, candidate.FinishReason)
		}
		return Result{}, Errorf("%w: candidate carried no text", ErrNoContent)
	}

	return Result{
		SQL:          ExtractSQL(text.String()),
		Model:        g.model,
		FinishReason: string(candidate.FinishReason),
	}, nil
}
