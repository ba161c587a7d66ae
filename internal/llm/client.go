package llm

import (
	"context"
	"fmt"
	"net/http"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"study-assistant/internal/contextutil"
)

// Client is a client for OpenAI-compatible chat completion APIs such as Groq.
type Client struct {
	BaseURL string
	Model   string

	api     openai.Client
	limiter *rate.Limiter
}

// Option configures Client and EmbeddingsClient.
type Option func(*options)

type options struct {
	httpClient        *http.Client
	requestsPerSecond float64
}

// WithHTTPClient sets the HTTP client used for API calls.
func WithHTTPClient(hc *http.Client) Option {
	return func(o *options) { o.httpClient = hc }
}

// WithRequestsPerSecond throttles outgoing calls. Zero or less disables throttling.
func WithRequestsPerSecond(rps float64) Option {
	return func(o *options) { o.requestsPerSecond = rps }
}

func buildOptions(opts []Option) options {
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) limiter() *rate.Limiter {
	if o.requestsPerSecond <= 0 {
		return nil
	}
	burst := int(o.requestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(o.requestsPerSecond), burst)
}

// newAPI builds an openai-go client. Retries are disabled: failures surface to the caller.
func newAPI(baseURL, apiKey string, o options) openai.Client {
	return openai.NewClient(
		option.WithBaseURL(baseURL),
		option.WithAPIKey(apiKey),
		option.WithHTTPClient(o.httpClient),
		option.WithMaxRetries(0),
	)
}

// NewClient creates a new LLM client. baseURL includes the API version
// (e.g. "https://api.groq.com/openai/v1").
func NewClient(baseURL, apiKey, model string, opts ...Option) *Client {
	o := buildOptions(opts)
	return &Client{
		BaseURL: baseURL,
		Model:   model,
		api:     newAPI(baseURL, apiKey, o),
		limiter: o.limiter(),
	}
}

func wait(ctx context.Context, limiter *rate.Limiter) error {
	if limiter == nil {
		return nil
	}
	if err := limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limiter: %w", err)
	}
	return nil
}

// Chat sends a single user message and returns the reply.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	return c.ChatWithMessages(ctx, []Message{{Role: RoleUser, Content: message}}, ChatParams{})
}

// ChatWithMessages sends a chat completion request with structured messages.
func (c *Client) ChatWithMessages(ctx context.Context, messages []Message, params ChatParams) (string, error) {
	logger := contextutil.LoggerFromContext(ctx)

	req, err := c.buildParams(messages, params)
	if err != nil {
		return "", err
	}
	if err := wait(ctx, c.limiter); err != nil {
		return "", err
	}

	resp, err := c.api.Chat.Completions.New(ctx, req)
	if err != nil {
		logger.ErrorContext(ctx, "chat completion failed", "model", req.Model, "error", err)
		return "", fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned")
	}

	logger.DebugContext(ctx, "chat completion done", "model", req.Model, "total_tokens", resp.Usage.TotalTokens)
	return resp.Choices[0].Message.Content, nil
}

// StreamChatWithMessages streams a chat completion, calling callback for each content delta.
func (c *Client) StreamChatWithMessages(ctx context.Context, messages []Message, params ChatParams, callback func(chunk string) error) error {
	req, err := c.buildParams(messages, params)
	if err != nil {
		return err
	}
	if err := wait(ctx, c.limiter); err != nil {
		return err
	}

	stream := c.api.Chat.Completions.NewStreaming(ctx, req)
	defer func() {
		_ = stream.Close()
	}()

	for stream.Next() {
		chunk := stream.Current()
		if len(chunk.Choices) == 0 {
			continue
		}
		if delta := chunk.Choices[0].Delta.Content; delta != "" {
			if err := callback(delta); err != nil {
				return fmt.Errorf("callback error: %w", err)
			}
		}
	}

	if err := stream.Err(); err != nil {
		return fmt.Errorf("failed to read stream: %w", err)
	}
	return nil
}

func (c *Client) buildParams(messages []Message, params ChatParams) (openai.ChatCompletionNewParams, error) {
	if len(messages) == 0 {
		return openai.ChatCompletionNewParams{}, fmt.Errorf("at least one message is required")
	}

	converted := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			converted = append(converted, openai.SystemMessage(m.Content))
		case RoleUser:
			converted = append(converted, openai.UserMessage(m.Content))
		case RoleAssistant:
			converted = append(converted, openai.AssistantMessage(m.Content))
		default:
			return openai.ChatCompletionNewParams{}, fmt.Errorf("unsupported message role %q", m.Role)
		}
	}

	model := params.Model
	if model == "" {
		model = c.Model
	}

	req := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: converted,
	}
	if params.Temperature > 0 {
		req.Temperature = openai.Float(float64(params.Temperature))
	}
	if params.MaxTokens > 0 {
		req.MaxTokens = openai.Int(int64(params.MaxTokens))
	}
	return req, nil
}
