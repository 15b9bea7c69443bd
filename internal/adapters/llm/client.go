package llm

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "log/slog"
    "time"

    "github.com/invopop/jsonschema"
    "github.com/openai/openai-go"
    "github.com/openai/openai-go/option"
)

// Client is the transport to an OpenAI-compatible chat endpoint.
type Client interface {
    // Chat requests a structured JSON answer and decodes it into result.
    Chat(ctx context.Context, req Request, result any) error
    // Complete returns a free-text answer.
    Complete(ctx context.Context, prompt string) (string, error)
    Model() string
}

type Request struct {
    Prompt      string
    SchemaName  string
    Schema      any
    MaxTokens   int
    Temperature *float64 // nil = model default
}

// Response formats for structured output. json_object is the widely
// supported mode (Groq, llama models); json_schema needs an endpoint and model
// that accept strict schemas.
const (
    FormatJSONObject = "json_object"
    FormatJSONSchema = "json_schema"
)

type Config struct {
    APIKey         string
    BaseURL        string
    Model          string
    ResponseFormat string // FormatJSONObject (default) or FormatJSONSchema
}

type client struct {
    openai openai.Client
    model  string
    format string
}

func NewClient(cfg Config) (Client, error) {
    if cfg.APIKey == "" {
        return nil, fmt.Errorf("API key is required")
    }

    opts := []option.RequestOption{
        option.WithAPIKey(cfg.APIKey),
        option.WithMaxRetries(0), // retries are handled by Agent
    }
    if cfg.BaseURL != "" {
        opts = append(opts, option.WithBaseURL(cfg.BaseURL))
    }

    model := cfg.Model
    if model == "" {
        model = "llama-3.1-8b-instant"
    }

    format := cfg.ResponseFormat
    switch format {
    case "":
        format = FormatJSONObject
    case FormatJSONObject, FormatJSONSchema:
    default:
        return nil, fmt.Errorf("unknown response format %q", cfg.ResponseFormat)
    }

    return &client{
        openai: openai.NewClient(opts...),
        model:  model,
        format: format,
    }, nil
}

func (c *client) Chat(ctx context.Context, req Request, result any) error {
    maxTokens := req.MaxTokens
    if maxTokens == 0 {
        maxTokens = 512
    }

    params := openai.ChatCompletionNewParams{
        Model:     c.model,
        MaxTokens: openai.Int(int64(maxTokens)),
    }
    prompt := req.Prompt
    if c.format == FormatJSONSchema {
        params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
            OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
                JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
                    Name:        req.SchemaName,
                    Description: openai.String("Structured response schema"),
                    Schema:      req.Schema,
                    Strict:      openai.Bool(true),
                },
            },
        }
    } else {
        // json_object mode cannot carry a schema, so it travels in the prompt.
        params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
            OfJSONObject: &openai.ResponseFormatJSONObjectParam{},
        }
        if req.Schema != nil {
            schema, err := json.Marshal(req.Schema)
            if err != nil {
                return fmt.Errorf("marshal schema: %w", err)
            }
            prompt += "\n\nRespond with a JSON object matching this schema:\n" + string(schema)
        }
    }
    params.Messages = []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)}
    if req.Temperature != nil {
        params.Temperature = openai.Float(*req.Temperature)
    }

    content, err := c.create(ctx, params)
    if err != nil {
        return err
    }
    if err := json.Unmarshal([]byte(content), result); err != nil {
        return fmt.Errorf("unmarshal response: %w", err)
    }
    return nil
}

func (c *client) Complete(ctx context.Context, prompt string) (string, error) {
    return c.create(ctx, openai.ChatCompletionNewParams{
        Model:    c.model,
        Messages: []openai.ChatCompletionMessageParamUnion{openai.UserMessage(prompt)},
    })
}

func (c *client) create(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
    start := time.Now()
    resp, err := c.openai.Chat.Completions.New(ctx, params)
    if err != nil {
        return "", fmt.Errorf("openai chat: %w", err)
    }
    if len(resp.Choices) == 0 {
        return "", fmt.Errorf("no choices in response")
    }

    slog.DebugContext(ctx, "llm chat completed",
        "model", c.model,
        "duration_ms", time.Since(start).Milliseconds(),
        "prompt_tokens", resp.Usage.PromptTokens,
        "completion_tokens", resp.Usage.CompletionTokens)

    return resp.Choices[0].Message.Content, nil
}

func (c *client) Model() string {
    return c.model
}

func GenerateSchema[T any]() any {
    reflector := jsonschema.Reflector{
        AllowAdditionalProperties: false,
        DoNotReference:            true,
    }
    var v T
    return reflector.Reflect(v)
}

func Temp(t float64) *float64 {
    return &t
}

// IsRetryable reports whether err is worth another attempt: rate limits,
// server errors, network failures and per-attempt timeouts. ctx is the
// caller's context, not the attempt's; once it is done nothing is retried.
func IsRetryable(ctx context.Context, err error) bool {
    if err == nil {
        return false
    }
    if ctx.Err() != nil || errors.Is(err, context.Canceled) {
        return false
    }
    if errors.Is(err, context.DeadlineExceeded) {
        slog.WarnContext(ctx, "llm attempt timed out, will retry")
        return true
    }

    var apiErr *openai.Error
    if errors.As(err, &apiErr) {
        switch {
        case apiErr.StatusCode == 429:
            slog.WarnContext(ctx, "llm rate limited, will retry", "status_code", apiErr.StatusCode)
            return true
        case apiErr.StatusCode >= 500:
            slog.WarnContext(ctx, "llm server error, will retry", "status_code", apiErr.StatusCode)
            return true
        default:
            return false
        }
    }

    var syntaxErr *json.SyntaxError
    var typeErr *json.UnmarshalTypeError
    if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
        return false
    }

    slog.WarnContext(ctx, "llm network error, will retry", "error", err)
    return true
}
