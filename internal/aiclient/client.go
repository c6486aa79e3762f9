// internal/aiclient/client.go
package aiclient

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
	"google.golang.org/genai"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/xkilldash9x/cartpilot/api/schemas"
	"github.com/xkilldash9x/cartpilot/internal/config"
)

// maxSnapshotBytes bounds the DOM snapshot sent per call. Storefront pages
// routinely exceed the model's useful context; the head of the document
// carries the controls and listings we care about.
const maxSnapshotBytes = 200_000

// Snapshotter is the page surface the client needs: a DOM snapshot and the
// current URL. browser.Page satisfies it.
type Snapshotter interface {
	HTML(ctx context.Context, scope string) (string, error)
	Location(ctx context.Context) (string, error)
}

// generateFunc matches the Models.GenerateContent call; tests substitute a
// canned implementation so no network traffic happens.
type generateFunc func(ctx context.Context, model string, contents []*genai.Content, cfg *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)

// validator is implemented by extraction targets that enforce content rules
// beyond JSON shape.
type validator interface {
	Validate() error
}

// Client answers natural-language questions about one page. Each call sends a
// fresh DOM snapshot; the client holds no conversation state, so a failed or
// rejected response never poisons the next call.
//
// There is deliberately no retry here. A wrong answer from the backend is a
// workflow-level decision (pick another candidate, fall back to a profile
// selector), not a transport fault.
type Client struct {
	cfg      config.AIConfig
	page     Snapshotter
	logger   *zap.Logger
	generate generateFunc
	trace    io.Writer
}

// New builds a client bound to one page. Credential absence is a hard error;
// there is no degraded mode.
func New(ctx context.Context, cfg config.AIConfig, page Snapshotter, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, schemas.NewConfigurationError("AI API key is missing", nil)
	}
	if page == nil {
		return nil, schemas.NewConfigurationError("AI client requires a page", nil)
	}

	genaiClient, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, schemas.NewConfigurationError("failed to construct AI backend client", err)
	}

	c := &Client{
		cfg:      cfg,
		page:     page,
		logger:   logger.Named("ai"),
		generate: genaiClient.Models.GenerateContent,
	}
	if cfg.TraceFile != "" {
		c.trace = &lumberjack.Logger{
			Filename:   cfg.TraceFile,
			MaxSize:    25,
			MaxBackups: 2,
		}
	}
	return c, nil
}

// Observe asks the backend which elements on the page match the instruction
// and returns them as candidate actions. An empty result is a valid answer,
// not an error.
func (c *Client) Observe(ctx context.Context, opts ObserveOptions) ([]schemas.CandidateAction, error) {
	instruction := opts.Instruction
	if instruction == "" {
		instruction = defaultObserveInstruction
	}

	snapshot, err := c.snapshot(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	prompt := fmt.Sprintf("Instruction: %s\n\nPage HTML:\n%s", instruction, snapshot)
	raw, err := c.call(ctx, "observe", instruction, observeSystemPrompt, prompt, CandidateActionSchema())
	if err != nil {
		return nil, err
	}

	var actions []schemas.CandidateAction
	if err := jsoniter.UnmarshalFromString(raw, &actions); err != nil {
		return nil, schemas.NewSchemaValidationError("observation response is not a candidate-action array", err)
	}

	if c.cfg.Verbosity >= 2 {
		for _, a := range actions {
			c.logger.Debug("Observed candidate",
				zap.String("description", a.Description),
				zap.String("selector", a.Selector))
		}
	}
	c.logger.Debug("Observation complete",
		zap.String("instruction", instruction),
		zap.Int("candidates", len(actions)))
	return actions, nil
}

// Extract pulls structured data off the page into out, which must be a
// pointer to the type the schema describes. When opts.Schema is nil the
// generic text-content contract applies and out should be *schemas.PageText.
func (c *Client) Extract(ctx context.Context, opts ExtractOptions, out any) error {
	instruction := opts.Instruction
	if instruction == "" {
		instruction = defaultExtractInstruction
	}
	if opts.Limit > 0 {
		instruction = fmt.Sprintf("%s Return at most %d records.", instruction, opts.Limit)
	}
	schema := opts.Schema
	if schema == nil {
		schema = PageTextSchema()
	}

	snapshot, err := c.snapshot(ctx, opts.Scope)
	if err != nil {
		return err
	}

	prompt := fmt.Sprintf("Instruction: %s\n\nPage HTML:\n%s", instruction, snapshot)
	raw, err := c.call(ctx, "extract", instruction, extractSystemPrompt, prompt, schema)
	if err != nil {
		return err
	}

	if err := jsoniter.UnmarshalFromString(raw, out); err != nil {
		return schemas.NewSchemaValidationError("extraction response does not match the requested schema", err)
	}
	if v, ok := out.(validator); ok {
		if err := v.Validate(); err != nil {
			return err
		}
	}

	c.logger.Debug("Extraction complete", zap.String("instruction", instruction))
	return nil
}

// snapshot captures, sanitizes and bounds the DOM the backend will see.
func (c *Client) snapshot(ctx context.Context, scope string) (string, error) {
	raw, err := c.page.HTML(ctx, scope)
	if err != nil {
		return "", err
	}
	return truncateRunes(sanitizeSnapshot(raw), maxSnapshotBytes), nil
}

// call performs one structured-output generation and returns the raw JSON
// text of the response.
func (c *Client) call(ctx context.Context, kind, instruction, system, prompt string, schema *genai.Schema) (string, error) {
	started := time.Now()

	resp, err := c.generate(ctx, c.cfg.Model, genai.Text(prompt), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		ResponseSchema:    schema,
		Temperature:       genai.Ptr[float32](0),
	})
	if err != nil {
		return "", fmt.Errorf("AI %s call failed: %w", kind, err)
	}

	raw := stripFences(resp.Text())
	if raw == "" {
		return "", schemas.NewSchemaValidationError(kind+" response is empty", nil)
	}

	c.writeTrace(kind, instruction, raw, time.Since(started))
	return raw, nil
}

// writeTrace appends one JSON line per backend exchange when tracing is on.
func (c *Client) writeTrace(kind, instruction, response string, elapsed time.Duration) {
	if c.trace == nil {
		return
	}
	entry := struct {
		Time        string `json:"time"`
		Kind        string `json:"kind"`
		Model       string `json:"model"`
		Instruction string `json:"instruction"`
		ElapsedMS   int64  `json:"elapsed_ms"`
		Response    string `json:"response"`
	}{
		Time:        time.Now().UTC().Format(time.RFC3339),
		Kind:        kind,
		Model:       c.cfg.Model,
		Instruction: instruction,
		ElapsedMS:   elapsed.Milliseconds(),
		Response:    response,
	}
	line, err := jsoniter.Marshal(entry)
	if err != nil {
		return
	}
	if _, err := c.trace.Write(append(line, '\n')); err != nil {
		c.logger.Warn("Failed to write AI trace entry", zap.Error(err))
	}
}

// stripFences tolerates models that wrap JSON output in a markdown code
// fence despite the structured-output mode.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
