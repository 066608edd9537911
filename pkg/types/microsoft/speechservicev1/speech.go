package speechservicev1

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/samber/lo"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"speechrelay.dev/pkg/ssml"
)

const (
	ProviderName = "microsoft_speech_service"

	HeaderSubscriptionKey = "Ocp-Apim-Subscription-Key"
	HeaderOutputFormat    = "X-Microsoft-OutputFormat"
	HeaderContentType     = "Content-Type"

	maxErrorDetailBytes = 512
)

type Config struct {
	Endpoint        string
	SubscriptionKey string
	OutputFormat    string
	ContentType     string
	Voice           ssml.Voice
	Mode            ssml.Mode
	// Timeout of zero leaves the http.Client without a deadline.
	Timeout time.Duration
}

// Result is what the upstream answered. A non-200 status is reported here and
// not as an error.
type Result struct {
	StatusCode  int
	ContentType string
	RequestID   string
	Audio       []byte
	ErrorDetail string
}

func (r *Result) OK() bool {
	return r != nil && r.StatusCode == http.StatusOK
}

// Size is the number of audio bytes, zero unless the upstream succeeded.
func (r *Result) Size() int {
	if !r.OK() {
		return 0
	}

	return len(r.Audio)
}

type Client struct {
	cfg        Config
	httpClient *http.Client
	tracer     trace.Tracer
}

func NewClient(cfg Config, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	cfg.Voice.Lang = lo.CoalesceOrEmpty(cfg.Voice.Lang, ssml.DefaultVoice.Lang)
	cfg.Voice.Gender = lo.CoalesceOrEmpty(cfg.Voice.Gender, ssml.DefaultVoice.Gender)
	cfg.Voice.Name = lo.CoalesceOrEmpty(cfg.Voice.Name, ssml.DefaultVoice.Name)
	cfg.Mode = lo.CoalesceOrEmpty(cfg.Mode, ssml.ModeEscape)

	return &Client{
		cfg:        cfg,
		httpClient: httpClient,
		tracer:     otel.Tracer("speechrelay.dev/pkg/types/microsoft/speechservicev1"),
	}
}

func (c *Client) Name() string {
	return ProviderName
}

func (c *Client) BuildSpeechRequest(ctx context.Context, text string) (*http.Request, error) {
	body := ssml.Build(text, c.cfg.Voice, c.cfg.Mode)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewBufferString(body))
	if err != nil {
		return nil, err
	}

	// unset values are left off, the upstream rejects the call on its own
	if c.cfg.SubscriptionKey != "" {
		httpReq.Header.Set(HeaderSubscriptionKey, c.cfg.SubscriptionKey)
	}
	if c.cfg.ContentType != "" {
		httpReq.Header.Set(HeaderContentType, c.cfg.ContentType)
	}
	if c.cfg.OutputFormat != "" {
		httpReq.Header.Set(HeaderOutputFormat, c.cfg.OutputFormat)
	}

	return httpReq, nil
}

// Synthesize issues exactly one call to the speech service.
func (c *Client) Synthesize(ctx context.Context, text string) (*Result, error) {
	ctx, span := c.tracer.Start(ctx, "speech.synthesize", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("speech.provider", ProviderName),
		attribute.String("speech.voice", c.cfg.Voice.Name),
		attribute.Int("speech.text.length", len(text)),
	)

	httpReq, err := c.BuildSpeechRequest(ctx, text)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, fmt.Errorf("failed to build speech request: %w", err)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return nil, err
	}

	defer func() { _ = resp.Body.Close() }()

	result := &Result{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		RequestID:   lo.CoalesceOrEmpty(resp.Header.Get("X-RequestId"), resp.Header.Get("X-Request-Id")),
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())

		return result, fmt.Errorf("failed to read speech response: %w", err)
	}

	if !result.OK() {
		result.ErrorDetail = string(body[:min(len(body), maxErrorDetailBytes)])
		span.SetStatus(codes.Error, resp.Status)

		return result, nil
	}

	result.Audio = body
	span.SetAttributes(attribute.Int("speech.audio.size", len(body)))

	return result, nil
}
