package ocr

import (
	"context"
	"encoding/base64"
	"encoding/json/v2"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	domainerrors "github.com/openarklib/openark-server/internal/errors"
)

const (
	requestTimeout = 90 * time.Second

	// defaultPrompt asks for a faithful transcription, nothing else.
	// The model's chattiness is the enemy here.
	defaultPrompt = "Extract all readable text from this scanned book page. " +
		"Return only the transcribed text with no commentary. " +
		"If the page is unreadable, respond with UNREADABLE."
)

// Config holds the vision OCR provider settings.
type Config struct {
	Endpoint string  // generateContent-style endpoint URL
	APIKey   string
	Model    string
	RPS      float64 // Outbound requests per second
	Burst    int
}

// Client implements TextExtractor against a Gemini-style generateContent API.
// Outbound calls go through a token-bucket limiter and a circuit breaker so
// a struggling provider is backed off instead of hammered.
type Client struct {
	httpClient *http.Client
	endpoint   string
	apiKey     string
	model      string
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[string]
	logger     *slog.Logger
}

// NewClient creates an OCR client. An empty endpoint is allowed; the first
// extraction then fails with a configuration error instead.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	settings := gobreaker.Settings{
		Name:        "ocr",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	}
	if logger != nil {
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			logger.Warn("OCR circuit breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		}
	}

	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		endpoint:   cfg.Endpoint,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		limiter:    rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst),
		breaker:    gobreaker.NewCircuitBreaker[string](settings),
		logger:     logger,
	}
}

// Request/response shapes for the generateContent wire format.

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Role  string `json:"role"`
	Parts []part `json:"parts"`
}

type part struct {
	InlineData *inlineData `json:"inlineData,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type inlineData struct {
	Data     string `json:"data"`
	MIMEType string `json:"mimeType"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// ExtractText sends the image to the model and returns the transcription.
// Unreadable images yield FailureMarker with a nil error; only transport,
// auth, and breaker failures produce errors.
func (c *Client) ExtractText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if c.endpoint == "" {
		return "", domainerrors.OCRTransport("OCR provider is not configured", nil)
	}

	// Respect the provider's rate limit before consuming a breaker slot.
	if err := c.limiter.Wait(ctx); err != nil {
		return "", domainerrors.OCRTransport("rate limit wait canceled", err)
	}

	text, err := c.breaker.Execute(func() (string, error) {
		return c.generate(ctx, image, mimeType)
	})
	if err != nil {
		var domainErr *domainerrors.Error
		if domainerrors.As(err, &domainErr) {
			return "", err
		}
		// Breaker-open and other wrapper errors.
		return "", domainerrors.OCRTransport("text extraction unavailable", err)
	}

	if isUnreadable(text) {
		return FailureMarker, nil
	}
	return text, nil
}

// generate performs one generateContent round trip.
func (c *Client) generate(ctx context.Context, image []byte, mimeType string) (string, error) {
	reqBody := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{
					Data:     base64.StdEncoding.EncodeToString(image),
					MIMEType: mimeType,
				}},
				{Text: defaultPrompt},
			},
		}},
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", domainerrors.OCRTransport("marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url(), strings.NewReader(string(data)))
	if err != nil {
		return "", domainerrors.OCRTransport("create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domainerrors.OCRTransport("OCR provider unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", domainerrors.OCRTransport(
			fmt.Sprintf("OCR provider returned status %d", resp.StatusCode),
			fmt.Errorf("response: %s", body),
		)
	}

	var result generateResponse
	if err := json.UnmarshalRead(resp.Body, &result); err != nil {
		return "", domainerrors.OCRTransport("parse response", err)
	}

	// An empty candidate list is a recognition failure, not a transport one.
	if len(result.Candidates) == 0 || len(result.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}

	var sb strings.Builder
	for _, p := range result.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return strings.TrimSpace(sb.String()), nil
}

// url builds the model-specific generateContent URL.
func (c *Client) url() string {
	return fmt.Sprintf("%s/models/%s:generateContent", c.endpoint, c.model)
}

// isUnreadable reports whether the model's answer means it gave up.
func isUnreadable(text string) bool {
	if text == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(text), "UNREADABLE")
}
