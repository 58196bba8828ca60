package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kdimtricp/signlang/internal/models"
)

const (
	DefaultEndpoint = "https://louisljz-bisindo-sign-lang-recog.hf.space"
	DefaultTimeout  = 60 * time.Second

	maxErrorBody = 512
)

// Classifier labels the clip stored at a retrievable URL.
type Classifier interface {
	Classify(ctx context.Context, url string) (*models.InferenceResult, error)
}

type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ Classifier = (*Client)(nil)

func NewClient(endpoint string, timeout time.Duration, logger *zap.Logger) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		endpoint: strings.TrimRight(endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type predictRequest struct {
	URL string `json:"url"`
}

type predictResponse struct {
	Label      *string  `json:"label"`
	Confidence *float64 `json:"confidence"`
}

// Classify sends one POST /predict request. Any failure maps to
// models.ErrInferenceFailed; nothing is retried.
func (c *Client) Classify(ctx context.Context, url string) (*models.InferenceResult, error) {
	if strings.TrimSpace(url) == "" {
		return nil, models.Wrap(models.ErrPrecondition, "classify without url", nil)
	}

	jsonData, err := json.Marshal(predictRequest{URL: url})
	if err != nil {
		return nil, models.Wrap(models.ErrInferenceFailed, "marshal request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+"/predict", bytes.NewReader(jsonData))
	if err != nil {
		return nil, models.Wrap(models.ErrInferenceFailed, "create request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, models.Wrap(models.ErrInferenceFailed, "make request", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, models.Wrap(models.ErrInferenceFailed,
			fmt.Sprintf("endpoint returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body))), nil)
	}

	var predictResp predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&predictResp); err != nil {
		return nil, models.Wrap(models.ErrInferenceFailed, "decode response", err)
	}

	if predictResp.Label == nil || predictResp.Confidence == nil {
		return nil, models.Wrap(models.ErrInferenceFailed, "response missing label or confidence", nil)
	}
	confidence := *predictResp.Confidence
	if confidence < 0 || confidence > 1 {
		return nil, models.Wrap(models.ErrInferenceFailed, fmt.Sprintf("confidence %v out of range", confidence), nil)
	}

	c.logger.Debug("classified clip",
		zap.String("label", *predictResp.Label),
		zap.Float64("confidence", confidence),
		zap.Duration("elapsed", time.Since(started)))

	return &models.InferenceResult{
		Label:      *predictResp.Label,
		Confidence: confidence,
	}, nil
}
