package embed

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
)

// ClientOptions configure the HTTP embedding client.
type ClientOptions struct {
	BaseURL   string // endpoint root, e.g. https://api.openai.com/v1
	APIKey    string
	Model     string
	Dimension int // expected vector length; mismatches fail fast
	Timeout   time.Duration
	MaxRetry  int
}

// Client calls an OpenAI-compatible embeddings endpoint. Transient errors are
// retried with backoff; a circuit breaker stops hammering a collaborator that
// is systemically down.
type Client struct {
	http    *retryablehttp.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string
	apiKey  string
	model   string
	dim     int
}

// NewClient creates an embedding client.
func NewClient(opts ClientOptions) *Client {
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.MaxRetry == 0 {
		opts.MaxRetry = 2
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.MaxRetry
	rc.HTTPClient.Timeout = opts.Timeout
	rc.Logger = nil

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "embeddings",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})

	return &Client{
		http:    rc,
		breaker: breaker,
		baseURL: opts.BaseURL,
		apiKey:  opts.APIKey,
		model:   opts.Model,
		dim:     opts.Dimension,
	}
}

// Embed returns the vector for a single text. Errors come back as
// *UnavailableError (service trouble) or *DimensionError (contract violation).
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	out, err := c.breaker.Execute(func() (any, error) {
		return c.embed(ctx, text)
	})
	if err != nil {
		var dimErr *DimensionError
		if errors.As(err, &dimErr) {
			return nil, dimErr
		}
		return nil, &UnavailableError{Key: truncate(text, 40), Err: err}
	}
	return out.([]float64), nil
}

func (c *Client) embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embeddingRequest{Input: []string{text}, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("api error (status %d): %s", resp.StatusCode, truncate(string(raw), 200))
	}

	var apiResp embeddingResponse
	if err := json.Unmarshal(raw, &apiResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if len(apiResp.Data) == 0 {
		return nil, fmt.Errorf("empty embedding response")
	}

	vec := apiResp.Data[0].Embedding
	if c.dim > 0 && len(vec) != c.dim {
		return nil, &DimensionError{Want: c.dim, Got: len(vec)}
	}
	return vec, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

type embeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}
