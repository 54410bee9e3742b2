package client

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"graphload/pkg/config"
	"graphload/pkg/errors"
	"graphload/pkg/graph"
	"graphload/pkg/logger"
	"graphload/pkg/retry"
)

// Client is an HTTP client for the graph server's REST API.
type Client struct {
	httpClient  *http.Client
	headers     map[string]string
	baseURL     string
	graphName   string
	logger      logger.Logger
	retrier     *retry.Retrier
	retryConfig *config.RetryConfig
}

// NewClient creates a graph server client from connection settings.
func NewClient(cfg *config.GraphConfig, log logger.Logger) *Client {
	return NewClientWithConfig(cfg, nil, log)
}

// NewClientWithConfig creates a graph server client with explicit retry
// behavior for batch submissions. A nil retry configuration falls back to
// the package defaults.
func NewClientWithConfig(cfg *config.GraphConfig, retryCfg *config.RetryConfig, log logger.Logger) *Client {
	// Use default logger if none provided
	if log == nil {
		log = logger.GetLogger()
	}

	c := &Client{
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		headers: map[string]string{
			"Accept":     "application/json",
			"User-Agent": "graphload/1.0",
		},
		baseURL:     BuildBaseURL(cfg.Host, cfg.Port),
		graphName:   cfg.Name,
		logger:      log,
		retrier:     newRetrier(retryCfg, log),
		retryConfig: retryCfg,
	}

	if cfg.Username != "" {
		c.UseBasicAuth(cfg.Username, cfg.Token)
	} else if cfg.Token != "" {
		c.UseBearerToken(cfg.Token)
	}

	return c
}

// newRetrier translates the retry settings into a retry executor.
func newRetrier(retryCfg *config.RetryConfig, log logger.Logger) *retry.Retrier {
	cfg := retry.DefaultConfig()
	cfg.Logger = log

	if retryCfg != nil {
		cfg.MaxAttempts = retryCfg.MaxAttempts

		jitter := 0.0
		if retryCfg.Jitter {
			jitter = 0.1
		}
		cfg.Backoff = &retry.ExponentialBackoff{
			BaseDelay:    retryCfg.InitialDelay,
			MaxDelay:     retryCfg.MaxDelay,
			Multiplier:   retryCfg.Multiplier,
			JitterFactor: jitter,
		}
	}

	return retry.NewRetrier(cfg)
}

// GraphName returns the graph this client writes into.
func (c *Client) GraphName() string {
	return c.graphName
}

// SetHeader sets a custom header for the client
func (c *Client) SetHeader(key, value string) {
	c.headers[key] = value
}

// SetHeaders sets multiple headers at once
func (c *Client) SetHeaders(headers map[string]string) {
	for key, value := range headers {
		c.headers[key] = value
	}
}

// UseBasicAuth authorizes every request with the given username and secret.
func (c *Client) UseBasicAuth(username, secret string) {
	token := base64.StdEncoding.EncodeToString([]byte(username + ":" + secret))
	c.SetHeader("Authorization", "Basic "+token)
}

// UseBearerToken authorizes every request with the given bearer token.
func (c *Client) UseBearerToken(token string) {
	c.SetHeader("Authorization", "Bearer "+token)
}

// doRequest performs an HTTP request with the configured headers
func (c *Client) doRequest(req *http.Request) (*http.Response, error) {
	// Set all headers
	for key, value := range c.headers {
		req.Header.Set(key, value)
	}

	// Log the request
	start := time.Now()
	c.logger.DebugWithFields("sending HTTP request", map[string]interface{}{
		"method": req.Method,
		"url":    req.URL.String(),
	})

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		c.logger.ErrorWithFields("HTTP request failed", map[string]interface{}{
			"method":   req.Method,
			"url":      req.URL.String(),
			"error":    err.Error(),
			"duration": duration,
		})
		return nil, &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("network error: %v", err),
			Code:    0,
		}
	}

	// Log successful response
	c.logger.DebugWithFields("HTTP request completed", map[string]interface{}{
		"method":   req.Method,
		"url":      req.URL.String(),
		"status":   resp.StatusCode,
		"duration": duration,
	})

	return resp, nil
}

// doRequestWithRetry performs an HTTP request, retrying retryable failures
// according to the configured retry policy. The request body is rewound
// before every repeated attempt.
func (c *Client) doRequestWithRetry(req *http.Request) (*http.Response, error) {
	var resp *http.Response

	err := c.retrier.Do(func() error {
		if req.Body != nil && req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return &errors.Error{
					Type:    errors.ErrorTypeUnknown,
					Message: fmt.Sprintf("failed to rewind request body: %v", err),
				}
			}
			req.Body = body
		}

		r, err := c.doRequest(req)
		if err != nil {
			return err
		}

		if err := c.checkResponseStatus(r); err != nil {
			r.Body.Close()
			return err
		}

		resp = r
		return nil
	})
	if err != nil {
		return nil, err
	}

	return resp, nil
}

// Get performs a GET request to the specified URL
func (c *Client) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest("GET", url, nil)
	if err != nil {
		return nil, &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
			Code:    0,
		}
	}

	return c.doRequest(req)
}

// GetJSON performs a GET request and decodes the JSON response
func (c *Client) GetJSON(url string, target interface{}) error {
	resp, err := c.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Check status code
	if err := c.checkResponseStatus(resp); err != nil {
		return err
	}

	// Read response body
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	// Decode JSON
	if err := json.Unmarshal(body, target); err != nil {
		// Create a preview of the body for debugging
		bodyPreview := string(body)
		if len(bodyPreview) > 200 {
			bodyPreview = bodyPreview[:200] + "..."
		}

		c.logger.ErrorWithFields("failed to parse JSON response", map[string]interface{}{
			"url":          url,
			"status":       resp.StatusCode,
			"error":        err.Error(),
			"body_preview": bodyPreview,
		})
		return &errors.Error{
			Type:    errors.ErrorTypeParse,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// postJSON performs a POST request with a JSON payload and decodes the JSON
// response. Retryable failures are retried with the request body rewound.
func (c *Client) postJSON(url string, payload interface{}, target interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to encode request body: %v", err),
		}
	}

	req, err := http.NewRequest("POST", url, bytes.NewReader(body))
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("failed to create request: %v", err),
		}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.doRequestWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if target == nil {
		return nil
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeNetwork,
			Message: fmt.Sprintf("failed to read response body: %v", err),
			Code:    resp.StatusCode,
		}
	}

	if err := json.Unmarshal(respBody, target); err != nil {
		return &errors.Error{
			Type:    errors.ErrorTypeParse,
			Message: fmt.Sprintf("failed to parse JSON: %v", err),
			Code:    resp.StatusCode,
		}
	}

	return nil
}

// checkResponseStatus checks the HTTP response status and returns appropriate errors
func (c *Client) checkResponseStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.logger.WarnWithFields("authentication error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeAuth,
			Message: "authentication required",
			Code:    resp.StatusCode,
		}
	case http.StatusNotFound:
		c.logger.WarnWithFields("resource not found", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeNotFound,
			Message: "resource not found",
			Code:    resp.StatusCode,
		}
	case http.StatusTooManyRequests:
		c.logger.WarnWithFields("rate limit exceeded", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeRateLimit,
			Message: "rate limit exceeded",
			Code:    resp.StatusCode,
		}
	default:
		if resp.StatusCode >= 500 {
			c.logger.ErrorWithFields("server error", map[string]interface{}{
				"status": resp.StatusCode,
				"url":    resp.Request.URL.String(),
			})
			return &errors.Error{
				Type:    errors.ErrorTypeServer,
				Message: "server error",
				Code:    resp.StatusCode,
			}
		}

		c.logger.ErrorWithFields("unexpected API error", map[string]interface{}{
			"status": resp.StatusCode,
			"url":    resp.Request.URL.String(),
		})
		return &errors.Error{
			Type:    errors.ErrorTypeUnknown,
			Message: fmt.Sprintf("unexpected status code: %d", resp.StatusCode),
			Code:    resp.StatusCode,
		}
	}
}

// VersionResponse is the server's answer to a version probe.
type VersionResponse struct {
	Versions struct {
		API     string `json:"api"`
		Core    string `json:"core"`
		Gremlin string `json:"gremlin"`
		Version string `json:"version"`
	} `json:"versions"`
}

// Version fetches the server's API version. Used as a connectivity and
// credential check before any batch is submitted.
func (c *Client) Version() (*VersionResponse, error) {
	url := c.baseURL + VersionEndpoint

	c.logger.DebugWithFields("checking server version", map[string]interface{}{
		"url": url,
	})

	var response VersionResponse
	if err := c.GetJSON(url, &response); err != nil {
		c.logger.ErrorWithFields("failed to check server version", map[string]interface{}{
			"url":   url,
			"error": err.Error(),
		})
		return nil, err
	}

	return &response, nil
}

// InsertBatch submits a batch of elements of one kind and returns the number
// of elements the server acknowledged. An empty batch is a no-op.
func (c *Client) InsertBatch(kind graph.Kind, elements []graph.Element) (int, error) {
	if len(elements) == 0 {
		return 0, nil
	}

	url := c.baseURL + BatchEndpoint(c.graphName, kind)

	c.logger.DebugWithFields("submitting batch", map[string]interface{}{
		"kind":  kind.String(),
		"size":  len(elements),
		"graph": c.graphName,
	})

	var ids []interface{}
	if err := c.postJSON(url, elements, &ids); err != nil {
		c.logger.ErrorWithFields("batch submission failed", map[string]interface{}{
			"kind":  kind.String(),
			"size":  len(elements),
			"error": err.Error(),
		})
		return 0, err
	}

	c.logger.DebugWithFields("batch acknowledged", map[string]interface{}{
		"kind":     kind.String(),
		"inserted": len(ids),
	})

	return len(ids), nil
}

// Close releases idle connections held by the underlying HTTP client.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
