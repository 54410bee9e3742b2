package client

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"graphload/pkg/config"
	"graphload/pkg/errors"
	"graphload/pkg/graph"
	"graphload/pkg/logger"
)

func testGraphConfig(serverURL string) *config.GraphConfig {
	return &config.GraphConfig{
		Name:    "example",
		Host:    serverURL,
		Timeout: 30 * time.Second,
	}
}

func fastRetryConfig(maxAttempts int) *config.RetryConfig {
	return &config.RetryConfig{
		MaxAttempts:  maxAttempts,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     50 * time.Millisecond,
		Multiplier:   2.0,
	}
}

func sampleVertices() []graph.Element {
	return []graph.Element{
		&graph.Vertex{ID: "alice", Label: "person", Properties: map[string]any{"age": 29}},
		&graph.Vertex{ID: "bob", Label: "person", Properties: map[string]any{"age": 31}},
	}
}

func TestNewClient(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("basic fields", func(t *testing.T) {
		c := NewClient(testGraphConfig("http://localhost:8080"), log)

		assert.NotNil(t, c.httpClient)
		assert.NotNil(t, c.headers)
		assert.Equal(t, "http://localhost:8080", c.baseURL)
		assert.Equal(t, "example", c.GraphName())
		assert.NotNil(t, c.retrier)
	})

	t.Run("basic auth from config", func(t *testing.T) {
		cfg := testGraphConfig("localhost")
		cfg.Port = 8080
		cfg.Username = "admin"
		cfg.Token = "secret"

		c := NewClient(cfg, log)
		assert.Equal(t, "http://localhost:8080", c.baseURL)
		assert.Contains(t, c.headers["Authorization"], "Basic ")
	})

	t.Run("bearer token from config", func(t *testing.T) {
		cfg := testGraphConfig("localhost")
		cfg.Token = "secret"

		c := NewClient(cfg, log)
		assert.Equal(t, "Bearer secret", c.headers["Authorization"])
	})

	t.Run("with retry config", func(t *testing.T) {
		retryCfg := fastRetryConfig(5)
		c := NewClientWithConfig(testGraphConfig("localhost"), retryCfg, log)

		assert.NotNil(t, c.retrier)
		assert.Equal(t, retryCfg, c.retryConfig)
	})

	t.Run("with nil retry config", func(t *testing.T) {
		c := NewClientWithConfig(testGraphConfig("localhost"), nil, log)

		assert.NotNil(t, c.retrier)
		assert.Nil(t, c.retryConfig)
	})
}

func TestSetHeaders(t *testing.T) {
	c := NewClient(testGraphConfig("localhost"), logger.NewTestLogger())

	t.Run("SetHeader", func(t *testing.T) {
		c.SetHeader("X-Custom-Header", "test-value")
		assert.Equal(t, "test-value", c.headers["X-Custom-Header"])
	})

	t.Run("SetHeaders", func(t *testing.T) {
		headers := map[string]string{
			"X-Header-1": "value1",
			"X-Header-2": "value2",
		}
		c.SetHeaders(headers)
		assert.Equal(t, "value1", c.headers["X-Header-1"])
		assert.Equal(t, "value2", c.headers["X-Header-2"])
	})
}

func TestCheckResponseStatus(t *testing.T) {
	c := NewClient(testGraphConfig("localhost"), logger.NewTestLogger())

	tests := []struct {
		name         string
		statusCode   int
		expectedType errors.ErrorType
	}{
		{
			name:       "200 OK",
			statusCode: http.StatusOK,
		},
		{
			name:       "201 Created",
			statusCode: http.StatusCreated,
		},
		{
			name:         "401 Unauthorized",
			statusCode:   http.StatusUnauthorized,
			expectedType: errors.ErrorTypeAuth,
		},
		{
			name:         "403 Forbidden",
			statusCode:   http.StatusForbidden,
			expectedType: errors.ErrorTypeAuth,
		},
		{
			name:         "404 Not Found",
			statusCode:   http.StatusNotFound,
			expectedType: errors.ErrorTypeNotFound,
		},
		{
			name:         "429 Too Many Requests",
			statusCode:   http.StatusTooManyRequests,
			expectedType: errors.ErrorTypeRateLimit,
		},
		{
			name:         "500 Internal Server Error",
			statusCode:   http.StatusInternalServerError,
			expectedType: errors.ErrorTypeServer,
		},
		{
			name:         "503 Service Unavailable",
			statusCode:   http.StatusServiceUnavailable,
			expectedType: errors.ErrorTypeServer,
		},
		{
			name:         "400 Bad Request",
			statusCode:   http.StatusBadRequest,
			expectedType: errors.ErrorTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, _ := http.NewRequest("GET", "http://example.com", nil)
			resp := &http.Response{
				StatusCode: tt.statusCode,
				Request:    req,
			}

			err := c.checkResponseStatus(resp)
			if tt.expectedType == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				var apiErr *errors.Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.expectedType, apiErr.Type)
				assert.Equal(t, tt.statusCode, apiErr.Code)
			}
		})
	}
}

func TestVersion(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("successful probe", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "GET", r.Method)
			assert.Equal(t, VersionEndpoint, r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"versions":{"api":"0.69","core":"1.0.0","gremlin":"3.5.1","version":"1.0"}}`))
		}))
		defer server.Close()

		c := NewClient(testGraphConfig(server.URL), log)
		version, err := c.Version()
		require.NoError(t, err)
		assert.Equal(t, "0.69", version.Versions.API)
		assert.Equal(t, "1.0", version.Versions.Version)
	})

	t.Run("rejected credentials", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewClient(testGraphConfig(server.URL), log)
		_, err := c.Version()
		require.Error(t, err)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeAuth, apiErr.Type)
	})

	t.Run("unreachable server", func(t *testing.T) {
		cfg := testGraphConfig("http://127.0.0.1:1")
		cfg.Timeout = time.Second

		c := NewClient(cfg, log)
		_, err := c.Version()
		require.Error(t, err)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeNetwork, apiErr.Type)
	})
}

func TestInsertBatch(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("vertices", func(t *testing.T) {
		var gotPath, gotContentType string
		var gotBody []map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotContentType = r.Header.Get("Content-Type")
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			w.Write([]byte(`["1:alice","1:bob"]`))
		}))
		defer server.Close()

		c := NewClient(testGraphConfig(server.URL), log)
		inserted, err := c.InsertBatch(graph.KindVertex, sampleVertices())
		require.NoError(t, err)

		assert.Equal(t, 2, inserted)
		assert.Equal(t, "/apis/graphs/example/graph/vertices/batch", gotPath)
		assert.Equal(t, "application/json", gotContentType)
		require.Len(t, gotBody, 2)
		assert.Equal(t, "alice", gotBody[0]["id"])
		assert.Equal(t, "person", gotBody[0]["label"])
	})

	t.Run("edges", func(t *testing.T) {
		var gotPath string
		var gotBody []map[string]any

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
			w.Write([]byte(`["e1"]`))
		}))
		defer server.Close()

		c := NewClient(testGraphConfig(server.URL), log)
		edges := []graph.Element{
			&graph.Edge{Label: "created", Source: "alice", Target: "lop", Properties: map[string]any{"weight": 0.4}},
		}
		inserted, err := c.InsertBatch(graph.KindEdge, edges)
		require.NoError(t, err)

		assert.Equal(t, 1, inserted)
		assert.Equal(t, "/apis/graphs/example/graph/edges/batch", gotPath)
		require.Len(t, gotBody, 1)
		assert.Equal(t, "alice", gotBody[0]["outV"])
		assert.Equal(t, "lop", gotBody[0]["inV"])
	})

	t.Run("empty batch skips the request", func(t *testing.T) {
		requests := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requests++
		}))
		defer server.Close()

		c := NewClient(testGraphConfig(server.URL), log)
		inserted, err := c.InsertBatch(graph.KindVertex, nil)
		require.NoError(t, err)
		assert.Equal(t, 0, inserted)
		assert.Equal(t, 0, requests)
	})

	t.Run("auth header forwarded", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, secret, ok := r.BasicAuth()
			assert.True(t, ok)
			assert.Equal(t, "admin", username)
			assert.Equal(t, "s3cret", secret)
			w.Write([]byte(`["1:alice","1:bob"]`))
		}))
		defer server.Close()

		cfg := testGraphConfig(server.URL)
		cfg.Username = "admin"
		cfg.Token = "s3cret"

		c := NewClient(cfg, log)
		_, err := c.InsertBatch(graph.KindVertex, sampleVertices())
		require.NoError(t, err)
	})

	t.Run("error mapping", func(t *testing.T) {
		tests := []struct {
			name         string
			statusCode   int
			expectedType errors.ErrorType
		}{
			{"auth", http.StatusUnauthorized, errors.ErrorTypeAuth},
			{"not found", http.StatusNotFound, errors.ErrorTypeNotFound},
			{"bad request", http.StatusBadRequest, errors.ErrorTypeUnknown},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(tt.statusCode)
				}))
				defer server.Close()

				c := NewClient(testGraphConfig(server.URL), log)
				_, err := c.InsertBatch(graph.KindVertex, sampleVertices())
				require.Error(t, err)

				var apiErr *errors.Error
				require.ErrorAs(t, err, &apiErr)
				assert.Equal(t, tt.expectedType, apiErr.Type)
			})
		}
	})
}

func TestInsertBatchRetry(t *testing.T) {
	log := logger.NewTestLogger()

	t.Run("retry on server error", func(t *testing.T) {
		attempts := 0
		var bodies []string

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			body, _ := io.ReadAll(r.Body)
			bodies = append(bodies, string(body))
			if attempts < 3 {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			w.Write([]byte(`["1:alice","1:bob"]`))
		}))
		defer server.Close()

		c := NewClientWithConfig(testGraphConfig(server.URL), fastRetryConfig(3), log)
		inserted, err := c.InsertBatch(graph.KindVertex, sampleVertices())
		require.NoError(t, err)

		assert.Equal(t, 2, inserted)
		assert.Equal(t, 3, attempts)

		// Every attempt must carry the full payload again.
		require.Len(t, bodies, 3)
		assert.NotEmpty(t, bodies[0])
		assert.Equal(t, bodies[0], bodies[1])
		assert.Equal(t, bodies[0], bodies[2])
	})

	t.Run("retry on rate limit", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			if attempts < 2 {
				w.WriteHeader(http.StatusTooManyRequests)
				return
			}
			w.Write([]byte(`["1:alice","1:bob"]`))
		}))
		defer server.Close()

		c := NewClientWithConfig(testGraphConfig(server.URL), fastRetryConfig(3), log)
		inserted, err := c.InsertBatch(graph.KindVertex, sampleVertices())
		require.NoError(t, err)
		assert.Equal(t, 2, inserted)
		assert.Equal(t, 2, attempts)
	})

	t.Run("no retry on auth error", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusUnauthorized)
		}))
		defer server.Close()

		c := NewClientWithConfig(testGraphConfig(server.URL), fastRetryConfig(3), log)
		_, err := c.InsertBatch(graph.KindVertex, sampleVertices())
		require.Error(t, err)
		assert.Equal(t, 1, attempts)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeAuth, apiErr.Type)
	})

	t.Run("attempts exhausted", func(t *testing.T) {
		attempts := 0
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			attempts++
			w.WriteHeader(http.StatusServiceUnavailable)
		}))
		defer server.Close()

		c := NewClientWithConfig(testGraphConfig(server.URL), fastRetryConfig(2), log)
		_, err := c.InsertBatch(graph.KindVertex, sampleVertices())
		require.Error(t, err)
		assert.Equal(t, 2, attempts)

		var apiErr *errors.Error
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, errors.ErrorTypeServer, apiErr.Type)
	})
}
