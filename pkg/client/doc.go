// Package client provides an HTTP client for the graph server's REST API.
//
// This package includes:
//   - Batch insert calls for vertices and edges
//   - A version probe for connectivity and credential checks
//   - Typed error mapping from HTTP status codes
//   - Retry with exponential backoff for retryable failures
//
// Example usage:
//
//	c := client.NewClient(&config.GraphConfig{
//	    Name:    "example",
//	    Host:    "localhost",
//	    Port:    8080,
//	    Timeout: 60 * time.Second,
//	}, log)
//
//	inserted, err := c.InsertBatch(graph.KindVertex, batch)
//	if err != nil {
//	    if apiErr, ok := err.(*errors.Error); ok {
//	        switch apiErr.Type {
//	        case errors.ErrorTypeAuth:
//	            // Credentials rejected, do not retry
//	        case errors.ErrorTypeRateLimit:
//	            // Server is throttling writes
//	        }
//	    }
//	}
package client
