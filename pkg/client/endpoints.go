package client

import (
	"fmt"
	"strings"

	"graphload/pkg/graph"
)

const (
	// VersionEndpoint reports the server's API version, used for
	// connectivity checks before a load starts.
	VersionEndpoint = "/apis/version"

	// verticesBatchPattern is the endpoint pattern for vertex batch inserts
	verticesBatchPattern = "/apis/graphs/%s/graph/vertices/batch"

	// edgesBatchPattern is the endpoint pattern for edge batch inserts
	edgesBatchPattern = "/apis/graphs/%s/graph/edges/batch"
)

// BuildBaseURL constructs the server base URL from host and port.
// The host may carry an explicit scheme; without one, plain http is assumed.
func BuildBaseURL(host string, port int) string {
	host = strings.TrimRight(host, "/")
	if !strings.Contains(host, "://") {
		host = "http://" + host
	}
	if port > 0 {
		return fmt.Sprintf("%s:%d", host, port)
	}
	return host
}

// BatchEndpoint returns the batch insert path for the given element kind.
func BatchEndpoint(graphName string, kind graph.Kind) string {
	if kind == graph.KindVertex {
		return fmt.Sprintf(verticesBatchPattern, graphName)
	}
	return fmt.Sprintf(edgesBatchPattern, graphName)
}

// IsValidGraphName checks if a graph name is acceptable to the server.
// Graph names are used in URL paths and may only contain letters, numbers,
// and underscores.
func IsValidGraphName(name string) bool {
	if name == "" || len(name) > 48 {
		return false
	}

	for _, char := range name {
		if !((char >= 'a' && char <= 'z') ||
			(char >= 'A' && char <= 'Z') ||
			(char >= '0' && char <= '9') ||
			char == '_') {
			return false
		}
	}

	return true
}
