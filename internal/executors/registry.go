package executors

import (
	"net/http"
	"time"

	"github.com/revittco/toolrt/internal/mcpwire"
	"github.com/revittco/toolrt/internal/runspec"
)

// NewRegistry builds the runspec.ExecutorRegistry a freshly rehydrated
// inventory dispatches through, one factory per non-builtin Kind
// (spec.md §4.3 "Rehydration ... reconstruct the closure
// deterministically").
func NewRegistry(client *http.Client, pool *mcpwire.Pool) runspec.ExecutorRegistry {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return runspec.ExecutorRegistry{
		runspec.KindOpenAPI:      NewOpenAPIExecutorFactory(client),
		runspec.KindPostman:      NewPostmanExecutorFactory(client),
		runspec.KindGraphQLRaw:   NewGraphQLExecutorFactory(client),
		runspec.KindGraphQLField: NewGraphQLFieldExecutorFactory(client),
		runspec.KindMCP:          NewMCPExecutorFactory(pool),
	}
}
