package retrieval

import "github.com/poiesic/docchat/core"

// Monitor provides hooks to observe the retrieval process.
// Implement this interface to trace queries and hits.
type Monitor interface {
	Start(query string)
	Hit(rank int, result *core.SearchResult)
	Finish(result *core.RetrievalResult)
}

// noopMonitor is a no-op implementation of Monitor
type noopMonitor struct{}

var _ Monitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                  {}
func (n *noopMonitor) Hit(_ int, _ *core.SearchResult) {}
func (n *noopMonitor) Finish(_ *core.RetrievalResult)  {}
