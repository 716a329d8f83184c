// Package adapter defines the research adapter boundary: the interface the
// orchestrator consumes plus HTTP-backed and fixture-backed implementations.
package adapter

import (
	"context"

	"github.com/veldworks/enrich-cli/internal/model"
)

// Adapter supplies externally researched contact data for one organisation.
// Lookup failures are per-row recoverable: the orchestrator counts them and
// proceeds with an empty finding, never aborting the run.
type Adapter interface {
	Lookup(ctx context.Context, name, province string) (model.Finding, error)
}
