package memory

import (
	"context"
)

// Healthcheck verifies the store is operational.
//
// There are no external dependencies, so only cancellation of ctx is
// reported.
func (s *MemoryMetadataStore) Healthcheck(ctx context.Context) error {
	return ctx.Err()
}
