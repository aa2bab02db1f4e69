package provider

import (
	"context"

	"obfin-advisor/internal/models"
)

// Provider issues a single chat completion call upstream. Implementations never
// return a Go error: every outcome is reported through the tagged result.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req models.UpstreamRequest) models.UpstreamResult
}
