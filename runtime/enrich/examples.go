package enrich

import (
	"context"
	"sync"

	"github.com/presswerk/presswerk/runtime/prompt"
	"github.com/presswerk/presswerk/runtime/telemetry"
)

// ExampleProvider retrieves stylistic examples for one platform.
type ExampleProvider interface {
	Examples(ctx context.Context, platform string, limit int) ([]prompt.Example, error)
}

// FetchExamples fetches stylistic examples for all requested platforms
// concurrently and awaits them together. Per-platform failures are logged
// and yield no examples for that platform; example retrieval is optional
// enrichment and never fails the workflow. Result order follows the
// platform order, not completion order.
func FetchExamples(ctx context.Context, provider ExampleProvider, logger telemetry.Logger, platforms []string, perPlatform int) []prompt.Example {
	if provider == nil || len(platforms) == 0 {
		return nil
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	if perPlatform <= 0 {
		perPlatform = 3
	}
	results := make([][]prompt.Example, len(platforms))
	var wg sync.WaitGroup
	for i, platform := range platforms {
		wg.Add(1)
		go func(i int, platform string) {
			defer wg.Done()
			examples, err := provider.Examples(ctx, platform, perPlatform)
			if err != nil {
				logger.Warn(ctx, "enrich: example fetch failed", "platform", platform, "error", err)
				return
			}
			results[i] = examples
		}(i, platform)
	}
	wg.Wait()
	var out []prompt.Example
	for _, r := range results {
		out = append(out, r...)
	}
	return out
}
