package enrich

import (
	"context"
	"fmt"
	"strings"

	"github.com/presswerk/presswerk/runtime/telemetry"
)

// Value-framing retrieval parameters. Framing snippets bias generated
// content stylistically; they are optional and capped tightly.
const (
	framingThreshold = 0.4
	framingLimit     = 5
)

type (
	// KnowledgeSearcher is the knowledge-base query collaborator.
	KnowledgeSearcher interface {
		Search(ctx context.Context, query string, opts SearchOptions) ([]Hit, error)
	}

	// SearchOptions scopes a knowledge-base query.
	SearchOptions struct {
		// Collections restricts the search to the named collections.
		Collections []string
		// Limit caps the number of hits.
		Limit int
		// Threshold drops hits below this relevance.
		Threshold float64
	}

	// Hit is one knowledge-base search result.
	Hit struct {
		// Source names the originating document or record.
		Source string
		// Collection names the collection the hit came from.
		Collection string
		// Relevance is the normalized relevance score in [0,1].
		Relevance float64
		// Text is the snippet body.
		Text string
		// Meta carries store-specific metadata.
		Meta map[string]any
	}
)

// FetchFraming queries the knowledge base for domain-framing snippets and
// formats them as labeled sections. Failure is non-fatal: it is logged and an
// empty list is returned, because the workflow must not fail over optional
// framing enrichment.
func FetchFraming(ctx context.Context, searcher KnowledgeSearcher, logger telemetry.Logger, query string, collections []string) []string {
	if searcher == nil || strings.TrimSpace(query) == "" {
		return nil
	}
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	hits, err := searcher.Search(ctx, query, SearchOptions{
		Collections: collections,
		Limit:       framingLimit,
		Threshold:   framingThreshold,
	})
	if err != nil {
		logger.Warn(ctx, "enrich: framing search failed", "error", err)
		return nil
	}
	out := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Relevance < framingThreshold {
			continue
		}
		text := strings.TrimSpace(h.Text)
		if text == "" {
			continue
		}
		out = append(out, formatFraming(h, text))
		if len(out) >= framingLimit {
			break
		}
	}
	return out
}

func formatFraming(h Hit, text string) string {
	return fmt.Sprintf("[Quelle: %s | Sammlung: %s | Relevanz: %d%%]\n%s",
		h.Source, h.Collection, int(h.Relevance*100), text)
}
