package prompt

import (
	"fmt"
	"strings"

	"github.com/presswerk/presswerk/runtime/model"
)

// buildDocumentMessage renders the document references into a single user
// message of typed content blocks. Returns nil when no document yields a
// block. Text documents that originate from crawling a URL get a synthesized
// attribution prefix so their provenance survives once the assembled prompt
// leaves the process and the structured metadata is gone.
func buildDocumentMessage(docs []Document) *model.Message {
	if len(docs) == 0 {
		return nil
	}
	parts := make([]model.Part, 0, len(docs))
	for _, doc := range docs {
		switch doc.Kind {
		case DocumentKindText:
			text := strings.TrimSpace(doc.Text)
			if text == "" {
				continue
			}
			if doc.Crawled {
				text = crawlAttribution(doc) + "\n" + text
			}
			parts = append(parts, model.TextPart{Text: text})
		case DocumentKindImage:
			parts = append(parts, model.ImagePart{
				MediaType: doc.MediaType,
				URL:       doc.URL,
				Data:      doc.Data,
			})
		case DocumentKindFile:
			parts = append(parts, model.DocumentPart{
				Name:      doc.Name,
				MediaType: doc.MediaType,
				URL:       doc.URL,
				Data:      doc.Data,
			})
		}
	}
	if len(parts) == 0 {
		return nil
	}
	return &model.Message{Role: model.ConversationRoleUser, Parts: parts}
}

func crawlAttribution(doc Document) string {
	title := doc.CrawlTitle
	if title == "" {
		title = doc.Name
	}
	return fmt.Sprintf("[Source: %s - %s]", title, doc.CrawlURL)
}
