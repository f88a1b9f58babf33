// Package extract implements the knowledge-extraction subsystem. When file
// attachments are present it uploads them to the file-hosting collaborator,
// issues one extraction call over the resulting references and compacts the
// answer into a knowledge capsule so the main generation call does not reason
// over raw file bytes. Extraction never loses content: any failure simply
// yields no capsule and the caller keeps the original attachments.
package extract

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/presswerk/presswerk/runtime/model"
	"github.com/presswerk/presswerk/runtime/prompt"
	"github.com/presswerk/presswerk/runtime/telemetry"
)

// MaxCapsuleChars bounds the capsule size so the assembled prompt stays
// small. Longer extraction answers are cut and marked with an ellipsis.
const MaxCapsuleChars = 1800

const (
	defaultMaxConcurrentUploads = 4
	defaultUploadTimeout        = 15 * time.Second
	defaultCallTimeout          = 15 * time.Second
	defaultMaxTokens            = 1024
)

type (
	// Uploader is the file-hosting collaborator. Upload returns a retrievable
	// URL for the stored bytes, or an empty URL when hosting is unavailable.
	Uploader interface {
		Upload(ctx context.Context, data []byte, name, mediaType string) (string, error)
	}

	// Extractor runs the extraction algorithm. It implements
	// prompt.KnowledgeExtractor.
	Extractor struct {
		uploader   Uploader
		caller     model.Client
		logger     telemetry.Logger
		maxUploads int
		uploadTO   time.Duration
		callTO     time.Duration
		maxTokens  int
		modelID    string
	}

	// Options configures an Extractor.
	Options struct {
		// Uploader hosts file attachments. Optional; without it every
		// reference becomes a data URI and extraction is skipped.
		Uploader Uploader

		// Caller issues the extraction call. Required. It has the same shape
		// as the generation service but only receives document references.
		Caller model.Client

		// Logger receives structured extraction logs. Defaults to a no-op.
		Logger telemetry.Logger

		// MaxConcurrentUploads bounds the upload fan-out. Defaults to 4.
		MaxConcurrentUploads int

		// UploadTimeout bounds each individual upload. Defaults to 15s.
		UploadTimeout time.Duration

		// CallTimeout bounds the extraction call. Defaults to 15s.
		CallTimeout time.Duration

		// MaxTokens caps the extraction completion size.
		MaxTokens int

		// Model overrides the caller's default model for extraction calls.
		Model string
	}

	// reference is one prepared document reference for the extraction call.
	reference struct {
		doc prompt.Document
		url string
	}
)

// New constructs an Extractor.
func New(opts Options) (*Extractor, error) {
	if opts.Caller == nil {
		return nil, errors.New("extract: caller is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = telemetry.NewNoopLogger()
	}
	maxUploads := opts.MaxConcurrentUploads
	if maxUploads <= 0 {
		maxUploads = defaultMaxConcurrentUploads
	}
	uploadTO := opts.UploadTimeout
	if uploadTO <= 0 {
		uploadTO = defaultUploadTimeout
	}
	callTO := opts.CallTimeout
	if callTO <= 0 {
		callTO = defaultCallTimeout
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}
	return &Extractor{
		uploader:   opts.Uploader,
		caller:     opts.Caller,
		logger:     logger,
		maxUploads: maxUploads,
		uploadTO:   uploadTO,
		callTO:     callTO,
		maxTokens:  maxTokens,
		modelID:    opts.Model,
	}, nil
}

// Extract converts the file attachments among docs into a compact knowledge
// capsule. ok reports whether a capsule was produced; when ok is false the
// caller must keep its document list unchanged. Already-crawled text
// documents are never processed.
func (e *Extractor) Extract(ctx context.Context, docs []prompt.Document, route string) (string, bool, error) {
	var files []prompt.Document
	for _, d := range docs {
		if d.IsFileAttachment() {
			files = append(files, d)
		}
	}
	if len(files) == 0 {
		return "", false, nil
	}
	// Documents resolved by a prior vector-search selection are pre-vetted;
	// re-processing them would only duplicate knowledge.
	for _, f := range files {
		if f.VectorSelected {
			e.logger.Debug(ctx, "extract: skipping, attachments were vector-selected")
			return "", false, nil
		}
	}

	refs, err := e.prepareReferences(ctx, files)
	if err != nil {
		return "", false, err
	}

	var msgs []*model.Message
	switch {
	case len(refs) == 0:
		// The upload step produced no reference at all. Fall back to passing
		// the raw attachment blocks directly to the extraction call.
		msgs = rawAttachmentMessages(files)
		if msgs == nil {
			return "", false, errors.New("extract: no usable document reference")
		}
	case allDataURIs(refs):
		// Some providers reject data URIs; calling anyway wastes a call only
		// to fail. Detect before calling, not after.
		e.logger.Info(ctx, "extract: skipping, all references are data URIs", "count", len(refs))
		return "", false, nil
	default:
		msgs = referenceMessages(refs)
	}

	question := probingQuestion(route)
	msgs = append(msgs, model.UserText(question))

	callCtx, cancel := context.WithTimeout(ctx, e.callTO)
	defer cancel()
	resp, err := e.caller.Complete(callCtx, &model.Request{
		Kind:      "extraction",
		Model:     e.modelID,
		System:    extractionSystem,
		Messages:  msgs,
		MaxTokens: e.maxTokens,
	})
	if err != nil {
		return "", false, fmt.Errorf("extract: extraction call: %w", err)
	}
	capsule := strings.TrimSpace(resp.Text)
	if capsule == "" {
		return "", false, errors.New("extract: empty extraction result")
	}
	return truncate(capsule, MaxCapsuleChars), true, nil
}

// prepareReferences uploads the file attachments concurrently, bounded by
// maxUploads. Each attachment independently prefers a hosted URL and falls
// back to a data URI when hosting fails or is unavailable. An attachment
// with neither URL nor bytes is unsupported and fails preparation.
func (e *Extractor) prepareReferences(ctx context.Context, files []prompt.Document) ([]reference, error) {
	refs := make([]reference, len(files))
	errs := make([]error, len(files))
	sem := make(chan struct{}, e.maxUploads)
	var wg sync.WaitGroup
	for i, f := range files {
		wg.Add(1)
		go func(i int, f prompt.Document) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			url, err := e.prepareReference(ctx, f)
			refs[i] = reference{doc: f, url: url}
			errs[i] = err
		}(i, f)
	}
	wg.Wait()
	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}
	out := make([]reference, 0, len(refs))
	for _, r := range refs {
		if r.url != "" {
			out = append(out, r)
		}
	}
	return out, nil
}

func (e *Extractor) prepareReference(ctx context.Context, f prompt.Document) (string, error) {
	if isHTTPURL(f.URL) || isDataURI(f.URL) {
		return f.URL, nil
	}
	if len(f.Data) == 0 {
		if f.URL != "" {
			return "", fmt.Errorf("extract: unsupported reference %q", f.URL)
		}
		// No URL and no bytes: nothing to prepare for this attachment.
		return "", nil
	}
	if e.uploader != nil {
		upCtx, cancel := context.WithTimeout(ctx, e.uploadTO)
		url, err := e.uploader.Upload(upCtx, f.Data, f.Name, f.MediaType)
		cancel()
		if err != nil {
			e.logger.Warn(ctx, "extract: upload failed, embedding as data URI", "name", f.Name, "error", err)
		} else if url != "" {
			return url, nil
		}
	}
	return dataURI(f.Data, f.MediaType), nil
}

func referenceMessages(refs []reference) []*model.Message {
	parts := make([]model.Part, 0, len(refs))
	for _, r := range refs {
		if r.doc.Kind == prompt.DocumentKindImage {
			parts = append(parts, model.ImagePart{MediaType: r.doc.MediaType, URL: r.url})
			continue
		}
		parts = append(parts, model.DocumentPart{Name: r.doc.Name, MediaType: r.doc.MediaType, URL: r.url})
	}
	return []*model.Message{{Role: model.ConversationRoleUser, Parts: parts}}
}

func rawAttachmentMessages(files []prompt.Document) []*model.Message {
	parts := make([]model.Part, 0, len(files))
	for _, f := range files {
		if len(f.Data) == 0 {
			continue
		}
		if f.Kind == prompt.DocumentKindImage {
			parts = append(parts, model.ImagePart{MediaType: f.MediaType, Data: f.Data})
			continue
		}
		parts = append(parts, model.DocumentPart{Name: f.Name, MediaType: f.MediaType, Data: f.Data})
	}
	if len(parts) == 0 {
		return nil
	}
	return []*model.Message{{Role: model.ConversationRoleUser, Parts: parts}}
}

func allDataURIs(refs []reference) bool {
	for _, r := range refs {
		if !isDataURI(r.url) {
			return false
		}
	}
	return len(refs) > 0
}

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

func isDataURI(s string) bool {
	return strings.HasPrefix(s, "data:")
}

func dataURI(data []byte, mediaType string) string {
	if mediaType == "" {
		mediaType = "application/octet-stream"
	}
	return "data:" + mediaType + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// truncate cuts s to at most limit runes, appending an ellipsis marker when
// content was dropped.
func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
