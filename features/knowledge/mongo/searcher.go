// Package mongo hosts the MongoDB-backed knowledge base searcher used for
// value framing. Knowledge snippets live in a single collection with a text
// index; searches rank by text score and report a relevance in [0,1]
// normalized against the best hit of the result set.
package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"goa.design/clue/health"

	"github.com/presswerk/presswerk/runtime/enrich"
)

const (
	defaultKnowledgeCollection = "knowledge_snippets"
	defaultOpTimeout           = 5 * time.Second
	defaultSearchLimit         = 20
	knowledgeClientName        = "knowledge-mongo"
)

type (
	// Searcher implements enrich.KnowledgeSearcher on top of MongoDB text
	// search. It also exposes a health.Pinger for readiness checks.
	Searcher struct {
		mongo   *mongodriver.Client
		coll    *mongodriver.Collection
		timeout time.Duration
	}

	// Options configures the Mongo knowledge searcher.
	Options struct {
		Client     *mongodriver.Client
		Database   string
		Collection string
		Timeout    time.Duration
	}

	snippetDocument struct {
		Source     string         `bson:"source"`
		Collection string         `bson:"collection"`
		Text       string         `bson:"text"`
		Meta       map[string]any `bson:"meta,omitempty"`
		Score      float64        `bson:"score"`
	}
)

var _ health.Pinger = (*Searcher)(nil)

// New returns a Searcher backed by MongoDB. It ensures the text index the
// searches depend on.
func New(ctx context.Context, opts Options) (*Searcher, error) {
	if opts.Client == nil {
		return nil, errors.New("mongo client is required")
	}
	if opts.Database == "" {
		return nil, errors.New("database name is required")
	}
	collName := opts.Collection
	if collName == "" {
		collName = defaultKnowledgeCollection
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultOpTimeout
	}
	coll := opts.Client.Database(opts.Database).Collection(collName)
	idxCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := ensureIndexes(idxCtx, coll); err != nil {
		return nil, err
	}
	return &Searcher{mongo: opts.Client, coll: coll, timeout: timeout}, nil
}

func (s *Searcher) Name() string { return knowledgeClientName }

func (s *Searcher) Ping(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	return s.mongo.Ping(ctx, readpref.Primary())
}

// Search runs a text search over the knowledge collection and returns hits
// ordered by descending relevance.
func (s *Searcher) Search(ctx context.Context, query string, opts enrich.SearchOptions) ([]enrich.Hit, error) {
	if query == "" {
		return nil, nil
	}
	limit := opts.Limit
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	filter := bson.M{"$text": bson.M{"$search": query}}
	if len(opts.Collections) > 0 {
		filter["collection"] = bson.M{"$in": opts.Collections}
	}
	findOpts := options.Find().
		SetProjection(bson.M{
			"source":     1,
			"collection": 1,
			"text":       1,
			"meta":       1,
			"score":      bson.M{"$meta": "textScore"},
		}).
		SetSort(bson.D{{Key: "score", Value: bson.M{"$meta": "textScore"}}}).
		SetLimit(int64(limit))

	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	cur, err := s.coll.Find(ctx, filter, findOpts)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = cur.Close(ctx)
	}()

	var docs []snippetDocument
	for cur.Next(ctx) {
		var doc snippetDocument
		if err := cur.Decode(&doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := cur.Err(); err != nil {
		return nil, err
	}
	return toHits(docs, opts.Threshold), nil
}

// Add stores a knowledge snippet. Exposed for ingestion tooling and tests.
func (s *Searcher) Add(ctx context.Context, source, collection, text string, meta map[string]any) error {
	if text == "" {
		return errors.New("snippet text is required")
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	_, err := s.coll.InsertOne(ctx, snippetDocument{
		Source:     source,
		Collection: collection,
		Text:       text,
		Meta:       meta,
	})
	return err
}

func (s *Searcher) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if ctx == nil {
		ctx = context.Background()
	}
	if s.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.timeout)
}

// toHits converts score-ordered documents into hits. Text scores are
// unbounded, so relevance is normalized against the top score; the first hit
// always carries relevance 1.0. Threshold filtering happens downstream as
// well, but dropping here keeps payloads small.
func toHits(docs []snippetDocument, threshold float64) []enrich.Hit {
	if len(docs) == 0 {
		return nil
	}
	top := docs[0].Score
	if top <= 0 {
		top = 1
	}
	hits := make([]enrich.Hit, 0, len(docs))
	for _, doc := range docs {
		rel := doc.Score / top
		if rel < threshold {
			continue
		}
		hits = append(hits, enrich.Hit{
			Source:     doc.Source,
			Collection: doc.Collection,
			Relevance:  rel,
			Text:       doc.Text,
			Meta:       doc.Meta,
		})
	}
	return hits
}

func ensureIndexes(ctx context.Context, coll *mongodriver.Collection) error {
	textIndex := mongodriver.IndexModel{
		Keys: bson.D{{Key: "text", Value: "text"}},
	}
	if _, err := coll.Indexes().CreateOne(ctx, textIndex); err != nil {
		return err
	}
	collectionIndex := mongodriver.IndexModel{
		Keys: bson.D{{Key: "collection", Value: 1}},
	}
	_, err := coll.Indexes().CreateOne(ctx, collectionIndex)
	return err
}
