package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	mongooptions "go.mongodb.org/mongo-driver/v2/mongo/options"

	"goa.design/clue/health"
	"goa.design/clue/log"

	"github.com/presswerk/presswerk/features/filehost/mongo"
	knowledgemongo "github.com/presswerk/presswerk/features/knowledge/mongo"
	"github.com/presswerk/presswerk/features/model/anthropic"
	"github.com/presswerk/presswerk/features/model/middleware"
	"github.com/presswerk/presswerk/features/model/openai"
	sessionredis "github.com/presswerk/presswerk/features/session/redis"
	"github.com/presswerk/presswerk/runtime/enrich"
	"github.com/presswerk/presswerk/runtime/extract"
	"github.com/presswerk/presswerk/runtime/model"
	"github.com/presswerk/presswerk/runtime/prompt"
	"github.com/presswerk/presswerk/runtime/telemetry"
	"github.com/presswerk/presswerk/runtime/workflow"
)

func main() {
	var (
		configF = flag.String("config", "", "Path to YAML configuration file")
		addrF   = flag.String("http-addr", "", "HTTP listen address (overrides server.addr)")
		dbgF    = flag.Bool("debug", false, "Enable debug logs")
	)
	flag.Parse()

	format := log.FormatJSON
	if log.IsTerminal() {
		format = log.FormatTerminal
	}
	ctx := log.Context(context.Background(), log.WithFormat(format))
	if *dbgF {
		ctx = log.Context(ctx, log.WithDebug())
		log.Debugf(ctx, "debug logs enabled")
	}

	cfg, err := LoadConfig(*configF)
	if err != nil {
		log.Fatalf(ctx, err, "invalid configuration")
	}
	addr := cfg.Server.Addr
	if *addrF != "" {
		addr = *addrF
	}

	logger := telemetry.NewClueLogger()
	metrics := telemetry.NewClueMetrics()
	tracer := telemetry.NewClueTracer()

	generator, err := buildGenerator(cfg)
	if err != nil {
		log.Fatalf(ctx, err, "cannot build generation client")
	}
	if cfg.RateLimit.InitialTPM > 0 {
		limiter := middleware.NewAdaptiveRateLimiter(cfg.RateLimit.InitialTPM, cfg.RateLimit.MaxTPM)
		generator = limiter.Middleware()(generator)
	}

	var pingers []health.Pinger

	var (
		searcher enrich.KnowledgeSearcher
		uploader extract.Uploader
		filehost *mongo.Host
	)
	if cfg.Mongo.URI != "" {
		mc, err := mongodriver.Connect(mongooptions.Client().ApplyURI(cfg.Mongo.URI))
		if err != nil {
			log.Fatalf(ctx, err, "cannot connect to mongo")
		}
		defer func() {
			dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = mc.Disconnect(dctx)
		}()
		ks, err := knowledgemongo.New(ctx, knowledgemongo.Options{
			Client:     mc,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.KnowledgeCollection,
		})
		if err != nil {
			log.Fatalf(ctx, err, "cannot build knowledge searcher")
		}
		searcher = ks
		pingers = append(pingers, ks)
		if cfg.Mongo.PublicBaseURL != "" {
			fh, err := mongo.New(mongo.Options{
				Client:        mc,
				Database:      cfg.Mongo.Database,
				Bucket:        cfg.Mongo.Bucket,
				PublicBaseURL: cfg.Mongo.PublicBaseURL,
			})
			if err != nil {
				log.Fatalf(ctx, err, "cannot build file host")
			}
			uploader = fh
			filehost = fh
			pingers = append(pingers, fh)
		}
	}

	var store *sessionredis.Store
	if cfg.Redis.Addr != "" {
		rdb := goredis.NewClient(&goredis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			_ = rdb.Close()
		}()
		store, err = sessionredis.New(sessionredis.Options{Client: rdb, TTL: cfg.Redis.TTL})
		if err != nil {
			log.Fatalf(ctx, err, "cannot build run store")
		}
		pingers = append(pingers, store)
	}

	extractor, err := extract.New(extract.Options{
		Caller:   generator,
		Uploader: uploader,
		Logger:   logger,
	})
	if err != nil {
		log.Fatalf(ctx, err, "cannot build knowledge extractor")
	}
	assembler := prompt.NewAssembler(prompt.Options{
		Extractor: extractor,
		Logger:    logger,
	})
	orchestrator, err := workflow.New(workflow.Options{
		Generator:             generator,
		Searcher:              searcher,
		Assembler:             assembler,
		Logger:                logger,
		Metrics:               metrics,
		Tracer:                tracer,
		DisableQuestions:      cfg.Workflow.DisableQuestions,
		ConfidenceSkip:        cfg.Workflow.ConfidenceSkip,
		FramingGeneratorTypes: cfg.Workflow.FramingTypes,
		FramingCollections:    cfg.Workflow.FramingCollections,
		Generation: workflow.GenerationOptions{
			MaxTokens:   cfg.Generation.MaxTokens,
			Temperature: cfg.Generation.Temperature,
			TopP:        cfg.Generation.TopP,
		},
	})
	if err != nil {
		log.Fatalf(ctx, err, "cannot build orchestrator")
	}

	srv := newServer(orchestrator, store, filehost, pingers)

	errc := make(chan error)
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		errc <- fmt.Errorf("%s", <-c)
	}()

	var wg sync.WaitGroup
	ctx, cancel := context.WithCancel(ctx)

	httpServer := &http.Server{Addr: addr, Handler: srv.routes(ctx)}
	wg.Add(1)
	go func() {
		defer wg.Done()
		log.Printf(ctx, "HTTP server listening on %s", addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errc <- err
		}
	}()
	go func() {
		<-ctx.Done()
		sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer scancel()
		_ = httpServer.Shutdown(sctx)
	}()

	log.Printf(ctx, "exiting (%v)", <-errc)
	cancel()
	wg.Wait()
	log.Printf(ctx, "exited")
}

func buildGenerator(cfg *Config) (model.Client, error) {
	key, err := cfg.apiKey()
	if err != nil {
		return nil, err
	}
	switch cfg.Provider {
	case "anthropic":
		return anthropic.NewFromAPIKey(key, cfg.Anthropic.Model)
	case "openai":
		return openai.NewFromAPIKey(key, cfg.OpenAI.Model)
	}
	return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
}
