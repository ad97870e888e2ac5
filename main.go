package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BRO3886/opensearch-resource-store/internal/config"
	"github.com/BRO3886/opensearch-resource-store/internal/feed"
	"github.com/BRO3886/opensearch-resource-store/internal/kafka"
	"github.com/BRO3886/opensearch-resource-store/internal/opensearch"
	"github.com/BRO3886/opensearch-resource-store/internal/queue"
	"github.com/BRO3886/opensearch-resource-store/internal/search"
	log "github.com/sirupsen/logrus"
)

var (
	mode       string
	configPath string
	streamPath string
)

func init() {
	flag.StringVar(&mode, "mode", "populate", "mode to run in: populate, index or ingest")
	flag.StringVar(&configPath, "config", "configs/config.yaml", "path to the configuration file")
	flag.StringVar(&streamPath, "file", "configs/stream.jsonl", "change events to ingest, one JSON object per line")
	flag.Parse()
}

func main() {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("error loading config: %v", err)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	kafkaCfg := kafka.NewConfig(
		kafka.WithBrokers(cfg.Kafka.Brokers...),
		kafka.WithSyncProducer(),
		kafka.WithConsumeOldest(),
		kafka.WithTopics(cfg.Kafka.Topic.Name),
		kafka.WithConsumerGroup(cfg.Kafka.ConsumerGroup),
		kafka.WithRetry(
			cfg.Kafka.Retry.Max,
			time.Duration(cfg.Kafka.Retry.Backoff)*time.Millisecond,
		),
	)

	switch mode {
	case "populate":
		var opts []opensearch.Option
		if cfg.Kafka.Publish {
			enqueuer, err := kafka.NewEnqueuer(ctx, kafkaCfg)
			if err != nil {
				log.Fatalf("error starting kafka enqueuer: %v", err)
			}
			defer enqueuer.Close()
			opts = append(opts, opensearch.WithNotifier(feed.NewPublisher(enqueuer, cfg.Kafka.Topic.Name)))
		}

		stores, err := initialiseStores(ctx, cfg, opts...)
		if err != nil {
			log.Fatalf("error starting opensearch stores: %v", err)
		}
		runPopulate(ctx, stores)
	case "index":
		dequeuer, err := kafka.NewDequeuer(ctx, kafkaCfg)
		if err != nil {
			log.Fatalf("error starting kafka dequeuer: %v", err)
		}

		stores, err := initialiseStores(ctx, cfg)
		if err != nil {
			log.Fatalf("error starting opensearch stores: %v", err)
		}
		runIndexing(ctx, cfg, dequeuer, stores)
	case "ingest":
		enqueuer, err := kafka.NewEnqueuer(ctx, kafkaCfg)
		if err != nil {
			log.Fatalf("error starting kafka enqueuer: %v", err)
		}
		runIngestion(ctx, cfg, enqueuer)
	default:
		log.Fatalf("unknown mode %q", mode)
	}
}

func setupLogging(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warnf("invalid log level %q, using info", cfg.Log.Level)
		level = log.InfoLevel
	}
	log.SetLevel(level)
	if cfg.Log.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

// initialiseStores opens one store per configured resource over a shared
// client.
func initialiseStores(ctx context.Context, cfg *config.Config, opts ...opensearch.Option) (map[string]search.Store, error) {
	schemas, err := cfg.Schemas()
	if err != nil {
		return nil, err
	}

	client, err := opensearch.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	opts = append(opts, opensearch.WithClient(client))

	stores := make(map[string]search.Store, len(schemas))
	for _, schema := range schemas {
		store := opensearch.New(cfg, opts...)
		if err := store.Initialise(ctx, schema); err != nil {
			return nil, err
		}
		stores[schema.Resource] = store
	}
	return stores, nil
}

func runPopulate(ctx context.Context, stores map[string]search.Store) {
	log.Infof("started populating %d resources", len(stores))
	for resource, store := range stores {
		if err := store.Populate(ctx); err != nil {
			log.Errorf("error populating %s: %v", resource, err)
		}
	}
	log.Infof("populate completed")
}

func runIndexing(
	ctx context.Context,
	cfg *config.Config,
	dequeuer queue.Dequeuer,
	stores map[string]search.Store,
) {
	log.Infof("started indexing")
	defer dequeuer.Close()

	applier := feed.NewApplier(stores)
	if err := dequeuer.Dequeue(ctx, cfg.Kafka.Topic.Name, applier.Handle); err != nil {
		log.Errorf("error dequeuing events: %v", err)
	}
	log.Infof("indexing stopped")
}

func runIngestion(ctx context.Context, cfg *config.Config, enqueuer queue.Enqueuer) {
	defer enqueuer.Close()

	f, err := os.Open(streamPath)
	if err != nil {
		log.Fatalf("failed to open stream file: %v", err)
	}
	defer f.Close()

	if _, err := feed.Ingest(ctx, f, enqueuer, cfg.Kafka.Topic.Name); err != nil {
		log.Errorf("ingestion stopped: %v", err)
	}
}
