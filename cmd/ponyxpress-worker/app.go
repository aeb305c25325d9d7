package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/ponyxpress/ponyxpress/config"
	"github.com/ponyxpress/ponyxpress/internal/broker/kafka"
	"github.com/ponyxpress/ponyxpress/internal/broker/messages"
	"github.com/ponyxpress/ponyxpress/internal/photostore"
	"github.com/ponyxpress/ponyxpress/internal/services/janitor"
	"github.com/ponyxpress/ponyxpress/internal/services/rollup"
	"github.com/ponyxpress/ponyxpress/internal/storage/pgdelivery"
	"golang.org/x/sync/errgroup"
)

// workerRepo is the part of storage the worker touches.
type workerRepo interface {
	rollup.Repository
	janitor.Repository
	Ping(ctx context.Context) error
}

type workerFactories struct {
	newStorage    func(cfg *config.Config, opTimeout time.Duration) (repo workerRepo, closeFn func(), err error)
	newConsumer   func(brokers, topics []string, group string) (src rollup.MessageSource, closeFn func())
	newPhotoStore func(dir string) (janitor.PhotoStore, error)
}

func defaultWorkerFactories() workerFactories {
	return workerFactories{
		newStorage: func(cfg *config.Config, opTimeout time.Duration) (workerRepo, func(), error) {
			st, err := pgdelivery.New(cfg.Database.ConnString(), opTimeout)
			if err != nil {
				return nil, nil, err
			}
			return st, st.Close, nil
		},
		newConsumer: func(brokers, topics []string, group string) (rollup.MessageSource, func()) {
			c := kafka.NewConsumer(brokers, topics, group)
			return c, func() { _ = c.Close() }
		},
		newPhotoStore: func(dir string) (janitor.PhotoStore, error) {
			return photostore.New(dir, 0)
		},
	}
}

type workerSettings struct {
	httpAddr       string
	location       *time.Location
	storageTimeout time.Duration
	photoDir       string

	brokers       []string
	topics        []string
	consumerGroup string
	rollupBackoff []time.Duration

	janitorInterval    time.Duration
	janitorMaxAge      time.Duration
	janitorConcurrency int
}

func resolveWorkerSettings(cfg *config.Config) (workerSettings, error) {
	p := cfg.PonyXpress
	s := workerSettings{
		httpAddr:           p.WorkerHTTPAddr,
		location:           time.UTC,
		storageTimeout:     time.Duration(p.StorageTimeoutMS) * time.Millisecond,
		photoDir:           p.PhotoDir,
		brokers:            cfg.Kafka.Brokers(),
		consumerGroup:      p.KafkaConsumerGroup,
		janitorInterval:    time.Duration(p.JanitorIntervalSeconds) * time.Second,
		janitorMaxAge:      time.Duration(p.JanitorMaxPhotoAgeHours) * time.Hour,
		janitorConcurrency: p.JanitorConcurrency,
	}
	if p.TimeZone != "" {
		loc, err := time.LoadLocation(p.TimeZone)
		if err != nil {
			return workerSettings{}, err
		}
		s.location = loc
	}
	if s.httpAddr == "" {
		s.httpAddr = ":8082"
	}
	if s.storageTimeout <= 0 {
		s.storageTimeout = 3 * time.Second
	}
	if s.photoDir == "" {
		s.photoDir = "data/photos"
	}
	if s.consumerGroup == "" {
		s.consumerGroup = "ponyxpress-rollup"
	}

	scanTopic := cfg.Kafka.ScanRecordedTopicName
	if scanTopic == "" {
		scanTopic = messages.TopicScanRecorded
	}
	routeTopic := cfg.Kafka.RouteSavedTopicName
	if routeTopic == "" {
		routeTopic = messages.TopicRouteSaved
	}
	s.topics = []string{scanTopic, routeTopic}

	for _, sec := range p.RollupBackoffSeconds {
		if sec > 0 {
			s.rollupBackoff = append(s.rollupBackoff, time.Duration(sec)*time.Second)
		}
	}
	if s.janitorInterval <= 0 {
		s.janitorInterval = time.Hour
	}
	if s.janitorMaxAge <= 0 {
		s.janitorMaxAge = 30 * 24 * time.Hour
	}
	if s.janitorConcurrency <= 0 {
		s.janitorConcurrency = 4
	}
	return s, nil
}

// RunPonyXpressWorker runs the rollup consumer, the photo janitor and the
// worker HTTP endpoints until ctx is cancelled or one of them fails.
func RunPonyXpressWorker(ctx context.Context, cfg *config.Config, f workerFactories, httpOpts workerHTTPOpts) error {
	set, err := resolveWorkerSettings(cfg)
	if err != nil {
		return err
	}

	repo, closeFn, err := f.newStorage(cfg, set.storageTimeout)
	if err != nil {
		return err
	}
	if closeFn != nil {
		defer closeFn()
	}

	photos, err := f.newPhotoStore(set.photoDir)
	if err != nil {
		return err
	}

	ru := rollup.New(repo, set.location).WithBackoff(set.rollupBackoff...)
	jn := janitor.New(repo, photos).WithSettings(set.janitorInterval, set.janitorMaxAge, set.janitorConcurrency)

	g, gctx := errgroup.WithContext(ctx)

	if len(set.brokers) > 0 {
		src, closeSrc := f.newConsumer(set.brokers, set.topics, set.consumerGroup)
		if closeSrc != nil {
			defer closeSrc()
		}
		g.Go(func() error {
			slog.Info("rollup consumer started", "topics", set.topics, "group", set.consumerGroup)
			return ru.Run(gctx, src)
		})
	} else {
		slog.Warn("kafka not configured, delivery log rollup disabled")
	}

	g.Go(func() error {
		return jn.Run(gctx)
	})

	if httpOpts.httpAddr == "" {
		httpOpts.httpAddr = set.httpAddr
	}
	httpOpts.rollup, httpOpts.janitor, httpOpts.ping, httpOpts.settings = ru, jn, repo.Ping, &set
	g.Go(func() error {
		return runWorkerHTTPServer(gctx, httpOpts)
	})

	return g.Wait()
}
