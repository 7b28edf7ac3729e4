package server

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/docstore/internal/api/consumer"
	"github.com/Zereker/docstore/internal/api/http"
	"github.com/Zereker/docstore/internal/ingest"
	"github.com/Zereker/docstore/internal/service"
	"github.com/Zereker/docstore/internal/store"
	"github.com/Zereker/docstore/pkg/embedding"
	"github.com/Zereker/docstore/pkg/log"
	"github.com/Zereker/docstore/pkg/redis"
	"github.com/Zereker/docstore/pkg/vector"
)

// Server represents the document store server
type Server struct {
	config   Config
	logger   *slog.Logger
	index    vector.Index
	docs     *service.Service
	chunker  *ingest.Chunker
	consumer *consumer.Consumer
}

// NewServer creates a new server with the given configuration
func NewServer(conf Config) (*Server, error) {
	server := &Server{
		config: conf,
	}

	if err := server.initDepend(); err != nil {
		return nil, errors.WithMessage(err, "init server dependency failed")
	}

	if err := server.initService(); err != nil {
		return nil, errors.WithMessage(err, "init document service failed")
	}

	if err := server.initConsumer(); err != nil {
		return nil, errors.WithMessage(err, "init consumer failed")
	}

	return server, nil
}

// initDepend initializes all dependencies
func (s *Server) initDepend() error {
	// Initialize log first
	if err := log.Init(s.config.Log); err != nil {
		return errors.WithMessage(err, "failed to init log")
	}

	// Create logger for this module
	s.logger = log.Logger("server")
	s.logger.Info("initializing dependencies")

	// Initialize Redis
	s.logger.Info("initializing redis")
	if err := redis.Init(s.config.Redis); err != nil {
		return errors.WithMessage(err, "failed to init redis")
	}

	// Initialize vector index
	s.logger.Info("initializing vector index", "backend", s.config.Storage.Backend)
	index, err := vector.New(s.config.Storage)
	if err != nil {
		return errors.WithMessage(err, "failed to init vector index")
	}
	s.index = index

	return nil
}

// initService wires the embedding provider, the index adapter and the
// document service.
func (s *Server) initService() error {
	s.logger.Info("initializing document service")

	var provider embedding.Provider
	provider, err := embedding.NewOpenAIProvider(s.config.Embedding)
	if err != nil {
		return errors.WithMessage(err, "failed to create embedding provider")
	}

	if s.config.Embedding.CacheEnabled && redis.Client() != nil {
		ttl := time.Duration(0)
		if s.config.Embedding.CacheTTL != "" {
			ttl, _ = time.ParseDuration(s.config.Embedding.CacheTTL)
		}
		provider = embedding.NewCachedProvider(provider, redis.Client(), s.config.Embedding.ModelName(), ttl)
		s.logger.Info("embedding cache enabled", "ttl", ttl)
	}

	adapter := store.NewAdapter(s.index)

	s.docs = service.New(service.Config{
		Collection:       s.config.Documents.Collection,
		EmbeddingModel:   s.config.Embedding.ModelName(),
		BatchConcurrency: s.config.Documents.BatchConcurrency,
	}, provider, adapter)

	s.chunker = ingest.NewChunker(s.config.Documents.ChunkSize, s.config.Documents.ChunkOverlap)

	return nil
}

// initConsumer initializes the Kafka ingestion consumer
func (s *Server) initConsumer() error {
	s.logger.Info("initializing consumer")

	c, err := consumer.NewConsumer(s.docs, consumer.Config{
		Kafka: s.config.Kafka,
	})
	if err != nil {
		return errors.WithMessage(err, "failed to create consumer")
	}

	s.consumer = c
	return nil
}

// Start starts the HTTP server and the consumer, blocking until shutdown
func (s *Server) Start() error {
	s.logger.Info("starting", "port", s.config.Server.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		s.logger.Info("received shutdown signal")
		cancel()
	}()

	g, ctx := errgroup.WithContext(ctx)

	// Start consumer
	if s.consumer != nil {
		g.Go(func() error {
			return s.runConsumer(ctx)
		})
	}

	g.Go(func() error {
		return s.runHTTPServer(ctx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down")

	// Stop consumer
	if s.consumer != nil {
		if err := s.consumer.Stop(); err != nil {
			s.logger.Error("failed to stop consumer", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		s.logger.Error("failed to close redis", "error", err)
	}

	if s.index != nil {
		if err := s.index.Close(); err != nil {
			s.logger.Error("failed to close vector index", "error", err)
		}
	}

	return nil
}

func (s *Server) runHTTPServer(ctx context.Context) error {
	serverCfg := http.DefaultServerConfig()
	serverCfg.Port = s.config.Server.Port

	handler := http.NewHandler(s.docs, s.chunker)
	srv := http.NewServer(serverCfg, handler)

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	return srv.Start()
}

func (s *Server) runConsumer(ctx context.Context) error {
	if err := s.consumer.Start(ctx); err != nil {
		return errors.WithMessage(err, "consumer start error")
	}

	// Wait for context cancellation
	<-ctx.Done()

	return s.consumer.Stop()
}
