package server

import (
	"context"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/Zereker/cvstore/internal/action"
	"github.com/Zereker/cvstore/internal/api/http"
	"github.com/Zereker/cvstore/pkg/blob"
	"github.com/Zereker/cvstore/pkg/extract"
	genkitpkg "github.com/Zereker/cvstore/pkg/genkit"
	"github.com/Zereker/cvstore/pkg/log"
	"github.com/Zereker/cvstore/pkg/mq"
	"github.com/Zereker/cvstore/pkg/redis"
	"github.com/Zereker/cvstore/pkg/vector"
)

// Server represents the cvstore server
type Server struct {
	config Config
	logger *slog.Logger
	files  *action.Files
}

// NewServer creates a new server with the given configuration
func NewServer(conf Config) (*Server, error) {
	server := &Server{
		config: conf,
	}

	if err := server.initDepend(); err != nil {
		return nil, errors.WithMessage(err, "init server dependency failed")
	}

	if err := server.initFiles(); err != nil {
		return nil, errors.WithMessage(err, "init files failed")
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

	ctx := context.Background()

	// Initialize Genkit with all configured models
	s.logger.Info("initializing genkit models")
	if err := genkitpkg.Init(ctx, s.config.Models); err != nil {
		return errors.WithMessage(err, "failed to init models")
	}

	s.logger.Info("initializing vector engine", "driver", s.config.Vector.Driver)
	if err := vector.Init(s.config.Vector); err != nil {
		return errors.WithMessage(err, "failed to init vector engine")
	}

	s.logger.Info("initializing blob store", "driver", s.config.Blob.Driver)
	if err := blob.Init(ctx, s.config.Blob); err != nil {
		return errors.WithMessage(err, "failed to init blob store")
	}

	s.logger.Info("initializing extractors")
	if err := extract.Init(s.config.Extract); err != nil {
		return errors.WithMessage(err, "failed to init extractors")
	}

	// Initialize Redis
	s.logger.Info("initializing redis")
	if err := redis.Init(s.config.Redis); err != nil {
		return errors.WithMessage(err, "failed to init redis")
	}

	// Initialize Kafka message queue
	s.logger.Info("initializing message queue")
	if err := mq.Init(s.config.Kafka); err != nil {
		return errors.WithMessage(err, "failed to init message queue")
	}

	return nil
}

// initFiles initializes the files instance
func (s *Server) initFiles() error {
	s.logger.Info("initializing files")

	files, err := action.NewFiles(s.config.FilesConfig())
	if err != nil {
		return err
	}

	s.files = files
	return nil
}

// Files returns the files instance
func (s *Server) Files() *action.Files {
	return s.files
}

// Start starts the HTTP server and the recovery loop, returning on SIGINT/SIGTERM
func (s *Server) Start() error {
	s.logger.Info("starting", "host", s.config.Server.Host, "port", s.config.Server.Port)

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

	g.Go(func() error {
		return s.runRecovery(ctx)
	})

	g.Go(func() error {
		return s.runHTTPServer(ctx)
	})

	return g.Wait()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown() error {
	s.logger.Info("shutting down")

	if producer := mq.NewQueue(); producer != nil {
		if err := producer.Close(); err != nil {
			s.logger.Error("failed to close message queue", "error", err)
		}
	}

	if err := redis.Close(); err != nil {
		s.logger.Error("failed to close redis", "error", err)
	}

	if err := blob.Close(); err != nil {
		s.logger.Error("failed to close blob store", "error", err)
	}

	if err := vector.Close(); err != nil {
		s.logger.Error("failed to close vector engine", "error", err)
	}

	return nil
}

func (s *Server) runHTTPServer(ctx context.Context) error {
	serverCfg := http.DefaultServerConfig()
	if s.config.Server.Host != "" {
		serverCfg.Host = s.config.Server.Host
	}
	serverCfg.Port = s.config.Server.Port
	if s.config.Server.MaxBodyMB > 0 {
		serverCfg.MaxBodyBytes = int64(s.config.Server.MaxBodyMB) << 20
	}

	srv := http.NewServer(s.files, serverCfg)

	// Shutdown when context is cancelled
	go func() {
		<-ctx.Done()
		_ = srv.Shutdown(context.Background())
	}()

	if err := srv.Start(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
		return errors.WithMessage(err, "http server error")
	}
	return nil
}

// runRecovery 启动时补偿一次未完成批次，配置了 recover_interval 时周期执行
func (s *Server) runRecovery(ctx context.Context) error {
	s.recoverBatches(ctx)

	if s.config.Server.RecoverInterval == "" {
		return nil
	}

	interval, err := time.ParseDuration(s.config.Server.RecoverInterval)
	if err != nil {
		return errors.Wrap(err, "parse recover_interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.recoverBatches(ctx)
		}
	}
}

func (s *Server) recoverBatches(ctx context.Context) {
	n, err := s.files.Recover(ctx)
	if err != nil {
		s.logger.Error("recovery failed", "recovered", n, "error", err)
		return
	}
	if n > 0 {
		s.logger.Info("recovered abandoned batches", "count", n)
	}
}
