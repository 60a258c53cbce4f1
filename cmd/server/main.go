// Command clipsync-server starts the ClipSync gRPC API and its HTTP/websocket gateway.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	v1 "github.com/and161185/clipsync/api/clipsync/v1"
	"github.com/and161185/clipsync/internal/blobstore"
	"github.com/and161185/clipsync/internal/channel"
	"github.com/and161185/clipsync/internal/config"
	"github.com/and161185/clipsync/internal/limiter"
	"github.com/and161185/clipsync/internal/migrate"
	"github.com/and161185/clipsync/internal/repository"
	"github.com/and161185/clipsync/internal/repository/memory"
	"github.com/and161185/clipsync/internal/repository/postgres"
	grpcserver "github.com/and161185/clipsync/internal/server/grpc"
	"github.com/and161185/clipsync/internal/server/httpapi"
	"github.com/and161185/clipsync/internal/service"
)

var (
	version   = "dev"
	buildDate = "unknown"
)

// stores bundles the repository implementations chosen at startup.
type stores struct {
	sessions repository.SessionRepository
	entries  repository.EntryRepository
	counter  repository.CounterRepository
	limiter  limiter.Limiter
	close    func()
}

// main loads configuration, wires the storage backends and serves until a signal arrives.
func main() {
	cfgPath := flag.String("config", "", "config file (default ./.env if present)")
	dev := flag.Bool("dev", false, "development logging and gRPC reflection")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("clipsync-server %s (%s)\n", version, buildDate)
		return
	}

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *dev {
		cfg.Dev = true
	}

	logger, _ := zap.NewProduction()
	if cfg.Dev {
		logger, _ = zap.NewDevelopment()
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting",
		zap.String("version", version),
		zap.String("buildDate", buildDate),
		zap.String("grpc", cfg.GRPCAddr),
		zap.String("http", cfg.HTTPAddr),
	)

	// Context with OS signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("server error", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
	logger.Info("shutdown complete")
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	policy := limiter.Policy{Window: cfg.JoinWindow, MaxFails: cfg.JoinMaxFails, BlockFor: cfg.JoinBlockFor}

	if cfg.MemoryStore() {
		log.Warn("DATABASE_URL not set, using in-memory store")
		m := memory.New()
		st := &stores{sessions: m, entries: m, counter: m, close: func() {}}
		if cfg.JoinLimitEnabled() {
			st.limiter = limiter.NewMemory(policy)
		}
		return st, nil
	}

	n, err := migrate.Postgres(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	log.Info("migrations applied", zap.Int("count", n))

	db, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("pgxpool: %w", err)
	}
	st := &stores{
		sessions: postgres.NewSessionRepo(db),
		entries:  postgres.NewEntryRepo(db),
		counter:  postgres.NewCounterRepo(db),
		close:    db.Close,
	}
	if cfg.JoinLimitEnabled() {
		st.limiter = limiter.NewPG(db.Pool, policy)
	}
	return st, nil
}

// openBlobs returns nil when attachments are disabled.
func openBlobs(ctx context.Context, cfg *config.Config) (blobstore.Store, string, error) {
	switch cfg.BlobBackend {
	case config.BlobLocal:
		l, err := blobstore.NewLocal(cfg.BlobDir, cfg.BlobPublicURL)
		if err != nil {
			return nil, "", err
		}
		return l, l.Root(), nil
	case config.BlobS3:
		s, err := blobstore.NewS3(ctx, blobstore.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: cfg.S3AccessKey,
			SecretKey: cfg.S3SecretKey,
			PublicURL: cfg.BlobPublicURL,
		})
		return s, "", err
	}
	return nil, "", nil
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer st.close()

	blobs, filesDir, err := openBlobs(ctx, cfg)
	if err != nil {
		return fmt.Errorf("blob backend: %w", err)
	}

	hasher, err := limiter.NewHasher([]byte(cfg.IPHashKey))
	if err != nil {
		return err
	}
	hub := channel.NewHub(cfg.SubscriberBuffer, logger)
	defer hub.Close()

	// Services
	sessOpts := service.SessionOptions{
		CodeLength: cfg.CodeLength,
		Attempts:   cfg.CodeAttempts,
		Limiter:    st.limiter,
		Hasher:     hasher,
		Logger:     logger,
	}
	sessions := service.NewSessionService(st.sessions, sessOpts)
	var remover service.BlobRemover
	var attachments service.AttachmentService
	if blobs != nil {
		remover = blobs
		attachments = service.NewAttachmentService(st.sessions, blobs, cfg.MaxAttachmentBytes)
	}
	entries := service.NewEntryService(st.sessions, st.entries, remover, hub, cfg.MaxContentChars, logger)
	visits := service.NewVisitService(st.counter)

	// gRPC server with interceptors
	opts := grpcserver.ServerOptions(logger)
	if cfg.TLSEnabled() {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return fmt.Errorf("load TLS cert/key: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	} else {
		logger.Warn("TLS disabled, serving plaintext")
	}
	opts = append(opts, grpc.MaxRecvMsgSize(int(cfg.MaxAttachmentBytes)+(1<<20)))
	s := grpc.NewServer(opts...)

	v1.RegisterClipSyncServer(s, grpcserver.New(grpcserver.Deps{
		Sessions:    sessions,
		Entries:     entries,
		Attachments: attachments,
		Visits:      visits,
		Hub:         hub,
		Logger:      logger,
	}))

	// Health & reflection (dev)
	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	if cfg.Dev {
		reflection.Register(s)
	}

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	errCh := make(chan error, 2)
	go func() {
		logger.Info("grpc listening", zap.String("addr", cfg.GRPCAddr), zap.Bool("tls", cfg.TLSEnabled()))
		errCh <- s.Serve(lis)
	}()

	var hsrv *http.Server
	if cfg.HTTPAddr != "" {
		hsrv = &http.Server{
			Addr: cfg.HTTPAddr,
			Handler: httpapi.New(httpapi.Deps{
				Sessions:    sessions,
				Entries:     entries,
				Attachments: attachments,
				Visits:      visits,
				Hub:         hub,
				Logger:      logger,
			}, httpapi.Options{
				FilesDir:       filesDir,
				MaxUploadBytes: cfg.MaxAttachmentBytes,
				AllowAnyOrigin: cfg.WSAnyOrigin,
			}),
			ReadHeaderTimeout: 10 * time.Second,
		}
		go func() {
			logger.Info("http listening", zap.String("addr", cfg.HTTPAddr), zap.Bool("tls", cfg.TLSEnabled()))
			var err error
			if cfg.TLSEnabled() {
				err = hsrv.ListenAndServeTLS(cfg.TLSCert, cfg.TLSKey)
			} else {
				err = hsrv.ListenAndServe()
			}
			if errors.Is(err, http.ErrServerClosed) {
				err = nil
			}
			errCh <- err
		}()
	}

	// Wait for stop
	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			s.Stop()
			return err
		}
	}

	// graceful shutdown
	hs.Shutdown()
	sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if hsrv != nil {
		if err := hsrv.Shutdown(sctx); err != nil {
			logger.Warn("http shutdown", zap.Error(err))
		}
	}
	// Subscribe streams end when the hub closes.
	hub.Close()
	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	select {
	case <-done:
	case <-sctx.Done():
		s.Stop()
	}
	return nil
}
