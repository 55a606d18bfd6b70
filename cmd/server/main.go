package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"account-service/internal/auth"
	"account-service/internal/config"
	"account-service/internal/events"
	apphttp "account-service/internal/http"
	"account-service/internal/repository/sqlite"
	"account-service/internal/service"
	"account-service/internal/storage"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		logger.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("invalid config: %v", err)
	}
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.Warnf("unknown log level %q, using %s", cfg.Log.Level, logger.GetLevel())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := sqlite.Open(cfg.Database.Path)
	if err != nil {
		logger.Fatalf("open database: %v", err)
	}
	defer db.Close()

	userRepo := sqlite.NewUserRepository(db)
	if err := userRepo.Init(ctx); err != nil {
		logger.Fatalf("init user repository: %v", err)
	}

	tokens, err := auth.NewTokenService(auth.TokenConfig{
		Secret:    []byte(cfg.Auth.JWTSecret),
		TTL:       cfg.TokenTTL(),
		Issuer:    cfg.Auth.Issuer,
		Algorithm: cfg.Auth.Algorithm,
	})
	if err != nil {
		logger.Fatalf("setup token service: %v", err)
	}

	publisher, err := buildPublisher(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("setup account events: %v", err)
	}

	accounts := service.NewAccountService(
		userRepo,
		auth.NewBcryptHasher(cfg.Auth.BcryptCost),
		tokens,
		publisher,
	)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	handler := apphttp.NewHandler(accounts, logger)
	handler.RegisterRoutes(router)

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Infof("listening on %s", cfg.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("http server: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warnf("http shutdown: %v", err)
	}

	logger.Info("bye")
}

// buildPublisher always logs account events and, when an audit bucket is
// configured, archives them to S3 as well.
func buildPublisher(ctx context.Context, cfg config.Config, logger *logrus.Logger) (events.Publisher, error) {
	publishers := events.Multi{events.NewLogPublisher(logger)}
	if cfg.Audit.Bucket == "" {
		return publishers, nil
	}

	loadOpts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Audit.Region),
	}
	if cfg.AWS.Profile != "" {
		loadOpts = append(loadOpts, awscfg.WithSharedConfigProfile(cfg.AWS.Profile))
	}

	awsCfg, err := awscfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Audit.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Audit.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Infof("archiving account events to s3 bucket %s (region %s)", cfg.Audit.Bucket, cfg.Audit.Region)

	archive := events.NewArchivePublisher(events.ArchiveConfig{
		Bucket:    cfg.Audit.Bucket,
		KeyPrefix: cfg.Audit.KeyPrefix,
		Logger:    logger,
	}, storage.NewS3Service(client))
	return append(publishers, archive), nil
}
