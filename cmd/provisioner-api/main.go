package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"github.com/sergiomvj/faceblog/internal/api"
	"github.com/sergiomvj/faceblog/internal/config"
	"github.com/sergiomvj/faceblog/internal/core"
	"github.com/sergiomvj/faceblog/internal/db"
	"github.com/sergiomvj/faceblog/internal/engine"
	"github.com/sergiomvj/faceblog/internal/jobstore"
	"github.com/sergiomvj/faceblog/internal/logging"
	"github.com/sergiomvj/faceblog/internal/provider"
)

func main() {
	migrateFlag := flag.Bool("migrate", false, "Run database migrations before starting")
	migrateDirFlag := flag.String("migrate-dir", "migrations", "Migration files directory")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate("provisioner-api"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	if *migrateFlag {
		if cfg.DatabaseURL == "" {
			logger.Fatal().Msg("DATABASE_URL is required for migrations")
		}
		logger.Info().Str("dir", *migrateDirFlag).Msg("running database migrations")
		if err := db.RunMigrations(cfg.DatabaseURL, *migrateDirFlag); err != nil {
			logger.Fatal().Err(err).Msg("migration failed")
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Job store: Postgres when configured, in-memory otherwise.
	var store jobstore.Store
	var pool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		pool, err = db.NewPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to jobs database")
		}
		defer pool.Close()
		store = jobstore.NewPostgresStore(pool)
		logger.Info().Msg("using postgres job store")
	} else {
		store = jobstore.NewMemoryStore()
		logger.Warn().Msg("DATABASE_URL not set, using in-memory job store")
	}

	providers := engine.Providers{
		DNS:      provider.NewDNSClient(cfg.DNSAPIURL, cfg.DNSAPIToken, logger),
		Builder:  provider.NewBuilderClient(cfg.BuilderAPIURL, logger),
		Deployer: provider.NewDeployClient(cfg.DeployAPIURL, cfg.DeployAPIToken, logger),
		Verifier: provider.NewVerifierClient(cfg.VerifierAPIURL, logger),
		Mailer:   provider.NewMailerClient(cfg.MailerAPIURL, cfg.MailerAPIToken, logger),
	}
	if cfg.ArtifactS3Endpoint != "" {
		providers.Artifacts = provider.NewS3ArtifactStore(cfg.ArtifactS3Endpoint, cfg.ArtifactS3Bucket, cfg.ArtifactS3AccessKey, cfg.ArtifactS3SecretKey, logger)
	} else {
		providers.Artifacts = provider.NullArtifactStore{}
		logger.Warn().Msg("no artifact bucket configured, scaffolded archives will not be stored")
	}

	var directory provider.TenantDirectory
	if cfg.TenantsAPIURL != "" {
		directory = provider.NewDirectoryClient(cfg.TenantsAPIURL, logger)
	} else {
		directory = provider.OpenDirectory{}
		logger.Warn().Msg("no tenant directory configured, only in-flight jobs guard subdomains")
	}

	templates := engine.DefaultTemplates()
	if cfg.TemplatesDir != "" {
		extra, err := engine.LoadTemplatesDir(cfg.TemplatesDir)
		if err != nil {
			logger.Fatal().Err(err).Str("dir", cfg.TemplatesDir).Msg("failed to load step templates")
		}
		for name, tmpl := range extra {
			templates[name] = tmpl
		}
		logger.Info().Int("templates", len(templates)).Msg("loaded step templates")
	}

	eng := engine.New(store, providers, templates, engine.Options{
		BaseDomain:      cfg.BaseDomain,
		CallbackBaseURL: cfg.CallbackBaseURL,
		AwaitTimeout:    cfg.AwaitTimeout,
	}, logger)

	provision := core.NewProvisionService(store, eng, directory, logger)

	srv := api.NewServer(logger, provision, eng, pool, cfg)

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info().Str("addr", cfg.HTTPListenAddr).Msg("starting provisioner API server")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		err := eng.RunSweeper(gctx, cfg.SweepInterval)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	if cfg.RetentionInterval > 0 {
		g.Go(func() error {
			err := provision.RunRetention(gctx, cfg.RetentionInterval, cfg.RetentionWindow)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down server")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("server failed")
	}
}
