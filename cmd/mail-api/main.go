package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/edvin/mailapi/internal/api"
	"github.com/edvin/mailapi/internal/api/handler"
	"github.com/edvin/mailapi/internal/config"
	"github.com/edvin/mailapi/internal/crypto"
	"github.com/edvin/mailapi/internal/db"
	"github.com/edvin/mailapi/internal/logging"
	"github.com/edvin/mailapi/internal/metrics"
	"github.com/edvin/mailapi/internal/ratelimit"
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "hash-password" {
		if err := hashPassword(os.Args[2:], os.Stdin, os.Stdout); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
		return
	}

	migrateFlag := flag.Bool("migrate", false, "Apply the mail schema before starting")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, *migrateFlag); err != nil {
		logger.Fatal().Err(err).Msg("mail API stopped")
	}
}

func run(ctx context.Context, cfg *config.Config, logger zerolog.Logger, migrate bool) error {
	pool, err := db.Open(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer pool.Close()

	if migrate {
		logger.Info().Msg("running database migrations")
		if err := db.RunMigrations(ctx, pool, logger); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	hasher, err := crypto.NewHasher(cfg.PasswordScheme, cfg.PasswordBcryptCost)
	if err != nil {
		return err
	}

	opts := api.Options{
		Token:          cfg.APIToken,
		AllowedOrigins: cfg.AllowedOrigins,
		Password:       handler.PasswordPolicy{Hasher: hasher, MinScore: cfg.PasswordMinStrength},
	}

	if cfg.RateLimitEnabled {
		rules, err := ratelimit.ParseRules(cfg.RateLimitDefault)
		if err != nil {
			return err
		}
		store, err := ratelimit.NewStore(ctx, cfg.RateLimitStorage)
		if err != nil {
			return err
		}
		defer store.Close()
		opts.Limiter = ratelimit.NewLimiter(store)
		opts.DefaultLimits = rules
	} else {
		logger.Warn().Msg("rate limiting disabled")
	}

	if err := metrics.RegisterPoolMetrics(prometheus.DefaultRegisterer, pool); err != nil {
		return fmt.Errorf("register pool metrics: %w", err)
	}

	srv := api.NewServer(logger, pool, opts)
	defer srv.Close()

	httpServer := &http.Server{
		Addr:         cfg.HTTPListenAddr,
		Handler:      srv,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	servers := []*http.Server{httpServer}
	if cfg.MetricsAddr != "" {
		servers = append(servers, metrics.NewServer(cfg.MetricsAddr, prometheus.DefaultGatherer))
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, s := range servers {
		g.Go(func() error {
			logger.Info().Str("addr", s.Addr).Msg("starting server")
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve %s: %w", s.Addr, err)
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info().Msg("shutting down servers")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		for _, s := range servers {
			if err := s.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Str("addr", s.Addr).Msg("shutdown failed")
			}
		}
		return nil
	})

	return g.Wait()
}

// hashPassword prints the stored form of a password read from the first
// line of stdin, for seeding accounts by hand.
func hashPassword(args []string, stdin io.Reader, stdout io.Writer) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	scheme := fs.String("scheme", crypto.SchemeBcryptSHA256, "Hash scheme: bcrypt-sha256, blf-crypt or sha512-crypt")
	cost := fs.Int("cost", 12, "bcrypt cost")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hasher, err := crypto.NewHasher(*scheme, *cost)
	if err != nil {
		return err
	}

	line, err := bufio.NewReader(stdin).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("read password: %w", err)
	}
	password := strings.TrimSpace(line)
	if password == "" {
		return errors.New("password required on stdin")
	}

	hash, err := hasher.Hash(password)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(stdout, hash)
	return err
}
