package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	stdhttp "net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/vncsmyrnk/stv/internal/adapters/handler/http"
	"github.com/vncsmyrnk/stv/internal/adapters/mail"
	"github.com/vncsmyrnk/stv/internal/adapters/metrics"
	"github.com/vncsmyrnk/stv/internal/adapters/repository/memory"
	"github.com/vncsmyrnk/stv/internal/adapters/repository/postgres"
	"github.com/vncsmyrnk/stv/internal/config"
	"github.com/vncsmyrnk/stv/internal/core/credentials"
	"github.com/vncsmyrnk/stv/internal/core/ports"
	"github.com/vncsmyrnk/stv/internal/core/services"
	applog "github.com/vncsmyrnk/stv/internal/logger"
)

type repositories struct {
	accounts  ports.AccountRepository
	elections ports.ElectionRepository
	ballots   ports.BallotRepository
	close     func() error
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*repositories, error) {
	if cfg.Store == "memory" {
		logger.Warn("using in-memory store, data is lost on exit")
		s := memory.NewStore()
		return &repositories{
			accounts:  s.Accounts(),
			elections: s.Elections(),
			ballots:   s.Ballots(),
			close:     func() error { return nil },
		}, nil
	}

	db, err := postgres.Open(ctx, cfg.DB.ConnString(), logger)
	if err != nil {
		return nil, err
	}
	if err := postgres.Migrator("upSync", db, logger); err != nil {
		db.Close()
		return nil, err
	}
	return newPostgresRepositories(db), nil
}

func newPostgresRepositories(db *sqlx.DB) *repositories {
	return &repositories{
		accounts:  postgres.NewAccountRepository(db),
		elections: postgres.NewElectionRepository(db),
		ballots:   postgres.NewBallotRepository(db),
		close:     db.Close,
	}
}

func newMailer(cfg config.Mail, logger *slog.Logger) ports.Mailer {
	if cfg.Driver == "smtp" {
		return mail.NewSMTPSender(mail.SMTPConfig{
			Host:     cfg.Host,
			Port:     cfg.Port,
			Username: cfg.Username,
			Password: cfg.Password,
			From:     cfg.From,
		})
	}
	logger.Warn("mail driver is log, ballot links are written to the log")
	return mail.NewLogSender(logger)
}

func main() {
	cfg, err := config.Load("server", os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	logger, err := applog.New(os.Stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatal(err)
	}
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	privateKey, err := credentials.LoadPrivateKey(cfg.Auth.PrivateKey)
	if err != nil {
		log.Fatal(err)
	}
	publicKey, err := credentials.LoadPublicKey(cfg.Auth.PublicKey)
	if err != nil {
		log.Fatal(err)
	}

	repos, err := openStore(ctx, cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer repos.close()

	var (
		metricsSink    ports.Metrics = services.NopMetrics{}
		metricsHandler stdhttp.Handler
	)
	if cfg.Metrics.Enabled {
		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metricsSink = metrics.NewPrometheus(reg)
		metricsHandler = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	}

	authService := services.NewAuthService(repos.accounts, credentials.NewPasswordHasher(cfg.Auth.BcryptCost),
		credentials.NewSigner(privateKey), credentials.NewVerifier(publicKey), cfg.Auth.TokenTTL, logger)
	tallyService := services.NewTallyService(repos.elections, repos.ballots, metricsSink, logger)
	electionService := services.NewElectionService(repos.elections, tallyService, newMailer(cfg.Mail, logger), metricsSink,
		services.ElectionConfig{PublicURL: cfg.Server.PublicURL, MailConcurrency: cfg.Mail.Concurrency}, logger)
	ballotService := services.NewBallotService(repos.ballots, repos.elections, metricsSink, logger)

	handler := http.NewHandler(http.Handlers{
		Auth:      http.NewAuthHandler(authService, cfg.Auth.TokenTTL, strings.HasPrefix(cfg.Server.PublicURL, "https://"), logger),
		Elections: http.NewElectionHandler(electionService, logger),
		Ballots:   http.NewBallotHandler(ballotService, logger),
		Metrics:   metricsHandler,
	}, authService, logger)
	server := &stdhttp.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", "addr", server.Addr, "store", cfg.Store)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			log.Fatal(err)
		}
	}()

	<-ctx.Done()
	logger.Info("gracefully shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatal(err)
	}
}
