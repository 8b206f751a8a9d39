package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"smam/backend/internal/config"
	"smam/backend/internal/fields"
	"smam/backend/internal/health"
	"smam/backend/internal/locale"
	"smam/backend/internal/logger"
	"smam/backend/internal/mailer"
	"smam/backend/internal/monitoring"
	"smam/backend/internal/service"
	"smam/backend/internal/token"
	httptransport "smam/backend/internal/transport/http"
)

// main 启动表单邮件中继服务。
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	if !cfg.Log.Development {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	log, err := logger.New(cfg.Log)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() { _ = log.Sync() }()

	log.Info("starting smam server",
		zap.String("log_level", cfg.Log.Level),
		zap.Bool("development", cfg.Log.Development),
		zap.String("mail_driver", cfg.Mail.Driver),
		zap.Int("recipients", len(cfg.Mail.Recipients)),
		zap.Int("custom_fields", len(cfg.Fields)),
	)

	metrics := monitoring.NewMetrics()

	transport, smtpAddr := newTransport(cfg, log)
	healthChecker := health.NewChecker(smtpAddr, log)

	renderer, err := mailer.NewRenderer(cfg.Mail.Template)
	if err != nil {
		log.Fatal("failed to load mail template", zap.Error(err))
	}

	catalog, err := locale.Load()
	if err != nil {
		log.Fatal("failed to load locales", zap.Error(err))
	}
	log.Info("locales loaded", zap.Strings("languages", catalog.Languages()))

	store := token.NewStore(token.WithTTL(cfg.Token.TTL))
	sweeper := token.NewSweeper(store, cfg.Token.SweepInterval, log, metrics.RecordSweep)

	dispatcher := mailer.NewDispatcher(transport, mailer.DispatcherConfig{
		AttemptTimeout: cfg.Mail.AttemptTimeout,
		MaxConcurrency: cfg.Mail.MaxConcurrency,
		RatePerSecond:  cfg.Mail.RatePerSecond,
	}, metrics, log)

	relay := service.NewRelayService(
		store,
		fields.NewNormalizer(cfg.Fields),
		renderer,
		dispatcher,
		service.RelayConfig{From: cfg.Mail.From, Recipients: cfg.Mail.Recipients},
		metrics,
		log,
	)

	router, err := httptransport.NewRouter(httptransport.RouterDependencies{
		Config:  cfg,
		Relay:   relay,
		Catalog: catalog,
		Metrics: metrics,
		Health:  healthChecker,
		Logger:  log,
	})
	if err != nil {
		log.Fatal("failed to build router", zap.Error(err))
	}

	httpAddr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	httpServer := &http.Server{
		Addr:              httpAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		// 分发需等待全部收件人，写超时需覆盖整次分发
		WriteTimeout: cfg.Mail.DispatchDeadline() + 30*time.Second,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		log.Info("starting HTTP server", zap.String("address", httpAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("HTTP server error", zap.Error(err))
			return err
		}
		return nil
	})

	group.Go(func() error {
		sweeper.Run(groupCtx)
		return nil
	})

	group.Go(func() error {
		<-groupCtx.Done()
		log.Info("shutdown signal received, gracefully shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("HTTP server shutdown error", zap.Error(err))
		}

		log.Info("server stopped")
		return nil
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Fatal("server error", zap.Error(err))
	}

	log.Info("server exited cleanly")
}

// newTransport 按 mail.driver 创建投递通道
//
// 返回值:
//   - mailer.Transport: 投递通道
//   - string: SMTP 中继地址，仅 smtp 驱动非空，用于就绪检查
func newTransport(cfg *config.Config, log *zap.Logger) (mailer.Transport, string) {
	switch cfg.Mail.Driver {
	case config.DriverResend:
		log.Info("using resend mail transport")
		return mailer.NewResendTransport(cfg.Resend.APIKey), ""
	case config.DriverLog:
		log.Warn("using log mail transport, messages will not be delivered")
		return mailer.NewLogTransport(log), ""
	default:
		t := mailer.NewSMTPTransport(mailer.SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			TLSMode:  cfg.SMTP.TLS,
			Helo:     cfg.SMTP.Helo,
			Timeout:  cfg.Mail.AttemptTimeout,
		}, log)
		log.Info("using smtp mail transport",
			zap.String("address", t.Addr()),
			zap.String("tls", cfg.SMTP.TLS))
		return t, t.Addr()
	}
}
