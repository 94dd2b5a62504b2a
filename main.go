package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	appInquiry "github.com/teamcircuitbreakers/promosite/internal/application/inquiry"
	appOrder "github.com/teamcircuitbreakers/promosite/internal/application/order"
	"github.com/teamcircuitbreakers/promosite/internal/config"
	"github.com/teamcircuitbreakers/promosite/internal/infrastructure/mailtemplate"
	infraobs "github.com/teamcircuitbreakers/promosite/internal/infrastructure/observability"
	"github.com/teamcircuitbreakers/promosite/internal/infrastructure/observability/oteltrace"
	"github.com/teamcircuitbreakers/promosite/internal/infrastructure/observability/zaplogger"
	"github.com/teamcircuitbreakers/promosite/internal/infrastructure/razorpay"
	"github.com/teamcircuitbreakers/promosite/internal/infrastructure/smtpmail"
	"github.com/teamcircuitbreakers/promosite/internal/pkg/logging"
	httppresentation "github.com/teamcircuitbreakers/promosite/internal/presentation/http"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// the logger is configured from cfg, so fall back to a plain one here
		fallback := logging.MustNewLogger(logging.Options{Service: "promo-site", Env: "unknown"})
		fallback.Fatal("config_load_failed", zap.Error(err))
	}

	baseLogger := logging.MustNewLogger(logging.Options{
		Service: cfg.ServiceName,
		Env:     cfg.Env,
		Level:   cfg.LogLevel,
		File:    cfg.LogFile,
	})
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	systemLogger := logging.WithTrace(baseLogger, logging.SystemTraceID, logging.SystemSpanID)

	tel := infraobs.NewWithRegistry(
		oteltrace.New("promosite"),
		zaplogger.New(baseLogger),
		prometheus.DefaultRegisterer,
	)

	// A nil gateway keeps the process up and makes /create_order report "not configured".
	var gateway appOrder.Gateway
	if cfg.GatewayConfigured() {
		gw, err := razorpay.New(cfg.RazorpayKeyID, cfg.RazorpayKeySecret)
		if err != nil {
			systemLogger.Error("payment_gateway_init_failed", zap.Error(err))
		} else {
			gateway = gw
		}
	} else {
		systemLogger.Warn("payment_gateway_not_configured")
	}
	orderUseCase := appOrder.NewCreateOrderUseCase(gateway, tel)

	adminMailer := smtpmail.NewSender(smtpmail.Account{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.AdminEmail,
		Password: cfg.AdminEmailPassword,
	})
	customerMailer := smtpmail.NewSender(smtpmail.Account{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.CustomerEmail,
		Password: cfg.CustomerEmailPassword,
	})
	inquiryUseCase := appInquiry.NewSubmitInquiryUseCase(
		adminMailer,
		customerMailer,
		mailtemplate.MustNew(cfg.SiteName),
		appInquiry.Settings{
			AdminFrom:      appInquiry.Identity{Address: cfg.AdminEmail, Name: cfg.SiteName + " Leads"},
			CustomerFrom:   appInquiry.Identity{Address: cfg.CustomerEmail, Name: cfg.SiteName},
			AdminRecipient: cfg.AdminRecipient,
			SiteName:       cfg.SiteName,
		},
		tel,
	)

	handler := httppresentation.NewHandler(orderUseCase, inquiryUseCase, httppresentation.Site{
		Name:           cfg.SiteName,
		SupportContact: cfg.SupportContact,
	}, tel)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.Handle("/", handler.Router())

	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		systemLogger.Info("http_server_start",
			zap.String("addr", server.Addr),
			zap.Bool("payment_gateway_configured", gateway != nil),
		)
		err := server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			systemLogger.Error("http_server_error",
				zap.Error(err),
			)
			stop()
		}
	}()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		systemLogger.Error("http_server_shutdown_error",
			zap.Error(err),
		)
	} else {
		systemLogger.Info("http_server_stopped")
	}
}
