package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/diagnosis/stays/pkg/config"
	"github.com/diagnosis/stays/pkg/events"
	"github.com/diagnosis/stays/pkg/logger"
	mw "github.com/diagnosis/stays/pkg/middleware"
	"github.com/diagnosis/stays/services/notify/internal/mailer"
	"github.com/diagnosis/stays/services/notify/internal/notifier"
	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const queue = "notify"

func main() {
	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded", "error", err)
	}
	cfg := config.Load()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var m mailer.Service = mailer.NewDevMailer()
	if !cfg.Email.DevMode {
		m = mailer.NewMailerSend(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.FromEmail)
	}
	n := notifier.New(m)

	bus, err := events.NewNATSEventBus(cfg.NATS.URL, "notify")
	if err != nil {
		logger.Error("Failed to connect to NATS", "error", err)
		os.Exit(1)
	}
	defer bus.Close()

	for _, subject := range []string{events.BookingCreated, events.BookingConfirmed, events.BookingCancelled} {
		err := bus.QueueSubscribe(subject, queue, func(msg *events.Message) {
			hctx, cancel := context.WithTimeout(context.WithValue(ctx, logger.ServiceKey, "notify"), 30*time.Second)
			defer cancel()
			if err := n.Handle(hctx, msg); err != nil {
				logger.ErrorContext(hctx, "Failed to handle event", "subject", msg.Subject, "error", err)
			}
		})
		if err != nil {
			logger.Error("Failed to subscribe", "subject", subject, "error", err)
			os.Exit(1)
		}
	}

	r := chi.NewRouter()
	r.Use(mw.RequestID)
	r.Use(mw.ServiceName("notify"))
	r.Use(mw.Logging)
	r.Use(mw.Health(nil))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting notify service", "port", cfg.Server.Port, "dev_mail", cfg.Email.DevMode)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down notify service...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("Notify service error", "error", err)
		os.Exit(1)
	}
}
