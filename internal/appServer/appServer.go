// launching the bot: storage, compositor, telegram transport, kafka, http server
package appServer

import (
	"context"
	"crypto/tls"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ds124wfegd/fractal-bot/config"
	"github.com/ds124wfegd/fractal-bot/internal/database"
	"github.com/ds124wfegd/fractal-bot/internal/logger"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/compositor"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/kafka"
	"github.com/ds124wfegd/fractal-bot/internal/pkg/telegram"
	"github.com/ds124wfegd/fractal-bot/internal/service"
	"github.com/ds124wfegd/fractal-bot/internal/transport"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       cfg.Server.Idle_timeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func NewServer(cfg *config.Config) {

	logger.Setup(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	backgroundStore, err := NewStorage(ctx, cfg.Storage)
	if err != nil {
		logger.Logger.Fatalf("background storage: %s", err.Error())
	}
	backgrounds := database.NewBackgroundRepository(backgroundStore, database.PoolConfig{
		Prefix: cfg.Storage.Prefix,
		Ext:    cfg.Storage.Ext,
		Count:  cfg.Storage.Count,
	}, nil)
	if missing := backgrounds.Missing(ctx); len(missing) > 0 {
		logger.WithFields(logrus.Fields{"missing": missing}).Warn("background pool is incomplete")
	}

	fontData, err := LoadFont(cfg.Layout.FontPath)
	if err != nil {
		logger.Logger.Fatalf("font: %s", err.Error())
	}
	textCompositor, err := compositor.NewCompositor(LayoutFromConfig(cfg), fontData)
	if err != nil {
		logger.Logger.Fatalf("compositor: %s", err.Error())
	}

	producer := kafka.NewMockProducer()
	if cfg.Kafka.Enabled {
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	}
	defer producer.Close()

	bot := telegram.NewBot(cfg.Bot.Token, telegram.WithAPIURL(cfg.Bot.APIURL))

	renderService := service.NewRenderService(backgrounds, textCompositor, bot, producer, service.Options{
		MaxTextLength:   cfg.Bot.MaxTextLength,
		DeliveryTimeout: cfg.Bot.DeliveryTimeout,
		EventsTopic:     cfg.Kafka.Topic,
		Messages: service.Messages{
			Greeting:     cfg.Bot.Messages.Greeting,
			TextRequired: cfg.Bot.Messages.TextRequired,
			TooLong:      cfg.Bot.Messages.TooLong,
			Failure:      cfg.Bot.Messages.Failure,
		},
	})
	updateHandler := transport.NewUpdateHandler(renderService, cfg.Bot.WebhookSecret, cfg.Bot.Workers)

	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	webhook := cfg.Bot.Mode == config.ModeWebhook

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, transport.InitRoutes(updateHandler, webhook)); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Logger.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	var polling <-chan struct{}
	if webhook {
		if err := bot.SetWebhook(ctx, cfg.Bot.WebhookURL, cfg.Bot.WebhookSecret); err != nil {
			logger.Logger.Fatalf("setWebhook: %s", err.Error())
		}
	} else {
		// getUpdates is refused while a webhook is registered
		if err := bot.DeleteWebhook(ctx); err != nil {
			logger.WithError(err).Warn("deleteWebhook failed")
		}
		polling = StartPolling(ctx, bot, cfg.Bot.PollTimeout, renderService)
	}

	logger.WithFields(logrus.Fields{"mode": cfg.Bot.Mode, "storage": cfg.Storage.Driver}).Info("Бот запущен...")

	<-ctx.Done()

	logger.Logger.Info("App Shutting Down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Logger.Errorf("error occured on server shutting down: %s", err.Error())
	}
	if polling != nil {
		// the update in flight still gets its reply
		<-polling
	}
}
