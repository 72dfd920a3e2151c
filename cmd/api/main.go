package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/config"
	httpHandlers "github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/http"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/realtime"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/service"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	log.Logger = config.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svcs, err := service.New(ctx, log.Logger)
	if err != nil {
		log.Fatal().Err(err).Msg("service setup failed")
	}
	defer svcs.Close()

	res := svcs.Reload(ctx)
	if !res.Success {
		log.Warn().Strs("errors", res.Errors).Msg("initial data load incomplete")
	}

	if n, err := svcs.WarmSampler(ctx); err != nil {
		log.Error().Err(err).Msg("sampler warm-up failed")
	} else if n > 0 {
		log.Info().Int("samples", n).Msg("sampler warmed from archive")
	}

	if config.MQTTEnabled() {
		client, err := realtime.Connect(config.MQTTBroker(), "solar-exec-api")
		if err != nil {
			log.Fatal().Err(err).Msg("mqtt connect")
		}
		defer client.Disconnect(250)
		if err := realtime.Subscribe(client, config.MQTTTopic(), svcs.Ingest, log.Logger); err != nil {
			log.Fatal().Err(err).Msg("subscribe failed")
		}
		log.Info().Str("topic", config.MQTTTopic()).Msg("live realtime feed subscribed")
	} else if svcs.Feeder != nil {
		go svcs.Feeder.Run(ctx)
		log.Info().Msg("realtime simulation running")
	}

	app := httpHandlers.NewApp(config.CORSOrigins())
	httpHandlers.Register(app, svcs)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("shutdown failed")
		}
	}()

	addr := config.APIAddr()
	if addr == "" {
		addr = ":8000"
	}
	log.Info().Str("addr", addr).Msg("api listening")
	if err := app.Listen(addr); err != nil {
		log.Fatal().Err(err).Msg("server exit")
	}
	log.Info().Msg("api stopped")
}
