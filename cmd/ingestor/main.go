package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/cloud"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/metrics"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/realtime"
)

const (
	flushEvery = 10 * time.Second
	flushSize  = 100
)

// buffer collects samples between archive flushes.
type buffer struct {
	mu      sync.Mutex
	samples []domain.RealtimeSample
}

func (b *buffer) add(s domain.RealtimeSample) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.samples = append(b.samples, s)
	return len(b.samples)
}

func (b *buffer) drain() []domain.RealtimeSample {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.samples
	b.samples = nil
	return out
}

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	log.Logger = config.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	archive, err := cloud.NewDynamoDBClient(ctx, config.AWSRegion(), config.DynamoDBTable())
	if err != nil {
		log.Fatal().Err(err).Msg("dynamodb client")
	}

	client, err := realtime.Connect(config.MQTTBroker(), "solar-exec-ingestor")
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	buf := &buffer{}
	full := make(chan struct{}, 1)
	sink := func(s domain.RealtimeSample) {
		if buf.add(s) >= flushSize {
			select {
			case full <- struct{}{}:
			default:
			}
		}
	}
	if err := realtime.Subscribe(client, config.MQTTTopic(), sink, log.Logger); err != nil {
		log.Fatal().Err(err).Msg("subscribe failed")
	}

	flush := func(ctx context.Context) {
		samples := buf.drain()
		if len(samples) == 0 {
			return
		}
		if err := archive.PutSamples(ctx, samples); err != nil {
			log.Error().Err(err).Int("samples", len(samples)).Msg("archive failed")
			return
		}
		metrics.RealtimeSamplesTotal.WithLabelValues("mqtt").Add(float64(len(samples)))
		log.Debug().Int("samples", len(samples)).Msg("archived")
	}

	log.Info().Str("topic", config.MQTTTopic()).Msg("ingestor running; Ctrl+C to stop")
	ticker := time.NewTicker(flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			final, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			flush(final)
			cancel()
			log.Info().Msg("ingestor stopped")
			return
		case <-ticker.C:
			flush(ctx)
		case <-full:
			flush(ctx)
		}
	}
}
