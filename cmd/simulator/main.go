package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/realtime"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
)

func main() {
	if err := config.Load(); err != nil {
		log.Fatal().Err(err).Msg("config load failed")
	}
	log.Logger = config.Logger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := records.NewStore(log.Logger)
	if res := store.Reload(ctx, records.NewFolderSource(config.DataFolder())); !res.Success {
		log.Warn().Strs("errors", res.Errors).Msg("plant data incomplete")
	}
	ds := store.Snapshot()
	if len(ds.PlantIDs()) == 0 {
		log.Fatal().Str("folder", config.DataFolder()).Msg("no plants to simulate")
	}

	client, err := realtime.Connect(config.MQTTBroker(), "solar-exec-simulator")
	if err != nil {
		log.Fatal().Err(err).Msg("mqtt connect")
	}
	defer client.Disconnect(250)

	sim := realtime.NewSimulator(config.RealtimeInterval(), time.Now().UnixNano())
	ticker := time.NewTicker(sim.Interval())
	defer ticker.Stop()

	publish := func(now time.Time) {
		ts := now.Truncate(sim.Interval())
		for _, id := range ds.PlantIDs() {
			pd, err := ds.Plant(id)
			if err != nil {
				continue
			}
			s := sim.Sample(pd.Plant, ts, ds.HasSevereOpenTicket(id))
			if err := realtime.Publish(client, s); err != nil {
				log.Error().Err(err).Str("plant", id).Msg("publish failed")
				continue
			}
			log.Debug().Str("plant", id).Float64("kw", s.PowerKW).Msg("published")
		}
	}

	log.Info().Int("plants", len(ds.PlantIDs())).Dur("interval", sim.Interval()).Msg("simulator running")
	publish(time.Now())
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("simulation done")
			return
		case now := <-ticker.C:
			publish(now)
		}
	}
}
