package realtime

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/metrics"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
)

// Plants exposes the loaded plants and their open tickets.
type Plants interface {
	Snapshot() *records.Dataset
}

// Feeder fills the sampler with simulated samples for every loaded plant
// when no live telemetry is connected.
type Feeder struct {
	sim     *Simulator
	sampler *Sampler
	plants  Plants
	log     zerolog.Logger
	now     func() time.Time
	last    map[string]time.Time
}

func NewFeeder(sim *Simulator, sampler *Sampler, plants Plants, log zerolog.Logger) *Feeder {
	return &Feeder{
		sim:     sim,
		sampler: sampler,
		plants:  plants,
		log:     log.With().Str("component", "realtime-feeder").Logger(),
		now:     time.Now,
		last:    make(map[string]time.Time),
	}
}

// Tick appends every grid sample due since the previous tick. A plant seen
// for the first time is backfilled over the whole retention horizon.
func (f *Feeder) Tick() int {
	now := f.now()
	ds := f.plants.Snapshot()
	added := 0
	for _, id := range ds.PlantIDs() {
		pd, err := ds.Plant(id)
		if err != nil {
			continue
		}
		from, ok := f.last[id]
		if !ok {
			from = now.Add(-f.sampler.Retention())
		}
		samples := f.sim.Series(pd.Plant, from, now, ds.HasSevereOpenTicket(id))
		if len(samples) == 0 {
			continue
		}
		f.sampler.Append(samples...)
		f.last[id] = samples[len(samples)-1].Timestamp
		added += len(samples)
	}
	if added > 0 {
		metrics.RealtimeSamplesTotal.WithLabelValues("simulation").Add(float64(added))
		f.log.Debug().Int("samples", added).Msg("Simulated samples appended")
	}
	return added
}

// Run ticks once per simulator interval until ctx is done.
func (f *Feeder) Run(ctx context.Context) {
	f.Tick()
	ticker := time.NewTicker(f.sim.Interval())
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			f.Tick()
		}
	}
}
