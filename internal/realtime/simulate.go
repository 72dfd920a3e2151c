package realtime

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// Solar curve shape: a gaussian centered at solar noon-ish, zero outside
// the daylight hours.
const (
	curveCenterHour = 13.0
	curveWidthHours = 4.5
	sunriseHour     = 6.0
	sunsetHour      = 20.0
)

// SolarFactor is the fraction of nameplate output at the given local hour.
func SolarFactor(hour float64) float64 {
	if hour < sunriseHour || hour > sunsetHour {
		return 0
	}
	d := hour - curveCenterHour
	return math.Max(0, math.Exp(-(d*d)/(2*curveWidthHours*curveWidthHours)))
}

// Simulator generates plausible telemetry for a plant.
type Simulator struct {
	mu       sync.Mutex
	rng      *rand.Rand
	interval time.Duration
}

func NewSimulator(interval time.Duration, seed int64) *Simulator {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &Simulator{rng: rand.New(rand.NewSource(seed)), interval: interval}
}

func (s *Simulator) Interval() time.Duration { return s.interval }

func (s *Simulator) uniform(lo, hi float64) float64 {
	return lo + s.rng.Float64()*(hi-lo)
}

// Sample produces the sample of plant p at ts. degraded lowers the output
// as open high or critical tickets do.
func (s *Simulator) Sample(p domain.Plant, ts time.Time, degraded bool) domain.RealtimeSample {
	s.mu.Lock()
	defer s.mu.Unlock()

	local := ts.In(plantLocation(p))
	factor := SolarFactor(float64(local.Hour()) + float64(local.Minute())/60)

	power := p.ACPowerMW * 1000 * factor * s.uniform(0.92, 1.08)
	if degraded {
		power *= s.uniform(0.7, 0.95)
	}
	health := 0.0
	if factor > 0.1 {
		health = s.uniform(95, 100)
	}
	return domain.RealtimeSample{
		PlantID:             p.ID,
		Timestamp:           ts.UTC(),
		PowerKW:             round2(power),
		IntervalEnergyKWh:   round2(power * s.interval.Hours()),
		Irradiance:          round2(factor * s.uniform(800, 1000)),
		ModuleTempC:         round2(25 + factor*s.uniform(20, 35)),
		InvertersHealthyPct: round2(health),
	}
}

// Series returns samples on the interval grid covering (from, to].
func (s *Simulator) Series(p domain.Plant, from, to time.Time, degraded bool) []domain.RealtimeSample {
	var out []domain.RealtimeSample
	for ts := from.Truncate(s.interval).Add(s.interval); !ts.After(to); ts = ts.Add(s.interval) {
		out = append(out, s.Sample(p, ts, degraded))
	}
	return out
}

func plantLocation(p domain.Plant) *time.Location {
	if p.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }
