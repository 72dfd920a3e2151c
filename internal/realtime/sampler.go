// Package realtime keeps a bounded window of sub-hourly plant telemetry and
// feeds it from MQTT, DynamoDB or a solar-curve simulation.
package realtime

import (
	"sort"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/anomaly"
	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/converter"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// MaxWindowHours is the largest window the API accepts and the default
// retention.
const MaxWindowHours = 168

// Sampler holds recent samples per plant, oldest first. Samples older than
// the retention horizon are discarded on every append.
type Sampler struct {
	mu        sync.RWMutex
	retention time.Duration
	series    map[string][]domain.RealtimeSample
	now       func() time.Time
}

func NewSampler(retention time.Duration) *Sampler {
	if retention <= 0 {
		retention = MaxWindowHours * time.Hour
	}
	return &Sampler{retention: retention, series: make(map[string][]domain.RealtimeSample), now: time.Now}
}

// SetClock replaces the clock used for retention and windows.
func (s *Sampler) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

func (s *Sampler) Retention() time.Duration { return s.retention }

// Append stores samples keyed by their PlantID. A sample with the timestamp
// of an existing one replaces it.
func (s *Sampler) Append(samples ...domain.RealtimeSample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[string]bool)
	for _, smp := range samples {
		smp.Timestamp = smp.Timestamp.UTC()
		rows := s.series[smp.PlantID]
		n := len(rows)
		switch {
		case n == 0 || rows[n-1].Timestamp.Before(smp.Timestamp):
			rows = append(rows, smp)
		default:
			i := sort.Search(n, func(i int) bool { return !rows[i].Timestamp.Before(smp.Timestamp) })
			if i < n && rows[i].Timestamp.Equal(smp.Timestamp) {
				rows[i] = smp
			} else {
				rows = append(rows, domain.RealtimeSample{})
				copy(rows[i+1:], rows[i:])
				rows[i] = smp
			}
		}
		s.series[smp.PlantID] = rows
		touched[smp.PlantID] = true
	}

	cutoff := s.now().Add(-s.retention)
	for id := range touched {
		rows := s.series[id]
		drop := sort.Search(len(rows), func(i int) bool { return rows[i].Timestamp.After(cutoff) })
		if drop > 0 {
			s.series[id] = append([]domain.RealtimeSample(nil), rows[drop:]...)
		}
	}
}

// Recent returns the plant's samples of the trailing window, most recent
// last. A window longer than the retained history returns everything held.
func (s *Sampler) Recent(plantID string, hours int) ([]domain.RealtimeSample, error) {
	if hours < 1 {
		return nil, domain.Validationf("hours must be at least 1, got %d", hours)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows := s.series[plantID]
	from := 0
	if time.Duration(hours) <= s.retention/time.Hour {
		cutoff := s.now().Add(-time.Duration(hours) * time.Hour)
		from = sort.Search(len(rows), func(i int) bool { return !rows[i].Timestamp.Before(cutoff) })
	}
	out := make([]domain.RealtimeSample, len(rows)-from)
	copy(out, rows[from:])
	return out, nil
}

// Latest returns the most recent sample of the plant.
func (s *Sampler) Latest(plantID string) (domain.RealtimeSample, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := s.series[plantID]
	if len(rows) == 0 {
		return domain.RealtimeSample{}, false
	}
	return rows[len(rows)-1], true
}

// Stats summarizes a realtime window.
type Stats struct {
	Samples       int       `json:"muestras"`
	AvgPowerKW    float64   `json:"potencia_promedio_kw"`
	PeakPowerKW   float64   `json:"potencia_pico_kw"`
	EnergyKWh     float64   `json:"energia_kwh"`
	EnergyMWh     float64   `json:"energia_mwh"`
	MovingAvgKW   []float64 `json:"media_movil_kw"`
	AvgIrradiance float64   `json:"irradiancia_promedio"`
	Spikes        int       `json:"picos"`
	Outliers      int       `json:"outliers"`
}

// SmoothingWindow is the moving-average width in samples (one hour at 5 min).
const SmoothingWindow = 12

// SpikeSigma is how many standard deviations off the trailing hour a power
// reading must be to count as a spike.
const SpikeSigma = 3.0

// Summarize aggregates samples with the grid analytics helpers.
func Summarize(samples []domain.RealtimeSample) Stats {
	st := Stats{Samples: len(samples), MovingAvgKW: []float64{}}
	if len(samples) == 0 {
		return st
	}
	power := make([]aggregator.Point, len(samples))
	readings := make([]anomaly.Reading, len(samples))
	energy := make([]aggregator.Point, len(samples))
	irr := make([]aggregator.Point, len(samples))
	for i, smp := range samples {
		power[i] = aggregator.Point{Value: smp.PowerKW, Timestamp: smp.Timestamp}
		energy[i] = aggregator.Point{Value: smp.IntervalEnergyKWh, Timestamp: smp.Timestamp}
		irr[i] = aggregator.Point{Value: smp.Irradiance, Timestamp: smp.Timestamp}
		readings[i] = anomaly.Reading{Consumption: smp.PowerKW, Timestamp: smp.Timestamp.Unix()}
		if smp.PowerKW > st.PeakPowerKW {
			st.PeakPowerKW = smp.PowerKW
		}
	}
	st.AvgPowerKW = aggregator.Average(power)
	st.EnergyKWh = aggregator.Sum(energy)
	st.AvgIrradiance = aggregator.Average(irr)
	st.EnergyMWh = (&converter.EnergyConverter{}).KWhToMWh(st.EnergyKWh)
	if len(samples) >= SmoothingWindow {
		st.MovingAvgKW = aggregator.MovingAverage(power, SmoothingWindow)
	}
	detector := &anomaly.AnomalyDetector{Threshold: SpikeSigma, WindowSize: SmoothingWindow}
	st.Spikes = len(detector.DetectSpikes(readings))
	st.Outliers = len(detector.DetectOutliers(readings))
	return st
}
