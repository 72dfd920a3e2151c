package realtime

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
)

var t0 = time.Date(2026, time.March, 15, 12, 0, 0, 0, time.UTC)

func sample(plant string, ts time.Time, kw float64) domain.RealtimeSample {
	return domain.RealtimeSample{PlantID: plant, Timestamp: ts, PowerKW: kw, IntervalEnergyKWh: kw / 12}
}

func TestRecentWindowAndOrder(t *testing.T) {
	s := NewSampler(48 * time.Hour)
	s.SetClock(func() time.Time { return t0 })

	s.Append(
		sample("P", t0.Add(-30*time.Minute), 3),
		sample("P", t0.Add(-3*time.Hour), 1),
		sample("P", t0.Add(-90*time.Minute), 2),
		sample("Q", t0, 9),
	)

	got, err := s.Recent("P", 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 2.0, got[0].PowerKW)
	assert.Equal(t, 3.0, got[1].PowerKW)

	all, err := s.Recent("P", 168)
	require.NoError(t, err)
	assert.Len(t, all, 3, "window beyond retained history returns everything")

	latest, ok := s.Latest("P")
	require.True(t, ok)
	assert.Equal(t, 3.0, latest.PowerKW)

	_, ok = s.Latest("none")
	assert.False(t, ok)
}

func TestRecentRejectsBadWindow(t *testing.T) {
	s := NewSampler(time.Hour)
	for _, h := range []int{0, -1} {
		_, err := s.Recent("P", h)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err), "hours=%d", h)
	}
}

func TestRecentBeyondRetentionReturnsEverything(t *testing.T) {
	s := NewSampler(30 * 24 * time.Hour)
	s.SetClock(func() time.Time { return t0 })
	s.Append(
		sample("P", t0.Add(-200*time.Hour), 1),
		sample("P", t0.Add(-time.Hour), 2),
	)

	got, err := s.Recent("P", 720)
	require.NoError(t, err)
	assert.Len(t, got, 2)

	got, err = s.Recent("P", 100000)
	require.NoError(t, err)
	assert.Len(t, got, 2)
}

func TestRetentionDiscardsOldSamples(t *testing.T) {
	s := NewSampler(24 * time.Hour)
	s.SetClock(func() time.Time { return t0 })

	s.Append(sample("P", t0.Add(-25*time.Hour), 1), sample("P", t0.Add(-time.Hour), 2))
	got, err := s.Recent("P", 168)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, 2.0, got[0].PowerKW)
}

func TestAppendReplacesSameTimestamp(t *testing.T) {
	s := NewSampler(24 * time.Hour)
	s.SetClock(func() time.Time { return t0 })

	s.Append(sample("P", t0.Add(-10*time.Minute), 1), sample("P", t0.Add(-5*time.Minute), 2))
	s.Append(sample("P", t0.Add(-10*time.Minute), 7))

	got, _ := s.Recent("P", 1)
	require.Len(t, got, 2)
	assert.Equal(t, 7.0, got[0].PowerKW)
}

func TestSolarFactor(t *testing.T) {
	assert.Zero(t, SolarFactor(3))
	assert.Zero(t, SolarFactor(21))
	assert.InDelta(t, 1.0, SolarFactor(13), 1e-12)
	assert.Greater(t, SolarFactor(12), SolarFactor(8))
}

func TestSimulatedSeries(t *testing.T) {
	p := domain.Plant{ID: "P", ACPowerMW: 10, Timezone: "UTC"}
	sim := NewSimulator(5*time.Minute, 1)

	series := sim.Series(p, t0.Add(-24*time.Hour), t0, false)
	require.Len(t, series, 288)
	for i, smp := range series {
		if i > 0 {
			assert.Equal(t, 5*time.Minute, smp.Timestamp.Sub(series[i-1].Timestamp))
		}
		assert.LessOrEqual(t, smp.PowerKW, 10000*1.08+0.01)
		assert.InDelta(t, smp.PowerKW/12, smp.IntervalEnergyKWh, 0.01)

		hour := smp.Timestamp.Hour()
		if hour < 6 || hour > 20 {
			assert.Zero(t, smp.PowerKW)
			assert.Zero(t, smp.InvertersHealthyPct)
		}
	}

	degraded := sim.Series(p, t0.Add(-time.Hour), t0, true)
	for _, smp := range degraded {
		assert.LessOrEqual(t, smp.PowerKW, 10000*1.08*0.95+0.01)
	}
}

func TestFeederBackfillsThenAppends(t *testing.T) {
	ds := records.NewDataset([]domain.PlantData{{Plant: domain.Plant{ID: "P", ACPowerMW: 5}}}, nil, nil)
	store := records.NewStore(zerolog.Nop())
	store.Replace(ds)

	clock := t0
	sampler := NewSampler(6 * time.Hour)
	sampler.SetClock(func() time.Time { return clock })
	f := NewFeeder(NewSimulator(5*time.Minute, 2), sampler, store, zerolog.Nop())
	f.now = func() time.Time { return clock }

	assert.Equal(t, 72, f.Tick())
	clock = clock.Add(10 * time.Minute)
	assert.Equal(t, 2, f.Tick())

	got, err := sampler.Recent("P", 6)
	require.NoError(t, err)
	assert.Len(t, got, 72)
	assert.Equal(t, clock, got[len(got)-1].Timestamp)
}

func TestDecodeMessage(t *testing.T) {
	s, err := Decode(Topic("PLANTA_001"), []byte(`{"timestamp":"2026-03-15T12:00:00Z","potencia_kw":4200.5,"estado_inversores_pct":98}`))
	require.NoError(t, err)
	assert.Equal(t, "PLANTA_001", s.PlantID)
	assert.Equal(t, 4200.5, s.PowerKW)

	payload, err := Encode(s)
	require.NoError(t, err)
	back, err := Decode("other/topic", payload)
	require.NoError(t, err)
	assert.Equal(t, s.PlantID, back.PlantID)

	_, err = Decode("other/topic", []byte(`{"timestamp":"2026-03-15T12:00:00Z"}`))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = Decode(Topic("P"), []byte(`{"timestamp":"2026-03-15T12:00:00Z","estado_inversores_pct":130}`))
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = Decode(Topic("P"), []byte(`not json`))
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	var samples []domain.RealtimeSample
	for i := 0; i < 12; i++ {
		samples = append(samples, sample("P", t0.Add(time.Duration(i)*5*time.Minute), 1200))
	}
	st := Summarize(samples)
	assert.Equal(t, 12, st.Samples)
	assert.InDelta(t, 1200, st.AvgPowerKW, 1e-9)
	assert.InDelta(t, 1200, st.EnergyKWh, 1e-9)
	assert.InDelta(t, 1.2, st.EnergyMWh, 1e-9)
	assert.Equal(t, 1200.0, st.PeakPowerKW)
	assert.Zero(t, st.Spikes)
	assert.Zero(t, st.Outliers)

	assert.Zero(t, Summarize(nil).AvgPowerKW)
}

func TestSummarizeFlagsPowerSpike(t *testing.T) {
	var samples []domain.RealtimeSample
	for i := 0; i < 16; i++ {
		kw := 1000.0
		if i%2 == 1 {
			kw = 1010
		}
		if i == 12 {
			kw = 5000
		}
		samples = append(samples, sample("P", t0.Add(time.Duration(i)*5*time.Minute), kw))
	}
	st := Summarize(samples)
	assert.Equal(t, 1, st.Spikes)
	assert.Equal(t, 1, st.Outliers)
	assert.Equal(t, 5000.0, st.PeakPowerKW)
}
