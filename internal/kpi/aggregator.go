// Package kpi computes the executive KPI snapshot of a plant over a range.
package kpi

import (
	"math"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/aggregator"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/threshold"
)

// Defaults applied when Config leaves a field unset.
const (
	DefaultTrendTolerancePct = 1.0
	DefaultTopTickets        = 10
)

// Variation keys of ExecutiveKPISnapshot.Variations.
const (
	VarEnergyVsExpected = "energia_vs_esperada_pct"
	VarRevenueVsTarget  = "ingresos_vs_objetivo_pct"
	VarOpexVsBudget     = "opex_vs_presupuesto_pct"
)

type Config struct {
	// CO2FactorKgPerKWh is the grid carbon intensity displaced per kWh.
	CO2FactorKgPerKWh float64
	// TrendTolerancePct is the deviation difference, in percentage points,
	// below which the trend is stable.
	TrendTolerancePct float64
	TopTickets        int
}

// Records is the read side of the Record Store.
type Records interface {
	Snapshot() *records.Dataset
}

// LatestSampler yields the most recent realtime sample of a plant.
type LatestSampler interface {
	Latest(plantID string) (domain.RealtimeSample, bool)
}

type Aggregator struct {
	cfg     Config
	records Records
	samples LatestSampler
	now     func() time.Time
}

// NewAggregator builds an aggregator. samples may be nil, in which case the
// current power is zero and only historical metrics drive the system state.
func NewAggregator(cfg Config, rec Records, samples LatestSampler) *Aggregator {
	if cfg.TrendTolerancePct <= 0 {
		cfg.TrendTolerancePct = DefaultTrendTolerancePct
	}
	if cfg.TopTickets <= 0 {
		cfg.TopTickets = DefaultTopTickets
	}
	return &Aggregator{cfg: cfg, records: rec, samples: samples, now: time.Now}
}

// SetClock replaces the clock used to resolve ranges.
func (a *Aggregator) SetClock(now func() time.Time) { a.now = now }

// ComputeSnapshot aggregates the plant's records over r. It fails only for
// an unknown plant or range; every numeric edge case resolves to zero.
func (a *Aggregator) ComputeSnapshot(plantID string, r domain.Range) (*domain.ExecutiveKPISnapshot, error) {
	r, err := domain.ParseRange(string(r))
	if err != nil {
		return nil, err
	}
	ds := a.records.Snapshot()
	pd, err := ds.Plant(plantID)
	if err != nil {
		return nil, err
	}

	now := a.now()
	start, end := r.Bounds(now)
	rows := ds.PerformanceRange(plantID, start, end)
	t := summarize(rows)

	snap := &domain.ExecutiveKPISnapshot{
		PlantID:     plantID,
		Range:       r,
		RangeStart:  start,
		RangeEnd:    end,
		GeneratedAt: now.UTC(),
		RecordCount: len(rows),

		EnergyKWh:         t.energy,
		ExpectedEnergyKWh: t.expected,
		DeviationPct:      deviationPct(t.energy, t.expected),
		Trend:             trend(rows, a.cfg.TrendTolerancePct),
		CO2AvoidedKg:      t.energy * a.cfg.CO2FactorKgPerKWh,

		RevenueUSD:     t.revenue,
		OpexUSD:        t.opex,
		GrossMarginUSD: t.revenue - t.opex,
		CostPerKWh:     ratio(t.opex, t.energy),

		AvgPR:              t.avgPR,
		AvgAvailabilityPct: t.avgAvailability,
		ImplausibleRecords: t.implausible,
	}
	snap.GrossMarginPct = ratio(snap.GrossMarginUSD, t.revenue) * 100

	revenueTarget := t.expected / 1000 * pd.Plant.TariffUSDPerMWh
	snap.Variations = map[string]float64{
		VarEnergyVsExpected: snap.DeviationPct,
		VarRevenueVsTarget:  ratio(t.revenue-revenueTarget, revenueTarget) * 100,
		VarOpexVsBudget:     0,
	}

	a.tickets(ds, snap)

	latest, haveSample := domain.RealtimeSample{}, false
	if a.samples != nil {
		latest, haveSample = a.samples.Latest(plantID)
	}
	if haveSample {
		snap.CurrentPowerKW = latest.PowerKW
	}

	thresholds := threshold.Effective(pd)
	status := domain.StatusNormal
	snap.Alerts = []string{}
	if len(rows) > 0 {
		core := []threshold.Result{
			threshold.Evaluate(threshold.MetricPR, t.avgPR, thresholds),
			threshold.Evaluate(threshold.MetricAvailability, t.avgAvailability, thresholds),
		}
		status = threshold.Worst(core...)
		results := append(core,
			threshold.Evaluate(threshold.MetricDeviation, snap.DeviationPct, thresholds),
			threshold.Evaluate(threshold.MetricMargin, snap.GrossMarginPct, thresholds),
			threshold.Evaluate(threshold.MetricCostPerKWh, snap.CostPerKWh, thresholds),
			threshold.Evaluate(threshold.MetricSoiling, ratio(t.soiling, t.expected)*100, thresholds),
			threshold.Evaluate(threshold.MetricBacklog, snap.BacklogUSD, thresholds),
		)
		snap.Alerts = threshold.Alerts(results)
	}
	// Inverter health only means something while the sun is up.
	if haveSample && latest.Irradiance > 0 {
		live := threshold.Evaluate(threshold.MetricAvailability, latest.InvertersHealthyPct, thresholds)
		status = status.Worst(live.Status)
	}
	snap.SystemState = domain.SystemStateOf(status)

	return snap, nil
}

func (a *Aggregator) tickets(ds *records.Dataset, snap *domain.ExecutiveKPISnapshot) {
	open := ds.OpenTickets(snap.PlantID)
	for _, t := range open {
		snap.BacklogUSD += t.EstimatedCostUSD
	}
	snap.PendingTickets = len(open)

	top, err := ds.Tickets(snap.PlantID, records.TicketQuery{
		Status: records.StatusOpen,
		Sort:   records.SortCostDesc,
		Limit:  min(a.cfg.TopTickets, records.MaxTicketLimit),
	})
	if err != nil {
		top = []domain.Ticket{}
	}
	snap.TopTickets = top
}

type totals struct {
	energy, expected, revenue, opex, soiling float64
	avgPR, avgAvailability                   float64
	implausible                              int
}

func summarize(rows []domain.PerformanceRecord) totals {
	var t totals
	if len(rows) == 0 {
		return t
	}
	pr := make([]aggregator.Point, len(rows))
	avail := make([]aggregator.Point, len(rows))
	for i, r := range rows {
		t.energy += r.EnergyKWh
		t.expected += r.ExpectedEnergyKWh
		t.revenue += r.EstimatedRevenueUSD
		t.opex += r.EstimatedOpexUSD
		t.soiling += r.SoilingLossKWh
		if r.Implausible() {
			t.implausible++
		}
		pr[i] = aggregator.Point{Value: r.PR, Timestamp: r.Date}
		avail[i] = aggregator.Point{Value: r.AvailabilityPct, Timestamp: r.Date}
	}
	t.avgPR = finite(aggregator.Average(pr))
	t.avgAvailability = finite(aggregator.Average(avail))
	return t
}

// trend compares the deviation of the most recent third of rows with the
// earliest third. Fewer than three rows is always stable.
func trend(rows []domain.PerformanceRecord, tolerance float64) domain.Trend {
	third := len(rows) / 3
	if third == 0 {
		return domain.TrendStable
	}
	first := summarize(rows[:third])
	last := summarize(rows[len(rows)-third:])
	diff := deviationPct(last.energy, last.expected) - deviationPct(first.energy, first.expected)
	switch {
	case math.Abs(diff) <= tolerance:
		return domain.TrendStable
	case diff > 0:
		return domain.TrendUp
	default:
		return domain.TrendDown
	}
}

func deviationPct(actual, expected float64) float64 {
	return ratio(actual-expected, expected) * 100
}

// ratio is num/den with a zero denominator resolving to zero.
func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return finite(num / den)
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
