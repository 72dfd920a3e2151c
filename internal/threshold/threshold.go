// Package threshold classifies KPI values against per-plant breach levels
// and assembles the alert list shown to executives.
package threshold

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// Metric keys evaluated for every snapshot.
const (
	MetricPR           = "pr"
	MetricAvailability = "availability"
	MetricDeviation    = "desviacion_pct"
	MetricMargin       = "margen_bruto_pct"
	MetricCostPerKWh   = "costo_por_kwh"
	MetricSoiling      = "perdida_soiling_pct"
	MetricBacklog      = "backlog_usd"
)

// Result is the outcome of one evaluation. Message is empty when Status is normal.
type Result struct {
	Metric  string        `json:"metric"`
	Value   float64       `json:"value"`
	Status  domain.Status `json:"status"`
	Message string        `json:"message,omitempty"`
}

// Classify compares value with t. Reaching a breach value exactly does not
// breach it.
func Classify(value float64, t domain.Threshold) domain.Status {
	switch t.Polarity {
	case domain.LowerIsWorse:
		if value < t.Red {
			return domain.StatusCritical
		}
		if value < t.Yellow {
			return domain.StatusWarning
		}
	case domain.HigherIsWorse:
		if value > t.Red {
			return domain.StatusCritical
		}
		if value > t.Yellow {
			return domain.StatusWarning
		}
	}
	return domain.StatusNormal
}

// Evaluate classifies value with the threshold configured for metric. A
// metric without a threshold is always normal.
func Evaluate(metric string, value float64, thresholds []domain.Threshold) Result {
	res := Result{Metric: metric, Value: value, Status: domain.StatusNormal}
	for _, t := range thresholds {
		if !strings.EqualFold(t.KPI, metric) {
			continue
		}
		res.Status = Classify(value, t)
		if res.Status != domain.StatusNormal {
			res.Message = Render(t, value)
		}
		return res
	}
	return res
}

// Render fills the alert template. {value}, {yellow}, {red} and {kpi} are
// substituted; a template without {value} gets the value appended.
func Render(t domain.Threshold, value float64) string {
	v := formatValue(value)
	tmpl := strings.TrimSpace(t.Template)
	if tmpl == "" {
		tmpl = fmt.Sprintf("%s fuera de umbral", t.KPI)
	}
	if !strings.Contains(tmpl, "{value}") {
		tmpl += " (valor: {value})"
	}
	return strings.NewReplacer(
		"{value}", v,
		"{yellow}", formatValue(t.Yellow),
		"{red}", formatValue(t.Red),
		"{kpi}", t.KPI,
	).Replace(tmpl)
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// Alerts orders critical messages before warnings and keeps at most one
// message per metric, the most severe one. Identical messages collapse.
func Alerts(results []Result) []string {
	worst := make(map[string]Result)
	var order []string
	for _, r := range results {
		if r.Status == domain.StatusNormal || r.Message == "" {
			continue
		}
		key := strings.ToLower(r.Metric)
		prev, seen := worst[key]
		if !seen {
			order = append(order, key)
		}
		if !seen || r.Status > prev.Status {
			worst[key] = r
		}
	}

	out := []string{}
	emitted := make(map[string]bool)
	for _, status := range []domain.Status{domain.StatusCritical, domain.StatusWarning} {
		for _, key := range order {
			r := worst[key]
			if r.Status != status || emitted[r.Message] {
				continue
			}
			emitted[r.Message] = true
			out = append(out, r.Message)
		}
	}
	return out
}

// Worst returns the most severe status among results.
func Worst(results ...Result) domain.Status {
	s := domain.StatusNormal
	for _, r := range results {
		s = s.Worst(r.Status)
	}
	return s
}

// Effective returns the plant's thresholds, adding a performance-ratio
// threshold derived from the plant target when none is configured: warning
// below 95% of target, critical below 90%.
func Effective(pd *domain.PlantData) []domain.Threshold {
	out := make([]domain.Threshold, 0, len(pd.Thresholds)+1)
	out = append(out, pd.Thresholds...)
	if _, ok := pd.Threshold(MetricPR); !ok && pd.Plant.TargetPR > 0 {
		out = append(out, domain.Threshold{
			KPI:      MetricPR,
			PlantID:  pd.Plant.ID,
			Yellow:   pd.Plant.TargetPR * 0.95,
			Red:      pd.Plant.TargetPR * 0.9,
			Polarity: domain.LowerIsWorse,
			Template: "PR promedio {value} por debajo del objetivo",
		})
	}
	return out
}
