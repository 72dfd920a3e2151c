package kpi

import (
	"sort"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/maintenance"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
)

const (
	year = 365 * 24 * time.Hour

	// ServiceInterval is the preventive maintenance cycle of plant equipment.
	ServiceInterval = year

	// PV equipment only runs in daylight.
	operatingFraction = 0.5

	// Failure rates are never extrapolated from less than a month of history.
	minObservation = 30 * 24 * time.Hour

	ticketCorrective = "correctivo"
	ticketPreventive = "preventivo"
)

// EquipmentHealth is the maintenance outlook of one piece of equipment,
// derived from its ticket history.
type EquipmentHealth struct {
	EquipmentID        string    `json:"equipo_id"`
	Type               string    `json:"tipo"`
	CorrectiveTickets  int       `json:"tickets_correctivos_12m"`
	FailureRatePerYear float64   `json:"tasa_fallas_anual"`
	Risk30dPct         float64   `json:"riesgo_falla_30d_pct"`
	Risk90dPct         float64   `json:"riesgo_falla_90d_pct"`
	LastService        time.Time `json:"ultimo_servicio"`
	NextService        time.Time `json:"proximo_servicio"`
	DaysUntilService   int       `json:"dias_hasta_servicio"`
}

// EquipmentHealth estimates failure risk and the next service date of every
// equipment of the plant, highest 30-day risk first.
func (a *Aggregator) EquipmentHealth(plantID string) ([]EquipmentHealth, error) {
	ds := a.records.Snapshot()
	pd, err := ds.Plant(plantID)
	if err != nil {
		return nil, err
	}
	tickets, err := ds.Tickets(plantID, records.TicketQuery{})
	if err != nil {
		return nil, err
	}
	return equipmentHealth(pd, tickets, a.now()), nil
}

func equipmentHealth(pd *domain.PlantData, tickets []domain.Ticket, now time.Time) []EquipmentHealth {
	commissioned, _ := time.Parse("2006-01-02", strings.TrimSpace(pd.Plant.CommissionedOn))

	observed := year
	if !commissioned.IsZero() && now.Sub(commissioned) < observed {
		observed = now.Sub(commissioned)
	}
	if observed < minObservation {
		observed = minObservation
	}
	since := now.Add(-year)

	out := make([]EquipmentHealth, 0, len(pd.Equipment))
	for _, eq := range pd.Equipment {
		failures := 0
		lastService := commissioned
		for _, t := range tickets {
			if t.EquipmentID == nil || *t.EquipmentID != eq.ID {
				continue
			}
			switch strings.ToLower(strings.TrimSpace(t.Type)) {
			case ticketCorrective:
				if !t.CreatedAt.Before(since) {
					failures++
				}
			case ticketPreventive:
				if t.State == domain.TicketResolved && t.ResolvedAt != nil && t.ResolvedAt.After(lastService) {
					lastService = *t.ResolvedAt
				}
			}
		}

		h := maintenance.AssetHealth{
			FailureRatePerYear: float64(failures) / (observed.Hours() / year.Hours()),
			LastService:        lastService,
			ServiceInterval:    ServiceInterval,
		}
		if !commissioned.IsZero() {
			h.HoursRun = now.Sub(commissioned).Hours() * operatingFraction
		}

		eh := EquipmentHealth{
			EquipmentID:        eq.ID,
			Type:               eq.Type,
			CorrectiveTickets:  failures,
			FailureRatePerYear: h.FailureRatePerYear,
			Risk30dPct:         maintenance.FailureRisk(h.FailureRatePerYear, 30*24*time.Hour) * 100,
			Risk90dPct:         maintenance.FailureRisk(h.FailureRatePerYear, 90*24*time.Hour) * 100,
			LastService:        lastService,
		}
		if !lastService.IsZero() {
			eh.NextService = maintenance.NextServiceDate(h)
			eh.DaysUntilService = int(eh.NextService.Sub(now).Hours() / 24)
		}
		out = append(out, eh)
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Risk30dPct != out[j].Risk30dPct {
			return out[i].Risk30dPct > out[j].Risk30dPct
		}
		return out[i].EquipmentID < out[j].EquipmentID
	})
	return out
}
