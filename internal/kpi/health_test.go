package kpi

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
)

func equipmentTicket(id, equipment, kind string, created time.Time, resolved *time.Time) domain.Ticket {
	state := domain.TicketPending
	if resolved != nil {
		state = domain.TicketResolved
	}
	return domain.Ticket{
		ID:          id,
		PlantID:     "P1",
		CreatedAt:   created,
		State:       state,
		Type:        kind,
		EquipmentID: &equipment,
		ResolvedAt:  resolved,
	}
}

func TestEquipmentHealthFromTicketHistory(t *testing.T) {
	pd := plant()
	pd.Plant.CommissionedOn = "2024-03-15"
	pd.Equipment = []domain.Equipment{
		{ID: "INV-02", Type: "Inversor"},
		{ID: "INV-01", Type: "Inversor"},
	}
	serviced := time.Date(2025, time.September, 15, 0, 0, 0, 0, time.UTC)
	tickets := []domain.Ticket{
		equipmentTicket("T-1", "INV-01", "Correctivo", now.AddDate(0, -2, 0), nil),
		equipmentTicket("T-2", "INV-01", "correctivo", now.AddDate(0, -8, 0), nil),
		equipmentTicket("T-3", "INV-01", "Correctivo", now.AddDate(-1, -1, 0), nil),
		equipmentTicket("T-4", "INV-01", "Preventivo", serviced.AddDate(0, 0, -2), &serviced),
	}

	got := equipmentHealth(&pd, tickets, now)
	require.Len(t, got, 2)

	inv1 := got[0]
	assert.Equal(t, "INV-01", inv1.EquipmentID)
	assert.Equal(t, 2, inv1.CorrectiveTickets)
	assert.InDelta(t, 2.0, inv1.FailureRatePerYear, 1e-9)
	assert.InDelta(t, (1-math.Exp(-2.0*30/365))*100, inv1.Risk30dPct, 1e-9)
	assert.Greater(t, inv1.Risk90dPct, inv1.Risk30dPct)
	assert.Equal(t, serviced, inv1.LastService)
	// Two years in service shortens the annual interval by a fifth.
	assert.Equal(t, "2026-07-04", inv1.NextService.Format("2006-01-02"))
	assert.Equal(t, 110, inv1.DaysUntilService)

	inv2 := got[1]
	assert.Equal(t, "INV-02", inv2.EquipmentID)
	assert.Zero(t, inv2.Risk30dPct)
	assert.Equal(t, "2024-03-15", inv2.LastService.Format("2006-01-02"))
}

func TestEquipmentHealthWithoutCommissioningDate(t *testing.T) {
	pd := plant()
	pd.Equipment = []domain.Equipment{{ID: "TRK-01", Type: "Tracker"}}

	got := equipmentHealth(&pd, []domain.Ticket{equipmentTicket("T-1", "TRK-01", "Correctivo", now.AddDate(0, 0, -3), nil)}, now)
	require.Len(t, got, 1)
	assert.Equal(t, 1, got[0].CorrectiveTickets)
	assert.InDelta(t, 1.0, got[0].FailureRatePerYear, 1e-9)
	assert.True(t, got[0].NextService.IsZero())
}

func TestEquipmentHealthUnknownPlant(t *testing.T) {
	a := NewAggregator(Config{}, fixedRecords{records.Empty()}, nil)
	_, err := a.EquipmentHealth("nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
