package report

import (
	"fmt"
	"strings"

	"github.com/ANIKETSHETTY47/energy-grid-analytics-go/converter"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// maxSpokenAlerts bounds the alerts read out in the audio summary.
const maxSpokenAlerts = 2

// SummaryText is the Spanish executive summary read out in the audio report.
func SummaryText(plant *domain.PlantData, snap *domain.ExecutiveKPISnapshot) string {
	var b strings.Builder
	name := plant.Plant.Name
	if name == "" {
		name = plant.Plant.ID
	}

	fmt.Fprintf(&b, "Resumen ejecutivo de %s, %s.\n", name, strings.ToLower(snap.Range.Label()))
	fmt.Fprintf(&b, "Durante el período analizado, la planta generó %s, con una desviación de %+.1f por ciento respecto a lo esperado.\n",
		spokenEnergy(snap.EnergyKWh), snap.DeviationPct)
	fmt.Fprintf(&b, "El Performance Ratio alcanzó %.1f por ciento, y la disponibilidad fue de %.1f por ciento.\n",
		snap.AvgPR*100, snap.AvgAvailabilityPct)
	fmt.Fprintf(&b, "Los ingresos estimados totalizaron %s dólares, con un margen bruto de %.1f por ciento.\n",
		thousands(snap.RevenueUSD), snap.GrossMarginPct)
	fmt.Fprintf(&b, "Se evitaron %s kilogramos de emisiones de C O 2.\n", thousands(snap.CO2AvoidedKg))
	fmt.Fprintf(&b, "El backlog de mantenimiento asciende a %s dólares, con %d tickets pendientes.\n",
		thousands(snap.BacklogUSD), snap.PendingTickets)
	fmt.Fprintf(&b, "El estado general del sistema es %s.", snap.SystemState)

	if len(snap.Alerts) > 0 {
		alerts := snap.Alerts[:min(len(snap.Alerts), maxSpokenAlerts)]
		fmt.Fprintf(&b, "\nAlertas principales: %s.", strings.Join(alerts, ". "))
	}
	return b.String()
}

func spokenEnergy(kwh float64) string {
	if kwh >= 1000 {
		mwh := (&converter.EnergyConverter{}).KWhToMWh(kwh)
		return fmt.Sprintf("%.1f megavatios hora", mwh)
	}
	return fmt.Sprintf("%.0f kilovatios hora", kwh)
}

// thousands formats v rounded to units with dot separators.
func thousands(v float64) string {
	neg := v < 0
	if neg {
		v = -v
	}
	digits := fmt.Sprintf("%.0f", v)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}
