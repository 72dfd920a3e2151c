package records

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// File names read by FolderSource.
const (
	PlantFile       = "planta.yaml"
	PerformanceFile = "Historico_Performance.csv"
	TicketsFile     = "Tickets_Mantenimiento.csv"
)

var (
	performanceColumns = []string{
		"fecha", "planta_id", "energia_real_kwh", "energia_esperada_kwh",
		"irradiancia_poa_kwh_m2", "pr_real", "availability_real_pct",
		"curtailment_kwh", "perdida_soiling_kwh", "perdida_otros_kwh",
		"ingresos_estimados_usd", "opex_estimado_usd",
	}
	ticketColumns = []string{
		"ticket_id", "planta_id", "fecha_creacion", "estado", "tipo",
		"criticidad", "descripcion", "costo_estimado_usd",
		"impacto_estimado_kwh", "sla_objetivo_horas", "responsable",
	}
)

// FolderSource reads a data folder holding the plant parameters as YAML
// (one document per plant) and the performance history and tickets as CSV.
type FolderSource struct {
	Dir string
}

func NewFolderSource(dir string) *FolderSource { return &FolderSource{Dir: dir} }

func (f *FolderSource) Describe(part Part) string {
	switch part {
	case PartPlants:
		return PlantFile
	case PartPerformance:
		return PerformanceFile
	default:
		return TicketsFile
	}
}

func (f *FolderSource) open(name string) (*os.File, error) {
	file, err := os.Open(filepath.Join(f.Dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, domain.NotFoundf("file %q not found in %s", name, f.Dir)
	}
	return file, err
}

func (f *FolderSource) Plants(_ context.Context) ([]domain.PlantData, error) {
	file, err := f.open(PlantFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var out []domain.PlantData
	dec := yaml.NewDecoder(file)
	for {
		var pd domain.PlantData
		err := dec.Decode(&pd)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse plant document %d: %w", len(out)+1, err)
		}
		if err := normalizePlant(&pd); err != nil {
			return nil, err
		}
		out = append(out, pd)
	}
	if len(out) == 0 {
		return nil, domain.Validationf("%s holds no plant", PlantFile)
	}
	return out, nil
}

// normalizePlant checks the required plant fields and stamps the plant id on
// its equipment and thresholds.
func normalizePlant(pd *domain.PlantData) error {
	p := pd.Plant
	if p.ID == "" {
		return domain.Validationf("plant without planta_id")
	}
	if p.TargetPR <= 0 || p.TargetAvailability <= 0 {
		return domain.Validationf("plant %s: target_pr and target_availability are required", p.ID)
	}
	for i := range pd.Equipment {
		pd.Equipment[i].PlantID = p.ID
	}
	for i := range pd.Thresholds {
		t := &pd.Thresholds[i]
		t.PlantID = p.ID
		t.KPI = strings.ToLower(strings.TrimSpace(t.KPI))
		if !t.Polarity.Valid() {
			return domain.Validationf("plant %s: threshold %q needs an explicit polaridad", p.ID, t.KPI)
		}
	}
	return nil
}

func (f *FolderSource) Performance(_ context.Context) ([]domain.PerformanceRecord, error) {
	file, err := f.open(PerformanceFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := readTable(file, performanceColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.PerformanceRecord, 0, len(rows))
	for i, row := range rows {
		r := domain.PerformanceRecord{
			Date:                row.date("fecha"),
			PlantID:             row.str("planta_id"),
			EnergyKWh:           row.float("energia_real_kwh"),
			ExpectedEnergyKWh:   row.float("energia_esperada_kwh"),
			IrradiancePOAKWhM2:  row.float("irradiancia_poa_kwh_m2"),
			PR:                  row.float("pr_real"),
			AvailabilityPct:     row.float("availability_real_pct"),
			CurtailmentKWh:      row.float("curtailment_kwh"),
			SoilingLossKWh:      row.float("perdida_soiling_kwh"),
			OtherLossKWh:        row.float("perdida_otros_kwh"),
			EstimatedRevenueUSD: row.float("ingresos_estimados_usd"),
			EstimatedOpexUSD:    row.float("opex_estimado_usd"),
		}
		if row.err == nil {
			row.err = checkPerformance(r)
		}
		if row.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, row.err)
		}
		out = append(out, r)
	}
	return out, nil
}

func checkPerformance(r domain.PerformanceRecord) error {
	switch {
	case r.EnergyKWh < 0 || r.ExpectedEnergyKWh < 0:
		return domain.Validationf("energy must not be negative")
	case r.AvailabilityPct < 0 || r.AvailabilityPct > 100:
		return domain.Validationf("availability %.2f outside 0..100", r.AvailabilityPct)
	case r.PR < 0 || r.PR > domain.MaxPlausiblePR:
		return domain.Validationf("pr %.3f outside 0..%.1f", r.PR, domain.MaxPlausiblePR)
	}
	return nil
}

func (f *FolderSource) Tickets(_ context.Context) ([]domain.Ticket, error) {
	file, err := f.open(TicketsFile)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	rows, err := readTable(file, ticketColumns)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Ticket, 0, len(rows))
	for i, row := range rows {
		t := domain.Ticket{
			ID:                 row.str("ticket_id"),
			PlantID:            row.str("planta_id"),
			CreatedAt:          row.date("fecha_creacion"),
			Type:               row.str("tipo"),
			Description:        row.str("descripcion"),
			EstimatedCostUSD:   row.float("costo_estimado_usd"),
			EstimatedImpactKWh: row.float("impacto_estimado_kwh"),
			SLATargetHours:     int(row.float("sla_objetivo_horas")),
			Responsible:        row.str("responsable"),
		}
		if row.err == nil {
			t.State, row.err = domain.ParseTicketState(row.str("estado"))
		}
		if row.err == nil {
			t.Criticality, row.err = domain.ParseCriticality(row.str("criticidad"))
		}
		if eq := row.str("equipo_id"); eq != "" {
			t.EquipmentID = &eq
		}
		// Unparseable resolution dates are treated as absent.
		if ts, err := parseDate(row.str("fecha_estimada_resolucion")); err == nil {
			t.ResolvedAt = &ts
		}
		if row.err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, row.err)
		}
		out = append(out, t)
	}
	return out, nil
}

// tableRow reads typed cells by column name and keeps the first error.
type tableRow struct {
	cols  map[string]int
	cells []string
	err   error
}

func (r *tableRow) str(col string) string {
	i, ok := r.cols[col]
	if !ok || i >= len(r.cells) {
		return ""
	}
	return strings.TrimSpace(r.cells[i])
}

func (r *tableRow) float(col string) float64 {
	s := r.str(col)
	if s == "" {
		return 0
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil && r.err == nil {
		r.err = domain.Validationf("column %s: %q is not a number", col, s)
	}
	return v
}

func (r *tableRow) date(col string) time.Time {
	v, err := parseDate(r.str(col))
	if err != nil && r.err == nil {
		r.err = domain.Validationf("column %s: %v", col, err)
	}
	return v
}

var dateLayouts = []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05", "02/01/2006"}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return domain.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

// readTable parses a headed CSV and checks that every required column is present.
func readTable(r io.Reader, required []string) ([]*tableRow, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, domain.Validationf("empty file")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	var missing []string
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, domain.Validationf("missing columns: %s", strings.Join(missing, ", "))
	}

	var rows []*tableRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", len(rows)+2, err)
		}
		rows = append(rows, &tableRow{cols: cols, cells: rec})
	}
	return rows, nil
}
