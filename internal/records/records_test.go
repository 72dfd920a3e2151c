package records

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

const plantYAML = `planta:
  planta_id: PLANTA_001
  nombre_planta: Solar Norte
  potencia_dc_mwp: 12.5
  potencia_ac_mw: 10
  tarifa_usd_mwh: 65
  target_pr: 0.8
  target_availability: 98.5
equipos:
  - equipo_id: INV-01
    tipo: Inversor
    capacidad_kw: 2500
umbrales:
  - kpi: PR
    umbral_amarillo: 0.78
    umbral_rojo: 0.75
    polaridad: lower_is_worse
    descripcion_alerta: "PR bajo: {value}"
`

const perfCSV = `fecha,planta_id,energia_real_kwh,energia_esperada_kwh,irradiancia_poa_kwh_m2,pr_real,availability_real_pct,curtailment_kwh,perdida_soiling_kwh,perdida_otros_kwh,ingresos_estimados_usd,opex_estimado_usd
2026-03-02,PLANTA_001,1200,1100,5.1,0.81,99.1,0,12,3,78,20
2026-03-01,PLANTA_001,1000,1100,4.9,0.79,98.7,0,10,2,65,20
2026-03-03,PLANTA_001,900,1100,4.2,1.05,97.0,0,10,2,58.5,20
`

const ticketsCSV = `ticket_id,planta_id,fecha_creacion,estado,tipo,criticidad,equipo_id,descripcion,costo_estimado_usd,impacto_estimado_kwh,sla_objetivo_horas,responsable,fecha_estimada_resolucion
T-1,PLANTA_001,2026-03-01,Pendiente,Correctivo,Alta,INV-01,Falla inversor,5000,800,24,Equipo A,
T-2,PLANTA_001,2026-03-02,Resuelto,Preventivo,Baja,,Limpieza,9000,0,72,Equipo B,2026-03-04
T-3,PLANTA_001,2026-03-03,En Progreso,Correctivo,Media,,String abierto,1500,120,48,Equipo A,no-date
T-4,PLANTA_001,2026-03-04,Bloqueado,Correctivo,Crítica,,Transformador,5000,2000,12,Equipo C,
`

func writeFolder(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func loadedStore(t *testing.T) *Store {
	t.Helper()
	dir := writeFolder(t, map[string]string{PlantFile: plantYAML, PerformanceFile: perfCSV, TicketsFile: ticketsCSV})
	s := NewStore(zerolog.Nop())
	res := s.Reload(context.Background(), NewFolderSource(dir))
	require.True(t, res.Success, res.Errors)
	return s
}

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func TestReloadReportsPerFileCounts(t *testing.T) {
	dir := writeFolder(t, map[string]string{PlantFile: plantYAML, PerformanceFile: perfCSV, TicketsFile: ticketsCSV})
	s := NewStore(zerolog.Nop())

	res := s.Reload(context.Background(), NewFolderSource(dir))
	assert.True(t, res.Success)
	assert.Empty(t, res.Errors)
	assert.Equal(t, map[string]int{PlantFile: 3, PerformanceFile: 3, TicketsFile: 4}, res.FilesLoaded)
	assert.False(t, res.LastReload.IsZero())

	pd, err := s.GetPlant("PLANTA_001")
	require.NoError(t, err)
	assert.Equal(t, "Solar Norte", pd.Plant.Name)
	th, ok := pd.Threshold("pr")
	require.True(t, ok)
	assert.Equal(t, domain.LowerIsWorse, th.Polarity)
	assert.Equal(t, "PLANTA_001", th.PlantID)
}

func TestGetPlantUnknown(t *testing.T) {
	s := loadedStore(t)
	_, err := s.GetPlant("NOPE")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestPerformanceRangeIsOrderedAndInclusive(t *testing.T) {
	s := loadedStore(t)

	rows := s.GetPerformanceRange("PLANTA_001", day(2026, 3, 1), day(2026, 3, 2))
	require.Len(t, rows, 2)
	assert.Equal(t, day(2026, 3, 1), rows[0].Date)
	assert.Equal(t, day(2026, 3, 2), rows[1].Date)

	all := s.GetPerformanceRange("PLANTA_001", day(2026, 1, 1), day(2026, 12, 31))
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i].Date.Before(all[i-1].Date))
	}

	assert.Empty(t, s.GetPerformanceRange("PLANTA_001", day(2025, 1, 1), day(2025, 2, 1)))
	assert.Empty(t, s.GetPerformanceRange("NOPE", day(2026, 1, 1), day(2026, 12, 31)))
}

func TestTicketQueries(t *testing.T) {
	s := loadedStore(t)

	open, err := s.GetTickets("PLANTA_001", TicketQuery{Status: "PENDIENTE"})
	require.NoError(t, err)
	ids := ticketIDs(open)
	assert.Equal(t, []string{"T-1", "T-4", "T-3"}, ids, "cost desc with id tie-break")

	asc, err := s.GetTickets("PLANTA_001", TicketQuery{Sort: SortCostAsc, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []string{"T-3", "T-1"}, ticketIDs(asc))

	byDate, err := s.GetTickets("PLANTA_001", TicketQuery{Sort: SortDate})
	require.NoError(t, err)
	assert.Equal(t, "T-4", byDate[0].ID)

	blocked, err := s.GetTickets("PLANTA_001", TicketQuery{Status: "bloqueado"})
	require.NoError(t, err)
	assert.Equal(t, []string{"T-4"}, ticketIDs(blocked))

	_, err = s.GetTickets("PLANTA_001", TicketQuery{Sort: "impacto"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = s.GetTickets("PLANTA_001", TicketQuery{Limit: 5000})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	_, err = s.GetTickets("PLANTA_001", TicketQuery{Status: "cerrado"})
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
}

func TestTicketOptionalColumns(t *testing.T) {
	s := loadedStore(t)
	all, err := s.GetTickets("PLANTA_001", TicketQuery{})
	require.NoError(t, err)

	byID := map[string]domain.Ticket{}
	for _, tk := range all {
		byID[tk.ID] = tk
	}
	require.NotNil(t, byID["T-1"].EquipmentID)
	assert.Equal(t, "INV-01", *byID["T-1"].EquipmentID)
	assert.Nil(t, byID["T-3"].EquipmentID)
	assert.Nil(t, byID["T-3"].ResolvedAt, "unparseable resolution date is dropped")
	require.NotNil(t, byID["T-2"].ResolvedAt)
	assert.Equal(t, domain.CriticalityCritical, byID["T-4"].Criticality)
	assert.True(t, s.Snapshot().HasSevereOpenTicket("PLANTA_001"))
}

func TestFailedFileKeepsPreviousData(t *testing.T) {
	s := loadedStore(t)

	broken := writeFolder(t, map[string]string{
		PlantFile:       plantYAML,
		PerformanceFile: "fecha,planta_id\n2026-03-01,PLANTA_001\n",
		TicketsFile:     ticketsCSV,
	})
	res := s.Reload(context.Background(), NewFolderSource(broken))

	assert.False(t, res.Success)
	assert.Equal(t, "error", res.Results[PerformanceFile])
	assert.Equal(t, "ok", res.Results[TicketsFile])
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "missing columns")
	assert.Len(t, s.GetPerformanceRange("PLANTA_001", day(2026, 1, 1), day(2026, 12, 31)), 3)
}

func TestMissingFileIsReported(t *testing.T) {
	dir := writeFolder(t, map[string]string{PlantFile: plantYAML, PerformanceFile: perfCSV})
	res := NewStore(zerolog.Nop()).Reload(context.Background(), NewFolderSource(dir))
	assert.False(t, res.Success)
	assert.Equal(t, "error", res.Results[TicketsFile])
	assert.Equal(t, 3, res.FilesLoaded[PerformanceFile])
}

func TestLoaderRejectsOutOfBoundsRows(t *testing.T) {
	header := "fecha,planta_id,energia_real_kwh,energia_esperada_kwh,irradiancia_poa_kwh_m2,pr_real,availability_real_pct,curtailment_kwh,perdida_soiling_kwh,perdida_otros_kwh,ingresos_estimados_usd,opex_estimado_usd\n"
	for name, row := range map[string]string{
		"negative energy": "2026-03-01,P,-1,1100,5,0.8,99,0,0,0,0,0\n",
		"availability":    "2026-03-01,P,1,1100,5,0.8,101,0,0,0,0,0\n",
		"pr":              "2026-03-01,P,1,1100,5,1.5,99,0,0,0,0,0\n",
		"not a number":    "2026-03-01,P,abc,1100,5,0.8,99,0,0,0,0,0\n",
	} {
		dir := writeFolder(t, map[string]string{PerformanceFile: header + row})
		_, err := NewFolderSource(dir).Performance(context.Background())
		assert.Error(t, err, name)
	}
}

func TestThresholdWithoutPolarityIsRejected(t *testing.T) {
	doc := `planta:
  planta_id: P
  target_pr: 0.8
  target_availability: 98
umbrales:
  - kpi: pr
    umbral_amarillo: 0.78
    umbral_rojo: 0.75
    descripcion_alerta: PR bajo
`
	dir := writeFolder(t, map[string]string{PlantFile: doc})
	_, err := NewFolderSource(dir).Plants(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "polaridad")
}

func TestReadersNeverSeeAMixedDataset(t *testing.T) {
	s := NewStore(zerolog.Nop())
	mk := func(energy float64) *Dataset {
		var perf []domain.PerformanceRecord
		for d := 1; d <= 20; d++ {
			perf = append(perf, domain.PerformanceRecord{PlantID: "P", Date: day(2026, 3, d), EnergyKWh: energy})
		}
		return NewDataset([]domain.PlantData{{Plant: domain.Plant{ID: "P"}}}, perf, nil)
	}
	s.Replace(mk(1))

	var wg sync.WaitGroup
	stop := make(chan struct{})
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				s.Replace(mk(float64(i%2 + 1)))
			}
		}
	}()

	for i := 0; i < 500; i++ {
		rows := s.GetPerformanceRange("P", day(2026, 3, 1), day(2026, 3, 31))
		require.Len(t, rows, 20)
		for _, r := range rows {
			require.Equal(t, rows[0].EnergyKWh, r.EnergyKWh)
		}
	}
	close(stop)
	wg.Wait()
}

func ticketIDs(ts []domain.Ticket) []string {
	out := make([]string, len(ts))
	for i, t := range ts {
		out[i] = t.ID
	}
	return out
}
