package domain

import "time"

// Plant is the static descriptive record of a PV plant. Immutable after load.
type Plant struct {
	ID                   string  `db:"planta_id" json:"planta_id" yaml:"planta_id"`
	Name                 string  `db:"nombre_planta" json:"nombre_planta" yaml:"nombre_planta"`
	Country              string  `db:"pais" json:"pais" yaml:"pais"`
	Province             string  `db:"provincia_estado" json:"provincia_estado" yaml:"provincia_estado"`
	City                 string  `db:"ciudad" json:"ciudad" yaml:"ciudad"`
	Lat                  float64 `db:"lat" json:"lat" yaml:"lat"`
	Lon                  float64 `db:"lon" json:"lon" yaml:"lon"`
	Timezone             string  `db:"zona_horaria" json:"zona_horaria" yaml:"zona_horaria"`
	DCPowerMWp           float64 `db:"potencia_dc_mwp" json:"potencia_dc_mwp" yaml:"potencia_dc_mwp"`
	ACPowerMW            float64 `db:"potencia_ac_mw" json:"potencia_ac_mw" yaml:"potencia_ac_mw"`
	PanelCount           int     `db:"cantidad_paneles" json:"cantidad_paneles" yaml:"cantidad_paneles"`
	StringCount          int     `db:"cantidad_strings" json:"cantidad_strings" yaml:"cantidad_strings"`
	InverterCount        int     `db:"cantidad_inversores" json:"cantidad_inversores" yaml:"cantidad_inversores"`
	CommissionedOn       string  `db:"fecha_puesta_en_marcha" json:"fecha_puesta_en_marcha" yaml:"fecha_puesta_en_marcha"`
	TariffUSDPerMWh      float64 `db:"tarifa_usd_mwh" json:"tarifa_usd_mwh" yaml:"tarifa_usd_mwh"`
	TargetPR             float64 `db:"target_pr" json:"target_pr" yaml:"target_pr"`
	TargetAvailability   float64 `db:"target_availability" json:"target_availability" yaml:"target_availability"`
	SoilingLossTargetPct float64 `db:"soiling_loss_target_pct" json:"soiling_loss_target_pct" yaml:"soiling_loss_target_pct"`
	DegradationAnnualPct float64 `db:"degradation_annual_pct" json:"degradation_annual_pct" yaml:"degradation_annual_pct"`
	CurtailmentPolicy    string  `db:"curtailment_policy" json:"curtailment_policy" yaml:"curtailment_policy"`
}

type Equipment struct {
	ID           string  `db:"equipo_id" json:"equipo_id" yaml:"equipo_id"`
	PlantID      string  `db:"planta_id" json:"-" yaml:"-"`
	Type         string  `db:"tipo" json:"tipo" yaml:"tipo"`
	Manufacturer string  `db:"fabricante" json:"fabricante" yaml:"fabricante"`
	Model        string  `db:"modelo" json:"modelo" yaml:"modelo"`
	CapacityKW   float64 `db:"capacidad_kw" json:"capacidad_kw" yaml:"capacidad_kw"`
	BaseState    string  `db:"estado_base" json:"estado_base" yaml:"estado_base"`
}

// Threshold configures the yellow/red breach values of one KPI. Polarity says
// which side of the breach values is the bad one.
type Threshold struct {
	KPI      string   `db:"kpi" json:"kpi" yaml:"kpi"`
	PlantID  string   `db:"planta_id" json:"-" yaml:"-"`
	Yellow   float64  `db:"umbral_amarillo" json:"umbral_amarillo" yaml:"umbral_amarillo"`
	Red      float64  `db:"umbral_rojo" json:"umbral_rojo" yaml:"umbral_rojo"`
	Polarity Polarity `db:"polaridad" json:"polaridad" yaml:"polaridad"`
	Template string   `db:"descripcion_alerta" json:"descripcion_alerta" yaml:"descripcion_alerta"`
}

// PlantData is the plant metadata bundle served to the dashboard.
type PlantData struct {
	Plant      Plant       `json:"planta" yaml:"planta"`
	Equipment  []Equipment `json:"equipos" yaml:"equipos"`
	Thresholds []Threshold `json:"umbrales" yaml:"umbrales"`
}

// Threshold returns the threshold configured for kpi, if any.
func (p *PlantData) Threshold(kpi string) (Threshold, bool) {
	for _, t := range p.Thresholds {
		if t.KPI == kpi {
			return t, true
		}
	}
	return Threshold{}, false
}

// PerformanceRecord is one day of plant performance.
type PerformanceRecord struct {
	Date                time.Time `db:"fecha" json:"fecha"`
	PlantID             string    `db:"planta_id" json:"planta_id"`
	EnergyKWh           float64   `db:"energia_real_kwh" json:"energia_real_kwh"`
	ExpectedEnergyKWh   float64   `db:"energia_esperada_kwh" json:"energia_esperada_kwh"`
	IrradiancePOAKWhM2  float64   `db:"irradiancia_poa_kwh_m2" json:"irradiancia_poa_kwh_m2"`
	PR                  float64   `db:"pr_real" json:"pr_real"`
	AvailabilityPct     float64   `db:"availability_real_pct" json:"availability_real_pct"`
	CurtailmentKWh      float64   `db:"curtailment_kwh" json:"curtailment_kwh"`
	SoilingLossKWh      float64   `db:"perdida_soiling_kwh" json:"perdida_soiling_kwh"`
	OtherLossKWh        float64   `db:"perdida_otros_kwh" json:"perdida_otros_kwh"`
	EstimatedRevenueUSD float64   `db:"ingresos_estimados_usd" json:"ingresos_estimados_usd"`
	EstimatedOpexUSD    float64   `db:"opex_estimado_usd" json:"opex_estimado_usd"`
}

// MaxPlausiblePR is the upper bound of a believable performance ratio. Values
// above 1 but within the bound are kept and flagged, not rejected.
const MaxPlausiblePR = 1.2

// Implausible reports whether the record carries a PR above 1.
func (r PerformanceRecord) Implausible() bool {
	return r.PR > 1
}

// Ticket is a read-only snapshot of a maintenance work item.
type Ticket struct {
	ID                 string      `db:"ticket_id" json:"ticket_id"`
	PlantID            string      `db:"planta_id" json:"planta_id"`
	CreatedAt          time.Time   `db:"fecha_creacion" json:"fecha_creacion"`
	State              TicketState `db:"estado" json:"estado"`
	Type               string      `db:"tipo" json:"tipo"`
	Criticality        Criticality `db:"criticidad" json:"criticidad"`
	EquipmentID        *string     `db:"equipo_id" json:"equipo_id,omitempty"`
	Description        string      `db:"descripcion" json:"descripcion"`
	EstimatedCostUSD   float64     `db:"costo_estimado_usd" json:"costo_estimado_usd"`
	EstimatedImpactKWh float64     `db:"impacto_estimado_kwh" json:"impacto_estimado_kwh"`
	SLATargetHours     int         `db:"sla_objetivo_horas" json:"sla_objetivo_horas"`
	Responsible        string      `db:"responsable" json:"responsable"`
	ResolvedAt         *time.Time  `db:"fecha_estimada_resolucion" json:"fecha_estimada_resolucion,omitempty"`
}

// Open reports whether the ticket still counts towards the backlog.
func (t Ticket) Open() bool {
	return t.State != TicketResolved
}

// RealtimeSample is one sub-hourly telemetry interval.
type RealtimeSample struct {
	PlantID             string    `json:"planta_id,omitempty"`
	Timestamp           time.Time `json:"timestamp"`
	PowerKW             float64   `json:"potencia_kw"`
	IntervalEnergyKWh   float64   `json:"energia_kwh_intervalo"`
	Irradiance          float64   `json:"irradiancia"`
	ModuleTempC         float64   `json:"temp_modulo"`
	InvertersHealthyPct float64   `json:"estado_inversores_pct"`
}

// ExecutiveKPISnapshot is recomputed per request and never persisted.
type ExecutiveKPISnapshot struct {
	PlantID string `json:"planta_id"`
	Range   Range  `json:"range"`

	// CEO
	EnergyKWh         float64  `json:"energia_real_kwh"`
	ExpectedEnergyKWh float64  `json:"energia_esperada_kwh"`
	DeviationPct      float64  `json:"desviacion_pct"`
	Trend             Trend    `json:"tendencia"`
	CO2AvoidedKg      float64  `json:"co2_evitado_kg"`
	Alerts            []string `json:"alertas_principales"`

	// CFO
	RevenueUSD     float64            `json:"ingresos_estimados_usd"`
	OpexUSD        float64            `json:"opex_estimado_usd"`
	GrossMarginUSD float64            `json:"margen_bruto_usd"`
	GrossMarginPct float64            `json:"margen_bruto_pct"`
	CostPerKWh     float64            `json:"costo_por_kwh"`
	ROIPct         *float64           `json:"roi_estimado_pct"`
	PaybackYears   *float64           `json:"payback_years"`
	Variations     map[string]float64 `json:"variaciones"`

	// COO
	AvgPR              float64     `json:"pr_promedio"`
	AvgAvailabilityPct float64     `json:"availability_promedio_pct"`
	CurrentPowerKW     float64     `json:"potencia_actual_kw"`
	SystemState        SystemState `json:"estado_sistema"`
	BacklogUSD         float64     `json:"backlog_total_usd"`
	PendingTickets     int         `json:"tickets_pendientes"`
	TopTickets         []Ticket    `json:"top_tickets"`

	RecordCount        int       `json:"registros"`
	ImplausibleRecords int       `json:"registros_pr_implausible"`
	RangeStart         time.Time `json:"desde"`
	RangeEnd           time.Time `json:"hasta"`
	GeneratedAt        time.Time `json:"generado"`
}
