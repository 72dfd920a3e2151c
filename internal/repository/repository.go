package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// Repos reads the plant record tables. Writes belong to the external
// maintenance and telemetry systems; this service only reads.
type Repos struct {
	db *sqlx.DB
}

func New(db *sqlx.DB) *Repos { return &Repos{db: db} }

// Table names, reported per source in reload results.
const (
	TablePlants      = "plants"
	TableEquipment   = "equipment"
	TableThresholds  = "thresholds"
	TablePerformance = "performance_records"
	TableTickets     = "tickets"
)

func (r *Repos) ListPlants(ctx context.Context) ([]domain.Plant, error) {
	var out []domain.Plant
	err := r.db.SelectContext(ctx, &out, `SELECT planta_id, nombre_planta, pais, provincia_estado, ciudad, lat, lon,
		zona_horaria, potencia_dc_mwp, potencia_ac_mw, cantidad_paneles, cantidad_strings, cantidad_inversores,
		fecha_puesta_en_marcha, tarifa_usd_mwh, target_pr, target_availability, soiling_loss_target_pct,
		degradation_annual_pct, curtailment_policy
		FROM plants ORDER BY planta_id`)
	return out, err
}

func (r *Repos) ListEquipment(ctx context.Context) ([]domain.Equipment, error) {
	var out []domain.Equipment
	err := r.db.SelectContext(ctx, &out, `SELECT equipo_id, planta_id, tipo, fabricante, modelo, capacidad_kw, estado_base
		FROM equipment ORDER BY planta_id, equipo_id`)
	return out, err
}

func (r *Repos) ListThresholds(ctx context.Context) ([]domain.Threshold, error) {
	var out []domain.Threshold
	err := r.db.SelectContext(ctx, &out, `SELECT kpi, planta_id, umbral_amarillo, umbral_rojo, polaridad, descripcion_alerta
		FROM thresholds ORDER BY planta_id, kpi`)
	return out, err
}

func (r *Repos) ListPerformance(ctx context.Context) ([]domain.PerformanceRecord, error) {
	var out []domain.PerformanceRecord
	err := r.db.SelectContext(ctx, &out, `SELECT fecha, planta_id, energia_real_kwh, energia_esperada_kwh,
		irradiancia_poa_kwh_m2, pr_real, availability_real_pct, curtailment_kwh, perdida_soiling_kwh,
		perdida_otros_kwh, ingresos_estimados_usd, opex_estimado_usd
		FROM performance_records ORDER BY planta_id, fecha`)
	return out, err
}

func (r *Repos) ListTickets(ctx context.Context) ([]domain.Ticket, error) {
	var out []domain.Ticket
	err := r.db.SelectContext(ctx, &out, `SELECT ticket_id, planta_id, fecha_creacion, estado, tipo, criticidad,
		equipo_id, descripcion, costo_estimado_usd, impacto_estimado_kwh, sla_objetivo_horas, responsable,
		fecha_estimada_resolucion
		FROM tickets ORDER BY planta_id, ticket_id`)
	return out, err
}

// Schema creates the record tables for local development.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS plants (
		planta_id TEXT PRIMARY KEY,
		nombre_planta TEXT NOT NULL,
		pais TEXT NOT NULL DEFAULT '',
		provincia_estado TEXT NOT NULL DEFAULT '',
		ciudad TEXT NOT NULL DEFAULT '',
		lat DOUBLE PRECISION NOT NULL DEFAULT 0,
		lon DOUBLE PRECISION NOT NULL DEFAULT 0,
		zona_horaria TEXT NOT NULL DEFAULT 'UTC',
		potencia_dc_mwp DOUBLE PRECISION NOT NULL,
		potencia_ac_mw DOUBLE PRECISION NOT NULL,
		cantidad_paneles INTEGER NOT NULL DEFAULT 0,
		cantidad_strings INTEGER NOT NULL DEFAULT 0,
		cantidad_inversores INTEGER NOT NULL DEFAULT 0,
		fecha_puesta_en_marcha TEXT NOT NULL DEFAULT '',
		tarifa_usd_mwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		target_pr DOUBLE PRECISION NOT NULL,
		target_availability DOUBLE PRECISION NOT NULL,
		soiling_loss_target_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		degradation_annual_pct DOUBLE PRECISION NOT NULL DEFAULT 0,
		curtailment_policy TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS equipment (
		equipo_id TEXT PRIMARY KEY,
		planta_id TEXT NOT NULL REFERENCES plants(planta_id),
		tipo TEXT NOT NULL,
		fabricante TEXT NOT NULL DEFAULT '',
		modelo TEXT NOT NULL DEFAULT '',
		capacidad_kw DOUBLE PRECISION NOT NULL DEFAULT 0,
		estado_base TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS thresholds (
		planta_id TEXT NOT NULL REFERENCES plants(planta_id),
		kpi TEXT NOT NULL,
		umbral_amarillo DOUBLE PRECISION NOT NULL,
		umbral_rojo DOUBLE PRECISION NOT NULL,
		polaridad TEXT NOT NULL CHECK (polaridad IN ('lower_is_worse', 'higher_is_worse')),
		descripcion_alerta TEXT NOT NULL,
		PRIMARY KEY (planta_id, kpi)
	)`,
	`CREATE TABLE IF NOT EXISTS performance_records (
		planta_id TEXT NOT NULL REFERENCES plants(planta_id),
		fecha DATE NOT NULL,
		energia_real_kwh DOUBLE PRECISION NOT NULL CHECK (energia_real_kwh >= 0),
		energia_esperada_kwh DOUBLE PRECISION NOT NULL CHECK (energia_esperada_kwh >= 0),
		irradiancia_poa_kwh_m2 DOUBLE PRECISION NOT NULL DEFAULT 0,
		pr_real DOUBLE PRECISION NOT NULL CHECK (pr_real BETWEEN 0 AND 1.2),
		availability_real_pct DOUBLE PRECISION NOT NULL CHECK (availability_real_pct BETWEEN 0 AND 100),
		curtailment_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		perdida_soiling_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		perdida_otros_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		ingresos_estimados_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		opex_estimado_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		PRIMARY KEY (planta_id, fecha)
	)`,
	`CREATE TABLE IF NOT EXISTS tickets (
		ticket_id TEXT PRIMARY KEY,
		planta_id TEXT NOT NULL REFERENCES plants(planta_id),
		fecha_creacion DATE NOT NULL,
		estado TEXT NOT NULL,
		tipo TEXT NOT NULL DEFAULT '',
		criticidad TEXT NOT NULL,
		equipo_id TEXT,
		descripcion TEXT NOT NULL DEFAULT '',
		costo_estimado_usd DOUBLE PRECISION NOT NULL DEFAULT 0,
		impacto_estimado_kwh DOUBLE PRECISION NOT NULL DEFAULT 0,
		sla_objetivo_horas INTEGER NOT NULL DEFAULT 0,
		responsable TEXT NOT NULL DEFAULT '',
		fecha_estimada_resolucion DATE
	)`,
}

// Migrate applies Schema.
func (r *Repos) Migrate(ctx context.Context) error {
	for _, stmt := range Schema {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
