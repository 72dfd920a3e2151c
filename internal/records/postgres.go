package records

import (
	"context"
	"fmt"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/repository"
)

// PostgresSource reads the same dataset from the record tables.
type PostgresSource struct {
	repos *repository.Repos
}

func NewPostgresSource(repos *repository.Repos) *PostgresSource {
	return &PostgresSource{repos: repos}
}

func (p *PostgresSource) Describe(part Part) string {
	switch part {
	case PartPlants:
		return repository.TablePlants
	case PartPerformance:
		return repository.TablePerformance
	default:
		return repository.TableTickets
	}
}

func (p *PostgresSource) Plants(ctx context.Context) ([]domain.PlantData, error) {
	plants, err := p.repos.ListPlants(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list plants: %w", err)
	}
	equipment, err := p.repos.ListEquipment(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list equipment: %w", err)
	}
	thresholds, err := p.repos.ListThresholds(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list thresholds: %w", err)
	}

	out := make([]domain.PlantData, len(plants))
	index := make(map[string]int, len(plants))
	for i, pl := range plants {
		out[i] = domain.PlantData{Plant: pl, Equipment: []domain.Equipment{}, Thresholds: []domain.Threshold{}}
		index[pl.ID] = i
	}
	for _, e := range equipment {
		if i, ok := index[e.PlantID]; ok {
			out[i].Equipment = append(out[i].Equipment, e)
		}
	}
	for _, t := range thresholds {
		if i, ok := index[t.PlantID]; ok {
			out[i].Thresholds = append(out[i].Thresholds, t)
		}
	}
	for i := range out {
		if err := normalizePlant(&out[i]); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (p *PostgresSource) Performance(ctx context.Context) ([]domain.PerformanceRecord, error) {
	rows, err := p.repos.ListPerformance(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list performance records: %w", err)
	}
	for i, r := range rows {
		if err := checkPerformance(r); err != nil {
			return nil, fmt.Errorf("%s %s: %w", r.PlantID, r.Date.Format("2006-01-02"), err)
		}
		rows[i].Date = domain.Day(r.Date)
	}
	return rows, nil
}

func (p *PostgresSource) Tickets(ctx context.Context) ([]domain.Ticket, error) {
	rows, err := p.repos.ListTickets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets: %w", err)
	}
	return rows, nil
}
