package records

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// Part identifies one independently loaded slice of the dataset.
type Part string

const (
	PartPlants      Part = "plants"
	PartPerformance Part = "performance"
	PartTickets     Part = "tickets"
)

var parts = []Part{PartPlants, PartPerformance, PartTickets}

// Source produces the raw rows of a dataset. Describe names the file or
// table each part is read from so reload results can be reported per file.
type Source interface {
	Describe(part Part) string
	Plants(ctx context.Context) ([]domain.PlantData, error)
	Performance(ctx context.Context) ([]domain.PerformanceRecord, error)
	Tickets(ctx context.Context) ([]domain.Ticket, error)
}

// ReloadResult reports what a reload did for every source file.
type ReloadResult struct {
	Success     bool              `json:"success"`
	Results     map[string]string `json:"results"`
	Errors      []string          `json:"errors"`
	FilesLoaded map[string]int    `json:"files_loaded"`
	LastReload  time.Time         `json:"last_reload"`
}

// Store serves the current Dataset. Reads never block: a reload builds a
// complete new Dataset and swaps it in with a single pointer store.
type Store struct {
	current atomic.Pointer[Dataset]
	reload  sync.Mutex
	log     zerolog.Logger
	now     func() time.Time
}

func NewStore(log zerolog.Logger) *Store {
	s := &Store{log: log.With().Str("component", "records").Logger(), now: time.Now}
	s.current.Store(Empty())
	return s
}

// Snapshot returns the dataset current at call time.
func (s *Store) Snapshot() *Dataset { return s.current.Load() }

// Replace swaps in ds wholesale.
func (s *Store) Replace(ds *Dataset) { s.current.Store(ds) }

func (s *Store) GetPlant(plantID string) (*domain.PlantData, error) {
	return s.Snapshot().Plant(plantID)
}

func (s *Store) GetPerformanceRange(plantID string, start, end time.Time) []domain.PerformanceRecord {
	return s.Snapshot().PerformanceRange(plantID, start, end)
}

func (s *Store) GetTickets(plantID string, q TicketQuery) ([]domain.Ticket, error) {
	return s.Snapshot().Tickets(plantID, q)
}

// Reload reads every part from src. A part that fails keeps the rows of the
// previous dataset; the others are replaced. Concurrent reloads serialize.
func (s *Store) Reload(ctx context.Context, src Source) ReloadResult {
	s.reload.Lock()
	defer s.reload.Unlock()

	prev := s.Snapshot()
	res := ReloadResult{
		Success:     true,
		Results:     make(map[string]string, len(parts)),
		Errors:      []string{},
		FilesLoaded: make(map[string]int, len(parts)),
	}

	fail := func(part Part, err error) {
		name := src.Describe(part)
		res.Success = false
		res.Results[name] = "error"
		res.Errors = append(res.Errors, fmt.Sprintf("%s: %v", name, err))
		s.log.Error().Err(err).Str("file", name).Msg("Reload failed, keeping previous data")
	}
	ok := func(part Part, n int) {
		name := src.Describe(part)
		res.Results[name] = "ok"
		res.FilesLoaded[name] = n
		s.log.Info().Str("file", name).Int("records", n).Msg("Reloaded")
	}

	plants, err := src.Plants(ctx)
	if err != nil {
		fail(PartPlants, err)
		plants = prev.plantList()
	} else {
		n := 0
		for _, p := range plants {
			n += 1 + len(p.Equipment) + len(p.Thresholds)
		}
		ok(PartPlants, n)
	}

	perf, err := src.Performance(ctx)
	if err != nil {
		fail(PartPerformance, err)
		perf = prev.performanceList()
	} else {
		ok(PartPerformance, len(perf))
	}

	tickets, err := src.Tickets(ctx)
	if err != nil {
		fail(PartTickets, err)
		tickets = prev.ticketList()
	} else {
		ok(PartTickets, len(tickets))
	}

	s.Replace(NewDataset(plants, perf, tickets))
	res.LastReload = s.now().UTC()
	return res
}
