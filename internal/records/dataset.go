package records

import (
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// Dataset is one immutable, point-in-time view of every plant's records.
// Readers obtain it from Store.Snapshot and may query it without locks.
type Dataset struct {
	plants      map[string]*domain.PlantData
	performance map[string][]domain.PerformanceRecord
	tickets     map[string][]domain.Ticket
}

// NewDataset groups the loaded rows by plant. Performance rows end up sorted
// by date; a later row for the same plant and date replaces an earlier one.
func NewDataset(plants []domain.PlantData, perf []domain.PerformanceRecord, tickets []domain.Ticket) *Dataset {
	ds := &Dataset{
		plants:      make(map[string]*domain.PlantData, len(plants)),
		performance: make(map[string][]domain.PerformanceRecord),
		tickets:     make(map[string][]domain.Ticket),
	}
	for i := range plants {
		pd := plants[i]
		ds.plants[pd.Plant.ID] = &pd
	}

	byDay := make(map[string]map[time.Time]int)
	for _, r := range perf {
		r.Date = domain.Day(r.Date)
		idx, ok := byDay[r.PlantID]
		if !ok {
			idx = make(map[time.Time]int)
			byDay[r.PlantID] = idx
		}
		if at, dup := idx[r.Date]; dup {
			ds.performance[r.PlantID][at] = r
			continue
		}
		idx[r.Date] = len(ds.performance[r.PlantID])
		ds.performance[r.PlantID] = append(ds.performance[r.PlantID], r)
	}
	for id := range ds.performance {
		rows := ds.performance[id]
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	}

	for _, t := range tickets {
		ds.tickets[t.PlantID] = append(ds.tickets[t.PlantID], t)
	}
	return ds
}

// Empty is the dataset served before the first successful reload.
func Empty() *Dataset { return NewDataset(nil, nil, nil) }

// PlantIDs lists the loaded plants in lexical order.
func (d *Dataset) PlantIDs() []string {
	ids := make([]string, 0, len(d.plants))
	for id := range d.plants {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (d *Dataset) Plant(plantID string) (*domain.PlantData, error) {
	pd, ok := d.plants[plantID]
	if !ok {
		return nil, domain.NotFoundf("plant %q not found", plantID)
	}
	cp := *pd
	cp.Equipment = slices.Clone(pd.Equipment)
	cp.Thresholds = slices.Clone(pd.Thresholds)
	return &cp, nil
}

// PerformanceRange returns the plant's records whose date falls inside the
// inclusive [start, end] day interval, oldest first. An unknown plant or an
// empty window yields an empty slice.
func (d *Dataset) PerformanceRange(plantID string, start, end time.Time) []domain.PerformanceRecord {
	rows := d.performance[plantID]
	start, end = domain.Day(start), domain.Day(end)
	lo := sort.Search(len(rows), func(i int) bool { return !rows[i].Date.Before(start) })
	hi := sort.Search(len(rows), func(i int) bool { return rows[i].Date.After(end) })
	if lo >= hi {
		return []domain.PerformanceRecord{}
	}
	return slices.Clone(rows[lo:hi])
}

// TicketSort is the ordering applied by Tickets.
type TicketSort string

const (
	SortCostDesc TicketSort = "costo_desc"
	SortCostAsc  TicketSort = "costo_asc"
	SortDate     TicketSort = "fecha"
)

// MaxTicketLimit caps a single ticket listing.
const MaxTicketLimit = 1000

func ParseTicketSort(s string) (TicketSort, error) {
	switch TicketSort(strings.ToLower(strings.TrimSpace(s))) {
	case "", SortCostDesc:
		return SortCostDesc, nil
	case SortCostAsc:
		return SortCostAsc, nil
	case SortDate:
		return SortDate, nil
	}
	return "", domain.Validationf("unknown ticket sort %q (expected costo_desc, costo_asc or fecha)", s)
}

// StatusOpen selects every ticket that is not resolved.
const StatusOpen = "pendiente"

// TicketQuery filters and orders a ticket listing. Limit 0 means no cap.
type TicketQuery struct {
	Status string
	Sort   TicketSort
	Limit  int
}

func (q TicketQuery) validate() error {
	if q.Limit < 0 || q.Limit > MaxTicketLimit {
		return domain.Validationf("limit must be between 1 and %d", MaxTicketLimit)
	}
	if _, err := ParseTicketSort(string(q.Sort)); err != nil {
		return err
	}
	return nil
}

// Tickets lists a plant's tickets. Status "pendiente" means every open
// state; any other non-empty status must name a known state. Ties keep a
// stable ticket-id order so repeated calls agree.
func (d *Dataset) Tickets(plantID string, q TicketQuery) ([]domain.Ticket, error) {
	if err := q.validate(); err != nil {
		return nil, err
	}
	keep := func(domain.Ticket) bool { return true }
	switch status := strings.TrimSpace(q.Status); {
	case status == "":
	case strings.EqualFold(status, StatusOpen):
		keep = domain.Ticket.Open
	default:
		st, err := domain.ParseTicketState(status)
		if err != nil {
			return nil, err
		}
		keep = func(t domain.Ticket) bool { return t.State == st }
	}

	out := []domain.Ticket{}
	for _, t := range d.tickets[plantID] {
		if keep(t) {
			out = append(out, t)
		}
	}

	sortKey, _ := ParseTicketSort(string(q.Sort))
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch sortKey {
		case SortCostAsc:
			if a.EstimatedCostUSD != b.EstimatedCostUSD {
				return a.EstimatedCostUSD < b.EstimatedCostUSD
			}
		case SortDate:
			if !a.CreatedAt.Equal(b.CreatedAt) {
				return a.CreatedAt.After(b.CreatedAt)
			}
		default:
			if a.EstimatedCostUSD != b.EstimatedCostUSD {
				return a.EstimatedCostUSD > b.EstimatedCostUSD
			}
		}
		return a.ID < b.ID
	})

	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

// OpenTickets returns every non-resolved ticket of the plant, unsorted.
func (d *Dataset) OpenTickets(plantID string) []domain.Ticket {
	var out []domain.Ticket
	for _, t := range d.tickets[plantID] {
		if t.Open() {
			out = append(out, t)
		}
	}
	return out
}

// HasSevereOpenTicket reports whether a high or critical ticket is open.
func (d *Dataset) HasSevereOpenTicket(plantID string) bool {
	for _, t := range d.tickets[plantID] {
		if t.Open() && t.Criticality.Severe() {
			return true
		}
	}
	return false
}

func (d *Dataset) plantList() []domain.PlantData {
	out := make([]domain.PlantData, 0, len(d.plants))
	for _, id := range d.PlantIDs() {
		out = append(out, *d.plants[id])
	}
	return out
}

func (d *Dataset) performanceList() []domain.PerformanceRecord {
	var out []domain.PerformanceRecord
	for _, rows := range d.performance {
		out = append(out, rows...)
	}
	return out
}

func (d *Dataset) ticketList() []domain.Ticket {
	var out []domain.Ticket
	for _, rows := range d.tickets {
		out = append(out, rows...)
	}
	return out
}
