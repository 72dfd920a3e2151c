package domain

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Status is the classification of a single KPI against its threshold.
type Status int

const (
	StatusNormal Status = iota
	StatusWarning
	StatusCritical
)

func (s Status) String() string {
	switch s {
	case StatusNormal:
		return "normal"
	case StatusWarning:
		return "warning"
	case StatusCritical:
		return "critical"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Worst returns the more severe of s and o.
func (s Status) Worst(o Status) Status {
	if o > s {
		return o
	}
	return s
}

// Trend compares the latest part of a range against its earliest part.
type Trend int

const (
	TrendStable Trend = iota
	TrendUp
	TrendDown
)

func (t Trend) String() string {
	switch t {
	case TrendStable:
		return "stable"
	case TrendUp:
		return "up"
	case TrendDown:
		return "down"
	}
	return fmt.Sprintf("trend(%d)", int(t))
}

func (t Trend) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

// SystemState is the plant-wide operating state shown to the COO.
type SystemState int

const (
	SystemNormal SystemState = iota
	SystemAlert
	SystemCritical
)

func (s SystemState) String() string {
	switch s {
	case SystemNormal:
		return "normal"
	case SystemAlert:
		return "alerta"
	case SystemCritical:
		return "critico"
	}
	return fmt.Sprintf("system(%d)", int(s))
}

func (s SystemState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// SystemStateOf maps the worst KPI status onto the plant state.
func SystemStateOf(s Status) SystemState {
	switch s {
	case StatusCritical:
		return SystemCritical
	case StatusWarning:
		return SystemAlert
	default:
		return SystemNormal
	}
}

// Polarity tells the evaluator which direction of a value is worse. The zero
// value is invalid so every threshold has to state it.
type Polarity int

const (
	LowerIsWorse Polarity = iota + 1
	HigherIsWorse
)

func (p Polarity) String() string {
	switch p {
	case LowerIsWorse:
		return "lower_is_worse"
	case HigherIsWorse:
		return "higher_is_worse"
	}
	return ""
}

func (p Polarity) Valid() bool {
	return p == LowerIsWorse || p == HigherIsWorse
}

// ParsePolarity accepts the English and Spanish spellings used in source files.
func ParsePolarity(s string) (Polarity, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lower_is_worse", "menor_es_peor", "min":
		return LowerIsWorse, nil
	case "higher_is_worse", "mayor_es_peor", "max":
		return HigherIsWorse, nil
	}
	return 0, Validationf("unknown threshold polarity %q", s)
}

func (p Polarity) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Polarity) UnmarshalText(b []byte) error {
	v, err := ParsePolarity(string(b))
	if err != nil {
		return err
	}
	*p = v
	return nil
}

// Scan implements sql.Scanner for text columns.
func (p *Polarity) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return p.UnmarshalText([]byte(v))
	case []byte:
		return p.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into Polarity", src)
}

func (p Polarity) Value() (driver.Value, error) {
	return p.String(), nil
}

// TicketState is the lifecycle state owned by the external maintenance system.
type TicketState string

const (
	TicketPending    TicketState = "Pendiente"
	TicketInProgress TicketState = "En Progreso"
	TicketBlocked    TicketState = "Bloqueado"
	TicketResolved   TicketState = "Resuelto"
)

var ticketStates = []TicketState{TicketPending, TicketInProgress, TicketBlocked, TicketResolved}

// ParseTicketState matches case-insensitively against the known states.
func ParseTicketState(s string) (TicketState, error) {
	s = strings.TrimSpace(s)
	for _, st := range ticketStates {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", Validationf("unknown ticket state %q", s)
}

func (t *TicketState) UnmarshalText(b []byte) error {
	v, err := ParseTicketState(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *TicketState) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return t.UnmarshalText([]byte(v))
	case []byte:
		return t.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into TicketState", src)
}

// Criticality tier of a ticket.
type Criticality string

const (
	CriticalityLow      Criticality = "Baja"
	CriticalityMedium   Criticality = "Media"
	CriticalityHigh     Criticality = "Alta"
	CriticalityCritical Criticality = "Crítica"
)

// ParseCriticality also accepts the unaccented "Critica".
func ParseCriticality(s string) (Criticality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "baja":
		return CriticalityLow, nil
	case "media":
		return CriticalityMedium, nil
	case "alta":
		return CriticalityHigh, nil
	case "crítica", "critica":
		return CriticalityCritical, nil
	}
	return "", Validationf("unknown ticket criticality %q", s)
}

// Severe reports whether the tier degrades plant output while open.
func (c Criticality) Severe() bool {
	return c == CriticalityHigh || c == CriticalityCritical
}

func (c *Criticality) UnmarshalText(b []byte) error {
	v, err := ParseCriticality(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}

func (c *Criticality) Scan(src any) error {
	switch v := src.(type) {
	case string:
		return c.UnmarshalText([]byte(v))
	case []byte:
		return c.UnmarshalText(v)
	}
	return fmt.Errorf("cannot scan %T into Criticality", src)
}
