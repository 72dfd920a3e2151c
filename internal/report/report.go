// Package report runs the executive reporting pipeline: PDF rendering,
// spoken summary synthesis and delivery over a messaging channel.
package report

import (
	"context"
	"time"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// Renderer turns a KPI snapshot into a PDF document.
type Renderer interface {
	Render(ctx context.Context, plant *domain.PlantData, snap *domain.ExecutiveKPISnapshot) ([]byte, error)
}

// Synthesizer turns text into MP3 audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Receipt is what a messaging backend reports for an accepted message.
type Receipt struct {
	SID    string
	Status string
}

// Channel delivers messages to a phone number in E.164 form.
type Channel interface {
	SendText(ctx context.Context, to, body string) (Receipt, error)
	// SendMedia attaches the media found at mediaURL to body.
	SendMedia(ctx context.Context, to, body, mediaURL string) (Receipt, error)
}

// Notifier broadcasts the alerts of a freshly generated report.
type Notifier interface {
	PublishAlerts(ctx context.Context, subject string, alerts []string) error
}

// ArtifactStore persists generated files. Save must never expose a partly
// written artifact under ref.
type ArtifactStore interface {
	Save(ctx context.Context, name, contentType string, data []byte) (ref string, err error)
	Exists(ctx context.Context, ref string) (bool, error)
	// URL returns a link a messaging backend can fetch, or "" when the
	// store cannot publish one.
	URL(ctx context.Context, ref string) (string, error)
}

// ArtifactKind tells PDF and audio artifacts apart.
type ArtifactKind string

const (
	ArtifactPDF   ArtifactKind = "pdf"
	ArtifactAudio ArtifactKind = "audio"
)

// Artifact is a generated file known to the session that produced it.
type Artifact struct {
	Kind        ArtifactKind `json:"kind"`
	Filename    string       `json:"filename"`
	Ref         string       `json:"ref"`
	ContentType string       `json:"content_type"`
	Size        int          `json:"size"`
	Mode        Mode         `json:"mode"`
	CreatedAt   time.Time    `json:"created_at"`
}

// Mode says whether a step reached the real backend.
type Mode int

const (
	ModeReal Mode = iota
	ModeSimulation
)

func (m Mode) String() string {
	if m == ModeSimulation {
		return "simulation"
	}
	return "real"
}

func (m Mode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// Delivery is the outcome of a messaging step.
type Delivery struct {
	Success bool      `json:"success"`
	Mode    Mode      `json:"mode"`
	Message string    `json:"message"`
	SID     string    `json:"sid"`
	Status  string    `json:"status"`
	Note    string    `json:"note,omitempty"`
	To      string    `json:"to"`
	SentAt  time.Time `json:"sent_at"`
}
