package report

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/metrics"
)

const (
	DefaultStepTimeout = 30 * time.Second

	// Receipt values reported when no messaging backend is configured.
	SimulatedSID    = "MOCK_SID_123456"
	SimulatedStatus = "simulated"

	fileStamp = "20060102_150405"
)

// Snapshotter computes the executive KPIs a report is built from.
type Snapshotter interface {
	ComputeSnapshot(plantID string, r domain.Range) (*domain.ExecutiveKPISnapshot, error)
}

// PlantSource resolves plant metadata.
type PlantSource interface {
	GetPlant(plantID string) (*domain.PlantData, error)
}

// Options configures the external collaborators of an Orchestrator. A nil
// Synthesizer or Channel puts that step in simulation mode. A nil Renderer
// makes PDF generation fail as unavailable.
type Options struct {
	Renderer    Renderer
	TTS         Synthesizer
	Channel     Channel
	Notifier    Notifier
	Store       ArtifactStore
	Sessions    *Sessions
	StepTimeout time.Duration
	Logger      zerolog.Logger
}

// Orchestrator sequences the reporting steps of each session.
type Orchestrator struct {
	kpis     Snapshotter
	plants   PlantSource
	renderer Renderer
	tts      Synthesizer
	channel  Channel
	notifier Notifier
	store    ArtifactStore
	sessions *Sessions
	timeout  time.Duration
	log      zerolog.Logger
	now      func() time.Time
}

func NewOrchestrator(kpis Snapshotter, plants PlantSource, opts Options) (*Orchestrator, error) {
	if kpis == nil || plants == nil {
		return nil, fmt.Errorf("report orchestrator needs a KPI source and a plant source")
	}
	if opts.Store == nil {
		return nil, fmt.Errorf("report orchestrator needs an artifact store")
	}
	if opts.Sessions == nil {
		opts.Sessions = NewSessions(0)
	}
	if opts.StepTimeout <= 0 {
		opts.StepTimeout = DefaultStepTimeout
	}
	return &Orchestrator{
		kpis:     kpis,
		plants:   plants,
		renderer: opts.Renderer,
		tts:      opts.TTS,
		channel:  opts.Channel,
		notifier: opts.Notifier,
		store:    opts.Store,
		sessions: opts.Sessions,
		timeout:  opts.StepTimeout,
		log:      opts.Logger.With().Str("component", "report").Logger(),
		now:      time.Now,
	}, nil
}

// SetClock replaces the wall clock used for artifact names and job times.
func (o *Orchestrator) SetClock(now func() time.Time) {
	o.now = now
	o.sessions.now = now
}

// Sessions exposes the session registry.
func (o *Orchestrator) Sessions() *Sessions { return o.sessions }

// PDFResult is a generated PDF report.
type PDFResult struct {
	Artifact Artifact
	Data     []byte
}

// AudioResult is a generated spoken summary.
type AudioResult struct {
	Artifact Artifact
	Text     string
}

// outcome is what a successful step hands back to runStep.
type outcome struct {
	apply    func(j *Job)
	filename string
	mode     Mode
}

// GeneratePDF renders the executive report of plantID over r.
func (o *Orchestrator) GeneratePDF(ctx context.Context, sessionID, plantID string, r domain.Range) (*PDFResult, error) {
	plant, snap, err := o.inputs(plantID, r)
	if err != nil {
		return nil, err
	}

	var res PDFResult
	err = o.runStep(ctx, o.sessions.Job(sessionID), domain.StepPDF, func(ctx context.Context) (outcome, error) {
		if o.renderer == nil {
			return outcome{}, domain.Upstream(domain.StepPDF, "no PDF renderer configured", nil)
		}
		data, err := o.renderer.Render(ctx, plant, snap)
		if err != nil {
			return outcome{}, err
		}
		if len(data) == 0 {
			return outcome{}, domain.Upstream(domain.StepPDF, "renderer returned an empty document", nil)
		}

		now := o.now()
		name := fmt.Sprintf("Reporte_Ejecutivo_%s.pdf", now.Format(fileStamp))
		art, err := o.save(ctx, ArtifactPDF, name, "application/pdf", data, ModeReal, now)
		if err != nil {
			return outcome{}, err
		}
		res = PDFResult{Artifact: art, Data: data}
		return outcome{
			apply:    func(j *Job) { j.pdf = &art },
			filename: name,
			mode:     ModeReal,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	o.publishAlerts(ctx, plant, snap)
	return &res, nil
}

// GenerateAudioSummary synthesizes text, or the executive summary of
// plantID over r when text is blank.
func (o *Orchestrator) GenerateAudioSummary(ctx context.Context, sessionID, plantID string, r domain.Range, text string) (*AudioResult, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		plant, snap, err := o.inputs(plantID, r)
		if err != nil {
			return nil, err
		}
		text = SummaryText(plant, snap)
	}

	var res AudioResult
	err := o.runStep(ctx, o.sessions.Job(sessionID), domain.StepTTS, func(ctx context.Context) (outcome, error) {
		now := o.now()
		name := fmt.Sprintf("resumen_ejecutivo_%s.mp3", now.Format(fileStamp))
		mode := ModeReal
		var data []byte
		if o.tts == nil {
			name = fmt.Sprintf("resumen_ejecutivo_%s_MOCK.mp3", now.Format(fileStamp))
			mode = ModeSimulation
		} else {
			var err error
			data, err = o.tts.Synthesize(ctx, text)
			if err != nil {
				return outcome{}, err
			}
			if len(data) == 0 {
				return outcome{}, domain.Upstream(domain.StepTTS, "synthesizer returned no audio", nil)
			}
		}

		art, err := o.save(ctx, ArtifactAudio, name, "audio/mpeg", data, mode, now)
		if err != nil {
			return outcome{}, err
		}
		res = AudioResult{Artifact: art, Text: text}
		return outcome{
			apply:    func(j *Job) { j.audio = append(j.audio, art) },
			filename: name,
			mode:     mode,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// SendAudioMessage delivers an audio artifact of the session to phone. An
// empty audioRef selects the latest audio of the session.
func (o *Orchestrator) SendAudioMessage(ctx context.Context, sessionID, phone, audioRef string) (*Delivery, error) {
	to, err := ValidatePhone(phone)
	if err != nil {
		return nil, err
	}
	job := o.sessions.Job(sessionID)
	art, err := job.audioArtifact(strings.TrimSpace(audioRef))
	if err != nil {
		o.log.Warn().Str("session", sessionID).Str("kind", string(domain.KindOf(err))).Msg("audio delivery rejected")
		return nil, err
	}

	var res Delivery
	err = o.runStep(ctx, job, domain.StepWhatsApp, func(ctx context.Context) (outcome, error) {
		ok, err := o.store.Exists(ctx, art.Ref)
		if err != nil {
			return outcome{}, err
		}
		if !ok {
			return outcome{}, &domain.Error{Kind: domain.KindNotFound, Step: domain.StepWhatsApp, Msg: fmt.Sprintf("audio file %s no longer exists", art.Filename)}
		}

		d, err := o.deliverAudio(ctx, to, art)
		if err != nil {
			return outcome{}, err
		}
		res = d
		return outcome{
			apply:    func(j *Job) { j.deliveries = append(j.deliveries, d) },
			filename: art.Filename,
			mode:     d.Mode,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (o *Orchestrator) deliverAudio(ctx context.Context, to string, art Artifact) (Delivery, error) {
	if o.channel == nil {
		return o.simulated(to, fmt.Sprintf("SIMULACIÓN: Audio se enviaría a %s", to)), nil
	}

	body := "Resumen ejecutivo en audio de su planta solar."
	url, err := o.store.URL(ctx, art.Ref)
	if err != nil {
		return Delivery{}, err
	}
	var rcpt Receipt
	note := ""
	if url != "" {
		rcpt, err = o.channel.SendMedia(ctx, to, body, url)
	} else {
		note = "el audio no tiene URL pública; se envió un aviso de texto"
		rcpt, err = o.channel.SendText(ctx, to, fmt.Sprintf("%s Archivo disponible en el portal: %s", body, art.Filename))
	}
	if err != nil {
		return Delivery{}, err
	}
	return Delivery{
		Success: true,
		Mode:    ModeReal,
		Message: fmt.Sprintf("Audio enviado a %s", to),
		SID:     rcpt.SID,
		Status:  rcpt.Status,
		Note:    note,
		To:      to,
		SentAt:  o.now(),
	}, nil
}

// SendTextMessage delivers a plain text message to phone. It is not part of
// any session.
func (o *Orchestrator) SendTextMessage(ctx context.Context, phone, text string) (*Delivery, error) {
	to, err := ValidatePhone(phone)
	if err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.Validationf("message text cannot be empty")
	}

	var res Delivery
	err = o.exec(ctx, domain.StepWhatsApp, o.log, func(ctx context.Context) (outcome, error) {
		if o.channel == nil {
			res = o.simulated(to, fmt.Sprintf("SIMULACIÓN: Mensaje se enviaría a %s", to))
			return outcome{mode: ModeSimulation}, nil
		}
		rcpt, err := o.channel.SendText(ctx, to, text)
		if err != nil {
			return outcome{}, err
		}
		res = Delivery{
			Success: true,
			Mode:    ModeReal,
			Message: fmt.Sprintf("Mensaje enviado a %s", to),
			SID:     rcpt.SID,
			Status:  rcpt.Status,
			To:      to,
			SentAt:  o.now(),
		}
		return outcome{mode: ModeReal}, nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// Job returns the state of a live session.
func (o *Orchestrator) Job(sessionID string) (JobView, bool) {
	j, ok := o.sessions.Lookup(sessionID)
	if !ok {
		return JobView{}, false
	}
	return j.View(), true
}

func (o *Orchestrator) simulated(to, msg string) Delivery {
	return Delivery{
		Success: true,
		Mode:    ModeSimulation,
		Message: msg,
		SID:     SimulatedSID,
		Status:  SimulatedStatus,
		Note:    "modo simulación: credenciales de mensajería no configuradas, no se envió nada",
		To:      to,
		SentAt:  o.now(),
	}
}

func (o *Orchestrator) inputs(plantID string, r domain.Range) (*domain.PlantData, *domain.ExecutiveKPISnapshot, error) {
	plant, err := o.plants.GetPlant(plantID)
	if err != nil {
		return nil, nil, err
	}
	snap, err := o.kpis.ComputeSnapshot(plantID, r)
	if err != nil {
		return nil, nil, err
	}
	return plant, snap, nil
}

// save stores data under a unique key; name is kept as the display file name.
func (o *Orchestrator) save(ctx context.Context, kind ArtifactKind, name, contentType string, data []byte, mode Mode, now time.Time) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	ref, err := o.store.Save(ctx, NewID()+"_"+name, contentType, data)
	if err != nil {
		return Artifact{}, fmt.Errorf("failed to store %s: %w", name, err)
	}
	return Artifact{
		Kind:        kind,
		Filename:    name,
		Ref:         ref,
		ContentType: contentType,
		Size:        len(data),
		Mode:        mode,
		CreatedAt:   now,
	}, nil
}

// publishAlerts broadcasts the alerts of a generated report. Failures are
// logged only.
func (o *Orchestrator) publishAlerts(ctx context.Context, plant *domain.PlantData, snap *domain.ExecutiveKPISnapshot) {
	if o.notifier == nil || len(snap.Alerts) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()
	subject := fmt.Sprintf("Alertas %s (%s)", plant.Plant.Name, snap.Range)
	if err := o.notifier.PublishAlerts(ctx, subject, snap.Alerts); err != nil {
		o.log.Warn().Err(err).Str("plant", plant.Plant.ID).Msg("failed to publish report alerts")
	}
}

// runStep moves job through step, marking it failed when fn fails.
func (o *Orchestrator) runStep(ctx context.Context, job *Job, step domain.Step, fn func(ctx context.Context) (outcome, error)) error {
	if err := job.begin(step, o.now()); err != nil {
		metrics.ReportStepsTotal.WithLabelValues(string(step), string(domain.KindOf(err))).Inc()
		return err
	}
	log := o.log.With().Str("session", job.id).Logger()

	var out outcome
	err := o.exec(ctx, step, log, func(ctx context.Context) (outcome, error) {
		var err error
		out, err = fn(ctx)
		return out, err
	})
	if err != nil {
		job.fail(step, o.now(), err)
		return err
	}
	job.succeed(step, o.now(), out.apply)
	return nil
}

// exec runs fn under the step timeout and classifies its error.
func (o *Orchestrator) exec(ctx context.Context, step domain.Step, log zerolog.Logger, fn func(ctx context.Context) (outcome, error)) error {
	log = log.With().Str("step", string(step)).Logger()
	log.Info().Msg("report step started")

	ctx, cancel := context.WithTimeout(ctx, o.timeout)
	defer cancel()

	start := time.Now()
	out, err := fn(ctx)
	metrics.ReportStepDurationSeconds.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())
	if err == nil && ctx.Err() != nil {
		// A backend that ignored ctx and finished late still overran the step.
		err = ctx.Err()
	}

	if err != nil {
		err = stepError(ctx, step, err)
		kind := domain.KindOf(err)
		metrics.ReportStepsTotal.WithLabelValues(string(step), string(kind)).Inc()
		log.Error().Err(err).Str("kind", string(kind)).Msg("report step failed")
		return err
	}

	result := "ok"
	if out.mode == ModeSimulation {
		result = "simulated"
	}
	metrics.ReportStepsTotal.WithLabelValues(string(step), result).Inc()
	log.Info().Str("file", out.filename).Stringer("mode", out.mode).Msg("report step succeeded")
	return nil
}

// stepError tags err with step. Deadline overruns become timeouts and
// untyped backend failures become upstream errors.
func stepError(ctx context.Context, step domain.Step, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return domain.Timeout(step, err)
	}
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Step != "" {
			return de
		}
		tagged := *de
		tagged.Step = step
		return &tagged
	}
	return domain.Upstream(step, "backend call failed", err)
}
