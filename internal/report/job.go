package report

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
)

// State of a reporting session.
type State int

const (
	StateIdle State = iota
	StatePDFGenerating
	StatePDFReady
	StateTTSGenerating
	StateTTSReady
	StateWhatsAppSending
	StateDelivered
	StateFailed
)

var stateNames = [...]string{
	StateIdle:            "idle",
	StatePDFGenerating:   "pdf_generating",
	StatePDFReady:        "pdf_ready",
	StateTTSGenerating:   "tts_generating",
	StateTTSReady:        "tts_ready",
	StateWhatsAppSending: "whatsapp_sending",
	StateDelivered:       "delivered",
	StateFailed:          "failed",
}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

var (
	runningState = map[domain.Step]State{
		domain.StepPDF:      StatePDFGenerating,
		domain.StepTTS:      StateTTSGenerating,
		domain.StepWhatsApp: StateWhatsAppSending,
	}
	doneState = map[domain.Step]State{
		domain.StepPDF:      StatePDFReady,
		domain.StepTTS:      StateTTSReady,
		domain.StepWhatsApp: StateDelivered,
	}
)

// StepResult is the last outcome of one step.
type StepResult struct {
	Status    string      `json:"status"`
	ErrorKind domain.Kind `json:"error_kind,omitempty"`
	Error     string      `json:"error,omitempty"`
	At        time.Time   `json:"at"`
}

// Job tracks one session's progress through the pipeline. Steps may run
// independently; the same step cannot run twice at once.
type Job struct {
	mu         sync.Mutex
	id         string
	state      State
	failedStep domain.Step
	running    map[domain.Step]bool
	pdf        *Artifact
	audio      []Artifact
	deliveries []Delivery
	steps      map[domain.Step]StepResult
	updated    time.Time
}

func newJob(id string, now time.Time) *Job {
	return &Job{
		id:      id,
		running: make(map[domain.Step]bool),
		steps:   make(map[domain.Step]StepResult),
		updated: now,
	}
}

// begin moves the job into step's running state.
func (j *Job) begin(step domain.Step, now time.Time) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.running[step] {
		return domain.Preconditionf(step, "step already in progress for this session")
	}
	if step == domain.StepWhatsApp && len(j.audio) == 0 {
		return domain.Preconditionf(step, "no audio summary has been generated in this session")
	}
	j.running[step] = true
	j.state = runningState[step]
	j.steps[step] = StepResult{Status: "running", At: now}
	j.updated = now
	return nil
}

func (j *Job) succeed(step domain.Step, now time.Time, apply func(j *Job)) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.running, step)
	if apply != nil {
		apply(j)
	}
	j.state = doneState[step]
	j.failedStep = ""
	j.steps[step] = StepResult{Status: "succeeded", At: now}
	j.updated = now
}

// fail records a failed step. Artifacts of earlier steps are kept.
func (j *Job) fail(step domain.Step, now time.Time, err error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	delete(j.running, step)
	j.state = StateFailed
	j.failedStep = step
	j.steps[step] = StepResult{Status: "failed", ErrorKind: domain.KindOf(err), Error: err.Error(), At: now}
	j.updated = now
}

// audioArtifact finds a produced audio artifact. An empty ref selects the
// most recent one.
func (j *Job) audioArtifact(ref string) (Artifact, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	if len(j.audio) == 0 {
		return Artifact{}, domain.Preconditionf(domain.StepWhatsApp, "no audio summary has been generated in this session")
	}
	if ref == "" {
		return j.audio[len(j.audio)-1], nil
	}
	for i := len(j.audio) - 1; i >= 0; i-- {
		if j.audio[i].Ref == ref || j.audio[i].Filename == ref {
			return j.audio[i], nil
		}
	}
	return Artifact{}, &domain.Error{
		Kind: domain.KindNotFound,
		Step: domain.StepWhatsApp,
		Msg:  fmt.Sprintf("audio %q was not produced in this session", ref),
	}
}

func (j *Job) touch(now time.Time) {
	j.mu.Lock()
	j.updated = now
	j.mu.Unlock()
}

func (j *Job) lastUpdate() time.Time {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.updated
}

// JobView is a read-only copy of a Job.
type JobView struct {
	SessionID  string                     `json:"session_id"`
	State      State                      `json:"state"`
	FailedStep domain.Step                `json:"failed_step,omitempty"`
	PDF        *Artifact                  `json:"pdf,omitempty"`
	Audio      []Artifact                 `json:"audio"`
	Deliveries []Delivery                 `json:"deliveries"`
	Steps      map[domain.Step]StepResult `json:"steps"`
	UpdatedAt  time.Time                  `json:"updated_at"`
}

func (j *Job) View() JobView {
	j.mu.Lock()
	defer j.mu.Unlock()
	v := JobView{
		SessionID:  j.id,
		State:      j.state,
		FailedStep: j.failedStep,
		Audio:      slices.Clone(j.audio),
		Deliveries: slices.Clone(j.deliveries),
		Steps:      make(map[domain.Step]StepResult, len(j.steps)),
		UpdatedAt:  j.updated,
	}
	if v.Audio == nil {
		v.Audio = []Artifact{}
	}
	if v.Deliveries == nil {
		v.Deliveries = []Delivery{}
	}
	if j.pdf != nil {
		pdf := *j.pdf
		v.PDF = &pdf
	}
	for k, r := range j.steps {
		v.Steps[k] = r
	}
	return v
}
