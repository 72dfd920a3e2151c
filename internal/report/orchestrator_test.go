package report

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

var testNow = time.Date(2024, 6, 30, 14, 5, 9, 0, time.UTC)

type fakeKPIs struct{ snap *domain.ExecutiveKPISnapshot }

func (f *fakeKPIs) ComputeSnapshot(plantID string, r domain.Range) (*domain.ExecutiveKPISnapshot, error) {
	if plantID != "PLT_001" {
		return nil, domain.NotFoundf("plant %s not found", plantID)
	}
	s := *f.snap
	s.Range = r
	return &s, nil
}

type fakePlants struct{}

func (fakePlants) GetPlant(plantID string) (*domain.PlantData, error) {
	if plantID != "PLT_001" {
		return nil, domain.NotFoundf("plant %s not found", plantID)
	}
	return &domain.PlantData{Plant: domain.Plant{ID: "PLT_001", Name: "Planta Solar Mendoza"}}, nil
}

type fakeRenderer struct {
	data  []byte
	err   error
	block bool
}

func (f *fakeRenderer) Render(ctx context.Context, _ *domain.PlantData, _ *domain.ExecutiveKPISnapshot) ([]byte, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return f.data, f.err
}

type fakeTTS struct {
	mu    sync.Mutex
	texts []string
}

func (f *fakeTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.texts = append(f.texts, text)
	return []byte("ID3-audio"), nil
}

type fakeChannel struct {
	mu    sync.Mutex
	calls int
	media []string
	fail  error
}

func (f *fakeChannel) SendText(_ context.Context, to, body string) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.fail != nil {
		return Receipt{}, f.fail
	}
	return Receipt{SID: "SM123", Status: "queued"}, nil
}

func (f *fakeChannel) SendMedia(_ context.Context, to, body, mediaURL string) (Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.media = append(f.media, mediaURL)
	if f.fail != nil {
		return Receipt{}, f.fail
	}
	return Receipt{SID: "SM456", Status: "queued"}, nil
}

type urlStore struct{ *DirStore }

func (u urlStore) URL(_ context.Context, ref string) (string, error) {
	return "https://cdn.example.com/" + ref, nil
}

type fakeNotifier struct {
	subject string
	alerts  []string
}

func (f *fakeNotifier) PublishAlerts(_ context.Context, subject string, alerts []string) error {
	f.subject, f.alerts = subject, alerts
	return nil
}

func testSnapshot() *domain.ExecutiveKPISnapshot {
	return &domain.ExecutiveKPISnapshot{
		PlantID:            "PLT_001",
		EnergyKWh:          2200,
		ExpectedEnergyKWh:  2200,
		AvgPR:              0.81,
		AvgAvailabilityPct: 98.5,
		Alerts:             []string{"PR promedio 0.70 por debajo del objetivo"},
	}
}

func newTestOrchestrator(t *testing.T, opts Options) (*Orchestrator, string) {
	t.Helper()
	dir := t.TempDir()
	if opts.Store == nil {
		store, err := NewDirStore(dir)
		require.NoError(t, err)
		opts.Store = store
	}
	opts.Logger = zerolog.Nop()
	o, err := NewOrchestrator(&fakeKPIs{snap: testSnapshot()}, fakePlants{}, opts)
	require.NoError(t, err)
	o.SetClock(func() time.Time { return testNow })
	return o, dir
}

func TestSendAudioBeforeSynthesisIsPrecondition(t *testing.T) {
	ch := &fakeChannel{}
	o, _ := newTestOrchestrator(t, Options{Channel: ch})

	_, err := o.SendAudioMessage(context.Background(), "s1", "+5491112345678", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPrecondition)
	assert.Equal(t, domain.StepWhatsApp, domain.StepOf(err))
	assert.Zero(t, ch.calls)
}

func TestSendAudioRejectsNumberWithoutPlus(t *testing.T) {
	ch := &fakeChannel{}
	o, _ := newTestOrchestrator(t, Options{Channel: ch, TTS: &fakeTTS{}})

	_, err := o.GenerateAudioSummary(context.Background(), "s1", "PLT_001", domain.Range30d, "")
	require.NoError(t, err)

	_, err = o.SendAudioMessage(context.Background(), "s1", "5491112345678", "")
	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	assert.Zero(t, ch.calls)

	view, ok := o.Job("s1")
	require.True(t, ok)
	assert.Equal(t, StateTTSReady, view.State)
}

func TestSendAudioWithoutChannelIsSimulated(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{TTS: &fakeTTS{}})
	ctx := context.Background()

	audio, err := o.GenerateAudioSummary(ctx, "s1", "PLT_001", domain.Range30d, "")
	require.NoError(t, err)

	d, err := o.SendAudioMessage(ctx, "s1", "+5491112345678", audio.Artifact.Ref)
	require.NoError(t, err)
	assert.True(t, d.Success)
	assert.Equal(t, ModeSimulation, d.Mode)
	assert.Equal(t, SimulatedSID, d.SID)
	assert.Equal(t, SimulatedStatus, d.Status)
	assert.Contains(t, d.Message, "SIMULACIÓN")
	assert.NotEmpty(t, d.Note)

	view, _ := o.Job("s1")
	assert.Equal(t, StateDelivered, view.State)
	require.Len(t, view.Deliveries, 1)
}

func TestSendAudioUsesMediaURLWhenStoreHasOne(t *testing.T) {
	store, err := NewDirStore(t.TempDir())
	require.NoError(t, err)
	ch := &fakeChannel{}
	o, _ := newTestOrchestrator(t, Options{TTS: &fakeTTS{}, Channel: ch, Store: urlStore{store}})
	ctx := context.Background()

	audio, err := o.GenerateAudioSummary(ctx, "s1", "PLT_001", domain.Range30d, "hola")
	require.NoError(t, err)

	d, err := o.SendAudioMessage(ctx, "s1", "+5491112345678", audio.Artifact.Filename)
	require.NoError(t, err)
	assert.Equal(t, ModeReal, d.Mode)
	assert.Equal(t, "SM456", d.SID)
	assert.Equal(t, []string{"https://cdn.example.com/" + audio.Artifact.Ref}, ch.media)
}

func TestSendFailureKeepsAudioForRetry(t *testing.T) {
	ch := &fakeChannel{fail: errors.New("twilio error 63016: outside window")}
	o, _ := newTestOrchestrator(t, Options{TTS: &fakeTTS{}, Channel: ch})
	ctx := context.Background()

	audio, err := o.GenerateAudioSummary(ctx, "s1", "PLT_001", domain.Range30d, "")
	require.NoError(t, err)

	_, err = o.SendAudioMessage(ctx, "s1", "+5491112345678", "")
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	assert.Equal(t, domain.StepWhatsApp, domain.StepOf(err))

	view, _ := o.Job("s1")
	assert.Equal(t, StateFailed, view.State)
	assert.Equal(t, domain.StepWhatsApp, view.FailedStep)
	require.Len(t, view.Audio, 1)

	ch.fail = nil
	d, err := o.SendAudioMessage(ctx, "s1", "+5491112345678", audio.Artifact.Ref)
	require.NoError(t, err)
	assert.Equal(t, ModeReal, d.Mode)
	assert.Equal(t, 2, ch.calls)

	view, _ = o.Job("s1")
	assert.Equal(t, StateDelivered, view.State)
}

func TestSendAudioUnknownRef(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{TTS: &fakeTTS{}})
	ctx := context.Background()

	_, err := o.GenerateAudioSummary(ctx, "s1", "PLT_001", domain.Range30d, "")
	require.NoError(t, err)

	_, err = o.SendAudioMessage(ctx, "s1", "+5491112345678", "otro.mp3")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendAudioMissingFile(t *testing.T) {
	o, dir := newTestOrchestrator(t, Options{TTS: &fakeTTS{}})
	ctx := context.Background()

	audio, err := o.GenerateAudioSummary(ctx, "s1", "PLT_001", domain.Range30d, "")
	require.NoError(t, err)
	require.NoError(t, os.Remove(filepath.Join(dir, audio.Artifact.Ref)))

	_, err = o.SendAudioMessage(ctx, "s1", "+5491112345678", "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAudioIsIndependentOfPDF(t *testing.T) {
	tts := &fakeTTS{}
	o, dir := newTestOrchestrator(t, Options{TTS: tts})

	res, err := o.GenerateAudioSummary(context.Background(), "s1", "PLT_001", domain.Range30d, "")
	require.NoError(t, err)
	assert.Equal(t, "resumen_ejecutivo_20240630_140509.mp3", res.Artifact.Filename)
	assert.Equal(t, ModeReal, res.Artifact.Mode)
	assert.Contains(t, res.Text, "Planta Solar Mendoza")
	require.Len(t, tts.texts, 1)
	assert.Equal(t, res.Text, tts.texts[0])

	data, err := os.ReadFile(filepath.Join(dir, res.Artifact.Ref))
	require.NoError(t, err)
	assert.Equal(t, "ID3-audio", string(data))
}

func TestAudioWithoutSynthesizerIsMock(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{})

	res, err := o.GenerateAudioSummary(context.Background(), "s1", "PLT_001", domain.Range30d, "texto propio")
	require.NoError(t, err)
	assert.Equal(t, "resumen_ejecutivo_20240630_140509_MOCK.mp3", res.Artifact.Filename)
	assert.Equal(t, ModeSimulation, res.Artifact.Mode)
	assert.Equal(t, "texto propio", res.Text)
	assert.Zero(t, res.Artifact.Size)
}

func TestGeneratePDF(t *testing.T) {
	notifier := &fakeNotifier{}
	o, dir := newTestOrchestrator(t, Options{Renderer: &fakeRenderer{data: []byte("%PDF-1.4")}, Notifier: notifier})

	res, err := o.GeneratePDF(context.Background(), "s1", "PLT_001", domain.Range90d)
	require.NoError(t, err)
	assert.Equal(t, "Reporte_Ejecutivo_20240630_140509.pdf", res.Artifact.Filename)
	assert.Equal(t, "%PDF-1.4", string(res.Data))
	assert.FileExists(t, filepath.Join(dir, res.Artifact.Ref))

	view, _ := o.Job("s1")
	assert.Equal(t, StatePDFReady, view.State)
	require.NotNil(t, view.PDF)
	assert.Equal(t, res.Artifact.Filename, view.PDF.Filename)

	assert.Contains(t, notifier.subject, "Planta Solar Mendoza")
	assert.Equal(t, testSnapshot().Alerts, notifier.alerts)
}

func TestGeneratePDFFailureExposesNoArtifact(t *testing.T) {
	o, dir := newTestOrchestrator(t, Options{Renderer: &fakeRenderer{err: errors.New("connection refused")}})

	_, err := o.GeneratePDF(context.Background(), "s1", "PLT_001", domain.Range30d)
	require.Error(t, err)
	assert.Equal(t, domain.KindUpstream, domain.KindOf(err))
	assert.Equal(t, domain.StepPDF, domain.StepOf(err))

	view, _ := o.Job("s1")
	assert.Equal(t, StateFailed, view.State)
	assert.Equal(t, domain.StepPDF, view.FailedStep)
	assert.Nil(t, view.PDF)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGeneratePDFWithoutRenderer(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{})

	_, err := o.GeneratePDF(context.Background(), "s1", "PLT_001", domain.Range30d)
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestStepTimeout(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{Renderer: &fakeRenderer{block: true}, StepTimeout: 20 * time.Millisecond})

	_, err := o.GeneratePDF(context.Background(), "s1", "PLT_001", domain.Range30d)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)
	assert.NotEqual(t, domain.KindUpstream, domain.KindOf(err))

	view, _ := o.Job("s1")
	assert.Equal(t, domain.KindTimeout, view.Steps[domain.StepPDF].ErrorKind)
}

type echoTTS struct{}

func (echoTTS) Synthesize(_ context.Context, text string) ([]byte, error) {
	return []byte(text), nil
}

type lateRenderer struct{ delay time.Duration }

func (l lateRenderer) Render(context.Context, *domain.PlantData, *domain.ExecutiveKPISnapshot) ([]byte, error) {
	time.Sleep(l.delay)
	return []byte("%PDF-1.4"), nil
}

func TestSessionsInTheSameSecondKeepTheirOwnAudio(t *testing.T) {
	ch := &fakeChannel{}
	o, dir := newTestOrchestrator(t, Options{TTS: echoTTS{}, Channel: ch})
	ctx := context.Background()

	a, err := o.GenerateAudioSummary(ctx, "A", "PLT_001", domain.Range30d, "audio of session A")
	require.NoError(t, err)
	b, err := o.GenerateAudioSummary(ctx, "B", "PLT_001", domain.Range30d, "audio of session B")
	require.NoError(t, err)

	assert.Equal(t, a.Artifact.Filename, b.Artifact.Filename)
	assert.NotEqual(t, a.Artifact.Ref, b.Artifact.Ref)

	data, err := os.ReadFile(filepath.Join(dir, a.Artifact.Ref))
	require.NoError(t, err)
	assert.Equal(t, "audio of session A", string(data))

	_, err = o.SendAudioMessage(ctx, "A", "+5491112345678", a.Artifact.Filename)
	require.NoError(t, err)
	view, _ := o.Job("A")
	require.Len(t, view.Audio, 1)
	assert.Equal(t, a.Artifact.Ref, view.Audio[0].Ref)
}

func TestLateSuccessIsATimeout(t *testing.T) {
	o, dir := newTestOrchestrator(t, Options{Renderer: lateRenderer{delay: 60 * time.Millisecond}, StepTimeout: 10 * time.Millisecond})

	_, err := o.GeneratePDF(context.Background(), "s1", "PLT_001", domain.Range30d)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrTimeout)

	view, _ := o.Job("s1")
	assert.Equal(t, StateFailed, view.State)
	assert.Nil(t, view.PDF)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGeneratePDFUnknownPlant(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{Renderer: &fakeRenderer{data: []byte("%PDF")}})

	_, err := o.GeneratePDF(context.Background(), "s1", "PLT_404", domain.Range30d)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSendText(t *testing.T) {
	ch := &fakeChannel{}
	o, _ := newTestOrchestrator(t, Options{Channel: ch})
	ctx := context.Background()

	_, err := o.SendTextMessage(ctx, "1123456789", "hola")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = o.SendTextMessage(ctx, "+5491112345678", "  ")
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Zero(t, ch.calls)

	d, err := o.SendTextMessage(ctx, "+5491112345678", "hola")
	require.NoError(t, err)
	assert.Equal(t, ModeReal, d.Mode)
	assert.Equal(t, "SM123", d.SID)
}

func TestSendTextSimulated(t *testing.T) {
	o, _ := newTestOrchestrator(t, Options{})

	d, err := o.SendTextMessage(context.Background(), "+5491112345678", "hola")
	require.NoError(t, err)
	assert.Equal(t, ModeSimulation, d.Mode)
	assert.Equal(t, "SIMULACIÓN: Mensaje se enviaría a +5491112345678", d.Message)
}

func TestSessionsExpire(t *testing.T) {
	s := NewSessions(time.Minute)
	now := testNow
	s.now = func() time.Time { return now }

	j := s.Job("a")
	assert.Same(t, j, s.Job("a"))
	assert.Equal(t, 1, s.Len())

	now = now.Add(2 * time.Minute)
	_, ok := s.Lookup("a")
	assert.False(t, ok)
	assert.NotSame(t, j, s.Job("a"))
}

func TestValidatePhone(t *testing.T) {
	got, err := ValidatePhone(" +5491112345678 ")
	require.NoError(t, err)
	assert.Equal(t, "+5491112345678", got)

	for _, bad := range []string{"5491112345678", "+0123456789", "+12", "+54 911 1234", ""} {
		_, err := ValidatePhone(bad)
		assert.ErrorIs(t, err, domain.ErrValidation, bad)
	}
}

func TestSummaryText(t *testing.T) {
	plant := &domain.PlantData{Plant: domain.Plant{ID: "PLT_001", Name: "Planta Solar Mendoza"}}
	snap := testSnapshot()
	snap.Range = domain.Range30d
	snap.EnergyKWh = 1250000
	snap.RevenueUSD = 81250
	snap.Alerts = []string{"uno", "dos", "tres"}

	text := SummaryText(plant, snap)
	assert.Contains(t, text, "Resumen ejecutivo de Planta Solar Mendoza, últimos 30 días.")
	assert.Contains(t, text, "1250.0 megavatios hora")
	assert.Contains(t, text, "81.250 dólares")
	assert.Contains(t, text, "Alertas principales: uno. dos.")
	assert.NotContains(t, text, "tres")
}

func TestThousands(t *testing.T) {
	assert.Equal(t, "0", thousands(0))
	assert.Equal(t, "999", thousands(999))
	assert.Equal(t, "1.000", thousands(1000))
	assert.Equal(t, "1.234.568", thousands(1234567.8))
	assert.Equal(t, "-12.500", thousands(-12500))
}
