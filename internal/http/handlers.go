package http

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/metrics"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/realtime"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/report"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/service"
)

const (
	ServiceName = "Solar PV Executive Dashboard API"
	Version     = "1.0.0"

	// SessionHeader carries the reporting session id.
	SessionHeader = "X-Session-ID"

	defaultHours = 24
)

// NewApp builds the fiber app with the shared error handler and middleware.
func NewApp(origins []string) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      ServiceName,
		ErrorHandler: ErrorHandler,
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(origins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, " + SessionHeader,
		ExposeHeaders: SessionHeader + ", Content-Disposition",
	}))
	return app
}

// ErrorHandler maps the service error kinds to HTTP statuses.
func ErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message})
	}

	status := fiber.StatusInternalServerError
	kind := domain.KindOf(err)
	switch kind {
	case domain.KindValidation:
		status = fiber.StatusBadRequest
	case domain.KindNotFound:
		status = fiber.StatusNotFound
	case domain.KindPrecondition:
		status = fiber.StatusConflict
	case domain.KindUpstream:
		status = fiber.StatusBadGateway
	case domain.KindTimeout:
		status = fiber.StatusGatewayTimeout
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("unhandled request error")
	}

	body := fiber.Map{"error": err.Error(), "kind": kind}
	if step := domain.StepOf(err); step != "" {
		body["step"] = step
	}
	return c.Status(status).JSON(body)
}

func Register(app *fiber.App, svcs *service.Services) {
	h := &handlers{svcs: svcs}

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	g := app.Group("/api", sessionID)
	g.Get("/health", h.health)
	g.Get("/settings", h.getSettings)
	g.Post("/settings", h.postSettings)
	g.Post("/data/reload", h.reload)

	g.Get("/plant", h.plant)
	g.Get("/kpis/exec", h.kpis)
	g.Get("/series/realtime", h.realtime)
	g.Get("/series/realtime/stats", h.realtimeStats)
	g.Get("/tickets", h.tickets)
	g.Get("/equipment/health", h.equipmentHealth)

	g.Post("/report/pdf", h.pdf)
	g.Post("/report/tts", h.tts)
	g.Get("/report/session", h.session)
	g.Post("/whatsapp/send-audio", h.sendAudio)
	g.Post("/whatsapp/send-text", h.sendText)
}

// sessionID echoes the caller's session id, issuing one when absent. The id
// outlives the request, so it is copied out of fiber's reused buffer.
func sessionID(c *fiber.Ctx) error {
	id := utils.CopyString(strings.TrimSpace(c.Get(SessionHeader)))
	if id == "" {
		id = report.NewID()
	}
	c.Locals(SessionHeader, id)
	c.Set(SessionHeader, id)
	return c.Next()
}

type handlers struct {
	svcs *service.Services
}

func (h *handlers) session(c *fiber.Ctx) error {
	id := c.Locals(SessionHeader).(string)
	view, ok := h.svcs.Reports.Job(id)
	if !ok {
		return domain.NotFoundf("no reporting session %s", id)
	}
	return c.JSON(view)
}

func (h *handlers) plantID(c *fiber.Ctx) string {
	if id := strings.TrimSpace(c.Query("plant_id")); id != "" {
		return id
	}
	return h.svcs.DefaultPlant
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy", "service": ServiceName, "version": Version})
}

func (h *handlers) getSettings(c *fiber.Ctx) error {
	return c.JSON(h.svcs.Settings.Get())
}

func (h *handlers) postSettings(c *fiber.Ctx) error {
	var req struct {
		DataFolder string `json:"data_folder"`
	}
	if err := c.BodyParser(&req); err != nil {
		return domain.Validationf("invalid settings body: %v", err)
	}
	if strings.TrimSpace(req.DataFolder) == "" {
		return domain.Validationf("data_folder is required")
	}
	st, err := h.svcs.Settings.SetDataFolder(req.DataFolder)
	if err != nil {
		return err
	}
	return c.JSON(st)
}

func (h *handlers) reload(c *fiber.Ctx) error {
	return c.JSON(h.svcs.Reload(c.UserContext()))
}

func (h *handlers) plant(c *fiber.Ctx) error {
	pd, err := h.svcs.Records.GetPlant(h.plantID(c))
	if err != nil {
		return err
	}
	return c.JSON(pd)
}

func (h *handlers) kpis(c *fiber.Ctx) error {
	r, err := domain.ParseRange(c.Query("range"))
	if err != nil {
		return err
	}
	snap, err := h.svcs.KPIs.ComputeSnapshot(h.plantID(c), r)
	if err != nil {
		return err
	}
	metrics.KPISnapshotsTotal.WithLabelValues(string(r)).Inc()
	return c.JSON(snap)
}

func (h *handlers) recent(c *fiber.Ctx) ([]domain.RealtimeSample, error) {
	hours := defaultHours
	if raw := c.Query("hours"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, domain.Validationf("hours must be an integer, got %q", raw)
		}
		hours = n
	}
	if hours < 1 || hours > realtime.MaxWindowHours {
		return nil, domain.Validationf("hours must be between 1 and %d", realtime.MaxWindowHours)
	}
	plantID := h.plantID(c)
	if _, err := h.svcs.Records.GetPlant(plantID); err != nil {
		return nil, err
	}
	return h.svcs.Sampler.Recent(plantID, hours)
}

func (h *handlers) realtime(c *fiber.Ctx) error {
	samples, err := h.recent(c)
	if err != nil {
		return err
	}
	return c.JSON(samples)
}

func (h *handlers) realtimeStats(c *fiber.Ctx) error {
	samples, err := h.recent(c)
	if err != nil {
		return err
	}
	return c.JSON(realtime.Summarize(samples))
}

func (h *handlers) tickets(c *fiber.Ctx) error {
	sort, err := records.ParseTicketSort(c.Query("sort"))
	if err != nil {
		return err
	}
	q := records.TicketQuery{Status: c.Query("status"), Sort: sort}
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return domain.Validationf("limit must be between 1 and %d", records.MaxTicketLimit)
		}
		q.Limit = n
	}
	ts, err := h.svcs.Records.GetTickets(h.plantID(c), q)
	if err != nil {
		return err
	}
	return c.JSON(ts)
}

func (h *handlers) equipmentHealth(c *fiber.Ctx) error {
	eh, err := h.svcs.KPIs.EquipmentHealth(h.plantID(c))
	if err != nil {
		return err
	}
	return c.JSON(eh)
}

func (h *handlers) pdf(c *fiber.Ctx) error {
	r, err := domain.ParseRange(c.Query("range"))
	if err != nil {
		return err
	}
	res, err := h.svcs.Reports.GeneratePDF(c.UserContext(), c.Locals(SessionHeader).(string), h.plantID(c), r)
	if err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", res.Artifact.Filename))
	return c.Send(res.Data)
}

type ttsRequest struct {
	Text  string `json:"text"`
	Range string `json:"range"`
}

func (h *handlers) tts(c *fiber.Ctx) error {
	var req ttsRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return domain.Validationf("invalid tts body: %v", err)
		}
	}
	r, err := domain.ParseRange(req.Range)
	if err != nil {
		return err
	}
	res, err := h.svcs.Reports.GenerateAudioSummary(c.UserContext(), c.Locals(SessionHeader).(string), h.plantID(c), r, req.Text)
	if err != nil {
		return err
	}

	msg := "Audio generado exitosamente"
	if res.Artifact.Mode == report.ModeSimulation {
		msg = "Audio simulado: OPENAI_API_KEY no configurada"
	}
	return c.JSON(fiber.Map{
		"success":    true,
		"audio_path": res.Artifact.Ref,
		"filename":   res.Artifact.Filename,
		"mode":       res.Artifact.Mode,
		"text":       res.Text,
		"message":    msg,
	})
}

type sendAudioRequest struct {
	ToPhone   string `json:"to_phone"`
	AudioPath string `json:"audio_path"`
}

func (h *handlers) sendAudio(c *fiber.Ctx) error {
	var req sendAudioRequest
	if err := c.BodyParser(&req); err != nil {
		return domain.Validationf("invalid send-audio body: %v", err)
	}
	d, err := h.svcs.Reports.SendAudioMessage(c.UserContext(), c.Locals(SessionHeader).(string), req.ToPhone, req.AudioPath)
	if err != nil {
		return err
	}
	return c.JSON(d)
}

func (h *handlers) sendText(c *fiber.Ctx) error {
	d, err := h.svcs.Reports.SendTextMessage(c.UserContext(), c.Query("to_phone"), c.Query("message"))
	if err != nil {
		return err
	}
	return c.JSON(d)
}
