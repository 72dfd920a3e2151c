// Package service wires the record store, KPI aggregator, realtime sampler
// and report orchestrator from configuration.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"

	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/cloud"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/config"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/database"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/domain"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/kpi"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/metrics"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/realtime"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/records"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/report"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/repository"
	"github.com/ANIKETSHETTY47/solar-exec-dashboard/internal/settings"
)

const (
	SourceFolder   = "folder"
	SourcePostgres = "postgres"
)

type Services struct {
	Records      *records.Store
	Settings     *settings.Store
	KPIs         *kpi.Aggregator
	Sampler      *realtime.Sampler
	Reports      *report.Orchestrator
	Feeder       *realtime.Feeder      // nil unless SIMULATION_ENABLED
	Archive      *cloud.DynamoDBClient // nil unless cloud services are on
	DefaultPlant string

	db  *sqlx.DB
	log zerolog.Logger
}

func New(ctx context.Context, log zerolog.Logger) (*Services, error) {
	st, err := settings.Open(config.SettingsFile(), config.DataFolder())
	if err != nil {
		return nil, err
	}

	s := &Services{
		Records:      records.NewStore(log),
		Settings:     st,
		Sampler:      realtime.NewSampler(config.RealtimeRetention()),
		DefaultPlant: config.DefaultPlantID(),
		log:          log.With().Str("component", "service").Logger(),
	}

	if config.DataSource() == SourcePostgres {
		s.db, err = database.Connect()
		if err != nil {
			return nil, fmt.Errorf("failed to connect record database: %w", err)
		}
		if err := repository.New(s.db).Migrate(ctx); err != nil {
			return nil, fmt.Errorf("failed to migrate record database: %w", err)
		}
	}

	if !config.CO2FactorSet() {
		s.log.Warn().Float64("kg_per_kwh", config.CO2Factor()).Msg("CO2_FACTOR_KG_PER_KWH not set, using default emissions factor")
	}
	s.KPIs = kpi.NewAggregator(kpi.Config{
		CO2FactorKgPerKWh: config.CO2Factor(),
		TrendTolerancePct: config.TrendTolerance(),
		TopTickets:        config.TopTicketsLimit(),
	}, s.Records, s.Sampler)

	if config.SimulationEnabled() {
		sim := realtime.NewSimulator(config.RealtimeInterval(), time.Now().UnixNano())
		s.Feeder = realtime.NewFeeder(sim, s.Sampler, s.Records, log)
	}

	opts, err := s.reportOptions(ctx, log)
	if err != nil {
		return nil, err
	}
	s.Reports, err = report.NewOrchestrator(s.KPIs, s.Records, opts)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// reportOptions picks the artifact store and report backends. Anything left
// unconfigured runs in simulation or reports itself unavailable.
func (s *Services) reportOptions(ctx context.Context, log zerolog.Logger) (report.Options, error) {
	opts := report.Options{
		Sessions:    report.NewSessions(config.ReportSessionTTL()),
		StepTimeout: config.ReportStepTimeout(),
		Logger:      log,
	}
	cloudOn := config.UseCloudServices()
	region := config.AWSRegion()

	if cloudOn {
		s3c, err := cloud.NewS3Client(ctx, region, config.S3Bucket())
		if err != nil {
			return opts, err
		}
		opts.Store = s3c

		s.Archive, err = cloud.NewDynamoDBClient(ctx, region, config.DynamoDBTable())
		if err != nil {
			return opts, err
		}
	} else {
		dir, err := report.NewDirStore(config.ReportOutputDir())
		if err != nil {
			return opts, err
		}
		opts.Store = dir
	}

	switch config.ReportRenderer() {
	case "lambda":
		if cloudOn {
			lc, err := cloud.NewLambdaClient(ctx, region, config.RendererFunction())
			if err != nil {
				return opts, err
			}
			opts.Renderer = lc
		}
	case "http":
		if url := config.RendererURL(); url != "" {
			hr, err := report.NewHTTPRenderer(url)
			if err != nil {
				return opts, err
			}
			opts.Renderer = hr
		}
	}
	if opts.Renderer == nil {
		s.log.Warn().Str("renderer", config.ReportRenderer()).Msg("No PDF renderer available; PDF generation will fail")
	}

	if key := config.OpenAIKey(); key != "" {
		tts, err := report.NewOpenAITTS(key, config.OpenAITTSModel(), config.OpenAITTSVoice())
		if err != nil {
			return opts, err
		}
		opts.TTS = tts
	} else {
		s.log.Info().Msg("OPENAI_API_KEY not set; audio summaries run in simulation mode")
	}

	var snsc *cloud.SNSClient
	if cloudOn {
		var err error
		snsc, err = cloud.NewSNSClient(ctx, region, config.SNSTopicArn())
		if err != nil {
			return opts, err
		}
		if config.SNSTopicArn() != "" {
			opts.Notifier = snsc
		}
	}

	switch config.MessagingProvider() {
	case "sns":
		if snsc != nil {
			opts.Channel = snsc
		}
	default:
		if config.TwilioAccountSID() != "" && config.TwilioAuthToken() != "" {
			ch, err := report.NewTwilioChannel(config.TwilioAccountSID(), config.TwilioAuthToken(), config.TwilioWhatsAppFrom())
			if err != nil {
				return opts, err
			}
			opts.Channel = ch
		}
	}
	if opts.Channel == nil {
		s.log.Info().Str("provider", config.MessagingProvider()).Msg("Messaging credentials missing; deliveries run in simulation mode")
	}
	return opts, nil
}

// Source returns the record source of the active data location.
func (s *Services) Source() records.Source {
	if s.db != nil {
		return records.NewPostgresSource(repository.New(s.db))
	}
	return records.NewFolderSource(s.Settings.DataFolder())
}

// Reload refreshes the record store and records per-file counts in the
// settings file.
func (s *Services) Reload(ctx context.Context) records.ReloadResult {
	res := s.Records.Reload(ctx, s.Source())

	outcome := "ok"
	if !res.Success {
		outcome = "partial"
	}
	metrics.RecordsReloadTotal.WithLabelValues(outcome).Inc()

	if err := s.Settings.RecordReload(res.LastReload, res.FilesLoaded); err != nil {
		s.log.Error().Err(err).Msg("Failed to persist reload result")
	}
	return res
}

// WarmSampler loads the archived samples of every plant into the sampler.
func (s *Services) WarmSampler(ctx context.Context) (int, error) {
	if s.Archive == nil {
		return 0, nil
	}
	since := time.Now().Add(-s.Sampler.Retention())
	total := 0
	for _, id := range s.Records.Snapshot().PlantIDs() {
		samples, err := s.Archive.RecentSamples(ctx, id, since)
		if err != nil {
			return total, fmt.Errorf("failed to warm sampler for %s: %w", id, err)
		}
		s.Sampler.Append(samples...)
		total += len(samples)
	}
	metrics.RealtimeSamplesTotal.WithLabelValues("dynamodb").Add(float64(total))
	return total, nil
}

// Ingest appends a live sample to the sampler.
func (s *Services) Ingest(sample domain.RealtimeSample) {
	s.Sampler.Append(sample)
	metrics.RealtimeSamplesTotal.WithLabelValues("mqtt").Inc()
}

func (s *Services) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}
