package orchestrator

import (
	"context"

	"github.com/FCHEHIDI/lb-analytics/internal/classifier"
	"github.com/FCHEHIDI/lb-analytics/internal/events"
	"github.com/FCHEHIDI/lb-analytics/internal/generator"
	"github.com/FCHEHIDI/lb-analytics/internal/logger"
	"github.com/FCHEHIDI/lb-analytics/internal/metrics"
	"github.com/FCHEHIDI/lb-analytics/internal/resilience"
	"github.com/FCHEHIDI/lb-analytics/internal/warehouse"
	"github.com/FCHEHIDI/lb-analytics/pkg/config"
	"github.com/FCHEHIDI/lb-analytics/pkg/database"
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// Orchestrator wires the engine together: generator, classifier, warehouse,
// circuit breaker, event bus and the periodic pipeline.
type Orchestrator struct {
	config      *config.Config
	db          *database.DB
	wh          *warehouse.Warehouse
	eventBus    *events.EventBus
	eventLogger *events.EventLogger
	pipeline    *Pipeline
}

func New(cfg *config.Config, db *database.DB) *Orchestrator {
	eventBus := events.NewEventBus(cfg.Events.BufferSize)
	eventLogger := events.NewEventLogger(eventBus.SubscribeAll())

	wh := warehouse.New(db, cfg.Warehouse)

	breaker := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		Name:        "warehouse",
		MaxFailures: cfg.Warehouse.CircuitBreaker.MaxFailures,
		Timeout:     cfg.Warehouse.CircuitBreaker.Timeout,
		OnStateChange: func(name string, from, to resilience.State) {
			logger.Warnf("circuit breaker %s: %s -> %s", name, from, to)
			metrics.Get().SetCircuitBreakerState(name, int(to))
		},
	})

	pipeline := NewPipeline(PipelineConfig{
		Interval:        cfg.Pipeline.Interval,
		NumRequests:     cfg.Pipeline.NumRequests,
		SpanHours:       cfg.Pipeline.SpanHours,
		IntervalMinutes: cfg.Generator.IntervalMinutes,
		MaxRetries:      cfg.Pipeline.MaxRetries,
		RetryBackoff:    cfg.Pipeline.RetryBackoff,
		ClassifyWorkers: cfg.Classifier.Workers,
		Generator:       generator.New(cfg.Generator),
		Classifier: classifier.New(classifier.Config{
			FailureStatuses:  cfg.Classifier.FailureStatuses,
			LatencyOutlierMs: cfg.Classifier.LatencyOutlierMs,
			RetrySpikeRate:   cfg.Classifier.RetrySpikeRate,
		}),
		Warehouse:      wh,
		Breaker:        breaker,
		EventPublisher: events.NewPublisher(eventBus),
		Retention:      cfg.Warehouse.Retention,
	})

	return &Orchestrator{
		config:      cfg,
		db:          db,
		wh:          wh,
		eventBus:    eventBus,
		eventLogger: eventLogger,
		pipeline:    pipeline,
	}
}

// EnsureSchema migrates and verifies the warehouse schema.
func (o *Orchestrator) EnsureSchema(ctx context.Context) error {
	return o.wh.EnsureSchema(ctx)
}

func (o *Orchestrator) Start() error {
	logger.Info("Orchestrator starting")
	o.eventLogger.Start()
	return o.pipeline.Start()
}

func (o *Orchestrator) Stop() {
	logger.Info("Orchestrator stopping")

	o.pipeline.Stop()
	o.eventLogger.Stop()
	o.eventBus.Close()

	logger.Info("Orchestrator stopped")
}

// RunOnce executes a single pipeline cycle without starting the ticker.
func (o *Orchestrator) RunOnce(ctx context.Context) error {
	return o.pipeline.RunCycle(ctx)
}

// Purge applies the retention windows once.
func (o *Orchestrator) Purge(ctx context.Context) error {
	return o.pipeline.Purge(ctx)
}

// Warehouse exposes the ingestion layer to the API read paths.
func (o *Orchestrator) Warehouse() *warehouse.Warehouse {
	return o.wh
}

func (o *Orchestrator) SubscribeEvents(eventType models.EventType) <-chan *models.Event {
	return o.eventBus.Subscribe(eventType)
}

func (o *Orchestrator) SubscribeAllEvents() <-chan *models.Event {
	return o.eventBus.SubscribeAll()
}
