package events

import (
	"github.com/FCHEHIDI/lb-analytics/pkg/models"
)

// Publisher is a typed façade over the bus for the pipeline stages.
type Publisher struct {
	bus     *EventBus
	traceID string
}

func NewPublisher(bus *EventBus) *Publisher {
	return &Publisher{bus: bus}
}

func (p *Publisher) WithTraceID(traceID string) *Publisher {
	return &Publisher{
		bus:     p.bus,
		traceID: traceID,
	}
}

func (p *Publisher) publish(event *models.Event) {
	if p.traceID != "" {
		event.TraceID = p.traceID
	}
	p.bus.Publish(event)
}

func (p *Publisher) BatchGenerated(batchID string, requests, metrics int) {
	event := models.NewEvent(models.EventTypeBatchGenerated, batchID, "Telemetry batch generated").
		WithData(map[string]interface{}{
			"requests": requests,
			"metrics":  metrics,
		})
	p.publish(event)
}

func (p *Publisher) BatchAnalyzed(batchID string, summary models.AnomalySummary) {
	event := models.NewEvent(models.EventTypeBatchAnalyzed, batchID, "Batch analyzed").
		WithData(summary)

	if summary.TierCounts[models.TierCritical] > 0 {
		event.WithSeverity(models.SeverityCritical)
	} else if summary.WarningCount > 0 {
		event.WithSeverity(models.SeverityWarning)
	}

	p.publish(event)
}

func (p *Publisher) BatchIngested(batchID string, rowsInserted, chunksCommitted int) {
	event := models.NewEvent(models.EventTypeBatchIngested, batchID, "Batch ingested").
		WithData(map[string]interface{}{
			"rows_inserted":    rowsInserted,
			"chunks_committed": chunksCommitted,
		})
	p.publish(event)
}

func (p *Publisher) IngestionFailed(batchID string, failedChunks []int, err error) {
	data := map[string]interface{}{
		"failed_chunks": failedChunks,
	}
	if err != nil {
		data["error"] = err.Error()
	}
	event := models.NewEvent(models.EventTypeIngestionFailed, batchID, "Batch ingestion failed").
		WithSeverity(models.SeverityCritical).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) ReportStored(batchID string, reportType models.ReportType) {
	event := models.NewEvent(models.EventTypeReportStored, batchID, "Analytics report stored").
		WithData(map[string]interface{}{
			"report_type": string(reportType),
		})
	p.publish(event)
}

func (p *Publisher) RetentionPurge(rowsDeleted map[string]int64) {
	event := models.NewEvent(models.EventTypeRetentionPurge, "", "Retention purge completed").
		WithData(rowsDeleted)
	p.publish(event)
}

func (p *Publisher) Alert(batchID string, severity models.EventSeverity, message string, data interface{}) {
	event := models.NewEvent(models.EventTypeAlert, batchID, message).
		WithSeverity(severity).
		WithData(data)
	p.publish(event)
}

func (p *Publisher) Error(batchID string, message string, err error) {
	event := models.NewEvent(models.EventTypeError, batchID, message).
		WithSeverity(models.SeverityCritical).
		WithData(map[string]interface{}{
			"error": err.Error(),
		})
	p.publish(event)
}
