package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Metrics holds pipeline counters and gauges, exposed in Prometheus text
// format. Kept hand-rolled: the value set is small and flat.
type Metrics struct {
	mu sync.RWMutex

	// Counters
	batchesGenerated  int64
	batchesIngested   int64
	ingestionFailures int64
	rowsInserted      map[string]int64 // table -> rows
	chunksFailed      map[string]int64 // table -> chunks
	anomaliesByTier   map[string]int64 // tier -> requests
	reportsStored     int64
	purgeRuns         int64

	// Gauges
	circuitBreakerState map[string]int // 0=closed, 1=open, 2=half-open
	lastBatchSize       int
	wsClients           int

	// Latencies (last observed value)
	pipelineLatency  time.Duration
	ingestionLatency time.Duration
}

var (
	instance *Metrics
	once     sync.Once
)

func Get() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			rowsInserted:        make(map[string]int64),
			chunksFailed:        make(map[string]int64),
			anomaliesByTier:     make(map[string]int64),
			circuitBreakerState: make(map[string]int),
		}
	})
	return instance
}

func (m *Metrics) IncBatchesGenerated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchesGenerated++
}

func (m *Metrics) IncBatchesIngested() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchesIngested++
}

func (m *Metrics) IncIngestionFailures() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestionFailures++
}

func (m *Metrics) AddRowsInserted(table string, rows int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rowsInserted[table] += int64(rows)
}

func (m *Metrics) AddChunksFailed(table string, chunks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.chunksFailed[table] += int64(chunks)
}

func (m *Metrics) AddAnomalies(tier string, count int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.anomaliesByTier[tier] += int64(count)
}

func (m *Metrics) IncReportsStored() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reportsStored++
}

func (m *Metrics) IncPurgeRuns() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeRuns++
}

func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.circuitBreakerState[name] = state
}

func (m *Metrics) SetLastBatchSize(size int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastBatchSize = size
}

func (m *Metrics) SetWSClients(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wsClients = n
}

func (m *Metrics) SetPipelineLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pipelineLatency = d
}

func (m *Metrics) SetIngestionLatency(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ingestionLatency = d
}

func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		defer m.mu.RUnlock()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")

		writeMetric(w, "lbanalytics_batches_generated_total", nil, float64(m.batchesGenerated))
		writeMetric(w, "lbanalytics_batches_ingested_total", nil, float64(m.batchesIngested))
		writeMetric(w, "lbanalytics_ingestion_failures_total", nil, float64(m.ingestionFailures))
		writeMetric(w, "lbanalytics_reports_stored_total", nil, float64(m.reportsStored))
		writeMetric(w, "lbanalytics_purge_runs_total", nil, float64(m.purgeRuns))

		for table, rows := range m.rowsInserted {
			writeMetric(w, "lbanalytics_rows_inserted_total", map[string]string{"table": table}, float64(rows))
		}
		for table, chunks := range m.chunksFailed {
			writeMetric(w, "lbanalytics_chunks_failed_total", map[string]string{"table": table}, float64(chunks))
		}
		for tier, count := range m.anomaliesByTier {
			writeMetric(w, "lbanalytics_anomalies_total", map[string]string{"tier": tier}, float64(count))
		}
		for name, state := range m.circuitBreakerState {
			writeMetric(w, "lbanalytics_circuit_breaker_state", map[string]string{"name": name}, float64(state))
		}

		writeMetric(w, "lbanalytics_last_batch_size", nil, float64(m.lastBatchSize))
		writeMetric(w, "lbanalytics_websocket_clients", nil, float64(m.wsClients))
		writeMetric(w, "lbanalytics_pipeline_latency_ms", nil, float64(m.pipelineLatency.Milliseconds()))
		writeMetric(w, "lbanalytics_ingestion_latency_ms", nil, float64(m.ingestionLatency.Milliseconds()))
	})
}

func writeMetric(w http.ResponseWriter, name string, labels map[string]string, value float64) {
	labelStr := ""
	if len(labels) > 0 {
		labelStr = "{"
		first := true
		for k, v := range labels {
			if !first {
				labelStr += ","
			}
			labelStr += k + `="` + v + `"`
			first = false
		}
		labelStr += "}"
	}
	w.Write([]byte(name + labelStr + " " + strconv.FormatFloat(value, 'f', -1, 64) + "\n"))
}
