package lib

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

/* This file implements dev-ops telemetry for the node in the form of prometheus metrics */

const (
	metricsPattern         = "/metrics"
	resourceSampleInterval = 15 * time.Second
)

// Metrics represents a server that exposes Prometheus metrics
type Metrics struct {
	server   *http.Server         // the http prometheus server
	config   MetricsConfig        // the configuration
	registry *prometheus.Registry // the collectors of this node
	dataDir  string               // the disk usage of this path is sampled
	stop     chan struct{}        // stops the resource sampler
	log      LoggerI              // the logger

	NodeMetrics      // general telemetry about the node
	ExecutionMetrics // batch and routing telemetry
	BookMetrics      // position and auction book telemetry
	ResourceMetrics  // process and host telemetry
}

// NodeMetrics represents general telemetry for the node's health
type NodeMetrics struct {
	Height              prometheus.Gauge       // the last committed height
	BlockProcessingTime prometheus.Histogram   // how long does it take for this node to process a block?
	TransactionCount    prometheus.Counter     // how many transactions were applied?
	TxsRejected         *prometheus.CounterVec // how many transactions were rejected by error class?
}

// ExecutionMetrics represents the telemetry of the end of block execution
type ExecutionMetrics struct {
	BatchesExecuted   prometheus.Counter   // how many trading pair batches were cleared?
	ExecutionSteps    prometheus.Histogram // how many fill steps did a routed direction take?
	ArbitrageExecuted prometheus.Counter   // how many profitable cycles were executed?
}

// BookMetrics represents the telemetry of the position and auction books
type BookMetrics struct {
	PositionsOpened prometheus.Counter // how many positions were opened?
	PositionsClosed prometheus.Counter // how many positions were closed?
	AuctionsActive  prometheus.Gauge   // how many auctions are currently being stepped?
}

// ResourceMetrics represents the telemetry of the node process and its host
type ResourceMetrics struct {
	ProcessCPUPercent    prometheus.Gauge // what share of the cpu does the node use?
	ProcessRSS           prometheus.Gauge // how much memory does the node hold?
	ProcessThreads       prometheus.Gauge // how many os threads does the node run?
	SystemRAMUsedPercent prometheus.Gauge // how full is the host memory?
	SystemCPUPercent     prometheus.Gauge // how busy is the host cpu?
	DiskUsedPercent      prometheus.Gauge // how full is the disk of the data directory?
}

// NewMetricsServer() creates a new telemetry server with a private registry
func NewMetricsServer(config MetricsConfig, dataDir string, log LoggerI) *Metrics {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)
	mux := http.NewServeMux()
	mux.Handle(metricsPattern, promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	return &Metrics{
		server:   &http.Server{Addr: config.PrometheusAddress, Handler: mux},
		config:   config,
		registry: registry,
		dataDir:  dataDir,
		stop:     make(chan struct{}),
		log:      log,
		NodeMetrics: NodeMetrics{
			Height: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_height",
				Help: "Last committed height",
			}),
			BlockProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
				Name: "dex_block_processing_time",
				Help: "Time to process a block in seconds",
			}),
			TransactionCount: factory.NewCounter(prometheus.CounterOpts{
				Name: "dex_transaction_count",
				Help: "Total number of applied transactions",
			}),
			TxsRejected: factory.NewCounterVec(prometheus.CounterOpts{
				Name: "dex_transactions_rejected",
				Help: "Number of rejected transactions by error class",
			}, []string{"class"}),
		},
		ExecutionMetrics: ExecutionMetrics{
			BatchesExecuted: factory.NewCounter(prometheus.CounterOpts{
				Name: "dex_batches_executed",
				Help: "Number of trading pair batches cleared",
			}),
			ExecutionSteps: factory.NewHistogram(prometheus.HistogramOpts{
				Name:    "dex_execution_steps",
				Help:    "Fill steps taken by a routed direction",
				Buckets: prometheus.LinearBuckets(1, 8, 9),
			}),
			ArbitrageExecuted: factory.NewCounter(prometheus.CounterOpts{
				Name: "dex_arbitrage_executed",
				Help: "Number of profitable cycles executed",
			}),
		},
		BookMetrics: BookMetrics{
			PositionsOpened: factory.NewCounter(prometheus.CounterOpts{
				Name: "dex_positions_opened",
				Help: "Number of positions opened",
			}),
			PositionsClosed: factory.NewCounter(prometheus.CounterOpts{
				Name: "dex_positions_closed",
				Help: "Number of positions closed",
			}),
			AuctionsActive: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_auctions_active",
				Help: "Number of auctions with pending triggers",
			}),
		},
		ResourceMetrics: ResourceMetrics{
			ProcessCPUPercent: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_process_cpu_percent",
				Help: "Cpu used by the node process in percent",
			}),
			ProcessRSS: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_process_rss_bytes",
				Help: "Resident memory of the node process in bytes",
			}),
			ProcessThreads: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_process_threads",
				Help: "Number of os threads of the node process",
			}),
			SystemRAMUsedPercent: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_system_ram_used_percent",
				Help: "Used host memory in percent",
			}),
			SystemCPUPercent: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_system_cpu_percent",
				Help: "Used host cpu in percent",
			}),
			DiskUsedPercent: factory.NewGauge(prometheus.GaugeOpts{
				Name: "dex_disk_used_percent",
				Help: "Used disk of the data directory in percent",
			}),
		},
	}
}

// Start() starts the telemetry server
func (m *Metrics) Start() {
	if m == nil || !m.config.MetricsEnabled {
		return
	}
	go func() {
		m.log.Infof("Starting metrics server on %s", m.config.PrometheusAddress)
		if err := m.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			m.log.Errorf("Metrics server failed with err: %s", err.Error())
		}
	}()
	go m.sampleResources()
}

// sampleResources() refreshes the resource metrics until the server stops
func (m *Metrics) sampleResources() {
	defer CatchPanic(m.log)
	ticker := time.NewTicker(resourceSampleInterval)
	defer ticker.Stop()
	for {
		usage, err := NewResourceUsage(m.dataDir)
		if err != nil {
			m.log.Warnf("Resource sampling failed: %s", err.Error())
		} else {
			m.UpdateResourceMetrics(usage)
		}
		select {
		case <-m.stop:
			return
		case <-ticker.C:
		}
	}
}

// Stop() gracefully stops the telemetry server
func (m *Metrics) Stop() {
	if m == nil || !m.config.MetricsEnabled {
		return
	}
	close(m.stop)
	if err := m.server.Shutdown(context.Background()); err != nil {
		m.log.Error(err.Error())
	}
}

// Registry() exposes the collectors for in-process inspection
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// UpdateBlockMetrics() updates the metrics about the last applied block
func (m *Metrics) UpdateBlockMetrics(height uint64, txCount int, duration time.Duration) {
	if m == nil {
		return
	}
	m.Height.Set(float64(height))
	m.TransactionCount.Add(float64(txCount))
	m.BlockProcessingTime.Observe(duration.Seconds())
}

// RejectTx() counts a rejected transaction under its error class
func (m *Metrics) RejectTx(class string) {
	if m == nil {
		return
	}
	m.TxsRejected.WithLabelValues(class).Inc()
}

// UpdateExecution() records the outcome of a single routed direction
func (m *Metrics) UpdateExecution(steps int) {
	if m == nil {
		return
	}
	m.BatchesExecuted.Inc()
	m.ExecutionSteps.Observe(float64(steps))
}

// IncArbitrage() counts an executed arbitrage cycle
func (m *Metrics) IncArbitrage() {
	if m == nil {
		return
	}
	m.ArbitrageExecuted.Inc()
}

// UpdatePositions() counts opened and closed positions
func (m *Metrics) UpdatePositions(opened, closed int) {
	if m == nil {
		return
	}
	m.PositionsOpened.Add(float64(opened))
	m.PositionsClosed.Add(float64(closed))
}

// SetActiveAuctions() sets the number of auctions with pending triggers
func (m *Metrics) SetActiveAuctions(n int) {
	if m == nil {
		return
	}
	m.AuctionsActive.Set(float64(n))
}

// UpdateResourceMetrics() sets the process and host gauges from a sample
func (m *Metrics) UpdateResourceMetrics(u *ResourceUsage) {
	if m == nil || u == nil {
		return
	}
	m.ProcessCPUPercent.Set(u.Process.CPUPercent)
	m.ProcessRSS.Set(float64(u.Process.RSS))
	m.ProcessThreads.Set(float64(u.Process.ThreadCount))
	m.SystemRAMUsedPercent.Set(u.System.UsedRAMPercent)
	m.SystemCPUPercent.Set(u.System.UsedCPUPercent)
	m.DiskUsedPercent.Set(u.System.UsedDiskPercent)
}
