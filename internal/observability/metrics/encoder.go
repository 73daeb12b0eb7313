package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EncoderMetrics contains Prometheus metrics for the worker pool and batch runs
type EncoderMetrics struct {
	registry *prometheus.Registry

	// Task metrics
	tasksTotal          *prometheus.CounterVec
	taskDurationSeconds *prometheus.HistogramVec
	outputBytes         prometheus.Histogram
	bytesWrittenTotal   prometheus.Counter
	tasksInFlight       prometheus.Gauge

	// Batch metrics
	queueDepth      prometheus.Gauge
	inProgress      prometheus.Gauge
	rejectedTotal   *prometheus.CounterVec
	diskFreeBytes   prometheus.Gauge
	diskNeededBytes prometheus.Gauge
}

// NewEncoderMetrics creates and registers new encoder metrics
func NewEncoderMetrics(registry *prometheus.Registry) (*EncoderMetrics, error) {
	m := &EncoderMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *EncoderMetrics) initMetrics() {
	m.tasksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavenc_tasks_total",
			Help: "Total number of finished encode tasks",
		},
		[]string{"result"}, // success, bad_source, bad_destination, system_error
	)

	m.taskDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wavenc_task_duration_seconds",
			Help:    "Wall time spent encoding one file",
			Buckets: prometheus.ExponentialBuckets(BucketStart10ms, BucketFactor2, BucketCount12), // 10ms to ~40s
		},
		[]string{"result"},
	)

	m.outputBytes = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "wavenc_output_file_bytes",
		Help:    "Size of each encoded file",
		Buckets: prometheus.ExponentialBuckets(BucketStart1KB, BucketFactor4, BucketCount10), // 1KB to ~256MB
	})

	m.bytesWrittenTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "wavenc_bytes_written_total",
		Help: "Total encoded bytes written to destinations",
	})

	m.tasksInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavenc_tasks_in_flight",
		Help: "Tasks currently held by a worker",
	})

	m.queueDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavenc_queue_depth",
		Help: "Tasks waiting in the pool queue",
	})

	m.inProgress = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavenc_tasks_in_progress",
		Help: "Tasks the orchestrator has seen start but not finish",
	})

	m.rejectedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wavenc_sources_rejected_total",
			Help: "Sources rejected before submission",
		},
		[]string{"reason"},
	)

	m.diskFreeBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavenc_output_disk_free_bytes",
		Help: "Free space on the output volume at preflight",
	})

	m.diskNeededBytes = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "wavenc_output_estimated_bytes",
		Help: "Estimated output size of the batch",
	})
}

// Describe implements the Collector interface
func (m *EncoderMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.tasksTotal.Describe(ch)
	m.taskDurationSeconds.Describe(ch)
	m.outputBytes.Describe(ch)
	m.bytesWrittenTotal.Describe(ch)
	m.tasksInFlight.Describe(ch)
	m.queueDepth.Describe(ch)
	m.inProgress.Describe(ch)
	m.rejectedTotal.Describe(ch)
	m.diskFreeBytes.Describe(ch)
	m.diskNeededBytes.Describe(ch)
}

// Collect implements the Collector interface
func (m *EncoderMetrics) Collect(ch chan<- prometheus.Metric) {
	m.tasksTotal.Collect(ch)
	m.taskDurationSeconds.Collect(ch)
	m.outputBytes.Collect(ch)
	m.bytesWrittenTotal.Collect(ch)
	m.tasksInFlight.Collect(ch)
	m.queueDepth.Collect(ch)
	m.inProgress.Collect(ch)
	m.rejectedTotal.Collect(ch)
	m.diskFreeBytes.Collect(ch)
	m.diskNeededBytes.Collect(ch)
}

// TaskStarted records a worker picking up a task
func (m *EncoderMetrics) TaskStarted() {
	m.tasksInFlight.Inc()
}

// TaskFinished records the outcome of a task a worker has released
func (m *EncoderMetrics) TaskFinished(result string, seconds float64, bytesWritten int64) {
	m.tasksInFlight.Dec()
	m.tasksTotal.WithLabelValues(result).Inc()
	m.taskDurationSeconds.WithLabelValues(result).Observe(seconds)
	if bytesWritten > 0 {
		m.outputBytes.Observe(float64(bytesWritten))
		m.bytesWrittenTotal.Add(float64(bytesWritten))
	}
}

// SetQueueDepth records the number of queued tasks
func (m *EncoderMetrics) SetQueueDepth(n int) {
	m.queueDepth.Set(float64(n))
}

// SetInProgress records the number of started, unfinished tasks
func (m *EncoderMetrics) SetInProgress(n int) {
	m.inProgress.Set(float64(n))
}

// RecordRejected counts a source rejected before submission
func (m *EncoderMetrics) RecordRejected(reason string) {
	m.rejectedTotal.WithLabelValues(reason).Inc()
}

// RecordDiskCheck records the preflight free space and estimate
func (m *EncoderMetrics) RecordDiskCheck(free, needed uint64) {
	m.diskFreeBytes.Set(float64(free))
	m.diskNeededBytes.Set(float64(needed))
}
