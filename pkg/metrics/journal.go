package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	AppendsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_appends_total",
		Help: "Total number of append calls accepted by the positioning store",
	})

	AppendBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_append_bytes_total",
		Help: "Total number of bytes accepted by append",
	})

	FlushedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_flushed_bytes_total",
		Help: "Total number of bytes written from page to disk by flush",
	})

	FlushLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "journal_flush_latency_seconds",
		Help:    "Histogram of flush() call latency",
		Buckets: prometheus.DefBuckets,
	})

	CompactedBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_compacted_bytes_total",
		Help: "Total number of bytes reclaimed by compact",
	})

	SegmentsLoaded = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "journal_segments_loaded",
		Help: "Current number of segments with a page resident in memory",
	})

	SegmentsTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "journal_segments_total",
		Help: "Current number of segment files known to the store",
	})

	BufferPoolHits = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_bufferpool_hits_total",
		Help: "Buffer cache borrow calls satisfied from the idle pool",
	})

	BufferPoolMisses = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "journal_bufferpool_misses_total",
		Help: "Buffer cache borrow calls that allocated a new buffer",
	})

	BackpressureWaitSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "journal_backpressure_wait_seconds",
		Help:    "Time append spent waiting for the flusher under max_dirty_size back-pressure",
		Buckets: prometheus.DefBuckets,
	})
)
