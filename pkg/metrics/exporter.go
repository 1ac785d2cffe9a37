package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func init() {
	prometheus.MustRegister(
		AppendsTotal, AppendBytesTotal,
		FlushedBytesTotal, FlushLatency,
		CompactedBytesTotal,
		SegmentsLoaded, SegmentsTotal,
		BufferPoolHits, BufferPoolMisses,
		BackpressureWaitSeconds,
	)
}

// StartMetricsServer serves the registered collectors over /metrics on port.
func StartMetricsServer(port int) {
	go func() {
		http.Handle("/metrics", promhttp.Handler())
		addr := fmt.Sprintf(":%d", port)
		fmt.Println("[METRICS] Prometheus exporter listening on", addr)
		if err := http.ListenAndServe(addr, nil); err != nil {
			fmt.Printf("[METRICS] Failed to start metrics server: %v\n", err)
		}
	}()
}

// PushAppend records a single append() call of n bytes.
func PushAppend(n int) {
	AppendsTotal.Inc()
	AppendBytesTotal.Add(float64(n))
}

// PushFlush records a flush() call that wrote n bytes in d.
func PushFlush(n int, d time.Duration) {
	FlushedBytesTotal.Add(float64(n))
	FlushLatency.Observe(d.Seconds())
}

// PushCompact records bytes reclaimed by a compact() call.
func PushCompact(bytesReclaimed int64) {
	CompactedBytesTotal.Add(float64(bytesReclaimed))
}

// PushBackpressureWait records time spent blocked under max_dirty_size.
func PushBackpressureWait(d time.Duration) {
	BackpressureWaitSeconds.Observe(d.Seconds())
}

// SetSegmentCounts updates the current loaded/total segment gauges.
func SetSegmentCounts(loaded, total int) {
	SegmentsLoaded.Set(float64(loaded))
	SegmentsTotal.Set(float64(total))
}

// PushBufferPoolHit/Miss record a single buffer cache borrow outcome.
func PushBufferPoolHit()  { BufferPoolHits.Inc() }
func PushBufferPoolMiss() { BufferPoolMisses.Inc() }
