package metrics

import (
	"sync/atomic"
	"time"
)

// Counter is a lock-free monotonically increasing counter.
type Counter struct {
	value uint64
}

func (c *Counter) Inc() {
	atomic.AddUint64(&c.value, 1)
}

func (c *Counter) Add(n uint64) {
	atomic.AddUint64(&c.value, n)
}

func (c *Counter) Load() uint64 {
	return atomic.LoadUint64(&c.value)
}

// Timer measures the elapsed time of a single operation.
type Timer struct {
	start time.Time
}

func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// OrderMetrics aggregates the counters the order service reports on.
type OrderMetrics struct {
	OrdersCreated     Counter
	OrdersCancelled   Counter
	VouchersRedeemed  Counter
	OrdersFailedStock Counter
}
