// Package aggregate computes running statistics over stored sessions.
package aggregate

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"
)

// DefaultAccuracy is the relative accuracy of the percentile sketch.
const DefaultAccuracy = 0.01

// Result is the outcome of one aggregate.
type Result struct {
	Name  string
	Count int64
	Sum   float64
	Min   float64
	Max   float64
	Avg   float64

	// Percentiles are nil when disabled or empty.
	P50 *float64
	P90 *float64
	P95 *float64
	P99 *float64

	// First and Last are the unix times of the oldest and newest value.
	First float64
	Last  float64
}

// SetPercentiles sets all percentile fields.
func (r *Result) SetPercentiles(p50, p90, p95, p99 float64) {
	r.P50, r.P90, r.P95, r.P99 = &p50, &p90, &p95, &p99
}

// HasPercentiles reports whether percentiles were computed.
func (r *Result) HasPercentiles() bool {
	return r.P50 != nil
}

// StreamingAggregate maintains running statistics for one metric.
// It supports optional percentile calculation using DDSketch.
type StreamingAggregate struct {
	mu sync.Mutex

	name string

	count int64
	sum   float64
	min   float64
	max   float64
	first float64
	last  float64

	// DDSketch for percentiles (nil if disabled)
	sketch *ddsketch.DDSketch
}

// New creates a new StreamingAggregate.
func New(name string, enablePercentile bool) *StreamingAggregate {
	if !enablePercentile {
		return newAggregate(name, 0)
	}
	return newAggregate(name, DefaultAccuracy)
}

func newAggregate(name string, accuracy float64) *StreamingAggregate {
	agg := &StreamingAggregate{
		name: name,
		min:  math.MaxFloat64,
		max:  -math.MaxFloat64,
	}
	if accuracy > 0 {
		sketch, err := ddsketch.NewDefaultDDSketch(accuracy)
		if err == nil {
			agg.sketch = sketch
		}
	}
	return agg
}

// Add adds a value observed at unix time ts.
func (a *StreamingAggregate) Add(value, ts float64) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.count++
	a.sum += value

	if value < a.min {
		a.min = value
	}
	if value > a.max {
		a.max = value
	}

	if a.first == 0 || ts < a.first {
		a.first = ts
	}
	if ts > a.last {
		a.last = ts
	}

	if a.sketch != nil {
		a.sketch.Add(value)
	}
}

// Count returns the number of values added.
func (a *StreamingAggregate) Count() int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count
}

// IsEmpty returns true if no values have been added.
func (a *StreamingAggregate) IsEmpty() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.count == 0
}

// Result returns the aggregation result.
func (a *StreamingAggregate) Result() Result {
	a.mu.Lock()
	defer a.mu.Unlock()

	result := Result{
		Name:  a.name,
		Count: a.count,
		Sum:   a.sum,
		First: a.first,
		Last:  a.last,
	}

	if a.count > 0 {
		result.Avg = a.sum / float64(a.count)
		result.Min = a.min
		result.Max = a.max
	}

	// Calculate percentiles if enabled and we have data
	if a.sketch != nil && !a.sketch.IsEmpty() {
		p50, _ := a.sketch.GetValueAtQuantile(0.50)
		p90, _ := a.sketch.GetValueAtQuantile(0.90)
		p95, _ := a.sketch.GetValueAtQuantile(0.95)
		p99, _ := a.sketch.GetValueAtQuantile(0.99)
		result.SetPercentiles(p50, p90, p95, p99)
	}

	return result
}

// Merge combines another aggregate into this one.
func (a *StreamingAggregate) Merge(other *StreamingAggregate) {
	if other == nil || other == a {
		return
	}

	a.mu.Lock()
	other.mu.Lock()
	defer a.mu.Unlock()
	defer other.mu.Unlock()

	if other.count == 0 {
		return
	}

	a.count += other.count
	a.sum += other.sum

	if other.min < a.min {
		a.min = other.min
	}
	if other.max > a.max {
		a.max = other.max
	}

	if a.first == 0 || (other.first != 0 && other.first < a.first) {
		a.first = other.first
	}
	if other.last > a.last {
		a.last = other.last
	}

	// Merge sketches
	if a.sketch != nil && other.sketch != nil {
		a.sketch.MergeWith(other.sketch)
	}
}
