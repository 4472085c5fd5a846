package aggregate

import (
	"math"
	"sync"
	"testing"

	"github.com/xtxerr/speedlog/internal/measure"
)

func TestStreamingAggregate_Basic(t *testing.T) {
	agg := New("download_mbps", false)

	if !agg.IsEmpty() {
		t.Error("new aggregate should be empty")
	}

	agg.Add(10.0, 1000)
	agg.Add(20.0, 1001)
	agg.Add(30.0, 1002)

	if agg.IsEmpty() {
		t.Error("aggregate should not be empty")
	}
	if agg.Count() != 3 {
		t.Errorf("expected count=3, got %d", agg.Count())
	}

	result := agg.Result()

	if result.Name != "download_mbps" {
		t.Errorf("expected name=download_mbps, got %s", result.Name)
	}
	if result.Sum != 60.0 {
		t.Errorf("expected sum=60, got %f", result.Sum)
	}
	if result.Min != 10.0 {
		t.Errorf("expected min=10, got %f", result.Min)
	}
	if result.Max != 30.0 {
		t.Errorf("expected max=30, got %f", result.Max)
	}
	if math.Abs(result.Avg-20.0) > 0.001 {
		t.Errorf("expected avg=20, got %f", result.Avg)
	}
	if result.First != 1000 || result.Last != 1002 {
		t.Errorf("expected first=1000 last=1002, got %f %f", result.First, result.Last)
	}
	if result.HasPercentiles() {
		t.Error("should not have percentiles")
	}
}

func TestStreamingAggregate_WithPercentiles(t *testing.T) {
	agg := New("ping_ms", true)

	for i := 1; i <= 100; i++ {
		agg.Add(float64(i), float64(i))
	}

	result := agg.Result()
	if !result.HasPercentiles() {
		t.Fatal("should have percentiles")
	}

	tolerance := 0.05
	checks := []struct {
		name string
		got  float64
		want float64
	}{
		{"p50", *result.P50, 50},
		{"p90", *result.P90, 90},
		{"p95", *result.P95, 95},
		{"p99", *result.P99, 99},
	}
	for _, c := range checks {
		if math.Abs(c.got-c.want)/c.want > tolerance {
			t.Errorf("%s: expected ~%f, got %f", c.name, c.want, c.got)
		}
	}
}

func TestStreamingAggregate_EmptyResult(t *testing.T) {
	result := New("upload_mbps", true).Result()

	if result.Count != 0 {
		t.Errorf("expected count=0, got %d", result.Count)
	}
	if result.Min != 0 || result.Max != 0 || result.Avg != 0 {
		t.Errorf("expected zero min/max/avg, got %f/%f/%f", result.Min, result.Max, result.Avg)
	}
	if result.HasPercentiles() {
		t.Error("empty aggregate should not have percentiles")
	}
}

func TestStreamingAggregate_Merge(t *testing.T) {
	a := New("download_mbps", true)
	b := New("download_mbps", true)

	a.Add(10, 100)
	a.Add(20, 200)
	b.Add(5, 50)
	b.Add(40, 400)

	a.Merge(b)

	r := a.Result()
	if r.Count != 4 {
		t.Errorf("expected count=4, got %d", r.Count)
	}
	if r.Min != 5 || r.Max != 40 {
		t.Errorf("expected min=5 max=40, got %f %f", r.Min, r.Max)
	}
	if r.First != 50 || r.Last != 400 {
		t.Errorf("expected first=50 last=400, got %f %f", r.First, r.Last)
	}

	a.Merge(a)
	a.Merge(nil)
	if a.Count() != 4 {
		t.Errorf("self or nil merge changed count to %d", a.Count())
	}
}

func TestStreamingAggregate_Concurrent(t *testing.T) {
	agg := New("ping_ms", true)

	var wg sync.WaitGroup
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				agg.Add(float64(i+1), float64(g*100+i))
			}
		}(g)
	}
	wg.Wait()

	if agg.Count() != 1000 {
		t.Errorf("expected count=1000, got %d", agg.Count())
	}
}

func TestSummarize(t *testing.T) {
	records := []measure.Record{
		{Best: true, Download: 100_000_000, Upload: 20_000_000, Ping: 10, UnixTime: 1},
		{Best: false, Download: 50_000_000, Upload: 10_000_000, Ping: 30, UnixTime: 1},
		{Best: true, Download: 300_000_000, Upload: 40_000_000, Ping: 20, UnixTime: 2},
	}

	s := Summarize(records, false)

	best := s.Best.Results()
	if len(best) != 3 {
		t.Fatalf("expected 3 results, got %d", len(best))
	}
	if best[0].Name != MetricDownload || best[1].Name != MetricUpload || best[2].Name != MetricPing {
		t.Errorf("unexpected metric order: %s %s %s", best[0].Name, best[1].Name, best[2].Name)
	}
	if best[0].Count != 2 {
		t.Errorf("expected 2 best sessions, got %d", best[0].Count)
	}
	if math.Abs(best[0].Avg-200) > 1e-9 {
		t.Errorf("expected best download avg 200 Mbps, got %f", best[0].Avg)
	}
	if math.Abs(best[2].Avg-15) > 1e-9 {
		t.Errorf("expected best ping avg 15 ms, got %f", best[2].Avg)
	}

	random := s.Random.Results()
	if random[0].Count != 1 || random[0].Max != 50 {
		t.Errorf("unexpected random download result: %+v", random[0])
	}

	all := s.Overall().Results()
	if all[0].Count != 3 {
		t.Errorf("expected 3 sessions overall, got %d", all[0].Count)
	}
	if all[1].Min != 10 || all[1].Max != 40 {
		t.Errorf("expected overall upload 10..40 Mbps, got %f..%f", all[1].Min, all[1].Max)
	}
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil, true)
	for _, r := range s.Overall().Results() {
		if r.Count != 0 {
			t.Errorf("%s: expected empty result, got count %d", r.Name, r.Count)
		}
	}
}
