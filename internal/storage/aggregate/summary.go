package aggregate

import (
	"github.com/xtxerr/speedlog/internal/measure"
)

// Metric names used in a Summary.
const (
	MetricDownload = "download_mbps"
	MetricUpload   = "upload_mbps"
	MetricPing     = "ping_ms"
)

// Group holds the aggregates of one kind of run (best or random).
type Group struct {
	Best     bool
	Download *StreamingAggregate
	Upload   *StreamingAggregate
	Ping     *StreamingAggregate
}

func newGroup(best bool, percentiles bool) *Group {
	return &Group{
		Best:     best,
		Download: New(MetricDownload, percentiles),
		Upload:   New(MetricUpload, percentiles),
		Ping:     New(MetricPing, percentiles),
	}
}

// Add folds one session into the group.
func (g *Group) Add(rec *measure.Record) {
	g.Download.Add(measure.Mbps(rec.Download), rec.UnixTime)
	g.Upload.Add(measure.Mbps(rec.Upload), rec.UnixTime)
	g.Ping.Add(rec.Ping, rec.UnixTime)
}

// Results returns the three metric results in display order.
func (g *Group) Results() []Result {
	return []Result{g.Download.Result(), g.Upload.Result(), g.Ping.Result()}
}

// Summary splits sessions into best-server and random-server groups.
type Summary struct {
	Best   *Group
	Random *Group

	percentiles bool
}

// Summarize aggregates records. Throughput is reported in Mbit/s.
func Summarize(records []measure.Record, percentiles bool) *Summary {
	s := &Summary{
		Best:        newGroup(true, percentiles),
		Random:      newGroup(false, percentiles),
		percentiles: percentiles,
	}
	for i := range records {
		if records[i].Best {
			s.Best.Add(&records[i])
		} else {
			s.Random.Add(&records[i])
		}
	}
	return s
}

// Overall merges both groups into one.
func (s *Summary) Overall() *Group {
	all := newGroup(false, s.percentiles)
	for _, g := range []*Group{s.Best, s.Random} {
		all.Download.Merge(g.Download)
		all.Upload.Merge(g.Upload)
		all.Ping.Merge(g.Ping)
	}
	return all
}
