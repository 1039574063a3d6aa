package actuation

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/itohio/thermoctl/pkg/sample"
	"github.com/itohio/thermoctl/pkg/settings"
	"github.com/itohio/thermoctl/pkg/task"
)

// Status is one status report.
type Status struct {
	Timestamp   time.Time  `json:"timestamp"`
	Temperature float32    `json:"temperature"`
	Average     float32    `json:"average"`
	Bucket      string     `json:"bucket"`
	Duty        float32    `json:"duty"`
	Indicators  Indicators `json:"indicators"`
	Emergency   bool       `json:"emergency"`
}

// Publisher mirrors status reports somewhere other than the serial link.
type Publisher interface {
	Publish(Status) error
}

// Reporter prints the bucket and reading on the serial link and mirrors a
// full status to an optional Publisher.
type Reporter struct {
	live      *sample.Live
	store     *settings.Store
	out       *Outputs
	w         io.Writer
	pub       Publisher
	emergency func() bool
	interval  time.Duration
}

// NewReporter creates a Reporter. pub and emergency may be nil.
func NewReporter(live *sample.Live, store *settings.Store, out *Outputs, w io.Writer, pub Publisher, emergency func() bool, interval time.Duration) *Reporter {
	if emergency == nil {
		emergency = func() bool { return false }
	}
	return &Reporter{live: live, store: store, out: out, w: w, pub: pub, emergency: emergency, interval: interval}
}

// Report emits one status.
func (r *Reporter) Report() Status {
	temp := r.live.Reading()
	last := r.out.Last()
	st := Status{
		Timestamp:   time.Now(),
		Temperature: temp,
		Average:     r.live.Average(),
		Bucket:      Classify(temp, r.store.Thresholds()).String(),
		Duty:        last.Duty,
		Indicators:  last.Indicators,
		Emergency:   r.emergency(),
	}

	fmt.Fprintf(r.w, "%s %fC\r\n", st.Bucket, temp)
	if r.pub != nil {
		if err := r.pub.Publish(st); err != nil {
			log.Printf("report: publish failed: %v", err)
		}
	}
	return st
}

// Run is the status-report task body (Tier1).
func (r *Reporter) Run(ctx context.Context, h *task.Host) error {
	return task.Every(ctx, h, r.interval, func(context.Context) { r.Report() })
}
