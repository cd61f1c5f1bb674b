package main

import (
	"fmt"
	"io"
	"slices"
	"time"

	"github.com/fatih/color"
	"github.com/ugorji/go/codec"

	"github.com/failsafe-go/lagmon/lagmonitor"
)

// eventWriter writes lag events to an output.
type eventWriter interface {
	Write(event lagmonitor.DataEvent) error
}

// newEventWriter returns a writer for the format. Text output highlights events whose worst lag reached the
// stallThreshold, which defaults to lagmonitor.DefaultStallThreshold when non-positive.
func newEventWriter(format string, w io.Writer, stallThreshold time.Duration) (eventWriter, error) {
	switch format {
	case "", "text":
		if stallThreshold <= 0 {
			stallThreshold = lagmonitor.DefaultStallThreshold
		}
		return &textWriter{w: w, stallThreshold: stallThreshold}, nil
	case "json":
		return &codecWriter{enc: codec.NewEncoder(w, &codec.JsonHandle{TermWhitespace: true})}, nil
	case "msgpack":
		return &codecWriter{enc: codec.NewEncoder(w, &codec.MsgpackHandle{})}, nil
	default:
		return nil, fmt.Errorf("unknown format %q, expected text, json or msgpack", format)
	}
}

// record is the encoded form of a lag event, in microseconds like the published buckets.
type record struct {
	P50          int64            `codec:"p50"`
	P90          int64            `codec:"p90"`
	P95          int64            `codec:"p95"`
	P99          int64            `codec:"p99"`
	P100         int64            `codec:"p100"`
	Percentiles  map[string]int64 `codec:"percentiles,omitempty"`
	Samples      int64            `codec:"samples"`
	MeanDelay    int64            `codec:"meanDelay"`
	StallRate    float64          `codec:"stallRate"`
	StalledTicks uint             `codec:"stalledTicks"`
	Time         int64            `codec:"time"`
}

func recordOf(event lagmonitor.DataEvent) record {
	r := record{
		P50:          event.P50.Microseconds(),
		P90:          event.P90.Microseconds(),
		P95:          event.P95.Microseconds(),
		P99:          event.P99.Microseconds(),
		P100:         event.P100.Microseconds(),
		Samples:      event.Samples,
		MeanDelay:    event.MeanDelay.Microseconds(),
		StallRate:    event.StallRate,
		StalledTicks: event.StalledTicks,
		Time:         event.Time.UnixMilli(),
	}
	for p, d := range event.Percentiles {
		if !slices.Contains(lagmonitor.DefaultPercentiles, p) {
			if r.Percentiles == nil {
				r.Percentiles = make(map[string]int64)
			}
			r.Percentiles[fmt.Sprintf("p%g", p*100)] = d.Microseconds()
		}
	}
	return r
}

type codecWriter struct {
	enc *codec.Encoder
}

func (c *codecWriter) Write(event lagmonitor.DataEvent) error {
	return c.enc.Encode(recordOf(event))
}

var (
	okColor    = color.New(color.FgGreen)
	slowColor  = color.New(color.FgYellow)
	stallColor = color.New(color.FgRed, color.Bold)
)

// textWriter prints one colored line per event, colored by how bad the worst lag was.
type textWriter struct {
	w              io.Writer
	stallThreshold time.Duration
}

func (t *textWriter) colorOf(event lagmonitor.DataEvent) *color.Color {
	switch {
	case event.P100 >= t.stallThreshold:
		return stallColor
	case event.P99 >= time.Millisecond:
		return slowColor
	}
	return okColor
}

func (t *textWriter) Write(event lagmonitor.DataEvent) error {
	_, err := t.colorOf(event).Fprintf(t.w, "p50=%s p90=%s p95=%s p99=%s p100=%s samples=%d stalls=%.0f%%\n",
		event.P50, event.P90, event.P95, event.P99, event.P100, event.Samples, event.StallRate*100)
	return err
}
