package metrics

import "time"

// MetricsEvent is one observation: a named value with optional tags
// (low-cardinality strings) and fields (free-form payload).
type MetricsEvent struct {
	Name   string
	Time   time.Time
	Value  float64
	Tags   map[string]string
	Fields map[string]any
}

type Observer interface {
	RecordEvent(ev MetricsEvent)
}

type Flusher interface {
	Flush() error
}

type NoopObserver struct{}

func (NoopObserver) RecordEvent(MetricsEvent) {}

// Event builds a timestamped event. Tags are given as alternating
// key/value pairs; an odd trailing key is dropped.
func Event(name string, value float64, kv ...string) MetricsEvent {
	ev := MetricsEvent{Name: name, Time: time.Now(), Value: value}
	if len(kv) >= 2 {
		ev.Tags = make(map[string]string, len(kv)/2)
		for i := 0; i+1 < len(kv); i += 2 {
			ev.Tags[kv[i]] = kv[i+1]
		}
	}
	return ev
}

// Timing builds a duration event in milliseconds.
func Timing(name string, d time.Duration, kv ...string) MetricsEvent {
	return Event(name, float64(d.Milliseconds()), kv...)
}
