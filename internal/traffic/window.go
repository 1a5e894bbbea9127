package traffic

import (
	"fmt"
	"time"
)

// Window is the time range and size of a sample set. Start and end are the
// earliest and latest sample timestamps, not collection wall-clock time.
type Window struct {
	StartTime   time.Time `json:"startTime" yaml:"startTime"`
	EndTime     time.Time `json:"endTime" yaml:"endTime"`
	SampleCount int       `json:"sampleCount" yaml:"sampleCount"`
}

// DurationMs is EndTime - StartTime in milliseconds.
func (w Window) DurationMs() int64 {
	return w.EndTime.Sub(w.StartTime).Milliseconds()
}

// BuildWindow derives the observation window of a non-empty sample set.
func BuildWindow(samples []Sample) (Window, error) {
	if len(samples) == 0 {
		return Window{}, fmt.Errorf("cannot build observation window from empty samples")
	}

	start, end := samples[0].Timestamp, samples[0].Timestamp
	for _, s := range samples[1:] {
		if s.Timestamp.Before(start) {
			start = s.Timestamp
		}
		if s.Timestamp.After(end) {
			end = s.Timestamp
		}
	}

	return Window{
		StartTime:   start.UTC(),
		EndTime:     end.UTC(),
		SampleCount: len(samples),
	}, nil
}

// Group is the samples of one endpoint.
type Group struct {
	Method  string
	Path    string
	Samples []Sample
}

// Key returns the group's "METHOD path" key.
func (g Group) Key() string {
	return EndpointKey(g.Method, g.Path)
}

// GroupByEndpoint partitions samples by method and literal path. Groups are
// returned in the order their first sample appears. Paths are not
// normalized: /users/1 and /users/2 are distinct endpoints.
func GroupByEndpoint(samples []Sample) []Group {
	index := make(map[string]int)
	var groups []Group

	for _, s := range samples {
		key := s.EndpointKey()
		i, ok := index[key]
		if !ok {
			i = len(groups)
			index[key] = i
			groups = append(groups, Group{Method: s.Method, Path: s.Path})
		}
		groups[i].Samples = append(groups[i].Samples, s)
	}

	return groups
}
