package observe

import (
	"encoding/json"
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

func TestBuildEndpointObservation(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	samples := []traffic.Sample{
		{Timestamp: base, Method: "POST", Path: "/orders", StatusCode: 201,
			RequestBody: json.RawMessage(`{"sku":"a"}`), ResponseBody: json.RawMessage(`{"id":1}`)},
		{Timestamp: base.Add(time.Minute), Method: "POST", Path: "/orders", StatusCode: 201,
			RequestBody: json.RawMessage(`{"sku":"b","note":"x"}`), ResponseBody: json.RawMessage(`{"id":2}`)},
		{Timestamp: base.Add(2 * time.Minute), Method: "POST", Path: "/orders", StatusCode: 400,
			ResponseBody: json.RawMessage(`{"error":"bad"}`)},
	}
	window, err := traffic.BuildWindow(samples)
	if err != nil {
		t.Fatalf("BuildWindow() error = %v", err)
	}

	obs := BuildEndpointObservation("POST", "/orders", samples, window)

	if obs.Key() != "POST /orders" {
		t.Errorf("Key() = %q", obs.Key())
	}
	if want := map[int]int{201: 2, 400: 1}; !reflect.DeepEqual(obs.StatusCodes, want) {
		t.Errorf("StatusCodes = %v, want %v", obs.StatusCodes, want)
	}
	if got := obs.ObservedStatusCodes(); !reflect.DeepEqual(got, []int{201, 400}) {
		t.Errorf("ObservedStatusCodes() = %v", got)
	}
	if obs.Window.SampleCount != 3 {
		t.Errorf("Window.SampleCount = %d, want 3", obs.Window.SampleCount)
	}

	req := byPath(obs.RequestFields)
	resp := byPath(obs.ResponseFields)
	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"request sku", req["sku"].OccurrencePercentage, 66.67},
		{"request note", req["note"].OccurrencePercentage, 33.33},
		{"response id", resp["id"].OccurrencePercentage, 66.67},
	}
	for _, tt := range tests {
		if math.Abs(tt.got-tt.want) > 0.01 {
			t.Errorf("%s occurrence = %.2f, want %.2f", tt.name, tt.got, tt.want)
		}
	}
}

func TestObserveGroupUsesGroupWindow(t *testing.T) {
	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	g := traffic.Group{
		Method: "GET",
		Path:   "/health",
		Samples: []traffic.Sample{
			{Timestamp: base.Add(10 * time.Second), StatusCode: 200},
			{Timestamp: base, StatusCode: 200},
		},
	}

	obs, err := ObserveGroup(g)
	if err != nil {
		t.Fatalf("ObserveGroup() error = %v", err)
	}
	if !obs.Window.StartTime.Equal(base) {
		t.Errorf("StartTime = %v, want %v", obs.Window.StartTime, base)
	}
	if obs.Window.DurationMs() != 10_000 {
		t.Errorf("DurationMs() = %d, want 10000", obs.Window.DurationMs())
	}

	if _, err := ObserveGroup(traffic.Group{Method: "GET", Path: "/none"}); err == nil {
		t.Error("expected an error for a group without samples")
	}
}
