package observe

import (
	"sort"

	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

// EndpointObservation aggregates one endpoint's samples.
type EndpointObservation struct {
	Method         string             `json:"method"`
	Path           string             `json:"path"`
	Window         traffic.Window     `json:"window"`
	ResponseFields []FieldObservation `json:"responseFields"`
	RequestFields  []FieldObservation `json:"requestFields"`
	StatusCodes    map[int]int        `json:"statusCodes"`
}

// Key returns the endpoint's "METHOD path" key.
func (e EndpointObservation) Key() string {
	return traffic.EndpointKey(e.Method, e.Path)
}

// ObservedStatusCodes returns the distinct status codes in ascending order.
func (e EndpointObservation) ObservedStatusCodes() []int {
	codes := make([]int, 0, len(e.StatusCodes))
	for code := range e.StatusCodes {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// BuildEndpointObservation runs a request and a response observer over the
// samples of one endpoint and tallies their status codes.
func BuildEndpointObservation(method, path string, samples []traffic.Sample, window traffic.Window) EndpointObservation {
	requests := NewFieldObserver()
	responses := NewFieldObserver()
	statusCodes := make(map[int]int)

	for _, s := range samples {
		requests.Observe(s.RequestBody)
		responses.Observe(s.ResponseBody)
		statusCodes[s.StatusCode]++
	}

	return EndpointObservation{
		Method:         method,
		Path:           path,
		Window:         window,
		ResponseFields: responses.Observations(),
		RequestFields:  requests.Observations(),
		StatusCodes:    statusCodes,
	}
}

// ObserveGroup builds an observation for a traffic group, using a window
// derived from that group's own samples.
func ObserveGroup(g traffic.Group) (EndpointObservation, error) {
	window, err := traffic.BuildWindow(g.Samples)
	if err != nil {
		return EndpointObservation{}, err
	}
	return BuildEndpointObservation(g.Method, g.Path, g.Samples, window), nil
}
