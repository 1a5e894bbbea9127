package traffic

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/felixgeelhaar/apidrift/internal/errors"
)

// ReadFile reads and validates a traffic sample file.
func ReadFile(path string) ([]Sample, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrCodeTrafficNotFound, fmt.Sprintf("traffic file not found: %s", path)).
				WithSuggestion("Check if the file path is correct")
		}
		return nil, errors.Wrap(errors.ErrCodeTrafficNotFound, fmt.Sprintf("failed to read traffic file %s", path), err)
	}
	return Read(data)
}

// Read parses a JSON array of traffic samples. The whole batch is rejected
// on the first malformed sample; the error names its index and field.
func Read(data []byte) ([]Sample, error) {
	if !gjson.ValidBytes(data) {
		var probe json.RawMessage
		cause := json.Unmarshal(data, &probe)
		if cause == nil {
			cause = fmt.Errorf("invalid JSON")
		}
		return nil, errors.NewTrafficParseError(cause)
	}

	root := gjson.ParseBytes(data)
	if !root.IsArray() {
		return nil, errors.NewTrafficNotArrayError()
	}

	elems := root.Array()
	if len(elems) == 0 {
		return nil, errors.NewTrafficEmptyError()
	}

	samples := make([]Sample, 0, len(elems))
	for i, el := range elems {
		s, err := parseSample(el, i)
		if err != nil {
			return nil, err
		}
		samples = append(samples, s)
	}
	return samples, nil
}

func parseSample(el gjson.Result, index int) (Sample, error) {
	if !el.IsObject() {
		return Sample{}, errors.NewSampleInvalidError(index, fmt.Sprintf("expected object, got %s", jsonKind(el)))
	}

	ts := el.Get("timestamp")
	if ts.Type != gjson.String {
		return Sample{}, errors.NewSampleInvalidError(index, "missing or invalid 'timestamp' field (expected string)")
	}
	at, err := time.Parse(time.RFC3339Nano, ts.Str)
	if err != nil {
		return Sample{}, errors.NewSampleInvalidError(index, "invalid 'timestamp' field (expected RFC 3339 date-time)")
	}

	method := el.Get("method")
	if method.Type != gjson.String || !ValidMethod(method.Str) {
		return Sample{}, errors.NewSampleInvalidError(index,
			fmt.Sprintf("invalid 'method' field (expected one of %s)", strings.Join(Methods, ", ")))
	}

	path := el.Get("path")
	if path.Type != gjson.String {
		return Sample{}, errors.NewSampleInvalidError(index, "missing or invalid 'path' field (expected string)")
	}

	status := el.Get("statusCode")
	if status.Type != gjson.Number || status.Num != math.Trunc(status.Num) || math.IsInf(status.Num, 0) {
		return Sample{}, errors.NewSampleInvalidError(index, "missing or invalid 'statusCode' field (expected integer)")
	}

	return Sample{
		Timestamp:    at.UTC(),
		Method:       method.Str,
		Path:         path.Str,
		StatusCode:   int(status.Num),
		RequestBody:  rawBody(el.Get("requestBody")),
		ResponseBody: rawBody(el.Get("responseBody")),
	}, nil
}

func rawBody(r gjson.Result) json.RawMessage {
	if !r.Exists() {
		return nil
	}
	return json.RawMessage(r.Raw)
}

func jsonKind(r gjson.Result) string {
	switch r.Type {
	case gjson.Null:
		return "null"
	case gjson.False, gjson.True:
		return "boolean"
	case gjson.Number:
		return "number"
	case gjson.String:
		return "string"
	default:
		if r.IsArray() {
			return "array"
		}
		return "object"
	}
}
