package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/apidrift/internal/config"
	"github.com/felixgeelhaar/apidrift/internal/diff"
	"github.com/felixgeelhaar/apidrift/internal/drift"
	"github.com/felixgeelhaar/apidrift/internal/errors"
	"github.com/felixgeelhaar/apidrift/internal/exitcode"
	"github.com/felixgeelhaar/apidrift/internal/ids"
	"github.com/felixgeelhaar/apidrift/internal/log"
	"github.com/felixgeelhaar/apidrift/internal/present"
	"github.com/felixgeelhaar/apidrift/internal/report"
	"github.com/felixgeelhaar/apidrift/internal/storage"
)

const usersContract = `openapi: 3.0.3
info:
  title: Users
  version: "1.0"
paths:
  /users:
    get:
      responses:
        "200":
          description: ok
          content:
            application/json:
              schema:
                type: object
                required: [id, name]
                properties:
                  id:
                    type: integer
                  name:
                    type: string
`

// trafficJSON builds ok GET /users samples carrying body, two 500s and one
// request to an endpoint the contract does not describe.
func trafficJSON(ok int, body string) string {
	start := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	var items []string
	at := func(i int) string { return start.Add(time.Duration(i) * time.Second).Format(time.RFC3339) }
	for i := 0; i < ok; i++ {
		items = append(items, fmt.Sprintf(`{"timestamp":%q,"method":"GET","path":"/users","statusCode":200,"responseBody":%s}`, at(i), body))
	}
	for i := 0; i < 2; i++ {
		items = append(items, fmt.Sprintf(`{"timestamp":%q,"method":"GET","path":"/users","statusCode":500}`, at(ok+i)))
	}
	items = append(items, fmt.Sprintf(`{"timestamp":%q,"method":"GET","path":"/health","statusCode":200,"responseBody":{"ok":true}}`, at(ok+2)))
	return "[" + strings.Join(items, ",") + "]"
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

type fixture struct {
	dir     string
	spec    string
	traffic string
}

func newFixture(t *testing.T, body string) fixture {
	t.Helper()
	dir := t.TempDir()
	return fixture{
		dir:     dir,
		spec:    writeFile(t, dir, "openapi.yaml", usersContract),
		traffic: writeFile(t, dir, "traffic.json", trafficJSON(12, body)),
	}
}

func (f fixture) options() checkOptions {
	return checkOptions{
		analysisInput: analysisInput{
			SpecPath:    f.spec,
			TrafficPath: f.traffic,
			Criteria:    report.DefaultCriteria(),
		},
		Storage: config.StorageConfig{Dir: filepath.Join(f.dir, "runs"), MaxIndexEntries: 10, CacheSize: 4},
		Format:  present.FormatJSON,
		Density: present.DensityVerbose,
		GroupBy: present.GroupByNone,
		NoColor: true,
	}
}

func runChecked(t *testing.T, opts checkOptions) (*bytes.Buffer, *bytes.Buffer, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := executeCheck(context.Background(), opts, &stdout, &stderr, log.Discard())
	return &stdout, &stderr, err
}

func TestExecuteCheckDefaultFilter(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a","email":"a@example.com"}`)

	stdout, stderr, err := runChecked(t, f.options())
	require.NoError(t, err)

	var rep drift.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	assert.Equal(t, 2, rep.EndpointsAnalyzed)
	assert.True(t, rep.Filtered)
	require.Len(t, rep.Findings, 1, "the rare 500 is below the default thresholds")
	assert.Equal(t, drift.TypeUndocumentedField, rep.Findings[0].Type)
	assert.Equal(t, "email", rep.Findings[0].FieldPath)
	assert.Equal(t, drift.SeverityHigh, rep.Findings[0].Severity)

	assert.Contains(t, stderr.String(), present.Footer)
}

func TestExecuteCheckNoFilter(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a","email":"a@example.com"}`)
	opts := f.options()
	opts.NoFilter = true

	stdout, _, err := runChecked(t, opts)
	require.NoError(t, err)

	var rep drift.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	assert.False(t, rep.Filtered)
	assert.Nil(t, rep.FilterCriteria)

	types := make([]drift.Type, 0, len(rep.Findings))
	for _, fd := range rep.Findings {
		types = append(types, fd.Type)
	}
	assert.ElementsMatch(t, []drift.Type{drift.TypeUndocumentedField, drift.TypeUndocumentedStatusCode}, types)
}

func TestExecuteCheckCleanTrafficIsAffirmative(t *testing.T) {
	dir := t.TempDir()
	opts := fixture{
		dir:     dir,
		spec:    writeFile(t, dir, "openapi.yaml", usersContract),
		traffic: writeFile(t, dir, "traffic.json", `[{"timestamp":"2026-03-02T09:00:00Z","method":"GET","path":"/users","statusCode":200,"responseBody":{"id":1,"name":"a"}}]`),
	}.options()

	stdout, _, err := runChecked(t, opts)
	require.NoError(t, err)

	var rep drift.Report
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &rep))
	assert.True(t, rep.ObservationComplete)
	assert.Empty(t, rep.Findings)
	assert.Equal(t, 1, rep.EndpointsAnalyzed)
}

func TestExecuteCheckFailOnFindings(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a","email":"a@example.com"}`)
	opts := f.options()
	opts.FailOnFindings = true

	_, _, err := runChecked(t, opts)
	require.Error(t, err)
	assert.Equal(t, exitcode.DriftDetected, exitcode.DetermineExitCode(err))
}

func TestExecuteCheckInputErrors(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a"}`)

	tests := []struct {
		name     string
		mutate   func(o *checkOptions)
		wantCode errors.ErrorCode
	}{
		{
			name:     "traffic not an array",
			mutate:   func(o *checkOptions) { o.TrafficPath = writeFile(t, f.dir, "obj.json", `{"samples":[]}`) },
			wantCode: errors.ErrCodeTrafficNotArray,
		},
		{
			name:     "empty traffic",
			mutate:   func(o *checkOptions) { o.TrafficPath = writeFile(t, f.dir, "empty.json", `[]`) },
			wantCode: errors.ErrCodeTrafficEmpty,
		},
		{
			name:     "missing contract",
			mutate:   func(o *checkOptions) { o.SpecPath = filepath.Join(f.dir, "absent.yaml") },
			wantCode: errors.ErrCodeSpecNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := f.options()
			tt.mutate(&opts)

			stdout, _, err := runChecked(t, opts)
			require.Error(t, err)
			code, ok := errors.CodeOf(err)
			require.True(t, ok, "expected coded error, got %v", err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, exitcode.InputError, exitcode.DetermineExitCode(err))
			assert.Empty(t, stdout.String(), "no partial report on input errors")
		})
	}
}

func TestExecuteCheckGroupedYAML(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a","email":"a@example.com"}`)
	opts := f.options()
	opts.Format = present.FormatYAML
	opts.GroupBy = present.GroupByEndpoint

	stdout, _, err := runChecked(t, opts)
	require.NoError(t, err)
	assert.Contains(t, stdout.String(), "group: GET /users")
}

func TestExecuteCheckTracked(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a","email":"a@example.com"}`)
	opts := f.options()
	opts.Track = true
	opts.ServiceName = "users"
	opts.Environment = "staging"
	opts.IDs = ids.NewSequence("id")
	opts.Clock = ids.FixedClock(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	stdout, _, err := runChecked(t, opts)
	require.NoError(t, err)

	var first report.ReportV2
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &first))
	assert.Equal(t, report.SchemaVersion, first.SchemaVersion)
	assert.Nil(t, first.PreviousRun)
	assert.Empty(t, first.Changes)

	// Same traffic again: nothing changed.
	opts.Clock = ids.FixedClock(time.Date(2026, 3, 2, 11, 0, 0, 0, time.UTC))
	stdout, stderr, err := runChecked(t, opts)
	require.NoError(t, err)

	var second report.ReportV2
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &second))
	require.NotNil(t, second.PreviousRun)
	assert.Equal(t, first.Run.RunID, second.PreviousRun.RunID)
	require.NotNil(t, second.Continuity)
	assert.Equal(t, 1, second.Continuity.ComparedRuns)
	assert.Contains(t, stderr.String(), second.Continuity.Message)

	// The email field stops appearing.
	opts.TrafficPath = writeFile(t, f.dir, "traffic-2.json", trafficJSON(12, `{"id":1,"name":"a"}`))
	opts.Clock = ids.FixedClock(time.Date(2026, 3, 2, 12, 0, 0, 0, time.UTC))
	stdout, stderr, err = runChecked(t, opts)
	require.NoError(t, err)

	var third report.ReportV2
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &third))
	require.Len(t, third.Changes, 1)
	assert.Equal(t, diff.ChangeDisappeared, third.Changes[0].ChangeType)
	assert.Nil(t, third.Continuity)
	assert.Contains(t, stderr.String(), "Since last run")

	store, err := storage.NewFileStorage(opts.Storage.Dir, storage.Options{}, log.Discard())
	require.NoError(t, err)
	runs, err := store.ListRecentRuns(context.Background(), "users", "staging", 10)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, third.Run.RunID, runs[0].RunID)
}

func TestExecuteCheckSpecChange(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a"}`)
	opts := f.options()
	opts.Track = true
	opts.ServiceName = "users"
	opts.Environment = "prod"

	_, _, err := runChecked(t, opts)
	require.NoError(t, err)

	writeFile(t, f.dir, "openapi.yaml", usersContract+"    delete:\n      responses:\n        \"204\":\n          description: gone\n")
	stdout, stderr, err := runChecked(t, opts)
	require.NoError(t, err)

	var v2 report.ReportV2
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &v2))
	require.NotNil(t, v2.SpecChange)
	assert.Equal(t, report.SpecChangeNote, v2.SpecChange.Note)
	assert.Contains(t, stderr.String(), report.SpecChangeNote)
}

func TestExecuteCheckMetricsFile(t *testing.T) {
	f := newFixture(t, `{"id":1,"name":"a","email":"a@example.com"}`)
	opts := f.options()
	opts.MetricsFile = filepath.Join(f.dir, "apidrift.prom")

	_, _, err := runChecked(t, opts)
	require.NoError(t, err)

	data, err := os.ReadFile(opts.MetricsFile)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, `apidrift_runs_total{mode="single",outcome="drift"} 1`)
	assert.Contains(t, text, "apidrift_samples_read_total 15")
	assert.Contains(t, text, "apidrift_endpoints_analyzed 2")
	assert.Contains(t, text, `apidrift_stage_duration_seconds_count{stage="detect"} 1`)
}

func parseCheckFlags(t *testing.T, args ...string) *pflag.FlagSet {
	t.Helper()
	fs := pflag.NewFlagSet("check", pflag.ContinueOnError)
	addCheckFlags(fs)
	require.NoError(t, fs.Parse(args))
	return fs
}

func TestResolveCheckOptions(t *testing.T) {
	cfg := config.Default()
	cfg.Filter.MinSampleCount = 20
	cfg.Output.Format = "yaml"

	opts, err := resolveCheckOptions(parseCheckFlags(t), cfg, []string{"spec.yaml", "traffic.json"})
	require.NoError(t, err)
	assert.Equal(t, "spec.yaml", opts.SpecPath)
	assert.Equal(t, 20, opts.Criteria.MinSampleCount)
	assert.Equal(t, drift.SeverityMedium, opts.Criteria.MinSeverity)
	assert.Equal(t, present.FormatYAML, opts.Format)
	assert.Equal(t, present.DensityVerbose, opts.Density)
	assert.Equal(t, ".drift-reports", opts.Storage.Dir)

	opts, err = resolveCheckOptions(parseCheckFlags(t,
		"--min-severity", "high", "--min-samples", "3", "--format", "sarif",
		"--compact", "--group-by", "status", "--storage-dir", "/tmp/runs", "--lookback", "9",
	), cfg, []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, drift.SeverityHigh, opts.Criteria.MinSeverity)
	assert.Equal(t, 3, opts.Criteria.MinSampleCount)
	assert.Equal(t, present.FormatSARIF, opts.Format)
	assert.Equal(t, present.DensityCompact, opts.Density)
	assert.Equal(t, present.GroupByStatus, opts.GroupBy)
	assert.Equal(t, "/tmp/runs", opts.Storage.Dir)
	assert.Equal(t, 9, opts.Lookback)
}

func TestResolveCheckOptionsUsageErrors(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode errors.ErrorCode
	}{
		{"track without service", []string{"--track", "--environment", "prod"}, errors.ErrCodeUsageMissingFlag},
		{"track without environment", []string{"--track", "--service-name", "users"}, errors.ErrCodeUsageMissingFlag},
		{"unknown format", []string{"--format", "xml"}, errors.ErrCodeUsageInvalidFlag},
		{"text is not a report format", []string{"--format", "text"}, errors.ErrCodeUsageInvalidFlag},
		{"unknown grouping", []string{"--group-by", "owner"}, errors.ErrCodeUsageInvalidFlag},
		{"unknown severity", []string{"--min-severity", "critical"}, errors.ErrCodeUsageInvalidFlag},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := resolveCheckOptions(parseCheckFlags(t, tt.args...), config.Default(), []string{"a", "b"})
			require.Error(t, err)
			code, _ := errors.CodeOf(err)
			assert.Equal(t, tt.wantCode, code)
			assert.Equal(t, exitcode.UsageError, exitcode.DetermineExitCode(err))
		})
	}
}
