package drift

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

func sampleReport() *Report {
	s := Subject{Method: "GET", Path: "/users", Window: traffic.Window{SampleCount: 8}}
	return &Report{
		Window:            s.Window,
		EndpointsAnalyzed: 1,
		Findings: []Finding{
			NewUndocumentedField(s, "email", []string{"string"}, 95),
			NewMissingField(s, "name", []string{"string"}, 45, []string{"string"}),
			NewUndocumentedStatusCode(s, 503, 2, []int{200}),
		},
	}
}

func TestToSARIF(t *testing.T) {
	tests := []struct {
		name       string
		report     *Report
		opts       SARIFOptions
		wantLevels []string
	}{
		{
			name:       "empty report",
			report:     &Report{},
			wantLevels: []string{},
		},
		{
			name:       "levels follow severity",
			report:     sampleReport(),
			opts:       SARIFOptions{ToolVersion: "1.0.0", ContractURI: "openapi.yaml"},
			wantLevels: []string{"error", "warning", "note"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sarif := tt.report.ToSARIF(tt.opts)

			if sarif.Version != "2.1.0" {
				t.Errorf("Version = %s, want 2.1.0", sarif.Version)
			}
			if len(sarif.Runs) != 1 {
				t.Fatalf("expected 1 run, got %d", len(sarif.Runs))
			}
			run := sarif.Runs[0]
			if run.Tool.Driver.Name != "apidrift" {
				t.Errorf("driver name = %s", run.Tool.Driver.Name)
			}
			if len(run.Tool.Driver.Rules) != len(Types) {
				t.Errorf("expected %d rules, got %d", len(Types), len(run.Tool.Driver.Rules))
			}
			if len(run.Results) != len(tt.wantLevels) {
				t.Fatalf("expected %d results, got %d", len(tt.wantLevels), len(run.Results))
			}
			for i, r := range run.Results {
				if r.Level != tt.wantLevels[i] {
					t.Errorf("result %d level = %s, want %s", i, r.Level, tt.wantLevels[i])
				}
			}
		})
	}
}

func TestSARIFLocations(t *testing.T) {
	sarif := sampleReport().ToSARIF(SARIFOptions{ContractURI: "openapi.yaml"})
	results := sarif.Runs[0].Results

	field := results[0]
	if field.RuleID != string(TypeUndocumentedField) {
		t.Errorf("ruleId = %s", field.RuleID)
	}
	if got := field.Locations[0].LogicalLocations[0].FullyQualifiedName; got != "GET /users#email" {
		t.Errorf("logical location = %s", got)
	}
	if field.Locations[0].PhysicalLocation == nil || field.Locations[0].PhysicalLocation.ArtifactLocation.URI != "openapi.yaml" {
		t.Error("expected physical location with contract uri")
	}
	if got := results[2].Locations[0].LogicalLocations[0].FullyQualifiedName; got != "GET /users#503" {
		t.Errorf("logical location = %s", got)
	}

	noURI := sampleReport().ToSARIF(SARIFOptions{})
	if noURI.Runs[0].Results[0].Locations[0].PhysicalLocation != nil {
		t.Error("expected no physical location without a contract uri")
	}
}

func TestDescribe(t *testing.T) {
	s := Subject{Method: "POST", Path: "/orders", Window: traffic.Window{SampleCount: 10}}
	tests := []struct {
		finding Finding
		want    string
	}{
		{NewUndocumentedField(s, "note", nil, 12.5), `POST /orders: field "note" observed in 12.5% of responses but not documented`},
		{NewMissingField(s, "id", nil, 40, nil), `POST /orders: required field "id" observed in only 40.0% of responses`},
		{NewTypeMismatch(s, "id", []string{"string"}, 100, []string{"integer"}), `POST /orders: field "id" documented as integer but observed as string`},
		{NewTypeMismatch(s, "meta", []string{"string"}, 100, nil), `POST /orders: field "meta" documented as untyped but observed as string`},
		{NewUndocumentedStatusCode(s, 500, 1, nil), "POST /orders: status code 500 observed 1 time(s) (10.0%) but not documented"},
		{NewMissingStatusCode(s, 409, nil), "POST /orders: documented status code 409 was not observed"},
	}
	for _, tt := range tests {
		if got := Describe(tt.finding); got != tt.want {
			t.Errorf("Describe(%s) = %q, want %q", tt.finding.Type, got, tt.want)
		}
	}
}

func TestSaveSARIF(t *testing.T) {
	path := filepath.Join(t.TempDir(), "drift.sarif")
	if err := SaveSARIF(sampleReport().ToSARIF(SARIFOptions{}), path); err != nil {
		t.Fatalf("SaveSARIF() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var decoded SARIF
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("saved SARIF is not valid JSON: %v", err)
	}
	if !strings.Contains(string(data), `"$schema"`) {
		t.Error("expected $schema key")
	}

	if err := SaveSARIF(&SARIF{}, filepath.Join(t.TempDir(), "missing", "x.sarif")); err == nil {
		t.Error("expected error writing into a missing directory")
	}
}

func TestReportSummarizeAndValidate(t *testing.T) {
	r := sampleReport()
	s := r.Summarize()
	if s.TotalFindings != 3 || s.High != 1 || s.Medium != 1 || s.Low != 1 {
		t.Errorf("unexpected summary %+v", s)
	}
	if s.ByType[TypeUndocumentedField] != 1 {
		t.Errorf("unexpected by-type counts %v", s.ByType)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	r.Findings = append(r.Findings, Finding{Type: TypeMissingField, Method: "GET", Path: "/", FieldPath: "x", Severity: SeverityLow})
	if err := r.Validate(); err == nil {
		t.Error("expected validation error")
	}
}
