package drift

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

const sarifSchema = "https://raw.githubusercontent.com/oasis-tcs/sarif-spec/master/Schemata/sarif-schema-2.1.0.json"

// SARIF represents a SARIF 2.1.0 report structure
type SARIF struct {
	Version string     `json:"version"`
	Schema  string     `json:"$schema"`
	Runs    []SARIFRun `json:"runs"`
}

// SARIFRun represents a single run in a SARIF report
type SARIFRun struct {
	Tool    SARIFTool     `json:"tool"`
	Results []SARIFResult `json:"results"`
}

// SARIFTool describes the tool that generated the report
type SARIFTool struct {
	Driver SARIFDriver `json:"driver"`
}

// SARIFDriver contains tool metadata
type SARIFDriver struct {
	Name            string      `json:"name"`
	InformationURI  string      `json:"informationUri,omitempty"`
	SemanticVersion string      `json:"semanticVersion,omitempty"`
	Rules           []SARIFRule `json:"rules,omitempty"`
}

// SARIFRule describes one finding type
type SARIFRule struct {
	ID               string       `json:"id"`
	ShortDescription SARIFMessage `json:"shortDescription"`
}

// SARIFResult represents a single finding
type SARIFResult struct {
	RuleID     string          `json:"ruleId"`
	Level      string          `json:"level"` // "error", "warning", "note"
	Message    SARIFMessage    `json:"message"`
	Locations  []SARIFLocation `json:"locations,omitempty"`
	Properties map[string]any  `json:"properties,omitempty"`
}

// SARIFMessage contains the finding message
type SARIFMessage struct {
	Text string `json:"text"`
}

// SARIFLocation describes where the finding occurred
type SARIFLocation struct {
	PhysicalLocation *SARIFPhysicalLocation `json:"physicalLocation,omitempty"`
	LogicalLocations []SARIFLogicalLocation `json:"logicalLocations,omitempty"`
}

// SARIFPhysicalLocation provides file-level location
type SARIFPhysicalLocation struct {
	ArtifactLocation SARIFArtifactLocation `json:"artifactLocation"`
}

// SARIFArtifactLocation identifies the artifact
type SARIFArtifactLocation struct {
	URI string `json:"uri"`
}

// SARIFLogicalLocation names the endpoint or field a result refers to
type SARIFLogicalLocation struct {
	FullyQualifiedName string `json:"fullyQualifiedName"`
	Kind               string `json:"kind,omitempty"`
}

var ruleDescriptions = map[Type]string{
	TypeUndocumentedField:      "Field observed in traffic but not documented",
	TypeMissingField:           "Required field observed in under half of responses",
	TypeTypeMismatch:           "Observed field type differs from documented type",
	TypeUndocumentedStatusCode: "Status code observed in traffic but not documented",
	TypeMissingStatusCode:      "Documented status code not observed",
}

// SARIFOptions carries the run context that findings do not.
type SARIFOptions struct {
	ToolVersion string
	// ContractURI is recorded as the physical location of every result.
	ContractURI string
}

// ToSARIF converts a drift report to SARIF format. Severity maps to level
// high=error, medium=warning, low=note.
func (r *Report) ToSARIF(opts SARIFOptions) *SARIF {
	rules := make([]SARIFRule, 0, len(Types))
	for _, t := range Types {
		rules = append(rules, SARIFRule{ID: string(t), ShortDescription: SARIFMessage{Text: ruleDescriptions[t]}})
	}

	return &SARIF{
		Version: "2.1.0",
		Schema:  sarifSchema,
		Runs: []SARIFRun{
			{
				Tool: SARIFTool{
					Driver: SARIFDriver{
						Name:            "apidrift",
						InformationURI:  "https://github.com/felixgeelhaar/apidrift",
						SemanticVersion: opts.ToolVersion,
						Rules:           rules,
					},
				},
				Results: convertFindingsToSARIF(r.Findings, opts.ContractURI),
			},
		},
	}
}

func convertFindingsToSARIF(findings []Finding, contractURI string) []SARIFResult {
	results := make([]SARIFResult, 0, len(findings))

	for _, f := range findings {
		level := "warning"
		switch f.Severity {
		case SeverityHigh:
			level = "error"
		case SeverityLow:
			level = "note"
		}

		loc := SARIFLocation{
			LogicalLocations: []SARIFLogicalLocation{{
				FullyQualifiedName: logicalName(f),
				Kind:               "member",
			}},
		}
		if contractURI != "" {
			loc.PhysicalLocation = &SARIFPhysicalLocation{
				ArtifactLocation: SARIFArtifactLocation{URI: contractURI},
			}
		}

		results = append(results, SARIFResult{
			RuleID:    string(f.Type),
			Level:     level,
			Message:   SARIFMessage{Text: Describe(f)},
			Locations: []SARIFLocation{loc},
			Properties: map[string]any{
				"sampleCount":           f.Confidence.SampleCount,
				"consistencyPercentage": f.Confidence.ConsistencyPercentage,
				"windowDurationMs":      f.Confidence.WindowDurationMs,
			},
		})
	}

	return results
}

func logicalName(f Finding) string {
	name := f.Method + " " + f.Path
	switch {
	case f.FieldPath != "":
		name += "#" + f.FieldPath
	case f.StatusCode != 0:
		name += fmt.Sprintf("#%d", f.StatusCode)
	}
	return name
}

// Describe renders a one-line, judgment-free description of a finding.
func Describe(f Finding) string {
	endpoint := f.Method + " " + f.Path
	switch f.Type {
	case TypeUndocumentedField:
		return fmt.Sprintf("%s: field %q observed in %.1f%% of responses but not documented",
			endpoint, f.FieldPath, f.Percentage())
	case TypeMissingField:
		return fmt.Sprintf("%s: required field %q observed in only %.1f%% of responses",
			endpoint, f.FieldPath, f.Percentage())
	case TypeTypeMismatch:
		documented := "untyped"
		if f.Documented != nil && len(f.Documented.Types) > 0 {
			documented = strings.Join(f.Documented.Types, "|")
		}
		return fmt.Sprintf("%s: field %q documented as %s but observed as %s",
			endpoint, f.FieldPath, documented, strings.Join(f.Observed.Types, "|"))
	case TypeUndocumentedStatusCode:
		count := 0
		if f.Observed.Count != nil {
			count = *f.Observed.Count
		}
		return fmt.Sprintf("%s: status code %d observed %d time(s) (%.1f%%) but not documented",
			endpoint, f.StatusCode, count, f.Percentage())
	case TypeMissingStatusCode:
		return fmt.Sprintf("%s: documented status code %d was not observed", endpoint, f.StatusCode)
	default:
		return fmt.Sprintf("%s: %s", endpoint, f.Type)
	}
}

// SaveSARIF writes a SARIF report to disk
func SaveSARIF(sarif *SARIF, path string) error {
	data, err := json.MarshalIndent(sarif, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal SARIF: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write SARIF file: %w", err)
	}

	return nil
}
