// Package drift compares observed endpoint behavior against contract
// endpoints and classifies each divergence.
package drift

import (
	"github.com/felixgeelhaar/apidrift/internal/observe"
	"github.com/felixgeelhaar/apidrift/internal/openapi"
	"github.com/felixgeelhaar/apidrift/internal/schema"
)

// missingFieldThreshold is the occurrence percentage below which a required
// field is reported missing.
const missingFieldThreshold = 50

// Detect compares one endpoint observation against its contract endpoint.
// A nil contract endpoint yields no findings: endpoints absent from the
// contract are outside the comparison.
//
// Undocumented status codes are reported in ascending code order, followed
// by field findings in field path order. Fields are compared against the
// 200 response schema, else the 201 one, else not at all.
func Detect(spec *openapi.Endpoint, obs observe.EndpointObservation) []Finding {
	if spec == nil {
		return nil
	}

	subject := Subject{Method: obs.Method, Path: obs.Path, Window: obs.Window}
	var findings []Finding

	documented := spec.StatusCodes()
	for _, code := range obs.ObservedStatusCodes() {
		if _, ok := spec.Responses[code]; ok {
			continue
		}
		findings = append(findings, NewUndocumentedStatusCode(subject, code, obs.StatusCodes[code], documented))
	}

	success, ok := spec.SuccessSchema()
	if !ok {
		return findings
	}

	for _, c := range schema.CompareFields(success, obs.ResponseFields) {
		var pct float64
		if c.ObservedOccurrencePercentage != nil {
			pct = *c.ObservedOccurrencePercentage
		}

		if c.InObserved && !c.InSpec {
			findings = append(findings, NewUndocumentedField(subject, c.FieldPath, c.ObservedTypes, pct))
		}

		if !c.InSpec || !c.InObserved {
			continue
		}

		if c.SpecRequired != nil && *c.SpecRequired && pct < missingFieldThreshold {
			findings = append(findings, NewMissingField(subject, c.FieldPath, c.ObservedTypes, pct, c.SpecTypes))
		}

		if !schema.TypesMatch(c.SpecTypes, c.ObservedTypes) {
			findings = append(findings, NewTypeMismatch(subject, c.FieldPath, c.ObservedTypes, pct, c.SpecTypes))
		}
	}

	return findings
}
