// Package openapi loads OpenAPI 3 contracts and reduces them to the
// per-endpoint schemas that drift detection compares traffic against.
package openapi

import (
	"context"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strconv"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/zeebo/blake3"

	"github.com/felixgeelhaar/apidrift/internal/errors"
	"github.com/felixgeelhaar/apidrift/internal/traffic"
)

const jsonMediaType = "application/json"

// Endpoint is one documented operation.
type Endpoint struct {
	Method string
	Path   string
	// Responses maps numeric status codes to the JSON response schema.
	// Responses without JSON content map to an empty schema.
	Responses   map[int]*openapi3.Schema
	RequestBody *openapi3.Schema
}

// Key returns the endpoint's "METHOD path" key.
func (e Endpoint) Key() string {
	return traffic.EndpointKey(e.Method, e.Path)
}

// StatusCodes returns the documented status codes in ascending order.
func (e Endpoint) StatusCodes() []int {
	codes := make([]int, 0, len(e.Responses))
	for code := range e.Responses {
		codes = append(codes, code)
	}
	sort.Ints(codes)
	return codes
}

// SuccessSchema returns the 200 response schema, else the 201 one.
func (e Endpoint) SuccessSchema() (*openapi3.Schema, bool) {
	for _, code := range []int{200, 201} {
		if s, ok := e.Responses[code]; ok {
			return s, true
		}
	}
	return nil, false
}

// LoadOptions controls document loading.
type LoadOptions struct {
	// Validate runs the OpenAPI structural validator after loading.
	Validate bool
}

// LoadFile loads a JSON or YAML OpenAPI 3 document and resolves its refs.
func LoadFile(ctx context.Context, path string, opts LoadOptions) (*openapi3.T, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewSpecNotFoundError(path)
		}
		return nil, errors.NewSpecInvalidError(path, err)
	}

	loader := &openapi3.Loader{Context: ctx, IsExternalRefsAllowed: true}
	doc, err := loader.LoadFromFile(path)
	if err != nil {
		return nil, errors.NewSpecInvalidError(path, err)
	}

	if opts.Validate {
		if err := doc.Validate(ctx); err != nil {
			return nil, errors.NewSpecInvalidError(path, err)
		}
	}

	return doc, nil
}

// LoadData loads a document from memory. Relative external refs are not
// resolvable from memory and are rejected by the loader.
func LoadData(ctx context.Context, data []byte) (*openapi3.T, error) {
	loader := &openapi3.Loader{Context: ctx}
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, errors.NewSpecInvalidError("<memory>", err)
	}
	return doc, nil
}

// Endpoints extracts every operation for the supported methods. Paths are
// visited in lexical order; status keys that are not plain integers
// ("default", "2XX") are skipped.
func Endpoints(doc *openapi3.T) []Endpoint {
	if doc == nil || doc.Paths == nil {
		return nil
	}

	items := doc.Paths.Map()
	paths := make([]string, 0, len(items))
	for p := range items {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	var endpoints []Endpoint
	for _, path := range paths {
		item := items[path]
		if item == nil {
			continue
		}
		for _, method := range traffic.Methods {
			op := item.GetOperation(method)
			if op == nil {
				continue
			}
			endpoints = append(endpoints, Endpoint{
				Method:      method,
				Path:        path,
				Responses:   responseSchemas(op),
				RequestBody: requestSchema(op),
			})
		}
	}
	return endpoints
}

func responseSchemas(op *openapi3.Operation) map[int]*openapi3.Schema {
	out := make(map[int]*openapi3.Schema)
	if op.Responses == nil {
		return out
	}
	for key, ref := range op.Responses.Map() {
		code, err := strconv.Atoi(key)
		if err != nil {
			continue
		}
		schema := &openapi3.Schema{}
		if ref != nil && ref.Value != nil {
			if s := jsonSchema(ref.Value.Content); s != nil {
				schema = s
			}
		}
		out[code] = schema
	}
	return out
}

func requestSchema(op *openapi3.Operation) *openapi3.Schema {
	if op.RequestBody == nil || op.RequestBody.Value == nil {
		return nil
	}
	return jsonSchema(op.RequestBody.Value.Content)
}

func jsonSchema(content openapi3.Content) *openapi3.Schema {
	if content == nil {
		return nil
	}
	mt := content.Get(jsonMediaType)
	if mt == nil || mt.Schema == nil {
		return nil
	}
	return mt.Schema.Value
}

// Index keys endpoints by "METHOD path". Lookups are exact; path templates
// are not matched against concrete paths.
func Index(endpoints []Endpoint) map[string]Endpoint {
	idx := make(map[string]Endpoint, len(endpoints))
	for _, e := range endpoints {
		idx[e.Key()] = e
	}
	return idx
}

// HashFile returns the hex blake3 digest of the contract file's bytes.
func HashFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("hash contract %s: %w", path, err)
	}
	return Hash(data), nil
}

// Hash returns the hex blake3 digest of data.
func Hash(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}
