package dispatch

import (
	"fmt"
	"net/http"
	"sort"
)

const (
	DefaultBaseURL        = "https://www.maxjeune-tgvinoui.sncf"
	DefaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:123.0) Gecko/20100101 Firefox/123.0"
	DefaultAcceptLanguage = "fr,fr-FR;q=0.8,en-US;q=0.5,en;q=0.3"

	PathSearchFreeplaces = "/api/public/refdata/search-freeplaces-proposals"
	PathSearchStation    = "/api/public/refdata/freeplaces-stations"
)

// Template holds the static part of every request.
type Template struct {
	BaseURL        string
	UserAgent      string
	AcceptLanguage string
	Origin         string
}

// DefaultTemplate returns the template for the public planner.
func DefaultTemplate() Template {
	return Template{
		BaseURL:        DefaultBaseURL,
		UserAgent:      DefaultUserAgent,
		AcceptLanguage: DefaultAcceptLanguage,
		Origin:         DefaultBaseURL,
	}
}

func (t Template) descriptor() RequestDescriptor {
	return RequestDescriptor{
		BaseURL: t.BaseURL,
		Headers: map[string]string{
			"User-Agent":      t.UserAgent,
			"Accept-Language": t.AcceptLanguage,
			"Origin":          t.Origin,
		},
	}
}

// OperationSpec describes how one operation shapes its request.
type OperationSpec struct {
	Operation  Operation
	Method     string
	Path       string
	Parameters []string
	shape      func(params ParameterSet) RequestDescriptor
}

func searchFreeplacesSpec() OperationSpec {
	return OperationSpec{
		Operation:  OperationSearchFreeplaces,
		Method:     http.MethodPost,
		Path:       PathSearchFreeplaces,
		Parameters: []string{"departureDateTime", "origin", "destination"},
		shape: func(params ParameterSet) RequestDescriptor {
			return RequestDescriptor{
				Headers: map[string]string{"Content-Type": "application/json"},
				Body: map[string]any{
					"departureDateTime": params["departureDateTime"],
					"destination":       params["destination"],
					"origin":            params["origin"],
				},
			}
		},
	}
}

func searchStationSpec() OperationSpec {
	return OperationSpec{
		Operation:  OperationSearchStation,
		Method:     http.MethodGet,
		Path:       PathSearchStation,
		Parameters: []string{"stationName"},
		shape: func(params ParameterSet) RequestDescriptor {
			return RequestDescriptor{
				Query: map[string]any{"label": params["stationName"]},
			}
		},
	}
}

// Builder maps an operation and its parameters to a RequestDescriptor.
// It is immutable after construction and safe for concurrent use.
type Builder struct {
	template RequestDescriptor
	specs    map[Operation]OperationSpec
}

func NewBuilder(tmpl Template) *Builder {
	b := &Builder{
		template: tmpl.descriptor(),
		specs:    make(map[Operation]OperationSpec),
	}
	for _, spec := range []OperationSpec{searchFreeplacesSpec(), searchStationSpec()} {
		b.specs[spec.Operation] = spec
	}
	return b
}

// Spec returns the definition of op, or ErrUnsupportedOperation.
func (b *Builder) Spec(op Operation) (OperationSpec, error) {
	spec, ok := b.specs[op]
	if !ok {
		return OperationSpec{}, fmt.Errorf("%w: %q", ErrUnsupportedOperation, op)
	}
	return spec, nil
}

// Operations lists the supported identifiers in lexical order.
func (b *Builder) Operations() []Operation {
	ops := make([]Operation, 0, len(b.specs))
	for op := range b.specs {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i] < ops[j] })
	return ops
}

// Build produces a fresh descriptor. Parameter values are copied as-is; a
// missing value is the caller's problem.
func (b *Builder) Build(op Operation, params ParameterSet) (RequestDescriptor, error) {
	spec, err := b.Spec(op)
	if err != nil {
		return RequestDescriptor{}, err
	}

	overlay := spec.shape(params)
	overlay.Method = spec.Method
	overlay.Path = spec.Path

	return mergeDescriptor(b.template, overlay), nil
}

// mergeDescriptor overlays src onto dst without touching either. Non-empty
// src fields win; maps are merged key by key.
func mergeDescriptor(dst, src RequestDescriptor) RequestDescriptor {
	out := RequestDescriptor{
		Method:  dst.Method,
		BaseURL: dst.BaseURL,
		Path:    dst.Path,
		Headers: make(map[string]string, len(dst.Headers)+len(src.Headers)),
	}
	if src.Method != "" {
		out.Method = src.Method
	}
	if src.BaseURL != "" {
		out.BaseURL = src.BaseURL
	}
	if src.Path != "" {
		out.Path = src.Path
	}

	for k, v := range dst.Headers {
		out.Headers[k] = v
	}
	for k, v := range src.Headers {
		out.Headers[k] = v
	}

	if dst.Query != nil || src.Query != nil {
		out.Query = deepMerge(dst.Query, src.Query)
	}

	out.Body = mergeValue(dst.Body, src.Body)
	return out
}

func mergeValue(dst, src any) any {
	if src == nil {
		return copyValue(dst)
	}
	dm, dok := dst.(map[string]any)
	sm, sok := src.(map[string]any)
	if dok && sok {
		return deepMerge(dm, sm)
	}
	return copyValue(src)
}

func deepMerge(dst, src map[string]any) map[string]any {
	result := make(map[string]any, len(dst)+len(src))
	for k, v := range dst {
		result[k] = copyValue(v)
	}
	for k, v := range src {
		result[k] = mergeValue(result[k], v)
	}
	return result
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepMerge(nil, t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
