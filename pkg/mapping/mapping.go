// Package mapping loads and validates the YAML descriptor that declares
// which input files feed which vertex and edge labels, and builds wire
// elements from parsed records.
package mapping

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"gopkg.in/yaml.v3"

	"graphload/pkg/errors"
	"graphload/pkg/graph"
	"graphload/pkg/progress"
)

// Input formats understood by the readers.
const (
	FormatCSV   = "csv"
	FormatJSONL = "jsonl"
)

// Input describes the file (or directory of files) backing one source.
type Input struct {
	Path      string   `yaml:"path"`
	Format    string   `yaml:"format"`
	Header    *bool    `yaml:"header,omitempty"`
	Delimiter string   `yaml:"delimiter,omitempty"`
	Columns   []string `yaml:"columns,omitempty"`
}

// HasHeader reports whether the first line of a CSV input names its
// columns. Unset means true; headerless files declare columns explicitly.
func (in *Input) HasHeader() bool {
	return in.Header == nil || *in.Header
}

// FieldSeparator returns the CSV delimiter, defaulting to a comma.
func (in *Input) FieldSeparator() string {
	if in.Delimiter == "" {
		return ","
	}
	return in.Delimiter
}

// VertexMapping declares how records of one input become vertices.
type VertexMapping struct {
	Label  string            `yaml:"label"`
	Input  Input             `yaml:"input"`
	ID     string            `yaml:"id"`
	Fields map[string]string `yaml:"fields,omitempty"`
}

// EdgeMapping declares how records of one input become edges. Source and
// target list the record fields whose values identify the endpoint
// vertices; multiple values are joined in order.
type EdgeMapping struct {
	Label  string            `yaml:"label"`
	Input  Input             `yaml:"input"`
	Source []string          `yaml:"source"`
	Target []string          `yaml:"target"`
	Fields map[string]string `yaml:"fields,omitempty"`
}

// Mapping is the full descriptor for one load job.
type Mapping struct {
	Graph    string           `yaml:"graph"`
	Vertices []*VertexMapping `yaml:"vertices,omitempty"`
	Edges    []*EdgeMapping   `yaml:"edges,omitempty"`
}

// Descriptor is the behavior shared by vertex and edge mappings, letting
// the loader treat both categories uniformly.
type Descriptor interface {
	ElementKind() graph.Kind
	SourceKey() progress.SourceKey
	InputSpec() *Input
	Build(record map[string]any) (graph.Element, error)
}

// Load reads and validates a mapping descriptor. Relative input paths are
// resolved against the descriptor's own directory.
func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig,
			"failed to read mapping descriptor")
	}

	var m Mapping
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig,
			"failed to parse mapping descriptor")
	}

	baseDir := filepath.Dir(path)
	for _, v := range m.Vertices {
		v.Input.resolve(baseDir)
	}
	for _, e := range m.Edges {
		e.Input.resolve(baseDir)
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

func (in *Input) resolve(baseDir string) {
	if in.Path != "" && !filepath.IsAbs(in.Path) {
		in.Path = filepath.Join(baseDir, in.Path)
	}
	if in.Format == "" {
		switch strings.ToLower(filepath.Ext(in.Path)) {
		case ".csv":
			in.Format = FormatCSV
		case ".jsonl", ".json":
			in.Format = FormatJSONL
		}
	}
}

// Validate collects every violation in the descriptor.
func (m *Mapping) Validate() error {
	var result *multierror.Error

	if m.Graph == "" {
		result = multierror.Append(result, fmt.Errorf("graph name is required"))
	}
	if len(m.Vertices) == 0 && len(m.Edges) == 0 {
		result = multierror.Append(result,
			fmt.Errorf("at least one vertex or edge mapping is required"))
	}

	seen := make(map[string]bool)
	for i, v := range m.Vertices {
		where := fmt.Sprintf("vertices[%d]", i)
		if v.Label == "" {
			result = multierror.Append(result, fmt.Errorf("%s: label is required", where))
		}
		if v.ID == "" {
			result = multierror.Append(result, fmt.Errorf("%s: id field is required", where))
		}
		result = appendInputErrors(result, where, &v.Input)
		key := string(graph.KindVertex) + "/" + string(v.SourceKey())
		if seen[key] {
			result = multierror.Append(result,
				fmt.Errorf("%s: duplicate source %q", where, v.SourceKey()))
		}
		seen[key] = true
	}

	for i, e := range m.Edges {
		where := fmt.Sprintf("edges[%d]", i)
		if e.Label == "" {
			result = multierror.Append(result, fmt.Errorf("%s: label is required", where))
		}
		if len(e.Source) == 0 {
			result = multierror.Append(result, fmt.Errorf("%s: source fields are required", where))
		}
		if len(e.Target) == 0 {
			result = multierror.Append(result, fmt.Errorf("%s: target fields are required", where))
		}
		result = appendInputErrors(result, where, &e.Input)
		key := string(graph.KindEdge) + "/" + string(e.SourceKey())
		if seen[key] {
			result = multierror.Append(result,
				fmt.Errorf("%s: duplicate source %q", where, e.SourceKey()))
		}
		seen[key] = true
	}

	if err := result.ErrorOrNil(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid mapping descriptor")
	}
	return nil
}

func appendInputErrors(result *multierror.Error, where string, in *Input) *multierror.Error {
	if in.Path == "" {
		result = multierror.Append(result, fmt.Errorf("%s: input path is required", where))
		return result
	}
	switch in.Format {
	case FormatCSV:
		if !in.HasHeader() && len(in.Columns) == 0 {
			result = multierror.Append(result,
				fmt.Errorf("%s: headerless csv input needs explicit columns", where))
		}
		if len(in.FieldSeparator()) != 1 {
			result = multierror.Append(result,
				fmt.Errorf("%s: delimiter must be a single character", where))
		}
	case FormatJSONL:
	default:
		result = multierror.Append(result,
			fmt.Errorf("%s: unsupported input format %q", where, in.Format))
	}
	return result
}

// Find returns the descriptor registered under the given category and
// source key, or nil.
func (m *Mapping) Find(kind graph.Kind, key progress.SourceKey) Descriptor {
	if kind.IsVertex() {
		for _, v := range m.Vertices {
			if v.SourceKey() == key {
				return v
			}
		}
		return nil
	}
	for _, e := range m.Edges {
		if e.SourceKey() == key {
			return e
		}
	}
	return nil
}

// Descriptors returns the mappings for one category, vertices or edges.
func (m *Mapping) Descriptors(kind graph.Kind) []Descriptor {
	var out []Descriptor
	if kind.IsVertex() {
		for _, v := range m.Vertices {
			out = append(out, v)
		}
		return out
	}
	for _, e := range m.Edges {
		out = append(out, e)
	}
	return out
}

func (v *VertexMapping) ElementKind() graph.Kind { return graph.KindVertex }

// SourceKey is stable across runs: the label plus the backing input's base
// name.
func (v *VertexMapping) SourceKey() progress.SourceKey {
	return progress.SourceKey(v.Label + "-" + filepath.Base(v.Input.Path))
}

func (v *VertexMapping) InputSpec() *Input { return &v.Input }

// Build converts one parsed record into a vertex. A record without the id
// field is a parse failure.
func (v *VertexMapping) Build(record map[string]any) (graph.Element, error) {
	idValue, ok := record[v.ID]
	if !ok {
		return nil, errors.Newf(errors.ErrorTypeParse,
			"record is missing id field %q", v.ID)
	}

	return &graph.Vertex{
		ID:         fieldString(idValue),
		Label:      v.Label,
		Properties: buildProperties(record, v.Fields),
	}, nil
}

func (e *EdgeMapping) ElementKind() graph.Kind { return graph.KindEdge }

func (e *EdgeMapping) SourceKey() progress.SourceKey {
	return progress.SourceKey(e.Label + "-" + filepath.Base(e.Input.Path))
}

func (e *EdgeMapping) InputSpec() *Input { return &e.Input }

// Build converts one parsed record into an edge. Records missing any
// endpoint field are parse failures.
func (e *EdgeMapping) Build(record map[string]any) (graph.Element, error) {
	source, err := joinFields(record, e.Source)
	if err != nil {
		return nil, err
	}
	target, err := joinFields(record, e.Target)
	if err != nil {
		return nil, err
	}

	return &graph.Edge{
		Label:      e.Label,
		Source:     source,
		Target:     target,
		Properties: buildProperties(record, e.Fields),
	}, nil
}

// buildProperties renames the mapped record fields into element properties.
// Unmapped fields are dropped; mapped fields absent from the record are
// skipped.
func buildProperties(record map[string]any, fields map[string]string) map[string]any {
	if len(fields) == 0 {
		return nil
	}
	properties := make(map[string]any, len(fields))
	for column, property := range fields {
		if value, ok := record[column]; ok {
			properties[property] = value
		}
	}
	return properties
}

// joinFields composes a vertex id from one or more record field values.
func joinFields(record map[string]any, fields []string) (string, error) {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		value, ok := record[field]
		if !ok {
			return "", errors.Newf(errors.ErrorTypeParse,
				"record is missing endpoint field %q", field)
		}
		parts = append(parts, fieldString(value))
	}
	return strings.Join(parts, "_"), nil
}

// fieldString renders a record value the way it appears in vertex ids.
func fieldString(value any) string {
	switch v := value.(type) {
	case string:
		return v
	case float64:
		// JSON numbers decode as float64; render integers without a point.
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%v", v)
	default:
		return fmt.Sprintf("%v", v)
	}
}
