package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/kaptinlin/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/roach88/flakelab/internal/flake"
)

//go:embed schema.json
var schemaJSON []byte

var compiledSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	schema, err := compiler.Compile(schemaJSON)
	if err != nil {
		return nil, fmt.Errorf("compile catalog schema: %w", err)
	}
	return schema, nil
})

// Schema returns the embedded catalog JSON schema.
func Schema() []byte {
	return bytes.Clone(schemaJSON)
}

// LoadFile reads a catalog file and registers every scenario it declares
// into a fresh registry. The format is chosen by extension: .yaml/.yml or
// .cue.
func LoadFile(path string) (*Registry, error) {
	f, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := Build(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// ReadFile parses and schema-validates a catalog file without building
// its sources.
func ReadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog file: %w", err)
	}

	var f *File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		f, err = ParseYAML(data)
	case ".cue":
		f, err = ParseCUE(data, path)
	default:
		return nil, flake.Configf("catalog", path, "unsupported catalog extension (want .yaml, .yml or .cue)")
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// ParseYAML decodes a YAML catalog, rejecting unknown fields, and
// validates it against the catalog schema.
func ParseYAML(data []byte) (*File, error) {
	var f File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true) // Reject unknown fields
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("convert YAML to JSON: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}
	return &f, nil
}

// ParseCUE evaluates a CUE catalog. Scenarios live under
// scenario: <name>: {...} and accumulators under accumulator: <name>: {...};
// both are normalized to the list form before validation.
func ParseCUE(data []byte, filename string) (*File, error) {
	ctx := cuecontext.New()
	value := ctx.CompileBytes(data, cue.Filename(filename))
	if err := value.Err(); err != nil {
		return nil, fmt.Errorf("building CUE value: %w", err)
	}

	accumulators, err := namedEntries(value, "accumulator")
	if err != nil {
		return nil, err
	}
	scenarios, err := namedEntries(value, "scenario")
	if err != nil {
		return nil, err
	}

	doc := map[string]any{"scenarios": scenarios}
	if len(accumulators) > 0 {
		doc["accumulators"] = accumulators
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode CUE catalog: %w", err)
	}
	if err := validateDocument(raw); err != nil {
		return nil, err
	}

	var f File
	decoder := json.NewDecoder(bytes.NewReader(raw))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&f); err != nil {
		return nil, fmt.Errorf("decode CUE catalog: %w", err)
	}
	return &f, nil
}

// namedEntries turns the struct at path into a list of objects carrying
// their label as "name", in declaration order.
func namedEntries(value cue.Value, path string) ([]map[string]any, error) {
	entries := []map[string]any{}
	v := value.LookupPath(cue.ParsePath(path))
	if !v.Exists() {
		return entries, nil
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, fmt.Errorf("iterating %s: %w", path, err)
	}
	for iter.Next() {
		label := iter.Label()
		raw, err := iter.Value().MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("%s.%s: %w", path, label, err)
		}
		var entry map[string]any
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil, fmt.Errorf("%s.%s: must be a struct: %w", path, label, err)
		}
		if _, ok := entry["name"]; !ok {
			entry["name"] = label
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func validateDocument(raw []byte) error {
	schema, err := compiledSchema()
	if err != nil {
		return err
	}
	result := schema.ValidateJSON(raw)
	if result.IsValid() {
		return nil
	}
	return &flake.ConfigurationError{
		Field:   "catalog",
		Message: fmt.Sprintf("schema validation failed: %v", result.Errors),
	}
}
