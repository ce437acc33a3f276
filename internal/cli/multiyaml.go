package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/Balram04/assigno/internal/lms"
)

// ParseMultiYAML reads a manifest file holding one or more YAML documents. Environment
// placeholders are expanded before parsing.
func ParseMultiYAML(filename, dotenv string) ([]map[string]any, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	data = bytes.ReplaceAll(data, []byte("\t"), []byte("  "))

	data, err = PreprocessYAML(data, dotenv)
	if err != nil {
		return nil, err
	}

	return ParseMultiYAMLFromBytes(data)
}

// ParseMultiYAMLFromBytes parses byte data containing multiple YAML documents.
// Empty documents are skipped.
func ParseMultiYAMLFromBytes(data []byte) ([]map[string]any, error) {
	content := strings.TrimSpace(string(data))
	if len(content) == 0 || strings.Trim(content, "- \n\t") == "" {
		return []map[string]any{}, nil
	}

	decoder := yaml.NewDecoder(bytes.NewReader(data))
	var result []map[string]any

	for {
		var doc map[string]any
		if err := decoder.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("failed to decode YAML: %w", err)
		}
		if len(doc) > 0 {
			result = append(result, doc)
		}
	}

	return result, nil
}

var timestampType = reflect.TypeOf(lms.Timestamp{})

// timestampHook turns YAML dates, given as strings or already parsed, into lms.Timestamp.
func timestampHook(from, to reflect.Type, data any) (any, error) {
	if to != timestampType {
		return data, nil
	}
	switch v := data.(type) {
	case time.Time:
		return lms.Timestamp{Time: v}, nil
	case string:
		var ts lms.Timestamp
		if err := ts.UnmarshalJSON([]byte(v)); err != nil {
			return nil, fmt.Errorf("invalid date %q", v)
		}
		return ts, nil
	}
	return data, nil
}

// decodeManifest maps one manifest document onto an input type using its json field names.
// Unknown keys are rejected.
func decodeManifest[T any](doc map[string]any) (T, error) {
	var out T
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		DecodeHook:       timestampHook,
		Result:           &out,
	})
	if err != nil {
		return out, err
	}
	if err := dec.Decode(doc); err != nil {
		return out, fmt.Errorf("invalid manifest: %w", err)
	}
	return out, nil
}

// loadManifest reads file and decodes every document in it.
func loadManifest[T any](file string) ([]T, error) {
	docs, err := ParseMultiYAML(file, dotEnvFile)
	if err != nil {
		return nil, err
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("%s holds no documents", file)
	}
	out := make([]T, 0, len(docs))
	for i, doc := range docs {
		v, err := decodeManifest[T](doc)
		if err != nil {
			return nil, fmt.Errorf("document %d: %w", i+1, err)
		}
		out = append(out, v)
	}
	return out, nil
}
