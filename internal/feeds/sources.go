// Package feeds holds the list of syndication feeds the ingestion pass reads.
package feeds

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed sources.json
var defaultSourcesJSON []byte

//go:embed sources.schema.json
var sourcesSchemaJSON string

// Source is one feed the ingestion pass fetches.
type Source struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	DisplayName string `json:"displayName"`
}

// Name returns the display name, falling back to the id.
func (s Source) Name() string {
	if name := strings.TrimSpace(s.DisplayName); name != "" {
		return name
	}
	return s.ID
}

var (
	compileOnce       sync.Once
	compiledSchema    *jsonschema.Schema
	compiledSchemaErr error
)

// Load returns the sources from path, or the embedded default list when path is empty.
func Load(path string) ([]Source, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return Default()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read feed sources file %s: %w", path, err)
	}
	sources, err := Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("feed sources file %s: %w", path, err)
	}
	return sources, nil
}

// Default returns the embedded source list.
func Default() ([]Source, error) {
	sources, err := Parse(defaultSourcesJSON)
	if err != nil {
		return nil, fmt.Errorf("embedded feed sources: %w", err)
	}
	return sources, nil
}

// Parse validates raw against the source list schema and decodes it.
func Parse(raw []byte) ([]Source, error) {
	value, err := decodeStrictJSON(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sources JSON: %w", err)
	}

	schema, err := loadSchema()
	if err != nil {
		return nil, fmt.Errorf("load schema: %w", err)
	}
	if err := schema.Validate(value); err != nil {
		return nil, fmt.Errorf("schema validation failed: %w", err)
	}

	var sources []Source
	if err := json.Unmarshal(raw, &sources); err != nil {
		return nil, fmt.Errorf("unmarshal sources: %w", err)
	}

	if err := validateSemantics(sources); err != nil {
		return nil, err
	}
	return sources, nil
}

func loadSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		compiler.Draft = jsonschema.Draft2020
		compiler.AssertFormat = true

		if err := compiler.AddResource("sources.schema.json", strings.NewReader(sourcesSchemaJSON)); err != nil {
			compiledSchemaErr = fmt.Errorf("add schema resource: %w", err)
			return
		}

		schema, err := compiler.Compile("sources.schema.json")
		if err != nil {
			compiledSchemaErr = fmt.Errorf("compile schema: %w", err)
			return
		}
		compiledSchema = schema
	})

	if compiledSchemaErr != nil {
		return nil, compiledSchemaErr
	}
	if compiledSchema == nil {
		return nil, fmt.Errorf("schema not initialized")
	}
	return compiledSchema, nil
}

func decodeStrictJSON(raw []byte) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return nil, fmt.Errorf("sources document is empty")
	}

	decoder := json.NewDecoder(bytes.NewReader(trimmed))
	decoder.UseNumber()

	var value any
	if err := decoder.Decode(&value); err != nil {
		return nil, err
	}
	if err := decoder.Decode(&struct{}{}); err != io.EOF {
		return nil, fmt.Errorf("sources document contains trailing content")
	}
	return value, nil
}

func validateSemantics(sources []Source) error {
	seenIDs := make(map[string]int, len(sources))
	seenURLs := make(map[string]int, len(sources))

	for i, source := range sources {
		if prev, ok := seenIDs[source.ID]; ok {
			return fmt.Errorf("sources[%d].id %q duplicates sources[%d]", i, source.ID, prev)
		}
		seenIDs[source.ID] = i

		parsed, err := url.Parse(strings.TrimSpace(source.URL))
		if err != nil {
			return fmt.Errorf("sources[%d].url is not a valid URL: %w", i, err)
		}
		if parsed.Host == "" {
			return fmt.Errorf("sources[%d].url must be absolute", i)
		}
		key := strings.ToLower(parsed.Host) + parsed.RequestURI()
		if prev, ok := seenURLs[key]; ok {
			return fmt.Errorf("sources[%d].url duplicates sources[%d]", i, prev)
		}
		seenURLs[key] = i

		if strings.TrimSpace(source.DisplayName) == "" {
			return fmt.Errorf("sources[%d].displayName must not be empty", i)
		}
	}
	return nil
}
