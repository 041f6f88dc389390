package store

import (
	"embed"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFS embed.FS

var (
	schemaOnce sync.Once
	schemas    map[string]*gojsonschema.Schema
	schemaErr  error
)

func loadSchemas() {
	schemas = make(map[string]*gojsonschema.Schema)
	for _, name := range []string{"schedule_item", "broadcast"} {
		raw, err := schemaFS.ReadFile("schemas/" + name + ".json")
		if err != nil {
			schemaErr = fmt.Errorf("read %s schema: %w", name, err)
			return
		}
		sch, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			schemaErr = fmt.Errorf("compile %s schema: %w", name, err)
			return
		}
		schemas[name] = sch
	}
}

// ValidatePayload checks a raw mutation payload against the entity's JSON
// schema before it reaches the database. Violations come back as a
// ValidationError; an unknown entity is a programming error.
func ValidatePayload(entity string, payload json.RawMessage) error {
	schemaOnce.Do(loadSchemas)
	if schemaErr != nil {
		return schemaErr
	}
	sch, ok := schemas[entity]
	if !ok {
		return fmt.Errorf("no schema for entity %q", entity)
	}

	doc := strings.TrimSpace(string(payload))
	if doc == "" {
		doc = "null"
	}
	res, err := sch.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return invalidField(entity, "", "payload is not valid JSON")
	}
	if res.Valid() {
		return nil
	}
	items := make([]ValidationItem, 0, len(res.Errors()))
	for _, item := range res.Errors() {
		items = append(items, ValidationItem{
			Path:    item.Field(),
			Message: item.Description(),
		})
	}
	return &ValidationError{Entity: entity, Items: items}
}
