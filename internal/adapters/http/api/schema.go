package api

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const (
	schemaBase   = "https://ringside.local/schemas/"
	maxBodyBytes = 1 << 20
)

// Request contracts, one compiled schema per intake body.
const (
	schemaEvent      = "event.schema.json"
	schemaDetections = "detections.schema.json"
	schemaAudit      = "audit.schema.json"
	schemaActor      = "actor.schema.json"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// validator checks request bodies against the embedded JSON schemas before they are decoded.
type validator struct {
	schemas map[string]*jsonschema.Schema
}

func newValidator() (*validator, error) {
	c := jsonschema.NewCompiler()
	c.Draft = jsonschema.Draft2020

	files, err := schemaFS.ReadDir("schemas")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSchemaLoad, err)
	}
	for _, f := range files {
		raw, err := schemaFS.ReadFile(path.Join("schemas", f.Name()))
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrSchemaLoad, err)
		}
		if err := c.AddResource(schemaBase+f.Name(), bytes.NewReader(raw)); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSchemaLoad, f.Name(), err)
		}
	}

	v := &validator{schemas: make(map[string]*jsonschema.Schema)}
	for _, name := range []string{schemaEvent, schemaDetections, schemaAudit, schemaActor} {
		s, err := c.Compile(schemaBase + name)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSchemaLoad, name, err)
		}
		v.schemas[name] = s
	}
	return v, nil
}

// decode reads the body, validates it against the named schema and unmarshals it into dst.
func (v *validator) decode(r *http.Request, name string, dst any) error {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	if err := v.schemas[name].Validate(doc); err != nil {
		return fmt.Errorf("%w: %w", ErrSchema, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("%w: %w", ErrBadRequest, err)
	}
	return nil
}
