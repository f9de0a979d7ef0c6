package runtimecfg

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// environmentSchema constrains the merged configuration document. Validation
// runs after all layers are applied, so a broken local overlay or override
// fails loudly instead of producing a half-valid environment.
const environmentSchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["stage", "apiUrl"],
  "properties": {
    "stage": {"type": "string", "minLength": 1},
    "apiUrl": {"type": "string", "minLength": 1, "pattern": "^https?://"},
    "apiPrefix": {"type": "string"},
    "logLevel": {"enum": ["debug", "info", "warn", "error"]},
    "identity": {
      "type": "object",
      "properties": {
        "issuer": {"type": "string"},
        "clientId": {"type": "string"},
        "clientSecret": {"type": "string"},
        "redirectUri": {"type": "string"},
        "scopes": {"type": "array", "items": {"type": "string"}},
        "rolesClaim": {"type": "string", "minLength": 1},
        "rolesClaimPath": {"type": "string"}
      }
    },
    "errors": {
      "type": "object",
      "properties": {
        "bannerThreshold": {"type": "integer", "minimum": 1},
        "bannerWindowMs": {"type": "integer", "minimum": 1},
        "accessDeniedRoute": {"type": "string"},
        "mismatchRoute": {"type": "string"},
        "defaultRoute": {"type": "string"}
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func loadSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(environmentSchema))
		if err != nil {
			schemaErr = fmt.Errorf("parse environment schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("environment.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("register environment schema: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("environment.schema.json")
	})
	return compiledSchema, schemaErr
}

// ValidateEnvironment checks the merged environment against the embedded
// JSON schema plus cross-field rules the schema cannot express.
func ValidateEnvironment(env Environment) error {
	schema, err := loadSchema()
	if err != nil {
		return err
	}

	encoded, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode environment for validation: %w", err)
	}
	instance, err := jsonschema.UnmarshalJSON(bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("decode environment for validation: %w", err)
	}

	if err := schema.Validate(instance); err != nil {
		return fmt.Errorf("invalid environment configuration: %w", err)
	}

	// Identity settings are optional as a whole, but once an issuer is
	// named the client id must accompany it.
	if env.Identity.Issuer != "" && env.Identity.ClientID == "" {
		return fmt.Errorf("invalid environment configuration: identity.clientId is required when identity.issuer is set")
	}

	return nil
}
