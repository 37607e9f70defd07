package tuning_test

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

func TestTuningSchema_ValidatesShippedConfig(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "..", "schemas", "tuning.schema.json")
	s, err := jsonschema.Compile(schemaPath)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join("..", "..", "..", "configs", "tuning.yaml"))
	if err != nil {
		t.Fatalf("read config: %v", err)
	}
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	// Round-trip through JSON so the schema sees JSON-typed values.
	b, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var jsonDoc any
	if err := json.Unmarshal(b, &jsonDoc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(jsonDoc); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestTuningSchema_RejectsUnknownKey(t *testing.T) {
	schemaPath := filepath.Join("..", "..", "..", "schemas", "tuning.schema.json")
	s, err := jsonschema.Compile(schemaPath)
	if err != nil {
		t.Fatalf("compile schema: %v", err)
	}
	var doc any
	if err := json.Unmarshal([]byte(`{"bogus_knob": 1}`), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := s.Validate(doc); err == nil {
		t.Fatalf("expected unknown key to be rejected")
	}
}
