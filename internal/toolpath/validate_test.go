package toolpath

import "testing"

func TestValidateSchemaDocument_Valid(t *testing.T) {
	schema := []byte(`{
		"type": "object",
		"properties": {"id": {"type": "string"}},
		"required": ["id"]
	}`)
	if err := ValidateSchemaDocument("inline.json", schema); err != nil {
		t.Fatalf("expected valid schema to compile, got %v", err)
	}
}

func TestValidateSchemaDocument_InvalidType(t *testing.T) {
	schema := []byte(`{"type": "not-a-real-type"}`)
	if err := ValidateSchemaDocument("inline.json", schema); err == nil {
		t.Fatal("expected compile error for invalid type keyword value")
	}
}

func TestValidateSchemaDocument_MalformedJSON(t *testing.T) {
	schema := []byte(`{not valid`)
	if err := ValidateSchemaDocument("inline.json", schema); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}
