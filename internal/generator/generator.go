package generator

import "context"

// Generator abstracts the external answer-generation boundary: free text in,
// structured JSON text out. Implementations exist for a local Ollama server
// and an OpenRouter-compatible cloud API; the answer pipeline depends only
// on this interface.
type Generator interface {
	// Generate sends the system instruction and user query to the backend,
	// requesting output conforming to schema, and returns the raw JSON text.
	Generate(ctx context.Context, system, query string, schema *Schema) (string, error)
}

// Schema is the JSON Schema subset accepted by both backends' structured
// output modes. It is recursive so object and array fields can be described.
type Schema struct {
	Type        string             `json:"type"`
	Description string             `json:"description,omitempty"`
	Properties  map[string]*Schema `json:"properties,omitempty"`
	Items       *Schema            `json:"items,omitempty"`
	Required    []string           `json:"required,omitempty"`
}
