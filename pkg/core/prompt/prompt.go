// Package prompt is the prompt library for model interactions. Templates are
// registered in code and can be overridden from JSON files at runtime.
package prompt

// Template is a reusable prompt with metadata.
type Template struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Category       string `json:"category"`
	Description    string `json:"description"`
	SystemPrompt   string `json:"system_prompt"`
	UserPromptTmpl string `json:"user_prompt_template"`
	Version        string `json:"version"`
}

// ExecutionContext holds runtime values for template substitution.
type ExecutionContext struct {
	Variables map[string]interface{}
}

// NewContext creates an empty execution context.
func NewContext() *ExecutionContext {
	return &ExecutionContext{Variables: make(map[string]interface{})}
}

// Set adds a variable and returns the context for chaining.
func (c *ExecutionContext) Set(key string, value interface{}) *ExecutionContext {
	c.Variables[key] = value
	return c
}
