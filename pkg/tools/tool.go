package tools

import "context"

// Tool is the interface for all tools
type Tool interface {
	Name() string
	Description() string
	Params() []Param
	Run(ctx context.Context, args map[string]any) (string, error)
}

// Param describes one tool argument. Kind is "string" or "number".
type Param struct {
	Name        string
	Kind        string
	Description string
	Required    bool
}
