package tools

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/comigor/chatview/internal/logger"
)

// ToolManager manages the available tools
type ToolManager struct {
	tools map[string]Tool
}

// List returns all registered tools, sorted by name
func (m *ToolManager) List() []Tool {
	ts := make([]Tool, 0, len(m.tools))
	for _, t := range m.tools {
		ts = append(ts, t)
	}
	sort.Slice(ts, func(i, j int) bool { return ts[i].Name() < ts[j].Name() })
	return ts
}

// NewToolManager creates a new ToolManager
func NewToolManager() *ToolManager {
	return &ToolManager{
		tools: make(map[string]Tool),
	}
}

// RegisterTool registers a new tool
func (m *ToolManager) RegisterTool(tool Tool) {
	m.tools[tool.Name()] = tool
}

// GetTool retrieves a tool by name
func (m *ToolManager) GetTool(name string) (Tool, error) {
	tool, ok := m.tools[name]
	if !ok {
		return nil, fmt.Errorf("tool not found: %s", name)
	}
	return tool, nil
}

// Call runs the named tool with args, logging how it went.
func (m *ToolManager) Call(ctx context.Context, name string, args map[string]any) (string, error) {
	tool, err := m.GetTool(name)
	if err != nil {
		return "", err
	}
	log := logger.Tool(name)
	if threadID, ok := args["thread_id"].(string); ok {
		log = log.With("thread_id", threadID)
	}

	start := time.Now()
	log.Debug("tool invoked", "arguments", args)
	out, err := tool.Run(ctx, args)
	if err != nil {
		log.Warn("tool failed", "error", err, "elapsed", time.Since(start))
		return "", err
	}
	log.Debug("tool finished", "elapsed", time.Since(start))
	return out, nil
}
