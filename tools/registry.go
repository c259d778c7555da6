package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/ezbizservices/seo-mcp/schema"
)

// HandlerFunc executes one tool call with already-decoded arguments.
type HandlerFunc func(ctx context.Context, arguments map[string]interface{}) (*schema.CallToolResult, error)

// Definition binds a tool descriptor to its handler.
type Definition struct {
	Tool   schema.Tool
	Handle HandlerFunc
}

// Registry holds the tool set in registration order.
type Registry struct {
	order  []string
	byName map[string]*Definition
}

func NewRegistry() *Registry {
	return &Registry{byName: map[string]*Definition{}}
}

// Register adds a tool definition; duplicate names are a programming error.
func (r *Registry) Register(definition *Definition) error {
	name := definition.Tool.Name
	if name == "" {
		return fmt.Errorf("tools: definition has no name")
	}
	if _, ok := r.byName[name]; ok {
		return fmt.Errorf("tools: %q already registered", name)
	}
	r.order = append(r.order, name)
	r.byName[name] = definition
	return nil
}

// Get returns the definition for name.
func (r *Registry) Get(name string) (*Definition, bool) {
	definition, ok := r.byName[name]
	return definition, ok
}

// List returns tool descriptors in registration order.
func (r *Registry) List() []schema.Tool {
	result := make([]schema.Tool, 0, len(r.order))
	for _, name := range r.order {
		result = append(result, r.byName[name].Tool)
	}
	return result
}

// Default builds the registry with the full SEO tool set wired to deps.
func Default(deps *Deps) (*Registry, error) {
	registry := NewRegistry()
	builders := []func(*Deps) (*Definition, error){
		newKeywordResearch,
		newAnalyzeSERP,
		newCheckBacklinks,
		newOptimizeContent,
		newSiteAudit,
		newContentBrief,
	}
	for _, builder := range builders {
		definition, err := builder(deps)
		if err != nil {
			return nil, err
		}
		if err := registry.Register(definition); err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// decodeArguments maps loosely-typed call arguments onto a typed input
// struct via a JSON round trip.
func decodeArguments(arguments map[string]interface{}, target interface{}) error {
	data, err := json.Marshal(arguments)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, target)
}

// definition assembles a Definition, deriving the input schema from the
// input struct's json and description tags.
func definition(name, description string, input interface{}, handle HandlerFunc) (*Definition, error) {
	tool := schema.Tool{Name: name, Description: description}
	if err := tool.InputSchema.Load(input); err != nil {
		return nil, fmt.Errorf("tools: %v input schema: %w", name, err)
	}
	return &Definition{Tool: tool, Handle: handle}, nil
}
