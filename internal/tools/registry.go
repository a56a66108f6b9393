package tools

import "log/slog"

// Registry holds the configured tools in registration order.
type Registry struct {
	tools []Tool
	log   *slog.Logger
}

// NewRegistry constructs every tool in the list, keeps the ones whose
// IsConfigured passes, and deduplicates by name with first registration
// winning. IsConfigured is evaluated exactly once, here.
func NewRegistry(deps Deps, constructors []Constructor) *Registry {
	log := deps.Log.With("component", "tools")
	seen := make(map[string]bool)
	var kept []Tool

	for _, construct := range constructors {
		tool := construct(deps)
		name := tool.Name()
		if name == "" {
			log.Warn("tool has empty name, skipping")
			continue
		}
		if name == SleepToolName {
			log.Warn("tool claims reserved name, skipping", "name", name)
			continue
		}
		if seen[name] {
			log.Warn("duplicate tool name, keeping first", "name", name)
			continue
		}
		if !tool.IsConfigured() {
			log.Info("skipping unconfigured tool", "name", name)
			continue
		}
		seen[name] = true
		kept = append(kept, tool)
		log.Info("loaded tool", "name", name)
	}

	return &Registry{tools: kept, log: log}
}

// Tools returns the registered tools in registration order.
func (r *Registry) Tools() []Tool {
	return r.tools
}

// Manifests returns every registered tool's manifest plus the reserved sleep
// tool, in the order they are advertised to the model.
func (r *Registry) Manifests() []Manifest {
	manifests := make([]Manifest, 0, len(r.tools)+1)
	for _, t := range r.tools {
		manifests = append(manifests, t.Manifest())
	}
	manifests = append(manifests, SleepManifest())
	return manifests
}

// Dispatch offers the call to each tool in registration order and returns the
// first non-empty result, or "" if no tool claims it. A panicking handler is
// logged and treated as "not mine" so one broken tool cannot block others.
func (r *Registry) Dispatch(toolName, arguments string) string {
	for _, tool := range r.tools {
		if output := r.tryHandle(tool, toolName, arguments); output != "" {
			r.log.Info("tool handled function call", "tool", tool.Name(), "function", toolName)
			return output
		}
	}
	return ""
}

func (r *Registry) tryHandle(tool Tool, toolName, arguments string) (output string) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error("tool handler panicked", "tool", tool.Name(), "function", toolName, "panic", rec)
			output = ""
		}
	}()
	return tool.Handle(toolName, arguments)
}
