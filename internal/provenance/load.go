// File: internal/provenance/load.go
package provenance

import (
	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

// loadLibrary registers the inspected schema with the host registry and returns
// what the host needs to display it.
func loadLibrary(lc lifecycle.Context) schemas.LibraryLoadedResult {
	schema := lc.Schema()
	if schema.Metadata == nil {
		return schemas.LibraryLoadedResult{Issues: []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "library %q has no metadata", schema.Name),
		}}
	}

	env := lc.Env()
	metadata := *schema.Metadata
	result := schemas.LibraryLoadedResult{Metadata: &metadata, Enabled: true}

	name := schema.Name
	if override, ok := env.NameOverride(name); ok && override != name {
		result.NameOverride = &override
		name = override
	}

	logger := env.Log().With(zap.String("component", "load"), zap.String("library", name))
	if env.IsDisabled(schema.Name) || env.IsDisabled(name) {
		logger.Info("Library is disabled by configuration; not registering.")
		result.Enabled = false
		return result
	}

	if env.Registrar != nil {
		result.Issues = env.Registrar.RegisterLibrary(lc.Provenance().Key(), name, schema)
		if schemas.HasUnusable(result.Issues) {
			result.Enabled = false
			return result
		}
	}
	logger.Debug("Library registered.", zap.Int("nodes", len(schema.Nodes)))
	return result
}
