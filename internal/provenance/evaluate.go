// File: internal/provenance/evaluate.go
package provenance

import (
	"github.com/Masterminds/semver/v3"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// evaluateSchema checks one library's schema for semantic compatibility with the
// host. Conflicts with other libraries are not its concern.
func evaluateSchema(schema *schemas.LibrarySchema, hostEngine string) []schemas.LifecycleIssue {
	var issues []schemas.LifecycleIssue
	issues = append(issues, checkSchemaVersion(schema.LibrarySchemaVersion)...)
	if schema.Metadata != nil {
		issues = append(issues, checkEngineVersion(schema.Metadata.EngineVersion, hostEngine)...)
	}
	issues = append(issues, checkNodes(schema)...)
	return issues
}

func checkSchemaVersion(declared string) []schemas.LifecycleIssue {
	constraint, err := semver.NewConstraint("^" + schemas.LibrarySchemaVersion)
	if err != nil {
		panic("provenance: invalid built-in schema constraint: " + err.Error())
	}
	v, err := semver.NewVersion(declared)
	if err != nil {
		return []schemas.LifecycleIssue{schemas.NewIssue(schemas.StatusUnusable,
			"library_schema_version %q is not a valid version: %v", declared, err)}
	}
	if !constraint.Check(v) {
		return []schemas.LifecycleIssue{schemas.NewIssue(schemas.StatusUnusable,
			"library_schema_version %s is not supported (requires ^%s)", declared, schemas.LibrarySchemaVersion)}
	}
	return nil
}

func checkEngineVersion(declared, host string) []schemas.LifecycleIssue {
	if host == "" {
		return nil
	}
	hostVersion, err := semver.NewVersion(host)
	if err != nil {
		return nil
	}
	v, err := semver.NewVersion(declared)
	if err != nil {
		return []schemas.LifecycleIssue{schemas.NewIssue(schemas.StatusFlawed,
			"metadata.engine_version %q could not be parsed; compatibility is unknown", declared)}
	}
	switch {
	case v.GreaterThan(hostVersion):
		return []schemas.LifecycleIssue{schemas.NewIssue(schemas.StatusUnusable,
			"library requires engine %s but this engine is %s", v, hostVersion)}
	case v.Major() < hostVersion.Major():
		return []schemas.LifecycleIssue{schemas.NewIssue(schemas.StatusFlawed,
			"library targets engine %s, an older major version than %s; some nodes may not work", v, hostVersion)}
	}
	return nil
}

func checkNodes(schema *schemas.LibrarySchema) []schemas.LifecycleIssue {
	var issues []schemas.LifecycleIssue
	declared := make(map[string]bool, len(schema.Categories))
	for _, key := range schema.CategoryKeys() {
		declared[key] = true
	}
	seen := make(map[string]bool, len(schema.Nodes))
	for _, node := range schema.Nodes {
		if seen[node.ClassName] {
			issues = append(issues, schemas.NewIssue(schemas.StatusFlawed,
				"node class %q is declared more than once; only the first is used", node.ClassName))
		}
		seen[node.ClassName] = true

		if node.Metadata.Category != "" && !declared[node.Metadata.Category] {
			issues = append(issues, schemas.NewIssue(schemas.StatusFlawed,
				"node %q uses undeclared category %q", node.ClassName, node.Metadata.Category))
		}
	}
	return issues
}
