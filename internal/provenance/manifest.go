// File: internal/provenance/manifest.go
package provenance

import (
	"fmt"
	"sort"

	jsoniter "github.com/json-iterator/go"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// ManifestFileName is the manifest looked for inside library directories.
const ManifestFileName = "nodes_library.json"

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// DecodeManifest parses and validates a library manifest. It never stops at the
// first problem: every structural violation becomes one UNUSABLE issue prefixed
// with its JSON path. The schema is nil whenever any issue was found.
func DecodeManifest(data []byte) (*schemas.LibrarySchema, []schemas.LifecycleIssue) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "manifest is not valid JSON: %v", err),
		}
	}
	root, ok := raw.(map[string]any)
	if !ok {
		return nil, []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "manifest: expected object, got %s", jsonType(raw)),
		}
	}

	v := &validator{}
	schema := &schemas.LibrarySchema{
		Name:                 v.requiredString(root, "", "name", true),
		LibrarySchemaVersion: v.requiredString(root, "", "library_schema_version", false),
	}
	if meta, ok := v.object(root, "", "metadata", true); ok {
		schema.Metadata = v.metadata(meta, "metadata")
	}
	if items, ok := v.array(root, "", "categories", false); ok {
		for i, item := range items {
			if cat, ok := v.category(item, fmt.Sprintf("categories[%d]", i)); ok {
				schema.Categories = append(schema.Categories, cat)
			}
		}
	}
	if items, ok := v.array(root, "", "nodes", true); ok {
		for i, item := range items {
			if node, ok := v.node(item, fmt.Sprintf("nodes[%d]", i)); ok {
				schema.Nodes = append(schema.Nodes, node)
			}
		}
	}

	if len(v.issues) > 0 {
		return nil, v.issues
	}
	return schema, nil
}

type validator struct {
	issues []schemas.LifecycleIssue
}

func (v *validator) fail(path, format string, args ...any) {
	v.issues = append(v.issues, schemas.NewIssue(schemas.StatusUnusable, "%s: %s", path, fmt.Sprintf(format, args...)))
}

func join(parent, key string) string {
	if parent == "" {
		return key
	}
	return parent + "." + key
}

func (v *validator) requiredString(obj map[string]any, parent, key string, nonEmpty bool) string {
	path := join(parent, key)
	raw, present := obj[key]
	if !present {
		v.fail(path, "required field is missing")
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(path, "expected string, got %s", jsonType(raw))
		return ""
	}
	if nonEmpty && s == "" {
		v.fail(path, "must not be empty")
	}
	return s
}

func (v *validator) optionalString(obj map[string]any, parent, key string) string {
	raw, present := obj[key]
	if !present || raw == nil {
		return ""
	}
	s, ok := raw.(string)
	if !ok {
		v.fail(join(parent, key), "expected string, got %s", jsonType(raw))
	}
	return s
}

func (v *validator) object(obj map[string]any, parent, key string, required bool) (map[string]any, bool) {
	path := join(parent, key)
	raw, present := obj[key]
	if !present || (!required && raw == nil) {
		if required {
			v.fail(path, "required field is missing")
		}
		return nil, false
	}
	m, ok := raw.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", jsonType(raw))
		return nil, false
	}
	return m, true
}

func (v *validator) array(obj map[string]any, parent, key string, required bool) ([]any, bool) {
	path := join(parent, key)
	raw, present := obj[key]
	if !present || (!required && raw == nil) {
		if required {
			v.fail(path, "required field is missing")
		}
		return nil, false
	}
	items, ok := raw.([]any)
	if !ok {
		v.fail(path, "expected array, got %s", jsonType(raw))
		return nil, false
	}
	return items, true
}

func (v *validator) stringList(obj map[string]any, parent, key string) []string {
	items, ok := v.array(obj, parent, key, false)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for i, item := range items {
		s, ok := item.(string)
		if !ok {
			v.fail(fmt.Sprintf("%s[%d]", join(parent, key), i), "expected string, got %s", jsonType(item))
			continue
		}
		out = append(out, s)
	}
	return out
}

func (v *validator) metadata(obj map[string]any, path string) *schemas.LibraryMetadata {
	meta := &schemas.LibraryMetadata{
		Author:         v.requiredString(obj, path, "author", false),
		Description:    v.requiredString(obj, path, "description", false),
		LibraryVersion: v.requiredString(obj, path, "library_version", false),
		EngineVersion:  v.requiredString(obj, path, "engine_version", false),
		Tags:           v.stringList(obj, path, "tags"),
	}
	if deps, ok := v.object(obj, path, "dependencies", false); ok {
		depsPath := join(path, "dependencies")
		meta.Dependencies = &schemas.Dependencies{
			PipDependencies: v.stringList(deps, depsPath, "pip_dependencies"),
			PipInstallFlags: v.stringList(deps, depsPath, "pip_install_flags"),
		}
	}
	return meta
}

// category decodes the single-key form {"<key>": {"title": ...}}.
func (v *validator) category(item any, path string) (schemas.CategoryDefinition, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", jsonType(item))
		return schemas.CategoryDefinition{}, false
	}
	if len(obj) != 1 {
		keys := make([]string, 0, len(obj))
		for k := range obj {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		v.fail(path, "expected exactly one category key, got %d %v", len(obj), keys)
		return schemas.CategoryDefinition{}, false
	}

	var key string
	for k := range obj {
		key = k
	}
	body, ok := v.object(obj, path, key, true)
	if !ok {
		return schemas.CategoryDefinition{}, false
	}
	bodyPath := join(path, key)
	return schemas.CategoryDefinition{
		Key:         key,
		Title:       v.requiredString(body, bodyPath, "title", false),
		Description: v.requiredString(body, bodyPath, "description", false),
		Color:       v.optionalString(body, bodyPath, "color"),
		Icon:        v.optionalString(body, bodyPath, "icon"),
	}, true
}

func (v *validator) node(item any, path string) (schemas.NodeDefinition, bool) {
	obj, ok := item.(map[string]any)
	if !ok {
		v.fail(path, "expected object, got %s", jsonType(item))
		return schemas.NodeDefinition{}, false
	}
	node := schemas.NodeDefinition{
		ClassName: v.requiredString(obj, path, "class_name", true),
		FilePath:  v.requiredString(obj, path, "file_path", true),
	}
	if meta, ok := v.object(obj, path, "metadata", true); ok {
		metaPath := join(path, "metadata")
		node.Metadata = schemas.NodeMetadata{
			Category:    v.requiredString(meta, metaPath, "category", false),
			Description: v.requiredString(meta, metaPath, "description", false),
			DisplayName: v.requiredString(meta, metaPath, "display_name", false),
			Icon:        v.optionalString(meta, metaPath, "icon"),
		}
	}
	return node, true
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case float64, jsoniter.Number:
		return "number"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
