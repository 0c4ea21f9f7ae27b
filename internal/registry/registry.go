// File: internal/registry/registry.go
package registry

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// Library is a registered library as the host sees it.
type Library struct {
	Name         string
	Source       string
	Metadata     *schemas.LibraryMetadata
	Categories   []schemas.CategoryDefinition
	Nodes        []schemas.NodeDefinition
	RegisteredAt time.Time
}

// Registry is the host-side catalog of loaded libraries and the node classes they
// own. It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	libraries map[string]*Library
	owners    map[string]string // node class name -> library name
	logger    *zap.Logger
	now       func() time.Time
}

// Option configures a Registry.
type Option func(*Registry)

func WithLogger(logger *zap.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger.Named("registry")
		}
	}
}

func New(opts ...Option) *Registry {
	r := &Registry{
		libraries: make(map[string]*Library),
		owners:    make(map[string]string),
		logger:    zap.NewNop(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterLibrary adds schema under name. A name held by a different source is
// an UNUSABLE conflict and leaves the registry untouched. Re-registering from the
// same source replaces the previous registration. Node classes already owned by
// another library are skipped with one FLAWED issue each.
func (r *Registry) RegisterLibrary(source, name string, schema *schemas.LibrarySchema) []schemas.LifecycleIssue {
	if schema == nil {
		return []schemas.LifecycleIssue{
			schemas.NewIssue(schemas.StatusUnusable, "cannot register library %q without a schema", name),
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.libraries[name]; ok {
		if existing.Source != source {
			return []schemas.LifecycleIssue{schemas.NewIssue(schemas.StatusUnusable,
				"library name %q is already registered from %s", name, existing.Source)}
		}
		r.removeLocked(name)
		r.logger.Debug("Replacing library registration.", zap.String("library", name))
	}

	lib := &Library{
		Name:         name,
		Source:       source,
		Metadata:     schema.Metadata,
		Categories:   append([]schemas.CategoryDefinition(nil), schema.Categories...),
		RegisteredAt: r.now(),
	}

	var issues []schemas.LifecycleIssue
	for _, node := range schema.Nodes {
		owner, taken := r.owners[node.ClassName]
		switch {
		case taken && owner == name:
			// Duplicate inside this library; evaluation already reported it.
			continue
		case taken:
			issues = append(issues, schemas.NewIssue(schemas.StatusFlawed,
				"node class %q is already provided by library %q; skipping it", node.ClassName, owner))
			continue
		}
		r.owners[node.ClassName] = name
		lib.Nodes = append(lib.Nodes, node)
	}

	r.libraries[name] = lib
	r.logger.Info("Library registered.",
		zap.String("library", name),
		zap.Int("nodes", len(lib.Nodes)),
		zap.Int("skipped", len(issues)))
	return issues
}

// Unregister removes a library and releases its node classes.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.libraries[name]; !ok {
		return false
	}
	r.removeLocked(name)
	return true
}

// UnregisterSource removes whatever library was registered from source.
func (r *Registry) UnregisterSource(source string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, lib := range r.libraries {
		if lib.Source == source {
			r.removeLocked(name)
			return true
		}
	}
	return false
}

func (r *Registry) removeLocked(name string) {
	lib := r.libraries[name]
	for _, node := range lib.Nodes {
		if r.owners[node.ClassName] == name {
			delete(r.owners, node.ClassName)
		}
	}
	delete(r.libraries, name)
}

// Library returns a copy of the named registration.
func (r *Registry) Library(name string) (Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lib, ok := r.libraries[name]
	if !ok {
		return Library{}, false
	}
	return *lib, true
}

// Libraries returns every registration sorted by name.
func (r *Registry) Libraries() []Library {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Library, 0, len(r.libraries))
	for _, lib := range r.libraries {
		out = append(out, *lib)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Node looks up a node class and the library that owns it.
func (r *Registry) Node(className string) (schemas.NodeDefinition, string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	owner, ok := r.owners[className]
	if !ok {
		return schemas.NodeDefinition{}, "", false
	}
	for _, node := range r.libraries[owner].Nodes {
		if node.ClassName == className {
			return node, owner, true
		}
	}
	return schemas.NodeDefinition{}, "", false
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.libraries)
}
