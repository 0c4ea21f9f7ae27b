package schemas

// LibrarySchemaVersion is the manifest schema version this host understands.
const LibrarySchemaVersion = "0.1.0"

// LibrarySchema is the validated manifest structure. Inspection must produce one
// before any later lifecycle stage runs.
type LibrarySchema struct {
	Name                 string               `json:"name"`
	LibrarySchemaVersion string               `json:"library_schema_version"`
	Metadata             *LibraryMetadata     `json:"metadata"`
	Categories           []CategoryDefinition `json:"categories"`
	Nodes                []NodeDefinition     `json:"nodes"`
}

// LibraryMetadata is what the host displays for a library.
type LibraryMetadata struct {
	Author         string        `json:"author"`
	Description    string        `json:"description"`
	LibraryVersion string        `json:"library_version"`
	EngineVersion  string        `json:"engine_version"`
	Tags           []string      `json:"tags"`
	Dependencies   *Dependencies `json:"dependencies,omitempty"`
}

// Dependencies declares what must be installed into the library's isolated environment.
type Dependencies struct {
	PipDependencies []string `json:"pip_dependencies,omitempty"`
	PipInstallFlags []string `json:"pip_install_flags,omitempty"`
}

// HasPackages reports whether anything needs installing.
func (d *Dependencies) HasPackages() bool {
	return d != nil && len(d.PipDependencies) > 0
}

// CategoryDefinition is one entry of the manifest's categories list. In the manifest
// it is written as a single-key object: {"<key>": {"title": ...}}.
type CategoryDefinition struct {
	Key         string `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Color       string `json:"color,omitempty"`
	Icon        string `json:"icon,omitempty"`
}

// NodeDefinition points at a node implementation inside the library.
type NodeDefinition struct {
	ClassName string       `json:"class_name"`
	FilePath  string       `json:"file_path"`
	Metadata  NodeMetadata `json:"metadata"`
}

// NodeMetadata is the per-node display information.
type NodeMetadata struct {
	Category    string `json:"category"`
	Description string `json:"description"`
	DisplayName string `json:"display_name"`
	Icon        string `json:"icon,omitempty"`
}

// CategoryKeys returns the declared category keys in manifest order.
func (s *LibrarySchema) CategoryKeys() []string {
	keys := make([]string, 0, len(s.Categories))
	for _, c := range s.Categories {
		keys = append(keys, c.Key)
	}
	return keys
}
