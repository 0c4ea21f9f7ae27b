package schemas

import "time"

// InspectionResult is produced once by the inspection stage. Schema is nil whenever
// the source could not be turned into a valid manifest. SourcePath is the local
// manifest file or directory the schema was derived from.
type InspectionResult struct {
	Schema     *LibrarySchema   `json:"schema"`
	SourcePath string           `json:"source_path,omitempty"`
	Issues     []LifecycleIssue `json:"issues"`
}

// EvaluationResult carries semantic-compatibility issues for a single library.
type EvaluationResult struct {
	Issues []LifecycleIssue `json:"issues"`
}

// InstallationResult describes where the library lives and which isolated
// environment (if any) was provisioned for it. VenvPath is empty when no
// environment was needed.
type InstallationResult struct {
	InstallationPath string           `json:"installation_path"`
	VenvPath         string           `json:"venv_path"`
	Issues           []LifecycleIssue `json:"issues"`
}

// LibraryLoadedResult is what the host needs to display and toggle a library.
type LibraryLoadedResult struct {
	Metadata     *LibraryMetadata `json:"metadata"`
	Enabled      bool             `json:"enabled"`
	NameOverride *string          `json:"name_override"`
	Issues       []LifecycleIssue `json:"issues"`
}

// LibraryReport is the user-facing outcome of one provenance's lifecycle run.
type LibraryReport struct {
	RunID         string           `json:"run_id" yaml:"run_id"`
	ProvenanceKey string           `json:"provenance_key" yaml:"provenance_key"`
	Kind          string           `json:"kind" yaml:"kind"`
	LibraryName   string           `json:"library_name" yaml:"library_name"`
	FinalState    string           `json:"final_state" yaml:"final_state"`
	Status        LibraryStatus    `json:"status" yaml:"status"`
	Enabled       bool             `json:"enabled" yaml:"enabled"`
	VenvPath      string           `json:"venv_path,omitempty" yaml:"venv_path,omitempty"`
	Issues        []LifecycleIssue `json:"issues" yaml:"issues"`
	RecordedAt    time.Time        `json:"recorded_at" yaml:"recorded_at"`
}
