// File: internal/orchestrator/report.go
package orchestrator

import (
	"time"

	"github.com/xkilldash9x/nodelib/api/schemas"
	"github.com/xkilldash9x/nodelib/internal/lifecycle"
)

// BuildReport flattens a finished lifecycle into its persisted form.
func BuildReport(runID string, lc lifecycle.Context, recordedAt time.Time) schemas.LibraryReport {
	report := schemas.LibraryReport{
		RunID:         runID,
		ProvenanceKey: lc.Provenance().Key(),
		Kind:          string(lc.Provenance().Kind()),
		LibraryName:   lc.EffectiveName(),
		FinalState:    lc.State().String(),
		Status:        lc.Status(),
		Issues:        lc.Issues(),
		RecordedAt:    recordedAt,
	}
	if inst := lc.Installation(); inst != nil {
		report.VenvPath = inst.VenvPath
	}
	if loaded := lc.Loaded(); loaded != nil && lc.State() == lifecycle.StateLoaded {
		report.Enabled = loaded.Enabled
		if loaded.NameOverride != nil {
			report.LibraryName = *loaded.NameOverride
		}
	}
	return report
}
