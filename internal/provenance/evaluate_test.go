// File: internal/provenance/evaluate_test.go
package provenance

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

func schemaFor(schemaVersion, engineVersion string) *schemas.LibrarySchema {
	return &schemas.LibrarySchema{
		Name:                 "lib",
		LibrarySchemaVersion: schemaVersion,
		Metadata:             &schemas.LibraryMetadata{EngineVersion: engineVersion},
	}
}

func TestEvaluateSchema_Versions(t *testing.T) {
	cases := []struct {
		name          string
		schemaVersion string
		engine        string
		host          string
		want          []schemas.LibraryStatus
	}{
		{"compatible", "0.1.0", "1.2.0", "1.4.0", nil},
		{"patch schema bump is accepted", "0.1.7", "1.0.0", "1.0.0", nil},
		{"minor schema bump is rejected", "0.2.0", "1.0.0", "1.0.0", []schemas.LibraryStatus{schemas.StatusUnusable}},
		{"garbage schema version", "zero", "1.0.0", "1.0.0", []schemas.LibraryStatus{schemas.StatusUnusable}},
		{"engine newer than host", "0.1.0", "2.0.0", "1.9.9", []schemas.LibraryStatus{schemas.StatusUnusable}},
		{"engine from older major", "0.1.0", "0.9.0", "1.0.0", []schemas.LibraryStatus{schemas.StatusFlawed}},
		{"unparsable engine version", "0.1.0", "latest", "1.0.0", []schemas.LibraryStatus{schemas.StatusFlawed}},
		{"no host version skips engine check", "0.1.0", "latest", "", nil},
		{"both broken", "9.9.9", "99.0.0", "1.0.0", []schemas.LibraryStatus{schemas.StatusUnusable, schemas.StatusUnusable}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			issues := evaluateSchema(schemaFor(tc.schemaVersion, tc.engine), tc.host)
			var got []schemas.LibraryStatus
			for _, i := range issues {
				got = append(got, i.Severity)
			}
			assert.Equal(t, tc.want, got, "issues: %v", issues)
		})
	}
}

func TestEvaluateSchema_Nodes(t *testing.T) {
	schema := schemaFor("0.1.0", "0.1.0")
	schema.Categories = []schemas.CategoryDefinition{{Key: "Image"}}
	schema.Nodes = []schemas.NodeDefinition{
		{ClassName: "Resize", Metadata: schemas.NodeMetadata{Category: "Image"}},
		{ClassName: "Resize", Metadata: schemas.NodeMetadata{Category: "Image"}},
		{ClassName: "Blur", Metadata: schemas.NodeMetadata{Category: "Filters"}},
	}

	issues := evaluateSchema(schema, "0.1.0")
	assert.Equal(t, []schemas.LifecycleIssue{
		{Message: `node class "Resize" is declared more than once; only the first is used`, Severity: schemas.StatusFlawed},
		{Message: `node "Blur" uses undeclared category "Filters"`, Severity: schemas.StatusFlawed},
	}, issues)
}

func TestEvaluateSchema_NilMetadata(t *testing.T) {
	schema := &schemas.LibrarySchema{Name: "bare", LibrarySchemaVersion: "0.1.0"}
	assert.Empty(t, evaluateSchema(schema, "0.1.0"), "missing metadata is reported at load time")
}
