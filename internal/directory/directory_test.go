// File: internal/directory/directory_test.go
package directory

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/mocks"
	"github.com/xkilldash9x/nodelib/internal/provenance"
)

func keys(entries []lifecycle.Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Provenance.Key())
	}
	return out
}

func TestDiscover_IsIdempotentByKey(t *testing.T) {
	dir := t.TempDir()
	d := New(nil)

	first := provenance.NewLocalFile(filepath.Join(dir, "nodes_library.json"))
	second := provenance.NewLocalFile(filepath.Join(dir, "x", "..", "nodes_library.json"))

	assert.Same(t, first, d.Discover(first))
	assert.Same(t, first, d.Discover(second), "re-discovery returns the existing provenance")
	assert.Equal(t, 1, d.Len())

	entry, ok := d.Entry(first.Key())
	require.True(t, ok)
	assert.False(t, entry.Active)
}

func TestDiscover_SymlinkedManifestIsOneEntry(t *testing.T) {
	target := t.TempDir()
	manifest := filepath.Join(target, "nodes_library.json")
	require.NoError(t, os.WriteFile(manifest, []byte("{}"), 0o644))
	link := filepath.Join(t.TempDir(), "linked")
	require.NoError(t, os.Symlink(target, link))

	d := New(nil)
	first := provenance.NewLocalFile(manifest)
	d.Discover(first)
	assert.Same(t, first, d.Discover(provenance.NewLocalFile(filepath.Join(link, "nodes_library.json"))))
	assert.Equal(t, 1, d.Len())
}

func TestDiscover_LeavesExistingEntryUntouched(t *testing.T) {
	d := New(nil)
	p := &mocks.MockProvenance{ID: "a"}
	d.AddUserCandidate(p)

	d.Discover(&mocks.MockProvenance{ID: "a"})
	entry, _ := d.Entry("a")
	assert.True(t, entry.Active)
	assert.Same(t, p, entry.Provenance)
}

func TestCandidateActivation(t *testing.T) {
	d := New(nil)
	curated := &mocks.MockProvenance{ID: "curated"}
	user := &mocks.MockProvenance{ID: "user"}

	d.AddCuratedCandidate(curated)
	d.AddUserCandidate(user)

	assert.Equal(t, []string{"user"}, keys(d.ActiveCandidates()))
	assert.Equal(t, []string{"curated", "user"}, keys(d.AllCandidates()))

	// A curated library added again by the user becomes active and vice versa.
	d.AddUserCandidate(&mocks.MockProvenance{ID: "curated"})
	assert.Equal(t, []string{"curated", "user"}, keys(d.ActiveCandidates()), "discovery order is preserved")
	d.AddCuratedCandidate(&mocks.MockProvenance{ID: "user"})
	assert.Equal(t, []string{"curated"}, keys(d.ActiveCandidates()))

	assert.True(t, d.SetActive("user", true))
	assert.False(t, d.SetActive("missing", true))
	assert.Equal(t, 2, d.Len(), "SetActive never creates entries")
}

func TestRemoveAndClear(t *testing.T) {
	d := New(nil)
	d.AddUserCandidate(&mocks.MockProvenance{ID: "a"})
	d.AddUserCandidate(&mocks.MockProvenance{ID: "b"})

	assert.True(t, d.Remove("a"))
	assert.False(t, d.Remove("a"))
	assert.Equal(t, []string{"b"}, keys(d.AllCandidates()))

	d.Clear()
	assert.Zero(t, d.Len())
	assert.Empty(t, d.ActiveCandidates())
}

func TestDirectory_NeverCallsHooks(t *testing.T) {
	d := New(nil)
	p := &mocks.MockProvenance{ID: "strict"}
	d.AddUserCandidate(p)
	d.Discover(p)
	_ = d.ActiveCandidates()
	d.Remove("strict")

	// Any hook call would panic on the missing expectation.
	p.AssertExpectations(t)
	assert.Empty(t, p.Calls)
}

func TestDirectory_ConcurrentDiscovery(t *testing.T) {
	d := New(nil)
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			p := &mocks.MockProvenance{ID: fmt.Sprintf("lib-%d", i%10)}
			if i%2 == 0 {
				d.AddUserCandidate(p)
			} else {
				d.Discover(p)
			}
			_ = d.ActiveCandidates()
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 10, d.Len())
}
