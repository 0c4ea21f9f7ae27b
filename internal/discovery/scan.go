// internal/discovery/scan.go
package discovery

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/xkilldash9x/nodelib/internal/provenance"
)

// Scan walks each root looking for library manifests and returns one LocalFile
// per manifest, sorted by path. maxDepth limits how many directory levels below
// a root are searched; zero means no limit. Roots that do not exist are skipped.
func Scan(ctx context.Context, roots []string, maxDepth int) ([]*provenance.LocalFile, error) {
	seen := make(map[string]struct{})
	var found []string

	for _, root := range roots {
		root, err := expand(root)
		if err != nil {
			return nil, err
		}
		if root == "" {
			continue
		}
		root, err = filepath.Abs(root)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve search path %q: %w", root, err)
		}
		if _, err := os.Stat(root); errors.Is(err, fs.ErrNotExist) {
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				// Unreadable subtrees are skipped, an unreadable root is not.
				if path == root {
					return err
				}
				return fs.SkipDir
			}
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			if d.IsDir() {
				if path != root && strings.HasPrefix(d.Name(), ".") {
					return fs.SkipDir
				}
				if maxDepth > 0 && depth(root, path) > maxDepth {
					return fs.SkipDir
				}
				return nil
			}
			if d.Name() != provenance.ManifestFileName {
				return nil
			}
			if _, dup := seen[path]; !dup {
				seen[path] = struct{}{}
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to scan search path %s: %w", root, err)
		}
	}

	sort.Strings(found)
	out := make([]*provenance.LocalFile, len(found))
	for i, path := range found {
		out[i] = provenance.NewLocalFile(path)
	}
	return out, nil
}

func depth(root, path string) int {
	rel, err := filepath.Rel(root, path)
	if err != nil || rel == "." {
		return 0
	}
	return strings.Count(rel, string(filepath.Separator)) + 1
}
