// internal/discovery/discovery.go
package discovery

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/mitchellh/go-homedir"

	"github.com/xkilldash9x/nodelib/internal/lifecycle"
	"github.com/xkilldash9x/nodelib/internal/provenance"
)

// ErrUnknownScheme is returned for specifiers that name no known provenance.
var ErrUnknownScheme = errors.New("unknown provenance specifier")

var (
	// scheme matches "name:" prefixes; single letters are left alone for drive paths.
	scheme   = regexp.MustCompile(`^([A-Za-z][A-Za-z0-9+.-]+):`)
	repoPart = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)
)

// Parse turns a specifier into a provenance:
//
//	github:owner/repo[@ref][//path/to/manifest.json]
//	pkg:<requirement> or package:<requirement>
//	sandbox:<dir>
//	<path to a manifest file, or a directory containing one>
func Parse(specifier string) (lifecycle.Provenance, error) {
	specifier = strings.TrimSpace(specifier)
	if specifier == "" {
		return nil, errors.New("empty provenance specifier")
	}

	switch {
	case strings.HasPrefix(specifier, "github:"):
		return parseGitHub(strings.TrimPrefix(specifier, "github:"))
	case strings.HasPrefix(specifier, "pkg:"), strings.HasPrefix(specifier, "package:"):
		req := strings.TrimSpace(specifier[strings.Index(specifier, ":")+1:])
		if req == "" {
			return nil, fmt.Errorf("package specifier %q has no requirement", specifier)
		}
		return provenance.NewPackage(req), nil
	case strings.HasPrefix(specifier, "sandbox:"):
		dir, err := expand(strings.TrimPrefix(specifier, "sandbox:"))
		if err != nil {
			return nil, err
		}
		if dir == "" {
			return nil, fmt.Errorf("sandbox specifier %q has no directory", specifier)
		}
		return provenance.NewSandbox(dir), nil
	case strings.HasPrefix(specifier, "file:"):
		return parsePath(strings.TrimPrefix(specifier, "file:"))
	}

	if m := scheme.FindStringSubmatch(specifier); m != nil {
		return nil, fmt.Errorf("%w: %q (scheme %q)", ErrUnknownScheme, specifier, m[1])
	}
	return parsePath(specifier)
}

func parseGitHub(rest string) (lifecycle.Provenance, error) {
	manifest := ""
	if i := strings.Index(rest, "//"); i >= 0 {
		rest, manifest = rest[:i], rest[i+2:]
		if manifest == "" {
			return nil, fmt.Errorf("github specifier has an empty manifest path")
		}
	}

	ref := ""
	if i := strings.LastIndex(rest, "@"); i >= 0 {
		rest, ref = rest[:i], rest[i+1:]
		if ref == "" {
			return nil, fmt.Errorf("github specifier %q has an empty ref", rest)
		}
	}

	owner, repo, ok := strings.Cut(rest, "/")
	if !ok || !repoPart.MatchString(owner) || !repoPart.MatchString(repo) {
		return nil, fmt.Errorf("github specifier %q must be owner/repo", rest)
	}
	return provenance.NewGitHub(owner, strings.TrimSuffix(repo, ".git"), ref, manifest), nil
}

// parsePath resolves a filesystem specifier. A .json path is always a manifest,
// even when it does not exist yet; inspection reports it as missing.
func parsePath(raw string) (lifecycle.Provenance, error) {
	path, err := expand(raw)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return provenance.NewLocalFile(path), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %q is neither a manifest nor a directory: %v", ErrUnknownScheme, raw, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %q is not a JSON manifest", ErrUnknownScheme, raw)
	}
	manifest := filepath.Join(path, provenance.ManifestFileName)
	if _, err := os.Stat(manifest); err != nil {
		return nil, fmt.Errorf("%w: directory %q has no %s", ErrUnknownScheme, raw, provenance.ManifestFileName)
	}
	return provenance.NewLocalFile(manifest), nil
}

func expand(p string) (string, error) {
	p = strings.TrimSpace(p)
	if p == "" {
		return "", nil
	}
	out, err := homedir.Expand(p)
	if err != nil {
		return "", fmt.Errorf("failed to expand %q: %w", p, err)
	}
	return out, nil
}
