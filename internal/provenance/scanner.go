// File: internal/provenance/scanner.go
package provenance

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/python"

	"github.com/xkilldash9x/nodelib/api/schemas"
)

// ScannedNode is a node class found in a Python source file.
type ScannedNode struct {
	ClassName   string
	FilePath    string // relative to the scanned directory, slash separated
	Description string
}

// ScanNodes parses every .py file under dir and returns the top-level classes
// whose base class name ends in "Node". Hidden directories and __pycache__ are
// skipped. Files that cannot be read or parse with errors produce FLAWED issues;
// the classes that could be recognized are still returned.
func ScanNodes(ctx context.Context, dir string) ([]ScannedNode, []schemas.LifecycleIssue, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != dir && (strings.HasPrefix(d.Name(), ".") || d.Name() == "__pycache__") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(d.Name(), ".py") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to walk %s: %w", dir, err)
	}
	sort.Strings(files)

	parser := sitter.NewParser()
	parser.SetLanguage(python.GetLanguage())

	var (
		nodes  []ScannedNode
		issues []schemas.LifecycleIssue
	)
	for _, path := range files {
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		source, err := os.ReadFile(path)
		if err != nil {
			issues = append(issues, schemas.NewIssue(schemas.StatusFlawed, "could not read %s: %v", rel, err))
			continue
		}
		tree, err := parser.ParseCtx(ctx, nil, source)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to parse %s: %w", rel, err)
		}
		root := tree.RootNode()
		if root.HasError() {
			issues = append(issues, schemas.NewIssue(schemas.StatusFlawed,
				"%s contains syntax errors; some nodes may be missing", rel))
		}
		for _, class := range topLevelClasses(root) {
			if !isNodeClass(class, source) {
				continue
			}
			nodes = append(nodes, ScannedNode{
				ClassName:   class.ChildByFieldName("name").Content(source),
				FilePath:    rel,
				Description: docstring(class, source),
			})
		}
		tree.Close()
	}
	return nodes, issues, nil
}

func topLevelClasses(root *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	for i := 0; i < int(root.NamedChildCount()); i++ {
		child := root.NamedChild(i)
		switch child.Type() {
		case "class_definition":
			out = append(out, child)
		case "decorated_definition":
			if def := child.ChildByFieldName("definition"); def != nil && def.Type() == "class_definition" {
				out = append(out, def)
			}
		}
	}
	return out
}

// isNodeClass matches `class X(Base)` where the last dotted segment of any
// positional base ends in "Node".
func isNodeClass(class *sitter.Node, source []byte) bool {
	if class.ChildByFieldName("name") == nil {
		return false
	}
	bases := class.ChildByFieldName("superclasses")
	if bases == nil {
		return false
	}
	for i := 0; i < int(bases.NamedChildCount()); i++ {
		base := bases.NamedChild(i)
		if base.Type() != "identifier" && base.Type() != "attribute" {
			continue
		}
		name := base.Content(source)
		if idx := strings.LastIndex(name, "."); idx >= 0 {
			name = name[idx+1:]
		}
		if strings.HasSuffix(name, "Node") {
			return true
		}
	}
	return false
}

func docstring(class *sitter.Node, source []byte) string {
	body := class.ChildByFieldName("body")
	if body == nil || body.NamedChildCount() == 0 {
		return ""
	}
	first := body.NamedChild(0)
	if first.Type() != "expression_statement" || first.NamedChildCount() == 0 {
		return ""
	}
	str := first.NamedChild(0)
	if str.Type() != "string" {
		return ""
	}
	return unquote(str.Content(source))
}

func unquote(literal string) string {
	s := strings.TrimLeft(literal, "rRbBuUfF")
	for _, q := range []string{`"""`, `'''`, `"`, `'`} {
		if len(s) >= 2*len(q) && strings.HasPrefix(s, q) && strings.HasSuffix(s, q) {
			s = s[len(q) : len(s)-len(q)]
			break
		}
	}
	return strings.TrimSpace(s)
}
