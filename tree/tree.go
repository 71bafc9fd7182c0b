// Package tree materializes a described file hierarchy on disk, for tests
// that need directory fixtures.
package tree

import (
	"fmt"
	"os"
	"path/filepath"
)

// Tree describes a file hierarchy. A nested Tree (or map[string]any) value
// is a subdirectory; a []byte or string value is the content of a file; nil
// is an empty file.
//
// For example
//
//	Tree{
//		"relative": Tree{
//			"empty_folder": Tree{},
//			"empty_file":   nil,
//			"filename":     []byte("content"),
//		},
//	}
//
// yields a directory "relative" holding an empty directory, an empty file
// and a file with content.
type Tree map[string]any

// Materialize creates the hierarchy described by spec under root and
// returns root. Directories are created idempotently, parents included;
// files are created or truncated. Sibling order is not significant.
// Filesystem faults propagate.
func Materialize(root string, spec Tree) (string, error) {
	if err := create(root, spec); err != nil {
		return "", err
	}
	return root, nil
}

func create(base string, spec Tree) error {
	for name, value := range spec {
		target := filepath.Join(base, name)

		switch v := value.(type) {
		case Tree:
			if err := mkdir(target, v); err != nil {
				return err
			}
		case map[string]any:
			if err := mkdir(target, Tree(v)); err != nil {
				return err
			}
		case []byte:
			if err := os.WriteFile(target, v, 0o644); err != nil {
				return err
			}
		case string:
			if err := os.WriteFile(target, []byte(v), 0o644); err != nil {
				return err
			}
		case nil:
			if err := os.WriteFile(target, nil, 0o644); err != nil {
				return err
			}
		default:
			return fmt.Errorf("tree: unsupported value type %T for %q", value, name)
		}
	}
	return nil
}

func mkdir(target string, children Tree) error {
	if err := os.MkdirAll(target, 0o755); err != nil {
		return err
	}
	return create(target, children)
}
