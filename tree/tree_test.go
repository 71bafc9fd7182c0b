package tree

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMaterializeHierarchy(t *testing.T) {
	root := t.TempDir()

	got, err := Materialize(root, Tree{
		"a": Tree{
			"b": []byte("hello"),
			"c": Tree{},
		},
		"d": nil,
	})
	require.NoError(t, err)
	require.Equal(t, root, got)

	content, err := os.ReadFile(filepath.Join(root, "a", "b"))
	require.NoError(t, err)
	require.Equal(t, "hello", string(content))

	info, err := os.Stat(filepath.Join(root, "a", "c"))
	require.NoError(t, err)
	require.True(t, info.IsDir())

	entries, err := os.ReadDir(filepath.Join(root, "a", "c"))
	require.NoError(t, err)
	require.Empty(t, entries)

	info, err = os.Stat(filepath.Join(root, "d"))
	require.NoError(t, err)
	require.False(t, info.IsDir())
	require.Zero(t, info.Size())
}

func TestMaterializeEmptySpec(t *testing.T) {
	root := t.TempDir()

	got, err := Materialize(root, Tree{})
	require.NoError(t, err)
	require.Equal(t, root, got)

	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	require.Empty(t, entries)
}

func TestMaterializeOverExistingDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "sub", "deep"), 0o755))

	_, err := Materialize(root, Tree{
		"sub": Tree{
			"deep": Tree{
				"file": "data",
			},
		},
	})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "sub", "deep", "file"))
	require.NoError(t, err)
	require.Equal(t, "data", string(content))
}

func TestMaterializeTruncatesExistingFile(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "f"), []byte("stale and long"), 0o644))

	_, err := Materialize(root, Tree{"f": []byte("new")})
	require.NoError(t, err)

	content, err := os.ReadFile(filepath.Join(root, "f"))
	require.NoError(t, err)
	require.Equal(t, "new", string(content))
}

func TestMaterializeRejectsUnsupportedValue(t *testing.T) {
	root := t.TempDir()

	_, err := Materialize(root, Tree{"bad": 42})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unsupported value type")
}

func TestMaterializeRoundTrip(t *testing.T) {
	spec := Tree{
		"docs": Tree{
			"readme":  "top level",
			"archive": Tree{},
			"img": map[string]any{
				"logo.png": []byte{0x89, 0x50, 0x4e, 0x47},
			},
		},
		"empty":  nil,
		"config": []byte("key = value\n"),
	}

	root := t.TempDir()
	_, err := Materialize(root, spec)
	require.NoError(t, err)

	require.Equal(t, normalize(spec), readTree(t, root))
}

// readTree walks dir back into a Tree with []byte leaves.
func readTree(t *testing.T, dir string) Tree {
	t.Helper()

	out := Tree{}
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)

	for _, entry := range entries {
		p := filepath.Join(dir, entry.Name())
		if entry.IsDir() {
			out[entry.Name()] = readTree(t, p)
		} else {
			data, err := os.ReadFile(p)
			require.NoError(t, err)
			out[entry.Name()] = data
		}
	}
	return out
}

// normalize rewrites a spec into the shape readTree produces: string
// content as []byte, absent content as a zero-length []byte.
func normalize(spec Tree) Tree {
	out := Tree{}
	for name, value := range spec {
		switch v := value.(type) {
		case Tree:
			out[name] = normalize(v)
		case map[string]any:
			out[name] = normalize(Tree(v))
		case string:
			out[name] = []byte(v)
		case nil:
			out[name] = []byte{}
		default:
			out[name] = value
		}
	}
	return out
}
