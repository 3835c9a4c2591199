package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	}
	return root
}

func TestWalkerIncludesAndExcludes(t *testing.T) {
	root := writeTree(t, map[string]string{
		"main.go":                  "package main",
		"pkg/util/strings.go":      "package util",
		"README.md":                "# readme",
		"node_modules/lib/x.js":    "x",
		".git/config":              "[core]",
		"web/app.js":               "app",
		"pkg/util/strings_test.go": "package util",
	})

	w := NewWalker([]string{"**/*.go", "**/*.js"}, []string{"node_modules/", ".git/", "**/*_test.go"})
	files, err := w.Walk(root)
	require.NoError(t, err)

	var rels []string
	for _, f := range files {
		rels = append(rels, f.RelPath)
		assert.True(t, filepath.IsAbs(f.Path))
	}
	assert.Equal(t, []string{"main.go", "pkg/util/strings.go", "web/app.js"}, rels)
}

func TestWalkerDefaultIncludesEverything(t *testing.T) {
	root := writeTree(t, map[string]string{"a.txt": "a", "b/c.md": "c"})

	files, err := NewWalker(nil, nil).Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a.txt", files[0].RelPath)
	assert.Equal(t, "b/c.md", files[1].RelPath)
	assert.Equal(t, int64(1), files[0].Size)
}

func TestWalkerMissingRoot(t *testing.T) {
	_, err := NewWalker(nil, nil).Walk(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestWalkerPrunesGlobExcludedDirs(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/a.go":               "package a",
		"src/vendor/dep/b.go":    "package dep",
		".repologic/chunks.go":   "package x",
		"deep/node_modules/c.go": "package c",
	})

	w := NewWalker([]string{"**/*.go"}, []string{"**/vendor/**", "**/.repologic/**", "**/node_modules/**"})
	files, err := w.Walk(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "src/a.go", files[0].RelPath)
}

func TestReadFile(t *testing.T) {
	root := writeTree(t, map[string]string{
		"text.go":  "package main\n",
		"blob.bin": "PK\x00\x03binary",
	})

	content, err := ReadFile(filepath.Join(root, "text.go"))
	require.NoError(t, err)
	assert.Equal(t, "package main\n", content)

	_, err = ReadFile(filepath.Join(root, "blob.bin"))
	assert.ErrorIs(t, err, ErrBinary)

	_, err = ReadFile(filepath.Join(root, "missing.go"))
	assert.Error(t, err)
}

func TestClassify(t *testing.T) {
	cases := map[string][2]string{
		"main.go":       {"Go", ".go"},
		"src/App.TSX":   {"TypeScript", ".tsx"},
		"script.py":     {"Python", ".py"},
		"Makefile":      {"Text", ""},
		"notes.unknown": {"Text", ".unknown"},
	}
	for path, want := range cases {
		lang, ext := Classify(path)
		assert.Equal(t, want[0], lang, path)
		assert.Equal(t, want[1], ext, path)
	}
}
