package archive

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeZip(t *testing.T, entries map[string]string) string {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "test-*.zip")
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range entries {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return f.Name()
}

func TestExtractZip_WritesFiles(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"index.html":        "<html></html>",
		"assets/style.css":  "body{}",
	})
	destDir := t.TempDir()

	err := ExtractZip(zipPath, destDir)
	require.NoError(t, err)

	indexBytes, err := os.ReadFile(filepath.Join(destDir, "index.html"))
	require.NoError(t, err)
	assert.Equal(t, "<html></html>", string(indexBytes))

	cssBytes, err := os.ReadFile(filepath.Join(destDir, "assets", "style.css"))
	require.NoError(t, err)
	assert.Equal(t, "body{}", string(cssBytes))
}

func TestExtractZip_RejectsZipSlip(t *testing.T) {
	zipPath := writeZip(t, map[string]string{
		"../../etc/passwd": "pwned",
	})
	destDir := t.TempDir()

	err := ExtractZip(zipPath, destDir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "zip slip")
}

func TestExtractZip_CreatesDestDirIfMissing(t *testing.T) {
	zipPath := writeZip(t, map[string]string{"a.txt": "a"})
	destDir := filepath.Join(t.TempDir(), "nested", "dest")

	err := ExtractZip(zipPath, destDir)
	require.NoError(t, err)

	_, err = os.Stat(destDir)
	assert.NoError(t, err)
}
