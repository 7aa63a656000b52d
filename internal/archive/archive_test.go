package archive

import (
	"archive/zip"
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for name, content := range files {
		entryWriter, err := writer.Create(name)
		require.NoError(t, err)
		if content != "" {
			_, err = entryWriter.Write([]byte(content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, writer.Close())
	return buf.Bytes()
}

func filePaths(a *Archive) []string {
	var out []string
	for _, entry := range a.ListEntries() {
		if !entry.IsDirectory {
			out = append(out, entry.Path)
		}
	}
	return out
}

func TestOpen_WrappedAndFlatResolveSameFiles(t *testing.T) {
	flat := buildZip(t, map[string]string{
		"user.json":               `{"username":"sam"}`,
		"Photos/":                 "",
		"Photos/post/a.webp":      "img",
		"conversations/c1/x.json": "{}",
	})
	wrapped := buildZip(t, map[string]string{
		"export-2024/":                        "",
		"export-2024/user.json":               `{"username":"sam"}`,
		"export-2024/Photos/":                 "",
		"export-2024/Photos/post/a.webp":      "img",
		"export-2024/conversations/c1/x.json": "{}",
		"__MACOSX/export-2024/._user.json":    "junk",
	})

	flatArchive, err := Open(flat)
	require.NoError(t, err)
	wrappedArchive, err := Open(wrapped)
	require.NoError(t, err)

	assert.Equal(t, "", flatArchive.Root())
	assert.Equal(t, "export-2024", wrappedArchive.Root())
	assert.Equal(t, filePaths(flatArchive), filePaths(wrappedArchive))

	content, err := wrappedArchive.Read("user.json")
	require.NoError(t, err)
	assert.Equal(t, `{"username":"sam"}`, string(content))
}

func TestOpen_TwoTopLevelFoldersIsNotWrapped(t *testing.T) {
	data := buildZip(t, map[string]string{
		"Photos/post/a.webp":     "a",
		"profile-pictures/p.jpg": "p",
	})
	a, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, "", a.Root())
	assert.True(t, a.Has("Photos/post/a.webp"))
}

func TestOpen_Corrupt(t *testing.T) {
	_, err := Open([]byte("definitely not a zip"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrArchiveCorrupt))
}

func TestRead_Missing(t *testing.T) {
	a, err := Open(buildZip(t, map[string]string{"user.json": "{}", "Photos/": ""}))
	require.NoError(t, err)

	_, err = a.Read("posts.json")
	assert.True(t, errors.Is(err, ErrEntryNotFound))

	_, err = a.Read("Photos")
	assert.True(t, errors.Is(err, ErrEntryNotFound), "directories are not readable")
}

func TestBundle_RoundTrip(t *testing.T) {
	modified := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	bundle := NewBundle(modified)
	require.NoError(t, bundle.AddFile("2024-01-02-03-04-05/primary.jpg", []byte("p")))
	require.NoError(t, bundle.AddFile("2024-01-02-03-04-05/secondary.jpg", []byte("s")))
	assert.Equal(t, 2, bundle.Len())

	data, err := bundle.Bytes()
	require.NoError(t, err)
	require.Error(t, bundle.AddFile("late.jpg", nil))

	reopened, err := Open(data)
	require.NoError(t, err)
	assert.Equal(t, "2024-01-02-03-04-05", reopened.Root())
	content, err := reopened.Read("secondary.jpg")
	require.NoError(t, err)
	assert.Equal(t, "s", string(content))
}
