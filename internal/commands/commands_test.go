package commands

import (
	"archive/zip"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"gopkg.in/yaml.v3"

	"bereal_explorer/internal/progress"
	"bereal_explorer/internal/utils"
)

const bucket = "AbCdEfGhIjKlMnOpQrStUv12"

// writeFixture writes a small export zip and event log into a temp folder.
func writeFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	posts := fmt.Sprintf(`[{"id":"p1","caption":"beach day",
		"primary":{"path":"/Photos/%[1]s/post/front.webp"},
		"secondary":{"path":"/Photos/%[1]s/post/back.webp"},
		"btsMedia":{"path":"/Photos/%[1]s/bereal/bts.mp4"},
		"takenAt":"2024-03-01T10:00:00.000Z"}]`, bucket)
	files := map[string]string{
		"user.json":  `{"id":"owner","username":"me"}`,
		"posts.json": posts,
		"memories.json": `[{"frontImage":{"path":"Photos/m/front.webp"},"backImage":{"path":"Photos/m/back.webp"},
			"berealMoment":"2024-03-02T10:00:00Z","takenTime":"2024-03-02T10:00:05Z"}]`,
		"friends.json":                        `not json`,
		"Photos/" + bucket + "/post/front.webp": "front",
		"Photos/" + bucket + "/post/back.webp":  "back",
		"Photos/" + bucket + "/bereal/bts.mp4":  "video",
		"Photos/m/front.webp":                   "mfront",
		"Photos/m/back.webp":                    "mback",
		"conversations/c1/chat_log.json": `{"participants":[{"id":"owner","username":"me"}],
			"messages":[{"message":"b","createdAt":"2024-01-01T00:00:02Z"},{"message":"a","createdAt":"2024-01-01T00:00:01Z"}]}`,
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var zipBuf bytes.Buffer
	zipWriter := zip.NewWriter(&zipBuf)
	for _, name := range names {
		entryWriter, createErr := zipWriter.Create(name)
		require.NoError(t, createErr)
		_, writeErr := entryWriter.Write([]byte(files[name]))
		require.NoError(t, writeErr)
	}
	require.NoError(t, zipWriter.Close())

	var logBuf bytes.Buffer
	gzWriter := gzip.NewWriter(&logBuf)
	_, writeErr := gzWriter.Write([]byte("{\"event\":\"open\"}\n{\"event\":\"close\"}\n"))
	require.NoError(t, writeErr)
	require.NoError(t, gzWriter.Close())

	zipPath := filepath.Join(dir, "export.zip")
	logPath := filepath.Join(dir, "events.gz")
	require.NoError(t, os.WriteFile(zipPath, zipBuf.Bytes(), 0o644))
	require.NoError(t, os.WriteFile(logPath, logBuf.Bytes(), 0o644))
	return zipPath, logPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	t.Setenv("BEREAL_EXPORT_TIMEZONE", "UTC")
	a := newApp()
	rootCmd := a.rootCommand()
	var stdout, stderr bytes.Buffer
	rootCmd.SetOut(&stdout)
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(utils.NormalizeGZShorthand(args))
	err := rootCmd.Execute()
	return stdout.String(), err
}

func TestSummary_JSON(t *testing.T) {
	zipPath, logPath := writeFixture(t)

	out, err := run(t, "summary", "-f", zipPath, "--log", logPath, "--log-level", "error")
	require.NoError(t, err)

	var s exportSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "me", s.Username)
	assert.Equal(t, 1, s.Posts)
	assert.Equal(t, 1, s.Memories)
	assert.Equal(t, 0, s.Friends)
	assert.Equal(t, 1, s.Conversations)
	assert.Equal(t, 2, s.Messages)
	assert.Equal(t, 2, s.Events)
	assert.Equal(t, 6, s.Media)
	assert.GreaterOrEqual(t, s.Warnings, 1)
	assert.NotEmpty(t, s.Session)
}

func TestSummary_YAMLWithGZShorthand(t *testing.T) {
	zipPath, logPath := writeFixture(t)

	out, err := run(t, "summary", "-f", zipPath, "-gz", logPath, "--format", "yaml", "--log-level", "error")
	require.NoError(t, err)

	var s exportSummary
	require.NoError(t, yaml.Unmarshal([]byte(out), &s))
	assert.Equal(t, 1, s.Posts)
	assert.Equal(t, 2, s.Messages)
}

func TestSummary_Errors(t *testing.T) {
	zipPath, logPath := writeFixture(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{name: "no zip", args: []string{"summary", "--log", logPath}, want: "--file"},
		{name: "no log", args: []string{"summary", "-f", zipPath}, want: "--log"},
		{name: "format", args: []string{"summary", "-f", zipPath, "--log", logPath, "--format", "xml"}, want: "unknown format"},
		{name: "log level", args: []string{"summary", "-f", zipPath, "--log", logPath, "--log-level", "loud"}, want: "log level"},
		{name: "swapped inputs", args: []string{"summary", "-f", logPath, "--log", zipPath, "--log-level", "error"}, want: "invalid file type"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, tt.args...)
			require.Error(t, err)
			assert.Contains(t, strings.ToLower(err.Error()), tt.want)
		})
	}
}

func TestExtract_WritesOutputFolder(t *testing.T) {
	zipPath, logPath := writeFixture(t)
	outputRoot := filepath.Join(t.TempDir(), "out")

	_, err := run(t, "extract", "-f", zipPath, "--log", logPath, "-o", outputRoot, "--log-level", "error")
	require.NoError(t, err)

	dataBytes, readErr := os.ReadFile(filepath.Join(outputRoot, "data.json"))
	require.NoError(t, readErr)
	assert.Contains(t, string(dataBytes), `"p1"`)
	assert.FileExists(t, filepath.Join(outputRoot, "warnings.json"))

	video, videoErr := os.ReadFile(filepath.Join(outputRoot, "media", "Photos", bucket, "bereal", "bts.mp4"))
	require.NoError(t, videoErr)
	assert.Equal(t, "video", string(video))

	_, err = run(t, "extract", "-f", zipPath, "--log", logPath)
	assert.ErrorContains(t, err, "--output")
}

func TestExport_SingleVideo(t *testing.T) {
	zipPath, logPath := writeFixture(t)
	outputRoot := t.TempDir()

	out, err := run(t, "export", "-f", zipPath, "--log", logPath, "--id", "p1", "--name", "trip", "-o", outputRoot, "--log-level", "error")
	require.NoError(t, err)

	targetPath := filepath.Join(outputRoot, "trip.mp4")
	assert.Equal(t, targetPath, strings.TrimSpace(out))
	content, readErr := os.ReadFile(targetPath)
	require.NoError(t, readErr)
	assert.Equal(t, "video", string(content))
}

func TestExport_BatchBoth(t *testing.T) {
	zipPath, logPath := writeFixture(t)
	outputRoot := t.TempDir()

	_, err := run(t, "export", "-f", zipPath, "--log", logPath, "--mode", "both", "-o", outputRoot, "--log-level", "error")
	require.NoError(t, err)

	reader, openErr := zip.OpenReader(filepath.Join(outputRoot, "bereal.zip"))
	require.NoError(t, openErr)
	defer reader.Close()
	names := make([]string, 0, len(reader.File))
	for _, f := range reader.File {
		names = append(names, f.Name)
	}
	assert.ElementsMatch(t, []string{
		"2024-03-01-10-00-00/video.mp4",
		"2024-03-01-10-00-00/primary.jpg",
		"2024-03-01-10-00-00/secondary.jpg",
		"2024-03-02-10-00-05/primary.jpg",
		"2024-03-02-10-00-05/secondary.jpg",
	}, names)
}

func TestExport_Selection(t *testing.T) {
	zipPath, logPath := writeFixture(t)
	outputRoot := t.TempDir()

	_, err := run(t, "export", "-f", zipPath, "--log", logPath, "--kind", "memory", "-p", "beach", "-o", outputRoot, "--log-level", "error")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no captures matched")
	assert.Contains(t, err.Error(), `kind(s) "memory"`)

	_, err = run(t, "export", "-f", zipPath, "--log", logPath, "--mode", "gif", "-o", outputRoot)
	assert.ErrorContains(t, err, "unknown download mode")

	_, err = run(t, "export", "-f", zipPath, "--log", logPath, "--since", "yesterday", "-o", outputRoot)
	assert.ErrorContains(t, err, "--since")
}

func TestParseBound(t *testing.T) {
	loc := time.FixedZone("test", 2*3600)

	day, err := parseBound("2024-03-01", "--since", loc)
	require.NoError(t, err)
	assert.True(t, day.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, loc)))

	stamp, err := parseBound("2024-03-01T10:00:00Z", "--since", loc)
	require.NoError(t, err)
	assert.True(t, stamp.Equal(time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)))

	zero, err := parseBound("", "--until", loc)
	require.NoError(t, err)
	assert.True(t, zero.IsZero())

	_, err = parseBound("soon", "--until", loc)
	assert.ErrorContains(t, err, "--until")
}

func TestRenderProgress(t *testing.T) {
	events := func() <-chan progress.Event {
		ch := make(chan progress.Event, 2)
		ch <- progress.Event{Total: progress.Total, Loaded: 2, Message: "Starting data parsing..."}
		ch <- progress.Event{Total: progress.Total, Loaded: 100, Message: "Done!"}
		close(ch)
		return ch
	}

	var buf bytes.Buffer
	renderProgress(events(), &buf, true, zap.NewNop())
	assert.Contains(t, buf.String(), "\r[  2%] Starting data parsing...")
	assert.Contains(t, buf.String(), "\r[100%] Done!")
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	core, logs := observer.New(zap.DebugLevel)
	buf.Reset()
	renderProgress(events(), &buf, false, zap.New(core))
	assert.Empty(t, buf.String())
	assert.Equal(t, 2, logs.FilterMessage("progress").Len())
}
