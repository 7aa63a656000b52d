package utils

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		raw    string
		want   time.Time
		wantOK bool
	}{
		{"2024-03-01T10:20:30.123Z", time.Date(2024, 3, 1, 10, 20, 30, 123000000, time.UTC), true},
		{"2024-03-01T12:20:30+02:00", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), true},
		{"2024-03-01 10:20:30", time.Date(2024, 3, 1, 10, 20, 30, 0, time.UTC), true},
		{"1700000000", time.Unix(1700000000, 0).UTC(), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tc := range tests {
		got, ok := ParseTimestamp(tc.raw)
		require.Equal(t, tc.wantOK, ok, tc.raw)
		if ok {
			assert.True(t, tc.want.Equal(got), "%s: got %s", tc.raw, got)
		}
	}
}

func TestParseTimestampOr(t *testing.T) {
	assert.Equal(t, Epoch, ParseTimestampOr("", Epoch))
}

func TestFormatFolderStamp(t *testing.T) {
	ts := time.Date(2023, 12, 24, 9, 5, 7, 0, time.UTC)
	assert.Equal(t, "2023-12-24-09-05-07", FormatFolderStamp(ts, nil))

	plusTwo := time.FixedZone("plus2", 2*60*60)
	assert.Equal(t, "2023-12-24-11-05-07", FormatFolderStamp(ts, plusTwo))
}

func TestCompileUserPattern(t *testing.T) {
	literal, err := CompileUserPattern("Beach")
	require.NoError(t, err)
	assert.True(t, literal.MatchString("a day at the beach"))

	raw, err := CompileUserPattern("^sun(set|rise)$")
	require.NoError(t, err)
	assert.True(t, raw.MatchString("sunset"))
	assert.False(t, raw.MatchString("Sunset"))

	_, err = CompileUserPatterns([]string{"ok", "(?P<"})
	require.Error(t, err)
}

func TestSplitCSV(t *testing.T) {
	assert.Equal(t, []string{"posts", "memories", "x"}, SplitCSV([]string{"posts, memories", " ", "x"}))
}

func TestNormalizeGZShorthand(t *testing.T) {
	got := NormalizeGZShorthand([]string{"-z", "a.zip", "-gz", "b.gz", "-gz=c.gz"})
	assert.Equal(t, []string{"-z", "a.zip", "--log", "b.gz", "--log=c.gz"}, got)
}

func TestWritePrettyJSON_CreatesParents(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "out.json")
	require.NoError(t, WritePrettyJSON(target, map[string]int{"a": 1}))

	raw, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"a\": 1\n}", string(raw))
}
