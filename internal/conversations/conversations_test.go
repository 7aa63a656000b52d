package conversations

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"bereal_explorer/internal/model"
)

type mapSource map[string]string

func (m mapSource) Read(path string) ([]byte, error) {
	content, ok := m[path]
	if !ok {
		return nil, errors.New("missing " + path)
	}
	return []byte(content), nil
}

func (m mapSource) paths() []string {
	out := make([]string, 0, len(m))
	for p := range m {
		out = append(out, p)
	}
	return out
}

func TestMatch(t *testing.T) {
	tests := []struct {
		path   string
		wantID string
		wantOK bool
	}{
		{"conversations/abc/chat_log.json", "abc", true},
		{"export/conversations/abc/chat_log.json", "abc", true},
		{"a/b/conversations/abc/chat_log.json", "", false},
		{"conversations/abc/other.json", "", false},
		{"conversations/abc/nested/chat_log.json", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			id, ok := Match(tt.path)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantID, id)
		})
	}
}

func TestExtract_OrdersMessages(t *testing.T) {
	src := mapSource{
		"conversations/c1/chat_log.json": `{
			"participants":[{"id":"u1","username":"me"},{"id":"u2","username":"you"}],
			"messages":[
				{"id":"m3","userId":"u1","message":"third","createdAt":"2024-01-01T10:00:03Z"},
				{"userId":"u2","message":"first","createdAt":"2024-01-01T10:00:01Z",
				 "media":{"path":"/conversations/abcdefghijklmnopqrstuvwx/c1/clip.mp4","width":320,"height":240}},
				{"id":"m2","userId":"u1","message":"second","createdAt":"2024-01-01T10:00:02Z",
				 "media":{"path":"conversations/c1/pic.webp","mediaType":"image"}}
			]}`,
		"conversations/c1/pic.webp": "binary",
	}
	got, warnings, err := Extract(context.Background(), src, src.paths(), Options{Logger: zaptest.NewLogger(t)})
	require.NoError(t, err)
	assert.Empty(t, warnings)
	require.Len(t, got, 1)

	conversation := got[0]
	assert.Equal(t, "c1", conversation.ID)
	assert.Len(t, conversation.Participants, 2)
	require.Len(t, conversation.Messages, 3)

	for i := 1; i < len(conversation.Messages); i++ {
		assert.False(t, conversation.Messages[i].CreatedAt.Before(conversation.Messages[i-1].CreatedAt))
	}
	first := conversation.Messages[0]
	assert.Equal(t, "c1-msg-1", first.ID)
	assert.Equal(t, "first", first.Content)
	assert.Equal(t, "u2", first.SenderID)
	require.NotNil(t, first.Media)
	assert.Equal(t, "conversations/c1/clip.mp4", first.Media.Path)
	assert.Equal(t, model.MediaVideo, first.Media.Type)
	assert.Equal(t, 320, first.Media.Width)

	assert.Equal(t, model.MediaImage, conversation.Messages[1].Media.Type)
	assert.Nil(t, conversation.Messages[2].Media)
}

func TestExtract_SkipsBadLogs(t *testing.T) {
	src := mapSource{
		"conversations/b/chat_log.json": `{"participants":[]}`,
		"conversations/c/chat_log.json": `not json`,
		"conversations/a/chat_log.json": `{"messages":[{"message":"undated"},{"message":"ok","createdAt":"2024-01-01T00:00:00Z"}]}`,
	}
	got, warnings, err := Extract(context.Background(), src, src.paths(), Options{Parallelism: 2})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "a", got[0].ID)
	assert.NotNil(t, got[0].Participants)
	require.Len(t, got[0].Messages, 1)
	assert.Equal(t, "a-msg-1", got[0].Messages[0].ID)
	assert.Len(t, warnings, 3)
}

func TestExtract_NoLogs(t *testing.T) {
	got, warnings, err := Extract(context.Background(), mapSource{}, []string{"posts.json"}, Options{})
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
	assert.Empty(t, warnings)
}
