// Package conversations rebuilds chat threads from the per-conversation
// chat_log.json files of an export.
package conversations

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bereal_explorer/internal/model"
	"bereal_explorer/internal/paths"
	"bereal_explorer/internal/utils"
)

const stage = "conversations"

var reChatLog = regexp.MustCompile(`^(?:[^/]+/)?conversations/([^/]+)/chat_log\.json$`)

// Source reads archive entries by path.
type Source interface {
	Read(path string) ([]byte, error)
}

type Options struct {
	Logger *zap.Logger
	// Parallelism bounds concurrent log parses; 0 means unbounded.
	Parallelism int
}

type rawChatLog struct {
	Participants []model.Participant `json:"participants"`
	Messages     []json.RawMessage   `json:"messages"`
}

type rawMessage struct {
	ID        string           `json:"id"`
	UserID    string           `json:"userId"`
	Message   string           `json:"message"`
	CreatedAt string           `json:"createdAt"`
	Media     *rawMessageMedia `json:"media"`
}

type rawMessageMedia struct {
	Path      string  `json:"path"`
	Width     float64 `json:"width"`
	Height    float64 `json:"height"`
	MediaType string  `json:"mediaType"`
}

type parsed struct {
	conversation *model.Conversation
	warnings     []model.Warning
}

// Match returns the conversation id when entryPath is a chat log.
func Match(entryPath string) (string, bool) {
	groups := reChatLog.FindStringSubmatch(entryPath)
	if groups == nil {
		return "", false
	}
	return groups[1], true
}

// Extract parses every chat log among entryPaths. Logs that cannot be read or
// carry no messages list are skipped with a warning. The result is sorted by
// conversation id and is never nil.
func Extract(ctx context.Context, src Source, entryPaths []string, opts Options) ([]model.Conversation, []model.Warning, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	type candidate struct {
		path string
		id   string
	}
	var candidates []candidate
	for _, entryPath := range entryPaths {
		if id, ok := Match(entryPath); ok {
			candidates = append(candidates, candidate{path: entryPath, id: id})
		}
	}

	results := make([]parsed, len(candidates))
	group, groupCtx := errgroup.WithContext(ctx)
	if opts.Parallelism > 0 {
		group.SetLimit(opts.Parallelism)
	}
	for index, c := range candidates {
		index, c := index, c
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			results[index] = parseLog(src, c.path, c.id)
			return nil
		})
	}
	if waitErr := group.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	conversations := make([]model.Conversation, 0, len(results))
	var warnings []model.Warning
	for _, result := range results {
		warnings = append(warnings, result.warnings...)
		if result.conversation != nil {
			conversations = append(conversations, *result.conversation)
		}
	}
	sort.Slice(conversations, func(i, j int) bool {
		return conversations[i].ID < conversations[j].ID
	})

	for _, w := range warnings {
		logger.Warn("conversation entry skipped", zap.String("source", w.Source), zap.String("reason", w.Message))
	}
	logger.Info("conversations extracted",
		zap.Int("logs", len(candidates)),
		zap.Int("conversations", len(conversations)),
	)
	return conversations, warnings, nil
}

func parseLog(src Source, entryPath, conversationID string) parsed {
	var out parsed
	warn := func(format string, args ...any) {
		out.warnings = append(out.warnings, model.Warning{Stage: stage, Source: entryPath, Message: fmt.Sprintf(format, args...)})
	}

	content, readErr := src.Read(entryPath)
	if readErr != nil {
		warn("read: %v", readErr)
		return out
	}
	var chatLog rawChatLog
	if unmarshalErr := json.Unmarshal(content, &chatLog); unmarshalErr != nil {
		warn("parse: %v", unmarshalErr)
		return out
	}
	if chatLog.Messages == nil {
		warn("no messages list")
		return out
	}

	messages := make([]model.ChatMessage, 0, len(chatLog.Messages))
	for index, element := range chatLog.Messages {
		var raw rawMessage
		if elementErr := json.Unmarshal(element, &raw); elementErr != nil {
			warn("drop message %d: %v", index, elementErr)
			continue
		}
		createdAt, ok := utils.ParseTimestamp(raw.CreatedAt)
		if !ok {
			warn("drop message %d: createdAt %q", index, raw.CreatedAt)
			continue
		}
		id := raw.ID
		if id == "" {
			id = fmt.Sprintf("%s-msg-%d", conversationID, index)
		}
		messages = append(messages, model.ChatMessage{
			ID:        id,
			SenderID:  raw.UserID,
			Content:   raw.Message,
			CreatedAt: createdAt,
			Media:     mapMessageMedia(raw.Media),
		})
	}
	sort.SliceStable(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})

	participants := chatLog.Participants
	if participants == nil {
		participants = []model.Participant{}
	}
	out.conversation = &model.Conversation{
		ID:           conversationID,
		Participants: participants,
		Messages:     messages,
	}
	return out
}

func mapMessageMedia(raw *rawMessageMedia) *model.MessageMedia {
	if raw == nil {
		return nil
	}
	canonical := paths.Normalize(raw.Path)
	mediaType := model.MediaType(strings.ToLower(raw.MediaType))
	if mediaType != model.MediaImage && mediaType != model.MediaVideo {
		mediaType = model.MediaType(paths.MediaType(canonical))
	}
	return &model.MessageMedia{
		Path:   canonical,
		Width:  int(raw.Width),
		Height: int(raw.Height),
		Type:   mediaType,
	}
}
