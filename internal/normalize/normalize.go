// Package normalize maps the JSON files of a BeReal export into the
// canonical model. A missing or malformed file leaves only its own
// collection absent; a malformed record is dropped with a warning.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"bereal_explorer/internal/model"
)

const (
	FileUser           = "user.json"
	FileFriends        = "friends.json"
	FileFriendRequests = "friend-requests.json"
	FilePosts          = "posts.json"
	FileMemories       = "memories.json"
	FileComments       = "comments.json"
	FileRealmojis      = "realmojis.json"
	FilePushSettings   = "push-settings.json"
	FilePushTokens     = "push-tokens.json"
	FileTerms          = "terms.json"
)

const stage = "schema"

// Source is the data root of an export archive.
type Source interface {
	Has(path string) bool
	Read(path string) ([]byte, error)
}

type Options struct {
	Logger *zap.Logger
}

// warnings is a concurrency-safe warning list.
type warnings struct {
	mu    sync.Mutex
	items []model.Warning
}

func (w *warnings) add(source, format string, args ...any) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.items = append(w.items, model.Warning{Stage: stage, Source: source, Message: fmt.Sprintf(format, args...)})
}

func (w *warnings) list() []model.Warning {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]model.Warning, len(w.items))
	copy(out, w.items)
	return out
}

// entry is a decoded array element with its position in the source file.
type entry[T any] struct {
	index int
	value T
}

type rawFiles struct {
	user           *rawUser
	friends        []entry[rawFriend]
	friendRequests []entry[rawFriendRequest]
	posts          []entry[rawPost]
	memories       []entry[rawMemory]
	comments       []entry[rawComment]
	realmojis      []entry[rawRealmoji]
	pushSettings   model.PushSettings
	pushTokens     []entry[rawPushToken]
	terms          []entry[rawTerm]
}

// Normalize reads every known top-level JSON file concurrently and maps what
// it finds. It only fails when ctx is cancelled.
func Normalize(ctx context.Context, src Source, opts Options) (*model.BeRealData, []model.Warning, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	warn := &warnings{}
	raw := &rawFiles{}

	group, groupCtx := errgroup.WithContext(ctx)
	parse := func(fn func()) {
		group.Go(func() error {
			if groupCtx.Err() != nil {
				return groupCtx.Err()
			}
			fn()
			return nil
		})
	}
	parse(func() { raw.user = parseObject[rawUser](src, FileUser, warn) })
	parse(func() { raw.friends = parseList[rawFriend](src, FileFriends, warn) })
	parse(func() { raw.friendRequests = parseList[rawFriendRequest](src, FileFriendRequests, warn) })
	parse(func() { raw.posts = parseList[rawPost](src, FilePosts, warn) })
	parse(func() { raw.memories = parseList[rawMemory](src, FileMemories, warn) })
	parse(func() { raw.comments = parseList[rawComment](src, FileComments, warn) })
	parse(func() { raw.realmojis = parseList[rawRealmoji](src, FileRealmojis, warn) })
	parse(func() {
		if settings := parseObject[model.PushSettings](src, FilePushSettings, warn); settings != nil {
			raw.pushSettings = *settings
			if raw.pushSettings == nil {
				raw.pushSettings = model.PushSettings{}
			}
		}
	})
	parse(func() { raw.pushTokens = parseList[rawPushToken](src, FilePushTokens, warn) })
	parse(func() { raw.terms = parseList[rawTerm](src, FileTerms, warn) })
	if waitErr := group.Wait(); waitErr != nil {
		return nil, nil, waitErr
	}

	data := &model.BeRealData{}
	if raw.user != nil {
		user := mapUser(raw.user)
		data.User = &user
	}
	ownerID := ""
	if data.User != nil {
		ownerID = data.User.ID
	}
	data.Friends = mapFriends(raw.friends)
	data.FriendRequests = mapFriendRequests(raw.friendRequests)
	data.Posts = mapPosts(raw.posts)
	data.Memories = mapMemories(raw.memories, warn)
	data.Comments = mapComments(raw.comments, ownerID)
	data.Realmojis = mapRealmojis(raw.realmojis)
	data.PushSettings = raw.pushSettings
	data.PushTokens = mapPushTokens(raw.pushTokens)
	data.Terms = mapTerms(raw.terms)

	collected := warn.list()
	for _, w := range collected {
		logger.Warn("schema normalization", zap.String("source", w.Source), zap.String("reason", w.Message))
	}
	logger.Info("schema normalized",
		zap.Bool("user", data.User != nil),
		zap.Int("posts", len(data.Posts)),
		zap.Int("memories", len(data.Memories)),
		zap.Int("friends", len(data.Friends)),
		zap.Int("warnings", len(collected)),
	)
	return data, collected, nil
}

func readOptional(src Source, name string, warn *warnings) ([]byte, bool) {
	if !src.Has(name) {
		return nil, false
	}
	content, readErr := src.Read(name)
	if readErr != nil {
		warn.add(name, "read: %v", readErr)
		return nil, false
	}
	return content, true
}

// parseObject returns nil when the file is absent or malformed.
func parseObject[T any](src Source, name string, warn *warnings) *T {
	content, ok := readOptional(src, name, warn)
	if !ok {
		return nil
	}
	var value T
	if unmarshalErr := json.Unmarshal(content, &value); unmarshalErr != nil {
		warn.add(name, "parse: %v", unmarshalErr)
		return nil
	}
	return &value
}

// parseList returns nil when the file is absent or is not a JSON array, and a
// non-nil slice otherwise. Elements that fail to decode are dropped.
func parseList[T any](src Source, name string, warn *warnings) []entry[T] {
	content, ok := readOptional(src, name, warn)
	if !ok {
		return nil
	}
	var elements []json.RawMessage
	if unmarshalErr := json.Unmarshal(content, &elements); unmarshalErr != nil {
		warn.add(name, "parse: %v", unmarshalErr)
		return nil
	}
	out := make([]entry[T], 0, len(elements))
	for index, element := range elements {
		var value T
		if elementErr := json.Unmarshal(element, &value); elementErr != nil {
			warn.add(name, "drop entry %d: %v", index, elementErr)
			continue
		}
		out = append(out, entry[T]{index: index, value: value})
	}
	return out
}
