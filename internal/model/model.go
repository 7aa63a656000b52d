// Package model holds the canonical, source-independent representation of a
// BeReal export. Values are built once per ingestion and treated as
// read-only afterwards.
package model

import (
	"time"
)

type MediaType string

const (
	MediaImage MediaType = "image"
	MediaVideo MediaType = "video"
)

// Media is a stored photo or video. Path is canonical and is the key into the
// media map.
type Media struct {
	Bucket    string    `json:"bucket"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	Path      string    `json:"path"`
	MediaType MediaType `json:"mediaType"`
	MIMEType  string    `json:"mimeType"`
}

// IsZero reports whether m references no stored file.
func (m Media) IsZero() bool {
	return m.Path == ""
}

// IsVideo reports whether m is a video.
func (m Media) IsVideo() bool {
	return m.MediaType == MediaVideo
}

type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Birthdate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	Fullname       string    `json:"fullname"`
	CreatedAt      time.Time `json:"createdAt"`
	ProfilePicture Media     `json:"profilePicture"`
	Device         string    `json:"device"`
	DeviceID       string    `json:"deviceId"`
	Biography      string    `json:"biography"`
	Location       string    `json:"location"`
	Birthdate      Birthdate `json:"birthdate"`
	PhoneNumber    string    `json:"phoneNumber"`
	ClientVersion  string    `json:"clientVersion"`
	Timezone       string    `json:"timezone"`
	Language       string    `json:"language"`
	CountryCode    string    `json:"countryCode"`
	Region         string    `json:"region"`
	Platform       int       `json:"platform"`
}

type FriendStatus string

const (
	FriendStatusFriends FriendStatus = "friends"
	FriendStatusPending FriendStatus = "pending"
)

type Friend struct {
	ID             string       `json:"id"`
	Username       string       `json:"username"`
	Fullname       string       `json:"fullname"`
	Status         FriendStatus `json:"status"`
	FriendshipDate time.Time    `json:"friendshipDate"`
}

type FriendRequest struct {
	ID         string    `json:"id"`
	FromUserID string    `json:"fromUserId"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Author identifies who wrote an annotation. Username is "unknown" when the
// export does not carry it.
type Author struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Comment creation times are not exported; CreatedAt is the unix epoch for
// every comment, so ordering by it is meaningless.
type Comment struct {
	ID        string    `json:"id"`
	PostID    string    `json:"postId"`
	Author    Author    `json:"author"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

type Realmoji struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	Emoji     string    `json:"emoji"`
	Media     Media     `json:"media"`
	IsEnabled bool      `json:"isEnabled"`
	IsInstant bool      `json:"isInstant"`
	Author    Author    `json:"author"`
}

type PushSettings map[string]bool

type PushToken struct {
	Token         string `json:"token"`
	OS            string `json:"os"`
	ClientVersion string `json:"clientVersion"`
	Language      string `json:"language"`
	Region        string `json:"region"`
	Timezone      string `json:"timezone"`
}

type Term struct {
	Code     string    `json:"code"`
	Status   string    `json:"status"`
	Version  int       `json:"version"`
	TermURL  string    `json:"termUrl"`
	SignedAt time.Time `json:"signedAt"`
}

// AnalyticsEvent is one decoded event-log record, passed through as-is.
type AnalyticsEvent map[string]any

// BeRealData is the aggregate root. A nil collection means the export did not
// contain (or could not parse) the file; a non-nil empty one means the file
// was present with no records.
type BeRealData struct {
	User           *User            `json:"user"`
	Friends        []Friend         `json:"friends"`
	FriendRequests []FriendRequest  `json:"friendRequests"`
	Posts          []Post           `json:"posts"`
	Memories       []Memory         `json:"memories"`
	Comments       []Comment        `json:"comments"`
	Realmojis      []Realmoji       `json:"realmojis"`
	PushSettings   PushSettings     `json:"pushSettings"`
	PushTokens     []PushToken      `json:"pushTokens"`
	Terms          []Term           `json:"terms"`
	Conversations  []Conversation   `json:"conversations"`
	Analytics      []AnalyticsEvent `json:"analytics"`
}

// Captures returns posts followed by memories behind the shared Capture surface.
func (d *BeRealData) Captures() []Capture {
	out := make([]Capture, 0, len(d.Posts)+len(d.Memories))
	for i := range d.Posts {
		out = append(out, &d.Posts[i])
	}
	for i := range d.Memories {
		out = append(out, &d.Memories[i])
	}
	return out
}

// FindCapture looks a capture up by id across posts and memories.
func (d *BeRealData) FindCapture(id string) (Capture, bool) {
	for _, capture := range d.Captures() {
		if capture.CaptureID() == id {
			return capture, true
		}
	}
	return nil, false
}

// Warning records a tolerated failure: a source file that could not be
// parsed, or an entry that was dropped.
type Warning struct {
	Stage   string `json:"stage"`
	Source  string `json:"source"`
	Message string `json:"message"`
}
