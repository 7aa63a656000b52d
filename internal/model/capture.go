package model

import "time"

type CaptureKind string

const (
	KindPost   CaptureKind = "post"
	KindMemory CaptureKind = "memory"
)

// Capture is the surface shared by posts and memories: a primary and a
// secondary photo, an optional behind-the-scenes media, and timing.
type Capture interface {
	CaptureID() string
	Kind() CaptureKind
	Primary() Media
	Secondary() Media
	// BTS returns the behind-the-scenes media; ok is false when there is none.
	BTS() (Media, bool)
	TakenAt() time.Time
	Caption() string
	// LateInSeconds is the signed delay between the prompt and the capture.
	LateInSeconds() int64
}

type Post struct {
	ID             string    `json:"id"`
	PrimaryImage   Media     `json:"primary"`
	SecondaryImage Media     `json:"secondary"`
	BTSMedia       *Media    `json:"btsMedia,omitempty"`
	RetakeCounter  int       `json:"retakeCounter"`
	Visibility     []string  `json:"visibility"`
	Taken          time.Time `json:"takenAt"`
	CaptionText    string    `json:"caption,omitempty"`
	Location       *Location `json:"location,omitempty"`
}

func (p *Post) CaptureID() string    { return p.ID }
func (p *Post) Kind() CaptureKind    { return KindPost }
func (p *Post) Primary() Media       { return p.PrimaryImage }
func (p *Post) Secondary() Media     { return p.SecondaryImage }
func (p *Post) TakenAt() time.Time   { return p.Taken }
func (p *Post) Caption() string      { return p.CaptionText }
func (p *Post) LateInSeconds() int64 { return 0 }

func (p *Post) BTS() (Media, bool) {
	if p.BTSMedia == nil || p.BTSMedia.IsZero() {
		return Media{}, false
	}
	return *p.BTSMedia, true
}

type Music struct {
	Track      string `json:"track"`
	Artist     string `json:"artist"`
	OpenURL    string `json:"openUrl"`
	Artwork    string `json:"artwork"`
	ProviderID string `json:"providerId"`
	ISRC       string `json:"isrc"`
	Visibility string `json:"visibility"`
	AudioType  string `json:"audioType"`
	Provider   string `json:"provider"`
}

type Memory struct {
	ID           string    `json:"id"`
	FrontImage   Media     `json:"frontImage"`
	BackImage    Media     `json:"backImage"`
	BTSMedia     *Media    `json:"btsMedia,omitempty"`
	IsLate       bool      `json:"isLate"`
	Date         string    `json:"date"`
	TakenTime    time.Time `json:"takenTime"`
	BerealMoment time.Time `json:"berealMoment"`
	CaptionText  string    `json:"caption,omitempty"`
	Location     *Location `json:"location,omitempty"`
	Music        *Music    `json:"music,omitempty"`
	Lateness     int64     `json:"lateInSeconds"`
}

func (m *Memory) CaptureID() string    { return m.ID }
func (m *Memory) Kind() CaptureKind    { return KindMemory }
func (m *Memory) Primary() Media       { return m.FrontImage }
func (m *Memory) Secondary() Media     { return m.BackImage }
func (m *Memory) TakenAt() time.Time   { return m.TakenTime }
func (m *Memory) Caption() string      { return m.CaptionText }
func (m *Memory) LateInSeconds() int64 { return m.Lateness }

func (m *Memory) BTS() (Media, bool) {
	if m.BTSMedia == nil || m.BTSMedia.IsZero() {
		return Media{}, false
	}
	return *m.BTSMedia, true
}

// Participant is a conversation member.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type MessageMedia struct {
	Path   string    `json:"path"`
	Width  int       `json:"width"`
	Height int       `json:"height"`
	Type   MediaType `json:"type"`
}

type ChatMessage struct {
	ID        string        `json:"id"`
	SenderID  string        `json:"senderId"`
	Content   string        `json:"content"`
	CreatedAt time.Time     `json:"createdAt"`
	Media     *MessageMedia `json:"media,omitempty"`
}

// Conversation messages are in ascending CreatedAt order.
type Conversation struct {
	ID           string        `json:"id"`
	Participants []Participant `json:"participants"`
	Messages     []ChatMessage `json:"messages"`
}
