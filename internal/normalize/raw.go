package normalize

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"bereal_explorer/internal/model"
)

// flexInt decodes a JSON number or numeric string; anything else yields 0.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*f = 0
		return nil
	}
	text := string(trimmed)
	if trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		text = strings.TrimSpace(s)
	}
	if text == "" {
		*f = 0
		return nil
	}
	value, err := strconv.ParseFloat(text, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexInt(int(value))
	return nil
}

// flexString keeps strings as-is and compacts any other JSON value.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*f = ""
		return nil
	}
	if len(trimmed) > 0 && trimmed[0] == '"' {
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = flexString(s)
		return nil
	}
	var compact bytes.Buffer
	if err := json.Compact(&compact, trimmed); err != nil {
		return err
	}
	*f = flexString(compact.String())
	return nil
}

type rawMedia struct {
	Bucket    string  `json:"bucket"`
	Width     flexInt `json:"width"`
	Height    flexInt `json:"height"`
	Path      string  `json:"path"`
	MediaType string  `json:"mediaType"`
	MimeType  string  `json:"mimeType"`
}

type rawUser struct {
	ID             string           `json:"id"`
	UID            string           `json:"uid"`
	Username       string           `json:"username"`
	Fullname       string           `json:"fullname"`
	CreatedAt      string           `json:"createdAt"`
	ProfilePicture *rawMedia        `json:"profilePicture"`
	Platform       string           `json:"platform"`
	DeviceID       string           `json:"deviceId"`
	Biography      string           `json:"biography"`
	Location       flexString       `json:"location"`
	Birthdate      *model.Birthdate `json:"birthdate"`
	PhoneNumber    string           `json:"phoneNumber"`
	ClientVersion  string           `json:"clientVersion"`
	Timezone       string           `json:"timezone"`
	Language       string           `json:"language"`
	CountryCode    string           `json:"countryCode"`
	Region         string           `json:"region"`
}

type rawFriend struct {
	ID             string `json:"id"`
	FriendUsername string `json:"friendUsername"`
	FriendFullname string `json:"friendFullname"`
	CreatedAt      string `json:"createdAt"`
}

type rawFriendRequest struct {
	FromUserID string `json:"fromUserId"`
	Status     string `json:"status"`
	CreatedAt  string `json:"createdAt"`
	UpdatedAt  string `json:"updatedAt"`
}

type rawPost struct {
	ID            string          `json:"id"`
	Primary       *rawMedia       `json:"primary"`
	Secondary     *rawMedia       `json:"secondary"`
	RetakeCounter int             `json:"retakeCounter"`
	Visibility    []string        `json:"visibility"`
	TakenAt       string          `json:"takenAt"`
	Caption       string          `json:"caption"`
	Location      *model.Location `json:"location"`
	BTSMedia      *rawMedia       `json:"btsMedia"`
}

type rawMemory struct {
	ID           string          `json:"id"`
	FrontImage   *rawMedia       `json:"frontImage"`
	BackImage    *rawMedia       `json:"backImage"`
	IsLate       bool            `json:"isLate"`
	Date         string          `json:"date"`
	TakenTime    string          `json:"takenTime"`
	BerealMoment string          `json:"berealMoment"`
	Caption      string          `json:"caption"`
	Location     *model.Location `json:"location"`
	BTSMedia     *rawMedia       `json:"btsMedia"`
	Music        *model.Music    `json:"music"`
}

type rawComment struct {
	PostID    string `json:"postId"`
	Content   string `json:"content"`
	CreatedAt string `json:"createdAt"`
}

type rawRealmoji struct {
	ID        string    `json:"id"`
	CreatedAt string    `json:"createdAt"`
	Emoji     string    `json:"emoji"`
	Media     *rawMedia `json:"media"`
	IsEnabled *bool     `json:"isEnabled"`
	IsInstant bool      `json:"isInstant"`
	UserID    string    `json:"userId"`
	Username  string    `json:"username"`
}

type rawPushToken struct {
	Token         string `json:"token"`
	DeviceID      string `json:"deviceId"`
	Platform      string `json:"platform"`
	ClientVersion string `json:"clientVersion"`
	Language      string `json:"language"`
	Region        string `json:"region"`
	Timezone      string `json:"timezone"`
}

type rawTerm struct {
	Code     string `json:"code"`
	Status   string `json:"status"`
	Version  int    `json:"version"`
	TermURL  string `json:"termUrl"`
	SignedAt string `json:"signedAt"`
}
