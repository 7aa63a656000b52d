package normalize

import (
	"fmt"
	"strings"
	"time"

	"bereal_explorer/internal/model"
	"bereal_explorer/internal/paths"
	"bereal_explorer/internal/utils"
)

const unknownUsername = "unknown"

var defaultBirthdate = model.Birthdate{Year: 2000, Month: 1, Day: 1}

func mapMedia(raw *rawMedia) model.Media {
	if raw == nil {
		return model.Media{}
	}
	canonical := paths.Normalize(raw.Path)
	media := model.Media{
		Bucket:    raw.Bucket,
		Width:     int(raw.Width),
		Height:    int(raw.Height),
		Path:      canonical,
		MediaType: model.MediaType(strings.ToLower(raw.MediaType)),
		MIMEType:  raw.MimeType,
	}
	if canonical == "" {
		return media
	}
	if media.MediaType != model.MediaImage && media.MediaType != model.MediaVideo {
		media.MediaType = model.MediaType(paths.MediaType(canonical))
	}
	if media.MIMEType == "" {
		media.MIMEType = paths.MIMEType(canonical)
	}
	return media
}

func mapOptionalMedia(raw *rawMedia) *model.Media {
	if raw == nil || paths.Normalize(raw.Path) == "" {
		return nil
	}
	media := mapMedia(raw)
	return &media
}

func mapUser(raw *rawUser) model.User {
	id := raw.ID
	if id == "" {
		id = raw.UID
	}
	device, platform := "iOS", 1
	if strings.EqualFold(raw.Platform, "android") {
		device, platform = "Android", 2
	}
	birthdate := defaultBirthdate
	if raw.Birthdate != nil {
		birthdate = *raw.Birthdate
	}
	createdAt, _ := utils.ParseTimestamp(raw.CreatedAt)
	return model.User{
		ID:             id,
		Username:       raw.Username,
		Fullname:       raw.Fullname,
		CreatedAt:      createdAt,
		ProfilePicture: mapMedia(raw.ProfilePicture),
		Device:         device,
		DeviceID:       raw.DeviceID,
		Biography:      raw.Biography,
		Location:       string(raw.Location),
		Birthdate:      birthdate,
		PhoneNumber:    raw.PhoneNumber,
		ClientVersion:  raw.ClientVersion,
		Timezone:       raw.Timezone,
		Language:       raw.Language,
		CountryCode:    raw.CountryCode,
		Region:         raw.Region,
		Platform:       platform,
	}
}

func mapFriends(raw []entry[rawFriend]) []model.Friend {
	if raw == nil {
		return nil
	}
	out := make([]model.Friend, 0, len(raw))
	for _, e := range raw {
		id := e.value.ID
		if id == "" {
			id = e.value.FriendUsername
		}
		if id == "" {
			id = fmt.Sprintf("friend-%d", e.index)
		}
		friendshipDate, _ := utils.ParseTimestamp(e.value.CreatedAt)
		out = append(out, model.Friend{
			ID:             id,
			Username:       e.value.FriendUsername,
			Fullname:       e.value.FriendFullname,
			Status:         model.FriendStatusFriends,
			FriendshipDate: friendshipDate,
		})
	}
	return out
}

func mapFriendRequests(raw []entry[rawFriendRequest]) []model.FriendRequest {
	if raw == nil {
		return nil
	}
	out := make([]model.FriendRequest, 0, len(raw))
	for _, e := range raw {
		id := fmt.Sprintf("fr-%d", e.index)
		if e.value.FromUserID != "" && e.value.CreatedAt != "" {
			id = e.value.FromUserID + "-" + e.value.CreatedAt
		}
		createdAt, _ := utils.ParseTimestamp(e.value.CreatedAt)
		updatedAt, _ := utils.ParseTimestamp(e.value.UpdatedAt)
		out = append(out, model.FriendRequest{
			ID:         id,
			FromUserID: e.value.FromUserID,
			Status:     e.value.Status,
			CreatedAt:  createdAt,
			UpdatedAt:  updatedAt,
		})
	}
	return out
}

func mapPosts(raw []entry[rawPost]) []model.Post {
	if raw == nil {
		return nil
	}
	out := make([]model.Post, 0, len(raw))
	for _, e := range raw {
		p := e.value
		id := p.ID
		if id == "" {
			id = fmt.Sprintf("post-%d", e.index)
		}
		visibility := p.Visibility
		if visibility == nil {
			visibility = []string{}
		}
		taken, _ := utils.ParseTimestamp(p.TakenAt)
		out = append(out, model.Post{
			ID:             id,
			PrimaryImage:   mapMedia(p.Primary),
			SecondaryImage: mapMedia(p.Secondary),
			BTSMedia:       mapOptionalMedia(p.BTSMedia),
			RetakeCounter:  p.RetakeCounter,
			Visibility:     visibility,
			Taken:          taken,
			CaptionText:    p.Caption,
			Location:       p.Location,
		})
	}
	return out
}

// lateness is takenTime minus berealMoment in whole seconds, truncated toward
// zero. It is negative when the capture predates the prompt.
func lateness(takenTime, berealMoment time.Time) int64 {
	return int64(takenTime.Sub(berealMoment) / time.Second)
}

func mapMemories(raw []entry[rawMemory], warn *warnings) []model.Memory {
	if raw == nil {
		return nil
	}
	out := make([]model.Memory, 0, len(raw))
	for _, e := range raw {
		m := e.value
		id := m.ID
		if id == "" {
			id = fmt.Sprintf("memory-%d", e.index)
		}
		takenTime, takenOK := utils.ParseTimestamp(m.TakenTime)
		moment, momentOK := utils.ParseTimestamp(m.BerealMoment)
		var late int64
		if takenOK && momentOK {
			late = lateness(takenTime, moment)
		} else {
			warn.add(FileMemories, "%s: lateness unknown, takenTime %q berealMoment %q", id, m.TakenTime, m.BerealMoment)
		}
		out = append(out, model.Memory{
			ID:           id,
			FrontImage:   mapMedia(m.FrontImage),
			BackImage:    mapMedia(m.BackImage),
			BTSMedia:     mapOptionalMedia(m.BTSMedia),
			IsLate:       m.IsLate,
			Date:         m.Date,
			TakenTime:    takenTime,
			BerealMoment: moment,
			CaptionText:  m.Caption,
			Location:     m.Location,
			Music:        m.Music,
			Lateness:     late,
		})
	}
	return out
}

func mapComments(raw []entry[rawComment], ownerID string) []model.Comment {
	if raw == nil {
		return nil
	}
	out := make([]model.Comment, 0, len(raw))
	for _, e := range raw {
		out = append(out, model.Comment{
			ID:        fmt.Sprintf("comment-%d", e.index),
			PostID:    e.value.PostID,
			Author:    model.Author{ID: ownerID, Username: unknownUsername},
			Text:      e.value.Content,
			CreatedAt: utils.ParseTimestampOr(e.value.CreatedAt, utils.Epoch),
		})
	}
	return out
}

func mapRealmojis(raw []entry[rawRealmoji]) []model.Realmoji {
	if raw == nil {
		return nil
	}
	out := make([]model.Realmoji, 0, len(raw))
	for _, e := range raw {
		r := e.value
		id := r.ID
		if id == "" {
			id = fmt.Sprintf("realmoji-%d", e.index)
		}
		enabled := true
		if r.IsEnabled != nil {
			enabled = *r.IsEnabled
		}
		username := r.Username
		if username == "" {
			username = unknownUsername
		}
		createdAt, _ := utils.ParseTimestamp(r.CreatedAt)
		out = append(out, model.Realmoji{
			ID:        id,
			CreatedAt: createdAt,
			Emoji:     r.Emoji,
			Media:     mapMedia(r.Media),
			IsEnabled: enabled,
			IsInstant: r.IsInstant,
			Author:    model.Author{ID: r.UserID, Username: username},
		})
	}
	return out
}

func mapPushTokens(raw []entry[rawPushToken]) []model.PushToken {
	if raw == nil {
		return nil
	}
	out := make([]model.PushToken, 0, len(raw))
	for _, e := range raw {
		t := e.value
		token := t.Token
		if token == "" {
			token = t.DeviceID
		}
		osName := "Android"
		if strings.ToLower(t.Platform) == "ios" {
			osName = "iOS"
		}
		out = append(out, model.PushToken{
			Token:         token,
			OS:            osName,
			ClientVersion: t.ClientVersion,
			Language:      t.Language,
			Region:        t.Region,
			Timezone:      t.Timezone,
		})
	}
	return out
}

func mapTerms(raw []entry[rawTerm]) []model.Term {
	if raw == nil {
		return nil
	}
	out := make([]model.Term, 0, len(raw))
	for _, e := range raw {
		t := e.value
		version := t.Version
		if version == 0 {
			version = 1
		}
		out = append(out, model.Term{
			Code:     t.Code,
			Status:   t.Status,
			Version:  version,
			TermURL:  t.TermURL,
			SignedAt: utils.ParseTimestampOr(t.SignedAt, utils.Epoch),
		})
	}
	return out
}
