package chat

import (
	"time"

	"github.com/likeness-ai/command-center/backend/internal/model/speech"
)

// Role identifies who authored a message.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// AttachmentType distinguishes media carried alongside a message.
type AttachmentType string

const (
	AttachmentImage AttachmentType = "image"
	AttachmentAudio AttachmentType = "audio"
)

// Attachment references an image or audio clip; Base64 carries the inline payload when present.
type Attachment struct {
	Type     AttachmentType `json:"type"`
	URL      string         `json:"url,omitempty"`
	Base64   string         `json:"base64,omitempty"`
	MIMEType string         `json:"mimeType,omitempty"`
}

// Message is one turn of a session. It is only mutated to attach decoded audio.
type Message struct {
	ID          string              `json:"id"`
	SessionID   string              `json:"sessionId"`
	Role        Role                `json:"role"`
	Content     string              `json:"content"`
	HasAudio    bool                `json:"hasAudio"`
	Audio       *speech.AudioBuffer `json:"-"`
	CreatedAt   time.Time           `json:"createdAt"`
	Attachments []Attachment        `json:"attachments,omitempty"`
}

// ImageAttachment returns the first image attachment, if any.
func (m Message) ImageAttachment() (Attachment, bool) {
	for _, att := range m.Attachments {
		if att.Type == AttachmentImage {
			return att, true
		}
	}
	return Attachment{}, false
}
