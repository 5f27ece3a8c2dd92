package model

import (
	"strings"
	"time"
)

type AttachmentType string

const (
	AttachmentImage    = AttachmentType("image")
	AttachmentAudio    = AttachmentType("audio")
	AttachmentDocument = AttachmentType("document")
)

type Attachment struct {
	Type     AttachmentType `json:"type"`
	MIMEType string         `json:"mimeType"`
	Data     string         `json:"data"`
	Name     string         `json:"name,omitempty"`
}

func AttachmentTypeForMIME(mimeType string) AttachmentType {
	switch {
	case strings.HasPrefix(mimeType, "image"):
		return AttachmentImage
	case strings.HasPrefix(mimeType, "audio"):
		return AttachmentAudio
	default:
		return AttachmentDocument
	}
}

type Message struct {
	ID                string            `json:"id"`
	Text              string            `json:"text"`
	Sender            Sender            `json:"sender"`
	Timestamp         time.Time         `json:"timestamp"`
	Attachments       []Attachment      `json:"attachments,omitempty"`
	GroundingMetadata GroundingMetadata `json:"groundingMetadata,omitempty"`
	IsError           bool              `json:"isError,omitempty"`
	Feedback          Feedback          `json:"feedback,omitempty"`
}

// Clone returns a copy that shares no slices with m.
func (m Message) Clone() Message {
	if m.Attachments != nil {
		m.Attachments = append([]Attachment(nil), m.Attachments...)
	}
	if m.GroundingMetadata != nil {
		m.GroundingMetadata = append(GroundingMetadata(nil), m.GroundingMetadata...)
	}
	return m
}

func CloneMessages(messages []Message) []Message {
	if messages == nil {
		return nil
	}
	cloned := make([]Message, len(messages))
	for i, msg := range messages {
		cloned[i] = msg.Clone()
	}
	return cloned
}

type ChatSession struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	Mode         ChatMode  `json:"mode"`
	LastModified int64     `json:"lastModified"`
}

// Part is one element of a turn sent to the generation service.
type Part struct {
	Text       string
	InlineData *InlineData
}

type InlineData struct {
	MIMEType string
	Data     string
}

type Turn struct {
	Sender Sender
	Parts  []Part
}

// AttachmentParts converts attachments to inline parts, keeping their order.
func AttachmentParts(attachments []Attachment) []Part {
	parts := make([]Part, 0, len(attachments))
	for _, att := range attachments {
		parts = append(
			parts, Part{
				InlineData: &InlineData{
					MIMEType: att.MIMEType,
					Data:     att.Data,
				},
			},
		)
	}
	return parts
}
