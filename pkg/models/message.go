package models

import "time"

// ContentType classifies the payload of an inbound message.
type ContentType string

const (
	ContentTypeText     ContentType = "text"
	ContentTypeChat     ContentType = "chat" // transports that report text as "chat"
	ContentTypeImage    ContentType = "image"
	ContentTypeVideo    ContentType = "video"
	ContentTypeAudio    ContentType = "audio"
	ContentTypeVoice    ContentType = "ptt"
	ContentTypeDocument ContentType = "document"
	ContentTypeSticker  ContentType = "sticker"
	ContentTypeLocation ContentType = "location"
	ContentTypeContact  ContentType = "vcard"
	ContentTypeCallLog  ContentType = "call_log"
)

// IsText reports whether the content type is plain text.
func (c ContentType) IsText() bool {
	return c == ContentTypeText || c == ContentTypeChat || c == ""
}

// IsAttachment reports whether the content type carries an attachment. Any
// non-text content type counts.
func (c ContentType) IsAttachment() bool {
	return !c.IsText()
}

// Message is the inbound message as delivered by a platform transport.
// Transports disagree on a few field names (senderId vs from, cachedMediaUrl
// vs mediaUrl), so both are kept and normalized through accessors.
type Message struct {
	ID             string      `json:"id"`
	Content        string      `json:"content"`
	SenderID       string      `json:"senderId,omitempty"`
	From           string      `json:"from,omitempty"`
	Platform       string      `json:"platform"`
	ContentType    ContentType `json:"contentType"`
	IsGroup        bool        `json:"isGroup"`
	CachedMediaURL string      `json:"cachedMediaUrl,omitempty"`
	MediaURL       string      `json:"mediaUrl,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// Sender returns the sender identifier, preferring senderId over from.
func (m *Message) Sender() string {
	if m.SenderID != "" {
		return m.SenderID
	}

	return m.From
}

// Media returns the media URL, preferring the cached copy.
func (m *Message) Media() string {
	if m.CachedMediaURL != "" {
		return m.CachedMediaURL
	}

	return m.MediaURL
}

// Conversation is the chat the message arrived in.
type Conversation struct {
	ID         string `json:"id"`
	UserID     string `json:"user_id"`
	Title      string `json:"title,omitempty"`
	Platform   string `json:"platform,omitempty"`
	ExternalID string `json:"external_id,omitempty"`
}

// Contact carries optional sender contact details resolved by the transport.
type Contact struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// MessageOccurrence is the message-processed notification consumed by the
// trigger registry.
type MessageOccurrence struct {
	Message      Message      `json:"message"`
	Conversation Conversation `json:"conversation"`
	Contact      *Contact     `json:"contact,omitempty"`
}

// AsInput flattens the occurrence into the execution input payload handed to
// the flow runner. Keys mirror the wire shape so templates written against
// the raw occurrence keep working.
func (o *MessageOccurrence) AsInput() map[string]any {
	msg := map[string]any{
		"id":          o.Message.ID,
		"content":     o.Message.Content,
		"platform":    o.Message.Platform,
		"contentType": string(o.Message.ContentType),
		"isGroup":     o.Message.IsGroup,
		"createdAt":   o.Message.CreatedAt.UTC().Format(time.RFC3339),
	}

	if o.Message.SenderID != "" {
		msg["senderId"] = o.Message.SenderID
	}

	if o.Message.From != "" {
		msg["from"] = o.Message.From
	}

	if o.Message.CachedMediaURL != "" {
		msg["cachedMediaUrl"] = o.Message.CachedMediaURL
	}

	if o.Message.MediaURL != "" {
		msg["mediaUrl"] = o.Message.MediaURL
	}

	conversation := map[string]any{
		"id":          o.Conversation.ID,
		"user_id":     o.Conversation.UserID,
		"title":       o.Conversation.Title,
		"platform":    o.Conversation.Platform,
		"external_id": o.Conversation.ExternalID,
	}

	input := map[string]any{
		"message":      msg,
		"conversation": conversation,
	}

	if o.Contact != nil {
		input["contact"] = map[string]any{
			"id":           o.Contact.ID,
			"display_name": o.Contact.DisplayName,
		}
	}

	return input
}

// FlowRouteOccurrence is a cross-component request to route execution into a
// flow by id, bypassing filter evaluation.
type FlowRouteOccurrence struct {
	FlowID  string         `json:"flowId"`
	Input   map[string]any `json:"input,omitempty"`
	Context map[string]any `json:"context,omitempty"`
}
