package domain

import "time"

// Author identifies who produced a conversation turn.
type Author string

// Conversation authors.
const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// String returns the string representation.
func (a Author) String() string {
	return string(a)
}

// AttachmentRef references a document supplied as chat context.
type AttachmentRef struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Message is one turn in a conversation. It is a closed set of two cases,
// UserMessage and AssistantMessage; use a type switch to reach case fields.
type Message interface {
	// Key returns the message ID.
	Key() string

	// Author returns who produced the turn.
	Author() Author

	// Text returns the current content.
	Text() string

	// Conversation returns the conversation key the message belongs to.
	Conversation() string

	// Created returns the creation time.
	Created() time.Time

	isMessage()
}

// UserMessage is a turn submitted by the user.
type UserMessage struct {
	ID              string
	ConversationKey string
	Content         string
	CreatedAt       time.Time

	// Attachments are the documents selected as context when the turn was sent.
	Attachments []AttachmentRef
}

// AssistantMessage is a turn produced by the AI. Its content grows
// append-only while the response streams.
type AssistantMessage struct {
	ID              string
	ConversationKey string
	Content         string
	CreatedAt       time.Time
}

// Ensure both cases implement Message.
var (
	_ Message = UserMessage{}
	_ Message = AssistantMessage{}
)

func (m UserMessage) Key() string          { return m.ID }
func (m UserMessage) Author() Author       { return AuthorUser }
func (m UserMessage) Text() string         { return m.Content }
func (m UserMessage) Conversation() string { return m.ConversationKey }
func (m UserMessage) Created() time.Time   { return m.CreatedAt }
func (UserMessage) isMessage()             {}

func (m AssistantMessage) Key() string          { return m.ID }
func (m AssistantMessage) Author() Author       { return AuthorAssistant }
func (m AssistantMessage) Text() string         { return m.Content }
func (m AssistantMessage) Conversation() string { return m.ConversationKey }
func (m AssistantMessage) Created() time.Time   { return m.CreatedAt }
func (AssistantMessage) isMessage()             {}

// Append returns a copy with token added to the end of the content.
func (m AssistantMessage) Append(token string) AssistantMessage {
	m.Content += token
	return m
}

// ErrorMessagePrefix starts the content of a synthetic error turn.
const ErrorMessagePrefix = "Error: "

// NewErrorMessage builds the assistant turn that replaces a failed placeholder.
func NewErrorMessage(id, conversationKey, reason string, at time.Time) AssistantMessage {
	return AssistantMessage{
		ID:              id,
		ConversationKey: conversationKey,
		Content:         ErrorMessagePrefix + reason,
		CreatedAt:       at,
	}
}
