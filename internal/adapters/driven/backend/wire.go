package backend

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/logger"
)

// Message types used by the chat history endpoint.
const (
	messageTypeUser      = "user"
	messageTypeAI        = "ai"
	messageTypeAssistant = "assistant"
)

// documentDTO is the JSON shape of a document.
type documentDTO struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	FileName        string    `json:"file_name"`
	GCSPath         string    `json:"gcs_path"`
	Status          string    `json:"status"`
	ProcessingError string    `json:"processingError,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func (d documentDTO) toDomain() domain.Document {
	status := domain.DocumentStatus(d.Status)
	if !status.IsValid() {
		logger.Warn("document %s has unknown status %q", d.ID, d.Status)
	}
	return domain.Document{
		ID:              d.ID,
		FileName:        d.FileName,
		OwnerID:         d.UserID,
		StoragePath:     d.GCSPath,
		CreatedAt:       d.CreatedAt,
		Status:          status,
		ProcessingError: d.ProcessingError,
	}
}

// chatRequestDTO is the body of a chat send.
type chatRequestDTO struct {
	DocumentID        string   `json:"document_id"`
	Message           string   `json:"message"`
	AttachedDocuments []string `json:"attached_documents"`
}

// chatMessageDTO is one history entry.
type chatMessageDTO struct {
	ID             string          `json:"id"`
	DocumentID     string          `json:"document_id"`
	UserID         string          `json:"user_id"`
	MessageType    string          `json:"message_type"`
	MessageContent string          `json:"message_content"`
	Timestamp      time.Time       `json:"timestamp"`
	Attached       json.RawMessage `json:"attached_documents,omitempty"`
}

// toDomain converts an entry. Returns false for unknown message types.
func (m chatMessageDTO) toDomain() (domain.Message, bool) {
	switch m.MessageType {
	case messageTypeUser:
		return domain.UserMessage{
			ID:              m.ID,
			ConversationKey: m.DocumentID,
			Content:         m.MessageContent,
			CreatedAt:       m.Timestamp,
			Attachments:     decodeAttachments(m.ID, m.Attached),
		}, true
	case messageTypeAI, messageTypeAssistant:
		return domain.AssistantMessage{
			ID:              m.ID,
			ConversationKey: m.DocumentID,
			Content:         m.MessageContent,
			CreatedAt:       m.Timestamp,
		}, true
	default:
		logger.Warn("skipping message %s with unknown type %q", m.ID, m.MessageType)
		return nil, false
	}
}

// decodeAttachments reads attached_documents, which the backend stores as a
// JSON-encoded string but may also send as an array. Anything unreadable
// yields an empty list.
func decodeAttachments(messageID string, raw json.RawMessage) []domain.AttachmentRef {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}

	if raw[0] == '"' {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			logger.Warn("message %s: attached_documents: %v", messageID, err)
			return []domain.AttachmentRef{}
		}
		if encoded == "" || encoded == "null" {
			return nil
		}
		raw = []byte(encoded)
	}

	var refs []domain.AttachmentRef
	if err := json.Unmarshal(raw, &refs); err != nil {
		logger.Warn("message %s: attached_documents: %v", messageID, err)
		return []domain.AttachmentRef{}
	}
	return refs
}
