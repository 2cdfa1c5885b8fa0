package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/custodia-labs/docchat/internal/adapters/driven/backend/sse"
	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// History returns the messages of a conversation in order.
func (c *Client) History(ctx context.Context, documentID string) ([]domain.Message, error) {
	var dtos []chatMessageDTO
	if err := c.doJSON(ctx, "chat history", http.MethodGet, c.endpoint("api", "chat", documentID), nil, &dtos); err != nil {
		return nil, c.report(err)
	}
	msgs := make([]domain.Message, 0, len(dtos))
	for _, d := range dtos {
		if m, ok := d.toDomain(); ok {
			msgs = append(msgs, m)
		}
	}
	return msgs, nil
}

// SendMessage posts a chat message and returns the streamed reply.
// A non-success status is returned as an *APIError before any frame is read.
func (c *Client) SendMessage(ctx context.Context, chatReq driven.ChatRequest) (driven.FrameStream, error) {
	attached := chatReq.AttachedDocuments
	if attached == nil {
		attached = []string{}
	}
	data, err := json.Marshal(chatRequestDTO{
		DocumentID:        chatReq.DocumentID,
		Message:           chatReq.Message,
		AttachedDocuments: attached,
	})
	if err != nil {
		return nil, fmt.Errorf("send message: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api", "chat"), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("send message: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, wrapTransport("send message", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		return nil, readAPIError(resp)
	}
	if resp.Body == nil || resp.Body == http.NoBody {
		return nil, domain.ErrNoResponseBody
	}
	return sse.NewStream(resp.Body), nil
}

// decodeJSON decodes one JSON value from r.
func decodeJSON(r io.Reader, out any) error {
	if err := json.NewDecoder(r).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
