package backend

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"sync"

	"github.com/custodia-labs/docchat/internal/core/domain"
	"github.com/custodia-labs/docchat/internal/core/ports/driven"
)

// uploadField is the multipart field carrying the file.
const uploadField = "file"

// ListDocuments returns the caller's documents.
func (c *Client) ListDocuments(ctx context.Context) ([]domain.Document, error) {
	var dtos []documentDTO
	if err := c.doJSON(ctx, "list documents", http.MethodGet, c.endpoint("api", "documents"), nil, &dtos); err != nil {
		return nil, c.report(err)
	}
	docs := make([]domain.Document, 0, len(dtos))
	for _, d := range dtos {
		docs = append(docs, d.toDomain())
	}
	return docs, nil
}

// DocumentStatus re-fetches one document. Failures are not passed to the
// error handler.
func (c *Client) DocumentStatus(ctx context.Context, documentID string) (*domain.Document, error) {
	var dto documentDTO
	target := c.endpoint("api", "documents", documentID, "status")
	if err := c.doJSON(ctx, "document status", http.MethodGet, target, nil, &dto); err != nil {
		return nil, err
	}
	doc := dto.toDomain()
	return &doc, nil
}

// DeleteDocument removes a document.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) error {
	target := c.endpoint("api", "documents", documentID)
	return c.report(c.doJSON(ctx, "delete document", http.MethodDelete, target, nil, nil))
}

// UploadDocument sends file as multipart form data and reports progress as
// the request body is written.
func (c *Client) UploadDocument(
	ctx context.Context,
	file driven.UploadFile,
	progress func(domain.UploadProgress),
) (*domain.Document, error) {
	body, contentType, err := multipartBody(file)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}

	total := int64(body.Len())
	var reader io.Reader = body
	if progress != nil {
		reader = &progressReader{r: body, total: total, fn: progress}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint("api", "documents", "upload"), reader)
	if err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	req.ContentLength = total
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")

	resp, err := c.stream.Do(req)
	if err != nil {
		return nil, c.report(wrapTransport("upload document", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.report(readAPIError(resp))
	}

	var dto documentDTO
	if err := decodeJSON(resp.Body, &dto); err != nil {
		return nil, fmt.Errorf("upload document: %w", err)
	}
	doc := dto.toDomain()
	return &doc, nil
}

func multipartBody(file driven.UploadFile) (*bytes.Buffer, string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	contentType := file.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, uploadField, file.Name))
	h.Set("Content-Type", contentType)

	part, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", err
	}
	if _, err := io.Copy(part, file.Content); err != nil {
		return nil, "", fmt.Errorf("read %s: %w", file.Name, err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", err
	}
	return &buf, mw.FormDataContentType(), nil
}

// progressReader reports bytes read against a known total.
type progressReader struct {
	r     io.Reader
	total int64

	mu   sync.Mutex
	sent int64
	fn   func(domain.UploadProgress)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 {
		p.mu.Lock()
		p.sent += int64(n)
		sent := p.sent
		p.mu.Unlock()
		p.fn(domain.UploadProgress{Sent: sent, Total: p.total})
	}
	return n, err
}

// DownloadDocument streams the original file to w.
func (c *Client) DownloadDocument(ctx context.Context, documentID string, w io.Writer) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("api", "documents", "download", documentID), nil)
	if err != nil {
		return fmt.Errorf("download document: %w", err)
	}

	resp, err := c.stream.Do(req)
	if err != nil {
		return c.report(wrapTransport("download document", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.report(readAPIError(resp))
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("download document: %w", err)
	}
	return nil
}
