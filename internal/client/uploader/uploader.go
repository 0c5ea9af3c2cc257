// Package uploader is the client side of the upload broker: it asks the
// broker for signed URLs, sends the file straight to object storage and
// reports completion back.
package uploader

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/dmitrijs2005/uploadbroker/internal/client/config"
	"github.com/dmitrijs2005/uploadbroker/internal/logging"
	"github.com/dmitrijs2005/uploadbroker/internal/netx"
	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
	"github.com/gabriel-vasile/mimetype"
	"golang.org/x/sync/errgroup"
)

// APIError is the error half of the broker's response envelope.
type APIError struct {
	Code    string `json:"code"`
	Status  int    `json:"status"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s (%d): %s: %s", e.Code, e.Status, e.Message, e.Detail)
	}
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

type Uploader struct {
	baseURL     string
	token       string
	ownerID     string
	contentType string
	concurrency int
	client      *http.Client
	logger      logging.Logger
}

func New(c *config.Config, l logging.Logger) *Uploader {
	return &Uploader{
		baseURL:     strings.TrimRight(c.ServerURL, "/"),
		token:       c.Token,
		ownerID:     c.OwnerID,
		contentType: c.ContentType,
		concurrency: max(c.Concurrency, 1),
		client:      &http.Client{},
		logger:      l.With("module", "uploader"),
	}
}

type initiateBody struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	FileSize    int64  `json:"fileSize"`
	OwnerID     string `json:"ownerId,omitempty"`
}

type confirmBody struct {
	IncludeDownloadURL bool `json:"includeDownloadUrl"`
}

type completeBody struct {
	Parts []models.CompletedPart `json:"parts"`
}

// UploadFile uploads the file at path. It tries a single-shot upload first
// and switches to multipart when the broker says the file is too big for
// one request.
func (u *Uploader) UploadFile(ctx context.Context, path string) (*models.UploadSession, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%s is a directory", path)
	}

	contentType, err := u.detectContentType(path)
	if err != nil {
		return nil, err
	}

	req := initiateBody{
		FileName:    filepath.Base(path),
		ContentType: contentType,
		FileSize:    info.Size(),
		OwnerID:     u.ownerID,
	}

	var session models.UploadSession
	err = u.call(ctx, http.MethodPost, "/api/uploads", req, &session)

	var apiErr *APIError
	switch {
	case err == nil:
		return u.uploadSimple(ctx, path, &session)
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict:
		u.logger.Debug(ctx, "switching to multipart", "file", path, "size", info.Size())
		if err := u.call(ctx, http.MethodPost, "/api/uploads/multipart", req, &session); err != nil {
			return nil, err
		}
		return u.uploadMultipart(ctx, path, &session)
	default:
		return nil, err
	}
}

func (u *Uploader) uploadSimple(ctx context.Context, path string, session *models.UploadSession) (*models.UploadSession, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	if _, err := netx.PutPresigned(ctx, u.client, session.UploadURL, session.ContentType, data); err != nil {
		return nil, err
	}
	u.logger.Info(ctx, "file uploaded", "session_id", session.ID, "bytes", len(data))

	var done models.UploadSession
	if err := u.call(ctx, http.MethodPost, "/api/uploads/"+session.ID+"/confirm", confirmBody{IncludeDownloadURL: true}, &done); err != nil {
		return nil, err
	}
	return &done, nil
}

func (u *Uploader) uploadMultipart(ctx context.Context, path string, session *models.UploadSession) (*models.UploadSession, error) {
	parts, err := u.uploadParts(ctx, path, session)
	if err != nil {
		u.abort(ctx, session.ID)
		return nil, err
	}

	var done models.UploadSession
	if err := u.call(ctx, http.MethodPost, "/api/uploads/"+session.ID+"/multipart/complete", completeBody{Parts: parts}, &done); err != nil {
		u.abort(ctx, session.ID)
		return nil, err
	}
	return &done, nil
}

// uploadParts sends every part in parallel and returns them in part order.
func (u *Uploader) uploadParts(ctx context.Context, path string, session *models.UploadSession) ([]models.CompletedPart, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	parts := make([]models.CompletedPart, len(session.PartURLs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(u.concurrency)

	for i, pu := range session.PartURLs {
		i, pu := i, pu
		g.Go(func() error {
			offset := int64(pu.PartNumber-1) * session.PartSize
			length := min(session.PartSize, session.FileSize-offset)
			if length <= 0 {
				return fmt.Errorf("part %d lies beyond the end of the file", pu.PartNumber)
			}

			buf := make([]byte, length)
			if _, err := f.ReadAt(buf, offset); err != nil && !errors.Is(err, io.EOF) {
				return err
			}

			etag, err := netx.PutPresigned(gctx, u.client, pu.URL, "", buf)
			if err != nil {
				return fmt.Errorf("part %d: %w", pu.PartNumber, err)
			}
			if etag == "" {
				return fmt.Errorf("part %d: storage returned no etag", pu.PartNumber)
			}

			parts[i] = models.CompletedPart{PartNumber: pu.PartNumber, ETag: etag}
			u.logger.Debug(gctx, "part uploaded", "session_id", session.ID, "part", pu.PartNumber, "bytes", length)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// abort releases a multipart session after a failed part upload or a
// rejected completion. Its own error is only logged.
func (u *Uploader) abort(ctx context.Context, id string) {
	if err := u.call(context.WithoutCancel(ctx), http.MethodPost, "/api/uploads/"+id+"/multipart/abort", nil, nil); err != nil {
		u.logger.Warn(ctx, "failed to abort multipart upload", "session_id", id, "error", err)
	}
}

func (u *Uploader) detectContentType(path string) (string, error) {
	if u.contentType != "" {
		return u.contentType, nil
	}

	mt, err := mimetype.DetectFile(path)
	if err != nil {
		return "", err
	}
	ct, _, _ := strings.Cut(mt.String(), ";")
	return strings.TrimSpace(ct), nil
}

// call performs one broker request and unwraps the response envelope.
func (u *Uploader) call(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Error   *APIError       `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%s %s: unreadable response (%s): %w", method, path, resp.Status, err)
	}

	if !env.Success {
		if env.Error == nil {
			return &APIError{Code: "UNKNOWN", Status: resp.StatusCode, Message: resp.Status}
		}
		return env.Error
	}

	if out != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}
