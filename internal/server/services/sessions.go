package services

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/dmitrijs2005/uploadbroker/internal/common"
	"github.com/dmitrijs2005/uploadbroker/internal/logging"
	"github.com/dmitrijs2005/uploadbroker/internal/server/config"
	"github.com/dmitrijs2005/uploadbroker/internal/server/metrics"
	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
	"github.com/dmitrijs2005/uploadbroker/internal/server/multipart"
	"github.com/dmitrijs2005/uploadbroker/internal/server/repositories/sessions"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// InitiateRequest describes a file the caller wants to upload.
type InitiateRequest struct {
	FileName    string
	ContentType string
	OwnerID     string
	// FileSize is optional for simple uploads (0 = unknown) and required
	// for multipart ones.
	FileSize int64
}

// SessionService drives the upload session state machine:
//
//	(none) ── InitiateSimple ──────▶ pending ── Confirm ──────────▶ completed
//	(none) ── InitiateMultipart ──▶ multipart_initiated ── CompleteMultipart ▶ completed
//	                                 multipart_initiated ── AbortMultipart ───▶ aborted
//
// Delete removes pending, completed and aborted sessions. Rejected
// transitions come back as *common.Error values and never change state.
type SessionService struct {
	repo     sessions.Repository
	provider StorageProvider
	config   *config.Config
	limits   multipart.Limits
	allowed  map[string]struct{}
	logger   logging.Logger
	metrics  metrics.Recorder

	now   func() time.Time
	newID func() string
}

func NewSessionService(repo sessions.Repository, provider StorageProvider, cfg *config.Config, l logging.Logger, m metrics.Recorder) *SessionService {
	allowed := make(map[string]struct{}, len(cfg.AllowedContentTypes))
	for _, ct := range cfg.AllowedContentTypes {
		allowed[ct] = struct{}{}
	}
	if l == nil {
		l = logging.Nop{}
	}
	if m == nil {
		m = metrics.Nop{}
	}

	return &SessionService{
		repo:     repo,
		provider: provider,
		config:   cfg,
		limits:   multipart.DefaultLimits.WithPreferredPartSize(cfg.PreferredPartSize),
		allowed:  allowed,
		logger:   l.With("module", "sessions"),
		metrics:  m,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// StorageConfigured reports whether the storage provider has credentials.
func (s *SessionService) StorageConfigured() bool {
	return s.provider.IsConfigured()
}

// InitiateSimple registers a single-shot upload and returns it with a
// signed PUT URL.
func (s *SessionService) InitiateSimple(ctx context.Context, req InitiateRequest) (*models.UploadSession, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.FileSize > 0 && s.limits.Plan(req.FileSize).UseMultipart {
		return nil, common.Conflict("file of %d bytes must be uploaded with multipart", req.FileSize)
	}

	owner := OwnerSegment(req.OwnerID)
	key := NewStorageKey(req.FileName, owner)

	var url string
	err := s.call(ctx, "sign_upload", func(ctx context.Context) (err error) {
		url, err = s.provider.SignUpload(ctx, key, req.ContentType, s.config.UploadURLTTL)
		return err
	})
	if err != nil {
		return nil, err
	}

	now := s.now()
	session := &models.UploadSession{
		ID:          s.newID(),
		StorageKey:  key,
		OwnerID:     owner,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		FileSize:    req.FileSize,
		Kind:        models.KindSimple,
		State:       models.StatePending,
		UploadURL:   url,
		CreatedAt:   now,
		ExpiresAt:   now.Add(s.config.UploadURLTTL),
	}
	if err := s.repo.Put(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.SessionInitiated(string(models.KindSimple))
	s.logger.Info(ctx, "upload session initiated", "session_id", session.ID, "kind", session.Kind, "key", key)
	return session, nil
}

// InitiateMultipart opens a multipart handle with the provider and signs
// one URL per part. If signing fails the handle is released again.
func (s *SessionService) InitiateMultipart(ctx context.Context, req InitiateRequest) (*models.UploadSession, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}
	if req.FileSize <= 0 {
		return nil, common.Validation("fileSize is required for multipart uploads")
	}
	if req.FileSize > s.limits.MaxObjectSize() {
		return nil, common.Capacity("file of %d bytes exceeds the multipart maximum of %d bytes", req.FileSize, s.limits.MaxObjectSize())
	}

	plan := s.limits.Plan(req.FileSize)
	if !plan.UseMultipart {
		return nil, common.Conflict("file of %d bytes does not qualify for multipart upload", req.FileSize)
	}

	owner := OwnerSegment(req.OwnerID)
	key := NewStorageKey(req.FileName, owner)

	var uploadID string
	err := s.call(ctx, "begin_multipart", func(ctx context.Context) (err error) {
		uploadID, err = s.provider.BeginMultipart(ctx, key, req.ContentType)
		return err
	})
	if err != nil {
		return nil, err
	}

	partURLs, err := s.signParts(ctx, key, uploadID, plan.PartCount)
	if err != nil {
		s.releaseHandle(ctx, key, uploadID)
		return nil, err
	}

	now := s.now()
	session := &models.UploadSession{
		ID:               s.newID(),
		StorageKey:       key,
		OwnerID:          owner,
		FileName:         req.FileName,
		ContentType:      req.ContentType,
		FileSize:         req.FileSize,
		Kind:             models.KindMultipart,
		State:            models.StateMultipartInitiated,
		ProviderUploadID: uploadID,
		PartSize:         plan.PartSize,
		PartCount:        plan.PartCount,
		PartURLs:         partURLs,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.config.UploadURLTTL),
	}
	if err := s.repo.Put(ctx, session); err != nil {
		s.releaseHandle(ctx, key, uploadID)
		return nil, err
	}

	s.metrics.SessionInitiated(string(models.KindMultipart))
	s.logger.Info(ctx, "multipart session initiated",
		"session_id", session.ID, "key", key, "part_size", plan.PartSize, "part_count", plan.PartCount)
	return session, nil
}

// Confirm marks a simple upload as completed. The client's word is taken
// for it; the object is not checked. With withDownloadURL a signed GET URL
// is minted and stored on the session.
func (s *SessionService) Confirm(ctx context.Context, id string, withDownloadURL bool) (*models.UploadSession, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Kind != models.KindSimple {
		return nil, common.Conflict("session %s is a multipart upload; use multipart completion", id)
	}
	if session.State != models.StatePending {
		return nil, common.Conflict("session %s is %s, not %s", id, session.State, models.StatePending)
	}

	if withDownloadURL {
		url, err := s.signDownload(ctx, session.StorageKey)
		if err != nil {
			return nil, err
		}
		session.DownloadURL = url
	}

	completedAt := s.now()
	session.State = models.StateCompleted
	session.CompletedAt = &completedAt

	if err := s.repo.Put(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.SessionTransition(string(models.StateCompleted))
	s.logger.Info(ctx, "upload confirmed", "session_id", id)
	return session, nil
}

// CompleteMultipart forwards the client's part list to the provider and
// marks the session completed. The list must have exactly PartCount
// entries numbered 1..PartCount; it is sorted by part number before it
// is sent, whatever order the client used.
func (s *SessionService) CompleteMultipart(ctx context.Context, id string, parts []models.CompletedPart) (*models.UploadSession, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Kind != models.KindMultipart {
		return nil, common.Conflict("session %s is not a multipart upload", id)
	}
	if session.State != models.StateMultipartInitiated {
		return nil, common.Conflict("session %s is %s, not %s", id, session.State, models.StateMultipartInitiated)
	}
	if int64(len(parts)) != session.PartCount {
		return nil, common.Conflict("expected %d parts, got %d", session.PartCount, len(parts))
	}

	sorted, err := sortParts(parts)
	if err != nil {
		return nil, err
	}

	var location string
	err = s.call(ctx, "complete_multipart", func(ctx context.Context) (err error) {
		location, err = s.provider.CompleteMultipart(ctx, session.StorageKey, session.ProviderUploadID, sorted)
		return err
	})
	if err != nil {
		return nil, err
	}

	completedAt := s.now()
	session.State = models.StateCompleted
	session.CompletedAt = &completedAt
	session.CompletedParts = sorted
	session.Location = location

	if err := s.repo.Put(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.SessionTransition(string(models.StateCompleted))
	s.logger.Info(ctx, "multipart upload completed", "session_id", id, "parts", len(sorted), "location", location)
	return session, nil
}

// AbortMultipart releases the provider handle and marks the session aborted.
func (s *SessionService) AbortMultipart(ctx context.Context, id string) (*models.UploadSession, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if session.Kind != models.KindMultipart {
		return nil, common.Conflict("session %s is not a multipart upload", id)
	}
	if session.State != models.StateMultipartInitiated {
		return nil, common.Conflict("session %s is %s, not %s", id, session.State, models.StateMultipartInitiated)
	}

	err = s.call(ctx, "abort_multipart", func(ctx context.Context) error {
		return s.provider.AbortMultipart(ctx, session.StorageKey, session.ProviderUploadID)
	})
	if err != nil {
		return nil, err
	}

	abortedAt := s.now()
	session.State = models.StateAborted
	session.AbortedAt = &abortedAt

	if err := s.repo.Put(ctx, session); err != nil {
		return nil, err
	}

	s.metrics.SessionTransition(string(models.StateAborted))
	s.logger.Info(ctx, "multipart upload aborted", "session_id", id)
	return session, nil
}

// Delete removes a session. For a completed session the stored object is
// deleted first, and the record survives if that fails. Multipart sessions
// still in progress must be aborted before they can be deleted.
func (s *SessionService) Delete(ctx context.Context, id string) error {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	if session.State == models.StateMultipartInitiated {
		return common.Conflict("session %s is in progress; abort it before deleting", id)
	}

	if session.State == models.StateCompleted {
		err := s.call(ctx, "delete_object", func(ctx context.Context) error {
			return s.provider.DeleteObject(ctx, session.StorageKey)
		})
		if err != nil {
			return err
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}

	s.logger.Info(ctx, "upload session deleted", "session_id", id, "state", session.State)
	return nil
}

func (s *SessionService) Get(ctx context.Context, id string) (*models.UploadSession, error) {
	return s.repo.Get(ctx, id)
}

func (s *SessionService) List(ctx context.Context, f sessions.Filter) ([]*models.UploadSession, error) {
	if f.State != "" && !f.State.Valid() {
		return nil, common.Validation("unknown state %q", f.State)
	}
	if f.OwnerID != "" {
		f.OwnerID = OwnerSegment(f.OwnerID)
	}
	return s.repo.List(ctx, f)
}

// DownloadURL signs a fresh GET URL for a completed upload.
func (s *SessionService) DownloadURL(ctx context.Context, id string) (string, time.Time, error) {
	session, err := s.repo.Get(ctx, id)
	if err != nil {
		return "", time.Time{}, err
	}
	if session.State != models.StateCompleted {
		return "", time.Time{}, common.Conflict("session %s is %s; only completed uploads can be downloaded", id, session.State)
	}

	url, err := s.signDownload(ctx, session.StorageKey)
	if err != nil {
		return "", time.Time{}, err
	}
	return url, s.now().Add(s.config.DownloadURLTTL), nil
}

func (s *SessionService) validate(req InitiateRequest) error {
	if strings.TrimSpace(req.FileName) == "" {
		return common.Validation("fileName is required")
	}
	if strings.TrimSpace(req.ContentType) == "" {
		return common.Validation("contentType is required")
	}
	if req.FileSize < 0 {
		return common.Validation("fileSize must not be negative")
	}
	if _, ok := s.allowed[req.ContentType]; !ok {
		return common.Validation("content type %q is not allowed", req.ContentType)
	}
	if !strings.HasPrefix(req.ContentType, "video/") && s.config.MaxFileSize > 0 && req.FileSize > s.config.MaxFileSize {
		return common.Capacity("file of %d bytes exceeds the maximum of %d bytes", req.FileSize, s.config.MaxFileSize)
	}
	return nil
}

// call runs one provider operation under the provider timeout and turns
// its failure into an upstream error.
func (s *SessionService) call(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	if !s.provider.IsConfigured() {
		return common.NotConfigured("storage provider is not configured")
	}

	if s.config.ProviderTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.ProviderTimeout)
		defer cancel()
	}

	err := fn(ctx)
	s.metrics.ProviderCall(op, err)
	if err != nil {
		s.logger.Error(ctx, "storage provider call failed", "operation", op, "error", err)
		return common.Upstream(err, "storage provider %s failed", op)
	}
	return nil
}

func (s *SessionService) signDownload(ctx context.Context, key string) (string, error) {
	var url string
	err := s.call(ctx, "sign_download", func(ctx context.Context) (err error) {
		url, err = s.provider.SignDownload(ctx, key, s.config.DownloadURLTTL)
		return err
	})
	return url, err
}

// signParts fans out one SignPart call per part. Results land at their
// part's index, so arrival order does not matter.
func (s *SessionService) signParts(ctx context.Context, key, uploadID string, count int64) ([]models.PartURL, error) {
	urls := make([]models.PartURL, count)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.config.PartURLConcurrency, 1))

	for i := range urls {
		i := i
		partNumber := int32(i + 1)
		g.Go(func() error {
			var url string
			err := s.call(gctx, "sign_part", func(ctx context.Context) (err error) {
				url, err = s.provider.SignPart(ctx, key, uploadID, partNumber, s.config.UploadURLTTL)
				return err
			})
			if err != nil {
				return err
			}
			urls[i] = models.PartURL{PartNumber: partNumber, URL: url}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return urls, nil
}

// releaseHandle aborts a multipart handle after a failed initiation. Its
// own failure is only logged; the caller already has an error to return.
func (s *SessionService) releaseHandle(ctx context.Context, key, uploadID string) {
	err := s.call(context.WithoutCancel(ctx), "abort_multipart", func(ctx context.Context) error {
		return s.provider.AbortMultipart(ctx, key, uploadID)
	})
	if err != nil {
		s.logger.Warn(ctx, "failed to release multipart handle", "key", key, "upload_id", uploadID, "error", err)
	}
}

// sortParts returns a copy of parts ordered by part number, checking that
// the numbers are exactly 1..len(parts) and every part has an ETag.
func sortParts(parts []models.CompletedPart) ([]models.CompletedPart, error) {
	sorted := append([]models.CompletedPart(nil), parts...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].PartNumber < sorted[j].PartNumber })

	for i, p := range sorted {
		if p.PartNumber != int32(i+1) {
			return nil, common.Conflict("part numbers must be the contiguous range 1..%d", len(sorted))
		}
		if strings.TrimSpace(p.ETag) == "" {
			return nil, common.Validation("part %d has no etag", p.PartNumber)
		}
	}
	return sorted, nil
}

