package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"path"
	"path/filepath"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/clipsync/internal/blobstore"
	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/and161185/clipsync/internal/repository"
)

// DefaultMaxAttachmentBytes is the upload ceiling used when none is configured.
const DefaultMaxAttachmentBytes = 10 << 20

// AttachmentService uploads attachment bytes ahead of AppendEntry.
type AttachmentService interface {
	// Upload stores r (size bytes, or -1 when unknown) for a session and returns
	// the reference to put on the entry.
	Upload(ctx context.Context, code, name, contentType string, r io.Reader, size int64) (*model.Attachment, error)
}

type AttachmentServiceImpl struct {
	sessions repository.SessionRepository
	store    blobstore.Store
	maxBytes int64
}

// NewAttachmentService constructs AttachmentService over a blob backend.
func NewAttachmentService(sessions repository.SessionRepository, store blobstore.Store, maxBytes int64) *AttachmentServiceImpl {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxAttachmentBytes
	}
	return &AttachmentServiceImpl{sessions: sessions, store: store, maxBytes: maxBytes}
}

// KindFor classifies an upload as image or file from its content type,
// falling back to the file extension.
func KindFor(name, contentType string) model.AttachmentKind {
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if strings.HasPrefix(contentType, "image/") {
		return model.AttachmentImage
	}
	return model.AttachmentFile
}

func safeName(name string) string {
	name = path.Base(strings.ReplaceAll(name, "\\", "/"))
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, name)
	if name == "" || name == "." || name == "_" || strings.Trim(name, ".") == "" {
		return "attachment"
	}
	return name
}

// Upload enforces the byte ceiling before anything reaches the backend.
func (s *AttachmentServiceImpl) Upload(ctx context.Context, code, name, contentType string, r io.Reader, size int64) (*model.Attachment, error) {
	code = NormalizeCode(code)
	ok, err := s.sessions.Exists(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %w", err)
	}
	if !ok {
		return nil, errs.ErrSessionInvalid
	}
	if size > s.maxBytes {
		return nil, errs.ErrAttachmentTooLarge
	}
	if size < 0 {
		buf, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
		if err != nil {
			return nil, fmt.Errorf("upload attachment: %w", err)
		}
		if int64(len(buf)) > s.maxBytes {
			return nil, errs.ErrAttachmentTooLarge
		}
		r, size = bytes.NewReader(buf), int64(len(buf))
	}
	if size == 0 {
		return nil, errs.ErrContentEmpty
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, err
	}
	clean := safeName(name)
	key := fmt.Sprintf("sessions/%s/%s-%s", code, id, clean)
	obj, err := s.store.Put(ctx, key, r, size, contentType)
	if err != nil {
		return nil, fmt.Errorf("upload attachment: %v: %w", err, errs.ErrStorage)
	}
	display := path.Base(strings.ReplaceAll(name, "\\", "/"))
	if display == "." || display == "/" || display == "" {
		display = clean
	}
	return &model.Attachment{Path: obj.Path, URL: obj.URL, Kind: KindFor(name, contentType), Name: display}, nil
}
