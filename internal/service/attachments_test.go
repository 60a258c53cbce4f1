package service

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/and161185/clipsync/internal/repository/memory"
)

func TestKindFor(t *testing.T) {
	require.Equal(t, model.AttachmentImage, KindFor("a.bin", "image/png"))
	require.Equal(t, model.AttachmentImage, KindFor("photo.JPG", ""))
	require.Equal(t, model.AttachmentFile, KindFor("doc.pdf", "application/pdf"))
	require.Equal(t, model.AttachmentFile, KindFor("noext", ""))
}

func TestSafeName(t *testing.T) {
	require.Equal(t, "report.pdf", safeName("report.pdf"))
	require.Equal(t, "passwd", safeName("../../etc/passwd"))
	require.Equal(t, "evil.txt", safeName(`C:\tmp\evil.txt`))
	require.Equal(t, "my_file_1_.txt", safeName("my file(1).txt"))
	require.Equal(t, "attachment", safeName(""))
	require.Equal(t, "attachment", safeName(".."))
}

func newAttachmentSvc(t *testing.T, max int64) (*AttachmentServiceImpl, *fakeBlobs) {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Create(context.Background(), "K3F9Q"))
	blobs := &fakeBlobs{}
	return NewAttachmentService(store, blobs, max), blobs
}

func TestAttachmentService_Upload(t *testing.T) {
	s, blobs := newAttachmentSvc(t, 0)
	data := []byte("\x89PNG...")

	att, err := s.Upload(context.Background(), "k3f9q", "shot.png", "image/png", bytes.NewReader(data), int64(len(data)))
	require.NoError(t, err)
	require.Equal(t, model.AttachmentImage, att.Kind)
	require.Equal(t, "shot.png", att.Name)
	require.True(t, strings.HasPrefix(att.Path, "sessions/K3F9Q/"))
	require.True(t, strings.HasSuffix(att.Path, "-shot.png"))
	require.Equal(t, "https://cdn.test/"+att.Path, att.URL)
	require.Equal(t, data, blobs.putData)
}

func TestAttachmentService_Upload_SizeCeiling(t *testing.T) {
	s, blobs := newAttachmentSvc(t, 4)
	ctx := context.Background()

	_, err := s.Upload(ctx, "K3F9Q", "a", "", bytes.NewReader([]byte("12345")), 5)
	require.ErrorIs(t, err, errs.ErrAttachmentTooLarge)

	_, err = s.Upload(ctx, "K3F9Q", "a", "", strings.NewReader("12345"), -1)
	require.ErrorIs(t, err, errs.ErrAttachmentTooLarge)
	require.Empty(t, blobs.putKey)

	att, err := s.Upload(ctx, "K3F9Q", "a", "", strings.NewReader("1234"), -1)
	require.NoError(t, err)
	require.Equal(t, int64(4), blobs.putSize)
	require.Equal(t, model.AttachmentFile, att.Kind)

	_, err = s.Upload(ctx, "K3F9Q", "a", "", strings.NewReader(""), -1)
	require.ErrorIs(t, err, errs.ErrContentEmpty)
}

func TestAttachmentService_Upload_Errors(t *testing.T) {
	s, blobs := newAttachmentSvc(t, 0)
	ctx := context.Background()

	_, err := s.Upload(ctx, "NOPE1", "a", "", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, errs.ErrSessionInvalid)

	blobs.putErr = errBoom
	_, err = s.Upload(ctx, "K3F9Q", "a", "", strings.NewReader("x"), 1)
	require.ErrorIs(t, err, errs.ErrStorage)
}

func TestVisitService_Record(t *testing.T) {
	ctx := context.Background()
	s := NewVisitService(memory.New())

	c, err := s.Record(ctx, false)
	require.NoError(t, err)
	require.Equal(t, model.VisitCounter{Total: 1, Unique: 1}, c)

	c, err = s.Record(ctx, true)
	require.NoError(t, err)
	require.Equal(t, model.VisitCounter{Total: 2, Unique: 1}, c)
}
