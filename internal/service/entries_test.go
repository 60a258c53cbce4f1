package service

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/and161185/clipsync/internal/repository/memory"
)

type entryFixture struct {
	store *memory.Store
	pub   *recordingPublisher
	blobs *fakeBlobs
	svc   *EntryServiceImpl
}

func newEntryFixture(t *testing.T) *entryFixture {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.Create(context.Background(), "K3F9Q"))
	pub := &recordingPublisher{}
	blobs := &fakeBlobs{}
	return &entryFixture{
		store: store,
		pub:   pub,
		blobs: blobs,
		svc:   NewEntryService(store, store, blobs, pub, 0, zaptest.NewLogger(t)),
	}
}

func contents(list []model.Entry) []string {
	out := make([]string, 0, len(list))
	for _, e := range list {
		out = append(out, e.Content)
	}
	return out
}

func TestEntryService_AppendListOrder(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)

	hello, err := f.svc.Append(ctx, "k3f9q", "hello", nil)
	require.NoError(t, err)
	require.NotEmpty(t, hello.ID)
	require.Equal(t, "K3F9Q", hello.SessionCode)
	require.False(t, hello.CreatedAt.IsZero())

	_, err = f.svc.Append(ctx, "K3F9Q", "world", nil)
	require.NoError(t, err)

	list, err := f.svc.List(ctx, "K3F9Q")
	require.NoError(t, err)
	require.Equal(t, []string{"world", "hello"}, contents(list))

	evs := f.pub.Events()
	require.Len(t, evs, 2)
	require.Equal(t, model.EventCreated, evs[0].Kind)
	require.Equal(t, hello.ID, evs[0].Entry.ID)
	require.Equal(t, "K3F9Q", evs[0].SessionCode)
}

func TestEntryService_Append_Validation(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)

	_, err := f.svc.Append(ctx, "K3F9Q", "", nil)
	require.ErrorIs(t, err, errs.ErrContentEmpty)
	_, err = f.svc.Append(ctx, "K3F9Q", strings.Repeat("x", 15001), nil)
	require.ErrorIs(t, err, errs.ErrContentTooLarge)
	_, err = f.svc.Append(ctx, "K3F9Q", "", &model.Attachment{Path: "p"})
	require.ErrorIs(t, err, errs.ErrContentEmpty, "attachment without url")
	_, err = f.svc.Append(ctx, "NOPE1", "x", nil)
	require.ErrorIs(t, err, errs.ErrSessionInvalid)

	require.Empty(t, f.pub.Events())
}

func TestEntryService_Append_AttachmentKindDefaults(t *testing.T) {
	f := newEntryFixture(t)
	e, err := f.svc.Append(context.Background(), "K3F9Q", "", &model.Attachment{Path: "sessions/K3F9Q/p", URL: "u", Kind: "weird"})
	require.NoError(t, err)
	require.Equal(t, model.AttachmentFile, e.Attachment.Kind)
}

func TestEntryService_Append_RejectsForeignAttachment(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)
	require.NoError(t, f.store.Create(ctx, "BBBBB"))

	victim, err := f.svc.Append(ctx, "BBBBB", "", &model.Attachment{Path: "sessions/BBBBB/v.png", URL: "u", Kind: model.AttachmentImage})
	require.NoError(t, err)

	for _, p := range []string{
		"sessions/BBBBB/v.png",
		"sessions/K3F9Q/../BBBBB/v.png",
		"sessions/K3F9Q/",
		"sessions/K3F9QX/a.png",
		"v.png",
	} {
		_, err := f.svc.Append(ctx, "k3f9q", "", &model.Attachment{Path: p, URL: "u", Kind: model.AttachmentImage})
		require.ErrorIs(t, err, errs.ErrInvalidAttachment, p)
	}

	list, err := f.svc.List(ctx, "K3F9Q")
	require.NoError(t, err)
	require.Empty(t, list)
	require.Empty(t, f.blobs.removed)

	got, err := f.svc.Get(ctx, victim.ID)
	require.NoError(t, err)
	require.Equal(t, "sessions/BBBBB/v.png", got.Attachment.Path)
}

func TestEntryService_Append_RejectsSharedAttachment(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)
	att := model.Attachment{Path: "sessions/K3F9Q/a.png", URL: "u", Kind: model.AttachmentImage}

	first, err := f.svc.Append(ctx, "K3F9Q", "", &att)
	require.NoError(t, err)
	dup := att
	_, err = f.svc.Append(ctx, "K3F9Q", "again", &dup)
	require.ErrorIs(t, err, errs.ErrInvalidAttachment)

	require.NoError(t, f.svc.Delete(ctx, first.ID))
	require.Equal(t, []string{"sessions/K3F9Q/a.png"}, f.blobs.removed)
	require.Len(t, f.pub.Events(), 2)
}

func TestEntryService_List_UnknownSession(t *testing.T) {
	f := newEntryFixture(t)
	_, err := f.svc.List(context.Background(), "NOPE1")
	require.ErrorIs(t, err, errs.ErrSessionInvalid)
	_, err = f.svc.List(context.Background(), "")
	require.ErrorIs(t, err, errs.ErrSessionInvalid)
}

func TestEntryService_Delete_ReleasesThenRemoves(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)

	e, err := f.svc.Append(ctx, "K3F9Q", "", &model.Attachment{Path: "sessions/K3F9Q/a.png", URL: "u", Kind: model.AttachmentImage})
	require.NoError(t, err)
	keep, err := f.svc.Append(ctx, "K3F9Q", "keep", nil)
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, e.ID))
	require.Equal(t, []string{"sessions/K3F9Q/a.png"}, f.blobs.removed)

	list, err := f.svc.List(ctx, "K3F9Q")
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, keep.ID, list[0].ID)

	evs := f.pub.Events()
	last := evs[len(evs)-1]
	require.Equal(t, model.EventDeleted, last.Kind)
	require.Equal(t, e.ID, last.EntryID)

	require.ErrorIs(t, f.svc.Delete(ctx, e.ID), errs.ErrNotFound)
	require.ErrorIs(t, f.svc.Delete(ctx, ""), errs.ErrNotFound)
}

func TestEntryService_Delete_ReleaseFailureDoesNotBlock(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)
	f.blobs.removeErr = errBoom

	e, err := f.svc.Append(ctx, "K3F9Q", "", &model.Attachment{Path: "sessions/K3F9Q/p", URL: "u", Kind: model.AttachmentFile})
	require.NoError(t, err)
	require.NoError(t, f.svc.Delete(ctx, e.ID))

	_, err = f.svc.Get(ctx, e.ID)
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEntryService_Clear(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)

	res, err := f.svc.Clear(ctx, "K3F9Q")
	require.NoError(t, err)
	require.True(t, res.Nothing())
	require.Empty(t, f.pub.Events(), "clearing an empty session publishes nothing")

	_, err = f.svc.Append(ctx, "K3F9Q", "a", nil)
	require.NoError(t, err)
	_, err = f.svc.Append(ctx, "K3F9Q", "", &model.Attachment{Path: "sessions/K3F9Q/p1", URL: "u", Kind: model.AttachmentFile})
	require.NoError(t, err)

	res, err = f.svc.Clear(ctx, "k3f9q")
	require.NoError(t, err)
	require.Equal(t, 2, res.Removed)
	require.Equal(t, []string{"sessions/K3F9Q/p1"}, f.blobs.removed)

	evs := f.pub.Events()
	require.Len(t, evs, 3)
	require.Equal(t, model.EventCleared, evs[2].Kind)
	require.Empty(t, evs[2].EntryID)

	list, err := f.svc.List(ctx, "K3F9Q")
	require.NoError(t, err)
	require.Empty(t, list)

	_, err = f.svc.Clear(ctx, "NOPE1")
	require.ErrorIs(t, err, errs.ErrSessionInvalid)
}

func TestEntryService_PublishOrderMatchesCommitOrder(t *testing.T) {
	ctx := context.Background()
	f := newEntryFixture(t)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.Append(ctx, "K3F9Q", "x", nil); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	list, err := f.svc.List(ctx, "K3F9Q")
	require.NoError(t, err)
	evs := f.pub.Events()
	require.Len(t, evs, len(list))
	// list is newest first; events are oldest first.
	for i, ev := range evs {
		require.Equal(t, list[len(list)-1-i].ID, ev.Entry.ID)
	}
}

// countingEntries records which ids reach the repository.
type countingEntries struct {
	*memory.Store
	ids []string
}

func (c *countingEntries) Get(ctx context.Context, id string) (*model.Entry, error) {
	c.ids = append(c.ids, id)
	return c.Store.Get(ctx, id)
}

func TestEntryService_MalformedIDIsNotFound(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Create(ctx, "K3F9Q"))
	repo := &countingEntries{Store: store}
	svc := NewEntryService(store, repo, &fakeBlobs{}, &recordingPublisher{}, 0, zaptest.NewLogger(t))

	for _, id := range []string{"", "abc", "x", "0190a1b2-zzzz"} {
		_, err := svc.Get(ctx, id)
		require.ErrorIs(t, err, errs.ErrNotFound, id)
		require.ErrorIs(t, svc.Delete(ctx, id), errs.ErrNotFound, id)
	}
	require.Empty(t, repo.ids)

	e, err := svc.Append(ctx, "K3F9Q", "hi", nil)
	require.NoError(t, err)
	got, err := svc.Get(ctx, e.ID)
	require.NoError(t, err)
	require.Equal(t, "hi", got.Content)
	require.Equal(t, []string{e.ID}, repo.ids)
}
