package memory

import (
	"context"
	"testing"
	"time"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/stretchr/testify/require"
)

func fixedClock(t time.Time) func() time.Time { return func() time.Time { return t } }

func TestStore_Sessions(t *testing.T) {
	ctx := context.Background()
	s := New()

	ok, err := s.Exists(ctx, "ABCDE")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, s.Create(ctx, "ABCDE"))
	require.ErrorIs(t, s.Create(ctx, "ABCDE"), errs.ErrAlreadyExists)

	ok, err = s.Exists(ctx, "ABCDE")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStore_Insert_UnknownSession(t *testing.T) {
	s := New()
	err := s.Insert(context.Background(), &model.Entry{ID: "1", SessionCode: "NOPE1", Content: "x"})
	require.ErrorIs(t, err, errs.ErrSessionInvalid)
}

func TestStore_List_OrderNewestFirst_TieBySeq(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := base
	s := NewWithClock(func() time.Time { return now })
	require.NoError(t, s.Create(ctx, "AAAAA"))

	a := &model.Entry{ID: "a", SessionCode: "AAAAA", Content: "a"}
	b := &model.Entry{ID: "b", SessionCode: "AAAAA", Content: "b"}
	require.NoError(t, s.Insert(ctx, a))
	require.NoError(t, s.Insert(ctx, b)) // same timestamp as a

	now = base.Add(time.Second)
	c := &model.Entry{ID: "c", SessionCode: "AAAAA", Content: "c"}
	require.NoError(t, s.Insert(ctx, c))

	got, err := s.ListBySession(ctx, "AAAAA")
	require.NoError(t, err)
	require.Len(t, got, 3)
	require.Equal(t, []string{"c", "b", "a"}, []string{got[0].ID, got[1].ID, got[2].ID})
	require.Less(t, a.Seq, b.Seq)
}

func TestStore_CreatedAt_NonDecreasing(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 10, 0, time.UTC)
	now := base
	s := NewWithClock(func() time.Time { return now })
	require.NoError(t, s.Create(ctx, "AAAAA"))

	first := &model.Entry{ID: "1", SessionCode: "AAAAA", Content: "1"}
	require.NoError(t, s.Insert(ctx, first))

	now = base.Add(-5 * time.Second) // clock stepped back
	second := &model.Entry{ID: "2", SessionCode: "AAAAA", Content: "2"}
	require.NoError(t, s.Insert(ctx, second))
	require.False(t, second.CreatedAt.Before(first.CreatedAt))
}

func TestStore_GetDelete(t *testing.T) {
	ctx := context.Background()
	s := NewWithClock(fixedClock(time.Now()))
	require.NoError(t, s.Create(ctx, "AAAAA"))
	e := &model.Entry{ID: "x", SessionCode: "AAAAA", Attachment: &model.Attachment{Path: "p", Kind: model.AttachmentFile}}
	require.NoError(t, s.Insert(ctx, e))

	got, err := s.Get(ctx, "x")
	require.NoError(t, err)
	got.Attachment.Path = "mutated"

	again, err := s.Get(ctx, "x")
	require.NoError(t, err)
	require.Equal(t, "p", again.Attachment.Path, "store must hand out copies")

	require.NoError(t, s.Delete(ctx, "x"))
	require.ErrorIs(t, s.Delete(ctx, "x"), errs.ErrNotFound)
	_, err = s.Get(ctx, "x")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestStore_DeleteBySession(t *testing.T) {
	ctx := context.Background()
	s := New()
	require.NoError(t, s.Create(ctx, "AAAAA"))
	require.NoError(t, s.Create(ctx, "BBBBB"))
	require.NoError(t, s.Insert(ctx, &model.Entry{ID: "1", SessionCode: "AAAAA", Content: "1"}))
	require.NoError(t, s.Insert(ctx, &model.Entry{ID: "2", SessionCode: "AAAAA", Content: "2"}))
	require.NoError(t, s.Insert(ctx, &model.Entry{ID: "3", SessionCode: "BBBBB", Content: "3"}))

	n, err := s.DeleteBySession(ctx, "AAAAA")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	n, err = s.DeleteBySession(ctx, "AAAAA")
	require.NoError(t, err)
	require.Zero(t, n)

	rest, err := s.ListBySession(ctx, "BBBBB")
	require.NoError(t, err)
	require.Len(t, rest, 1)
}

func TestStore_Increment(t *testing.T) {
	ctx := context.Background()
	s := New()
	c, err := s.Increment(ctx, true)
	require.NoError(t, err)
	require.Equal(t, model.VisitCounter{Total: 1, Unique: 1}, c)
	c, err = s.Increment(ctx, false)
	require.NoError(t, err)
	require.Equal(t, model.VisitCounter{Total: 2, Unique: 1}, c)
}

func TestStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := New()
	require.ErrorIs(t, s.Create(ctx, "AAAAA"), context.Canceled)
	_, err := s.ListBySession(ctx, "AAAAA")
	require.ErrorIs(t, err, context.Canceled)
}
