package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/require"
)

func newDB(t *testing.T) (*DB, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	return &DB{Pool: mock}, mock
}

var entryCols = []string{
	"id", "session_code", "content", "attachment_path", "attachment_url",
	"attachment_kind", "attachment_name", "created_at", "seq",
}

func TestSessionRepo_Create_OK_and_UniqueViolation(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()

	mock.ExpectExec(`INSERT INTO sessions \(code\) VALUES \(\$1\)`).
		WithArgs("K3F9Q").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	require.NoError(t, r.Create(ctx, "K3F9Q"))

	mock.ExpectExec(`INSERT INTO sessions \(code\) VALUES \(\$1\)`).
		WithArgs("K3F9Q").
		WillReturnError(&pgconn.PgError{Code: "23505"})
	require.ErrorIs(t, r.Create(ctx, "K3F9Q"), errs.ErrAlreadyExists)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSessionRepo_Exists(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewSessionRepo(db)
	ctx := context.Background()

	q := regexp.QuoteMeta(`SELECT EXISTS (SELECT 1 FROM sessions WHERE code=$1)`)
	mock.ExpectQuery(q).WithArgs("K3F9Q").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	ok, err := r.Exists(ctx, "K3F9Q")
	require.NoError(t, err)
	require.True(t, ok)

	mock.ExpectQuery(q).WithArgs("ZZZZZ").WillReturnError(errors.New("db down"))
	_, err = r.Exists(ctx, "ZZZZZ")
	require.Error(t, err)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_ListBySession(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()
	t1 := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	t0 := t1.Add(-time.Minute)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM entries WHERE session_code=$1 ORDER BY created_at DESC, seq DESC`)).
		WithArgs("K3F9Q").
		WillReturnRows(pgxmock.NewRows(entryCols).
			AddRow("e2", "K3F9Q", "", "sessions/K3F9Q/x.png", "http://cdn/x.png", "image", "x.png", t1, int64(2)).
			AddRow("e1", "K3F9Q", "hello", "", "", "", "", t0, int64(1)))

	got, err := r.ListBySession(ctx, "K3F9Q")
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "e2", got[0].ID)
	require.NotNil(t, got[0].Attachment)
	require.Equal(t, model.AttachmentImage, got[0].Attachment.Kind)
	require.Equal(t, "hello", got[1].Content)
	require.Nil(t, got[1].Attachment)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_ListBySession_Empty(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	mock.ExpectQuery(`FROM entries`).WithArgs("K3F9Q").WillReturnRows(pgxmock.NewRows(entryCols))
	got, err := r.ListBySession(context.Background(), "K3F9Q")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Empty(t, got)
}

func TestEntryRepo_Insert(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()
	at := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)

	e := &model.Entry{
		ID: "e1", SessionCode: "K3F9Q",
		Attachment: &model.Attachment{Path: "p", URL: "u", Kind: model.AttachmentFile, Name: "a.txt"},
	}
	mock.ExpectQuery(`INSERT INTO entries`).
		WithArgs("e1", "K3F9Q", "", "p", "u", "file", "a.txt").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "seq"}).AddRow(at, int64(7)))
	require.NoError(t, r.Insert(ctx, e))
	require.Equal(t, at, e.CreatedAt)
	require.Equal(t, int64(7), e.Seq)

	mock.ExpectQuery(`INSERT INTO entries`).
		WithArgs("e2", "NOPE1", "x", "", "", "", "").
		WillReturnError(&pgconn.PgError{Code: "23503"})
	err := r.Insert(ctx, &model.Entry{ID: "e2", SessionCode: "NOPE1", Content: "x"})
	require.ErrorIs(t, err, errs.ErrSessionInvalid)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_Get(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()
	at := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM entries WHERE id=$1`)).WithArgs("e1").
		WillReturnRows(pgxmock.NewRows(entryCols).AddRow("e1", "K3F9Q", "hi", "", "", "", "", at, int64(1)))
	e, err := r.Get(ctx, "e1")
	require.NoError(t, err)
	require.Equal(t, "hi", e.Content)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM entries WHERE id=$1`)).WithArgs("gone").
		WillReturnError(pgx.ErrNoRows)
	_, err = r.Get(ctx, "gone")
	require.ErrorIs(t, err, errs.ErrNotFound)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM entries WHERE id=$1`)).WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})
	_, err = r.Get(ctx, "abc")
	require.ErrorIs(t, err, errs.ErrNotFound)
}

func TestEntryRepo_Delete(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM entries WHERE id=$1`)).WithArgs("e1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	require.NoError(t, r.Delete(ctx, "e1"))

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM entries WHERE id=$1`)).WithArgs("e1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))
	require.ErrorIs(t, r.Delete(ctx, "e1"), errs.ErrNotFound)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM entries WHERE id=$1`)).WithArgs("abc").
		WillReturnError(&pgconn.PgError{Code: "22P02", Message: "invalid input syntax for type uuid"})
	require.ErrorIs(t, r.Delete(ctx, "abc"), errs.ErrNotFound)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestEntryRepo_DeleteBySession(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewEntryRepo(db)

	mock.ExpectExec(regexp.QuoteMeta(`DELETE FROM entries WHERE session_code=$1`)).WithArgs("K3F9Q").
		WillReturnResult(pgxmock.NewResult("DELETE", 3))
	n, err := r.DeleteBySession(context.Background(), "K3F9Q")
	require.NoError(t, err)
	require.Equal(t, 3, n)
}

func TestCounterRepo_Increment(t *testing.T) {
	db, mock := newDB(t)
	defer mock.Close()
	r := NewCounterRepo(db)

	mock.ExpectQuery(`UPDATE visit_counter`).WithArgs(true).
		WillReturnRows(pgxmock.NewRows([]string{"total", "unique_visitors"}).AddRow(int64(10), int64(4)))
	c, err := r.Increment(context.Background(), true)
	require.NoError(t, err)
	require.Equal(t, model.VisitCounter{Total: 10, Unique: 4}, c)

	mock.ExpectQuery(`UPDATE visit_counter`).WithArgs(false).WillReturnError(errors.New("boom"))
	_, err = r.Increment(context.Background(), false)
	require.Error(t, err)
}
