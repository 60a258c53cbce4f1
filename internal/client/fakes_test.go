package client

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/and161185/clipsync/internal/channel"
	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
	"github.com/and161185/clipsync/internal/repository/memory"
	"github.com/and161185/clipsync/internal/service"
)

// hubBackend runs the real services and hub in-process.
type hubBackend struct {
	store    *memory.Store
	hub      *channel.Hub
	sessions *service.SessionServiceImpl
	entries  *service.EntryServiceImpl
	visits   *service.VisitServiceImpl

	offline    atomic.Bool
	appends    atomic.Int32
	beforeList func()

	mu   sync.Mutex
	subs []*fakeSub
}

func newHubBackend() *hubBackend {
	store := memory.New()
	hub := channel.NewHub(64, nil)
	return &hubBackend{
		store:    store,
		hub:      hub,
		sessions: service.NewSessionService(store, service.SessionOptions{}),
		entries:  service.NewEntryService(store, store, nil, hub, 0, nil),
		visits:   service.NewVisitService(store),
	}
}

func (b *hubBackend) check() error {
	if b.offline.Load() {
		return errs.ErrNotConnected
	}
	return nil
}

func (b *hubBackend) CreateSession(ctx context.Context) (string, error) {
	if err := b.check(); err != nil {
		return "", err
	}
	return b.sessions.Create(ctx)
}

func (b *hubBackend) JoinSession(ctx context.Context, code string) (string, error) {
	if err := b.check(); err != nil {
		return "", err
	}
	return b.sessions.Join(ctx, code, "")
}

func (b *hubBackend) ListEntries(ctx context.Context, code string) ([]model.Entry, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if b.beforeList != nil {
		b.beforeList()
	}
	return b.entries.List(ctx, code)
}

func (b *hubBackend) AppendEntry(ctx context.Context, code, content string, att *model.Attachment) (*model.Entry, error) {
	b.appends.Add(1)
	if err := b.check(); err != nil {
		return nil, err
	}
	return b.entries.Append(ctx, code, content, att)
}

func (b *hubBackend) GetEntry(ctx context.Context, id string) (*model.Entry, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return b.entries.Get(ctx, id)
}

func (b *hubBackend) DeleteEntry(ctx context.Context, id string) error {
	if err := b.check(); err != nil {
		return err
	}
	return b.entries.Delete(ctx, id)
}

func (b *hubBackend) ClearSession(ctx context.Context, code string) (model.ClearResult, error) {
	if err := b.check(); err != nil {
		return model.ClearResult{}, err
	}
	return b.entries.Clear(ctx, code)
}

func (b *hubBackend) UploadAttachment(_ context.Context, code, name, _ string, _ []byte) (*model.Attachment, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	return &model.Attachment{
		Path: "sessions/" + code + "/" + name,
		URL:  "http://files.test/sessions/" + code + "/" + name,
		Kind: service.KindFor(name, ""),
		Name: name,
	}, nil
}

func (b *hubBackend) RecordVisit(ctx context.Context, alreadyCounted bool) (model.VisitCounter, error) {
	if err := b.check(); err != nil {
		return model.VisitCounter{}, err
	}
	return b.visits.Record(ctx, alreadyCounted)
}

func (b *hubBackend) Subscribe(ctx context.Context, code string, handler func(model.Event)) (Subscription, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	if _, err := b.sessions.Join(ctx, code, ""); err != nil {
		return nil, err
	}
	inner, err := b.hub.SubscribeFunc(code, handler)
	if err != nil {
		return nil, err
	}
	s := &fakeSub{inner: inner, done: make(chan struct{})}
	b.mu.Lock()
	b.subs = append(b.subs, s)
	b.mu.Unlock()
	return s, nil
}

func (b *hubBackend) subscriptions() []*fakeSub {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*fakeSub(nil), b.subs...)
}

// live counts subscriptions that have not ended.
func (b *hubBackend) live() int {
	n := 0
	for _, s := range b.subscriptions() {
		select {
		case <-s.done:
		default:
			n++
		}
	}
	return n
}

type fakeSub struct {
	inner  *channel.Subscription
	unsubs atomic.Int32
	once   sync.Once
	done   chan struct{}
	err    error
}

func (s *fakeSub) Done() <-chan struct{} { return s.done }

func (s *fakeSub) Err() error {
	select {
	case <-s.done:
		return s.err
	default:
		return nil
	}
}

func (s *fakeSub) Unsubscribe() {
	s.unsubs.Add(1)
	s.end(nil)
}

// drop ends the subscription as a transport failure would.
func (s *fakeSub) drop() { s.end(errs.ErrChannel) }

func (s *fakeSub) end(err error) {
	s.once.Do(func() {
		s.err = err
		s.inner.Unsubscribe()
		close(s.done)
	})
}

// changeLog records OnChange notifications.
type changeLog struct {
	mu      sync.Mutex
	changes []Change
}

func (l *changeLog) add(c Change) {
	l.mu.Lock()
	l.changes = append(l.changes, c)
	l.mu.Unlock()
}

func (l *changeLog) remote() []model.Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.Event
	for _, c := range l.changes {
		if c.Remote && c.Event != nil {
			out = append(out, *c.Event)
		}
	}
	return out
}
