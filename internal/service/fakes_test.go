package service

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/and161185/clipsync/internal/blobstore"
	"github.com/and161185/clipsync/internal/model"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []model.Event
}

func (p *recordingPublisher) Publish(ev model.Event) uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	ev.Seq = uint64(len(p.events))
	return ev.Seq
}

func (p *recordingPublisher) Events() []model.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]model.Event(nil), p.events...)
}

type fakeBlobs struct {
	mu        sync.Mutex
	removed   []string
	removeErr error

	putKey  string
	putSize int64
	putData []byte
	putErr  error
}

var _ blobstore.Store = (*fakeBlobs)(nil)

func (f *fakeBlobs) Put(_ context.Context, key string, r io.Reader, size int64, _ string) (blobstore.Object, error) {
	if f.putErr != nil {
		return blobstore.Object{}, f.putErr
	}
	b, err := io.ReadAll(r)
	if err != nil {
		return blobstore.Object{}, err
	}
	f.putKey, f.putSize, f.putData = key, size, b
	return blobstore.Object{Path: key, URL: "https://cdn.test/" + key}, nil
}

func (f *fakeBlobs) Remove(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, key)
	return f.removeErr
}

type fakeSessionRepo struct {
	existsOut []bool // consumed one per Exists call; last value repeats
	existsErr error
	calls     int
	created   []string
	createErr error
}

func (f *fakeSessionRepo) Create(_ context.Context, code string) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, code)
	return nil
}

func (f *fakeSessionRepo) Exists(_ context.Context, _ string) (bool, error) {
	if f.existsErr != nil {
		return false, f.existsErr
	}
	i := f.calls
	f.calls++
	if len(f.existsOut) == 0 {
		return false, nil
	}
	if i >= len(f.existsOut) {
		i = len(f.existsOut) - 1
	}
	return f.existsOut[i], nil
}

var errBoom = errors.New("boom")
