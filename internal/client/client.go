// Package client implements the Session Client: a per-device state machine
// that joins a session, keeps a materialized newest-first view of its entries
// and reconciles that view with the server after connectivity gaps.
//
// States move Unjoined -> Joining -> Joined, and Joined <-> Disconnected until
// an explicit Leave. Reconnecting never merges: the view is replaced by a fresh
// listing, then the subscription is re-established.
package client

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"go.uber.org/zap"

	"github.com/and161185/clipsync/internal/client/state"
	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/model"
)

// DefaultMaxContentChars mirrors the server's content ceiling.
const DefaultMaxContentChars = 15000

// State is the client's connection state.
type State int

const (
	Unjoined State = iota
	Joining
	Joined
	Disconnected
)

func (s State) String() string {
	switch s {
	case Unjoined:
		return "unjoined"
	case Joining:
		return "joining"
	case Joined:
		return "joined"
	case Disconnected:
		return "disconnected"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Store persists the client record between runs.
type Store interface {
	Load(ctx context.Context) (state.Record, error)
	Save(ctx context.Context, r state.Record) error
}

// Change describes one observable update. Event is nil for pure state
// transitions and wholesale view replacements.
type Change struct {
	State  State
	Event  *model.Event
	Remote bool // applied from the Change Channel rather than a local call
}

// Options tune a Client.
type Options struct {
	MaxContentChars int
	// OnChange is called after every view or state update, outside the
	// client's locks. It may be called from the subscription goroutine.
	OnChange func(Change)
}

// Client is a Session Client. All methods are safe for concurrent use; user
// operations are serialized and channel events are applied one at a time.
type Client struct {
	backend  Backend
	store    Store
	log      *zap.Logger
	maxChars int
	onChange func(Change)

	// opMu serializes user operations, including their network calls.
	opMu sync.Mutex

	mu        sync.Mutex
	st        State
	code      string
	view      []model.Entry
	ids       map[string]struct{}
	expanded  map[string]bool
	composer  string
	selfDel   map[string]struct{}
	sub       Subscription
	gen       uint64
	buffering bool
	buffer    []model.Event
	rec       state.Record
	recLoaded bool
}

// New creates an Unjoined client. Call Resume to restore a persisted session.
func New(backend Backend, store Store, log *zap.Logger, opts Options) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	if store == nil {
		store = &state.Memory{}
	}
	if opts.MaxContentChars <= 0 {
		opts.MaxContentChars = DefaultMaxContentChars
	}
	return &Client{
		backend:  backend,
		store:    store,
		log:      log,
		maxChars: opts.MaxContentChars,
		onChange: opts.OnChange,
		ids:      make(map[string]struct{}),
		expanded: make(map[string]bool),
		selfDel:  make(map[string]struct{}),
	}
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.st
}

// Code returns the joined session code, empty when Unjoined.
func (c *Client) Code() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.code
}

// View returns a copy of the local view, newest first.
func (c *Client) View() []model.Entry {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.view)
}

// Composer returns the local editor content, filled by Edit.
func (c *Client) Composer() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.composer
}

// SetComposer replaces the local editor content.
func (c *Client) SetComposer(s string) {
	c.mu.Lock()
	c.composer = s
	c.mu.Unlock()
}

// Toggle flips the expanded flag of an entry and returns the new value.
func (c *Client) Toggle(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.ids[id]; !ok {
		return false
	}
	c.expanded[id] = !c.expanded[id]
	return c.expanded[id]
}

// Expanded reports the expanded flag of an entry.
func (c *Client) Expanded(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expanded[id]
}

// Resume loads the persisted record and rejoins its session, if any. A
// session that no longer exists is forgotten.
func (c *Client) Resume(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	rec, err := c.record(ctx)
	if err != nil {
		return err
	}
	if rec.SessionCode == "" {
		return nil
	}
	err = c.join(ctx, rec.SessionCode, false)
	if errors.Is(err, errs.ErrNotFound) {
		c.persist(ctx, func(r *state.Record) { r.SessionCode = "" })
	}
	return err
}

// Create asks the registry for a new session and joins it.
func (c *Client) Create(ctx context.Context) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if err := c.join(ctx, "", true); err != nil {
		return "", err
	}
	return c.Code(), nil
}

// Join validates code with the registry and joins it. The code is
// normalized by the server.
func (c *Client) Join(ctx context.Context, code string) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	if err := c.join(ctx, code, false); err != nil {
		return "", err
	}
	return c.Code(), nil
}

// join runs the Joining phase. Caller holds opMu.
func (c *Client) join(ctx context.Context, code string, create bool) error {
	if _, err := c.record(ctx); err != nil {
		return err
	}
	c.mu.Lock()
	c.teardownLocked()
	c.st = Joining
	c.mu.Unlock()
	c.notify(Change{State: Joining})

	var err error
	if create {
		code, err = c.backend.CreateSession(ctx)
	} else {
		code, err = c.backend.JoinSession(ctx, code)
	}
	if err == nil {
		err = c.connect(ctx, code)
	}
	if err != nil {
		c.mu.Lock()
		c.resetLocked()
		c.mu.Unlock()
		c.notify(Change{State: Unjoined})
		return err
	}

	c.persist(ctx, func(r *state.Record) { r.SessionCode = code })
	c.log.Info("joined session", zap.String("code", code))
	c.notify(Change{State: Joined})
	return nil
}

// connect subscribes, waits for the subscription to be live, then replaces
// the view with a fresh listing, replays events that arrived meanwhile and
// enters Joined.
// The replay is convergent because the buffer holds, in commit order, every
// event between subscription and listing. Caller holds opMu.
func (c *Client) connect(ctx context.Context, code string) error {
	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.buffering = true
	c.buffer = nil
	c.mu.Unlock()

	sub, err := c.backend.Subscribe(ctx, code, func(ev model.Event) { c.onEvent(gen, ev) })
	if err != nil {
		c.stopBuffering(gen)
		return fmt.Errorf("subscribe: %w", err)
	}
	list, err := c.backend.ListEntries(ctx, code)
	if err != nil {
		sub.Unsubscribe()
		c.stopBuffering(gen)
		return fmt.Errorf("list: %w", err)
	}

	c.mu.Lock()
	c.sub = sub
	c.code = code
	c.st = Joined
	c.replaceViewLocked(list)
	for _, ev := range c.buffer {
		c.applyLocked(ev)
	}
	c.buffering = false
	c.buffer = nil
	c.mu.Unlock()

	go c.watch(gen, sub)
	return nil
}

func (c *Client) stopBuffering(gen uint64) {
	c.mu.Lock()
	if c.gen == gen {
		c.buffering = false
		c.buffer = nil
	}
	c.mu.Unlock()
}

// watch moves the client to Disconnected when the current subscription ends
// on its own.
func (c *Client) watch(gen uint64, sub Subscription) {
	<-sub.Done()
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.gen++
	c.sub = nil
	c.st = Disconnected
	code := c.code
	sub.Unsubscribe()
	c.mu.Unlock()
	c.log.Warn("subscription lost", zap.String("code", code), zap.Error(sub.Err()))
	c.notify(Change{State: Disconnected})
}

func (c *Client) onEvent(gen uint64, ev model.Event) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	if c.buffering {
		c.buffer = append(c.buffer, ev)
		c.mu.Unlock()
		return
	}
	remote := true
	if ev.Kind == model.EventDeleted {
		_, self := c.selfDel[ev.EntryID]
		remote = !self
	}
	changed := c.applyLocked(ev)
	st := c.st
	c.mu.Unlock()
	if changed {
		c.notify(Change{State: st, Event: &ev, Remote: remote})
	}
}

// applyLocked applies one channel event and reports whether the view changed.
func (c *Client) applyLocked(ev model.Event) bool {
	switch ev.Kind {
	case model.EventCreated:
		if ev.Entry == nil {
			return false
		}
		return c.insertLocked(*ev.Entry)
	case model.EventDeleted:
		delete(c.selfDel, ev.EntryID)
		return c.removeLocked(ev.EntryID)
	case model.EventCleared:
		if len(c.view) == 0 {
			return false
		}
		c.replaceViewLocked(nil)
		return true
	}
	return false
}

// before orders entries newest first; ties go to the later insertion.
func before(a, b model.Entry) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.Seq > b.Seq
}

func (c *Client) insertLocked(e model.Entry) bool {
	if _, ok := c.ids[e.ID]; ok {
		return false
	}
	i := 0
	for i < len(c.view) && !before(e, c.view[i]) {
		i++
	}
	c.view = slices.Insert(c.view, i, e)
	c.ids[e.ID] = struct{}{}
	return true
}

func (c *Client) removeLocked(id string) bool {
	if _, ok := c.ids[id]; !ok {
		return false
	}
	delete(c.ids, id)
	delete(c.expanded, id)
	c.view = slices.DeleteFunc(c.view, func(e model.Entry) bool { return e.ID == id })
	return true
}

func (c *Client) replaceViewLocked(list []model.Entry) {
	view := slices.Clone(list)
	slices.SortStableFunc(view, func(a, b model.Entry) int {
		switch {
		case before(a, b):
			return -1
		case before(b, a):
			return 1
		}
		return 0
	})
	view = slices.CompactFunc(view, func(a, b model.Entry) bool { return a.ID == b.ID })
	ids := make(map[string]struct{}, len(view))
	expanded := make(map[string]bool)
	for _, e := range view {
		ids[e.ID] = struct{}{}
		if c.expanded[e.ID] {
			expanded[e.ID] = true
		}
	}
	c.view, c.ids, c.expanded = view, ids, expanded
}

// teardownLocked drops the current subscription exactly once.
func (c *Client) teardownLocked() {
	c.gen++
	if c.sub != nil {
		c.sub.Unsubscribe()
		c.sub = nil
	}
	c.buffering = false
	c.buffer = nil
	clear(c.selfDel)
}

func (c *Client) resetLocked() {
	c.teardownLocked()
	c.st = Unjoined
	c.code = ""
	c.replaceViewLocked(nil)
}

// Leave unsubscribes and forgets the session locally. The server is not told.
func (c *Client) Leave(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	if c.st == Unjoined {
		c.mu.Unlock()
		return nil
	}
	code := c.code
	c.resetLocked()
	c.composer = ""
	c.mu.Unlock()

	c.persist(ctx, func(r *state.Record) { r.SessionCode = "" })
	c.log.Info("left session", zap.String("code", code))
	c.notify(Change{State: Unjoined})
	return nil
}

// Close drops the subscription and the local view but keeps the persisted
// session, so a later Resume rejoins it.
func (c *Client) Close() {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	c.mu.Lock()
	c.resetLocked()
	c.mu.Unlock()
}

// SetOnline feeds the network connectivity signal. Going offline drops the
// subscription; coming back refetches the whole view and resubscribes.
// Repeated signals are no-ops.
func (c *Client) SetOnline(ctx context.Context, online bool) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.mu.Lock()
	st, code := c.st, c.code
	if !online {
		if st != Joined {
			c.mu.Unlock()
			return nil
		}
		c.teardownLocked()
		c.st = Disconnected
		c.mu.Unlock()
		c.notify(Change{State: Disconnected})
		return nil
	}
	c.mu.Unlock()
	if st != Disconnected {
		return nil
	}

	if err := c.connect(ctx, code); err != nil {
		c.log.Warn("reconnect failed", zap.String("code", code), zap.Error(err))
		return err
	}
	c.log.Info("reconciled session", zap.String("code", code))
	c.notify(Change{State: Joined})
	return nil
}

// joined returns the session code or ErrNotConnected. Caller holds opMu.
func (c *Client) joined() (string, uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.st != Joined {
		return "", 0, errs.ErrNotConnected
	}
	return c.code, c.gen, nil
}

// lost handles a transport failure seen by a user operation.
func (c *Client) lost(gen uint64, err error) {
	if !errors.Is(err, errs.ErrNotConnected) {
		return
	}
	c.mu.Lock()
	if c.gen != gen || c.st != Joined {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	c.st = Disconnected
	c.mu.Unlock()
	c.notify(Change{State: Disconnected})
}

// Share appends an entry to the session and inserts it into the local view.
// The fan-out echo of the same entry is deduplicated by id.
func (c *Client) Share(ctx context.Context, content string, att *model.Attachment) (*model.Entry, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.share(ctx, content, att)
}

func (c *Client) share(ctx context.Context, content string, att *model.Attachment) (*model.Entry, error) {
	code, gen, err := c.joined()
	if err != nil {
		return nil, err
	}
	if err := model.ValidateContent(content, att, c.maxChars); err != nil {
		return nil, err
	}
	e, err := c.backend.AppendEntry(ctx, code, content, att)
	if err != nil {
		c.lost(gen, err)
		return nil, err
	}
	c.applyLocal(gen, model.Event{Kind: model.EventCreated, SessionCode: code, Entry: e})
	return e, nil
}

// ShareFile uploads data as an attachment and shares it with an optional caption.
func (c *Client) ShareFile(ctx context.Context, name, contentType string, data []byte, caption string) (*model.Entry, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	code, gen, err := c.joined()
	if err != nil {
		return nil, err
	}
	att, err := c.backend.UploadAttachment(ctx, code, name, contentType, data)
	if err != nil {
		c.lost(gen, err)
		return nil, err
	}
	return c.share(ctx, caption, att)
}

// Delete removes one entry. Other clients see a single-entry deletion, never a clear.
func (c *Client) Delete(ctx context.Context, id string) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()
	return c.delete(ctx, id)
}

func (c *Client) delete(ctx context.Context, id string) error {
	code, gen, err := c.joined()
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.selfDel[id] = struct{}{}
	c.mu.Unlock()

	err = c.backend.DeleteEntry(ctx, id)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		c.mu.Lock()
		delete(c.selfDel, id)
		c.mu.Unlock()
		c.lost(gen, err)
		return err
	}
	c.applyLocal(gen, model.Event{Kind: model.EventDeleted, SessionCode: code, EntryID: id})
	return err
}

// Edit recalls an entry: its content goes to the composer and the entry is
// deleted. If the delete fails the composer is restored.
func (c *Client) Edit(ctx context.Context, id string) (string, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	_, gen, err := c.joined()
	if err != nil {
		return "", err
	}
	var content string
	c.mu.Lock()
	i := slices.IndexFunc(c.view, func(e model.Entry) bool { return e.ID == id })
	if i >= 0 {
		content = c.view[i].Content
	}
	c.mu.Unlock()
	if i < 0 {
		e, err := c.backend.GetEntry(ctx, id)
		if err != nil {
			c.lost(gen, err)
			return "", err
		}
		content = e.Content
	}

	c.mu.Lock()
	prev := c.composer
	c.composer = content
	c.mu.Unlock()

	if err := c.delete(ctx, id); err != nil {
		c.mu.Lock()
		c.composer = prev
		c.mu.Unlock()
		return "", err
	}
	return content, nil
}

// Clear removes every entry of the session. Removed == 0 means there was
// nothing to clear.
func (c *Client) Clear(ctx context.Context) (model.ClearResult, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	code, gen, err := c.joined()
	if err != nil {
		return model.ClearResult{}, err
	}
	res, err := c.backend.ClearSession(ctx, code)
	if err != nil {
		c.lost(gen, err)
		return model.ClearResult{}, err
	}
	if !res.Nothing() {
		c.applyLocal(gen, model.Event{Kind: model.EventCleared, SessionCode: code})
	}
	return res, nil
}

// applyLocal applies the result of a confirmed local write.
func (c *Client) applyLocal(gen uint64, ev model.Event) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	changed := c.applyLocked(ev)
	st := c.st
	c.mu.Unlock()
	if changed {
		c.notify(Change{State: st, Event: &ev})
	}
}

// Theme returns the persisted theme preference.
func (c *Client) Theme(ctx context.Context) (string, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return "", err
	}
	return rec.Theme, nil
}

// SetTheme stores a theme preference; anything but dark means light.
func (c *Client) SetTheme(ctx context.Context, theme string) (string, error) {
	if _, err := c.record(ctx); err != nil {
		return "", err
	}
	if theme != state.ThemeDark {
		theme = state.ThemeLight
	}
	if err := c.save(ctx, func(r *state.Record) { r.Theme = theme }); err != nil {
		return "", err
	}
	return theme, nil
}

// ToggleTheme flips between light and dark.
func (c *Client) ToggleTheme(ctx context.Context) (string, error) {
	cur, err := c.Theme(ctx)
	if err != nil {
		return "", err
	}
	if cur == state.ThemeDark {
		return c.SetTheme(ctx, state.ThemeLight)
	}
	return c.SetTheme(ctx, state.ThemeDark)
}

// RecordVisit increments the shared counter; the unique count moves only on
// this device's first visit.
func (c *Client) RecordVisit(ctx context.Context) (model.VisitCounter, error) {
	rec, err := c.record(ctx)
	if err != nil {
		return model.VisitCounter{}, err
	}
	vc, err := c.backend.RecordVisit(ctx, rec.VisitCounted)
	if err != nil {
		return model.VisitCounter{}, err
	}
	if !rec.VisitCounted {
		c.persist(ctx, func(r *state.Record) { r.VisitCounted = true })
	}
	return vc, nil
}

func (c *Client) record(ctx context.Context) (state.Record, error) {
	c.mu.Lock()
	if c.recLoaded {
		rec := c.rec
		c.mu.Unlock()
		return rec, nil
	}
	c.mu.Unlock()

	rec, err := c.store.Load(ctx)
	if err != nil {
		return state.Record{}, fmt.Errorf("load state: %w", err)
	}
	c.mu.Lock()
	if !c.recLoaded {
		c.rec, c.recLoaded = rec, true
	}
	rec = c.rec
	c.mu.Unlock()
	return rec, nil
}

func (c *Client) save(ctx context.Context, mutate func(*state.Record)) error {
	c.mu.Lock()
	mutate(&c.rec)
	rec := c.rec
	c.mu.Unlock()
	if err := c.store.Save(ctx, rec); err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	return nil
}

// persist saves best-effort; the in-memory record stays authoritative.
func (c *Client) persist(ctx context.Context, mutate func(*state.Record)) {
	if err := c.save(ctx, mutate); err != nil {
		c.log.Warn("persist client state", zap.Error(err))
	}
}

func (c *Client) notify(ch Change) {
	if c.onChange != nil {
		c.onChange(ch)
	}
}
