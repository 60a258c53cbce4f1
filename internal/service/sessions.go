// Package service contains application services for sessions, entries,
// attachments and the visitor counter.
package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"

	"go.uber.org/zap"

	"github.com/and161185/clipsync/internal/errs"
	"github.com/and161185/clipsync/internal/limiter"
	"github.com/and161185/clipsync/internal/repository"
)

// CodeAlphabet is the set of characters session codes are drawn from.
const CodeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// SessionService is the Session Registry: issues and validates session codes.
type SessionService interface {
	// Create issues a fresh code and persists the session.
	Create(ctx context.Context) (string, error)
	// Join validates code and returns it normalized. addr is the caller's
	// network address, used only for join throttling.
	Join(ctx context.Context, code, addr string) (string, error)
}

// SessionOptions tunes code issuance and join throttling.
type SessionOptions struct {
	CodeLength int
	Attempts   int
	Limiter    limiter.Limiter // nil disables throttling
	Hasher     *limiter.Hasher
	Logger     *zap.Logger
}

type SessionServiceImpl struct {
	repo     repository.SessionRepository
	codeLen  int
	attempts int
	lim      limiter.Limiter
	hasher   *limiter.Hasher
	rand     io.Reader
	log      *zap.Logger
}

// NewSessionService constructs SessionService with defaults for zero options.
func NewSessionService(repo repository.SessionRepository, opts SessionOptions) *SessionServiceImpl {
	if opts.CodeLength <= 0 {
		opts.CodeLength = 5
	}
	if opts.Attempts <= 0 {
		opts.Attempts = 5
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Hasher == nil {
		opts.Hasher, _ = limiter.NewHasher(nil)
	}
	return &SessionServiceImpl{
		repo:     repo,
		codeLen:  opts.CodeLength,
		attempts: opts.Attempts,
		lim:      opts.Limiter,
		hasher:   opts.Hasher,
		rand:     rand.Reader,
		log:      opts.Logger,
	}
}

// NormalizeCode trims and uppercases a user-typed session code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// validCode reports whether code has the configured length and only alphabet characters.
func (s *SessionServiceImpl) validCode(code string) bool {
	if len(code) != s.codeLen {
		return false
	}
	for i := 0; i < len(code); i++ {
		if strings.IndexByte(CodeAlphabet, code[i]) < 0 {
			return false
		}
	}
	return true
}

func (s *SessionServiceImpl) generate() (string, error) {
	base := big.NewInt(int64(len(CodeAlphabet)))
	var b strings.Builder
	b.Grow(s.codeLen)
	for i := 0; i < s.codeLen; i++ {
		n, err := rand.Int(s.rand, base)
		if err != nil {
			return "", fmt.Errorf("generate code: %w", err)
		}
		b.WriteByte(CodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// Create draws codes until one is free, then inserts it. A code taken between
// the existence check and the insert counts as one more collision.
func (s *SessionServiceImpl) Create(ctx context.Context) (string, error) {
	for i := 0; i < s.attempts; i++ {
		code, err := s.generate()
		if err != nil {
			return "", err
		}
		taken, err := s.repo.Exists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("create session: %w", err)
		}
		if taken {
			s.log.Debug("session code collision", zap.Int("attempt", i+1))
			continue
		}
		err = s.repo.Create(ctx, code)
		if errors.Is(err, errs.ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return "", fmt.Errorf("create session: %w", err)
		}
		s.log.Info("session created", zap.String("code", code))
		return code, nil
	}
	return "", fmt.Errorf("create session: no free code after %d attempts: %w", s.attempts, errs.ErrAlreadyExists)
}

// Join normalizes code and checks that the session exists. Failed lookups are
// counted per client address; a blocked client gets errs.ErrRateLimited.
// Valid joins leave the count alone, since anyone can create a code to join.
func (s *SessionServiceImpl) Join(ctx context.Context, code, addr string) (string, error) {
	code = NormalizeCode(code)
	key := s.hasher.Hash(addr)

	if s.lim != nil {
		allowed, _, err := s.lim.Allow(ctx, key)
		if err != nil {
			return "", fmt.Errorf("join session: %w", err)
		}
		if !allowed {
			return "", errs.ErrRateLimited
		}
	}

	ok := false
	if s.validCode(code) {
		var err error
		if ok, err = s.repo.Exists(ctx, code); err != nil {
			return "", fmt.Errorf("join session: %w", err)
		}
	}
	if !ok {
		if s.lim != nil {
			if blocked, _, ferr := s.lim.Failure(ctx, key); ferr == nil && blocked {
				s.log.Warn("join blocked", zap.String("addr", addr))
				return "", errs.ErrRateLimited
			}
		}
		return "", errs.ErrNotFound
	}
	return code, nil
}
