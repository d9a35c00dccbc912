package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	CodeLength   = 4

	DefaultActivityWindow = 14 * 24 * time.Hour
	DefaultCodeAttempts   = 20
)

// CodeAllocator hands out 4-character join codes that are unique among
// tables created inside the activity window. Two clients racing for the
// same code can both win; the store has no conditional write for it.
type CodeAllocator struct {
	tables      TableStore
	window      time.Duration
	maxAttempts int
	draw        func() (string, error)
	now         func() time.Time
}

func NewCodeAllocator(tables TableStore, window time.Duration, maxAttempts int) *CodeAllocator {
	if window <= 0 {
		window = DefaultActivityWindow
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeAttempts
	}
	return &CodeAllocator{
		tables:      tables,
		window:      window,
		maxAttempts: maxAttempts,
		draw:        RandomCode,
		now:         time.Now,
	}
}

func (a *CodeAllocator) Window() time.Duration {
	return a.window
}

// Active reports whether a table created at createdAt is still inside the
// activity window.
func (a *CodeAllocator) Active(createdAt time.Time) bool {
	return a.now().Sub(createdAt) < a.window
}

// Allocate draws codes until one has no active collision. Stale tables that
// still carry the accepted code get their code cleared first.
func (a *CodeAllocator) Allocate(ctx context.Context) (string, error) {
	code, err := RetryWithCleanup(ctx, a.maxAttempts, func(ctx context.Context, n int) (Attempt[string], error) {
		code, err := a.draw()
		if err != nil {
			return Attempt[string]{}, err
		}

		existing, err := a.tables.FindTablesByCode(ctx, code)
		if err != nil {
			return Attempt[string]{}, fmt.Errorf("lookup code %s: %w", code, err)
		}

		var stale []string
		for _, t := range existing {
			if a.Active(t.CreatedAt) {
				log.Debugf("[CodeAllocator.Allocate] attempt %d: code %s active on table %s", n, code, t.ID)
				return Attempt[string]{}, nil
			}
			stale = append(stale, t.ID)
		}

		cleanup := make([]func(ctx context.Context) error, 0, len(stale))
		for _, id := range stale {
			id := id
			cleanup = append(cleanup, func(ctx context.Context) error {
				return a.tables.ClearShortCode(ctx, id)
			})
		}
		return Attempt[string]{Value: code, Accept: true, Cleanup: cleanup}, nil
	})
	if err != nil {
		return "", err
	}
	return code, nil
}

// RandomCode draws an uppercase alphanumeric code from crypto/rand.
func RandomCode() (string, error) {
	max := big.NewInt(int64(len(codeAlphabet)))
	var b strings.Builder
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to draw code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
