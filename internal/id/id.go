// Package id generates record identifiers.
package id

import (
	"encoding/binary"
	"log/slog"
	"math/rand/v2"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

var (
	fallbackMu   sync.Mutex
	fallbackRand *rand.ChaCha8
	fallbackOnce sync.Once
	counter      atomic.Uint64
)

// New returns a random (version 4) UUID string. It never fails. The
// default reader is crypto/rand, which aborts the process instead of
// returning an error, so the ChaCha8 fallback (seeded from the clock, the
// pid and a process counter) only runs when a reader installed with
// uuid.SetRand errors.
func New() string {
	u, err := uuid.NewRandom()
	if err == nil {
		return u.String()
	}
	return fallback(err).String()
}

func fallback(cause error) uuid.UUID {
	fallbackOnce.Do(func() {
		slog.Warn("system entropy unavailable, using pseudo-random identifiers", "error", cause)
		fallbackRand = rand.NewChaCha8(seed())
	})

	fallbackMu.Lock()
	defer fallbackMu.Unlock()

	u, err := uuid.NewRandomFromReader(fallbackRand)
	if err != nil {
		// ChaCha8.Read never fails; keep the version/variant bits right regardless.
		var b [16]byte
		binary.LittleEndian.PutUint64(b[:8], fallbackRand.Uint64())
		binary.LittleEndian.PutUint64(b[8:], fallbackRand.Uint64()^counter.Add(1))
		b[6] = (b[6] & 0x0f) | 0x40
		b[8] = (b[8] & 0x3f) | 0x80
		return uuid.UUID(b)
	}
	return u
}

func seed() [32]byte {
	var s [32]byte
	binary.LittleEndian.PutUint64(s[0:], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint64(s[8:], uint64(os.Getpid()))
	binary.LittleEndian.PutUint64(s[16:], counter.Add(1))
	binary.LittleEndian.PutUint64(s[24:], uint64(time.Now().Nanosecond())<<17^uint64(os.Getppid()))
	return s
}

// Valid reports whether s parses as a UUID.
func Valid(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
