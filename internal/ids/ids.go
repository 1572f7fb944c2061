package ids

import (
	mathrand "math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(mathrand.New(mathrand.NewSource(time.Now().UnixNano())), 0)
)

// New returns a lexicographically sortable identifier. Ledger entries and
// accounts use it so that ordering by id within one instant follows insertion.
func New() string {
	return NewAt(time.Now())
}

// NewAt is New with an explicit timestamp component.
func NewAt(t time.Time) string {
	entropyMu.Lock()
	defer entropyMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), entropy).String()
}

// NewTransaction returns a random transaction identifier (uuid v4).
func NewTransaction() string {
	return uuid.NewString()
}

// ValidTransaction reports whether s parses as a uuid.
func ValidTransaction(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
