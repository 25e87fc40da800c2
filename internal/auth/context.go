package auth

import (
	"sync"

	"github.com/baharkarakas/donation-token/internal/models"
)

// Context is the authorization capability of one invocation: it tells which
// identities have verifiably approved the call.
type Context interface {
	Authorized(id models.Address) bool
}

// Identities authorizes exactly the listed addresses.
type Identities map[models.Address]struct{}

func As(ids ...models.Address) Identities {
	s := make(Identities, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s Identities) Authorized(id models.Address) bool {
	_, ok := s[id]
	return ok
}

// None authorizes nobody; read-only calls use it.
var None Context = Identities{}

type allowAll struct{}

func (allowAll) Authorized(models.Address) bool { return true }

// All authorizes every identity. Only for tests and tooling.
var All Context = allowAll{}

// Recorder wraps a Context and remembers every identity it was asked about.
type Recorder struct {
	Next Context

	mu    sync.Mutex
	asked []models.Address
}

func (r *Recorder) Authorized(id models.Address) bool {
	r.mu.Lock()
	r.asked = append(r.asked, id)
	r.mu.Unlock()
	return r.Next.Authorized(id)
}

// Asked returns the identities checked so far and clears the log.
func (r *Recorder) Asked() []models.Address {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.asked
	r.asked = nil
	return out
}
