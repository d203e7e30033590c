package fallback

import (
	"context"
	"log"
	"sync"
	"time"

	"tritonhub/errs"
	"tritonhub/store"
)

type Mode int

const (
	ModeLive Mode = iota
	ModeFallback
)

func (m Mode) String() string {
	if m == ModeFallback {
		return "fallback"
	}
	return "live"
}

// ProbeTimeout bounds the startup schema probe so a dead backend cannot
// stall boot.
const ProbeTimeout = 5 * time.Second

// Probe is the minimal read surface the detector needs.
type Probe interface {
	Select(ctx context.Context, table string, f store.Filter, order []store.Order, limit int) ([]store.Row, error)
}

// Detect classifies the backend: a missing-relation error (or a timeout,
// or no configuration at all) means fallback; any other outcome,
// including an empty result and unrelated errors, means live. It never
// fails.
func Detect(ctx context.Context, probe Probe) Mode {
	if probe == nil {
		return ModeFallback
	}
	if s, ok := probe.(*store.Supabase); ok && !s.Configured() {
		return ModeFallback
	}

	ctx, cancel := context.WithTimeout(ctx, ProbeTimeout)
	defer cancel()

	_, err := probe.Select(ctx, store.TableCommunities, nil, nil, 1)
	if err == nil {
		return ModeLive
	}
	if ctx.Err() != nil {
		log.Println("Schema probe timed out, using fallback data")
		return ModeFallback
	}
	if errs.IsMissingRelation(err) {
		log.Println("Expected schema missing, using fallback data:", err)
		return ModeFallback
	}
	return ModeLive
}

// Guard holds the process-wide live/fallback classification. It is set
// once at startup and read by every view-model; a later live-mode failure
// that looks like schema absence demotes the whole session exactly once.
type Guard struct {
	mu       sync.Mutex
	mode     Mode
	seeded   *Seeded
	live     store.Store
	notifier errs.Notifier
	demoted  bool
}

func NewGuard(mode Mode, live store.Store, seeded *Seeded, notifier errs.Notifier) *Guard {
	return &Guard{mode: mode, live: live, seeded: seeded, notifier: notifier}
}

// SetNotifier installs the notice surface after construction; the
// registry that receives notices also needs the guard to exist first.
func (g *Guard) SetNotifier(n errs.Notifier) {
	g.mu.Lock()
	g.notifier = n
	g.mu.Unlock()
}

func (g *Guard) Mode() Mode {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mode
}

// Store returns the store matching the current mode.
func (g *Guard) Store() store.Store {
	return g.StoreFor("")
}

// StoreFor returns the store matching the current mode, bound to the
// caller's access token when live. Rows then travel under the caller's
// own credential, so the backend's access policy sees the right user.
func (g *Guard) StoreFor(token string) store.Store {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.mode == ModeFallback {
		return g.seeded
	}
	if token != "" {
		if s, ok := g.live.(*store.Supabase); ok {
			return s.WithToken(token)
		}
	}
	return g.live
}

// Observe inspects a failed live operation. A missing-relation class
// switches the session to fallback for good and surfaces a one-time
// notice; the switch happens at most once.
func (g *Guard) Observe(err error) {
	if err == nil || !errs.IsMissingRelation(err) {
		return
	}
	g.mu.Lock()
	if g.mode == ModeFallback || g.demoted {
		g.mu.Unlock()
		return
	}
	g.mode = ModeFallback
	g.demoted = true
	notifier := g.notifier
	g.mu.Unlock()

	log.Println("Live schema disappeared mid-session, switching to fallback data")
	if notifier != nil {
		notifier.Notify("Working offline with demo data — the hosted database is not set up.")
	}
}
