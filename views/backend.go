package views

import (
	"tritonhub/errs"
	"tritonhub/fallback"
	"tritonhub/store"
)

// Backend bundles what every view-model needs: the mode guard choosing
// between the live and seeded stores, the caller's access token, and the
// notification surface. It is injected explicitly so tests can swap any
// piece.
type Backend struct {
	Guard    *fallback.Guard
	Token    string
	Notifier errs.Notifier
}

func (b *Backend) Store() store.Store {
	return b.Guard.StoreFor(b.Token)
}

func (b *Backend) Mode() fallback.Mode {
	return b.Guard.Mode()
}

// report routes a failed remote operation through the normalizer and lets
// the guard demote the session if the schema went missing.
func (b *Backend) report(err error, context string) string {
	b.Guard.Observe(err)
	return errs.ReportRemote(b.Notifier, err, context)
}

// newRowID fabricates an id for rows created while in fallback mode. Live
// rows keep their server-assigned ids.
func (b *Backend) newRowID() string {
	if b.Mode() == fallback.ModeFallback {
		return fallback.NewLocalID()
	}
	return ""
}
