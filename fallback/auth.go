package fallback

import (
	"context"
	"fmt"
	"strings"

	"tritonhub/errs"
	"tritonhub/store"

	"golang.org/x/crypto/bcrypt"
)

// The demo password every seeded account accepts, mirroring the hosted
// project's demo data.
const demoPassword = "password123"

func (s *Seeded) SignIn(ctx context.Context, email, password string) (*store.Identity, error) {
	rows, err := s.Select(ctx, "users", store.Filter{"email": email}, nil, 1)
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		// Unknown campus address with the demo password gets an account on
		// the fly, the way the demo backend behaves.
		if password != demoPassword {
			return nil, &errs.Remote{StatusCode: 401, Message: "Invalid email or password"}
		}
		return s.SignUp(ctx, email, password, store.Profile{})
	}

	hashed, _ := rows[0]["password"].(string)
	if bcrypt.CompareHashAndPassword([]byte(hashed), []byte(password)) != nil {
		return nil, &errs.Remote{StatusCode: 401, Message: "Invalid email or password"}
	}

	identity := identityFromRow(rows[0])
	s.finishSignIn(ctx, identity)
	return identity, nil
}

func (s *Seeded) SignUp(ctx context.Context, email, password string, profile store.Profile) (*store.Identity, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	name := profile.DisplayName
	if name == "" {
		name = store.DisplayNameFromEmail(email)
	}
	avatar := profile.AvatarInitial
	if avatar == "" && name != "" {
		avatar = strings.ToUpper(name[:1])
	}

	row, err := s.Insert(ctx, "users", store.Row{
		"email":          email,
		"password":       string(hashed),
		"display_name":   name,
		"avatar_initial": avatar,
	})
	if err != nil {
		return nil, err
	}

	identity := identityFromRow(row)
	s.finishSignIn(ctx, identity)
	return identity, nil
}

func (s *Seeded) SignOut(ctx context.Context) error {
	s.mu.Lock()
	s.current = nil
	s.mu.Unlock()
	s.emitAuthEvent(store.AuthEvent{Kind: store.AuthSignedOut})
	return nil
}

func (s *Seeded) CurrentIdentity(ctx context.Context) (*store.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, nil
}

func (s *Seeded) AuthEvents() <-chan store.AuthEvent {
	return s.authEvents
}

func (s *Seeded) finishSignIn(ctx context.Context, identity *store.Identity) {
	s.mu.Lock()
	s.current = identity
	s.mu.Unlock()

	s.ensureStarterMemberships(ctx, identity.ID)
	s.emitAuthEvent(store.AuthEvent{Kind: store.AuthSignedIn, Identity: identity})
}

func (s *Seeded) emitAuthEvent(event store.AuthEvent) {
	select {
	case s.authEvents <- event:
	default:
	}
}

func identityFromRow(row store.Row) *store.Identity {
	str := func(k string) string {
		v, _ := row[k].(string)
		return v
	}
	return &store.Identity{
		ID:            str("id"),
		Email:         str("email"),
		DisplayName:   str("display_name"),
		AvatarInitial: str("avatar_initial"),
	}
}
