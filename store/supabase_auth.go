package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

type gotrueUser struct {
	ID           string            `json:"id"`
	Email        string            `json:"email"`
	UserMetadata map[string]string `json:"user_metadata"`
}

type gotrueSession struct {
	AccessToken string     `json:"access_token"`
	User        gotrueUser `json:"user"`
}

func (u gotrueUser) identity() *Identity {
	name := u.UserMetadata["display_name"]
	if name == "" {
		name = DisplayNameFromEmail(u.Email)
	}
	avatar := u.UserMetadata["avatar_initial"]
	if avatar == "" && name != "" {
		avatar = strings.ToUpper(name[:1])
	}
	return &Identity{
		ID:            u.ID,
		Email:         u.Email,
		DisplayName:   name,
		AvatarInitial: avatar,
	}
}

// DisplayNameFromEmail turns "jane.doe@ucsd.edu" into "Jane Doe".
func DisplayNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ").Replace(local)
	words := strings.Fields(local)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// SignIn exchanges a password for an access token. The token travels on
// the returned identity; the client itself stays bound to whatever token
// it was built with, so one server-wide instance never leaks a user's
// credential into another user's requests.
func (s *Supabase) SignIn(ctx context.Context, email, password string) (*Identity, error) {
	payload := map[string]string{"email": email, "password": password}
	body, _, err := s.restRequest(ctx, "POST", "/auth/v1/token?grant_type=password", payload, nil)
	if err != nil {
		return nil, err
	}
	var session gotrueSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode auth session: %w", err)
	}
	identity := session.User.identity()
	identity.AccessToken = session.AccessToken
	s.emitAuthEvent(AuthEvent{Kind: AuthSignedIn, Identity: identity})
	return identity, nil
}

func (s *Supabase) SignUp(ctx context.Context, email, password string, profile Profile) (*Identity, error) {
	payload := map[string]any{
		"email":    email,
		"password": password,
		"data": map[string]string{
			"display_name":   profile.DisplayName,
			"avatar_initial": profile.AvatarInitial,
		},
	}
	body, _, err := s.restRequest(ctx, "POST", "/auth/v1/signup", payload, nil)
	if err != nil {
		return nil, err
	}
	var session gotrueSession
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("failed to decode signup response: %w", err)
	}
	identity := session.User.identity()
	identity.AccessToken = session.AccessToken
	s.emitAuthEvent(AuthEvent{Kind: AuthSignedIn, Identity: identity})
	return identity, nil
}

// SignOut revokes the token this instance is bound to. Meaningful on a
// WithToken clone; on the shared anonymous client there is nothing to
// revoke.
func (s *Supabase) SignOut(ctx context.Context) error {
	if s.accessToken == "" {
		s.emitAuthEvent(AuthEvent{Kind: AuthSignedOut})
		return nil
	}
	_, _, err := s.restRequest(ctx, "POST", "/auth/v1/logout", nil, nil)
	s.emitAuthEvent(AuthEvent{Kind: AuthSignedOut})
	return err
}

func (s *Supabase) CurrentIdentity(ctx context.Context) (*Identity, error) {
	if s.accessToken == "" {
		return nil, nil
	}
	body, _, err := s.restRequest(ctx, "GET", "/auth/v1/user", nil, nil)
	if err != nil {
		return nil, err
	}
	var user gotrueUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, fmt.Errorf("failed to decode current user: %w", err)
	}
	if user.ID == "" {
		return nil, nil
	}
	return user.identity(), nil
}

func (s *Supabase) AuthEvents() <-chan AuthEvent {
	return s.authEvents
}

func (s *Supabase) emitAuthEvent(event AuthEvent) {
	select {
	case s.authEvents <- event:
	default:
		// Nobody is draining the stream; auth state is still queryable.
	}
}
