package session

import (
	"context"
	"errors"
	"strings"
	"sync"

	"tritonhub/store"
)

// State names where the user is in the app.
type State int

const (
	StateLoggedOut State = iota
	StateAuthenticating
	StateCommunities
	StateCommunityDetail
)

func (s State) String() string {
	switch s {
	case StateAuthenticating:
		return "authenticating"
	case StateCommunities:
		return "communities"
	case StateCommunityDetail:
		return "community_detail"
	default:
		return "logged_out"
	}
}

// Credential validation runs before any remote call.
var (
	ErrMissingFields = errors.New("Email and password are required")
	ErrBadDomain     = errors.New("Please use your @ucsd.edu email address")
	ErrShortPassword = errors.New("Password must be at least 6 characters")
)

// ValidateCredentials applies the sign-in rules in a fixed order: missing
// fields, then email domain, then password length.
func ValidateCredentials(email, password string) error {
	if email == "" || password == "" {
		return ErrMissingFields
	}
	if !strings.HasSuffix(strings.ToLower(email), "@ucsd.edu") {
		return ErrBadDomain
	}
	if len(password) < 6 {
		return ErrShortPassword
	}
	return nil
}

// Controller is the navigation state machine for one signed-in user:
// LoggedOut, Authenticating, Communities, CommunityDetail. Entering
// CommunityDetail requires a selected community; logout works from
// anywhere and clears everything.
type Controller struct {
	auth store.Auth

	mu          sync.Mutex
	state       State
	identity    *store.Identity
	communityID string
}

func NewController(auth store.Auth) *Controller {
	return &Controller{auth: auth, state: StateLoggedOut}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Controller) Identity() (store.Identity, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.identity == nil {
		return store.Identity{}, false
	}
	return *c.identity, true
}

// CommunityID returns the selected community, empty outside of
// CommunityDetail.
func (c *Controller) CommunityID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.communityID
}

// SignIn validates locally, then authenticates against the store. Any
// failure lands back in LoggedOut.
func (c *Controller) SignIn(ctx context.Context, email, password string) (store.Identity, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return store.Identity{}, err
	}
	if !c.beginAuth() {
		return store.Identity{}, errors.New("sign-in already in progress")
	}

	identity, err := c.auth.SignIn(ctx, email, password)
	if err != nil {
		c.finishAuth(nil)
		return store.Identity{}, err
	}
	c.finishAuth(identity)
	return *identity, nil
}

// SignUp validates locally, then registers and signs the new user in.
func (c *Controller) SignUp(ctx context.Context, email, password string) (store.Identity, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return store.Identity{}, err
	}
	if !c.beginAuth() {
		return store.Identity{}, errors.New("sign-up already in progress")
	}

	name := store.DisplayNameFromEmail(email)
	profile := store.Profile{DisplayName: name}
	if name != "" {
		profile.AvatarInitial = strings.ToUpper(name[:1])
	}

	identity, err := c.auth.SignUp(ctx, email, password, profile)
	if err != nil {
		c.finishAuth(nil)
		return store.Identity{}, err
	}
	c.finishAuth(identity)
	return *identity, nil
}

// Restore resumes a session from an already-verified token identity, as
// on startup with a valid cookie.
func (c *Controller) Restore(identity store.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.identity = &identity
	c.state = StateCommunities
	c.communityID = ""
}

// SelectCommunity moves into CommunityDetail. It refuses an empty id and
// does nothing while logged out.
func (c *Controller) SelectCommunity(communityID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateCommunities && c.state != StateCommunityDetail {
		return errors.New("not signed in")
	}
	if communityID == "" {
		return errors.New("no community selected")
	}
	c.communityID = communityID
	c.state = StateCommunityDetail
	return nil
}

// Deselect returns to the community list.
func (c *Controller) Deselect() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateCommunityDetail {
		c.communityID = ""
		c.state = StateCommunities
	}
}

// Logout works from any state and always lands in LoggedOut.
func (c *Controller) Logout(ctx context.Context) {
	c.mu.Lock()
	c.identity = nil
	c.communityID = ""
	c.state = StateLoggedOut
	auth := c.auth
	c.mu.Unlock()

	if auth != nil {
		if err := auth.SignOut(ctx); err != nil {
			// Local state is already cleared; the remote session expires
			// on its own.
			return
		}
	}
}

func (c *Controller) beginAuth() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == StateAuthenticating {
		return false
	}
	c.state = StateAuthenticating
	return true
}

func (c *Controller) finishAuth(identity *store.Identity) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if identity == nil {
		c.identity = nil
		c.state = StateLoggedOut
		return
	}
	c.identity = identity
	c.state = StateCommunities
	c.communityID = ""
}
