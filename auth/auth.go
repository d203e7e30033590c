package auth

import (
	"errors"
	"log"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"tritonhub/app"
	"tritonhub/errs"
	"tritonhub/session"
	"tritonhub/store"
)

// Service wires the HTTP auth surface to the mode-appropriate identity
// backend and the client registry.
type Service struct {
	Registry *app.Registry
	Auth     func() store.Auth
}

func secureCookies() bool {
	return os.Getenv("ENV") == "production"
}

// HandleLogin signs a user in. Validation runs before any backend call:
// missing fields, then email domain, then password length, each a 400;
// rejected credentials are a 401; anything else a 500.
func (s *Service) HandleLogin(c *gin.Context) {
	var json struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request data"})
		return
	}
	if err := session.ValidateCredentials(json.Email, json.Password); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	identity, err := s.Auth().SignIn(c.Request.Context(), json.Email, json.Password)
	if err != nil {
		if rejected(err) {
			c.JSON(401, gin.H{"error": "Invalid email or password"})
			return
		}
		log.Println("Sign-in failed:", err)
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to sign in")})
		return
	}

	s.issueSession(c, *identity)
	c.JSON(200, gin.H{"user": identity})
}

// HandleSignup registers a new account and signs it in. The same
// validation order applies; a taken email is a 400.
func (s *Service) HandleSignup(c *gin.Context) {
	var json struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.BindJSON(&json); err != nil {
		c.JSON(400, gin.H{"error": "Invalid request data"})
		return
	}
	if err := session.ValidateCredentials(json.Email, json.Password); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}

	name := store.DisplayNameFromEmail(json.Email)
	profile := store.Profile{DisplayName: name}
	if name != "" {
		profile.AvatarInitial = strings.ToUpper(name[:1])
	}

	identity, err := s.Auth().SignUp(c.Request.Context(), json.Email, json.Password, profile)
	if err != nil {
		if errs.IsConflict(err) {
			c.JSON(400, gin.H{"error": errs.MsgAlreadyExists})
			return
		}
		if rejected(err) {
			c.JSON(401, gin.H{"error": "Invalid email or password"})
			return
		}
		log.Println("Sign-up failed:", err)
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to sign up")})
		return
	}

	s.issueSession(c, *identity)
	c.JSON(201, gin.H{"user": identity})
}

// HandleLogout clears the session cookie and tears down the client.
func (s *Service) HandleLogout(c *gin.Context) {
	identity, ok := CurrentUser(c)
	if !ok {
		if cookie, err := c.Cookie(session.CookieName); err == nil {
			identity, _ = session.ParseToken(cookie)
		}
	}
	if identity.ID != "" {
		s.Registry.Drop(identity.ID)
	}

	// Revoke the caller's own token, not whatever the shared client holds.
	remote := s.Auth()
	if supa, isLive := remote.(*store.Supabase); isLive && identity.AccessToken != "" {
		remote = supa.WithToken(identity.AccessToken)
	}
	if err := remote.SignOut(c.Request.Context()); err != nil {
		log.Println("Remote sign-out failed:", err)
	}

	c.SetCookie(session.CookieName, "", -1, "/", "", secureCookies(), true)
	c.JSON(200, gin.H{"message": "Signed out"})
}

func (s *Service) issueSession(c *gin.Context, identity store.Identity) {
	token, err := session.GenerateToken(identity)
	if err != nil {
		log.Println("Failed to generate session token:", err)
		return
	}
	c.SetCookie(session.CookieName, token,
		int(session.TokenLifetime.Seconds()), "/", "", secureCookies(), true)
	s.Registry.Attach(identity)
}

// AuthMiddleware admits requests carrying a valid session token, from
// the cookie or a bearer header, and puts the identity in the context.
func (s *Service) AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := c.Cookie(session.CookieName)
		if err != nil || tokenString == "" {
			tokenString = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if tokenString == "" {
			c.JSON(401, gin.H{"error": "Authorization required"})
			c.Abort()
			return
		}

		identity, err := session.ParseToken(tokenString)
		if err != nil {
			c.JSON(401, gin.H{"error": "Invalid or expired token"})
			c.Abort()
			return
		}

		c.Set("userID", identity.ID)
		c.Set("userEmail", identity.Email)
		c.Set("identity", identity)
		c.Next()
	}
}

// CurrentUser reads the identity the middleware stored.
func CurrentUser(c *gin.Context) (store.Identity, bool) {
	raw, ok := c.Get("identity")
	if !ok {
		return store.Identity{}, false
	}
	identity, ok := raw.(store.Identity)
	return identity, ok
}

// rejected reports whether the backend refused the credentials rather
// than failing outright.
func rejected(err error) bool {
	var remote *errs.Remote
	if errors.As(err, &remote) {
		return remote.StatusCode == 400 || remote.StatusCode == 401 || remote.StatusCode == 403
	}
	return false
}
