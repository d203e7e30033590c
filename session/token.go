package session

import (
	"fmt"
	"os"
	"time"

	jwt "github.com/dgrijalva/jwt-go"

	"tritonhub/store"
)

// CookieName carries the session token in the browser.
const CookieName = "auth_token"

// TokenLifetime is how long a signed-in session stays valid.
const TokenLifetime = time.Hour * 672 // 28 days

// GenerateToken signs an HS256 session token for the identity.
func GenerateToken(identity store.Identity) (string, error) {
	jwtSecret := os.Getenv("JWT_SECRET")
	claims := jwt.MapClaims{
		"userID":      identity.ID,
		"userEmail":   identity.Email,
		"userName":    identity.DisplayName,
		"userAvatar":  identity.AvatarInitial,
		"accessToken": identity.AccessToken,
		"exp":         time.Now().Add(TokenLifetime).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(jwtSecret))
	if err != nil {
		return "", err
	}
	return tokenString, nil
}

// ParseToken validates a session token and recovers the identity it was
// issued for.
func ParseToken(tokenString string) (store.Identity, error) {
	jwtSecret := os.Getenv("JWT_SECRET")

	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(jwtSecret), nil
	})
	if err != nil || !token.Valid {
		return store.Identity{}, fmt.Errorf("invalid or expired token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return store.Identity{}, fmt.Errorf("invalid token claims")
	}

	identity := store.Identity{
		ID:            claimString(claims, "userID"),
		Email:         claimString(claims, "userEmail"),
		DisplayName:   claimString(claims, "userName"),
		AvatarInitial: claimString(claims, "userAvatar"),
		AccessToken:   claimString(claims, "accessToken"),
	}
	if identity.ID == "" || identity.Email == "" {
		return store.Identity{}, fmt.Errorf("token missing identity claims")
	}
	return identity, nil
}

func claimString(claims jwt.MapClaims, key string) string {
	if v, ok := claims[key].(string); ok {
		return v
	}
	return ""
}
