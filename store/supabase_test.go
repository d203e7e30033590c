package store

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// newFakeProject stands in for GoTrue and PostgREST: password grants mint
// a token derived from the email, and every rest call records the bearer
// it arrived with.
func newFakeProject(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	bearers := &[]string{}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/token", func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Email string `json:"email"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			w.WriteHeader(400)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"access_token": "token-for-" + creds.Email,
			"user": map[string]any{
				"id":    "id-" + creds.Email,
				"email": creds.Email,
			},
		})
	})
	mux.HandleFunc("/rest/v1/communities", func(w http.ResponseWriter, r *http.Request) {
		*bearers = append(*bearers, r.Header.Get("Authorization"))
		w.Write([]byte("[]"))
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, bearers
}

func TestSignInDoesNotRebindSharedClient(t *testing.T) {
	server, bearers := newFakeProject(t)
	shared := NewSupabase(server.URL, "anon-key")
	ctx := context.Background()

	alice, err := shared.SignIn(ctx, "alice@ucsd.edu", "password123")
	if err != nil {
		t.Fatalf("sign-in: %v", err)
	}
	if alice.AccessToken != "token-for-alice@ucsd.edu" {
		t.Fatalf("token missing from identity: %+v", alice)
	}

	// The shared client keeps running under the anon key.
	if _, err := shared.Select(ctx, TableCommunities, nil, nil, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	// Alice's clone carries her token.
	aliceStore := shared.WithToken(alice.AccessToken)
	if _, err := aliceStore.Select(ctx, TableCommunities, nil, nil, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	// Bob signing in on the shared client must not touch Alice's clone
	// nor the shared client.
	bob, err := shared.SignIn(ctx, "bob@ucsd.edu", "password123")
	if err != nil {
		t.Fatalf("sign-in: %v", err)
	}
	if _, err := aliceStore.Select(ctx, TableCommunities, nil, nil, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := shared.Select(ctx, TableCommunities, nil, nil, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := shared.WithToken(bob.AccessToken).Select(ctx, TableCommunities, nil, nil, 1); err != nil {
		t.Fatalf("select: %v", err)
	}

	want := []string{
		"Bearer anon-key",
		"Bearer token-for-alice@ucsd.edu",
		"Bearer token-for-alice@ucsd.edu",
		"Bearer anon-key",
		"Bearer token-for-bob@ucsd.edu",
	}
	got := *bearers
	if len(got) != len(want) {
		t.Fatalf("recorded %d requests, want %d: %v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("request %d ran as %q, want %q", i, got[i], want[i])
		}
	}
}

func TestIdentityJSONOmitsToken(t *testing.T) {
	body, err := json.Marshal(Identity{
		ID: "u1", Email: "alice@ucsd.edu", AccessToken: "token-for-alice@ucsd.edu",
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(body), "token-for") {
		t.Fatalf("access token leaked into the response body: %s", body)
	}
}
