package fallback

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"tritonhub/store"
)

func TestStoreForBindsCallerToken(t *testing.T) {
	var bearers []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		bearers = append(bearers, r.Header.Get("Authorization"))
		w.Write([]byte("[]"))
	}))
	defer server.Close()

	live := store.NewSupabase(server.URL, "anon-key")
	g := NewGuard(ModeLive, live, nil, nil)
	ctx := context.Background()

	if _, err := g.StoreFor("user-token").Select(ctx, store.TableCommunities, nil, nil, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if _, err := g.Store().Select(ctx, store.TableCommunities, nil, nil, 1); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(bearers) != 2 || bearers[0] != "Bearer user-token" || bearers[1] != "Bearer anon-key" {
		t.Fatalf("wrong bearers: %v", bearers)
	}
}

func TestStoreForIgnoresTokenInFallback(t *testing.T) {
	seeded := newTestSeeded(t)
	g := NewGuard(ModeFallback, store.NewSupabase("", ""), seeded, nil)

	got, ok := g.StoreFor("user-token").(*Seeded)
	if !ok || got != seeded {
		t.Fatalf("fallback mode did not serve the seeded store")
	}
}
