package fallback

import (
	"context"
	"strings"
	"testing"
	"time"

	"tritonhub/errs"
	"tritonhub/store"
)

func newTestSeeded(t *testing.T) *Seeded {
	t.Helper()
	s, err := NewSeeded(":memory:")
	if err != nil {
		t.Fatalf("NewSeeded: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func TestSeedData(t *testing.T) {
	s := newTestSeeded(t)
	ctx := context.Background()

	communities, err := s.Select(ctx, store.TableCommunities, nil, nil, 0)
	if err != nil {
		t.Fatalf("select communities: %v", err)
	}
	if len(communities) != 6 {
		t.Fatalf("expected 6 seed communities, got %d", len(communities))
	}

	channels, err := s.Select(ctx, store.TableChannels,
		store.Filter{"community_id": "climbing"}, nil, 0)
	if err != nil {
		t.Fatalf("select channels: %v", err)
	}
	if len(channels) != 5 {
		t.Fatalf("expected 5 channels per community, got %d", len(channels))
	}

	activities, err := s.Select(ctx, store.TableActivities,
		store.Filter{"channel_id": "climbing-itinerary"}, nil, 0)
	if err != nil {
		t.Fatalf("select activities: %v", err)
	}
	if len(activities) == 0 {
		t.Fatalf("itinerary seed missing")
	}
}

func TestInsertRoundTrip(t *testing.T) {
	s := newTestSeeded(t)
	ctx := context.Background()

	row, err := s.Insert(ctx, store.TableMessages, store.Row{
		"content": "hello", "author_id": "u1", "author_name": "Triton",
		"author_avatar": "T", "channel_id": "climbing-chat",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	id, _ := row["id"].(string)
	if !strings.HasPrefix(id, LocalIDPrefix) {
		t.Fatalf("fallback insert fabricated id %q", id)
	}
	if createdAt, _ := row["created_at"].(string); createdAt == "" {
		t.Fatalf("insert did not stamp created_at")
	}

	got, err := s.Select(ctx, store.TableMessages, store.Filter{"id": id}, nil, 1)
	if err != nil || len(got) != 1 {
		t.Fatalf("select after insert: %v", err)
	}
	if got[0]["content"] != "hello" {
		t.Fatalf("round trip lost content: %v", got[0]["content"])
	}
}

func TestBoolAndIntColumns(t *testing.T) {
	s := newTestSeeded(t)
	ctx := context.Background()

	row, err := s.Insert(ctx, store.TableChecklist, store.Row{
		"text": "rope", "checked": true, "channel_id": "climbing-gear-checklist",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if checked, ok := row["checked"].(bool); !ok || !checked {
		t.Fatalf("checked came back as %T %v", row["checked"], row["checked"])
	}

	communities, err := s.Select(ctx, store.TableCommunities, store.Filter{"id": "climbing"}, nil, 1)
	if err != nil || len(communities) != 1 {
		t.Fatalf("select: %v", err)
	}
	if _, ok := communities[0]["member_count"].(int); !ok {
		t.Fatalf("member_count came back as %T", communities[0]["member_count"])
	}
}

func TestUpdateAndDelete(t *testing.T) {
	s := newTestSeeded(t)
	ctx := context.Background()

	row, err := s.Insert(ctx, store.TableChecklist, store.Row{
		"text": "rope", "checked": false, "channel_id": "climbing-gear-checklist",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	id, _ := row["id"].(string)

	if err := s.Update(ctx, store.TableChecklist, store.Filter{"id": id}, store.Row{"checked": true}); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, _ := s.Select(ctx, store.TableChecklist, store.Filter{"id": id}, nil, 1)
	if checked, _ := got[0]["checked"].(bool); !checked {
		t.Fatalf("update did not stick")
	}

	if err := s.Delete(ctx, store.TableChecklist, store.Filter{"id": id}); err != nil {
		t.Fatalf("delete: %v", err)
	}
	got, _ = s.Select(ctx, store.TableChecklist, store.Filter{"id": id}, nil, 1)
	if len(got) != 0 {
		t.Fatalf("delete left the row behind")
	}
}

func TestUnknownTableLooksLikeMissingRelation(t *testing.T) {
	s := newTestSeeded(t)

	_, err := s.Select(context.Background(), "nonexistent", nil, nil, 0)
	if err == nil || !errs.IsMissingRelation(err) {
		t.Fatalf("expected missing-relation error, got %v", err)
	}
}

func TestUniqueMembershipIsConflict(t *testing.T) {
	s := newTestSeeded(t)
	ctx := context.Background()

	row := store.Row{"user_id": "u1", "community_id": "climbing", "is_starred": false}
	if _, err := s.Insert(ctx, store.TableMembers, row); err != nil {
		t.Fatalf("first insert: %v", err)
	}
	_, err := s.Insert(ctx, store.TableMembers, store.Row{
		"user_id": "u1", "community_id": "climbing", "is_starred": false,
	})
	if err == nil || !errs.IsConflict(err) {
		t.Fatalf("expected conflict on duplicate membership, got %v", err)
	}
}

func TestSubscribeDeliversLocalEvents(t *testing.T) {
	s := newTestSeeded(t)
	ctx := context.Background()

	sub, err := s.Subscribe(store.TableMessages, store.Filter{"channel_id": "climbing-chat"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer sub.Unsubscribe()

	other, err := s.Subscribe(store.TableMessages, store.Filter{"channel_id": "cse-chat"})
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer other.Unsubscribe()

	inserted, err := s.Insert(ctx, store.TableMessages, store.Row{
		"content": "hello", "author_id": "u1", "author_name": "Triton",
		"author_avatar": "T", "channel_id": "climbing-chat",
	})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	select {
	case event := <-sub.Events:
		if event.Type != store.EventInsert {
			t.Fatalf("expected INSERT, got %s", event.Type)
		}
		if event.Row["id"] != inserted["id"] {
			t.Fatalf("event carries wrong row")
		}
	case <-time.After(time.Second):
		t.Fatalf("no event delivered")
	}

	select {
	case event := <-other.Events:
		t.Fatalf("event leaked across the filter: %v", event)
	default:
	}

	sub.Unsubscribe()
	sub.Unsubscribe() // second call must be safe
}

func TestAuthDemoRules(t *testing.T) {
	s := newTestSeeded(t)
	ctx := context.Background()

	// Seeded account with the demo password.
	identity, err := s.SignIn(ctx, "triton@ucsd.edu", "password123")
	if err != nil {
		t.Fatalf("seeded sign-in: %v", err)
	}
	if identity.DisplayName != "Triton" {
		t.Fatalf("wrong identity: %+v", identity)
	}

	// Unknown campus address with the demo password gets an account.
	identity, err = s.SignIn(ctx, "jane.doe@ucsd.edu", "password123")
	if err != nil {
		t.Fatalf("auto sign-up: %v", err)
	}
	if identity.DisplayName != "Jane Doe" || identity.AvatarInitial != "J" {
		t.Fatalf("derived profile wrong: %+v", identity)
	}

	// Starter memberships come with every fresh account.
	for _, communityID := range starterCommunityIDs {
		n, err := s.Count(ctx, store.TableMembers, store.Filter{
			"user_id": identity.ID, "community_id": communityID,
		})
		if err != nil || n != 1 {
			t.Fatalf("starter membership %s: n=%d err=%v", communityID, n, err)
		}
	}

	// Wrong password is refused.
	if _, err := s.SignIn(ctx, "triton@ucsd.edu", "not-the-password"); err == nil {
		t.Fatalf("expected rejected credentials")
	}
}
