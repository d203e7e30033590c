package views

import (
	"context"
	"sync"

	"tritonhub/errs"
	"tritonhub/store"
)

// Communities owns the reconciled community list for one signed-in user,
// including the per-viewer is_member/is_starred state derived from the
// membership relation.
type Communities struct {
	backend *Backend
	user    store.Identity

	mu       sync.Mutex
	inFlight map[string]bool
	sub      *store.Subscription

	list *Collection[Community]
}

func NewCommunities(backend *Backend, user store.Identity) *Communities {
	return &Communities{
		backend:  backend,
		user:     user,
		inFlight: make(map[string]bool),
		list:     NewCollection[Community](nil),
	}
}

func (v *Communities) Communities() []Community {
	return v.list.Snapshot()
}

func (v *Communities) Community(communityID string) (Community, bool) {
	return v.list.Get(communityID)
}

func (v *Communities) Status() Status {
	return v.list.Status()
}

// Load fetches every community plus this user's memberships and merges
// the derived flags. On failure the previous list stays usable.
func (v *Communities) Load(ctx context.Context) error {
	rows, err := v.backend.Store().Select(ctx, store.TableCommunities, nil, nil, 0)
	if err != nil {
		v.backend.report(err, "loading communities")
		return err
	}
	memberRows, err := v.backend.Store().Select(ctx, store.TableMembers,
		store.Filter{"user_id": v.user.ID}, nil, 0)
	if err != nil {
		v.backend.report(err, "loading memberships")
		return err
	}

	memberships := make(map[string]Membership, len(memberRows))
	for _, row := range memberRows {
		m, err := store.DecodeRow[Membership](row)
		if err != nil {
			continue
		}
		memberships[m.CommunityID] = m
	}

	communities := make([]Community, 0, len(rows))
	for _, row := range rows {
		community, err := store.DecodeRow[Community](row)
		if err != nil {
			continue
		}
		if m, ok := memberships[community.ID]; ok {
			community.IsMember = true
			community.IsStarred = m.IsStarred
		}
		communities = append(communities, community)
	}
	v.list.Replace(communities)
	return nil
}

// Subscribe keeps member counts fresh when other clients join or leave.
func (v *Communities) Subscribe() error {
	sub, err := v.backend.Store().Subscribe(store.TableCommunities, nil)
	if err != nil {
		v.backend.report(err, "subscribing to communities")
		return err
	}
	v.mu.Lock()
	v.sub = sub
	v.mu.Unlock()

	go func() {
		for event := range sub.Events {
			community, err := store.DecodeRow[Community](event.Row)
			if err != nil || community.ID == "" {
				continue
			}
			switch event.Type {
			case store.EventInsert:
				v.list.Upsert(community)
			case store.EventUpdate:
				// Keep the viewer-derived flags; only the shared fields
				// may have changed remotely.
				v.list.Mutate(community.ID, func(c *Community) {
					c.Name = community.Name
					c.Description = community.Description
					c.Icon = community.Icon
					c.MemberCount = community.MemberCount
				})
			case store.EventDelete:
				v.list.Remove(community.ID)
			}
		}
	}()
	return nil
}

// Join adds the user to a community. Joining one they already belong to
// is a conflict: the error surfaces and neither flags nor the member
// count move.
func (v *Communities) Join(ctx context.Context, communityID string) error {
	if !v.beginOp(communityID) {
		return nil
	}
	defer v.endOp(communityID)

	community, ok := v.list.Get(communityID)
	if !ok {
		return nil
	}
	if community.IsMember {
		conflict := &errs.Remote{Code: "23505", Message: "duplicate membership"}
		v.backend.report(conflict, "joining community")
		return conflict
	}

	row := store.Row{
		"user_id":      v.user.ID,
		"community_id": communityID,
		"is_starred":   false,
	}
	if id := v.backend.newRowID(); id != "" {
		row["id"] = id
	}
	if _, err := v.backend.Store().Insert(ctx, store.TableMembers, row); err != nil {
		v.backend.report(err, "joining community")
		return err
	}

	newCount := community.MemberCount + 1
	if err := v.backend.Store().Update(ctx, store.TableCommunities,
		store.Filter{"id": communityID}, store.Row{"member_count": newCount}); err != nil {
		// The membership took; the count catches up on the next load.
		v.backend.Guard.Observe(err)
	}
	v.list.Mutate(communityID, func(c *Community) {
		c.IsMember = true
		c.MemberCount = newCount
	})
	return nil
}

// Leave removes the membership. Leaving a community the user is not in is
// a no-op; the member count can never go negative.
func (v *Communities) Leave(ctx context.Context, communityID string) error {
	if !v.beginOp(communityID) {
		return nil
	}
	defer v.endOp(communityID)

	community, ok := v.list.Get(communityID)
	if !ok || !community.IsMember {
		return nil
	}

	if err := v.backend.Store().Delete(ctx, store.TableMembers, store.Filter{
		"user_id":      v.user.ID,
		"community_id": communityID,
	}); err != nil {
		v.backend.report(err, "leaving community")
		return err
	}

	newCount := community.MemberCount - 1
	if newCount < 0 {
		newCount = 0
	}
	if err := v.backend.Store().Update(ctx, store.TableCommunities,
		store.Filter{"id": communityID}, store.Row{"member_count": newCount}); err != nil {
		v.backend.Guard.Observe(err)
	}
	v.list.Mutate(communityID, func(c *Community) {
		c.IsMember = false
		c.IsStarred = false
		c.MemberCount = newCount
	})
	return nil
}

// ToggleStar flips the star optimistically and reverts on failure.
func (v *Communities) ToggleStar(ctx context.Context, communityID string) error {
	community, ok := v.list.Get(communityID)
	if !ok || !community.IsMember {
		return nil
	}

	wanted := !community.IsStarred
	v.list.Mutate(communityID, func(c *Community) { c.IsStarred = wanted })

	err := v.backend.Store().Update(ctx, store.TableMembers, store.Filter{
		"user_id":      v.user.ID,
		"community_id": communityID,
	}, store.Row{"is_starred": wanted})
	if err != nil {
		v.list.Mutate(communityID, func(c *Community) { c.IsStarred = !wanted })
		v.backend.report(err, "starring community")
		return err
	}
	return nil
}

func (v *Communities) Close() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}

func (v *Communities) beginOp(communityID string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.inFlight[communityID] {
		return false
	}
	v.inFlight[communityID] = true
	return true
}

func (v *Communities) endOp(communityID string) {
	v.mu.Lock()
	delete(v.inFlight, communityID)
	v.mu.Unlock()
}
