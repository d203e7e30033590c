package fallback

import (
	"context"
	"fmt"

	"tritonhub/store"

	"golang.org/x/crypto/bcrypt"
)

// Starter communities every fresh account is joined to with a star, so the
// "My Communities" section is populated out of the box.
var starterCommunityIDs = []string{"climbing", "cse", "pre-med"}

type seedCommunity struct {
	id          string
	name        string
	description string
	icon        string
	members     int
}

var seedCommunities = []seedCommunity{
	{"climbing", "UCSD Climbing", "Rock climbing adventures and trips", "🧗", 234},
	{"cse", "CSE Students", "Computer Science & Engineering community", "💻", 1205},
	{"triton-gaming", "Triton Gaming", "Gaming community for UCSD students", "🎮", 892},
	{"pre-med", "Pre-Med Tritons", "Pre-medical students support group", "🏥", 567},
	{"surf-club", "UCSD Surf Club", "Surfing and beach activities", "🏄", 445},
	{"photography", "UCSD Photography", "Photography enthusiasts and workshops", "📸", 321},
}

type seedChannel struct {
	name string
	kind string
	href string
}

var seedChannels = []seedChannel{
	{"chat", "text", ""},
	{"itinerary", "text", ""},
	{"gear-checklist", "text", ""},
	{"food-dietary", "text", ""},
	{"spotify-jam", "link", "https://open.spotify.com/jam/placeholder-jam-id"},
}

type seedActivity struct {
	day         int
	time        string
	text        string
	iconTag     string
	iconColor   string
	borderColor string
}

var seedActivities = []seedActivity{
	{0, "2:00 PM", "Arrive early, set up camp at Upper Pines", "tent", "bg-green-100", "border-green-500"},
	{0, "4:00 PM", "Warm-up bouldering session at Camp 4 boulders", "boulder", "bg-sky-100", "border-sky-500"},
	{0, "5:30 PM", "Cruise around Yosemite Village, explore Ansel Adams Gallery & gift shop", "map", "bg-yellow-100", "border-yellow-500"},
	{0, "7:30 PM", "Chill cookout at camp, group hang, s'mores", "campfire", "bg-orange-100", "border-orange-500"},

	{1, "9:00 AM", "Bouldering Sesh Continued", "boulder", "bg-sky-100", "border-sky-500"},
	{1, "1:00 PM", "Explore valley floor / Sentinel Meadow / Mirror Lake", "camera", "bg-purple-100", "border-purple-500"},
	{1, "8:00 PM", "Night campfire, hangout", "campfire", "bg-orange-100", "border-orange-500"},

	{2, "4:30 AM", "Early start (4–5am)", "sunrise", "bg-pink-100", "border-pink-500"},
	{2, "7:00 AM", "Climb the cables (permits pending)", "hiking", "bg-teal-100", "border-teal-500"},
	{2, "7:05 AM", "Bring poles, snacks, water. It's 10–12 hrs roundtrip", "luggage", "bg-gray-100", "border-gray-500"},
	{2, "5:00 PM", "Yosemite Falls (view or quick visit during/after Half Dome)", "waves", "bg-blue-100", "border-blue-500"},
	{2, "7:30 PM", "Dinner & early crash", "bed", "bg-indigo-100", "border-indigo-500"},

	{3, "9:00 AM", "Sleep in or do a short hike", "bed", "bg-purple-100", "border-purple-500"},
	{3, "11:00 AM", "Explore other Yosemite boulders", "boulder", "bg-sky-100", "border-sky-500"},
	{3, "2:00 PM", "Optional: explore rental bikes or river float", "bike", "bg-lime-100", "border-lime-500"},
	{3, "7:00 PM", "Last night camp vibes, hangout, games", "gamepad", "bg-rose-100", "border-rose-500"},

	{4, "8:00 AM", "Pack up + Brekky", "coffee", "bg-amber-100", "border-amber-500"},
	{4, "9:30 AM", "Optional shower at Curry Village", "shower", "bg-cyan-100", "border-cyan-500"},
	{4, "10:30 AM", "Final Group Pics", "camera", "bg-pink-100", "border-pink-500"},
	{4, "11:00 AM", "Drive back to SD", "car", "bg-slate-100", "border-slate-500"},
}

type seedItem struct {
	text    string
	checked bool
}

var seedGear = []seedItem{
	{"Crash pads (Umair?)", false},
	{"Chalk & chalk bag", true},
	{"Climbing shoes", false},
	{"Tape + brushes", false},
	{"First aid kit", false},
	{"Harnesses", false},
	{"Water bottle / hydration pack", true},
	{"Sunscreen, hat", false},
	{"Warm layers", false},
	{"Hiking poles (recommended for Half Dome)", false},
	{"Snacks / protein bars", false},
}

var seedFood = []seedItem{
	{"S'mores supplies (graham crackers, marshmallows, chocolate)", false},
	{"BBQ items (burgers, hot dogs, buns, condiments)", false},
	{"Soup (canned or instant)", false},
	{"Rice / Pasta / Quinoa", false},
	{"Drinks (juice, soda, coffee, tea)", false},
	{"Water (lots of it!)", true},
	{"Fruits (apples, bananas, oranges)", false},
	{"PB&J supplies (bread, peanut butter, jelly)", false},
	{"Snacks (trail mix, granola bars, chips)", false},
}

func (s *Seeded) seed() error {
	ctx := context.Background()

	hashed, err := bcrypt.GenerateFromPassword([]byte(demoPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	if _, err := s.db.Exec(
		`INSERT INTO users (id, email, password, display_name, avatar_initial) VALUES (?, ?, ?, ?, ?)`,
		"seed-user-triton", "triton@ucsd.edu", string(hashed), "Triton", "T",
	); err != nil {
		return fmt.Errorf("seed users: %w", err)
	}

	for _, c := range seedCommunities {
		if _, err := s.Insert(ctx, store.TableCommunities, store.Row{
			"id":           c.id,
			"name":         c.name,
			"description":  c.description,
			"icon":         c.icon,
			"member_count": c.members,
		}); err != nil {
			return fmt.Errorf("seed communities: %w", err)
		}
		for _, ch := range seedChannels {
			if _, err := s.Insert(ctx, store.TableChannels, store.Row{
				"id":           c.id + "-" + ch.name,
				"name":         ch.name,
				"kind":         ch.kind,
				"community_id": c.id,
				"href":         ch.href,
			}); err != nil {
				return fmt.Errorf("seed channels: %w", err)
			}
		}
	}

	// Trip-planning content lives in the climbing community only, like
	// the demo; every community gets the same five channels, so the other
	// communities' itinerary/gear/food channels open empty.
	for _, a := range seedActivities {
		if _, err := s.Insert(ctx, store.TableActivities, store.Row{
			"text":         a.text,
			"time_label":   a.time,
			"day_index":    a.day,
			"channel_id":   "climbing-itinerary",
			"icon_tag":     a.iconTag,
			"icon_color":   a.iconColor,
			"border_color": a.borderColor,
		}); err != nil {
			return fmt.Errorf("seed activities: %w", err)
		}
	}
	for _, item := range seedGear {
		if _, err := s.Insert(ctx, store.TableChecklist, store.Row{
			"text":       item.text,
			"checked":    item.checked,
			"channel_id": "climbing-gear-checklist",
		}); err != nil {
			return fmt.Errorf("seed gear: %w", err)
		}
	}
	for _, item := range seedFood {
		if _, err := s.Insert(ctx, store.TableFood, store.Row{
			"text":       item.text,
			"checked":    item.checked,
			"channel_id": "climbing-food-dietary",
		}); err != nil {
			return fmt.Errorf("seed food: %w", err)
		}
	}
	return nil
}

// ensureStarterMemberships stars the default communities for a fresh
// account. Existing memberships are left alone.
func (s *Seeded) ensureStarterMemberships(ctx context.Context, userID string) {
	for _, communityID := range starterCommunityIDs {
		existing, err := s.Count(ctx, store.TableMembers, store.Filter{
			"user_id":      userID,
			"community_id": communityID,
		})
		if err != nil || existing > 0 {
			continue
		}
		if _, err := s.Insert(ctx, store.TableMembers, store.Row{
			"user_id":      userID,
			"community_id": communityID,
			"is_starred":   true,
		}); err != nil {
			continue
		}
		bumpMemberCount(ctx, s, communityID, 1)
	}
}

// bumpMemberCount adjusts a community's member_count, never below zero.
func bumpMemberCount(ctx context.Context, st store.Store, communityID string, delta int) {
	rows, err := st.Select(ctx, store.TableCommunities, store.Filter{"id": communityID}, nil, 1)
	if err != nil || len(rows) == 0 {
		return
	}
	count, _ := rows[0]["member_count"].(int)
	count += delta
	if count < 0 {
		count = 0
	}
	st.Update(ctx, store.TableCommunities, store.Filter{"id": communityID}, store.Row{"member_count": count})
}
