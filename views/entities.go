package views

// Entity is anything reconcilable by id.
type Entity interface {
	EntityID() string
}

type Community struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	MemberCount int    `json:"member_count"`
	// Derived per viewer from the membership relation.
	IsStarred bool `json:"is_starred"`
	IsMember  bool `json:"is_member"`
}

func (c Community) EntityID() string { return c.ID }

type Membership struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	CommunityID string `json:"community_id"`
	IsStarred   bool   `json:"is_starred"`
	JoinedAt    string `json:"joined_at"`
}

func (m Membership) EntityID() string { return m.ID }

type Channel struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Kind        string `json:"kind"` // text, voice or link
	CommunityID string `json:"community_id"`
	Href        string `json:"href,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func (c Channel) EntityID() string { return c.ID }

type Message struct {
	ID           string `json:"id"`
	Content      string `json:"content"`
	AuthorID     string `json:"author_id"`
	AuthorName   string `json:"author_name"`
	AuthorAvatar string `json:"author_avatar"`
	ChannelID    string `json:"channel_id"`
	ReplyTo      string `json:"reply_to,omitempty"`
	CreatedAt    string `json:"created_at"`
}

func (m Message) EntityID() string { return m.ID }

type Activity struct {
	ID          string `json:"id"`
	Text        string `json:"text"`
	TimeLabel   string `json:"time_label"`
	DayIndex    int    `json:"day_index"`
	ChannelID   string `json:"channel_id"`
	IconTag     string `json:"icon_tag"`
	IconColor   string `json:"icon_color"`
	BorderColor string `json:"border_color"`
	CreatedBy   string `json:"created_by,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

func (a Activity) EntityID() string { return a.ID }

// Item is one checklist or food-planning entry; the two lists share a
// shape and differ only in their backing table.
type Item struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Checked   bool   `json:"checked"`
	ChannelID string `json:"channel_id"`
	CreatedBy string `json:"created_by,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func (i Item) EntityID() string { return i.ID }

// DayBucket is one template-defined itinerary day. Buckets are fixed by
// the trip template, not stored per activity.
type DayBucket struct {
	Label    string `json:"label"`
	Subtitle string `json:"subtitle"`
}

var DayBuckets = []DayBucket{
	{"Day 1 – Thurs, June 19", "(Arrival / Chill Climb Day)"},
	{"Day 2 – Fri, June 20", "(Yosemite Falls / Scenic Day)"},
	{"Day 3 – Sat, June 21", "(Half Dome Day)"},
	{"Day 4 – Sun, June 22", "(Recovery / Adventure Flex Day)"},
	{"Day 5 – Mon, June 23", "(Pack + Dip Day)"},
}
