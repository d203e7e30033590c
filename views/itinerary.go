package views

import (
	"context"
	"sync"
	"time"

	"tritonhub/store"
)

// Itinerary owns the activity timeline for one itinerary channel.
// Activities order by day bucket, then by normalized time label, then by
// id for stability.
type Itinerary struct {
	backend *Backend
	user    store.Identity

	mu        sync.Mutex
	channelID string
	sub       *store.Subscription
	adding    bool

	activities *Collection[Activity]
}

func NewItinerary(backend *Backend, user store.Identity) *Itinerary {
	return &Itinerary{
		backend:    backend,
		user:       user,
		activities: NewCollection(activityLess),
	}
}

func activityLess(a, b Activity) bool {
	if a.DayIndex != b.DayIndex {
		return a.DayIndex < b.DayIndex
	}
	if cmp := CompareTimeLabels(a.TimeLabel, b.TimeLabel); cmp != 0 {
		return cmp < 0
	}
	return a.ID < b.ID
}

func (v *Itinerary) ChannelID() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.channelID
}

func (v *Itinerary) Activities() []Activity {
	return v.activities.Snapshot()
}

func (v *Itinerary) Activity(activityID string) (Activity, bool) {
	return v.activities.Get(activityID)
}

// Day returns the activities of one day bucket, in timeline order.
func (v *Itinerary) Day(dayIndex int) []Activity {
	var day []Activity
	for _, a := range v.activities.Snapshot() {
		if a.DayIndex == dayIndex {
			day = append(day, a)
		}
	}
	return day
}

func (v *Itinerary) Status() Status {
	return v.activities.Status()
}

func (v *Itinerary) SwitchChannel(ctx context.Context, channelID string) error {
	v.mu.Lock()
	if v.channelID == channelID {
		v.mu.Unlock()
		return nil
	}
	old := v.sub
	v.sub = nil
	v.channelID = channelID
	v.mu.Unlock()

	if old != nil {
		old.Unsubscribe()
	}
	v.activities.Reset()
	if channelID == "" {
		return nil
	}
	if err := v.Load(ctx); err != nil {
		return err
	}
	return v.subscribe(channelID)
}

func (v *Itinerary) Load(ctx context.Context) error {
	channelID := v.ChannelID()
	if channelID == "" {
		return nil
	}

	rows, err := v.backend.Store().Select(ctx, store.TableActivities,
		store.Filter{"channel_id": channelID},
		[]store.Order{{Column: "created_at", Ascending: true}}, 0)
	if err != nil {
		v.backend.report(err, "loading itinerary")
		return err
	}

	activities := make([]Activity, 0, len(rows))
	for _, row := range rows {
		activity, err := store.DecodeRow[Activity](row)
		if err != nil {
			continue
		}
		activities = append(activities, activity)
	}
	v.activities.Replace(activities)
	return nil
}

func (v *Itinerary) subscribe(channelID string) error {
	sub, err := v.backend.Store().Subscribe(store.TableActivities, store.Filter{"channel_id": channelID})
	if err != nil {
		v.backend.report(err, "subscribing to itinerary")
		return err
	}

	v.mu.Lock()
	if v.channelID != channelID {
		v.mu.Unlock()
		sub.Unsubscribe()
		return nil
	}
	v.sub = sub
	v.mu.Unlock()

	go func() {
		for event := range sub.Events {
			activity, err := store.DecodeRow[Activity](event.Row)
			if err != nil || activity.ID == "" {
				continue
			}
			if activity.ChannelID != v.ChannelID() {
				continue
			}
			switch event.Type {
			case store.EventInsert, store.EventUpdate:
				v.activities.Upsert(activity)
			case store.EventDelete:
				v.activities.Remove(activity.ID)
			}
		}
	}()
	return nil
}

// Add schedules a new activity into a day bucket.
func (v *Itinerary) Add(ctx context.Context, text, timeLabel string, dayIndex int) error {
	v.mu.Lock()
	if v.adding || v.channelID == "" || text == "" || timeLabel == "" {
		v.mu.Unlock()
		return nil
	}
	if dayIndex < 0 || dayIndex >= len(DayBuckets) {
		v.mu.Unlock()
		return nil
	}
	v.adding = true
	channelID := v.channelID
	v.mu.Unlock()
	defer func() {
		v.mu.Lock()
		v.adding = false
		v.mu.Unlock()
	}()

	row := store.Row{
		"text":         text,
		"time_label":   timeLabel,
		"day_index":    dayIndex,
		"channel_id":   channelID,
		"icon_tag":     "clock",
		"icon_color":   "bg-gray-100",
		"border_color": "border-gray-500",
		"created_by":   v.user.ID,
	}
	if id := v.backend.newRowID(); id != "" {
		row["id"] = id
		row["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	inserted, err := v.backend.Store().Insert(ctx, store.TableActivities, row)
	if err != nil {
		v.backend.report(err, "adding activity")
		return err
	}
	if activity, err := store.DecodeRow[Activity](inserted); err == nil && activity.ID != "" {
		v.activities.Upsert(activity)
	}
	return nil
}

// EditText rewrites an activity's description.
func (v *Itinerary) EditText(ctx context.Context, activityID, text string) error {
	if text == "" {
		return nil
	}
	if _, ok := v.activities.Get(activityID); !ok {
		return nil
	}

	err := v.backend.Store().Update(ctx, store.TableActivities,
		store.Filter{"id": activityID}, store.Row{"text": text})
	if err != nil {
		v.backend.report(err, "editing activity")
		return err
	}
	v.activities.Mutate(activityID, func(a *Activity) { a.Text = text })
	return nil
}

func (v *Itinerary) Delete(ctx context.Context, activityID string) error {
	if _, ok := v.activities.Get(activityID); !ok {
		return nil
	}

	err := v.backend.Store().Delete(ctx, store.TableActivities, store.Filter{"id": activityID})
	if err != nil {
		v.backend.report(err, "deleting activity")
		return err
	}
	v.activities.Remove(activityID)
	return nil
}

func (v *Itinerary) Close() {
	v.mu.Lock()
	sub := v.sub
	v.sub = nil
	v.channelID = ""
	v.mu.Unlock()
	if sub != nil {
		sub.Unsubscribe()
	}
}
