package routes

import (
	"github.com/gin-gonic/gin"

	"tritonhub/app"
	"tritonhub/auth"
	"tritonhub/errs"
	"tritonhub/fallback"
	"tritonhub/views"
)

// Handlers is the API surface over the per-user client registry.
type Handlers struct {
	Registry *app.Registry
	Auth     *auth.Service
	Guard    *fallback.Guard
}

func SetupAPIRoutes(r *gin.Engine, h *Handlers) {
	api := r.Group("/api")
	{
		api.POST("/login", h.Auth.HandleLogin)
		api.POST("/signup", h.Auth.HandleSignup)
		api.POST("/logout", h.Auth.HandleLogout)

		protected := api.Group("", h.Auth.AuthMiddleware())
		{
			protected.GET("/session", h.HandleSession)

			protected.GET("/communities", h.HandleListCommunities)
			protected.POST("/communities/:id/join", h.HandleJoinCommunity)
			protected.POST("/communities/:id/leave", h.HandleLeaveCommunity)
			protected.POST("/communities/:id/star", h.HandleStarCommunity)
			protected.GET("/communities/:id/channels", h.HandleListChannels)

			protected.GET("/channels/:id/messages", h.HandleGetMessages)
			protected.POST("/channels/:id/messages", h.HandleSendMessage)

			protected.GET("/channels/:id/activities", h.HandleGetActivities)
			protected.POST("/channels/:id/activities", h.HandleAddActivity)
			protected.PATCH("/activities/:id", h.HandleEditActivity)
			protected.DELETE("/activities/:id", h.HandleDeleteActivity)

			protected.GET("/channels/:id/items", h.HandleGetItems)
			protected.POST("/channels/:id/items", h.HandleAddItem)
			protected.PATCH("/items/:id", h.HandleEditItem)
			protected.DELETE("/items/:id", h.HandleDeleteItem)
		}
	}
}

// client resolves the caller's registry entry, building it on first
// sight so a session restored from a cookie works after a restart.
func (h *Handlers) client(c *gin.Context) (*app.Client, bool) {
	identity, ok := auth.CurrentUser(c)
	if !ok {
		c.JSON(401, gin.H{"error": "Authorization required"})
		return nil, false
	}
	return h.Registry.Attach(identity), true
}

func (h *Handlers) HandleSession(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	c.JSON(200, gin.H{
		"user":         client.Identity,
		"mode":         h.Guard.Mode().String(),
		"state":        client.Session.State().String(),
		"community_id": client.Session.CommunityID(),
	})
}

func (h *Handlers) HandleListCommunities(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	client.Session.Deselect()

	if err := client.Communities.Load(c.Request.Context()); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load communities")})
		return
	}
	c.JSON(200, gin.H{"communities": client.Communities.Communities()})
}

func (h *Handlers) HandleJoinCommunity(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	communityID := c.Param("id")

	if err := h.ensureCommunities(c, client); err != nil {
		return
	}
	if err := client.Communities.Join(c.Request.Context(), communityID); err != nil {
		if errs.IsConflict(err) {
			c.JSON(409, gin.H{"error": errs.MsgAlreadyExists})
			return
		}
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to join community")})
		return
	}

	community, _ := client.Communities.Community(communityID)
	c.JSON(200, gin.H{"community": community})
}

func (h *Handlers) HandleLeaveCommunity(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	communityID := c.Param("id")

	if err := h.ensureCommunities(c, client); err != nil {
		return
	}
	if err := client.Communities.Leave(c.Request.Context(), communityID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to leave community")})
		return
	}

	community, _ := client.Communities.Community(communityID)
	c.JSON(200, gin.H{"community": community})
}

func (h *Handlers) HandleStarCommunity(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	communityID := c.Param("id")

	if err := h.ensureCommunities(c, client); err != nil {
		return
	}
	if err := client.Communities.ToggleStar(c.Request.Context(), communityID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to update star")})
		return
	}

	community, _ := client.Communities.Community(communityID)
	c.JSON(200, gin.H{"community": community})
}

func (h *Handlers) HandleListChannels(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	communityID := c.Param("id")

	if err := client.Session.SelectCommunity(communityID); err != nil {
		c.JSON(400, gin.H{"error": err.Error()})
		return
	}
	if err := client.Channels.SwitchCommunity(c.Request.Context(), communityID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load channels")})
		return
	}
	c.JSON(200, gin.H{"channels": client.Channels.Channels()})
}

func (h *Handlers) HandleGetMessages(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	channelID := c.Param("id")

	if err := client.Chat.SwitchChannel(c.Request.Context(), channelID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load messages")})
		return
	}
	c.JSON(200, gin.H{"messages": client.Chat.Messages()})
}

func (h *Handlers) HandleSendMessage(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	channelID := c.Param("id")

	var json struct {
		Content string `json:"content"`
		ReplyTo string `json:"reply_to"`
	}
	if err := c.BindJSON(&json); err != nil || json.Content == "" {
		c.JSON(400, gin.H{"error": "Message content is required"})
		return
	}

	if err := client.Chat.SwitchChannel(c.Request.Context(), channelID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load messages")})
		return
	}
	if err := client.Chat.Send(c.Request.Context(), json.Content, json.ReplyTo); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to send message")})
		return
	}
	c.JSON(201, gin.H{"messages": client.Chat.Messages()})
}

func (h *Handlers) HandleGetActivities(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	channelID := c.Param("id")

	if err := client.Itinerary.SwitchChannel(c.Request.Context(), channelID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load itinerary")})
		return
	}

	days := make([]gin.H, len(views.DayBuckets))
	for i, bucket := range views.DayBuckets {
		days[i] = gin.H{
			"label":      bucket.Label,
			"subtitle":   bucket.Subtitle,
			"activities": client.Itinerary.Day(i),
		}
	}
	c.JSON(200, gin.H{"days": days})
}

func (h *Handlers) HandleAddActivity(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	channelID := c.Param("id")

	var json struct {
		Text      string `json:"text"`
		TimeLabel string `json:"time_label"`
		DayIndex  int    `json:"day_index"`
	}
	if err := c.BindJSON(&json); err != nil || json.Text == "" || json.TimeLabel == "" {
		c.JSON(400, gin.H{"error": "Activity text and time are required"})
		return
	}
	if json.DayIndex < 0 || json.DayIndex >= len(views.DayBuckets) {
		c.JSON(400, gin.H{"error": "Unknown itinerary day"})
		return
	}

	if err := client.Itinerary.SwitchChannel(c.Request.Context(), channelID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load itinerary")})
		return
	}
	if err := client.Itinerary.Add(c.Request.Context(), json.Text, json.TimeLabel, json.DayIndex); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to add activity")})
		return
	}
	c.JSON(201, gin.H{"activities": client.Itinerary.Day(json.DayIndex)})
}

func (h *Handlers) HandleEditActivity(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	activityID := c.Param("id")

	var json struct {
		Text string `json:"text"`
	}
	if err := c.BindJSON(&json); err != nil || json.Text == "" {
		c.JSON(400, gin.H{"error": "Activity text is required"})
		return
	}

	if _, found := client.Itinerary.Activity(activityID); !found {
		c.JSON(404, gin.H{"error": errs.MsgNotFound})
		return
	}
	if err := client.Itinerary.EditText(c.Request.Context(), activityID, json.Text); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to update activity")})
		return
	}
	activity, _ := client.Itinerary.Activity(activityID)
	c.JSON(200, gin.H{"activity": activity})
}

func (h *Handlers) HandleDeleteActivity(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	activityID := c.Param("id")

	if _, found := client.Itinerary.Activity(activityID); !found {
		c.JSON(404, gin.H{"error": errs.MsgNotFound})
		return
	}
	if err := client.Itinerary.Delete(c.Request.Context(), activityID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to delete activity")})
		return
	}
	c.JSON(200, gin.H{"message": "Activity deleted"})
}

// itemList picks the checklist or the food list by the kind parameter.
func (h *Handlers) itemList(c *gin.Context, client *app.Client) (*views.ItemList, bool) {
	switch c.Query("kind") {
	case "", "gear":
		return client.Checklist, true
	case "food":
		return client.Food, true
	default:
		c.JSON(400, gin.H{"error": "Unknown item kind"})
		return nil, false
	}
}

// itemHolder finds which of the two lists currently holds an item id.
func itemHolder(client *app.Client, itemID string) (*views.ItemList, bool) {
	if _, ok := client.Checklist.Item(itemID); ok {
		return client.Checklist, true
	}
	if _, ok := client.Food.Item(itemID); ok {
		return client.Food, true
	}
	return nil, false
}

func (h *Handlers) HandleGetItems(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	list, ok := h.itemList(c, client)
	if !ok {
		return
	}

	if err := list.SwitchChannel(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load items")})
		return
	}
	c.JSON(200, gin.H{"items": list.Items()})
}

func (h *Handlers) HandleAddItem(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	list, ok := h.itemList(c, client)
	if !ok {
		return
	}

	var json struct {
		Text string `json:"text"`
	}
	if err := c.BindJSON(&json); err != nil || json.Text == "" {
		c.JSON(400, gin.H{"error": "Item text is required"})
		return
	}

	if err := list.SwitchChannel(c.Request.Context(), c.Param("id")); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load items")})
		return
	}
	if err := list.Add(c.Request.Context(), json.Text); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to add item")})
		return
	}
	c.JSON(201, gin.H{"items": list.Items()})
}

func (h *Handlers) HandleEditItem(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	itemID := c.Param("id")

	var json struct {
		Text    *string `json:"text"`
		Checked *bool   `json:"checked"`
	}
	if err := c.BindJSON(&json); err != nil || (json.Text == nil && json.Checked == nil) {
		c.JSON(400, gin.H{"error": "Nothing to update"})
		return
	}

	list, found := itemHolder(client, itemID)
	if !found {
		c.JSON(404, gin.H{"error": errs.MsgNotFound})
		return
	}

	if json.Text != nil {
		if err := list.EditText(c.Request.Context(), itemID, *json.Text); err != nil {
			c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to update item")})
			return
		}
	}
	if json.Checked != nil {
		item, _ := list.Item(itemID)
		if item.Checked != *json.Checked {
			if err := list.Toggle(c.Request.Context(), itemID); err != nil {
				c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to update item")})
				return
			}
		}
	}

	item, _ := list.Item(itemID)
	c.JSON(200, gin.H{"item": item})
}

func (h *Handlers) HandleDeleteItem(c *gin.Context) {
	client, ok := h.client(c)
	if !ok {
		return
	}
	itemID := c.Param("id")

	list, found := itemHolder(client, itemID)
	if !found {
		c.JSON(404, gin.H{"error": errs.MsgNotFound})
		return
	}
	if err := list.Delete(c.Request.Context(), itemID); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to delete item")})
		return
	}
	c.JSON(200, gin.H{"message": "Item deleted"})
}

// ensureCommunities loads the list once so membership operations see
// current flags.
func (h *Handlers) ensureCommunities(c *gin.Context, client *app.Client) error {
	if client.Communities.Status() == views.StatusReady {
		return nil
	}
	if err := client.Communities.Load(c.Request.Context()); err != nil {
		c.JSON(500, gin.H{"error": errs.Normalize(err, "Failed to load communities")})
		return err
	}
	return nil
}
