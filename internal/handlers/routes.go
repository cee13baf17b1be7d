package handlers

import "github.com/gin-gonic/gin"

// Routes is the authenticated REST surface.
type Routes struct {
	Channels      *ChannelHandler
	Messages      *MessageHandler
	Presence      *PresenceHandler
	Notifications *NotificationHandler
}

// Register mounts every endpoint on r. Authentication is expected to run before r.
func (rt Routes) Register(r gin.IRoutes) {
	r.GET("/channels", rt.Channels.ListChannels)
	r.POST("/channels", rt.Channels.CreateChannel)
	r.GET("/channels/search", rt.Channels.SearchChannels)
	r.GET("/channels/:channel_id", rt.Channels.GetChannel)
	r.PATCH("/channels/:channel_id", rt.Channels.UpdateChannel)
	r.DELETE("/channels/:channel_id", rt.Channels.DeleteChannel)
	r.POST("/channels/:channel_id/archive", rt.Channels.ArchiveChannel)
	r.POST("/channels/:channel_id/leave", rt.Channels.LeaveChannel)
	r.PATCH("/channels/:channel_id/preferences", rt.Channels.UpdatePreferences)
	r.GET("/channels/:channel_id/members", rt.Channels.ListMembers)
	r.POST("/channels/:channel_id/members", rt.Channels.AddMembers)
	r.DELETE("/channels/:channel_id/members/:user_id", rt.Channels.RemoveMember)
	r.PUT("/channels/:channel_id/members/:user_id/role", rt.Channels.ChangeRole)

	r.GET("/channels/:channel_id/messages", rt.Messages.ListMessages)
	r.POST("/channels/:channel_id/messages", rt.Messages.PostMessage)
	r.GET("/channels/:channel_id/pinned", rt.Messages.ListPinned)
	r.GET("/channels/:channel_id/files", rt.Messages.ListFiles)
	r.POST("/channels/:channel_id/read", rt.Messages.MarkChannelRead)

	r.GET("/messages/search", rt.Messages.SearchMessages)
	r.GET("/messages/:message_id", rt.Messages.GetMessage)
	r.PATCH("/messages/:message_id", rt.Messages.EditMessage)
	r.DELETE("/messages/:message_id", rt.Messages.DeleteMessage)
	r.POST("/messages/:message_id/pin", rt.Messages.PinMessage)
	r.DELETE("/messages/:message_id/pin", rt.Messages.UnpinMessage)
	r.POST("/messages/:message_id/forward", rt.Messages.ForwardMessage)
	r.GET("/messages/:message_id/replies", rt.Messages.ListReplies)
	r.POST("/messages/:message_id/replies", rt.Messages.PostReply)
	r.POST("/messages/:message_id/reactions", rt.Messages.AddReaction)
	r.DELETE("/messages/:message_id/reactions/:emoji", rt.Messages.RemoveReaction)
	r.POST("/messages/:message_id/read", rt.Messages.MarkRead)
	r.GET("/unread", rt.Messages.UnreadCounts)

	r.GET("/presence", rt.Presence.GetPresence)
	r.GET("/presence/online", rt.Presence.ListOnline)
	r.PUT("/presence", rt.Presence.SetPresence)

	r.GET("/notifications", rt.Notifications.ListNotifications)
	r.POST("/notifications/read-all", rt.Notifications.MarkAllRead)
	r.POST("/notifications/:notification_id/read", rt.Notifications.MarkRead)
}
