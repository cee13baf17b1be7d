package cache

import "fmt"

func MessagePageKey(channelID, beforeID int64, limit int) string {
	return fmt.Sprintf("msgs:%d:%d:%d", channelID, beforeID, limit)
}

// MessagePagesPattern matches every cached page of a channel.
func MessagePagesPattern(channelID int64) string {
	return fmt.Sprintf("msgs:%d:*", channelID)
}

func ChannelListKey(tenantID, userID int64) string {
	return fmt.Sprintf("channels:%d:%d", tenantID, userID)
}

// MembershipKey caches positive active-membership checks only.
func MembershipKey(channelID, userID int64) string {
	return fmt.Sprintf("member:%d:%d", channelID, userID)
}

// MembersKey caches the active member ids of a channel.
func MembersKey(channelID int64) string {
	return fmt.Sprintf("members:%d", channelID)
}

func UnreadKey(tenantID, userID int64) string {
	return fmt.Sprintf("unread:%d:%d", tenantID, userID)
}

func ProfileKey(tenantID, userID int64) string {
	return fmt.Sprintf("profile:%d:%d", tenantID, userID)
}
