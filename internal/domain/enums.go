// Package domain defines the core domain models for the marketplace.
package domain

// Role identifies which account table a viewer belongs to.
type Role string

const (
	RoleClient     Role = "client"
	RoleFreelancer Role = "freelancer"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return r == RoleClient || r == RoleFreelancer
}

// Opposite returns the role of the other participant in a client/freelancer conversation.
func (r Role) Opposite() Role {
	if r == RoleFreelancer {
		return RoleClient
	}
	return RoleFreelancer
}

// Action names evaluated by the authorization policy.
type Action string

const (
	ActionConversationStart Action = "conversation.start"
	ActionConversationList  Action = "conversation.list"
	ActionConversationGet   Action = "conversation.get"
	ActionMessageSend       Action = "message.send"
	ActionMessageAutoReply  Action = "message.auto_reply"
	ActionRolesPredict      Action = "roles.predict"
	ActionRolesDrain        Action = "roles.drain"
	ActionAccountDelete     Action = "account.delete"
)

// EventType represents the type of a live event.
type EventType string

const (
	EventTypeMessageCreated EventType = "message_created"
)

const (
	// SenderServer is the synthetic author of automated replies.
	SenderServer = "Server"

	SeedMessageText      = "Started a new conversation"
	AutoReplyText        = "Got your message!"
	DefaultAvatar        = "/static/img/search/male-pfp.webp"
	FemaleAvatar         = "/static/img/search/female-pfp.webp"
	RatingIcon           = "/static/img/search/rating-icon.webp"
	TimestampLayout      = "3:04 PM"
	MaxMessageTextLength = 500
)
