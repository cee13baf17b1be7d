package models

// Principal is the authenticated caller, resolved once per request or connection.
type Principal struct {
	UserID      int64  `json:"user_id"`
	TenantID    int64  `json:"tenant_id"`
	DisplayName string `json:"display_name,omitempty"`
}

// UserProfile is the display data the user directory returns.
type UserProfile struct {
	ID          int64  `json:"id"`
	TenantID    int64  `json:"tenant_id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}
