package model

// PublicProfile is the subset of a user's identity that may be shown to
// other users.
type PublicProfile struct {
	UID         string  `json:"uid"`
	DisplayName string  `json:"displayName"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
}
