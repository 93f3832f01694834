package model

import "time"

// OAuthToken is a persisted platform credential. Owned by the credential
// manager; sessions never hold their own copy.
type OAuthToken struct {
	ID           int64      `json:"id"`
	AccountID    string     `json:"accountId"`
	Platform     string     `json:"platform"`
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresAt    *time.Time `json:"expiresAt,omitempty"`
	Scopes       string     `json:"scopes"`
	TokenType    *string    `json:"tokenType,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}
