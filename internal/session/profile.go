package session

import "github.com/markalston/record-admin/internal/client"

// Profile is the signed-in user as the client knows it. ID and Username
// are always equal.
type Profile struct {
	ID                string `json:"id"`
	Username          string `json:"username"`
	AdminUser         bool   `json:"adminUser"`
	CanGenerateTokens bool   `json:"canGenerateTokens"`
	MaxTokenCount     int    `json:"maxTokenCount"`
}

func profileFromLogin(r client.LoginResponse) *Profile {
	return &Profile{
		ID:                r.Username,
		Username:          r.Username,
		AdminUser:         r.AdminUser,
		CanGenerateTokens: r.CanGenerateTokens,
		MaxTokenCount:     r.MaxTokenCount,
	}
}

func profileFromMe(r client.MeResponse) *Profile {
	return &Profile{
		ID:                r.Username,
		Username:          r.Username,
		AdminUser:         r.AdminUser,
		CanGenerateTokens: r.CanGenerateTokens,
		MaxTokenCount:     r.MaxTokenCount,
	}
}
