package google

import "github.com/transomhq/go-googletoken"

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

func mapProfile(info *googleUserInfo) *googletoken.ExternalProfile {
	if info == nil {
		return nil
	}

	var emails []string
	if info.Email != "" {
		emails = []string{info.Email}
	}

	return &googletoken.ExternalProfile{
		Provider:    ProviderName,
		ID:          info.Sub,
		Emails:      emails,
		DisplayName: info.Name,
		GivenName:   info.GivenName,
		FamilyName:  info.FamilyName,
		AvatarURL:   info.Picture,
		Raw: map[string]any{
			"sub":            info.Sub,
			"email":          info.Email,
			"email_verified": info.EmailVerified,
			"name":           info.Name,
			"given_name":     info.GivenName,
			"family_name":    info.FamilyName,
			"picture":        info.Picture,
			"locale":         info.Locale,
		},
	}
}
