package googletoken

import "strings"

// ExternalProfile is the result of a successful third party verification. It
// is immutable once received and lives only for the duration of one
// resolution call.
type ExternalProfile struct {
	Provider    string
	ID          string
	Emails      []string
	DisplayName string
	GivenName   string
	FamilyName  string
	AvatarURL   string
	// AccessToken is the provider credential that was verified. It is cached
	// on the linked identity for later provider API calls and never used for
	// session trust.
	AccessToken string
	Raw         map[string]any
}

// CanonicalEmail returns the lower cased first email when present, otherwise
// a synthesized "<id>@<provider>" fallback. The fallback is never a routable
// address; it only satisfies uniqueness and display requirements.
func (p *ExternalProfile) CanonicalEmail() string {
	if len(p.Emails) > 0 && p.Emails[0] != "" {
		return strings.ToLower(p.Emails[0])
	}
	return p.ID + "@" + p.Provider
}

// ResolveDisplayName returns the provider supplied display name, falling back
// to "given family" concatenation.
func (p *ExternalProfile) ResolveDisplayName() string {
	if p.DisplayName != "" {
		return p.DisplayName
	}
	return strings.TrimSpace(p.GivenName + " " + p.FamilyName)
}
