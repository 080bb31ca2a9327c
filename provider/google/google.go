package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goliatone/go-errors"

	"github.com/transomhq/go-googletoken"
)

const (
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
	defaultJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"

	// ProviderName is the strategy identifier stored on linked identities.
	ProviderName = "google"
)

// Config holds Google verification configuration.
type Config struct {
	// ClientID is the OAuth client the id_token audience must match. Only
	// required when clients present id_tokens.
	ClientID string

	// UserInfoURL overrides the userinfo endpoint.
	UserInfoURL string

	// JWKSURL overrides the certificate endpoint used for id_token signatures.
	JWKSURL string

	HTTPClient *http.Client
}

// Verifier validates Google credentials and maps the response onto an
// external profile. It implements googletoken.ProfileVerifier.
type Verifier struct {
	config     Config
	httpClient *http.Client
	keys       *keySet
}

// New creates a Google verifier. The JWKS cache is initialized lazily on the
// first id_token verification, so construction never touches the network.
func New(cfg Config) *Verifier {
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Verifier{
		config:     cfg,
		httpClient: client,
		keys:       newKeySet(cfg.JWKSURL),
	}
}

// Name returns the provider identifier.
func (v *Verifier) Name() string {
	return ProviderName
}

// Verify implements googletoken.ProfileVerifier. An access token is checked
// against the userinfo endpoint; an id_token is checked locally against
// Google's published signing keys. The access token wins when both are set.
func (v *Verifier) Verify(ctx context.Context, credential googletoken.AccessCredential) (*googletoken.ExternalProfile, error) {
	if credential.AccessToken != "" {
		return v.verifyAccessToken(ctx, credential.AccessToken)
	}
	if credential.IDToken != "" {
		return v.verifyIDToken(ctx, credential.IDToken)
	}
	return nil, errors.New("no credential provided", errors.CategoryAuth)
}

func (v *Verifier) verifyAccessToken(ctx context.Context, accessToken string) (*googletoken.ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, v.config.UserInfoURL, nil)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to build userinfo request")
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "userinfo request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to read userinfo response")
	}

	if resp.StatusCode != http.StatusOK {
		code, description := parseGoogleError(body)
		return nil, errors.New("google rejected the access token", errors.CategoryAuth).
			WithMetadata(map[string]any{
				"status":      resp.StatusCode,
				"error":       code,
				"description": description,
			})
	}

	var userInfo googleUserInfo
	if err := json.Unmarshal(body, &userInfo); err != nil {
		return nil, errors.Wrap(err, errors.CategoryOperation, "failed to decode userinfo response")
	}

	if userInfo.Sub == "" {
		return nil, errors.New("userinfo response has no subject", errors.CategoryAuth)
	}

	profile := mapProfile(&userInfo)
	profile.AccessToken = accessToken
	return profile, nil
}

type googleErrorResponse struct {
	Error string `json:"error"`
	Desc  string `json:"error_description"`
}

type googleAPIError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func parseGoogleError(body []byte) (string, string) {
	var plain googleErrorResponse
	if err := json.Unmarshal(body, &plain); err == nil && (plain.Error != "" || plain.Desc != "") {
		return plain.Error, plain.Desc
	}

	var api googleAPIError
	if err := json.Unmarshal(body, &api); err == nil && (api.Error.Message != "" || api.Error.Status != "") {
		code := api.Error.Status
		if code == "" && api.Error.Code != 0 {
			code = fmt.Sprintf("%d", api.Error.Code)
		}
		return code, api.Error.Message
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "google request failed"
	}
	return "", msg
}
