package googletoken

import "github.com/goliatone/go-errors"

const (
	TextCodeNoProfile        = "google_no_verified_profile"
	TextCodeAccountInactive  = "account_inactive"
	TextCodeIdentityConflict = "identity_conflict"
	TextCodeAccountStore     = "account_store_failure"
	TextCodeMissingSecret    = "missing_signing_secret"
	TextCodeTokenExpired     = "token_expired"
	TextCodeTokenMalformed   = "token_malformed"
	TextCodeNoSession        = "session_not_found"
)

// ErrNoVerifiedProfile is returned when no verified external identity reached
// the resolver. The HTTP boundary maps it to a bare 401.
var ErrNoVerifiedProfile = errors.New("no verified profile", errors.CategoryAuth).
	WithTextCode(TextCodeNoProfile).
	WithCode(errors.CodeUnauthorized)

// ErrAccountInactive is returned when the matched account is disabled. No
// session is ever issued for an inactive account.
var ErrAccountInactive = errors.New("account is inactive", errors.CategoryAuth).
	WithTextCode(TextCodeAccountInactive).
	WithCode(errors.CodeUnauthorized)

// ErrIdentityConflict is returned when another account already owns the
// (provider, external id) pair. Callers can retry resolution; the second pass
// will find the winning account.
var ErrIdentityConflict = errors.New("external identity already registered", errors.CategoryConflict).
	WithTextCode(TextCodeIdentityConflict).
	WithCode(errors.CodeConflict)

// ErrAccountStore is the generic persistence failure, including new account
// hook failures during finalization.
var ErrAccountStore = errors.New("account store failure", errors.CategoryInternal).
	WithTextCode(TextCodeAccountStore).
	WithCode(errors.CodeInternal)

// ErrMissingSigningSecret is a configuration error raised once at
// construction, never at request time.
var ErrMissingSigningSecret = errors.New("signing secret is required", errors.CategoryValidation).
	WithTextCode(TextCodeMissingSecret).
	WithCode(errors.CodeBadRequest)

// ErrTokenExpired is returned when a session token is past its expiry.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature
// verification.
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrUnableToFindSession is returned when a request carries no session
// credential in locals, header, or cookie.
var ErrUnableToFindSession = errors.New("unable to find session", errors.CategoryAuth).
	WithTextCode(TextCodeNoSession).
	WithCode(errors.CodeUnauthorized)

// IsConflict reports whether err carries the identity conflict text code.
func IsConflict(err error) bool {
	var richErr *errors.Error
	if !errors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == TextCodeIdentityConflict
}
