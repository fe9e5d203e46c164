// ABOUTME: Identity provider sum type with one variant per auth mechanism
// ABOUTME: OAuth, self-signed, and client-credentials variants carry only their relevant fields

package store

// IdpType discriminates identity provider variants.
type IdpType string

// Identity provider type tags
const (
	IdpTypeOAuth             IdpType = "oauth"
	IdpTypeSelfSigned        IdpType = "self_signed"
	IdpTypeClientCredentials IdpType = "client_credentials"
)

// AdminCredentials are the optional administrative client credentials an
// identity provider may carry for party-allocation calls.
type AdminCredentials struct {
	ClientID     string
	ClientSecret string
}

// Idp is a closed sum over identity provider configurations. Exactly the
// variants below implement it; codecs dispatch on Type.
type Idp interface {
	ID() string
	Type() IdpType
}

// OAuthIdp delegates to an OAuth issuer discovered via its config URL.
type OAuthIdp struct {
	IdentityProviderID string
	Issuer             string
	ConfigURL          string
	Audience           string
	ClientID           string
	Admin              *AdminCredentials
}

func (i OAuthIdp) ID() string    { return i.IdentityProviderID }
func (i OAuthIdp) Type() IdpType { return IdpTypeOAuth }

// SelfSignedIdp issues its own tokens; there is no discovery document.
type SelfSignedIdp struct {
	IdentityProviderID string
	Issuer             string
	Audience           string
	ClientID           string
	ClientSecret       string
	Admin              *AdminCredentials
}

func (i SelfSignedIdp) ID() string    { return i.IdentityProviderID }
func (i SelfSignedIdp) Type() IdpType { return IdpTypeSelfSigned }

// ClientCredentialsIdp authenticates machine-to-machine with a client
// id/secret pair against the issuer's token endpoint.
type ClientCredentialsIdp struct {
	IdentityProviderID string
	Issuer             string
	ConfigURL          string
	Audience           string
	ClientID           string
	ClientSecret       string
	Admin              *AdminCredentials
}

func (i ClientCredentialsIdp) ID() string    { return i.IdentityProviderID }
func (i ClientCredentialsIdp) Type() IdpType { return IdpTypeClientCredentials }
