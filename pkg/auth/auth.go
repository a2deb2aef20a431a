// Package auth verifies the bearer credentials a manifest's AuthConfig
// declares a route requires, and evaluates its access_control rules
// against the resulting identity. It covers the two schemes the registry
// can verify unassisted (OIDC and OAuth2 token introspection); mTLS,
// basic auth and API keys are left to the gateway/service that terminates
// the connection.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"github.com/xraph-labs/nexus-registry/pkg/types"
)

// Identity is the authenticated caller a Verifier produces from a bearer
// token.
type Identity struct {
	Subject string
	Email   string
	Scopes  []string
	Roles   []string
}

// HasScope reports whether id was granted scope.
func (id Identity) HasScope(scope string) bool {
	for _, s := range id.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}

// HasRole reports whether id carries role.
func (id Identity) HasRole(role string) bool {
	for _, r := range id.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// satisfies reports whether id meets rule's role/permission requirements.
// A rule with no roles and no permissions listed only gates on being
// authenticated at all.
func (id Identity) satisfies(rule types.AccessRule) bool {
	if len(rule.Roles) == 0 && len(rule.Permissions) == 0 {
		return true
	}
	for _, role := range rule.Roles {
		if id.HasRole(role) {
			return true
		}
	}
	for _, perm := range rule.Permissions {
		if id.HasScope(perm) {
			return true
		}
	}
	return false
}

// Verifier checks a bearer token against one configured AuthScheme and
// returns the identity it carries.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// NewVerifier builds the Verifier matching scheme.AuthType. Schemes this
// registry cannot verify unassisted return an error naming the scheme
// rather than silently accepting every token.
func NewVerifier(ctx context.Context, scheme types.AuthScheme) (Verifier, error) {
	switch scheme.AuthType {
	case types.AuthTypeOIDC:
		return NewOIDCVerifier(ctx, scheme.Config)
	case types.AuthTypeOAuth2:
		return NewOAuth2Verifier(scheme.Config)
	default:
		return nil, fmt.Errorf("auth: %s scheme has no registry-side verifier; enforce it at the gateway or service", scheme.AuthType)
	}
}

// OIDCVerifier verifies an OIDC ID token against its issuer's discovery
// document and public keys.
type OIDCVerifier struct {
	provider *oidc.Provider
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer named by cfg["issuer"] and builds a
// verifier scoped to cfg["client_id"]'s audience.
func NewOIDCVerifier(ctx context.Context, cfg map[string]interface{}) (*OIDCVerifier, error) {
	issuer, _ := cfg["issuer"].(string)
	clientID, _ := cfg["client_id"].(string)
	if issuer == "" || clientID == "" {
		return nil, fmt.Errorf("auth: oidc scheme requires issuer and client_id config")
	}

	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("discovering oidc provider %s: %w", issuer, err)
	}

	return &OIDCVerifier{
		provider: provider,
		verifier: provider.Verifier(&oidc.Config{ClientID: clientID}),
	}, nil
}

type oidcClaims struct {
	Subject string `json:"sub"`
	Email   string `json:"email"`
	Scope   string `json:"scope"`
	Groups  []string `json:"groups"`
}

// Verify checks rawIDToken's signature, issuer and audience, and maps its
// claims into an Identity.
func (v *OIDCVerifier) Verify(ctx context.Context, rawIDToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, fmt.Errorf("verifying oidc token: %w", err)
	}
	var claims oidcClaims
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("decoding oidc claims: %w", err)
	}
	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Roles:   claims.Groups,
		Scopes:  strings.Fields(claims.Scope),
	}, nil
}

// OAuth2Verifier verifies a bearer token by presenting it to an
// introspection endpoint named by the OAuth2 scheme's introspection_url
// config entry.
type OAuth2Verifier struct {
	introspectionURL string
}

// NewOAuth2Verifier builds a verifier that calls cfg's introspection_url
// for every token it's asked to verify.
func NewOAuth2Verifier(cfg map[string]interface{}) (*OAuth2Verifier, error) {
	url, _ := cfg["introspection_url"].(string)
	if url == "" {
		return nil, fmt.Errorf("auth: oauth2 scheme requires introspection_url config")
	}
	return &OAuth2Verifier{introspectionURL: url}, nil
}

type introspectionResponse struct {
	Active bool     `json:"active"`
	Sub    string   `json:"sub"`
	Email  string   `json:"email"`
	Scope  string   `json:"scope"`
	Groups []string `json:"groups"`
}

// Verify presents token as a bearer credential to the introspection
// endpoint and reports the caller inactive/invalid tokens as errors.
func (v *OAuth2Verifier) Verify(ctx context.Context, token string) (*Identity, error) {
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
	client := oauth2.NewClient(ctx, src)

	resp, err := client.Get(v.introspectionURL)
	if err != nil {
		return nil, fmt.Errorf("calling introspection endpoint: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("introspection endpoint returned status %d", resp.StatusCode)
	}

	var body introspectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decoding introspection response: %w", err)
	}
	if !body.Active {
		return nil, fmt.Errorf("token is not active")
	}

	return &Identity{
		Subject: body.Sub,
		Email:   body.Email,
		Roles:   body.Groups,
		Scopes:  strings.Fields(body.Scope),
	}, nil
}
