package auth

import "time"

const (
	DefaultContextKey  = "user"
	DefaultAuthScheme  = "Bearer"
	DefaultTokenLookup = "header:Authorization"
)

// Options is the plain struct implementation of Config. Zero values fall
// back to the defaults above.
type Options struct {
	SigningKey      string        `json:"signing_key" mapstructure:"secret_key"`
	ContextKey      string        `json:"context_key" mapstructure:"context_key"`
	TokenExpiration time.Duration `json:"token_expiration" mapstructure:"token_expiration"`
	TokenLookup     string        `json:"token_lookup" mapstructure:"token_lookup"`
	AuthScheme      string        `json:"auth_scheme" mapstructure:"auth_scheme"`
	Issuer          string        `json:"issuer" mapstructure:"issuer"`
	Hasher          HasherOptions `json:"hasher" mapstructure:"hasher"`
}

var _ Config = Options{}

func (o Options) GetSigningKey() string {
	return o.SigningKey
}

func (o Options) GetContextKey() string {
	if o.ContextKey == "" {
		return DefaultContextKey
	}
	return o.ContextKey
}

func (o Options) GetTokenExpiration() time.Duration {
	if o.TokenExpiration <= 0 {
		return DefaultTokenTTL
	}
	return o.TokenExpiration
}

func (o Options) GetTokenLookup() string {
	if o.TokenLookup == "" {
		return DefaultTokenLookup
	}
	return o.TokenLookup
}

func (o Options) GetAuthScheme() string {
	if o.AuthScheme == "" {
		return DefaultAuthScheme
	}
	return o.AuthScheme
}

func (o Options) GetIssuer() string {
	return o.Issuer
}

func (o Options) GetHasher() HasherOptions {
	return o.Hasher
}
