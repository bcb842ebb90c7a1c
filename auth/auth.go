// Package auth resolves the caller identity used for PRIVATE cache
// scoping. Two modes exist: Simple treats the configured header value as
// the subject directly; JWT verifies a bearer token against RSA signing
// keys fetched once at startup from an OpenID discovery document. Auth
// failures never fail the request — the caller proceeds anonymously.
package auth

import (
	"context"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/cacheql/gqlcache/logger"
	"github.com/golang-jwt/jwt/v5"
	"github.com/samsarahq/go/oops"
)

// Identity is the resolved caller: Subject scopes private cache entries,
// Header is the raw value forwarded upstream.
type Identity struct {
	Subject string
	Header  string
}

// Authenticator resolves a request header value into an identity. ok is
// false for anonymous callers, including any verification failure.
type Authenticator interface {
	Authenticate(headerValue string) (identity Identity, ok bool)
}

// Simple passes the header value through as the subject.
type Simple struct{}

func (Simple) Authenticate(headerValue string) (Identity, bool) {
	if headerValue == "" {
		return Identity{}, false
	}
	return Identity{Subject: headerValue, Header: headerValue}, true
}

// JWT verifies `Bearer <token>` values against a fixed RSA key set.
type JWT struct {
	keys map[string]*rsa.PublicKey
	log  logger.Logger
}

type claims struct {
	jwt.RegisteredClaims
}

// Authenticate verifies the bearer token's RS256 signature against the key
// named by its kid header and extracts the sub claim. Anything invalid
// degrades to anonymous.
func (j *JWT) Authenticate(headerValue string) (Identity, bool) {
	parts := strings.Fields(headerValue)
	if len(parts) != 2 || parts[0] != "Bearer" {
		return Identity{}, false
	}

	token, err := jwt.ParseWithClaims(parts[1], &claims{}, func(t *jwt.Token) (interface{}, error) {
		kid, _ := t.Header["kid"].(string)
		key, ok := j.keys[kid]
		if !ok {
			return nil, oops.Errorf("no signing key for kid %q", kid)
		}
		return key, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	if err != nil {
		j.log.Warn("rejecting bearer token, proceeding anonymously", "error", err)
		return Identity{}, false
	}

	c := token.Claims.(*claims)
	if c.Subject == "" {
		return Identity{}, false
	}
	return Identity{Subject: c.Subject, Header: headerValue}, true
}

type openIDConfiguration struct {
	JWKSURI string `json:"jwks_uri"`
}

type jwkDocument struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Use string `json:"use"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// NewJWT fetches the discovery document, follows jwks_uri, and keeps the
// RSA signing keys. It runs once at startup; an unreachable or empty key
// set is an error so misconfiguration fails fast.
func NewJWT(ctx context.Context, discoveryURL string, client *http.Client, log logger.Logger) (*JWT, error) {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	var oidc openIDConfiguration
	if err := getJSON(ctx, client, discoveryURL, &oidc); err != nil {
		return nil, oops.Wrapf(err, "fetching openid configuration from %q", discoveryURL)
	}
	if oidc.JWKSURI == "" {
		return nil, oops.Errorf("openid configuration at %q has no jwks_uri", discoveryURL)
	}

	var doc jwkDocument
	if err := getJSON(ctx, client, oidc.JWKSURI, &doc); err != nil {
		return nil, oops.Wrapf(err, "fetching jwks from %q", oidc.JWKSURI)
	}

	keys := map[string]*rsa.PublicKey{}
	for _, k := range doc.Keys {
		if k.Use != "sig" || k.Kty != "RSA" {
			continue
		}
		key, err := rsaKeyFromComponents(k.N, k.E)
		if err != nil {
			log.Warn("skipping undecodable jwk", "kid", k.Kid, "error", err)
			continue
		}
		keys[k.Kid] = key
	}
	if len(keys) == 0 {
		return nil, oops.Errorf("jwks at %q contains no usable RSA signing keys", oidc.JWKSURI)
	}

	log.Info("loaded jwt signing keys", "count", len(keys))
	return &JWT{keys: keys, log: log}, nil
}

func getJSON(ctx context.Context, client *http.Client, url string, into interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return oops.Errorf("unexpected status %d from %q", resp.StatusCode, url)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

// rsaKeyFromComponents builds a public key from the base64url modulus and
// exponent carried in a JWK.
func rsaKeyFromComponents(n, e string) (*rsa.PublicKey, error) {
	nBytes, err := base64.RawURLEncoding.DecodeString(n)
	if err != nil {
		return nil, oops.Wrapf(err, "decoding modulus")
	}
	eBytes, err := base64.RawURLEncoding.DecodeString(e)
	if err != nil {
		return nil, oops.Wrapf(err, "decoding exponent")
	}

	exponent := 0
	for _, b := range eBytes {
		exponent = exponent<<8 | int(b)
	}
	if exponent <= 0 {
		return nil, oops.Errorf("invalid exponent")
	}

	return &rsa.PublicKey{N: new(big.Int).SetBytes(nBytes), E: exponent}, nil
}
