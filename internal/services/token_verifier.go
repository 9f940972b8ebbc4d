package services

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/konsulo/konsulo-backend/internal/apierr"
)

// VerifiedIdentity is what the external identity provider attests about the
// caller: a stable subject id plus the verified email.
type VerifiedIdentity struct {
	SubjectID string
	Email     string
	FirstName string
	LastName  string
}

// TokenVerifier validates an opaque bearer credential against the external
// identity provider. It holds no account state; resolution happens one
// layer up.
type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*VerifiedIdentity, error)
}

type oidcTokenVerifier struct {
	httpClient   *http.Client
	discoveryURL string
	allowedIss   []string
	requiredAud  string
	algAllow     []string

	jwks          *jwksCache
	discoveryOnce sync.Once
	discoveryErr  error
}

func NewOIDCTokenVerifier(httpClient *http.Client, discoveryURL string, allowedIss []string, requiredAud string) (TokenVerifier, error) {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if strings.TrimSpace(discoveryURL) == "" {
		return nil, fmt.Errorf("identity provider discovery URL is required")
	}
	if len(allowedIss) == 0 {
		return nil, fmt.Errorf("at least one allowed issuer is required")
	}
	if strings.TrimSpace(requiredAud) == "" {
		return nil, fmt.Errorf("required audience is required")
	}
	return &oidcTokenVerifier{
		httpClient:   httpClient,
		discoveryURL: discoveryURL,
		allowedIss:   allowedIss,
		requiredAud:  requiredAud,
		algAllow:     []string{"RS256", "ES256"},
		jwks:         newJWKSCache(httpClient),
	}, nil
}

func (v *oidcTokenVerifier) Verify(ctx context.Context, rawToken string) (*VerifiedIdentity, error) {
	if strings.TrimSpace(rawToken) == "" {
		return nil, apierr.MissingCredential(errors.New("empty bearer token"))
	}
	claims, err := v.verifyClaims(ctx, rawToken)
	if err != nil {
		return nil, apierr.InvalidCredential(err)
	}

	out := &VerifiedIdentity{}
	if s, _ := claims["sub"].(string); s != "" {
		out.SubjectID = s
	}
	if e, _ := claims["email"].(string); e != "" {
		out.Email = e
	}
	if gn, _ := claims["given_name"].(string); gn != "" {
		out.FirstName = gn
	}
	if fn, _ := claims["family_name"].(string); fn != "" {
		out.LastName = fn
	}
	return out, nil
}

func (v *oidcTokenVerifier) ensureDiscovery(ctx context.Context) error {
	v.discoveryOnce.Do(func() {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, v.discoveryURL, nil)
		res, err := v.httpClient.Do(req)
		if err != nil {
			v.discoveryErr = err
			return
		}
		defer res.Body.Close()

		if res.StatusCode < 200 || res.StatusCode >= 300 {
			v.discoveryErr = fmt.Errorf("discovery request failed: %s", res.Status)
			return
		}

		var d struct {
			Issuer  string `json:"issuer"`
			JWKSURI string `json:"jwks_uri"`
		}
		if err := json.NewDecoder(res.Body).Decode(&d); err != nil {
			v.discoveryErr = err
			return
		}
		if strings.TrimSpace(d.JWKSURI) == "" {
			v.discoveryErr = fmt.Errorf("discovery missing jwks_uri")
			return
		}
		v.jwks.setURL(d.JWKSURI)
	})
	return v.discoveryErr
}

func (v *oidcTokenVerifier) verifyClaims(ctx context.Context, tokenString string) (jwt.MapClaims, error) {
	if err := v.ensureDiscovery(ctx); err != nil {
		return nil, fmt.Errorf("oidc discovery error: %w", err)
	}

	parser := jwt.NewParser(jwt.WithValidMethods(v.algAllow))
	claims := jwt.MapClaims{}

	tok, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, fmt.Errorf("missing kid")
		}
		return v.jwks.getKey(ctx, kid)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid id_token: %w", err)
	}
	if tok == nil || !tok.Valid {
		return nil, fmt.Errorf("invalid id_token")
	}

	// Time-based validation (jwt/v5 MapClaims does not expose Valid()).
	if err := validateTimeClaims(claims, time.Now(), 0); err != nil {
		return nil, err
	}

	iss, _ := claims["iss"].(string)
	if !containsString(v.allowedIss, iss) {
		return nil, fmt.Errorf("issuer mismatch: %q", iss)
	}
	if !audContains(claims["aud"], v.requiredAud) {
		return nil, fmt.Errorf("audience mismatch")
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, fmt.Errorf("missing sub")
	}

	return claims, nil
}

func validateTimeClaims(claims jwt.MapClaims, now time.Time, leeway time.Duration) error {
	expAny, ok := claims["exp"]
	if !ok {
		return fmt.Errorf("missing exp")
	}
	exp, err := parseNumericTime(expAny)
	if err != nil {
		return fmt.Errorf("invalid exp: %w", err)
	}
	if now.After(exp.Add(leeway)) {
		return fmt.Errorf("token expired")
	}

	if nbfAny, ok := claims["nbf"]; ok {
		nbf, err := parseNumericTime(nbfAny)
		if err != nil {
			return fmt.Errorf("invalid nbf: %w", err)
		}
		if now.Add(leeway).Before(nbf) {
			return fmt.Errorf("token not valid yet")
		}
	}

	if iatAny, ok := claims["iat"]; ok {
		iat, err := parseNumericTime(iatAny)
		if err != nil {
			return fmt.Errorf("invalid iat: %w", err)
		}
		if iat.After(now.Add(5 * time.Minute)) {
			return fmt.Errorf("token issued in the future")
		}
	}

	return nil
}

func parseNumericTime(v any) (time.Time, error) {
	// JWT numeric dates are seconds since epoch
	var sec int64

	switch x := v.(type) {
	case float64:
		sec = int64(x)
	case float32:
		sec = int64(x)
	case int64:
		sec = x
	case int:
		sec = int64(x)
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return time.Time{}, err
		}
		sec = n
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		if err != nil {
			return time.Time{}, err
		}
		sec = n
	default:
		return time.Time{}, fmt.Errorf("unexpected type %T", v)
	}

	if sec <= 0 {
		return time.Time{}, fmt.Errorf("non-positive numeric date")
	}
	return time.Unix(sec, 0).UTC(), nil
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

func audContains(aud any, required string) bool {
	switch v := aud.(type) {
	case string:
		return v == required
	case []any:
		for _, it := range v {
			if s, ok := it.(string); ok && s == required {
				return true
			}
		}
	}
	return false
}

// ----- JWKS cache (supports RSA + EC) -----

type jwksCache struct {
	httpClient *http.Client

	mu      sync.RWMutex
	jwksURL string
	keys    map[string]any // kid -> *rsa.PublicKey or *ecdsa.PublicKey

	fetchedAt time.Time
	ttl       time.Duration
}

func newJWKSCache(httpClient *http.Client) *jwksCache {
	return &jwksCache{
		httpClient: httpClient,
		keys:       map[string]any{},
		ttl:        6 * time.Hour,
	}
}

func (j *jwksCache) setURL(url string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.jwksURL = url
}

type jwkSet struct {
	Keys []jwk `json:"keys"`
}

type jwk struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	Alg string `json:"alg"`

	// RSA
	N string `json:"n"`
	E string `json:"e"`

	// EC
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

func (j *jwksCache) getKey(ctx context.Context, kid string) (any, error) {
	j.mu.RLock()
	key := j.keys[kid]
	stale := time.Since(j.fetchedAt) > j.ttl
	url := j.jwksURL
	j.mu.RUnlock()

	if key != nil && !stale {
		return key, nil
	}
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("jwks url not set")
	}

	if err := j.refresh(ctx, url); err != nil {
		// fallback to cached key if present
		j.mu.RLock()
		key = j.keys[kid]
		j.mu.RUnlock()
		if key != nil {
			return key, nil
		}
		return nil, err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	key = j.keys[kid]
	if key == nil {
		return nil, fmt.Errorf("kid not found in jwks: %s", kid)
	}
	return key, nil
}

func (j *jwksCache) refresh(ctx context.Context, url string) error {
	req, _ := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	res, err := j.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		return fmt.Errorf("jwks fetch failed: %s", res.Status)
	}

	var set jwkSet
	if err := json.NewDecoder(res.Body).Decode(&set); err != nil {
		return err
	}

	next := map[string]any{}
	for _, k := range set.Keys {
		if strings.TrimSpace(k.Kid) == "" {
			continue
		}
		switch k.Kty {
		case "RSA":
			pub, err := rsaFromModExp(k.N, k.E)
			if err == nil {
				next[k.Kid] = pub
			}
		case "EC":
			pub, err := ecdsaFromXY(k.Crv, k.X, k.Y)
			if err == nil {
				next[k.Kid] = pub
			}
		}
	}

	if len(next) == 0 {
		return fmt.Errorf("jwks contained no usable keys")
	}

	j.mu.Lock()
	j.keys = next
	j.fetchedAt = time.Now()
	j.mu.Unlock()
	return nil
}

func rsaFromModExp(nB64, eB64 string) (*rsa.PublicKey, error) {
	nb, err := base64.RawURLEncoding.DecodeString(nB64)
	if err != nil {
		return nil, err
	}
	eb, err := base64.RawURLEncoding.DecodeString(eB64)
	if err != nil {
		return nil, err
	}

	n := new(big.Int).SetBytes(nb)
	e := 0
	for _, b := range eb {
		e = e<<8 + int(b)
	}
	if e == 0 {
		return nil, fmt.Errorf("invalid exponent")
	}

	return &rsa.PublicKey{N: n, E: e}, nil
}

func ecdsaFromXY(crv, xB64, yB64 string) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch crv {
	case "P-256":
		curve = elliptic.P256()
	default:
		return nil, fmt.Errorf("unsupported curve: %s", crv)
	}

	xb, err := base64.RawURLEncoding.DecodeString(xB64)
	if err != nil {
		return nil, err
	}
	yb, err := base64.RawURLEncoding.DecodeString(yB64)
	if err != nil {
		return nil, err
	}

	x := new(big.Int).SetBytes(xb)
	y := new(big.Int).SetBytes(yb)

	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("invalid EC point")
	}

	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
