package plaid

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/plaid/plaid-go/v41/plaid"
)

// Webhook verification follows
// https://plaid.com/docs/api/webhooks/webhook-verification/

const (
	maxWebhookAge = 5 * time.Minute
	jwkTTL        = 24 * time.Hour
)

// KeyCache is where verification keys are kept between webhooks.
type KeyCache interface {
	Get(key string) (interface{}, bool)
	Set(key string, value interface{}, ttl time.Duration)
}

type keyFunc func(ctx context.Context, kid string) (*plaid.JWKPublicKey, error)

type Verifier struct {
	getKey keyFunc
	cache  KeyCache
	now    func() time.Time
}

func NewVerifier(client *plaid.APIClient, cache KeyCache) *Verifier {
	return &Verifier{
		getKey: func(ctx context.Context, kid string) (*plaid.JWKPublicKey, error) {
			req := *plaid.NewWebhookVerificationKeyGetRequest(kid)
			resp, _, err := client.PlaidApi.WebhookVerificationKeyGet(ctx).
				WebhookVerificationKeyGetRequest(req).
				Execute()
			if err != nil {
				return nil, apiError("webhook verification key get", err)
			}
			key := resp.GetKey()
			return &key, nil
		},
		cache: cache,
		now:   time.Now,
	}
}

// Verify checks the Plaid-Verification JWT against the webhook body.
func (v *Verifier) Verify(ctx context.Context, body []byte, header http.Header) error {
	tokenString := header.Get("Plaid-Verification")
	if tokenString == "" {
		return errors.New("missing Plaid-Verification header")
	}

	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodES256.Alg()}),
		jwt.WithLeeway(30*time.Second),
		jwt.WithTimeFunc(v.now),
	)

	// Decode JWT header (unverified) to extract kid
	unverified, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return fmt.Errorf("parse unverified token: %w", err)
	}
	if unverified.Method.Alg() != jwt.SigningMethodES256.Alg() {
		return fmt.Errorf("unexpected alg %q (want ES256)", unverified.Method.Alg())
	}
	kid, _ := unverified.Header["kid"].(string)
	if kid == "" {
		return errors.New("missing kid in JWT header")
	}

	jwk, err := v.key(ctx, kid)
	if err != nil {
		return fmt.Errorf("get JWK: %w", err)
	}
	pubKey, err := jwkToECDSAPublicKey(jwk)
	if err != nil {
		return fmt.Errorf("jwk->ecdsa: %w", err)
	}

	claims := jwt.MapClaims{}
	token, err := parser.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return pubKey, nil
	})
	if err != nil || !token.Valid {
		return fmt.Errorf("invalid token: %w", err)
	}

	iat, err := claims.GetIssuedAt()
	if err != nil || iat == nil {
		return errors.New("missing iat")
	}
	if v.now().Sub(iat.Time) > maxWebhookAge {
		return errors.New("token too old (>5m)")
	}

	wantHash, ok := claims["request_body_sha256"].(string)
	if !ok || wantHash == "" {
		return errors.New("missing request_body_sha256")
	}
	sum := sha256.Sum256(body)
	gotHex := hex.EncodeToString(sum[:])
	if subtle.ConstantTimeCompare([]byte(gotHex), []byte(strings.ToLower(wantHash))) != 1 {
		return errors.New("body hash mismatch")
	}
	return nil
}

func (v *Verifier) key(ctx context.Context, kid string) (*plaid.JWKPublicKey, error) {
	cacheKey := "plaid:jwk:" + kid
	if v.cache != nil {
		if cached, ok := v.cache.Get(cacheKey); ok {
			if key, ok := cached.(*plaid.JWKPublicKey); ok {
				return key, nil
			}
		}
	}
	key, err := v.getKey(ctx, kid)
	if err != nil {
		return nil, err
	}
	if v.cache != nil && key.Kid == kid {
		v.cache.Set(cacheKey, key, jwkTTL)
	}
	return key, nil
}

func jwkToECDSAPublicKey(jwk *plaid.JWKPublicKey) (*ecdsa.PublicKey, error) {
	if jwk == nil || jwk.X == "" || jwk.Y == "" ||
		jwk.Kty != "EC" ||
		jwk.Crv != "P-256" {
		return nil, errors.New("invalid/unsupported JWK")
	}
	xBytes, err := base64.RawURLEncoding.DecodeString(jwk.X)
	if err != nil {
		return nil, fmt.Errorf("decode x: %w", err)
	}
	yBytes, err := base64.RawURLEncoding.DecodeString(jwk.Y)
	if err != nil {
		return nil, fmt.Errorf("decode y: %w", err)
	}
	return &ecdsa.PublicKey{
		Curve: elliptic.P256(),
		X:     new(big.Int).SetBytes(xBytes),
		Y:     new(big.Int).SetBytes(yBytes),
	}, nil
}

// WebhookEvent is the part of a Plaid webhook body the server acts on.
type WebhookEvent struct {
	WebhookType string `json:"webhook_type"`
	WebhookCode string `json:"webhook_code"`
	ItemID      string `json:"item_id"`
}

func (e WebhookEvent) SyncUpdatesAvailable() bool {
	return e.WebhookType == "TRANSACTIONS" && e.WebhookCode == "SYNC_UPDATES_AVAILABLE"
}
