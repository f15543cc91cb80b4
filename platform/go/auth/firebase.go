package auth

import (
	"context"
	"strings"

	firebaseauth "firebase.google.com/go/v4/auth"
)

// FirebaseVerifier validates Firebase ID tokens. The organization and role
// are read from the org_id and role custom claims.
type FirebaseVerifier struct {
	client *firebaseauth.Client
}

// NewFirebaseVerifier wraps an initialized Firebase Auth client.
func NewFirebaseVerifier(client *firebaseauth.Client) *FirebaseVerifier {
	if client == nil {
		panic("auth: firebase client is required")
	}
	return &FirebaseVerifier{client: client}
}

// Verify implements Verifier.
func (v *FirebaseVerifier) Verify(ctx context.Context, raw string) (Identity, error) {
	if strings.TrimSpace(raw) == "" {
		return Identity{}, &Error{Kind: KindAbsent}
	}

	t, err := v.client.VerifyIDToken(ctx, raw)
	if err != nil {
		if firebaseauth.IsIDTokenExpired(err) {
			return Identity{}, &Error{Kind: KindExpired, Err: err}
		}
		return Identity{}, &Error{Kind: KindMalformed, Err: err}
	}

	claims := make(map[string]interface{}, len(t.Claims)+1)
	for k, val := range t.Claims {
		claims[k] = val
	}
	claims["uid"] = t.UID

	return identityFromClaims(claims)
}
