package server

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/go-portal-session/users"
	"github.com/pkg/errors"
)

// accessClaims are the claims carried by an access token.
type accessClaims struct {
	Role users.RoleType `json:"role"`
	jwt.RegisteredClaims
}

// hmacSigner signs and verifies access tokens with HMAC-SHA256.
type hmacSigner struct {
	secret []byte
}

func newHMACSigner(secret []byte) *hmacSigner {
	return &hmacSigner{secret: secret}
}

func (h *hmacSigner) Sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(h.secret)
	if err != nil {
		return "", errors.Wrap(err, "failed to sign token with HMAC")
	}
	return signedToken, nil
}

func (h *hmacSigner) verificationKey(token *jwt.Token) (any, error) {
	if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
		return nil, errors.Errorf("unexpected signing method: %v", token.Header["alg"])
	}
	return h.secret, nil
}

// issueAccessToken creates a signed access token for profile.
func (s *Server) issueAccessToken(profile *users.Profile) (string, error) {
	now := s.nowTime()
	claims := &accessClaims{
		Role: profile.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   profile.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.config.GetAccessTokenTTL())),
			ID:        uuid.New().String(),
		},
	}
	signed, err := s.signer.Sign(claims)
	if err != nil {
		return "", errors.Wrap(err, "[Server.issueAccessToken]")
	}
	return signed, nil
}

// parseAccessToken verifies the signature and expiry of tokenStr.
func (s *Server) parseAccessToken(tokenStr string) (*accessClaims, error) {
	claims := &accessClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims, s.signer.verificationKey,
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.nowTime),
	)
	if err != nil {
		return nil, errors.Wrap(err, "[Server.parseAccessToken]")
	}
	if claims.Subject == "" {
		return nil, errors.New("[Server.parseAccessToken] missing subject")
	}
	return claims, nil
}
