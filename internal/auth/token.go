package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Claims 令牌声明
type Claims struct {
	jwt.RegisteredClaims
}

// TokenValidator 校验事件流接入端携带的 HS256 Bearer token
type TokenValidator struct {
	secret []byte
}

// NewTokenValidator 创建令牌校验器
// secret 为空时返回 nil,调用方据此跳过鉴权
func NewTokenValidator(secret string) *TokenValidator {
	if secret == "" {
		return nil
	}
	return &TokenValidator{secret: []byte(secret)}
}

// ValidateToken 校验令牌并返回声明
func (v *TokenValidator) ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// IssueToken 签发令牌(测试与内部工具使用)
func (v *TokenValidator) IssueToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(v.secret)
}
