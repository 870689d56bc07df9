package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultFlowTTL はサインイン開始からコールバックまでに許容する時間。
const DefaultFlowTTL = 15 * time.Minute

// flowAudience はフローCookie用JWTのaud。他用途のトークンとの取り違えを防ぐ。
const flowAudience = "authpage:flow"

// ErrInvalidFlow はフローCookieが存在しない、改ざんされている、または期限切れの場合のエラー。
var ErrInvalidFlow = errors.New("invalid sign-in flow")

// FlowState はサインイン開始時にCookieへ保存し、コールバックで検証する値。
type FlowState struct {
	Provider     string `json:"provider"`
	State        string `json:"state"`
	CodeVerifier string `json:"code_verifier"`
	CallbackURL  string `json:"callback_url"`
	jwt.RegisteredClaims
}

// FlowCodec はFlowStateをHS256署名付きJWTとしてエンコード・デコードする。
type FlowCodec struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewFlowCodec はAUTH_SECRETで署名するFlowCodecを生成する。
// ttlが0以下の場合はDefaultFlowTTLを使う。
func NewFlowCodec(secret string, ttl time.Duration) *FlowCodec {
	if ttl <= 0 {
		ttl = DefaultFlowTTL
	}
	return &FlowCodec{
		secret: []byte(secret),
		ttl:    ttl,
		now:    time.Now,
	}
}

// TTL はフローCookieの有効期間を返す。
func (c *FlowCodec) TTL() time.Duration {
	return c.ttl
}

// Encode はサインイン要求をフローCookieの値に変換する。
func (c *FlowCodec) Encode(req *SignInRequest) (string, error) {
	now := c.now()
	claims := FlowState{
		Provider:     req.ProviderID,
		State:        req.State,
		CodeVerifier: req.CodeVerifier,
		CallbackURL:  req.CallbackURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{flowAudience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign flow state: %w", err)
	}
	return signed, nil
}

// Decode はフローCookieの値を検証してFlowStateを返す。
// 署名不正・期限切れ・形式不正はすべてErrInvalidFlowとして扱う。
func (c *FlowCodec) Decode(raw string) (*FlowState, error) {
	if raw == "" {
		return nil, ErrInvalidFlow
	}

	var claims FlowState
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(flowAudience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFlow, err)
	}
	if claims.State == "" || claims.CodeVerifier == "" {
		return nil, fmt.Errorf("%w: missing state or verifier", ErrInvalidFlow)
	}

	return &claims, nil
}
