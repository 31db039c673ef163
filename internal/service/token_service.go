package service

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"star-auth/internal/domain"
)

// TokenService emite y valida los tres tipos de token firmados: access,
// refresh y capsula OTP. Access y refresh usan claves distintas: una clave
// de access filtrada no permite forjar refresh tokens.
type TokenService struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
	issuer        string
	store         RefreshTokenStore
}

// Claims son los claims de access y refresh tokens.
type Claims struct {
	UserID      string `json:"uid"`
	Email       string `json:"email"`
	AccountType string `json:"acc_type"`
	TokenType   string `json:"typ"`
	jwt.RegisteredClaims
}

// OTPClaims es la capsula firmada que transporta el OTP. No se persiste:
// firma + expiracion + igualdad son toda su verificacion.
type OTPClaims struct {
	Email string `json:"email"`
	OTP   string `json:"otp"`
	jwt.RegisteredClaims
}

var (
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
)

// otpTokenTTL es fijo: la capsula OTP vive 5 minutos.
const otpTokenTTL = 5 * time.Minute

func NewTokenService(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration) *TokenService {
	if accessTTL <= 0 {
		accessTTL = 15 * time.Minute
	}
	if refreshTTL <= 0 {
		refreshTTL = 15 * 24 * time.Hour
	}
	return &TokenService{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		accessTTL:     accessTTL,
		refreshTTL:    refreshTTL,
		issuer:        "star-auth",
		store:         NewMemoryRefreshTokenStore(),
	}
}

func NewTokenServiceWithStore(accessSecret, refreshSecret string, accessTTL, refreshTTL time.Duration, store RefreshTokenStore) *TokenService {
	svc := NewTokenService(accessSecret, refreshSecret, accessTTL, refreshTTL)
	if store != nil {
		svc.store = store
	}
	return svc
}

// RefreshTTL expone la vigencia del refresh token para el transporte.
func (s *TokenService) RefreshTTL() time.Duration {
	return s.refreshTTL
}

// IssueAccessToken firma un access token. Solo falla por clave ausente,
// que es un error de configuracion, no del usuario.
func (s *TokenService) IssueAccessToken(user domain.PublicUser) (string, error) {
	if len(s.accessSecret) == 0 {
		return "", ErrTokenInvalid
	}
	return s.signToken(user, s.accessSecret, s.accessTTL, "access", "")
}

// IssueRefreshToken firma un refresh token con la clave de refresh y
// registra su jti en el ledger de revocacion.
func (s *TokenService) IssueRefreshToken(user domain.PublicUser) (string, error) {
	signed, jti, err := s.MintRefreshToken(user)
	if err != nil {
		return "", err
	}
	if err := s.RegisterRefreshToken(jti, user.UserID); err != nil {
		return "", err
	}
	return signed, nil
}

// MintRefreshToken firma un refresh token y devuelve token y jti sin
// tocar el ledger. El token no sirve hasta RegisterRefreshToken: la
// verificacion exige que el jti exista.
func (s *TokenService) MintRefreshToken(user domain.PublicUser) (string, string, error) {
	if len(s.refreshSecret) == 0 {
		return "", "", ErrTokenInvalid
	}
	jti := uuid.NewString()
	signed, err := s.signToken(user, s.refreshSecret, s.refreshTTL, "refresh", jti)
	if err != nil {
		return "", "", err
	}
	return signed, jti, nil
}

// RegisterRefreshToken anota un jti emitido en el ledger de revocacion.
func (s *TokenService) RegisterRefreshToken(jti, userID string) error {
	if s.store == nil {
		return nil
	}
	return s.store.Store(jti, userID, s.refreshTTL)
}

// VerifyRefreshToken valida firma, vigencia, tipo y jti. Expirado y
// malformado colapsan en ErrTokenInvalid: la respuesta no debe servir de
// oraculo.
func (s *TokenService) VerifyRefreshToken(token string) (Claims, error) {
	if len(s.refreshSecret) == 0 || strings.TrimSpace(token) == "" {
		return Claims{}, ErrTokenInvalid
	}
	claims, err := s.parseToken(token, s.refreshSecret)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	if claims.TokenType != "refresh" || !s.isValidClaims(claims) {
		return Claims{}, ErrTokenInvalid
	}
	if s.store != nil {
		ok, err := s.store.Exists(claims.ID)
		if err != nil || !ok {
			return Claims{}, ErrTokenInvalid
		}
	}
	return claims, nil
}

// RevokeRefreshToken saca el jti del ledger. Acepta solo refresh tokens
// con firma valida.
func (s *TokenService) RevokeRefreshToken(token string) error {
	if len(s.refreshSecret) == 0 || strings.TrimSpace(token) == "" {
		return ErrTokenInvalid
	}
	claims, err := s.parseToken(token, s.refreshSecret)
	if err != nil {
		return ErrTokenInvalid
	}
	if claims.TokenType != "refresh" || claims.ID == "" {
		return ErrTokenInvalid
	}
	if s.store == nil {
		return nil
	}
	return s.store.Revoke(claims.ID)
}

// ParseAccessToken valida un access token. A diferencia del camino de
// refresh, aqui se distingue expirado de invalido para el guard HTTP.
func (s *TokenService) ParseAccessToken(token string) (Claims, error) {
	if len(s.accessSecret) == 0 {
		return Claims{}, ErrTokenInvalid
	}
	if strings.TrimSpace(token) == "" {
		return Claims{}, ErrTokenInvalid
	}
	claims, err := s.parseToken(token, s.accessSecret)
	if err != nil {
		return Claims{}, err
	}
	if claims.TokenType != "access" || !s.isValidClaims(claims) {
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

// IssueOTPToken firma la capsula {email, otp} con la clave de access y
// TTL fijo de 5 minutos.
func (s *TokenService) IssueOTPToken(email, otp string) (string, error) {
	if len(s.accessSecret) == 0 {
		return "", ErrTokenInvalid
	}
	now := time.Now().UTC()
	claims := OTPClaims{
		Email: email,
		OTP:   otp,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(otpTokenTTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.accessSecret)
}

// VerifyOTPToken valida firma y vigencia de la capsula y devuelve su
// contenido. Expirado y malformado colapsan en ErrTokenInvalid.
func (s *TokenService) VerifyOTPToken(token string) (OTPClaims, error) {
	if len(s.accessSecret) == 0 || strings.TrimSpace(token) == "" {
		return OTPClaims{}, ErrTokenInvalid
	}
	var claims OTPClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return s.accessSecret, nil
	})
	if err != nil {
		return OTPClaims{}, ErrTokenInvalid
	}
	if claims.Issuer != s.issuer || claims.Email == "" || claims.OTP == "" {
		return OTPClaims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) signToken(user domain.PublicUser, secret []byte, ttl time.Duration, tokenType, jti string) (string, error) {
	now := time.Now().UTC()
	claims := Claims{
		UserID:      user.UserID,
		Email:       user.Email,
		AccountType: user.AccountType,
		TokenType:   tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        jti,
			Issuer:    s.issuer,
			Subject:   user.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}

func (s *TokenService) parseToken(tokenString string, secret []byte) (Claims, error) {
	var claims Claims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	_, err := parser.ParseWithClaims(tokenString, &claims, func(_ *jwt.Token) (any, error) {
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, ErrTokenInvalid
	}
	return claims, nil
}

func (s *TokenService) isValidClaims(claims Claims) bool {
	if strings.TrimSpace(claims.UserID) == "" {
		return false
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return false
	}
	if claims.Subject != claims.UserID {
		return false
	}
	return strings.TrimSpace(claims.Issuer) == s.issuer
}
