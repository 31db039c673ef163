package service

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"star-auth/internal/db"
	"star-auth/internal/domain"
	"star-auth/internal/email"
	"star-auth/internal/repository"
)

// CredentialService orquesta registro, verificacion OTP, login, refresh,
// logout y borrado. Sostiene el codec de tokens, los repositorios y el
// sender de correo por composicion y los llama explicitamente.
type CredentialService struct {
	logger   *zap.Logger
	tx       db.TxRunner
	creds    repository.CredentialRepository
	sessions repository.SessionRepository
	tokens   *TokenService
	sender   email.Sender
}

func NewCredentialService(
	logger *zap.Logger,
	tx db.TxRunner,
	creds repository.CredentialRepository,
	sessions repository.SessionRepository,
	tokens *TokenService,
	sender email.Sender,
) *CredentialService {
	return &CredentialService{
		logger:   logger,
		tx:       tx,
		creds:    creds,
		sessions: sessions,
		tokens:   tokens,
		sender:   sender,
	}
}

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotVerified        = errors.New("email not verified")
	ErrTokenMismatch      = errors.New("invalid token for this email")
	ErrOTPMismatch        = errors.New("otp does not match")
	ErrEmailSendFailure   = errors.New("email send failed")
	ErrInvalidEmail       = errors.New("invalid email format")
	ErrMissingInput       = errors.New("missing required input")
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

type RegisterInput struct {
	Email       string
	Password    string
	AccountType string
}

type MessageResult struct {
	Message string `json:"message"`
}

type OTPResult struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type VerifyResult struct {
	Message         string `json:"message"`
	AlreadyVerified bool   `json:"-"`
}

type LoginResult struct {
	Message      string            `json:"message"`
	AccessToken  string            `json:"accessToken"`
	RefreshToken string            `json:"-"`
	SessionID    int64             `json:"sessionId"`
	User         domain.PublicUser `json:"user"`
}

type RefreshResult struct {
	Message     string `json:"message"`
	AccessToken string `json:"accessToken"`
}

// Register crea la credencial sin verificar y manda el correo de
// bienvenida best-effort despues del commit. El perdedor de dos registros
// concurrentes recibe ErrDuplicateEmail desde la restriccion unique.
func (s *CredentialService) Register(ctx context.Context, input RegisterInput) (MessageResult, error) {
	emailAddr := strings.TrimSpace(input.Email)
	password := input.Password
	if emailAddr == "" || password == "" {
		return MessageResult{}, fmt.Errorf("registration failed: %w", ErrMissingInput)
	}
	if !emailPattern.MatchString(emailAddr) {
		return MessageResult{}, fmt.Errorf("registration failed: %w", ErrInvalidEmail)
	}
	accType := strings.TrimSpace(input.AccountType)
	if accType == "" {
		accType = domain.AccountTypeSystem
	}

	hashBytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return MessageResult{}, fmt.Errorf("registration failed: %w", err)
	}

	cred := domain.Credential{
		UserID:       uuid.NewString(),
		Email:        emailAddr,
		PasswordHash: string(hashBytes),
		AccountType:  accType,
		IsVerified:   false,
		CreatedAt:    time.Now().UTC(),
	}

	err = s.tx.WithTx(ctx, func(q repository.Querier) error {
		return s.creds.Create(ctx, q, cred)
	})
	if err != nil {
		return MessageResult{}, fmt.Errorf("registration failed: %w", err)
	}

	s.sendAsync(email.TemplateWelcomeUser, emailAddr, "")

	return MessageResult{Message: "User registered. Kindly verify your email to access other services."}, nil
}

// GenerateOTP emite un OTP de 6 digitos dentro de una capsula firmada de
// 5 minutos y lo manda por correo. El OTP solo viaja en la capsula y en
// el cuerpo del correo; al cliente vuelve unicamente la capsula.
func (s *CredentialService) GenerateOTP(ctx context.Context, emailAddr string) (OTPResult, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return OTPResult{}, fmt.Errorf("otp generation failed: %w", ErrMissingInput)
	}
	if !emailPattern.MatchString(emailAddr) {
		return OTPResult{}, fmt.Errorf("otp generation failed: %w", ErrInvalidEmail)
	}

	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		_, err := s.creds.GetByEmail(ctx, q, emailAddr)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		return err
	})
	if err != nil {
		return OTPResult{}, fmt.Errorf("otp generation failed: %w", err)
	}

	otp, err := generateOTPCode()
	if err != nil {
		return OTPResult{}, fmt.Errorf("otp generation failed: %w", err)
	}
	token, err := s.tokens.IssueOTPToken(emailAddr, otp)
	if err != nil {
		return OTPResult{}, fmt.Errorf("otp generation failed: %w", err)
	}

	// Sin el correo el OTP nunca llega al usuario: aca el fallo de envio
	// si se propaga.
	if err := s.send(ctx, email.TemplateGenerateOTP, emailAddr, otp); err != nil {
		s.logger.Warn("send otp email failed", zap.Error(err), zap.String("email", emailAddr))
		return OTPResult{}, fmt.Errorf("otp generation failed: %w", ErrEmailSendFailure)
	}

	return OTPResult{
		Message: "New OTP generated and sent to your email. Use the token for verification.",
		Token:   token,
	}, nil
}

// VerifyOTP valida capsula, email y OTP, y marca la credencial como
// verificada. Una credencial ya verificada devuelve exito idempotente sin
// reenviar correos.
func (s *CredentialService) VerifyOTP(ctx context.Context, emailAddr, otp, otpToken string) (VerifyResult, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	otp = strings.TrimSpace(otp)
	if emailAddr == "" || otp == "" || strings.TrimSpace(otpToken) == "" {
		return VerifyResult{}, fmt.Errorf("otp verification failed: %w", ErrMissingInput)
	}
	if !emailPattern.MatchString(emailAddr) {
		return VerifyResult{}, fmt.Errorf("otp verification failed: %w", ErrInvalidEmail)
	}

	claims, err := s.tokens.VerifyOTPToken(otpToken)
	if err != nil {
		return VerifyResult{}, fmt.Errorf("otp verification failed: %w", err)
	}
	if claims.Email != emailAddr {
		return VerifyResult{}, fmt.Errorf("otp verification failed: %w", ErrTokenMismatch)
	}
	// Comparacion estricta de strings: "007" nunca coincide con "7".
	if subtle.ConstantTimeCompare([]byte(claims.OTP), []byte(otp)) != 1 {
		return VerifyResult{}, fmt.Errorf("otp verification failed: %w", ErrOTPMismatch)
	}

	var alreadyVerified bool
	err = s.tx.WithTx(ctx, func(q repository.Querier) error {
		cred, err := s.creds.GetByEmail(ctx, q, emailAddr)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if cred.IsVerified {
			alreadyVerified = true
			return nil
		}
		return s.creds.SetVerified(ctx, q, cred.UserID, time.Now().UTC())
	})
	if err != nil {
		return VerifyResult{}, fmt.Errorf("otp verification failed: %w", err)
	}

	if alreadyVerified {
		return VerifyResult{Message: "Email already verified", AlreadyVerified: true}, nil
	}

	s.sendAsync(email.TemplateVerifiedUser, emailAddr, "")

	return VerifyResult{Message: "Email verified successfully"}, nil
}

// Login autentica, emite access+refresh y abre la sesion. Lectura de
// credencial y alta de sesion comparten una transaccion: un crash a mitad
// de login no deja ni sesion colgada ni estado fantasma.
func (s *CredentialService) Login(ctx context.Context, emailAddr, password string, netCtx domain.NetworkContext) (LoginResult, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" || password == "" {
		return LoginResult{}, fmt.Errorf("login failed: %w", ErrMissingInput)
	}

	var result LoginResult
	var refreshJTI string
	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		cred, err := s.creds.GetByEmail(ctx, q, emailAddr)
		if errors.Is(err, pgx.ErrNoRows) {
			// Email desconocido y password incorrecto responden igual.
			return ErrInvalidCredentials
		}
		if err != nil {
			return err
		}
		if bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(password)) != nil {
			return ErrInvalidCredentials
		}
		if !cred.IsVerified {
			return ErrNotVerified
		}

		user := cred.Public()
		accessToken, err := s.tokens.IssueAccessToken(user)
		if err != nil {
			return err
		}
		refreshToken, jti, err := s.tokens.MintRefreshToken(user)
		if err != nil {
			return err
		}
		refreshJTI = jti

		session, err := s.sessions.Open(ctx, q, cred.UserID, netCtx)
		if err != nil {
			return err
		}

		result = LoginResult{
			Message:      "Login successful",
			AccessToken:  accessToken,
			RefreshToken: refreshToken,
			SessionID:    session.SessionID,
			User:         user,
		}
		return nil
	})
	if err != nil {
		return LoginResult{}, fmt.Errorf("login failed: %w", err)
	}

	// El jti entra al ledger recien despues del commit: un rollback no
	// deja refresh tokens redimibles de sesiones que nunca existieron.
	if err := s.tokens.RegisterRefreshToken(refreshJTI, result.User.UserID); err != nil {
		return LoginResult{}, fmt.Errorf("login failed: %w", err)
	}
	return result, nil
}

// Refresh valida el refresh token, confirma que la credencial siga
// existiendo y verificada, y emite un access token nuevo. No rota el
// refresh token ni toca la sesion.
func (s *CredentialService) Refresh(ctx context.Context, refreshToken string) (RefreshResult, error) {
	claims, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("token refresh failed: %w", err)
	}

	var accessToken string
	err = s.tx.WithTx(ctx, func(q repository.Querier) error {
		cred, err := s.creds.GetByID(ctx, q, claims.UserID)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		if !cred.IsVerified {
			return ErrNotVerified
		}
		accessToken, err = s.tokens.IssueAccessToken(cred.Public())
		return err
	})
	if err != nil {
		return RefreshResult{}, fmt.Errorf("token refresh failed: %w", err)
	}

	return RefreshResult{
		Message:     "Token refreshed successfully.",
		AccessToken: accessToken,
	}, nil
}

// Logout verifica y revoca el refresh token y cierra la sesion en una
// transaccion. Cerrar una sesion ya cerrada devuelve ErrSessionNotFound.
func (s *CredentialService) Logout(ctx context.Context, sessionID int64, refreshToken string, netCtx domain.NetworkContext) (MessageResult, error) {
	if sessionID == 0 {
		return MessageResult{}, fmt.Errorf("logout failed: %w", ErrMissingInput)
	}
	if err := s.tokens.RevokeRefreshToken(refreshToken); err != nil {
		return MessageResult{}, fmt.Errorf("logout failed: %w", err)
	}

	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		return s.sessions.Close(ctx, q, sessionID, netCtx)
	})
	if err != nil {
		return MessageResult{}, fmt.Errorf("logout failed: %w", err)
	}

	return MessageResult{Message: "Logout successful. Session ended."}, nil
}

// DeleteUser borra la credencial. Las sesiones caen por la foreign key
// con cascade; aca no se orquestan.
func (s *CredentialService) DeleteUser(ctx context.Context, emailAddr string) (MessageResult, error) {
	emailAddr = strings.TrimSpace(emailAddr)
	if emailAddr == "" {
		return MessageResult{}, fmt.Errorf("user deletion failed: %w", ErrMissingInput)
	}

	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		cred, err := s.creds.GetByEmail(ctx, q, emailAddr)
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return s.creds.Delete(ctx, q, cred.UserID)
	})
	if err != nil {
		return MessageResult{}, fmt.Errorf("user deletion failed: %w", err)
	}

	return MessageResult{Message: "User deleted successfully"}, nil
}

// CleanupSessions borra sesiones mas viejas que la retencion configurada.
func (s *CredentialService) CleanupSessions(ctx context.Context, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, nil
	}
	cutoff := time.Now().UTC().Add(-retention)
	var removed int64
	err := s.tx.WithTx(ctx, func(q repository.Querier) error {
		var err error
		removed, err = s.sessions.DeleteOlderThan(ctx, q, cutoff)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("session cleanup failed: %w", err)
	}
	return removed, nil
}

// send renderiza y manda una plantilla de correo.
func (s *CredentialService) send(ctx context.Context, template, to, otp string) error {
	if s.sender == nil {
		return ErrEmailSendFailure
	}
	subject, html, err := email.Render(template, email.TemplateData{Email: to, OTP: otp})
	if err != nil {
		return err
	}
	return s.sender.Send(ctx, email.Message{To: to, Subject: subject, HTML: html})
}

// sendAsync manda un correo best-effort despues del commit: el fallo se
// loguea y nunca vuelve al flujo que ya confirmo su escritura.
func (s *CredentialService) sendAsync(template, to, otp string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := s.send(ctx, template, to, otp); err != nil {
			s.logger.Warn("send email failed",
				zap.Error(err),
				zap.String("template", template),
				zap.String("email", to),
			)
		}
	}()
}

// generateOTPCode devuelve 6 digitos uniformes en [0, 1000000), con ceros
// a la izquierda preservados.
func generateOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}
