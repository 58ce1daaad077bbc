package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/infrastructure/email"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/notification"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/resetsecret"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/token"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/db"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	outboxDomain "github.com/Nemeth89/ECOMMERCE-Backend/pkg/outbox/domain"
	outboxRepository "github.com/Nemeth89/ECOMMERCE-Backend/pkg/outbox/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/validator"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Register(ctx context.Context, name, email, password string) (*domain.User, *notification.Task, error)
	VerifyEmail(ctx context.Context, rawToken string) error
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	ForgotPassword(ctx context.Context, email string) (*notification.Task, error)
	ResetPassword(ctx context.Context, secret, newPassword string) error
	ResendVerification(ctx context.Context, email string) (*notification.Task, error)
	Authenticate(ctx context.Context, rawToken string) (*token.Claims, error)
	Logout(ctx context.Context, rawToken string) error
	GetUser(ctx context.Context, id int64) (*domain.User, error)
}

type Notifier interface {
	Dispatch(ctx context.Context, kind notification.Kind, msg email.Message) *notification.Task
}

type Revocations interface {
	Revoke(ctx context.Context, jti string, until time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

type AuthConfig struct {
	VerificationTTL time.Duration
	SessionTTL      time.Duration
	ResetTTL        time.Duration
	BcryptCost      int
	EventsTopic     string
}

type AuthDeps struct {
	Users       repository.UserRepository
	Outbox      outboxRepository.OutboxRepository
	Tx          db.Transactor
	Issuer      *token.Issuer
	Revocations Revocations
	Notifier    Notifier
	Templates   *notification.Templates
	Validator   validator.Validator
	Logger      *zap.Logger
	Clock       func() time.Time
}

type authService struct {
	userRepo    repository.UserRepository
	outboxRepo  outboxRepository.OutboxRepository
	tx          db.Transactor
	issuer      *token.Issuer
	revocations Revocations
	notifier    Notifier
	templates   *notification.Templates
	validator   validator.Validator
	logger      *zap.Logger
	cfg         AuthConfig
	now         func() time.Time
	tracer      trace.Tracer
}

func NewAuthService(deps AuthDeps, cfg AuthConfig) AuthService {
	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = bcrypt.DefaultCost
	}
	if cfg.EventsTopic == "" {
		cfg.EventsTopic = "user_events"
	}

	now := deps.Clock
	if now == nil {
		now = time.Now
	}

	return &authService{
		userRepo:    deps.Users,
		outboxRepo:  deps.Outbox,
		tx:          deps.Tx,
		issuer:      deps.Issuer,
		revocations: deps.Revocations,
		notifier:    deps.Notifier,
		templates:   deps.Templates,
		validator:   deps.Validator,
		logger:      deps.Logger,
		cfg:         cfg,
		now:         now,
		tracer:      otel.Tracer("service/auth_service"),
	}
}

func (s *authService) Register(ctx context.Context, name, email, password string) (*domain.User, *notification.Task, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Register")
	defer span.End()

	email = normalizeEmail(email)

	if err := s.validator.ValidatePassword(password); err != nil {
		return nil, nil, err
	}

	hashedPass, err := bcrypt.GenerateFromPassword([]byte(password), s.cfg.BcryptCost)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Error hashing password",
			zap.String("email", email),
			zap.Error(err),
		)

		return nil, nil, fmt.Errorf("error hashing password: %w", err)
	}

	var created *domain.User
	err = s.withTx(ctx, "Register", func(tx pgx.Tx) error {
		created, err = s.userRepo.Create(ctx, tx, &domain.User{
			Name:         strings.TrimSpace(name),
			Email:        email,
			PasswordHash: string(hashedPass),
		})
		if err != nil {
			return err
		}

		return s.saveEvent(ctx, tx, domain.EventUserRegistered, created)
	})
	if err != nil {
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			mylogger.Info(ctx, s.logger, "User already exists", zap.String("email", email))

			return nil, nil, err
		}

		return nil, nil, fmt.Errorf("error registering user: %w", err)
	}

	span.SetAttributes(attribute.Int64("user_id", created.ID))

	return created, s.sendVerification(ctx, created), nil
}

func (s *authService) VerifyEmail(ctx context.Context, rawToken string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.VerifyEmail")
	defer span.End()

	claims, err := s.issuer.Verify(rawToken, token.PurposeEmailVerification)
	if err != nil {
		mylogger.Warn(ctx, s.logger, "Rejected verification token", zap.Error(err))

		return ErrInvalidToken
	}

	span.SetAttributes(attribute.Int64("user_id", claims.UserID))

	user, err := s.userRepo.GetByID(ctx, claims.UserID)
	if err != nil {
		return err
	}

	return s.withTx(ctx, "VerifyEmail", func(tx pgx.Tx) error {
		changed, err := s.userRepo.MarkVerified(ctx, tx, user.ID)
		if err != nil {
			return err
		}

		if !changed {
			return nil
		}

		return s.saveEvent(ctx, tx, domain.EventUserVerified, user)
	})
}

func (s *authService) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return "", nil, err
	}

	if !user.IsVerified {
		mylogger.Info(ctx, s.logger, "Login attempt before verification", zap.Int64("user_id", user.ID))

		return "", nil, ErrEmailNotVerified
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		mylogger.Warn(ctx, s.logger, "Invalid credentials", zap.Int64("user_id", user.ID))

		return "", nil, ErrInvalidCredentials
	}

	session, err := s.issuer.Issue(user.ID, token.PurposeSession, s.cfg.SessionTTL)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to issue session token", zap.Error(err))

		return "", nil, fmt.Errorf("error issuing session token: %w", err)
	}

	return session, user, nil
}

func (s *authService) ForgotPassword(ctx context.Context, email string) (*notification.Task, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ForgotPassword")
	defer span.End()

	email = normalizeEmail(email)

	secret, digest, err := resetsecret.Generate()
	if err != nil {
		return nil, err
	}

	var user *domain.User
	err = s.withTx(ctx, "ForgotPassword", func(tx pgx.Tx) error {
		user, err = s.userRepo.SetResetToken(ctx, tx, email, digest, s.now().Add(s.cfg.ResetTTL))
		if err != nil {
			return err
		}

		return s.saveEvent(ctx, tx, domain.EventPasswordResetRequested, user)
	})
	if err != nil {
		return nil, err
	}

	msg, err := s.templates.PasswordReset(user.Email, secret)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to render reset email", zap.Error(err))

		return notification.Failed(notification.KindPasswordReset, err), nil
	}

	return s.notifier.Dispatch(ctx, notification.KindPasswordReset, msg), nil
}

func (s *authService) ResetPassword(ctx context.Context, secret, newPassword string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.ResetPassword")
	defer span.End()

	if secret == "" {
		return ErrInvalidToken
	}

	if err := s.validator.ValidatePassword(newPassword); err != nil {
		return err
	}

	hashedPass, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.cfg.BcryptCost)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	return s.withTx(ctx, "ResetPassword", func(tx pgx.Tx) error {
		user, err := s.userRepo.ResetPassword(ctx, tx, resetsecret.Hash(secret), string(hashedPass), s.now())
		if err != nil {
			if errors.Is(err, repository.ErrInvalidToken) {
				return ErrInvalidToken
			}

			return err
		}

		span.SetAttributes(attribute.Int64("user_id", user.ID))

		return s.saveEvent(ctx, tx, domain.EventPasswordReset, user)
	})
}

func (s *authService) ResendVerification(ctx context.Context, email string) (*notification.Task, error) {
	ctx, span := s.tracer.Start(ctx, "AuthService.ResendVerification")
	defer span.End()

	user, err := s.userRepo.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, err
	}

	if user.IsVerified {
		return nil, ErrAlreadyVerified
	}

	return s.sendVerification(ctx, user), nil
}

func (s *authService) Authenticate(ctx context.Context, rawToken string) (*token.Claims, error) {
	claims, err := s.issuer.Verify(rawToken, token.PurposeSession)
	if err != nil {
		return nil, ErrInvalidToken
	}

	if s.revocations != nil {
		revoked, err := s.revocations.IsRevoked(ctx, claims.ID)
		if err != nil {
			mylogger.Error(ctx, s.logger, "Revocation lookup failed", zap.Error(err))

			return nil, err
		}

		if revoked {
			return nil, ErrInvalidToken
		}
	}

	return claims, nil
}

func (s *authService) Logout(ctx context.Context, rawToken string) error {
	ctx, span := s.tracer.Start(ctx, "AuthService.Logout")
	defer span.End()

	claims, err := s.Authenticate(ctx, rawToken)
	if err != nil {
		return err
	}

	if s.revocations == nil {
		return nil
	}

	return s.revocations.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

func (s *authService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	res, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrUserNotFound) {
			mylogger.Error(
				ctx,
				s.logger,
				"Error finding user by id",
				zap.Error(err),
				zap.Int64("user_id", id),
			)
		}

		return nil, err
	}

	return res, nil
}

// sendVerification issues a fresh verification token and hands the email to
// the notifier. Failures never undo the caller's committed work.
func (s *authService) sendVerification(ctx context.Context, user *domain.User) *notification.Task {
	raw, err := s.issuer.Issue(user.ID, token.PurposeEmailVerification, s.cfg.VerificationTTL)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to issue verification token", zap.Error(err))

		return notification.Failed(notification.KindVerification, err)
	}

	msg, err := s.templates.Verification(user.Email, user.Name, raw)
	if err != nil {
		mylogger.Error(ctx, s.logger, "Failed to render verification email", zap.Error(err))

		return notification.Failed(notification.KindVerification, err)
	}

	return s.notifier.Dispatch(ctx, notification.KindVerification, msg)
}

func (s *authService) saveEvent(ctx context.Context, tx pgx.Tx, eventType string, user *domain.User) error {
	event, err := outboxDomain.NewEvent(
		domain.AggregateUser,
		strconv.FormatInt(user.ID, 10),
		eventType,
		s.cfg.EventsTopic,
		domain.UserEvent{
			UserID:     user.ID,
			Email:      user.Email,
			Name:       user.Name,
			OccurredAt: s.now().UTC(),
		},
	)
	if err != nil {
		return err
	}

	if err := s.outboxRepo.SaveOutboxEvent(ctx, tx, event); err != nil {
		return fmt.Errorf("failed to save outbox event: %w", err)
	}

	return nil
}

func (s *authService) withTx(ctx context.Context, method string, fn func(tx pgx.Tx) error) error {
	tx, err := s.tx.Begin(ctx)
	if err != nil {
		mylogger.Error(
			ctx,
			s.logger,
			"Error starting transaction",
			zap.String("method_name", method),
			zap.Error(err),
		)

		return fmt.Errorf("error starting transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		err := tx.Rollback(cleanupCtx)
		if err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			mylogger.Warn(
				cleanupCtx,
				s.logger,
				"Error rolling back transaction",
				zap.Error(err),
				zap.String("method_name", method),
				zap.String("service", "auth_service"),
			)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
