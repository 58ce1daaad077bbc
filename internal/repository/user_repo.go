package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/domain"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const userColumns = `id, name, email, password_hash, is_verified, reset_token, reset_token_expiry, created_at, updated_at`

type UserRepository interface {
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	Create(ctx context.Context, tx pgx.Tx, user *domain.User) (*domain.User, error)
	MarkVerified(ctx context.Context, tx pgx.Tx, id int64) (bool, error)
	SetResetToken(ctx context.Context, tx pgx.Tx, email, tokenHash string, expiry time.Time) (*domain.User, error)
	ResetPassword(ctx context.Context, tx pgx.Tx, tokenHash, newPasswordHash string, now time.Time) (*domain.User, error)
}

type userRepository struct {
	pool   *pgxpool.Pool
	tracer trace.Tracer
	logger *zap.Logger
}

func NewUserRepository(pool *pgxpool.Pool, logger *zap.Logger) UserRepository {
	return &userRepository{
		pool:   pool,
		logger: logger,
		tracer: otel.Tracer("repository/user_repo"),
	}
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	if err := row.Scan(
		&u.ID,
		&u.Name,
		&u.Email,
		&u.PasswordHash,
		&u.IsVerified,
		&u.ResetToken,
		&u.ResetTokenExpiry,
		&u.CreatedAt,
		&u.UpdatedAt,
	); err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByEmail")
	defer span.End()

	span.SetAttributes(
		attribute.String("email", email),
	)

	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1;`

	user, err := scanUser(r.pool.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to Get by email",
			zap.String("email", email),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return user, nil
}

func (r *userRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.GetByID")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1;`

	user, err := scanUser(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to Get by ID",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error getting user: %w", err)
	}

	return user, nil
}

func (r *userRepository) Create(ctx context.Context, tx pgx.Tx, user *domain.User) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.Create")
	defer span.End()

	span.SetAttributes(
		attribute.String("user.email", user.Email),
	)

	query := `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING ` + userColumns + `;
	`

	created, err := scanUser(tx.QueryRow(ctx, query, user.Name, user.Email, user.PasswordHash))
	if err != nil {
		span.RecordError(err)

		var pgError *pgconn.PgError
		if errors.As(err, &pgError) && pgError.Code == "23505" {
			mylogger.Warn(
				ctx,
				r.logger,
				"User already exists",
				zap.String("email", user.Email),
			)

			return nil, ErrUserAlreadyExists
		}

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to Create user",
			zap.String("email", user.Email),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error creating user: %w", err)
	}

	return created, nil
}

// MarkVerified sets is_verified and reports whether the flag actually changed.
func (r *userRepository) MarkVerified(ctx context.Context, tx pgx.Tx, id int64) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.MarkVerified")
	defer span.End()

	span.SetAttributes(
		attribute.Int64("id", id),
	)

	query := `
		WITH prev AS (
			SELECT is_verified FROM users WHERE id = $1 FOR UPDATE
		)
		UPDATE users
		SET is_verified = true, updated_at = NOW()
		FROM prev
		WHERE users.id = $1
		RETURNING NOT prev.is_verified;
	`

	var changed bool
	if err := tx.QueryRow(ctx, query, id).Scan(&changed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, ErrUserNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Error verifying user",
			zap.Int64("id", id),
			zap.Error(err),
		)

		return false, fmt.Errorf("error verifying user: %w", err)
	}

	span.SetAttributes(attribute.Bool("changed", changed))

	return changed, nil
}

func (r *userRepository) SetResetToken(
	ctx context.Context,
	tx pgx.Tx,
	email, tokenHash string,
	expiry time.Time,
) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.SetResetToken")
	defer span.End()

	span.SetAttributes(
		attribute.String("email", email),
	)

	query := `
		UPDATE users
		SET reset_token = $1, reset_token_expiry = $2, updated_at = NOW()
		WHERE email = $3
		RETURNING ` + userColumns + `;
	`

	user, err := scanUser(tx.QueryRow(ctx, query, tokenHash, expiry, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrUserNotFound
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to set reset token",
			zap.String("email", email),
			zap.Error(err),
		)

		return nil, fmt.Errorf("error setting reset token: %w", err)
	}

	return user, nil
}

// ResetPassword consumes a live reset token in a single statement. A token that
// is unknown, expired or already used yields ErrInvalidToken.
func (r *userRepository) ResetPassword(
	ctx context.Context,
	tx pgx.Tx,
	tokenHash, newPasswordHash string,
	now time.Time,
) (*domain.User, error) {
	ctx, span := r.tracer.Start(ctx, "UserRepository.ResetPassword")
	defer span.End()

	query := `
		UPDATE users
		SET password_hash = $1, reset_token = NULL, reset_token_expiry = NULL, updated_at = NOW()
		WHERE reset_token = $2 AND reset_token_expiry > $3
		RETURNING ` + userColumns + `;
	`

	user, err := scanUser(tx.QueryRow(ctx, query, newPasswordHash, tokenHash, now))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidToken
		}

		span.RecordError(err)

		mylogger.Error(
			ctx,
			r.logger,
			"Failed to reset password",
			zap.Error(err),
		)

		return nil, fmt.Errorf("error resetting user password: %w", err)
	}

	return user, nil
}
