package handler

import (
	"context"
	"errors"
	"time"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/notification"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/repository"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/service"
	"github.com/Nemeth89/ECOMMERCE-Backend/internal/transport/http/middleware"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/mylogger"
	"github.com/Nemeth89/ECOMMERCE-Backend/pkg/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type AuthHandler struct {
	service  service.AuthService
	validate *validator.Validate
	timeout  time.Duration
	logger   *zap.Logger
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type EmailInput struct {
	Email string `json:"email" validate:"required,email"`
}

type TokenInput struct {
	Token string `json:"token" validate:"required"`
}

type ResetPasswordInput struct {
	Token    string `json:"token"`
	Password string `json:"password" validate:"required"`
}

func NewAuthHandler(svc service.AuthService, timeout time.Duration, logger *zap.Logger) *AuthHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &AuthHandler{
		service:  svc,
		validate: validator.New(),
		timeout:  timeout,
		logger:   logger,
	}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	req := new(RegisterInput)
	if ok, err := h.parse(ctx, c, req); !ok {
		return err
	}

	user, task, err := h.service.Register(ctx, req.Name, req.Email, req.Password)
	if err != nil {
		h.logFailure(ctx, "register failed", err, zap.String("email", req.Email))

		return writeError(c, err)
	}

	h.logQueued(ctx, task)

	mylogger.Info(ctx, h.logger, "register succeeded", zap.Int64("user_id", user.ID))

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully. Please check your email to verify your account.",
		"user":    user.Sanitize(),
	})
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	req := new(LoginInput)
	if ok, err := h.parse(ctx, c, req); !ok {
		return err
	}

	token, user, err := h.service.Login(ctx, req.Email, req.Password)
	if err != nil {
		h.logFailure(ctx, "login failed", err, zap.String("email", req.Email))

		return writeError(c, err)
	}

	mylogger.Info(ctx, h.logger, "login succeeded", zap.Int64("user_id", user.ID))

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
		"user":    user.Sanitize(),
	})
}

func (h *AuthHandler) ForgotPassword(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	req := new(EmailInput)
	if ok, err := h.parse(ctx, c, req); !ok {
		return err
	}

	task, err := h.service.ForgotPassword(ctx, req.Email)
	if err != nil {
		h.logFailure(ctx, "forgot password failed", err, zap.String("email", req.Email))

		return writeError(c, err)
	}

	h.logQueued(ctx, task)

	return c.JSON(fiber.Map{"message": "Password reset link sent to your email."})
}

// VerifyEmail takes the token from the JSON body.
func (h *AuthHandler) VerifyEmail(c *fiber.Ctx) error {
	req := new(TokenInput)
	if ok, err := h.parse(c.UserContext(), c, req); !ok {
		return err
	}

	return h.verify(c, req.Token)
}

// Confirm is the link target from the verification email.
func (h *AuthHandler) Confirm(c *fiber.Ctx) error {
	return h.verify(c, c.Query("token"))
}

func (h *AuthHandler) verify(c *fiber.Ctx, token string) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	if token == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "Invalid or expired token."})
	}

	if err := h.service.VerifyEmail(ctx, token); err != nil {
		h.logFailure(ctx, "verify email failed", err)

		if errors.Is(err, repository.ErrUserNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "User not found."})
		}

		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Email verified successfully."})
}

// ResetPassword reads the secret from the path when present, else from the body.
func (h *AuthHandler) ResetPassword(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	req := new(ResetPasswordInput)
	if ok, err := h.parse(ctx, c, req); !ok {
		return err
	}

	if token := c.Params("token"); token != "" {
		req.Token = token
	}

	if err := h.service.ResetPassword(ctx, req.Token, req.Password); err != nil {
		h.logFailure(ctx, "reset password failed", err)

		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Password has been reset successfully."})
}

func (h *AuthHandler) ResendVerification(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	req := new(EmailInput)
	if ok, err := h.parse(ctx, c, req); !ok {
		return err
	}

	task, err := h.service.ResendVerification(ctx, req.Email)
	if err != nil {
		h.logFailure(ctx, "resend verification failed", err, zap.String("email", req.Email))

		return writeError(c, err)
	}

	h.logQueued(ctx, task)

	return c.JSON(fiber.Map{"message": "Verification email sent."})
}

func (h *AuthHandler) GetMe(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	userID, ok := c.Locals(middleware.LocalUserID).(int64)
	if !ok {
		mylogger.Info(ctx, h.logger, "user_id get failed")

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}

	user, err := h.service.GetUser(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "get me failed", err, zap.Int64("user_id", userID))

		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"user": user.Sanitize()})
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), h.timeout)
	defer cancel()

	token, ok := c.Locals(middleware.LocalToken).(string)
	if !ok {
		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized"})
	}

	if err := h.service.Logout(ctx, token); err != nil {
		h.logFailure(ctx, "logout failed", err)

		if errors.Is(err, service.ErrInvalidToken) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"message": "Unauthorized: Invalid token"})
		}

		return writeError(c, err)
	}

	return c.JSON(fiber.Map{"message": "Logged out."})
}

// parse decodes and validates the body. When it reports false the 400
// response is already written and err is the write result.
func (h *AuthHandler) parse(ctx context.Context, c *fiber.Ctx, req any) (bool, error) {
	if err := c.BodyParser(req); err != nil {
		mylogger.Warn(ctx, h.logger, "body parsing error", zap.String("path", c.Path()), zap.Error(err))

		return false, badBody(c)
	}

	if err := h.validate.Struct(req); err != nil {
		mylogger.Info(ctx, h.logger, "validation failed", zap.String("path", c.Path()), zap.Error(err))

		return false, c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"message": "Validation failed",
			"errors":  utils.FormatValidationError(err),
		})
	}

	return true, nil
}

func (h *AuthHandler) logFailure(ctx context.Context, msg string, err error, fields ...zap.Field) {
	fields = append(fields, zap.Error(err))

	if status, _ := mapErrorStatus(err); status >= fiber.StatusInternalServerError {
		mylogger.Error(ctx, h.logger, msg, fields...)
		return
	}

	mylogger.Warn(ctx, h.logger, msg, fields...)
}

// logQueued reports mail that failed before reaching a worker. Later failures
// are logged by the dispatcher.
func (h *AuthHandler) logQueued(ctx context.Context, task *notification.Task) {
	if task == nil {
		return
	}

	select {
	case <-task.Done():
		if err := task.Err(); err != nil {
			mylogger.Warn(ctx, h.logger, "notification not sent", zap.String("kind", string(task.Kind)), zap.Error(err))
		}
	default:
	}
}
