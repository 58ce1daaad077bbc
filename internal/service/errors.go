package service

import (
	"errors"

	"github.com/Nemeth89/ECOMMERCE-Backend/internal/token"
)

var (
	ErrEmailNotVerified   = errors.New("please verify your email before logging in")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAlreadyVerified    = errors.New("email is already verified")
	ErrInvalidToken       = token.ErrInvalidToken
)
