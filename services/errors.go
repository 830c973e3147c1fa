package services

import "errors"

var (
	ErrOTPNotFound        = errors.New("OTP not found or expired")
	ErrOTPExpired         = errors.New("OTP has expired")
	ErrOTPMismatch        = errors.New("Invalid OTP")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrEmailTaken         = errors.New("User with this email already exists")
	ErrForbidden          = errors.New("You are not allowed to perform this action")
	ErrMobileConflict     = errors.New("Mobile number is linked to a different account")
)
