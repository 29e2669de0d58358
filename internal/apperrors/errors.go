package apperrors

import (
	"errors"
)

var (
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrUserNotFound      = errors.New("user not found")

	ErrRefreshTokenNotFound = errors.New("refresh token not found")
	ErrRefreshTokenIsUsed   = errors.New("refresh token is used")
	ErrRefreshTokenExpired  = errors.New("refresh token is expired")

	ErrProjectNotFound   = errors.New("project not found")
	ErrProjectNotPending = errors.New("project is not awaiting verification")
	ErrProjectNotListed  = errors.New("project is not verified for sale")
	ErrReviewNotAllowed  = errors.New("project may be reviewed only after a purchase")

	ErrInsufficientCredits = errors.New("not enough available credits")
	ErrCreditNotFound      = errors.New("credit not found")
	ErrCreditNotOwned      = errors.New("credit is owned by another user")
	ErrCreditNotSold       = errors.New("credit is not in sold state")

	ErrTransactionNotFound     = errors.New("transaction not found")
	ErrTransactionAlreadyFinal = errors.New("transaction already in terminal state")

	ErrInvalidSignature      = errors.New("webhook signature verification failed")
	ErrEventAlreadyProcessed = errors.New("webhook event already processed")

	ErrProfileNotFound      = errors.New("profile not found")
	ErrPostNotFound         = errors.New("community post not found")
	ErrNotificationNotFound = errors.New("notification not found")
)
