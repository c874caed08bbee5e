package application

import "errors"

// Failure taxonomy shared across services. Handlers map these onto HTTP
// statuses; nothing below is ever swallowed inside a service.
var (
	ErrNotFound              = errors.New("not found")
	ErrInvalidRole           = errors.New("target user does not hold the required role")
	ErrConnectionNotApproved = errors.New("connection not yet approved")
	ErrEmptyBody             = errors.New("message body is empty")
	ErrInvalidIdentifier     = errors.New("malformed identifier")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrUserNotFound          = errors.New("user not found")
)
