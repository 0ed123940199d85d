package connection

import "errors"

var (
	ErrEmptyConnectionURL = errors.New("connection: empty connection URL")
	ErrFailedToParseURL   = errors.New("connection: failed to parse connection URL")
	ErrConnectionFailed   = errors.New("connection: failed to establish connection")
	ErrHealthcheckFailed  = errors.New("connection: healthcheck failed")
	ErrUnknownConnection  = errors.New("connection: unknown connection name")
)
