package session

import "errors"

var (
	NoSessionErr = errors.New("no session to check")
	NoTokenErr   = errors.New("no token received")
)
