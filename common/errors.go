package common

import (
	"errors"
)

var (
	ErrURLEmpty       = errors.New("url is empty")
	ErrInvalidAddress = errors.New("invalid address")
	ErrAllNodesFailed = errors.New("all eth nodes failed")
)
