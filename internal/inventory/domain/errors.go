package domain

import "errors"

var (
	ErrHeaderNotFound           = errors.New("header row not found")
	ErrIdentifierColumnNotFound = errors.New("identifier column not found in header")
	ErrInvalidAliasConfig       = errors.New("invalid alias configuration")
	ErrConfigNotFound           = errors.New("project config not found")
)
