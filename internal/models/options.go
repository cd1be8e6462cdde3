package models

import (
	"fmt"
	"strings"
)

// OptionType represents the payoff direction of an option.
type OptionType string

const (
	Call OptionType = "call"
	Put  OptionType = "put"
)

// ParseOptionType parses "call"/"put" and the C/P, CE/PE shorthands.
func ParseOptionType(s string) (OptionType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "CALL", "C", "CE":
		return Call, nil
	case "PUT", "P", "PE":
		return Put, nil
	default:
		return "", fmt.Errorf("invalid option type: %q", s)
	}
}

// Code returns the single-letter code used in position IDs.
func (t OptionType) Code() string {
	if t == Put {
		return "P"
	}
	return "C"
}
