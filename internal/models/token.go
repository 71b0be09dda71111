package models

import "time"

// TokenTimeFormat is the wire format for token expiration timestamps.
const TokenTimeFormat = "2006-01-02 15:04:05"

type TokenPair struct {
	Access            string    `json:"access"`
	AccessExpiration  time.Time `json:"-"`
	Refresh           string    `json:"refresh,omitempty"`
	RefreshExpiration time.Time `json:"-"`
}
