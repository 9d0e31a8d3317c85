// Package identity defines the canonical person identity produced by
// discovery and the normalized contact keys used across caches.
package identity

import (
	"strings"

	"enrichment_backend/platform/phone"
)

// Identity is a resolved person: the canonical 11-digit CPF and the display
// name the source returned for it. Immutable once produced; an Identity
// with an invalid CPF must never reach callers.
type Identity struct {
	TaxID       string `json:"taxId"`
	DisplayName string `json:"displayName"`
}

// Contact is a partial contact used as lookup input. At least one of Phone
// or Email must be set for discovery to run.
type Contact struct {
	Phone string
	Email string
	Name  string
}

// HasUsableInput reports whether the contact carries anything a source can
// look up.
func (c Contact) HasUsableInput() bool {
	return strings.TrimSpace(c.Phone) != "" || strings.TrimSpace(c.Email) != ""
}

// PhoneKey returns the normalized cache key for a phone contact, or "" when
// no phone is present.
func (c Contact) PhoneKey() string {
	digits := phone.Digits(c.Phone)
	if digits == "" {
		return ""
	}
	return "phone:" + digits
}

// EmailKey returns the normalized cache key for an email contact, or ""
// when no email is present.
func (c Contact) EmailKey() string {
	email := strings.ToLower(strings.TrimSpace(c.Email))
	if email == "" {
		return ""
	}
	return "email:" + email
}

// Key returns the primary cache key for the contact: phone wins over email,
// mirroring the lookup tier order.
func (c Contact) Key() string {
	if key := c.PhoneKey(); key != "" {
		return key
	}
	return c.EmailKey()
}
