package entity

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
)

const maxLabelLength = 40

var labelPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_\-]*$`)

// ValidateLabel checks a notice type or medium label.
// Labels are short lowercase identifiers: letters, digits, '_' and '-'.
func ValidateLabel(label string) error {
	if label == "" {
		return &ValidationError{Field: "label", Message: "label is required"}
	}
	if len(label) > maxLabelLength {
		return &ValidationError{
			Field:   "label",
			Message: fmt.Sprintf("label must not exceed %d characters", maxLabelLength),
		}
	}
	if !labelPattern.MatchString(label) {
		return &ValidationError{Field: "label", Message: "label must match " + labelPattern.String()}
	}
	return nil
}

// ValidateEmail checks that addr is a single bare RFC 5322 address.
func ValidateEmail(addr string) error {
	if addr == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	parsed, err := mail.ParseAddress(addr)
	if err != nil || parsed.Address != addr {
		return &ValidationError{Field: "email", Message: "email must be a bare address"}
	}
	return nil
}

// ValidateWebhookURL checks that a webhook endpoint is an absolute https URL.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return &ValidationError{Field: "webhook_url", Message: "webhook URL is required"}
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("parse URL: %w", err)
	}
	if u.Scheme != "https" {
		return &ValidationError{Field: "webhook_url", Message: "webhook URL must use https"}
	}
	if u.Host == "" {
		return &ValidationError{Field: "webhook_url", Message: "webhook URL must have a host"}
	}
	return nil
}
