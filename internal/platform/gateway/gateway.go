// Package gateway wraps the external checkout provider used to collect contest entry fees.
package gateway

import (
	"context"
	"strings"
)

// Metadata keys echoed back unmodified on retrieval.
const (
	MetaContestID = "contest_id"
	MetaUserEmail = "user_email"
)

// SessionIDPlaceholder is substituted by the provider in the success URL.
const SessionIDPlaceholder = "{CHECKOUT_SESSION_ID}"

type CheckoutRequest struct {
	ContestName     string
	PriceMinorUnits int64
	Currency        string
	ContestID       string
	UserEmail       string
}

type Checkout struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type Session struct {
	ID               string
	Paid             bool
	AmountMinorUnits int64
	Currency         string
	Metadata         map[string]string
}

type Gateway interface {
	CreateCheckout(ctx context.Context, req CheckoutRequest) (*Checkout, error)
	RetrieveSession(ctx context.Context, sessionID string) (*Session, error)
}

func expandSessionURL(tmpl, sessionID string) string {
	return strings.ReplaceAll(tmpl, SessionIDPlaceholder, sessionID)
}
