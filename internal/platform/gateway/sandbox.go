package gateway

import (
	"context"
	"fmt"
	"sync"

	"contest_hub/internal/common"

	"github.com/google/uuid"
)

// Sandbox keeps checkout sessions in memory. With AutoSettle every session is paid as soon
// as it is created; otherwise MarkPaid settles it.
type Sandbox struct {
	mu         sync.Mutex
	sessions   map[string]Session
	successURL string

	AutoSettle bool
	// Err, when set, is returned by every call.
	Err error
}

func NewSandbox(successURL string, autoSettle bool) *Sandbox {
	return &Sandbox{
		sessions:   make(map[string]Session),
		successURL: successURL,
		AutoSettle: autoSettle,
	}
}

func (g *Sandbox) CreateCheckout(_ context.Context, req CheckoutRequest) (*Checkout, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, fmt.Errorf("sandbox create checkout: %w: %w", common.ErrGateway, g.Err)
	}
	id := "cs_sandbox_" + uuid.NewString()
	g.sessions[id] = Session{
		ID:               id,
		Paid:             g.AutoSettle,
		AmountMinorUnits: req.PriceMinorUnits,
		Currency:         req.Currency,
		Metadata: map[string]string{
			MetaContestID: req.ContestID,
			MetaUserEmail: req.UserEmail,
		},
	}
	return &Checkout{SessionID: id, URL: expandSessionURL(g.successURL, id)}, nil
}

func (g *Sandbox) RetrieveSession(_ context.Context, sessionID string) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.Err != nil {
		return nil, fmt.Errorf("sandbox retrieve session: %w: %w", common.ErrGateway, g.Err)
	}
	sess, ok := g.sessions[sessionID]
	if !ok {
		return nil, fmt.Errorf("sandbox session %s unknown: %w", sessionID, common.ErrGateway)
	}
	meta := make(map[string]string, len(sess.Metadata))
	for k, v := range sess.Metadata {
		meta[k] = v
	}
	sess.Metadata = meta
	return &sess, nil
}

func (g *Sandbox) MarkPaid(sessionID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	sess, ok := g.sessions[sessionID]
	if !ok {
		return fmt.Errorf("sandbox session %s unknown: %w", sessionID, common.ErrNotFound)
	}
	sess.Paid = true
	g.sessions[sessionID] = sess
	return nil
}
