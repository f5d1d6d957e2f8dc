package engine

import (
	"context"
	"sync"

	"github.com/clearhealth/claimflow/internal/model"
)

// MockNotifier records every notification the engine sends.
type MockNotifier struct {
	calls []NotifyCall
	err   error
	mu    sync.Mutex
}

// NotifyCall captures one ClaimBatched invocation.
type NotifyCall struct {
	Claim   *model.Claim
	Insurer *model.Insurer
}

// NewMockNotifier creates a new recording notifier.
func NewMockNotifier() *MockNotifier {
	return &MockNotifier{}
}

// SetErr makes every send fail.
func (m *MockNotifier) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns the recorded notifications.
func (m *MockNotifier) Calls() []NotifyCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// ClaimBatched implements service.Notifier.
func (m *MockNotifier) ClaimBatched(_ context.Context, claim *model.Claim, insurer *model.Insurer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, NotifyCall{Claim: claim, Insurer: insurer})
	return nil
}
