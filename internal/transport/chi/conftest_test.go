package chi

import "context"

type mockChecker struct {
	err   error
	calls int
}

func (m *mockChecker) HealthCheck(_ context.Context) error {
	m.calls++
	return m.err
}
