package auth

import "github.com/stretchr/testify/mock"

type MockVerifier struct {
	mock.Mock
}

func (m *MockVerifier) Verify(token string) (Identity, error) {
	args := m.Called(token)
	return args.Get(0).(Identity), args.Error(1)
}
