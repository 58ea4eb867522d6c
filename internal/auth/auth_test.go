package auth

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flowfence/flowfence-go/internal/config"
)

func TestBearerAuthenticator_Verify(t *testing.T) {
	authenticator, err := NewBearerAuthenticator("secret-token")
	require.NoError(t, err)
	assert.Equal(t, "bearer", authenticator.Type())

	req := httptest.NewRequest("POST", "/stats/reset", nil)
	assert.ErrorIs(t, authenticator.Verify(req), ErrMissingCredentials)

	req.Header.Set("Authorization", "Bearer wrong")
	assert.ErrorIs(t, authenticator.Verify(req), ErrInvalidCredentials)

	req.Header.Set("Authorization", "Basic secret-token")
	assert.ErrorIs(t, authenticator.Verify(req), ErrInvalidCredentials)

	req.Header.Set("Authorization", "Bearer secret-token")
	assert.NoError(t, authenticator.Verify(req))
}

func TestBearerAuthenticator_EmptyToken(t *testing.T) {
	_, err := NewBearerAuthenticator("   ")
	assert.ErrorIs(t, err, ErrEmptyToken)
}

func TestBasicAuthenticator_Verify(t *testing.T) {
	authenticator, err := NewBasicAuthenticator("admin", "passw0rd")
	require.NoError(t, err)
	assert.Equal(t, "basic", authenticator.Type())

	req := httptest.NewRequest("POST", "/stats/reset", nil)
	assert.ErrorIs(t, authenticator.Verify(req), ErrMissingCredentials)

	req.SetBasicAuth("admin", "wrong")
	assert.ErrorIs(t, authenticator.Verify(req), ErrInvalidCredentials)

	req.SetBasicAuth("other", "passw0rd")
	assert.ErrorIs(t, authenticator.Verify(req), ErrInvalidCredentials)

	req.SetBasicAuth("admin", "passw0rd")
	assert.NoError(t, authenticator.Verify(req))
}

func TestNoneAuthenticator_Verify(t *testing.T) {
	authenticator := NewNoneAuthenticator()
	assert.Equal(t, "none", authenticator.Type())

	req := httptest.NewRequest("GET", "/stats", nil)
	assert.NoError(t, authenticator.Verify(req))
}

func TestFactory_Create(t *testing.T) {
	factory := NewFactory()

	tests := []struct {
		name         string
		config       *config.AuthConfig
		expectError  bool
		expectedType string
	}{
		{
			name:         "nil type defaults to none",
			config:       &config.AuthConfig{},
			expectedType: "none",
		},
		{
			name:         "explicit none",
			config:       &config.AuthConfig{Type: "none"},
			expectedType: "none",
		},
		{
			name:         "bearer",
			config:       &config.AuthConfig{Type: "bearer", Token: "t"},
			expectedType: "bearer",
		},
		{
			name:        "bearer without token",
			config:      &config.AuthConfig{Type: "bearer"},
			expectError: true,
		},
		{
			name:         "basic",
			config:       &config.AuthConfig{Type: "basic", Username: "u", Password: "p"},
			expectedType: "basic",
		},
		{
			name:        "basic without password",
			config:      &config.AuthConfig{Type: "basic", Username: "u"},
			expectError: true,
		},
		{
			name:        "unknown type",
			config:      &config.AuthConfig{Type: "oauth"},
			expectError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			authenticator, err := factory.Create(tt.config)
			if tt.expectError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedType, authenticator.Type())
		})
	}
}

func TestFactory_Create_NilConfig(t *testing.T) {
	_, err := NewFactory().Create(nil)
	assert.ErrorIs(t, err, ErrNilAuthConfig)
}
