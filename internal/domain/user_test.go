package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestSanitize_DropsSecrets(t *testing.T) {
	secret := "deadbeef"
	expiry := time.Now().Add(time.Hour)

	u := &User{
		ID:               1,
		Name:             "Ada",
		Email:            "ada@example.com",
		PasswordHash:     "$2a$10$hash",
		IsVerified:       true,
		ResetToken:       &secret,
		ResetTokenExpiry: &expiry,
	}

	body, err := json.Marshal(u.Sanitize())
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, json.Unmarshal(body, &got))

	require.Equal(t, "Ada", got["name"])
	require.Equal(t, true, got["isVerified"])
	for _, key := range []string{"password", "passwordHash", "PasswordHash", "resetToken", "resetTokenExpiry"} {
		require.NotContains(t, got, key)
	}
	require.NotContains(t, string(body), "deadbeef")
	require.NotContains(t, string(body), "$2a$10$hash")
}

func TestDefaultCatalog(t *testing.T) {
	menu := DefaultMenu()
	require.Len(t, menu, 9)
	require.Equal(t, "Rice", menu[0].Name)
	require.Equal(t, 5.99, menu[0].Price)

	products := DefaultProducts()
	require.Len(t, products, 3)
}
