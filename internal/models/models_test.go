package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLinkExpiredBoundary(t *testing.T) {
	expiry := int64(1700000000)
	link := Link{ExpiresAt: &expiry}

	require.False(t, link.Expired(expiry-1))
	require.True(t, link.Expired(expiry), "a link exactly at its expiry is expired")
	require.True(t, link.Expired(expiry+1))
}

func TestLinkWithoutExpiryNeverExpires(t *testing.T) {
	link := Link{}
	require.False(t, link.Expired(1<<62))
}

func TestLinkFlags(t *testing.T) {
	hash := "abc"
	link := Link{IsActive: 1, PasswordHash: &hash}
	require.True(t, link.Active())
	require.True(t, link.Protected())

	link.IsActive = 0
	link.PasswordHash = nil
	require.False(t, link.Active())
	require.False(t, link.Protected())
}
