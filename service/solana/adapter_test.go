package solana

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSelectRandomEndpoint(t *testing.T) {
	t.Run("picks one of the configured endpoints", func(t *testing.T) {
		endpoints := []string{
			"https://api.mainnet-beta.solana.com",
			"https://mainnet.helius-rpc.com",
		}

		selected, err := SelectRandomEndpoint(endpoints)
		require.NoError(t, err)
		assert.Contains(t, endpoints, selected)
	})

	t.Run("single endpoint is always chosen", func(t *testing.T) {
		selected, err := SelectRandomEndpoint([]string{"https://api.mainnet-beta.solana.com"})
		require.NoError(t, err)
		assert.Equal(t, "https://api.mainnet-beta.solana.com", selected)
	})

	t.Run("error on empty list", func(t *testing.T) {
		_, err := SelectRandomEndpoint(nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no RPC endpoints configured")
	})
}
