package cmd

import (
	"bytes"
	"encoding/hex"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lugondev/go-amm/internal/decoder/anchor"
)

func execute(t *testing.T, args ...string) string {
	t.Helper()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	require.NoError(t, rootCmd.Execute())
	return out.String()
}

func TestVersion(t *testing.T) {
	out := execute(t, "version")
	assert.Contains(t, out, "amm dev")
	assert.Contains(t, out, "Program: DpvM21fb8QHhdi4wSsSvK2mP5zc5oKqNLVH4QHqdEG2z")

	assert.Equal(t, "dev\n", execute(t, "version", "--short"))
	versionShort = false
}

func TestQuoteSwap(t *testing.T) {
	out := execute(t, "quote", "swap", "--reserve-x", "1000", "--reserve-y", "1000", "--amount", "100")
	assert.Contains(t, out, "Amount out:    90")
}

func TestQuoteWithdraw(t *testing.T) {
	out := execute(t, "quote", "withdraw", "--reserve-x", "1000", "--reserve-y", "333", "--supply", "300", "--amount", "100")
	assert.Contains(t, out, "pay x=333 y=111")
}

func TestPDA(t *testing.T) {
	out := execute(t, "pda",
		"--mint-x", solana.NewWallet().PublicKey().String(),
		"--mint-y", solana.NewWallet().PublicKey().String(),
		"--seed", "7")
	assert.Contains(t, out, "Config:")
	assert.Contains(t, out, "Vault Y:")
}

func TestDecode(t *testing.T) {
	data, err := anchor.Encode(&anchor.SwapArgs{IsX: true, Amount: 100, Min: 90, Expiration: 1_700_000_060})
	require.NoError(t, err)

	out := execute(t, "decode", "0x"+hex.EncodeToString(data))
	assert.Contains(t, out, "swap (")
	assert.Contains(t, out, `"min": 90`)
}

func TestDecodeData(t *testing.T) {
	b, err := decodeData("0a0b")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0a, 0x0b}, b)

	b, err = decodeData("2g")
	require.NoError(t, err)
	assert.Equal(t, []byte{0x61}, b)

	_, err = decodeData("0xzz")
	require.Error(t, err)
}

func TestSimulate(t *testing.T) {
	out := execute(t, "simulate", "../../../examples/scenarios/basic.yaml", "--metrics")
	assert.Contains(t, out, "x=550 y=455 supply=500")
	assert.Contains(t, out, "SLIPPAGE_EXCEEDED")
	assert.Contains(t, out, "amm_swap_succeeded_total 1")
	assert.Contains(t, out, "amm_pool_lp_supply 500")
}

func TestMigrateNeedsPostgres(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs([]string{"migrate", "status"})
	require.ErrorContains(t, rootCmd.Execute(), "database.type postgres")
}
