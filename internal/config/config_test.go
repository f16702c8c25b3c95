package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRequiresDBURL(t *testing.T) {
	t.Setenv("DB_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DB_URL")
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "finalized", cfg.Commitment)
	assert.Equal(t, DefaultRaydiumAMM, cfg.RaydiumAMM)
	assert.InDelta(t, 0.015, cfg.VCMax, 1e-9)
	assert.InDelta(t, 0.001, cfg.OFSMax, 1e-9)
	assert.InDelta(t, 5000.0, cfg.LTMax, 1e-9)
	assert.InDelta(t, 0.6, cfg.WCMin, 1e-9)
	assert.InDelta(t, 0.5, cfg.RQMax, 1e-9)
	assert.Equal(t, 2*time.Second, cfg.DetectorPoll)
	assert.Equal(t, 300*time.Second, cfg.DetectorDedup)
	assert.Equal(t, 1000, cfg.DetectorRowLimit)
	assert.Equal(t, 36*time.Hour, cfg.FeatureWindow)
	assert.Equal(t, ":9090", cfg.MetricsAddr)
	assert.Empty(t, cfg.RPCWSURL)
}

func TestLoadDerivesEndpointsFromHeliusKey(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")
	t.Setenv("HELIUS_KEY", "abc123")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "wss://mainnet.helius-rpc.com/?api-key=abc123", cfg.RPCWSURL)
	assert.Equal(t, "https://mainnet.helius-rpc.com/?api-key=abc123", cfg.RPCHTTPURL)
}

func TestLoadExplicitEndpointsWinOverHeliusKey(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")
	t.Setenv("HELIUS_KEY", "abc123")
	t.Setenv("RPC_WS", "wss://example.com/ws")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "wss://example.com/ws", cfg.RPCWSURL)
	assert.Equal(t, "https://mainnet.helius-rpc.com/?api-key=abc123", cfg.RPCHTTPURL)
}

func TestLoadRejectsBadProgramID(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")
	t.Setenv("RAYDIUM_AMM", "not-a-valid-address")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAYDIUM_AMM")
}

func TestLoadRejectsOffCurveProgramID(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")
	// The Raydium AMM authority is a PDA, not a program ID.
	t.Setenv("RAYDIUM_AMM", "5Q544fKrFoe6tsEbD7S8EmxGTJYAKtTVhAW5Q5pge4j1")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAYDIUM_AMM")
	assert.Contains(t, err.Error(), "ed25519")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")
	t.Setenv("SCF_VC_MAX", "0.02")
	t.Setenv("SCF_DETECTOR_POLL_SEC", "7")
	t.Setenv("SCF_PARSER_BATCH", "50")
	t.Setenv("SCF_TP_PARTIAL", "1.5:0.25")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.02, cfg.VCMax, 1e-9)
	assert.Equal(t, 7*time.Second, cfg.DetectorPoll)
	assert.Equal(t, 50, cfg.ParserBatch)
	assert.Equal(t, "1.5:0.25", cfg.TPPartials)
}

func TestLoadBadNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")
	t.Setenv("SCF_VC_MAX", "not-a-number")
	t.Setenv("SCF_PARSER_BATCH", "1.5")
	t.Setenv("SCF_EXIT_POLL_SEC", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.InDelta(t, 0.015, cfg.VCMax, 1e-9)
	assert.Equal(t, 500, cfg.ParserBatch)
	assert.Equal(t, 5*time.Second, cfg.ExitPoll)
}

func TestProgramsAndSet(t *testing.T) {
	t.Setenv("DB_URL", "postgres://localhost/scf")

	cfg, err := Load()
	require.NoError(t, err)

	programs := cfg.Programs()
	assert.Equal(t, []string{
		DefaultRaydiumAMM, DefaultRaydiumCLMM, DefaultOrcaAMM, DefaultOrcaWhirl,
	}, programs)

	set := cfg.AMMPrograms()
	assert.Len(t, set, 4)
	_, ok := set[DefaultOrcaWhirl]
	assert.True(t, ok)
}
