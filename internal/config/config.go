package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"scf-pipeline/internal/solana"
)

// Known program IDs used as defaults when the corresponding env var is
// unset.
const (
	DefaultRaydiumAMM  = "675kPX9MHTjS2zt1qfr1NYHuzeLXfQM9H24wFSUt1Mp8"
	DefaultRaydiumCLMM = "CAMMCzo5YL8w4VFF8KVHrK22GGUsp5VTaW7grrKgrWqK"
	DefaultOrcaAMM     = "9W959DqEETiGZocYWCQPaJ6sBmUzgfxXfqGeTEdp3aQP"
	DefaultOrcaWhirl   = "whirLbMiicVdio4qvUfM5KAg6Ct8VwpYzGff3uctyCc"
)

// ExecMode selects how the executor turns signals into positions.
type ExecMode string

const (
	ExecPaper ExecMode = "paper"
	ExecLive  ExecMode = "live"
	ExecNone  ExecMode = "none"
)

// Config holds every runtime setting. All values come from environment
// variables; Load applies defaults and validates the rest.
type Config struct {
	// Storage
	DBURL         string
	ClickhouseDSN string // optional feature history archive

	// RPC endpoints
	RPCWSURL   string
	RPCHTTPURL string
	Commitment string

	// Monitored AMM programs
	RaydiumAMM  string
	RaydiumCLMM string
	OrcaAMM     string
	OrcaWhirl   string
	WSOLMint    string

	// Detector thresholds
	VCMax  float64
	OFSMax float64
	LTMax  float64
	WCMin  float64
	RQMax  float64

	// Detector behavior
	DetectorPoll     time.Duration
	DetectorDedup    time.Duration
	DetectorRowLimit int

	// Parser behavior
	ParserPoll  time.Duration
	ParserBatch int

	// Feature worker
	FeaturePoll   time.Duration
	FeatureWindow time.Duration

	// Executor
	ExecutorPoll   time.Duration
	ExecutorWindow time.Duration
	ExecutorBatch  int

	// Exit worker
	ExitPoll   time.Duration
	TPMult     float64
	SLMult     float64
	TPPartials string
	SLPartials string

	// Observability
	MetricsAddr string
}

// Load reads configuration from the environment. DB_URL is the only hard
// requirement; everything else has a default. RPC endpoints can be derived
// from HELIUS_KEY when not set explicitly.
func Load() (*Config, error) {
	cfg := &Config{
		DBURL:         os.Getenv("DB_URL"),
		ClickhouseDSN: os.Getenv("CLICKHOUSE_DSN"),

		RPCWSURL:   os.Getenv("RPC_WS"),
		RPCHTTPURL: os.Getenv("RPC_HTTP"),
		Commitment: envStr("COMMITMENT", "finalized"),

		RaydiumAMM:  envStr("RAYDIUM_AMM", DefaultRaydiumAMM),
		RaydiumCLMM: envStr("RAYDIUM_CLMM", DefaultRaydiumCLMM),
		OrcaAMM:     envStr("ORCA_AMM", DefaultOrcaAMM),
		OrcaWhirl:   envStr("ORCA_WHIRL", DefaultOrcaWhirl),
		WSOLMint:    envStr("WSOL_MINT", solana.WSOLMint),

		VCMax:  envFloat("SCF_VC_MAX", 0.015),
		OFSMax: envFloat("SCF_OFS_MAX", 0.001),
		LTMax:  envFloat("SCF_LT_MAX", 5000),
		WCMin:  envFloat("SCF_WC_MIN", 0.6),
		RQMax:  envFloat("SCF_RQ_MAX", 0.5),

		DetectorPoll:     envDuration("SCF_DETECTOR_POLL_SEC", 2*time.Second),
		DetectorDedup:    envDuration("SCF_DETECTOR_DEDUP_SEC", 300*time.Second),
		DetectorRowLimit: envInt("SCF_DETECTOR_ROW_LIMIT", 1000),

		ParserPoll:  envDuration("SCF_PARSER_POLL_SEC", 2*time.Second),
		ParserBatch: envInt("SCF_PARSER_BATCH", 500),

		FeaturePoll:   envDuration("SCF_FEATURE_POLL_SEC", 10*time.Second),
		FeatureWindow: envDuration("SCF_FEATURE_WINDOW_SEC", 36*time.Hour),

		ExecutorPoll:   envDuration("SCF_EXECUTOR_POLL_SEC", 2*time.Second),
		ExecutorWindow: envDuration("SCF_EXECUTOR_WINDOW_SEC", 10*time.Minute),
		ExecutorBatch:  envInt("SCF_EXECUTOR_BATCH", 200),

		ExitPoll:   envDuration("SCF_EXIT_POLL_SEC", 5*time.Second),
		TPMult:     envFloat("SCF_TP_MULT", 2.0),
		SLMult:     envFloat("SCF_SL_MULT", 0.30),
		TPPartials: os.Getenv("SCF_TP_PARTIAL"),
		SLPartials: os.Getenv("SCF_SL_PARTIAL"),

		MetricsAddr: envStr("METRICS_ADDR", ":9090"),
	}

	if cfg.DBURL == "" {
		return nil, fmt.Errorf("DB_URL is required")
	}

	if key := os.Getenv("HELIUS_KEY"); key != "" {
		if cfg.RPCWSURL == "" {
			cfg.RPCWSURL = "wss://mainnet.helius-rpc.com/?api-key=" + key
		}
		if cfg.RPCHTTPURL == "" {
			cfg.RPCHTTPURL = "https://mainnet.helius-rpc.com/?api-key=" + key
		}
	}

	for name, addr := range map[string]string{
		"RAYDIUM_AMM":  cfg.RaydiumAMM,
		"RAYDIUM_CLMM": cfg.RaydiumCLMM,
		"ORCA_AMM":     cfg.OrcaAMM,
		"ORCA_WHIRL":   cfg.OrcaWhirl,
	} {
		if err := solana.ValidateAddress(addr); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		// Deployed program IDs are ed25519 public keys; a PDA here means a
		// pool or authority address was pasted instead of the program.
		if !solana.IsOnCurve(addr) {
			return nil, fmt.Errorf("%s: %q is not an ed25519 public key", name, addr)
		}
	}
	if err := solana.ValidateAddress(cfg.WSOLMint); err != nil {
		return nil, fmt.Errorf("WSOL_MINT: %w", err)
	}

	return cfg, nil
}

// Programs returns the monitored AMM program IDs in a stable order.
func (c *Config) Programs() []string {
	return []string{c.RaydiumAMM, c.RaydiumCLMM, c.OrcaAMM, c.OrcaWhirl}
}

// AMMPrograms returns the program IDs as a set for account key lookups.
func (c *Config) AMMPrograms() map[string]struct{} {
	set := make(map[string]struct{}, 4)
	for _, p := range c.Programs() {
		set[p] = struct{}{}
	}
	return set
}

// LoadEnvFile loads .env from the working directory into the process
// environment. Existing variables are not overridden.
func LoadEnvFile() {
	data, err := os.ReadFile(".env")
	if err != nil {
		return // File doesn't exist, use system env vars
	}

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Don't override existing env vars
		if os.Getenv(key) == "" {
			os.Setenv(key, value)
		}
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envFloat(key string, def float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] %s=%q is not a number, using %v", key, v, def)
		return def
	}
	return f
}

func envInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("[config] %s=%q is not an integer, using %d", key, v, def)
		return def
	}
	return n
}

// envDuration reads a duration given in whole seconds.
func envDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil {
		log.Printf("[config] %s=%q is not a number of seconds, using %v", key, v, def)
		return def
	}
	return time.Duration(secs * float64(time.Second))
}
