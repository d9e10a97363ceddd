// Package scenario runs scripted pool operations from YAML files.
//
// A scenario names its participants and mints with short labels. A label that
// is valid base58 is used as the public key itself; any other label maps to a
// fixed key derived from it, so the same file always produces the same
// addresses.
package scenario

import (
	"crypto/sha256"
	"fmt"
	"os"

	"github.com/gagliardetto/solana-go"
	"gopkg.in/yaml.v3"

	"github.com/lugondev/go-amm/internal/amm"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
)

// DefaultExpiresIn is the deadline, relative to the engine clock, of a step
// that does not set expires_in.
const DefaultExpiresIn = 60

// Scenario is a scripted run against a fresh store.
type Scenario struct {
	Name     string    `yaml:"name"`
	Clock    int64     `yaml:"clock,omitempty"`
	Pools    []Pool    `yaml:"pools"`
	Balances []Balance `yaml:"balances"`
	Steps    []Step    `yaml:"steps"`
}

// Pool declares a pool created before the first step.
type Pool struct {
	Name      string `yaml:"name"`
	MintX     string `yaml:"mint_x"`
	MintY     string `yaml:"mint_y"`
	Seed      uint64 `yaml:"seed"`
	FeeBps    uint16 `yaml:"fee_bps"`
	Authority string `yaml:"authority,omitempty"`
}

// Balance funds Owner with Amount of Mint.
type Balance struct {
	Owner  string `yaml:"owner"`
	Mint   string `yaml:"mint"`
	Amount uint64 `yaml:"amount"`
}

// Step is one engine call. Only the fields its Op uses are read.
type Step struct {
	Op   amm.Op `yaml:"op"`
	Pool string `yaml:"pool"`
	User string `yaml:"user"`

	Shares uint64 `yaml:"shares,omitempty"`
	MaxX   uint64 `yaml:"max_x,omitempty"`
	MaxY   uint64 `yaml:"max_y,omitempty"`
	MinX   uint64 `yaml:"min_x,omitempty"`
	MinY   uint64 `yaml:"min_y,omitempty"`

	IsX    bool   `yaml:"is_x,omitempty"`
	Amount uint64 `yaml:"amount,omitempty"`
	MinOut uint64 `yaml:"min_out,omitempty"`

	ExpiresIn *int64 `yaml:"expires_in,omitempty"`

	// Authority is the next authority for set_authority; empty renounces.
	Authority string `yaml:"authority,omitempty"`

	// Expect is the error code the step must fail with.
	Expect string `yaml:"expect,omitempty"`
}

// Load reads and validates a scenario file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a scenario.
func Parse(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// Validate checks that every step names a known operation and pool. It
// reports every problem, not only the first.
func (s *Scenario) Validate() error {
	var errs []error
	pools := make(map[string]bool, len(s.Pools))
	for i, p := range s.Pools {
		if p.Name == "" || p.MintX == "" || p.MintY == "" {
			errs = append(errs, fmt.Errorf("pool %d: name, mint_x and mint_y are required", i))
			continue
		}
		if pools[p.Name] {
			errs = append(errs, fmt.Errorf("pool %d: duplicate name %q", i, p.Name))
		}
		pools[p.Name] = true
	}

	for i, st := range s.Steps {
		switch st.Op {
		case amm.OpDeposit, amm.OpWithdraw, amm.OpSwap:
			if st.User == "" {
				errs = append(errs, fmt.Errorf("step %d: %s needs a user", i, st.Op))
			}
		case amm.OpLock, amm.OpUnlock, amm.OpSetAuthority:
			if st.User == "" {
				errs = append(errs, fmt.Errorf("step %d: %s needs a signing user", i, st.Op))
			}
		default:
			errs = append(errs, fmt.Errorf("step %d: unknown op %q", i, st.Op))
		}
		if !pools[st.Pool] {
			errs = append(errs, fmt.Errorf("step %d: unknown pool %q", i, st.Pool))
		}
	}
	return ammerrors.Join(errs...)
}

// Key resolves a scenario label to a public key.
func Key(label string) solana.PublicKey {
	if k, err := solana.PublicKeyFromBase58(label); err == nil {
		return k
	}
	sum := sha256.Sum256([]byte("amm-scenario:" + label))
	return solana.PublicKeyFromBytes(sum[:])
}
