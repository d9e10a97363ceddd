// Package pool holds the durable identity of a constant-product pool and the
// privileged transitions that are allowed to change it.
package pool

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/lugondev/go-amm/internal/curve"
	ammerrors "github.com/lugondev/go-amm/internal/errors"
)

// State is the pool-level lock state.
type State int

const (
	Unlocked State = iota
	Locked
)

// String implements fmt.Stringer.
func (s State) String() string {
	if s == Locked {
		return "locked"
	}
	return "unlocked"
}

// Config is the durable record of a pool.
type Config struct {
	// Address is the derived key the pool is stored under.
	Address solana.PublicKey `json:"address" yaml:"address"`

	// Seed disambiguates several pools over the same pair.
	Seed uint64 `json:"seed" yaml:"seed"`

	MintX solana.PublicKey `json:"mint_x" yaml:"mint_x"`
	MintY solana.PublicKey `json:"mint_y" yaml:"mint_y"`

	// LPMint is the liquidity-share asset.
	LPMint solana.PublicKey `json:"lp_mint" yaml:"lp_mint"`

	FeeBps uint16 `json:"fee_bps" yaml:"fee_bps"`
	Locked bool   `json:"locked" yaml:"locked"`

	// Authority may toggle Locked and rotate itself. Nil means nobody can.
	Authority *solana.PublicKey `json:"authority,omitempty" yaml:"authority,omitempty"`

	ConfigBump uint8 `json:"config_bump" yaml:"config_bump"`
	AuthBump   uint8 `json:"auth_bump" yaml:"auth_bump"`
	LPBump     uint8 `json:"lp_bump" yaml:"lp_bump"`
}

// Validate checks the invariants every stored config must satisfy.
func (c *Config) Validate() error {
	if c.MintX.IsZero() || c.MintY.IsZero() {
		return ammerrors.ErrInvalidConfig.Wrapf("mint must be set")
	}
	if c.MintX.Equals(c.MintY) {
		return ammerrors.ErrInvalidConfig.Wrapf("mint_x and mint_y are both %s", c.MintX)
	}
	if c.FeeBps > curve.BasisPoints {
		return ammerrors.ErrInvalidConfig.Wrapf("fee %d bps exceeds %d", c.FeeBps, curve.BasisPoints)
	}
	if c.LPMint.Equals(c.MintX) || c.LPMint.Equals(c.MintY) {
		return ammerrors.ErrInvalidConfig.Wrapf("lp mint collides with a pool asset")
	}
	return nil
}

// State returns the lock state.
func (c *Config) State() State {
	if c.Locked {
		return Locked
	}
	return Unlocked
}

// RequireUnlocked fails with ErrLocked when the pool is paused.
func (c *Config) RequireUnlocked() error {
	if c.Locked {
		return ammerrors.ErrLocked.Wrapf("pool %s", c.Address)
	}
	return nil
}

// Mint returns the asset on the given side; isX selects X.
func (c *Config) Mint(isX bool) solana.PublicKey {
	if isX {
		return c.MintX
	}
	return c.MintY
}

// Authorize fails unless signer is the configured update authority.
func (c *Config) Authorize(signer solana.PublicKey) error {
	if c.Authority == nil {
		return ammerrors.ErrUnauthorized.Wrapf("pool %s has no update authority", c.Address)
	}
	if !c.Authority.Equals(signer) {
		return ammerrors.ErrUnauthorized.Wrapf("%s is not the update authority of pool %s", signer, c.Address)
	}
	return nil
}

// SetLocked moves the pool to the requested state. Only the update authority
// may do so, and only from the opposite state.
func (c *Config) SetLocked(signer solana.PublicKey, locked bool) error {
	if err := c.Authorize(signer); err != nil {
		return err
	}
	if c.Locked == locked {
		return ammerrors.ErrInvalidConfig.Wrapf("pool %s is already %s", c.Address, c.State())
	}
	c.Locked = locked
	return nil
}

// SetAuthority rotates the update authority. Passing nil renounces it for good.
func (c *Config) SetAuthority(signer solana.PublicKey, next *solana.PublicKey) error {
	if err := c.Authorize(signer); err != nil {
		return err
	}
	if next != nil {
		k := *next
		next = &k
	}
	c.Authority = next
	return nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	cp := *c
	if c.Authority != nil {
		k := *c.Authority
		cp.Authority = &k
	}
	return &cp
}

// String implements fmt.Stringer.
func (c *Config) String() string {
	return fmt.Sprintf("pool %s (%s/%s seed=%d fee=%dbps %s)", c.Address, c.MintX, c.MintY, c.Seed, c.FeeBps, c.State())
}

// Repository stores pool configs keyed by their derived address.
type Repository interface {
	// Get returns ErrPoolNotFound when no pool is stored at address.
	Get(ctx context.Context, address solana.PublicKey) (*Config, error)

	// Create returns ErrPoolExists when the address is taken.
	Create(ctx context.Context, cfg *Config) error

	// Update overwrites the mutable fields of an existing pool.
	Update(ctx context.Context, cfg *Config) error

	List(ctx context.Context) ([]*Config, error)
}
