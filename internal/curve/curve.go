// Package curve implements the constant-product pricing curve over fixed-point
// integers.
//
// All functions are pure. Every product of two ledger-scale integers is taken
// in 256-bit precision and every result is range-checked back into uint64, so
// an out-of-range value is always reported as ErrArithmeticOverflow and never
// wraps. Rounding always favours the pool: swap outputs and withdrawals round
// down, deposit requirements round up.
package curve

import (
	"fmt"

	"cosmossdk.io/math"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
)

// BasisPoints is the fee denominator: 10000 bps = 100%.
const BasisPoints = 10_000

var bpsDenominator = math.NewInt(BasisPoints)

// Reserves is a snapshot of a pool's vault balances and outstanding LP supply.
type Reserves struct {
	X      uint64 `json:"x" yaml:"x"`
	Y      uint64 `json:"y" yaml:"y"`
	Supply uint64 `json:"supply" yaml:"supply"`
}

// IsEmpty reports whether the pool holds nothing and has issued no shares.
func (r Reserves) IsEmpty() bool {
	return r.X == 0 && r.Y == 0 && r.Supply == 0
}

// String implements fmt.Stringer.
func (r Reserves) String() string {
	return fmt.Sprintf("x=%d y=%d supply=%d", r.X, r.Y, r.Supply)
}

// Amounts is a pair of asset quantities.
type Amounts struct {
	X uint64 `json:"x" yaml:"x"`
	Y uint64 `json:"y" yaml:"y"`
}

// Invariant returns x*y as a wide integer.
func Invariant(r Reserves) math.Int {
	return wide(r.X).Mul(wide(r.Y))
}

// AmountAfterFee returns floor(amountIn * (10000 - feeBps) / 10000).
func AmountAfterFee(amountIn uint64, feeBps uint16) (uint64, error) {
	if feeBps > BasisPoints {
		return 0, ammerrors.ErrArithmeticOverflow.Wrapf("fee %d bps exceeds %d", feeBps, BasisPoints)
	}
	n, err := wide(amountIn).SafeMul(math.NewInt(int64(BasisPoints - int(feeBps))))
	if err != nil {
		return 0, ammerrors.ErrArithmeticOverflow.WithCause(err)
	}
	return narrow(n.Quo(bpsDenominator), "amount after fee")
}

// SwapOutput returns how much of the output asset a trader receives for
// amountIn of the input asset.
//
// The fee is taken from the input with truncation, and the output is rounded
// down so that (reserveIn+amountIn)*(reserveOut-out) >= reserveIn*reserveOut.
func SwapOutput(reserveIn, reserveOut, amountIn uint64, feeBps uint16) (uint64, error) {
	if _, err := checkedAdd(reserveIn, amountIn, "input reserve"); err != nil {
		return 0, err
	}

	inAfterFee, err := AmountAfterFee(amountIn, feeBps)
	if err != nil {
		return 0, err
	}

	denominator := wide(reserveIn).Add(wide(inAfterFee))
	if denominator.IsZero() {
		return 0, ammerrors.ErrInsufficientLiquidity.Wrapf("empty input reserve and zero effective input")
	}

	numerator, err := wide(inAfterFee).SafeMul(wide(reserveOut))
	if err != nil {
		return 0, ammerrors.ErrArithmeticOverflow.WithCause(err)
	}
	quotient, err := numerator.SafeQuo(denominator)
	if err != nil {
		return 0, ammerrors.ErrArithmeticOverflow.WithCause(err)
	}
	out, err := narrow(quotient, "swap output")
	if err != nil {
		return 0, err
	}

	if out >= reserveOut {
		return 0, ammerrors.ErrInsufficientLiquidity.Wrapf("output %d would drain reserve %d", out, reserveOut)
	}
	return out, nil
}

// DepositAmounts returns the asset amounts required to mint shares.
//
// For an empty pool the caller's seed amounts are accepted as-is and define the
// initial price; the minted shares become the initial supply. Otherwise both
// amounts are proportional to the pool and rounded up.
func DepositAmounts(r Reserves, shares uint64, seed Amounts) (Amounts, error) {
	if r.Supply == 0 {
		if r.X != 0 || r.Y != 0 {
			return Amounts{}, ammerrors.ErrZeroLiquidity.Wrapf("reserves %s without shares", r)
		}
		return seed, nil
	}
	if r.X == 0 || r.Y == 0 {
		return Amounts{}, ammerrors.ErrZeroLiquidity.Wrapf("shares outstanding against %s", r)
	}

	if _, err := checkedAdd(r.Supply, shares, "lp supply"); err != nil {
		return Amounts{}, err
	}

	x, err := mulDivCeil(shares, r.X, r.Supply)
	if err != nil {
		return Amounts{}, err
	}
	y, err := mulDivCeil(shares, r.Y, r.Supply)
	if err != nil {
		return Amounts{}, err
	}

	if _, err := checkedAdd(r.X, x, "reserve x"); err != nil {
		return Amounts{}, err
	}
	if _, err := checkedAdd(r.Y, y, "reserve y"); err != nil {
		return Amounts{}, err
	}

	return Amounts{X: x, Y: y}, nil
}

// WithdrawAmounts returns the asset amounts paid out for burning shares,
// rounded down. Burning the whole supply drains both reserves exactly.
func WithdrawAmounts(r Reserves, shares uint64) (Amounts, error) {
	if r.Supply == 0 {
		return Amounts{}, ammerrors.ErrDivideByZero.Wrapf("withdraw against zero lp supply")
	}
	if shares > r.Supply {
		return Amounts{}, ammerrors.ErrInsufficientShares.Wrapf("burn %d exceeds supply %d", shares, r.Supply)
	}

	x, err := mulDivFloor(shares, r.X, r.Supply)
	if err != nil {
		return Amounts{}, err
	}
	y, err := mulDivFloor(shares, r.Y, r.Supply)
	if err != nil {
		return Amounts{}, err
	}
	return Amounts{X: x, Y: y}, nil
}

func mulDivFloor(a, b, c uint64) (uint64, error) {
	n, err := wide(a).SafeMul(wide(b))
	if err != nil {
		return 0, ammerrors.ErrArithmeticOverflow.WithCause(err)
	}
	q, err := n.SafeQuo(wide(c))
	if err != nil {
		return 0, ammerrors.ErrDivideByZero.WithCause(err)
	}
	return narrow(q, "floor quotient")
}

func mulDivCeil(a, b, c uint64) (uint64, error) {
	n, err := wide(a).SafeMul(wide(b))
	if err != nil {
		return 0, ammerrors.ErrArithmeticOverflow.WithCause(err)
	}
	d := wide(c)
	q, err := n.SafeQuo(d)
	if err != nil {
		return 0, ammerrors.ErrDivideByZero.WithCause(err)
	}
	if !n.Mod(d).IsZero() {
		q = q.AddRaw(1)
	}
	return narrow(q, "ceil quotient")
}

func checkedAdd(a, b uint64, what string) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ammerrors.ErrArithmeticOverflow.Wrapf("%s: %d + %d", what, a, b)
	}
	return sum, nil
}

func wide(v uint64) math.Int {
	return math.NewIntFromUint64(v)
}

func narrow(v math.Int, what string) (uint64, error) {
	if v.IsNegative() || !v.IsUint64() {
		return 0, ammerrors.ErrArithmeticOverflow.Wrapf("%s %s exceeds uint64", what, v)
	}
	return v.Uint64(), nil
}
