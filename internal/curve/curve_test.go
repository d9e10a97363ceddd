package curve

import (
	stdmath "math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	ammerrors "github.com/lugondev/go-amm/internal/errors"
)

func TestSwapOutputPinned(t *testing.T) {
	// 1000*1000 / 1100 = 909.09..; the out reserve rounds up to 910.
	out, err := SwapOutput(1000, 1000, 100, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(90), out)
}

func TestSwapOutputTable(t *testing.T) {
	tests := []struct {
		name       string
		reserveIn  uint64
		reserveOut uint64
		amountIn   uint64
		feeBps     uint16
		want       uint64
		wantErr    *ammerrors.Error
	}{
		{name: "uniswap fee", reserveIn: 1_000_000, reserveOut: 1_000_000, amountIn: 1_000, feeBps: 30, want: 996},
		{name: "fee truncates toward pool", reserveIn: 1000, reserveOut: 1000, amountIn: 3, feeBps: 3000, want: 1},
		{name: "full fee yields nothing", reserveIn: 1000, reserveOut: 1000, amountIn: 500, feeBps: 10_000, want: 0},
		{name: "asymmetric pool", reserveIn: 500, reserveOut: 2_000, amountIn: 500, feeBps: 0, want: 1000},
		{name: "dust rounds to zero", reserveIn: 1_000_000, reserveOut: 10, amountIn: 1, feeBps: 0, want: 0},
		{name: "empty output reserve", reserveIn: 1000, reserveOut: 0, amountIn: 10, wantErr: ammerrors.ErrInsufficientLiquidity},
		{name: "empty input reserve", reserveIn: 0, reserveOut: 1000, amountIn: 10, wantErr: ammerrors.ErrInsufficientLiquidity},
		{name: "fee out of range", reserveIn: 10, reserveOut: 10, amountIn: 1, feeBps: 10_001, wantErr: ammerrors.ErrArithmeticOverflow},
		{name: "vault overflow", reserveIn: stdmath.MaxUint64, reserveOut: 10, amountIn: 1, wantErr: ammerrors.ErrArithmeticOverflow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SwapOutput(tt.reserveIn, tt.reserveOut, tt.amountIn, tt.feeBps)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSwapOutputLargeReservesDoNotWrap(t *testing.T) {
	r := uint64(stdmath.MaxUint64 / 2)
	out, err := SwapOutput(r, r, r, 0)
	require.NoError(t, err)
	// Doubling the input reserve halves the output reserve, rounded up.
	assert.Equal(t, r/2, out)
}

func TestAmountAfterFee(t *testing.T) {
	got, err := AmountAfterFee(9_999, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(9_998), got)

	got, err = AmountAfterFee(stdmath.MaxUint64, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(stdmath.MaxUint64), got)
}

func TestDepositAmounts(t *testing.T) {
	t.Run("empty pool takes seed", func(t *testing.T) {
		got, err := DepositAmounts(Reserves{}, 100, Amounts{X: 400, Y: 25})
		require.NoError(t, err)
		assert.Equal(t, Amounts{X: 400, Y: 25}, got)
	})

	t.Run("proportional rounds up", func(t *testing.T) {
		got, err := DepositAmounts(Reserves{X: 1000, Y: 333, Supply: 300}, 100, Amounts{})
		require.NoError(t, err)
		// 100*1000/300 = 333.33.. and 100*333/300 = 111
		assert.Equal(t, Amounts{X: 334, Y: 111}, got)
	})

	t.Run("single share never free", func(t *testing.T) {
		got, err := DepositAmounts(Reserves{X: 1, Y: 1, Supply: 1_000_000}, 1, Amounts{})
		require.NoError(t, err)
		assert.Equal(t, Amounts{X: 1, Y: 1}, got)
	})

	t.Run("reserves without supply", func(t *testing.T) {
		_, err := DepositAmounts(Reserves{X: 10}, 1, Amounts{X: 1, Y: 1})
		require.ErrorIs(t, err, ammerrors.ErrZeroLiquidity)
	})

	t.Run("supply without reserves", func(t *testing.T) {
		_, err := DepositAmounts(Reserves{X: 10, Supply: 5}, 1, Amounts{})
		require.ErrorIs(t, err, ammerrors.ErrZeroLiquidity)
	})

	t.Run("amount overflow", func(t *testing.T) {
		_, err := DepositAmounts(Reserves{X: stdmath.MaxUint64, Y: 1, Supply: 1}, 2, Amounts{})
		require.ErrorIs(t, err, ammerrors.ErrArithmeticOverflow)
	})

	t.Run("supply overflow", func(t *testing.T) {
		_, err := DepositAmounts(Reserves{X: 1, Y: 1, Supply: stdmath.MaxUint64}, 1, Amounts{})
		require.ErrorIs(t, err, ammerrors.ErrArithmeticOverflow)
	})
}

func TestWithdrawAmounts(t *testing.T) {
	got, err := WithdrawAmounts(Reserves{X: 1000, Y: 333, Supply: 300}, 100)
	require.NoError(t, err)
	assert.Equal(t, Amounts{X: 333, Y: 111}, got)

	_, err = WithdrawAmounts(Reserves{X: 1, Y: 1}, 1)
	require.ErrorIs(t, err, ammerrors.ErrDivideByZero)

	_, err = WithdrawAmounts(Reserves{X: 1, Y: 1, Supply: 5}, 6)
	require.ErrorIs(t, err, ammerrors.ErrInsufficientShares)

	full := Reserves{X: stdmath.MaxUint64, Y: stdmath.MaxUint64, Supply: stdmath.MaxUint64}
	got, err = WithdrawAmounts(full, stdmath.MaxUint64-1)
	require.NoError(t, err)
	assert.Equal(t, Amounts{X: stdmath.MaxUint64 - 1, Y: stdmath.MaxUint64 - 1}, got)
}

func TestInvariant(t *testing.T) {
	k := Invariant(Reserves{X: stdmath.MaxUint64, Y: stdmath.MaxUint64})
	assert.False(t, k.IsUint64())
	assert.Equal(t, "340282366920938463426481119284349108225", k.String())
}

func reservesGen(maxReserve uint64) *rapid.Generator[Reserves] {
	return rapid.Custom(func(t *rapid.T) Reserves {
		return Reserves{
			X:      rapid.Uint64Range(1, maxReserve).Draw(t, "x"),
			Y:      rapid.Uint64Range(1, maxReserve).Draw(t, "y"),
			Supply: rapid.Uint64Range(1, maxReserve).Draw(t, "supply"),
		}
	})
}

func TestSwapNeverDecreasesProduct(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		x := rapid.Uint64Range(1, stdmath.MaxUint64/2).Draw(t, "x")
		y := rapid.Uint64Range(1, stdmath.MaxUint64).Draw(t, "y")
		in := rapid.Uint64Range(1, stdmath.MaxUint64/2).Draw(t, "in")
		fee := rapid.Uint16Range(0, BasisPoints).Draw(t, "fee")

		out, err := SwapOutput(x, y, in, fee)
		if err != nil {
			if !ammerrors.Is(err, ammerrors.ErrInsufficientLiquidity) {
				t.Fatalf("unexpected error: %v", err)
			}
			return
		}
		if out >= y {
			t.Fatalf("output %d drains reserve %d", out, y)
		}

		before := Invariant(Reserves{X: x, Y: y})
		after := Invariant(Reserves{X: x + in, Y: y - out})
		if after.LT(before) {
			t.Fatalf("product decreased: %s -> %s", before, after)
		}
	})
}

func TestFullBurnDrainsExactly(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := reservesGen(stdmath.MaxUint64).Draw(t, "reserves")

		got, err := WithdrawAmounts(r, r.Supply)
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if got.X != r.X || got.Y != r.Y {
			t.Fatalf("full burn of %s returned %+v", r, got)
		}
	})
}

func TestDepositWithdrawRoundTripFavoursPool(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := reservesGen(1<<30).Draw(t, "reserves")
		shares := rapid.Uint64Range(1, 1<<30).Draw(t, "shares")

		in, err := DepositAmounts(r, shares, Amounts{})
		if err != nil {
			t.Fatalf("deposit: %v", err)
		}

		after := Reserves{X: r.X + in.X, Y: r.Y + in.Y, Supply: r.Supply + shares}
		out, err := WithdrawAmounts(after, shares)
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if out.X > in.X || out.Y > in.Y {
			t.Fatalf("round trip paid %+v for deposit %+v", out, in)
		}
	})
}

func TestWithdrawNeverExceedsReserves(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		r := reservesGen(stdmath.MaxUint64).Draw(t, "reserves")
		shares := rapid.Uint64Range(0, r.Supply).Draw(t, "shares")

		out, err := WithdrawAmounts(r, shares)
		if err != nil {
			t.Fatalf("withdraw: %v", err)
		}
		if out.X > r.X || out.Y > r.Y {
			t.Fatalf("withdraw %d of %s returned %+v", shares, r, out)
		}
	})
}

func FuzzSwapOutput(f *testing.F) {
	f.Add(uint64(1000), uint64(1000), uint64(100), uint16(0))
	f.Add(uint64(1), uint64(1), uint64(1), uint16(30))
	f.Add(uint64(stdmath.MaxUint64), uint64(stdmath.MaxUint64), uint64(stdmath.MaxUint64), uint16(10_000))

	f.Fuzz(func(t *testing.T, reserveIn, reserveOut, amountIn uint64, feeBps uint16) {
		out, err := SwapOutput(reserveIn, reserveOut, amountIn, feeBps)
		if err != nil {
			code := ammerrors.Code(err)
			require.Contains(t,
				[]string{ammerrors.ErrCodeArithmeticOverflow, ammerrors.ErrCodeInsufficientLiquidity},
				code, "unexpected error: %v", err)
			return
		}
		require.Less(t, out, reserveOut)
	})
}

func BenchmarkSwapOutput(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = SwapOutput(1_000_000_000, 2_000_000_000, 12_345, 30)
	}
}
