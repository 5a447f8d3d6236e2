package money

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		in      string
		want    Currency
		wantErr bool
	}{
		{in: "USD", want: USD},
		{in: "usd", want: USD},
		{in: " zwl ", want: ZWL},
		{in: "ZAR", want: ZAR},
		{in: "EUR", wantErr: true},
		{in: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseCurrency(tt.in)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrUnknownCurrency)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAmounts_Arithmetic(t *testing.T) {
	a := Amounts{
		USD: decimal.RequireFromString("10.00"),
		ZWL: decimal.RequireFromString("35000"),
		ZAR: decimal.RequireFromString("180.50"),
	}
	b := Amounts{
		USD: decimal.RequireFromString("2.50"),
		ZWL: decimal.RequireFromString("5000"),
		ZAR: decimal.RequireFromString("20.50"),
	}

	sum := a.Add(b)
	assert.True(t, decimal.RequireFromString("12.50").Equal(sum.USD))
	assert.True(t, decimal.RequireFromString("40000").Equal(sum.ZWL))
	assert.True(t, decimal.RequireFromString("201.00").Equal(sum.ZAR))

	diff := a.Sub(b)
	assert.True(t, decimal.RequireFromString("7.50").Equal(diff.USD))

	scaled := a.MulInt(3)
	assert.True(t, decimal.RequireFromString("30.00").Equal(scaled.USD))
	assert.True(t, decimal.RequireFromString("105000").Equal(scaled.ZWL))
}

func TestAmounts_FloorAtZero(t *testing.T) {
	a := Amounts{
		USD: decimal.RequireFromString("-4.00"),
		ZWL: decimal.RequireFromString("1.00"),
	}
	floored := a.FloorAtZero()
	assert.True(t, floored.USD.IsZero())
	assert.True(t, decimal.RequireFromString("1.00").Equal(floored.ZWL))
	assert.True(t, floored.ZAR.IsZero())
}

func TestAmounts_GetSet(t *testing.T) {
	var a Amounts
	for _, c := range Currencies() {
		a.Set(c, decimal.NewFromInt(7))
		assert.True(t, decimal.NewFromInt(7).Equal(a.Get(c)), "currency %s", c)
	}
}

func TestOptionalAmounts_OrZero(t *testing.T) {
	o := OptionalAmounts{USD: Some(decimal.RequireFromString("9.99"))}
	assert.True(t, decimal.RequireFromString("9.99").Equal(o.OrZero(USD)))
	assert.True(t, o.OrZero(ZWL).IsZero())
	assert.False(t, o.Get(ZAR).Valid)
}

func TestAmounts_JSONRoundTrip(t *testing.T) {
	a := Amounts{
		USD: decimal.RequireFromString("24.00"),
		ZWL: decimal.RequireFromString("84000"),
	}

	data, err := json.Marshal(a)
	require.NoError(t, err)
	assert.JSONEq(t, `{"usd":"24","zwl":"84000","zar":"0"}`, string(data))

	var got Amounts
	require.NoError(t, json.Unmarshal(data, &got))
	assert.True(t, a.Equal(got))
}

func TestOptionalAmounts_JSONNull(t *testing.T) {
	o := OptionalAmounts{ZAR: Some(decimal.RequireFromString("150.00"))}

	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"usd":null,"zwl":null,"zar":"150"}`, string(data))

	var got OptionalAmounts
	require.NoError(t, json.Unmarshal(data, &got))
	assert.False(t, got.USD.Valid)
	require.True(t, got.ZAR.Valid)
	assert.True(t, decimal.RequireFromString("150.00").Equal(got.ZAR.Decimal))
}
