package money

import (
	"github.com/go-faster/jx"
	"github.com/shopspring/decimal"
)

// Amounts are serialized as an object of decimal strings, one field per
// currency, e.g. {"usd":"24.00","zwl":"0","zar":"0"}. Strings keep clients
// from losing precision to float64.

// MarshalJSON implements json.Marshaler.
func (a Amounts) MarshalJSON() ([]byte, error) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("usd")
	e.Str(a.USD.String())
	e.FieldStart("zwl")
	e.Str(a.ZWL.String())
	e.FieldStart("zar")
	e.Str(a.ZAR.String())
	e.ObjEnd()
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amounts) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	return d.Obj(func(d *jx.Decoder, key string) error {
		s, err := d.Str()
		if err != nil {
			return err
		}
		v, err := decimal.NewFromString(s)
		if err != nil {
			return err
		}
		switch key {
		case "usd":
			a.USD = v
		case "zwl":
			a.ZWL = v
		case "zar":
			a.ZAR = v
		}
		return nil
	})
}

// MarshalJSON implements json.Marshaler. Unset currencies encode as null.
func (o OptionalAmounts) MarshalJSON() ([]byte, error) {
	e := &jx.Encoder{}
	e.ObjStart()
	e.FieldStart("usd")
	encodeNullDecimal(e, o.USD)
	e.FieldStart("zwl")
	encodeNullDecimal(e, o.ZWL)
	e.FieldStart("zar")
	encodeNullDecimal(e, o.ZAR)
	e.ObjEnd()
	return e.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (o *OptionalAmounts) UnmarshalJSON(data []byte) error {
	d := jx.DecodeBytes(data)
	return d.Obj(func(d *jx.Decoder, key string) error {
		var v decimal.NullDecimal
		if d.Next() == jx.Null {
			if err := d.Null(); err != nil {
				return err
			}
		} else {
			s, err := d.Str()
			if err != nil {
				return err
			}
			dec, err := decimal.NewFromString(s)
			if err != nil {
				return err
			}
			v = Some(dec)
		}
		switch key {
		case "usd":
			o.USD = v
		case "zwl":
			o.ZWL = v
		case "zar":
			o.ZAR = v
		}
		return nil
	})
}

func encodeNullDecimal(e *jx.Encoder, v decimal.NullDecimal) {
	if v.Valid {
		e.Str(v.Decimal.String())
	} else {
		e.Null()
	}
}
