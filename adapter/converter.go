package adapter

import (
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Converter maps a model value to its stored form and back.
type Converter interface {
	ToStored(v any) (any, error)
	FromStored(v any) (any, error)
}

// ConverterFuncs adapts a pair of functions to a Converter.
type ConverterFuncs struct {
	To   func(any) (any, error)
	From func(any) (any, error)
}

// ToStored implements Converter.
func (c ConverterFuncs) ToStored(v any) (any, error) { return c.To(v) }

// FromStored implements Converter.
func (c ConverterFuncs) FromStored(v any) (any, error) { return c.From(v) }

// Names of the built-in converters.
const (
	ConverterTime    = "time"
	ConverterUUID    = "uuid"
	ConverterDecimal = "decimal"
	ConverterBigInt  = "bigint"
)

// Builtins returns the converters every registry starts with.
func Builtins() map[string]Converter {
	return map[string]Converter{
		ConverterTime:    TimeConverter{},
		ConverterUUID:    UUIDConverter{},
		ConverterDecimal: DecimalConverter{},
		ConverterBigInt:  BigIntConverter{},
	}
}

// TimeConverter stores time.Time as INTEGER unix milliseconds.
type TimeConverter struct{}

// ToStored implements Converter.
func (TimeConverter) ToStored(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UnixMilli(), nil
	case *time.Time:
		if t == nil {
			return nil, nil
		}
		return t.UnixMilli(), nil
	default:
		return nil, fmt.Errorf("time converter: unexpected %T", v)
	}
}

// FromStored implements Converter.
func (TimeConverter) FromStored(v any) (any, error) {
	ms, err := toInt64(v)
	if err != nil {
		return nil, fmt.Errorf("time converter: %w", err)
	}
	return time.UnixMilli(ms).UTC(), nil
}

// UUIDConverter stores uuid.UUID as TEXT.
type UUIDConverter struct{}

// ToStored implements Converter.
func (UUIDConverter) ToStored(v any) (any, error) {
	switch u := v.(type) {
	case uuid.UUID:
		return u.String(), nil
	case string:
		id, err := uuid.Parse(u)
		if err != nil {
			return nil, fmt.Errorf("uuid converter: %w", err)
		}
		return id.String(), nil
	default:
		return nil, fmt.Errorf("uuid converter: unexpected %T", v)
	}
}

// FromStored implements Converter.
func (UUIDConverter) FromStored(v any) (any, error) {
	s, err := toString(v)
	if err != nil {
		return nil, fmt.Errorf("uuid converter: %w", err)
	}
	return uuid.Parse(s)
}

// DecimalConverter stores decimal.Decimal as TEXT to keep its precision.
type DecimalConverter struct{}

// ToStored implements Converter.
func (DecimalConverter) ToStored(v any) (any, error) {
	switch d := v.(type) {
	case decimal.Decimal:
		return d.String(), nil
	case float64:
		return decimal.NewFromFloat(d).String(), nil
	case string:
		dec, err := decimal.NewFromString(d)
		if err != nil {
			return nil, fmt.Errorf("decimal converter: %w", err)
		}
		return dec.String(), nil
	default:
		return nil, fmt.Errorf("decimal converter: unexpected %T", v)
	}
}

// FromStored implements Converter.
func (DecimalConverter) FromStored(v any) (any, error) {
	switch n := v.(type) {
	case float64:
		return decimal.NewFromFloat(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	}
	s, err := toString(v)
	if err != nil {
		return nil, fmt.Errorf("decimal converter: %w", err)
	}
	return decimal.NewFromString(s)
}

// BigIntConverter stores *big.Int as decimal TEXT.
type BigIntConverter struct{}

// ToStored implements Converter.
func (BigIntConverter) ToStored(v any) (any, error) {
	switch n := v.(type) {
	case *big.Int:
		if n == nil {
			return nil, nil
		}
		return n.String(), nil
	case big.Int:
		return n.String(), nil
	default:
		return nil, fmt.Errorf("bigint converter: unexpected %T", v)
	}
}

// FromStored implements Converter.
func (BigIntConverter) FromStored(v any) (any, error) {
	if n, ok := v.(int64); ok {
		return big.NewInt(n), nil
	}
	s, err := toString(v)
	if err != nil {
		return nil, fmt.Errorf("bigint converter: %w", err)
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("bigint converter: invalid integer %q", s)
	}
	return n, nil
}

func toInt64(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case float64:
		return int64(n), nil
	default:
		return 0, fmt.Errorf("unexpected stored %T", v)
	}
}

func toString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case []byte:
		return string(s), nil
	default:
		return "", fmt.Errorf("unexpected stored %T", v)
	}
}
