package types

import (
	"encoding/json"
	"math/big"
	"reflect"
)

// BigInt is a wrapper around *big.Int that provides custom JSON
// marshaling/unmarshaling. On-chain native values do not fit in int64,
// so they travel as decimal strings.
type BigInt struct {
	*big.Int
}

// NewBigInt creates a new BigInt from a *big.Int
func NewBigInt(i *big.Int) *BigInt {
	if i == nil {
		return nil
	}
	return &BigInt{Int: i}
}

// NewBigIntFromInt64 creates a new BigInt from an int64
func NewBigIntFromInt64(i int64) *BigInt {
	return &BigInt{Int: big.NewInt(i)}
}

// NewBigIntFromString parses a decimal string into a BigInt
func NewBigIntFromString(s string) (*BigInt, bool) {
	i, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, false
	}
	return &BigInt{Int: i}, true
}

// MarshalJSON implements json.Marshaler
func (b *BigInt) MarshalJSON() ([]byte, error) {
	if b == nil || b.Int == nil {
		return []byte("null"), nil
	}
	// Marshal as string to avoid scientific notation
	return json.Marshal(b.Int.String())
}

// UnmarshalJSON implements json.Unmarshaler
func (b *BigInt) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		b.Int = nil
		return nil
	}

	// Only accept string format for 256-bit integers
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return &json.UnmarshalTypeError{
			Value:  string(data),
			Type:   reflect.TypeOf(""),
			Struct: "BigInt",
			Field:  "Int",
		}
	}

	i, ok := new(big.Int).SetString(str, 10)
	if !ok {
		return &json.UnmarshalTypeError{
			Value:  "string",
			Type:   reflect.TypeOf(big.Int{}),
			Struct: "BigInt",
			Field:  "Int",
		}
	}
	b.Int = i
	return nil
}

// ToBigInt converts BigInt to *big.Int
func (b *BigInt) ToBigInt() *big.Int {
	if b == nil {
		return nil
	}
	return b.Int
}

// String implements fmt.Stringer
func (b *BigInt) String() string {
	if b == nil || b.Int == nil {
		return "<nil>"
	}
	return b.Int.String()
}

// Cmp compares b and other, treating nil as zero
func (b *BigInt) Cmp(other *BigInt) int {
	x := big.NewInt(0)
	y := big.NewInt(0)
	if b != nil && b.Int != nil {
		x = b.Int
	}
	if other != nil && other.Int != nil {
		y = other.Int
	}
	return x.Cmp(y)
}
