package api

import (
	"bytes"
	"crypto/sha512"
	"encoding"
	"encoding/hex"
	"errors"
)

const (
	// AddressVersionSize is the size of the address version.
	AddressVersionSize = 1
	// AddressSize is the size of the whole address where the last 20 bytes
	// represent a truncated hash of the concatenation of the address
	// context and the raw account data.
	AddressSize = AddressVersionSize + 20

	// AddressContext is the domain separation context used when deriving
	// account addresses.
	AddressContext = "meridian-core/address: staking"

	// addressReservedContext is the domain separation context used when
	// deriving internal module addresses.
	addressReservedContext = "meridian-core/address: reserved"
)

var (
	// AddressV0 is the address version byte of all currently valid
	// addresses.
	AddressV0 = byte(0)

	// ErrMalformedAddress is the error returned when an address is
	// malformed.
	ErrMalformedAddress = errors.New("staking: malformed address")

	// CommonPoolAddress is the reserved address of the common pool.
	CommonPoolAddress = newReservedAddress([]byte("common-pool"))

	reservedAddresses map[Address]bool

	_ encoding.BinaryMarshaler   = Address{}
	_ encoding.BinaryUnmarshaler = (*Address)(nil)
)

// Address is a versioned context-separated truncated hash of the raw
// account data.
type Address [AddressSize]byte

// MarshalBinary encodes an address into binary form.
func (a Address) MarshalBinary() ([]byte, error) {
	return append([]byte{}, a[:]...), nil
}

// UnmarshalBinary decodes a binary marshaled address.
func (a *Address) UnmarshalBinary(data []byte) error {
	if len(data) != AddressSize {
		return ErrMalformedAddress
	}

	copy(a[:], data)

	return nil
}

// MarshalText encodes an address into text form.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText decodes a text marshaled address.
func (a *Address) UnmarshalText(text []byte) error {
	data, err := hex.DecodeString(string(text))
	if err != nil {
		return ErrMalformedAddress
	}

	return a.UnmarshalBinary(data)
}

// Equal compares vs another address for equality.
func (a Address) Equal(cmp Address) bool {
	return bytes.Equal(a[:], cmp[:])
}

// IsValid checks whether an address is well-formed and not reserved.
func (a Address) IsValid() bool {
	return a[0] == AddressV0 && !a.IsReserved()
}

// IsReserved returns true iff the address is reserved for internal
// module use and can not be bonded from or transacted with.
func (a Address) IsReserved() bool {
	return reservedAddresses[a]
}

// String returns the hexadecimal representation of an address.
func (a Address) String() string {
	return hex.EncodeToString(a[:])
}

// NewAddress creates a new account address from raw account data.
func NewAddress(data []byte) (a Address) {
	return newAddress(AddressContext, data)
}

func newAddress(context string, data []byte) (a Address) {
	h := sha512.Sum512_256(append([]byte(context), data...))
	a[0] = AddressV0
	copy(a[AddressVersionSize:], h[:AddressSize-AddressVersionSize])
	return
}

func newReservedAddress(data []byte) Address {
	a := newAddress(addressReservedContext, data)
	if reservedAddresses == nil {
		reservedAddresses = make(map[Address]bool)
	}
	reservedAddresses[a] = true
	return a
}
