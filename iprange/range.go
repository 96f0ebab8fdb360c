// Package iprange provides inclusive numeric address ranges and CIDR blocks
// for IPv4 and IPv6, and the reduction of an arbitrary IPv4 range to CIDR
// blocks.
package iprange

import (
	"encoding/binary"
	"fmt"
	"iter"
	"math"
	"math/big"
	"net/netip"

	"github.com/pkg/errors"
	"lukechampine.com/uint128"
)

// ErrInvalidRange is returned when a range would have first > last, an empty
// count, or a last address past the end of the address space.
var ErrInvalidRange = errors.New("iprange: invalid range")

// ErrNotIPv4 is returned when an IPv4 operation is given an IPv6 address.
var ErrNotIPv4 = errors.New("iprange: not an IPv4 address")

// ErrNotIPv6 is returned when an IPv6 operation is given an IPv4 address.
var ErrNotIPv6 = errors.New("iprange: not an IPv6 address")

// Range4 is an inclusive interval [first, last] of IPv4 addresses.
type Range4 struct {
	first uint32
	last  uint32
}

// New4 returns the range [first, last].
func New4(first, last uint32) (Range4, error) {
	if first > last {
		return Range4{}, errors.Wrapf(ErrInvalidRange, "%s > %s", Addr4(first), Addr4(last))
	}
	return Range4{first: first, last: last}, nil
}

// FromCount4 returns the range of count addresses starting at first.
func FromCount4(first uint32, count uint64) (Range4, error) {
	if count == 0 {
		return Range4{}, errors.Wrapf(ErrInvalidRange, "%s: zero count", Addr4(first))
	}
	if count > math.MaxUint32-uint64(first)+1 {
		return Range4{}, errors.Wrapf(ErrInvalidRange, "%s + %d overflows", Addr4(first), count)
	}
	return Range4{first: first, last: uint32(uint64(first) + count - 1)}, nil
}

// First returns the lowest address of the range.
func (r Range4) First() uint32 { return r.first }

// Last returns the highest address of the range.
func (r Range4) Last() uint32 { return r.last }

// Size returns the number of addresses in the range. The full IPv4 space
// has 2^32 addresses, hence the wider return type.
func (r Range4) Size() uint64 {
	return uint64(r.last) - uint64(r.first) + 1
}

// Contains reports whether addr lies within the range.
func (r Range4) Contains(addr uint32) bool {
	return r.first <= addr && addr <= r.last
}

// Addrs returns a new cursor over every address of the range, ascending.
func (r Range4) Addrs() *AddrIter4 {
	return &AddrIter4{next: uint64(r.first), last: uint64(r.last)}
}

// All returns the addresses of the range as a sequence. Each iteration
// starts from the first address.
func (r Range4) All() iter.Seq[uint32] {
	return func(yield func(uint32) bool) {
		it := r.Addrs()
		for addr, ok := it.Next(); ok; addr, ok = it.Next() {
			if !yield(addr) {
				return
			}
		}
	}
}

func (r Range4) String() string {
	return fmt.Sprintf("%s - %s", Addr4(r.first), Addr4(r.last))
}

// AddrIter4 walks the addresses of a Range4. The cursor is 64 bits wide so
// that a range ending at 255.255.255.255 terminates.
type AddrIter4 struct {
	next uint64
	last uint64
}

// Next returns the next address, or false once the range is exhausted.
func (it *AddrIter4) Next() (uint32, bool) {
	if it.next > it.last {
		return 0, false
	}
	addr := uint32(it.next)
	it.next++
	return addr, true
}

// Range6 is an inclusive interval [first, last] of IPv6 addresses.
type Range6 struct {
	first uint128.Uint128
	last  uint128.Uint128
}

// New6 returns the range [first, last].
func New6(first, last uint128.Uint128) (Range6, error) {
	if first.Cmp(last) > 0 {
		return Range6{}, errors.Wrapf(ErrInvalidRange, "%s > %s", Addr6(first), Addr6(last))
	}
	return Range6{first: first, last: last}, nil
}

func (r Range6) First() uint128.Uint128 { return r.first }

func (r Range6) Last() uint128.Uint128 { return r.last }

// Size returns the number of addresses in the range. It is not bounded by
// 128 bits, so it is returned as a big.Int.
func (r Range6) Size() *big.Int {
	n := r.last.Sub(r.first).Big()
	return n.Add(n, big.NewInt(1))
}

// Contains reports whether addr lies within the range.
func (r Range6) Contains(addr uint128.Uint128) bool {
	return r.first.Cmp(addr) <= 0 && addr.Cmp(r.last) <= 0
}

func (r Range6) String() string {
	return fmt.Sprintf("%s - %s", Addr6(r.first), Addr6(r.last))
}

// Addr4 converts a numeric IPv4 address to a netip.Addr.
func Addr4(n uint32) netip.Addr {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], n)
	return netip.AddrFrom4(b)
}

// Uint32 converts an IPv4 (or IPv4-mapped IPv6) address to its numeric form.
func Uint32(addr netip.Addr) (uint32, error) {
	addr = addr.Unmap()
	if !addr.Is4() {
		return 0, errors.Wrap(ErrNotIPv4, addr.String())
	}
	b := addr.As4()
	return binary.BigEndian.Uint32(b[:]), nil
}

// ParseAddr4 parses a dotted-quad IPv4 address to its numeric form.
func ParseAddr4(s string) (uint32, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return 0, err
	}
	if !addr.Is4() {
		return 0, errors.Wrap(ErrNotIPv4, s)
	}
	return Uint32(addr)
}

// Addr6 converts a numeric IPv6 address to a netip.Addr.
func Addr6(n uint128.Uint128) netip.Addr {
	var b [16]byte
	n.PutBytesBE(b[:])
	return netip.AddrFrom16(b)
}

// Uint128 converts an IPv6 address to its numeric form.
func Uint128(addr netip.Addr) (uint128.Uint128, error) {
	if !addr.Is6() || addr.Is4In6() {
		return uint128.Zero, errors.Wrap(ErrNotIPv6, addr.String())
	}
	b := addr.As16()
	return uint128.FromBytesBE(b[:]), nil
}

// ParseAddr6 parses a textual IPv6 address to its numeric form.
func ParseAddr6(s string) (uint128.Uint128, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return uint128.Zero, err
	}
	return Uint128(addr)
}
