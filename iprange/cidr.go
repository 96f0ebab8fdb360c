package iprange

import (
	"fmt"
	"iter"
	"math/bits"
	"net/netip"

	"github.com/pkg/errors"
	"lukechampine.com/uint128"
)

const (
	ipv4BitLength = 32
	ipv6BitLength = 128
)

// ErrInvalidPrefix is returned for a prefix length beyond the address width
// or a base address with host bits set.
var ErrInvalidPrefix = errors.New("iprange: invalid prefix")

// Block4 is an IPv4 CIDR block. Base is aligned to the block size. Blocks
// built by NewBlock4 or a Decomposer hold; Size and Range treat Bits past
// 32 as a single address.
type Block4 struct {
	Base uint32
	Bits uint8
}

// NewBlock4 returns the block base/bits.
func NewBlock4(base uint32, bits uint8) (Block4, error) {
	if bits > ipv4BitLength {
		return Block4{}, errors.Wrapf(ErrInvalidPrefix, "/%d", bits)
	}
	b := Block4{Base: base, Bits: bits}
	if uint64(base)&(b.Size()-1) != 0 {
		return Block4{}, errors.Wrapf(ErrInvalidPrefix, "%s/%d has host bits set", Addr4(base), bits)
	}
	return b, nil
}

// Size returns the number of addresses covered by the block.
func (b Block4) Size() uint64 {
	if b.Bits >= ipv4BitLength {
		return 1
	}
	return uint64(1) << (ipv4BitLength - b.Bits)
}

// Range returns the addresses covered by the block.
func (b Block4) Range() Range4 {
	return Range4{first: b.Base, last: uint32(uint64(b.Base) + b.Size() - 1)}
}

func (b Block4) Prefix() netip.Prefix {
	return netip.PrefixFrom(Addr4(b.Base), int(b.Bits))
}

func (b Block4) String() string {
	return fmt.Sprintf("%s/%d", Addr4(b.Base), b.Bits)
}

// Block6 is an IPv6 CIDR block. Base is aligned to the block size.
type Block6 struct {
	Base uint128.Uint128
	Bits uint8
}

// NewBlock6 returns the block base/bits.
func NewBlock6(base uint128.Uint128, bits uint8) (Block6, error) {
	if bits > ipv6BitLength {
		return Block6{}, errors.Wrapf(ErrInvalidPrefix, "/%d", bits)
	}
	if !base.And(hostMask6(bits)).IsZero() {
		return Block6{}, errors.Wrapf(ErrInvalidPrefix, "%s/%d has host bits set", Addr6(base), bits)
	}
	return Block6{Base: base, Bits: bits}, nil
}

// Range returns the addresses covered by the block.
func (b Block6) Range() Range6 {
	return Range6{first: b.Base, last: b.Base.Or(hostMask6(b.Bits))}
}

func (b Block6) Prefix() netip.Prefix {
	return netip.PrefixFrom(Addr6(b.Base), int(b.Bits))
}

func (b Block6) String() string {
	return fmt.Sprintf("%s/%d", Addr6(b.Base), b.Bits)
}

func hostMask6(bits uint8) uint128.Uint128 {
	if bits >= ipv6BitLength {
		return uint128.Zero
	}
	return uint128.Max.Rsh(uint(bits))
}

// Decomposer yields the CIDR blocks covering a Range4, lowest first. Each
// block is the largest one that is aligned at the cursor and does not run
// past the end of the range, so the sequence is the shortest exact cover.
type Decomposer struct {
	pos  uint64
	last uint64
}

// Decompose returns a new Decomposer over r. Decomposers are independent;
// decomposing the same range twice yields the same blocks.
func Decompose(r Range4) *Decomposer {
	return &Decomposer{pos: uint64(r.first), last: uint64(r.last)}
}

// Next returns the next block, or false once the range is covered.
func (d *Decomposer) Next() (Block4, bool) {
	if d.pos > d.last {
		return Block4{}, false
	}
	// TrailingZeros64(0) is 64, so a cursor at 0.0.0.0 starts from /0.
	shift := min(ipv4BitLength, bits.TrailingZeros64(d.pos))
	for d.pos+(uint64(1)<<shift)-1 > d.last {
		if shift == 0 {
			panic(fmt.Sprintf("iprange: no block fits at %d in range ending %d", d.pos, d.last))
		}
		shift--
	}
	b := Block4{Base: uint32(d.pos), Bits: uint8(ipv4BitLength - shift)}
	d.pos += uint64(1) << shift
	return b, true
}

// CIDRs returns the decomposition of r as a sequence.
func (r Range4) CIDRs() iter.Seq[Block4] {
	return func(yield func(Block4) bool) {
		d := Decompose(r)
		for b, ok := d.Next(); ok; b, ok = d.Next() {
			if !yield(b) {
				return
			}
		}
	}
}

// Blocks returns the decomposition of r as a slice.
func (r Range4) Blocks() []Block4 {
	var blocks []Block4
	for b := range r.CIDRs() {
		blocks = append(blocks, b)
	}
	return blocks
}
