package rirstat

import (
	"cmp"
	"fmt"
	"net/netip"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/ExodusVPN/ip-db/country"
	"github.com/ExodusVPN/ip-db/iprange"
)

var (
	// ErrNotRecord is returned for lines that are not address delegations:
	// short lines, asn records and the like. Callers skip them.
	ErrNotRecord = errors.New("rirstat: not an address record")

	// ErrMalformedRecord is returned when a required field is missing or
	// cannot be parsed.
	ErrMalformedRecord = errors.New("rirstat: malformed record")

	ErrUnknownStatus   = errors.New("rirstat: unknown status")
	ErrUnknownRegistry = errors.New("rirstat: unknown registry")
	ErrUnknownCountry  = country.ErrUnknown
)

// Family is the address family of a Block.
type Family uint8

const (
	IPv4 Family = 4
	IPv6 Family = 6
)

func (f Family) String() string {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	}
	return "invalid"
}

// Block is the address block of a record: an IPv4 range (delegation files
// give IPv4 as a start address and a count, which need not be a power of
// two) or a single IPv6 CIDR.
type Block struct {
	family Family
	v4     iprange.Range4
	v6     iprange.Block6
}

// BlockFromRange4 returns an IPv4 block.
func BlockFromRange4(r iprange.Range4) Block {
	return Block{family: IPv4, v4: r}
}

// BlockFromBlock6 returns an IPv6 block.
func BlockFromBlock6(b iprange.Block6) Block {
	return Block{family: IPv6, v6: b}
}

func (b Block) Family() Family { return b.family }

func (b Block) Is4() bool { return b.family == IPv4 }

func (b Block) Is6() bool { return b.family == IPv6 }

// Range4 returns the IPv4 range of the block.
func (b Block) Range4() (iprange.Range4, bool) {
	return b.v4, b.family == IPv4
}

// Block6 returns the IPv6 CIDR of the block.
func (b Block) Block6() (iprange.Block6, bool) {
	return b.v6, b.family == IPv6
}

// First returns the lowest address of the block.
func (b Block) First() netip.Addr {
	switch b.family {
	case IPv4:
		return iprange.Addr4(b.v4.First())
	case IPv6:
		return iprange.Addr6(b.v6.Base)
	}
	return netip.Addr{}
}

// Last returns the highest address of the block.
func (b Block) Last() netip.Addr {
	switch b.family {
	case IPv4:
		return iprange.Addr4(b.v4.Last())
	case IPv6:
		return iprange.Addr6(b.v6.Range().Last())
	}
	return netip.Addr{}
}

// Prefixes returns the block in CIDR notation. IPv4 ranges are decomposed
// into the shortest list of CIDRs covering them.
func (b Block) Prefixes() []netip.Prefix {
	switch b.family {
	case IPv4:
		var out []netip.Prefix
		for c := range b.v4.CIDRs() {
			out = append(out, c.Prefix())
		}
		return out
	case IPv6:
		return []netip.Prefix{b.v6.Prefix()}
	}
	return nil
}

// String returns the start and value columns of the block as they appear in
// a delegation file: start address and count for IPv4, start address and
// prefix length for IPv6.
func (b Block) String() string {
	switch b.family {
	case IPv4:
		return fmt.Sprintf("%s %d", iprange.Addr4(b.v4.First()), b.v4.Size())
	case IPv6:
		return fmt.Sprintf("%s %d", iprange.Addr6(b.v6.Base), b.v6.Bits)
	}
	return "invalid"
}

// Record is one address delegation. Records are comparable; two records are
// equal when every field is.
type Record struct {
	Source  Registry
	Country country.Code
	Block   Block
	Status  Status
	// Dest is the registry IANA delegated the block to. It is only set on
	// records whose Source is Iana.
	Dest Registry
}

// Destination returns the registry the block was delegated to by IANA.
func (r Record) Destination() (Registry, bool) {
	return r.Dest, r.Dest != NoRegistry
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s %s %s %s %s", r.Source, r.Country, r.Block.Family(), r.Block, r.Status, r.Dest)
}

// Compare orders records by family, then first address, then the remaining
// fields so that the order is total.
func Compare(a, b Record) int {
	if c := cmp.Compare(a.Block.family, b.Block.family); c != 0 {
		return c
	}
	if c := a.Block.First().Compare(b.Block.First()); c != 0 {
		return c
	}
	if c := a.Block.Last().Compare(b.Block.Last()); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Source, b.Source); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Country, b.Country); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Status, b.Status); c != 0 {
		return c
	}
	return cmp.Compare(a.Dest, b.Dest)
}

// ParseLine parses one record line of a delegation file:
//
//	registry|cc|type|start|value|date|status[|extensions...]
//
// Lines with fewer than seven fields and records of a type other than ipv4
// or ipv6 yield ErrNotRecord.
func ParseLine(line string) (Record, error) {
	cols := strings.Split(strings.TrimSpace(line), "|")
	if len(cols) < 7 {
		return Record{}, ErrNotRecord
	}

	var rec Record
	var err error

	switch cols[2] {
	case "ipv4":
		rec.Block, err = parseBlock4(cols[3], cols[4])
	case "ipv6":
		rec.Block, err = parseBlock6(cols[3], cols[4])
	default:
		return Record{}, ErrNotRecord
	}
	if err != nil {
		return Record{}, err
	}

	rec.Source, err = ParseRegistry(cols[0])
	if err != nil {
		return Record{}, err
	}
	rec.Country, err = country.Parse(cols[1])
	if err != nil {
		return Record{}, err
	}

	if rec.Source == Iana {
		rec.Status, rec.Dest, err = parseIanaStatus(cols[6])
	} else {
		rec.Status, err = ParseStatus(cols[6])
	}
	if err != nil {
		return Record{}, err
	}
	return rec, nil
}

func parseBlock4(start, value string) (Block, error) {
	first, err := iprange.ParseAddr4(start)
	if err != nil {
		return Block{}, errors.Wrapf(ErrMalformedRecord, "ipv4 start %q", start)
	}
	count, err := strconv.ParseUint(value, 10, 64)
	if err != nil || count == 0 {
		return Block{}, errors.Wrapf(ErrMalformedRecord, "ipv4 count %q", value)
	}
	r, err := iprange.FromCount4(first, count)
	if err != nil {
		return Block{}, err
	}
	return BlockFromRange4(r), nil
}

func parseBlock6(start, value string) (Block, error) {
	base, err := iprange.ParseAddr6(start)
	if err != nil {
		return Block{}, errors.Wrapf(ErrMalformedRecord, "ipv6 start %q", start)
	}
	bits, err := strconv.ParseUint(value, 10, 8)
	if err != nil || bits > 128 {
		return Block{}, errors.Wrapf(ErrMalformedRecord, "ipv6 prefix length %q", value)
	}
	b, err := iprange.NewBlock6(base, uint8(bits))
	if err != nil {
		return Block{}, errors.Wrapf(ErrMalformedRecord, "%v", err)
	}
	return BlockFromBlock6(b), nil
}

// parseIanaStatus reads the status column of an IANA record, which names the
// registry the block went to. Blocks IANA keeps for itself carry a plain
// status instead and have no destination.
func parseIanaStatus(s string) (Status, Registry, error) {
	dest, err := ParseRegistry(s)
	if err == nil {
		return Assigned, dest, nil
	}
	if status, serr := ParseStatus(s); serr == nil {
		return status, NoRegistry, nil
	}
	return Allocated, NoRegistry, err
}
