package ipdb

import (
	"cmp"
	"fmt"
	"net/netip"
	"slices"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"lukechampine.com/uint128"

	"github.com/ExodusVPN/ip-db/country"
	"github.com/ExodusVPN/ip-db/iprange"
	"github.com/ExodusVPN/ip-db/rirstat"
)

var (
	// ErrInvalidEntry is returned for an entry whose first address is past
	// its last.
	ErrInvalidEntry = errors.New("ipdb: invalid entry")
	// ErrUnsorted is returned when entries are not ascending by first address.
	ErrUnsorted = errors.New("ipdb: entries not sorted")
	// ErrOverlap is returned when two entries share an address.
	ErrOverlap = errors.New("ipdb: overlapping entries")
)

// Entry4 maps the IPv4 addresses First through Last to a country.
type Entry4 struct {
	First   uint32
	Last    uint32
	Country country.Code
}

func (e Entry4) String() string {
	return fmt.Sprintf("%s - %s %s", iprange.Addr4(e.First), iprange.Addr4(e.Last), e.Country)
}

// Entry6 maps the IPv6 addresses First through Last to a country.
type Entry6 struct {
	First   uint128.Uint128
	Last    uint128.Uint128
	Country country.Code
}

func (e Entry6) String() string {
	return fmt.Sprintf("%s - %s %s", iprange.Addr6(e.First), iprange.Addr6(e.Last), e.Country)
}

// Result is the entry found by a lookup.
type Result struct {
	First   netip.Addr
	Last    netip.Addr
	Country country.Code
}

func (r Result) String() string {
	return fmt.Sprintf("%s-%s %s", r.First, r.Last, r.Country)
}

// Table is a read-only lookup table. Entries of each family are sorted by
// first address and do not overlap. A Table is safe for concurrent use.
type Table struct {
	v4 []Entry4
	v6 []Entry6
}

// NewTable returns a table holding copies of v4 and v6. The entries must
// already be sorted and must not overlap.
func NewTable(v4 []Entry4, v6 []Entry6) (*Table, error) {
	return newTable(slices.Clone(v4), slices.Clone(v6))
}

// newTable validates and takes ownership of v4 and v6.
func newTable(v4 []Entry4, v6 []Entry6) (*Table, error) {
	if err := validate4(v4); err != nil {
		return nil, err
	}
	if err := validate6(v6); err != nil {
		return nil, err
	}
	return &Table{v4: v4, v6: v6}, nil
}

func validate4(entries []Entry4) error {
	for i, e := range entries {
		if e.First > e.Last {
			return errors.Wrapf(ErrInvalidEntry, "ipv4 entry %d: %s", i, e)
		}
		if _, err := country.FromIndex(e.Country.Index()); err != nil {
			return errors.Wrapf(ErrInvalidEntry, "ipv4 entry %d: %v", i, err)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		if e.First < prev.First {
			return errors.Wrapf(ErrUnsorted, "ipv4 entry %d: %s after %s", i, e, prev)
		}
		if e.First <= prev.Last {
			return errors.Wrapf(ErrOverlap, "ipv4 entry %d: %s overlaps %s", i, e, prev)
		}
	}
	return nil
}

func validate6(entries []Entry6) error {
	for i, e := range entries {
		if e.First.Cmp(e.Last) > 0 {
			return errors.Wrapf(ErrInvalidEntry, "ipv6 entry %d: %s", i, e)
		}
		if _, err := country.FromIndex(e.Country.Index()); err != nil {
			return errors.Wrapf(ErrInvalidEntry, "ipv6 entry %d: %v", i, err)
		}
		if i == 0 {
			continue
		}
		prev := entries[i-1]
		if e.First.Cmp(prev.First) < 0 {
			return errors.Wrapf(ErrUnsorted, "ipv6 entry %d: %s after %s", i, e, prev)
		}
		if e.First.Cmp(prev.Last) <= 0 {
			return errors.Wrapf(ErrOverlap, "ipv6 entry %d: %s overlaps %s", i, e, prev)
		}
	}
	return nil
}

// Build builds a table from delegation records. Records published by IANA
// describe delegations to the registries rather than final allocations and
// are left out. The same block listed more than once for the same country
// is kept once; any other overlap fails the build.
func Build(records []rirstat.Record) (*Table, error) {
	var v4 []Entry4
	var v6 []Entry6
	skipped := 0
	for _, rec := range records {
		if rec.Source == rirstat.Iana {
			skipped++
			continue
		}
		if r, ok := rec.Block.Range4(); ok {
			v4 = append(v4, Entry4{First: r.First(), Last: r.Last(), Country: rec.Country})
		}
		if b, ok := rec.Block.Block6(); ok {
			r := b.Range()
			v6 = append(v6, Entry6{First: r.First(), Last: r.Last(), Country: rec.Country})
		}
	}

	slices.SortFunc(v4, compare4)
	slices.SortFunc(v6, compare6)
	v4 = slices.Compact(v4)
	v6 = slices.Compact(v6)

	log.WithFields(log.Fields{
		"records": len(records),
		"iana":    skipped,
		"ipv4":    len(v4),
		"ipv6":    len(v6),
	}).Debug("ipdb: built entries")

	return newTable(v4, v6)
}

func compare4(a, b Entry4) int {
	if c := cmp.Compare(a.First, b.First); c != 0 {
		return c
	}
	if c := cmp.Compare(a.Last, b.Last); c != 0 {
		return c
	}
	return cmp.Compare(a.Country, b.Country)
}

func compare6(a, b Entry6) int {
	if c := a.First.Cmp(b.First); c != 0 {
		return c
	}
	if c := a.Last.Cmp(b.Last); c != 0 {
		return c
	}
	return cmp.Compare(a.Country, b.Country)
}

// Lookup returns the entry containing addr. IPv4-mapped IPv6 addresses are
// looked up as IPv4.
func (t *Table) Lookup(addr netip.Addr) (Result, bool) {
	addr = addr.Unmap()
	switch {
	case addr.Is4():
		n, _ := iprange.Uint32(addr)
		i, ok := slices.BinarySearchFunc(t.v4, n, func(e Entry4, n uint32) int {
			switch {
			case e.Last < n:
				return -1
			case e.First > n:
				return 1
			}
			return 0
		})
		if !ok {
			return Result{}, false
		}
		e := t.v4[i]
		return Result{First: iprange.Addr4(e.First), Last: iprange.Addr4(e.Last), Country: e.Country}, true
	case addr.Is6():
		n, _ := iprange.Uint128(addr)
		i, ok := slices.BinarySearchFunc(t.v6, n, func(e Entry6, n uint128.Uint128) int {
			switch {
			case e.Last.Cmp(n) < 0:
				return -1
			case e.First.Cmp(n) > 0:
				return 1
			}
			return 0
		})
		if !ok {
			return Result{}, false
		}
		e := t.v6[i]
		return Result{First: iprange.Addr6(e.First), Last: iprange.Addr6(e.Last), Country: e.Country}, true
	}
	return Result{}, false
}

// Compact returns a table in which runs of adjacent entries with the same
// country are merged into one entry.
func (t *Table) Compact() *Table {
	var v4 []Entry4
	for _, e := range t.v4 {
		if n := len(v4); n > 0 {
			prev := &v4[n-1]
			if prev.Country == e.Country && uint64(prev.Last)+1 == uint64(e.First) {
				prev.Last = e.Last
				continue
			}
		}
		v4 = append(v4, e)
	}

	var v6 []Entry6
	for _, e := range t.v6 {
		if n := len(v6); n > 0 {
			prev := &v6[n-1]
			if prev.Country == e.Country && !prev.Last.Equals(uint128.Max) && prev.Last.Add64(1).Equals(e.First) {
				prev.Last = e.Last
				continue
			}
		}
		v6 = append(v6, e)
	}
	return &Table{v4: v4, v6: v6}
}

// Len4 returns the number of IPv4 entries.
func (t *Table) Len4() int { return len(t.v4) }

// Len6 returns the number of IPv6 entries.
func (t *Table) Len6() int { return len(t.v6) }

// Entries4 returns a copy of the IPv4 entries.
func (t *Table) Entries4() []Entry4 { return slices.Clone(t.v4) }

// Entries6 returns a copy of the IPv6 entries.
func (t *Table) Entries6() []Entry6 { return slices.Clone(t.v6) }
