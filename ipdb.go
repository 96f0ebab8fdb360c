// Package ipdb maps IP addresses to the country their block was allocated
// to, using the delegation files of the regional internet registries.
//
// The package ships a table generated from those files (db.go). Custom
// tables are built with Build or NewTable.
package ipdb

//go:generate go run ./cmd/ipdb gen --data data --out db.go --compact

import (
	"net"
	"net/netip"
	"sync"

	"github.com/pkg/errors"
)

var (
	defaultOnce  sync.Once
	defaultTable *Table
)

// Default returns the table generated into this package. It is built on
// first use.
func Default() *Table {
	defaultOnce.Do(func() {
		t, err := newTable(ipv4Table[:], ipv6Table[:])
		if err != nil {
			panic(errors.Wrap(err, "ipdb: generated table"))
		}
		defaultTable = t
	})
	return defaultTable
}

// Lookup looks addr up in the default table.
func Lookup(addr netip.Addr) (Result, bool) {
	return Default().Lookup(addr)
}

// LookupIP is like Lookup for a net.IP.
func LookupIP(ip net.IP) (Result, bool) {
	addr, ok := netip.AddrFromSlice(ip)
	if !ok {
		return Result{}, false
	}
	return Lookup(addr)
}
