package rirstat

import (
	"strings"

	"github.com/pkg/errors"
)

// Registry identifies a number resource registry. The zero value NoRegistry
// marks an absent registry.
type Registry uint8

const (
	NoRegistry Registry = iota
	Afrinic
	Apnic
	Arin
	Iana
	Ietf
	Lacnic
	RipeNCC
)

var registryNames = [...]string{
	NoRegistry: "none",
	Afrinic:    "afrinic",
	Apnic:      "apnic",
	Arin:       "arin",
	Iana:       "iana",
	Ietf:       "ietf",
	Lacnic:     "lacnic",
	RipeNCC:    "ripencc",
}

var registryDescriptions = [...]string{
	NoRegistry: "",
	Afrinic:    "Africa Region",
	Apnic:      "Asia/Pacific Region",
	Arin:       "Canada, USA, and some Caribbean Islands",
	Iana:       "Internet Assigned Numbers Authority",
	Ietf:       "Internet Engineering Task Force, special registry",
	Lacnic:     "Latin America and some Caribbean Islands",
	RipeNCC:    "Europe, the Middle East, and Central Asia",
}

// ParseRegistry parses a registry name as written in delegation files.
func ParseRegistry(s string) (Registry, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "afrinic":
		return Afrinic, nil
	case "apnic":
		return Apnic, nil
	case "arin":
		return Arin, nil
	case "iana":
		return Iana, nil
	case "ietf":
		return Ietf, nil
	case "lacnic":
		return Lacnic, nil
	case "ripencc", "ripe-ncc", "ripe":
		return RipeNCC, nil
	}
	return NoRegistry, errors.Wrapf(ErrUnknownRegistry, "%q", s)
}

func (r Registry) String() string {
	if int(r) >= len(registryNames) {
		return "unknown"
	}
	return registryNames[r]
}

// Description returns the service region of the registry.
func (r Registry) Description() string {
	if int(r) >= len(registryDescriptions) {
		return ""
	}
	return registryDescriptions[r]
}

// Status is the allocation state of a delegated block.
type Status uint8

const (
	Allocated Status = iota
	Assigned
	Available
	Reserved
)

var statusNames = [...]string{
	Allocated: "allocated",
	Assigned:  "assigned",
	Available: "available",
	Reserved:  "reserved",
}

// ParseStatus parses a status as written in delegation files.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allocated":
		return Allocated, nil
	case "assigned":
		return Assigned, nil
	case "available":
		return Available, nil
	case "reserved":
		return Reserved, nil
	}
	return Allocated, errors.Wrapf(ErrUnknownStatus, "%q", s)
}

func (s Status) String() string {
	if int(s) >= len(statusNames) {
		return "unknown"
	}
	return statusNames[s]
}
