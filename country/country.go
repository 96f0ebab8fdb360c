// Package country maps the country codes found in RIR delegation files to
// compact one-byte indices.
package country

import (
	"strings"

	"github.com/pkg/errors"
)

// ErrUnknown is returned for a code that is not in the table.
var ErrUnknown = errors.New("country: unknown code")

// Code is the index of a country code in the table. It fits in a byte so
// that lookup tables stay small.
type Code uint8

// Unknown is the sentinel used by the registries for resources that are not
// attributed to a country (written as ZZ or left empty).
const Unknown Code = 0

// ISO 3166-1 alpha-2, plus AP (Asia/Pacific), EU (Europe) and XK (Kosovo)
// which the registries also use. Unknown comes first; the order is part of
// the generated table format and must only ever be appended to.
var codes = strings.Fields(`ZZ
	AD AE AF AG AI AL AM AO AP AQ AR AS AT AU AW AX
	AZ BA BB BD BE BF BG BH BI BJ BL BM BN BO BQ BR
	BS BT BV BW BY BZ CA CC CD CF CG CH CI CK CL CM
	CN CO CR CU CV CW CX CY CZ DE DJ DK DM DO DZ EC
	EE EG EH ER ES ET EU FI FJ FK FM FO FR GA GB GD
	GE GF GG GH GI GL GM GN GP GQ GR GS GT GU GW GY
	HK HM HN HR HT HU ID IE IL IM IN IO IQ IR IS IT
	JE JM JO JP KE KG KH KI KM KN KP KR KW KY KZ LA
	LB LC LI LK LR LS LT LU LV LY MA MC MD ME MF MG
	MH MK ML MM MN MO MP MQ MR MS MT MU MV MW MX MY
	MZ NA NC NE NF NG NI NL NO NP NR NU NZ OM PA PE
	PF PG PH PK PL PM PN PR PS PT PW PY QA RE RO RS
	RU RW SA SB SC SD SE SG SH SI SJ SK SL SM SN SO
	SR SS ST SV SX SY SZ TC TD TF TG TH TJ TK TL TM
	TN TO TR TT TV TW TZ UA UG UM US UY UZ VA VC VE
	VG VI VN VU WF WS XK YE YT ZA ZM ZW`)

var index = make(map[string]Code, len(codes))

func init() {
	if len(codes) > 256 {
		panic("country: table does not fit in a byte")
	}
	for i, c := range codes {
		index[c] = Code(i)
	}
}

// Parse returns the Code for s, ignoring case and surrounding space. An
// empty string is Unknown.
func Parse(s string) (Code, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return Unknown, nil
	}
	c, ok := index[s]
	if !ok {
		return Unknown, errors.Wrapf(ErrUnknown, "%q", s)
	}
	return c, nil
}

// MustParse is like Parse but panics on error. It is meant for tests and
// static tables.
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromIndex returns the Code stored at index i.
func FromIndex(i uint8) (Code, error) {
	if int(i) >= len(codes) {
		return Unknown, errors.Wrapf(ErrUnknown, "index %d", i)
	}
	return Code(i), nil
}

// Index returns the table index of c.
func (c Code) Index() uint8 { return uint8(c) }

// Valid reports whether c refers to an entry of the table.
func (c Code) Valid() bool { return int(c) < len(codes) }

func (c Code) String() string {
	if !c.Valid() {
		return "??"
	}
	return codes[c]
}

// Count returns the number of codes in the table, Unknown included.
func Count() int { return len(codes) }
