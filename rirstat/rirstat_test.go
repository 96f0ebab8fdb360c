package rirstat

import (
	"strings"
	"testing"
	"time"

	"github.com/kr/pretty"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ExodusVPN/ip-db/country"
)

func TestParseHeader(t *testing.T) {
	input := `
2|afrinic|20150612|7236|00000000|20150612|00000
afrinic|*|asn|*|2302|summary
afrinic|*|ipv4|*|2935|summary
afrinic|*|ipv6|*|1999|summary
afrinic|ZA|asn|1228|1|19910301|allocated|F36B9F4B
afrinic|ZA|asn|1229|1|19910301|allocated|F36B9F4B
afrinic|ZA|asn|1230|1|19910301|allocated|F36B9F4B
afrinic|ZA|asn|1231|1|19910301|allocated|F36B9F4B
`
	f, err := Parse(strings.NewReader(input))
	require.NoError(t, err)

	want := &Header{
		Version:  "2",
		Registry: "afrinic",
		Serial:   20150612,
		Records:  7236,
		EndDate:  time.Date(2015, 6, 12, 0, 0, 0, 0, time.UTC),
	}
	if diff := pretty.Diff(want, f.Header); len(diff) > 0 {
		t.Errorf("header mismatch:\n%s", strings.Join(diff, "\n"))
	}
	assert.True(t, f.Header.StartDate.IsZero())
	assert.Empty(t, f.Records)
	assert.Equal(t, 4, f.Skipped)
	assert.Zero(t, f.Rejected)
}

func TestParseHeaderVersions(t *testing.T) {
	h, err := ParseHeader("2.3|arin|1700000000000|151423|19700101|20231115|-0500")
	require.NoError(t, err)
	assert.Equal(t, "2.3", h.Version)
	assert.Equal(t, int64(1700000000000), h.Serial)
	assert.Equal(t, -500, h.UTCOffset)

	h, err = ParseHeader("2|ripencc|1700006399|126262|19830705|20231114|+0100")
	require.NoError(t, err)
	assert.Equal(t, 100, h.UTCOffset)

	_, err = ParseHeader("2|ripencc|x|1|19830705|20231114|+0100")
	assert.ErrorIs(t, err, ErrBadHeader)
	_, err = ParseHeader("ripencc|*|ipv4|*|1|summary")
	assert.ErrorIs(t, err, ErrBadHeader)
}

const sample = `# comment before the version line
2|apnic|20231115|60000|19830613|20231114|+1000
# and one after it
apnic|*|asn|*|12345|summary
apnic|*|ipv4|*|2|summary
apnic|*|ipv6|*|1|summary
apnic|JP|asn|173|1|20020801|allocated
apnic|AU|ipv4|1.0.0.0|256|20110811|assigned|A91872ED
apnic|CN|ipv4|1.0.1.0|768|20110414|allocated
apnic|JP|ipv6|2001:218::|32|20000307|allocated
apnic||ipv4|1.0.8.0|2048|20110412|available
apnic|JP|ipv4|1.0.16.0|0|20110412|allocated
apnic|XX|ipv4|1.0.32.0|256|20110412|allocated
apnic|JP|ipv4|1.0.64.0|256|20110412|borrowed
apnic|JP|ipv6|2001:218::1|32|20000307|allocated
apnic|JP|ipv4|0.0.0.2|18446744073709551615|20110412|allocated
apnic|JP|ipv4|1.0.128.0
`

func TestParse(t *testing.T) {
	f, err := Parse(strings.NewReader(sample))
	require.NoError(t, err)
	require.NotNil(t, f.Header)
	assert.Equal(t, "apnic", f.Header.Registry)

	got := make([]string, len(f.Records))
	for i, rec := range f.Records {
		got[i] = rec.String()
	}
	assert.Equal(t, []string{
		"apnic AU ipv4 1.0.0.0 256 assigned none",
		"apnic CN ipv4 1.0.1.0 768 allocated none",
		"apnic JP ipv6 2001:218:: 32 allocated none",
		"apnic ZZ ipv4 1.0.8.0 2048 available none",
	}, got)

	// asn line and the truncated last line
	assert.Equal(t, 2, f.Skipped)
	// zero count, unknown country, unknown status, host bits set, count
	// running past the end of the address space
	assert.Equal(t, 5, f.Rejected)
}

func TestParseSkipsFirstLineEvenIfRecord(t *testing.T) {
	input := "apnic|AU|ipv4|1.0.0.0|256|20110811|assigned\n" +
		"apnic|CN|ipv4|1.0.1.0|256|20110414|allocated\n"
	f, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Nil(t, f.Header)
	require.Len(t, f.Records, 1)
	assert.Equal(t, country.MustParse("CN"), f.Records[0].Country)
}

func TestParseLongLine(t *testing.T) {
	input := "2|lacnic|20231115|1|19870101|20231114|-0300\n" +
		"lacnic|BR|ipv4|200.0.0.0|256|19930101|allocated|" + strings.Repeat("x", 100000) + "\n"
	f, err := Parse(strings.NewReader(input))
	require.NoError(t, err)
	assert.Len(t, f.Records, 1)
}
