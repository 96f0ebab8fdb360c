package iprange

import (
	"math/rand"
	"net/netip"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go4.org/netipx"
	"lukechampine.com/uint128"
)

func blockStrings(blocks []Block4) []string {
	out := make([]string, len(blocks))
	for i, b := range blocks {
		out[i] = b.String()
	}
	return out
}

// checkExactCover fails unless blocks are aligned, ascending, contiguous and
// cover exactly r.
func checkExactCover(t *testing.T, r Range4, blocks []Block4) {
	t.Helper()
	require.NotEmpty(t, blocks)
	next := uint64(r.First())
	for _, b := range blocks {
		_, err := NewBlock4(b.Base, b.Bits)
		require.NoError(t, err, "block %s is not aligned", b)
		require.Equal(t, next, uint64(b.Base), "gap or overlap before %s", b)
		next += b.Size()
	}
	require.Equal(t, uint64(r.Last())+1, next, "cover does not end at %s", Addr4(r.Last()))
}

func TestDecompose(t *testing.T) {
	cases := []struct {
		first, last string
		want        []string
	}{
		{"10.0.0.1", "10.0.0.1", []string{"10.0.0.1/32"}},
		{"0.0.0.0", "255.255.255.255", []string{"0.0.0.0/0"}},
		{"255.255.255.255", "255.255.255.255", []string{"255.255.255.255/32"}},
		{"0.0.0.0", "0.255.255.255", []string{"0.0.0.0/8"}},
		{"255.0.0.0", "255.255.255.255", []string{"255.0.0.0/8"}},
		{"185.30.232.0", "185.30.232.63", []string{"185.30.232.0/26"}},
		{"128.0.0.0", "255.255.255.255", []string{"128.0.0.0/1"}},
		{"0.0.0.1", "0.0.0.6", []string{"0.0.0.1/32", "0.0.0.2/31", "0.0.0.4/31", "0.0.0.6/32"}},
		{
			"23.18.1.0", "23.18.23.255",
			[]string{"23.18.1.0/24", "23.18.2.0/23", "23.18.4.0/22", "23.18.8.0/21", "23.18.16.0/21"},
		},
		{
			"23.18.1.0", "23.18.23.254",
			[]string{
				"23.18.1.0/24", "23.18.2.0/23", "23.18.4.0/22", "23.18.8.0/21",
				"23.18.16.0/22", "23.18.20.0/23", "23.18.22.0/24", "23.18.23.0/25",
				"23.18.23.128/26", "23.18.23.192/27", "23.18.23.224/28", "23.18.23.240/29",
				"23.18.23.248/30", "23.18.23.252/31", "23.18.23.254/32",
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.first+"-"+tc.last, func(t *testing.T) {
			r := mustRange4(t, tc.first, tc.last)
			got := r.Blocks()
			if diff := cmp.Diff(tc.want, blockStrings(got)); diff != "" {
				t.Errorf("Blocks() mismatch (-want +got):\n%s", diff)
			}
			checkExactCover(t, r, got)
		})
	}
}

// The sixteen-block listing of 23.18.1.0 - 23.18.23.255 that circulates with
// the delegation tooling splits 23.18.16.0/21 into a /22 ... /32 staircase.
// It is a valid cover of the same addresses, just not the shortest one.
func TestDecomposeMatchesStaircaseListing(t *testing.T) {
	staircase := []Block4{
		{mustAddr4(t, "23.18.1.0"), 24},
		{mustAddr4(t, "23.18.2.0"), 23},
		{mustAddr4(t, "23.18.4.0"), 22},
		{mustAddr4(t, "23.18.8.0"), 21},
		{mustAddr4(t, "23.18.16.0"), 22},
		{mustAddr4(t, "23.18.20.0"), 23},
		{mustAddr4(t, "23.18.22.0"), 24},
		{mustAddr4(t, "23.18.23.0"), 25},
		{mustAddr4(t, "23.18.23.128"), 26},
		{mustAddr4(t, "23.18.23.192"), 27},
		{mustAddr4(t, "23.18.23.224"), 28},
		{mustAddr4(t, "23.18.23.240"), 29},
		{mustAddr4(t, "23.18.23.248"), 30},
		{mustAddr4(t, "23.18.23.252"), 31},
		{mustAddr4(t, "23.18.23.254"), 32},
		{mustAddr4(t, "23.18.23.255"), 32},
	}
	r := mustRange4(t, "23.18.1.0", "23.18.23.255")
	checkExactCover(t, r, staircase)

	got := r.Blocks()
	checkExactCover(t, r, got)
	assert.Less(t, len(got), len(staircase))
	assert.Equal(t, staircase[:4], got[:4])

	var covered uint64
	for _, b := range staircase[4:] {
		covered += b.Size()
	}
	assert.Equal(t, got[4].Size(), covered)
	assert.Equal(t, staircase[4].Base, got[4].Base)
}

func TestDecomposeIsDeterministic(t *testing.T) {
	r := mustRange4(t, "23.18.1.0", "23.18.23.255")
	assert.Equal(t, r.Blocks(), r.Blocks())

	d1, d2 := Decompose(r), Decompose(r)
	b1, _ := d1.Next()
	b1, _ = d1.Next()
	b2, _ := d2.Next()
	assert.Equal(t, "23.18.2.0/23", b1.String())
	assert.Equal(t, "23.18.1.0/24", b2.String())
}

func TestDecomposerExhausted(t *testing.T) {
	d := Decompose(mustRange4(t, "255.255.255.255", "255.255.255.255"))
	_, ok := d.Next()
	assert.True(t, ok)
	_, ok = d.Next()
	assert.False(t, ok)
	_, ok = d.Next()
	assert.False(t, ok)
}

func TestDecomposeAgainstNetipx(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 5000; i++ {
		a, b := rng.Uint32(), rng.Uint32()
		if i%2 == 0 {
			// short ranges exercise the staircase at both ends
			b = a + uint32(rng.Intn(1<<12))
			if b < a {
				b = a
			}
		}
		if a > b {
			a, b = b, a
		}
		r, err := New4(a, b)
		require.NoError(t, err)

		got := r.Blocks()
		checkExactCover(t, r, got)

		want := netipx.IPRangeFrom(Addr4(a), Addr4(b)).Prefixes()
		require.Len(t, got, len(want), "range %s", r)
		for j, p := range want {
			require.Equal(t, p, got[j].Prefix(), "range %s block %d", r, j)
		}
	}
}

func TestDecomposedAddrsInRange(t *testing.T) {
	r := mustRange4(t, "23.18.1.0", "23.18.23.255")
	var n uint64
	for b := range r.CIDRs() {
		for addr := range b.Range().All() {
			if !r.Contains(addr) {
				t.Fatalf("%s from %s is outside %s", Addr4(addr), b, r)
			}
			n++
		}
	}
	assert.Equal(t, r.Size(), n)
}

func TestNewBlock4(t *testing.T) {
	b, err := NewBlock4(mustAddr4(t, "8.8.8.0"), 24)
	require.NoError(t, err)
	assert.Equal(t, uint64(256), b.Size())
	assert.Equal(t, mustRange4(t, "8.8.8.0", "8.8.8.255"), b.Range())
	assert.Equal(t, netip.MustParsePrefix("8.8.8.0/24"), b.Prefix())

	b, err = NewBlock4(0, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<32, b.Size())
	assert.Equal(t, uint32(0xffffffff), b.Range().Last())

	_, err = NewBlock4(mustAddr4(t, "8.8.8.1"), 24)
	assert.ErrorIs(t, err, ErrInvalidPrefix)
	_, err = NewBlock4(0, 33)
	assert.ErrorIs(t, err, ErrInvalidPrefix)
}

func TestBlock4BitsPastLength(t *testing.T) {
	base := mustAddr4(t, "8.8.8.8")
	for _, bits := range []uint8{32, 33, 40, 255} {
		b := Block4{Base: base, Bits: bits}
		assert.Equal(t, uint64(1), b.Size(), "/%d", bits)
		assert.Equal(t, mustRange4(t, "8.8.8.8", "8.8.8.8"), b.Range(), "/%d", bits)
	}
}

func TestNewBlock6(t *testing.T) {
	base, err := ParseAddr6("2001:218::")
	require.NoError(t, err)

	b, err := NewBlock6(base, 32)
	require.NoError(t, err)
	assert.Equal(t, "2001:218::/32", b.String())
	assert.Equal(t, netip.MustParsePrefix("2001:218::/32"), b.Prefix())

	last, err := ParseAddr6("2001:218:ffff:ffff:ffff:ffff:ffff:ffff")
	require.NoError(t, err)
	assert.Equal(t, base, b.Range().First())
	assert.Equal(t, last, b.Range().Last())

	host, err := NewBlock6(last, 128)
	require.NoError(t, err)
	assert.Equal(t, host.Range().First(), host.Range().Last())

	all, err := NewBlock6(uint128.Zero, 0)
	require.NoError(t, err)
	assert.Equal(t, uint128.Max, all.Range().Last())

	_, err = NewBlock6(last, 32)
	assert.ErrorIs(t, err, ErrInvalidPrefix)
	_, err = NewBlock6(base, 129)
	assert.ErrorIs(t, err, ErrInvalidPrefix)
}
