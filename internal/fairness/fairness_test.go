package fairness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFloatsGoldenVector(t *testing.T) {
	got := NextValues("server-seed", "client-seed", 1, 3)
	want := []float64{0.6646030934061855, 0.194812404923141, 0.7549132576677948}

	require.Len(t, got, 3)
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-15, "float %d", i)
	}
}

func TestFloatsDeterministic(t *testing.T) {
	a := NextValues("s", "c", 42, 16)
	b := NextValues("s", "c", 42, 16)
	assert.Equal(t, a, b)

	c := NextValues("s", "c", 43, 16)
	assert.NotEqual(t, a, c, "different nonces must give different streams")

	d := NextValues("s", "other", 42, 16)
	assert.NotEqual(t, a, d, "different client seeds must give different streams")
}

func TestFloatsRange(t *testing.T) {
	for nonce := int64(0); nonce < 200; nonce++ {
		for i, f := range NextValues("range-server", "range-client", nonce, 12) {
			if f < 0 || f >= 1 {
				t.Fatalf("nonce %d float %d out of range: %v", nonce, i, f)
			}
		}
	}
}

func TestFloatsCursorContinuity(t *testing.T) {
	all := Floats("s", "c", 7, 0, 20)

	// cursor 4 starts at the second float
	assert.Equal(t, all[1:3], Floats("s", "c", 7, 4, 2))

	// the ninth float comes from the second HMAC block
	assert.Equal(t, all[8], Floats("s", "c", 7, 32, 1)[0])

	// a float straddling a block boundary
	assert.Len(t, Floats("s", "c", 7, 30, 2), 2)
}

func TestFloatsZeroCount(t *testing.T) {
	assert.Nil(t, Floats("s", "c", 0, 0, 0))
}

func TestBytesToFloatBounds(t *testing.T) {
	assert.Equal(t, 0.0, bytesToFloat([4]byte{0, 0, 0, 0}))
	assert.Less(t, bytesToFloat([4]byte{255, 255, 255, 255}), 1.0)
	assert.Equal(t, 0.5, bytesToFloat([4]byte{128, 0, 0, 0}))
}

func TestServerSeedCommitment(t *testing.T) {
	assert.Equal(t,
		"91024ec49c5bec0b689e42892526320fce08337205c91de94c7a588c20d08eeb",
		HashServerSeed("server-seed"))

	assert.True(t, VerifyCommitment("server-seed", HashServerSeed("server-seed")))
	assert.False(t, VerifyCommitment("server-seed2", HashServerSeed("server-seed")))
}

func TestGenerateSeeds(t *testing.T) {
	server, err := GenerateServerSeed()
	require.NoError(t, err)
	assert.Len(t, server, 64)

	client, err := GenerateClientSeed()
	require.NoError(t, err)
	assert.Len(t, client, 32)

	other, err := GenerateServerSeed()
	require.NoError(t, err)
	assert.NotEqual(t, server, other)
}
