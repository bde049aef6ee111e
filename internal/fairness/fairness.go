// Package fairness derives the provably fair random stream used by every game.
//
// A round's randomness is HMAC-SHA256 keyed with the server seed over
// "clientSeed:nonce:block". Each 32-byte block yields eight floats of four
// bytes each; further floats come from block+1, block+2 and so on. The server
// publishes SHA-256(serverSeed) before play and reveals the seed on rotation,
// after which anyone can recompute the stream.
package fairness

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
)

const (
	bytesPerFloat = 4
	blockSize     = sha256.Size
)

// ByteGenerator streams HMAC-SHA256 output for one (serverSeed, clientSeed,
// nonce) triple.
type ByteGenerator struct {
	serverSeed string
	clientSeed string
	nonce      int64
	block      uint64
	pos        int
	buffer     [blockSize]byte
}

// NewByteGenerator positions a generator at the given byte cursor.
func NewByteGenerator(serverSeed, clientSeed string, nonce int64, cursor uint64) *ByteGenerator {
	bg := &ByteGenerator{
		serverSeed: serverSeed,
		clientSeed: clientSeed,
		nonce:      nonce,
		block:      cursor / blockSize,
		pos:        int(cursor % blockSize),
	}
	bg.fill()
	return bg
}

// Next returns the next byte of the stream.
func (bg *ByteGenerator) Next() byte {
	if bg.pos >= blockSize {
		bg.block++
		bg.pos = 0
		bg.fill()
	}
	b := bg.buffer[bg.pos]
	bg.pos++
	return b
}

// NextFloat consumes four bytes and returns a value in [0, 1).
func (bg *ByteGenerator) NextFloat() float64 {
	var b [bytesPerFloat]byte
	for i := range b {
		b[i] = bg.Next()
	}
	return bytesToFloat(b)
}

func (bg *ByteGenerator) fill() {
	h := hmac.New(sha256.New, []byte(bg.serverSeed))
	h.Write([]byte(bg.clientSeed))
	h.Write([]byte{':'})
	h.Write(strconv.AppendInt(nil, bg.nonce, 10))
	h.Write([]byte{':'})
	h.Write(strconv.AppendUint(nil, bg.block, 10))
	copy(bg.buffer[:], h.Sum(nil))
}

// bytesToFloat interprets four bytes as base-256 fractional digits. The largest
// possible result is 1 - 2^-32, so the value never reaches 1.
func bytesToFloat(b [bytesPerFloat]byte) float64 {
	result := 0.0
	divider := 1.0
	for _, v := range b {
		divider *= 256
		result += float64(v) / divider
	}
	return result
}

// Floats returns count values in [0, 1) starting at the given byte cursor.
func Floats(serverSeed, clientSeed string, nonce int64, cursor uint64, count int) []float64 {
	if count <= 0 {
		return nil
	}
	bg := NewByteGenerator(serverSeed, clientSeed, nonce, cursor)
	floats := make([]float64, count)
	for i := range floats {
		floats[i] = bg.NextFloat()
	}
	return floats
}

// NextValues is Floats from cursor zero: the sequence a game consumes for one
// round.
func NextValues(serverSeed, clientSeed string, nonce int64, count int) []float64 {
	return Floats(serverSeed, clientSeed, nonce, 0, count)
}

// HashServerSeed returns the public commitment for a server seed.
func HashServerSeed(serverSeed string) string {
	sum := sha256.Sum256([]byte(serverSeed))
	return hex.EncodeToString(sum[:])
}

// VerifyCommitment reports whether serverSeed matches a published hash.
func VerifyCommitment(serverSeed, serverSeedHash string) bool {
	expected := HashServerSeed(serverSeed)
	return hmac.Equal([]byte(expected), []byte(serverSeedHash))
}

// GenerateServerSeed returns 32 random bytes, hex encoded.
func GenerateServerSeed() (string, error) {
	return randomHex(32)
}

// GenerateClientSeed returns 16 random bytes, hex encoded.
func GenerateClientSeed() (string, error) {
	return randomHex(16)
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
