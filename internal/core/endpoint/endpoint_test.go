package endpoint

import (
	"crypto/sha512"
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDerive_MatchesDefinition(t *testing.T) {
	id := uuid.New()
	salt := uuid.New()
	createdAt := int64(1700000000) // 0x6553F100

	var buf []byte
	buf = append(buf, 0x65, 0x53, 0xF1, 0x00)
	buf = append(buf, salt[:]...)
	buf = append(buf, id[:]...)
	want := sha512.Sum512(buf)

	assert.Equal(t, Hash(want), Derive(id, salt, createdAt))
}

func TestTimestampBytes(t *testing.T) {
	assert.Empty(t, timestampBytes(0))
	assert.Equal(t, []byte{0x01}, timestampBytes(1))
	assert.Equal(t, []byte{0x01, 0x00}, timestampBytes(256))
	assert.Equal(t, []byte{0x65, 0x53, 0xF1, 0x00}, timestampBytes(1700000000))
}

func TestEncodeDecode_RoundTrip(t *testing.T) {
	for i := 0; i < 50; i++ {
		id := uuid.New()
		hash := Derive(id, uuid.New(), time.Now().Unix()+int64(i))

		s := Encode(id, hash)
		require.Len(t, s, Length)
		assert.Regexp(t, "^"+Pattern+"$", s)
		assert.NotContains(t, s, "=")

		gotID, gotHash, err := Decode(s)
		require.NoError(t, err)
		assert.Equal(t, id, gotID)
		assert.Equal(t, hash, gotHash)
	}
}

func TestDecode_MatchesPaddedDecoding(t *testing.T) {
	id := uuid.New()
	hash := Derive(id, uuid.New(), 42)
	s := Encode(id, hash)

	raw, err := base64.URLEncoding.DecodeString(s + "=")
	require.NoError(t, err)
	assert.Equal(t, id[:], raw[:UUIDSize])
	assert.Equal(t, hash[:], raw[UUIDSize:])
}

func TestDecode_Malformed(t *testing.T) {
	valid := Encode(uuid.New(), Derive(uuid.New(), uuid.New(), 1))

	cases := map[string]string{
		"empty":        "",
		"too short":    valid[:Length-1],
		"too long":     valid + "A",
		"padding":      valid[:Length-1] + "=",
		"std alphabet": strings.Repeat("+", Length),
		"whitespace":   " " + valid[1:],
	}
	for name, s := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := Decode(s)
			assert.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestVerify(t *testing.T) {
	id, salt := uuid.New(), uuid.New()
	hash := Derive(id, salt, 1234)

	assert.True(t, Verify(hash, Derive(id, salt, 1234)))
	assert.False(t, Verify(hash, Derive(id, salt, 1235)))
	assert.False(t, Verify(hash, Derive(id, uuid.New(), 1234)))
	assert.False(t, Verify(hash, Derive(uuid.New(), salt, 1234)))

	for i := 0; i < HashSize; i++ {
		flipped := hash
		flipped[i] ^= 0x01
		assert.False(t, Verify(flipped, hash), "byte %d", i)
	}
}
