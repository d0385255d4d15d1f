// Package endpoint derives and parses the self-authenticating strings that
// identify a ballot's voting link.
//
// An endpoint is the unpadded URL-safe base64 encoding of the ballot uuid
// followed by SHA-512(created_at || salt || uuid). Only the server knows the
// salt and creation time, so a guessed uuid is useless without the matching
// hash and no voter to link table has to be stored.
package endpoint

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"encoding/binary"
	"errors"
	"math/bits"
	"regexp"

	"github.com/google/uuid"
)

const (
	UUIDSize = 16
	HashSize = sha512.Size
	// Length is the encoded size of UUIDSize+HashSize bytes.
	Length = 107
)

// Pattern matches exactly one endpoint and can be embedded in route patterns.
const Pattern = `[A-Za-z0-9_-]{107}`

var (
	ErrMalformed = errors.New("malformed endpoint")

	fullMatch = regexp.MustCompile(`^` + Pattern + `$`)
)

type Hash [HashSize]byte

// Derive computes the ballot hash from its identity data. created_at is
// written big-endian using the fewest bytes that hold it.
func Derive(id, salt uuid.UUID, createdAt int64) Hash {
	h := sha512.New()
	h.Write(timestampBytes(createdAt))
	h.Write(salt[:])
	h.Write(id[:])

	var out Hash
	copy(out[:], h.Sum(nil))
	return out
}

func Encode(id uuid.UUID, hash Hash) string {
	buf := make([]byte, 0, UUIDSize+HashSize)
	buf = append(buf, id[:]...)
	buf = append(buf, hash[:]...)
	return base64.RawURLEncoding.EncodeToString(buf)
}

// Decode splits an endpoint into its uuid and hash. It only checks the
// encoding; whether the pair belongs to a real ballot is up to the caller.
func Decode(s string) (uuid.UUID, Hash, error) {
	var hash Hash
	if len(s) != Length || !fullMatch.MatchString(s) {
		return uuid.Nil, hash, ErrMalformed
	}

	raw, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil || len(raw) != UUIDSize+HashSize {
		return uuid.Nil, hash, ErrMalformed
	}

	id, err := uuid.FromBytes(raw[:UUIDSize])
	if err != nil {
		return uuid.Nil, hash, ErrMalformed
	}
	copy(hash[:], raw[UUIDSize:])
	return id, hash, nil
}

// Verify compares two hashes in constant time.
func Verify(got, want Hash) bool {
	return subtle.ConstantTimeCompare(got[:], want[:]) == 1
}

func timestampBytes(ts int64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(ts))
	n := (bits.Len64(uint64(ts)) + 7) / 8
	return buf[8-n:]
}
