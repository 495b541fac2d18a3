// Package identity generates container names.
//
// A name is Size random bytes in unpadded base-32, lower-cased: short enough
// to type, long enough that collisions between concurrent runs are not a
// practical concern. The same name is used as the container hostname and as
// the runtime instance name.
package identity

import (
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"io"
	"strings"
)

// Size is the number of random bytes in a name.
const Size = 8

// Len is the length of an encoded name.
var Len = encoding.EncodedLen(Size)

var encoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// Generator draws names from a random source.
type Generator struct {
	rand io.Reader
}

// NewGenerator returns a Generator reading from r, or from crypto/rand when r
// is nil.
func NewGenerator(r io.Reader) *Generator {
	if r == nil {
		r = rand.Reader
	}
	return &Generator{rand: r}
}

// Generate returns a fresh name. It panics if the random source fails.
func (g *Generator) Generate() string {
	var b [Size]byte
	if _, err := io.ReadFull(g.rand, b[:]); err != nil {
		panic(fmt.Sprintf("identity: reading random source: %v", err))
	}
	return strings.ToLower(encoding.EncodeToString(b[:]))
}
