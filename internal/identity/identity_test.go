package identity

import (
	"bytes"
	"strings"
	"testing"

	"gotest.tools/v3/assert"
	"pgregory.net/rapid"
)

func TestGenerateDeterministic(t *testing.T) {
	src := bytes.NewReader([]byte{0, 0, 0, 0, 0, 0, 0, 0, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff})
	g := NewGenerator(src)

	assert.Equal(t, g.Generate(), "aaaaaaaaaaaaa")
	assert.Equal(t, g.Generate(), "7777777777776")
}

func TestGenerateShape(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		seed := rapid.SliceOfN(rapid.Byte(), Size, Size).Draw(t, "seed")
		name := NewGenerator(bytes.NewReader(seed)).Generate()

		if len(name) != 13 {
			t.Fatalf("len(%q) = %d, want 13", name, len(name))
		}
		if !valid(name) {
			t.Fatalf("%q is not a valid name", name)
		}
	})
}

func TestGenerateNoCollisions(t *testing.T) {
	g := NewGenerator(nil)
	seen := make(map[string]struct{}, 10000)
	for i := 0; i < 10000; i++ {
		name := g.Generate()
		if _, ok := seen[name]; ok {
			t.Fatalf("collision after %d names: %s", i, name)
		}
		seen[name] = struct{}{}
	}
}

func TestGenerateShortSource(t *testing.T) {
	g := NewGenerator(bytes.NewReader([]byte{1, 2, 3}))
	defer func() {
		assert.Assert(t, recover() != nil)
	}()
	g.Generate()
}

func TestValid(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"aaaaaaaaaaaaa", true},
		{"AAAAAAAAAAAAA", false},
		{"aaaaaaaaaaaa", false},
		{"aaaaaaaaaaaa1", false},
		{"aaaaaaaaaaaa=", false},
	}
	for _, tt := range tests {
		assert.Equal(t, valid(tt.in), tt.want, tt.in)
	}
}

// valid reports whether s has the shape of a generated name.
func valid(s string) bool {
	if len(s) != Len {
		return false
	}
	_, err := encoding.DecodeString(strings.ToUpper(s))
	return err == nil && s == strings.ToLower(s)
}
