package volume

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/joshrwolf/shipc/internal/fault"
	"github.com/spf13/pflag"
)

// Volume binds a host path into the container.
type Volume struct {
	Source      string
	Destination string
}

func (v Volume) String() string {
	return v.Source + ":" + v.Destination
}

// Parse reads a volume written as ORIGIN:DESTINATION. Both halves must be
// non-empty and there must be exactly one colon.
func Parse(s string) (Volume, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return Volume{}, fault.UserDetail("volume should be origin:destination", fmt.Sprintf("got %q", s))
	}
	return Volume{Source: parts[0], Destination: parts[1]}, nil
}

// Canonical returns v with its source made absolute and its symlinks
// resolved. The destination is left untouched.
func (v Volume) Canonical() (Volume, error) {
	abs, err := filepath.Abs(v.Source)
	if err != nil {
		return Volume{}, fault.User("invalid volume source", err)
	}
	src, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return Volume{}, fault.User("invalid volume source", err)
	}
	return Volume{Source: src, Destination: v.Destination}, nil
}

// List is a repeatable command-line flag collecting volumes in the order
// given.
type List []Volume

var _ pflag.Value = (*List)(nil)

func (l *List) String() string {
	s := make([]string, len(*l))
	for i, v := range *l {
		s[i] = v.String()
	}
	return "[" + strings.Join(s, ",") + "]"
}

// Set parses and appends one volume.
func (l *List) Set(s string) error {
	v, err := Parse(s)
	if err != nil {
		return err
	}
	*l = append(*l, v)
	return nil
}

func (l *List) Type() string {
	return "origin:destination"
}
