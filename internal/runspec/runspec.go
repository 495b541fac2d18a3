// Package runspec edits the runtime specification document (config.json) of
// an unpacked bundle.
//
// The document is handled as a generic JSON tree rather than a typed
// specs.Spec so that fields this package does not know about survive the
// rewrite. Only hostname and mounts are touched. Key order and formatting of
// the rest of the document are not preserved.
package runspec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/joshrwolf/shipc/internal/fault"
	"github.com/joshrwolf/shipc/internal/volume"
	specs "github.com/opencontainers/runtime-spec/specs-go"
)

// Mount options for every volume: recursive bind, read-write.
var bindOptions = []string{"rbind", "rw"}

// Document is a parsed runtime specification. Numbers are kept as
// json.Number so they are written back exactly as read.
type Document map[string]any

// Load reads and parses the document at path.
func Load(path string) (Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fault.Internal("invalid bundle spec", err)
	}
	return Parse(data)
}

// Parse decodes a document. Anything but a single JSON object is rejected.
func Parse(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fault.Internal("invalid bundle spec", err)
	}
	if dec.More() {
		return nil, fault.Internal("invalid bundle spec", fmt.Errorf("trailing data after document"))
	}
	if doc == nil {
		return nil, fault.Internal("invalid bundle spec", fmt.Errorf("document is not an object"))
	}
	return doc, nil
}

// SetHostname replaces the hostname. The field must already exist.
func (d Document) SetHostname(name string) error {
	if _, ok := d["hostname"]; !ok {
		return fault.Internal("invalid bundle spec", fmt.Errorf("missing hostname"))
	}
	d["hostname"] = name
	return nil
}

// AppendMounts adds one bind mount per volume, in order, after the existing
// mounts. Volume sources are canonicalized; destinations are used as given.
func (d Document) AppendMounts(vols []volume.Volume) error {
	raw, ok := d["mounts"]
	if !ok {
		return fault.Internal("invalid bundle spec", fmt.Errorf("missing mounts"))
	}
	mounts, ok := raw.([]any)
	if !ok {
		return fault.Internal("invalid bundle spec", fmt.Errorf("mounts is not a list"))
	}

	for _, v := range vols {
		c, err := v.Canonical()
		if err != nil {
			return err
		}
		mounts = append(mounts, specs.Mount{
			Destination: c.Destination,
			Type:        "bind",
			Source:      c.Source,
			Options:     append([]string(nil), bindOptions...),
		})
	}
	d["mounts"] = mounts
	return nil
}

// Marshal renders the document as indented JSON.
func (d Document) Marshal() ([]byte, error) {
	data, err := json.MarshalIndent(d, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// Write overwrites path with the document.
func (d Document) Write(path string) error {
	data, err := d.Marshal()
	if err != nil {
		return fault.Internal("cannot encode bundle spec", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fault.Internal("cannot write bundle spec", err)
	}
	return nil
}

// Mutate sets the hostname and appends the volume mounts of the document at
// path, then writes it back in place.
func Mutate(path, hostname string, vols []volume.Volume) error {
	doc, err := Load(path)
	if err != nil {
		return err
	}
	if err := doc.SetHostname(hostname); err != nil {
		return err
	}
	if err := doc.AppendMounts(vols); err != nil {
		return err
	}
	return doc.Write(path)
}
