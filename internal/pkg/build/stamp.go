// Copyright The OpenTelemetry Authors
// SPDX-License-Identifier: Apache-2.0

package build

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"slices"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/afero"
)

// StampFile is written next to a built library. It records what the library
// was built from so an unchanged schema is not rebuilt.
const StampFile = "usdt.stamp.json"

var stampJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Stamp describes a built library.
type Stamp struct {
	SchemaSHA256 string   `json:"schema_sha256"`
	Generator    string   `json:"generator"`
	Platform     string   `json:"platform"`
	Library      string   `json:"library"`
	// Symbols are the symbols the library exports. They change with the
	// provider selection even when the schema does not.
	Symbols []string `json:"symbols"`
	// Toolchain holds the tools and flags the library was built with.
	Toolchain []string `json:"toolchain"`
	// Machine is the hardware name of the building host.
	Machine string `json:"machine"`
	// Host is the uname summary of the building host. Informational only.
	Host string `json:"host,omitempty"`
}

// matches reports whether s and o describe the same build inputs.
func (s Stamp) matches(o Stamp) bool {
	return s.SchemaSHA256 == o.SchemaSHA256 &&
		s.Generator == o.Generator &&
		s.Platform == o.Platform &&
		s.Library == o.Library &&
		s.Machine == o.Machine &&
		slices.Equal(s.Symbols, o.Symbols) &&
		slices.Equal(s.Toolchain, o.Toolchain)
}

func schemaHash(src []byte) string {
	sum := sha256.Sum256(src)
	return hex.EncodeToString(sum[:])
}

// readStamp returns the stamp stored in dir. A missing stamp is not an
// error: ok is false.
func readStamp(fsys afero.Fs, dir string) (s Stamp, ok bool, err error) {
	data, err := afero.ReadFile(fsys, filepath.Join(dir, StampFile))
	if os.IsNotExist(err) {
		return Stamp{}, false, nil
	}
	if err != nil {
		return Stamp{}, false, err
	}
	if err := stampJSON.Unmarshal(data, &s); err != nil {
		return Stamp{}, false, err
	}
	return s, true, nil
}

func writeStamp(fsys afero.Fs, dir string, s Stamp) error {
	data, err := stampJSON.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	dest := filepath.Join(dir, StampFile)
	tmp := dest + ".tmp"
	if err := afero.WriteFile(fsys, tmp, append(data, '\n'), 0o644); err != nil {
		return err
	}
	if err := fsys.Rename(tmp, dest); err != nil {
		_ = fsys.Remove(tmp)
		return err
	}
	return nil
}
