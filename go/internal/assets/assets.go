// Package assets bundles the default player catalog into the binary.
package assets

import _ "embed"

//go:embed players.json
var Players []byte
