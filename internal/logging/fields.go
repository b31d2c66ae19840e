package logging

import (
	"time"

	"github.com/rtpatchbay/enginecore/sdk/contracts"
)

// simpleField is the dependency-free contracts.Field used by the
// Standard backend: each call returns a fresh value rather than
// accumulating state, mirroring the teacher's original simpleField.
type simpleField struct {
	key   string
	value any
}

func (simpleField) Bool(key string, val bool) contracts.Field         { return simpleField{key, val} }
func (simpleField) Int(key string, val int) contracts.Field           { return simpleField{key, val} }
func (simpleField) Uint32(key string, val uint32) contracts.Field     { return simpleField{key, val} }
func (simpleField) Uint64(key string, val uint64) contracts.Field     { return simpleField{key, val} }
func (simpleField) Uint8(key string, val uint8) contracts.Field       { return simpleField{key, val} }
func (simpleField) Float64(key string, val float64) contracts.Field   { return simpleField{key, val} }
func (simpleField) String(key string, val string) contracts.Field     { return simpleField{key, val} }
func (simpleField) Duration(key string, val time.Duration) contracts.Field {
	return simpleField{key, val}
}
func (simpleField) Error(key string, val error) contracts.Field { return simpleField{key, val} }
