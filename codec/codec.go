// Package codec converts cached values to and from the bytes stored remotely.
//
// Stores hold heterogeneous values, so they work with Codec[any]. The
// Numeric codec is what stores use by default: numbers are written as their
// canonical decimal text (so HINCRBY and friends can operate on them), every
// other value goes through a generic inner codec such as JSON or Msgpack.
package codec

import "errors"

// Codec encodes/decodes values V to []byte for storage.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}

// ErrAmbiguous is returned by Numeric.Encode when the inner codec produced a
// payload for a non-numeric value that would be read back as a number.
var ErrAmbiguous = errors.New("codec: encoded value is indistinguishable from a number")

// Default returns the value codec used by stores when none is configured:
// numeric passthrough over JSON.
func Default() Numeric {
	return Numeric{Inner: JSON[any]{}}
}
