package codec

import "encoding/json"

// JSON is a Codec backed by encoding/json. Decoding into any yields the usual
// generic shapes: map[string]any, []any, string, bool and float64.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
