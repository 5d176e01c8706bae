package cache

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// Encode serializes a cached value with msgpack. Struct fields follow their
// json tags, so anything hidden from API responses (json:"-") never reaches
// the cache either.
func Encode(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	enc.UseCompactInts(true)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode deserializes a value produced by Encode into dst.
func Decode(data []byte, dst any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	dec.SetCustomStructTag("json")
	return dec.Decode(dst)
}
