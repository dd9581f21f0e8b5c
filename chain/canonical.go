package chain

import (
	"bytes"
	"encoding/json"
)

// field is one key/value pair of a canonical JSON object.
type field struct {
	key string
	val any
}

// marshalCanonical emits {"k1":v1,"k2":v2,...} with keys in exactly the
// order given (callers are responsible for lexicographic ordering) and
// compact separators, matching json.Marshal's default (no indentation).
//
// A generic approach — round-tripping through map[string]any, which
// encoding/json already key-sorts on marshal — was considered and
// rejected: unmarshaling a JSON number into interface{} always produces
// float64, which risks silently losing precision on a large nonce or
// timestamp when re-encoded. Hashing the header is exactly the place
// where that silent loss would be worst, so this package builds the
// canonical object by hand from a small, fixed field list instead.
func marshalCanonical(fields []field) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyJSON, err := json.Marshal(f.key)
		if err != nil {
			return nil, err
		}
		buf.Write(keyJSON)
		buf.WriteByte(':')
		valJSON, err := json.Marshal(f.val)
		if err != nil {
			return nil, err
		}
		buf.Write(valJSON)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
