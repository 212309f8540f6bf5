package storage

import (
	"bytes"
	"encoding/json"
	"sort"
)

// objectKeys returns the top-level keys of a JSON object in file order.
// It returns nil when data is not an object.
func objectKeys[K ~string](data []byte) []K {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil || tok != json.Delim('{') {
		return nil
	}
	var keys []K
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return keys
		}
		key, ok := tok.(string)
		if !ok {
			return keys
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return keys
		}
		keys = append(keys, K(key))
	}
	return keys
}

// orderKeys lists the keys of m: those in order first, as they appear there,
// then the rest sorted.
func orderKeys[K ~string, V any](m map[K]V, order []K) []K {
	keys := make([]K, 0, len(m))
	seen := make(map[K]bool, len(m))
	for _, k := range order {
		if _, ok := m[k]; ok && !seen[k] {
			keys = append(keys, k)
			seen[k] = true
		}
	}
	rest := len(keys)
	for k := range m {
		if !seen[k] {
			keys = append(keys, k)
		}
	}
	sort.Slice(keys[rest:], func(i, j int) bool { return keys[rest+i] < keys[rest+j] })
	return keys
}

// marshalObject encodes m like Marshal does, with its keys in the given order.
func marshalObject[K ~string, V any](m map[K]V, keys []K) ([]byte, error) {
	if len(keys) == 0 {
		return []byte("{}"), nil
	}
	var buf bytes.Buffer
	buf.WriteString("{\n")
	for i, k := range keys {
		name, err := Marshal(string(k))
		if err != nil {
			return nil, err
		}
		value, err := marshalIndented(m[k], "    ")
		if err != nil {
			return nil, err
		}
		buf.WriteString("    ")
		buf.Write(name)
		buf.WriteString(": ")
		buf.Write(value)
		if i < len(keys)-1 {
			buf.WriteByte(',')
		}
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func marshalIndented(v any, prefix string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent(prefix, "    ")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
