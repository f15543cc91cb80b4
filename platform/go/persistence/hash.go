package persistence

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// canonicalJSON re-encodes raw with object keys sorted and insignificant
// whitespace removed. Number lexemes are kept as written.
func canonicalJSON(raw []byte) ([]byte, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("payload is required to compute hash")
	}

	var doc any
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	// encoding/json writes map keys in sorted order.
	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode json: %w", err)
	}
	return out, nil
}

// PayloadHash returns a deterministic SHA-256 hex digest for a JSON payload.
// Documents differing only in key order or whitespace hash equally.
func PayloadHash(raw []byte) (string, error) {
	canonical, err := canonicalJSON(raw)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}

// PayloadChangedKeys lists the top-level keys whose values differ between
// two JSON objects, including keys present in only one of them. The result
// is sorted.
func PayloadChangedKeys(before, after []byte) ([]string, error) {
	prev, err := topLevel(before)
	if err != nil {
		return nil, err
	}
	next, err := topLevel(after)
	if err != nil {
		return nil, err
	}

	changed := make([]string, 0)
	for key, pv := range prev {
		nv, ok := next[key]
		if !ok {
			changed = append(changed, key)
			continue
		}
		same, err := sameJSON(pv, nv)
		if err != nil {
			return nil, err
		}
		if !same {
			changed = append(changed, key)
		}
	}
	for key := range next {
		if _, ok := prev[key]; !ok {
			changed = append(changed, key)
		}
	}
	sort.Strings(changed)
	return changed, nil
}

func topLevel(raw []byte) (map[string]json.RawMessage, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]json.RawMessage{}, nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("decode json object: %w", err)
	}
	return m, nil
}

func sameJSON(a, b json.RawMessage) (bool, error) {
	ca, err := canonicalJSON(a)
	if err != nil {
		return false, err
	}
	cb, err := canonicalJSON(b)
	if err != nil {
		return false, err
	}
	return bytes.Equal(ca, cb), nil
}
