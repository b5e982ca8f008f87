// Package cachekey derives canonical cache keys for SUT and annotator
// requests (spec.md §4.11).
//
// The original implementation keys the SUT/annotator cache on
// `request.model_dump_json(exclude_none=True)`: a canonical JSON
// serialisation of the translated request with null fields omitted. This
// package reproduces that behavior for arbitrary Go values by marshalling
// to JSON, dropping null fields during unmarshal into a
// map[string]any, and re-marshalling with sorted keys (encoding/json
// already sorts map keys on marshal, giving a stable byte sequence for
// equal logical values regardless of struct field order).
package cachekey

import (
	"encoding/json"
	"fmt"
)

// ForRequest returns the canonical-JSON cache key for a translated
// SUT/annotator request, excluding null fields, combined with the given
// discriminators (e.g. sut_uid, prompt options) the way spec.md §4.5
// describes: "canonical-JSON of request (excluding null fields) ⊕
// sut_uid ⊕ SUT options".
func ForRequest(request any, discriminators ...string) (string, error) {
	canon, err := canonicalize(request)
	if err != nil {
		return "", fmt.Errorf("cachekey: canonicalizing request: %w", err)
	}
	key := canon
	for _, d := range discriminators {
		key += "\x00" + d
	}
	return key, nil
}

// canonicalize produces a deterministic JSON encoding of v with null and
// absent fields omitted, regardless of the concrete Go type of v.
func canonicalize(v any) (string, error) {
	if s, ok := v.(string); ok {
		// Some annotator requests are already raw strings (spec.md §4.6);
		// a string cache key needs no further canonicalization.
		return s, nil
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return "", err
	}
	pruned := pruneNulls(generic)

	out, err := json.Marshal(pruned)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// pruneNulls recursively removes nil map values, matching
// `exclude_none=True` in the original implementation. Slices and scalars
// pass through unchanged; encoding/json's map marshalling already emits
// keys in sorted order, so the result is canonical.
func pruneNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = pruneNulls(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = pruneNulls(val)
		}
		return out
	default:
		return v
	}
}
