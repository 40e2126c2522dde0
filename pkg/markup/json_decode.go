// SPDX-License-Identifier: MPL-2.0

package markup

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/tidwall/jsonc"

	"github.com/confweave/confweave/pkg/tree"
)

// decodeJSON strips comments and trailing commas, then walks the token
// stream so that object keys keep their order.
func decodeJSON(source string, data []byte) (tree.Value, error) {
	stripped := jsonc.ToJSON(data)
	if len(bytes.TrimSpace(stripped)) == 0 {
		return tree.Null(), nil
	}

	dec := json.NewDecoder(bytes.NewReader(stripped))
	dec.UseNumber()
	v, err := decodeJSONValue(dec)
	if err != nil {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("offset %d: %w", dec.InputOffset(), err)}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Source: source, Err: fmt.Errorf("offset %d: unexpected data after the top-level value", dec.InputOffset())}
	}
	return v, nil
}

func decodeJSONValue(dec *json.Decoder) (tree.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			out := tree.NewMapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, _ := keyTok.(string)
				if out.Has(key) {
					return nil, fmt.Errorf("duplicate key %q", key)
				}
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		case '[':
			out := tree.Sequence{}
			for dec.More() {
				v, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				out = append(out, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return out, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return tree.Int(i), nil
		}
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", t, err)
		}
		return tree.Float(f), nil
	case string:
		return tree.String(t), nil
	case bool:
		return tree.Bool(t), nil
	case nil:
		return tree.Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}
