package repo

import (
	"encoding/json"
	"fmt"

	"github.com/grovekit/grove/internal/content"
)

// encodeValue serializes a property value for the properties table.
//
// Scalars store their literal text form (content.Format). Lists store a
// JSON array of literal element texts with plural=1; the element type goes
// in the type column. Round-tripping relies on Format and Parse being
// inverses for every scalar type.
func encodeValue(v content.Value) (typ string, plural bool, raw string, err error) {
	if list, ok := v.(content.ListValue); ok {
		elems := make([]string, len(list))
		for i, e := range list {
			elems[i] = content.Format(e)
		}
		data, err := json.Marshal(elems)
		if err != nil {
			return "", false, "", fmt.Errorf("marshal list property: %w", err)
		}
		return string(content.TypeOf(v)), true, string(data), nil
	}
	return string(content.TypeOf(v)), false, content.Format(v), nil
}

// decodeValue is the inverse of encodeValue.
func decodeValue(typ string, plural bool, raw string) (content.Value, error) {
	vt, err := content.ParseValueType(typ)
	if err != nil {
		return nil, err
	}

	if !plural {
		return vt.Parse(raw)
	}

	var elems []string
	if err := json.Unmarshal([]byte(raw), &elems); err != nil {
		return nil, fmt.Errorf("unmarshal list property: %w", err)
	}
	list := make(content.ListValue, 0, len(elems))
	for _, e := range elems {
		v, err := vt.Parse(e)
		if err != nil {
			return nil, err
		}
		list = append(list, v)
	}
	return list, nil
}
