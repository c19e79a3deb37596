package registry

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// DecodeProps decodes a property bag into a typed struct using "mapstructure" tags.
// Input is weakly typed so that documents read from JSON (float64 numbers, json.Number,
// []any slices) decode into the same struct as documents built in memory.
// A field tagged `mapstructure:",remain"` collects keys the struct does not declare.
func DecodeProps(props map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
	})
	if err != nil {
		return fmt.Errorf("failed to build props decoder: %w", err)
	}
	if err := dec.Decode(props); err != nil {
		return fmt.Errorf("failed to decode props: %w", err)
	}
	return nil
}

// EncodeProps builds a canonical property bag: the declared fields plus any extra keys
// that are not shadowed by them.
func EncodeProps(fields map[string]any, extra map[string]any) map[string]any {
	out := make(map[string]any, len(fields)+len(extra))
	for k, v := range extra {
		if _, declared := fields[k]; !declared {
			out[k] = v
		}
	}
	maps.Copy(out, fields)
	return out
}

// JSONDecoder returns a CommandDecoder that unmarshals a payload into a T value.
func JSONDecoder[T domain.Command]() CommandDecoder {
	return func(payload []byte) (domain.Command, error) {
		var c T
		if err := json.Unmarshal(payload, &c); err != nil {
			return nil, err
		}
		return c, nil
	}
}
