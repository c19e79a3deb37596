package codec

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// Envelope is the wire form of a command.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type batchPayload struct {
	Commands []Envelope `json:"commands"`
}

// Wrap builds the envelope of cmd.
func Wrap(cmd domain.Command) (Envelope, error) {
	if cmd == nil {
		return Envelope{}, fmt.Errorf("%w: nil command", domain.ErrUnknownCommand)
	}
	var (
		payload []byte
		err     error
	)
	if b, ok := cmd.(domain.Batch); ok {
		var bp batchPayload
		bp.Commands = make([]Envelope, 0, len(b.Commands))
		for i, c := range b.Commands {
			env, err := Wrap(c)
			if err != nil {
				return Envelope{}, fmt.Errorf("batch command %d: %w", i, err)
			}
			bp.Commands = append(bp.Commands, env)
		}
		payload, err = json.Marshal(bp)
	} else {
		payload, err = json.Marshal(cmd)
	}
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to encode %s: %w", cmd.CommandType(), err)
	}
	return Envelope{Type: cmd.CommandType(), Payload: payload}, nil
}

// Unwrap decodes the command carried by env. Generic commands and Batch are decoded
// here; everything else goes to the decoder its component registered.
func Unwrap(reg *registry.Registry, env Envelope) (domain.Command, error) {
	payload := env.Payload
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	var (
		cmd domain.Command
		err error
	)
	switch env.Type {
	case domain.CommandInsertNode:
		cmd, err = registry.JSONDecoder[domain.InsertNode]()(payload)
	case domain.CommandRemoveNode:
		cmd, err = registry.JSONDecoder[domain.RemoveNode]()(payload)
	case domain.CommandUpdateNodeProps:
		cmd, err = registry.JSONDecoder[domain.UpdateNodeProps]()(payload)
	case domain.CommandMoveNode:
		cmd, err = registry.JSONDecoder[domain.MoveNode]()(payload)
	case domain.CommandBatch:
		return unwrapBatch(reg, payload)
	default:
		dec, ok := reg.Decoder(env.Type)
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrUnknownCommand, env.Type)
		}
		cmd, err = dec(payload)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", env.Type, err)
	}
	return cmd, nil
}

func unwrapBatch(reg *registry.Registry, payload []byte) (domain.Command, error) {
	var bp batchPayload
	if err := json.Unmarshal(payload, &bp); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", domain.CommandBatch, err)
	}
	b := domain.Batch{Commands: make([]domain.Command, 0, len(bp.Commands))}
	for i, env := range bp.Commands {
		c, err := Unwrap(reg, env)
		if err != nil {
			return nil, fmt.Errorf("batch command %d: %w", i, err)
		}
		b.Commands = append(b.Commands, c)
	}
	return b, nil
}

// EncodeCommand returns the JSON envelope of cmd.
func EncodeCommand(cmd domain.Command) ([]byte, error) {
	env, err := Wrap(cmd)
	if err != nil {
		return nil, err
	}
	return json.Marshal(env)
}

// DecodeCommand reads a single JSON envelope.
func DecodeCommand(reg *registry.Registry, data []byte) (domain.Command, error) {
	standardized, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	var env Envelope
	if err := json.Unmarshal(standardized, &env); err != nil {
		return nil, fmt.Errorf("invalid command envelope: %w", err)
	}
	if env.Type == "" {
		return nil, fmt.Errorf("%w: envelope has no type", domain.ErrUnknownCommand)
	}
	return Unwrap(reg, env)
}

// EncodeCommands returns a JSON array of envelopes.
func EncodeCommands(cmds []domain.Command) ([]byte, error) {
	envs := make([]Envelope, 0, len(cmds))
	for i, c := range cmds {
		env, err := Wrap(c)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		envs = append(envs, env)
	}
	return json.MarshalIndent(envs, "", "  ")
}

// DecodeCommands reads a list of envelopes. format selects JSON (a single envelope or
// an array) or YAML (a sequence of {type, payload} mappings).
func DecodeCommands(reg *registry.Registry, data []byte, format Format) ([]domain.Command, error) {
	var (
		standardized []byte
		err          error
	)
	if format == FormatYAML {
		standardized, err = yamlToJSON(data)
	} else {
		standardized, err = hujson.Standardize(bytes.Clone(data))
	}
	if err != nil {
		return nil, fmt.Errorf("invalid command list: %w", err)
	}

	trimmed := bytes.TrimSpace(standardized)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		cmd, err := DecodeCommand(reg, trimmed)
		if err != nil {
			return nil, err
		}
		return []domain.Command{cmd}, nil
	}

	var envs []Envelope
	if err := json.Unmarshal(trimmed, &envs); err != nil {
		return nil, fmt.Errorf("invalid command list: %w", err)
	}
	cmds := make([]domain.Command, 0, len(envs))
	for i, env := range envs {
		c, err := Unwrap(reg, env)
		if err != nil {
			return nil, fmt.Errorf("command %d: %w", i, err)
		}
		cmds = append(cmds, c)
	}
	return cmds, nil
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v)
}

// UnmarshalValue decodes free-form data, such as a preview scope, in the given format.
func UnmarshalValue(data []byte, format Format, v any) error {
	if format == FormatYAML {
		return yaml.Unmarshal(data, v)
	}
	standardized, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return json.Unmarshal(standardized, v)
}
