package codec_test

import (
	"testing"

	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/columns"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/table"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommand_RoundTrip(t *testing.T) {
	reg := components.Builtin()
	tests := []struct {
		name string
		cmd  domain.Command
	}{
		{name: "InsertNode", cmd: domain.InsertNode{Slot: "s1", Index: 2, Type: "text", Props: map[string]any{"content": "hi"}}},
		{name: "RemoveNode", cmd: domain.RemoveNode{Node: "n4"}},
		{name: "UpdateNodeProps", cmd: domain.UpdateNodeProps{Node: "n4", Set: map[string]any{"content": "x"}, Unset: []string{"style"}}},
		{name: "MoveNode", cmd: domain.MoveNode{Node: "n4", Slot: "s2", Index: 0}},
		{name: "Table", cmd: table.MergeTableCells{Node: "t", StartRow: 0, StartCol: 1, EndRow: 1, EndCol: 2}},
		{name: "Columns", cmd: columns.AddColumnSlot{Node: "c", Position: 1}},
		{name: "Nested Batch", cmd: domain.Batch{Commands: []domain.Command{
			domain.RemoveNode{Node: "a"},
			domain.Batch{Commands: []domain.Command{table.SetTableHeaderRows{Node: "t", Count: 1}}},
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := codec.EncodeCommand(tt.cmd)
			require.NoError(t, err)

			got, err := codec.DecodeCommand(reg, data)
			require.NoError(t, err)
			if diff := cmp.Diff(tt.cmd, got); diff != "" {
				t.Errorf("decoded command mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestCommand_EnvelopeShape(t *testing.T) {
	data, err := codec.EncodeCommand(domain.RemoveNode{Node: "n4"})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type": "RemoveNode", "payload": {"nodeId": "n4"}}`, string(data))
}

func TestDecodeCommand_Errors(t *testing.T) {
	reg := components.Builtin()

	_, err := codec.DecodeCommand(reg, []byte(`{"type": "Explode", "payload": {}}`))
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)

	_, err = codec.DecodeCommand(reg, []byte(`{"payload": {}}`))
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)

	_, err = codec.DecodeCommand(reg, []byte(`{"type": "Batch", "payload": {"commands": [{"type": "Nope"}]}}`))
	assert.ErrorIs(t, err, domain.ErrUnknownCommand)

	_, err = codec.DecodeCommand(reg, []byte(`{"type": "RemoveNode", "payload": {"nodeId": 7}}`))
	assert.Error(t, err)
}

func TestDecodeCommands(t *testing.T) {
	reg := components.Builtin()
	want := []domain.Command{
		domain.RemoveNode{Node: "a"},
		table.AddTableRow{Node: "t", Position: 1},
	}

	t.Run("JSON Array", func(t *testing.T) {
		data, err := codec.EncodeCommands(want)
		require.NoError(t, err)
		got, err := codec.DecodeCommands(reg, data, codec.FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("JSON Single Envelope", func(t *testing.T) {
		got, err := codec.DecodeCommands(reg, []byte(`{"type": "RemoveNode", "payload": {"nodeId": "a"},}`), codec.FormatJSON)
		require.NoError(t, err)
		assert.Equal(t, want[:1], got)
	})

	t.Run("YAML", func(t *testing.T) {
		data := []byte(`
- type: RemoveNode
  payload: {nodeId: a}
- type: AddTableRow
  payload:
    nodeId: t
    position: 1
`)
		got, err := codec.DecodeCommands(reg, data, codec.FormatYAML)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("Empty YAML", func(t *testing.T) {
		got, err := codec.DecodeCommands(reg, nil, codec.FormatYAML)
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestUnmarshalValue(t *testing.T) {
	var scope map[string]any
	require.NoError(t, codec.UnmarshalValue([]byte("customer:\n  name: Ada\n"), codec.FormatYAML, &scope))
	assert.Equal(t, map[string]any{"customer": map[string]any{"name": "Ada"}}, scope)

	scope = nil
	require.NoError(t, codec.UnmarshalValue([]byte(`{"paid": true, /* comment */}`), codec.FormatJSON, &scope))
	assert.Equal(t, true, scope["paid"])

	assert.Error(t, codec.UnmarshalValue([]byte(`{`), codec.FormatJSON, &scope))
}
