package metrics

import (
	"testing"
	"time"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/pkg/components"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_Hooks(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	hooks := m.Hooks()
	hooks.OnApplied(&domain.CommandEvent{Command: "InsertNode", Duration: time.Millisecond})
	hooks.OnApplied(&domain.CommandEvent{Command: "InsertNode", Duration: time.Millisecond})
	hooks.OnRejected(&domain.CommandEvent{Command: "MoveNode"})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Commands.WithLabelValues("InsertNode", OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues("MoveNode", OutcomeRejected)))
	assert.Equal(t, 2, testutil.CollectAndCount(m.Duration))
}

func TestMetrics_Editor(t *testing.T) {
	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	ed, err := folio.New(nil, folio.WithHooks(m.Hooks()))
	require.NoError(t, err)
	doc := ed.Document()
	body := doc.Nodes[doc.Root].Slots[0]

	_, err = ed.Dispatch(domain.InsertNode{Slot: body, Type: components.TypeText})
	require.NoError(t, err)
	_, err = ed.Dispatch(domain.RemoveNode{Node: doc.Root})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues(domain.CommandInsertNode, OutcomeApplied)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Commands.WithLabelValues(domain.CommandRemoveNode, OutcomeRejected)))
}

func TestNew_DuplicateRegistration(t *testing.T) {
	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	assert.Error(t, err)
}
