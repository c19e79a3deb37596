package runtime

import (
	"fmt"
	"slices"

	"github.com/aretw0/folio/pkg/domain"
)

// applyBatch runs each command against the output of the previous one, collecting the
// compensating inverses. Documents are values, so a failure part-way simply discards
// the intermediate documents: nothing needs unwinding and the caller keeps its input.
func (e *Engine) applyBatch(doc *domain.Document, b domain.Batch) (domain.Result, error) {
	current := doc
	inverses := make([]domain.Command, 0, len(b.Commands))
	structureChanged := false

	for i, cmd := range b.Commands {
		if cmd == nil {
			return domain.Result{}, fmt.Errorf("%w: batch command %d is nil", domain.ErrValidation, i)
		}
		res, err := e.apply(current, cmd)
		if err != nil {
			e.logger.Info("batch aborted", "index", i, "command", cmd.CommandType(), "applied", len(inverses))
			return domain.Result{}, fmt.Errorf("batch command %d (%s): %w", i, cmd.CommandType(), err)
		}
		current = res.Document
		inverses = append(inverses, res.Inverse)
		structureChanged = structureChanged || res.StructureChanged
	}

	// Compensation runs last-in first-out.
	slices.Reverse(inverses)

	return domain.Result{
		Document:         current,
		Inverse:          domain.Batch{Commands: inverses},
		StructureChanged: structureChanged,
	}, nil
}
