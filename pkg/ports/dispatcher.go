package ports

import "github.com/aretw0/folio/pkg/domain"

// CommandDispatcher applies commands to document values.
// Implementations must not modify doc and must return an exact inverse on success.
type CommandDispatcher interface {
	Dispatch(doc *domain.Document, cmd domain.Command) (domain.Result, error)
}
