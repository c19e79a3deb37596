package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/aretw0/folio"
	"github.com/aretw0/folio/internal/presentation/tui"
	"github.com/aretw0/folio/pkg/codec"
	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/outline"
	"github.com/aretw0/folio/pkg/ports"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/aretw0/folio/pkg/validate"
	"github.com/natefinch/atomic"
)

// ErrFileExists is returned by NewFile when the target exists and overwrite is off.
var ErrFileExists = errors.New("file already exists")

// ReadDocument decodes a document file (format by extension), then normalizes and
// validates it against reg.
func ReadDocument(reg *registry.Registry, path string) (*domain.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	doc, err := codec.Unmarshal(data, codec.FormatFromPath(path))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	doc, err = codec.Normalize(reg, doc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if err := validate.Document(reg, doc); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return doc, nil
}

// WriteDocument encodes doc by the extension of path and replaces the file atomically.
func WriteDocument(path string, doc *domain.Document) error {
	data, err := codec.Marshal(doc, codec.FormatFromPath(path))
	if err != nil {
		return err
	}
	return atomic.WriteFile(path, bytes.NewReader(data))
}

// NewFile writes an empty document to path.
func NewFile(reg *registry.Registry, path string, overwrite bool) (*domain.Document, error) {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return nil, fmt.Errorf("%w: %s", ErrFileExists, path)
		}
	}
	doc, err := folio.NewDocument(reg, nil)
	if err != nil {
		return nil, err
	}
	return doc, WriteDocument(path, doc)
}

// ApplyResult summarizes an apply run.
type ApplyResult struct {
	Document *domain.Document
	Applied  int
	Diff     *domain.DocumentDiff
}

// Apply reads the commands file and applies its commands to doc as one batch.
// Either all commands apply or an error is returned.
func Apply(reg *registry.Registry, doc *domain.Document, commandsPath string, opts ...folio.Option) (ApplyResult, error) {
	data, err := os.ReadFile(commandsPath)
	if err != nil {
		return ApplyResult{}, err
	}
	cmds, err := codec.DecodeCommands(reg, data, codec.FormatFromPath(commandsPath))
	if err != nil {
		return ApplyResult{}, fmt.Errorf("%s: %w", commandsPath, err)
	}
	if len(cmds) == 0 {
		return ApplyResult{Document: doc}, nil
	}

	ed, err := folio.New(doc, append([]folio.Option{folio.WithRegistry(reg)}, opts...)...)
	if err != nil {
		return ApplyResult{}, err
	}
	if _, err := ed.Batch(cmds...); err != nil {
		return ApplyResult{}, err
	}
	return ApplyResult{
		Document: ed.Document(),
		Applied:  len(cmds),
		Diff:     domain.Diff(doc, ed.Document()),
	}, nil
}

// PrintValidation reports the outcome of validating each file and returns how many failed.
func PrintValidation(w io.Writer, reg *registry.Registry, paths []string) int {
	failed := 0
	for _, path := range paths {
		_, err := ReadDocument(reg, path)
		if err == nil {
			tui.Status(w, true, path+" is valid")
			continue
		}
		failed++
		issues := validate.Issues(err)
		if len(issues) == 0 {
			tui.Status(w, false, err.Error())
			continue
		}
		tui.Status(w, false, fmt.Sprintf("%s: %d issue(s)", path, len(issues)))
		for _, issue := range issues {
			fmt.Fprintf(w, "    %v\n", issue)
		}
	}
	return failed
}

// PrintOutline writes the outline of doc, styled on a terminal.
func PrintOutline(w io.Writer, doc *domain.Document) error {
	md, err := outline.Markdown(doc)
	if err != nil {
		return err
	}
	return tui.RenderMarkdown(w, md)
}

// PrintPreview writes the rendered text of doc for the data scope in scopePath (JSON or
// YAML). Without a scope file every conditional shows and loops render once.
func PrintPreview(ctx context.Context, w io.Writer, doc *domain.Document, scopePath string) error {
	var eval ports.Evaluator
	scope := map[string]any{}
	if scopePath != "" {
		data, err := os.ReadFile(scopePath)
		if err != nil {
			return err
		}
		if err := codec.UnmarshalValue(data, codec.FormatFromPath(scopePath), &scope); err != nil {
			return fmt.Errorf("%s: %w", scopePath, err)
		}
		eval = outline.PathEvaluator{}
	}
	text, err := outline.Preview(ctx, doc, eval, scope)
	if err != nil {
		return err
	}
	_, err = io.WriteString(w, text)
	return err
}
