package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"

	"github.com/aretw0/folio/pkg/domain"
	"github.com/aretw0/folio/pkg/registry"
	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"
)

// ErrUnsupportedVersion is returned for documents written by a newer format version.
var ErrUnsupportedVersion = errors.New("unsupported document version")

// Format names a document encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// FormatFromPath picks the format from a file extension. Unknown extensions mean JSON.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	}
	return FormatJSON
}

// Marshal encodes doc in the given format.
func Marshal(doc *domain.Document, format Format) ([]byte, error) {
	if format == FormatYAML {
		return MarshalYAML(doc)
	}
	return MarshalJSON(doc)
}

// Unmarshal decodes a document in the given format.
func Unmarshal(data []byte, format Format) (*domain.Document, error) {
	if format == FormatYAML {
		return UnmarshalYAML(data)
	}
	return UnmarshalJSON(data)
}

// MarshalJSON encodes doc as indented JSON.
func MarshalJSON(doc *domain.Document) ([]byte, error) {
	return json.MarshalIndent(doc, "", "  ")
}

// UnmarshalJSON decodes a document. Comments and trailing commas are accepted.
func UnmarshalJSON(data []byte) (*domain.Document, error) {
	standardized, err := hujson.Standardize(bytes.Clone(data))
	if err != nil {
		return nil, fmt.Errorf("invalid JSON: %w", err)
	}
	var doc domain.Document
	if err := json.Unmarshal(standardized, &doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return finish(&doc)
}

// MarshalYAML encodes doc as YAML.
func MarshalYAML(doc *domain.Document) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// UnmarshalYAML decodes a YAML document.
func UnmarshalYAML(data []byte) (*domain.Document, error) {
	var doc domain.Document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("invalid document: %w", err)
	}
	return finish(&doc)
}

// finish checks the version and restores the canonical empty values the engine relies on.
func finish(doc *domain.Document) (*domain.Document, error) {
	switch {
	case doc.Version == 0:
		doc.Version = domain.FormatVersion
	case doc.Version > domain.FormatVersion:
		return nil, fmt.Errorf("%w: %d (newest known is %d)", ErrUnsupportedVersion, doc.Version, domain.FormatVersion)
	}
	if doc.Root == "" {
		return nil, fmt.Errorf("invalid document: %w: rootNodeId is empty", domain.ErrNodeNotFound)
	}
	if doc.Nodes == nil {
		doc.Nodes = make(map[domain.NodeID]*domain.Node)
	}
	if doc.Slots == nil {
		doc.Slots = make(map[domain.SlotID]*domain.Slot)
	}
	for id, n := range doc.Nodes {
		if n == nil {
			return nil, fmt.Errorf("invalid document: node %s is null", id)
		}
		if n.ID == "" {
			n.ID = id
		}
		if n.Slots == nil {
			n.Slots = []domain.SlotID{}
		}
		if len(n.Props) == 0 {
			n.Props = nil
		}
	}
	for id, s := range doc.Slots {
		if s == nil {
			return nil, fmt.Errorf("invalid document: slot %s is null", id)
		}
		if s.ID == "" {
			s.ID = id
		}
		if s.Children == nil {
			s.Children = []domain.NodeID{}
		}
	}
	return doc, nil
}

// Normalize returns doc with every node's props in the canonical form of its component.
// Nodes whose props are already canonical are shared with doc.
func Normalize(reg *registry.Registry, doc *domain.Document) (*domain.Document, error) {
	tx := domain.Begin(doc)
	for id, n := range doc.Nodes {
		comp, err := reg.Lookup(n.Type)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		props, err := comp.Normalize(n.Props)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", id, err)
		}
		if reflect.DeepEqual(n.Props, props) {
			continue
		}
		c := n.Clone()
		c.Props = props
		tx.PutNode(c)
	}
	return tx.Commit(), nil
}
