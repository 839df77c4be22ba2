package pipecanvas

import (
	"encoding/json"
	"fmt"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/params"
)

// NodeKind identifies the variant of a node's data payload.
type NodeKind string

// Known node kinds. The string values are the wire-format "type" tags.
const (
	KindSignatureField NodeKind = "signature_field"
	KindModule         NodeKind = "module"
	KindLogic          NodeKind = "logic"
	KindRetriever      NodeKind = "retriever"
)

// FieldType is the type of a signature field.
type FieldType string

// Supported signature field types.
const (
	FieldString   FieldType = "str"
	FieldInt      FieldType = "int"
	FieldBool     FieldType = "bool"
	FieldFloat    FieldType = "float"
	FieldStrList  FieldType = "list[str]"
	FieldIntList  FieldType = "list[int]"
	FieldDict     FieldType = "dict"
	FieldDictList FieldType = "list[dict]"
	FieldAny      FieldType = "Any"
)

// ConnectionMode selects how a signature node exposes connection points:
// one aggregate handle for the whole node, or one handle per field.
type ConnectionMode string

// Connection modes for signature nodes.
const (
	ConnectWhole      ConnectionMode = "whole"
	ConnectFieldLevel ConnectionMode = "field_level"
)

// ModuleType selects the reasoning strategy of a module node.
type ModuleType string

// Supported module types.
const (
	ModulePredict        ModuleType = "predict"
	ModuleChainOfThought ModuleType = "chain_of_thought"
	ModuleReAct          ModuleType = "react"
	ModuleBestOfN        ModuleType = "best_of_n"
	ModuleRefine         ModuleType = "refine"
)

// LogicType selects the behavior of a logic node.
type LogicType string

// Supported logic types.
const (
	LogicIfElse        LogicType = "if_else"
	LogicMerge         LogicType = "merge"
	LogicFieldSelector LogicType = "field_selector"
)

// Fixed output handles exposed by if/else logic nodes.
const (
	HandleTrue  = "true"
	HandleFalse = "false"
)

// RetrieverType selects the retrieval backend of a retriever node.
type RetrieverType string

// Supported retriever types.
const (
	RetrieverUnstructured RetrieverType = "unstructured_retrieve"
	RetrieverStructured   RetrieverType = "structured_retrieve"
)

// QueryType selects the vector search strategy for unstructured retrieval.
type QueryType string

// Supported query types.
const (
	QueryHybrid QueryType = "HYBRID"
	QueryANN    QueryType = "ANN"
)

// Retriever defaults.
const (
	DefaultNumResults     = 3
	DefaultScoreThreshold = 0.0
)

// SignatureField is a typed, named input/output slot on a signature node,
// analogous to a function parameter or return value.
type SignatureField struct {
	Name        string    `json:"name"`
	Type        FieldType `json:"type"`
	Description string    `json:"description,omitempty"`
	Required    bool      `json:"required"`
}

// Position is the canvas placement of a node. It is presentation-only and
// never load-bearing for compilation.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NodeData is the tagged union of per-kind node payloads. Exactly one of
// SignatureFieldData, ModuleData, LogicData, or RetrieverData implements it
// per kind.
type NodeData interface {
	// Kind returns the union tag.
	Kind() NodeKind

	// Clone returns a deep copy. Mutating the copy never affects the
	// original; the graph hands out clones so no two callers alias the
	// same payload.
	Clone() NodeData
}

// SignatureFieldData is the payload of a signature node: an ordered set of
// typed fields plus its start/end flags and connection mode.
type SignatureFieldData struct {
	Label          string           `json:"label,omitempty"`
	Fields         []SignatureField `json:"fields"`
	IsStart        bool             `json:"isStart"`
	IsEnd          bool             `json:"isEnd"`
	ConnectionMode ConnectionMode   `json:"connectionMode"`
}

// Kind implements NodeData.
func (d *SignatureFieldData) Kind() NodeKind { return KindSignatureField }

// Clone implements NodeData.
func (d *SignatureFieldData) Clone() NodeData {
	cp := *d
	cp.Fields = make([]SignatureField, len(d.Fields))
	copy(cp.Fields, d.Fields)
	return &cp
}

// Field returns the field with the given name and whether it exists.
func (d *SignatureFieldData) Field(name string) (SignatureField, bool) {
	for _, f := range d.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return SignatureField{}, false
}

// ModuleData is the payload of a module node: a reasoning strategy applied
// against a language model with an instruction.
type ModuleData struct {
	ModuleType  ModuleType `json:"moduleType"`
	Model       string     `json:"model,omitempty"`
	Instruction string     `json:"instruction,omitempty"`
	Parameters  params.Map `json:"parameters,omitempty"`
}

// Kind implements NodeData.
func (d *ModuleData) Kind() NodeKind { return KindModule }

// Clone implements NodeData.
func (d *ModuleData) Clone() NodeData {
	cp := *d
	cp.Parameters = d.Parameters.Clone()
	return &cp
}

// LogicData is the payload of a logic node: branching, merging, or field
// selection between signature nodes.
type LogicData struct {
	LogicType      LogicType         `json:"logicType"`
	Condition      string            `json:"condition,omitempty"`
	SelectedFields []string          `json:"selectedFields,omitempty"`
	FieldMappings  map[string]string `json:"fieldMappings,omitempty"`
	Parameters     params.Map        `json:"parameters,omitempty"`
}

// Kind implements NodeData.
func (d *LogicData) Kind() NodeKind { return KindLogic }

// Clone implements NodeData.
func (d *LogicData) Clone() NodeData {
	cp := *d
	cp.SelectedFields = append([]string(nil), d.SelectedFields...)
	if d.FieldMappings != nil {
		cp.FieldMappings = make(map[string]string, len(d.FieldMappings))
		for k, v := range d.FieldMappings {
			cp.FieldMappings[k] = v
		}
	}
	cp.Parameters = d.Parameters.Clone()
	return &cp
}

// RetrieverData is the payload of a retriever node.
type RetrieverData struct {
	RetrieverType  RetrieverType `json:"retrieverType"`
	CatalogName    string        `json:"catalogName,omitempty"`
	SchemaName     string        `json:"schemaName,omitempty"`
	IndexName      string        `json:"indexName,omitempty"`
	GenieSpaceID   string        `json:"genieSpaceId,omitempty"`
	EmbeddingModel string        `json:"embeddingModel,omitempty"`
	QueryType      QueryType     `json:"queryType,omitempty"`
	NumResults     int           `json:"numResults"`
	ScoreThreshold float64       `json:"scoreThreshold"`
	Parameters     params.Map    `json:"parameters,omitempty"`
}

// Kind implements NodeData.
func (d *RetrieverData) Kind() NodeKind { return KindRetriever }

// Clone implements NodeData.
func (d *RetrieverData) Clone() NodeData {
	cp := *d
	cp.Parameters = d.Parameters.Clone()
	return &cp
}

// Node is one element of the workflow graph.
type Node struct {
	ID       string
	Position Position
	Data     NodeData
}

// Kind returns the node's data kind.
func (n *Node) Kind() NodeKind { return n.Data.Kind() }

// Clone returns a deep copy of the node.
func (n *Node) Clone() *Node {
	return &Node{ID: n.ID, Position: n.Position, Data: n.Data.Clone()}
}

// Edge is a directed connection between two nodes. A handle names a
// specific field on a field-level signature node (or a fixed if/else
// branch); an empty handle means a whole-node connection on that side.
type Edge struct {
	ID           string `json:"id"`
	Source       string `json:"source"`
	Target       string `json:"target"`
	SourceHandle string `json:"sourceHandle,omitempty"`
	TargetHandle string `json:"targetHandle,omitempty"`
	Type         string `json:"type,omitempty"`
}

// nodeJSON is the wire shape of a node: the data payload is a tagged union
// keyed by "type".
type nodeJSON struct {
	ID       string          `json:"id"`
	Type     NodeKind        `json:"type"`
	Position *Position       `json:"position,omitempty"`
	Data     json.RawMessage `json:"data"`
}

// MarshalJSON encodes the node in the wire shape of the workflow format.
func (n *Node) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(n.Data)
	if err != nil {
		return nil, err
	}
	pos := n.Position
	return json.Marshal(nodeJSON{
		ID:       n.ID,
		Type:     n.Kind(),
		Position: &pos,
		Data:     data,
	})
}

// UnmarshalJSON decodes a node from the wire shape, dispatching the data
// payload on the "type" tag.
func (n *Node) UnmarshalJSON(raw []byte) error {
	var nj nodeJSON
	if err := json.Unmarshal(raw, &nj); err != nil {
		return err
	}
	data, err := decodeNodeData(nj.Type, nj.Data)
	if err != nil {
		return fmt.Errorf("node %s: %w", nj.ID, err)
	}
	n.ID = nj.ID
	n.Data = data
	if nj.Position != nil {
		n.Position = *nj.Position
	}
	return nil
}

// decodeNodeData decodes a data payload for the given kind. Parameter bags
// are normalized into the closed value set.
func decodeNodeData(kind NodeKind, raw json.RawMessage) (NodeData, error) {
	if len(raw) == 0 {
		raw = []byte("{}")
	}
	switch kind {
	case KindSignatureField:
		var d SignatureFieldData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		if d.ConnectionMode == "" {
			d.ConnectionMode = ConnectWhole
		}
		return &d, nil
	case KindModule:
		var d ModuleData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		norm, err := params.Normalize(d.Parameters)
		if err != nil {
			return nil, err
		}
		d.Parameters = norm
		return &d, nil
	case KindLogic:
		var d LogicData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		norm, err := params.Normalize(d.Parameters)
		if err != nil {
			return nil, err
		}
		d.Parameters = norm
		return &d, nil
	case KindRetriever:
		var d RetrieverData
		if err := json.Unmarshal(raw, &d); err != nil {
			return nil, err
		}
		if d.QueryType == "" {
			d.QueryType = QueryHybrid
		}
		norm, err := params.Normalize(d.Parameters)
		if err != nil {
			return nil, err
		}
		d.Parameters = norm
		return &d, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownNodeKind, kind)
	}
}

// validateNodeData checks the payload invariants that must hold on every
// insert or update: non-nil payload, unique field names within a signature
// node, and non-negative retriever result counts.
func validateNodeData(data NodeData) error {
	if data == nil {
		return fmt.Errorf("%w: node data is nil", ErrInvalidNodeData)
	}
	switch d := data.(type) {
	case *SignatureFieldData:
		seen := make(map[string]struct{}, len(d.Fields))
		for _, f := range d.Fields {
			if f.Name == "" {
				return fmt.Errorf("%w: field name cannot be empty", ErrInvalidNodeData)
			}
			if _, dup := seen[f.Name]; dup {
				return fmt.Errorf("%w: duplicate field name %q", ErrInvalidNodeData, f.Name)
			}
			seen[f.Name] = struct{}{}
		}
		switch d.ConnectionMode {
		case ConnectWhole, ConnectFieldLevel:
		default:
			return fmt.Errorf("%w: unknown connection mode %q", ErrInvalidNodeData, d.ConnectionMode)
		}
	case *RetrieverData:
		if d.NumResults < 0 {
			return fmt.Errorf("%w: numResults must be >= 0", ErrInvalidNodeData)
		}
	}
	return nil
}
