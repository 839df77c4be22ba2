package pipecanvas

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/event"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/params"
)

// Shared payload fixtures used across the package tests.

func predictData() *ModuleData {
	return &ModuleData{
		ModuleType:  ModulePredict,
		Model:       "test-model",
		Instruction: "Answer the {question}.",
		Parameters:  params.Map{},
	}
}

func endSignatureData() *SignatureFieldData {
	return &SignatureFieldData{
		Label: "Output",
		Fields: []SignatureField{
			{Name: "answer", Type: FieldString, Required: true},
		},
		IsEnd:          true,
		ConnectionMode: ConnectWhole,
	}
}

func intermediateSignatureData(fields ...SignatureField) *SignatureFieldData {
	return &SignatureFieldData{
		Label:          "Fields",
		Fields:         fields,
		ConnectionMode: ConnectFieldLevel,
	}
}

// TestNew_DefaultStartNode verifies the reserved start node a fresh graph
// carries.
func TestNew_DefaultStartNode(t *testing.T) {
	g := New()

	nodes := g.Nodes()
	require.Len(t, nodes, 1)

	start := nodes[0]
	assert.Equal(t, g.StartNodeID(), start.ID)
	assert.True(t, strings.HasPrefix(start.ID, "node-"))

	sig, ok := start.Data.(*SignatureFieldData)
	require.True(t, ok)
	assert.True(t, sig.IsStart)
	assert.False(t, sig.IsEnd)
	assert.Equal(t, ConnectFieldLevel, sig.ConnectionMode)
	assert.Equal(t, "Input", sig.Label)

	require.Len(t, sig.Fields, 2)
	question, ok := sig.Field("question")
	require.True(t, ok)
	assert.Equal(t, FieldString, question.Type)
	assert.True(t, question.Required)

	history, ok := sig.Field("history")
	require.True(t, ok)
	assert.Equal(t, FieldDictList, history.Type)
	assert.False(t, history.Required)
}

// TestNew_WithoutHistoryField verifies the history field can be disabled.
func TestNew_WithoutHistoryField(t *testing.T) {
	g := New(WithHistoryField(false))

	start, ok := g.Node(g.StartNodeID())
	require.True(t, ok)
	sig := start.Data.(*SignatureFieldData)
	require.Len(t, sig.Fields, 1)
	assert.Equal(t, "question", sig.Fields[0].Name)
}

// TestGraph_AddNode tests node insertion with a generated id.
func TestGraph_AddNode(t *testing.T) {
	g := New()

	id, err := g.AddNode(predictData(), Position{X: 100, Y: 50})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(id, "node-"))

	n, ok := g.Node(id)
	require.True(t, ok)
	assert.Equal(t, KindModule, n.Kind())
	assert.Equal(t, Position{X: 100, Y: 50}, n.Position)
}

// TestGraph_AddNode_ClonesPayload tests that the graph never aliases
// caller-owned payloads.
func TestGraph_AddNode_ClonesPayload(t *testing.T) {
	g := New()
	data := predictData()

	id, err := g.AddNode(data, Position{})
	require.NoError(t, err)

	data.Instruction = "mutated after insert"

	n, _ := g.Node(id)
	assert.Equal(t, "Answer the {question}.", n.Data.(*ModuleData).Instruction)
}

// TestGraph_AddNodeWithID tests caller-supplied ids and duplicate rejection.
func TestGraph_AddNodeWithID(t *testing.T) {
	g := New()

	require.NoError(t, g.AddNodeWithID("module-1", predictData(), Position{}))

	err := g.AddNodeWithID("module-1", predictData(), Position{})
	assert.ErrorIs(t, err, ErrDuplicateID)

	err = g.AddNodeWithID("", predictData(), Position{})
	assert.ErrorIs(t, err, ErrInvalidNodeData)
}

// TestGraph_AddNode_InvalidData tests that bad payloads are rejected and
// the graph is left unchanged.
func TestGraph_AddNode_InvalidData(t *testing.T) {
	g := New()
	before := len(g.Nodes())

	_, err := g.AddNode(&SignatureFieldData{
		Fields: []SignatureField{
			{Name: "a", Type: FieldString},
			{Name: "a", Type: FieldInt},
		},
		ConnectionMode: ConnectWhole,
	}, Position{})
	assert.ErrorIs(t, err, ErrInvalidNodeData)
	assert.Len(t, g.Nodes(), before)
}

// TestGraph_UpdateNodeData tests payload replacement.
func TestGraph_UpdateNodeData(t *testing.T) {
	g := New()
	id, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)

	updated := predictData()
	updated.ModuleType = ModuleChainOfThought
	updated.Parameters = params.Map{"max_tokens": 512}
	require.NoError(t, g.UpdateNodeData(id, updated))

	n, _ := g.Node(id)
	mod := n.Data.(*ModuleData)
	assert.Equal(t, ModuleChainOfThought, mod.ModuleType)
	assert.Equal(t, 512, mod.Parameters.Int("max_tokens", 0))
}

// TestGraph_UpdateNodeData_Errors tests rejection of unknown ids and kind
// changes.
func TestGraph_UpdateNodeData_Errors(t *testing.T) {
	g := New()
	id, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)

	assert.ErrorIs(t, g.UpdateNodeData("node-missing", predictData()), ErrUnknownNode)

	// Payload kind is fixed at insertion.
	err = g.UpdateNodeData(id, endSignatureData())
	assert.ErrorIs(t, err, ErrInvalidNodeData)

	n, _ := g.Node(id)
	assert.Equal(t, KindModule, n.Kind())
}

// TestGraph_StartNode_Immutable tests the reserved start node's edit rules.
func TestGraph_StartNode_Immutable(t *testing.T) {
	g := New()
	startID := g.StartNodeID()
	start, _ := g.Node(startID)
	sig := start.Data.(*SignatureFieldData)

	testCases := []struct {
		name   string
		mutate func(d *SignatureFieldData)
	}{
		{"rename field", func(d *SignatureFieldData) { d.Fields[0].Name = "query" }},
		{"retype field", func(d *SignatureFieldData) { d.Fields[0].Type = FieldAny }},
		{"drop required", func(d *SignatureFieldData) { d.Fields[0].Required = false }},
		{"add field", func(d *SignatureFieldData) {
			d.Fields = append(d.Fields, SignatureField{Name: "extra", Type: FieldString})
		}},
		{"remove field", func(d *SignatureFieldData) { d.Fields = d.Fields[:1] }},
		{"clear start flag", func(d *SignatureFieldData) { d.IsStart = false }},
		{"set end flag", func(d *SignatureFieldData) { d.IsEnd = true }},
		{"change mode", func(d *SignatureFieldData) { d.ConnectionMode = ConnectWhole }},
		{"change label", func(d *SignatureFieldData) { d.Label = "Entry" }},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			edited := sig.Clone().(*SignatureFieldData)
			tc.mutate(edited)
			assert.ErrorIs(t, g.UpdateNodeData(startID, edited), ErrImmutableNode)
		})
	}

	// Field descriptions are the one editable part.
	edited := sig.Clone().(*SignatureFieldData)
	edited.Fields[0].Description = "What the user wants to know"
	require.NoError(t, g.UpdateNodeData(startID, edited))

	after, _ := g.Node(startID)
	q, _ := after.Data.(*SignatureFieldData).Field("question")
	assert.Equal(t, "What the user wants to know", q.Description)
}

// TestGraph_RemoveNode_StartProtected tests that the start node cannot be
// deleted.
func TestGraph_RemoveNode_StartProtected(t *testing.T) {
	g := New()
	assert.ErrorIs(t, g.RemoveNode(g.StartNodeID()), ErrImmutableNode)
	assert.Len(t, g.Nodes(), 1)
}

// TestGraph_UpdateNodePosition tests canvas moves, including the start node.
func TestGraph_UpdateNodePosition(t *testing.T) {
	g := New()

	require.NoError(t, g.UpdateNodePosition(g.StartNodeID(), Position{X: 10, Y: 20}))
	start, _ := g.Node(g.StartNodeID())
	assert.Equal(t, Position{X: 10, Y: 20}, start.Position)

	assert.ErrorIs(t, g.UpdateNodePosition("node-missing", Position{}), ErrUnknownNode)
}

// TestGraph_RemoveNode_CascadesEdges tests that deleting a node removes
// every edge touching it.
func TestGraph_RemoveNode_CascadesEdges(t *testing.T) {
	g := New()
	modID, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)
	endID, err := g.AddNode(endSignatureData(), Position{})
	require.NoError(t, err)

	_, err = g.AddEdge(Connection{Source: g.StartNodeID(), SourceHandle: "question", Target: modID})
	require.NoError(t, err)
	_, err = g.AddEdge(Connection{Source: modID, Target: endID})
	require.NoError(t, err)
	require.Len(t, g.Edges(), 2)

	require.NoError(t, g.RemoveNode(modID))

	assert.Len(t, g.Edges(), 0)
	_, ok := g.Node(modID)
	assert.False(t, ok)
	_, ok = g.Node(endID)
	assert.True(t, ok)
}

// TestGraph_AddEdge tests edge insertion and its generated id.
func TestGraph_AddEdge(t *testing.T) {
	g := New()
	modID, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)

	edgeID, err := g.AddEdge(Connection{Source: g.StartNodeID(), SourceHandle: "question", Target: modID})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(edgeID, "edge-"))

	edges := g.Edges()
	require.Len(t, edges, 1)
	assert.Equal(t, g.StartNodeID(), edges[0].Source)
	assert.Equal(t, "question", edges[0].SourceHandle)
	assert.Equal(t, modID, edges[0].Target)
}

// TestGraph_AddEdge_RejectedLeavesGraphUnchanged tests mutation atomicity:
// a refused edge inserts nothing.
func TestGraph_AddEdge_RejectedLeavesGraphUnchanged(t *testing.T) {
	g := New()
	modID, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)

	_, err = g.AddEdge(Connection{Source: modID, Target: modID})
	require.Error(t, err)
	assert.Empty(t, g.Edges())

	_, err = g.AddEdge(Connection{Source: "node-missing", Target: modID})
	require.Error(t, err)
	assert.Empty(t, g.Edges())
}

// TestGraph_RemoveEdge tests edge deletion.
func TestGraph_RemoveEdge(t *testing.T) {
	g := New()
	modID, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)
	edgeID, err := g.AddEdge(Connection{Source: g.StartNodeID(), SourceHandle: "question", Target: modID})
	require.NoError(t, err)

	require.NoError(t, g.RemoveEdge(edgeID))
	assert.Empty(t, g.Edges())

	assert.ErrorIs(t, g.RemoveEdge(edgeID), ErrNotFound)
}

// TestGraph_Accessors_ReturnClones tests that callers never receive a
// mutable alias into graph state.
func TestGraph_Accessors_ReturnClones(t *testing.T) {
	g := New()
	id, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)

	n, _ := g.Node(id)
	n.Data.(*ModuleData).Instruction = "mutated through clone"

	fresh, _ := g.Node(id)
	assert.Equal(t, "Answer the {question}.", fresh.Data.(*ModuleData).Instruction)

	nodes := g.Nodes()
	nodes[0].Data.(*SignatureFieldData).Label = "mutated"
	start, _ := g.Node(g.StartNodeID())
	assert.Equal(t, "Input", start.Data.(*SignatureFieldData).Label)
}

// TestGraph_Events tests that applied mutations publish on the bus.
func TestGraph_Events(t *testing.T) {
	bus := event.NewBus()
	defer bus.Close()
	sub := bus.Subscribe()

	g := New(WithEventBus(bus))

	id, err := g.AddNode(predictData(), Position{})
	require.NoError(t, err)

	evt := receiveEvent(t, sub.C)
	assert.Equal(t, event.NodeAdded, evt.Type)
	assert.Equal(t, id, evt.NodeID)

	edgeID, err := g.AddEdge(Connection{Source: g.StartNodeID(), SourceHandle: "question", Target: id})
	require.NoError(t, err)

	evt = receiveEvent(t, sub.C)
	assert.Equal(t, event.EdgeAdded, evt.Type)
	assert.Equal(t, edgeID, evt.EdgeID)

	// Rejected mutations publish nothing.
	_, err = g.AddEdge(Connection{Source: id, Target: id})
	require.Error(t, err)
	select {
	case evt := <-sub.C:
		t.Fatalf("unexpected event %s after rejected mutation", evt.Type)
	case <-time.After(20 * time.Millisecond):
	}
}

func receiveEvent(t *testing.T, ch <-chan event.Event) event.Event {
	t.Helper()
	select {
	case evt := <-ch:
		return evt
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return event.Event{}
	}
}
