/*
Package pipecanvas provides the workflow graph model behind a visual
language-model pipeline editor, and its compiler to an executable
intermediate representation (IR).

# Overview

A workflow is a directed graph of typed building blocks: signature nodes
(named, typed input/output fields), module nodes (reasoning strategies
applied against a language model), logic nodes (branching, merging, field
selection), and retriever nodes. The editor mutates the graph through the
Graph type; every mutation is validated and applied atomically. On save,
run, or deploy, Compile lowers the graph into a deterministic, serializable
IR that an execution backend consumes.

# Basic Usage

Create a graph (it always carries the reserved default start node), add
nodes and edges, then compile:

	g := pipecanvas.New()

	moduleID, err := g.AddNode(&pipecanvas.ModuleData{
	    ModuleType:  pipecanvas.ModulePredict,
	    Instruction: "Answer the {question}.",
	}, pipecanvas.Position{X: 300, Y: 100})
	if err != nil {
	    log.Fatal(err)
	}

	outID, _ := g.AddNode(&pipecanvas.SignatureFieldData{
	    Fields:         []pipecanvas.SignatureField{{Name: "answer", Type: pipecanvas.FieldString, Required: true}},
	    IsEnd:          true,
	    ConnectionMode: pipecanvas.ConnectWhole,
	}, pipecanvas.Position{X: 600, Y: 100})

	g.AddEdge(pipecanvas.Connection{Source: g.StartNodeID(), SourceHandle: "question", Target: moduleID})
	g.AddEdge(pipecanvas.Connection{Source: moduleID, Target: outID})

	ir, err := g.Compile()
	if err != nil {
	    log.Fatal(err)
	}

# Connections

Edges are gated by a single validator. A handle names a field on a
field-level signature node; no handle means a whole-node connection, which
is legal only when the endpoint is unambiguous. If/else logic nodes expose
the two fixed output handles "true" and "false". Rejections carry a
sentinel reason:

	_, err := g.AddEdge(pipecanvas.Connection{Source: id, Target: id})
	errors.Is(err, pipecanvas.ErrSelfLoop) // true

# Determinism

Compile emits nodes and edges in insertion order, so the same graph always
produces byte-identical IR. LoadIR reverses the transformation: for any
well-formed IR, compiling the loaded graph reproduces it.

# Thread Safety

A Graph is owned by one editing session. Mutations are synchronous and
atomic; concurrent read snapshots (Compile, Nodes, Edges) are safe.

# Subpackages

  - registry: default node payloads per kind and sub-type
  - params: the closed-typed parameter bag carried by node payloads
  - store: workflow persistence (memory, SQLite)
  - client: execution and persistence collaborator HTTP clients
  - event: graph mutation notifications
  - expr: condition syntax checking for if/else nodes
  - template: {field} placeholders in module instructions
  - config: caller-facing settings (endpoints, timeouts, toggles)
  - observability: logging, metrics, and tracing helpers
*/
package pipecanvas
