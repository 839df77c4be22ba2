package registry

import (
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas"
	"github.com/pipecanvas/pipecanvas/pkg/pipecanvas/params"
)

// Signature sub-types offered by the palette. The reserved start node is
// created by the graph itself, never from the palette.
const (
	SignatureIntermediate = "intermediate"
	SignatureEnd          = "end"
)

// registerBuiltins populates the four built-in node kinds with their
// palette defaults.
func (r *Registry) registerBuiltins() {
	r.register(pipecanvas.KindSignatureField, SignatureIntermediate, &pipecanvas.SignatureFieldData{
		Label: "Fields",
		Fields: []pipecanvas.SignatureField{
			{Name: "output", Type: pipecanvas.FieldString, Required: true},
		},
		ConnectionMode: pipecanvas.ConnectWhole,
	})
	r.register(pipecanvas.KindSignatureField, SignatureEnd, &pipecanvas.SignatureFieldData{
		Label: "Output",
		Fields: []pipecanvas.SignatureField{
			{Name: "answer", Type: pipecanvas.FieldString, Description: "The final answer", Required: true},
		},
		IsEnd:          true,
		ConnectionMode: pipecanvas.ConnectWhole,
	})

	for _, mt := range []pipecanvas.ModuleType{
		pipecanvas.ModulePredict,
		pipecanvas.ModuleChainOfThought,
		pipecanvas.ModuleReAct,
		pipecanvas.ModuleBestOfN,
		pipecanvas.ModuleRefine,
	} {
		r.register(pipecanvas.KindModule, string(mt), &pipecanvas.ModuleData{
			ModuleType: mt,
			Parameters: moduleDefaults(mt),
		})
	}

	for _, lt := range []pipecanvas.LogicType{
		pipecanvas.LogicIfElse,
		pipecanvas.LogicMerge,
		pipecanvas.LogicFieldSelector,
	} {
		r.register(pipecanvas.KindLogic, string(lt), &pipecanvas.LogicData{
			LogicType:  lt,
			Parameters: params.Map{},
		})
	}

	r.register(pipecanvas.KindRetriever, string(pipecanvas.RetrieverUnstructured), &pipecanvas.RetrieverData{
		RetrieverType:  pipecanvas.RetrieverUnstructured,
		QueryType:      pipecanvas.QueryHybrid,
		NumResults:     pipecanvas.DefaultNumResults,
		ScoreThreshold: pipecanvas.DefaultScoreThreshold,
		Parameters:     params.Map{},
	})
	r.register(pipecanvas.KindRetriever, string(pipecanvas.RetrieverStructured), &pipecanvas.RetrieverData{
		RetrieverType:  pipecanvas.RetrieverStructured,
		NumResults:     pipecanvas.DefaultNumResults,
		ScoreThreshold: pipecanvas.DefaultScoreThreshold,
		Parameters:     params.Map{},
	})
}

// moduleDefaults returns the per-strategy parameter defaults.
func moduleDefaults(mt pipecanvas.ModuleType) params.Map {
	switch mt {
	case pipecanvas.ModuleBestOfN:
		return params.Map{"n": 3}
	case pipecanvas.ModuleRefine:
		return params.Map{"max_iterations": 2}
	case pipecanvas.ModuleReAct:
		return params.Map{"max_steps": 5}
	default:
		return params.Map{}
	}
}
