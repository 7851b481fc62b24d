package main

import (
	"fmt"

	"github.com/example/dataflow-engine/internal/checkpoint"
	"github.com/example/dataflow-engine/internal/chunk"
	"github.com/example/dataflow-engine/internal/pipeline"
	"github.com/example/dataflow-engine/pkg/frame"
	"github.com/example/dataflow-engine/pkg/logging"
	"github.com/example/dataflow-engine/pkg/metrics"
)

// demoOrderRows and demoCustomerRows stand in for the external systems a
// real deployment's extractors would call out to.
var (
	demoOrderRows    = 247
	demoCustomerRows = 83
)

// stepFactory builds a registered step from its operational spec; the
// demo registry below is the only place that binds a pipeline.yaml step
// name to actual Go step logic.
type stepFactory func(spec stepSpec) (pipeline.Step, error)

func demoStepRegistry() map[string]stepFactory {
	return map[string]stepFactory{
		"extract_orders": func(spec stepSpec) (pipeline.Step, error) {
			opts := []pipeline.StepOption{}
			if spec.ChunkSize > 0 {
				opts = append(opts, pipeline.ChunkSize(spec.ChunkSize, func() int { return demoOrderRows }))
			}
			return pipeline.NewExtractStep("extract_orders", func(map[string]any) (pipeline.Result, error) {
				ctx := pipeline.NewContext("extract_orders_subcontext")
				ctx.Add("orders", frame.NewSimpleFrame("orders", demoOrderRows, nil))
				return pipeline.ContextResult(ctx), nil
			}, opts...), nil
		},
		"extract_customers": func(spec stepSpec) (pipeline.Step, error) {
			opts := []pipeline.StepOption{}
			if spec.ChunkSize > 0 {
				opts = append(opts, pipeline.ChunkSize(spec.ChunkSize, func() int { return demoCustomerRows }))
			}
			return pipeline.NewExtractStep("extract_customers", func(map[string]any) (pipeline.Result, error) {
				ctx := pipeline.NewContext("extract_customers_subcontext")
				ctx.Add("customers", frame.NewSimpleFrame("customers", demoCustomerRows, nil))
				return pipeline.ContextResult(ctx), nil
			}, opts...), nil
		},
		"enrich_orders": func(spec stepSpec) (pipeline.Step, error) {
			return pipeline.NewTransformStep("enrich_orders", func(map[string]any) (pipeline.Result, error) {
				return pipeline.NoResult(), nil
			}, pipeline.Frames("orders", "customers")), nil
		},
		"load_orders": func(spec stepSpec) (pipeline.Step, error) {
			policy := pipeline.ExistsFail
			if spec.ExistsPolicy != "" {
				policy = pipeline.ExistsPolicy(spec.ExistsPolicy)
			}
			return pipeline.NewLoadStep("load_orders", func(map[string]any) (pipeline.Result, error) {
				return pipeline.NoResult(), nil
			}, pipeline.WithExistsPolicy(policy)), nil
		},
	}
}

// buildPipeline wires a Pipeline plus its checkpoint store and chunk
// coordinator from spec and cfg, registering every step spec names against
// the demo registry.
func buildPipeline(spec pipelineSpec, cfg runtimeConfig) (*pipeline.Pipeline, *checkpoint.Store, error) {
	p := pipeline.NewPipeline()
	p.SetLogger(logging.New())
	p.SetMetrics(metrics.New())

	mode := pipeline.Mode(spec.Mode)
	if mode == "" {
		mode = pipeline.PROD
	}
	if err := p.SetMode(mode); err != nil {
		return nil, nil, err
	}

	registry := demoStepRegistry()
	var extractSteps []pipeline.Step
	var loadStep pipeline.Step

	for _, ss := range spec.Steps {
		factory, ok := registry[ss.Name]
		if !ok {
			return nil, nil, fmt.Errorf("bootstrap: no step factory registered for %q", ss.Name)
		}
		step, err := factory(ss)
		if err != nil {
			return nil, nil, err
		}
		if _, err := p.AddStep(step); err != nil {
			return nil, nil, err
		}
		switch step.Descriptor().Capability {
		case pipeline.CapabilityExtract:
			extractSteps = append(extractSteps, step)
		case pipeline.CapabilityLoad:
			loadStep = step
		}
	}

	if len(extractSteps) == 1 {
		if err := p.SetTargetExtract(extractSteps[0]); err != nil {
			return nil, nil, err
		}
	} else if len(extractSteps) > 1 {
		multi := pipeline.NewMultiExtractStep(spec.Name+"_extract", extractSteps...)
		if err := p.SetTargetExtract(multi); err != nil {
			return nil, nil, err
		}
	}
	if loadStep != nil {
		if err := p.SetTargetLoad(loadStep); err != nil {
			return nil, nil, err
		}
	}

	checkpointDir := cfg.CheckpointDir
	if spec.Checkpoint.Dir != "" {
		checkpointDir = spec.Checkpoint.Dir
	}
	lfuCapacity := cfg.LFUCapacity
	if spec.Checkpoint.LFUCapacity > 0 {
		lfuCapacity = spec.Checkpoint.LFUCapacity
	}
	store, err := checkpoint.NewStore(checkpointDir, lfuCapacity)
	if err != nil {
		return nil, nil, fmt.Errorf("bootstrap: checkpoint store: %w", err)
	}
	p.SetCache(store)

	if len(extractSteps) > 1 {
		strategy := chunk.Direct
		if spec.ChunkStrategy == "recursive" {
			strategy = chunk.Recursive
		}
		coordinator, err := chunk.NewCoordinator(p.StepIndex(), strategy)
		if err != nil {
			return nil, nil, fmt.Errorf("bootstrap: chunk coordinator: %w", err)
		}
		p.SetChunker(coordinator)
	}

	return p, store, nil
}
