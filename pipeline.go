//
// SPDX-License-Identifier: GPL-3.0-or-later
//
// Copyright (C) 2025 Aaron Mathis aaron.mathis@gmail.com
//
// This file is part of GoETL.
//
// GoETL is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// GoETL is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with GoETL. If not, see https://www.gnu.org/licenses/.

package obfuscator

import (
	"context"
	"fmt"
	"time"

	"github.com/aaronlmathis/goetl-obfuscator/core"
	"github.com/aaronlmathis/goetl-obfuscator/readers"
	"github.com/aaronlmathis/goetl-obfuscator/writers"
)

// Pipeline stages reported by PipelineError.
const (
	StageRead      = "read"
	StageTransform = "transform"
	StageWrite     = "write"
)

// PipelineError records the stage at which a pipeline run failed.
type PipelineError struct {
	Stage string
	Err   error
}

func (e *PipelineError) Error() string {
	return fmt.Sprintf("pipeline %s: %v", e.Stage, e.Err)
}

func (e *PipelineError) Unwrap() error {
	return e.Err
}

// PipelineStats holds statistics for one pipeline run.
type PipelineStats struct {
	RecordsRead    int
	RecordsWritten int
	Duration       time.Duration
}

// PipelineBuilder provides a fluent API for constructing transformation pipelines.
// Use NewPipeline() to create a new builder, then chain From, Transform and To.
//
//	pipeline, err := obfuscator.NewPipeline().
//	    From(csvReader).
//	    Transform(redactor).
//	    To(csvWriter).
//	    Build()
//	if err != nil { return err }
//	if err := pipeline.Execute(ctx); err != nil { return err }
type PipelineBuilder struct {
	pipeline *Pipeline
}

// NewPipeline creates a new PipelineBuilder.
func NewPipeline() *PipelineBuilder {
	return &PipelineBuilder{
		pipeline: &Pipeline{
			transformers: make([]core.DatasetTransformer, 0),
		},
	}
}

// From sets the DataSource for the pipeline.
func (pb *PipelineBuilder) From(source core.DataSource) *PipelineBuilder {
	pb.pipeline.source = source
	return pb
}

// Transform adds a dataset transformer to the pipeline. Transformers run in the order added.
func (pb *PipelineBuilder) Transform(transformer core.DatasetTransformer) *PipelineBuilder {
	pb.pipeline.transformers = append(pb.pipeline.transformers, transformer)
	return pb
}

// To sets the DataSink for the pipeline.
func (pb *PipelineBuilder) To(sink core.DataSink) *PipelineBuilder {
	pb.pipeline.sink = sink
	return pb
}

// Build validates and constructs the Pipeline from the builder.
func (pb *PipelineBuilder) Build() (*Pipeline, error) {
	if pb.pipeline.source == nil {
		return nil, fmt.Errorf("pipeline requires a data source")
	}
	if pb.pipeline.sink == nil {
		return nil, fmt.Errorf("pipeline requires a data sink")
	}
	return pb.pipeline, nil
}

// Pipeline reads the whole source into a dataset, runs the transformers over it
// and writes the result to the sink. Any error ends the run.
type Pipeline struct {
	transformers []core.DatasetTransformer
	source       core.DataSource
	sink         core.DataSink
	stats        PipelineStats
}

// Execute runs the pipeline once. Source and sink are closed on return.
// Errors are wrapped in a *PipelineError naming the failing stage.
func (p *Pipeline) Execute(ctx context.Context) (err error) {
	start := time.Now()
	p.stats = PipelineStats{}

	defer func() {
		p.source.Close()
		if cerr := p.sink.Close(); cerr != nil && err == nil {
			err = &PipelineError{Stage: StageWrite, Err: cerr}
		}
		p.stats.Duration = time.Since(start)
	}()

	dataset, err := readers.ReadAll(ctx, p.source)
	if err != nil {
		return &PipelineError{Stage: StageRead, Err: err}
	}
	p.stats.RecordsRead = len(dataset)

	for _, transformer := range p.transformers {
		dataset, err = transformer.TransformDataset(ctx, dataset)
		if err != nil {
			return &PipelineError{Stage: StageTransform, Err: err}
		}
	}

	if err := writers.WriteAll(ctx, p.sink, dataset); err != nil {
		return &PipelineError{Stage: StageWrite, Err: err}
	}
	p.stats.RecordsWritten = len(dataset)

	return nil
}

// Stats returns statistics for the last Execute call.
func (p *Pipeline) Stats() PipelineStats {
	return p.stats
}
