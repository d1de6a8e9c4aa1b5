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

package metrics

import (
	"fmt"
	"io"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Run outcomes used as the status label.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Collector records obfuscation metrics. A nil *Collector discards everything.
type Collector struct {
	gatherer prometheus.Gatherer

	runs           *prometheus.CounterVec
	successCounter prometheus.Counter
	failureCounter prometheus.Counter
	rows           prometheus.Counter
	redacted       *prometheus.CounterVec
	duration       prometheus.Histogram
}

// New creates a Collector and registers its metrics on registry.
func New(registry *prometheus.Registry) (*Collector, error) {
	c := &Collector{gatherer: registry}

	opts := prometheus.CounterOpts{}
	opts.Name = "obfuscator_runs_total"
	opts.Help = "Numbers of obfuscation requests by outcome"
	c.runs = prometheus.NewCounterVec(opts, []string{"status"})

	c.rows = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "obfuscator_rows_total",
		Help: "Numbers of records read from source objects",
	})
	c.redacted = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "obfuscator_fields_redacted_total",
		Help: "Numbers of values replaced with the redaction marker, by field",
	}, []string{"field"})
	c.duration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "obfuscator_duration_seconds",
		Help:    "Time spent on one obfuscation request",
		Buckets: prometheus.DefBuckets,
	})

	for _, col := range []prometheus.Collector{c.runs, c.rows, c.redacted, c.duration} {
		if err := registry.Register(col); err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
	}

	c.successCounter = c.runs.WithLabelValues(StatusSuccess)
	c.failureCounter = c.runs.WithLabelValues(StatusFailure)
	return c, nil
}

// ObserveRun records the outcome and duration of one request.
func (c *Collector) ObserveRun(err error, elapsed time.Duration) {
	if c == nil {
		return
	}
	if err != nil {
		c.failureCounter.Inc()
	} else {
		c.successCounter.Inc()
	}
	c.duration.Observe(elapsed.Seconds())
}

// AddRows counts records read.
func (c *Collector) AddRows(n int) {
	if c == nil {
		return
	}
	c.rows.Add(float64(n))
}

// AddRedacted counts values replaced in field.
func (c *Collector) AddRedacted(field string, n int) {
	if c == nil {
		return
	}
	c.redacted.WithLabelValues(field).Add(float64(n))
}

// WriteTo writes all gathered metrics to w in the Prometheus text format.
func (c *Collector) WriteTo(w io.Writer) error {
	if c == nil {
		return nil
	}
	families, err := c.gatherer.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}
