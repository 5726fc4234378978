// metrics.go: OpenTelemetry instruments for rotation and retention
//
// Copyright (c) 2025 AGILira
// Series: an AGILira fragment
// SPDX-License-Identifier: MPL-2.0

package autosplit

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const instrumentationName = "github.com/agilira/autosplit"

// Metric names
const (
	metricRotations    = "autosplit.rotations"
	metricArchives     = "autosplit.archives"
	metricPurged       = "autosplit.purged"
	metricWarnings     = "autosplit.warnings"
	metricBytesWritten = "autosplit.bytes_written"
)

type engineMetrics struct {
	rotations    metric.Int64Counter
	archives     metric.Int64Counter
	purges       metric.Int64Counter
	warnings     metric.Int64Counter
	bytesWritten metric.Int64Counter
}

func newEngineMetrics(provider metric.MeterProvider) (*engineMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(instrumentationName)

	var m engineMetrics
	instruments := []struct {
		target *metric.Int64Counter
		name   string
		desc   string
		unit   string
	}{
		{&m.rotations, metricRotations, "rotations performed", "1"},
		{&m.archives, metricArchives, "current files renamed into archives", "1"},
		{&m.purges, metricPurged, "archives deleted by retention", "1"},
		{&m.warnings, metricWarnings, "recoverable I/O failures", "1"},
		{&m.bytesWritten, metricBytesWritten, "record bytes accepted by the backend", "By"},
	}
	for _, inst := range instruments {
		counter, err := meter.Int64Counter(inst.name,
			metric.WithDescription(inst.desc),
			metric.WithUnit(inst.unit),
		)
		if err != nil {
			return nil, fmt.Errorf("autosplit: create counter %s failed: %w", inst.name, err)
		}
		*inst.target = counter
	}
	return &m, nil
}

func compressionAttr(name string) metric.AddOption {
	return metric.WithAttributes(attribute.String("compression", name))
}

func (m *engineMetrics) rotated(compression string) {
	m.rotations.Add(context.Background(), 1, compressionAttr(compression))
}

func (m *engineMetrics) archived(compression string) {
	m.archives.Add(context.Background(), 1, compressionAttr(compression))
}

func (m *engineMetrics) purged(compression string) {
	m.purges.Add(context.Background(), 1, compressionAttr(compression))
}

func (m *engineMetrics) warned(operation string) {
	m.warnings.Add(context.Background(), 1, metric.WithAttributes(attribute.String("operation", operation)))
}

func (m *engineMetrics) wrote(compression string, n int) {
	if n > 0 {
		m.bytesWritten.Add(context.Background(), int64(n), compressionAttr(compression))
	}
}
