package telemetry

import (
	"context"
	"sort"
	"strings"

	"github.com/grafana/pyroscope-go"
)

// Profiling label keys
const (
	ProfilingLabelOperation   = "operation"
	ProfilingLabelSupplier    = "supplier"
	ProfilingLabelIntegration = "integration"
	ProfilingLabelTrigger     = "trigger"
	ProfilingLabelRoute       = "route"
	ProfilingLabelMethod      = "method"
)

// MaxLabelValueLength caps label values to keep profile series bounded.
const MaxLabelValueLength = 128

// highCardinalityLabels are dropped from profiling labels. Every job would
// otherwise create its own series.
var highCardinalityLabels = map[string]bool{
	"job_id":      true,
	"supplier_id": true,
	"request_id":  true,
	"trace_id":    true,
	"span_id":     true,
}

// WithProfilingLabels runs fn with pprof labels attached so CPU samples can
// be filtered per supplier and trigger in Pyroscope.
func WithProfilingLabels(ctx context.Context, labels map[string]string, fn func(context.Context)) {
	pairs := sanitizeLabels(labels)
	if len(pairs) == 0 {
		fn(ctx)
		return
	}
	pyroscope.TagWrapper(ctx, pyroscope.Labels(pairs...), fn)
}

// CollectionLabels builds the labels for one collection run.
func CollectionLabels(supplierCode, integrationType, trigger string) map[string]string {
	return map[string]string{
		ProfilingLabelOperation:   "collect",
		ProfilingLabelSupplier:    supplierCode,
		ProfilingLabelIntegration: integrationType,
		ProfilingLabelTrigger:     trigger,
	}
}

// sanitizeLabels returns sorted key/value pairs without empty entries or
// high-cardinality keys, truncating long values.
func sanitizeLabels(labels map[string]string) []string {
	if len(labels) == 0 {
		return nil
	}

	keys := make([]string, 0, len(labels))
	for k := range labels {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(labels)*2)
	for _, key := range keys {
		value := labels[key]
		if key == "" || value == "" {
			continue
		}
		normalized := sanitizeLabelKey(key)
		if normalized == "" || highCardinalityLabels[normalized] {
			continue
		}
		if len(value) > MaxLabelValueLength {
			value = value[:MaxLabelValueLength]
		}
		pairs = append(pairs, normalized, value)
	}
	return pairs
}

// sanitizeLabelKey lowercases key and keeps only [a-z0-9_].
func sanitizeLabelKey(key string) string {
	key = strings.ToLower(key)
	key = strings.NewReplacer(" ", "_", "-", "_").Replace(key)

	var b strings.Builder
	b.Grow(len(key))
	for i := 0; i < len(key); i++ {
		c := key[i]
		if (c >= 'a' && c <= 'z') || (c >= '0' && c <= '9') || c == '_' {
			b.WriteByte(c)
		}
	}
	return b.String()
}
