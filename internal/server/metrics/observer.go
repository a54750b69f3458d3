// Package metrics exports gallery operation metrics to Prometheus.
//
// A nil *Observer is valid and records nothing, so services can run without
// a registry in tests.
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophgallery/internal/common"
	promclient "github.com/prometheus/client_golang/prometheus"
)

const defaultNamespace = "gophgallery"

type Observer struct {
	opDuration  *promclient.HistogramVec
	opErrors    *promclient.CounterVec
	ingestBytes promclient.Counter
	thumbnails  *promclient.CounterVec
}

// NewObserver registers the gallery collectors with reg (the default
// registerer when nil). Collectors that are already registered are reused.
func NewObserver(namespace string, reg promclient.Registerer) (*Observer, error) {
	if namespace == "" {
		namespace = defaultNamespace
	}
	if reg == nil {
		reg = promclient.DefaultRegisterer
	}

	var err error
	o := &Observer{}

	if o.opDuration, err = register(reg, promclient.NewHistogramVec(promclient.HistogramOpts{
		Namespace: namespace,
		Name:      "operation_duration_seconds",
		Help:      "Latency of gallery operations.",
		Buckets:   promclient.DefBuckets,
	}, []string{"operation"})); err != nil {
		return nil, fmt.Errorf("register operation histogram: %w", err)
	}

	if o.opErrors, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "operation_errors_total",
		Help:      "Count of failed gallery operations by error kind.",
	}, []string{"operation", "kind"})); err != nil {
		return nil, fmt.Errorf("register operation errors counter: %w", err)
	}

	if o.ingestBytes, err = register(reg, promclient.NewCounter(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "ingested_bytes_total",
		Help:      "Cumulative size of stored artifacts.",
	})); err != nil {
		return nil, fmt.Errorf("register ingested bytes counter: %w", err)
	}

	if o.thumbnails, err = register(reg, promclient.NewCounterVec(promclient.CounterOpts{
		Namespace: namespace,
		Name:      "thumbnails_total",
		Help:      "Thumbnail generation attempts by result.",
	}, []string{"result"})); err != nil {
		return nil, fmt.Errorf("register thumbnails counter: %w", err)
	}

	return o, nil
}

func register[C promclient.Collector](reg promclient.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are promclient.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Record tracks the duration of op and, on failure, its error kind.
func (o *Observer) Record(op string, d time.Duration, err error) {
	if o == nil {
		return
	}
	o.opDuration.WithLabelValues(op).Observe(d.Seconds())
	if err != nil {
		o.opErrors.WithLabelValues(op, kindLabel(err)).Inc()
	}
}

// RecordIngest tracks a stored upload.
func (o *Observer) RecordIngest(d time.Duration, size int64, err error) {
	if o == nil {
		return
	}
	o.Record("ingest", d, err)
	if err == nil && size > 0 {
		o.ingestBytes.Add(float64(size))
	}
}

// RecordThumbnail counts a thumbnail attempt; skipped means none was tried.
func (o *Observer) RecordThumbnail(generated bool, err error) {
	if o == nil {
		return
	}
	switch {
	case err != nil:
		o.thumbnails.WithLabelValues("failed").Inc()
	case generated:
		o.thumbnails.WithLabelValues("generated").Inc()
	default:
		o.thumbnails.WithLabelValues("skipped").Inc()
	}
}

func kindLabel(err error) string {
	switch common.KindOf(err) {
	case common.ErrValidation:
		return "validation"
	case common.ErrConflict:
		return "conflict"
	case common.ErrNotFound:
		return "not_found"
	case common.ErrInvalidToken:
		return "invalid_token"
	case common.ErrThumbnailEncode:
		return "thumbnail"
	case common.ErrStorageIO:
		return "storage_io"
	default:
		return "internal"
	}
}
