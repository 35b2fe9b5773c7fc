package scene

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/roach88/minq/internal/ir"
)

// Backend operation names used as metric labels.
const (
	OpQueryByType         = "query_by_type"
	OpListRelationship    = "list_relationship"
	OpReadAttributeBulk   = "read_attribute_bulk"
	OpAttributeExistsBulk = "attribute_exists_bulk"
	OpNodeTypeBulk        = "node_type_bulk"
)

// Ops lists every backend operation in port order.
var Ops = []string{OpQueryByType, OpListRelationship, OpReadAttributeBulk, OpAttributeExistsBulk, OpNodeTypeBulk}

// Instrumented decorates a Backend with call and batch-size counters.
type Instrumented struct {
	delegate Backend
	calls    *prometheus.CounterVec
	ids      *prometheus.CounterVec
	errors   *prometheus.CounterVec
}

var _ Backend = (*Instrumented)(nil)

// Instrument wraps b and registers its counters with reg. A nil reg uses a
// private registry, which is what tests and one-shot CLI runs want.
func Instrument(b Backend, reg prometheus.Registerer) (*Instrumented, error) {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	i := &Instrumented{
		delegate: b,
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minq",
			Subsystem: "backend",
			Name:      "calls_total",
			Help:      "total number of backend port calls",
		}, []string{"op"}),
		ids: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minq",
			Subsystem: "backend",
			Name:      "ids_total",
			Help:      "total number of identifiers passed to backend port calls",
		}, []string{"op"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minq",
			Subsystem: "backend",
			Name:      "errors_total",
			Help:      "total number of failed backend port calls",
		}, []string{"op"}),
	}
	for _, c := range []prometheus.Collector{i.calls, i.ids, i.errors} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register backend metrics: %w", err)
		}
	}
	return i, nil
}

// MustInstrument is like Instrument with a private registry; it cannot fail.
func MustInstrument(b Backend) *Instrumented {
	i, err := Instrument(b, nil)
	if err != nil {
		panic(err)
	}
	return i
}

// Calls returns how many times op has been called.
func (i *Instrumented) Calls(op string) int {
	return int(counterValue(i.calls.WithLabelValues(op)))
}

// IDs returns how many identifiers have been passed to op.
func (i *Instrumented) IDs(op string) int {
	return int(counterValue(i.ids.WithLabelValues(op)))
}

// TotalCalls sums Calls over every op.
func (i *Instrumented) TotalCalls() int {
	total := 0
	for _, op := range Ops {
		total += i.Calls(op)
	}
	return total
}

// Stats snapshots call counts per op.
func (i *Instrumented) Stats() map[string]int {
	out := make(map[string]int, len(Ops))
	for _, op := range Ops {
		out[op] = i.Calls(op)
	}
	return out
}

func counterValue(m prometheus.Metric) float64 {
	var written dto.Metric
	if err := m.Write(&written); err != nil {
		return 0
	}
	return written.GetCounter().GetValue()
}

func (i *Instrumented) observe(op string, n int, err error) {
	i.calls.WithLabelValues(op).Inc()
	i.ids.WithLabelValues(op).Add(float64(n))
	if err != nil {
		i.errors.WithLabelValues(op).Inc()
	}
}

func (i *Instrumented) QueryByType(ctx context.Context, types []string, ns Namespace) ([]ir.IRNode, error) {
	out, err := i.delegate.QueryByType(ctx, types, ns)
	i.observe(OpQueryByType, 0, err)
	return out, err
}

func (i *Instrumented) ListRelationship(ctx context.Context, ids []ir.IRNode, kind Relationship) ([]ir.IRNode, error) {
	out, err := i.delegate.ListRelationship(ctx, ids, kind)
	i.observe(OpListRelationship, len(ids), err)
	return out, err
}

func (i *Instrumented) ReadAttributeBulk(ctx context.Context, ids []ir.IRNode, attr string) (map[ir.IRNode]ir.IRValue, error) {
	out, err := i.delegate.ReadAttributeBulk(ctx, ids, attr)
	i.observe(OpReadAttributeBulk, len(ids), err)
	return out, err
}

func (i *Instrumented) AttributeExistsBulk(ctx context.Context, ids []ir.IRNode, attr string) (NodeSet, error) {
	out, err := i.delegate.AttributeExistsBulk(ctx, ids, attr)
	i.observe(OpAttributeExistsBulk, len(ids), err)
	return out, err
}

func (i *Instrumented) NodeTypeBulk(ctx context.Context, ids []ir.IRNode) (map[ir.IRNode]string, error) {
	out, err := i.delegate.NodeTypeBulk(ctx, ids)
	i.observe(OpNodeTypeBulk, len(ids), err)
	return out, err
}
