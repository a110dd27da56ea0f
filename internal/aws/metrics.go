package aws

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/decred/slog"
)

// Metric names emitted by the service.
const (
	MetricSettingsFallback = "SettingsFallback"
	MetricReviewsSeeded    = "ReviewsSeeded"
	MetricOrdersPlaced     = "OrdersPlaced"
)

// Metrics publishes counters to CloudWatch. A nil *Metrics, or one without a
// namespace, discards everything.
type Metrics struct {
	client    CloudWatchAPI
	namespace string
	log       slog.Logger
	nowFunc   func() time.Time
}

// NewMetrics returns a Metrics publishing under namespace.
func NewMetrics(client CloudWatchAPI, namespace string, log slog.Logger) *Metrics {
	return &Metrics{
		client:    client,
		namespace: namespace,
		log:       log,
		nowFunc:   time.Now,
	}
}

// Count records value for the named counter. Publishing failures are
// logged and otherwise ignored.
func (m *Metrics) Count(ctx context.Context, name string, value float64) {
	if m == nil || m.client == nil || m.namespace == "" {
		return
	}
	now := m.nowFunc()
	input := &cloudwatch.PutMetricDataInput{
		Namespace: &m.namespace,
		MetricData: []cwtypes.MetricDatum{
			{
				MetricName: &name,
				Unit:       cwtypes.StandardUnitCount,
				Value:      &value,
				Timestamp:  &now,
			},
		},
	}
	if _, err := m.client.PutMetricData(ctx, input); err != nil {
		m.log.Warnf("Unable to publish metric %s: %v", name, err)
	}
}
