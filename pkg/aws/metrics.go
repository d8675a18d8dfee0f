package aws

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// MetricsClient publishes storefront counters and latencies to CloudWatch. A
// nil or disabled client accepts every call and records nothing.
type MetricsClient struct {
	client    *cloudwatch.Client
	namespace string
	enabled   bool
}

func NewMetricsClient(cfg aws.Config, namespace string, enabled bool) *MetricsClient {
	if namespace == "" {
		namespace = "Storefront"
	}
	return &MetricsClient{
		client:    cloudwatch.NewFromConfig(cfg),
		namespace: namespace,
		enabled:   enabled,
	}
}

// Sample is one data point for PutMetrics.
type Sample struct {
	Name  string
	Value float64
	Unit  types.StandardUnit
}

// PutMetrics sends samples sharing one set of dimensions in a single call.
func (m *MetricsClient) PutMetrics(ctx context.Context, dimensions map[string]string, samples ...Sample) error {
	if !m.IsEnabled() || len(samples) == 0 {
		return nil
	}

	dims := toDimensions(dimensions)
	now := aws.Time(time.Now())
	data := make([]types.MetricDatum, 0, len(samples))
	for _, s := range samples {
		data = append(data, types.MetricDatum{
			MetricName: aws.String(s.Name),
			Value:      aws.Float64(s.Value),
			Unit:       s.Unit,
			Timestamp:  now,
			Dimensions: dims,
		})
	}

	if _, err := m.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(m.namespace),
		MetricData: data,
	}); err != nil {
		return fmt.Errorf("failed to put metric: %w", err)
	}
	return nil
}

func (m *MetricsClient) PutMetric(ctx context.Context, metricName string, value float64, unit types.StandardUnit, dimensions map[string]string) error {
	return m.PutMetrics(ctx, dimensions, Sample{Name: metricName, Value: value, Unit: unit})
}

func (m *MetricsClient) RecordCount(ctx context.Context, metricName string, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, 1, types.StandardUnitCount, dimensions)
}

func (m *MetricsClient) RecordLatency(ctx context.Context, metricName string, duration time.Duration, dimensions map[string]string) error {
	return m.PutMetric(ctx, metricName, float64(duration.Milliseconds()), types.StandardUnitMilliseconds, dimensions)
}

// RecordCountAsync increments a counter without blocking the caller.
func (m *MetricsClient) RecordCountAsync(metricName string, dimensions map[string]string) {
	if !m.IsEnabled() {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = m.RecordCount(ctx, metricName, dimensions)
	}()
}

// RequestSamples builds the per-request samples: a count, the latency, and
// error counters by status class.
func RequestSamples(status int, latency time.Duration) []Sample {
	samples := []Sample{
		{Name: MetricHTTPRequests, Value: 1, Unit: types.StandardUnitCount},
		{Name: MetricHTTPLatency, Value: float64(latency.Milliseconds()), Unit: types.StandardUnitMilliseconds},
	}
	switch {
	case status >= 500:
		samples = append(samples,
			Sample{Name: MetricHTTPErrors, Value: 1, Unit: types.StandardUnitCount},
			Sample{Name: MetricHTTP5xx, Value: 1, Unit: types.StandardUnitCount})
	case status >= 400:
		samples = append(samples,
			Sample{Name: MetricHTTPErrors, Value: 1, Unit: types.StandardUnitCount},
			Sample{Name: MetricHTTP4xx, Value: 1, Unit: types.StandardUnitCount})
	}
	return samples
}

func (m *MetricsClient) IsEnabled() bool {
	return m != nil && m.enabled
}

func toDimensions(dimensions map[string]string) []types.Dimension {
	dims := make([]types.Dimension, 0, len(dimensions))
	for k, v := range dimensions {
		dims = append(dims, types.Dimension{Name: aws.String(k), Value: aws.String(v)})
	}
	return dims
}

const (
	MetricHTTPRequests = "HTTPRequests"
	MetricHTTPErrors   = "HTTPErrors"
	MetricHTTPLatency  = "HTTPLatency"
	MetricHTTP4xx      = "HTTP4xxErrors"
	MetricHTTP5xx      = "HTTP5xxErrors"

	MetricCartsCaptured    = "CartsCaptured"
	MetricCartsRestored    = "CartsRestored"
	MetricCartsPurchased   = "CartsPurchased"
	MetricRemindersSent    = "CartRemindersSent"
	MetricRemindersFailed  = "CartRemindersFailed"
	MetricSubscribes       = "NewsletterSubscribes"
	MetricUnsubscribes     = "NewsletterUnsubscribes"
	MetricConsentArchived  = "ConsentRecordsArchived"
	MetricCheckoutsStarted = "CheckoutsStarted"

	MetricSQSMessages = "SQSMessagesProcessed"
)
