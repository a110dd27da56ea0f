package awstest

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// SQS records every message sent through it.
type SQS struct {
	mu       sync.Mutex
	Err      error
	Messages []*sqs.SendMessageInput
}

func (q *SQS) SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.Err != nil {
		return nil, q.Err
	}
	q.Messages = append(q.Messages, params)
	return &sqs.SendMessageOutput{}, nil
}

// Sent returns the bodies of the recorded messages.
func (q *SQS) Sent() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, 0, len(q.Messages))
	for _, m := range q.Messages {
		out = append(out, *m.MessageBody)
	}
	return out
}

// CloudWatch sums metric values by name.
type CloudWatch struct {
	mu     sync.Mutex
	Totals map[string]float64
}

func (c *CloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.Totals == nil {
		c.Totals = map[string]float64{}
	}
	for _, d := range params.MetricData {
		c.Totals[*d.MetricName] += *d.Value
	}
	return &cloudwatch.PutMetricDataOutput{}, nil
}

// Total returns the accumulated value of a metric.
func (c *CloudWatch) Total(name string) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Totals[name]
}
