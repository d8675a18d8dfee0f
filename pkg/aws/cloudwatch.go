package aws

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

const logRetentionDays = 30

// CloudWatchLogsClient ships each log line to its own stream in the service
// log group. It implements io.Writer so it can back a zap core.
type CloudWatchLogsClient struct {
	client *cloudwatchlogs.Client
	group  string
	stream string
}

// NewCloudWatchLogsClient creates the log group if needed and opens a stream
// named after the service, host and start time.
func NewCloudWatchLogsClient(ctx context.Context, cfg aws.Config, logGroupName, serviceName string) (*CloudWatchLogsClient, error) {
	if logGroupName == "" {
		logGroupName = "/storefront/" + serviceName
	}
	host, _ := os.Hostname()

	c := &CloudWatchLogsClient{
		client: cloudwatchlogs.NewFromConfig(cfg),
		group:  logGroupName,
		stream: strings.Trim(fmt.Sprintf("%s/%s/%d", serviceName, host, time.Now().Unix()), "/"),
	}

	if err := c.ensureGroup(ctx); err != nil {
		return nil, fmt.Errorf("log group %s: %w", c.group, err)
	}
	if _, err := c.client.CreateLogStream(ctx, &cloudwatchlogs.CreateLogStreamInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(c.stream),
	}); err != nil {
		return nil, fmt.Errorf("log stream %s: %w", c.stream, err)
	}
	return c, nil
}

func (c *CloudWatchLogsClient) ensureGroup(ctx context.Context) error {
	_, err := c.client.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{LogGroupName: aws.String(c.group)})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return err
	}
	_, err = c.client.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(c.group),
		RetentionInDays: aws.Int32(logRetentionDays),
	})
	return err
}

// Write sends p as one log event. It never fails; shipping errors go to
// stderr so the console core keeps logging.
func (c *CloudWatchLogsClient) Write(p []byte) (int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := c.client.PutLogEvents(ctx, &cloudwatchlogs.PutLogEventsInput{
		LogGroupName:  aws.String(c.group),
		LogStreamName: aws.String(c.stream),
		LogEvents: []types.InputLogEvent{{
			Message:   aws.String(strings.TrimRight(string(p), "\n")),
			Timestamp: aws.Int64(time.Now().UnixMilli()),
		}},
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloudwatch logs: %v\n", err)
	}
	return len(p), nil
}
