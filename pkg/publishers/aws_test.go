package publishers

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/samvad-hq/artifact-harvester/internal/domain"
)

type fakeSQSClient struct {
	input *sqs.SendMessageInput
	err   error
}

func (f *fakeSQSClient) SendMessage(_ context.Context, params *sqs.SendMessageInput, _ ...func(*sqs.Options)) (*sqs.SendMessageOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sqs.SendMessageOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeSNSClient struct {
	input *sns.PublishInput
	err   error
}

func (f *fakeSNSClient) Publish(_ context.Context, params *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.input = params
	if f.err != nil {
		return nil, f.err
	}
	return &sns.PublishOutput{MessageId: aws.String("msg-123")}, nil
}

type fakeS3Client struct {
	input *s3.PutObjectInput
	body  []byte
	err   error
}

func (f *fakeS3Client) PutObject(_ context.Context, params *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = params
	if params.Body != nil {
		f.body, _ = io.ReadAll(params.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func sampleEvent() Event {
	return NewEvent("run-1", domain.Artifact{Title: "Starry Night", AccessionNumber: "1941.1"}, "", 0)
}

func TestSQSPublisherSendsEvent(t *testing.T) {
	client := &fakeSQSClient{}
	pub := &sqsPublisher{id: "queue", queueURL: "https://example.com/queue", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if client.input == nil {
		t.Fatalf("client was not called")
	}
	if got := aws.ToString(client.input.QueueUrl); got != "https://example.com/queue" {
		t.Fatalf("QueueUrl = %s", got)
	}
	attr, ok := client.input.MessageAttributes["accession_number"]
	if !ok || aws.ToString(attr.StringValue) != "1941.1" || aws.ToString(attr.DataType) != "String" {
		t.Fatalf("accession_number attribute missing or wrong: %#v", attr)
	}
	if _, ok := client.input.MessageAttributes["run_id"]; !ok {
		t.Fatalf("run_id attribute missing")
	}
	if !strings.Contains(aws.ToString(client.input.MessageBody), `"file_name":"Starry Night_1941.1.jpg"`) {
		t.Fatalf("MessageBody missing file name: %s", aws.ToString(client.input.MessageBody))
	}
}

func TestSQSPublisherSendError(t *testing.T) {
	pub := &sqsPublisher{id: "queue", client: &fakeSQSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestSNSPublisherSendsEvent(t *testing.T) {
	client := &fakeSNSClient{}
	pub := &snsPublisher{id: "topic", topicARN: "arn:aws:sns:::downloads", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), sampleEvent()); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got := aws.ToString(client.input.TopicArn); got != "arn:aws:sns:::downloads" {
		t.Fatalf("TopicArn = %s", got)
	}
	if attr := client.input.MessageAttributes["run_id"]; aws.ToString(attr.StringValue) != "run-1" {
		t.Fatalf("run_id attribute wrong: %#v", attr)
	}
	if !strings.Contains(aws.ToString(client.input.Message), `"run_id":"run-1"`) {
		t.Fatalf("Message missing run id: %s", aws.ToString(client.input.Message))
	}
}

func TestSNSPublisherSendError(t *testing.T) {
	pub := &snsPublisher{id: "topic", client: &fakeSNSClient{err: errors.New("boom")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), sampleEvent()); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestS3PublisherUploadsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "Starry Night_1941.1.jpg")
	if err := os.WriteFile(path, []byte("jpeg-bytes"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	evt := sampleEvent()
	evt.Path = path
	evt.Bytes = int64(len("jpeg-bytes"))

	client := &fakeS3Client{}
	pub := &s3Publisher{id: "mirror", bucket: "artifacts", prefix: "met", client: client, log: noopLogger{}}

	if err := pub.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish returned error: %v", err)
	}
	if got := aws.ToString(client.input.Key); got != "met/Starry Night_1941.1.jpg" {
		t.Fatalf("Key = %s", got)
	}
	if got := aws.ToString(client.input.Bucket); got != "artifacts" {
		t.Fatalf("Bucket = %s", got)
	}
	if string(client.body) != "jpeg-bytes" {
		t.Fatalf("uploaded body = %q", client.body)
	}
	if client.input.Metadata["accession_number"] != "1941.1" {
		t.Fatalf("metadata = %#v", client.input.Metadata)
	}
}

func TestS3PublisherMissingFile(t *testing.T) {
	client := &fakeS3Client{}
	pub := &s3Publisher{id: "mirror", bucket: "artifacts", client: client, log: noopLogger{}}

	evt := sampleEvent()
	evt.Path = filepath.Join(t.TempDir(), "missing.jpg")
	if err := pub.Publish(context.Background(), evt); err == nil {
		t.Fatalf("expected error for missing file")
	}
	if client.input != nil {
		t.Fatalf("PutObject should not be called")
	}
}

func TestS3PublisherPutError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.jpg")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	evt := sampleEvent()
	evt.Path = path

	pub := &s3Publisher{id: "mirror", bucket: "artifacts", client: &fakeS3Client{err: errors.New("denied")}, log: noopLogger{}}
	if err := pub.Publish(context.Background(), evt); err == nil {
		t.Fatalf("expected error from Publish")
	}
}

func TestNewAWSPublishersWithStaticCredentials(t *testing.T) {
	opts := AWSOptions{Region: "us-east-1", Endpoint: "http://localhost:4566", AccessKeyID: "test", SecretAccessKey: "test"}

	builders := []struct {
		build Builder
		cfg   PublisherConfig
	}{
		{newSQSPublisher, PublisherConfig{ID: "q", Type: TypeSQS, SQS: &SQSPublisherConfig{AWSOptions: opts, QueueURL: "http://localhost:4566/000000000000/q"}}},
		{newSNSPublisher, PublisherConfig{ID: "t", Type: TypeSNS, SNS: &SNSPublisherConfig{AWSOptions: opts, TopicARN: "arn:aws:sns:us-east-1:000000000000:t"}}},
		{newS3Publisher, PublisherConfig{ID: "b", Type: TypeS3, S3: &S3PublisherConfig{AWSOptions: opts, Bucket: "b", PathStyle: true}}},
	}
	for _, b := range builders {
		pub, err := b.build(context.Background(), b.cfg, nil)
		if err != nil {
			t.Fatalf("build %s: %v", b.cfg.Type, err)
		}
		if pub.Type() != b.cfg.Type || pub.ID() != b.cfg.ID {
			t.Fatalf("unexpected publisher %s/%s", pub.Type(), pub.ID())
		}
	}
}
