package publishers

import (
	"context"
	"fmt"
	"os"
	"path"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type s3Client interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// s3Publisher mirrors each downloaded image into a bucket under prefix/<file name>.
type s3Publisher struct {
	id     string
	bucket string
	prefix string
	client s3Client
	log    Logger
}

func newS3Publisher(ctx context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.S3 == nil {
		return nil, fmt.Errorf("publisher %q missing s3 configuration", cfg.ID)
	}

	awsCfg, err := loadAWSConfig(ctx, cfg.S3.AWSOptions)
	if err != nil {
		return nil, err
	}
	endpoint := cfg.S3.endpoint()
	pathStyle := cfg.S3.PathStyle

	return &s3Publisher{
		id:     cfg.ID,
		bucket: cfg.S3.Bucket,
		prefix: cfg.S3.Prefix,
		client: s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			o.BaseEndpoint = endpoint
			o.UsePathStyle = pathStyle
		}),
		log: ensureLogger(log),
	}, nil
}

func (s *s3Publisher) ID() string   { return s.id }
func (s *s3Publisher) Type() string { return TypeS3 }

func (s *s3Publisher) Publish(ctx context.Context, evt Event) error {
	f, err := os.Open(evt.Path)
	if err != nil {
		return fmt.Errorf("open %s: %w", evt.Path, err)
	}
	defer f.Close()

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(s.key(evt)),
		Body:          f,
		ContentLength: aws.Int64(evt.Bytes),
		ContentType:   aws.String("image/jpeg"),
		Metadata:      evt.attributes(),
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		logFailed(s.log, TypeS3, s.id, err)
		return fmt.Errorf("put object: %w", err)
	}
	logDelivered(s.log, TypeS3, s.id)
	return nil
}

func (s *s3Publisher) key(evt Event) string {
	if s.prefix == "" {
		return evt.FileName
	}
	return path.Join(s.prefix, evt.FileName)
}
