package publishers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Supported publisher types.
const (
	TypeHTTP   = "http"
	TypeSQS    = "sqs"
	TypeSNS    = "sns"
	TypeS3     = "s3"
	TypePubSub = "pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5
)

// PublisherConfig is one entry of the publishers file. Exactly the block
// matching Type is read.
type PublisherConfig struct {
	ID      string                 `json:"id" yaml:"id"`
	Type    string                 `json:"type" yaml:"type"`
	Enabled *bool                  `json:"enabled" yaml:"enabled"`
	HTTP    *HTTPPublisherConfig   `json:"http" yaml:"http"`
	SQS     *SQSPublisherConfig    `json:"sqs" yaml:"sqs"`
	SNS     *SNSPublisherConfig    `json:"sns" yaml:"sns"`
	S3      *S3PublisherConfig     `json:"s3" yaml:"s3"`
	PubSub  *PubSubPublisherConfig `json:"pubsub" yaml:"pubsub"`
}

// HTTPPublisherConfig describes a webhook.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// AWSOptions are shared by the AWS-backed publishers. Static keys are optional;
// without them the default credential chain is used.
type AWSOptions struct {
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// SQSPublisherConfig targets an SQS queue.
type SQSPublisherConfig struct {
	AWSOptions `yaml:",inline"`
	QueueURL   string `json:"uri" yaml:"uri"`
}

// SNSPublisherConfig targets an SNS topic.
type SNSPublisherConfig struct {
	AWSOptions `yaml:",inline"`
	TopicARN   string `json:"topic_arn" yaml:"topic_arn"`
}

// S3PublisherConfig mirrors downloaded images into a bucket.
type S3PublisherConfig struct {
	AWSOptions `yaml:",inline"`
	Bucket     string `json:"bucket" yaml:"bucket"`
	Prefix     string `json:"prefix" yaml:"prefix"`
	PathStyle  bool   `json:"path_style" yaml:"path_style"`
}

// PubSubPublisherConfig targets a Google Cloud Pub/Sub topic.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
}

// EnabledValue reports whether the entry is active; entries are enabled unless
// they say otherwise.
func (cfg PublisherConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

// ConfigRegistry holds the validated entries of a publishers file in file order.
type ConfigRegistry struct {
	publishers []PublisherConfig
	byID       map[string]int
}

// LoadRegistry reads a YAML or JSON publishers file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("publishers file path is empty")
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read publishers file: %w", err)
	}

	var file struct {
		Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
	}
	if err := decode(raw, filepath.Ext(path), &file); err != nil {
		return nil, err
	}
	if len(file.Publishers) == 0 {
		return nil, errors.New("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{byID: make(map[string]int, len(file.Publishers))}
	for i, cfg := range file.Publishers {
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("publishers[%d]: %w", i, err)
		}
		if _, dup := reg.byID[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate publisher id %q", cfg.ID)
		}
		reg.byID[cfg.ID] = len(reg.publishers)
		reg.publishers = append(reg.publishers, cfg)
	}
	return reg, nil
}

// decode picks the format from the extension, trying YAML then JSON when the
// extension says nothing.
func decode(raw []byte, ext string, out any) error {
	switch strings.ToLower(ext) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode yaml publishers: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode json publishers: %w", err)
		}
	default:
		if yaml.Unmarshal(raw, out) != nil && json.Unmarshal(raw, out) != nil {
			return errors.New("publishers file format not recognized (expected YAML or JSON)")
		}
	}
	return nil
}

// ByID returns the entry with the given id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}
	i, ok := r.byID[strings.TrimSpace(id)]
	if !ok {
		return PublisherConfig{}, false
	}
	return r.publishers[i], true
}

// All returns a copy of every entry.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}
	return append([]PublisherConfig(nil), r.publishers...)
}

// Enabled returns the entries that are switched on.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	if r == nil {
		return nil
	}
	var out []PublisherConfig
	for _, cfg := range r.publishers {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

func (cfg *PublisherConfig) normalize() {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if c := cfg.HTTP; c != nil {
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		c.Headers = trimHeaders(c.Headers)
	}
	if c := cfg.SQS; c != nil {
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.AWSOptions.normalize()
	}
	if c := cfg.SNS; c != nil {
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.AWSOptions.normalize()
	}
	if c := cfg.S3; c != nil {
		c.Bucket = strings.TrimSpace(c.Bucket)
		c.Prefix = strings.Trim(strings.TrimSpace(c.Prefix), "/")
		c.AWSOptions.normalize()
	}
	if c := cfg.PubSub; c != nil {
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		c.Endpoint = strings.TrimSpace(c.Endpoint)
	}
}

func (o *AWSOptions) normalize() {
	o.Region = strings.TrimSpace(o.Region)
	o.Endpoint = strings.TrimSpace(o.Endpoint)
	o.AccessKeyID = strings.TrimSpace(o.AccessKeyID)
	o.SecretAccessKey = strings.TrimSpace(o.SecretAccessKey)
}

// trimHeaders drops headers whose name or value is blank.
func trimHeaders(headers map[string]string) map[string]string {
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func (cfg PublisherConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}

	missing := func(field string) error {
		return fmt.Errorf("%s is required for publisher %q", field, cfg.ID)
	}

	switch cfg.Type {
	case "":
		return missing("type")
	case TypeHTTP:
		if cfg.HTTP == nil {
			return missing("http block")
		}
		if cfg.HTTP.URL == "" {
			return missing("http.url")
		}
	case TypeSQS:
		if cfg.SQS == nil {
			return missing("sqs block")
		}
		if cfg.SQS.QueueURL == "" {
			return missing("sqs.uri")
		}
		return cfg.SQS.AWSOptions.validate(TypeSQS, cfg.ID)
	case TypeSNS:
		if cfg.SNS == nil {
			return missing("sns block")
		}
		if cfg.SNS.TopicARN == "" {
			return missing("sns.topic_arn")
		}
		return cfg.SNS.AWSOptions.validate(TypeSNS, cfg.ID)
	case TypeS3:
		if cfg.S3 == nil {
			return missing("s3 block")
		}
		if cfg.S3.Bucket == "" {
			return missing("s3.bucket")
		}
		return cfg.S3.AWSOptions.validate(TypeS3, cfg.ID)
	case TypePubSub:
		if cfg.PubSub == nil {
			return missing("pubsub block")
		}
		if cfg.PubSub.ProjectID == "" {
			return missing("pubsub.project_id")
		}
		if cfg.PubSub.Topic == "" {
			return missing("pubsub.topic")
		}
	default:
		return fmt.Errorf("unknown type %q for publisher %q", cfg.Type, cfg.ID)
	}
	return nil
}

func (o AWSOptions) validate(section, id string) error {
	if o.Region == "" {
		return fmt.Errorf("%s.region is required for publisher %q", section, id)
	}
	if (o.AccessKeyID == "") != (o.SecretAccessKey == "") {
		return fmt.Errorf("%s.access_key_id and %s.secret_access_key must be set together for publisher %q", section, section, id)
	}
	return nil
}
