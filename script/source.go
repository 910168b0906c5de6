// Copyright 2026 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package script

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"google.golang.org/api/option"
)

const (
	gcsPrefix = "gcs://"
	s3Prefix  = "s3://"

	defaultFetchTimeout = 60 * time.Second
)

type sourceOptions struct {
	gcsCredentialsFile string
	awsRegion          string
	timeout            time.Duration
}

type SourceOptionFunc func(*sourceOptions)

// WithGcsCredentialsFile specifies a service account file for gcs:// URIs
func WithGcsCredentialsFile(path string) SourceOptionFunc {
	return func(o *sourceOptions) {
		o.gcsCredentialsFile = path
	}
}

// WithAwsRegion overrides the region from the default AWS config
func WithAwsRegion(region string) SourceOptionFunc {
	return func(o *sourceOptions) {
		o.awsRegion = region
	}
}

// WithFetchTimeout bounds remote reads
func WithFetchTimeout(timeout time.Duration) SourceOptionFunc {
	return func(o *sourceOptions) {
		o.timeout = timeout
	}
}

// splitBucketURI splits "<scheme>bucket/key/parts" into bucket and key
func splitBucketURI(uri string, prefix string) (string, string, error) {
	rest := strings.TrimPrefix(uri, prefix)
	bucket, key, ok := strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf(
			"expected %s<bucket>/<object>, got %q",
			prefix,
			uri,
		)
	}
	return bucket, key, nil
}

func (o sourceOptions) context(
	ctx context.Context,
) (context.Context, context.CancelFunc) {
	timeout := o.timeout
	if timeout == 0 {
		timeout = defaultFetchTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

func readGcs(ctx context.Context, uri string, o sourceOptions) ([]byte, error) {
	bucket, object, err := splitBucketURI(uri, gcsPrefix)
	if err != nil {
		return nil, err
	}
	ctx, cancel := o.context(ctx)
	defer cancel()
	clientOpts := []option.ClientOption{storage.WithDisabledClientMetrics()}
	if o.gcsCredentialsFile != "" {
		clientOpts = append(
			clientOpts,
			option.WithCredentialsFile(o.gcsCredentialsFile),
		)
	}
	client, err := storage.NewClient(ctx, clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("create storage client: %w", err)
	}
	defer client.Close()
	r, err := client.Bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("open gcs object: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func readS3(ctx context.Context, uri string, o sourceOptions) ([]byte, error) {
	bucket, key, err := splitBucketURI(uri, s3Prefix)
	if err != nil {
		return nil, err
	}
	ctx, cancel := o.context(ctx)
	defer cancel()
	awsCfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("load default AWS config: %w", err)
	}
	if o.awsRegion != "" {
		awsCfg.Region = o.awsRegion
	}
	client := s3.NewFromConfig(awsCfg)
	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 get object: %w", err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}
