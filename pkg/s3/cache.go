// Package s3 builds and memoizes clients for S3-compatible storage nodes.
//
// Three client flavors are served: the AWS SDK S3 client for bucket and
// object provisioning, the STS client for minting scoped credentials, and
// a MinIO client for streaming bucket listings during imports and crawls.
// Clients are cached per node and credential set; since the cache key is
// derived from the credentials themselves, re-registering a node with new
// keys naturally produces a fresh client.
package s3

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	"github.com/minio/minio-go/v7"
	miniocreds "github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/cuemby/holt/pkg/types"
)

// ClientCache memoizes API clients per storage node. All methods expect
// nodes carrying plaintext credentials; unsealing happens in the broker
// before the node reaches this package.
type ClientCache struct {
	mu    sync.Mutex
	s3    map[string]*awss3.Client
	sts   map[string]*sts.Client
	minio map[string]*minio.Client
}

// NewClientCache creates an empty cache.
func NewClientCache() *ClientCache {
	return &ClientCache{
		s3:    make(map[string]*awss3.Client),
		sts:   make(map[string]*sts.Client),
		minio: make(map[string]*minio.Client),
	}
}

// cacheKey derives an opaque identifier from the client flavor and the
// node's connection material.
func cacheKey(clientType string, node *types.StorageNode) string {
	raw := strings.ToLower(clientType + node.Region + node.APIURL + node.AccessKeyID + node.SecretAccessKey)
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// STSEndpoint picks the endpoint credentials are minted against: the
// node's dedicated STS URL when present, the regional AWS STS endpoint
// when an assume-role ARN points at real AWS, and the node API itself
// otherwise (MinIO serves STS on its main port).
func STSEndpoint(node *types.StorageNode) string {
	if node.STSAPIURL != "" {
		return node.STSAPIURL
	}
	if node.AssumeRoleARN != "" {
		return fmt.Sprintf("https://sts.%s.amazonaws.com", node.Region)
	}
	return node.APIURL
}

// S3 returns the AWS SDK client for a node.
func (c *ClientCache) S3(ctx context.Context, node *types.StorageNode) (ObjectAPI, error) {
	key := cacheKey("s3", node)

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.s3[key]; ok {
		return client, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(node.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(node.AccessKeyID, node.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for node %s: %w", node.Name, err)
	}

	client := awss3.NewFromConfig(cfg, func(o *awss3.Options) {
		o.BaseEndpoint = aws.String(node.APIURL)
		o.UsePathStyle = true
	})
	c.s3[key] = client
	return client, nil
}

// STS returns the STS client for a node.
func (c *ClientCache) STS(ctx context.Context, node *types.StorageNode) (STSAPI, error) {
	key := cacheKey("sts", node)

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.sts[key]; ok {
		return client, nil
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(node.Region),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(node.AccessKeyID, node.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load aws config for node %s: %w", node.Name, err)
	}

	endpoint := STSEndpoint(node)
	client := sts.NewFromConfig(cfg, func(o *sts.Options) {
		o.BaseEndpoint = aws.String(endpoint)
	})
	c.sts[key] = client
	return client, nil
}

// Minio returns the MinIO client for a node. MinIO's listing API streams
// results over a channel, which the import and crawl paths rely on.
func (c *ClientCache) Minio(node *types.StorageNode) (*minio.Client, error) {
	key := cacheKey("s3", node) + "minio"

	c.mu.Lock()
	defer c.mu.Unlock()
	if client, ok := c.minio[key]; ok {
		return client, nil
	}

	u, err := url.Parse(node.APIURL)
	if err != nil {
		return nil, fmt.Errorf("invalid node api url %q: %w", node.APIURL, err)
	}

	client, err := minio.New(u.Host, &minio.Options{
		Creds:  miniocreds.NewStaticV4(node.AccessKeyID, node.SecretAccessKey, ""),
		Secure: u.Scheme == "https",
		Region: node.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client for node %s: %w", node.Name, err)
	}
	c.minio[key] = client
	return client, nil
}
