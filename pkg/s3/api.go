package s3

import (
	"context"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/cuemby/holt/pkg/types"
)

// ObjectAPI is the slice of the S3 service the broker provisions with.
type ObjectAPI interface {
	CreateBucket(ctx context.Context, params *awss3.CreateBucketInput, optFns ...func(*awss3.Options)) (*awss3.CreateBucketOutput, error)
	PutObject(ctx context.Context, params *awss3.PutObjectInput, optFns ...func(*awss3.Options)) (*awss3.PutObjectOutput, error)
}

// STSAPI is the slice of the STS service tokens are minted through.
type STSAPI interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

// ClientSource yields per-node API handles. ClientCache is the production
// implementation.
type ClientSource interface {
	S3(ctx context.Context, node *types.StorageNode) (ObjectAPI, error)
	STS(ctx context.Context, node *types.StorageNode) (STSAPI, error)
}

var _ ClientSource = (*ClientCache)(nil)
