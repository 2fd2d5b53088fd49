// Package policy synthesizes inline S3 session policies for minted
// credentials. Documents are built as typed values and serialized once,
// at the STS call site, so every grant a token carries is inspectable
// and testable before it leaves the broker.
package policy

import "path"

// Version is the policy language version accepted by S3-compatible stores.
const Version = "2012-10-17"

// Effect is the allow/deny disposition of a statement.
type Effect string

const (
	EffectAllow Effect = "Allow"
	EffectDeny  Effect = "Deny"
)

// Action is an S3 action name.
type Action string

const (
	ActionAll               Action = "s3:*"
	ActionGetBucketLocation Action = "s3:GetBucketLocation"
	ActionListBucket        Action = "s3:ListBucket"
	ActionGetObject         Action = "s3:GetObject"
	ActionPutObject         Action = "s3:PutObject"
	ActionDeleteObject      Action = "s3:DeleteObject"
)

// StringLike matches S3 request attributes against glob patterns.
type StringLike struct {
	Prefix    []string `json:"s3:prefix,omitempty"`
	Delimiter []string `json:"s3:delimiter,omitempty"`
}

// Condition restricts when a statement applies.
type Condition struct {
	StringLike *StringLike `json:"StringLike,omitempty"`
}

// Statement is a single grant inside a policy document.
type Statement struct {
	Effect    Effect     `json:"Effect"`
	Action    []Action   `json:"Action"`
	Resource  []string   `json:"Resource"`
	Condition *Condition `json:"Condition,omitempty"`
}

// Document is a complete inline session policy.
type Document struct {
	Version   string      `json:"Version"`
	Statement []Statement `json:"Statement"`
}

// BucketARN returns the ARN of a bucket.
func BucketARN(bucket string) string {
	return "arn:aws:s3:::" + bucket
}

// objectARN joins path elements under a bucket ARN, skipping empty
// elements the way object keys are composed.
func objectARN(bucket string, elem ...string) string {
	parts := append([]string{BucketARN(bucket)}, elem...)
	return path.Join(parts...)
}
