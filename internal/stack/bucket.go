package stack

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/haatos/mybucketapp/internal/template"
	"github.com/haatos/mybucketapp/internal/util"
)

const (
	bucketResourceType = "AWS::S3::Bucket"
	maxBucketNameLen   = 63
)

type RemovalPolicy string

const (
	RemovalDestroy RemovalPolicy = "destroy"
	RemovalRetain  RemovalPolicy = "retain"
)

// DeletionPolicy maps the removal policy onto the template attribute. An unset
// policy destroys the bucket.
func (rp RemovalPolicy) DeletionPolicy() string {
	if rp == RemovalRetain {
		return template.PolicyRetain
	}
	return template.PolicyDelete
}

func (rp RemovalPolicy) valid() bool {
	return rp == "" || rp == RemovalDestroy || rp == RemovalRetain
}

type BucketSpec struct {
	Name          string        `yaml:"name" json:"name"`
	RemovalPolicy RemovalPolicy `yaml:"removal_policy" json:"removal_policy"`
	Versioned     bool          `yaml:"versioned" json:"versioned"`
}

func (b BucketSpec) Validate() error {
	if b.Name == "" {
		return newValidationError("bucket name", "", "must not be empty")
	}
	if len(b.Name) > maxBucketNameLen {
		return newValidationError("bucket name", b.Name, "must be at most 63 characters")
	}
	if !b.RemovalPolicy.valid() {
		return newValidationError("removal policy", string(b.RemovalPolicy), "must be destroy or retain")
	}
	return nil
}

func (b BucketSpec) Resource() template.Resource {
	props := map[string]any{"BucketName": b.Name}
	if b.Versioned {
		props["VersioningConfiguration"] = map[string]any{"Status": "Enabled"}
	}
	policy := b.RemovalPolicy.DeletionPolicy()
	return template.Resource{
		Type:                bucketResourceType,
		Properties:          props,
		DeletionPolicy:      policy,
		UpdateReplacePolicy: policy,
	}
}

// ValidateBuckets checks every bucket and rejects names declared twice.
func ValidateBuckets(buckets []BucketSpec) error {
	seen := make(map[string]struct{}, len(buckets))
	for _, b := range buckets {
		if err := b.Validate(); err != nil {
			return err
		}
		if _, ok := seen[b.Name]; ok {
			return newValidationError("bucket name", b.Name, "declared more than once")
		}
		seen[b.Name] = struct{}{}
	}
	return nil
}

// BucketResources returns the template fragment declaring buckets in env,
// keyed by logical id.
func BucketResources(env Environment, buckets []BucketSpec) (map[string]template.Resource, error) {
	if err := env.Validate(); err != nil {
		return nil, err
	}
	if err := ValidateBuckets(buckets); err != nil {
		return nil, err
	}
	resources := make(map[string]template.Resource, len(buckets))
	for _, b := range buckets {
		resources[BucketLogicalID(b.Name)] = b.Resource()
	}
	return resources, nil
}

// BucketLogicalID derives a stable logical id from a bucket name. The hash
// suffix keeps names that differ only in punctuation apart.
func BucketLogicalID(name string) string {
	sum := sha256.Sum256([]byte(name))
	return "Bucket" + util.PascalCase(name) + strings.ToUpper(hex.EncodeToString(sum[:4]))
}
