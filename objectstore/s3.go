package objectstore

import (
	"context"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/credentials"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3manager"

	"github.com/yplabs-ltd/codepush-server/apierrors"
	"github.com/yplabs-ltd/codepush-server/corelog"
)

// S3Config configures the S3Driver; grounded on the teacher's
// ConfigOptionsAWSS3 (engine/api/objectstore/objectstore.go), trimmed to the
// fields a code-push bundle store actually needs.
type S3Config struct {
	Region          string
	Bucket          string
	Prefix          string
	Endpoint        string // non-empty for S3-compatible stores (e.g. MinIO, R2)
	AccessKeyID     string
	SecretAccessKey string
	ForcePathStyle  bool
}

// S3Driver implements Driver against any S3-compatible HTTPS endpoint.
type S3Driver struct {
	bucket string
	prefix string
	client *s3.S3
}

// NewS3Driver creates a Driver backed by the AWS S3 SDK.
func NewS3Driver(ctx context.Context, cfg S3Config) (*S3Driver, error) {
	corelog.Info(ctx, "objectstore> initializing S3 driver on bucket: %s", cfg.Bucket)
	awsCfg := aws.NewConfig().
		WithRegion(cfg.Region).
		WithS3ForcePathStyle(cfg.ForcePathStyle)
	if cfg.AccessKeyID != "" {
		awsCfg = awsCfg.WithCredentials(credentials.NewStaticCredentials(cfg.AccessKeyID, cfg.SecretAccessKey, ""))
	}
	if cfg.Endpoint != "" {
		awsCfg = awsCfg.WithEndpoint(cfg.Endpoint)
	}
	sess, err := session.NewSession(awsCfg)
	if err != nil {
		return nil, apierrors.WrapError(err, "objectstore: create aws session")
	}
	return &S3Driver{bucket: cfg.Bucket, prefix: cfg.Prefix, client: s3.New(sess)}, nil
}

func (d *S3Driver) fullKey(key string) string {
	if d.prefix == "" {
		return key
	}
	return d.prefix + "/" + key
}

// Put uploads data to key via the s3manager uploader, which chunks large
// bundle archives automatically.
func (d *S3Driver) Put(ctx context.Context, key string, data io.Reader, meta Metadata) error {
	uploader := s3manager.NewUploaderWithClient(d.client)
	input := &s3manager.UploadInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
		Body:   data,
	}
	if len(meta) > 0 {
		m := make(map[string]*string, len(meta))
		for k, v := range meta {
			m[k] = aws.String(v)
		}
		input.Metadata = m
	}
	if _, err := uploader.UploadWithContext(ctx, input); err != nil {
		return wrapTransient(err, "objectstore: put %s", key)
	}
	return nil
}

// Get streams the object at key.
func (d *S3Driver) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	out, err := d.client.GetObjectWithContext(ctx, &s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil {
		if isNotFoundAWSErr(err) {
			return nil, wrapNotFound(err, "objectstore: %s", key)
		}
		return nil, wrapTransient(err, "objectstore: get %s", key)
	}
	return out.Body, nil
}

// Head returns the object's user metadata.
func (d *S3Driver) Head(ctx context.Context, key string) (Metadata, error) {
	out, err := d.client.HeadObjectWithContext(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	if err != nil {
		if isNotFoundAWSErr(err) {
			return nil, wrapNotFound(err, "objectstore: %s", key)
		}
		return nil, wrapTransient(err, "objectstore: head %s", key)
	}
	meta := Metadata{}
	for k, v := range out.Metadata {
		if v != nil {
			meta[k] = *v
		}
	}
	return meta, nil
}

// List returns every key with the given prefix (paginated internally).
func (d *S3Driver) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	err := d.client.ListObjectsV2PagesWithContext(ctx, &s3.ListObjectsV2Input{
		Bucket: aws.String(d.bucket),
		Prefix: aws.String(d.fullKey(prefix)),
	}, func(page *s3.ListObjectsV2Output, lastPage bool) bool {
		for _, obj := range page.Contents {
			if obj.Key != nil {
				k := *obj.Key
				if d.prefix != "" {
					k = strings.TrimPrefix(k, d.prefix+"/")
				}
				keys = append(keys, k)
			}
		}
		return true
	})
	if err != nil {
		return nil, wrapTransient(err, "objectstore: list %s", prefix)
	}
	return keys, nil
}

// Delete removes up to 1000 keys per batch, per spec §4.2's deletePath
// contract (batches of <=1000 objects per DeleteObjects call).
func (d *S3Driver) Delete(ctx context.Context, keys ...string) error {
	const batchSize = 1000
	for start := 0; start < len(keys); start += batchSize {
		end := start + batchSize
		if end > len(keys) {
			end = len(keys)
		}
		objects := make([]*s3.ObjectIdentifier, 0, end-start)
		for _, k := range keys[start:end] {
			objects = append(objects, &s3.ObjectIdentifier{Key: aws.String(d.fullKey(k))})
		}
		if _, err := d.client.DeleteObjectsWithContext(ctx, &s3.DeleteObjectsInput{
			Bucket: aws.String(d.bucket),
			Delete: &s3.Delete{Objects: objects},
		}); err != nil {
			return wrapTransient(err, "objectstore: delete batch")
		}
	}
	return nil
}

// SignURL produces a presigned GET URL valid for ttl.
func (d *S3Driver) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, _ := d.client.GetObjectRequest(&s3.GetObjectInput{
		Bucket: aws.String(d.bucket),
		Key:    aws.String(d.fullKey(key)),
	})
	url, err := req.Presign(ttl)
	if err != nil {
		return "", wrapTransient(err, "objectstore: sign url for %s", key)
	}
	return url, nil
}

// Status issues a HeadBucket call to confirm the bucket is reachable.
func (d *S3Driver) Status(ctx context.Context) MonitoringStatus {
	if _, err := d.client.HeadBucketWithContext(ctx, &s3.HeadBucketInput{Bucket: aws.String(d.bucket)}); err != nil {
		return MonitoringStatus{Component: "Object-Store", Value: "S3 KO (" + err.Error() + ")", OK: false}
	}
	return MonitoringStatus{Component: "Object-Store", Value: "S3 OK (bucket " + d.bucket + ")", OK: true}
}

func isNotFoundAWSErr(err error) bool {
	aerr, ok := err.(awserr.Error)
	if !ok {
		return false
	}
	return aerr.Code() == s3.ErrCodeNoSuchKey || aerr.Code() == "NotFound"
}
