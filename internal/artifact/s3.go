package artifact

import (
	"context"
	"fmt"
	"mime"
	"os"
	"path"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type uploader interface {
	Upload(ctx context.Context, in *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleter interface {
	DeleteObjects(ctx context.Context, in *s3.DeleteObjectsInput, opts ...func(*s3.Options)) (*s3.DeleteObjectsOutput, error)
}

// S3Archiver copies mask artifacts to keys like
//
//	s3://<bucket>/<prefix>/<project>/<mask>/<file>
type S3Archiver struct {
	bucket string
	prefix string
	up     uploader
	del    deleter
}

// NewS3Archiver builds an archiver from the default AWS credential chain
// (AWS_REGION, AWS_PROFILE, access keys and so on).
func NewS3Archiver(ctx context.Context, bucket, prefix string) (*S3Archiver, error) {
	if bucket == "" {
		return nil, fmt.Errorf("artifact: bucket required")
	}
	cfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("artifact: load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return &S3Archiver{
		bucket: bucket,
		prefix: prefix,
		up:     manager.NewUploader(client),
		del:    client,
	}, nil
}

// Key returns the object key for one artifact file.
func (s *S3Archiver) Key(project, mask, file string) string {
	return path.Join(s.prefix, project, mask, file)
}

// Archive uploads each file and returns the object keys in order.
func (s *S3Archiver) Archive(ctx context.Context, project, mask string, files []string) ([]string, error) {
	keys := make([]string, 0, len(files))
	for _, f := range files {
		key := s.Key(project, mask, filepath.Base(f))
		if err := s.upload(ctx, key, f); err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func (s *S3Archiver) upload(ctx context.Context, key, file string) error {
	body, err := os.Open(file)
	if err != nil {
		return fmt.Errorf("artifact: open %s: %w", file, err)
	}
	defer body.Close()

	contentType := mime.TypeByExtension(filepath.Ext(file))
	if contentType == "" {
		contentType = "text/plain"
	}
	_, err = s.up.Upload(ctx, &s3.PutObjectInput{
		Bucket:               aws.String(s.bucket),
		Key:                  aws.String(key),
		Body:                 body,
		ContentType:          aws.String(contentType),
		ServerSideEncryption: s3types.ServerSideEncryptionAes256,
	})
	if err != nil {
		return fmt.Errorf("artifact: s3 upload %s: %w", key, err)
	}
	return nil
}

// Remove deletes the archived copies of the named files.
func (s *S3Archiver) Remove(ctx context.Context, project, mask string, files []string) error {
	if len(files) == 0 {
		return nil
	}
	ids := make([]s3types.ObjectIdentifier, 0, len(files))
	for _, f := range files {
		ids = append(ids, s3types.ObjectIdentifier{Key: aws.String(s.Key(project, mask, filepath.Base(f)))})
	}
	out, err := s.del.DeleteObjects(ctx, &s3.DeleteObjectsInput{
		Bucket: aws.String(s.bucket),
		Delete: &s3types.Delete{Objects: ids, Quiet: aws.Bool(true)},
	})
	if err != nil {
		return fmt.Errorf("artifact: s3 delete %s/%s: %w", project, mask, err)
	}
	if out != nil && len(out.Errors) > 0 {
		e := out.Errors[0]
		return fmt.Errorf("artifact: s3 delete %s: %s", aws.ToString(e.Key), aws.ToString(e.Message))
	}
	return nil
}

// Nop is the archiver used when no bucket is configured.
type Nop struct{}

// Archive does nothing.
func (Nop) Archive(context.Context, string, string, []string) ([]string, error) { return nil, nil }

// Remove does nothing.
func (Nop) Remove(context.Context, string, string, []string) error { return nil }
