package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"

	sc "github.com/dmitrijs2005/uploadbroker/internal/server/config"
	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
)

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}
	presignUploadPart = func(pc *s3.PresignClient, ctx context.Context, in *s3.UploadPartInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignUploadPart(ctx, in, optFns...)
	}
)

// S3Provider talks to an S3-compatible object store (AWS S3, MinIO, R2).
// Signing happens locally; the multipart lifecycle and deletes are API calls.
type S3Provider struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string

	configured bool
}

func NewS3Provider(ctx context.Context, c *sc.Config) (*S3Provider, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(c.S3Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			c.S3AccessKey,
			c.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.S3BaseEndpoint)
		}
		o.UsePathStyle = c.S3UsePathStyle
	})

	return &S3Provider{
		client:     client,
		presign:    newS3PresignClient(client),
		bucket:     c.S3Bucket,
		configured: c.S3AccessKey != "" && c.S3SecretKey != "" && c.S3Bucket != "",
	}, nil
}

func (p *S3Provider) IsConfigured() bool {
	return p.configured
}

func (p *S3Provider) SignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error) {
	req, err := presignPutObject(p.presign, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", describe(err)
	}
	return req.URL, nil
}

func (p *S3Provider) SignDownload(ctx context.Context, key string, ttl time.Duration) (string, error) {
	req, err := presignGetObject(p.presign, ctx, &s3.GetObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", describe(err)
	}
	return req.URL, nil
}

func (p *S3Provider) SignPart(ctx context.Context, key, uploadID string, partNumber int32, ttl time.Duration) (string, error) {
	req, err := presignUploadPart(p.presign, ctx, &s3.UploadPartInput{
		Bucket:     aws.String(p.bucket),
		Key:        aws.String(key),
		UploadId:   aws.String(uploadID),
		PartNumber: aws.Int32(partNumber),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", describe(err)
	}
	return req.URL, nil
}

// DeleteObject removes the stored object. A key that is already gone is
// not an error.
func (p *S3Provider) DeleteObject(ctx context.Context, key string) error {
	_, err := p.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(p.bucket),
		Key:    aws.String(key),
	})
	if err != nil && !hasCode(err, "NoSuchKey", "NotFound") {
		return describe(err)
	}
	return nil
}

func (p *S3Provider) BeginMultipart(ctx context.Context, key, contentType string) (string, error) {
	out, err := p.client.CreateMultipartUpload(ctx, &s3.CreateMultipartUploadInput{
		Bucket:      aws.String(p.bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", describe(err)
	}
	uploadID := aws.ToString(out.UploadId)
	if uploadID == "" {
		return "", errors.New("storage returned an empty multipart upload id")
	}
	return uploadID, nil
}

// CompleteMultipart assembles the object from parts, which must already be
// ordered by part number. It returns the object location reported by the
// store.
func (p *S3Provider) CompleteMultipart(ctx context.Context, key, uploadID string, parts []models.CompletedPart) (string, error) {
	completed := make([]types.CompletedPart, 0, len(parts))
	for _, part := range parts {
		completed = append(completed, types.CompletedPart{
			ETag:       aws.String(part.ETag),
			PartNumber: aws.Int32(part.PartNumber),
		})
	}

	out, err := p.client.CompleteMultipartUpload(ctx, &s3.CompleteMultipartUploadInput{
		Bucket:          aws.String(p.bucket),
		Key:             aws.String(key),
		UploadId:        aws.String(uploadID),
		MultipartUpload: &types.CompletedMultipartUpload{Parts: completed},
	})
	if err != nil {
		return "", describe(err)
	}
	return aws.ToString(out.Location), nil
}

func (p *S3Provider) AbortMultipart(ctx context.Context, key, uploadID string) error {
	_, err := p.client.AbortMultipartUpload(ctx, &s3.AbortMultipartUploadInput{
		Bucket:   aws.String(p.bucket),
		Key:      aws.String(key),
		UploadId: aws.String(uploadID),
	})
	if err != nil {
		return describe(err)
	}
	return nil
}

// describe flattens an S3 API error into "Code: message" so the provider
// code survives into logs and development error detail.
func describe(err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		msg := strings.TrimSpace(apiErr.ErrorMessage())
		if msg == "" {
			return fmt.Errorf("%s: %w", apiErr.ErrorCode(), err)
		}
		return fmt.Errorf("%s: %s: %w", apiErr.ErrorCode(), msg, err)
	}
	return err
}

func hasCode(err error, codes ...string) bool {
	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	for _, c := range codes {
		if apiErr.ErrorCode() == c {
			return true
		}
	}
	return false
}
