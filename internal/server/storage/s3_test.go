package storage

import (
	"context"
	"encoding/xml"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sc "github.com/dmitrijs2005/uploadbroker/internal/server/config"
	"github.com/dmitrijs2005/uploadbroker/internal/server/models"
)

const testBucket = "uploads"

func testConfig(endpoint string) *sc.Config {
	return &sc.Config{
		S3AccessKey:    "minioadmin",
		S3SecretKey:    "minioadmin",
		S3Bucket:       testBucket,
		S3Region:       "us-east-1",
		S3BaseEndpoint: endpoint,
		S3UsePathStyle: true,
	}
}

type recordedRequest struct {
	Method string
	Path   string
	Query  url.Values
	Body   string
}

// fakeS3 answers the handful of S3 calls the provider makes, path-style.
type fakeS3 struct {
	mu       sync.Mutex
	requests []recordedRequest

	// errorCode, when set, is returned as a 403 S3 error for every call.
	errorCode string
}

func (f *fakeS3) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Query: r.URL.Query(), Body: string(body)})
	code := f.errorCode
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/xml")

	if code != "" {
		w.WriteHeader(http.StatusForbidden)
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><Error><Code>`+code+`</Code><Message>simulated failure</Message><RequestId>r1</RequestId></Error>`)
		return
	}

	q := r.URL.Query()
	key := strings.TrimPrefix(r.URL.Path, "/"+testBucket+"/")

	switch {
	case r.Method == http.MethodPost && q.Has("uploads"):
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><InitiateMultipartUploadResult><Bucket>`+testBucket+`</Bucket><Key>`+key+`</Key><UploadId>upload-123</UploadId></InitiateMultipartUploadResult>`)
	case r.Method == http.MethodPost && q.Has("uploadId"):
		_, _ = io.WriteString(w, `<?xml version="1.0" encoding="UTF-8"?><CompleteMultipartUploadResult><Location>http://storage.test/`+testBucket+`/`+key+`</Location><Bucket>`+testBucket+`</Bucket><Key>`+key+`</Key><ETag>"final"</ETag></CompleteMultipartUploadResult>`)
	case r.Method == http.MethodDelete:
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotImplemented)
	}
}

func (f *fakeS3) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func (f *fakeS3) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.requests)
}

func newTestProvider(t *testing.T) (*S3Provider, *fakeS3) {
	t.Helper()
	fake := &fakeS3{}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	p, err := NewS3Provider(context.Background(), testConfig(srv.URL))
	require.NoError(t, err)
	return p, fake
}

func TestNewS3Provider_AppliesConfig(t *testing.T) {
	origLoad, origNewS3 := loadDefaultAWSConfig, newS3ClientFromConfig
	t.Cleanup(func() {
		loadDefaultAWSConfig = origLoad
		newS3ClientFromConfig = origNewS3
	})

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		var lo awsconfig.LoadOptions
		for _, fn := range optFns {
			require.NoError(t, fn(&lo))
		}
		assert.Equal(t, "us-east-1", lo.Region)
		require.NotNil(t, lo.Credentials)
		creds, err := lo.Credentials.Retrieve(ctx)
		require.NoError(t, err)
		assert.Equal(t, "minioadmin", creds.AccessKeyID)
		return aws.Config{Region: lo.Region, Credentials: lo.Credentials}, nil
	}

	var opts s3.Options
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		for _, fn := range optFns {
			fn(&opts)
		}
		return s3.NewFromConfig(cfg, optFns...)
	}

	p, err := NewS3Provider(context.Background(), testConfig("http://127.0.0.1:9000"))
	require.NoError(t, err)

	require.NotNil(t, opts.BaseEndpoint)
	assert.Equal(t, "http://127.0.0.1:9000", *opts.BaseEndpoint)
	assert.True(t, opts.UsePathStyle)
	assert.True(t, p.IsConfigured())
}

func TestNewS3Provider_LoadError(t *testing.T) {
	origLoad := loadDefaultAWSConfig
	t.Cleanup(func() { loadDefaultAWSConfig = origLoad })

	loadDefaultAWSConfig = func(ctx context.Context, optFns ...func(*awsconfig.LoadOptions) error) (aws.Config, error) {
		return aws.Config{}, errors.New("load-fail")
	}

	_, err := NewS3Provider(context.Background(), testConfig(""))
	assert.EqualError(t, err, "load-fail")
}

func TestIsConfigured(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *sc.Config)
		want   bool
	}{
		{"all set", func(c *sc.Config) {}, true},
		{"no access key", func(c *sc.Config) { c.S3AccessKey = "" }, false},
		{"no secret", func(c *sc.Config) { c.S3SecretKey = "" }, false},
		{"no bucket", func(c *sc.Config) { c.S3Bucket = "" }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := testConfig("http://127.0.0.1:9000")
			tt.mutate(c)

			p, err := NewS3Provider(context.Background(), c)
			require.NoError(t, err)
			assert.Equal(t, tt.want, p.IsConfigured())
		})
	}
}

func TestSignUpload(t *testing.T) {
	p, fake := newTestProvider(t)

	raw, err := p.SignUpload(context.Background(), "uploads/alice/1-abc-photo.jpg", "image/jpeg", 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/uploads/alice/1-abc-photo.jpg", u.Path)
	assert.Equal(t, "900", u.Query().Get("X-Amz-Expires"))
	assert.NotEmpty(t, u.Query().Get("X-Amz-Signature"))
	assert.Contains(t, u.Query().Get("X-Amz-SignedHeaders"), "content-type")
	assert.Zero(t, fake.count(), "signing must not touch the network")
}

func TestSignDownload(t *testing.T) {
	p, fake := newTestProvider(t)

	raw, err := p.SignDownload(context.Background(), "uploads/alice/1-abc-photo.jpg", time.Hour)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "/uploads/uploads/alice/1-abc-photo.jpg", u.Path)
	assert.Equal(t, "3600", u.Query().Get("X-Amz-Expires"))
	assert.Zero(t, fake.count())
}

func TestSignPart(t *testing.T) {
	p, fake := newTestProvider(t)

	raw, err := p.SignPart(context.Background(), "uploads/alice/1-abc-movie.mp4", "upload-123", 3, 15*time.Minute)
	require.NoError(t, err)

	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "3", u.Query().Get("partNumber"))
	assert.Equal(t, "upload-123", u.Query().Get("uploadId"))
	assert.Zero(t, fake.count())
}

func TestSignUpload_PresignError(t *testing.T) {
	p, _ := newTestProvider(t)

	orig := presignPutObject
	t.Cleanup(func() { presignPutObject = orig })
	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign-fail")
	}

	_, err := p.SignUpload(context.Background(), "k", "image/png", time.Minute)
	assert.EqualError(t, err, "presign-fail")
}

func TestMultipartLifecycle(t *testing.T) {
	p, fake := newTestProvider(t)
	ctx := context.Background()
	key := "uploads/alice/1-abc-movie.mp4"

	uploadID, err := p.BeginMultipart(ctx, key, "video/mp4")
	require.NoError(t, err)
	assert.Equal(t, "upload-123", uploadID)
	assert.Equal(t, http.MethodPost, fake.last().Method)
	assert.Equal(t, "/"+testBucket+"/"+key, fake.last().Path)

	location, err := p.CompleteMultipart(ctx, key, uploadID, []models.CompletedPart{
		{PartNumber: 1, ETag: `"e1"`},
		{PartNumber: 2, ETag: `"e2"`},
	})
	require.NoError(t, err)
	assert.Equal(t, "http://storage.test/"+testBucket+"/"+key, location)

	req := fake.last()
	assert.Equal(t, "upload-123", req.Query.Get("uploadId"))

	var body struct {
		Parts []struct {
			PartNumber int32  `xml:"PartNumber"`
			ETag       string `xml:"ETag"`
		} `xml:"Part"`
	}
	require.NoError(t, xml.Unmarshal([]byte(req.Body), &body))
	require.Len(t, body.Parts, 2)
	assert.Equal(t, int32(1), body.Parts[0].PartNumber)
	assert.Equal(t, `"e1"`, body.Parts[0].ETag)
	assert.Equal(t, int32(2), body.Parts[1].PartNumber)

	require.NoError(t, p.AbortMultipart(ctx, key, uploadID))
	assert.Equal(t, http.MethodDelete, fake.last().Method)
	assert.Equal(t, "upload-123", fake.last().Query.Get("uploadId"))
}

func TestDeleteObject(t *testing.T) {
	p, fake := newTestProvider(t)

	require.NoError(t, p.DeleteObject(context.Background(), "uploads/alice/1-abc-photo.jpg"))

	req := fake.last()
	assert.Equal(t, http.MethodDelete, req.Method)
	assert.Equal(t, "/"+testBucket+"/uploads/alice/1-abc-photo.jpg", req.Path)
	assert.False(t, req.Query.Has("uploadId"))
}

func TestDeleteObject_MissingKeyIsNotAnError(t *testing.T) {
	p, fake := newTestProvider(t)
	fake.errorCode = "NoSuchKey"

	assert.NoError(t, p.DeleteObject(context.Background(), "gone"))
}

func TestAPIErrorsCarryCode(t *testing.T) {
	p, fake := newTestProvider(t)
	fake.errorCode = "AccessDenied"
	ctx := context.Background()

	_, err := p.BeginMultipart(ctx, "k", "video/mp4")
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "AccessDenied: simulated failure"), err.Error())

	_, err = p.CompleteMultipart(ctx, "k", "u", []models.CompletedPart{{PartNumber: 1, ETag: "e"}})
	assert.ErrorContains(t, err, "AccessDenied")

	err = p.AbortMultipart(ctx, "k", "u")
	assert.ErrorContains(t, err, "AccessDenied")

	err = p.DeleteObject(ctx, "k")
	assert.ErrorContains(t, err, "AccessDenied")
}

func TestDescribe_PassesThroughPlainErrors(t *testing.T) {
	plain := errors.New("dial tcp: connection refused")
	assert.Same(t, plain, describe(plain))
}
