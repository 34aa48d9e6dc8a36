package narration

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/aws/aws-sdk-go/service/s3/s3iface"
)

// AudioStore 保存音频文件并返回可访问的地址
type AudioStore interface {
	Save(ctx context.Context, name string, audio []byte) (string, error)
}

// LocalStore 保存到本地静态目录，由/static路由提供访问
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore 创建LocalStore并确保目录存在
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

// Save 写入文件，返回 {URLPrefix}/{name}
func (s *LocalStore) Save(ctx context.Context, name string, audio []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(s.Dir, name), audio, 0o644); err != nil {
		return "", fmt.Errorf("write audio file: %w", err)
	}
	return s.URLPrefix + "/" + name, nil
}

// S3Store 保存到S3存储桶
type S3Store struct {
	client        s3iface.S3API
	Bucket        string
	Prefix        string
	PublicBaseURL string // 为空时使用 https://{bucket}.s3.amazonaws.com
}

// NewS3Store 创建S3Store
func NewS3Store(client s3iface.S3API, bucket, prefix, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		Bucket:        bucket,
		Prefix:        strings.Trim(prefix, "/"),
		PublicBaseURL: strings.TrimRight(publicBaseURL, "/"),
	}
}

// Save 上传音频，返回对象的公开地址
func (s *S3Store) Save(ctx context.Context, name string, audio []byte) (string, error) {
	key := name
	if s.Prefix != "" {
		key = path.Join(s.Prefix, name)
	}

	_, err := s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(audio),
		ContentLength: aws.Int64(int64(len(audio))),
		ContentType:   aws.String("audio/mpeg"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3: %w", key, err)
	}

	base := s.PublicBaseURL
	if base == "" {
		base = fmt.Sprintf("https://%s.s3.amazonaws.com", s.Bucket)
	}
	return base + "/" + key, nil
}
