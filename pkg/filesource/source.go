// Package filesource lê o conteúdo de arquivos a enviar para o Parse, seja
// do disco local ou de um bucket S3 (s3://bucket/chave).
package filesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/raywall/parse-toolkit/pkg/secrets"
)

var ErrInvalidS3Ref = errors.New("filesource: s3 reference must be s3://bucket/key")

// S3Client interface para Mock
type S3Client interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Payload é o conteúdo lido com o nome sugerido e o content type informado
// pela origem (vazio quando desconhecido).
type Payload struct {
	Name        string
	ContentType string
	Data        []byte
}

// Source resolve referências de arquivo.
type Source struct {
	s3 S3Client
}

func New(client S3Client) *Source {
	return &Source{s3: client}
}

// NewAWS cria o Source com o cliente S3 real.
func NewAWS(ctx context.Context, region string) (*Source, error) {
	cfg, err := secrets.AWSConfig(ctx, region)
	if err != nil {
		return nil, fmt.Errorf("filesource: load aws config: %w", err)
	}
	return New(s3.NewFromConfig(cfg)), nil
}

// IsS3 informa se ref aponta para o S3.
func IsS3(ref string) bool { return strings.HasPrefix(ref, "s3://") }

// Read carrega ref.
func (s *Source) Read(ctx context.Context, ref string) (*Payload, error) {
	if IsS3(ref) {
		return s.readS3(ctx, ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("filesource: read %s: %w", ref, err)
	}
	return &Payload{Name: filepath.Base(ref), Data: data}, nil
}

func (s *Source) readS3(ctx context.Context, ref string) (*Payload, error) {
	bucket, key, ok := strings.Cut(strings.TrimPrefix(ref, "s3://"), "/")
	if !ok || bucket == "" || key == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidS3Ref, ref)
	}
	if s.s3 == nil {
		return nil, errors.New("filesource: s3 client not configured")
	}

	out, err := s.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return nil, fmt.Errorf("filesource: s3 get %s: %w", ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("filesource: s3 read %s: %w", ref, err)
	}
	p := &Payload{Name: path.Base(key), Data: data}
	if out.ContentType != nil {
		p.ContentType = *out.ContentType
	}
	return p, nil
}
