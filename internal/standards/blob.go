package standards

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// BlobSource loads a bundle from Azure Blob Storage. Organizations that
// manage their standards centrally publish one YAML blob per tenant.
type BlobSource struct {
	client    *azblob.Client
	container string
	blobName  string
}

// BlobSourceConfig configures a [BlobSource]. Either ServiceURL (with
// DefaultAzureCredential) or SASURL must be set.
type BlobSourceConfig struct {
	ServiceURL string
	SASURL     string
	Container  string
	BlobName   string
}

func NewBlobSource(cfg BlobSourceConfig) (*BlobSource, error) {
	if cfg.Container == "" || cfg.BlobName == "" {
		return nil, errors.New("container and blob name are required")
	}

	var client *azblob.Client
	var err error

	switch {
	case cfg.SASURL != "":
		client, err = azblob.NewClientWithNoCredential(cfg.SASURL, nil)
	case cfg.ServiceURL != "":
		var cred *azidentity.DefaultAzureCredential
		cred, err = azidentity.NewDefaultAzureCredential(nil)
		if err != nil {
			return nil, fmt.Errorf("failed to acquire azure credential: %w", err)
		}
		client, err = azblob.NewClient(cfg.ServiceURL, cred, nil)
	default:
		return nil, errors.New("either a service URL or a SAS URL is required")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to create blob client: %w", err)
	}

	return &BlobSource{
		client:    client,
		container: cfg.Container,
		blobName:  cfg.BlobName,
	}, nil
}

func (s *BlobSource) Load(ctx context.Context) (*Bundle, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, s.blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to download standards blob %s/%s: %w", s.container, s.blobName, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read standards blob: %w", err)
	}

	return parseBundle(data)
}
