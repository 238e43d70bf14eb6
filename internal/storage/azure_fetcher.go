package storage

import (
	"context"
	"fmt"
	"io"
	"net/url"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
)

// AzureBlobFetcher resolves azblob://container/path refs against a single
// storage account configured at startup.
type AzureBlobFetcher struct {
	client *azblob.Client
}

// NewAzureBlobFetcher builds a fetcher with shared-key credentials.
func NewAzureBlobFetcher(accountName, accountKey string) (*AzureBlobFetcher, error) {
	credential, err := azblob.NewSharedKeyCredential(accountName, accountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", accountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &AzureBlobFetcher{client: client}, nil
}

// Fetch downloads the blob named by an azblob://container/path/to/blob ref.
func (f *AzureBlobFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	parsed, err := url.Parse(ref)
	if err != nil {
		return nil, fmt.Errorf("invalid blob reference: %w", err)
	}
	containerName := parsed.Host
	blobName := ""
	if len(parsed.Path) > 1 {
		blobName = parsed.Path[1:] // Remove leading slash
	}
	if containerName == "" || blobName == "" {
		return nil, fmt.Errorf("blob reference %q must name a container and blob", ref)
	}

	downloadResponse, err := f.client.DownloadStream(ctx, containerName, blobName, nil)
	if err != nil {
		return nil, fmt.Errorf("download failed: %w", err)
	}

	retryReader := downloadResponse.Body
	defer retryReader.Close()

	return io.ReadAll(retryReader)
}
