package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
)

type AzureOptions struct {
	AccountName string
	AccountKey  string
	Container   string
}

// blobAPI is the part of the azblob client the store needs.
type blobAPI interface {
	DownloadStream(ctx context.Context, containerName, blobName string, o *azblob.DownloadStreamOptions) (azblob.DownloadStreamResponse, error)
	GetProperties(ctx context.Context, containerName, blobName string) error
}

type azblobClient struct {
	*azblob.Client
}

func (c azblobClient) GetProperties(ctx context.Context, containerName, blobName string) error {
	_, err := c.ServiceClient().NewContainerClient(containerName).NewBlobClient(blobName).GetProperties(ctx, nil)
	return err
}

type azureStorage struct {
	client    blobAPI
	container string
}

func NewAzureStorage(opts AzureOptions) (FileStorage, error) {
	credential, err := azblob.NewSharedKeyCredential(opts.AccountName, opts.AccountKey)
	if err != nil {
		return nil, err
	}

	client, err := azblob.NewClientWithSharedKeyCredential(
		fmt.Sprintf("https://%s.blob.core.windows.net", opts.AccountName),
		credential,
		nil,
	)
	if err != nil {
		return nil, err
	}

	return &azureStorage{client: azblobClient{Client: client}, container: opts.Container}, nil
}

func (s *azureStorage) Get(ctx context.Context, path string) (io.ReadCloser, error) {
	resp, err := s.client.DownloadStream(ctx, s.container, path, nil)
	if err != nil {
		if bloberror.HasCode(err, bloberror.BlobNotFound, bloberror.ContainerNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("azure download %s: %w", path, err)
	}
	return resp.Body, nil
}

func (s *azureStorage) Exists(ctx context.Context, path string) bool {
	return s.client.GetProperties(ctx, s.container, path) == nil
}
