package store

import (
	"context"
	"io"
	"strings"

	"cloud.google.com/go/storage"
	cloudstorage "github.com/harmonix-audio/harmonix-be/src/shared/cloud_storage/entity"
	"github.com/harmonix-audio/harmonix-be/src/shared/lib/cerr"
	"google.golang.org/api/option"
)

var _ cloudstorage.FileStore = GoogleFileStore{}

// GoogleFileStore reads and writes objects addressed by their public
// storage URL: https://<host>/<bucket>/<object path>.
type GoogleFileStore struct {
	storageHost   string
	storageClient *storage.Client
}

func NewGoogleFileStore(storageHost string, opts ...option.ClientOption) (GoogleFileStore, error) {
	client, err := storage.NewClient(context.Background(), opts...)
	if err != nil {
		return GoogleFileStore{}, cerr.Wrap(err).Error("Failed to create cloud storage client")
	}

	return GoogleFileStore{
		storageHost:   storageHost,
		storageClient: client,
	}, nil
}

func (g GoogleFileStore) GetFile(ctx context.Context, url string) ([]byte, error) {
	objectHandle, err := g.objectHandle(url)
	if err != nil {
		return nil, cerr.Wrap(err).Error("Failed to resolve storage object for URL")
	}

	reader, err := objectHandle.NewReader(ctx)
	if err != nil {
		return nil, cerr.Field("url", url).
			Wrap(err).Error("Failed to open storage object for reading")
	}
	defer reader.Close()

	contents, err := io.ReadAll(reader)
	if err != nil {
		return nil, cerr.Field("url", url).
			Wrap(err).Error("Failed to read storage object")
	}

	return contents, nil
}

func (g GoogleFileStore) WriteFile(ctx context.Context, url string, fileContent []byte) error {
	objectHandle, err := g.objectHandle(url)
	if err != nil {
		return cerr.Wrap(err).Error("Failed to resolve storage object for URL")
	}

	writer := objectHandle.NewWriter(ctx)

	_, err = writer.Write(fileContent)
	if err != nil {
		return cerr.Field("url", url).
			Wrap(err).Error("Failed to write storage object")
	}

	err = writer.Close()
	if err != nil {
		return cerr.Field("url", url).
			Wrap(err).Error("Failed to finalize storage object")
	}

	return nil
}

func (g GoogleFileStore) objectHandle(url string) (*storage.ObjectHandle, error) {
	prefix := g.storageHost + "/"
	if !strings.HasPrefix(url, prefix) {
		return nil, cerr.Fields(cerr.F{
			"url":          url,
			"storage_host": g.storageHost,
		}).Error("URL does not belong to this storage host")
	}

	bucketAndPath := strings.TrimPrefix(url, prefix)
	segments := strings.SplitN(bucketAndPath, "/", 2)
	if len(segments) != 2 || segments[1] == "" {
		return nil, cerr.Field("url", url).
			Error("URL has no object path")
	}

	return g.storageClient.Bucket(segments[0]).Object(segments[1]), nil
}
