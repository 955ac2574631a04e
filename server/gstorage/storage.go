package gstorage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/Daskott/healthdesk/shared"
	"github.com/Daskott/healthdesk/utils"
	"google.golang.org/api/option"
)

const TRANSFER_TIMEOUT = 5 * time.Minute

var ErrObjectNotExist = storage.ErrObjectNotExist

// GStorage copies database snapshots to and from one bucket, under an optional prefix.
type GStorage struct {
	storageClient *storage.Client
	bucket        string
	prefix        string
}

func NewGStorage(ctx context.Context, config shared.GoogleConfig) (*GStorage, error) {
	var client *storage.Client
	var err error

	if strings.TrimSpace(config.Storage.Bucket) == "" {
		return nil, fmt.Errorf("NewGStorage: google.storage.bucket is required")
	}

	if config.ApplicationCredentials != "" {
		client, err = storage.NewClient(ctx, option.WithCredentialsFile(config.ApplicationCredentials))
	} else {
		client, err = storage.NewClient(ctx)
	}

	if err != nil {
		return nil, fmt.Errorf("NewGStorage: %v", err)
	}

	return &GStorage{storageClient: client, bucket: config.Storage.Bucket, prefix: config.Storage.Prefix}, nil
}

// ObjectName is where a local file named fileName is stored in the bucket.
func ObjectName(prefix, fileName string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return fileName
	}

	return path.Join(prefix, fileName)
}

// UploadFile uploads filePath and returns the object name it was stored as.
func (gs *GStorage) UploadFile(ctx context.Context, filePath string) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("os.Open: %v", err)
	}
	defer f.Close()

	ctx, cancel := context.WithTimeout(ctx, TRANSFER_TIMEOUT)
	defer cancel()

	object := ObjectName(gs.prefix, filepath.Base(filePath))
	wc := gs.storageClient.Bucket(gs.bucket).Object(object).NewWriter(ctx)
	if _, err = io.Copy(wc, f); err != nil {
		wc.Close()
		return "", fmt.Errorf("io.Copy: %v", err)
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("Writer.Close: %v", err)
	}

	return object, nil
}

// DownloadFile replaces destFilePath with the object stored for its file name.
// ErrObjectNotExist is returned unwrapped when there is no such object.
func (gs *GStorage) DownloadFile(ctx context.Context, destFilePath string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, TRANSFER_TIMEOUT)
	defer cancel()

	object := ObjectName(gs.prefix, filepath.Base(destFilePath))
	rc, err := gs.storageClient.Bucket(gs.bucket).Object(object).NewReader(ctx)
	if err == storage.ErrObjectNotExist {
		return object, err
	}
	if err != nil {
		return object, fmt.Errorf("Object(%q).NewReader: %v", object, err)
	}
	defer rc.Close()

	if err := utils.WriteFileAtomic(destFilePath, rc); err != nil {
		return object, fmt.Errorf("WriteFileAtomic: %v", err)
	}

	return object, nil
}

func (gs *GStorage) Close() error {
	return gs.storageClient.Close()
}
