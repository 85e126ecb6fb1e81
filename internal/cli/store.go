package cli

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/hupe1980/termdict/blobstore"
	minioStore "github.com/hupe1980/termdict/blobstore/minio"
	"github.com/hupe1980/termdict/blobstore/s3"
)

// memoryStores keeps mem:// stores alive for the life of the process so
// commands run in one process share them.
var (
	memoryMu     sync.Mutex
	memoryStores = map[string]*blobstore.MemoryStore{}
)

// OpenStore resolves a store URL.
func OpenStore(ctx context.Context, cfg StoreConfig) (blobstore.WritableStore, error) {
	raw := cfg.URL
	if raw == "" {
		raw = "."
	}
	if !strings.Contains(raw, "://") {
		return blobstore.NewLocalStore(raw), nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid store url %q: %w", raw, err)
	}
	prefix := strings.TrimPrefix(u.Path, "/")

	switch u.Scheme {
	case "file":
		return blobstore.NewLocalStore(u.Path), nil
	case "mem":
		memoryMu.Lock()
		defer memoryMu.Unlock()
		s, ok := memoryStores[u.Host]
		if !ok {
			s = blobstore.NewMemoryStore()
			memoryStores[u.Host] = s
		}
		return s, nil
	case "s3", "s3express":
		if u.Scheme == "s3express" && !s3.IsDirectoryBucket(u.Host) {
			return nil, fmt.Errorf("s3express store requires a directory bucket (name--zone-id--x-s3), got %q", u.Host)
		}
		var optFns []func(*config.LoadOptions) error
		if cfg.Region != "" {
			optFns = append(optFns, config.WithRegion(cfg.Region))
		}
		awsCfg, err := config.LoadDefaultConfig(ctx, optFns...)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		client := awss3.NewFromConfig(awsCfg)
		if u.Scheme == "s3" {
			return s3.NewStore(client, u.Host, prefix), nil
		}
		return s3.NewExpressStore(client, u.Host, prefix), nil
	case "minio":
		if cfg.Endpoint == "" {
			return nil, fmt.Errorf("minio store requires an endpoint")
		}
		client, err := minio.New(cfg.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
			Secure: cfg.UseSSL,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create minio client: %w", err)
		}
		return minioStore.NewStore(client, u.Host, prefix), nil
	default:
		return nil, fmt.Errorf("unsupported store scheme %q", u.Scheme)
	}
}

// readStore wraps remote stores with the configured page cache.
func readStore(store blobstore.WritableStore, cfg StoreConfig) blobstore.BlobStore {
	if cfg.PageCacheSize <= 0 {
		return store
	}
	switch store.(type) {
	case *blobstore.LocalStore, *blobstore.MemoryStore:
		return store
	}
	return blobstore.NewLRUCachingStore(store, cfg.PageCacheSize, cfg.PageSize)
}
