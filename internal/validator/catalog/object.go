package catalog

import (
	"context"
	stderrors "errors"
	"io"
	"path"
	"strings"
	"time"

	"debugoj/internal/common/cache"
	"debugoj/internal/common/storage"
	"debugoj/internal/validator/model"
	"debugoj/pkg/errors"
	"debugoj/pkg/utils/logger"

	"go.uber.org/zap"
)

const (
	questionCacheKeyPrefix = "validator:question:"
	maxQuestionBytes       = 1 << 20
)

// ObjectConfig locates question documents in a bucket.
type ObjectConfig struct {
	Bucket   string        `yaml:"bucket"`
	Prefix   string        `yaml:"prefix"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
	// EmptyTTL caches misses so unknown ids do not hit storage on every request.
	EmptyTTL time.Duration `yaml:"emptyTTL"`
}

// ObjectCatalog reads "<prefix>/<id>.json" documents, optionally through a cache.
type ObjectCatalog struct {
	store storage.ObjectStorage
	cache cache.Cache
	cfg   ObjectConfig
}

// NewObjectCatalog builds a catalog; c may be nil to disable caching.
func NewObjectCatalog(store storage.ObjectStorage, c cache.Cache, cfg ObjectConfig) *ObjectCatalog {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	if cfg.EmptyTTL <= 0 {
		cfg.EmptyTTL = time.Minute
	}
	return &ObjectCatalog{store: store, cache: c, cfg: cfg}
}

func (o *ObjectCatalog) objectKey(id string) string {
	return path.Join(o.cfg.Prefix, id+".json")
}

func (o *ObjectCatalog) Get(ctx context.Context, id string) (*model.Question, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return nil, errors.Newf(errors.QuestionNotFound, "question %s not found", id)
	}
	rt := cache.ReadThrough{Cache: o.cache, TTL: o.cfg.CacheTTL, MissTTL: o.cfg.EmptyTTL}
	q, err := cache.LoadJSON(ctx, rt, questionCacheKeyPrefix+id, func(ctx context.Context) (*model.Question, error) {
		return o.fetch(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	if q == nil {
		return nil, errors.Newf(errors.QuestionNotFound, "question %s not found", id)
	}
	return q, nil
}

// fetch returns (nil, nil) for missing objects so the miss can be cached.
func (o *ObjectCatalog) fetch(ctx context.Context, id string) (*model.Question, error) {
	rc, err := o.store.GetObject(ctx, o.cfg.Bucket, o.objectKey(id))
	if err != nil {
		if stderrors.Is(err, storage.ErrObjectNotFound) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, errors.StorageError, "load question %s", id)
	}
	defer rc.Close()

	data, err := io.ReadAll(io.LimitReader(rc, maxQuestionBytes))
	if err != nil {
		return nil, errors.Wrapf(err, errors.StorageError, "read question %s", id)
	}
	q, err := decodeQuestion(data)
	if err != nil {
		return nil, errors.Wrapf(err, errors.QuestionInvalid, "decode question %s", id)
	}
	if q.ID != id {
		logger.Warn(ctx, "question id does not match object key", zap.String("id", id), zap.String("document_id", q.ID))
		q.ID = id
	}
	return q, nil
}

func (o *ObjectCatalog) List(ctx context.Context) ([]model.Question, error) {
	ctx, cancel := context.WithCancel(ctx)
	entries := o.store.ListObjects(ctx, o.cfg.Bucket, o.cfg.Prefix)
	defer func() {
		cancel()
		for range entries {
		}
	}()

	var out []model.Question
	for info := range entries {
		if info.Err != nil {
			return nil, errors.Wrap(info.Err, errors.StorageError)
		}
		if !strings.HasSuffix(info.Key, ".json") {
			continue
		}
		id := strings.TrimSuffix(path.Base(info.Key), ".json")
		q, err := o.Get(ctx, id)
		if err != nil {
			if errors.Is(err, errors.QuestionNotFound) {
				continue
			}
			return nil, err
		}
		out = append(out, *q)
	}
	sortByID(out)
	return out, nil
}
