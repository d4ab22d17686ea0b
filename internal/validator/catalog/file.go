package catalog

import (
	"context"
	"os"

	"debugoj/internal/validator/model"
	"debugoj/pkg/errors"
)

// FileCatalog holds a question bundle loaded once from disk.
type FileCatalog struct {
	byID  map[string]model.Question
	order []model.Question
}

// LoadFile reads a JSON or YAML bundle; ".zst" bundles are detected by content.
func LoadFile(path string) (*FileCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, errors.CatalogLoadFailed, "read catalog %s", path)
	}
	return NewFileCatalog(data)
}

func NewFileCatalog(data []byte) (*FileCatalog, error) {
	questions, err := decodeQuestions(data)
	if err != nil {
		if errors.Is(err, errors.QuestionInvalid) {
			return nil, err
		}
		return nil, errors.Wrap(err, errors.CatalogLoadFailed)
	}
	c := &FileCatalog{byID: make(map[string]model.Question, len(questions))}
	for _, q := range questions {
		if _, dup := c.byID[q.ID]; dup {
			return nil, errors.Newf(errors.CatalogLoadFailed, "duplicate question id %s", q.ID)
		}
		c.byID[q.ID] = q
		c.order = append(c.order, q)
	}
	sortByID(c.order)
	return c, nil
}

func (c *FileCatalog) Get(ctx context.Context, id string) (*model.Question, error) {
	q, ok := c.byID[id]
	if !ok {
		return nil, errors.Newf(errors.QuestionNotFound, "question %s not found", id)
	}
	return &q, nil
}

func (c *FileCatalog) List(ctx context.Context) ([]model.Question, error) {
	out := make([]model.Question, len(c.order))
	copy(out, c.order)
	return out, nil
}
