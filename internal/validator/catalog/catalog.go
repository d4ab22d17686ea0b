// Package catalog reads question records from files or object storage.
package catalog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"debugoj/internal/validator/model"
	"debugoj/pkg/errors"

	"github.com/klauspost/compress/zstd"
	"gopkg.in/yaml.v3"
)

// Catalog looks up questions by id.
type Catalog interface {
	Get(ctx context.Context, id string) (*model.Question, error)
	List(ctx context.Context) ([]model.Question, error)
}

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

// decompress unpacks zstd frames and passes anything else through.
func decompress(data []byte) ([]byte, error) {
	if !bytes.HasPrefix(data, zstdMagic) {
		return data, nil
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}

type bundle struct {
	Questions []model.Question `json:"questions" yaml:"questions"`
}

// decodeQuestions accepts a JSON or YAML list, or an object with a
// "questions" list, optionally zstd-compressed.
func decodeQuestions(data []byte) ([]model.Question, error) {
	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	trimmed := bytes.TrimSpace(raw)
	var questions []model.Question
	switch {
	case len(trimmed) == 0:
		return nil, nil
	case trimmed[0] == '[':
		err = json.Unmarshal(trimmed, &questions)
	case trimmed[0] == '{':
		var b bundle
		err = json.Unmarshal(trimmed, &b)
		questions = b.Questions
	default:
		var node yaml.Node
		if err = yaml.Unmarshal(trimmed, &node); err != nil {
			break
		}
		if len(node.Content) > 0 && node.Content[0].Kind == yaml.SequenceNode {
			err = node.Decode(&questions)
		} else {
			var b bundle
			err = node.Decode(&b)
			questions = b.Questions
		}
	}
	if err != nil {
		return nil, err
	}
	for i := range questions {
		if err := questions[i].Validate(); err != nil {
			return nil, errors.Wrap(err, errors.QuestionInvalid)
		}
	}
	return questions, nil
}

// decodeQuestion reads a single JSON question document.
func decodeQuestion(data []byte) (*model.Question, error) {
	raw, err := decompress(data)
	if err != nil {
		return nil, fmt.Errorf("decompress: %w", err)
	}
	var q model.Question
	if err := json.Unmarshal(raw, &q); err != nil {
		return nil, err
	}
	if err := q.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.QuestionInvalid)
	}
	return &q, nil
}

func sortByID(qs []model.Question) {
	sort.Slice(qs, func(i, j int) bool { return qs[i].ID < qs[j].ID })
}
