package command

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// FieldType describes input type.
type FieldType int

const (
	FieldString FieldType = iota
	FieldInt
	// FieldText accepts a literal or @path to read the value from a file.
	FieldText
	// FieldFile is a path whose content becomes the value.
	FieldFile
)

// Field defines a CLI input field.
type Field struct {
	Name     string
	Aliases  []string
	Prompt   string
	Type     FieldType
	Required bool
}

// Command defines a CLI command binding.
type Command struct {
	Service      string
	Action       string
	Summary      string
	Method       string
	PathTemplate string
	Fields       []Field
}

// Key is the registry key, "service action".
func (c Command) Key() string {
	return c.Service + " " + c.Action
}

// RequestSpec is the built HTTP request.
type RequestSpec struct {
	Method string
	Path   string
	Body   []byte
}

// Params holds parsed input params.
type Params map[string]string

func (p Params) Get(key string) string {
	return p[strings.ToLower(key)]
}

func (p Params) Set(key, value string) {
	p[strings.ToLower(key)] = value
}

func (p Params) Has(key string) bool {
	_, ok := p[strings.ToLower(key)]
	return ok
}

func (p Params) Canonicalize(fields []Field) {
	for _, field := range fields {
		for _, alias := range field.Aliases {
			aliasKey := strings.ToLower(alias)
			if value, ok := p[aliasKey]; ok {
				p[strings.ToLower(field.Name)] = value
				delete(p, aliasKey)
			}
		}
	}
}

// ParseArgs accepts key=value and --key value tokens.
func ParseArgs(tokens []string) (Params, error) {
	params := Params{}
	for i := 0; i < len(tokens); i++ {
		token := tokens[i]
		if strings.HasPrefix(token, "--") {
			name := strings.TrimPrefix(token, "--")
			if k, v, ok := strings.Cut(name, "="); ok {
				params.Set(k, v)
				continue
			}
			if i+1 >= len(tokens) {
				return nil, fmt.Errorf("missing value for --%s", name)
			}
			params.Set(name, tokens[i+1])
			i++
			continue
		}
		k, v, ok := strings.Cut(token, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid param: %s", token)
		}
		params.Set(k, v)
	}
	return params, nil
}

func ParseInt(value string) (int, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 32)
	return int(n), err
}

func ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read file failed: %w", err)
	}
	return string(data), nil
}

// ResolveText returns value, or the content of the file when value is @path.
func ResolveText(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, "@"); ok {
		return ReadFile(path)
	}
	return value, nil
}
