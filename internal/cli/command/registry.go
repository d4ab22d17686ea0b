package command

import (
	"encoding/json"
	"fmt"
	"net/url"
	"sort"
	"strings"
)

var sourceFields = []Field{
	{Name: "code", Prompt: "code (or @path)", Type: FieldText},
	{Name: "file", Aliases: []string{"source_file", "f"}, Prompt: "source file", Type: FieldFile},
}

// Registry returns all CLI commands keyed by "service action".
func Registry() map[string]Command {
	commands := []Command{
		{
			Service:      "question",
			Action:       "list",
			Summary:      "list catalogued questions",
			Method:       "GET",
			PathTemplate: "/api/v1/questions",
		},
		{
			Service:      "question",
			Action:       "show",
			Summary:      "show one question",
			Method:       "GET",
			PathTemplate: "/api/v1/questions/:id",
			Fields: []Field{
				{Name: "id", Aliases: []string{"question"}, Prompt: "question_id", Type: FieldString, Required: true},
			},
		},
		{
			Service:      "question",
			Action:       "validate",
			Summary:      "submit a fix for a catalogued question",
			Method:       "POST",
			PathTemplate: "/api/v1/questions/:id/validate",
			Fields: append([]Field{
				{Name: "id", Aliases: []string{"question"}, Prompt: "question_id", Type: FieldString, Required: true},
				{Name: "time", Aliases: []string{"time_spent_seconds"}, Prompt: "seconds spent", Type: FieldInt},
			}, sourceFields...),
		},
		{
			Service:      "code",
			Action:       "check",
			Summary:      "validate a fix against ad-hoc question data",
			Method:       "POST",
			PathTemplate: "/api/v1/validate",
			Fields: append([]Field{
				{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Type: FieldString, Required: true},
				{Name: "expected", Aliases: []string{"expected_output"}, Prompt: "expected output (or @path)", Type: FieldText},
				{Name: "buggy", Aliases: []string{"buggy_code"}, Prompt: "buggy code (or @path)", Type: FieldText},
				{Name: "fixed", Aliases: []string{"fixed_code"}, Prompt: "reference fix (or @path)", Type: FieldText},
				{Name: "buggy_output", Prompt: "buggy output (or @path)", Type: FieldText},
				{Name: "setup", Prompt: "sql setup (or @path)", Type: FieldText},
			}, sourceFields...),
		},
		{
			Service:      "code",
			Action:       "run",
			Summary:      "execute code without grading",
			Method:       "POST",
			PathTemplate: "/api/v1/execute",
			Fields: append([]Field{
				{Name: "language", Aliases: []string{"lang"}, Prompt: "language", Type: FieldString, Required: true},
				{Name: "setup", Prompt: "sql setup (or @path)", Type: FieldText},
			}, sourceFields...),
		},
		{
			Service:      "runtime",
			Action:       "list",
			Summary:      "show language routing, bootstrap state and remote quota",
			Method:       "GET",
			PathTemplate: "/api/v1/runtimes",
		},
	}

	result := make(map[string]Command, len(commands))
	for _, cmd := range commands {
		result[cmd.Key()] = cmd
	}
	return result
}

// SortedKeys lists registry keys alphabetically.
func SortedKeys(commands map[string]Command) []string {
	keys := make([]string, 0, len(commands))
	for key := range commands {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// Missing reports required fields params does not carry.
func Missing(cmd Command, params Params) []Field {
	params.Canonicalize(cmd.Fields)
	var missing []Field
	for _, field := range cmd.Fields {
		if field.Required && strings.TrimSpace(params.Get(field.Name)) == "" {
			missing = append(missing, field)
		}
	}
	return missing
}

func BuildRequest(cmd Command, params Params) (RequestSpec, error) {
	params.Canonicalize(cmd.Fields)
	if missing := Missing(cmd, params); len(missing) > 0 {
		return RequestSpec{}, fmt.Errorf("missing parameter: %s", missing[0].Name)
	}
	path, err := buildPath(cmd.PathTemplate, params)
	if err != nil {
		return RequestSpec{}, err
	}

	var body []byte
	if cmd.Method != "GET" {
		payload, err := buildPayload(cmd, params)
		if err != nil {
			return RequestSpec{}, err
		}
		if payload != nil {
			body, err = json.Marshal(payload)
			if err != nil {
				return RequestSpec{}, fmt.Errorf("marshal request body failed: %w", err)
			}
		}
	}
	return RequestSpec{Method: cmd.Method, Path: path, Body: body}, nil
}

func buildPath(template string, params Params) (string, error) {
	path := template
	if strings.Contains(path, ":id") {
		value := params.Get("id")
		if value == "" {
			return "", fmt.Errorf("missing path parameter: id")
		}
		path = strings.ReplaceAll(path, ":id", url.PathEscape(value))
	}
	return path, nil
}

func buildPayload(cmd Command, params Params) (interface{}, error) {
	code, err := sourceCode(params)
	if err != nil {
		return nil, err
	}
	switch cmd.Key() {
	case "question validate":
		payload := map[string]interface{}{"code": code}
		if raw := params.Get("time"); raw != "" {
			seconds, err := ParseInt(raw)
			if err != nil || seconds < 0 {
				return nil, fmt.Errorf("invalid time: %q", raw)
			}
			payload["time_spent_seconds"] = seconds
		}
		return payload, nil
	case "code check":
		payload := map[string]interface{}{
			"code":     code,
			"language": params.Get("language"),
		}
		for field, key := range map[string]string{
			"expected":     "expected_output",
			"buggy":        "buggy_code",
			"fixed":        "fixed_code",
			"buggy_output": "buggy_output",
			"setup":        "setup",
		} {
			value, err := ResolveText(params.Get(field))
			if err != nil {
				return nil, fmt.Errorf("%s: %w", field, err)
			}
			if value != "" {
				payload[key] = value
			}
		}
		return payload, nil
	case "code run":
		payload := map[string]interface{}{
			"code":     code,
			"language": params.Get("language"),
		}
		setup, err := ResolveText(params.Get("setup"))
		if err != nil {
			return nil, fmt.Errorf("setup: %w", err)
		}
		if setup != "" {
			payload["setup"] = setup
		}
		return payload, nil
	}
	return nil, nil
}

func sourceCode(params Params) (string, error) {
	if path := params.Get("file"); path != "" {
		return ReadFile(path)
	}
	code, err := ResolveText(params.Get("code"))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(code) == "" {
		return "", fmt.Errorf("code is required: pass file=<path> or code=<text|@path>")
	}
	return code, nil
}
