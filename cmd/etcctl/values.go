package main

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ygrebnov/etc"
)

// parseAssignments turns key=value arguments into a document. Values are
// decoded as YAML; a value YAML rejects is kept as a plain string.
func parseAssignments(args []string) (etc.Doc, error) {
	doc := etc.Doc{}
	for _, arg := range args {
		key, raw, ok := strings.Cut(arg, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", arg)
		}
		doc[key] = scalar(raw)
	}
	return doc, nil
}

func scalar(raw string) any {
	if raw == "" {
		return ""
	}
	var v any
	if err := yaml.Unmarshal([]byte(raw), &v); err != nil || v == nil {
		return raw
	}
	return v
}

// lookupKey follows a dotted path through nested documents.
func lookupKey(doc etc.Doc, key string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(key, ".") {
		m, ok := cur.(etc.Doc)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}
