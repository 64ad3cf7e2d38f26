// Package output writes snapshots in machine- and human-readable formats for
// the non-interactive commands.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	hierrors "github.com/Dicklesworthstone/hostinfo/internal/errors"
	"github.com/Dicklesworthstone/hostinfo/internal/model"
	"github.com/Dicklesworthstone/hostinfo/internal/snapshot"
)

// Format names an output encoding.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatText Format = "text"
)

// ParseFormat accepts json, yaml (or yml) and text.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatText:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", hierrors.New(hierrors.Config,
		fmt.Sprintf("unknown output format %q", s),
		"use one of: json, yaml, text")
}

// Write encodes v in the given format. Text is only defined for snapshots and
// process lists.
func Write(w io.Writer, f Format, v interface{}) error {
	switch f {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	case FormatText:
		switch t := v.(type) {
		case model.Snapshot:
			return WriteText(w, t)
		case []model.Process:
			return WriteProcesses(w, t)
		case model.Process:
			return WriteProcess(w, t)
		}
		return fmt.Errorf("text output is not supported for %T", v)
	}
	return fmt.Errorf("unknown output format %q", f)
}

// NDJSON returns a sink that writes one compact JSON object per snapshot.
// It is safe for concurrent use.
func NDJSON(w io.Writer) snapshot.Sink {
	var mu sync.Mutex
	enc := json.NewEncoder(w)
	return func(s model.Snapshot) error {
		mu.Lock()
		defer mu.Unlock()
		return enc.Encode(s)
	}
}
