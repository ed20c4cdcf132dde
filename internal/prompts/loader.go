// Package prompts embeds the LLM prompt templates used by the
// extraction and validation boundaries. Templates live in JSON files so
// prompt wording can change without touching the calling code.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"sync"
)

//go:embed *.json
var files embed.FS

var (
	once    sync.Once
	loaded  map[string]map[string]string
	loadErr error
)

func load() {
	loaded = make(map[string]map[string]string)
	entries, err := files.ReadDir(".")
	if err != nil {
		loadErr = err
		return
	}
	for _, entry := range entries {
		data, err := files.ReadFile(entry.Name())
		if err != nil {
			loadErr = err
			return
		}
		var prompts map[string]string
		if err := json.Unmarshal(data, &prompts); err != nil {
			loadErr = fmt.Errorf("failed to parse %s: %w", entry.Name(), err)
			return
		}
		loaded[entry.Name()] = prompts
	}
}

// Get returns the prompt stored under key in the named file.
func Get(filename, key string) (string, error) {
	once.Do(load)
	if loadErr != nil {
		return "", loadErr
	}
	prompt, ok := loaded[filename][key]
	if !ok {
		return "", fmt.Errorf("prompt %s/%s not found", filename, key)
	}
	return prompt, nil
}

// MustGet is Get for prompts the service cannot start without.
func MustGet(filename, key string) string {
	prompt, err := Get(filename, key)
	if err != nil {
		panic(err)
	}
	return prompt
}
