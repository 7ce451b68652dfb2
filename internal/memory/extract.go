package memory

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/gigabhai/gigabhai/internal/store"
)

// ErrNoJSONArray is returned when a provider digest contains no decodable
// top-level JSON array.
var ErrNoJSONArray = errors.New("no JSON array found in response")

// ExtractEntries pulls the first decodable JSON array of {role, content}
// objects out of a provider response. Models frequently wrap the array in
// prose ("Here is the summary: [...] Hope this helps!"), so every '['
// position is tried with a streaming decoder, which tolerates trailing text
// after the closing bracket.
func ExtractEntries(text string) ([]store.MemoryEntry, error) {
	for i := 0; i < len(text); i++ {
		if text[i] != '[' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var entries []store.MemoryEntry
		if err := dec.Decode(&entries); err == nil {
			return entries, nil
		}
	}
	return nil, ErrNoJSONArray
}
