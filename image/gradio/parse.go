package gradio

import (
	"bufio"
	"encoding/json"
	"strings"

	"github.com/BaSui01/imageflow/image/providers"
	"github.com/BaSui01/imageflow/types"
	"github.com/tidwall/gjson"
)

const (
	eventComplete = "complete"
	eventError    = "error"

	excerptLen = 200
)

// ParseStream scans a Gradio result stream (event:/data: line pairs) that has
// already been read in full. The data line of a "complete" event is returned
// as the result array; an "error" event is classified; a stream with neither
// yields PROVIDER_ERROR with an excerpt of the input.
func ParseStream(text string) ([]any, error) {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 8<<20)

	var event string
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		switch {
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
			switch event {
			case eventComplete:
				var out []any
				if err := json.Unmarshal([]byte(data), &out); err != nil {
					return nil, types.NewError(types.ErrProviderError, "Malformed completion payload").
						WithUpstream(providers.Truncate(data, excerptLen)).
						WithCause(err)
				}
				return out, nil
			case eventError:
				return nil, Classify(0, errorMessage(data))
			}
		}
	}

	return nil, types.NewError(types.ErrProviderError,
		"No result in event stream: "+providers.Truncate(text, excerptLen)).
		WithUpstream(providers.Truncate(text, excerptLen))
}

// errorMessage pulls a human message out of an error event payload.
func errorMessage(data string) string {
	if data == "" || data == "null" {
		return "Unknown error from space"
	}
	if !gjson.Valid(data) {
		return data
	}
	for _, key := range []string{"error", "message"} {
		if r := gjson.Get(data, key); r.Exists() && r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}
	if r := gjson.Parse(data); r.Type == gjson.String {
		return r.Str
	}
	return data
}
