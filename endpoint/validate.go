package endpoint

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v6"
)

// FieldError reports one offending field in a webhooks configuration update.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

func (e FieldError) Error() string {
	return "webhooks config: " + e.Path + ": " + e.Message
}

// configSchema is the structural schema for the stored webhooks blob. Each
// kind accepts either the legacy single-object shape or the array shape.
const configSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "slack":   {"$ref": "#/$defs/kind"},
    "discord": {"$ref": "#/$defs/kind"},
    "generic": {"$ref": "#/$defs/kind"},
    "github":  {"$ref": "#/$defs/kind"}
  },
  "$defs": {
    "kind": {
      "type": "object",
      "anyOf": [
        {
          "properties": {
            "endpoints": {
              "type": "array",
              "items": {"$ref": "#/$defs/endpoint"}
            }
          },
          "required": ["endpoints"]
        },
        {"$ref": "#/$defs/endpoint"}
      ]
    },
    "endpoint": {
      "type": "object",
      "properties": {
        "id":             {"type": "string"},
        "url":            {"type": "string"},
        "enabled":        {"type": "boolean"},
        "delivery":       {"enum": ["immediate", "digest"]},
        "events":         {"type": "array", "items": {"type": "string"}},
        "digestInterval": {"type": "string"},
        "secret":         {"type": "string"},
        "format":         {"type": "string"},
        "rateLimit":      {"type": "integer", "minimum": 0},
        "repo":           {"type": "string"},
        "token":          {"type": "string"},
        "rules": {
          "type": "object",
          "properties": {
            "ratingMax":   {"type": "integer", "minimum": 1, "maximum": 5},
            "types":       {"type": "array", "items": {"type": "string"}},
            "tagsInclude": {"type": "array", "items": {"type": "string"}}
          }
        }
      }
    }
  }
}`

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
)

func compiledSchema() *jsonschema.Schema {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(configSchema))
		if err != nil {
			panic("endpoint: parse config schema: " + err.Error())
		}
		c := jsonschema.NewCompiler()
		if addErr := c.AddResource("fanout://schema/webhooks", doc); addErr != nil {
			panic("endpoint: add config schema: " + addErr.Error())
		}
		schema, err = c.Compile("fanout://schema/webhooks")
		if err != nil {
			panic("endpoint: compile config schema: " + err.Error())
		}
	})
	return schema
}

// Validate checks a raw webhooks configuration blob before it is persisted.
// It returns a structured list of offending field paths, or nil when the
// configuration is acceptable.
//
// Structure is checked against the embedded JSON Schema; on top of that,
// destination URLs for non-github kinds must be HTTPS, and github entries
// must carry both a repository identifier and an access token.
func Validate(raw []byte) []FieldError {
	doc, err := jsonschema.UnmarshalJSON(bytes.NewReader(raw))
	if err != nil {
		return []FieldError{{Path: "webhooks", Message: "malformed JSON: " + err.Error()}}
	}

	if schemaErr := compiledSchema().Validate(doc); schemaErr != nil {
		return []FieldError{{Path: "webhooks", Message: schemaErr.Error()}}
	}

	var errs []FieldError
	var cfg rawConfig
	if unmarshalErr := json.Unmarshal(raw, &cfg); unmarshalErr != nil {
		return []FieldError{{Path: "webhooks", Message: unmarshalErr.Error()}}
	}

	for _, k := range Kinds {
		kindRaw := cfg.forKind(k)
		if len(kindRaw) == 0 {
			continue
		}

		var shape arrayShape
		if jsonErr := json.Unmarshal(kindRaw, &shape); jsonErr == nil && shape.Endpoints != nil {
			for i, ep := range shape.Endpoints {
				path := fmt.Sprintf("%s.endpoints[%d]", k, i)
				errs = append(errs, checkEndpoint(ep, k, path)...)
			}
			continue
		}

		var ep Endpoint
		if jsonErr := json.Unmarshal(kindRaw, &ep); jsonErr != nil {
			continue
		}
		errs = append(errs, checkEndpoint(ep, k, string(k))...)
	}

	return errs
}

func checkEndpoint(ep Endpoint, k Kind, path string) []FieldError {
	var errs []FieldError

	if k == KindGitHub {
		if ep.Repo == "" {
			errs = append(errs, FieldError{Path: path + ".repo", Message: "repository identifier is required"})
		}
		if ep.Token == "" {
			errs = append(errs, FieldError{Path: path + ".token", Message: "access token is required"})
		}
		return errs
	}

	if ep.URL != "" && !isHTTPS(ep.URL) {
		errs = append(errs, FieldError{Path: path + ".url", Message: "only HTTPS URLs are accepted"})
	}
	return errs
}

func isHTTPS(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return u.Scheme == "https" && u.Host != ""
}
