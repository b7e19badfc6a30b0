package session

import (
	"encoding/json"

	"github.com/pkg/errors"

	"github.com/filmio/pageload/internal/common/util"
)

// LoadCredentials reads the stored localStorage entries of a logged in user. Non-string values are
// stored as their JSON encoding.
func LoadCredentials(path string, jwt *string) (map[string]string, error) {
	raw := map[string]interface{}{}
	if err := util.BindJsonOrYaml(path, &raw); err != nil {
		return nil, errors.WithMessage(err, "error reading stored credentials")
	}
	entries := make(map[string]string, len(raw)+1)
	for k, v := range raw {
		if s, ok := v.(string); ok {
			entries[k] = s
			continue
		}
		encoded, err := json.Marshal(v)
		if err != nil {
			return nil, errors.WithStack(err)
		}
		entries[k] = string(encoded)
	}
	if jwt != nil {
		entries["jwt"] = *jwt
	}
	return entries, nil
}
