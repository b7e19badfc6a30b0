package util

import (
	"os"

	"github.com/pkg/errors"
	"sigs.k8s.io/yaml"

	"github.com/filmio/pageload/internal/common/loaderrors"
)

// BindJsonOrYaml decodes a JSON or YAML file into obj using the object's json tags.
func BindJsonOrYaml(filePath string, obj interface{}) error {
	data, err := os.ReadFile(filePath)
	if os.IsNotExist(err) {
		return errors.WithStack(&loaderrors.ErrNotFound{Type: "file", Value: filePath})
	} else if err != nil {
		return errors.Wrapf(err, "failed opening file %s", filePath)
	}
	if err := UnmarshalJsonOrYaml(data, obj); err != nil {
		return errors.WithMessagef(err, "failed to parse file %s", filePath)
	}
	return nil
}

func UnmarshalJsonOrYaml(data []byte, obj interface{}) error {
	return errors.WithStack(yaml.Unmarshal(data, obj))
}
