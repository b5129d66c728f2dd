package registry

import (
	"github.com/go-viper/mapstructure/v2"
)

// DecodeOptions decodes a step's raw option map into the struct pointed to by
// out. Fields are matched by their `option` tag. Unknown keys are rejected
// and numbers are converted to the target field type.
func DecodeOptions(options map[string]any, out any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "option",
		ErrorUnused:      true,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(options)
}
