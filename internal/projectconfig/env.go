package projectconfig

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/punjabi-nlp/bpetok/internal/tokens/bpe"
)

// EnvPrefix starts every environment override, e.g.
// BPETOK_TRAIN_MAX_VOCAB_SIZE=8000 or BPETOK_CACHE_ENABLED=true.
const EnvPrefix = "BPETOK_"

var envSections = map[string]bool{
	"train":    true,
	"artifact": true,
	"cache":    true,
	"encode":   true,
	"count":    true,
}

// ApplyEnv overlays BPETOK_<SECTION>_<KEY> entries from environ (as returned
// by os.Environ) onto cfg. Variables for other sections are ignored; an
// unknown key inside a known section is an error.
func ApplyEnv(cfg *ProjectConfig, environ []string) error {
	overrides := map[string]any{}
	for _, kv := range environ {
		name, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, EnvPrefix) {
			continue
		}
		section, key, ok := strings.Cut(strings.ToLower(strings.TrimPrefix(name, EnvPrefix)), "_")
		if !ok || !envSections[section] {
			continue
		}
		fields, _ := overrides[section].(map[string]any)
		if fields == nil {
			fields = map[string]any{}
			overrides[section] = fields
		}
		fields[key] = value
	}
	if len(overrides) == 0 {
		return nil
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "yaml",
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           cfg,
	})
	if err != nil {
		return fmt.Errorf("creating env decoder: %w", err)
	}
	if err := decoder.Decode(overrides); err != nil {
		return fmt.Errorf("%w: environment overrides: %v", bpe.ErrInvalidConfig, err)
	}
	return nil
}
