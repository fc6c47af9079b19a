package application

import (
	"encoding/json"
	"fmt"
	"maps"

	"github.com/yoke233/metting/internal/domain"
)

// MergeConfig applies overrides to a meeting configuration through its JSON
// form so override keys match the documented configuration keys.
func MergeConfig(base domain.MeetingConfig, overrides map[string]any) (domain.MeetingConfig, error) {
	if len(overrides) == 0 {
		return base, nil
	}

	encoded, err := json.Marshal(base)
	if err != nil {
		return domain.MeetingConfig{}, fmt.Errorf("encode meeting config: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(encoded, &fields); err != nil {
		return domain.MeetingConfig{}, fmt.Errorf("decode meeting config: %w", err)
	}

	merged, err := json.Marshal(deepMerge(fields, overrides))
	if err != nil {
		return domain.MeetingConfig{}, fmt.Errorf("encode merged config: %w", err)
	}

	var result domain.MeetingConfig
	if err := json.Unmarshal(merged, &result); err != nil {
		return domain.MeetingConfig{}, fmt.Errorf("decode merged config: %w", err)
	}

	return result, nil
}

func deepMerge(base, overrides map[string]any) map[string]any {
	merged := maps.Clone(base)
	if merged == nil {
		merged = map[string]any{}
	}

	for key, value := range overrides {
		override, overrideIsMap := value.(map[string]any)
		current, currentIsMap := merged[key].(map[string]any)
		if overrideIsMap && currentIsMap {
			merged[key] = deepMerge(current, override)
			continue
		}
		merged[key] = value
	}

	return merged
}
