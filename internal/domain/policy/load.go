package policy

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a rule set from a YAML file and validates it
func Load(path string) (RuleSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return RuleSet{}, fmt.Errorf("read policy file: %w", err)
	}
	var rs RuleSet
	if err := yaml.Unmarshal(data, &rs); err != nil {
		return RuleSet{}, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	if err := rs.Validate(); err != nil {
		return RuleSet{}, fmt.Errorf("policy file %s: %w", path, err)
	}
	return rs, nil
}
