package database

import (
	"bytes"
	"log"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/goccy/go-yaml"
)

type GeneratorConfig struct {
	TargetTables    []string
	SkipTables      []string
	DumpConcurrency int
	TargetSchema    string
}

type generatorConfigFile struct {
	TargetTables    string `yaml:"target_tables"`
	SkipTables      string `yaml:"skip_tables"`
	DumpConcurrency *int   `yaml:"dump_concurrency"`
	TargetSchema    string `yaml:"schema"`
}

func ParseGeneratorConfig(configFile string) GeneratorConfig {
	if configFile == "" {
		return GeneratorConfig{}
	}

	buf, err := os.ReadFile(configFile)
	if err != nil {
		log.Fatal(err)
	}
	return ParseGeneratorConfigString(string(buf))
}

func ParseGeneratorConfigString(yamlString string) GeneratorConfig {
	config, err := parseGeneratorConfig([]byte(yamlString))
	if err != nil {
		log.Fatal(err)
	}
	return config
}

func parseGeneratorConfig(buf []byte) (GeneratorConfig, error) {
	var config generatorConfigFile
	dec := yaml.NewDecoder(bytes.NewReader(buf), yaml.DisallowUnknownField())
	if err := dec.Decode(&config); err != nil {
		return GeneratorConfig{}, err
	}

	result := GeneratorConfig{
		TargetTables: splitLines(config.TargetTables),
		SkipTables:   splitLines(config.SkipTables),
		TargetSchema: config.TargetSchema,
	}
	if config.DumpConcurrency != nil {
		result.DumpConcurrency = *config.DumpConcurrency
	}
	return result, nil
}

// MergeGeneratorConfigs merges configs in order. A later non-empty value overrides an earlier one.
func MergeGeneratorConfigs(configs []GeneratorConfig) GeneratorConfig {
	var result GeneratorConfig
	for _, config := range configs {
		if config.TargetTables != nil {
			result.TargetTables = config.TargetTables
		}
		if config.SkipTables != nil {
			result.SkipTables = config.SkipTables
		}
		if config.DumpConcurrency != 0 {
			result.DumpConcurrency = config.DumpConcurrency
		}
		if config.TargetSchema != "" {
			result.TargetSchema = config.TargetSchema
		}
	}
	return result
}

// FilterTables keeps the tables matched by target_tables (all when unset) and not matched by
// skip_tables. Both accept regular expressions anchored to the whole name.
func FilterTables(tables []string, config GeneratorConfig) []string {
	var filtered []string
	for _, table := range tables {
		if IsManagedTable(table, config) {
			filtered = append(filtered, table)
		}
	}
	return filtered
}

func IsManagedTable(table string, config GeneratorConfig) bool {
	if len(config.TargetTables) > 0 && !matchAny(config.TargetTables, table) {
		return false
	}
	return !matchAny(config.SkipTables, table)
}

func matchAny(patterns []string, table string) bool {
	return slices.ContainsFunc(patterns, func(pattern string) bool {
		re, err := regexp.Compile("^" + pattern + "$")
		if err != nil {
			return pattern == table
		}
		return re.MatchString(table)
	})
}

func splitLines(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
