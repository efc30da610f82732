package schema

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-yaml"
)

type schemaFile struct {
	Tables []tableFile `yaml:"tables"`
}

type tableFile struct {
	Name    string      `yaml:"name"`
	Aliases []string    `yaml:"aliases"`
	Fields  []fieldFile `yaml:"fields"`
}

type fieldFile struct {
	Name       string     `yaml:"name"`
	Type       string     `yaml:"type"`
	Nullable   bool       `yaml:"nullable"`
	PrimaryKey bool       `yaml:"primary_key"`
	Aliases    []string   `yaml:"aliases"`
	References *Reference `yaml:"references"`
	Default    any        `yaml:"default"`
}

// LoadFile registers the tables declared in a YAML schema file.
func LoadFile(path string, registry *Registry) error {
	buf, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := LoadYAML(buf, registry); err != nil {
		return fmt.Errorf("failed to load schema '%s': %w", path, err)
	}
	return nil
}

// LoadYAML registers the tables of a schema document:
//
//	tables:
//	  - name: people
//	    aliases: [users]
//	    fields:
//	      - { name: id, type: integer, primary_key: true }
//	      - { name: name, type: varchar(255), default: "" }
//	      - { name: team_id, nullable: true, references: { table: teams } }
//
// A field referencing another table defaults to type integer and the referenced column to id.
func LoadYAML(buf []byte, registry *Registry) error {
	var file schemaFile
	dec := yaml.NewDecoder(bytes.NewReader(buf), yaml.DisallowUnknownField())
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return err
	}

	for _, t := range file.Tables {
		table := &DeclaredTable{Name: t.Name, Aliases: t.Aliases}
		for _, f := range t.Fields {
			field := &DeclaredField{
				Name:       f.Name,
				Type:       f.Type,
				Nullable:   f.Nullable,
				PrimaryKey: f.PrimaryKey,
				Aliases:    f.Aliases,
				References: f.References,
				Default:    f.Default,
			}
			if field.References != nil {
				if field.References.Column == "" {
					field.References.Column = "id"
				}
				if field.Type == "" {
					field.Type = "integer"
				}
			}
			table.Fields = append(table.Fields, field)
		}
		if err := registry.Register(table); err != nil {
			return err
		}
	}
	return nil
}
