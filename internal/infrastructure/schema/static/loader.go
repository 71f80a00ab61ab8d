package static

import (
	"context"
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

// Provider serves a schema description from a YAML file instead of
// live introspection. Used when the relational store is slow to
// introspect or the deployment pins the generator to a vetted subset.
type Provider struct {
	path string

	once   sync.Once
	schema domain.SchemaDescription
	err    error
}

func NewProvider(path string) *Provider {
	return &Provider{path: path}
}

type schemaFile struct {
	Tables []struct {
		Name        string `yaml:"name"`
		Description string `yaml:"description"`
		Columns     []struct {
			Name string `yaml:"name"`
			Type string `yaml:"type"`
		} `yaml:"columns"`
	} `yaml:"tables"`
}

func (p *Provider) Describe(_ context.Context) (domain.SchemaDescription, error) {
	p.once.Do(func() {
		p.schema, p.err = load(p.path)
	})
	return p.schema, p.err
}

func load(path string) (domain.SchemaDescription, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return domain.SchemaDescription{}, fmt.Errorf("read schema file: %w", err)
	}

	var file schemaFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return domain.SchemaDescription{}, fmt.Errorf("parse schema yaml: %w", err)
	}
	if len(file.Tables) == 0 {
		return domain.SchemaDescription{}, fmt.Errorf("schema file %s declares no tables", path)
	}

	var schema domain.SchemaDescription
	for _, t := range file.Tables {
		table := domain.TableSchema{Name: t.Name, Description: t.Description}
		for _, c := range t.Columns {
			table.Columns = append(table.Columns, domain.ColumnSchema{Name: c.Name, Type: c.Type})
		}
		schema.Tables = append(schema.Tables, table)
	}
	return schema, nil
}
