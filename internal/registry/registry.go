// Package registry maps logical resource names to their physical storage
// location and sensitive-field list. The audit pipeline depends only on this
// lookup table and stays free of resource-specific types.
package registry

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"
)

// RedactionMarker replaces sensitive field values before they are compared,
// logged, or persisted.
const RedactionMarker = "[REDACTED]"

var identPattern = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Resource describes one registered logical resource.
type Resource struct {
	Table     string   `yaml:"table"`
	Sensitive []string `yaml:"sensitive"`
}

type Registry struct {
	resources        map[string]Resource
	defaultSensitive []string
}

// Default returns the registry preloaded with every screen the system knows.
// Table names are not always 1:1 with the resource name; unregistered
// resources fall back to using their name as the table verbatim.
func Default() *Registry {
	return &Registry{
		defaultSensitive: []string{"senha", "senha_hash"},
		resources: map[string]Resource{
			"usuarios":              {Table: "usuarios", Sensitive: []string{"senha", "senha_hash", "senha_atual", "senha_nova"}},
			"fornecedores":          {Table: "fornecedores"},
			"clientes":              {Table: "clientes"},
			"filiais":               {Table: "filiais"},
			"rotas":                 {Table: "rotas"},
			"produtos":              {Table: "produtos"},
			"grupos":                {Table: "grupos"},
			"subgrupos":             {Table: "subgrupos"},
			"classes":               {Table: "classes"},
			"marcas":                {Table: "marcas"},
			"unidades":              {Table: "unidades_medida"},
			"unidades_escolares":    {Table: "unidades_escolares"},
			"nome_generico_produto": {Table: "nome_generico_produto"},
			"veiculos":              {Table: "veiculos"},
			"motoristas":            {Table: "motoristas"},
			"ajudantes":             {Table: "ajudantes"},
			"permissoes":            {Table: "permissoes_usuario"},
		},
	}
}

// LoadFile overlays resource definitions from a YAML file onto the registry.
// Entries replace same-named defaults; unknown keys add new resources.
func (r *Registry) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read registry file: %w", err)
	}

	var overrides map[string]Resource
	if err := yaml.Unmarshal(data, &overrides); err != nil {
		return fmt.Errorf("failed to parse registry file: %w", err)
	}

	for name, res := range overrides {
		if res.Table == "" {
			res.Table = name
		}
		if !identPattern.MatchString(res.Table) {
			return fmt.Errorf("invalid table name %q for resource %q", res.Table, name)
		}
		r.resources[name] = res
	}
	return nil
}

// Table resolves the physical table for a resource. Unmapped resources use
// the resource name verbatim, provided it is a safe SQL identifier.
func (r *Registry) Table(resource string) (string, error) {
	if res, ok := r.resources[resource]; ok {
		return res.Table, nil
	}
	if !identPattern.MatchString(resource) {
		return "", fmt.Errorf("resource %q is not a valid identifier", resource)
	}
	return resource, nil
}

// Known reports whether the resource was explicitly registered.
func (r *Registry) Known(resource string) bool {
	_, ok := r.resources[resource]
	return ok
}

// SensitiveFields returns the field names whose values must never be
// persisted or compared for the given resource.
func (r *Registry) SensitiveFields(resource string) []string {
	fields := append([]string(nil), r.defaultSensitive...)
	if res, ok := r.resources[resource]; ok {
		fields = append(fields, res.Sensitive...)
	}
	return fields
}

// Screens lists every registered resource name, sorted, for grant recompute.
func (r *Registry) Screens() []string {
	names := make([]string, 0, len(r.resources))
	for name := range r.resources {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
