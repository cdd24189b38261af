package config

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v2"
)

// Credential is one row of the credential lookup table. An empty Environment
// applies to every environment; Currency "*" matches any currency.
type Credential struct {
	Provider    string `yaml:"provider"`
	Currency    string `yaml:"currency"`
	Environment string `yaml:"environment"`
	Key         string `yaml:"key"`
	Secret      string `yaml:"secret"`
	Operator    string `yaml:"operator"`
}

type credentialsFile struct {
	Credentials []Credential `yaml:"credentials"`
}

type credentialKey struct {
	provider string
	currency string
}

// CredentialTable resolves (provider, currency) to a credential for one environment.
type CredentialTable struct {
	environment string
	entries     map[credentialKey]Credential
}

// LoadCredentials reads the YAML lookup table and keeps the rows for environment.
func LoadCredentials(path, environment string) (*CredentialTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", path, err)
	}

	var file credentialsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}

	return NewCredentialTable(environment, file.Credentials)
}

func NewCredentialTable(environment string, rows []Credential) (*CredentialTable, error) {
	t := &CredentialTable{
		environment: environment,
		entries:     make(map[credentialKey]Credential, len(rows)),
	}

	for i, row := range rows {
		if row.Provider == "" {
			return nil, fmt.Errorf("credential at index %d missing provider", i)
		}
		if row.Currency == "" {
			return nil, fmt.Errorf("credential at index %d missing currency", i)
		}
		if row.Environment != "" && !strings.EqualFold(row.Environment, environment) {
			continue
		}

		key := credentialKey{provider: normalize(row.Provider), currency: normalize(row.Currency)}
		if existing, ok := t.entries[key]; ok && existing.Environment != "" && row.Environment == "" {
			// an environment-specific row wins over a catch-all one
			continue
		} else if ok && (existing.Environment == "") == (row.Environment == "") {
			return nil, fmt.Errorf("duplicate credential for %s/%s", row.Provider, row.Currency)
		}
		t.entries[key] = row
	}

	return t, nil
}

// Lookup returns the credential for provider and currency, falling back to the
// provider's "*" row.
func (t *CredentialTable) Lookup(provider, currency string) (Credential, bool) {
	if t == nil {
		return Credential{}, false
	}
	p := normalize(provider)
	if c, ok := t.entries[credentialKey{provider: p, currency: normalize(currency)}]; ok {
		return c, true
	}
	c, ok := t.entries[credentialKey{provider: p, currency: "*"}]
	return c, ok
}

// ForProvider lists every credential registered for provider, ordered by
// currency.
func (t *CredentialTable) ForProvider(provider string) []Credential {
	if t == nil {
		return nil
	}
	p := normalize(provider)
	var out []Credential
	for k, c := range t.entries {
		if k.provider == p {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return normalize(out[i].Currency) < normalize(out[j].Currency) })
	return out
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
