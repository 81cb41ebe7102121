package loader

import (
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/claims-cli/internal/model"
)

// Aliases maps a canonical column name to the source spellings that should
// be renamed to it.
type Aliases map[string][]string

// LoadAliases reads an alias table from a YAML file of the form:
//
//	aliases:
//	  npi: [NPI, pharmacy_npi]
//	  claim_id: [revert_claim_id]
func LoadAliases(path string) (Aliases, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "aliases: read %s", path)
	}

	var wrapper struct {
		Aliases Aliases `yaml:"aliases"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return nil, eris.Wrap(err, "aliases: parse")
	}

	seen := make(map[string]string)
	for canonical, names := range wrapper.Aliases {
		for _, name := range names {
			if prev, dup := seen[name]; dup && prev != canonical {
				return nil, eris.Errorf("aliases: %q maps to both %q and %q", name, prev, canonical)
			}
			seen[name] = canonical
		}
	}

	return wrapper.Aliases, nil
}

// Empty reports whether the table renames nothing.
func (a Aliases) Empty() bool {
	return len(a) == 0
}

// Apply renames alias columns on rec to their canonical names. A canonical
// column already present wins over its aliases.
func (a Aliases) Apply(rec model.Record) {
	canon := make([]string, 0, len(a))
	for c := range a {
		canon = append(canon, c)
	}
	sort.Strings(canon)

	for _, c := range canon {
		for _, alias := range a[c] {
			v, ok := rec.Get(alias)
			if !ok || alias == c {
				continue
			}
			delete(rec.Fields, alias)
			if !rec.Has(c) {
				rec.Set(c, v)
			}
		}
	}
}
