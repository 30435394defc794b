package timeline

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk YAML form of a catalog. A milestone uses either a
// min_months/max_months window or the older days_before offset; wedding_day
// marks the pinned wedding item.
type catalogFile struct {
	Milestones []milestoneEntry `yaml:"milestones"`
}

type milestoneEntry struct {
	ID          string   `yaml:"id"`
	Title       string   `yaml:"title"`
	Icon        string   `yaml:"icon"`
	Description string   `yaml:"description"`
	Tips        []string `yaml:"tips"`
	Category    string   `yaml:"category"`
	MinMonths   *float64 `yaml:"min_months"`
	MaxMonths   *float64 `yaml:"max_months"`
	DaysBefore  *int     `yaml:"days_before"`
	WeddingDay  bool     `yaml:"wedding_day"`
	Priority    int      `yaml:"priority"`
	Weekend     bool     `yaml:"weekend"`
}

func (e milestoneEntry) rule() (Rule, error) {
	switch {
	case e.WeddingDay:
		return WeddingDay(), nil
	case e.MaxMonths != nil:
		minM := *e.MaxMonths
		if e.MinMonths != nil {
			minM = *e.MinMonths
		}
		return Window(minM, *e.MaxMonths), nil
	case e.DaysBefore != nil:
		return DaysBefore(*e.DaysBefore), nil
	default:
		return Rule{}, fmt.Errorf("%w %q: needs max_months, days_before or wedding_day", ErrInvalidTemplate, e.ID)
	}
}

// LoadCatalog reads a YAML catalog file.
func LoadCatalog(path string) (Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(data)
}

// ParseCatalog decodes a YAML catalog. Entries keep file order; a missing
// priority defaults to the entry's 1-based position.
func ParseCatalog(data []byte) (Catalog, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var f catalogFile
	if err := dec.Decode(&f); err != nil {
		return Catalog{}, fmt.Errorf("decode catalog: %w", err)
	}

	templates := make([]Template, 0, len(f.Milestones))
	for i, e := range f.Milestones {
		rule, err := e.rule()
		if err != nil {
			return Catalog{}, err
		}
		priority := e.Priority
		if priority == 0 {
			priority = i + 1
		}
		templates = append(templates, Template{
			ID:          e.ID,
			Title:       e.Title,
			Icon:        e.Icon,
			Description: e.Description,
			Tips:        e.Tips,
			Category:    e.Category,
			Rule:        rule,
			Priority:    priority,
			Weekend:     e.Weekend,
		})
	}
	return NewCatalog(templates)
}
