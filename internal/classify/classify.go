// Package classify separates leaf rows from the subtotal and summary rows the
// portal embeds in its export.
package classify

import (
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/variance-cli/internal/model"
)

// Default keyword sets used when no configuration overrides them.
var (
	DefaultLabelKeywords = []string{"ALL", "SUMMARY", "TOTAL"}
	DefaultRegionKeyword = "ALL"
)

// Rules is the keyword configuration of the classifier.
type Rules struct {
	LabelKeywords []string `yaml:"label_keywords"`
	RegionKeyword string   `yaml:"region_keyword"`
	RegionAllow   []string `yaml:"region_allow"` // exact real region names kept despite the keyword
}

// DefaultRules returns the stock keyword configuration.
func DefaultRules() Rules {
	return Rules{
		LabelKeywords: append([]string(nil), DefaultLabelKeywords...),
		RegionKeyword: DefaultRegionKeyword,
	}
}

// LoadRules reads classifier rules from a YAML file with a top-level
// "classifier" key. Fields missing from the file keep the values of base.
func LoadRules(path string, base Rules) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return base, eris.Wrapf(err, "classify: read rules %s", path)
	}

	var wrapper struct {
		Classifier Rules `yaml:"classifier"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return base, eris.Wrap(err, "classify: parse rules")
	}

	r := wrapper.Classifier
	if len(r.LabelKeywords) == 0 {
		r.LabelKeywords = base.LabelKeywords
	}
	if r.RegionKeyword == "" {
		r.RegionKeyword = base.RegionKeyword
	}
	if r.RegionAllow == nil {
		r.RegionAllow = base.RegionAllow
	}
	return r, nil
}

// Classifier decides whether a source row is a rollup. It is immutable after
// construction and safe for concurrent use.
type Classifier struct {
	labelKeywords []string
	regionKeyword string
	regionAllow   map[string]struct{}
}

// New builds a Classifier. Keywords are matched case-insensitively.
func New(r Rules) *Classifier {
	c := &Classifier{
		regionKeyword: strings.ToUpper(strings.TrimSpace(r.RegionKeyword)),
		regionAllow:   make(map[string]struct{}, len(r.RegionAllow)),
	}
	for _, k := range r.LabelKeywords {
		k = strings.ToUpper(strings.TrimSpace(k))
		if k != "" {
			c.labelKeywords = append(c.labelKeywords, k)
		}
	}
	for _, name := range r.RegionAllow {
		c.regionAllow[normalize(name)] = struct{}{}
	}
	return c
}

// Rules returns the effective keyword configuration.
func (c *Classifier) Rules() Rules {
	r := Rules{
		LabelKeywords: append([]string(nil), c.labelKeywords...),
		RegionKeyword: c.regionKeyword,
	}
	for name := range c.regionAllow {
		r.RegionAllow = append(r.RegionAllow, name)
	}
	return r
}

// IsRollup reports whether row is a subtotal or summary line. The decision
// depends on label and region text only, never on the measures.
func (c *Classifier) IsRollup(row model.SourceRow) bool {
	label := strings.ToUpper(row.Label)
	for _, k := range c.labelKeywords {
		if strings.Contains(label, k) {
			return true
		}
	}

	if c.regionKeyword == "" {
		return false
	}
	region := normalize(row.Region)
	if !strings.Contains(region, c.regionKeyword) {
		return false
	}
	_, allowed := c.regionAllow[region]
	return !allowed
}

// Ambiguous reports whether the label carries a keyword somewhere other than
// at its start, e.g. "Dynamic Summary" or a product named "Totalcare".
func (c *Classifier) Ambiguous(row model.SourceRow) bool {
	label := strings.ToUpper(strings.TrimSpace(row.Label))
	for _, k := range c.labelKeywords {
		if i := strings.Index(label, k); i > 0 {
			return true
		}
	}
	return false
}

// Clean returns the rows that are not rollups, in their original order.
// Ambiguous rows are logged so the keyword heuristic can be audited.
func (c *Classifier) Clean(rows []model.SourceRow) []model.SourceRow {
	clean := make([]model.SourceRow, 0, len(rows))
	var excluded, ambiguous int
	for _, row := range rows {
		rollup := c.IsRollup(row)
		if c.Ambiguous(row) {
			ambiguous++
			zap.L().Warn("classify: ambiguous label",
				zap.Int("line", row.Line),
				zap.String("label", row.Label),
				zap.String("region", row.Region),
				zap.Bool("excluded", rollup),
			)
		}
		if rollup {
			excluded++
			continue
		}
		clean = append(clean, row)
	}

	zap.L().Debug("classify: cleaned rows",
		zap.Int("input", len(rows)),
		zap.Int("kept", len(clean)),
		zap.Int("excluded", excluded),
		zap.Int("ambiguous", ambiguous),
	)
	return clean
}

// Split partitions rows into leaf and rollup subsets without logging.
func (c *Classifier) Split(rows []model.SourceRow) (leaf, rollup []model.SourceRow) {
	for _, row := range rows {
		if c.IsRollup(row) {
			rollup = append(rollup, row)
		} else {
			leaf = append(leaf, row)
		}
	}
	return leaf, rollup
}

func normalize(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}
