package pipeline

import (
	"sort"
	"strings"

	"campaignmap/internal"
	"campaignmap/internal/config"
	"campaignmap/internal/util"
)

// TemplateLister is the read side of the template registry.
type TemplateLister interface {
	List() []internal.Template
	Get(id string) (internal.Template, bool)
}

type Matcher struct {
	cfg       config.Config
	templates TemplateLister
}

type TemplateScore struct {
	ID      string
	Name    string
	Matched int
	Total   int
	Ratio   float64
}

func NewMatcher(cfg config.Config, templates TemplateLister) *Matcher {
	return &Matcher{cfg: cfg, templates: templates}
}

// AutoDetect returns the id of the template the headers belong to. With the
// default "first" selection the first template in registry order above the
// threshold wins; "best" picks the highest ratio instead.
func (m *Matcher) AutoDetect(headers []string) (string, bool) {
	folded := foldHeaders(headers)
	threshold := m.threshold()

	bestID := ""
	bestRatio := 0.0
	for _, tpl := range m.templates.List() {
		score := scoreTemplate(tpl, folded)
		if score.Ratio <= threshold {
			continue
		}
		if m.cfg.TemplateSelection != config.SelectBestMatch {
			return tpl.ID, true
		}
		if score.Ratio > bestRatio {
			bestID, bestRatio = tpl.ID, score.Ratio
		}
	}
	return bestID, bestID != ""
}

// Score reports how every registered template fares against the headers,
// highest ratio first.
func (m *Matcher) Score(headers []string) []TemplateScore {
	folded := foldHeaders(headers)
	list := m.templates.List()
	out := make([]TemplateScore, 0, len(list))
	for _, tpl := range list {
		out = append(out, scoreTemplate(tpl, folded))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Ratio > out[j].Ratio })
	return out
}

func (m *Matcher) threshold() float64 {
	if m.cfg.TemplateMatchThreshold > 0 {
		return m.cfg.TemplateMatchThreshold
	}
	return 0.6
}

func scoreTemplate(tpl internal.Template, folded []string) TemplateScore {
	score := TemplateScore{ID: tpl.ID, Name: tpl.DisplayName, Total: len(tpl.FieldMapping)}
	if score.Total == 0 {
		return score
	}
	for _, value := range tpl.FieldMapping {
		if findRelatedHeader(util.FoldHeader(value), folded) >= 0 {
			score.Matched++
		}
	}
	score.Ratio = float64(score.Matched) / float64(score.Total)
	return score
}

// ResolveMapping rewrites a template mapping onto the spelling the upload
// actually uses: an exact case-folded match first, then the first header
// related by substring. Fields with no related header are dropped.
func ResolveMapping(mapping internal.Mapping, headers []string) internal.Mapping {
	folded := foldHeaders(headers)
	out := internal.Mapping{}
	for field, value := range mapping {
		want := util.FoldHeader(value)
		if want == "" {
			continue
		}
		idx := -1
		for i, h := range folded {
			if h == want {
				idx = i
				break
			}
		}
		if idx < 0 {
			idx = findRelatedHeader(want, folded)
		}
		if idx >= 0 {
			out[field] = headers[idx]
		}
	}
	return out
}

func findRelatedHeader(value string, folded []string) int {
	if value == "" {
		return -1
	}
	for i, h := range folded {
		if h == "" {
			continue
		}
		if strings.Contains(h, value) || strings.Contains(value, h) {
			return i
		}
	}
	return -1
}

func foldHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = util.FoldHeader(h)
	}
	return out
}
