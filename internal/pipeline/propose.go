package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"campaignmap/internal"
	"campaignmap/internal/config"
)

var ErrImportCancelled = errors.New("import cancelled")

// Proposal is everything a human needs to confirm a mapping for one upload.
type Proposal struct {
	Filename    string
	Headers     []string
	ColumnTypes map[string]internal.ColumnType
	// TemplateID is empty when no template cleared the threshold.
	TemplateID string
	Candidate  internal.Mapping
	Conflicts  map[string][]internal.Field
	// Problems holds the validator output for Candidate.
	Problems []string
}

// NeedsConfirmation is false only for a template match that covers every
// required field.
func (p Proposal) NeedsConfirmation() bool {
	if p.TemplateID == "" {
		return true
	}
	for _, field := range internal.RequiredFields {
		if p.Candidate[field] == "" {
			return true
		}
	}
	return false
}

// Confirmer is the human step between a proposal and normalization. Returning
// ErrImportCancelled discards the import.
type Confirmer interface {
	Confirm(ctx context.Context, proposal Proposal) (internal.Mapping, error)
}

type Mapper struct {
	cfg     config.Config
	matcher *Matcher
}

func NewMapper(cfg config.Config, templates TemplateLister) *Mapper {
	return &Mapper{cfg: cfg, matcher: NewMatcher(cfg, templates)}
}

func (m *Mapper) Matcher() *Matcher {
	return m.matcher
}

// Propose runs type detection and template matching side by side, then builds
// the candidate mapping from the matched template or from keyword suggestions.
func (m *Mapper) Propose(headers []string, sample []internal.Row) Proposal {
	var (
		wg          sync.WaitGroup
		columnTypes map[string]internal.ColumnType
		templateID  string
		matched     bool
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		columnTypes = DetectColumnTypesWithThreshold(headers, sample, m.typeThreshold())
	}()
	go func() {
		defer wg.Done()
		templateID, matched = m.matcher.AutoDetect(headers)
	}()
	wg.Wait()

	var candidate internal.Mapping
	if matched {
		tpl, _ := m.matcher.templates.Get(templateID)
		candidate = ResolveMapping(tpl.FieldMapping, headers)
	} else {
		templateID = ""
		candidate = SuggestMapping(headers)
	}

	return Proposal{
		Headers:     headers,
		ColumnTypes: columnTypes,
		TemplateID:  templateID,
		Candidate:   candidate,
		Conflicts:   Conflicts(candidate),
		Problems:    ValidateMapping(candidate, columnTypes).Errors,
	}
}

// ConfirmMapping approves a mapping or returns a *ValidationError listing every
// problem.
func (m *Mapper) ConfirmMapping(candidate internal.Mapping, columnTypes map[string]internal.ColumnType) (internal.Mapping, error) {
	result := ValidateMapping(candidate, columnTypes)
	if err := result.Err(); err != nil {
		return nil, err
	}
	return candidate.Clone(), nil
}

// Resolve drives a proposal to an approved mapping. Template matches that
// cover the required fields are accepted as-is; everything else goes through
// the confirmer until it returns a valid mapping or gives up.
func (m *Mapper) Resolve(ctx context.Context, proposal Proposal, confirmer Confirmer) (internal.Mapping, error) {
	if !proposal.NeedsConfirmation() {
		return proposal.Candidate.Clone(), nil
	}
	if confirmer == nil {
		return nil, ErrImportCancelled
	}

	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		mapping, err := confirmer.Confirm(ctx, proposal)
		if err != nil {
			if len(proposal.Problems) > 0 && errors.Is(err, ErrImportCancelled) {
				return nil, fmt.Errorf("%w: %s", err, strings.Join(proposal.Problems, "; "))
			}
			return nil, err
		}
		approved, err := m.ConfirmMapping(mapping, proposal.ColumnTypes)
		if err == nil {
			return approved, nil
		}
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return nil, err
		}
		proposal.Candidate = mapping
		proposal.Conflicts = Conflicts(mapping)
		proposal.Problems = verr.Problems
	}
	return nil, fmt.Errorf("%w: mapping still invalid after %d attempts", ErrImportCancelled, maxAttempts)
}

func (m *Mapper) typeThreshold() float64 {
	if m.cfg.TypeDetectThreshold > 0 {
		return m.cfg.TypeDetectThreshold
	}
	return DefaultTypeThreshold
}

// StaticConfirmer answers with a fixed mapping, used for --map and scripts.
// Headers are matched case-insensitively against the upload. It gives up once
// the proposal already carries its answer with problems attached.
type StaticConfirmer struct {
	Mapping internal.Mapping
	// AcceptCandidate fills fields missing from Mapping with the proposal.
	AcceptCandidate bool
}

func (c StaticConfirmer) Confirm(_ context.Context, p Proposal) (internal.Mapping, error) {
	out := internal.Mapping{}
	if c.AcceptCandidate {
		out = p.Candidate.Clone()
	}
	for field, header := range c.Mapping {
		actual := ""
		for _, h := range p.Headers {
			if strings.EqualFold(strings.TrimSpace(h), strings.TrimSpace(header)) {
				actual = h
				break
			}
		}
		if actual == "" {
			return nil, fmt.Errorf("%w: header %q not in file", ErrImportCancelled, header)
		}
		out[field] = actual
	}
	if len(p.Problems) > 0 && out.Equal(p.Candidate) {
		return nil, ErrImportCancelled
	}
	return out, nil
}

// AutoOnlyConfirmer never confirms; unattended runs park such imports as
// needing a mapping.
type AutoOnlyConfirmer struct{}

func (AutoOnlyConfirmer) Confirm(context.Context, Proposal) (internal.Mapping, error) {
	return nil, ErrImportCancelled
}
