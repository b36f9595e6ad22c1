// Package conflict finds possible conflicts of interest between a matter and
// the other matters of its tenant, and records the human decision on them.
package conflict

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/casegate/casegate-backend/internal/config"
	"github.com/casegate/casegate-backend/internal/domain"
)

type matterIndex interface {
	GetByID(ctx context.Context, tenantID, id uuid.UUID) (*domain.Matter, error)
	FindMatches(ctx context.Context, kind domain.NameKind, tenantID, excludeMatterID uuid.UUID, normalized string, limit int) ([]domain.NameMatch, error)
	ListNames(ctx context.Context, tenantID, excludeMatterID uuid.UUID) ([]domain.IndexedName, error)
}

// Matcher compares a matter's names against the rest of the tenant's corpus.
// It never writes.
type Matcher struct {
	index     matterIndex
	cap       int
	threshold float64
	minLen    int
}

// NewMatcher creates a Matcher. cfg.MaxMatchesPerName bounds the matches
// reported per name and kind; names that reach it are listed as truncated.
func NewMatcher(index matterIndex, cfg config.ConflictConfig) *Matcher {
	return &Matcher{
		index:     index,
		cap:       cfg.MaxMatchesPerName,
		threshold: cfg.SimilarityThreshold,
		minLen:    cfg.MinSimilarNameLen,
	}
}

// candidateName is one distinct name of the matter under check.
type candidateName struct {
	kind       domain.NameKind
	name       string
	normalized string
}

// FindConflicts returns the conflict candidates for matterID ordered by
// severity desc, match time asc, matter number and name. The result is
// deterministic for a given corpus.
func (m *Matcher) FindConflicts(ctx context.Context, tenantID, matterID uuid.UUID) (*domain.ConflictReport, error) {
	matter, err := m.index.GetByID(ctx, tenantID, matterID)
	if err != nil {
		return nil, fmt.Errorf("get matter: %w", err)
	}
	names := candidateNames(matter)

	exact := make([][]domain.NameMatch, len(names))
	var corpus []domain.IndexedName

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	for i, n := range names {
		g.Go(func() error {
			// one extra row tells a capped result from an exact fit
			found, err := m.index.FindMatches(gctx, n.kind, tenantID, matterID, n.normalized, m.cap+1)
			if err != nil {
				return fmt.Errorf("find %s matches: %w", n.kind, err)
			}
			exact[i] = found
			return nil
		})
	}
	g.Go(func() error {
		var err error
		corpus, err = m.index.ListNames(gctx, tenantID, matterID)
		if err != nil {
			return fmt.Errorf("list names: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	report := &domain.ConflictReport{MatterID: matterID, Candidates: []domain.ConflictCandidate{}}
	truncated := map[string]bool{}

	for i, n := range names {
		found := exact[i]
		if len(found) > m.cap {
			found = found[:m.cap]
			truncated[n.name] = true
		}
		for _, match := range found {
			report.Candidates = append(report.Candidates, exactCandidate(n, match))
		}
	}

	for _, n := range names {
		similar := m.similar(n, corpus)
		if len(similar) > m.cap {
			similar = similar[:m.cap]
			truncated[n.name] = true
		}
		report.Candidates = append(report.Candidates, similar...)
	}

	sortCandidates(report.Candidates)
	for name := range truncated {
		report.Truncated = append(report.Truncated, name)
	}
	slices.Sort(report.Truncated)
	return report, nil
}

func candidateNames(m *domain.Matter) []candidateName {
	seen := map[candidateName]bool{}
	var out []candidateName
	add := func(kind domain.NameKind, name string) {
		n := candidateName{kind: kind, normalized: domain.NormalizeText(name)}
		if n.normalized == "" || seen[n] {
			return
		}
		seen[n] = true
		n.name = name
		out = append(out, n)
	}
	for _, p := range m.Parties {
		add(domain.NameKindParty, p.Name)
	}
	for _, c := range m.Counterparties {
		add(domain.NameKindCounterparty, c.Name)
	}
	return out
}

func exactCandidate(n candidateName, match domain.NameMatch) domain.ConflictCandidate {
	typ := domain.ConflictTypePartyDuplicate
	detail := fmt.Sprintf("party %q is also a party on matter %s", n.name, match.MatterNumber)
	if n.kind == domain.NameKindCounterparty {
		typ = domain.ConflictTypeCounterpartyMatch
		detail = fmt.Sprintf("counterparty %q also appears on matter %s", n.name, match.MatterNumber)
	}
	return domain.ConflictCandidate{
		Type:          typ,
		MatterID:      match.MatterID,
		MatterNumber:  match.MatterNumber,
		MatchedName:   match.Name,
		CandidateName: n.name,
		Detail:        detail,
		Severity:      typ.Severity(),
		MatchedAt:     match.CreatedAt,
	}
}

// similar returns the candidates n has among the tenant's names of any kind
// in match order. An identical name of the other kind is a COUNTERPARTY_MATCH;
// close names are SIMILAR_NAME. Identical names of the same kind are already
// exact matches.
func (m *Matcher) similar(n candidateName, corpus []domain.IndexedName) []domain.ConflictCandidate {
	short := utf8.RuneCountInString(n.normalized) < m.minLen

	var out []domain.ConflictCandidate
	for _, other := range corpus {
		normalized := domain.NormalizeText(other.Name)
		if normalized == n.normalized {
			if other.Kind != n.kind {
				out = append(out, crossKindCandidate(n, other))
			}
			continue
		}
		if short || utf8.RuneCountInString(normalized) < m.minLen {
			continue
		}
		score := Similarity(n.normalized, normalized)
		if score < m.threshold {
			continue
		}
		out = append(out, domain.ConflictCandidate{
			Type:          domain.ConflictTypeSimilarName,
			MatterID:      other.MatterID,
			MatterNumber:  other.MatterNumber,
			MatchedName:   other.Name,
			CandidateName: n.name,
			Detail: fmt.Sprintf("%s %q resembles %s %q on matter %s (similarity %.2f)",
				n.kind, n.name, other.Kind, other.Name, other.MatterNumber, score),
			Severity:  domain.ConflictTypeSimilarName.Severity(),
			MatchedAt: other.CreatedAt,
		})
	}
	sortCandidates(out)
	return out
}

// crossKindCandidate reports a party of one matter that is a counterparty of
// another, or the reverse.
func crossKindCandidate(n candidateName, other domain.IndexedName) domain.ConflictCandidate {
	return domain.ConflictCandidate{
		Type:          domain.ConflictTypeCounterpartyMatch,
		MatterID:      other.MatterID,
		MatterNumber:  other.MatterNumber,
		MatchedName:   other.Name,
		CandidateName: n.name,
		Detail:        fmt.Sprintf("%s %q is a %s on matter %s", n.kind, n.name, other.Kind, other.MatterNumber),
		Severity:      domain.ConflictTypeCounterpartyMatch.Severity(),
		MatchedAt:     other.CreatedAt,
	}
}

// Similarity is 1 minus the Levenshtein distance over the longer rune length.
// Identical strings score 1.
func Similarity(a, b string) float64 {
	longest := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if longest == 0 {
		return 1
	}
	return 1 - float64(levenshtein.ComputeDistance(a, b))/float64(longest)
}

func sortCandidates(cs []domain.ConflictCandidate) {
	slices.SortStableFunc(cs, func(a, b domain.ConflictCandidate) int {
		return cmp.Or(
			cmp.Compare(b.Severity, a.Severity),
			a.MatchedAt.Compare(b.MatchedAt),
			cmp.Compare(a.MatterNumber, b.MatterNumber),
			cmp.Compare(a.MatchedName, b.MatchedName),
			cmp.Compare(a.CandidateName, b.CandidateName),
		)
	})
}
