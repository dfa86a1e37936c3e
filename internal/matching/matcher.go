package matching

import (
	"math"

	"horse.fit/newslink/internal/db"
	"horse.fit/newslink/internal/textnorm"
)

// Thresholds holds the acceptance bars and the high-priority boost.
type Thresholds struct {
	HighPriority      float64
	LowPriority       float64
	Entity            float64
	HighPriorityBoost float64
	MinEntityRunes    int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		HighPriority:      0.3,
		LowPriority:       0.8,
		Entity:            0.3,
		HighPriorityBoost: 0.3,
		MinEntityRunes:    3,
	}
}

// Candidate is a proposed link between an article and an entity.
type Candidate struct {
	ArticleID   string
	EntityType  string
	EntityID    string
	EntityName  string
	WorkspaceID string
	MatchType   string
	Priority    Priority
	Confidence  float64
	MatchedText string
}

// Record converts the candidate into its persisted form.
func (c Candidate) Record() db.ArticleMatch {
	return db.ArticleMatch{
		ArticleID:       c.ArticleID,
		EntityType:      c.EntityType,
		EntityID:        c.EntityID,
		WorkspaceID:     c.WorkspaceID,
		MatchType:       c.MatchType,
		MatchConfidence: c.Confidence,
		MatchedText:     c.MatchedText,
	}
}

type compiledContact struct {
	contact db.Contact
	name    string
	terms   []term
}

type compiledEntity struct {
	id          string
	workspaceID string
	name        string
	entityType  string
	terms       []term
}

// Matcher scans articles against a roster compiled once per pass.
type Matcher struct {
	thresholds Thresholds
	contacts   []compiledContact
	entities   []compiledEntity
}

func NewMatcher(roster db.Roster, thresholds Thresholds) *Matcher {
	m := &Matcher{thresholds: thresholds}

	m.contacts = make([]compiledContact, 0, len(roster.Contacts))
	for _, contact := range roster.Contacts {
		terms := contactTerms(contact)
		if len(terms) == 0 {
			continue
		}
		m.contacts = append(m.contacts, compiledContact{
			contact: contact,
			name:    contactDisplayName(contact),
			terms:   terms,
		})
	}

	m.entities = make([]compiledEntity, 0, len(roster.Companies)+len(roster.Projects))
	for _, company := range roster.Companies {
		m.addEntity(company.ID, company.WorkspaceID, company.Name, db.EntityTypeCompany, db.MatchTypeCompany)
	}
	for _, project := range roster.Projects {
		m.addEntity(project.ID, project.WorkspaceID, project.Title, db.EntityTypeProject, db.MatchTypeTitle)
	}
	return m
}

func (m *Matcher) addEntity(id, workspaceID, name, entityType, matchType string) {
	terms := nameVariations(name, matchType, m.thresholds.MinEntityRunes)
	if len(terms) == 0 {
		return
	}
	m.entities = append(m.entities, compiledEntity{
		id:          id,
		workspaceID: workspaceID,
		name:        textnorm.Normalize(name),
		entityType:  entityType,
		terms:       terms,
	})
}

// Match returns every accepted candidate for the article, contacts first,
// then companies and projects, each in roster order.
func (m *Matcher) Match(article db.Article) []Candidate {
	text := textnorm.Searchable(article.Title, article.Summary, article.Body)
	if text == "" {
		return nil
	}

	var candidates []Candidate
	for _, contact := range m.contacts {
		if candidate, ok := m.matchContact(contact, text); ok {
			candidate.ArticleID = article.ID
			candidates = append(candidates, candidate)
		}
	}
	for _, entity := range m.entities {
		if candidate, ok := m.matchEntity(entity, text); ok {
			candidate.ArticleID = article.ID
			candidates = append(candidates, candidate)
		}
	}
	return candidates
}

// matchContact keeps the best high-priority hit; low-priority terms are only
// looked at when no high-priority term occurs in the text.
func (m *Matcher) matchContact(contact compiledContact, text string) (Candidate, bool) {
	best, found := bestTerm(contact.terms, PriorityHigh, text)
	if found {
		best.score = math.Min(best.score+m.thresholds.HighPriorityBoost, 1.0)
	} else {
		best, found = bestTerm(contact.terms, PriorityLow, text)
	}
	if !found || !m.accept(best.term.priority, best.score) {
		return Candidate{}, false
	}

	return Candidate{
		EntityType:  db.EntityTypeContact,
		EntityID:    contact.contact.ID,
		EntityName:  contact.name,
		WorkspaceID: contact.contact.WorkspaceID,
		MatchType:   best.term.matchType,
		Priority:    best.term.priority,
		Confidence:  roundConfidence(best.score),
		MatchedText: best.term.display,
	}, true
}

func (m *Matcher) matchEntity(entity compiledEntity, text string) (Candidate, bool) {
	best, found := bestTerm(entity.terms, PriorityHigh, text)
	if !found || best.score < m.thresholds.Entity {
		return Candidate{}, false
	}
	return Candidate{
		EntityType:  entity.entityType,
		EntityID:    entity.id,
		EntityName:  entity.name,
		WorkspaceID: entity.workspaceID,
		MatchType:   best.term.matchType,
		Priority:    PriorityHigh,
		Confidence:  best.score,
		MatchedText: best.term.display,
	}, true
}

// accept applies the priority-specific acceptance bar.
func (m *Matcher) accept(priority Priority, confidence float64) bool {
	if priority == PriorityHigh {
		return confidence >= m.thresholds.HighPriority
	}
	return confidence >= m.thresholds.LowPriority
}

type scoredTerm struct {
	term  term
	score float64
}

// bestTerm returns the highest-scoring term of the given priority found in
// text. Ties keep the earlier term.
func bestTerm(terms []term, priority Priority, text string) (scoredTerm, bool) {
	var (
		best  scoredTerm
		found bool
	)
	for _, t := range terms {
		if t.priority != priority || !containsWord(text, t.folded) {
			continue
		}
		score := Score(t.folded, text)
		if !found || score > best.score {
			best = scoredTerm{term: t, score: score}
			found = true
		}
	}
	return best, found
}

func contactDisplayName(contact db.Contact) string {
	first := textnorm.Normalize(contact.FirstName)
	last := textnorm.Normalize(contact.LastName)
	switch {
	case first != "" && last != "":
		return first + " " + last
	case first != "":
		return first
	default:
		return last
	}
}
