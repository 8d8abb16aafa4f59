// Package classify suggests a category for a record description by keyword
// scoring, and learns new keywords from confirmed choices.
package classify

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/text/cases"

	apperrors "finora/internal/errors"
	"finora/internal/models"
)

// Scores.
const (
	keywordScore   = 1
	exactNameScore = 3
	nameScore      = 2
)

const (
	// MaxSuggestions bounds Suggest.
	MaxSuggestions = 3
	// learnPerCall bounds how many keywords one Learn call may add.
	learnPerCall = 3
	minTokenLen  = 3
)

// Category is a classification target for one direction.
type Category struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Direction models.RecordKind `json:"direction"`
	Keywords  []string          `json:"keywords"`
}

// Scored is a category with its score for a description.
type Scored struct {
	Category Category `json:"category"`
	Score    int      `json:"score"`
}

// Engine holds the category catalogue. It is safe for concurrent use.
type Engine struct {
	mu          sync.RWMutex
	categories  []Category
	maxKeywords int
}

// NewEngine creates an engine over categories, in declaration order.
// maxKeywords caps each category's keyword set during Learn.
func NewEngine(categories []Category, maxKeywords int) *Engine {
	cats := make([]Category, len(categories))
	for i, c := range categories {
		c.Keywords = append([]string(nil), c.Keywords...)
		cats[i] = c
	}
	return &Engine{categories: cats, maxKeywords: maxKeywords}
}

// fold case-folds s. Casers are stateful, so each call gets its own.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

func score(desc string, c Category) int {
	total := 0
	for _, kw := range c.Keywords {
		k := fold(kw)
		if k != "" && strings.Contains(desc, k) {
			total += keywordScore
		}
	}
	// An exact match also contains the name, so it earns both bonuses.
	name := fold(c.Name)
	if name == "" {
		return total
	}
	if desc == name {
		total += exactNameScore
	}
	if strings.Contains(desc, name) {
		total += nameScore
	}
	return total
}

// Classify returns the best scoring category of the direction. Ties go to
// the category declared first. ok is false when nothing scores.
func (e *Engine) Classify(description string, direction models.RecordKind) (Category, bool) {
	ranked := e.rank(description, direction)
	if len(ranked) == 0 {
		return Category{}, false
	}
	return ranked[0].Category, true
}

// Suggest returns up to MaxSuggestions scoring categories, best first.
func (e *Engine) Suggest(description string, direction models.RecordKind) []Scored {
	ranked := e.rank(description, direction)
	if len(ranked) > MaxSuggestions {
		ranked = ranked[:MaxSuggestions]
	}
	return ranked
}

func (e *Engine) rank(description string, direction models.RecordKind) []Scored {
	desc := fold(description)
	if desc == "" {
		return []Scored{}
	}

	e.mu.RLock()
	ranked := make([]Scored, 0, len(e.categories))
	for _, c := range e.categories {
		if c.Direction != direction {
			continue
		}
		if s := score(desc, c); s > 0 {
			ranked = append(ranked, Scored{Category: copyCategory(c), Score: s})
		}
	}
	e.mu.RUnlock()

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })
	return ranked
}

// Learn adds up to three new whitespace tokens of at least three characters
// from description to the category's keywords, without exceeding the
// per-category cap. It returns the keywords added.
func (e *Engine) Learn(description, categoryID string) ([]string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	idx := e.indexOf(categoryID)
	if idx < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("category %s not found", categoryID))
	}
	cat := &e.categories[idx]

	known := make(map[string]bool, len(cat.Keywords))
	for _, kw := range cat.Keywords {
		known[fold(kw)] = true
	}

	added := []string{}
	for _, token := range strings.Fields(fold(description)) {
		if len(added) == learnPerCall || len(cat.Keywords) >= e.maxKeywords {
			break
		}
		if utf8.RuneCountInString(token) < minTokenLen || known[token] {
			continue
		}
		known[token] = true
		cat.Keywords = append(cat.Keywords, token)
		added = append(added, token)
	}
	return added, nil
}

// Keywords returns the category's current keyword set.
func (e *Engine) Keywords(categoryID string) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx := e.indexOf(categoryID)
	if idx < 0 {
		return nil, apperrors.WithMessage(apperrors.ErrNotFound, fmt.Sprintf("category %s not found", categoryID))
	}
	return append([]string{}, e.categories[idx].Keywords...), nil
}

// Categories returns the catalogue for a direction, or every category when
// direction is empty.
func (e *Engine) Categories(direction models.RecordKind) []Category {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Category, 0, len(e.categories))
	for _, c := range e.categories {
		if direction == "" || c.Direction == direction {
			out = append(out, copyCategory(c))
		}
	}
	return out
}

func (e *Engine) indexOf(id string) int {
	for i := range e.categories {
		if e.categories[i].ID == id {
			return i
		}
	}
	return -1
}

func copyCategory(c Category) Category {
	c.Keywords = append([]string{}, c.Keywords...)
	return c
}
