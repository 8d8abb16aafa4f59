package classify

import (
	"reflect"
	"testing"

	"finora/internal/models"
	"finora/internal/testutil"
)

func testEngine() *Engine {
	return NewEngine([]Category{
		{ID: "food", Name: "Food", Direction: models.RecordKindExpense, Keywords: []string{"lunch", "dinner", ""}},
		{ID: "travel", Name: "Travel", Direction: models.RecordKindExpense, Keywords: []string{"taxi", "flight"}},
		{ID: "fun", Name: "Fun", Direction: models.RecordKindExpense, Keywords: []string{"dinner", "cinema"}},
		{ID: "salary", Name: "Salary", Direction: models.RecordKindIncome, Keywords: []string{"payroll"}},
	}, 6)
}

func TestClassify(t *testing.T) {
	e := testEngine()

	tests := []struct {
		name      string
		desc      string
		direction models.RecordKind
		wantID    string
		wantOK    bool
	}{
		{"keyword_match", "Taxi home", models.RecordKindExpense, "travel", true},
		{"case_insensitive", "BUSINESS LUNCH", models.RecordKindExpense, "food", true},
		{"tie_goes_to_first_declared", "dinner", models.RecordKindExpense, "food", true},
		{"exact_name_wins", "fun", models.RecordKindExpense, "fun", true},
		{"name_substring_beats_keyword", "fun dinner", models.RecordKindExpense, "fun", true},
		{"direction_filter", "payroll", models.RecordKindExpense, "", false},
		{"income_direction", "March payroll", models.RecordKindIncome, "salary", true},
		{"no_match", "random", models.RecordKindExpense, "", false},
		{"empty_description", "   ", models.RecordKindExpense, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.Classify(tt.desc, tt.direction)
			if ok != tt.wantOK || got.ID != tt.wantID {
				t.Errorf("Classify(%q) = (%q, %v), want (%q, %v)", tt.desc, got.ID, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}

func TestClassify_Deterministic(t *testing.T) {
	e := NewEngine(DefaultCategories(), 50)
	first, _ := e.Classify("Almoço no restaurante", models.RecordKindExpense)
	for i := 0; i < 20; i++ {
		again, _ := e.Classify("Almoço no restaurante", models.RecordKindExpense)
		if again.ID != first.ID {
			t.Fatalf("classification changed between calls: %s vs %s", first.ID, again.ID)
		}
	}
}

func TestClassify_DefaultCatalogue(t *testing.T) {
	e := NewEngine(DefaultCategories(), 50)

	got, ok := e.Classify("Uber to the airport", models.RecordKindExpense)
	if !ok || got.Name != "Transporte" {
		t.Errorf("expected Transporte, got %q (ok=%v)", got.Name, ok)
	}

	got, ok = e.Classify("SALÁRIO", models.RecordKindIncome)
	if !ok || got.ID != "salario" {
		t.Errorf("expected salario, got %q (ok=%v)", got.ID, ok)
	}
}

func TestScore_NameBonusesStack(t *testing.T) {
	e := NewEngine([]Category{
		{ID: "heavy", Name: "Groceries", Direction: models.RecordKindExpense, Keywords: []string{"food", "foo", "fo", "oo"}},
		{ID: "food", Name: "Food", Direction: models.RecordKindExpense},
	}, 10)

	tests := []struct {
		desc   string
		wantID string
		scores map[string]int
	}{
		// 3 for the exact name plus 2 for containing it outranks four keyword hits.
		{"Food", "food", map[string]int{"food": 5, "heavy": 4}},
		{"food court", "heavy", map[string]int{"heavy": 4, "food": 2}},
	}
	for _, tt := range tests {
		t.Run(tt.desc, func(t *testing.T) {
			got, ok := e.Classify(tt.desc, models.RecordKindExpense)
			if !ok || got.ID != tt.wantID {
				t.Errorf("Classify(%q) = %q, want %q", tt.desc, got.ID, tt.wantID)
			}
			for _, s := range e.Suggest(tt.desc, models.RecordKindExpense) {
				if want := tt.scores[s.Category.ID]; s.Score != want {
					t.Errorf("score for %s = %d, want %d", s.Category.ID, s.Score, want)
				}
			}
		})
	}
}

func TestSuggest(t *testing.T) {
	e := NewEngine([]Category{
		{ID: "a", Name: "A", Direction: models.RecordKindExpense, Keywords: []string{"x1"}},
		{ID: "b", Name: "B", Direction: models.RecordKindExpense, Keywords: []string{"x1", "x2"}},
		{ID: "c", Name: "C", Direction: models.RecordKindExpense, Keywords: []string{"x2"}},
		{ID: "d", Name: "D", Direction: models.RecordKindExpense, Keywords: []string{"x3"}},
		{ID: "e", Name: "E", Direction: models.RecordKindExpense, Keywords: []string{"zz"}},
	}, 10)

	got := e.Suggest("x1 x2 x3", models.RecordKindExpense)
	var ids []string
	for _, s := range got {
		ids = append(ids, s.Category.ID)
	}
	if want := []string{"b", "a", "c"}; !reflect.DeepEqual(ids, want) {
		t.Errorf("expected %v, got %v", want, ids)
	}
	if got[0].Score != 2 {
		t.Errorf("expected top score 2, got %d", got[0].Score)
	}

	if n := len(e.Suggest("nothing", models.RecordKindExpense)); n != 0 {
		t.Errorf("expected no suggestions, got %d", n)
	}
}

func TestLearn(t *testing.T) {
	e := testEngine()

	t.Run("adds_at_most_three_new_tokens", func(t *testing.T) {
		added, err := e.Learn("Airport shuttle to downtown hotel on TAXI", "travel")
		testutil.AssertNoError(t, err)
		if want := []string{"airport", "shuttle", "downtown"}; !reflect.DeepEqual(added, want) {
			t.Errorf("expected %v, got %v", want, added)
		}
		got, ok := e.Classify("shuttle", models.RecordKindExpense)
		if !ok || got.ID != "travel" {
			t.Errorf("learned keyword should influence classification, got %q", got.ID)
		}
	})

	t.Run("skips_short_and_known_tokens", func(t *testing.T) {
		added, err := e.Learn("to an taxi flight", "travel")
		testutil.AssertNoError(t, err)
		if len(added) != 0 {
			t.Errorf("expected nothing added, got %v", added)
		}
	})

	t.Run("respects_cap", func(t *testing.T) {
		added, err := e.Learn("hotel rental ferry", "travel")
		testutil.AssertNoError(t, err)
		if want := []string{"hotel"}; !reflect.DeepEqual(added, want) {
			t.Errorf("expected %v, got %v", want, added)
		}
		kws, err := e.Keywords("travel")
		testutil.AssertNoError(t, err)
		if len(kws) != 6 {
			t.Errorf("expected keyword set capped at 6, got %d", len(kws))
		}
	})

	t.Run("unknown_category", func(t *testing.T) {
		_, err := e.Learn("anything", "nope")
		testutil.AssertAppError(t, err, "NOT_FOUND")
		_, err = e.Keywords("nope")
		testutil.AssertAppError(t, err, "NOT_FOUND")
	})
}

func TestCategories_ReturnsCopies(t *testing.T) {
	e := testEngine()
	cats := e.Categories(models.RecordKindExpense)
	if len(cats) != 3 {
		t.Fatalf("expected 3 expense categories, got %d", len(cats))
	}
	cats[0].Keywords[0] = "mutated"
	kws, _ := e.Keywords("food")
	if kws[0] != "lunch" {
		t.Error("callers must not be able to mutate the catalogue")
	}
	if n := len(e.Categories("")); n != 4 {
		t.Errorf("expected all 4 categories, got %d", n)
	}
}
