package flow

import (
	"testing"

	"github.com/BTreeMap/GoalPipe/internal/lookup"
	"github.com/BTreeMap/GoalPipe/internal/models"
)

func TestAdvanceFoodQuery(t *testing.T) {
	conv, ask := StartFood("u1")
	if ask != msgAskFood || conv.State != models.StateAwaitingFoodQuery {
		t.Fatalf("unexpected start: %+v %q", conv, ask)
	}

	tr := AdvanceFood(conv, "  greek   yogurt ")
	if tr.Query != "greek yogurt" {
		t.Errorf("expected normalized query, got %q", tr.Query)
	}
	if tr.Conversation.State != models.StateAwaitingFoodQuery {
		t.Errorf("state must not move before the lookup, got %s", tr.Conversation.State)
	}

	tr = AdvanceFood(conv, "")
	if tr.Query != "" || tr.Reply != msgAskFood {
		t.Errorf("blank query should re-prompt, got %+v", tr)
	}
}

func TestAdvanceFoodGrams(t *testing.T) {
	conv, _ := StartFood("u1")
	conv.State = models.StateAwaitingGrams

	tests := []struct {
		input string
		grams float64
		reply string
	}{
		{"150", 150, ""},
		{"12,5", 12.5, ""},
		{"0", 0, msgGramsInvalid},
		{"-3", 0, msgGramsInvalid},
		{"lots", 0, msgGramsInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			tr := AdvanceFood(conv, tt.input)
			if tr.Grams != tt.grams || tr.Reply != tt.reply {
				t.Errorf("got grams=%v reply=%q", tr.Grams, tr.Reply)
			}
			wantState := models.StateAwaitingGrams
			if tt.grams > 0 {
				wantState = models.StateDone
			}
			if tr.Conversation.State != wantState {
				t.Errorf("expected state %s, got %s", wantState, tr.Conversation.State)
			}
		})
	}
	if conv.State != models.StateAwaitingGrams {
		t.Error("input conversation was mutated")
	}
}

func TestAdvanceFoodUnknownStateRestarts(t *testing.T) {
	conv := models.Conversation{UserID: "u1", Flow: models.FlowTypeFood, State: models.StateAwaitingWeight}
	tr := AdvanceFood(conv, "banana")
	if tr.Conversation.State != models.StateAwaitingFoodQuery || tr.Reply != msgAskFood {
		t.Errorf("expected a restart, got %+v", tr)
	}
}

func TestResolveFoodQuery(t *testing.T) {
	conv, _ := StartFood("u1")

	tr := ResolveFoodQuery(conv, lookup.FoundFood("Banana", 89))
	if tr.Conversation.State != models.StateAwaitingGrams {
		t.Errorf("expected grams step, got %s", tr.Conversation.State)
	}
	if tr.Reply != "Banana: 89 kcal per 100 g. How many grams did you eat?" {
		t.Errorf("unexpected reply %q", tr.Reply)
	}

	tr = ResolveFoodQuery(conv, lookup.FoodNotFound(lookup.ReasonNoEnergyData))
	if tr.Conversation.State != models.StateDone || tr.Reply != msgFoodNotFound {
		t.Errorf("expected end on miss, got %+v", tr)
	}
}
