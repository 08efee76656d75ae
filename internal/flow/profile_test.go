package flow

import (
	"reflect"
	"testing"

	"github.com/BTreeMap/GoalPipe/internal/models"
)

func runProfile(t *testing.T, inputs ...string) ProfileTransition {
	t.Helper()
	conv, ask := StartProfile("u1")
	if ask != msgAskWeight {
		t.Fatalf("unexpected first prompt: %q", ask)
	}
	var tr ProfileTransition
	for _, in := range inputs {
		tr = AdvanceProfile(conv, in)
		conv = tr.Conversation
	}
	return tr
}

func TestAdvanceProfileHappyPath(t *testing.T) {
	steps := []struct {
		input string
		state models.StateType
		reply string
	}{
		{"70", models.StateAwaitingHeight, msgAskHeight},
		{"175", models.StateAwaitingAge, msgAskAge},
		{"30", models.StateAwaitingActivity, msgAskActivity},
		{"45", models.StateAwaitingCity, msgAskCity},
		{"  Lisbon ", models.StateAwaitingCalorieGoalOverride, msgAskOverride},
	}

	conv, _ := StartProfile("u1")
	for _, s := range steps {
		tr := AdvanceProfile(conv, s.input)
		if tr.Conversation.State != s.state {
			t.Fatalf("after %q expected state %s, got %s", s.input, s.state, tr.Conversation.State)
		}
		if tr.Reply != s.reply {
			t.Errorf("after %q expected reply %q, got %q", s.input, s.reply, tr.Reply)
		}
		if tr.Draft != nil {
			t.Fatalf("draft produced too early after %q", s.input)
		}
		conv = tr.Conversation
	}

	tr := AdvanceProfile(conv, "0")
	if tr.Draft == nil {
		t.Fatal("expected a draft after the override step")
	}
	if tr.Conversation.State != models.StateDone {
		t.Errorf("expected done state, got %s", tr.Conversation.State)
	}
	want := models.Profile{WeightKg: 70, HeightCm: 175, AgeYears: 30, ActivityMinutes: 45, City: "Lisbon"}
	if !reflect.DeepEqual(tr.Draft.Profile, want) {
		t.Errorf("unexpected profile: %+v", tr.Draft.Profile)
	}
	if tr.Draft.CalorieOverride != 0 {
		t.Errorf("expected no override, got %v", tr.Draft.CalorieOverride)
	}
}

func TestAdvanceProfileInvalidInputKeepsState(t *testing.T) {
	tests := []struct {
		name   string
		prefix []string
		input  string
		state  models.StateType
		reply  string
	}{
		{"weight text", nil, "heavy", models.StateAwaitingWeight, msgBadWeight},
		{"weight zero", nil, "0", models.StateAwaitingWeight, msgBadWeight},
		{"weight negative", nil, "-70", models.StateAwaitingWeight, msgBadWeight},
		{"height zero", []string{"70"}, "0", models.StateAwaitingHeight, msgBadHeight},
		{"age empty", []string{"70", "175"}, "", models.StateAwaitingAge, msgBadAge},
		{"activity negative", []string{"70", "175", "30"}, "-1", models.StateAwaitingActivity, msgBadActivity},
		{"city blank", []string{"70", "175", "30", "45"}, "   ", models.StateAwaitingCity, msgBadCity},
		{"override negative", []string{"70", "175", "30", "45", "Oslo"}, "-5", models.StateAwaitingCalorieGoalOverride, msgBadOverride},
		{"override text", []string{"70", "175", "30", "45", "Oslo"}, "auto", models.StateAwaitingCalorieGoalOverride, msgBadOverride},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv, _ := StartProfile("u1")
			for _, in := range tt.prefix {
				conv = AdvanceProfile(conv, in).Conversation
			}
			before := conv.Clone()

			tr := AdvanceProfile(conv, tt.input)
			if tr.Conversation.State != tt.state {
				t.Errorf("expected state %s, got %s", tt.state, tr.Conversation.State)
			}
			if tr.Reply != tt.reply {
				t.Errorf("expected reply %q, got %q", tt.reply, tr.Reply)
			}
			if tr.Draft != nil {
				t.Error("invalid input must not produce a draft")
			}
			if !reflect.DeepEqual(tr.Conversation.Scratch, before.Scratch) {
				t.Errorf("scratch changed: before %v, after %v", before.Scratch, tr.Conversation.Scratch)
			}
		})
	}
}

func TestAdvanceProfileAcceptsZeroActivityAndCommaDecimals(t *testing.T) {
	tr := runProfile(t, "72,5", "180", "41", "0", "Porto", "2100,5")
	if tr.Draft == nil {
		t.Fatal("expected a draft")
	}
	if tr.Draft.Profile.WeightKg != 72.5 || tr.Draft.Profile.ActivityMinutes != 0 {
		t.Errorf("unexpected profile: %+v", tr.Draft.Profile)
	}
	if tr.Draft.CalorieOverride != 2100.5 {
		t.Errorf("expected override 2100.5, got %v", tr.Draft.CalorieOverride)
	}
}

func TestAdvanceProfileDoesNotMutateInput(t *testing.T) {
	conv, _ := StartProfile("u1")
	AdvanceProfile(conv, "70")
	if conv.State != models.StateAwaitingWeight || len(conv.Scratch) != 0 {
		t.Errorf("input conversation was mutated: %+v", conv)
	}
}

func TestAdvanceProfileLostScratchRestarts(t *testing.T) {
	conv := models.Conversation{
		UserID:  "u1",
		Flow:    models.FlowTypeProfile,
		State:   models.StateAwaitingCalorieGoalOverride,
		Scratch: map[models.DataKey]string{models.DataKeyWeight: "70"},
	}
	tr := AdvanceProfile(conv, "0")
	if tr.Draft != nil {
		t.Fatal("incomplete scratch must not produce a draft")
	}
	if tr.Conversation.State != models.StateAwaitingWeight || len(tr.Conversation.Scratch) != 0 {
		t.Errorf("expected a fresh dialogue, got %+v", tr.Conversation)
	}
	if tr.Reply != msgLostProfile {
		t.Errorf("unexpected reply %q", tr.Reply)
	}
}

func TestFinalizeProfile(t *testing.T) {
	draft := ProfileDraft{Profile: models.Profile{WeightKg: 70, HeightCm: 175, AgeYears: 30, ActivityMinutes: 45, City: "X"}}

	_, g := FinalizeProfile(draft, nil)
	if g.WaterMl != 2600 {
		t.Errorf("expected 2600 ml, got %v", g.WaterMl)
	}
	if g.CalorieKcal != 1943.75 || g.CalorieOverridden {
		t.Errorf("expected computed 1943.75 kcal, got %v (overridden=%v)", g.CalorieKcal, g.CalorieOverridden)
	}
	if g.TemperatureC != nil {
		t.Errorf("expected unknown temperature, got %v", *g.TemperatureC)
	}

	hot := 31.0
	draft.CalorieOverride = 2500
	_, g = FinalizeProfile(draft, &hot)
	if g.WaterMl != 3600 {
		t.Errorf("expected 3600 ml with heat bonus, got %v", g.WaterMl)
	}
	if g.CalorieKcal != 2500 || !g.CalorieOverridden {
		t.Errorf("expected overridden 2500 kcal, got %v (overridden=%v)", g.CalorieKcal, g.CalorieOverridden)
	}
}
