package models

import "testing"

func TestReceiptJSONTags(t *testing.T) {
	r := Receipt{To: "+123", Status: "sent", Time: 123456}
	if r.To != "+123" || r.Status != "sent" || r.Time != 123456 {
		t.Error("Receipt struct fields not set correctly")
	}
}

func TestResponseOwner(t *testing.T) {
	if got := (Response{From: "chat-1", UserID: "user-1"}).Owner(); got != "user-1" {
		t.Errorf("expected user-1, got %s", got)
	}
	if got := (Response{From: "+123"}).Owner(); got != "+123" {
		t.Errorf("expected From fallback, got %s", got)
	}
	if got := (Response{From: "+123", UserID: "  "}).Owner(); got != "+123" {
		t.Errorf("blank user ID should fall back to From, got %s", got)
	}
}

func TestUserRecordClone(t *testing.T) {
	temp := 21.5
	orig := NewUserRecord("u1")
	orig.Profile = &Profile{WeightKg: 70, City: "Oslo"}
	orig.Goals = &Goals{WaterMl: 2100, CalorieKcal: 1800, TemperatureC: &temp}
	orig.PendingFood = &FoodCandidate{Name: "apple", KcalPer100g: 52}

	c := orig.Clone()
	c.Profile.WeightKg = 80
	*c.Goals.TemperatureC = 30
	c.PendingFood.Name = "pear"
	c.LoggedWaterMl = 500

	if orig.Profile.WeightKg != 70 {
		t.Errorf("profile shared between clone and original")
	}
	if *orig.Goals.TemperatureC != 21.5 {
		t.Errorf("temperature shared between clone and original")
	}
	if orig.PendingFood.Name != "apple" {
		t.Errorf("pending food shared between clone and original")
	}
	if orig.LoggedWaterMl != 0 {
		t.Errorf("accumulator changed on original")
	}
}

func TestUserRecordHasProfile(t *testing.T) {
	var nilRecord *UserRecord
	if nilRecord.HasProfile() {
		t.Error("nil record should not have a profile")
	}
	u := NewUserRecord("u1")
	if u.HasProfile() {
		t.Error("new record should not have a profile")
	}
	u.Profile = &Profile{WeightKg: 70}
	u.Goals = &Goals{WaterMl: 2100}
	if !u.HasProfile() {
		t.Error("record with profile and goals should report HasProfile")
	}
}

func TestFoodCandidateKcalFor(t *testing.T) {
	f := FoodCandidate{Name: "rice", KcalPer100g: 130}
	if got := f.KcalFor(250); got != 325 {
		t.Errorf("expected 325, got %v", got)
	}
}

func TestConversationActiveAndClone(t *testing.T) {
	var nilConv *Conversation
	if nilConv.Active() {
		t.Error("nil conversation should be inactive")
	}
	c := &Conversation{UserID: "u1", Flow: FlowTypeProfile, State: StateAwaitingHeight, Scratch: map[DataKey]string{DataKeyWeight: "70"}}
	if !c.Active() {
		t.Error("conversation awaiting height should be active")
	}
	cp := c.Clone()
	cp.Scratch[DataKeyHeight] = "175"
	if _, ok := c.Scratch[DataKeyHeight]; ok {
		t.Error("scratch shared between clone and original")
	}
	c.State = StateDone
	if c.Active() {
		t.Error("done conversation should be inactive")
	}
}
