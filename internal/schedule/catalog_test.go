package schedule

import (
	"testing"
)

func TestDefaultCatalogValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default catalog invalid: %v", err)
	}
}

func TestDefaultCatalogPrograms(t *testing.T) {
	cat := Default()
	for _, key := range ProgramKeys() {
		if _, ok := cat[key]; !ok {
			t.Errorf("catalog missing program %s", key)
		}
	}
	if len(cat) != 4 {
		t.Errorf("catalog has %d programs, want 4", len(cat))
	}
}

func TestValidate_DuplicateAction(t *testing.T) {
	cat := Catalog{
		"Bad": {
			Label: "Bad",
			Steps: []Step{
				{Day: 30, Action: ActionAttempt1, Level: 1},
				{Day: 60, Action: ActionAttempt1, Level: 2},
			},
		},
	}
	if err := cat.Validate(); err == nil {
		t.Error("expected error for duplicate action")
	}
}

func TestValidate_DuplicateDay(t *testing.T) {
	cat := Catalog{
		"Bad": {
			Label: "Bad",
			Steps: []Step{
				{Day: 30, Action: ActionAttempt1, Level: 1},
				{Day: 30, Action: ActionAttempt2, Level: 2},
			},
		},
	}
	if err := cat.Validate(); err == nil {
		t.Error("expected error for duplicate offset day")
	}
}

func TestValidate_LevelOutOfRange(t *testing.T) {
	cat := Catalog{
		"Bad": {
			Label: "Bad",
			Steps: []Step{{Day: 30, Action: ActionAttempt1, Level: 5}},
		},
	}
	if err := cat.Validate(); err == nil {
		t.Error("expected error for level out of range")
	}
}

func TestValidate_NoSteps(t *testing.T) {
	cat := Catalog{"Empty": {Label: "Empty"}}
	if err := cat.Validate(); err == nil {
		t.Error("expected error for program with no steps")
	}
}

func TestSortedSteps_DoesNotMutate(t *testing.T) {
	prog := Program{
		Steps: []Step{
			{Day: 60, Action: ActionAttempt2, Level: 2},
			{Day: 30, Action: ActionAttempt1, Level: 1},
		},
	}
	sorted := prog.SortedSteps()
	if sorted[0].Day != 30 || sorted[1].Day != 60 {
		t.Errorf("steps not sorted: %v", sorted)
	}
	if prog.Steps[0].Day != 60 {
		t.Error("SortedSteps mutated the program's step slice")
	}
}
