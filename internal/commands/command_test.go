package commands

import (
	"errors"
	"testing"
	"time"

	"github.com/sandeepkv93/restodo/internal/derive"
	"github.com/sandeepkv93/restodo/internal/model"
)

func TestParseSupportedCommands(t *testing.T) {
	cases := []struct {
		in       string
		typeWant Type
	}{
		{"/add pay rent", TypeAdd},
		{"new pay rent", TypeAdd},
		{"edit 4 title:rent", TypeEdit},
		{"done 3", TypeDone},
		{"undone #3", TypeUndone},
		{"rm 3", TypeRemove},
		{"delete 3", TypeRemove},
		{"filter overdue", TypeFilter},
		{"sort priority", TypeSort},
		{"search rent", TypeSearch},
		{"refresh", TypeRefresh},
	}

	for _, tc := range cases {
		cmd, err := Parse(tc.in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", tc.in, err)
		}
		if cmd.Type != tc.typeWant {
			t.Fatalf("parse %q type = %s, want %s", tc.in, cmd.Type, tc.typeWant)
		}
	}
}

func TestParseAddOptions(t *testing.T) {
	cmd, err := ParseAt(`add pay rent p:5 due:2026-03-01 desc:"transfer before noon"`, time.UTC)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	d := cmd.Add.Draft
	if d.Title != "pay rent" {
		t.Fatalf("unexpected title %q", d.Title)
	}
	if d.Priority == nil || *d.Priority != model.PriorityHigh {
		t.Fatalf("unexpected priority %+v", d.Priority)
	}
	if d.DueDate == nil || !d.DueDate.Equal(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due %+v", d.DueDate)
	}
	if d.Description == nil || *d.Description != "transfer before noon" {
		t.Fatalf("unexpected description %+v", d.Description)
	}
}

func TestParseAddKeepsColonWords(t *testing.T) {
	cmd, err := Parse("add standup at 10:30")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Add.Draft.Title != "standup at 10:30" {
		t.Fatalf("unexpected title %q", cmd.Add.Draft.Title)
	}
}

func TestParseEdit(t *testing.T) {
	cmd, err := ParseAt(`edit 12 title:"file taxes" p:high due:none desc:none`, time.UTC)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	e := cmd.Edit
	if e.ID != 12 || e.Patch.Title == nil || *e.Patch.Title != "file taxes" {
		t.Fatalf("unexpected edit args %+v", e)
	}
	if !e.Patch.ClearDueDate || e.Patch.DueDate != nil {
		t.Fatalf("due:none should clear the due date: %+v", e.Patch)
	}
	if e.Patch.Description == nil || *e.Patch.Description != "" {
		t.Fatalf("desc:none should blank the description: %+v", e.Patch.Description)
	}
	if e.Patch.Priority == nil || *e.Patch.Priority != model.PriorityHigh {
		t.Fatalf("unexpected priority %+v", e.Patch.Priority)
	}
}

func TestParseFilterAndSort(t *testing.T) {
	cmd, err := Parse("filter Completed")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Filter.Filter != derive.FilterCompleted {
		t.Fatalf("unexpected filter %s", cmd.Filter.Filter)
	}
	cmd, err = Parse("sort created")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if cmd.Sort.Sort != derive.SortCreateTime {
		t.Fatalf("unexpected sort %s", cmd.Sort.Sort)
	}
}

func TestParseInvalidArguments(t *testing.T) {
	inputs := []string{
		"add",
		"add p:3",
		"add x p:9",
		"add x due:tomorrowish",
		"edit 3",
		"edit x title:a",
		"edit 3 nonsense",
		"edit 3 color:red",
		"done",
		"done 0",
		"rm -2",
		"filter later",
		"sort",
		`add "unterminated`,
	}
	for _, in := range inputs {
		_, err := Parse(in)
		var ce *CommandError
		if !errors.As(err, &ce) || ce.Code != ErrCodeInvalidArgument {
			t.Fatalf("parse %q: expected invalid argument, got %v", in, err)
		}
	}
}

func TestParseEmptyAndUnknown(t *testing.T) {
	var ce *CommandError
	if _, err := Parse("  / "); !errors.As(err, &ce) || ce.Code != ErrCodeEmptyInput {
		t.Fatalf("expected empty input error, got %v", err)
	}
	if _, err := Parse("/unknown do x"); !errors.As(err, &ce) || ce.Code != ErrCodeUnknownCommand {
		t.Fatalf("expected unknown command error, got %v", err)
	}
}

func TestExecuteDispatch(t *testing.T) {
	cmd, err := Parse("/add write docs")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}

	called := false
	res, err := Execute(cmd, Handlers{
		Add: func(a AddArgs) (Result, error) {
			called = true
			if a.Draft.Title != "write docs" {
				t.Fatalf("unexpected title: %q", a.Draft.Title)
			}
			return Result{Message: "ok"}, nil
		},
	})
	if err != nil {
		t.Fatalf("execute failed: %v", err)
	}
	if !called || res.Message != "ok" {
		t.Fatalf("dispatch failed, called=%v res=%+v", called, res)
	}
}

func TestExecuteTargetsAndRefresh(t *testing.T) {
	var got []string
	handlers := Handlers{
		Done:    func(a IDArgs) (Result, error) { got = append(got, "done"); return Result{}, nil },
		Undone:  func(a IDArgs) (Result, error) { got = append(got, "undone"); return Result{}, nil },
		Remove:  func(a IDArgs) (Result, error) { got = append(got, "rm"); return Result{}, nil },
		Refresh: func() (Result, error) { got = append(got, "refresh"); return Result{}, nil },
	}
	for _, in := range []string{"done 1", "undone 1", "rm 1", "refresh"} {
		cmd, err := Parse(in)
		if err != nil {
			t.Fatalf("parse %q failed: %v", in, err)
		}
		if _, err := Execute(cmd, handlers); err != nil {
			t.Fatalf("execute %q failed: %v", in, err)
		}
	}
	if len(got) != 4 || got[0] != "done" || got[3] != "refresh" {
		t.Fatalf("unexpected dispatch order %v", got)
	}
}

func TestExecuteMissingHandler(t *testing.T) {
	cmd, err := Parse("search rent")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	_, err = Execute(cmd, Handlers{})
	if err == nil {
		t.Fatal("expected error")
	}
	var ce *CommandError
	if !errors.As(err, &ce) || ce.Code != ErrCodeHandlerMissing {
		t.Fatalf("expected missing handler error, got %v", err)
	}
}

func TestParseDue(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	due, err := ParseDue("2026-05-04T18:30", loc)
	if err != nil {
		t.Fatalf("parse due: %v", err)
	}
	if !due.Equal(time.Date(2026, 5, 4, 10, 30, 0, 0, time.UTC)) {
		t.Fatalf("unexpected due %s", due)
	}
	due, err = ParseDue("2026-05-04T18:30:00Z", loc)
	if err != nil || due.Hour() != 18 {
		t.Fatalf("rfc3339 due: %v %v", due, err)
	}
}
