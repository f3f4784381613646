package model

import (
	"errors"
	"testing"
	"time"
)

func TestPriorityRank(t *testing.T) {
	cases := []struct {
		p    string
		want int
	}{
		{PriorityLow, 1},
		{PriorityMedium, 2},
		{PriorityHigh, 3},
		{PriorityUrgent, 4},
		{PriorityEmergency, 5},
		{"", 2},
		{"bogus", 2},
	}
	for _, c := range cases {
		if got := PriorityRank(c.p); got != c.want {
			t.Fatalf("PriorityRank(%q): want %d, got %d", c.p, c.want, got)
		}
	}
	if ValidPriority("bogus") {
		t.Fatalf("bogus priority accepted")
	}
	if !ValidPriority(PriorityUrgent) {
		t.Fatalf("urgent priority rejected")
	}
}

func TestValidProgressEvent(t *testing.T) {
	for _, ev := range []string{EventStarted, EventArrived, EventCompleted, EventPaused} {
		if !ValidProgressEvent(ev) {
			t.Fatalf("%s rejected", ev)
		}
	}
	if ValidProgressEvent("departed") {
		t.Fatalf("unknown event accepted")
	}
	if ValidProgressEvent("") {
		t.Fatalf("empty event accepted")
	}
}

func TestTeamMatchesID(t *testing.T) {
	tm := Team{ID: "tm_1", Aliases: []string{"crew-north", "legacy_9"}}
	for _, id := range []string{"tm_1", "crew-north", "legacy_9"} {
		if !tm.MatchesID(id) {
			t.Fatalf("MatchesID(%q): want true", id)
		}
	}
	if tm.MatchesID("tm_2") {
		t.Fatalf("foreign id matched")
	}
}

func TestTeamSkillEquipment(t *testing.T) {
	tm := Team{Skills: []string{"hvac"}, Equipment: []string{"ladder"}}
	if !tm.HasSkill("hvac") || tm.HasSkill("plumbing") {
		t.Fatalf("skill lookup wrong")
	}
	if !tm.HasEquipment("ladder") || tm.HasEquipment("crane") {
		t.Fatalf("equipment lookup wrong")
	}
}

func TestCountCompleted(t *testing.T) {
	p := RouteProgress{Tasks: []ProgressTask{
		{TaskID: "a", Status: ProgressStatusCompleted},
		{TaskID: "b", Status: ProgressStatusInProgress},
		{TaskID: "c", Status: ProgressStatusCompleted},
		{TaskID: "d", Status: ProgressStatusPending},
	}}
	if got := p.CountCompleted(); got != 2 {
		t.Fatalf("CountCompleted: want 2, got %d", got)
	}
}

func TestDateFilterRange(t *testing.T) {
	now := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)

	from, to, err := DateFilter{Date: "2026-03-02"}.Range(now)
	if err != nil || from != "2026-03-02" || to != "2026-03-02" {
		t.Fatalf("day filter: got %s..%s, %v", from, to, err)
	}

	from, to, err = DateFilter{Month: "2026-02"}.Range(now)
	if err != nil || from != "2026-02-01" || to != "2026-02-28" {
		t.Fatalf("month filter: got %s..%s, %v", from, to, err)
	}

	from, to, err = DateFilter{}.Range(now)
	if err != nil || from != "2026-03-01" || to != "2026-03-31" {
		t.Fatalf("default filter: got %s..%s, %v", from, to, err)
	}

	if _, _, err = (DateFilter{Date: "2026-03-02", Month: "2026-03"}).Range(now); err == nil {
		t.Fatalf("mutually exclusive filter accepted")
	}
	if _, _, err = (DateFilter{Date: "03/02/2026"}).Range(now); !IsInvalidInput(err) {
		t.Fatalf("bad date: want invalid input, got %v", err)
	}
	if _, _, err = (DateFilter{Month: "March"}).Range(now); !IsInvalidInput(err) {
		t.Fatalf("bad month: want invalid input, got %v", err)
	}
}

func TestDateFilterLabel(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := (DateFilter{Date: "2026-03-02"}).Label(now); got != "2026-03-02" {
		t.Fatalf("day label: got %s", got)
	}
	if got := (DateFilter{Month: "2026-02"}).Label(now); got != "2026-02" {
		t.Fatalf("month label: got %s", got)
	}
	if got := (DateFilter{}).Label(now); got != "2026-03" {
		t.Fatalf("default label: got %s", got)
	}
	if !(DateFilter{}).IsZero() || (DateFilter{Date: "2026-03-02"}).IsZero() {
		t.Fatalf("IsZero wrong")
	}
}

func TestErrorTaxonomy(t *testing.T) {
	err := NotFound("route", "rt_9")
	if err.Error() != "route rt_9 not found" {
		t.Fatalf("not found message: got %q", err.Error())
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("NotFoundError should unwrap to ErrNotFound")
	}
	var nf *NotFoundError
	if !errors.As(err, &nf) || nf.Kind != "route" {
		t.Fatalf("errors.As failed: %+v", nf)
	}

	inv := Invalid("date", "want YYYY-MM-DD")
	if inv.Error() != "invalid date: want YYYY-MM-DD" {
		t.Fatalf("invalid message: got %q", inv.Error())
	}
	if !IsInvalidInput(inv) {
		t.Fatalf("IsInvalidInput(invalid) false")
	}
	if IsInvalidInput(err) {
		t.Fatalf("IsInvalidInput(not found) true")
	}
	if errors.Is(inv, ErrNotFound) {
		t.Fatalf("invalid input should not match ErrNotFound")
	}
	if errors.Is(ErrNoEligibleWork, ErrNotFound) {
		t.Fatalf("no-eligible-work should be distinct from not-found")
	}
}

func TestLocationPoint(t *testing.T) {
	l := Location{Lat: 41.32, Lng: 19.81, Address: "Rruga Deshmoret"}
	p := l.Point()
	if p.Lat != 41.32 || p.Lng != 19.81 {
		t.Fatalf("Point: got %+v", p)
	}
}
