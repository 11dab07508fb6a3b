package services

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestHomepage_Empty(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		got, err := f.homepage.Data(context.Background())
		if err != nil {
			t.Fatalf("Data: %v", err)
		}
		if got.Stats.Total != 0 || got.Stats.Satisfaction != "0.0" || got.Stats.ResponseTime != "24h" {
			t.Fatalf("unexpected stats: %+v", got.Stats)
		}
		if got.RecentComplaints == nil || got.TopRatedComplaints == nil || got.Categories == nil {
			t.Fatalf("lists must be empty, not nil: %+v", got)
		}
	})
}

func TestHomepage_Aggregates(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()
		alice, bob, adm := f.customer(t, "alice"), f.customer(t, "bob"), f.admin(t, "ops")

		// c1: answered after 2h and resolved, rated 5.
		c1 := f.complaint(t, alice, "first")
		f.tick(2 * time.Hour)
		if _, err := f.complaints.Respond(ctx, adm, c1.ID, "fixed", strptr("resolved")); err != nil {
			t.Fatalf("respond c1: %v", err)
		}
		if _, err := f.complaints.Rate(ctx, alice, c1.ID, 5); err != nil {
			t.Fatalf("rate c1: %v", err)
		}

		// c2: a customer reply first, then an admin answer 4h after creation, rated 2.
		f.tick(time.Hour)
		c2, err := f.complaints.Create(ctx, bob, CreateInput{Title: "second", Description: "d", Category: "delivery"})
		if err != nil {
			t.Fatalf("create c2: %v", err)
		}
		f.tick(time.Hour)
		if _, err := f.complaints.Respond(ctx, bob, c2.ID, "any news?", nil); err != nil {
			t.Fatalf("reply c2: %v", err)
		}
		f.tick(3 * time.Hour)
		if _, err := f.complaints.Respond(ctx, adm, c2.ID, "shipped", strptr("resolved")); err != nil {
			t.Fatalf("respond c2: %v", err)
		}
		if _, err := f.complaints.Rate(ctx, bob, c2.ID, 2); err != nil {
			t.Fatalf("rate c2: %v", err)
		}

		// c3: in progress without a response; c4: pending.
		f.tick(time.Hour)
		c3 := f.complaint(t, alice, "third")
		if _, err := f.complaints.SetStatus(ctx, adm, c3.ID, "in-progress"); err != nil {
			t.Fatalf("status c3: %v", err)
		}
		f.tick(time.Hour)
		c4 := f.complaint(t, bob, "fourth")

		got, err := f.homepage.Data(ctx)
		if err != nil {
			t.Fatalf("Data: %v", err)
		}
		s := got.Stats
		if s.Total != 4 || s.Resolved != 2 || s.Pending != 1 || s.InProgress != 1 {
			t.Fatalf("unexpected counts: %+v", s)
		}
		if s.Satisfaction != "3.5" {
			t.Fatalf("satisfaction = %q; want 3.5", s.Satisfaction)
		}
		if s.ResponseTime != "3h" {
			t.Fatalf("responseTime = %q; want 3h", s.ResponseTime)
		}
		if got.StatusDistribution.Closed != 0 || got.StatusDistribution.Resolved != 2 {
			t.Fatalf("unexpected distribution: %+v", got.StatusDistribution)
		}
		if got.Categories["billing"] != 3 || got.Categories["delivery"] != 1 {
			t.Fatalf("unexpected categories: %+v", got.Categories)
		}

		wantRecent := []string{c4.ID, c3.ID, c2.ID, c1.ID}
		if len(got.RecentComplaints) != len(wantRecent) {
			t.Fatalf("recent: %+v", got.RecentComplaints)
		}
		for i, id := range wantRecent {
			if got.RecentComplaints[i].ID != id {
				t.Fatalf("recent[%d] = %s; want %s", i, got.RecentComplaints[i].ID, id)
			}
		}
		if len(got.TopRatedComplaints) != 2 || got.TopRatedComplaints[0].ID != c1.ID || got.TopRatedComplaints[1].Rating != 2 {
			t.Fatalf("top rated: %+v", got.TopRatedComplaints)
		}

		// The public payload never exposes owners or thread contents.
		raw, _ := json.Marshal(got)
		for _, leak := range []string{alice.ID, bob.ID, "Name alice", "userId", "responses", "fixed"} {
			if strings.Contains(string(raw), leak) {
				t.Fatalf("homepage payload leaks %q: %s", leak, raw)
			}
		}
	})
}

func TestHomepage_SatisfactionRoundsHalfUp(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		ctx := context.Background()
		alice, adm := f.customer(t, "alice"), f.admin(t, "ops")

		for _, r := range []int{5, 5, 4, 3} {
			c := f.complaint(t, alice, "c")
			if _, err := f.complaints.Respond(ctx, adm, c.ID, "done", strptr("resolved")); err != nil {
				t.Fatalf("respond: %v", err)
			}
			if _, err := f.complaints.Rate(ctx, alice, c.ID, r); err != nil {
				t.Fatalf("rate %d: %v", r, err)
			}
		}

		got, err := f.homepage.Data(ctx)
		if err != nil {
			t.Fatalf("Data: %v", err)
		}
		if got.Stats.Satisfaction != "4.3" {
			t.Fatalf("satisfaction = %q; want 4.3 (mean 4.25)", got.Stats.Satisfaction)
		}
	})
}

func TestFormatRating(t *testing.T) {
	cases := map[float64]string{
		1:        "1.0",
		3.5:      "3.5",
		4.25:     "4.3",
		4.75:     "4.8",
		14.0 / 3: "4.7",
		4.24:     "4.2",
	}
	for in, want := range cases {
		if got := formatRating(in); got != want {
			t.Errorf("formatRating(%v) = %q; want %q", in, got, want)
		}
	}
}

func TestHomepage_ListSizes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, b backend) {
		f := newFixture(t, b)
		alice := f.customer(t, "alice")
		for i := 0; i < 7; i++ {
			f.tick(time.Minute)
			f.complaint(t, alice, "c")
		}
		got, err := f.homepage.Data(context.Background())
		if err != nil {
			t.Fatalf("Data: %v", err)
		}
		if len(got.RecentComplaints) != 5 || len(got.TopRatedComplaints) != 0 {
			t.Fatalf("recent=%d top=%d", len(got.RecentComplaints), len(got.TopRatedComplaints))
		}

		f.homepage.Recent = -1
		got, _ = f.homepage.Data(context.Background())
		if len(got.RecentComplaints) != 0 {
			t.Fatalf("negative size must yield an empty list, got %d", len(got.RecentComplaints))
		}
	})
}

func TestFormatHours(t *testing.T) {
	cases := map[time.Duration]string{
		0:                          "0h",
		10 * time.Minute:           "1h",
		90 * time.Minute:           "2h",
		24 * time.Hour:             "24h",
		26*time.Hour + time.Second: "26h",
	}
	for d, want := range cases {
		if got := formatHours(d); got != want {
			t.Fatalf("formatHours(%v) = %q; want %q", d, got, want)
		}
	}
}
