package domain

import (
	"errors"
	"testing"
	"time"
)

func TestWindowFor_AlignsToEpoch(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)

	h := WindowFor(WindowHour, now)
	if !h.Start.Equal(time.Date(2026, 3, 14, 15, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected hour start %s", h.Start)
	}
	if h.End.Sub(h.Start) != time.Hour {
		t.Fatalf("expected 1h window, got %s", h.End.Sub(h.Start))
	}

	d := WindowFor(WindowDay, now)
	if !d.Start.Equal(time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected day start %s", d.Start)
	}
	if d.Until(now) != d.End.Sub(now) {
		t.Fatalf("Until should be distance to end")
	}
}

func TestWindowFor_IgnoresLocalTimezone(t *testing.T) {
	loc := time.FixedZone("BRT", -3*3600)
	local := time.Date(2026, 3, 14, 22, 30, 0, 0, loc) // 01:30 UTC do dia 15
	d := WindowFor(WindowDay, local)
	if !d.Start.Equal(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected UTC-aligned day, got %s", d.Start)
	}
}

func TestWindowFor_SameBucketSharesKey(t *testing.T) {
	t1 := time.Unix(7200+10, 0)
	t2 := time.Unix(7200+3599, 0)
	t3 := time.Unix(7200+3600, 0)

	k1 := CounterKey{Op: "x", UserID: "u", Window: WindowFor(WindowHour, t1)}
	k2 := CounterKey{Op: "x", UserID: "u", Window: WindowFor(WindowHour, t2)}
	k3 := CounterKey{Op: "x", UserID: "u", Window: WindowFor(WindowHour, t3)}
	if k1.String() != k2.String() {
		t.Fatalf("expected same key inside bucket: %s vs %s", k1, k2)
	}
	if k1.String() == k3.String() {
		t.Fatalf("expected new key after boundary")
	}
}

func TestQuotaTable_Validate(t *testing.T) {
	ok := QuotaTable{"a": {PerHour: 1, PerDay: 2, HumanName: "a things"}}
	if err := ok.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := []QuotaTable{
		{},
		{"a": {PerHour: 0, PerDay: 2, HumanName: "a"}},
		{"a": {PerHour: 3, PerDay: 2, HumanName: "a"}},
		{"a": {PerHour: 1, PerDay: 2}},
		{" ": {PerHour: 1, PerDay: 2, HumanName: "a"}},
	}
	for i, tbl := range bad {
		if err := tbl.Validate(); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestQuotaTable_RuleUnknown(t *testing.T) {
	_, err := QuotaTable{}.Rule("nope")
	if !errors.Is(err, ErrUnknownOperation) {
		t.Fatalf("expected ErrUnknownOperation, got %v", err)
	}
}

func TestParseFailurePolicy(t *testing.T) {
	cases := map[string]FailurePolicy{"": FailOpen, "open": FailOpen, "CLOSED": FailClosed, "fail-closed": FailClosed}
	for in, want := range cases {
		got, err := ParseFailurePolicy(in)
		if err != nil || got != want {
			t.Fatalf("%q: got %v err %v", in, got, err)
		}
	}
	if _, err := ParseFailurePolicy("maybe"); err == nil {
		t.Fatalf("expected error for unknown policy")
	}
}
