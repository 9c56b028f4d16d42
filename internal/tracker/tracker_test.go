package tracker

import (
	"testing"

	"github.com/shopspring/decimal"
)

func cost(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func kinds(notices []Notice) []Kind {
	out := make([]Kind, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Kind)
	}
	return out
}

func TestClassifyBoundaries(t *testing.T) {
	th := DefaultThresholds()
	cases := []struct {
		cost string
		want Band
	}{
		{"0", BandSuperLow},
		{"0.3", BandSuperLow},
		{"0.5", BandSuperLow},
		{"0.500000001", BandLow},
		{"1.0", BandLow},
		{"1.6", BandLow},
		{"1.600000001", BandNormal},
		{"42", BandNormal},
	}
	for _, tc := range cases {
		if got := Classify(cost(tc.cost), th); got != tc.want {
			t.Errorf("Classify(%s) = %s, want %s", tc.cost, got, tc.want)
		}
	}
}

func TestEvaluateScenario(t *testing.T) {
	th := DefaultThresholds()
	state := State{}

	d := Evaluate(state, cost("0.3"), th)
	if got := kinds(d.Notices); len(got) != 1 || got[0] != KindSuperLow {
		t.Fatalf("0.3 should notify super low, got %v", got)
	}
	if d.Next != (State{Low: true, SuperLow: true}) {
		t.Fatalf("unexpected state after 0.3: %+v", d.Next)
	}
	if d.Notices[0].Text != "💸💸💸 Cost Super Low! Register Now! - 0.3 $TAO" {
		t.Fatalf("unexpected text: %q", d.Notices[0].Text)
	}
	state = d.Next

	d = Evaluate(state, cost("1.0"), th)
	if got := kinds(d.Notices); len(got) != 1 || got[0] != KindStillReasonable {
		t.Fatalf("1.0 after super low should notify still reasonable, got %v", got)
	}
	if d.Next != (State{Low: true}) {
		t.Fatalf("unexpected state after 1.0: %+v", d.Next)
	}
	state = d.Next

	d = Evaluate(state, cost("2.0"), th)
	if got := kinds(d.Notices); len(got) != 1 || got[0] != KindOver {
		t.Fatalf("2.0 after low should notify over, got %v", got)
	}
	if d.Next != (State{}) {
		t.Fatalf("unexpected state after 2.0: %+v", d.Next)
	}
}

func TestEvaluateEdgeTriggered(t *testing.T) {
	th := DefaultThresholds()
	for _, c := range []string{"0.2", "1.2", "3"} {
		first := Evaluate(State{}, cost(c), th)
		second := Evaluate(first.Next, cost(c), th)
		if len(second.Notices) != 0 {
			t.Errorf("repeating %s should be silent, got %v", c, kinds(second.Notices))
		}
		if second.Changed() {
			t.Errorf("repeating %s should not change state", c)
		}
	}
}

func TestEvaluateNormalToLow(t *testing.T) {
	d := Evaluate(State{}, cost("1.1"), DefaultThresholds())
	if got := kinds(d.Notices); len(got) != 1 || got[0] != KindLow {
		t.Fatalf("normal -> low should notify cost low, got %v", got)
	}
	if d.LogLine != "Cost Low! - 1.1 $TAO" {
		t.Fatalf("unexpected log line %q", d.LogLine)
	}
}

func TestEvaluateNormalStaysSilent(t *testing.T) {
	d := Evaluate(State{}, cost("5"), DefaultThresholds())
	if len(d.Notices) != 0 {
		t.Fatalf("normal from clean state should be silent, got %v", kinds(d.Notices))
	}
}

func TestEvaluateCustomThresholds(t *testing.T) {
	th := Thresholds{SuperLow: cost("1"), Low: cost("2")}
	if Classify(cost("0.9"), th) != BandSuperLow {
		t.Fatal("0.9 should be super low with threshold 1")
	}
	if Classify(cost("2"), th) != BandLow {
		t.Fatal("2 should be low with threshold 2")
	}
}

func TestEvaluateSuperLowToNormal(t *testing.T) {
	d := Evaluate(State{Low: true, SuperLow: true}, cost("2.5"), DefaultThresholds())
	if got := kinds(d.Notices); len(got) != 1 || got[0] != KindOver {
		t.Fatalf("super low -> normal should notify only over, got %v", got)
	}
	if d.Next != (State{}) {
		t.Fatalf("unexpected state %+v", d.Next)
	}
}

func TestFormatCost(t *testing.T) {
	cases := map[string]string{
		"1.000000000": "1.0",
		"2":           "2.0",
		"0.3":         "0.3",
		"1.234500000": "1.2345",
	}
	for in, want := range cases {
		if got := FormatCost(cost(in)); got != want {
			t.Errorf("FormatCost(%s) = %q, want %q", in, got, want)
		}
	}

	d := Evaluate(State{}, cost("1.000000000"), DefaultThresholds())
	if d.Notices[0].Text != "🏷️✂️💸  Cost Low! We're So Fucking Back! - 1.0 $TAO" {
		t.Fatalf("unexpected text %q", d.Notices[0].Text)
	}
}
