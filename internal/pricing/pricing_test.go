package pricing

import (
	"encoding/json"
	"testing"

	"github.com/angelmondragon/skawsh-sack/pkg/enums"
	pkgerrors "github.com/angelmondragon/skawsh-sack/pkg/errors"
	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestPriceWeightBased(t *testing.T) {
	t.Parallel()

	rules := NewRules(DefaultExpressMultiplier)
	washFold := Rate{BasePrice: dec("49"), Unit: enums.ServiceUnitPerKg}

	tests := []struct {
		name        string
		fulfillment enums.FulfillmentType
		weight      string
		want        string
	}{
		{name: "standard two kilos", fulfillment: enums.FulfillmentStandard, weight: "2.0", want: "98"},
		{name: "standard rounds half up", fulfillment: enums.FulfillmentStandard, weight: "2.3", want: "113"},
		{name: "express surcharge", fulfillment: enums.FulfillmentExpress, weight: "2.0", want: "147"},
		{name: "express rounds", fulfillment: enums.FulfillmentExpress, weight: "0.1", want: "7"},
	}
	for _, tt := range tests {
		got, err := rules.Price(washFold, tt.fulfillment, WeightOf(dec(tt.weight)))
		if err != nil {
			t.Fatalf("%s: unexpected error: %v", tt.name, err)
		}
		if !got.Equal(dec(tt.want)) {
			t.Fatalf("%s: expected %s got %s", tt.name, tt.want, got)
		}
	}
}

func TestPriceCountBased(t *testing.T) {
	t.Parallel()

	rules := NewRules(DefaultExpressMultiplier)
	shirt := Rate{BasePrice: dec("25"), Unit: enums.ServiceUnitCount}

	got, err := rules.Price(shirt, enums.FulfillmentStandard, CountOf(3))
	if err != nil || !got.Equal(dec("75")) {
		t.Fatalf("expected 75, got %s (%v)", got, err)
	}

	got, err = rules.Price(shirt, enums.FulfillmentExpress, CountOf(3))
	if err != nil || !got.Equal(dec("112.5")) {
		t.Fatalf("expected 112.5 express, got %s (%v)", got, err)
	}
}

func TestPriceRejectsInvalidInput(t *testing.T) {
	t.Parallel()

	rules := NewRules(DefaultExpressMultiplier)
	perKg := Rate{BasePrice: dec("49"), Unit: enums.ServiceUnitPerKg}
	perItem := Rate{BasePrice: dec("25")}

	cases := map[string]func() error{
		"zero weight": func() error {
			_, err := rules.Price(perKg, enums.FulfillmentStandard, WeightOf(decimal.Zero))
			return err
		},
		"negative quantity": func() error {
			_, err := rules.Price(perItem, enums.FulfillmentStandard, CountOf(-1))
			return err
		},
		"kind mismatch": func() error {
			_, err := rules.Price(perKg, enums.FulfillmentStandard, CountOf(2))
			return err
		},
		"unknown fulfillment": func() error {
			_, err := rules.Price(perItem, enums.FulfillmentType("overnight"), CountOf(2))
			return err
		},
	}
	for name, fn := range cases {
		err := fn()
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("%s: expected validation error, got %v", name, err)
		}
	}
}

func TestNewRulesFallsBackOnBadMultiplier(t *testing.T) {
	rules := NewRules(dec("0.2"))
	if !rules.ExpressMultiplier().Equal(DefaultExpressMultiplier) {
		t.Fatalf("expected default multiplier, got %s", rules.ExpressMultiplier())
	}
	rate := Rate{BasePrice: dec("10"), Unit: enums.ServiceUnitPerSft}
	if got := rules.UnitRate(rate, enums.FulfillmentExpress); !got.Equal(dec("15")) {
		t.Fatalf("expected express unit rate 15, got %s", got)
	}
}

func TestNormalizeWeight(t *testing.T) {
	tests := map[string]string{
		"2.25":   "2.3",
		"2.24":   "2.2",
		"0.05":   "0.1",
		"1.9999": "2",
		"3":      "3",
	}
	for raw, want := range tests {
		if got := NormalizeWeight(dec(raw)); !got.Equal(dec(want)) {
			t.Fatalf("NormalizeWeight(%s) = %s, want %s", raw, got, want)
		}
	}
}

func TestStepWeightClosure(t *testing.T) {
	amount := WeightOf(dec("2.0"))
	for i := 0; i < 3; i++ {
		var removed bool
		amount, removed = Step(amount, 1)
		if removed {
			t.Fatalf("unexpected removal at step %d", i)
		}
		if !amount.Weight.Equal(amount.Weight.Round(1)) {
			t.Fatalf("weight %s has more than one decimal", amount.Weight)
		}
	}
	if !amount.Weight.Equal(dec("2.3")) {
		t.Fatalf("expected 2.3 after three steps, got %s", amount.Weight)
	}

	for i := 0; i < 50; i++ {
		next, removed := Step(amount, -1)
		if removed {
			break
		}
		if !next.Weight.Equal(next.Weight.Round(1)) {
			t.Fatalf("weight %s has more than one decimal", next.Weight)
		}
		amount = next
	}
	if !amount.Weight.Equal(dec("0.1")) {
		t.Fatalf("expected floor of 0.1 before removal, got %s", amount.Weight)
	}
}

func TestStepRemovalAtFloor(t *testing.T) {
	if _, removed := Step(CountOf(1), -1); !removed {
		t.Fatalf("decrementing quantity 1 should remove")
	}
	if _, removed := Step(WeightOf(dec("0.1")), -1); !removed {
		t.Fatalf("decrementing weight 0.1 should remove")
	}
	next, removed := Step(CountOf(2), -1)
	if removed || next.Quantity != 1 {
		t.Fatalf("expected quantity 1, got %+v removed=%v", next, removed)
	}
}

func TestAmountJSON(t *testing.T) {
	raw, err := json.Marshal(WeightOf(dec("2.25")))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(raw) != `{"kind":"weight","weight":"2.3"}` {
		t.Fatalf("unexpected weight encoding %s", raw)
	}

	var count Amount
	if err := json.Unmarshal([]byte(`{"kind":"count","quantity":4}`), &count); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if count.Kind != KindCount || count.Quantity != 4 {
		t.Fatalf("unexpected amount %+v", count)
	}

	var bad Amount
	if err := json.Unmarshal([]byte(`{"kind":"weight"}`), &bad); err == nil {
		t.Fatalf("expected weight without value to fail")
	}
}
