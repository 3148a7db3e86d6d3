package receipt

import "testing"

func TestParseTypicalReceipt(t *testing.T) {
	text := `STORE #42
GROUND BEEF $12.99
2 x WHOLE MILK 3.49
BANANAS 1.25
SUBTOTAL 17.73
TAX 1.42
TOTAL 19.15
THANK YOU`

	items := Parse(text)
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d: %+v", len(items), items)
	}

	beef := items[0]
	if beef.Item != "GROUND BEEF" || beef.Category != "meat" {
		t.Fatalf("unexpected first item %+v", beef)
	}
	if beef.Price == nil || *beef.Price != 12.99 {
		t.Fatalf("expected price 12.99, got %+v", beef.Price)
	}
	if beef.Quantity != nil {
		t.Fatalf("expected no quantity, got %v", *beef.Quantity)
	}

	milk := items[1]
	if milk.Item != "WHOLE MILK" || milk.Category != "dairy" {
		t.Fatalf("unexpected second item %+v", milk)
	}
	if milk.Quantity == nil || *milk.Quantity != 2 {
		t.Fatalf("expected quantity 2, got %+v", milk.Quantity)
	}
	if milk.Price == nil || *milk.Price != 3.49 {
		t.Fatalf("expected price 3.49, got %+v", milk.Price)
	}

	if items[2].Category != "produce" {
		t.Fatalf("expected produce, got %q", items[2].Category)
	}
}

func TestParseUnknownItemHasNoCategory(t *testing.T) {
	items := Parse("PAPER TOWELS 4.99")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Category != "" {
		t.Fatalf("expected empty category, got %q", items[0].Category)
	}
}

func TestParseSkipsNoiseAndBlankLines(t *testing.T) {
	items := Parse("\n\nCASHIER 12\nVISA ****1234\n\n")
	if len(items) != 0 {
		t.Fatalf("expected no items, got %+v", items)
	}
}

func TestParseLineWithoutPrice(t *testing.T) {
	items := Parse("CHICKEN THIGHS")
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	if items[0].Price != nil {
		t.Fatalf("expected nil price, got %v", *items[0].Price)
	}
	if items[0].Category != "poultry" {
		t.Fatalf("expected poultry, got %q", items[0].Category)
	}
}
