package domain

import "testing"

func TestVehicleDisplayRoundTrip(t *testing.T) {
	for _, v := range Vehicles {
		if got := ParseVehicle(v.DisplayName()); got != v {
			t.Errorf("ParseVehicle(%q.DisplayName()) = %q, want %q", v, got, v)
		}
	}
}

func TestParseVehicleFallback(t *testing.T) {
	if got := ParseVehicle("Hovercraft"); got != VehicleCar {
		t.Errorf("unknown vehicle should fall back to CAR, got %q", got)
	}
	if got := Vehicle("SUBMARINE").DisplayName(); got != "Car" {
		t.Errorf("unknown enum should display as Car, got %q", got)
	}
}

func TestParseVehicleEnumValues(t *testing.T) {
	if got := ParseVehicle("THREE_WHEELER"); got != VehicleThreeWheeler {
		t.Errorf("enum value should parse directly, got %q", got)
	}
	if got := ParseVehicle("lorry"); got != VehicleLorry {
		t.Errorf("case-insensitive enum should parse, got %q", got)
	}
}

func TestParseBoundingBox(t *testing.T) {
	b, err := ParseBoundingBox("80.43,6.94,80.55,7.03")
	if err != nil {
		t.Fatalf("ParseBoundingBox: %v", err)
	}
	if b.MinLon != 80.43 || b.MinLat != 6.94 || b.MaxLon != 80.55 || b.MaxLat != 7.03 {
		t.Errorf("parsed box = %+v", b)
	}
	if !b.Contains(7.0, 80.5) {
		t.Error("point inside box reported outside")
	}
	if b.Contains(7.5, 80.5) {
		t.Error("point outside box reported inside")
	}
}

func TestParseBoundingBoxRejectsInverted(t *testing.T) {
	if _, err := ParseBoundingBox("80.55,6.94,80.43,7.03"); err == nil {
		t.Error("inverted bounds should be rejected")
	}
	if _, err := ParseBoundingBox("1,2,3"); err == nil {
		t.Error("short bbox should be rejected")
	}
	if _, err := ParseBoundingBox("a,b,c,d"); err == nil {
		t.Error("non-numeric bbox should be rejected")
	}
}

func TestBoundingBoxStringRoundTrip(t *testing.T) {
	b := BoundingBox{MinLon: 80.43, MinLat: 6.94, MaxLon: 80.55, MaxLat: 7.03}
	parsed, err := ParseBoundingBox(b.String())
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	if parsed != b {
		t.Errorf("round trip changed box: %+v vs %+v", parsed, b)
	}
}
