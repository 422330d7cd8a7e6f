package marketdata

import "testing"

func TestParseFloatString(t *testing.T) {
	if got := parseFloatString("123.45"); got != 123.45 {
		t.Fatalf("expected 123.45, got %f", got)
	}
	if got := parseFloatString("not-a-number"); got != 0 {
		t.Fatalf("expected 0 for an unparseable string, got %f", got)
	}
}

func TestParseFloatField(t *testing.T) {
	if got := parseFloatField("42.5"); got != 42.5 {
		t.Fatalf("expected 42.5 from a string field, got %f", got)
	}
	if got := parseFloatField(7.5); got != 7.5 {
		t.Fatalf("expected 7.5 from a float64 field, got %f", got)
	}
	if got := parseFloatField(nil); got != 0 {
		t.Fatalf("expected 0 for an unrecognized field type, got %f", got)
	}
}

func TestParseCombinedKlineValidMessage(t *testing.T) {
	message := []byte(`{
		"stream": "btcusdt@kline_1m",
		"data": {
			"e": "kline",
			"k": {
				"t": 1700000000000,
				"s": "BTCUSDT",
				"i": "1m",
				"o": "100.0",
				"h": "105.0",
				"l": "99.0",
				"c": "104.0",
				"v": "10.5",
				"x": true
			}
		}
	}`)

	evt, ok := parseCombinedKline(message)
	if !ok {
		t.Fatal("expected a valid kline envelope to parse successfully")
	}
	if evt.Symbol != "BTCUSDT" {
		t.Fatalf("expected symbol BTCUSDT, got %q", evt.Symbol)
	}
	if evt.Close != 104.0 || evt.High != 105.0 || evt.Low != 99.0 || evt.Open != 100.0 {
		t.Fatalf("expected OHLC to parse from string fields, got %+v", evt)
	}
	if !evt.IsFinal {
		t.Fatal("expected IsFinal to propagate from the kline's x field")
	}
}

func TestParseCombinedKlineIgnoresNonKlineEvents(t *testing.T) {
	message := []byte(`{"data": {"e": "depthUpdate"}}`)
	_, ok := parseCombinedKline(message)
	if ok {
		t.Fatal("expected a non-kline event type to be rejected")
	}
}

func TestParseCombinedKlineRejectsMalformedJSON(t *testing.T) {
	_, ok := parseCombinedKline([]byte("not json"))
	if ok {
		t.Fatal("expected malformed JSON to be rejected")
	}
}
