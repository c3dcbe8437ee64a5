package marketdata

import (
	"testing"

	"OptionLens/internal/domain/models"
)

func TestCleanQuotesAppliesIVBand(t *testing.T) {
	quotes := []models.MarketQuote{
		{Strike: 440, LastPrice: 12, ImpliedVol: 0.20, Right: models.Call},
		{Strike: 445, LastPrice: 10, ImpliedVol: 0.04, Right: models.Call}, // below band
		{Strike: 450, LastPrice: 8, ImpliedVol: 2.5, Right: models.Call},   // above band
		{Strike: 455, LastPrice: 0, ImpliedVol: 0.21, Right: models.Call},  // no price
		{Strike: 460, LastPrice: 5, ImpliedVol: 2.0, Right: models.Call},   // boundary survives
	}

	out := cleanQuotes(quotes, 0.05, 2.0)
	if len(out) != 2 {
		t.Fatalf("cleaned %d quotes, want 2", len(out))
	}
	if out[0].Strike != 440 || out[1].Strike != 460 {
		t.Fatalf("unexpected survivors: %v, %v", out[0].Strike, out[1].Strike)
	}
}
