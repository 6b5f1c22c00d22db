package rows

import (
	"strings"
	"testing"
)

func TestDecodeCSVMapsHeaderToFields(t *testing.T) {
	input := "AccountID,Currency,AssetClass,Quantity,TradePrice,BuySell,TradeDate\n" +
		"U123,EUR,STK,10,50.00,BUY,2023-03-01\n" +
		"U123,EUR,STK,-5,52.00,SELL,2023-06-01\n"

	got, err := DecodeCSV[TradeRow](strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	if got[0].AccountID != "U123" || got[0].AssetClass != "STK" || got[0].BuySell != "BUY" {
		t.Errorf("row 0 = %+v, unexpected field mapping", got[0])
	}
	if got[1].Quantity != "-5" || got[1].TradeDate != "2023-06-01" {
		t.Errorf("row 1 = %+v, unexpected field mapping", got[1])
	}
	// Fields the header never names (e.g. ISIN) must stay zero.
	if got[0].ISIN != "" {
		t.Errorf("ISIN = %q, want empty (column not in header)", got[0].ISIN)
	}
}

func TestDecodeCSVEmptyInput(t *testing.T) {
	got, err := DecodeCSV[TradeRow](strings.NewReader(""))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if got != nil {
		t.Errorf("got = %v, want nil for empty input", got)
	}
}

func TestDecodeCSVIgnoresUnknownColumns(t *testing.T) {
	input := "AccountID,Currency,AssetClass,Quantity,TradePrice,BuySell,TradeDate,SomeBrokerSpecificColumn\n" +
		"U1,USD,STK,1,10.00,BUY,2023-01-05,ignored-value\n"

	got, err := DecodeCSV[TradeRow](strings.NewReader(input))
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	if len(got) != 1 || got[0].Currency != "USD" {
		t.Fatalf("got = %+v, unexpected decode result", got)
	}
}
