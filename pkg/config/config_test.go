package config

import (
	"testing"
)

func TestPriceLamports(t *testing.T) {
	pricing := PricingConfig{
		IndividualSOL: "0.5",
		GroupSOL:      "2.0",
	}

	individual, err := pricing.PriceLamports("individual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if individual != 500_000_000 {
		t.Errorf("expected 500000000 lamports, got %d", individual)
	}

	group, err := pricing.PriceLamports("group")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if group != 2_000_000_000 {
		t.Errorf("expected 2000000000 lamports, got %d", group)
	}

	if _, err := pricing.PriceLamports("lifetime"); err == nil {
		t.Error("expected error for unknown session kind")
	}
}

func TestPriceLamports_Discount(t *testing.T) {
	pricing := PricingConfig{
		IndividualSOL:   "0.5",
		GroupSOL:        "2.0",
		DiscountPercent: 20,
	}

	individual, err := pricing.PriceLamports("individual")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if individual != 400_000_000 {
		t.Errorf("expected 400000000 lamports after 20%% discount, got %d", individual)
	}
}

func TestPriceLamports_InvalidPrice(t *testing.T) {
	pricing := PricingConfig{IndividualSOL: "not-a-number"}
	if _, err := pricing.PriceLamports("individual"); err == nil {
		t.Error("expected error for unparsable price")
	}

	pricing = PricingConfig{IndividualSOL: "0"}
	if _, err := pricing.PriceLamports("individual"); err == nil {
		t.Error("expected error for zero price")
	}
}

func TestLamportsToSOL(t *testing.T) {
	cases := map[uint64]string{
		1_000_000_000: "1",
		500_000_000:   "0.5",
		499_990_000:   "0.49999",
		1:             "0.000000001",
	}
	for lamports, want := range cases {
		if got := LamportsToSOL(lamports); got != want {
			t.Errorf("LamportsToSOL(%d) = %s, want %s", lamports, got, want)
		}
	}
}

func TestRPCURL(t *testing.T) {
	ledger := LedgerConfig{
		RPCURLs: map[string]string{"devnet": "https://api.devnet.solana.com"},
		Cluster: "devnet",
	}
	url, err := ledger.RPCURL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url != "https://api.devnet.solana.com" {
		t.Errorf("unexpected url %s", url)
	}

	ledger.Cluster = "testnet"
	if _, err := ledger.RPCURL(); err == nil {
		t.Error("expected error for unconfigured cluster")
	}
}
