package model

import "testing"

func TestServiceOffering_ChargeFor(t *testing.T) {
	offering := &ServiceOffering{Rate: 50, Min: 100, Max: 100000}

	tests := []struct {
		quantity int64
		want     float64
	}{
		{1000, 50},
		{100, 5},
		{2500, 125},
		{100000, 5000},
	}

	for _, tt := range tests {
		if got := offering.ChargeFor(tt.quantity); got != tt.want {
			t.Errorf("ChargeFor(%d) = %.4f, 期望 %.4f", tt.quantity, got, tt.want)
		}
	}
}

func TestServiceOffering_QuantityInRange(t *testing.T) {
	offering := &ServiceOffering{Rate: 50, Min: 100, Max: 100000}

	tests := []struct {
		quantity int64
		want     bool
	}{
		{100, true},    // 下界含
		{100000, true}, // 上界含
		{99, false},
		{100001, false},
		{1000, true},
	}

	for _, tt := range tests {
		if got := offering.QuantityInRange(tt.quantity); got != tt.want {
			t.Errorf("QuantityInRange(%d) = %v, 期望 %v", tt.quantity, got, tt.want)
		}
	}
}
