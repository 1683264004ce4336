package risk

import "testing"

func fptr(v float64) *float64 {
	return &v
}

func TestCategorize(t *testing.T) {
	tests := []struct {
		name string
		risk *float64
		want Label
	}{
		{"nil is none", nil, LabelNone},
		{"minimum severity", fptr(1.0), LabelLow},
		{"low boundary inclusive", fptr(1.5), LabelLow},
		{"just above low boundary", fptr(1.50001), LabelMedium},
		{"medium", fptr(2.0), LabelMedium},
		{"medium boundary inclusive", fptr(2.5), LabelMedium},
		{"just above medium boundary", fptr(2.50001), LabelHigh},
		{"maximum severity", fptr(3.0), LabelHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Categorize(tt.risk); got != tt.want {
				t.Errorf("Categorize(%v) = %s, want %s", tt.risk, got, tt.want)
			}
		})
	}
}

func TestCategorize_Monotonic(t *testing.T) {
	prev := -1
	for v := 1.0; v <= 3.0; v += 0.01 {
		rank := Categorize(fptr(v)).Rank()
		if rank < prev {
			t.Fatalf("label rank decreased at risk_value %v", v)
		}
		prev = rank
	}
}

func TestCategorizeMagnitude(t *testing.T) {
	tests := []struct {
		magnitude float64
		want      MagnitudeClass
	}{
		{1.9, MagnitudeMicro},
		{2.0, MagnitudeMinor},
		{3.9, MagnitudeMinor},
		{4.0, MagnitudeLight},
		{4.9, MagnitudeLight},
		{5.0, MagnitudeModerate},
		{5.9, MagnitudeModerate},
		{6.0, MagnitudeStrong},
		{6.9, MagnitudeStrong},
		{7.0, MagnitudeMajor},
		{7.9, MagnitudeMajor},
		{8.0, MagnitudeGreat},
		{9.1, MagnitudeGreat},
	}

	for _, tt := range tests {
		if got := CategorizeMagnitude(tt.magnitude); got != tt.want {
			t.Errorf("CategorizeMagnitude(%v) = %s, want %s", tt.magnitude, got, tt.want)
		}
	}
}

func TestHeatCategory(t *testing.T) {
	tests := []struct {
		name        string
		temperature *float64
		humidity    *float64
		want        HeatLevel
	}{
		{"missing temperature", nil, fptr(80), HeatUnknown},
		{"missing humidity", fptr(35), nil, HeatUnknown},
		{"hot and dry is extreme", fptr(40), fptr(10), HeatExtreme},
		{"warm and humid is extreme", fptr(35), fptr(60), HeatExtreme},
		{"just below extreme humidity rule", fptr(36), fptr(59), HeatHigh},
		{"high by combined rule", fptr(33), fptr(65), HeatHigh},
		{"high boundary", fptr(32), fptr(60), HeatHigh},
		{"warm but dry", fptr(32), fptr(59), HeatModerate},
		{"moderate boundary", fptr(30), fptr(50), HeatModerate},
		{"cool and humid is low", fptr(29), fptr(90), HeatLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := HeatCategory(tt.temperature, tt.humidity); got != tt.want {
				t.Errorf("HeatCategory = %s, want %s", got, tt.want)
			}
		})
	}
}
