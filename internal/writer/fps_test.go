package writer

import "testing"

func TestRationalizeKnownRates(t *testing.T) {
	cases := []struct {
		fps        float64
		rate, scale uint32
	}{
		{15, 15, 1},
		{23.976, 24000, 1001},
		{24, 24, 1},
		{25, 25, 1},
		{29.97, 30000, 1001},
		{30, 30, 1},
		{50, 50, 1},
		{59.94, 60000, 1001},
		{60, 60, 1},
	}
	for _, c := range cases {
		rate, scale := rationalize(c.fps)
		if rate != c.rate || scale != c.scale {
			t.Errorf("rationalize(%v) = (%d, %d), want (%d, %d)", c.fps, rate, scale, c.rate, c.scale)
		}
	}
}

func TestRationalizeZeroOrNegative(t *testing.T) {
	rate, scale := rationalize(0)
	if rate != 0 || scale != 0 {
		t.Errorf("rationalize(0) = (%d, %d), want (0, 0)", rate, scale)
	}
	rate, scale = rationalize(-5)
	if rate != 0 || scale != 0 {
		t.Errorf("rationalize(-5) = (%d, %d), want (0, 0)", rate, scale)
	}
}

func TestGCDReduction(t *testing.T) {
	// 12.345 fps -> n=12345, d=1000 -> reduced by gcd(12345,1000)=5 -> 2469/200
	rate, scale := rationalize(12.345)
	if rate != 2469 || scale != 200 {
		t.Errorf("rationalize(12.345) = (%d, %d), want (2469, 200)", rate, scale)
	}
}
