package rates

import "testing"

func TestSeriesFor(t *testing.T) {
	cases := []struct {
		days int
		want string
	}{
		{7, "DGS1MO"},
		{30, "DGS1MO"},
		{31, "DGS3MO"},
		{90, "DGS3MO"},
		{120, "DGS6MO"},
		{365, "DGS1"},
		{500, "DGS2"},
		{365 * 4, "DGS5"},
		{365 * 8, "DGS10"},
		{365 * 20, "DGS30"},
	}
	for _, tc := range cases {
		if got := seriesFor(tc.days); got != tc.want {
			t.Errorf("seriesFor(%d) = %s, want %s", tc.days, got, tc.want)
		}
	}
}
