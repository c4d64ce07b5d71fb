package feature

import (
	"fmt"
	"strconv"
	"strings"
)

// fitBand holds deviations in microns for nominal sizes in (Over, UpTo].
type fitBand struct {
	Over, UpTo   float64
	Lower, Upper int
}

// ISO 286-2 deviations for the tolerance classes the backend commonly reports.
var isoFits = map[string][]fitBand{
	"H7": {
		{0, 3, 0, 10}, {3, 6, 0, 12}, {6, 10, 0, 15}, {10, 18, 0, 18},
		{18, 30, 0, 21}, {30, 50, 0, 25}, {50, 80, 0, 30}, {80, 120, 0, 35},
		{120, 180, 0, 40}, {180, 250, 0, 46}, {250, 315, 0, 52},
		{315, 400, 0, 57}, {400, 500, 0, 63},
	},
	"g6": {
		{0, 3, -8, -2}, {3, 6, -12, -4}, {6, 10, -14, -5}, {10, 18, -17, -6},
		{18, 30, -20, -7}, {30, 50, -25, -9}, {50, 80, -29, -10},
		{80, 120, -34, -12}, {120, 180, -39, -14},
	},
	"f7": {
		{0, 3, -16, -6}, {3, 6, -22, -10}, {6, 10, -28, -13}, {10, 18, -34, -16},
		{18, 30, -41, -20}, {30, 50, -50, -25}, {50, 80, -60, -30},
	},
}

// ISOLimits formats the upper and lower deviation in millimetres for a
// nominal size and tolerance class, e.g. ("Ø20", "H7") -> "+0.021 / +0.000".
func ISOLimits(nominal, code string) (string, bool) {
	bands, ok := isoFits[strings.TrimSpace(code)]
	if !ok {
		return "", false
	}
	n, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(nominal), "Ø")), 64)
	if err != nil {
		return "", false
	}
	for _, b := range bands {
		if n > b.Over && n <= b.UpTo {
			return fmt.Sprintf("%+.3f / %+.3f", float64(b.Upper)/1000, float64(b.Lower)/1000), true
		}
	}
	return "", false
}
