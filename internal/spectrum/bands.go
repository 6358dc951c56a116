package spectrum

// KnownBand is a static reference entry describing a named frequency
// allocation. Start and End are in Hz, inclusive.
type KnownBand struct {
	Name  string  `json:"name"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Type  string  `json:"type"`
}

// Contains reports whether the frequency falls inside the band, inclusive
// of both edges.
func (b KnownBand) Contains(freq float64) bool {
	return freq >= b.Start && freq <= b.End
}

// Width returns the band width in Hz.
func (b KnownBand) Width() float64 {
	return b.End - b.Start
}

// KnownBands is the ordered allocation catalog used for peak classification
// and band occupancy summaries. Ranges overlap deliberately (Air Band and
// Public Safety share 136-137 MHz); classification is first match in catalog
// order, not best match, and downstream consumers depend on that order.
var KnownBands = []KnownBand{
	{Name: "FM Broadcast", Start: 88e6, End: 108e6, Type: "broadcast"},
	{Name: "Air Band", Start: 108e6, End: 137e6, Type: "aviation"},
	{Name: "2m Amateur", Start: 144e6, End: 148e6, Type: "amateur"},
	{Name: "Marine VHF", Start: 156e6, End: 162.025e6, Type: "marine"},
	{Name: "NOAA Weather", Start: 162.4e6, End: 162.55e6, Type: "weather"},
	{Name: "Public Safety", Start: 136e6, End: 174e6, Type: "public-safety"},
	{Name: "70cm Amateur", Start: 420e6, End: 450e6, Type: "amateur"},
	{Name: "GSM 850", Start: 824e6, End: 894e6, Type: "cellular"},
	{Name: "ISM 900", Start: 902e6, End: 928e6, Type: "ism"},
	{Name: "ADS-B", Start: 1087e6, End: 1093e6, Type: "aviation"},
	{Name: "GPS L1", Start: 1574e6, End: 1577e6, Type: "navigation"},
	{Name: "WiFi 2.4GHz", Start: 2400e6, End: 2483.5e6, Type: "wifi"},
	{Name: "WiFi 5GHz", Start: 5150e6, End: 5850e6, Type: "wifi"},
}

// ClassifyFrequency returns the first catalog band containing the frequency,
// or nil if no entry matches.
func ClassifyFrequency(freq float64) *KnownBand {
	for i := range KnownBands {
		if KnownBands[i].Contains(freq) {
			return &KnownBands[i]
		}
	}
	return nil
}
