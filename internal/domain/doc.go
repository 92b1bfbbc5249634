// Package domain models annual climate readings and the smoothing applied to
// them before they reach the chart renderer.
//
// # Data Source
//
// Readings originate from annual global datasets: the GCAG/GISTEMP land-ocean
// temperature anomaly series and the Mauna Loa CO2 annual means. The upstream
// loader joins both datasets by year and publishes one flat JSON object per
// year to the Kafka source topic:
//
//	{"year": 1988, "TempAnomaly": 0.32, "CO2ppm": 351.57}
//
// # Field Conventions
//
//	TempAnomaly: degrees Celsius relative to the 1951–1980 baseline.
//	             Signed, typically between -0.6 and +1.4.
//	CO2ppm:      atmospheric CO2 mole fraction in parts per million.
//	             Only available from 1958 onwards; earlier years are absent.
//
// Any other numeric key is carried through as an additional field.
//
// Missing readings:
//
//	null, an empty string, or an omitted key all mean "absent". Absent is
//	distinct from zero: a zero anomaly is a real reading.
//
// # Smoothing
//
// [Smooth] replaces each value with the centered moving average of the present
// values within floor(k/2) samples on either side, clipped at the series
// boundaries. Even window sizes therefore behave like the next odd size
// (k=2 and k=3 average the same neighbours). Each field is smoothed on its
// own, so a year with no CO2 reading still gets a temperature average.
//
// # Views
//
// A [ViewConfig] selects a metric mode (TempAnomaly, CO2ppm, or both), a year
// range, and a smoothing window. [BuildView] applies them in that order and
// reports per-field extents plus the record-warmth years. A [Story] is an
// ordered list of preset views with captions.
package domain
