package imu

import "github.com/vectorfield/airstreams/telemetry"

// buildDiagonalCovariance builds a 3x3 covariance matrix from a per-axis
// standard deviation. A zero stdev means the noise figure is unknown and
// yields the sentinel matrix. Called once per configured parameter; the
// results are shared across all records of that quantity.
func buildDiagonalCovariance(stdev float64) telemetry.Covariance3 {
	if stdev == 0 {
		return telemetry.UnknownCovariance()
	}
	variance := stdev * stdev
	var cov telemetry.Covariance3
	cov[0] = variance
	cov[4] = variance
	cov[8] = variance
	return cov
}
