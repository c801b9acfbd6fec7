package linear

// DefaultConfidenceLevel は係数と予測の信頼区間の既定水準
const DefaultConfidenceLevel = 0.95

type fitConfig struct {
	confidence   float64
	fitIntercept bool
	tol          float64
}

func defaultFitConfig() fitConfig {
	return fitConfig{confidence: DefaultConfidenceLevel, fitIntercept: true}
}

// Option is a function that configures an OLS fit
type Option func(*fitConfig)

// WithConfidenceLevel sets the level of the coefficient confidence intervals
func WithConfidenceLevel(level float64) Option {
	return func(c *fitConfig) {
		c.confidence = level
	}
}

// WithFitIntercept sets whether to calculate the intercept.
// false removes the intercept even when the formula keeps it.
func WithFitIntercept(fit bool) Option {
	return func(c *fitConfig) {
		c.fitIntercept = fit
	}
}

// WithTol sets the relative singular value tolerance for the rank check.
// Zero means max(n, p) * machine epsilon.
func WithTol(tol float64) Option {
	return func(c *fitConfig) {
		c.tol = tol
	}
}
