package optimizer

// Option configures Optimizer.
type Option func(*Options)

// Options holds Levenberg-Marquardt stopping criteria.
type Options struct {
	MaxIterations int
	FTol          float64 // relative cost decrease
	XTol          float64 // relative step size
	LambdaInit    float64
	LambdaMax     float64
}

func defaultOptions() Options {
	return Options{
		MaxIterations: 400,
		FTol:          1e-10,
		XTol:          1e-9,
		LambdaInit:    1e-3,
		LambdaMax:     1e12,
	}
}

// WithMaxIterations caps the number of LM iterations.
func WithMaxIterations(n int) Option {
	return func(o *Options) {
		o.MaxIterations = n
	}
}

// WithTolerances sets the relative cost and step tolerances.
func WithTolerances(ftol, xtol float64) Option {
	return func(o *Options) {
		o.FTol = ftol
		o.XTol = xtol
	}
}
