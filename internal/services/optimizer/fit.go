package optimizer

import (
	"errors"
	"math"
	"time"

	"BubbleScope/internal/domain/models"
	domsvc "BubbleScope/internal/domain/service"
	"BubbleScope/internal/services/lppl"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

var _ domsvc.Fitter = (*Optimizer)(nil)

var errNumerical = errors.New("singular design matrix")

// Optimizer runs bounded Levenberg-Marquardt fits of the LPPL model.
// It holds no per-fit state and is safe for concurrent use.
type Optimizer struct {
	opts Options
}

// New creates an Optimizer.
func New(opts ...Option) *Optimizer {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return &Optimizer{opts: o}
}

// Fit fits data from seed inside bounds. The nonlinear triple (tc, beta,
// omega) is iterated by LM; A, B and the two quadrature amplitudes of the
// oscillation are solved exactly by least squares at every step, so the
// seed's linear values only document the starting point. A zero deadline
// disables the timeout.
func (o *Optimizer) Fit(data *models.NormalizedSeries, seed models.ParameterVector, bounds models.Bounds, deadline time.Time) models.FittingCandidate {
	start := time.Now()
	c := models.FittingCandidate{Seed: seed}
	fail := func(reason string) models.FittingCandidate {
		c.Converged = false
		c.FailureReason = reason
		c.Elapsed = time.Since(start)
		return c
	}

	if data == nil || data.Len() < 2 {
		return fail(models.FailDegenerate)
	}
	if flat(data.LogPrice) {
		return fail(models.FailZeroVariance)
	}

	lo := [3]float64{bounds.Lower.Tc, bounds.Lower.Beta, bounds.Lower.Omega}
	hi := [3]float64{bounds.Upper.Tc, bounds.Upper.Beta, bounds.Upper.Omega}
	theta := clamp([3]float64{seed.Tc, seed.Beta, seed.Omega}, lo, hi)

	w := newWorkspace(data)
	res := make([]float64, data.Len())
	lin, cost, err := w.project(theta, res)
	if err != nil {
		return fail(failureFor(err))
	}

	lambda := o.opts.LambdaInit
	converged := false
	jac := mat.NewDense(data.Len(), 3, nil)
	trial := make([]float64, data.Len())
	iter := 0
	for ; iter < o.opts.MaxIterations && !converged; iter++ {
		if !deadline.IsZero() && time.Now().After(deadline) {
			c.Iterations = iter
			return fail(models.FailTimeout)
		}
		if cost <= 1e-30*float64(data.Len()) {
			converged = true
			break
		}
		if err := w.jacobian(theta, res, hi, jac); err != nil {
			return fail(failureFor(err))
		}
		var jtj mat.Dense
		jtj.Mul(jac.T(), jac)
		var grad mat.VecDense
		grad.MulVec(jac.T(), mat.NewVecDense(len(res), res))

		improved := false
		for lambda <= o.opts.LambdaMax {
			step, ok := lmStep(&jtj, &grad, lambda)
			if !ok {
				lambda *= 10
				continue
			}
			next := clamp([3]float64{theta[0] + step[0], theta[1] + step[1], theta[2] + step[2]}, lo, hi)
			nextLin, nextCost, err := w.project(next, trial)
			if err != nil || nextCost >= cost {
				lambda *= 10
				continue
			}

			rel := (cost - nextCost) / cost
			dx := relativeStep(theta, next)
			theta, lin, cost = next, nextLin, nextCost
			copy(res, trial)
			lambda = math.Max(lambda/10, 1e-12)
			improved = true
			if rel < o.opts.FTol || dx < o.opts.XTol {
				converged = true
			}
			break
		}
		if !improved {
			// No descent direction left: a stationary point.
			converged = true
		}
	}
	c.Iterations = iter
	if !converged {
		return fail(models.FailIterationCap)
	}

	c.Params = models.ParameterVector{
		Tc:    theta[0],
		Beta:  theta[1],
		Omega: theta[2],
		Phi:   math.Atan2(-lin[3], lin[2]),
		A:     lin[0],
		B:     lin[1],
		C:     math.Hypot(lin[2], lin[3]),
	}
	r2, rmse, err := Evaluate(data, c.Params)
	if err != nil {
		return fail(failureFor(err))
	}
	c.RSquared = r2
	c.RMSE = rmse
	if !lppl.InBounds(c.Params) || !withinBox(c.Params, bounds) {
		return fail(models.FailOutOfBounds)
	}
	c.Converged = true
	c.Elapsed = time.Since(start)
	return c
}

// Evaluate returns r_squared and rmse of p against data in log-price space.
// r_squared is clipped to [0,1].
func Evaluate(data *models.NormalizedSeries, p models.ParameterVector) (float64, float64, error) {
	fitted, err := lppl.LogPeriodicSeries(data.T, p)
	if err != nil {
		return 0, 0, err
	}
	sse := 0.0
	for i, y := range data.LogPrice {
		d := y - fitted[i]
		sse += d * d
	}
	rmse := math.Sqrt(sse / float64(len(fitted)))
	if flat(data.LogPrice) {
		return 0, rmse, nil
	}
	r2 := stat.RSquaredFrom(fitted, data.LogPrice, nil)
	if math.IsNaN(r2) || r2 < 0 {
		r2 = 0
	}
	return math.Min(r2, 1), rmse, nil
}

func flat(y []float64) bool {
	return len(y) == 0 || floats.Max(y) == floats.Min(y)
}

func failureFor(err error) string {
	if errors.Is(err, models.ErrDegenerateModel) {
		return models.FailDegenerate
	}
	return models.FailNumerical
}

// lmStep solves (JtJ + lambda*diag(JtJ)) d = -g.
func lmStep(jtj *mat.Dense, grad *mat.VecDense, lambda float64) ([3]float64, bool) {
	a := mat.DenseCopyOf(jtj)
	for i := 0; i < 3; i++ {
		d := math.Max(jtj.At(i, i), 1e-12)
		a.Set(i, i, jtj.At(i, i)+lambda*d)
	}
	var rhs mat.VecDense
	rhs.ScaleVec(-1, grad)
	var d mat.VecDense
	if err := d.SolveVec(a, &rhs); err != nil {
		return [3]float64{}, false
	}
	out := [3]float64{d.AtVec(0), d.AtVec(1), d.AtVec(2)}
	for _, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return out, false
		}
	}
	return out, true
}

func clamp(x, lo, hi [3]float64) [3]float64 {
	for i := range x {
		x[i] = math.Min(math.Max(x[i], lo[i]), hi[i])
	}
	return x
}

func relativeStep(a, b [3]float64) float64 {
	m := 0.0
	for i := range a {
		m = math.Max(m, math.Abs(b[i]-a[i])/(math.Abs(a[i])+1e-12))
	}
	return m
}

func withinBox(p models.ParameterVector, b models.Bounds) bool {
	in := func(v, lo, hi float64) bool { return v >= lo && v <= hi }
	return in(p.Phi, b.Lower.Phi, b.Upper.Phi) &&
		in(p.A, b.Lower.A, b.Upper.A) &&
		in(p.B, b.Lower.B, b.Upper.B) &&
		in(p.C, b.Lower.C, b.Upper.C)
}
