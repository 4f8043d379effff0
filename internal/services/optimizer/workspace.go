package optimizer

import (
	"errors"
	"math"

	"BubbleScope/internal/domain/models"
	"BubbleScope/internal/services/lppl"

	"gonum.org/v1/gonum/mat"
)

// workspace owns the buffers of one fit. Not shared between goroutines.
type workspace struct {
	t      []float64
	y      *mat.VecDense
	design *mat.Dense
	coef   *mat.VecDense
	probe  []float64
}

func newWorkspace(data *models.NormalizedSeries) *workspace {
	n := data.Len()
	return &workspace{
		t:      data.T,
		y:      mat.NewVecDense(n, append([]float64(nil), data.LogPrice...)),
		design: mat.NewDense(n, 4, nil),
		coef:   mat.NewVecDense(4, nil),
		probe:  make([]float64, n),
	}
}

// project solves the linear terms [A, B, C1, C2] for the nonlinear triple
// theta and writes the residuals into res. Rows at or past tc are zero.
func (w *workspace) project(theta [3]float64, res []float64) ([4]float64, float64, error) {
	var lin [4]float64
	tc, beta, omega := theta[0], theta[1], theta[2]
	switch k := lppl.InDomain(w.t, tc); {
	case k == 0:
		return lin, 0, models.ErrDegenerateModel
	case k < 4:
		return lin, 0, errNumerical
	}

	for i, t := range w.t {
		dt := tc - t
		if dt <= 0 {
			w.design.SetRow(i, []float64{0, 0, 0, 0})
			continue
		}
		f := math.Pow(dt, beta)
		arg := omega * math.Log(dt)
		w.design.Set(i, 0, 1)
		w.design.Set(i, 1, f)
		w.design.Set(i, 2, f*math.Cos(arg))
		w.design.Set(i, 3, f*math.Sin(arg))
	}

	if err := w.coef.SolveVec(w.design, w.y); err != nil {
		var cond mat.Condition
		if !errors.As(err, &cond) {
			return lin, 0, errNumerical
		}
	}
	for j := range lin {
		lin[j] = w.coef.AtVec(j)
		if math.IsNaN(lin[j]) || math.IsInf(lin[j], 0) {
			return lin, 0, errNumerical
		}
	}

	sse := 0.0
	for i := range res {
		fit := 0.0
		for j := 0; j < 4; j++ {
			fit += w.design.At(i, j) * lin[j]
		}
		res[i] = fit - w.y.AtVec(i)
		sse += res[i] * res[i]
	}
	if math.IsNaN(sse) || math.IsInf(sse, 0) {
		return lin, 0, errNumerical
	}
	return lin, sse, nil
}

// jacobian fills jac with forward differences of the projected residuals.
// A step that would leave the box on the upper side is taken backwards.
func (w *workspace) jacobian(theta [3]float64, res []float64, hi [3]float64, jac *mat.Dense) error {
	for k := 0; k < 3; k++ {
		h := 1e-7 * math.Max(math.Abs(theta[k]), 1)
		if theta[k]+h > hi[k] {
			h = -h
		}
		shifted := theta
		shifted[k] += h
		if _, _, err := w.project(shifted, w.probe); err != nil {
			return err
		}
		for i := range res {
			jac.Set(i, k, (w.probe[i]-res[i])/h)
		}
	}
	return nil
}
