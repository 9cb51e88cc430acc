// Package rscodec implements systematic Reed-Solomon encoding and
// error-and-erasure decoding over GF(2^8), matching the shortened
// RS(k+r,k) code used by the container format in rscontainer: primitive
// polynomial 0x11d, first consecutive root fcr=1, primitive element
// index prim=1.
//
// Decode uses Berlekamp-Massey (seeded with the erasure locator) to find
// the error-and-erasure locator polynomial, Chien search to find its
// roots, and Forney's formula to compute the error values.
package rscodec

import (
	"errors"
	"fmt"

	"github.com/hub10com/rscontainer/gf256"
)

// ErrBadParams is returned by New when k, r or pad are inconsistent.
var ErrBadParams = errors.New("rscodec: invalid k/r/pad")

// Codec holds the generator polynomial for one (k, r, pad) configuration.
// A Codec is immutable after New and safe for concurrent use.
type Codec struct {
	K, R, Pad int
	gen       []byte // monic, descending powers, length R+1
}

// New builds a systematic RS(k+r,k) codec shortened by pad virtual leading
// zero symbols, so that k+r+pad must equal 255.
func New(k, r, pad int) (*Codec, error) {
	if k <= 0 || r <= 0 {
		return nil, fmt.Errorf("%w: k=%d r=%d", ErrBadParams, k, r)
	}
	if k+r > 255 {
		return nil, fmt.Errorf("%w: k+r=%d exceeds 255", ErrBadParams, k+r)
	}
	if pad < 0 || k+r+pad != 255 {
		return nil, fmt.Errorf("%w: k+r+pad=%d, want 255", ErrBadParams, k+r+pad)
	}
	return &Codec{K: k, R: r, Pad: pad, gen: generatorPoly(r)}, nil
}

// generatorPoly builds g(x) = prod_{i=0}^{r-1} (x - alpha^(1+i)) with
// descending-power coefficients (gen[0]=1 is the leading, x^r, term).
func generatorPoly(r int) []byte {
	g := []byte{1}
	for i := 0; i < r; i++ {
		root := gf256.Pow(1 + i)
		g = polyMulDesc(g, []byte{1, root})
	}
	return g
}

func polyMulDesc(a, b []byte) []byte {
	out := make([]byte, len(a)+len(b)-1)
	for i, av := range a {
		if av == 0 {
			continue
		}
		for j, bv := range b {
			if bv == 0 {
				continue
			}
			out[i+j] ^= gf256.Mul(av, bv)
		}
	}
	return out
}

// Encode computes the r systematic parity bytes for k data bytes. data
// must have length c.K, parity must have length c.R; data is not
// modified.
func (c *Codec) Encode(data, parity []byte) error {
	if len(data) != c.K {
		return fmt.Errorf("rscodec: data len %d != k=%d", len(data), c.K)
	}
	if len(parity) != c.R {
		return fmt.Errorf("rscodec: parity len %d != r=%d", len(parity), c.R)
	}
	buf := make([]byte, c.K+c.R)
	copy(buf, data)
	for i := 0; i < c.K; i++ {
		coef := buf[i]
		if coef == 0 {
			continue
		}
		for j := 0; j <= c.R; j++ {
			buf[i+j] ^= gf256.Mul(c.gen[j], coef)
		}
	}
	copy(parity, buf[c.K:])
	return nil
}

// Decode corrects cw (length c.K+c.R) in place given up to ne known
// erasure positions (0-based indices into cw). It returns the number of
// corrected symbol positions, or a negative value if the codeword could
// not be corrected (2*errors+erasures > r, or the erasure list lied).
func (c *Codec) Decode(cw []byte, erasures []int, ne int) (int, error) {
	n := c.K + c.R
	if len(cw) != n {
		return -1, fmt.Errorf("rscodec: codeword len %d != k+r=%d", len(cw), n)
	}
	if ne > len(erasures) {
		ne = len(erasures)
	}
	if ne > c.R {
		return -1, nil
	}
	r := c.R

	syn := make([]byte, r)
	allZero := true
	for i := 0; i < r; i++ {
		x := gf256.Pow(1 + i)
		y := cw[0]
		for t := 1; t < n; t++ {
			y = gf256.Mul(y, x) ^ cw[t]
		}
		syn[i] = y
		if y != 0 {
			allZero = false
		}
	}
	if allZero {
		return 0, nil
	}

	// Erasure locator polynomial, ascending powers, lambda[0] is the
	// constant term.
	lambda := make([]byte, r+1)
	lambda[0] = 1
	deg := 0
	for _, e := range erasures[:ne] {
		xe := gf256.Pow(n - 1 - e)
		for t := deg + 1; t >= 1; t-- {
			lambda[t] ^= gf256.Mul(xe, lambda[t-1])
		}
		deg++
	}

	b := make([]byte, r+1)
	copy(b, lambda)
	L := ne

	for i := ne; i < r; i++ {
		delta := syn[i]
		for j := 1; j <= L; j++ {
			delta ^= gf256.Mul(lambda[j], syn[i-j])
		}
		if delta == 0 {
			shiftUp(b)
			continue
		}
		t := make([]byte, r+1)
		copy(t, lambda)
		shiftedB := make([]byte, r+1)
		copy(shiftedB, b)
		shiftUp(shiftedB)
		for idx := 0; idx <= r; idx++ {
			t[idx] ^= gf256.Mul(delta, shiftedB[idx])
		}
		step := i + 1
		if 2*L <= i+ne {
			newL := step + ne - L
			inv := gf256.Inv(delta)
			for idx := 0; idx <= r; idx++ {
				b[idx] = gf256.Mul(lambda[idx], inv)
			}
			L = newL
		} else {
			shiftUp(b)
		}
		copy(lambda, t)
	}

	deg = 0
	for t := r; t >= 0; t-- {
		if lambda[t] != 0 {
			deg = t
			break
		}
	}
	if deg == 0 {
		return -1, nil
	}

	// Chien search: find every position whose inverse locator is a root.
	positions := make([]int, 0, deg)
	for pos := 0; pos < n && len(positions) < deg; pos++ {
		xinv := gf256.Inv(gf256.Pow(n - 1 - pos))
		val := lambda[deg]
		for t := deg - 1; t >= 0; t-- {
			val = gf256.Mul(val, xinv) ^ lambda[t]
		}
		if val == 0 {
			positions = append(positions, pos)
		}
	}
	if len(positions) != deg {
		return -1, nil
	}

	// Error evaluator omega(x) = (syn(x) * lambda(x)) mod x^r.
	omega := make([]byte, r)
	for i := 0; i < r; i++ {
		var acc byte
		top := i
		if deg < top {
			top = deg
		}
		for j := 0; j <= top; j++ {
			if lambda[j] != 0 && syn[i-j] != 0 {
				acc ^= gf256.Mul(lambda[j], syn[i-j])
			}
		}
		omega[i] = acc
	}
	degOmega := 0
	for t := r - 1; t >= 0; t-- {
		if omega[t] != 0 {
			degOmega = t
			break
		}
	}

	// Forney: compute every error value before mutating cw, so a failure
	// (zero denominator) never leaves a partially corrected codeword.
	values := make([]byte, len(positions))
	for idx, pos := range positions {
		xinv := gf256.Inv(gf256.Pow(n - 1 - pos))

		num := omega[degOmega]
		for t := degOmega - 1; t >= 0; t-- {
			num = gf256.Mul(num, xinv) ^ omega[t]
		}

		var den byte
		var xp byte = 1
		for t := 0; t <= deg-1; t++ {
			if t%2 == 0 && lambda[t+1] != 0 {
				den ^= gf256.Mul(lambda[t+1], xp)
			}
			xp = gf256.Mul(xp, xinv)
		}
		if den == 0 {
			return -1, nil
		}
		values[idx] = gf256.Div(num, den)
	}

	for idx, pos := range positions {
		cw[pos] ^= values[idx]
	}

	return deg, nil
}

// shiftUp multiplies an ascending-power polynomial in place by x.
func shiftUp(p []byte) {
	for t := len(p) - 1; t >= 1; t-- {
		p[t] = p[t-1]
	}
	p[0] = 0
}
