package geom

// Fraction is an exact aspect ratio: numerator over denominator reduced
// to lowest terms, sign carried on the numerator. A zero denominator
// collapses to the zero fraction.
type Fraction struct {
	Num int
	Den int
}

// NewFraction reduces num/den via GCD and normalizes the sign onto the
// numerator.
func NewFraction(num, den int) Fraction {
	if den == 0 {
		return Fraction{}
	}
	if den < 0 {
		num, den = -num, -den
	}
	g := gcd(abs(num), den)
	if g > 0 {
		num /= g
		den /= g
	}
	return Fraction{Num: num, Den: den}
}

// Float returns num/den, or 0 for the zero fraction.
func (f Fraction) Float() float64 {
	if f.Den == 0 {
		return 0
	}
	return float64(f.Num) / float64(f.Den)
}

// IsZero reports whether the fraction carries no usable ratio.
func (f Fraction) IsZero() bool {
	return f.Den == 0 || f.Num == 0
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
