// floatsunrolled is inspired by the SIMD blog post
// https://github.com/camdencheek/simd_blog/blob/main/main.go
//
// Slices of any length are accepted. The body is processed in batches of UnrollBatch and the
// remainder element by element.
package floatsunrolled

import (
	"errors"
)

const UnrollBatch = 4

var (
	ErrSliceLengthMismatch       = errors.New("slices must have equal lengths")
	ErrOutputSliceLengthMismatch = errors.New("output slice length not the same as input")
)

func output(dst []float64, n int) []float64 {
	if dst == nil {
		return make([]float64, n)
	}
	if len(dst) != n {
		panic(ErrOutputSliceLengthMismatch)
	}
	return dst
}

// MulTo stores the element wise product of s and t in dst. dst may alias s or t.
func MulTo(dst, s, t []float64) []float64 {
	if len(s) != len(t) {
		panic(ErrSliceLengthMismatch)
	}
	dst = output(dst, len(s))

	body := len(s) - len(s)%UnrollBatch
	for i := 0; i < body; i += UnrollBatch {
		dstTmp := dst[i : i+UnrollBatch : i+UnrollBatch]
		sTmp := s[i : i+UnrollBatch : i+UnrollBatch]
		tTmp := t[i : i+UnrollBatch : i+UnrollBatch]
		dstTmp[0] = sTmp[0] * tTmp[0]
		dstTmp[1] = sTmp[1] * tTmp[1]
		dstTmp[2] = sTmp[2] * tTmp[2]
		dstTmp[3] = sTmp[3] * tTmp[3]
	}
	for i := body; i < len(s); i++ {
		dst[i] = s[i] * t[i]
	}
	return dst
}

// ScaleTo stores c * s in dst. dst may alias s.
func ScaleTo(dst []float64, c float64, s []float64) []float64 {
	dst = output(dst, len(s))

	body := len(s) - len(s)%UnrollBatch
	for i := 0; i < body; i += UnrollBatch {
		dstTmp := dst[i : i+UnrollBatch : i+UnrollBatch]
		sTmp := s[i : i+UnrollBatch : i+UnrollBatch]
		dstTmp[0] = c * sTmp[0]
		dstTmp[1] = c * sTmp[1]
		dstTmp[2] = c * sTmp[2]
		dstTmp[3] = c * sTmp[3]
	}
	for i := body; i < len(s); i++ {
		dst[i] = c * s[i]
	}
	return dst
}
