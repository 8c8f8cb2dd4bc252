package forecast

import (
	"testing"

	"github.com/aouyang1/go-seqcast/tensor"
	"github.com/pkg/profile"
)

var benchRecursiveRes *Result

func BenchmarkRecursiveEnsemble(b *testing.B) {
	last := tensor.Zeros(28, 7)
	model := incrementModel([]float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.7})
	opt := &Options{
		FuturePeriod: 12,
		InputLength:  28,
		Ensemble:     100,
	}

	var err error
	b.ResetTimer()
	defer profile.Start(profile.CPUProfile, profile.ProfilePath(".")).Stop()
	for b.Loop() {
		benchRecursiveRes, err = Recursive(model, last, opt)
		if err != nil {
			panic(err)
		}
	}
}
