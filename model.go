package seqcast

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/aouyang1/go-seqcast/models"
	"github.com/aouyang1/go-seqcast/scale"
)

var ErrNoOptionsInModel = errors.New("no options set in model")

// Model is a serializeable format of an experiment storing the options, the scaler state and the
// window regression weights
type Model struct {
	Options    *Options           `json:"options"`
	Scaler     scale.Model        `json:"scaler"`
	Regression models.WindowModel `json:"regression"`
}

func indentExpand(indent string, growth int) string {
	out := make([]byte, 0, len(indent)*growth)
	for i := 0; i < growth; i++ {
		out = append(out, indent...)
	}
	return string(out)
}

// TablePrint writes a human readable summary of the model
func (m Model) TablePrint(w io.Writer, prefix, indent string) error {
	if m.Options == nil {
		return ErrNoOptionsInModel
	}
	opt := m.Options
	if _, err := fmt.Fprintf(w, "%s%sExperiment: %s\n", prefix, indentExpand(indent, 0), opt.Name); err != nil {
		return err
	}
	if opt.Prepare != nil {
		if _, err := fmt.Fprintf(w, "%s%sTest Date: %s\n", prefix, indentExpand(indent, 1), opt.Prepare.TestDate.Format(time.DateOnly)); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(w, "%s%sInput Length: %d, Future Period: %d, Ensemble: %d\n",
		prefix, indentExpand(indent, 1),
		opt.InputLength, opt.FuturePeriod, opt.Ensemble); err != nil {
		return err
	}
	if mo := m.Regression.Options; mo != nil {
		if _, err := fmt.Fprintf(w, "%s%sRegularization: %.3g, Dropout: %.2f\n",
			prefix, indentExpand(indent, 1),
			mo.Regularization, mo.DropoutRate); err != nil {
			return err
		}
	}

	if _, err := fmt.Fprintf(w, "%s%sScaler:\n", prefix, indentExpand(indent, 1)); err != nil {
		return err
	}
	var predictors []string
	if opt.Prepare != nil {
		predictors = opt.Prepare.Predictors
	}
	tbl := tabwriter.NewWriter(w, 0, 0, 1, ' ', tabwriter.AlignRight)
	if _, err := fmt.Fprintf(tbl, "%s%sFeature\tMean\tScale\t\n", prefix, indentExpand(indent, 2)); err != nil {
		return err
	}
	for i := range m.Scaler.Mean {
		name := fmt.Sprintf("%d", i)
		if i < len(predictors) {
			name = predictors[i]
		}
		if _, err := fmt.Fprintf(tbl, "%s%s%s\t%.3f\t%.3f\t\n",
			prefix, indentExpand(indent, 2),
			name, m.Scaler.Mean[i], m.Scaler.Scale[i]); err != nil {
			return err
		}
	}
	return tbl.Flush()
}
