package models

import (
	"errors"
)

var (
	ErrNoOptions          = errors.New("no initialized model options")
	ErrTargetLenMismatch  = errors.New("target length does not match target rows")
	ErrNoTrainingMatrix   = errors.New("no training matrix")
	ErrNoTargetMatrix     = errors.New("no target matrix")
	ErrNoDesignMatrix     = errors.New("no design matrix for inference")
	ErrFeatureLenMismatch = errors.New("number of features does not match number of model coefficients")
	ErrUnderdetermined    = errors.New("fewer training samples than features without regularization")
	ErrUntrained          = errors.New("model has not been trained yet")
	ErrInvalidDropout     = errors.New("dropout rate must be in [0, 1)")
	ErrNegativePenalty    = errors.New("regularization must not be negative")
	ErrInvalidModel       = errors.New("invalid model")
)
