package bootkit

import (
	"time"
)

type bootkitOptions struct {
	startTimeout time.Duration
	stopTimeout  time.Duration
}

type bootkitApplyOptions struct {
	bootkit *bootkitOptions
}

type Option interface {
	apply(*bootkitApplyOptions)
}

type optionFunc func(*bootkitApplyOptions)

func (f optionFunc) apply(o *bootkitApplyOptions) {
	f(o)
}

func StartTimeout(d time.Duration) Option {
	return optionFunc(func(o *bootkitApplyOptions) {
		o.bootkit.startTimeout = d
	})
}

func StopTimeout(d time.Duration) Option {
	return optionFunc(func(o *bootkitApplyOptions) {
		o.bootkit.stopTimeout = d
	})
}
