//go:build !windows && !linux && !freebsd && !netbsd && !openbsd

package fynewin

import "github.com/GriffinCanCode/screenlingo/internal/capture"

func applyPlatform(any, capture.Region) (nativeResult, error) {
	return nativeResult{}, errUnsupported
}
