package plugin

import (
	"time"

	"github.com/mrjoshuak/exrpremiere/exr"
	"github.com/mrjoshuak/exrpremiere/exrmeta"
)

// CalculateTimeCode converts a frame count from zero into time code
// fields, counting base frames per second. With dropFrame, frame numbers
// 0 and 1 (0 to 3 at base 60) are skipped at the start of every minute
// not divisible by ten. Hours are not wrapped.
func CalculateTimeCode(frame, base int, dropFrame bool) (h, m, s, f int) {
	if base <= 0 || frame <= 0 {
		return 0, 0, 0, 0
	}
	dropped := 0
	if dropFrame {
		dropped = 2
		if base == 60 {
			dropped = 4
		}
	}
	perTenMinutes := base*60*10 - 9*dropped
	perHour := 6 * perTenMinutes

	h = frame / perHour
	frame %= perHour
	m = frame / perTenMinutes * 10
	frame %= perTenMinutes

	// The first minute of each ten is never dropped, so count the rest.
	for ; frame > 0; frame-- {
		if f < base-1 {
			f++
			continue
		}
		f = 0
		if s < 59 {
			s++
			continue
		}
		s = 0
		if m < 59 {
			m++
			if m%10 != 0 {
				f += dropped
			}
			continue
		}
		m = 0
		h++
	}
	return h, m, s, f
}

// FrameRateFor returns the time code base and drop frame flag for one of
// the frame rates that get a time code on export.
func FrameRateFor(fps float64) (base int, dropFrame, ok bool) {
	r, ok := exrmeta.LookupTimeCodeRate(fps)
	return r.Base, r.DropFrame, ok
}

// frameAt returns the number of the frame shown at start.
func frameAt(start time.Duration, rate exr.Rational) int {
	if rate.Denom == 0 {
		return 0
	}
	return int(int64(start) * int64(rate.Num) / (int64(time.Second) * int64(rate.Denom)))
}

// timeCodeFor builds the time code of the frame at start. Hours wrap at
// 24.
func timeCodeFor(start time.Duration, rate exrmeta.TimeCodeRate) (exr.TimeCode, error) {
	h, m, s, f := CalculateTimeCode(frameAt(start, rate.Rate), rate.Base, rate.DropFrame)
	return exr.NewTimeCode(h%24, m, s, f, rate.DropFrame)
}
