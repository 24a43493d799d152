// Package sensors turns raw thermal and range readings into the two
// boolean queries the behavior machine consumes. Device drivers sit
// behind small interfaces; the package never caches a reading, so
// every query is a fresh poll.
package sensors

import (
	"github.com/koster51/heat-seaking-roomba/internal/log"
)

// ThermalCamera provides one frame of cell temperatures in Celsius.
// The deployed camera is an 8x8 grid, but any shape works.
type ThermalCamera interface {
	Pixels() ([][]float64, error)
}

// RangeFinder provides time-of-flight distance samples gated by a
// fresh-sample flag.
type RangeFinder interface {
	// DataReady reports whether a fresh sample is available.
	DataReady() (bool, error)
	// DistanceMM returns the latest sample in millimeters.
	// 0 means no valid measurement.
	DistanceMM() (float64, error)
	// ClearInterrupt resets the fresh-sample flag so the next sample
	// can be flagged.
	ClearInterrupt() error
}

// Reader answers the two detection queries against configured
// thresholds. Read errors degrade to "nothing detected" with a
// warning; a flaky sensor must never block or stop the robot.
type Reader struct {
	cam        ThermalCamera
	rf         RangeFinder
	humanTempC float64
	obstacleMM float64
}

// NewReader builds a Reader over the given devices and thresholds.
func NewReader(cam ThermalCamera, rf RangeFinder, humanTempC, obstacleMM float64) *Reader {
	return &Reader{
		cam:        cam,
		rf:         rf,
		humanTempC: humanTempC,
		obstacleMM: obstacleMM,
	}
}

// HumanPresent scans the full thermal frame and reports true if any
// single cell reads at or above the human threshold.
func (r *Reader) HumanPresent() bool {
	frame, err := r.cam.Pixels()
	if err != nil {
		log.Warn("thermal read failed", "error", err)
		return false
	}
	for _, row := range frame {
		for _, temp := range row {
			if temp >= r.humanTempC {
				return true
			}
		}
	}
	return false
}

// ObstacleNear reports true if the range finder has a fresh sample at
// or below the obstacle threshold. Without a fresh sample it returns
// false immediately. The fresh-sample flag is cleared after every
// ready read, whatever the sample's value, so a stale flag can't mask
// the next measurement.
func (r *Reader) ObstacleNear() bool {
	ready, err := r.rf.DataReady()
	if err != nil {
		log.Warn("range ready check failed", "error", err)
		return false
	}
	if !ready {
		return false
	}

	dist, err := r.rf.DistanceMM()
	if cerr := r.rf.ClearInterrupt(); cerr != nil {
		log.Warn("range interrupt clear failed", "error", cerr)
	}
	if err != nil {
		log.Warn("range read failed", "error", err)
		return false
	}

	return dist > 0 && dist <= r.obstacleMM
}
