package sensors

import "sync"

// SimThermal is an in-memory thermal camera for bench runs and tests.
// The frame starts at a uniform ambient temperature.
type SimThermal struct {
	mu    sync.Mutex
	frame [][]float64
	err   error
}

// NewSimThermal builds an 8x8 frame at the given ambient temperature.
func NewSimThermal(ambientC float64) *SimThermal {
	frame := make([][]float64, 8)
	for i := range frame {
		frame[i] = make([]float64, 8)
		for j := range frame[i] {
			frame[i][j] = ambientC
		}
	}
	return &SimThermal{frame: frame}
}

// Pixels returns a copy of the current frame.
func (s *SimThermal) Pixels() ([][]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float64, len(s.frame))
	for i, row := range s.frame {
		out[i] = append([]float64(nil), row...)
	}
	return out, nil
}

// SetCell sets one cell's temperature.
func (s *SimThermal) SetCell(row, col int, tempC float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.frame[row][col] = tempC
}

// SetAll sets every cell to the given temperature.
func (s *SimThermal) SetAll(tempC float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.frame {
		for j := range s.frame[i] {
			s.frame[i][j] = tempC
		}
	}
}

// Fail makes subsequent reads return the given error (nil to recover).
func (s *SimThermal) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

// SimRange is an in-memory range finder for bench runs and tests.
type SimRange struct {
	mu       sync.Mutex
	ready    bool
	distance float64
	clears   int
	err      error
}

// NewSimRange builds a range finder with no sample pending.
func NewSimRange() *SimRange {
	return &SimRange{}
}

// Present arms a fresh sample at the given distance.
func (s *SimRange) Present(distanceMM float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.distance = distanceMM
}

// DataReady reports whether a sample is armed.
func (s *SimRange) DataReady() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ready, s.err
}

// DistanceMM returns the armed sample.
func (s *SimRange) DistanceMM() (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.distance, s.err
}

// ClearInterrupt disarms the fresh-sample flag.
func (s *SimRange) ClearInterrupt() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	s.clears++
	return s.err
}

// Clears returns how many times the flag was cleared.
func (s *SimRange) Clears() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.clears
}

// Fail makes subsequent calls return the given error (nil to recover).
func (s *SimRange) Fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}
