package valor

// Window keeps the most recent n power readings for display statistics.
type Window struct {
	size   int
	values []float64
}

func NewWindow(size int) *Window {
	if size <= 0 {
		size = 1
	}
	return &Window{size: size, values: make([]float64, 0, size)}
}

// Push appends a value, evicting the oldest once the window is full.
func (w *Window) Push(v float64) {
	if len(w.values) == w.size {
		copy(w.values, w.values[1:])
		w.values = w.values[:w.size-1]
	}
	w.values = append(w.values, v)
}

func (w *Window) Count() int { return len(w.values) }

// Full reports whether the window holds size values, i.e. one complete
// window cycle has elapsed.
func (w *Window) Full() bool { return len(w.values) == w.size }

func (w *Window) Average() float64 {
	if len(w.values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range w.values {
		sum += v
	}
	return sum / float64(len(w.values))
}

func (w *Window) Min() float64 {
	if len(w.values) == 0 {
		return 0
	}
	min := w.values[0]
	for _, v := range w.values[1:] {
		if v < min {
			min = v
		}
	}
	return min
}

func (w *Window) Max() float64 {
	if len(w.values) == 0 {
		return 0
	}
	max := w.values[0]
	for _, v := range w.values[1:] {
		if v > max {
			max = v
		}
	}
	return max
}
