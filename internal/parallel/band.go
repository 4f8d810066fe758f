package parallel

// Band is the half-open row range [Y0, Y1).
type Band struct {
	Y0, Y1 int
}

// Rows returns the number of rows in b.
func (b Band) Rows() int {
	return b.Y1 - b.Y0
}

// Bands splits height rows into at most n bands of nearly equal size that
// cover every row exactly once. It returns nil for a non-positive height.
func Bands(height, n int) []Band {
	if height <= 0 {
		return nil
	}
	n = max(min(n, height), 1)
	bands := make([]Band, n)
	y := 0
	for i := range bands {
		rows := height / n
		if i < height%n {
			rows++
		}
		bands[i] = Band{Y0: y, Y1: y + rows}
		y += rows
	}
	return bands
}

// ForEachBand calls fn for every band of height rows on the pool and waits
// for all calls to return. The rows are split into a few bands per worker.
func (p *WorkerPool) ForEachBand(height int, fn func(Band)) {
	bands := Bands(height, p.Workers()*4)
	tasks := make([]func(), len(bands))
	for i, b := range bands {
		tasks[i] = func() { fn(b) }
	}
	p.ExecuteAll(tasks)
}
