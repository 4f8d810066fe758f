package parallel

import (
	"runtime"
	"sync/atomic"
	"testing"
)

func TestWorkerPool_Create(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	if pool.Workers() != 4 {
		t.Errorf("Workers() = %d, want 4", pool.Workers())
	}
	if !pool.IsRunning() {
		t.Error("pool should be running after creation")
	}
}

func TestWorkerPool_CreateDefault(t *testing.T) {
	for _, n := range []int{0, -3} {
		pool := NewWorkerPool(n)
		if got, want := pool.Workers(), runtime.GOMAXPROCS(0); got != want {
			t.Errorf("NewWorkerPool(%d).Workers() = %d, want %d", n, got, want)
		}
		pool.Close()
	}
}

func TestWorkerPool_ExecuteAll(t *testing.T) {
	pool := NewWorkerPool(3)
	defer pool.Close()

	var counter atomic.Int64
	tasks := make([]func(), 100)
	for i := range tasks {
		tasks[i] = func() { counter.Add(int64(i)) }
	}
	pool.ExecuteAll(tasks)

	if got := counter.Load(); got != 4950 {
		t.Errorf("sum = %d, want 4950", got)
	}
}

func TestWorkerPool_ExecuteAllAfterClose(t *testing.T) {
	pool := NewWorkerPool(2)
	pool.Close()
	pool.Close()
	if pool.IsRunning() {
		t.Error("pool should not be running after Close()")
	}

	var counter atomic.Int64
	pool.ExecuteAll([]func(){
		func() { counter.Add(1) },
		func() { counter.Add(1) },
	})
	if got := counter.Load(); got != 2 {
		t.Errorf("tasks run after Close() = %d, want 2", got)
	}
}

func TestBands(t *testing.T) {
	tests := []struct {
		height, n int
		want      []Band
	}{
		{height: 0, n: 4, want: nil},
		{height: 3, n: 8, want: []Band{{0, 1}, {1, 2}, {2, 3}}},
		{height: 10, n: 3, want: []Band{{0, 4}, {4, 7}, {7, 10}}},
		{height: 5, n: 0, want: []Band{{0, 5}}},
	}
	for _, tt := range tests {
		got := Bands(tt.height, tt.n)
		if len(got) != len(tt.want) {
			t.Errorf("Bands(%d, %d) = %v, want %v", tt.height, tt.n, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("Bands(%d, %d)[%d] = %v, want %v", tt.height, tt.n, i, got[i], tt.want[i])
			}
		}
	}
}

func TestForEachBand(t *testing.T) {
	pool := NewWorkerPool(4)
	defer pool.Close()

	const height = 137
	var rows [height]atomic.Int32
	pool.ForEachBand(height, func(b Band) {
		for y := b.Y0; y < b.Y1; y++ {
			rows[y].Add(1)
		}
	})
	for y := range rows {
		if got := rows[y].Load(); got != 1 {
			t.Fatalf("row %d visited %d times, want 1", y, got)
		}
	}
}
