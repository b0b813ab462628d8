package distobj_test

import (
	"sync"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/weilewei/dist-object/pkg/distobj/core"
	"github.com/weilewei/dist-object/pkg/distobj/definition"
	"github.com/weilewei/dist-object/pkg/distobj/types"
)

func init() {
	types.MustRegisterType[int]("test/int")
	types.MustRegisterType[float64]("test/double")
	types.MustRegisterType[[]int]("test/vec_int")
	types.MustRegisterType[[]float64]("test/vec_double")
	types.MustRegisterType[[][]int]("test/mat_int")
	types.MustRegisterType[[][]float64]("test/mat_double")
}

type testInvoker struct {
	group *sync.WaitGroup
}

func (t *testInvoker) Spawn(f func()) {
	t.group.Add(1)
	go func() {
		defer t.group.Done()
		f()
	}()
}

func (t *testInvoker) Join() {
	t.group.Wait()
}

func newTestInvoker() *testInvoker {
	return &testInvoker{group: &sync.WaitGroup{}}
}

func newFabric(t *testing.T, localities int) *core.Fabric {
	t.Helper()
	logger := definition.NewDefaultLogger()
	logger.ToggleDebug(false)
	fabric, err := core.NewFabric(core.FabricConfig{
		Localities: localities,
		Logger:     logger,
	})
	if err != nil {
		t.Fatalf("failed creating fabric. %v", err)
	}
	t.Cleanup(func() {
		_ = fabric.Close()
	})
	return fabric
}

// runCluster drives fn once per locality, concurrently, the way the
// same program would run on every node. Fails the test on the first
// locality error.
func runCluster(t *testing.T, fabric *core.Fabric, fn func(sub types.Substrate) error) {
	t.Helper()
	var group errgroup.Group
	for i := 0; i < fabric.Size(); i++ {
		sub := fabric.Locality(types.LocalityID(i))
		group.Go(func() error {
			return fn(sub)
		})
	}
	if err := group.Wait(); err != nil {
		t.Fatalf("cluster run failed. %v", err)
	}
}

func fillInt(value, length int) []int {
	out := make([]int, length)
	for i := range out {
		out[i] = value
	}
	return out
}

func fillMatrix(value float64, rows, cols int) [][]float64 {
	out := make([][]float64, rows)
	for i := range out {
		row := make([]float64, cols)
		for j := range row {
			row[j] = value
		}
		out[i] = row
	}
	return out
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func waitThisOrTimeout(cb func(), duration time.Duration) bool {
	done := make(chan bool)
	go func() {
		cb()
		done <- true
	}()
	select {
	case <-done:
		return true
	case <-time.After(duration):
		return false
	}
}
