// internal/engine/main_test.go
package engine

import (
	"testing"

	"go.uber.org/goleak"
)

// ants starts its default pool when the package is initialised; those workers
// live for the whole process and are not owned by the engine.
var antsDefaultPool = []goleak.Option{
	goleak.IgnoreAnyFunction("github.com/panjf2000/ants/v2.(*poolCommon).purgeStaleWorkers"),
	goleak.IgnoreAnyFunction("github.com/panjf2000/ants/v2.(*poolCommon).ticktock"),
}

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m, antsDefaultPool...)
}
