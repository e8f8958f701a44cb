package planner

import (
	"testing"

	"gardencore/testutil"
)

func TestPlannerStaysPure(t *testing.T) {
	effects := testutil.Exact("os", "io/ioutil", "net", "net/http", "database/sql", "time", "math/rand", "math/rand/v2", "crypto/rand")
	testutil.AssertNoDirectImports(t, ".", testutil.Any(effects, testutil.Internal),
		"the design engine must remain a pure function of its inputs")

	otherInternal := func(path string) bool {
		return testutil.Internal(path) && !testutil.Prefix("gardencore/internal/planner")(path)
	}
	testutil.AssertNoTransitiveDependency(t, ".", testutil.Any(otherInternal, testutil.Transport, testutil.Storage),
		"the design engine must not reach wiring, transport or storage")
}
