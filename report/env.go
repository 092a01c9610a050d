package report

import (
	"os"
	"runtime"
	"strconv"

	"github.com/google/uuid"
)

// Property is a name/value row of the overview accordion.
type Property struct {
	Name  string
	Value string
}

// EnvInfo describes the process that produced the report.
type EnvInfo struct {
	RunID    string
	Runtime  []Property
	Platform []Property
}

// CurrentEnv collects the runtime and platform of the current process and
// assigns the run a fresh ID.
func CurrentEnv() EnvInfo {
	hostname, err := os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	return EnvInfo{
		RunID: uuid.NewString(),
		Runtime: []Property{
			{Name: "Go Version", Value: runtime.Version()},
			{Name: "Compiler", Value: runtime.Compiler},
			{Name: "GOMAXPROCS", Value: strconv.Itoa(runtime.GOMAXPROCS(0))},
		},
		Platform: []Property{
			{Name: "Operating System", Value: runtime.GOOS},
			{Name: "Architecture", Value: runtime.GOARCH},
			{Name: "CPUs", Value: strconv.Itoa(runtime.NumCPU())},
			{Name: "Hostname", Value: hostname},
		},
	}
}
