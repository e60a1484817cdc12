package stats

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlagsForTypeDag(t *testing.T) {
	f := FlagsForType("dag", DefaultGlobals(), nil)
	assert.True(t, f.FinishChain)
	assert.True(t, f.Blocking)
	assert.False(t, f.ReportStats)
}

func TestFlagsForTypeProfDag(t *testing.T) {
	f := FlagsForType("prof_dag", DefaultGlobals(), nil)
	assert.True(t, f.ReportStats, "prof_dag preset should enable ReportStats")
}

func TestFlagsForTypeAsyncDag(t *testing.T) {
	f := FlagsForType("async_dag", DefaultGlobals(), nil)
	assert.False(t, f.FinishChain)
	assert.True(t, f.AlwaysScheduleChild)
}

func TestFlagsForTypeDefault(t *testing.T) {
	f := FlagsForType("simple", DefaultGlobals(), nil)
	assert.False(t, f.Blocking)
	assert.False(t, f.ReportStats)
	assert.False(t, f.FinishChain)
}

func TestEnableProfilingOverridesPreset(t *testing.T) {
	off := false
	f := FlagsForType("prof_dag", DefaultGlobals(), &off)
	assert.False(t, f.ReportStats, "explicit enableProfiling=false should override the prof_dag preset")

	on := true
	f2 := FlagsForType("dag", DefaultGlobals(), &on)
	assert.True(t, f2.ReportStats, "explicit enableProfiling=true should override the dag preset")
}
