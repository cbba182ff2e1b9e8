package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nmxmxh/siliconpath/engineconfig"
	"github.com/nmxmxh/siliconpath/engineerr"
	"github.com/nmxmxh/siliconpath/enginestatus"
)

func commit(t *testing.T, e *Engine, left, right string) {
	t.Helper()
	e.StageLeft([]byte(left))
	require.Equal(t, enginestatus.Ok, e.CommitLeft(uint32(len(left))))
	e.StageRight([]byte(right))
	require.Equal(t, enginestatus.Ok, e.CommitRight(uint32(len(right))))
}

func TestLifecycleProducesDiffEntries(t *testing.T) {
	e, err := New(engineconfig.Default())
	require.NoError(t, err)
	commit(t, e, `{"a":1,"b":2}`, `{"a":1,"b":3}`)

	a, status := e.Finalize()
	require.Equal(t, enginestatus.Ok, status)
	assert.Equal(t, uint32(1), a.EntryCount())
}

func TestFinalizeIsIdempotent(t *testing.T) {
	e, err := New(engineconfig.Default())
	require.NoError(t, err)
	commit(t, e, `{"a":1}`, `{"a":2}`)

	first, s1 := e.Finalize()
	second, s2 := e.Finalize()
	assert.Equal(t, enginestatus.Ok, s1)
	assert.Equal(t, enginestatus.Ok, s2)
	assert.Same(t, first, second)
}

func TestCommitAfterSealReturnsEngineSealed(t *testing.T) {
	e, err := New(engineconfig.Default())
	require.NoError(t, err)
	commit(t, e, `{}`, `{}`)
	e.Finalize()

	e.StageLeft([]byte(`{"x":1}`))
	assert.Equal(t, enginestatus.EngineSealed, e.CommitLeft(7))
}

func TestDestroyInvalidatesHandle(t *testing.T) {
	e, err := New(engineconfig.Default())
	require.NoError(t, err)
	assert.True(t, e.Valid())
	e.Destroy()
	assert.False(t, e.Valid())

	e.StageLeft([]byte(`{}`))
	assert.Equal(t, enginestatus.InvalidHandle, e.CommitLeft(2))
}

func TestDestroyIsSafeOnAlreadyDestroyedHandle(t *testing.T) {
	e, err := New(engineconfig.Default())
	require.NoError(t, err)
	assert.Equal(t, enginestatus.Ok, e.Destroy())
	assert.Equal(t, enginestatus.Ok, e.Destroy())
}

func TestClearResetsForReuse(t *testing.T) {
	e, err := New(engineconfig.Default())
	require.NoError(t, err)
	commit(t, e, `{"a":1}`, `{"a":2}`)
	e.Finalize()

	e.Clear()
	commit(t, e, `{"b":5}`, `{"b":5}`)
	a, status := e.Finalize()
	assert.Equal(t, enginestatus.Ok, status)
	assert.Equal(t, uint32(0), a.EntryCount())
}

func TestCommitOverMaxInputSizeFails(t *testing.T) {
	cfg := engineconfig.Default()
	cfg.MaxInputSize = 8
	e, err := New(cfg)
	require.NoError(t, err)

	big := make([]byte, 20)
	for i := range big {
		big[i] = '1'
	}
	e.StageLeft(big)
	status := e.CommitLeft(uint32(len(big)))
	assert.Equal(t, enginestatus.InputLimitExceeded, status)

	_, errLen := e.LastError()
	assert.Greater(t, errLen, uint32(0))
}

func TestObjectKeyLimitSurfacesAsStatus(t *testing.T) {
	cfg := engineconfig.Default()
	cfg.MaxObjectKeys = 1
	e, err := New(cfg)
	require.NoError(t, err)

	doc := []byte(`{"a":1,"b":2}`)
	e.StageLeft(doc)
	status := e.CommitLeft(uint32(len(doc)))
	assert.Equal(t, enginestatus.ObjectKeyLimitExceeded, status)
}

func TestMemoryReportIsNonEmpty(t *testing.T) {
	e, err := New(engineconfig.Default())
	require.NoError(t, err)
	assert.Contains(t, e.MemoryReport(), e.ID())
}

// A max_memory_bytes below arena.HeaderSize is wire-valid per
// engineconfig.FromBytes (it only rejects zero), but arena.New can't build a
// header-sized buffer under it. New must reject the config, not panic.
func TestNewRejectsMemoryBelowArenaHeaderSize(t *testing.T) {
	cfg := engineconfig.Default()
	cfg.MaxMemoryBytes = 1

	e, err := New(cfg)
	require.Error(t, err)
	assert.Nil(t, e)

	var ee *engineerr.EngineError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, engineerr.InvalidConfig, ee.Kind)
}
