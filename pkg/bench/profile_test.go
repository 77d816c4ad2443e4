package bench_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ethpandaops/storebenchoor/pkg/bench"
)

func TestProfileByName(t *testing.T) {
	for _, name := range []string{"quick", "default", "full"} {
		p, err := bench.ProfileByName(name)
		require.NoError(t, err)
		assert.Equal(t, name, p.Name)
		assert.NotEmpty(t, p.Classes)
	}

	_, err := bench.ProfileByName("exhaustive")
	require.Error(t, err)
}

// Every size class in quick must be present with identical parameters in
// default, and default's classes in full.
func TestProfile_Containment(t *testing.T) {
	quick, err := bench.ProfileByName("quick")
	require.NoError(t, err)

	def, err := bench.ProfileByName("default")
	require.NoError(t, err)

	full, err := bench.ProfileByName("full")
	require.NoError(t, err)

	require.Less(t, len(quick.Classes), len(def.Classes))
	require.Less(t, len(def.Classes), len(full.Classes))

	for i, class := range quick.Classes {
		assert.Equal(t, class, def.Classes[i])
	}

	for i, class := range def.Classes {
		assert.Equal(t, class, full.Classes[i])
	}
}

// Profiles grow monotonically in size and cumulative byte volume.
func TestProfile_MonotonicVolume(t *testing.T) {
	volume := func(p *bench.Profile) int64 {
		var total int64
		for _, c := range p.Classes {
			total += c.TotalBytes()
		}

		return total
	}

	quick, _ := bench.ProfileByName("quick")
	def, _ := bench.ProfileByName("default")
	full, _ := bench.ProfileByName("full")

	assert.Less(t, volume(quick), volume(def))
	assert.Less(t, volume(def), volume(full))

	for _, p := range []*bench.Profile{quick, def, full} {
		for i := 1; i < len(p.Classes); i++ {
			assert.Greater(t, p.Classes[i].ByteSize, p.Classes[i-1].ByteSize)
		}
	}
}

func TestOperations_TraversalOrder(t *testing.T) {
	assert.Equal(t, []bench.Operation{
		bench.OpWrite, bench.OpWriteParallel, bench.OpRead, bench.OpReadParallel,
	}, bench.Operations)

	assert.True(t, bench.OpReadParallel.IsRead())
	assert.True(t, bench.OpReadParallel.IsParallel())
	assert.False(t, bench.OpWrite.IsParallel())
	assert.False(t, bench.OpWrite.IsRead())
}
