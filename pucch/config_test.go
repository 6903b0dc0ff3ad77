package pucch

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func fixedResolver(resources map[ResourceID]Resource) ResourceResolver {
	return func(id ResourceID) (Resource, bool) {
		r, ok := resources[id]
		return r, ok
	}
}

func TestNewCellConfiguration(t *testing.T) {
	bwp := BWPRef{CRBStart: 0, CRBCount: 52}

	t.Run("valid", func(t *testing.T) {
		cfg, err := NewCellConfiguration(1, bwp, 11, 0, 64, nil)
		require.NoError(t, err)
		require.EqualValues(t, 11, cfg.PUCCHResourceCommon)
	})

	t.Run("rejects out of range pucch_resource_common", func(t *testing.T) {
		_, err := NewCellConfiguration(1, bwp, 16, 0, 64, nil)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects zero grant capacity", func(t *testing.T) {
		_, err := NewCellConfiguration(1, bwp, 0, 0, 0, nil)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}

func TestNewUECellConfiguration(t *testing.T) {
	resources := map[ResourceID]Resource{
		0: {ID: 0, Format: Format1},
		1: {ID: 1, Format: Format1},
		2: {ID: 2, Format: Format2},
		3: {ID: 3, Format: Format0},
	}
	resolve := fixedResolver(resources)

	t.Run("valid", func(t *testing.T) {
		sr := ResourceID(1)
		cfg, err := NewUECellConfiguration(10, []ResourceID{0}, nil, &sr, nil, 0, false, nil, PUSCHDedicatedConfig{}, resolve)
		require.NoError(t, err)
		require.True(t, cfg.HasSR)
	})

	t.Run("rejects empty set 0", func(t *testing.T) {
		_, err := NewUECellConfiguration(10, nil, nil, nil, nil, 0, false, nil, PUSCHDedicatedConfig{}, resolve)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects duplicate resource ids across sets", func(t *testing.T) {
		_, err := NewUECellConfiguration(10, []ResourceID{0}, []ResourceID{0}, nil, nil, 0, false, nil, PUSCHDedicatedConfig{}, resolve)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects unknown resource id", func(t *testing.T) {
		_, err := NewUECellConfiguration(10, []ResourceID{99}, nil, nil, nil, 0, false, nil, PUSCHDedicatedConfig{}, resolve)
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects format-0 HARQ with format-3/4 SR", func(t *testing.T) {
		withFormat4SR := map[ResourceID]Resource{
			0: {ID: 0, Format: Format0},
			1: {ID: 1, Format: Format4},
		}
		sr := ResourceID(1)
		_, err := NewUECellConfiguration(10, []ResourceID{0}, nil, &sr, nil, 0, false, nil, PUSCHDedicatedConfig{}, fixedResolver(withFormat4SR))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("rejects CSI+SR on a format-0 resource", func(t *testing.T) {
		withFormat0SR := map[ResourceID]Resource{
			0: {ID: 0, Format: Format1},
			1: {ID: 1, Format: Format0},
			2: {ID: 2, Format: Format2},
		}
		sr := ResourceID(1)
		csi := ResourceID(2)
		_, err := NewUECellConfiguration(10, []ResourceID{0}, nil, &sr, &csi, 0, false, nil, PUSCHDedicatedConfig{}, fixedResolver(withFormat0SR))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})
}
