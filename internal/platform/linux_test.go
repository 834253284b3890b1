//go:build linux

package platform

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseCPUList(t *testing.T) {
	assert.Equal(t, []int{0, 1, 2, 3}, parseCPUList("0-3"))
	assert.Equal(t, []int{0, 8, 10, 11}, parseCPUList("0,8,10-11"))
	assert.Equal(t, []int(nil), parseCPUList(""))
}

func TestNewTopologyDefaultsEmptyMap(t *testing.T) {
	topo := NewTopology(4, 1, 4096, 0, nil)
	assert.Equal(t, 4, topo.NumLogicalCPUs)
	assert.Empty(t, topo.CPUsInNode(0))
}

func TestRegionLenNil(t *testing.T) {
	var r *Region
	assert.Equal(t, 0, r.Len())
}
