package engine

import (
	"testing"

	"github.com/docker/docker/api/types/filters"
	"github.com/stretchr/testify/assert"
)

func TestContainerListAllOptions_IncludesStoppedContainers(t *testing.T) {
	args := filters.NewArgs(filters.Arg("label", "deployment_id=abc"))
	opts := containerListAllOptions(args)

	assert.True(t, opts.All)
	assert.Equal(t, args, opts.Filters)
}
