package engine

import (
	"github.com/docker/docker/api/types/container"
	"github.com/docker/docker/api/types/filters"
)

func containerListAllOptions(args filters.Args) container.ListOptions {
	return container.ListOptions{All: true, Filters: args}
}
