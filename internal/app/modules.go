package app

import (
	"github.com/vk/contentgrid/internal/registry"
	"github.com/vk/contentgrid/modules/passthrough"
	"github.com/vk/contentgrid/modules/texture"
	"github.com/vk/contentgrid/modules/xmlcontent"
)

// coreModules is the definitive list of component libraries compiled into
// the contentgrid binary.
var coreModules = []registry.Library{
	&texture.Module{},
	&xmlcontent.Module{},
	&passthrough.Module{},
}
