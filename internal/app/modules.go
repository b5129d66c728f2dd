package app

import (
	"github.com/vk/assetgrid/internal/registry"
	"github.com/vk/assetgrid/modules/concat"
	"github.com/vk/assetgrid/modules/imagemin"
	"github.com/vk/assetgrid/modules/minify"
	"github.com/vk/assetgrid/modules/rename"
	"github.com/vk/assetgrid/modules/stylesheet"
	"github.com/vk/assetgrid/modules/template"
)

// coreModules is the definitive list of all adapter modules that are
// compiled into the assetgrid binary.
var coreModules = []registry.Module{
	&template.Module{},
	&stylesheet.Module{},
	&concat.Module{},
	&minify.Module{},
	&rename.Module{},
	&imagemin.Module{},
}
