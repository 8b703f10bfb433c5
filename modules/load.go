package modules

import (
	"github.com/chatforge/chatforge/modules/assistant"
	"github.com/chatforge/chatforge/pkg/application"
)

var BuiltInModules = []application.Module{
	assistant.NewModule(),
}

func Load(app application.Application, externalModules ...application.Module) error {
	for _, module := range externalModules {
		if err := module.Register(app); err != nil {
			return err
		}
	}
	return nil
}
