// Package di provides dependency injection for repository implementations.
package di

import (
	"fmt"

	"github.com/aristath/trendtrack/internal/clientdata"
	"github.com/aristath/trendtrack/internal/modules/settings"
	"github.com/rs/zerolog"
)

// InitializeRepositories creates all repositories and stores them in the container
func InitializeRepositories(container *Container, log zerolog.Logger) error {
	if container == nil {
		return fmt.Errorf("container cannot be nil")
	}

	container.SettingsRepo = settings.NewRepository(container.ConfigDB.Conn(), log)
	container.ClientDataRepo = clientdata.NewRepository(container.CacheDB.Conn())

	log.Debug().Msg("Repositories initialized")
	return nil
}
