package command

import (
	"fmt"
	"os"

	"github.com/pixil98/go-errors"
	"github.com/pixil98/go-realm/internal/commands"
	"github.com/pixil98/go-realm/internal/game"
	"github.com/pixil98/go-realm/internal/player"
	"github.com/pixil98/go-realm/internal/storage"
)

type StorageConfig struct {
	Accounts AssetConfig[*player.Account]   `json:"accounts" envPrefix:"REALM_ACCOUNTS_"`
	Commands AssetConfig[*commands.Command] `json:"commands" envPrefix:"REALM_COMMANDS_"`
	World    AssetConfig[*game.AreaSpec]    `json:"world" envPrefix:"REALM_WORLD_"`
	// Journal is where dirty objects are appended after every event.
	Journal string `json:"journal" env:"REALM_JOURNAL_PATH"`
}

func (c *StorageConfig) validate() error {
	el := errors.NewErrorList()
	el.Add(c.Accounts.Validate("accounts"))
	el.Add(c.Commands.Validate("commands"))
	el.Add(c.World.Validate("world"))
	if c.Journal == "" {
		el.Add(fmt.Errorf("journal: path is required"))
	}
	return el.Err()
}

type AssetConfig[T storage.ValidatingSpec] struct {
	Path string `json:"path" env:"PATH"`
}

func (c *AssetConfig[T]) Validate(name string) error {
	if c.Path == "" {
		return fmt.Errorf("%s: path is required", name)
	}
	_, err := os.Stat(c.Path)
	if err != nil {
		return fmt.Errorf("%s: invalid path %q: %w", name, c.Path, err)
	}

	return nil
}

func (c *AssetConfig[T]) BuildFileStore() (*storage.FileStore[T], error) {
	return storage.NewFileStore[T](c.Path)
}
