package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/cloudmirror/sharesync/internal/models"
	"github.com/cloudmirror/sharesync/internal/shared"
)

// AccountsAdd registers a cloud storage account.
func (r *Runner) AccountsAdd(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	account := models.NewAccount(cmd.String("name"), cmd.String("credential"))
	account.PointerRoot = cmd.String("pointer-root")
	account.CloudRoot = cmd.String("cloud-root")

	if err := account.Validate(); err != nil {
		return err
	}

	if err := s.accounts.Create(account); err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}

	r.logger.Info("account registered", "id", account.ID(), "name", account.Name)
	return r.writePlain("%s\n", account.ID())
}

// AccountsList prints registered accounts. Credentials are never echoed.
func (r *Runner) AccountsList(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	accounts, err := s.accounts.List(nil)
	if err != nil {
		return fmt.Errorf("failed to list accounts: %w", err)
	}

	if cmd.Bool("json") {
		type row struct {
			ID          string `json:"id"`
			Name        string `json:"name"`
			PointerRoot string `json:"pointer_root,omitempty"`
		}
		rows := make([]row, 0, len(accounts))
		for _, account := range accounts {
			rows = append(rows, row{ID: account.ID(), Name: account.Name, PointerRoot: account.PointerRoot})
		}
		return r.writeJSON(rows, cmd.Bool("pretty"))
	}

	for _, account := range accounts {
		r.writePlain("%-36s  %s\n", account.ID(), account.Name)
	}
	return nil
}

// AccountsRemove soft-deletes an account.
func (r *Runner) AccountsRemove(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: account id", shared.ErrMissingArgument)
	}

	config := r.loadConfig(cmd)

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.accounts.Delete(id); err != nil {
		return fmt.Errorf("failed to remove account: %w", err)
	}

	r.logger.Info("account removed", "id", id)
	return nil
}
