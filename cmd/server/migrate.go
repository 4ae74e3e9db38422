package main

import (
	"guardianledger/internal/config"
	"guardianledger/internal/infrastructure/database"
	"guardianledger/internal/infrastructure/logging"

	"github.com/spf13/cobra"
)

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "创建或更新数据表",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}
			logger := logging.New(&cfg.Log)

			db, err := database.OpenMySQL(&cfg.Database)
			if err != nil {
				return err
			}
			defer database.Close(db)

			if err := database.Migrate(db); err != nil {
				return err
			}
			logger.Info("数据表迁移完成")
			return nil
		},
	}
}
