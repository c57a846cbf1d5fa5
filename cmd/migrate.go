package cmd

import (
	"fmt"

	"medprofile/db"
	"medprofile/logger"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "迁移数据库表结构",
	Long:  `连接MySQL并创建或更新users表，不启动HTTP服务`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()

		gormDB, err := db.ConnectGormDB(cfg)
		if err != nil {
			return err
		}
		defer db.CloseGormDB(gormDB)

		if err := db.AutoMigrate(gormDB); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		logger.Info("Migration completed")
		fmt.Println("数据库迁移完成")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
