package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "예측 원장 스키마 생성",
	Long: `forecasts 테이블과 인덱스를 생성합니다 (이미 있으면 건너뜀).

Example:
  go run ./cmd/pvp migrate
  DB_DRIVER=sqlite SQLITE_PATH=pvp.db go run ./cmd/pvp migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	d, err := buildDeps(cmd.Context(), cfg, false)
	if err != nil {
		return err
	}
	defer d.Close()

	if err := d.ledger.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("❌ migrate failed: %w", err)
	}

	fmt.Printf("✅ Ledger schema ready (driver: %s)\n", cfg.Database.Driver)
	return nil
}
