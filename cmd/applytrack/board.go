package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/amishk599/applytrack/internal/board"
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Open the interactive application board",
	Long:  "Shows applications as a kanban board with one column per status. Use < and > to move the selected application.",
	Args:  cobra.NoArgs,
	RunE:  runBoard,
}

func init() {
	rootCmd.AddCommand(boardCmd)
}

func runBoard(cmd *cobra.Command, args []string) error {
	logger := setupStderrLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	sqlStore, err := openStore(cfg)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	return board.Run(sqlStore)
}
