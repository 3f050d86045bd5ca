package main

import (
	"os"

	"eventphotos/internal/config"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd собирает корневую команду со всеми подкомандами.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eventphotos",
		Short: "Сервис фото с мероприятий: съёмка, просмотр, загрузка и презентация",
		Long: `eventphotos - сервис, в котором гости события снимают фото с телефона,
просматривают снимки жестом и отправляют их в общее хранилище,
а экраны на площадке показывают загруженные фото.

Настройки читаются из переменных окружения и файла .env.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// .env необязателен
			_ = godotenv.Load()
			config.SetupLogger(os.Getenv("LOG_LEVEL"))
		},
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newEventCmd())
	cmd.AddCommand(newExportCmd())

	return cmd
}
