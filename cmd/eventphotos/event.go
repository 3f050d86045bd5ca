package main

import (
	"fmt"
	"os"

	"eventphotos/internal/config"
	"eventphotos/internal/handlers"
	"eventphotos/internal/services"

	"github.com/spf13/cobra"
)

func newEventCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "event",
		Short: "Управление событиями",
	}
	cmd.AddCommand(newEventCreateCmd())
	return cmd
}

func newEventCreateCmd() *cobra.Command {
	var (
		owner string
		name  string
		qr    string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Создать событие и вывести ссылку присоединения",
		Example: `  eventphotos event create --owner anna --name "Свадьба"

  # Сохранить QR-код в файл
  eventphotos event create --owner anna --name "Свадьба" --qr wedding.png`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := config.Load()

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			user, err := st.db.GetUserByUsername(ctx, owner)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("пользователь '%s' не найден", owner)
			}

			event, err := services.CreateEvent(ctx, st.events, name, user.ID)
			if err != nil {
				return err
			}
			joinURL := cfg.BaseURL + "/e/" + event.Code
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", event.Code, joinURL)

			if qr != "" {
				png, err := services.JoinQRCode(joinURL, handlers.QRCodeSize)
				if err != nil {
					return err
				}
				if err := os.WriteFile(qr, png, 0644); err != nil {
					return fmt.Errorf("не удалось записать QR-код: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&owner, "owner", "", "Имя пользователя хоста")
	cmd.Flags().StringVar(&name, "name", "", "Название события")
	cmd.Flags().StringVar(&qr, "qr", "", "Файл для PNG с QR-кодом")
	cmd.MarkFlagRequired("owner")
	cmd.MarkFlagRequired("name")

	return cmd
}
