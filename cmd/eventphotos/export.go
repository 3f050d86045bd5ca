package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"eventphotos/internal/config"
	"eventphotos/internal/export"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		code   string
		format string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Выгрузить список загруженных фото события",
		Example: `  eventphotos export --event ABC234 > photos.yaml
  eventphotos export --event ABC234 --format parquet --out photos.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if format != export.FormatYAML && format != export.FormatParquet {
				return fmt.Errorf("неизвестный формат %q", format)
			}
			ctx := cmd.Context()
			cfg := config.Load()

			st, err := openStores(ctx, cfg)
			if err != nil {
				return err
			}
			defer st.Close()

			event, err := st.events.GetEventByCode(ctx, code)
			if err != nil {
				return err
			}
			records, err := st.db.ListUploadedByEvent(ctx, event.Code)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if out != "" && out != "-" {
				f, err := os.Create(out)
				if err != nil {
					return fmt.Errorf("не удалось создать файл выгрузки: %w", err)
				}
				defer f.Close()
				w = f
			}
			if err := export.Write(w, format, export.NewManifest(*event, records, time.Now())); err != nil {
				return err
			}
			slog.Info("Выгрузка готова", "event", event.Code, "photos", len(records), "format", format)
			return nil
		},
	}

	cmd.Flags().StringVar(&code, "event", "", "Код события")
	cmd.Flags().StringVar(&format, "format", export.FormatYAML, "Формат: yaml или parquet")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Файл выгрузки; по умолчанию stdout")
	cmd.MarkFlagRequired("event")

	return cmd
}
