package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/alanwallace9/agencytoolkit/application/services"
	"github.com/alanwallace9/agencytoolkit/domain/core/entities"
	"github.com/alanwallace9/agencytoolkit/pkg/imaging"
)

func newRenderCmd() *cobra.Command {
	tpl := &entities.ImageTemplate{Name: "local"}
	var templatePath, name, out string

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Render a personalized image locally",
		RunE: func(cmd *cobra.Command, _ []string) error {
			templatePath = strings.TrimSpace(templatePath)
			out = strings.TrimSpace(out)
			if templatePath == "" {
				return errors.New("--template is required")
			}
			if out == "" {
				return errors.New("--out is required")
			}

			base, err := os.ReadFile(templatePath)
			if err != nil {
				return err
			}
			if len(base) > imaging.MaxUploadBytes {
				return fmt.Errorf("template must be at most %d MB", imaging.MaxUploadBytes>>20)
			}
			tpl.ApplyDefaults()
			if err := tpl.Validate(); err != nil {
				return err
			}

			data, err := services.RenderTemplate(tpl, base, name)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", out)
			return nil
		},
	}

	cmd.Flags().StringVar(&templatePath, "template", "", "Base image (png, jpeg or webp)")
	cmd.Flags().StringVar(&name, "name", "", "Text to draw")
	cmd.Flags().StringVar(&out, "out", "", "Output PNG")
	cmd.Flags().IntVar(&tpl.TextX, "x", 10, "Text x position in pixels")
	cmd.Flags().IntVar(&tpl.TextY, "y", 10, "Text y position in pixels")
	cmd.Flags().StringVar(&tpl.TextColor, "color", "#000000", "Text color")
	cmd.Flags().IntVar(&tpl.TextSize, "size", 2, "Text scale (1-8)")
	cmd.Flags().StringVar(&tpl.DefaultName, "default-name", "", "Text used when --name is empty")
	return cmd
}
