package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/ilkoid/bellhop/internal/ui"
	"github.com/ilkoid/bellhop/pkg/utils"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to Bellhop in the terminal",
	RunE: func(cmd *cobra.Command, _ []string) error {
		c, err := loadComponents(cmd.Context())
		if err != nil {
			return err
		}
		defer c.Close()
		defer utils.Close()

		model := ui.InitialModel(c.Agent, ui.Options{
			HotelName:   c.HotelName,
			ModelName:   c.ChatModel,
			TurnTimeout: c.Config.Server.WriteTimeout,
			Recognizer:  c.Recognizer,
		})

		// Без AltScreen: текст лога можно выделять мышкой
		if _, err := tea.NewProgram(model).Run(); err != nil {
			return fmt.Errorf("chat UI: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
}
