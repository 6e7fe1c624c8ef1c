package main

import (
	"context"
	"log"

	"github.com/spf13/cobra"

	"github.com/ilkoid/bellhop/internal/app"
	"github.com/ilkoid/bellhop/pkg/config"
	"github.com/ilkoid/bellhop/pkg/utils"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "bellhop",
	Short:         "AI revenue assistant for hotels",
	Long:          "Bellhop answers questions about rates, occupancy and pricing rules, and changes them through typed tools called by a language model.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default: $BELLHOP_CONFIG or ./config.yaml)")
}

// loadConfig загружает конфигурацию и открывает лог-файл.
func loadConfig() (*config.AppConfig, error) {
	cfg, cfgPath, err := app.InitializeConfig(&app.DefaultConfigPathFinder{ConfigFlag: configPath})
	if err != nil {
		return nil, err
	}
	if err := utils.InitLogger(cfg.App.LogDir, utils.ParseLevel(cfg.App.LogLevel)); err != nil {
		log.Printf("Warning: failed to init logger: %v", err)
	}
	utils.Info("Config loaded", "path", cfgPath, "default_model", cfg.Models.DefaultChat)
	return cfg, nil
}

// loadComponents загружает конфигурацию и собирает приложение.
func loadComponents(ctx context.Context) (*app.Components, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	c, err := app.Initialize(ctx, cfg)
	if err != nil {
		utils.Error("Initialization failed", "error", err)
		return nil, err
	}
	return c, nil
}
