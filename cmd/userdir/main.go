// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Command userdir serves the user search endpoint mentionserve queries for
// @-mention candidates, and manages the users behind it.
//
//	userdir add "Bob Smith"
//	userdir list
//	userdir serve -listen :8089
package main

import (
	"os"
	"path/filepath"

	"github.com/bastiangx/mentionserve/internal/logger"
	"github.com/bastiangx/mentionserve/internal/utils"
	"github.com/bastiangx/mentionserve/pkg/config"
	"github.com/bastiangx/mentionserve/pkg/directory"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
)

var (
	configFile string
	dbPath     string
	debugMode  bool
)

// rootCmd is the userdir entry point
var rootCmd = &cobra.Command{
	Use:   "userdir",
	Short: "User directory behind the mention search endpoint",
	Long: `userdir stores forum users in SQLite and answers prefix searches over HTTP
in the format mentionserve expects:

  GET /user/tagsearch?q=bo&limit=30 -> [{"id":1,"name":"Bob"}]

Available subcommands:
  serve  - Serve the search endpoint
  add    - Add users
  remove - Remove a user by id
  list   - List users`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Setup(debugMode, false)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config.toml")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path, overrides [directory] db_path")
	rootCmd.PersistentFlags().BoolVarP(&debugMode, "debug", "d", false, "Toggle debug mode")

	rootCmd.AddCommand(serveCmd, addCmd, removeCmd, listCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig resolves config and the database path from flags. A relative
// db_path from the config lands next to the config file that was loaded; the
// --db flag is used as given.
func loadConfig() (*config.Config, string, error) {
	cfg, cfgPath, err := config.LoadConfigWithPriority(configFile)
	if err != nil {
		return nil, "", err
	}
	if dbPath != "" {
		return cfg, dbPath, nil
	}
	resolver, err := utils.NewPathResolver()
	if err != nil {
		log.Warnf("Path resolver unavailable, using %s as is: %v", cfg.Directory.DBPath, err)
		return cfg, cfg.Directory.DBPath, nil
	}
	baseDir := ""
	if cfgPath != "" {
		baseDir = filepath.Dir(cfgPath)
	}
	return cfg, resolver.ResolveDataPath(cfg.Directory.DBPath, baseDir), nil
}

func openStore() (*config.Config, *directory.Store, error) {
	cfg, path, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	log.Debugf("Using database at: %s", path)
	store, err := directory.OpenStore(path)
	if err != nil {
		return nil, nil, err
	}
	return cfg, store, nil
}
