// Copyright 2025 The WordServe Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

/*
Package main implements the mention autocomplete server and CLI [DBG] application.

Note: This is a BETA release. APIs and functionality may rapidly change.

MentionServe detects @-mentions and :emoji: shortcodes in the text before an
editor's caret, resolves candidates through per-editor caches backed by the
forum's user search, and formats the committed choice for insertion. It can
operate as a MessagePack IPC server for editors, or as a CLI application for
testing and debugging.

# Usage

Start the server with default settings:

	mentionserve

Point it at a forum and enable debug logs:

	mentionserve -url https://forum.example -d

Run in CLI mode for interactive testing:

	mentionserve -c

# Configuration

Runtime configuration lives in a TOML file, created with defaults when it
does not exist:

	[mention]
	min_chars = 2
	max_items = 5
	server_limit = 30
	should_start_with_space = true

	[lookup]
	base_url = "http://localhost:8089"

With reload_config enabled the file is watched and new sessions pick up the
changes. See pkg/config for every key.

# IPC Protocol

The server communicates via MessagePack over stdin/stdout; see pkg/server.

	{"id": "1", "action": "attach"}
	{"id": "2", "action": "suggest", "sid": "...", "trigger": "@", "q": "bo"}

# Command Line Flags

	-config string
	    Path to config.toml (default: platform config dir)
	-url string
	    User search base url, overrides [lookup] base_url
	-d  Enable debug mode with detailed logging
	-json
	    Log as JSON
	-c  Run in CLI mode instead of server mode
	-rebuild-config
	    Rewrite config.toml (the -config path, or the default) with defaults and exit
	-version
	    Show current version
*/
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/bastiangx/mentionserve/internal/cli"
	"github.com/bastiangx/mentionserve/internal/logger"
	"github.com/bastiangx/mentionserve/internal/utils"
	"github.com/bastiangx/mentionserve/pkg/config"
	"github.com/bastiangx/mentionserve/pkg/emoji"
	"github.com/bastiangx/mentionserve/pkg/lookup"
	"github.com/bastiangx/mentionserve/pkg/mention"
	"github.com/bastiangx/mentionserve/pkg/server"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
)

const (
	Version = "0.1.0-beta"
	AppName = "mentionserve"
	gh      = "https://github.com/bastiangx/mentionserve"
)

// sigHandler is a simple handler for OS signals to exit normally.
func sigHandler() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		fmt.Fprintf(os.Stderr, "\nExiting...\n")
		os.Exit(0)
	}()
}

// main only manages the flow between config, server and CLI.
func main() {
	sigHandler()

	showVersion := flag.Bool("version", false, "Show current version")
	configFile := flag.String("config", "", "Path to config.toml")
	baseURL := flag.String("url", "", "User search base url, overrides the config")
	debugMode := flag.Bool("d", false, "Toggle debug mode")
	jsonLogs := flag.Bool("json", false, "Log as JSON")
	cliMode := flag.Bool("c", false, "Run CLI -- useful for testing and debugging")
	rebuildConfig := flag.Bool("rebuild-config", false, "Rewrite config.toml with default values and exit")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger.Setup(*debugMode, *jsonLogs)

	pathResolver, err := utils.NewPathResolver()
	if err != nil {
		log.Fatalf("Failed to initialize path resolver: %v", err)
	}
	if *debugMode {
		for k, v := range pathResolver.GetRuntimeInfo() {
			log.Debug("runtime", k, v)
		}
	}

	if *rebuildConfig {
		path, err := config.RebuildConfigFile(*configFile)
		if err != nil {
			log.Fatalf("Failed to rebuild config: %v", err)
		}
		log.Infof("Wrote default config to %s", utils.GetAbsolutePath(path))
		os.Exit(0)
	}

	appConfig, configPath, err := config.LoadConfigWithPriority(*configFile)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *baseURL != "" {
		appConfig.Lookup.BaseURL = *baseURL
	}
	log.Debugf("Using config file: (%s)", config.GetActiveConfigPath(configPath))

	// CLI would be mainly used for testing and dbg purposes.
	if *cliMode {
		log.SetReportTimestamp(false)
		if err := runCLI(appConfig); err != nil {
			log.Fatalf("CLI error: %v", err)
		}
		return
	}

	log.Debug("spawning IPC")
	srv := server.NewServer(appConfig, configPath)

	if appConfig.Server.ReloadConfig && configPath != "" {
		w, err := config.Watch(configPath, 200*time.Millisecond, func(cfg *config.Config) {
			if *baseURL != "" {
				cfg.Lookup.BaseURL = *baseURL
			}
			srv.ApplyConfig(cfg)
		})
		if err != nil {
			log.Warnf("Config reload disabled: %v", err)
		} else {
			defer w.Close()
		}
	}

	showStartupInfo(appConfig)

	if err := srv.Start(); err != nil {
		log.Errorf("Server stopped: %v", err)
		os.Exit(1)
	}
}

func runCLI(cfg *config.Config) error {
	lookups := map[string]mention.Lookup{
		server.EmojiTrigger: emoji.NewTable(cfg.Emoji.Table, cfg.Emoji.AssetPath, cfg.Emoji.Template),
	}
	if client, err := lookup.New(cfg.LookupOptions()); err != nil {
		log.Warnf("User lookup disabled: %v", err)
	} else {
		lookups[server.UserTrigger] = client
	}

	sess := mention.NewSession(cfg.MentionOptions(), lookups)
	defer sess.Close()

	h := cli.NewInputHandler(sess,
		[]string{server.UserTrigger, server.EmojiTrigger},
		[]string{server.EmojiTrigger},
		cfg.Mention.ShouldStartWithSpace,
		5*time.Second)
	return h.Start()
}

func printVersion() {
	banner := log.NewWithOptions(os.Stderr, log.Options{
		ReportCaller:    false,
		ReportTimestamp: false,
		Prefix:          "",
	})

	styles := log.DefaultStyles()
	styles.Values["version"] = lipgloss.NewStyle().Bold(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	styles.Values["gh"] = lipgloss.NewStyle().Italic(true).
		Foreground(lipgloss.AdaptiveColor{Light: "#575279", Dark: "#e0def4"})
	banner.SetStyles(styles)

	banner.Print("")
	banner.Print("[ MentionServe ] @-mention and :emoji: completions for editors")
	banner.Print("", "version", Version)
	banner.Print("")
	banner.Print("use -h or --help to see available options")
	banner.Print("Github Repo", "gh", gh)
}

// showStartupInfo prints basic info to stderr; stdout carries the IPC stream.
func showStartupInfo(cfg *config.Config) {
	currentLevel := log.GetLevel()
	log.SetLevel(log.InfoLevel)
	defer log.SetLevel(currentLevel)

	fmt.Fprintln(os.Stderr, "==============")
	fmt.Fprintln(os.Stderr, " MentionServe ")
	fmt.Fprintln(os.Stderr, "==============")
	log.Infof("Version: %s", Version)
	log.Infof("Process ID: [ %d ]", os.Getpid())
	log.Infof("user search: ( %s )", cfg.Lookup.BaseURL)
	log.Infof("emoji: %d shortcodes", len(cfg.Emoji.Table))
	log.Info("status: ready")
	fmt.Fprintln(os.Stderr, "==============")
}
