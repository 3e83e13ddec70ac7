package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bastiangx/mentionserve/pkg/directory"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var serverURL string

var (
	idStyle   = lipgloss.NewStyle().Faint(true).Width(8).Align(lipgloss.Right)
	nameStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("75"))
)

// addCmd adds users by name
var addCmd = &cobra.Command{
	Use:   "add NAME...",
	Short: "Add users",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		add := func(ctx context.Context, name string) (directory.User, error) {
			return adminCall(ctx, http.MethodPost, adminURL(), map[string]string{"name": name})
		}
		if serverURL == "" {
			_, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			add = store.Add
		}

		for _, name := range args {
			u, err := add(cmd.Context(), name)
			if err != nil {
				return fmt.Errorf("add %q: %w", name, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", idStyle.Render(strconv.FormatInt(u.ID, 10)), nameStyle.Render(u.Name))
		}
		return nil
	},
}

// removeCmd soft deletes a user
var removeCmd = &cobra.Command{
	Use:   "remove ID",
	Short: "Remove a user by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		remove := func(ctx context.Context, id int64) (directory.User, error) {
			return adminCall(ctx, http.MethodDelete, adminURL()+"/"+strconv.FormatInt(id, 10), nil)
		}
		if serverURL == "" {
			_, store, err := openStore()
			if err != nil {
				return err
			}
			defer store.Close()
			remove = store.Delete
		}

		u, err := remove(cmd.Context(), id)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", nameStyle.Render(u.Name))
		return nil
	},
}

// listCmd lists active users
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List users",
	RunE: func(cmd *cobra.Command, args []string) error {
		_, store, err := openStore()
		if err != nil {
			return err
		}
		defer store.Close()

		users, err := store.Users(cmd.Context())
		if err != nil {
			return err
		}
		for _, u := range users {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", idStyle.Render(strconv.FormatInt(u.ID, 10)), nameStyle.Render(u.Name))
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d users\n", len(users))
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{addCmd, removeCmd} {
		c.Flags().StringVar(&serverURL, "server", "", "Base URL of a running 'userdir serve --admin'; the database is not opened")
	}
}

func adminURL() string {
	return strings.TrimRight(serverURL, "/") + directory.AdminPath
}

// adminCall sends one admin request to a running server so its index stays
// in step with the database.
func adminCall(ctx context.Context, method, url string, body any) (directory.User, error) {
	var rd io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return directory.User{}, err
		}
		rd = bytes.NewReader(data)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, method, url, rd)
	if err != nil {
		return directory.User{}, err
	}
	if rd != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return directory.User{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		if resp.StatusCode == http.StatusNotFound {
			return directory.User{}, directory.ErrNotFound
		}
		return directory.User{}, fmt.Errorf("%s %s: %d %s", method, url, resp.StatusCode, e.Error)
	}
	var u directory.User
	if err := json.NewDecoder(resp.Body).Decode(&u); err != nil {
		return directory.User{}, fmt.Errorf("decoding response: %w", err)
	}
	return u, nil
}
