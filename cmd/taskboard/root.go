package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"taskboard/internal/client"
	"taskboard/internal/models"
)

const defaultServer = "http://localhost:8080"

// app carries what every subcommand needs. The board is loaded lazily so
// commands that only hit one endpoint skip the full fetch.
type app struct {
	v      *viper.Viper
	log    *log.Logger
	remote client.Remote
	cache  *client.Cache
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), log: log.New()}

	rootCmd := &cobra.Command{
		Use:           "taskboard",
		Short:         "Kanban board for your tasks",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.String("config", "", "Config file (default ~/.config/taskboard/config.yaml)")
	flags.String("server", defaultServer, "Taskboard API base URL")
	flags.String("token", "", "Bearer token")
	flags.BoolP("verbose", "v", false, "Log requests and state changes")
	_ = a.v.BindPFlag("server", flags.Lookup("server"))
	_ = a.v.BindPFlag("token", flags.Lookup("token"))
	_ = a.v.BindPFlag("verbose", flags.Lookup("verbose"))

	// Add subcommands
	rootCmd.AddCommand(listCmd(a))
	rootCmd.AddCommand(addCmd(a))
	rootCmd.AddCommand(editCmd(a))
	rootCmd.AddCommand(statusCmd(a))
	rootCmd.AddCommand(moveCmd(a))
	rootCmd.AddCommand(rmCmd(a))
	rootCmd.AddCommand(countCmd(a))

	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	a.log.SetOutput(cmd.ErrOrStderr())

	a.v.SetEnvPrefix("TASKBOARD")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()
	a.v.SetConfigType("yaml")

	if path, _ := cmd.Flags().GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
	} else if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".config", "taskboard"))
		a.v.SetConfigName("config")
		var notFound viper.ConfigFileNotFoundError
		if err := a.v.ReadInConfig(); err != nil && !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if a.v.GetBool("verbose") {
		a.log.SetLevel(log.DebugLevel)
	} else {
		a.log.SetLevel(log.WarnLevel)
	}

	if a.remote == nil {
		server := a.v.GetString("server")
		if server == "" {
			server = defaultServer
		}
		a.remote = client.NewHTTPRemote(server, a.v.GetString("token"), nil)
		a.log.WithField("server", server).Debug("using remote")
	}
	return nil
}

// board returns the loaded cache.
func (a *app) board(ctx context.Context) (*client.Cache, error) {
	if a.cache != nil {
		return a.cache, nil
	}
	cache := client.NewCache(a.remote)
	if err := cache.Load(ctx); err != nil {
		return nil, err
	}
	a.log.WithField("tasks", len(cache.Snapshot().Entries)).Debug("board loaded")
	a.cache = cache
	return cache, nil
}

// parseStatus accepts the wire names as well as the column labels.
func parseStatus(raw string) (models.Status, error) {
	norm := strings.ToUpper(strings.NewReplacer("-", "_", " ", "_").Replace(strings.TrimSpace(raw)))
	switch norm {
	case "TODO", "TO_DO":
		return models.StatusNotStarted, nil
	case "DOING":
		return models.StatusInProgress, nil
	case "DONE":
		return models.StatusComplete, nil
	}
	if s := models.Status(norm); s.Valid() {
		return s, nil
	}
	return "", fmt.Errorf("unknown status %q (want todo, in-progress or done)", raw)
}

func printTask(w io.Writer, t *models.Task) {
	fmt.Fprintf(w, "#%d %s [%s]\n", t.ID, t.Title, t.Status.Label())
}
