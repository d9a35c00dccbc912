package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/avvvet/buffet-bingo/internal/client"
)

type Config struct {
	server    string
	stateFile string
	timeout   time.Duration
	yes       bool
}

func (c *Config) validate() error {
	if c.server == "" {
		return errors.New("--server must not be empty")
	}
	if !strings.HasPrefix(c.server, "http://") && !strings.HasPrefix(c.server, "https://") {
		return fmt.Errorf("invalid server url (must start with http:// or https://): %s", c.server)
	}
	return nil
}

// app is the per-invocation state shared by every subcommand.
type app struct {
	cfg     *Config
	session *client.Session
	api     *client.Client
}

func (a *app) save() error {
	return a.session.Save(a.cfg.stateFile)
}

func (a *app) ctx(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), a.cfg.timeout)
}

func newCmd(cfg *Config) *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("BINGO")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	a := &app{cfg: cfg}

	cmd := &cobra.Command{
		Use:           "bingoctl",
		Short:         "Play Buffet Bingo from the terminal: create or join a table, rate plates, watch the scoreboard.",
		SilenceErrors: true,
		Version:       releaseVersion,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.validate(); err != nil {
				return err
			}
			s, err := client.LoadSession(cfg.stateFile)
			if err != nil {
				return err
			}
			a.session = s
			a.api = client.New(cfg.server, s.Token)
			return nil
		},
	}

	fs := cmd.PersistentFlags()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.StringVarP(&cfg.server, "server", "s", "http://localhost:8080", "table service base url (env: BINGO_SERVER)")
	fs.StringVar(&cfg.stateFile, "state-file", client.DefaultStatePath(), "where the local session is kept (env: BINGO_STATE_FILE)")
	fs.DurationVar(&cfg.timeout, "timeout", 30*time.Second, "timeout for each request (env: BINGO_TIMEOUT)")
	fs.BoolVarP(&cfg.yes, "yes", "y", false, "skip confirmation of destructive actions (env: BINGO_YES)")

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})

	cmd.AddCommand(
		loginCmd(a),
		migrateCmd(a),
		createCmd(a),
		joinCmd(a),
		leaveCmd(a),
		statusCmd(a),
		closeCmd(a),
		deleteCmd(a),
		kickCmd(a),
		submitCmd(a),
		shareCmd(a),
		watchCmd(a),
		hofCmd(a),
		tablesCmd(a),
	)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("bingoctl v{{.Version}}\n")

	cmd.SilenceErrors = true
	cmd.SilenceUsage = true

	return cmd
}
