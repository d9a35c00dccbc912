package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/avvvet/buffet-bingo/internal/client"
	"github.com/avvvet/buffet-bingo/internal/comm"
	"github.com/avvvet/buffet-bingo/internal/identity"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/models"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/scoreboard"
	"github.com/avvvet/buffet-bingo/internal/tablesvc/service"
)

// ensureIdentity signs in anonymously when the session has no token yet.
func (a *app) ensureIdentity(ctx context.Context) error {
	if a.session.Token != "" {
		return nil
	}
	signed, err := a.api.SignInAnonymous(ctx)
	if err != nil {
		return fmt.Errorf("anonymous sign in: %w", err)
	}
	a.session.SignedIn(signed.Token, signed.Principal)
	a.api.SetToken(signed.Token)
	return a.save()
}

// table resolves the table argument, falling back to the session's table.
func (a *app) table(args []string) (string, error) {
	if len(args) > 0 && args[0] != "" {
		return args[0], nil
	}
	if id, ok := a.session.Rejoinable(time.Now()); ok {
		return id, nil
	}
	return "", errors.New("no current table, pass a table id or join one first")
}

func (a *app) confirm(cmd *cobra.Command, prompt string) error {
	if a.cfg.yes {
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s [y/N]: ", prompt)
	line, _ := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return nil
	}
	return errors.New("aborted")
}

func credentialFlags(cmd *cobra.Command, cred *identity.Credential) {
	cmd.Flags().StringVar(&cred.Provider, "provider", "", "identity provider of the credential, e.g. google")
	cmd.Flags().StringVar(&cred.Subject, "subject", "", "subject id issued by the provider")
	cmd.Flags().StringVar(&cred.DisplayName, "name", "", "display name on the account")
}

func loginCmd(a *app) *cobra.Command {
	var cred identity.Credential
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in anonymously, or with a persistent credential",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			var (
				signed *client.SignedIn
				err    error
			)
			switch {
			case cred.Provider == "":
				signed, err = a.api.SignInAnonymous(ctx)
			case a.session.Token != "" && a.session.Principal.IsAnonymous:
				signed, err = a.api.Link(ctx, cred)
				var apiErr *client.APIError
				if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
					return fmt.Errorf("that account already exists; run `bingoctl migrate` to move your plate into it")
				}
			default:
				signed, err = a.api.SignIn(ctx, cred)
			}
			if err != nil {
				return err
			}

			a.session.SignedIn(signed.Token, signed.Principal)
			if err := a.save(); err != nil {
				return err
			}
			kind := "persistent"
			if signed.Principal.IsAnonymous {
				kind = "anonymous"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "signed in as %s (%s)\n", signed.Principal.ID, kind)
			return nil
		},
	}
	credentialFlags(cmd, &cred)
	return cmd
}

func migrateCmd(a *app) *cobra.Command {
	var cred identity.Credential
	cmd := &cobra.Command{
		Use:   "migrate [table-id]",
		Short: "Move your anonymous plate into a persistent account and the hall of fame",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tableID, err := a.table(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()

			res, err := a.api.Migrate(ctx, tableID, cred, false)
			var apiErr *client.APIError
			if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict {
				if err := a.confirm(cmd, "This account already exists. Sign into it and move your plate?"); err != nil {
					return err
				}
				res, err = a.api.Migrate(ctx, tableID, cred, true)
			}
			if res != nil && res.Token != "" && res.Migration != nil {
				a.session.SignedIn(res.Token, res.Migration.To)
				if saveErr := a.save(); saveErr != nil {
					return saveErr
				}
			}
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "migration %s\n", res.Migration.State)
			for _, w := range res.Migration.Warnings {
				fmt.Fprintf(cmd.OutOrStdout(), "  warning: %s\n", w)
			}
			return nil
		},
	}
	credentialFlags(cmd, &cred)
	return cmd
}

func createCmd(a *app) *cobra.Command {
	var playerName string
	cmd := &cobra.Command{
		Use:   "create [table name]",
		Short: "Create a table and become its host",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := a.ensureIdentity(ctx); err != nil {
				return err
			}

			name := ""
			if len(args) > 0 {
				name = args[0]
			}
			if playerName != "" {
				a.session.DisplayName = playerName
			}

			info, err := a.api.CreateTable(ctx, service.CreateTableRequest{Name: name, PlayerName: a.session.DisplayName})
			if err != nil {
				return err
			}
			a.session.Joined(info.Table.ID, time.Now())
			if err := a.save(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "table %s created, code %s\nshare: %s\n", info.Table.ID, info.Table.Code(), info.ShareURL)
			return nil
		},
	}
	cmd.Flags().StringVarP(&playerName, "name", "n", "", "your display name (remembered)")
	return cmd
}

func joinCmd(a *app) *cobra.Command {
	var (
		playerName string
		byID       bool
	)
	cmd := &cobra.Command{
		Use:   "join <code>",
		Short: "Join a table by its 4 character code (or --id)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := a.ensureIdentity(ctx); err != nil {
				return err
			}
			if playerName != "" {
				a.session.DisplayName = playerName
			}

			req := service.JoinRequest{Code: args[0], Name: a.session.DisplayName}
			if byID {
				req = service.JoinRequest{TableID: args[0], Name: a.session.DisplayName}
			}
			info, err := a.api.JoinTable(ctx, req)
			if err != nil {
				return err
			}
			a.session.Joined(info.Table.ID, time.Now())
			if err := a.save(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "joined table %s (%s)\n", info.Table.ID, info.Table.Name)
			return nil
		},
	}
	cmd.Flags().StringVarP(&playerName, "name", "n", "", "your display name (remembered)")
	cmd.Flags().BoolVar(&byID, "id", false, "treat the argument as a table id")
	return cmd
}

func leaveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "leave",
		Short: "Forget the current table locally; your plate stays on the scoreboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.session.TableID == "" {
				fmt.Fprintln(cmd.OutOrStdout(), "not at a table")
				return nil
			}
			if err := a.confirm(cmd, "Leave table "+a.session.TableID+"?"); err != nil {
				return err
			}
			a.session.Leave()
			return a.save()
		},
	}
}

// statusCmd rejoins the last table when it is still inside the rejoin window.
func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show your identity and the current table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if a.session.Token == "" {
				fmt.Fprintln(out, "not signed in")
			} else {
				fmt.Fprintf(out, "principal %s anonymous=%t name=%q\n", a.session.Principal.ID, a.session.Principal.IsAnonymous, a.session.DisplayName)
			}

			tableID, ok := a.session.Rejoinable(time.Now())
			if !ok {
				fmt.Fprintln(out, "no current table")
				return a.save()
			}

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if _, err := a.api.JoinTable(ctx, service.JoinRequest{TableID: tableID, Name: a.session.DisplayName}); err != nil {
				return err
			}
			view, err := a.api.Table(ctx, tableID)
			if err != nil {
				return err
			}
			printView(cmd, view)
			return a.save()
		},
	}
}

func closeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "close [table-id]",
		Short: "Close a table you host; no more plates can be submitted",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tableID, err := a.table(args)
			if err != nil {
				return err
			}
			if err := a.confirm(cmd, "Close table "+tableID+"?"); err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			return a.api.CloseTable(ctx, tableID)
		},
	}
}

func deleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [table-id]",
		Short: "Delete a table you host with all plates and photos",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tableID, err := a.table(args)
			if err != nil {
				return err
			}
			if err := a.confirm(cmd, "Delete table "+tableID+" and every plate on it?"); err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			if err := a.api.DeleteTable(ctx, tableID); err != nil {
				return err
			}
			if a.session.TableID == tableID {
				a.session.Leave()
			}
			return a.save()
		},
	}
}

func kickCmd(a *app) *cobra.Command {
	var tableID string
	cmd := &cobra.Command{
		Use:   "kick <uid>",
		Short: "Remove a plate from the table (your own, or any if you host)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.table([]string{tableID})
			if err != nil {
				return err
			}
			if err := a.confirm(cmd, "Remove player "+args[0]+"?"); err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			return a.api.DeletePlayer(ctx, id, args[0])
		},
	}
	cmd.Flags().StringVar(&tableID, "table", "", "table id (defaults to the current table)")
	return cmd
}

func submitCmd(a *app) *cobra.Command {
	var (
		b       models.Breakdown
		badges  []string
		photo   string
		tableID string
	)
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Rate your plate and upload its photo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := a.table([]string{tableID})
			if err != nil {
				return err
			}
			data, err := os.ReadFile(photo)
			if err != nil {
				return fmt.Errorf("read photo: %w", err)
			}

			ctx, cancel := a.ctx(cmd)
			defer cancel()
			res, err := a.api.SubmitScore(ctx, id, b, badges, data, photo)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "score %.1f: %s\n", res.Player.Score, res.Verdict)
			return nil
		},
	}
	fs := cmd.Flags()
	fs.IntVar(&b.Taste, "taste", 0, "taste, 1-10")
	fs.IntVar(&b.Cohesion, "cohesion", 0, "how well the plate mirrors the guide, 1-10")
	fs.IntVar(&b.Regret, "regret", 0, "regret, 1-10 (lower is better)")
	fs.IntVar(&b.Waste, "waste", 0, "food left over, 1-10 (lower is better)")
	fs.StringArrayVar(&badges, "badge", nil, "badge earned with this plate (repeatable)")
	fs.StringVar(&photo, "photo", "", "path to the plate photo")
	fs.StringVar(&tableID, "table", "", "table id (defaults to the current table)")
	_ = cmd.MarkFlagRequired("photo")
	return cmd
}

func shareCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "share [table-id]",
		Short: "Print the join link of a table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tableID, err := a.table(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			link, err := a.api.ShareLink(ctx, tableID)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), link)
			return nil
		},
	}
}

func watchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [table-id]",
		Short: "Follow the live scoreboard",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tableID, err := a.table(args)
			if err != nil {
				return err
			}
			return a.api.Watch(cmd.Context(), tableID, func(msg *comm.WSMessage) {
				switch msg.Type {
				case comm.TypeScoreboard:
					var view scoreboard.View
					if err := json.Unmarshal(msg.Data, &view); err == nil {
						printView(cmd, &view)
					}
				case comm.TypePlayerJoined:
					var n scoreboard.Notification
					if err := json.Unmarshal(msg.Data, &n); err == nil {
						fmt.Fprintf(cmd.OutOrStdout(), ">> %s\n", n.Message)
					}
				case comm.TypeError:
					var e comm.ErrorData
					if err := json.Unmarshal(msg.Data, &e); err == nil {
						fmt.Fprintf(cmd.ErrOrStderr(), "error: %s\n", e.Message)
					}
				}
			})
		},
	}
}

func hofCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "hof",
		Short: "List the hall of fame",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			entries, err := a.api.HallOfFame(ctx, limit)
			if err != nil {
				return err
			}
			for i, e := range entries {
				fmt.Fprintf(cmd.OutOrStdout(), "%2d. %-20s %4.1f  %s\n", i+1, e.Name, e.Score, e.ID)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", service.DefaultHallOfFameLimit, "number of entries")

	cmd.AddCommand(&cobra.Command{
		Use:   "add [table-id]",
		Short: "Put your scored plate into the hall of fame (persistent accounts only)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			tableID, err := a.table(args)
			if err != nil {
				return err
			}
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			entry, err := a.api.AddToHallOfFame(ctx, tableID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "inducted as %s\n", entry.ID)
			return nil
		},
	})
	return cmd
}

func tablesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List tables you host or joined",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := a.ctx(cmd)
			defer cancel()
			tables, err := a.api.MyTables(ctx)
			if err != nil {
				return err
			}
			for _, t := range tables {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %-4s  %-6s  %s  %s\n", t.ID, t.Code(), t.Status, t.CreatedAt.Format(time.RFC822), t.Name)
			}
			return nil
		},
	}
}

func printView(cmd *cobra.Command, v *scoreboard.View) {
	out := cmd.OutOrStdout()
	status := "open"
	switch {
	case v.Deleted:
		status = "deleted"
	case v.Closed:
		status = "closed"
	}
	fmt.Fprintf(out, "table %s %q code=%s status=%s members=%d\n", v.TableID, v.Name, v.Code, status, v.Total)
	for _, r := range v.Ranked {
		fmt.Fprintf(out, "  #%d %-20s %4.1f  %s\n", r.Rank, r.Player.Name, r.Player.Score, r.Verdict)
	}
}
