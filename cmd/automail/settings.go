package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/oauth2"

	"github.com/automail/automail/internal/app"
	"github.com/automail/automail/internal/auth"
)

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Manage the Google client id and sign-in",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the client id and sign-in state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			v, err := a.Settings.View(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			clientID := v.ClientID
			if clientID == "" {
				clientID = "(not set)"
			}
			fmt.Fprintf(out, "Client ID: %s\n", clientID)
			if v.LoggedIn {
				fmt.Fprintf(out, "Signed in: yes, until %s\n", v.TokenExpiry.Local().Format(time.DateTime))
			} else {
				fmt.Fprintln(out, "Signed in: no")
			}
			return nil
		})
	},
}

var settingsClientIDCmd = &cobra.Command{
	Use:   "client-id <id>",
	Short: "Set the Google OAuth client id (signs out)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			_, err := a.Settings.SetClientID(ctx, args[0])
			return err
		})
	},
}

var loginTimeout time.Duration

var settingsLoginCmd = &cobra.Command{
	Use:   "login",
	Short: "Sign in with Google through the browser",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			st, err := a.Settings.Get(ctx)
			if err != nil {
				return err
			}

			ln, err := net.Listen("tcp", "127.0.0.1:0")
			if err != nil {
				return fmt.Errorf("failed to open callback listener: %w", err)
			}
			defer ln.Close()

			authz, err := a.Authorizer(st.ClientID, fmt.Sprintf("http://%s/callback", ln.Addr()))
			if err != nil {
				if errors.Is(err, auth.ErrClientIDMissing) {
					return fmt.Errorf("%w: run 'automail settings client-id <id>' first", err)
				}
				return err
			}

			ctx, cancel := context.WithTimeout(ctx, loginTimeout)
			defer cancel()

			state := oauth2.GenerateVerifier()
			cb, err := awaitCallback(ctx, ln, state, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "Open this URL in your browser to sign in:\n\n  %s\n\n", authz.AuthCodeURL(state))
			})
			if err != nil {
				return err
			}

			tok, err := authz.Complete(ctx, cb)
			if err != nil {
				return err
			}
			saved, err := a.Settings.Login(ctx, tok)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Signed in until %s\n", saved.ExpiresAt().Local().Format(time.DateTime))
			return nil
		})
	},
}

var settingsLogoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "Discard the stored access token",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
			return a.Settings.Logout(ctx)
		})
	},
}

// awaitCallback serves the loopback redirect until one request with the
// expected state arrives. Leaving the browser flow or hitting the deadline
// counts as cancellation.
func awaitCallback(ctx context.Context, ln net.Listener, state string, ready func()) (auth.Callback, error) {
	got := make(chan auth.Callback, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			return
		}

		select {
		case got <- auth.Callback{Code: q.Get("code"), Error: q.Get("error"), Description: q.Get("error_description")}:
		default:
		}
		fmt.Fprintln(w, "automail: you can close this window.")
	})

	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go srv.Serve(ln)
	defer srv.Close()

	ready()

	select {
	case cb := <-got:
		return cb, nil
	case <-ctx.Done():
		return auth.Callback{}, fmt.Errorf("%w: %v", auth.ErrUserCancelled, ctx.Err())
	}
}

func init() {
	settingsLoginCmd.Flags().DurationVar(&loginTimeout, "timeout", 5*time.Minute, "how long to wait for the browser")

	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsClientIDCmd)
	settingsCmd.AddCommand(settingsLoginCmd)
	settingsCmd.AddCommand(settingsLogoutCmd)
}
