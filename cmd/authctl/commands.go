package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jrsteele09/go-session-auth/identity"
	"github.com/jrsteele09/go-session-auth/internal/utils"
	"github.com/jrsteele09/go-session-auth/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func newLoginCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <username>",
		Short: "Log in and save the session token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return credentialCommand(cmd, opts, args[0], password, (*session.Manager).Login)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func newRegisterCmd(opts *rootOptions) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "register <username>",
		Short: "Create an account and log in as it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return credentialCommand(cmd, opts, args[0], password, (*session.Manager).Register)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "password (read from stdin when omitted)")
	return cmd
}

func newWhoamiCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Print the user of the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.Session.State()
			if st.User == nil {
				return errors.New("not logged in")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (id %d)", st.User.Username, st.User.ID)
			if email := utils.Value(st.User.Email); email != "" {
				fmt.Fprintf(cmd.OutOrStdout(), " <%s>", email)
			}
			fmt.Fprintln(cmd.OutOrStdout())
			return nil
		},
	}
}

func newLogoutCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			a.Session.Logout(cmd.Context())
			fmt.Fprintln(cmd.OutOrStdout(), "Logged out")
			return nil
		},
	}
}

func newStatusCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the session status and the screen the client would show",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.Session.State()
			path := a.AfterLogin(st.IsAuthenticated())
			route, err := a.Routes.Resolve(path)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "identity: %s\n", a.Identity.BaseURL())
			fmt.Fprintf(out, "status:   %s\n", st.Status())
			fmt.Fprintf(out, "screen:   %s\n", route.Screen)
			return nil
		},
	}
}

func newVerifyCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Ask the identity service whether the saved token is still valid",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			bearer := a.Session.Credential()
			if bearer == "" {
				return errors.New("not logged in")
			}
			v, err := a.Identity.Verify(cmd.Context(), bearer)
			if err != nil {
				if detail := identity.DetailOf(err); detail != "" {
					return errors.New(detail)
				}
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (%s)\n", v.Message, v.User)
			return nil
		},
	}
}

type credentialFunc func(m *session.Manager, ctx context.Context, username, password string) bool

func credentialCommand(cmd *cobra.Command, opts *rootOptions, username, password string, fn credentialFunc) error {
	if password == "" {
		var err error
		if password, err = readPassword(cmd.InOrStdin(), cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	a, err := opts.openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if !fn(a.Session, cmd.Context(), username, password) {
		return errors.New(a.Session.State().Error)
	}
	st := a.Session.State()
	if st.User == nil {
		return errors.New("logged in but the user profile could not be loaded")
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s\n", st.User.Username)
	return nil
}

// readPassword reads without echo from a terminal and takes one line from anything else.
func readPassword(in io.Reader, prompt io.Writer) (string, error) {
	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Password: ")
		secret, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt)
		if err != nil {
			return "", fmt.Errorf("failed to read password: %w", err)
		}
		return string(secret), nil
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("failed to read password: %w", err)
	}
	return strings.TrimRight(line, "\r\n"), nil
}
