package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/amishk599/cvvin/internal/model"
)

var (
	credEmail    string
	credPassword string
)

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create the local account and log in",
	RunE:  runSignup,
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in to the local account",
	RunE:  runLogin,
}

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the current session",
	RunE:  runLogout,
}

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current session and where to go next",
	RunE:  runWhoami,
}

func init() {
	for _, c := range []*cobra.Command{signupCmd, loginCmd} {
		c.Flags().StringVarP(&credEmail, "email", "e", "", "account email")
		c.Flags().StringVarP(&credPassword, "password", "p", "", "account password (prompted when omitted)")
		rootCmd.AddCommand(c)
	}
	rootCmd.AddCommand(logoutCmd, whoamiCmd)
}

// readCredential fills in whatever the flags left out, prompting on a
// terminal and reading lines from stdin otherwise.
func readCredential(cmd *cobra.Command) (model.Credential, error) {
	in := bufio.NewReader(cmd.InOrStdin())
	out := cmd.ErrOrStderr()

	email := credEmail
	if email == "" {
		fmt.Fprint(out, "Email: ")
		line, err := in.ReadString('\n')
		if err != nil && err != io.EOF {
			return model.Credential{}, err
		}
		email = strings.TrimSpace(line)
	}

	password := credPassword
	if password == "" {
		fmt.Fprint(out, "Password: ")
		if term.IsTerminal(os.Stdin.Fd()) {
			b, err := term.ReadPassword(os.Stdin.Fd())
			fmt.Fprintln(out)
			if err != nil {
				return model.Credential{}, err
			}
			password = string(b)
		} else {
			line, err := in.ReadString('\n')
			if err != nil && err != io.EOF {
				return model.Credential{}, err
			}
			password = strings.TrimRight(line, "\r\n")
		}
	}
	return model.Credential{Email: email, Password: password}, nil
}

func runSignup(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := readCredential(cmd)
	if err != nil {
		return err
	}
	sess, err := a.sessions.Signup(cmd.Context(), c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! Your account is ready.\n", sess.Name)
	printNext(cmd, a.sessions.NextStage())
	return nil
}

func runLogin(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	c, err := readCredential(cmd)
	if err != nil {
		return err
	}
	sess, err := a.sessions.Login(cmd.Context(), c)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Logged in as %s.\n", sess.Email)
	printNext(cmd, a.sessions.NextStage())
	return nil
}

func runLogout(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	if err := a.sessions.Logout(cmd.Context()); err != nil {
		a.logger.Warn("logout was not persisted", "error", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Logged out.")
	return nil
}

func runWhoami(cmd *cobra.Command, args []string) error {
	a, err := openApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.Close()

	out := cmd.OutOrStdout()
	sess := a.sessions.CurrentSession()
	if !sess.IsAuthenticated {
		fmt.Fprintln(out, "Not logged in.")
	} else {
		fmt.Fprintf(out, "%s <%s>\n", sess.Name, sess.Email)
		fmt.Fprintf(out, "Signed in via %s at %s\n", sess.Origin, sess.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	printNext(cmd, a.sessions.NextStage())
	return nil
}

func printNext(cmd *cobra.Command, stage model.Stage) {
	hint := map[model.Stage]string{
		model.StageLogin:        "Next: `cvvin login` or `cvvin signup`.",
		model.StageProfileSetup: "Next: complete your profile with `cvvin profile set --name ... --email ...`, or `cvvin profile skip`.",
		model.StageDashboard:    "Next: run `cvvin analyze` against a job description.",
	}[stage]
	if hint != "" {
		fmt.Fprintln(cmd.OutOrStdout(), hint)
	}
}
